package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/coupon-crawler/internal/domain"
	"github.com/jonesrussell/coupon-crawler/internal/logger"
)

// DefaultChannel is the pub/sub channel new courses are announced on.
const DefaultChannel = "courses:new"

// PubSub is the part of a Redis client the publisher needs.
type PubSub interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// CourseMessage is the payload announced for each stored course.
type CourseMessage struct {
	EventID        uuid.UUID `json:"event_id"`
	Title          string    `json:"title"`
	Link           string    `json:"link"`
	Coupon         string    `json:"coupon_code"`
	LinkWithCoupon string    `json:"link_with_coupon"`
	Source         string    `json:"source"`
	DateFound      time.Time `json:"date_found"`
	PublishedAt    time.Time `json:"published_at"`
}

// NewCourseMessage builds the payload for c.
func NewCourseMessage(c domain.CourseCandidate, now time.Time) CourseMessage {
	return CourseMessage{
		EventID:        uuid.New(),
		Title:          c.Title,
		Link:           c.Link,
		Coupon:         c.Coupon,
		LinkWithCoupon: c.LinkWithCoupon(),
		Source:         c.Source,
		DateFound:      c.DateFound,
		PublishedAt:    now.UTC(),
	}
}

// RedisPublisher announces courses on one channel.
type RedisPublisher struct {
	client  PubSub
	channel string
	log     logger.Logger
	now     func() time.Time
}

// NewRedisPublisher creates a publisher. Returns nil if client is nil.
func NewRedisPublisher(client PubSub, channel string, log logger.Logger) *RedisPublisher {
	if client == nil {
		return nil
	}
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisPublisher{client: client, channel: channel, log: logger.OrNop(log), now: time.Now}
}

// Publish announces every candidate and returns how many were delivered to
// Redis. A failed message does not stop the others.
func (p *RedisPublisher) Publish(ctx context.Context, candidates []domain.CourseCandidate) (int, error) {
	if p == nil {
		return 0, nil
	}

	var (
		sent int
		errs []error
	)
	for _, c := range candidates {
		payload, err := json.Marshal(NewCourseMessage(c, p.now()))
		if err != nil {
			errs = append(errs, fmt.Errorf("marshal course %s: %w", c.Link, err))
			continue
		}

		receivers, err := p.client.Publish(ctx, p.channel, payload).Result()
		if err != nil {
			p.log.Error("Failed to publish course",
				logger.URL(c.Link),
				logger.String("channel", p.channel),
				logger.Error(err),
			)
			errs = append(errs, fmt.Errorf("publish course %s: %w", c.Link, err))
			continue
		}

		sent++
		p.log.Debug("Published course",
			logger.URL(c.Link),
			logger.String("channel", p.channel),
			logger.Int64("receivers", receivers),
		)
	}

	if sent > 0 {
		p.log.Info("Published new courses", logger.Int("count", sent), logger.String("channel", p.channel))
	}

	return sent, errors.Join(errs...)
}
