package publisher_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/coupon-crawler/internal/config"
	"github.com/jonesrussell/coupon-crawler/internal/domain"
	"github.com/jonesrussell/coupon-crawler/internal/publisher"
)

type published struct {
	channel string
	payload []byte
}

// fakePubSub records published messages and fails for configured links.
type fakePubSub struct {
	mu       sync.Mutex
	messages []published
	failOn   string
}

func (f *fakePubSub) Publish(ctx context.Context, channel string, message any) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx, "publish", channel, message)

	payload, _ := message.([]byte)
	var msg publisher.CourseMessage
	_ = json.Unmarshal(payload, &msg)
	if f.failOn != "" && msg.Link == f.failOn {
		cmd.SetErr(errors.New("connection closed"))
		return cmd
	}

	f.mu.Lock()
	f.messages = append(f.messages, published{channel: channel, payload: payload})
	f.mu.Unlock()

	cmd.SetVal(1)
	return cmd
}

var found = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

func candidates() []domain.CourseCandidate {
	return []domain.CourseCandidate{
		{Title: "Go", Link: "https://www.udemy.com/course/go/", Coupon: "GO1", Source: "discudemy", DateFound: found},
		{Title: "Rust", Link: "https://www.udemy.com/course/rust/?couponCode=RS", Coupon: "RS", Source: "realdiscount", DateFound: found},
	}
}

func TestRedisPublisher_Publish(t *testing.T) {
	t.Parallel()

	fake := &fakePubSub{}
	p := publisher.NewRedisPublisher(fake, "", nil)

	sent, err := p.Publish(context.Background(), candidates())
	require.NoError(t, err)
	assert.Equal(t, 2, sent)

	require.Len(t, fake.messages, 2)
	assert.Equal(t, publisher.DefaultChannel, fake.messages[0].channel)

	var msg map[string]any
	require.NoError(t, json.Unmarshal(fake.messages[0].payload, &msg))
	assert.Equal(t, "https://www.udemy.com/course/go/?couponCode=GO1", msg["link_with_coupon"])
	assert.Equal(t, "GO1", msg["coupon_code"])
	assert.Equal(t, "discudemy", msg["source"])
	assert.NotEmpty(t, msg["event_id"])
}

func TestRedisPublisher_ContinuesAfterFailure(t *testing.T) {
	t.Parallel()

	fake := &fakePubSub{failOn: "https://www.udemy.com/course/go/"}
	p := publisher.NewRedisPublisher(fake, "custom", nil)

	sent, err := p.Publish(context.Background(), candidates())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection closed")
	assert.Equal(t, 1, sent)
	require.Len(t, fake.messages, 1)
	assert.Equal(t, "custom", fake.messages[0].channel)
}

func TestNewRedisPublisher_NilClient(t *testing.T) {
	t.Parallel()

	p := publisher.NewRedisPublisher(nil, "", nil)
	assert.Nil(t, p)

	sent, err := p.Publish(context.Background(), candidates())
	require.NoError(t, err)
	assert.Zero(t, sent)
}

func TestNewClient_ReturnsErrorWhenAddressEmpty(t *testing.T) {
	t.Parallel()

	client, err := publisher.NewClient(config.RedisConfig{})
	assert.ErrorIs(t, err, publisher.ErrEmptyAddress)
	assert.Nil(t, client)
}
