// Package orchestrator runs the source adapters in priority order and merges
// their output into one deduplicated run result.
package orchestrator

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jonesrussell/coupon-crawler/internal/dedup"
	"github.com/jonesrussell/coupon-crawler/internal/domain"
	"github.com/jonesrussell/coupon-crawler/internal/logger"
	"github.com/jonesrussell/coupon-crawler/internal/sources"
)

// Orchestrator invokes adapters strictly one after another. Adapter N+1 only
// starts once adapter N has returned, so a coupon found by an earlier adapter
// always wins over the same coupon found by a later one.
type Orchestrator struct {
	adapters []sources.Adapter
	log      logger.Logger
	now      func() time.Time
	newID    func() string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClock replaces the clock used for run timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithIDGenerator replaces the run ID generator.
func WithIDGenerator(newID func() string) Option {
	return func(o *Orchestrator) { o.newID = newID }
}

// New creates an Orchestrator over adapters, in the given priority order.
func New(adapters []sources.Adapter, log logger.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		adapters: adapters,
		log:      logger.OrNop(log),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Sources returns the adapter names in priority order.
func (o *Orchestrator) Sources() []string {
	names := make([]string, 0, len(o.adapters))
	for _, a := range o.adapters {
		names = append(names, a.Name())
	}
	return names
}

// Run invokes every adapter and folds its candidates through the run-wide
// coupon set. It never fails; a degraded source only shows in its stats.
// The run is bounded by ctx alone.
func (o *Orchestrator) Run(ctx context.Context, budget sources.Budget) domain.ScrapeRunResult {
	result := domain.ScrapeRunResult{
		RunID:      o.newID(),
		StartedAt:  o.now(),
		Order:      make([]string, 0, len(o.adapters)),
		Candidates: []domain.CourseCandidate{},
		Stats:      make(map[string]domain.AdapterStats, len(o.adapters)),
		Skipped:    []domain.SkipRecord{},
	}

	log := o.log.With(logger.String("run_id", result.RunID))
	log.Info("Scrape run started",
		logger.Strings("sources", o.Sources()),
		logger.Int("pages", budget.Pages),
		logger.Int("item_budget", budget.ItemBudget),
	)

	coupons := dedup.NewCouponSet()
	for _, a := range o.adapters {
		name := a.Name()
		result.Order = append(result.Order, name)

		if err := ctx.Err(); err != nil {
			log.Warn("Run cancelled, source not started", logger.Source(name), logger.Error(err))
			result.Stats[name] = domain.AdapterStats{}
			continue
		}

		start := o.now()
		res := a.Find(ctx, budget)
		o.fold(&result, coupons, name, res)

		log.Info("Source merged",
			logger.Source(name),
			logger.Int("added", result.Stats[name].Added),
			logger.Int("duplicate_coupons", result.Stats[name].SkippedDuplicateCoupon),
			logger.Duration("duration", o.now().Sub(start)),
		)
	}

	result.FinishedAt = o.now()
	log.Info("Scrape run finished",
		logger.Int("candidates", len(result.Candidates)),
		logger.Duration("duration", result.Duration()),
	)

	return result
}

// fold merges one adapter's result. Candidates whose coupon was already taken
// by an earlier adapter are moved to the skip log and their local acceptance
// is withdrawn from Added.
func (o *Orchestrator) fold(result *domain.ScrapeRunResult, coupons *dedup.CouponSet, name string, res sources.Result) {
	stats := result.Stats[name]
	stats.Add(res.Stats)
	result.Skipped = append(result.Skipped, res.Skipped...)

	for _, c := range res.Candidates {
		if coupons.Accept(c.Coupon) {
			result.Candidates = append(result.Candidates, c)
			continue
		}

		stats.Added--
		stats.SkippedDuplicateCoupon++
		result.Skipped = append(result.Skipped, domain.SkipRecord{
			Title:  c.Title,
			Link:   c.Link,
			Source: name,
			Reason: domain.SkipDuplicateCoupon,
		})
		o.log.Debug("Skipped duplicate coupon",
			logger.Source(name),
			logger.URL(c.Link),
			logger.String("coupon", c.Coupon),
		)
	}

	result.Stats[name] = stats
}
