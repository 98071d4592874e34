// Package registry builds the configured source adapters in priority order.
package registry

import (
	"errors"
	"fmt"
	"time"

	"github.com/jonesrussell/coupon-crawler/internal/config"
	"github.com/jonesrussell/coupon-crawler/internal/coupon"
	"github.com/jonesrussell/coupon-crawler/internal/fetcher"
	"github.com/jonesrussell/coupon-crawler/internal/logger"
	"github.com/jonesrussell/coupon-crawler/internal/probe"
	"github.com/jonesrussell/coupon-crawler/internal/sources"
	"github.com/jonesrussell/coupon-crawler/internal/sources/discudemy"
	"github.com/jonesrussell/coupon-crawler/internal/sources/realdiscount"
	"github.com/jonesrussell/coupon-crawler/internal/sources/yofreesamples"
)

// ErrUnknownSource is returned for a source name with no adapter.
var ErrUnknownSource = errors.New("unknown source")

// Build returns one adapter per entry of cfg.Sources, in that order. Every
// adapter gets its own fetcher and permit pool so one source never starves
// another.
func Build(cfg config.ScrapeConfig, log logger.Logger) ([]sources.Adapter, error) {
	log = logger.OrNop(log)

	policy := PolicyFrom(cfg.Retry)
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid retry policy: %w", err)
	}

	extractor := coupon.NewExtractor()

	adapters := make([]sources.Adapter, 0, len(cfg.Sources))
	for _, name := range cfg.Sources {
		deps := sources.Deps{
			Fetcher:   newFetcher(cfg, policy, log.With(logger.Source(name))),
			Limiter:   fetcher.NewLimiter(cfg.Concurrency),
			Extractor: extractor,
			Logger:    log,
			Vendor:    cfg.Vendor,
			Now:       time.Now,
		}

		switch name {
		case config.SourceDiscudemy:
			adapters = append(adapters, discudemy.New(cfg.Discudemy.BaseURL, deps))
		case config.SourceYoFreeSamples:
			adapters = append(adapters, yofreesamples.New(cfg.YoFreeSamples.BaseURL, deps))
		case config.SourceRealDiscount:
			adapters = append(adapters, newRealDiscount(cfg, deps, log))
		default:
			return nil, fmt.Errorf("%w: %s", ErrUnknownSource, name)
		}
	}

	return adapters, nil
}

// PolicyFrom converts the configured retry section.
func PolicyFrom(r config.RetryConfig) fetcher.RetryPolicy {
	return fetcher.RetryPolicy{
		MaxRetries: r.MaxRetries,
		Timeouts:   r.Timeouts,
		Backoff:    r.Backoff,
	}
}

func newFetcher(cfg config.ScrapeConfig, policy fetcher.RetryPolicy, log logger.Logger) *fetcher.Fetcher {
	opts := []fetcher.Option{
		fetcher.WithRateLimit(cfg.RateLimit),
		fetcher.WithLogger(log),
	}
	if len(cfg.UserAgents) > 0 {
		opts = append(opts, fetcher.WithUserAgents(cfg.UserAgents))
	}
	if cfg.MaxRedirects > 0 {
		opts = append(opts, fetcher.WithMaxRedirects(cfg.MaxRedirects))
	}
	return fetcher.New(policy, opts...)
}

func newRealDiscount(cfg config.ScrapeConfig, deps sources.Deps, log logger.Logger) *realdiscount.Adapter {
	client := fetcher.NewHTTPClient()

	var prober realdiscount.Prober
	if cfg.Probe.Enabled {
		agent := ""
		if len(cfg.UserAgents) > 0 {
			agent = cfg.UserAgents[0]
		}
		prober = probe.NewValidityProbe(client, cfg.Probe.Timeout, agent, log.With(logger.Source(config.SourceRealDiscount)))
	}

	var check realdiscount.Connectivity
	if cfg.Connectivity.URL != "" {
		check = probe.NewConnectivityCheck(client, cfg.Connectivity.URL, cfg.Connectivity.Timeout)
	}

	return realdiscount.New(realdiscount.Config{
		APIURL:   cfg.RealDiscount.APIURL,
		PageSize: cfg.RealDiscount.PageSize,
	}, deps, prober, check)
}
