package common

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jonesrussell/coupon-crawler/internal/config"
	"github.com/jonesrussell/coupon-crawler/internal/database"
	"github.com/jonesrussell/coupon-crawler/internal/job"
	"github.com/jonesrussell/coupon-crawler/internal/logger"
	"github.com/jonesrussell/coupon-crawler/internal/orchestrator"
	"github.com/jonesrussell/coupon-crawler/internal/publisher"
	"github.com/jonesrussell/coupon-crawler/internal/sources"
	"github.com/jonesrussell/coupon-crawler/internal/sources/registry"
	"github.com/jonesrussell/coupon-crawler/internal/storage"
)

// JobOptions derives the job options for cfg.
func JobOptions(cfg *config.Config, dryRun bool, out io.Writer) job.Options {
	return job.Options{
		Budget: sources.Budget{
			Pages:      cfg.Scrape.Pages,
			ItemBudget: cfg.Scrape.EffectiveItemBudget(),
		},
		MaxCoursesToSend: cfg.Scrape.MaxCoursesToSend,
		DryRun:           dryRun,
		ReportDir:        cfg.Scrape.ReportDir,
		Output:           out,
	}
}

// NewScrapeJob wires adapters, the orchestrator and every configured sink into
// a scrape job. The returned cleanup closes whatever was opened and must be
// called once the job is no longer used.
func NewScrapeJob(ctx context.Context, deps CommandDeps, opts job.Options) (*job.Scrape, func(), error) {
	if err := deps.Validate(); err != nil {
		return nil, nil, err
	}
	cfg, log := deps.Config, deps.Logger

	adapters, err := registry.Build(cfg.Scrape, log)
	if err != nil {
		return nil, nil, fmt.Errorf("build adapters: %w", err)
	}

	var (
		closers []io.Closer
		extras  []job.Option
	)
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if closeErr := closers[i].Close(); closeErr != nil {
				log.Warn("Failed to close resource", logger.Error(closeErr))
			}
		}
	}

	if cfg.Database.Enabled() {
		store, closer, dbErr := newCourseStore(ctx, cfg.Database)
		if dbErr != nil {
			cleanup()
			return nil, nil, dbErr
		}
		closers = append(closers, closer)
		extras = append(extras, job.WithStore(store))
		log.Info("Course store enabled", logger.String("host", cfg.Database.Host))
	}

	if cfg.Elasticsearch.Enabled() {
		indexer, esErr := newReportIndexer(ctx, cfg.Elasticsearch, log)
		if esErr != nil {
			cleanup()
			return nil, nil, esErr
		}
		extras = append(extras, job.WithIndexer(indexer))
		log.Info("Report indexing enabled", logger.String("index", cfg.Elasticsearch.IndexName))
	}

	if cfg.Redis.Enabled() {
		client, redisErr := publisher.NewClient(cfg.Redis)
		if redisErr != nil {
			cleanup()
			return nil, nil, fmt.Errorf("connect redis: %w", redisErr)
		}
		closers = append(closers, client)
		extras = append(extras, job.WithPublisher(publisher.NewRedisPublisher(client, cfg.Redis.Channel, log)))
		log.Info("Course publishing enabled", logger.String("channel", cfg.Redis.Channel))
	}

	runner := orchestrator.New(adapters, log)
	return job.New(runner, opts, log, extras...), cleanup, nil
}

func newCourseStore(ctx context.Context, cfg config.DatabaseConfig) (*database.CourseRepository, io.Closer, error) {
	db, err := database.NewPostgresConnection(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}

	if err = database.EnsureSchema(ctx, db); err != nil {
		return nil, nil, errors.Join(fmt.Errorf("ensure schema: %w", err), db.Close())
	}

	return database.NewCourseRepository(db), db, nil
}

func newReportIndexer(ctx context.Context, cfg config.ElasticsearchConfig, log logger.Logger) (*storage.ReportIndexer, error) {
	client, err := storage.NewClient(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("connect elasticsearch: %w", err)
	}

	indexer := storage.NewReportIndexer(client, cfg.IndexName, log)
	if err = indexer.EnsureIndex(ctx); err != nil {
		return nil, fmt.Errorf("ensure report index: %w", err)
	}

	return indexer, nil
}
