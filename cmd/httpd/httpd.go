// Package httpd implements the HTTP API command.
package httpd

import (
	"context"
	"fmt"
	"sync"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	cmdcommon "github.com/jonesrussell/coupon-crawler/cmd/common"
	"github.com/jonesrussell/coupon-crawler/cmd/schedule"
	"github.com/jonesrussell/coupon-crawler/internal/api"
	"github.com/jonesrussell/coupon-crawler/internal/job"
	"github.com/jonesrussell/coupon-crawler/internal/logger"
	"github.com/jonesrussell/coupon-crawler/internal/scheduler"
)

var withSchedule bool

// Command returns the httpd command.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "httpd",
		Short: "Serve the run API",
		Long: `Serve an HTTP API that triggers scrape runs and reports the latest one.

With --schedule the cron scheduler runs in the same process and its runs are
reported through the API as well.`,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := viper.BindPFlag("server.address", cmd.Flags().Lookup("address")); err != nil {
				return fmt.Errorf("failed to bind address flag: %w", err)
			}
			return nil
		},
		RunE: runHTTPD,
	}

	cmd.Flags().String("address", "", "listen address")
	cmd.Flags().BoolVar(&withSchedule, "schedule", false, "also run the cron scheduler")

	return cmd
}

// serialJob keeps API triggered and scheduled runs from overlapping.
type serialJob struct {
	mu  sync.Mutex
	job *job.Scrape
}

func (s *serialJob) Execute(ctx context.Context) (job.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.job.Execute(ctx)
}

func runHTTPD(cmd *cobra.Command, _ []string) error {
	deps, err := cmdcommon.NewCommandDeps()
	if err != nil {
		return err
	}
	defer func() { _ = deps.Logger.Sync() }()

	ctx := cmd.Context()

	scrapeJob, cleanup, err := cmdcommon.NewScrapeJob(ctx, deps, cmdcommon.JobOptions(deps.Config, false, nil))
	if err != nil {
		return err
	}
	defer cleanup()

	exec := &serialJob{job: scrapeJob}
	runs := api.NewRunsHandler(exec)

	var sched *scheduler.Scheduler
	if withSchedule {
		sched, err = scheduler.New(
			deps.Config.Schedule.Spec,
			schedule.Task(exec, deps.Logger, runs.Record),
			scheduler.Options{RunOnStart: deps.Config.Schedule.RunOnStart},
			deps.Logger,
		)
		if err != nil {
			return err
		}
	}

	server := api.NewServer(deps.Config.Server, api.NewRouter(deps.Logger, runs), deps.Logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Run(gctx) })

	if sched != nil {
		deps.Logger.Info("Next scheduled run",
			logger.String("spec", deps.Config.Schedule.Spec),
			logger.Time("next_run", sched.Next()),
		)
		g.Go(func() error { return sched.Run(gctx) })
	}

	return g.Wait()
}
