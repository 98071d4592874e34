// Package schedule implements the periodic scrape command.
package schedule

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	cmdcommon "github.com/jonesrussell/coupon-crawler/cmd/common"
	"github.com/jonesrussell/coupon-crawler/cmd/scrape"
	"github.com/jonesrussell/coupon-crawler/internal/api"
	"github.com/jonesrussell/coupon-crawler/internal/job"
	"github.com/jonesrussell/coupon-crawler/internal/logger"
	"github.com/jonesrussell/coupon-crawler/internal/scheduler"
)

var iterations int

// Command returns the schedule command.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the scrape job on a cron schedule",
		Long: `Run the scrape job on a cron schedule until interrupted.

Runs never overlap: a tick that fires while a run is still going is skipped.`,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := viper.BindPFlag("schedule.spec", cmd.Flags().Lookup("cron")); err != nil {
				return fmt.Errorf("failed to bind cron flag: %w", err)
			}
			if err := viper.BindPFlag("schedule.run_on_start", cmd.Flags().Lookup("run-on-start")); err != nil {
				return fmt.Errorf("failed to bind run-on-start flag: %w", err)
			}
			return scrape.BindFlags(cmd)
		},
		RunE: runSchedule,
	}

	cmd.Flags().String("cron", "", "cron spec or descriptor such as @every 6h")
	cmd.Flags().Bool("run-on-start", false, "run once immediately before waiting for the first tick")
	cmd.Flags().IntVar(&iterations, "iterations", 0, "stop after this many runs (0 runs until interrupted)")
	cmd.Flags().Int("pages", 0, "listing pages to fetch per source")
	cmd.Flags().Bool("fast", false, "cap the items each source processes")
	cmd.Flags().Int("item-budget", 0, "items per source in fast mode")

	return cmd
}

func runSchedule(cmd *cobra.Command, _ []string) error {
	deps, err := cmdcommon.NewCommandDeps()
	if err != nil {
		return err
	}
	defer func() { _ = deps.Logger.Sync() }()

	ctx := cmd.Context()

	scrapeJob, cleanup, err := cmdcommon.NewScrapeJob(ctx, deps, cmdcommon.JobOptions(deps.Config, false, os.Stdout))
	if err != nil {
		return err
	}
	defer cleanup()

	sched, err := scheduler.New(
		deps.Config.Schedule.Spec,
		Task(scrapeJob, deps.Logger, nil),
		scheduler.Options{RunOnStart: deps.Config.Schedule.RunOnStart, Iterations: iterations},
		deps.Logger,
	)
	if err != nil {
		return err
	}

	deps.Logger.Info("Next scheduled run",
		logger.String("spec", deps.Config.Schedule.Spec),
		logger.Time("next_run", sched.Next()),
	)

	return sched.Run(ctx)
}

// Task adapts a job executor to a scheduler task. When record is not nil every
// outcome is handed to it.
func Task(exec api.Executor, log logger.Logger, record func(job.Outcome, error)) scheduler.Task {
	return func(ctx context.Context) error {
		outcome, err := exec.Execute(ctx)
		if record != nil {
			record(outcome, err)
		}
		log.Info("Scheduled scrape finished",
			logger.String("run_id", outcome.Run.RunID),
			logger.Int("new_courses", len(outcome.New)),
			logger.Int("published", outcome.Published),
		)
		return err
	}
}
