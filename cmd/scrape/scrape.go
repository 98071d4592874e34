// Package scrape implements the one-shot scrape command.
package scrape

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	cmdcommon "github.com/jonesrussell/coupon-crawler/cmd/common"
	"github.com/jonesrussell/coupon-crawler/internal/logger"
)

var dryRun bool

// flagBindings maps flag names to config keys.
var flagBindings = map[string]string{
	"pages":       "scrape.pages",
	"fast":        "scrape.fast_mode",
	"item-budget": "scrape.item_budget",
	"max-send":    "scrape.max_courses_to_send",
	"report-dir":  "scrape.report_dir",
	"sources":     "scrape.sources",
}

// Command returns the scrape command.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Run every enabled source once and report the new courses",
		Long: `Run every enabled source once in priority order, print the run report and
hand the new courses to the configured store and publisher.

With --dry-run nothing is saved, published or indexed.`,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return BindFlags(cmd)
		},
		RunE: runScrape,
	}

	cmd.Flags().Int("pages", 0, "listing pages to fetch per source")
	cmd.Flags().Bool("fast", false, "cap the items each source processes")
	cmd.Flags().Int("item-budget", 0, "items per source in fast mode")
	cmd.Flags().Int("max-send", 0, "maximum new courses to deliver")
	cmd.Flags().String("report-dir", "", "directory for JSON and CSV reports")
	cmd.Flags().StringSlice("sources", nil, "sources to run in priority order")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "scrape and report without delivering")

	return cmd
}

// BindFlags binds the scrape flags of cmd onto their config keys.
func BindFlags(cmd *cobra.Command) error {
	for name, key := range flagBindings {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			continue
		}
		if err := viper.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("failed to bind %s flag: %w", name, err)
		}
	}
	return nil
}

func runScrape(cmd *cobra.Command, _ []string) error {
	deps, err := cmdcommon.NewCommandDeps()
	if err != nil {
		return err
	}
	defer func() { _ = deps.Logger.Sync() }()

	ctx := cmd.Context()

	scrapeJob, cleanup, err := cmdcommon.NewScrapeJob(ctx, deps, cmdcommon.JobOptions(deps.Config, dryRun, os.Stdout))
	if err != nil {
		return err
	}
	defer cleanup()

	outcome, err := scrapeJob.Execute(ctx)

	deps.Logger.Info("Scrape finished",
		logger.String("run_id", outcome.Run.RunID),
		logger.Int("new_courses", len(outcome.New)),
		logger.Int("saved", len(outcome.Saved)),
		logger.Int("published", outcome.Published),
		logger.Bool("dry_run", dryRun),
	)
	if outcome.Files.JSON != "" {
		deps.Logger.Info("Reports written",
			logger.String("json", outcome.Files.JSON),
			logger.String("courses", outcome.Files.Courses),
			logger.String("skipped", outcome.Files.Skipped),
		)
	}

	return err
}
