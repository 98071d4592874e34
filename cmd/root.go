// Package cmd implements the command-line interface for the coupon crawler.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jonesrussell/coupon-crawler/cmd/httpd"
	"github.com/jonesrussell/coupon-crawler/cmd/schedule"
	"github.com/jonesrussell/coupon-crawler/cmd/scrape"
	"github.com/jonesrussell/coupon-crawler/internal/config"
)

// Version is set at build time with -ldflags "-X .../cmd.Version=...".
var Version = "dev"

var (
	// cfgFile holds the path to the configuration file.
	cfgFile string

	// Debug enables debug logging for all commands
	Debug bool

	rootCmd = &cobra.Command{
		Use:   "coupon-crawler",
		Short: "Collects free course coupons from several listing sites",
		Long: `coupon-crawler scrapes free course listings from several third-party sites,
extracts and validates their coupon codes, removes duplicates and hands the new
courses to storage and downstream senders.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command
func Execute() error {
	_ = godotenv.Load()

	// Parse flags early so --config and --debug apply before config is read
	_ = rootCmd.ParseFlags(os.Args[1:])

	if err := initConfig(); err != nil {
		return fmt.Errorf("failed to initialize configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is ./config.yaml or ./config/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&Debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "coupon-crawler version %s\n", Version)
		},
	})

	rootCmd.AddCommand(scrape.Command())
	rootCmd.AddCommand(schedule.Command())
	rootCmd.AddCommand(httpd.Command())
}

// initConfig reads in config file and ENV variables if set.
func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
	}

	if err := config.BindEnv(viper.GetViper()); err != nil {
		return err
	}

	config.SetDefaults(viper.GetViper())

	// The config file is optional; defaults and the environment are enough
	if err := viper.ReadInConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Config file not found: %v (using defaults and environment variables)\n", err)
	}

	if err := viper.BindPFlag("app.debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		return fmt.Errorf("failed to bind debug flag: %w", err)
	}

	setupDevelopmentLogging()

	return nil
}

// setupDevelopmentLogging switches to readable console logs in development and
// raises the level when debugging was requested.
func setupDevelopmentLogging() {
	debugFlag := Debug || viper.GetBool("app.debug")

	if debugFlag {
		viper.Set("logger.level", "debug")
	}

	if viper.GetString("app.environment") == "development" {
		viper.Set("logger.development", true)
		viper.Set("logger.enable_color", true)
		viper.Set("logger.encoding", "console")
	}

	Debug = debugFlag
}
