// Package common holds the dependencies shared by every subcommand.
package common

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/jonesrussell/coupon-crawler/internal/config"
	"github.com/jonesrussell/coupon-crawler/internal/logger"
)

// CommandDeps holds the dependencies every command needs.
type CommandDeps struct {
	Logger logger.Logger
	Config *config.Config
}

// Validate ensures all required dependencies are present.
func (d CommandDeps) Validate() error {
	if d.Logger == nil {
		return ErrLoggerRequired
	}
	if d.Config == nil {
		return ErrConfigRequired
	}
	return nil
}

// NewCommandDeps loads configuration from the global viper instance and builds
// the logger from it.
func NewCommandDeps() (CommandDeps, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return CommandDeps{}, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(cfg.Logger)
	if err != nil {
		return CommandDeps{}, fmt.Errorf("failed to create logger: %w", err)
	}

	deps := CommandDeps{Logger: log, Config: cfg}
	if err = deps.Validate(); err != nil {
		return CommandDeps{}, err
	}

	return deps, nil
}
