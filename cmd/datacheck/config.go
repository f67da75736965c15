package main

import (
	"fmt"

	"github.com/newthinker/datacheck/internal/config"
	"go.uber.org/zap"
)

// loadConfig reads --config, or falls back to defaults, and validates it.
func loadConfig(log *zap.Logger) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)

	if cfgFile != "" {
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	} else {
		cfg = config.Defaults()
		log.Warn("no config file specified, using defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}
