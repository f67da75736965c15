package notifier

import (
	"context"
	"time"

	"github.com/newthinker/datacheck/internal/availability"
)

// Config holds notifier configuration
type Config struct {
	Type   string         `mapstructure:"type"`
	Params map[string]any `mapstructure:"params"`
}

// GapReport describes the missing and corrupt timestamps of one check.
type GapReport struct {
	Source      string               `json:"source"`
	From        time.Time            `json:"from"`
	To          time.Time            `json:"to"`
	Summary     availability.Summary `json:"summary"`
	Missing     []time.Time          `json:"missing"`
	Corrupt     []time.Time          `json:"corrupt"`
	GeneratedAt time.Time            `json:"generated_at"`
}

// Notifier defines the interface for gap notification
type Notifier interface {
	// Name returns the unique identifier for this notifier
	Name() string

	// Init initializes the notifier with configuration
	Init(cfg Config) error

	// Send delivers a gap report
	Send(ctx context.Context, report GapReport) error
}
