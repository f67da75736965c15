// Package router decides which gap reports reach the notifiers.
package router

import (
	"context"
	"sync"
	"time"

	"github.com/newthinker/datacheck/internal/notifier"
	"go.uber.org/zap"
)

// Config holds router configuration
type Config struct {
	// MinGaps is the number of missing plus corrupt dates a report needs
	// before it is sent.
	MinGaps int `mapstructure:"min_gaps"`
	// MaxCoverage suppresses reports whose coverage is above it. Zero
	// disables the check.
	MaxCoverage      float64       `mapstructure:"max_coverage"`
	CooldownDuration time.Duration `mapstructure:"cooldown_duration"`
}

// DefaultConfig returns default router configuration
func DefaultConfig() Config {
	return Config{
		MinGaps:          1,
		CooldownDuration: 1 * time.Hour,
	}
}

// Result describes what happened to a routed report.
type Result struct {
	Sent     bool
	Failures map[string]error
}

// Router routes gap reports to notifiers with filtering
type Router struct {
	cfg       Config
	registry  *notifier.Registry
	logger    *zap.Logger
	cooldowns map[string]time.Time // source -> last report time
	now       func() time.Time
	mu        sync.RWMutex
}

// New creates a new gap report router
func New(cfg Config, registry *notifier.Registry, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		cfg:       cfg,
		registry:  registry,
		logger:    logger,
		cooldowns: make(map[string]time.Time),
		now:       time.Now,
	}
}

// Route sends report to every notifier unless a filter holds it back.
func (r *Router) Route(ctx context.Context, report notifier.GapReport) Result {
	if !r.passesFilters(report) {
		r.logger.Debug("gap report filtered out",
			zap.String("source", report.Source),
			zap.Int("missing", report.Summary.Missing),
			zap.Int("corrupt", report.Summary.Corrupt),
			zap.Float64("coverage", report.Summary.Coverage),
		)
		return Result{}
	}

	r.mu.Lock()
	r.cooldowns[report.Source] = r.now()
	r.mu.Unlock()

	// nil registry is allowed
	if r.registry == nil {
		return Result{Sent: true}
	}
	failures := r.registry.NotifyAll(ctx, report)

	for name, err := range failures {
		r.logger.Error("notifier failed",
			zap.String("notifier", name),
			zap.Error(err),
		)
	}

	r.logger.Info("gap report routed",
		zap.String("source", report.Source),
		zap.Int("notifiers", r.registry.Len()),
		zap.Int("errors", len(failures)),
	)

	return Result{Sent: true, Failures: failures}
}

// passesFilters checks if a report passes all configured filters
func (r *Router) passesFilters(report notifier.GapReport) bool {
	gaps := report.Summary.Missing + report.Summary.Corrupt
	if gaps == 0 || gaps < r.cfg.MinGaps {
		return false
	}

	if r.cfg.MaxCoverage > 0 && report.Summary.Coverage > r.cfg.MaxCoverage {
		return false
	}

	r.mu.RLock()
	last, exists := r.cooldowns[report.Source]
	r.mu.RUnlock()

	if exists && r.now().Sub(last) < r.cfg.CooldownDuration {
		return false
	}

	return true
}

// ClearCooldown removes cooldown for a specific source
func (r *Router) ClearCooldown(source string) {
	r.mu.Lock()
	delete(r.cooldowns, source)
	r.mu.Unlock()
}

// ClearAllCooldowns removes all cooldowns
func (r *Router) ClearAllCooldowns() {
	r.mu.Lock()
	r.cooldowns = make(map[string]time.Time)
	r.mu.Unlock()
}

// CleanupExpiredCooldowns removes cooldown entries older than 2x the cooldown duration.
func (r *Router) CleanupExpiredCooldowns() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	expiry := r.cfg.CooldownDuration * 2
	removed := 0

	for source, last := range r.cooldowns {
		if now.Sub(last) > expiry {
			delete(r.cooldowns, source)
			removed++
		}
	}

	return removed
}

// StartCleanupRoutine starts a background goroutine that periodically cleans up expired cooldowns.
func (r *Router) StartCleanupRoutine(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed := r.CleanupExpiredCooldowns()
				if removed > 0 {
					r.logger.Debug("cleaned up expired cooldowns", zap.Int("removed", removed))
				}
			}
		}
	}()
}

// GetStats returns router statistics
func (r *Router) GetStats() map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return map[string]any{
		"cooldowns_active": len(r.cooldowns),
		"min_gaps":         r.cfg.MinGaps,
		"max_coverage":     r.cfg.MaxCoverage,
		"cooldown":         r.cfg.CooldownDuration.String(),
	}
}
