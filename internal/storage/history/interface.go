// internal/storage/history/interface.go
package history

import (
	"context"
	"time"

	"github.com/newthinker/datacheck/internal/availability"
)

// Record is the summary of one finished availability run.
type Record struct {
	ID        int64                `json:"id"`
	Source    string               `json:"source"`
	Mode      string               `json:"mode"`
	From      time.Time            `json:"from"`
	To        time.Time            `json:"to"`
	Summary   availability.Summary `json:"summary"`
	CheckedAt time.Time            `json:"checked_at"`
}

// Store defines the interface for run history persistence.
type Store interface {
	// Save persists a record and assigns its ID.
	Save(ctx context.Context, rec *Record) error

	// List returns records matching the filter, newest first.
	List(ctx context.Context, filter ListFilter) ([]Record, error)

	// Close releases the store.
	Close() error
}

// ListFilter defines criteria for listing records.
type ListFilter struct {
	Source string
	Mode   string
	Since  time.Time
	Limit  int
}

func (f ListFilter) matches(rec Record) bool {
	if f.Source != "" && rec.Source != f.Source {
		return false
	}
	if f.Mode != "" && rec.Mode != f.Mode {
		return false
	}
	if !f.Since.IsZero() && rec.CheckedAt.Before(f.Since) {
		return false
	}
	return true
}
