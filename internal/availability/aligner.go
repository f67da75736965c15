// Package availability maps a catalog of timestamped files onto a requested
// range of timestamps and classifies each requested timestamp as available,
// missing or corrupt.
//
// Matching is exact equality on the timestamp. When several catalog entries
// share a timestamp the first one in catalog order is used. A file that
// cannot be stat'ed is treated as having size zero, so one bad file never
// aborts a scan of a long range.
package availability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/newthinker/datacheck/internal/core"
	"go.uber.org/zap"
)

// Check modes reported to the Recorder.
const (
	ModeCheck = "check"
	ModeAlign = "align"
	ModeDates = "dates"
)

// Options controls size validation and parallelism.
type Options struct {
	// MinFileSize is the exclusive lower bound on a valid file's size.
	MinFileSize int64
	// EnforceMinSize makes Align apply the size check. Check always does.
	EnforceMinSize bool
	// Workers bounds concurrent size lookups. 0 or 1 runs sequentially.
	Workers int
}

// Validate checks option bounds.
func (o Options) Validate() error {
	if o.MinFileSize < 0 {
		return core.Errorf(core.ErrConfigInvalid, "min file size cannot be negative, got %d", o.MinFileSize)
	}
	if o.Workers < 0 {
		return core.Errorf(core.ErrConfigInvalid, "workers cannot be negative, got %d", o.Workers)
	}
	return nil
}

// Slot is the alignment result for one requested timestamp. Path and Time
// are zero unless Status is StatusAvailable.
type Slot[T comparable] struct {
	Time   T           `json:"time"`
	Path   string      `json:"path,omitempty"`
	Status core.Status `json:"status"`
}

// Alignment holds one slot per requested timestamp.
type Alignment[T comparable] struct {
	Slots []Slot[T]
}

// Paths returns the matched paths, empty where nothing usable matched.
func (a Alignment[T]) Paths() []string {
	out := make([]string, len(a.Slots))
	for i, s := range a.Slots {
		out[i] = s.Path
	}
	return out
}

// Times returns the matched timestamps, zero where nothing usable matched.
func (a Alignment[T]) Times() []T {
	out := make([]T, len(a.Slots))
	for i, s := range a.Slots {
		out[i] = s.Time
	}
	return out
}

// Statuses returns the per-slot statuses.
func (a Alignment[T]) Statuses() []core.Status {
	out := make([]core.Status, len(a.Slots))
	for i, s := range a.Slots {
		out[i] = s.Status
	}
	return out
}

// Aligner classifies requested timestamps against a catalog.
type Aligner[T comparable] struct {
	sizer    Sizer
	opts     Options
	logger   *zap.Logger
	recorder Recorder
}

// NewAligner creates an aligner. A nil sizer stats the local filesystem.
func NewAligner[T comparable](sizer Sizer, opts Options, logger *zap.Logger) (*Aligner[T], error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if sizer == nil {
		sizer = OSSizer{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aligner[T]{
		sizer:    sizer,
		opts:     opts,
		logger:   logger,
		recorder: nopRecorder{},
	}, nil
}

// SetRecorder installs a telemetry sink.
func (a *Aligner[T]) SetRecorder(r Recorder) {
	if r == nil {
		r = nopRecorder{}
	}
	a.recorder = r
}

// Options returns the aligner's options.
func (a *Aligner[T]) Options() Options {
	return a.opts
}

// Check returns one status per requested timestamp: Missing when the
// catalog has no entry, Available when the first entry's file is larger
// than MinFileSize, Corrupt otherwise.
func (a *Aligner[T]) Check(ctx context.Context, catalog Catalog[T], requested []T) ([]core.Status, error) {
	start := time.Now()
	matches := a.match(catalog, requested)

	statuses := make([]core.Status, len(requested))
	err := a.forEach(ctx, len(requested), func(ctx context.Context, i int) {
		pos := matches[i]
		switch {
		case pos < 0:
			statuses[i] = core.StatusMissing
		case a.sizeOK(ctx, catalog[pos].Path):
			statuses[i] = core.StatusAvailable
		default:
			statuses[i] = core.StatusCorrupt
		}
	})
	if err != nil {
		return nil, fmt.Errorf("checking availability: %w", err)
	}

	a.recorder.RecordCheck(ModeCheck, statuses, time.Since(start).Seconds())
	return statuses, nil
}

// Align returns the matched file and timestamp per requested timestamp.
// Without EnforceMinSize any catalog match is accepted and no file is
// touched. With it, matches whose file fails the size check become Corrupt
// slots with zero Path and Time.
func (a *Aligner[T]) Align(ctx context.Context, catalog Catalog[T], requested []T) (Alignment[T], error) {
	start := time.Now()
	matches := a.match(catalog, requested)

	slots := make([]Slot[T], len(requested))
	fill := func(ctx context.Context, i int) {
		pos := matches[i]
		switch {
		case pos < 0:
			slots[i] = Slot[T]{Status: core.StatusMissing}
		case !a.opts.EnforceMinSize || a.sizeOK(ctx, catalog[pos].Path):
			slots[i] = Slot[T]{Time: requested[i], Path: catalog[pos].Path, Status: core.StatusAvailable}
		default:
			slots[i] = Slot[T]{Status: core.StatusCorrupt}
		}
	}

	var err error
	if a.opts.EnforceMinSize {
		err = a.forEach(ctx, len(requested), fill)
	} else {
		err = sequential(ctx, len(requested), fill)
	}
	if err != nil {
		return Alignment[T]{}, fmt.Errorf("aligning files: %w", err)
	}

	result := Alignment[T]{Slots: slots}
	a.recorder.RecordCheck(ModeAlign, result.Statuses(), time.Since(start).Seconds())
	return result, nil
}

func (a *Aligner[T]) match(catalog Catalog[T], requested []T) []int {
	matches, dups := catalog.matches(requested)
	if dups > 0 {
		a.logger.Debug("catalog has duplicate timestamps, using first match",
			zap.Int("duplicates", dups),
			zap.Int("entries", len(catalog)),
		)
	}
	return matches
}

func (a *Aligner[T]) sizeOK(ctx context.Context, path string) bool {
	size, err := a.sizer.Size(ctx, path)
	if err != nil {
		a.logger.Debug("size lookup failed, treating as empty",
			zap.String("path", path),
			zap.Error(err),
		)
		a.recorder.RecordSizeLookup("error")
		size = 0
	} else {
		a.recorder.RecordSizeLookup("ok")
	}
	return size > a.opts.MinFileSize
}

// forEach runs fn for 0..n-1, concurrently when Workers > 1. fn must only
// write to index-owned state.
func (a *Aligner[T]) forEach(ctx context.Context, n int, fn func(context.Context, int)) error {
	if a.opts.Workers <= 1 || n < 2 {
		return sequential(ctx, n, fn)
	}

	workers := min(a.opts.Workers, n)
	jobs := make(chan int)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				fn(ctx, i)
			}
		}()
	}

feed:
	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	return ctx.Err()
}

func sequential(ctx context.Context, n int, fn func(context.Context, int)) error {
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		fn(ctx, i)
	}
	return ctx.Err()
}

// CheckDates classifies requested timestamps by catalog membership alone:
// Available when present, Missing otherwise. No files are touched.
func CheckDates[T comparable](catalog Catalog[T], requested []T) []core.Status {
	idx, _ := catalog.index()
	out := make([]core.Status, len(requested))
	for i, t := range requested {
		if _, ok := idx[t]; ok {
			out[i] = core.StatusAvailable
		}
	}
	return out
}
