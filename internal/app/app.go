package app

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/newthinker/datacheck/internal/availability"
	"github.com/newthinker/datacheck/internal/catalog"
	"github.com/newthinker/datacheck/internal/config"
	"github.com/newthinker/datacheck/internal/core"
	"github.com/newthinker/datacheck/internal/metrics"
	"github.com/newthinker/datacheck/internal/notifier"
	"github.com/newthinker/datacheck/internal/notifier/webhook"
	"github.com/newthinker/datacheck/internal/router"
	"github.com/newthinker/datacheck/internal/storage/archive"
	"github.com/newthinker/datacheck/internal/storage/history"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Request describes one availability check. Zero-valued overrides fall
// back to the configuration.
type Request struct {
	From           time.Time
	To             time.Time
	Step           time.Duration
	Prefix         string
	MinFileSize    *int64
	EnforceMinSize *bool
}

// Result is the outcome of a check or alignment.
type Result struct {
	Source    string                         `json:"source"`
	Requested []time.Time                    `json:"requested"`
	Statuses  []core.Status                  `json:"statuses"`
	Codes     []float64                      `json:"codes"`
	Slots     []availability.Slot[time.Time] `json:"slots,omitempty"`
	Summary   availability.Summary           `json:"summary"`
}

// App wires storage, catalog loading, the aligner and notifiers together.
type App struct {
	cfg       *config.Config
	logger    *zap.Logger
	source    archive.Source
	metrics   *metrics.Registry
	notifiers *notifier.Registry
	router    *router.Router
	history   history.Store

	mu       sync.RWMutex
	lastRun  time.Time
	lastSumm availability.Summary
}

// New opens the configured storage backend and builds an App.
func New(cfg *config.Config, logger *zap.Logger, reg *metrics.Registry) (*App, error) {
	source, err := archive.Open(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}
	return NewWithSource(cfg, source, logger, reg)
}

// NewWithSource builds an App over an already opened backend.
func NewWithSource(cfg *config.Config, source archive.Source, logger *zap.Logger, reg *metrics.Registry) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	notifiers := notifier.NewRegistry()
	for name, nc := range cfg.Notifiers {
		if !nc.Enabled {
			continue
		}
		n, err := buildNotifier(name, nc)
		if err != nil {
			return nil, err
		}
		if err := notifiers.Register(n); err != nil {
			return nil, err
		}
	}

	hist, err := history.Open(context.Background(), cfg.History)
	if err != nil {
		return nil, fmt.Errorf("opening history: %w", err)
	}

	return &App{
		cfg:       cfg,
		logger:    logger,
		source:    source,
		metrics:   reg,
		notifiers: notifiers,
		router:    router.New(cfg.Routing, notifiers, logger),
		history:   hist,
	}, nil
}

// Close releases the history store.
func (a *App) Close() error {
	if a.history == nil {
		return nil
	}
	return a.history.Close()
}

func buildNotifier(name string, nc config.NotifierConfig) (notifier.Notifier, error) {
	switch name {
	case "webhook":
		w := webhook.New(nc.URL, nc.Headers)
		err := w.Init(notifier.Config{
			Type: name,
			Params: map[string]any{
				"url":     nc.URL,
				"headers": nc.Headers,
				"timeout": nc.Timeout,
			},
		})
		if err != nil {
			return nil, err
		}
		return w, nil
	default:
		return nil, core.Errorf(core.ErrConfigInvalid, "unknown notifier %q", name)
	}
}

// RegisterNotifier adds a notifier to the app
func (a *App) RegisterNotifier(n notifier.Notifier) error {
	return a.notifiers.Register(n)
}

// Router returns the gap report router.
func (a *App) Router() *router.Router {
	return a.router
}

// Metrics returns the metrics registry, which may be nil.
func (a *App) Metrics() *metrics.Registry {
	return a.metrics
}

// Catalog loads the catalog from the configured manifest, read from disk or
// from the storage backend, or by scanning prefix (the configured prefix
// when empty).
func (a *App) Catalog(ctx context.Context, prefix string) (availability.Catalog[time.Time], error) {
	if prefix == "" {
		prefix = a.cfg.Catalog.Prefix
	}

	var (
		cat availability.Catalog[time.Time]
		err error
	)
	switch {
	case a.cfg.Catalog.Manifest != "" && a.cfg.Catalog.ManifestSource == config.ManifestStorage:
		cat, err = a.storedManifest(ctx)
	case a.cfg.Catalog.Manifest != "":
		cat, err = catalog.LoadManifestFile(a.cfg.Catalog.Manifest, a.cfg.Catalog.DateLayout)
	default:
		lister, ok := a.source.(archive.Lister)
		if !ok {
			return nil, core.Errorf(core.ErrConfigInvalid,
				"storage type %q cannot list files, configure catalog.manifest", a.cfg.Storage.Type)
		}
		var scanner *catalog.Scanner
		scanner, err = catalog.NewScanner(lister, a.cfg.Catalog.Layout, a.logger)
		if err == nil {
			cat, err = scanner.Scan(ctx, prefix)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}

	if a.metrics != nil {
		a.metrics.SetCatalogEntries(len(cat))
	}
	return cat, nil
}

func (a *App) storedManifest(ctx context.Context) (availability.Catalog[time.Time], error) {
	reader, ok := a.source.(archive.Reader)
	if !ok {
		return nil, core.Errorf(core.ErrConfigInvalid,
			"storage type %q cannot read a manifest", a.cfg.Storage.Type)
	}
	data, err := reader.Read(ctx, a.cfg.Catalog.Manifest)
	if err != nil {
		return nil, err
	}
	return catalog.LoadManifest(bytes.NewReader(data), a.cfg.Catalog.DateLayout)
}

// Publish stores a rendered report at key on the storage backend.
func (a *App) Publish(ctx context.Context, key string, data []byte) error {
	writer, ok := a.source.(archive.Writer)
	if !ok {
		return core.Errorf(core.ErrConfigInvalid,
			"storage type %q cannot store reports", a.cfg.Storage.Type)
	}
	if err := writer.Write(ctx, key, data); err != nil {
		return fmt.Errorf("publishing report: %w", err)
	}
	a.logger.Info("report published", zap.String("key", key))
	return nil
}

func (a *App) options(req Request) availability.Options {
	opts := availability.Options{
		MinFileSize:    a.cfg.Check.MinFileSize,
		EnforceMinSize: a.cfg.Check.EnforceMinSize,
		Workers:        a.cfg.Check.Workers,
	}
	if req.MinFileSize != nil {
		opts.MinFileSize = *req.MinFileSize
	}
	if req.EnforceMinSize != nil {
		opts.EnforceMinSize = *req.EnforceMinSize
	}
	return opts
}

func (a *App) aligner(req Request) (*availability.Aligner[time.Time], error) {
	al, err := availability.NewAligner[time.Time](a.source, a.options(req), a.logger)
	if err != nil {
		return nil, err
	}
	if a.metrics != nil {
		al.SetRecorder(a.metrics)
	}
	return al, nil
}

func (a *App) requested(req Request) ([]time.Time, error) {
	step := req.Step
	if step == 0 {
		s, err := core.ParseStep(a.cfg.Check.Step)
		if err != nil {
			return nil, err
		}
		step = s
	}
	return core.DateRange(req.From, req.To, step)
}

// prepare validates the request before any storage access.
func (a *App) prepare(ctx context.Context, req Request) (*availability.Aligner[time.Time], []time.Time, availability.Catalog[time.Time], error) {
	requested, err := a.requested(req)
	if err != nil {
		return nil, nil, nil, err
	}
	al, err := a.aligner(req)
	if err != nil {
		return nil, nil, nil, err
	}
	cat, err := a.Catalog(ctx, req.Prefix)
	if err != nil {
		return nil, nil, nil, err
	}
	return al, requested, cat, nil
}

// Check classifies every timestamp of the requested range.
func (a *App) Check(ctx context.Context, req Request) (*Result, error) {
	al, requested, cat, err := a.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	statuses, err := al.Check(ctx, cat, requested)
	if err != nil {
		return nil, err
	}

	return a.finish(ctx, availability.ModeCheck, req, requested, statuses, nil), nil
}

// Align matches every timestamp of the requested range to a file.
func (a *App) Align(ctx context.Context, req Request) (*Result, error) {
	al, requested, cat, err := a.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	alignment, err := al.Align(ctx, cat, requested)
	if err != nil {
		return nil, err
	}

	return a.finish(ctx, availability.ModeAlign, req, requested, alignment.Statuses(), alignment.Slots), nil
}

// Dates reports catalog membership only. No file is touched.
func (a *App) Dates(ctx context.Context, req Request) (*Result, error) {
	requested, err := a.requested(req)
	if err != nil {
		return nil, err
	}
	cat, err := a.Catalog(ctx, req.Prefix)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	statuses := availability.CheckDates(cat, requested)
	if a.metrics != nil {
		a.metrics.RecordCheck(availability.ModeDates, statuses, time.Since(start).Seconds())
	}
	return a.finish(ctx, availability.ModeDates, req, requested, statuses, nil), nil
}

func (a *App) finish(ctx context.Context, mode string, req Request, requested []time.Time, statuses []core.Status, slots []availability.Slot[time.Time]) *Result {
	res := &Result{
		Source:    a.sourceName(req),
		Requested: requested,
		Statuses:  statuses,
		Codes:     availability.Encode(statuses, a.cfg.Check.Codes),
		Slots:     slots,
		Summary:   availability.Summarize(statuses),
	}

	a.mu.Lock()
	a.lastRun = time.Now()
	a.lastSumm = res.Summary
	a.mu.Unlock()

	a.logger.Info("availability checked",
		zap.String("source", res.Source),
		zap.Int("requested", res.Summary.Total),
		zap.Int("available", res.Summary.Available),
		zap.Int("missing", res.Summary.Missing),
		zap.Int("corrupt", res.Summary.Corrupt),
	)

	a.record(ctx, mode, res)
	return res
}

// record saves the run to history. Failures are logged, not returned.
func (a *App) record(ctx context.Context, mode string, res *Result) {
	if a.history == nil {
		return
	}
	rec := &history.Record{
		Source:    res.Source,
		Mode:      mode,
		Summary:   res.Summary,
		CheckedAt: time.Now().UTC(),
	}
	if n := len(res.Requested); n > 0 {
		rec.From = res.Requested[0]
		rec.To = res.Requested[n-1]
	}
	if err := a.history.Save(ctx, rec); err != nil {
		a.logger.Warn("failed to save run history", zap.Error(err))
	}
}

// History lists past runs, newest first. It returns an empty list when
// history is disabled.
func (a *App) History(ctx context.Context, filter history.ListFilter) ([]history.Record, error) {
	if a.history == nil {
		return []history.Record{}, nil
	}
	return a.history.List(ctx, filter)
}

func (a *App) sourceName(req Request) string {
	if a.cfg.Catalog.Manifest != "" {
		return a.cfg.Catalog.Manifest
	}
	if req.Prefix != "" {
		return req.Prefix
	}
	return a.cfg.Catalog.Prefix
}

// Notify routes a gap report for res to the notifiers. Complete ranges,
// and reports held back by the routing filters, are not sent.
func (a *App) Notify(ctx context.Context, res *Result) error {
	if !res.Summary.HasGaps() || a.notifiers.Len() == 0 {
		return nil
	}

	missing, corrupt := availability.Gaps(res.Requested, res.Statuses)
	report := notifier.GapReport{
		Source:      res.Source,
		Summary:     res.Summary,
		Missing:     missing,
		Corrupt:     corrupt,
		GeneratedAt: time.Now().UTC(),
	}
	if n := len(res.Requested); n > 0 {
		report.From = res.Requested[0]
		report.To = res.Requested[n-1]
	}

	routed := a.router.Route(ctx, report)
	if !routed.Sent {
		return nil
	}

	var errs error
	for _, n := range a.notifiers.GetAll() {
		status := "success"
		if err, failed := routed.Failures[n.Name()]; failed {
			status = "failed"
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", n.Name(), err))
		}
		if a.metrics != nil {
			a.metrics.RecordNotification(n.Name(), status)
		}
	}
	return errs
}

// GetStats returns application statistics
func (a *App) GetStats() map[string]any {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return map[string]any{
		"storage":      a.cfg.Storage.Type,
		"notifiers":    a.notifiers.Len(),
		"routing":      a.router.GetStats(),
		"history":      a.cfg.History.Type,
		"last_run":     a.lastRun,
		"last_summary": a.lastSumm,
	}
}
