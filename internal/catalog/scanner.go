// Package catalog builds availability catalogs from storage listings and
// manifest files.
package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/newthinker/datacheck/internal/availability"
	"github.com/newthinker/datacheck/internal/core"
	"github.com/newthinker/datacheck/internal/storage/archive"
	"go.uber.org/zap"
)

// Scanner derives file timestamps from their names. Layout is a strftime
// pattern matched against the trailing path segments, e.g. "era5_%Y%m%d.nc"
// or "%Y/%m/%d/sat.h5". Supported directives are %Y %y %m %d %j %H %M %S.
type Scanner struct {
	lister archive.Lister
	layout string
	names  *fileLayout
	logger *zap.Logger
}

// NewScanner creates a scanner over lister.
func NewScanner(lister archive.Lister, layout string, logger *zap.Logger) (*Scanner, error) {
	if lister == nil {
		return nil, core.Errorf(core.ErrConfigInvalid, "storage backend cannot list files")
	}
	if layout == "" {
		return nil, core.Errorf(core.ErrConfigMissing, "catalog layout is required")
	}
	names, err := compileLayout(layout)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{
		lister: lister,
		layout: layout,
		names:  names,
		logger: logger,
	}, nil
}

// Scan lists prefix and returns one entry per path whose name matches the
// layout, in listing order.
func (s *Scanner) Scan(ctx context.Context, prefix string) (availability.Catalog[time.Time], error) {
	paths, err := s.lister.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("listing %q: %w", prefix, err)
	}

	catalog := make(availability.Catalog[time.Time], 0, len(paths))
	skipped := 0
	for _, p := range paths {
		t, ok := s.parse(p)
		if !ok {
			skipped++
			s.logger.Debug("skipping file that does not match layout",
				zap.String("path", p),
				zap.String("layout", s.layout),
			)
			continue
		}
		catalog = append(catalog, availability.Entry[time.Time]{Time: t, Path: p})
	}

	s.logger.Info("catalog scanned",
		zap.String("prefix", prefix),
		zap.Int("entries", len(catalog)),
		zap.Int("skipped", skipped),
	)
	return catalog, nil
}

func (s *Scanner) parse(p string) (time.Time, bool) {
	segments := strings.Split(strings.Trim(p, "/"), "/")
	if len(segments) < s.names.depth {
		return time.Time{}, false
	}
	return s.names.match(strings.Join(segments[len(segments)-s.names.depth:], "/"))
}
