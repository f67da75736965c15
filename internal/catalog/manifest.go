package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/newthinker/datacheck/internal/availability"
	"github.com/newthinker/datacheck/internal/core"
)

// LoadManifest reads a "date,path" CSV. Lines starting with # are ignored
// and a leading "date" or "time" header row is skipped. Dates use layout,
// or YYYY-MM-DD / RFC3339 when layout is empty.
func LoadManifest(r io.Reader, layout string) (availability.Catalog[time.Time], error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var catalog availability.Catalog[time.Time]
	first := true
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, core.WrapError(core.ErrCatalogInvalid, err)
		}
		line, _ := cr.FieldPos(0)

		if first {
			first = false
			head := strings.ToLower(strings.TrimSpace(record[0]))
			if head == "date" || head == "time" {
				continue
			}
		}

		if len(record) != 2 {
			return nil, core.Errorf(core.ErrCatalogInvalid,
				"line %d: expected 2 columns (date,path), got %d", line, len(record))
		}

		t, err := parseManifestDate(strings.TrimSpace(record[0]), layout)
		if err != nil {
			return nil, core.Errorf(core.ErrCatalogInvalid, "line %d: %v", line, err)
		}
		catalog = append(catalog, availability.Entry[time.Time]{
			Time: t,
			Path: strings.TrimSpace(record[1]),
		})
	}
	return catalog, nil
}

// LoadManifestFile opens path and reads it with LoadManifest.
func LoadManifestFile(path, layout string) (availability.Catalog[time.Time], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening manifest: %w", err)
	}
	defer f.Close()
	return LoadManifest(f, layout)
}

func parseManifestDate(s, layout string) (time.Time, error) {
	if layout == "" {
		return core.ParseDate(s)
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q for layout %q", s, layout)
	}
	return core.NormalizeTime(t), nil
}
