package availability

import (
	"github.com/newthinker/datacheck/internal/core"
	"github.com/newthinker/datacheck/internal/predicate"
)

// Summary counts statuses over a checked range.
type Summary struct {
	Total     int     `json:"total"`
	Available int     `json:"available"`
	Missing   int     `json:"missing"`
	Corrupt   int     `json:"corrupt"`
	Coverage  float64 `json:"coverage"`
}

// HasGaps reports whether any slot is missing or corrupt.
func (s Summary) HasGaps() bool {
	return s.Missing > 0 || s.Corrupt > 0
}

// Summarize tallies statuses. Coverage is the available fraction.
func Summarize(statuses []core.Status) Summary {
	s := Summary{
		Total:     len(statuses),
		Available: predicate.Count(predicate.IsValue(statuses, core.StatusAvailable)),
		Missing:   predicate.Count(predicate.IsValue(statuses, core.StatusMissing)),
		Corrupt:   predicate.Count(predicate.IsValue(statuses, core.StatusCorrupt)),
	}
	if s.Total > 0 {
		s.Coverage = float64(s.Available) / float64(s.Total)
	}
	return s
}

// Encode maps statuses onto their numeric codes.
func Encode(statuses []core.Status, codes core.Codes) []float64 {
	out := make([]float64, len(statuses))
	for i, s := range statuses {
		out[i] = codes.Value(s)
	}
	return out
}

// Gaps returns the requested timestamps that are missing and corrupt.
func Gaps[T comparable](requested []T, statuses []core.Status) (missing, corrupt []T) {
	for _, i := range predicate.Indices(predicate.IsValue(statuses, core.StatusMissing)) {
		missing = append(missing, requested[i])
	}
	for _, i := range predicate.Indices(predicate.IsValue(statuses, core.StatusCorrupt)) {
		corrupt = append(corrupt, requested[i])
	}
	return missing, corrupt
}
