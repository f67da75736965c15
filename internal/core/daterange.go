package core

import (
	"strconv"
	"strings"
	"time"
)

// MaxRangeLength bounds the number of timestamps DateRange will produce.
const MaxRangeLength = 1_000_000

// ParseStep parses a range step. A "d" suffix means days ("1d", "7d");
// anything else goes through time.ParseDuration ("6h", "30m").
func ParseStep(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	var step time.Duration
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, Errorf(ErrRangeInvalid, "invalid step %q", s)
		}
		step = time.Duration(n) * 24 * time.Hour
	} else {
		d, err := time.ParseDuration(s)
		if err != nil {
			return 0, Errorf(ErrRangeInvalid, "invalid step %q", s)
		}
		step = d
	}
	if step <= 0 {
		return 0, Errorf(ErrRangeInvalid, "step must be positive, got %q", s)
	}
	return step, nil
}

// DateRange returns from, from+step, ... up to and including to.
func DateRange(from, to time.Time, step time.Duration) ([]time.Time, error) {
	if step <= 0 {
		return nil, Errorf(ErrRangeInvalid, "step must be positive, got %s", step)
	}
	if to.Before(from) {
		return nil, Errorf(ErrRangeInvalid, "end %s is before start %s",
			to.Format(time.RFC3339), from.Format(time.RFC3339))
	}

	n := int64(to.Sub(from)/step) + 1
	if n > MaxRangeLength {
		return nil, Errorf(ErrRangeInvalid, "range has %d steps, limit is %d", n, MaxRangeLength)
	}

	from = NormalizeTime(from)
	out := make([]time.Time, 0, n)
	for i := int64(0); i < n; i++ {
		out = append(out, from.Add(time.Duration(i)*step))
	}
	return out, nil
}
