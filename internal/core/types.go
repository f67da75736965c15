package core

import (
	"fmt"
	"time"
)

// Status classifies a requested timestamp.
type Status int

const (
	StatusMissing Status = iota
	StatusAvailable
	StatusCorrupt
)

// String returns the lower-case status name.
func (s Status) String() string {
	switch s {
	case StatusMissing:
		return "missing"
	case StatusAvailable:
		return "available"
	case StatusCorrupt:
		return "corrupt"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status name.
func (s *Status) UnmarshalText(b []byte) error {
	switch string(b) {
	case "missing":
		*s = StatusMissing
	case "available":
		*s = StatusAvailable
	case "corrupt":
		*s = StatusCorrupt
	default:
		return fmt.Errorf("unknown status %q", b)
	}
	return nil
}

// Codes maps statuses onto caller-chosen numeric values.
type Codes struct {
	Available float64 `mapstructure:"available" json:"available"`
	Missing   float64 `mapstructure:"missing" json:"missing"`
	Corrupt   float64 `mapstructure:"corrupt" json:"corrupt"`
}

// DefaultCodes returns available=1, missing=0, corrupt=2.
func DefaultCodes() Codes {
	return Codes{Available: 1, Missing: 0, Corrupt: 2}
}

// Value returns the numeric code for s.
func (c Codes) Value(s Status) float64 {
	switch s {
	case StatusAvailable:
		return c.Available
	case StatusCorrupt:
		return c.Corrupt
	default:
		return c.Missing
	}
}

// Distinct reports whether the three codes differ from each other.
func (c Codes) Distinct() bool {
	return c.Available != c.Missing && c.Available != c.Corrupt && c.Missing != c.Corrupt
}

// NormalizeTime converts t to UTC and strips the monotonic reading so that
// equal instants compare equal with ==.
func NormalizeTime(t time.Time) time.Time {
	return t.UTC().Round(0)
}

// ParseDate accepts "2006-01-02" or RFC3339 and returns a normalized time.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return NormalizeTime(t), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD or RFC3339)", s)
	}
	return NormalizeTime(t), nil
}
