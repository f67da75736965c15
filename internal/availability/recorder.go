package availability

import "github.com/newthinker/datacheck/internal/core"

// Recorder receives check telemetry. Implementations must be safe for
// concurrent use.
type Recorder interface {
	RecordSizeLookup(result string)
	RecordCheck(mode string, statuses []core.Status, duration float64)
}

type nopRecorder struct{}

func (nopRecorder) RecordSizeLookup(string) {}

func (nopRecorder) RecordCheck(string, []core.Status, float64) {}
