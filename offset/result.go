package offset

import (
	"time"

	"github.com/mastercactapus/idexcal/coord"
)

// Result is the outcome of one calibration run.
type Result struct {
	RunID string     `json:"runId"`
	Axis  coord.Axis `json:"axis"`
	Count int        `json:"count"`

	// Left and Right are the combined readings of tool 0 and tool 1.
	Left  float64 `json:"left"`
	Right float64 `json:"right"`

	// Offset is Left - Right.
	Offset float64 `json:"offset"`

	LeftSamples  []float64 `json:"leftSamples"`
	RightSamples []float64 `json:"rightSamples"`

	Time time.Time `json:"time"`
}
