package machine

import "github.com/mastercactapus/idexcal/coord"

// An Adapter represents the minimal line-oriented controller interface.
type Adapter interface {
	// Send writes one line and blocks until the controller acknowledges it,
	// returning any response lines received in between.
	Send(line string) ([]string, error)

	// Hits returns endstop triggers reported since the last ResetHits.
	Hits() []Hit
	ResetHits()
}

// Hit is an endstop trigger reported by the controller.
type Hit struct {
	Axis coord.Axis
	Pos  float64
}
