package offset

import (
	"github.com/pkg/errors"

	"github.com/mastercactapus/idexcal/coord"
)

// Feeds are feed rates in mm/min.
type Feeds struct {
	Travel float64 `yaml:"travel" json:"travel"`
	Slow   float64 `yaml:"slow" json:"slow"`
	Fast   float64 `yaml:"fast" json:"fast"`
}

// Geometry is the probing layout for one axis.
type Geometry struct {
	// Start is where each measurement begins.
	Start coord.Point `yaml:"start" json:"start"`

	// Clearance is how far past Start the probing move may travel.
	Clearance float64 `yaml:"clearance" json:"clearance"`

	// ProbeHeight is how far below Start.Z the probing move runs.
	ProbeHeight float64 `yaml:"probeHeight" json:"probeHeight"`

	// SafetyGap is the first backoff from the triggered surface.
	SafetyGap float64 `yaml:"safetyGap" json:"safetyGap"`

	// Width is the sideways dodge around the surface.
	Width float64 `yaml:"width" json:"width"`

	// NozzleWidth is how far the retraction moves past the trigger point once clear.
	NozzleWidth float64 `yaml:"nozzleWidth" json:"nozzleWidth"`

	// Backoff is the final distance short of Start along the probed axis.
	Backoff float64 `yaml:"backoff" json:"backoff"`

	Feeds Feeds `yaml:"feeds" json:"feeds"`
}

// ProbeZ is the height the probing move runs at.
func (g Geometry) ProbeZ() float64 { return g.Start.Z - g.ProbeHeight }

// Target is the nominal end of the probing move along a.
func (g Geometry) Target(a coord.Axis) float64 { return g.Start.Get(a) - g.Clearance }

func (g Geometry) Validate() error {
	switch {
	case g.Clearance <= 0:
		return errors.New("clearance must be positive")
	case g.ProbeHeight < 0:
		return errors.New("probe height must not be negative")
	case g.Feeds.Travel <= 0, g.Feeds.Slow <= 0, g.Feeds.Fast <= 0:
		return errors.New("feed rates must be positive")
	case g.Width <= 0:
		return errors.New("dodge width must be positive")
	}
	return nil
}

// Config is the probing layout for both axes.
type Config struct {
	X Geometry `yaml:"x" json:"x"`
	Y Geometry `yaml:"y" json:"y"`

	// Handoff is where the left toolhead is parked before switching to the right.
	Handoff coord.Point `yaml:"handoff" json:"handoff"`
}

// Geometry returns the layout for a.
func (c Config) Geometry(a coord.Axis) (Geometry, error) {
	switch a {
	case coord.X:
		return c.X, nil
	case coord.Y:
		return c.Y, nil
	}
	return Geometry{}, ErrInvalidAxis
}

func (c Config) Validate() error {
	if err := c.X.Validate(); err != nil {
		return errors.Wrap(err, "x")
	}
	if err := c.Y.Validate(); err != nil {
		return errors.Wrap(err, "y")
	}
	return nil
}

// DefaultConfig returns the stock layout. The retraction dimensions are the
// stock G429 values; start points suit a 300x300 bed with the probe block
// near the front left corner.
func DefaultConfig() Config {
	feeds := Feeds{Travel: 6000, Slow: 60, Fast: 1200}
	return Config{
		X: Geometry{
			Start:       coord.Point{X: 60, Y: 20, Z: 15},
			Clearance:   30,
			ProbeHeight: 10,
			SafetyGap:   1,
			Width:       30,
			NozzleWidth: 15,
			Backoff:     25,
			Feeds:       feeds,
		},
		Y: Geometry{
			Start:       coord.Point{X: 20, Y: 60, Z: 15},
			Clearance:   30,
			ProbeHeight: 10,
			SafetyGap:   1,
			Width:       30,
			NozzleWidth: 15,
			Backoff:     25,
			Feeds:       feeds,
		},
		Handoff: coord.Point{X: 150, Y: 20, Z: 15},
	}
}
