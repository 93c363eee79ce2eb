package offset

import "github.com/mastercactapus/idexcal/coord"

// Motion performs blocking moves. Feeds are in mm/min.
type Motion interface {
	MoveTo(p coord.Point, feed float64) error
	MoveToAxis(a coord.Axis, v, feed float64) error

	// Drain blocks until all queued moves have finished.
	Drain() error
}

// Endstops arms and disarms trigger detection for one axis.
type Endstops interface {
	Arm(a coord.Axis) error
	Disarm(a coord.Axis) error

	// ClearHit acknowledges an intentional trigger so it is not reported as a fault.
	ClearHit() error
}

// Positioner reconciles the logical position after a truncated move.
type Positioner interface {
	SyncFromSteppers() (coord.Point, error)
	SyncPlanner(p coord.Point) error
}

// Toolchanger selects the active toolhead.
type Toolchanger interface {
	SelectTool(index int) error
}

// Modes reads and writes the mode flags saved around a run.
type Modes interface {
	State() (State, error)
	SetDuplication(on bool) error
	SetLeveling(on bool) error
}

// Homer establishes the machine reference frame.
type Homer interface {
	Home() error
	Homed() bool
}

// Probe is what a single measurement needs.
type Probe interface {
	Motion
	Endstops
	Positioner
}

// Printer is everything a full calibration run drives.
type Printer interface {
	Probe
	Toolchanger
	Modes
	Homer
}

// State is the printer state saved before a run and restored after it.
type State struct {
	Tool        int  `json:"tool"`
	Duplication bool `json:"duplication"`
	Leveling    bool `json:"leveling"`
}
