package offset

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/mastercactapus/idexcal/coord"
)

// fakePrinter records calls and stops armed moves at queued trigger positions.
type fakePrinter struct {
	calls []string

	pos   coord.Point
	armed map[coord.Axis]bool
	homed bool
	state State

	// triggers are consumed per tool, in order
	triggers map[int][]float64

	failOn string
}

func newFakePrinter() *fakePrinter {
	return &fakePrinter{
		armed:    make(map[coord.Axis]bool),
		homed:    true,
		triggers: make(map[int][]float64),
	}
}

func (f *fakePrinter) record(format string, args ...interface{}) error {
	call := fmt.Sprintf(format, args...)
	f.calls = append(f.calls, call)
	if f.failOn != "" && call == f.failOn {
		return errors.New("injected failure: " + call)
	}
	return nil
}

func (f *fakePrinter) MoveTo(p coord.Point, feed float64) error {
	f.pos = p
	return f.record("move %g,%g,%g F%g", p.X, p.Y, p.Z, feed)
}

func (f *fakePrinter) MoveToAxis(a coord.Axis, v, feed float64) error {
	if f.armed[a] && len(f.triggers[f.state.Tool]) > 0 {
		v = f.triggers[f.state.Tool][0]
		f.triggers[f.state.Tool] = f.triggers[f.state.Tool][1:]
	}
	f.pos = f.pos.With(a, v)
	return f.record("move %s%g F%g", a, v, feed)
}

func (f *fakePrinter) Drain() error { return f.record("drain") }

func (f *fakePrinter) Arm(a coord.Axis) error {
	f.armed[a] = true
	return f.record("arm %s", a)
}

func (f *fakePrinter) Disarm(a coord.Axis) error {
	f.armed[a] = false
	return f.record("disarm %s", a)
}

func (f *fakePrinter) ClearHit() error { return f.record("clear hit") }

func (f *fakePrinter) SyncFromSteppers() (coord.Point, error) {
	return f.pos, f.record("sync steppers")
}

func (f *fakePrinter) SyncPlanner(p coord.Point) error {
	return f.record("sync planner %g,%g,%g", p.X, p.Y, p.Z)
}

func (f *fakePrinter) SelectTool(index int) error {
	f.state.Tool = index
	return f.record("tool %d", index)
}

func (f *fakePrinter) State() (State, error) { return f.state, nil }

func (f *fakePrinter) SetDuplication(on bool) error {
	f.state.Duplication = on
	return f.record("duplication %t", on)
}

func (f *fakePrinter) SetLeveling(on bool) error {
	f.state.Leveling = on
	return f.record("leveling %t", on)
}

func (f *fakePrinter) Home() error {
	f.homed = true
	return f.record("home")
}

func (f *fakePrinter) Homed() bool { return f.homed }

func (f *fakePrinter) count(call string) int {
	var n int
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}
	return n
}

var _ Printer = &fakePrinter{}
