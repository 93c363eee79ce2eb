package machine

import (
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mastercactapus/idexcal/coord"
	"github.com/mastercactapus/idexcal/gcode"
	"github.com/mastercactapus/idexcal/leveling"
	"github.com/mastercactapus/idexcal/offset"
)

// Options configure a Machine.
type Options struct {
	// Mesh enables host-side leveling. Without it leveling is toggled on the
	// controller with M420.
	Mesh        leveling.ZOffsetter
	Granularity float64

	// DualMode is the M605 mode restored when duplication is switched off:
	// 0 full control, 1 auto-park, 3 mirrored. Nil means auto-park, the
	// Marlin default.
	DualMode *int
}

// Machine drives a Marlin-dialect controller and implements offset.Printer.
type Machine struct {
	Adapter

	opt      Options
	dualMode int

	mx          sync.Mutex
	vm          gcode.VM
	homed       bool
	duplication bool
	leveling    bool
	noLeveling  bool

	commands map[gcode.Word]func(gcode.Block) error
}

var _ offset.Printer = &Machine{}

func NewMachine(a Adapter, opt Options) *Machine {
	dual := 1
	if opt.DualMode != nil && *opt.DualMode != 2 {
		dual = *opt.DualMode
	}
	return &Machine{
		Adapter:  a,
		opt:      opt,
		dualMode: dual,
		vm:       *gcode.NewVM(),
		commands: make(map[gcode.Word]func(gcode.Block) error),
	}
}

func (m *Machine) send(blocks ...gcode.Block) ([]string, error) {
	var resp []string
	for _, b := range blocks {
		line := b.String()
		logrus.WithField("line", line).Debug("send")
		lines, err := m.Adapter.Send(line)
		if err != nil {
			return resp, errors.Wrapf(err, "send '%s'", line)
		}
		resp = append(resp, lines...)
	}
	return resp, nil
}

// Pos is the last known logical position.
func (m *Machine) Pos() coord.Point {
	m.mx.Lock()
	defer m.mx.Unlock()
	return m.vm.Pos()
}

func (m *Machine) setPos(p coord.Point) {
	m.mx.Lock()
	m.vm.SetPos(p)
	m.mx.Unlock()
}

func move(p coord.Point, feed float64) gcode.Block {
	return gcode.Block{
		gcode.Linear,
		{W: 'X', Arg: p.X},
		{W: 'Y', Arg: p.Y},
		{W: 'Z', Arg: p.Z},
		{W: 'F', Arg: feed},
	}
}

// modes reports the distance and unit modes the controller is in.
func (m *Machine) modes() (relative, inches bool) {
	m.mx.Lock()
	defer m.mx.Unlock()
	return m.vm.RelativeMotion(), m.vm.Inches()
}

// setModes sends whatever G90/G91 and G20/G21 words are needed to reach the
// given modes.
func (m *Machine) setModes(relative, inches bool) error {
	rel, in := m.modes()
	var b gcode.Block
	if rel != relative {
		w := gcode.Absolute
		if relative {
			w = gcode.Relative
		}
		b = append(b, w)
	}
	if in != inches {
		w := gcode.Millimeters
		if inches {
			w = gcode.Inches
		}
		b = append(b, w)
	}
	if len(b) == 0 {
		return nil
	}

	for _, w := range b {
		if _, err := m.send(gcode.Block{w}); err != nil {
			return err
		}
		m.mx.Lock()
		next, err := m.vm.Next(gcode.Block{w})
		if err == nil {
			m.vm = next
		}
		m.mx.Unlock()
		if err != nil {
			return errors.Wrapf(err, "track '%s'", w)
		}
	}
	return nil
}

// absolute puts the controller in absolute millimetres, the mode every host
// generated move is written in.
func (m *Machine) absolute() error { return m.setModes(false, false) }

// MoveTo moves to p and waits for the move to finish.
func (m *Machine) MoveTo(p coord.Point, feed float64) error {
	if err := m.absolute(); err != nil {
		return err
	}
	target := p
	if m.hostLeveling() {
		target = leveling.Compensate(m.opt.Mesh, p)
	}
	_, err := m.send(move(target, feed), gcode.Block{gcode.Finish})
	if err != nil {
		return err
	}
	m.setPos(p)
	return nil
}

// MoveToAxis moves a single axis and waits for the move to finish.
func (m *Machine) MoveToAxis(a coord.Axis, v, feed float64) error {
	if m.hostLeveling() {
		return m.MoveTo(m.Pos().With(a, v), feed)
	}
	if err := m.absolute(); err != nil {
		return err
	}
	_, err := m.send(gcode.Block{
		gcode.Linear,
		{W: byte(a), Arg: v},
		{W: 'F', Arg: feed},
	}, gcode.Block{gcode.Finish})
	if err != nil {
		return err
	}
	m.setPos(m.Pos().With(a, v))
	return nil
}

// Drain waits for the planner queue to empty.
func (m *Machine) Drain() error {
	_, err := m.send(gcode.Block{gcode.Finish})
	return err
}

// Home homes all axes and reads back the resulting position.
func (m *Machine) Home() error {
	_, err := m.send(gcode.Block{gcode.Home})
	if err != nil {
		return err
	}
	m.ResetHits()
	if _, err = m.SyncFromSteppers(); err != nil {
		return err
	}
	m.mx.Lock()
	m.homed = true
	m.mx.Unlock()
	return nil
}

// Homed is true once Home has succeeded on this connection.
func (m *Machine) Homed() bool {
	m.mx.Lock()
	defer m.mx.Unlock()
	return m.homed
}

// State returns the tool and mode flags. Leveling is queried from the
// controller unless host-side leveling is configured. Controllers built
// without leveling report it as off.
func (m *Machine) State() (offset.State, error) {
	m.mx.Lock()
	s := offset.State{
		Tool:        m.vm.Tool(),
		Duplication: m.duplication,
		Leveling:    m.leveling,
	}
	skip := m.opt.Mesh != nil || m.noLeveling
	m.mx.Unlock()
	if skip {
		return s, nil
	}

	lines, err := m.send(gcode.Block{gcode.BedLeveling})
	if err != nil {
		return s, err
	}
	on, supported, err := parseLeveling(lines)
	if err != nil {
		return s, err
	}
	if !supported {
		logrus.Info("controller has no bed leveling")
	}
	s.Leveling = on
	m.mx.Lock()
	m.leveling = on
	m.noLeveling = !supported
	m.mx.Unlock()
	return s, nil
}

// SetDuplication switches between duplication and the configured dual mode.
func (m *Machine) SetDuplication(on bool) error {
	mode := m.dualMode
	if on {
		mode = 2
	}
	_, err := m.send(gcode.Block{gcode.DualMode, {W: 'S', Arg: float64(mode)}})
	if err != nil {
		return err
	}
	m.mx.Lock()
	m.duplication = on
	m.mx.Unlock()
	return nil
}

// parseLeveling reads an M420 report. supported is false when the controller
// does not know M420.
func parseLeveling(lines []string) (on, supported bool, err error) {
	for _, ln := range lines {
		switch {
		case strings.Contains(ln, "Bed Leveling ON"):
			return true, true, nil
		case strings.Contains(ln, "Bed Leveling OFF"):
			return false, true, nil
		case strings.Contains(ln, "Unknown command"):
			return false, false, nil
		}
	}
	return false, false, errors.New("no leveling state in M420 response")
}
