package machine

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mastercactapus/idexcal/coord"
	"github.com/mastercactapus/idexcal/gcode"
	"github.com/mastercactapus/idexcal/leveling"
)

// Arm enables endstop checking for normal moves (M120). Marlin arms all
// axes together; a is only logged.
func (m *Machine) Arm(a coord.Axis) error {
	m.ResetHits()
	logrus.WithField("axis", a).Debug("arm endstops")
	_, err := m.send(gcode.Block{gcode.EnableEndstops})
	return err
}

// Disarm disables endstop checking (M121).
func (m *Machine) Disarm(a coord.Axis) error {
	logrus.WithField("axis", a).Debug("disarm endstops")
	_, err := m.send(gcode.Block{gcode.DisableEndstops})
	return err
}

// ErrNoTrigger is returned from ClearHit when the armed move ended without an
// endstop report.
var ErrNoTrigger = errors.New("endstop did not trigger")

// ClearHit discards the endstop hit reports of an intentional trigger. It
// fails if there were none, since the move then ran to its nominal end.
func (m *Machine) ClearHit() error {
	hits := m.Hits()
	if len(hits) == 0 {
		return ErrNoTrigger
	}
	for _, h := range hits {
		logrus.WithFields(logrus.Fields{"axis": h.Axis, "pos": h.Pos}).Debug("endstop hit")
	}
	m.ResetHits()
	return nil
}

// SyncFromSteppers reads the real stepper position (M114 R) and adopts it as
// the logical position.
func (m *Machine) SyncFromSteppers() (coord.Point, error) {
	lines, err := m.send(gcode.Block{gcode.ReportPosition, {W: 'R', Bare: true}})
	if err != nil {
		return coord.Point{}, err
	}
	p, err := parsePosition(lines)
	if err != nil {
		return coord.Point{}, err
	}
	if m.hostLeveling() {
		if ok, z := m.opt.Mesh.OffsetZ(p.X, p.Y); ok {
			p.Z -= z
		}
	}
	m.setPos(p)
	return p, nil
}

// SyncPlanner tells the planner it is at p (G92).
func (m *Machine) SyncPlanner(p coord.Point) error {
	if err := m.absolute(); err != nil {
		return err
	}
	actual := p
	if m.hostLeveling() {
		actual = leveling.Compensate(m.opt.Mesh, p)
	}
	_, err := m.send(gcode.Block{
		gcode.SetPosition,
		{W: 'X', Arg: actual.X},
		{W: 'Y', Arg: actual.Y},
		{W: 'Z', Arg: actual.Z},
	})
	if err != nil {
		return err
	}
	m.setPos(p)
	return nil
}

// parsePosition reads an M114 report like
// `X:10.00 Y:20.00 Z:5.00 E:0.00 Count X:800 Y:1600 Z:2000`.
func parsePosition(lines []string) (coord.Point, error) {
	for _, ln := range lines {
		if i := strings.Index(ln, "Count"); i >= 0 {
			ln = ln[:i]
		}
		var p coord.Point
		var seen int
		for _, f := range strings.Fields(ln) {
			kv := strings.SplitN(f, ":", 2)
			if len(kv) != 2 || len(kv[0]) != 1 {
				continue
			}
			v, err := strconv.ParseFloat(kv[1], 64)
			if err != nil {
				continue
			}
			switch a := coord.Axis(kv[0][0]); a {
			case coord.X, coord.Y, coord.Z:
				p = p.With(a, v)
				seen++
			}
		}
		if seen == 3 {
			return p, nil
		}
	}
	return coord.Point{}, errors.New("no position in M114 response")
}
