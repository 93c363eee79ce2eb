// Package sim is an in-process stand-in for a Marlin IDEX controller.
//
// Printer answers the same G-code a real controller would and stops armed
// moves at queued trigger positions, one queue per tool and axis.
package sim

import (
	"fmt"
	"math"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mastercactapus/idexcal/coord"
	"github.com/mastercactapus/idexcal/gcode"
	"github.com/mastercactapus/idexcal/machine"
)

// StepsPerMM is used for the Count section of position reports.
const StepsPerMM = 80

type trigger struct {
	tool int
	axis coord.Axis
}

// Printer is a simulated controller. It implements machine.Adapter.
type Printer struct {
	mx sync.Mutex

	vm       gcode.VM
	armed    bool
	leveling bool
	dualMode int
	homed    bool

	triggers map[trigger][]float64
	surfaces map[trigger]float64
	hits     []machine.Hit
	sent     []string
}

var _ machine.Adapter = &Printer{}

// NewPrinter returns a controller that homes to home.
func NewPrinter(home coord.Point) *Printer {
	vm := gcode.NewVM()
	vm.SetHome(home)
	return &Printer{
		vm:       *vm,
		dualMode: 1,
		triggers: make(map[trigger][]float64),
		surfaces: make(map[trigger]float64),
	}
}

// Trigger queues endstop positions for tool on axis a. Each armed move that
// crosses the next queued position stops there and consumes it.
func (p *Printer) Trigger(tool int, a coord.Axis, pos ...float64) {
	p.mx.Lock()
	defer p.mx.Unlock()
	k := trigger{tool: tool, axis: a}
	p.triggers[k] = append(p.triggers[k], pos...)
}

// Surface places a fixed trigger for tool on axis a, used whenever the
// Trigger queue is empty.
func (p *Printer) Surface(tool int, a coord.Axis, pos float64) {
	p.mx.Lock()
	defer p.mx.Unlock()
	p.surfaces[trigger{tool: tool, axis: a}] = pos
}

// next returns the trigger position k would stop at.
func (p *Printer) next(k trigger) (float64, bool) {
	if q := p.triggers[k]; len(q) > 0 {
		return q[0], true
	}
	v, ok := p.surfaces[k]
	return v, ok
}

// SetLeveling sets the controller's leveling flag as if restored from EEPROM.
func (p *Printer) SetLeveling(on bool) {
	p.mx.Lock()
	p.leveling = on
	p.mx.Unlock()
}

// Sent returns every line received so far.
func (p *Printer) Sent() []string {
	p.mx.Lock()
	defer p.mx.Unlock()
	return append([]string(nil), p.sent...)
}

// Pos is the current position of the active toolhead.
func (p *Printer) Pos() coord.Point {
	p.mx.Lock()
	defer p.mx.Unlock()
	return p.vm.Pos()
}

// Tool is the active toolhead.
func (p *Printer) Tool() int {
	p.mx.Lock()
	defer p.mx.Unlock()
	return p.vm.Tool()
}

// DualMode is the last M605 mode.
func (p *Printer) DualMode() int {
	p.mx.Lock()
	defer p.mx.Unlock()
	return p.dualMode
}

// Leveling is the controller's bed leveling flag.
func (p *Printer) Leveling() bool {
	p.mx.Lock()
	defer p.mx.Unlock()
	return p.leveling
}

func (p *Printer) Hits() []machine.Hit {
	p.mx.Lock()
	defer p.mx.Unlock()
	return append([]machine.Hit(nil), p.hits...)
}

func (p *Printer) ResetHits() {
	p.mx.Lock()
	p.hits = nil
	p.mx.Unlock()
}

// Send executes one line and returns the lines a controller would print
// before its `ok`.
func (p *Printer) Send(line string) ([]string, error) {
	p.mx.Lock()
	defer p.mx.Unlock()
	p.sent = append(p.sent, line)

	blocks, err := gcode.Parse(line)
	if err != nil {
		return nil, errors.Wrap(err, "parse")
	}
	var resp []string
	for _, b := range blocks {
		out, err := p.exec(b)
		if err != nil {
			logrus.WithError(err).WithField("line", line).Debug("sim error")
			return resp, err
		}
		resp = append(resp, out...)
	}
	return resp, nil
}

func (p *Printer) exec(b gcode.Block) ([]string, error) {
	cmd, ok := b.Command()
	if !ok {
		return nil, errors.Errorf("no command in '%s'", b)
	}

	switch cmd {
	case gcode.Home:
		p.homed = true
	case gcode.ReportPosition:
		pos := p.vm.Pos()
		return []string{fmt.Sprintf("X:%.2f Y:%.2f Z:%.2f E:0.00 Count X:%d Y:%d Z:%d",
			pos.X, pos.Y, pos.Z,
			steps(pos.X), steps(pos.Y), steps(pos.Z),
		)}, nil
	case gcode.EnableEndstops:
		p.armed = true
		return nil, nil
	case gcode.DisableEndstops:
		p.armed = false
		return nil, nil
	case gcode.BedLeveling:
		ok, s := b.Arg('S')
		if ok {
			p.leveling = s != 0
		}
		state := "OFF"
		if p.leveling {
			state = "ON"
		}
		return []string{"echo:Bed Leveling " + state}, nil
	case gcode.DualMode:
		p.dualMode = b.Int('S', p.dualMode)
		return nil, nil
	case gcode.Finish:
		return nil, nil
	case gcode.Rapid, gcode.Linear:
		return p.move(b)
	}

	next, err := p.vm.Next(b)
	if err != nil {
		return nil, err
	}
	p.vm = next
	if cmd.W == 'M' {
		return []string{fmt.Sprintf("echo:Unknown command: \"%s\"", b)}, nil
	}
	return nil, nil
}

func steps(v float64) int { return int(math.Round(v * StepsPerMM)) }

func (p *Printer) move(b gcode.Block) ([]string, error) {
	from := p.vm.Pos()
	next, err := p.vm.Next(b)
	if err != nil {
		return nil, err
	}
	to := next.Pos()
	if !p.armed {
		p.vm = next
		return nil, nil
	}

	t := 1.0
	var hit *machine.Hit
	for _, a := range []coord.Axis{coord.X, coord.Y} {
		f, e := from.Get(a), to.Get(a)
		if f == e {
			continue
		}
		k := trigger{tool: p.vm.Tool(), axis: a}
		v, ok := p.next(k)
		if !ok {
			return nil, errors.Errorf("endstop never triggered: no trigger for T%d on %s", k.tool, a)
		}
		if (v-f)*(v-e) > 0 {
			// not crossed by this move
			continue
		}
		if at := (v - f) / (e - f); at < t {
			t = at
			hit = &machine.Hit{Axis: a, Pos: v}
		}
	}
	if hit == nil {
		p.vm = next
		return nil, nil
	}

	k := trigger{tool: p.vm.Tool(), axis: hit.Axis}
	if len(p.triggers[k]) > 0 {
		p.triggers[k] = p.triggers[k][1:]
	}
	p.hits = append(p.hits, *hit)
	next.SetPos(from.Lerp(to, t))
	p.vm = next
	return []string{fmt.Sprintf("echo:endstops hit:  %s:%.2f", hit.Axis, hit.Pos)}, nil
}
