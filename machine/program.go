package machine

import (
	"io"

	"github.com/pkg/errors"

	"github.com/mastercactapus/idexcal/gcode"
	"github.com/mastercactapus/idexcal/leveling"
)

// Register routes blocks whose command is cmd to fn instead of the controller.
// Registration must happen before Run is called.
func (m *Machine) Register(cmd gcode.Word, fn func(gcode.Block) error) {
	m.commands[cmd] = fn
}

// Run streams a program to the controller, handling registered commands on
// the host. Moves are split and compensated while host-side leveling is on.
func (m *Machine) Run(r gcode.Reader) error {
	for {
		b, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "read program")
		}

		if cmd, ok := b.Command(); ok {
			if fn := m.commands[cmd]; fn != nil {
				if err = m.host(fn, b); err != nil {
					return errors.Wrap(err, cmd.String())
				}
				continue
			}
		}

		if err = m.stream(b); err != nil {
			return err
		}
	}
}

// host runs a registered command, putting the program's distance and unit
// modes back afterwards.
func (m *Machine) host(fn func(gcode.Block) error, b gcode.Block) error {
	rel, in := m.modes()
	err := fn(b)
	if mErr := m.setModes(rel, in); mErr != nil && err == nil {
		err = errors.Wrap(mErr, "restore modes")
	}
	return err
}

func (m *Machine) stream(b gcode.Block) error {
	m.mx.Lock()
	vm := m.vm
	host := m.leveling && m.opt.Mesh != nil
	m.mx.Unlock()

	out := []gcode.Block{b}
	if host {
		out = out[:0]
		l := leveling.NewLeveler(&gcode.BlocksReader{Blocks: []gcode.Block{b}}, m.opt.Mesh, m.opt.Granularity, vm)
		for {
			seg, err := l.Read()
			if err == io.EOF {
				break
			}
			if err != nil {
				return errors.Wrapf(err, "level '%s'", b)
			}
			out = append(out, seg)
		}
		vm = l.VM()
	} else {
		next, err := vm.Next(b)
		if err != nil {
			return errors.Wrapf(err, "track '%s'", b)
		}
		vm = next
	}

	if _, err := m.send(out...); err != nil {
		return err
	}

	m.mx.Lock()
	m.vm = vm
	switch {
	case b.Is(gcode.DualMode):
		if ok, mode := b.Arg('S'); ok {
			m.duplication = mode == 2
		}
	case b.Is(gcode.BedLeveling) && m.opt.Mesh == nil:
		if ok, on := b.Arg('S'); ok {
			m.leveling = on != 0
		}
	}
	m.mx.Unlock()

	if b.Is(gcode.Home) {
		if _, err := m.SyncFromSteppers(); err != nil {
			return err
		}
		m.mx.Lock()
		m.homed = true
		m.mx.Unlock()
	}
	return nil
}
