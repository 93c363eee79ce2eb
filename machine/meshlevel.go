package machine

import (
	"github.com/mastercactapus/idexcal/gcode"
)

func (m *Machine) hostLeveling() bool {
	m.mx.Lock()
	defer m.mx.Unlock()
	return m.leveling && m.opt.Mesh != nil
}

// SetLeveling toggles bed leveling. With a host mesh configured no command is
// sent; moves are compensated before they leave the host. Nothing is sent to
// a controller that answered M420 as an unknown command.
func (m *Machine) SetLeveling(on bool) error {
	m.mx.Lock()
	unsupported := m.noLeveling
	m.mx.Unlock()
	if m.opt.Mesh == nil && !unsupported {
		arg := 0.0
		if on {
			arg = 1
		}
		if _, err := m.send(gcode.Block{gcode.BedLeveling, {W: 'S', Arg: arg}}); err != nil {
			return err
		}
	}
	m.mx.Lock()
	m.leveling = on
	m.mx.Unlock()
	return nil
}
