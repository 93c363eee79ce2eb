package machine

import (
	"github.com/mastercactapus/idexcal/gcode"
)

// SelectTool activates toolhead index and waits for the change to complete.
// Parking the other carriage is left to the controller.
func (m *Machine) SelectTool(index int) error {
	_, err := m.send(gcode.Block{gcode.Tool(index)}, gcode.Block{gcode.Finish})
	if err != nil {
		return err
	}
	m.mx.Lock()
	defer m.mx.Unlock()
	return m.vm.Run(gcode.Block{gcode.Tool(index)})
}
