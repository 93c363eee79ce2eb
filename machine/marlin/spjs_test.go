package marlin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mastercactapus/idexcal/coord"
	"github.com/mastercactapus/idexcal/machine"
	"github.com/mastercactapus/idexcal/spjs"
)

type fakeBridge struct {
	msgs  chan interface{}
	sent  chan spjs.JSON
	wrote chan string
}

func newFakeBridge() *fakeBridge {
	return &fakeBridge{
		msgs:  make(chan interface{}, 10),
		sent:  make(chan spjs.JSON, 10),
		wrote: make(chan string, 10),
	}
}

func (b *fakeBridge) Messages() <-chan interface{}  { return b.msgs }
func (b *fakeBridge) SendJSON(j spjs.JSON) error    { b.sent <- j; return nil }
func (b *fakeBridge) WriteString(data string) error { b.wrote <- data; return nil }

type sendResult struct {
	lines []string
	err   error
}

func sendAsync(a *SPJSAdapter, line string) chan sendResult {
	ch := make(chan sendResult, 1)
	go func() {
		lines, err := a.Send(line)
		ch <- sendResult{lines, err}
	}()
	return ch
}

func TestSPJSAdapter_Send(t *testing.T) {
	b := newFakeBridge()
	a := NewSPJSAdapter(b, "/dev/ttyACM0", 250000)

	res := sendAsync(a, "M114 R")
	j := <-b.sent
	assert.Equal(t, "/dev/ttyACM0", j.Port)
	require.Len(t, j.Data, 1)
	assert.Equal(t, "M114 R\n", j.Data[0].Data)

	b.msgs <- &spjs.DataFrame{Port: "/dev/ttyACM0", Data: "X:1.00 Y:2.00 Z:3.0"}
	b.msgs <- &spjs.DataFrame{Port: "/dev/ttyACM0", Data: "0 E:0.00 Count X:80\necho:endstops hit: Y:2.00\nok\n"}
	b.msgs <- &spjs.DataFrame{Port: "/dev/ttyUSB9", Data: "ignored\n"}
	b.msgs <- &spjs.CmdStatus{Cmd: "Complete", ID: j.Data[0].ID}

	r := <-res
	require.NoError(t, r.err)
	assert.Equal(t, []string{"X:1.00 Y:2.00 Z:3.00 E:0.00 Count X:80", "echo:endstops hit: Y:2.00"}, r.lines)
	assert.Equal(t, []machine.Hit{{Axis: coord.Y, Pos: 2}}, a.Hits())
}

func TestSPJSAdapter_Wiped(t *testing.T) {
	b := newFakeBridge()
	a := NewSPJSAdapter(b, "/dev/ttyACM0", 250000)

	res := sendAsync(a, "G28")
	<-b.sent
	b.msgs <- &spjs.CmdStatus{Cmd: "WipedQueue"}
	assert.Equal(t, ErrWiped, (<-res).err)
}

func TestSPJSAdapter_OpensPort(t *testing.T) {
	b := newFakeBridge()
	NewSPJSAdapter(b, "/dev/ttyACM0", 250000)

	b.msgs <- &spjs.SerialPortList{SerialPorts: []spjs.SerialPort{
		{Name: "/dev/ttyUSB0"},
		{Name: "/dev/ttyACM0"},
	}}
	assert.Equal(t, "open /dev/ttyACM0 250000 marlin", <-b.wrote)
}
