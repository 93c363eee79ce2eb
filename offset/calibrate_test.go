package offset

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mastercactapus/idexcal/gcode"
)

type captureReporter struct{ results []Result }

func (c *captureReporter) Report(r Result) error {
	c.results = append(c.results, r)
	return nil
}

func motionCalls(f *fakePrinter) int {
	var n int
	for _, c := range f.calls {
		if c != "drain" {
			n++
		}
	}
	return n
}

func TestCalibrator_NoAxis(t *testing.T) {
	f := newFakePrinter()
	c := NewCalibrator(f, DefaultConfig())

	_, err := c.Run(Options{})
	assert.Equal(t, ErrNoAxis, err)
	assert.True(t, IsUsage(err))

	_, err = c.Run(Options{X: true, Y: true})
	assert.Equal(t, ErrBothAxes, err)
	assert.True(t, IsUsage(err))

	assert.Empty(t, f.calls)
}

func TestHandler_NoAxis(t *testing.T) {
	f := newFakePrinter()
	rep := &captureReporter{}
	var out bytes.Buffer
	h := &Handler{Calibrator: NewCalibrator(f, DefaultConfig()), Reporter: rep, Out: &out}

	err := h.Handle(gcode.MustParse("G429 P3")[0])
	assert.NoError(t, err)
	assert.Equal(t, UsageMessage+"\n", out.String())
	assert.Empty(t, f.calls)
	assert.Empty(t, rep.results)
}

func TestCalibrator_NotHomed(t *testing.T) {
	f := newFakePrinter()
	f.homed = false
	c := NewCalibrator(f, DefaultConfig())

	_, err := c.Run(Options{X: true})
	assert.Equal(t, ErrNotHomed, err)
	assert.False(t, IsUsage(err))
	assert.Equal(t, 0, motionCalls(f))
}

func TestCalibrator_HomeBefore(t *testing.T) {
	f := newFakePrinter()
	f.homed = false
	f.triggers[0] = []float64{10}
	f.triggers[1] = []float64{10}
	c := NewCalibrator(f, DefaultConfig())

	_, err := c.Run(Options{X: true, HomeBefore: true})
	require.NoError(t, err)
	assert.Equal(t, "home", f.calls[0])
	assert.Equal(t, "drain", f.calls[1])
}

func TestCalibrator_X(t *testing.T) {
	f := newFakePrinter()
	f.triggers[0] = []float64{10.0}
	f.triggers[1] = []float64{10.3}
	rep := &captureReporter{}
	h := &Handler{Calibrator: NewCalibrator(f, DefaultConfig()), Reporter: rep}

	res, err := h.Run(Options{X: true, Count: 1})
	require.NoError(t, err)

	assert.Equal(t, 10.0, res.Left, "single sample is used as-is")
	assert.Equal(t, 10.3, res.Right)
	assert.InDelta(t, -0.3, res.Offset, 1e-9)
	assert.NotEmpty(t, res.RunID)
	require.Len(t, rep.results, 1)
	assert.Equal(t, res, rep.results[0])
}

func TestCalibrator_Y_TwoSamples(t *testing.T) {
	f := newFakePrinter()
	f.triggers[0] = []float64{5.0, 5.5}
	f.triggers[1] = []float64{5.0, 5.0}
	c := NewCalibrator(f, DefaultConfig())

	res, err := c.Run(OptionsFromBlock(gcode.MustParse("G429 Y P2")[0]))
	require.NoError(t, err)

	assert.InDelta(t, 5.2, res.Left, 1e-12)
	assert.InDelta(t, 5.0, res.Right, 1e-12)
	assert.InDelta(t, 0.2, res.Offset, 1e-12)
	assert.Equal(t, []float64{5.0, 5.5}, res.LeftSamples)
	assert.Equal(t, 2, res.Count)

	// every sample retracts by default
	assert.Equal(t, 4, f.count("move Z15 F1200"))
}

func TestCalibrator_Mean(t *testing.T) {
	f := newFakePrinter()
	f.triggers[0] = []float64{1, 2, 3, 4, 5}
	f.triggers[1] = []float64{2, 2, 2, 2, 2}
	c := NewCalibrator(f, DefaultConfig())

	res, err := c.Run(Options{Y: true, Count: 5, NoRetract: true})
	require.NoError(t, err)

	assert.InDelta(t, 3, res.Left, 1e-12)
	assert.InDelta(t, 1, res.Offset, 1e-12)
	assert.Equal(t, 8, f.count("move Z15 F1200"), "first sample of each toolhead does not retract")
}

func TestCalibrator_SaveRestore(t *testing.T) {
	f := newFakePrinter()
	f.state = State{Tool: 1, Duplication: true, Leveling: true}
	f.triggers[0] = []float64{10}
	f.triggers[1] = []float64{10}
	c := NewCalibrator(f, DefaultConfig())

	_, err := c.Run(Options{X: true, HomeAfter: true})
	require.NoError(t, err)

	assert.Equal(t, State{Tool: 1, Duplication: true, Leveling: true}, f.state)

	index := func(call string) int {
		for i, c := range f.calls {
			if c == call {
				return i
			}
		}
		return -1
	}
	firstArm := index("arm X")
	assert.True(t, index("duplication false") < firstArm)
	assert.True(t, index("leveling false") < firstArm)
	assert.True(t, index("tool 0") < firstArm)
	assert.True(t, index("home") > firstArm)
	assert.True(t, index("home") < index("tool 1"))
	assert.True(t, index("move 150,20,15 F6000") < index("tool 1"), "handoff before switching tools")
}

func TestCalibrator_RestoreOnFailure(t *testing.T) {
	f := newFakePrinter()
	f.state = State{Tool: 0, Duplication: true, Leveling: false}
	f.triggers[0] = []float64{10.0}
	f.triggers[1] = []float64{10.3}
	f.failOn = "move X10.3 F60"
	c := NewCalibrator(f, DefaultConfig())

	_, err := c.Run(Options{X: true})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "right toolhead")
	assert.Equal(t, State{Tool: 0, Duplication: true, Leveling: false}, f.state)
	assert.Equal(t, "leveling false", f.calls[len(f.calls)-1])
}

func TestCalibrator_SelectsLeftTool(t *testing.T) {
	f := newFakePrinter()
	f.state = State{Tool: 0}
	f.triggers[0] = []float64{10}
	f.triggers[1] = []float64{10}
	c := NewCalibrator(f, DefaultConfig())

	_, err := c.Run(Options{X: true})
	require.NoError(t, err)

	var firstTool, firstArm = -1, -1
	for i, call := range f.calls {
		if call == "tool 0" && firstTool < 0 {
			firstTool = i
		}
		if call == "arm X" && firstArm < 0 {
			firstArm = i
		}
	}
	require.True(t, firstTool >= 0, "tool 0 selected even when reported active")
	assert.True(t, firstTool < firstArm)
}
