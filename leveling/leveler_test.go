package leveling

import (
	"io"
	"testing"

	"github.com/mastercactapus/idexcal/coord"
	"github.com/mastercactapus/idexcal/gcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startAt(p coord.Point) gcode.VM {
	vm := gcode.NewVM()
	vm.SetPos(p)
	return *vm
}

func TestLeveler_Relative(t *testing.T) {
	// probes indicate a rise
	// of 30mm over 100mm or .3mmZ for every 1mm X
	probes := []coord.Point{
		{X: -700, Y: -450, Z: -80},
		{X: -700, Y: -550, Z: -80},

		{X: -600, Y: -450, Z: -50},
		{X: -600, Y: -550, Z: -50},
	}

	mesh, err := NewMesh(probes)
	require.NoError(t, err)

	l := NewLeveler(
		&gcode.BlocksReader{Blocks: gcode.MustParse(`G91 G0 X3`)},
		mesh, 1,
		startAt(coord.Point{X: -650, Y: -500, Z: -60}),
	)

	for i := 0; i < 3; i++ {
		b, err := l.Read()
		assert.NoError(t, err)
		assert.Equal(t, "G91 G0 X1 Y0 Z0.3", b.String())
	}

	_, err = l.Read()
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, coord.Point{X: -647, Y: -500, Z: -60}, l.Pos())
}

func TestLeveler_Absolute(t *testing.T) {
	mesh, err := NewMesh([]coord.Point{
		{X: 0, Y: 0, Z: 0},
		{X: 10, Y: 0, Z: 1},
		{X: 0, Y: 10, Z: 0},
		{X: 10, Y: 10, Z: 1},
	})
	require.NoError(t, err)

	l := NewLeveler(
		&gcode.BlocksReader{Blocks: gcode.MustParse("M400\nG1 X10 Y0 F600\n")},
		mesh, 5,
		startAt(coord.Point{Z: 2}),
	)

	b, err := l.Read()
	assert.NoError(t, err)
	assert.Equal(t, "M400", b.String())

	b, err = l.Read()
	assert.NoError(t, err)
	assert.Equal(t, "G1 F600 X5 Y0 Z2.5", b.String())

	b, err = l.Read()
	assert.NoError(t, err)
	assert.Equal(t, "G1 F600 X10 Y0 Z3", b.String())
}

func TestMesh_OffsetZ(t *testing.T) {
	_, err := NewMesh([]coord.Point{{}, {X: 1}})
	assert.Error(t, err)

	mesh, err := NewMesh([]coord.Point{
		{X: 0, Y: 0, Z: 1},
		{X: 10, Y: 0, Z: 1},
		{X: 0, Y: 10, Z: 1},
		{X: 10, Y: 10, Z: 1},
	})
	require.NoError(t, err)

	ok, z := mesh.OffsetZ(5, 5)
	assert.True(t, ok)
	assert.InDelta(t, 1, z, 1e-9)

	ok, _ = mesh.OffsetZ(20, 5)
	assert.False(t, ok)

	assert.Equal(t, coord.Point{X: 20, Y: 5, Z: 2}, Compensate(mesh, coord.Point{X: 20, Y: 5, Z: 2}))
	assert.InDelta(t, 3, Compensate(mesh, coord.Point{X: 2, Y: 2, Z: 2}).Z, 1e-9)
	assert.Equal(t, coord.Point{Z: 2}, Compensate(nil, coord.Point{Z: 2}))
}
