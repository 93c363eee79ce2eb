package coord

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTriangle_Z(t *testing.T) {
	tri := Triangle{
		A: Point{X: 0, Y: 0, Z: 0},
		B: Point{X: 10, Y: 0, Z: 0},
		C: Point{X: 5, Y: 5, Z: 5},
	}

	assert.Equal(t, 0.0, tri.Z(0, 0))
	assert.Equal(t, 0.0, tri.Z(5, 0))
	assert.Equal(t, 5.0, tri.Z(5, 5))
	assert.Equal(t, 2.5, tri.Z(2.5, 2.5))
}

func TestTriangle_ContainsXY(t *testing.T) {
	tri := Triangle{
		A: Point{X: 0, Y: 0},
		B: Point{X: 0, Y: 10},
		C: Point{X: 10, Y: 0},
	}

	assert.True(t, tri.ContainsXY(2, 2))
	assert.True(t, tri.ContainsXY(5, 5), "on the hypotenuse")
	assert.True(t, tri.ContainsXY(5, 5.0005), "within epsilon of an edge")
	assert.False(t, tri.ContainsXY(6, 6))
	assert.False(t, tri.ContainsXY(-1, 2))

	tri.B, tri.C = tri.C, tri.B
	assert.True(t, tri.ContainsXY(2, 2), "reversed winding")
	assert.False(t, tri.ContainsXY(6, 6))
}
