package coord

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPoint_Add(t *testing.T) {
	a := Point{X: 1, Y: 2, Z: 3}
	b := Point{X: 4, Y: 5, Z: 6}

	assert.Equal(t, Point{X: 5, Y: 7, Z: 9}, a.Add(b))
}

func TestPoint_DistanceXY(t *testing.T) {
	dist := Point{X: 1, Y: 2, Z: 3}.DistanceXY(4, 5)
	assert.InEpsilon(t, 4.24264, dist, .01)
}

func TestPoint_GetWith(t *testing.T) {
	p := Point{X: 1, Y: 2, Z: 3}

	assert.Equal(t, 1.0, p.Get(X))
	assert.Equal(t, 2.0, p.Get(Y))
	assert.Equal(t, 3.0, p.Get(Z))

	assert.Equal(t, Point{X: 9, Y: 2, Z: 3}, p.With(X, 9))
	assert.Equal(t, Point{X: 1, Y: 9, Z: 3}, p.With(Y, 9))
	assert.Equal(t, Point{X: 1, Y: 2, Z: 3}, p, "With must not modify the receiver")
}

func TestPoint_Lerp(t *testing.T) {
	a := Point{X: 10, Y: 10, Z: 10}
	b := Point{X: 20, Y: 0, Z: 10}

	assert.Equal(t, Point{X: 15, Y: 5, Z: 10}, a.Lerp(b, .5))
	assert.Equal(t, a, a.Lerp(b, 0))
	assert.Equal(t, b, a.Lerp(b, 1))
}

func TestAxis(t *testing.T) {
	assert.Equal(t, Y, X.Other())
	assert.Equal(t, X, Y.Other())
	assert.Equal(t, Z, Z.Other())

	a, err := ParseAxis("y")
	assert.NoError(t, err)
	assert.Equal(t, Y, a)

	_, err = ParseAxis("Q")
	assert.Error(t, err)

	var u Axis
	assert.NoError(t, u.UnmarshalText([]byte("X")))
	assert.Equal(t, "X", u.String())
}
