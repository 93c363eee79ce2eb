// Package leveling applies a probed bed mesh to host-generated moves.
package leveling

import (
	"math"

	"github.com/fogleman/delaunay"
	"github.com/pkg/errors"

	"github.com/mastercactapus/idexcal/coord"
)

// ZOffsetter reports the bed height at a point.
type ZOffsetter interface {
	OffsetZ(x, y float64) (bool, float64)
}

// Mesh is a triangulated set of bed probe points.
type Mesh struct {
	min, max  coord.Point
	triangles []coord.Triangle
}

var _ ZOffsetter = &Mesh{}

// NewMesh triangulates points in the XY plane.
func NewMesh(points []coord.Point) (*Mesh, error) {
	if len(points) < 3 {
		return nil, errors.New("need at least 3 points to create a mesh")
	}

	flat := make([]delaunay.Point, len(points))
	byXY := make(map[delaunay.Point]coord.Point, len(points))

	mesh := &Mesh{min: points[0], max: points[0]}
	for i, p := range points {
		mesh.min.X = math.Min(mesh.min.X, p.X)
		mesh.min.Y = math.Min(mesh.min.Y, p.Y)
		mesh.max.X = math.Max(mesh.max.X, p.X)
		mesh.max.Y = math.Max(mesh.max.Y, p.Y)

		flat[i] = delaunay.Point{X: p.X, Y: p.Y}
		byXY[flat[i]] = p
	}

	tri, err := delaunay.Triangulate(flat)
	if err != nil {
		return nil, errors.Wrap(err, "triangulate mesh")
	}

	mesh.triangles = make([]coord.Triangle, 0, len(tri.Triangles)/3)
	for i := 0; i+2 < len(tri.Triangles); i += 3 {
		mesh.triangles = append(mesh.triangles, coord.Triangle{
			A: byXY[tri.Points[tri.Triangles[i]]],
			B: byXY[tri.Points[tri.Triangles[i+1]]],
			C: byXY[tri.Points[tri.Triangles[i+2]]],
		})
	}

	return mesh, nil
}

func (m *Mesh) inBounds(x, y float64) bool {
	return x >= m.min.X-coord.Epsilon && x <= m.max.X+coord.Epsilon &&
		y >= m.min.Y-coord.Epsilon && y <= m.max.Y+coord.Epsilon
}

// OffsetZ returns the bed height at x,y. ok is false outside the probed area.
func (m *Mesh) OffsetZ(x, y float64) (ok bool, z float64) {
	if !m.inBounds(x, y) {
		return false, 0
	}
	for _, t := range m.triangles {
		if t.ContainsXY(x, y) {
			return true, t.Z(x, y)
		}
	}

	return false, 0
}

// Compensate raises p by the bed height below it. Points outside the mesh are
// returned unchanged.
func Compensate(o ZOffsetter, p coord.Point) coord.Point {
	if o == nil {
		return p
	}
	if ok, z := o.OffsetZ(p.X, p.Y); ok {
		p.Z += z
	}
	return p
}
