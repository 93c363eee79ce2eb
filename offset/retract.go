package offset

import "github.com/mastercactapus/idexcal/coord"

// RetractPath moves a toolhead clear of a triggered surface.
//
// Waypoints are travelled in order at ProbeZ, then the head rises to Z.
type RetractPath struct {
	Waypoints [5]coord.Point
	Z         float64
}

// place maps axis-local (major, minor) coordinates back onto X/Y, with major
// running along the probed axis.
func place(a coord.Axis, major, minor, z float64) coord.Point {
	return coord.Point{Z: z}.With(a, major).With(a.Other(), minor)
}

// Retraction builds the escape path from a trigger at measured along a.
//
// The head first backs off the surface by SafetyGap, steps sideways by Width,
// passes NozzleWidth beyond the trigger point, returns to the start line and
// finally backs off to Backoff short of the start.
func Retraction(a coord.Axis, measured float64, g Geometry) RetractPath {
	start, side := g.Start.Get(a), g.Start.Get(a.Other())
	z := g.ProbeZ()

	local := [5][2]float64{
		{measured + g.SafetyGap, side},
		{measured + g.SafetyGap, side + g.Width},
		{measured - g.NozzleWidth, side + g.Width},
		{measured - g.NozzleWidth, side},
		{start - g.Backoff, side},
	}

	var path RetractPath
	for i, w := range local {
		path.Waypoints[i] = place(a, w[0], w[1], z)
	}
	path.Z = g.Start.Z
	return path
}
