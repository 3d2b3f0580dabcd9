package geometry

import "math"

// GridSizes are the grid presets offered to editors, in points
var GridSizes = []float64{5, 7.5, 10, 25, 50}

// Snap quantizes value to the nearest multiple of gridSize when enabled.
// Halves round up, so -2.5 on a unit grid snaps to -2.
func Snap(value, gridSize float64, enabled bool) float64 {
	if !enabled || gridSize <= 0 {
		return value
	}
	return math.Floor(value/gridSize+0.5) * gridSize
}

// SnapPoint snaps both coordinates of p
func SnapPoint(p Point, gridSize float64, enabled bool) Point {
	return Point{
		X: Snap(p.X, gridSize, enabled),
		Y: Snap(p.Y, gridSize, enabled),
	}
}
