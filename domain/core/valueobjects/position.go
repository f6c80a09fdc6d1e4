package valueobjects

import "math"

// Position is a value object representing node coordinates on the canvas
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NewPosition creates a position, clamping non-finite coordinates to zero.
// Positions arrive from drag events and must always be renderable.
func NewPosition(x, y float64) Position {
	if !isFinite(x) {
		x = 0
	}
	if !isFinite(y) {
		y = 0
	}
	return Position{X: x, Y: y}
}

// DistanceTo calculates the Euclidean distance to another position
func (p Position) DistanceTo(other Position) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// MovedBeyond reports whether the position differs from other by more than
// tolerance on either axis. Used to suppress upserts on floating-point jitter.
func (p Position) MovedBeyond(other Position, tolerance float64) bool {
	return math.Abs(p.X-other.X) > tolerance || math.Abs(p.Y-other.Y) > tolerance
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
