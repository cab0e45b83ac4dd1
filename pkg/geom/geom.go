// Package geom provides the geometric primitives for point pattern
// analysis: points, observation windows, and the distance computations
// the statistics engine is built on.
package geom

import "math"

// Point is an immutable 2D coordinate. A point has no identity beyond
// its position; duplicate coordinates are permitted and meaningful in
// some patterns.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance returns the Euclidean distance to q.
func (p Point) Distance(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// DistanceSq returns the squared Euclidean distance to q. Hot loops use
// this to defer the square root until a candidate survives filtering.
func (p Point) DistanceSq(q Point) float64 {
	dx := p.X - q.X
	dy := p.Y - q.Y
	return dx*dx + dy*dy
}

// distPointSegment returns the minimum distance from p to the segment ab.
func distPointSegment(p, a, b Point) float64 {
	abx := b.X - a.X
	aby := b.Y - a.Y
	lenSq := abx*abx + aby*aby
	if lenSq == 0 {
		return p.Distance(a)
	}
	t := ((p.X-a.X)*abx + (p.Y-a.Y)*aby) / lenSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return p.Distance(Point{X: a.X + t*abx, Y: a.Y + t*aby})
}
