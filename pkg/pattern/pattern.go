// Package pattern defines the immutable point pattern type and the grid
// spatial index that backs its neighbourhood queries.
package pattern

import (
	"sync"

	"github.com/rotisserie/eris"

	"github.com/mlange-42/ppa/pkg/geom"
)

// ContainmentTol is the floating tolerance applied when checking that a
// pattern's points lie inside its window.
const ContainmentTol = 1e-9

// ErrPointOutsideWindow reports a pattern constructed with a point
// outside its observation window.
var ErrPointOutsideWindow = eris.New("pattern: point outside window")

// Neighbor is one result of a k-nearest query.
type Neighbor struct {
	Index    int
	Distance float64
}

// Pattern is an immutable point pattern: an ordered sequence of points
// observed in a window. The spatial index over the points is built on
// first use, exactly once, and is safe for concurrent queries.
type Pattern struct {
	points []geom.Point
	window geom.Window

	once  sync.Once
	index *gridIndex
}

// New constructs a pattern after validating that every point lies inside
// the window within ContainmentTol. The point slice is copied.
func New(points []geom.Point, w geom.Window) (*Pattern, error) {
	if w == nil {
		return nil, eris.Wrap(geom.ErrInvalidGeometry, "pattern: nil window")
	}
	for i, p := range points {
		if !insideTol(w, p) {
			return nil, eris.Wrapf(ErrPointOutsideWindow,
				"pattern: point %d at (%g, %g) lies outside the window", i, p.X, p.Y)
		}
	}
	pts := make([]geom.Point, len(points))
	copy(pts, points)
	return &Pattern{points: pts, window: w}, nil
}

// insideTol applies the containment tolerance per window variant.
func insideTol(w geom.Window, p geom.Point) bool {
	if w.Contains(p) {
		return true
	}
	switch v := w.(type) {
	case geom.Rect:
		return p.X >= v.XMin-ContainmentTol && p.X <= v.XMax+ContainmentTol &&
			p.Y >= v.YMin-ContainmentTol && p.Y <= v.YMax+ContainmentTol
	case geom.Disc:
		return p.Distance(v.Center) <= v.Radius+ContainmentTol
	case *geom.Polygon:
		return v.DistanceToBoundary(p) <= ContainmentTol
	}
	return false
}

// Len returns the number of points.
func (p *Pattern) Len() int { return len(p.points) }

// At returns the point at index i.
func (p *Pattern) At(i int) geom.Point { return p.points[i] }

// Points returns a copy of the point slice. Mutating the copy leaves
// the pattern untouched.
func (p *Pattern) Points() []geom.Point {
	out := make([]geom.Point, len(p.points))
	copy(out, p.points)
	return out
}

// Window returns the observation window.
func (p *Pattern) Window() geom.Window { return p.window }

// Intensity returns the estimated point density n / |W|.
func (p *Pattern) Intensity() float64 {
	return float64(len(p.points)) / p.window.Area()
}

func (p *Pattern) idx() *gridIndex {
	p.once.Do(func() {
		p.index = buildGrid(p.points, p.window)
	})
	return p.index
}

// Neighbors returns the indices of all points within distance r of
// center, boundary inclusive, in ascending index order. A point of the
// pattern located exactly at center is included; use the statistics
// helpers or Nearest with an exclude index to skip a query point that is
// itself a member.
func (p *Pattern) Neighbors(center geom.Point, r float64) []int {
	if r < 0 {
		return nil
	}
	return p.idx().neighbors(center, r)
}

// Nearest returns the index of and distance to the pattern point nearest
// to center. The point with index exclude is skipped; pass -1 to
// consider all points. Ties are broken by the lower index. Returns
// (-1, +Inf) when no candidate exists.
func (p *Pattern) Nearest(center geom.Point, exclude int) (int, float64) {
	return p.idx().nearest(center, exclude)
}

// KNearest returns up to k pattern points nearest to center, ordered by
// distance with index order breaking ties. The point with index exclude
// is skipped; pass -1 to consider all points.
func (p *Pattern) KNearest(center geom.Point, k int, exclude int) []Neighbor {
	if k <= 0 {
		return nil
	}
	return p.idx().kNearest(center, k, exclude)
}
