package geom

import (
	"math"

	"github.com/rotisserie/eris"
	geomgo "github.com/twpayne/go-geom"
)

// Polygon is a simple (non-self-intersecting) polygonal window. Only the
// exterior ring is used; holes are not supported. The ring is backed by a
// go-geom polygon so it can be exchanged with GeoJSON and other codecs
// without conversion.
type Polygon struct {
	ring   []Point
	g      *geomgo.Polygon
	area   float64
	bounds Rect
}

// NewPolygon constructs a polygonal window from its vertices. The ring
// may be given open or closed; a closing vertex equal to the first is
// dropped. Construction fails with ErrInvalidGeometry for fewer than
// three distinct vertices, zero area, or a self-intersecting ring.
func NewPolygon(vertices []Point) (*Polygon, error) {
	ring := make([]Point, len(vertices))
	copy(ring, vertices)
	if n := len(ring); n > 1 && ring[0] == ring[n-1] {
		ring = ring[:n-1]
	}
	if len(ring) < 3 {
		return nil, eris.Wrapf(ErrInvalidGeometry, "geom: polygon needs at least 3 vertices, got %d", len(ring))
	}
	for _, v := range ring {
		if !isFinite(v.X) || !isFinite(v.Y) {
			return nil, eris.Wrap(ErrInvalidGeometry, "geom: polygon with non-finite vertex")
		}
	}
	if err := checkSimple(ring); err != nil {
		return nil, err
	}

	flat := make([]float64, 0, 2*(len(ring)+1))
	for _, v := range ring {
		flat = append(flat, v.X, v.Y)
	}
	flat = append(flat, ring[0].X, ring[0].Y)
	g := geomgo.NewPolygonFlat(geomgo.XY, flat, []int{len(flat)})

	area := math.Abs(g.Area())
	if area <= 0 {
		return nil, eris.Wrap(ErrInvalidGeometry, "geom: polygon has zero area")
	}

	b := g.Bounds()
	return &Polygon{
		ring: ring,
		g:    g,
		area: area,
		bounds: Rect{
			XMin: b.Min(0), XMax: b.Max(0),
			YMin: b.Min(1), YMax: b.Max(1),
		},
	}, nil
}

// Vertices returns a copy of the (open) exterior ring.
func (pg *Polygon) Vertices() []Point {
	out := make([]Point, len(pg.ring))
	copy(out, pg.ring)
	return out
}

// GoGeom returns the backing go-geom polygon, shared for encoding only.
func (pg *Polygon) GoGeom() *geomgo.Polygon { return pg.g }

// Area returns the planar area of the exterior ring.
func (pg *Polygon) Area() float64 { return pg.area }

// Contains reports whether p lies inside the polygon. Points on the ring
// itself count as inside.
func (pg *Polygon) Contains(p Point) bool {
	if !pg.bounds.Contains(p) {
		return false
	}
	if rayCast(pg.ring, p) {
		return true
	}
	// Ray casting is unreliable exactly on the boundary; accept points
	// within floating distance of the ring.
	return pg.DistanceToBoundary(p) <= 1e-12
}

// DistanceToBoundary returns the unsigned minimum distance from p to the
// exterior ring.
func (pg *Polygon) DistanceToBoundary(p Point) float64 {
	min := math.Inf(1)
	n := len(pg.ring)
	for i := 0; i < n; i++ {
		d := distPointSegment(p, pg.ring[i], pg.ring[(i+1)%n])
		if d < min {
			min = d
		}
	}
	return min
}

// Bounds returns the bounding rectangle of the ring.
func (pg *Polygon) Bounds() Rect { return pg.bounds }

// rayCast runs the even-odd crossing rule for p against the ring.
func rayCast(ring []Point, p Point) bool {
	inside := false
	n := len(ring)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := ring[i], ring[j]
		if (a.Y > p.Y) != (b.Y > p.Y) &&
			p.X < (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y)+a.X {
			inside = !inside
		}
	}
	return inside
}

// checkSimple rejects rings whose non-adjacent segments intersect.
// Quadratic in the vertex count, which is acceptable for observation
// windows with up to a few thousand vertices.
func checkSimple(ring []Point) error {
	n := len(ring)
	for i := 0; i < n; i++ {
		a1 := ring[i]
		a2 := ring[(i+1)%n]
		for j := i + 1; j < n; j++ {
			// Skip segments sharing an endpoint with segment i.
			if j == i+1 || (i == 0 && j == n-1) {
				continue
			}
			b1 := ring[j]
			b2 := ring[(j+1)%n]
			if segmentsIntersect(a1, a2, b1, b2) {
				return eris.Wrapf(ErrInvalidGeometry,
					"geom: polygon ring self-intersects between edges %d and %d", i, j)
			}
		}
	}
	return nil
}

// segmentsIntersect reports whether segments ab and cd intersect,
// including collinear overlap.
func segmentsIntersect(a, b, c, d Point) bool {
	o1 := orientation(a, b, c)
	o2 := orientation(a, b, d)
	o3 := orientation(c, d, a)
	o4 := orientation(c, d, b)

	if o1 != o2 && o3 != o4 {
		return true
	}
	if o1 == 0 && onSegment(a, c, b) {
		return true
	}
	if o2 == 0 && onSegment(a, d, b) {
		return true
	}
	if o3 == 0 && onSegment(c, a, d) {
		return true
	}
	if o4 == 0 && onSegment(c, b, d) {
		return true
	}
	return false
}

// orientation returns the sign of the cross product (b-a) x (c-a):
// 1 counter-clockwise, -1 clockwise, 0 collinear.
func orientation(a, b, c Point) int {
	v := (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// onSegment reports whether collinear point q lies within segment pr.
func onSegment(p, q, r Point) bool {
	return q.X >= math.Min(p.X, r.X) && q.X <= math.Max(p.X, r.X) &&
		q.Y >= math.Min(p.Y, r.Y) && q.Y <= math.Max(p.Y, r.Y)
}
