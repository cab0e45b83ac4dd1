package geom

import (
	"math"

	"github.com/rotisserie/eris"
)

// ErrInvalidGeometry reports a window that cannot be constructed:
// non-positive extent, too few vertices, or a self-intersecting ring.
var ErrInvalidGeometry = eris.New("geom: invalid geometry")

// Window is the observation region of a point pattern. The variant set
// is closed: Rect, Disc and Polygon. Consumers that need per-variant
// behaviour switch exhaustively over these three types.
type Window interface {
	// Area returns the area of the region. Positive for every
	// successfully constructed window.
	Area() float64
	// Contains reports whether p lies inside the region, boundary
	// inclusive.
	Contains(p Point) bool
	// DistanceToBoundary returns the minimum distance from p to the
	// region boundary. For Rect and Disc the result is negative when p
	// lies outside; for Polygon it is the unsigned ring distance.
	DistanceToBoundary(p Point) float64
	// Bounds returns the axis-aligned bounding rectangle of the region.
	Bounds() Rect
}

// Rect is an axis-aligned rectangular window.
type Rect struct {
	XMin float64 `json:"xmin"`
	XMax float64 `json:"xmax"`
	YMin float64 `json:"ymin"`
	YMax float64 `json:"ymax"`
}

// NewRect constructs a rectangular window. Both extents must be positive.
func NewRect(xmin, xmax, ymin, ymax float64) (Rect, error) {
	if !isFinite(xmin) || !isFinite(xmax) || !isFinite(ymin) || !isFinite(ymax) {
		return Rect{}, eris.Wrap(ErrInvalidGeometry, "geom: rectangle with non-finite coordinate")
	}
	if xmax <= xmin || ymax <= ymin {
		return Rect{}, eris.Wrapf(ErrInvalidGeometry,
			"geom: rectangle [%g,%g]x[%g,%g] has non-positive extent", xmin, xmax, ymin, ymax)
	}
	return Rect{XMin: xmin, XMax: xmax, YMin: ymin, YMax: ymax}, nil
}

// Width returns the horizontal extent.
func (r Rect) Width() float64 { return r.XMax - r.XMin }

// Height returns the vertical extent.
func (r Rect) Height() float64 { return r.YMax - r.YMin }

// ShorterSide returns the smaller of width and height.
func (r Rect) ShorterSide() float64 {
	return math.Min(r.Width(), r.Height())
}

// Area returns width times height.
func (r Rect) Area() float64 { return r.Width() * r.Height() }

// Contains reports whether p lies inside the rectangle, boundary inclusive.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.XMin && p.X <= r.XMax && p.Y >= r.YMin && p.Y <= r.YMax
}

// DistanceToBoundary returns the minimum distance from p to the four
// sides. Negative when p is outside the rectangle.
func (r Rect) DistanceToBoundary(p Point) float64 {
	d := math.Min(p.X-r.XMin, r.XMax-p.X)
	d = math.Min(d, p.Y-r.YMin)
	return math.Min(d, r.YMax-p.Y)
}

// Bounds returns the rectangle itself.
func (r Rect) Bounds() Rect { return r }

// Disc is a circular window.
type Disc struct {
	Center Point   `json:"center"`
	Radius float64 `json:"radius"`
}

// NewDisc constructs a circular window with positive radius.
func NewDisc(center Point, radius float64) (Disc, error) {
	if !isFinite(center.X) || !isFinite(center.Y) || !isFinite(radius) {
		return Disc{}, eris.Wrap(ErrInvalidGeometry, "geom: disc with non-finite coordinate")
	}
	if radius <= 0 {
		return Disc{}, eris.Wrapf(ErrInvalidGeometry, "geom: disc radius %g is not positive", radius)
	}
	return Disc{Center: center, Radius: radius}, nil
}

// Area returns pi times the squared radius.
func (d Disc) Area() float64 { return math.Pi * d.Radius * d.Radius }

// Contains reports whether p lies inside the disc, boundary inclusive.
func (d Disc) Contains(p Point) bool {
	return p.DistanceSq(d.Center) <= d.Radius*d.Radius
}

// DistanceToBoundary returns the distance from p to the circle.
// Negative when p is outside the disc.
func (d Disc) DistanceToBoundary(p Point) float64 {
	return d.Radius - p.Distance(d.Center)
}

// Bounds returns the bounding square of the disc.
func (d Disc) Bounds() Rect {
	return Rect{
		XMin: d.Center.X - d.Radius,
		XMax: d.Center.X + d.Radius,
		YMin: d.Center.Y - d.Radius,
		YMax: d.Center.Y + d.Radius,
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
