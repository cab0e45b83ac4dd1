// Package edge implements edge-effect corrections for distance-based
// statistics on bounded observation windows. Points near the boundary
// see only part of their neighbourhood; the correction weight scales
// their contribution back up.
package edge

import (
	"math"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/mlange-42/ppa/pkg/geom"
)

// ErrNumericInstability reports a correction denominator that collapsed
// beyond the recoverable border fallback.
var ErrNumericInstability = eris.New("edge: numeric instability in correction weight")

// ErrUnknownCorrection reports an unrecognised correction name.
var ErrUnknownCorrection = eris.New("edge: unknown correction method")

// Correction selects an edge-correction method.
type Correction uint8

const (
	// None applies no correction; every pair weighs 1.
	None Correction = iota
	// Border discards points closer to the boundary than the query
	// distance. Simple, unbiased, wasteful for small windows.
	Border
	// Isotropic is Ripley's correction: the inverse fraction of the
	// circle through the neighbour that lies inside the window.
	Isotropic
	// Translation weighs a pair by |W| over the area of the overlap of
	// the window with itself shifted by the pair vector.
	Translation
)

// String returns the lower-case method name.
func (c Correction) String() string {
	switch c {
	case None:
		return "none"
	case Border:
		return "border"
	case Isotropic:
		return "isotropic"
	case Translation:
		return "translation"
	default:
		return "unknown"
	}
}

// Parse maps a method name to its Correction value.
func Parse(s string) (Correction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "":
		return None, nil
	case "border":
		return Border, nil
	case "isotropic", "ripley":
		return Isotropic, nil
	case "translation", "translate":
		return Translation, nil
	default:
		return None, eris.Wrapf(ErrUnknownCorrection, "edge: %q", s)
	}
}

const (
	// denomEps is the smallest denominator accepted before a method
	// degrades to the border fallback.
	denomEps = 1e-9
	// circleSteps is the angular resolution of the numeric circle-window
	// intersection used by the isotropic correction.
	circleSteps = 1024
	// overlapGrid is the per-axis sample count of the numeric window
	// self-overlap used by the translation correction on non-rectangular
	// windows.
	overlapGrid = 48
)

// Weight returns the correction factor for observing neighbor from p at
// distance r inside w. Correction factors are at least 1 except for the
// border method, which returns 0 for discarded points. A negative r is
// rejected, and a denominator collapsing below the border fallback
// reports ErrNumericInstability.
func Weight(p, neighbor geom.Point, r float64, w geom.Window, method Correction) (float64, error) {
	if r < 0 {
		return 0, eris.Wrapf(ErrNumericInstability, "edge: negative radius %g", r)
	}
	switch method {
	case None:
		return 1, nil
	case Border:
		return borderWeight(p, r, w), nil
	case Isotropic:
		return isotropicWeight(p, r, w)
	case Translation:
		return translationWeight(p, neighbor, r, w)
	default:
		return 0, eris.Wrapf(ErrUnknownCorrection, "edge: correction %d", method)
	}
}

func borderWeight(p geom.Point, r float64, w geom.Window) float64 {
	if w.DistanceToBoundary(p) >= r {
		return 1
	}
	return 0
}

// isotropicWeight computes 1 over the fraction of the circle of radius r
// around p that lies inside w. The fraction is integrated numerically at
// fixed angular steps, which is exact enough for all window variants and
// keeps the three variants on one code path.
func isotropicWeight(p geom.Point, r float64, w geom.Window) (float64, error) {
	if r == 0 || w.DistanceToBoundary(p) >= r {
		return 1, nil
	}
	inside := 0
	step := 2 * math.Pi / circleSteps
	for i := 0; i < circleSteps; i++ {
		a := float64(i) * step
		q := geom.Point{X: p.X + r*math.Cos(a), Y: p.Y + r*math.Sin(a)}
		if w.Contains(q) {
			inside++
		}
	}
	frac := float64(inside) / circleSteps
	if frac < denomEps {
		// The circle has essentially left the window; fall back to the
		// border method rather than dividing by near-zero.
		if bw := borderWeight(p, r, w); bw > 0 {
			return bw, nil
		}
		if !w.Contains(p) {
			return 0, eris.Wrapf(ErrNumericInstability,
				"edge: isotropic fraction underflow at r=%g for exterior point", r)
		}
		return 0, nil
	}
	wgt := 1 / frac
	if wgt < 1 {
		wgt = 1
	}
	return wgt, nil
}

// translationWeight computes |W| / |W ∩ W+v| for the pair vector v.
// Exact for rectangles; sampled on a fixed grid for discs and polygons.
func translationWeight(p, neighbor geom.Point, r float64, w geom.Window) (float64, error) {
	v := geom.Point{X: neighbor.X - p.X, Y: neighbor.Y - p.Y}
	area := w.Area()

	var overlap float64
	switch win := w.(type) {
	case geom.Rect:
		ox := win.Width() - math.Abs(v.X)
		oy := win.Height() - math.Abs(v.Y)
		if ox <= 0 || oy <= 0 {
			overlap = 0
		} else {
			overlap = ox * oy
		}
	case geom.Disc, *geom.Polygon:
		overlap = sampledOverlap(w, v)
	default:
		overlap = sampledOverlap(w, v)
	}

	if overlap < denomEps*area {
		// Degenerate shift; degrade to the border method.
		return borderWeight(p, r, w), nil
	}
	wgt := area / overlap
	if wgt < 1 {
		wgt = 1
	}
	return wgt, nil
}

// sampledOverlap estimates |W ∩ W+v| by testing a fixed grid over the
// window bounds: a sample x is in the overlap iff x and x-v are both in W.
func sampledOverlap(w geom.Window, v geom.Point) float64 {
	b := w.Bounds()
	dx := b.Width() / overlapGrid
	dy := b.Height() / overlapGrid

	hits := 0
	for iy := 0; iy < overlapGrid; iy++ {
		y := b.YMin + (float64(iy)+0.5)*dy
		for ix := 0; ix < overlapGrid; ix++ {
			x := b.XMin + (float64(ix)+0.5)*dx
			q := geom.Point{X: x, Y: y}
			if w.Contains(q) && w.Contains(geom.Point{X: x - v.X, Y: y - v.Y}) {
				hits++
			}
		}
	}
	return float64(hits) / (overlapGrid * overlapGrid) * b.Area()
}
