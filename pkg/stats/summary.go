package stats

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/mlange-42/ppa/pkg/geom"
	"github.com/mlange-42/ppa/pkg/pattern"
)

// NNSummary describes the nearest-neighbour structure of a pattern.
type NNSummary struct {
	// Mean is the average nearest-neighbour distance.
	Mean float64 `json:"mean"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	// ClarkEvans is the ratio of Mean to the expectation 0.5/sqrt(lambda)
	// under complete spatial randomness: below 1 indicates clustering,
	// above 1 dispersion.
	ClarkEvans float64 `json:"clark_evans"`
}

// AvgNearestNeighbor computes the average nearest-neighbour distance and
// the Clark-Evans index. Requires at least two points.
func AvgNearestNeighbor(pat *pattern.Pattern) (*NNSummary, error) {
	n := pat.Len()
	if n < 2 {
		return nil, eris.Wrapf(ErrInsufficientPoints, "stats: avg-nn needs at least 2 points, got %d", n)
	}

	sum := 0.0
	min := math.Inf(1)
	max := math.Inf(-1)
	for i := 0; i < n; i++ {
		_, d := pat.Nearest(pat.At(i), i)
		sum += d
		if d < min {
			min = d
		}
		if d > max {
			max = d
		}
	}
	mean := sum / float64(n)
	expected := 0.5 / math.Sqrt(pat.Intensity())
	return &NNSummary{
		Mean:       mean,
		Min:        min,
		Max:        max,
		ClarkEvans: mean / expected,
	}, nil
}

// Jaccard computes the Jaccard similarity of two patterns over a shared
// occupancy grid with the given cell size: the number of cells occupied
// by both patterns over the number occupied by either. Cell indices are
// anchored at the origin so the measure does not depend on either
// window's placement.
func Jaccard(a, b *pattern.Pattern, cell float64) (float64, error) {
	if cell <= 0 || math.IsNaN(cell) {
		return 0, eris.Wrapf(ErrInvalidParameter, "stats: jaccard cell size %g is not positive", cell)
	}
	if a.Len() == 0 && b.Len() == 0 {
		return 0, eris.Wrap(ErrInsufficientPoints, "stats: jaccard of two empty patterns")
	}

	occ := map[[2]int]uint8{}
	mark := func(pts []geom.Point, bit uint8) {
		for _, p := range pts {
			key := [2]int{
				int(math.Floor(p.X / cell)),
				int(math.Floor(p.Y / cell)),
			}
			occ[key] |= bit
		}
	}
	mark(a.Points(), 1)
	mark(b.Points(), 2)

	both := 0
	for _, v := range occ {
		if v == 3 {
			both++
		}
	}
	return float64(both) / float64(len(occ)), nil
}
