package stats

import (
	"math"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/mlange-42/ppa/pkg/edge"
	"github.com/mlange-42/ppa/pkg/geom"
	"github.com/mlange-42/ppa/pkg/pattern"
)

// Empty-space sample counts: emptySpaceFactor locations per pattern
// point, capped at emptySpaceCap.
const (
	emptySpaceFactor = 100
	emptySpaceCap    = 10000
)

// G computes the nearest-neighbour distance distribution: the fraction
// of pattern points whose nearest-neighbour distance is at most r. With
// a correction other than None, the reduced-sample (border) estimator is
// used. Requires at least two points.
func G(pat *pattern.Pattern, radii []float64, corr edge.Correction) (*Curve, error) {
	if pat.Len() < 2 {
		return nil, eris.Wrapf(ErrInsufficientPoints, "stats: G needs at least 2 points, got %d", pat.Len())
	}
	radii, err := checkRadii(radii, pat.Window())
	if err != nil {
		return nil, err
	}

	n := pat.Len()
	dists := make([]float64, n)
	for i := 0; i < n; i++ {
		_, d := pat.Nearest(pat.At(i), i)
		dists[i] = d
	}

	var bounds []float64
	if corr != edge.None {
		bounds = boundaryDistances(pat.Points(), pat.Window())
	}
	return cdfCurve("G", radii, dists, bounds), nil
}

// F computes the empty-space function: the fraction of reference
// locations whose distance to the nearest pattern point is at most r.
// Locations are placed deterministically on a stratified grid over the
// window, min(100 n, 10000) of them. Requires at least one point.
func F(pat *pattern.Pattern, radii []float64, corr edge.Correction) (*Curve, error) {
	if pat.Len() < 1 {
		return nil, eris.Wrap(ErrInsufficientPoints, "stats: F needs a non-empty pattern")
	}
	radii, err := checkRadii(radii, pat.Window())
	if err != nil {
		return nil, err
	}

	locs := emptySpaceLocations(pat.Window(), pat.Len())
	dists := make([]float64, len(locs))
	for i, loc := range locs {
		_, d := pat.Nearest(loc, -1)
		dists[i] = d
	}

	var bounds []float64
	if corr != edge.None {
		bounds = boundaryDistances(locs, pat.Window())
	}
	return cdfCurve("F", radii, dists, bounds), nil
}

// K computes Ripley's K-function: |W| / n^2 times the edge-corrected
// count of ordered point pairs within distance r. Requires at least two
// points.
func K(pat *pattern.Pattern, radii []float64, corr edge.Correction) (*Curve, error) {
	return ripleyK(pat, radii, corr, "K")
}

// L computes the variance-stabilised transform L(r) = sqrt(K(r)/pi) - r.
// Under complete spatial randomness, L(r) is approximately 0 for all r.
func L(pat *pattern.Pattern, radii []float64, corr edge.Correction) (*Curve, error) {
	c, err := ripleyK(pat, radii, corr, "L")
	if err != nil {
		return nil, err
	}
	for i, s := range c.Samples {
		c.Samples[i].Value = math.Sqrt(s.Value/math.Pi) - s.R
	}
	return c, nil
}

func ripleyK(pat *pattern.Pattern, radii []float64, corr edge.Correction, name string) (*Curve, error) {
	if pat.Len() < 2 {
		return nil, eris.Wrapf(ErrInsufficientPoints, "stats: %s needs at least 2 points, got %d", name, pat.Len())
	}
	radii, err := checkRadii(radii, pat.Window())
	if err != nil {
		return nil, err
	}

	n := pat.Len()
	w := pat.Window()
	area := w.Area()
	rmax := radii[len(radii)-1]

	counts := make([]float64, len(radii))
	if corr == edge.Border {
		// Border exclusion depends on the sampled radius, not the pair
		// distance: a pair counts at r only while d <= r and the source
		// point keeps boundary distance >= r. Each pair therefore spans
		// a radius interval, accumulated through a difference array.
		diff := make([]float64, len(radii)+1)
		for i := 0; i < n; i++ {
			pi := pat.At(i)
			bi := w.DistanceToBoundary(pi)
			for _, j := range pat.Neighbors(pi, rmax) {
				if j == i {
					continue
				}
				d := pi.Distance(pat.At(j))
				lo := sort.SearchFloat64s(radii, d)
				hi := sort.Search(len(radii), func(k int) bool { return radii[k] > bi })
				if lo < hi {
					diff[lo]++
					diff[hi]--
				}
			}
		}
		run := 0.0
		for j := range radii {
			run += diff[j]
			counts[j] = run
		}
	} else {
		// Ripley-style weights are fixed at the pair distance: bin
		// there, then accumulate by a prefix sum.
		binned := make([]float64, len(radii))
		for i := 0; i < n; i++ {
			pi := pat.At(i)
			for _, j := range pat.Neighbors(pi, rmax) {
				if j == i {
					continue
				}
				pj := pat.At(j)
				d := pi.Distance(pj)
				wgt, werr := edge.Weight(pi, pj, d, w, corr)
				if werr != nil {
					return nil, werr
				}
				idx := sort.SearchFloat64s(radii, d)
				if idx < len(radii) {
					binned[idx] += wgt
				}
			}
		}
		cum := 0.0
		for j := range radii {
			cum += binned[j]
			counts[j] = cum
		}
	}

	c := &Curve{Name: name, Samples: make([]Sample, len(radii))}
	norm := area / float64(n) / float64(n)
	for j, r := range radii {
		c.Samples[j] = Sample{R: r, Value: norm * counts[j]}
	}
	return c, nil
}

// PCF computes the pair correlation function g(r) by kernel-smoothing
// the edge-corrected pairwise distance density with an Epanechnikov
// kernel. The bandwidth follows Silverman's rule over the observed pair
// distances, falling back to Stoyan's rule 0.15 / sqrt(lambda) when the
// distance sample is degenerate. Requires at least two points.
func PCF(pat *pattern.Pattern, radii []float64, corr edge.Correction) (*Curve, error) {
	if pat.Len() < 2 {
		return nil, eris.Wrapf(ErrInsufficientPoints, "stats: pcf needs at least 2 points, got %d", pat.Len())
	}
	radii, err := checkRadii(radii, pat.Window())
	if err != nil {
		return nil, err
	}
	// g(0) is undefined; drop a leading zero radius.
	if radii[0] == 0 {
		radii = radii[1:]
		if len(radii) == 0 {
			return nil, eris.Wrap(ErrInvalidParameter, "stats: pcf needs a positive radius")
		}
	}

	n := pat.Len()
	w := pat.Window()
	area := w.Area()
	rmax := radii[len(radii)-1]
	lambda := pat.Intensity()

	type pair struct {
		d, w float64
		// bound caps the radii at which the pair counts under Border;
		// +Inf for the other corrections.
		bound float64
	}
	var pairs []pair
	var dists []float64

	// Collect pairs slightly past rmax so the kernel sees mass beyond
	// the last sampled radius.
	margin := rmax * 1.25
	for i := 0; i < n; i++ {
		pi := pat.At(i)
		bi := math.Inf(1)
		if corr == edge.Border {
			bi = w.DistanceToBoundary(pi)
		}
		for _, j := range pat.Neighbors(pi, margin) {
			if j == i {
				continue
			}
			pj := pat.At(j)
			d := pi.Distance(pj)
			wgt := 1.0
			if corr != edge.Border {
				var werr error
				wgt, werr = edge.Weight(pi, pj, d, w, corr)
				if werr != nil {
					return nil, werr
				}
			}
			pairs = append(pairs, pair{d: d, w: wgt, bound: bi})
			dists = append(dists, d)
		}
	}

	h := silvermanBandwidth(dists)
	if !(h > 0) {
		h = 0.15 / math.Sqrt(lambda)
		zap.L().Debug("stats: degenerate pair distances, using Stoyan bandwidth",
			zap.Float64("bandwidth", h))
	}

	c := &Curve{Name: "pcf", Samples: make([]Sample, len(radii))}
	norm := area / (2 * math.Pi * float64(n) * float64(n))
	for j, r := range radii {
		sum := 0.0
		for _, p := range pairs {
			if p.bound < r {
				continue
			}
			sum += p.w * epanechnikov(r-p.d, h)
		}
		c.Samples[j] = Sample{R: r, Value: norm * sum / r}
	}
	return c, nil
}

// epanechnikov evaluates the Epanechnikov kernel with bandwidth h at u.
func epanechnikov(u, h float64) float64 {
	t := u / h
	if t <= -1 || t >= 1 {
		return 0
	}
	return 0.75 * (1 - t*t) / h
}

// silvermanBandwidth applies Silverman's rule of thumb
// 0.9 min(sd, iqr/1.34) m^(-1/5) to the distance sample. Returns 0 for
// samples too small or too concentrated to yield a usable bandwidth.
func silvermanBandwidth(dists []float64) float64 {
	if len(dists) < 2 {
		return 0
	}
	sorted := make([]float64, len(dists))
	copy(sorted, dists)
	sort.Float64s(sorted)

	sd := stat.StdDev(sorted, nil)
	iqr := stat.Quantile(0.75, stat.Empirical, sorted, nil) -
		stat.Quantile(0.25, stat.Empirical, sorted, nil)

	spread := sd
	if iqr > 0 && iqr/1.34 < spread {
		spread = iqr / 1.34
	}
	if !(spread > 0) {
		return 0
	}
	return 0.9 * spread * math.Pow(float64(len(sorted)), -0.2)
}

// cdfCurve builds the (optionally reduced-sample) empirical CDF of the
// given distances over the radius grid. With bounds present, a distance
// enters the estimate at radius r only while its reference location is
// at least r from the window boundary.
func cdfCurve(name string, radii, dists, bounds []float64) *Curve {
	c := &Curve{Name: name, Samples: make([]Sample, len(radii))}
	prev := 0.0
	for j, r := range radii {
		var num, den int
		for i, d := range dists {
			if bounds != nil && bounds[i] < r {
				continue
			}
			den++
			if d <= r {
				num++
			}
		}
		v := prev
		if den > 0 {
			v = float64(num) / float64(den)
			// Reduced sampling shrinks the denominator with r; the
			// ratio alone can dip. A CDF never decreases.
			if v < prev {
				v = prev
			}
		}
		c.Samples[j] = Sample{R: r, Value: v}
		prev = v
	}
	return c
}

// boundaryDistances returns the boundary distance of every point.
func boundaryDistances(pts []geom.Point, w geom.Window) []float64 {
	out := make([]float64, len(pts))
	for i, p := range pts {
		out[i] = w.DistanceToBoundary(p)
	}
	return out
}

// emptySpaceLocations places reference locations on a stratified grid
// over the window, keeping only those inside it. Deterministic, so F is
// reproducible without threading a random source through.
func emptySpaceLocations(w geom.Window, n int) []geom.Point {
	m := n * emptySpaceFactor
	if m > emptySpaceCap {
		m = emptySpaceCap
	}
	if m < 1 {
		m = 1
	}
	side := int(math.Ceil(math.Sqrt(float64(m))))
	b := w.Bounds()
	dx := b.Width() / float64(side)
	dy := b.Height() / float64(side)

	locs := make([]geom.Point, 0, side*side)
	for iy := 0; iy < side; iy++ {
		y := b.YMin + (float64(iy)+0.5)*dy
		for ix := 0; ix < side; ix++ {
			p := geom.Point{X: b.XMin + (float64(ix)+0.5)*dx, Y: y}
			if w.Contains(p) {
				locs = append(locs, p)
			}
		}
	}
	return locs
}
