// Package sim generates synthetic point patterns under canonical null
// models: the homogeneous Poisson process (complete spatial randomness)
// and the Matérn and Thomas cluster processes.
package sim

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/mlange-42/ppa/pkg/geom"
	"github.com/mlange-42/ppa/pkg/pattern"
)

// ErrInvalidParameter reports a process specification with non-positive
// intensities or spreads.
var ErrInvalidParameter = eris.New("sim: invalid parameter")

// seedMix decorrelates the two PCG seed words derived from one user seed.
const seedMix = 0x9e3779b97f4a7c15

// Process is a point process specification. The variant set is closed:
// PoissonCSR, MaternCluster and ThomasCluster.
type Process interface {
	// Name returns the short process identifier used by the CLI and the
	// run store.
	Name() string
	// String describes the process with its parameters.
	String() string
	// Validate checks the process parameters.
	Validate() error
	// generate draws one realisation inside w from rnd.
	generate(w geom.Window, rnd *rand.Rand) []geom.Point
}

// Simulate draws one realisation of proc inside w. The same window,
// process and seed always produce the same pattern; the random source is
// derived from the seed alone and never from global state.
func Simulate(w geom.Window, proc Process, seed uint64) (*pattern.Pattern, error) {
	if w == nil {
		return nil, eris.Wrap(geom.ErrInvalidGeometry, "sim: nil window")
	}
	if proc == nil {
		return nil, eris.Wrap(ErrInvalidParameter, "sim: nil process")
	}
	if err := proc.Validate(); err != nil {
		return nil, err
	}
	rnd := rand.New(rand.NewPCG(seed, seed^seedMix))
	return pattern.New(proc.generate(w, rnd), w)
}

// PoissonCSR is the homogeneous Poisson process with the given expected
// points per unit area.
type PoissonCSR struct {
	Intensity float64
}

// Name returns "poisson".
func (p PoissonCSR) Name() string { return "poisson" }

// String describes the process with its parameters.
func (p PoissonCSR) String() string {
	return fmt.Sprintf("poisson(intensity=%g)", p.Intensity)
}

// Validate checks that the intensity is positive.
func (p PoissonCSR) Validate() error {
	if p.Intensity <= 0 || math.IsNaN(p.Intensity) {
		return eris.Wrapf(ErrInvalidParameter, "sim: intensity %g is not positive", p.Intensity)
	}
	return nil
}

func (p PoissonCSR) generate(w geom.Window, rnd *rand.Rand) []geom.Point {
	n := poissonCount(p.Intensity*w.Area(), rnd)
	pts := make([]geom.Point, n)
	for i := range pts {
		pts[i] = uniformInWindow(w, rnd)
	}
	return pts
}

// MaternCluster generates Poisson parents and a Poisson number of
// offspring placed uniformly in a disc of the given radius around each
// parent. Offspring falling outside the window are dropped.
type MaternCluster struct {
	// ParentIntensity is the expected parents per unit area.
	ParentIntensity float64
	// Radius is the cluster disc radius.
	Radius float64
	// Mu is the expected offspring per parent.
	Mu float64
}

// Name returns "matern".
func (p MaternCluster) Name() string { return "matern" }

// String describes the process with its parameters.
func (p MaternCluster) String() string {
	return fmt.Sprintf("matern(parents=%g, radius=%g, mu=%g)", p.ParentIntensity, p.Radius, p.Mu)
}

// Validate checks that all parameters are positive.
func (p MaternCluster) Validate() error {
	if p.ParentIntensity <= 0 || math.IsNaN(p.ParentIntensity) {
		return eris.Wrapf(ErrInvalidParameter, "sim: parent intensity %g is not positive", p.ParentIntensity)
	}
	if p.Radius <= 0 || math.IsNaN(p.Radius) {
		return eris.Wrapf(ErrInvalidParameter, "sim: cluster radius %g is not positive", p.Radius)
	}
	if p.Mu <= 0 || math.IsNaN(p.Mu) {
		return eris.Wrapf(ErrInvalidParameter, "sim: offspring mean %g is not positive", p.Mu)
	}
	return nil
}

func (p MaternCluster) generate(w geom.Window, rnd *rand.Rand) []geom.Point {
	var pts []geom.Point
	for _, parent := range poissonParents(p.ParentIntensity, w, rnd) {
		for k := poissonCount(p.Mu, rnd); k > 0; k-- {
			// Uniform draw in the cluster disc.
			r := p.Radius * math.Sqrt(rnd.Float64())
			a := 2 * math.Pi * rnd.Float64()
			q := geom.Point{X: parent.X + r*math.Cos(a), Y: parent.Y + r*math.Sin(a)}
			if w.Contains(q) {
				pts = append(pts, q)
			}
		}
	}
	return pts
}

// ThomasCluster generates Poisson parents and a Poisson number of
// offspring with isotropic Gaussian offsets around each parent.
// Offspring falling outside the window are dropped.
type ThomasCluster struct {
	// ParentIntensity is the expected parents per unit area.
	ParentIntensity float64
	// Sigma is the standard deviation of the offspring offsets.
	Sigma float64
	// Mu is the expected offspring per parent.
	Mu float64
}

// Name returns "thomas".
func (p ThomasCluster) Name() string { return "thomas" }

// String describes the process with its parameters.
func (p ThomasCluster) String() string {
	return fmt.Sprintf("thomas(parents=%g, sigma=%g, mu=%g)", p.ParentIntensity, p.Sigma, p.Mu)
}

// Validate checks that all parameters are positive.
func (p ThomasCluster) Validate() error {
	if p.ParentIntensity <= 0 || math.IsNaN(p.ParentIntensity) {
		return eris.Wrapf(ErrInvalidParameter, "sim: parent intensity %g is not positive", p.ParentIntensity)
	}
	if p.Sigma <= 0 || math.IsNaN(p.Sigma) {
		return eris.Wrapf(ErrInvalidParameter, "sim: sigma %g is not positive", p.Sigma)
	}
	if p.Mu <= 0 || math.IsNaN(p.Mu) {
		return eris.Wrapf(ErrInvalidParameter, "sim: offspring mean %g is not positive", p.Mu)
	}
	return nil
}

func (p ThomasCluster) generate(w geom.Window, rnd *rand.Rand) []geom.Point {
	normal := distuv.Normal{Mu: 0, Sigma: p.Sigma, Src: rnd}
	var pts []geom.Point
	for _, parent := range poissonParents(p.ParentIntensity, w, rnd) {
		for k := poissonCount(p.Mu, rnd); k > 0; k-- {
			q := geom.Point{X: parent.X + normal.Rand(), Y: parent.Y + normal.Rand()}
			if w.Contains(q) {
				pts = append(pts, q)
			}
		}
	}
	return pts
}

// poissonCount draws a Poisson count with the given mean.
func poissonCount(lambda float64, rnd *rand.Rand) int {
	if lambda <= 0 {
		return 0
	}
	pois := distuv.Poisson{Lambda: lambda, Src: rnd}
	return int(pois.Rand())
}

// poissonParents draws the parent points of a cluster process: a
// homogeneous Poisson pattern inside the window.
func poissonParents(intensity float64, w geom.Window, rnd *rand.Rand) []geom.Point {
	n := poissonCount(intensity*w.Area(), rnd)
	pts := make([]geom.Point, n)
	for i := range pts {
		pts[i] = uniformInWindow(w, rnd)
	}
	return pts
}

// uniformInWindow draws a point uniformly from the window, by direct
// placement for rectangles and by rejection from the bounding rectangle
// otherwise. Rejection terminates with probability one because windows
// have positive area.
func uniformInWindow(w geom.Window, rnd *rand.Rand) geom.Point {
	b := w.Bounds()
	if r, ok := w.(geom.Rect); ok {
		return geom.Point{
			X: r.XMin + rnd.Float64()*r.Width(),
			Y: r.YMin + rnd.Float64()*r.Height(),
		}
	}
	for {
		p := geom.Point{
			X: b.XMin + rnd.Float64()*b.Width(),
			Y: b.YMin + rnd.Float64()*b.Height(),
		}
		if w.Contains(p) {
			return p
		}
	}
}
