// Package envelope runs Monte Carlo significance tests: an observed
// statistic curve is compared against the distribution of the same
// curve over repeated simulations of a null model.
package envelope

import (
	"context"
	"math"
	"runtime"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/mlange-42/ppa/pkg/edge"
	"github.com/mlange-42/ppa/pkg/pattern"
	"github.com/mlange-42/ppa/pkg/sim"
	"github.com/mlange-42/ppa/pkg/stats"
)

// ErrInvalidParameter reports unusable test options.
var ErrInvalidParameter = eris.New("envelope: invalid parameter")

// Statistic selects the summary statistic under test.
type Statistic uint8

const (
	StatG Statistic = iota
	StatF
	StatK
	StatL
	StatPCF
)

// String returns the statistic name, matching the curve names of the
// stats package.
func (s Statistic) String() string {
	switch s {
	case StatG:
		return "G"
	case StatF:
		return "F"
	case StatK:
		return "K"
	case StatL:
		return "L"
	case StatPCF:
		return "pcf"
	default:
		return "unknown"
	}
}

// MarshalText renders the statistic as its name, for JSON output.
func (s Statistic) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a statistic name.
func (s *Statistic) UnmarshalText(text []byte) error {
	parsed, err := ParseStatistic(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseStatistic maps a statistic name to its Statistic value.
func ParseStatistic(s string) (Statistic, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "g":
		return StatG, nil
	case "f":
		return StatF, nil
	case "k":
		return StatK, nil
	case "l":
		return StatL, nil
	case "pcf", "g(r)", "paircorrelation":
		return StatPCF, nil
	default:
		return StatG, eris.Wrapf(ErrInvalidParameter, "envelope: unknown statistic %q", s)
	}
}

// Compute evaluates the statistic on a pattern.
func (s Statistic) Compute(pat *pattern.Pattern, radii []float64, corr edge.Correction) (*stats.Curve, error) {
	switch s {
	case StatG:
		return stats.G(pat, radii, corr)
	case StatF:
		return stats.F(pat, radii, corr)
	case StatK:
		return stats.K(pat, radii, corr)
	case StatL:
		return stats.L(pat, radii, corr)
	case StatPCF:
		return stats.PCF(pat, radii, corr)
	default:
		return nil, eris.Wrapf(ErrInvalidParameter, "envelope: unknown statistic %d", s)
	}
}

// Options configures an envelope test.
type Options struct {
	// NSim is the number of simulated realisations. Must be at least 1.
	NSim int
	// Alpha is the significance level of the pointwise envelope.
	// Defaults to 0.05.
	Alpha float64
	// Global selects the pointwise min/max envelope instead of the
	// alpha-quantile envelope.
	Global bool
	// Workers bounds the parallel simulation workers. Defaults to the
	// number of CPUs.
	Workers int
	// Seed is the base seed; simulation i runs with Seed+i+1.
	Seed uint64
	// Correction is the edge correction applied to every curve.
	Correction edge.Correction
	// Radii is the radius grid; nil selects the default grid of the
	// observed pattern's window.
	Radii []float64
}

// Band is the envelope at one radius.
type Band struct {
	R        float64 `csv:"r" json:"r"`
	Lower    float64 `csv:"lower" json:"lower"`
	Upper    float64 `csv:"upper" json:"upper"`
	Observed float64 `csv:"observed" json:"observed"`
}

// Envelope is the immutable result of a Monte Carlo envelope test.
type Envelope struct {
	Statistic Statistic `json:"statistic"`
	Bands     []Band    `json:"bands"`
	// PValue is the rank-based two-sided p-value of the observed curve,
	// never below 1/(NSim+1).
	PValue float64 `json:"p_value"`
	NSim   int     `json:"n_sim"`
	Alpha  float64 `json:"alpha"`
}

// Test computes the observed curve, simulates NSim realisations of the
// null model, and builds the pointwise envelope and rank p-value. The
// simulation loop runs on Workers goroutines and aborts cooperatively
// when ctx is cancelled. Results are independent of worker scheduling:
// every iteration derives its own seed and the aggregation is
// order-free.
func Test(ctx context.Context, observed *pattern.Pattern, statistic Statistic, proc sim.Process, opts Options) (*Envelope, error) {
	if opts.NSim < 1 {
		return nil, eris.Wrapf(ErrInvalidParameter, "envelope: n_sim %d must be at least 1", opts.NSim)
	}
	if opts.Alpha == 0 {
		opts.Alpha = 0.05
	}
	if opts.Alpha <= 0 || opts.Alpha >= 1 {
		return nil, eris.Wrapf(ErrInvalidParameter, "envelope: alpha %g outside (0, 1)", opts.Alpha)
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if proc == nil {
		return nil, eris.Wrap(ErrInvalidParameter, "envelope: nil process")
	}
	if err := proc.Validate(); err != nil {
		return nil, err
	}

	obs, err := statistic.Compute(observed, opts.Radii, opts.Correction)
	if err != nil {
		return nil, err
	}
	radii := obs.Radii()
	w := observed.Window()

	log := zap.L().With(
		zap.String("component", "envelope"),
		zap.String("statistic", statistic.String()),
		zap.Int("n_sim", opts.NSim),
	)
	log.Debug("starting envelope simulations")

	curves := make([][]float64, opts.NSim)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i := 0; i < opts.NSim; i++ {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			simPat, serr := sim.Simulate(w, proc, opts.Seed+uint64(i)+1)
			if serr != nil {
				return eris.Wrapf(serr, "envelope: simulation %d", i)
			}
			c, cerr := statistic.Compute(simPat, radii, opts.Correction)
			if cerr != nil {
				return eris.Wrapf(cerr, "envelope: statistic for simulation %d", i)
			}
			if len(c.Samples) != len(radii) {
				return eris.Errorf("envelope: simulation %d produced %d samples, want %d",
					i, len(c.Samples), len(radii))
			}
			curves[i] = c.Values()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	env := &Envelope{
		Statistic: statistic,
		Bands:     make([]Band, len(radii)),
		NSim:      opts.NSim,
		Alpha:     opts.Alpha,
	}

	buf := make([]float64, opts.NSim)
	for j, r := range radii {
		for i := range curves {
			buf[i] = curves[i][j]
		}
		sort.Float64s(buf)
		var lo, hi float64
		if opts.Global {
			lo, hi = buf[0], buf[len(buf)-1]
		} else {
			lo = stat.Quantile(opts.Alpha/2, stat.Empirical, buf, nil)
			hi = stat.Quantile(1-opts.Alpha/2, stat.Empirical, buf, nil)
		}
		env.Bands[j] = Band{R: r, Lower: lo, Upper: hi, Observed: obs.Samples[j].Value}
	}

	env.PValue = rankPValue(obs.Values(), curves)
	log.Debug("envelope complete", zap.Float64("p_value", env.PValue))
	return env, nil
}

// rankPValue ranks the observed curve's maximum absolute deviation from
// the simulated mean against the deviations of the simulated curves:
// p = (1 + #{simulated at least as extreme}) / (n + 1).
func rankPValue(observed []float64, curves [][]float64) float64 {
	n := len(curves)
	m := len(observed)

	mean := make([]float64, m)
	for j := 0; j < m; j++ {
		for i := range curves {
			mean[j] += curves[i][j]
		}
		mean[j] /= float64(n)
	}

	dev := func(vals []float64) float64 {
		d := 0.0
		for j, v := range vals {
			if a := math.Abs(v - mean[j]); a > d {
				d = a
			}
		}
		return d
	}

	obsDev := dev(observed)
	atLeast := 0
	for i := range curves {
		if dev(curves[i]) >= obsDev {
			atLeast++
		}
	}
	return float64(1+atLeast) / float64(n+1)
}
