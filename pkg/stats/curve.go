// Package stats computes distance-based summary statistics of point
// patterns: the nearest-neighbour distribution G, the empty-space
// function F, Ripley's K and L, and the pair correlation function.
package stats

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/mlange-42/ppa/pkg/geom"
)

var (
	// ErrInsufficientPoints reports a statistic requested on a pattern
	// below its minimum point count.
	ErrInsufficientPoints = eris.New("stats: insufficient points")
	// ErrInvalidParameter reports an unusable radius grid or option.
	ErrInvalidParameter = eris.New("stats: invalid parameter")
)

// DefaultGridSize is the number of radius samples of an auto-generated
// grid.
const DefaultGridSize = 512

// RMaxFraction is the fraction of the shorter window side up to which
// statistics are estimated. Beyond that, edge correction becomes
// unreliable and curves are truncated.
const RMaxFraction = 0.25

// Sample is one point of a function-valued statistic.
type Sample struct {
	R     float64 `csv:"r" json:"r"`
	Value float64 `csv:"value" json:"value"`
}

// Curve is a summary statistic sampled over a strictly increasing,
// non-negative radius grid.
type Curve struct {
	Name    string   `json:"name"`
	Samples []Sample `json:"samples"`
}

// Radii returns the radius grid of the curve.
func (c *Curve) Radii() []float64 {
	out := make([]float64, len(c.Samples))
	for i, s := range c.Samples {
		out[i] = s.R
	}
	return out
}

// Values returns the sampled statistic values.
func (c *Curve) Values() []float64 {
	out := make([]float64, len(c.Samples))
	for i, s := range c.Samples {
		out[i] = s.Value
	}
	return out
}

// RMax returns the largest reliable query distance for a window: a
// quarter of the shorter side of its bounding rectangle.
func RMax(w geom.Window) float64 {
	return w.Bounds().ShorterSide() * RMaxFraction
}

// DefaultRadii builds an evenly spaced grid of DefaultGridSize radii
// over (0, RMax(w)].
func DefaultRadii(w geom.Window) []float64 {
	return RadiiGrid(w, DefaultGridSize)
}

// RadiiGrid builds an evenly spaced grid of n radii over (0, RMax(w)].
// Non-positive n falls back to DefaultGridSize.
func RadiiGrid(w geom.Window, n int) []float64 {
	if n <= 0 {
		n = DefaultGridSize
	}
	rmax := RMax(w)
	out := make([]float64, n)
	for i := range out {
		out[i] = rmax * float64(i+1) / float64(n)
	}
	return out
}

// checkRadii validates a caller-supplied grid and truncates it at rmax.
// Radii must be non-negative and strictly increasing. A nil grid yields
// the default grid for the window.
func checkRadii(radii []float64, w geom.Window) ([]float64, error) {
	if radii == nil {
		return DefaultRadii(w), nil
	}
	if len(radii) == 0 {
		return nil, eris.Wrap(ErrInvalidParameter, "stats: empty radius grid")
	}
	prev := math.Inf(-1)
	for _, r := range radii {
		if r < 0 || math.IsNaN(r) {
			return nil, eris.Wrapf(ErrInvalidParameter, "stats: negative radius %g", r)
		}
		if r <= prev {
			return nil, eris.Wrap(ErrInvalidParameter, "stats: radii must be strictly increasing")
		}
		prev = r
	}
	// Truncate, never extrapolate, past the reliable range.
	rmax := RMax(w)
	cut := len(radii)
	for cut > 0 && radii[cut-1] > rmax {
		cut--
	}
	if cut == 0 {
		return nil, eris.Wrapf(ErrInvalidParameter,
			"stats: all radii exceed the reliable maximum %g", rmax)
	}
	out := make([]float64, cut)
	copy(out, radii[:cut])
	return out, nil
}
