package envelope

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlange-42/ppa/pkg/edge"
	"github.com/mlange-42/ppa/pkg/geom"
	"github.com/mlange-42/ppa/pkg/pattern"
	"github.com/mlange-42/ppa/pkg/sim"
)

func csrPattern(t *testing.T, seed uint64) *pattern.Pattern {
	t.Helper()
	w, err := geom.NewRect(0, 1, 0, 1)
	require.NoError(t, err)
	p, err := sim.Simulate(w, sim.PoissonCSR{Intensity: 100}, seed)
	require.NoError(t, err)
	require.GreaterOrEqual(t, p.Len(), 2)
	return p
}

func testRadii() []float64 {
	out := make([]float64, 20)
	for i := range out {
		out[i] = 0.01 * float64(i+1)
	}
	return out
}

func TestParseStatistic(t *testing.T) {
	for name, want := range map[string]Statistic{
		"g": StatG, "f": StatF, "k": StatK, "L": StatL, "pcf": StatPCF,
	} {
		got, err := ParseStatistic(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseStatistic("nope")
	assert.True(t, eris.Is(err, ErrInvalidParameter))
}

func TestTest_ZeroSimulationsRejected(t *testing.T) {
	p := csrPattern(t, 1)
	_, err := Test(context.Background(), p, StatL, sim.PoissonCSR{Intensity: 100}, Options{NSim: 0})
	assert.True(t, eris.Is(err, ErrInvalidParameter))
}

func TestTest_InvalidOptions(t *testing.T) {
	p := csrPattern(t, 1)

	_, err := Test(context.Background(), p, StatL, sim.PoissonCSR{Intensity: 100},
		Options{NSim: 5, Alpha: 1.5})
	assert.True(t, eris.Is(err, ErrInvalidParameter))

	_, err = Test(context.Background(), p, StatL, nil, Options{NSim: 5})
	assert.True(t, eris.Is(err, ErrInvalidParameter))

	_, err = Test(context.Background(), p, StatL, sim.PoissonCSR{Intensity: -1}, Options{NSim: 5})
	assert.True(t, eris.Is(err, sim.ErrInvalidParameter))
}

func TestTest_PValueBounds(t *testing.T) {
	p := csrPattern(t, 42)
	const nsim = 19

	env, err := Test(context.Background(), p, StatL, sim.PoissonCSR{Intensity: 100},
		Options{NSim: nsim, Seed: 7, Radii: testRadii(), Correction: edge.Border})
	require.NoError(t, err)

	floor := 1.0 / float64(nsim+1)
	assert.GreaterOrEqual(t, env.PValue, floor)
	assert.LessOrEqual(t, env.PValue, 1.0)
	assert.Equal(t, nsim, env.NSim)
}

func TestTest_BandsWellFormed(t *testing.T) {
	p := csrPattern(t, 3)
	radii := testRadii()

	env, err := Test(context.Background(), p, StatG, sim.PoissonCSR{Intensity: 100},
		Options{NSim: 39, Seed: 11, Radii: radii})
	require.NoError(t, err)
	require.Len(t, env.Bands, len(radii))

	inside := 0
	for i, b := range env.Bands {
		assert.Equal(t, radii[i], b.R)
		assert.LessOrEqual(t, b.Lower, b.Upper)
		if b.Observed >= b.Lower && b.Observed <= b.Upper {
			inside++
		}
	}
	// A CSR pattern against its own null model stays inside the
	// pointwise envelope at most radii.
	assert.Greater(t, float64(inside)/float64(len(env.Bands)), 0.8)
}

func TestTest_GlobalEnvelopeContainsPointwise(t *testing.T) {
	p := csrPattern(t, 5)
	radii := testRadii()
	opts := Options{NSim: 19, Seed: 23, Radii: radii}

	pw, err := Test(context.Background(), p, StatL, sim.PoissonCSR{Intensity: 100}, opts)
	require.NoError(t, err)

	opts.Global = true
	gl, err := Test(context.Background(), p, StatL, sim.PoissonCSR{Intensity: 100}, opts)
	require.NoError(t, err)

	for i := range radii {
		assert.LessOrEqual(t, gl.Bands[i].Lower, pw.Bands[i].Lower)
		assert.GreaterOrEqual(t, gl.Bands[i].Upper, pw.Bands[i].Upper)
	}
}

func TestTest_DeterministicAcrossWorkerCounts(t *testing.T) {
	p := csrPattern(t, 8)
	radii := testRadii()

	run := func(workers int) *Envelope {
		env, err := Test(context.Background(), p, StatL, sim.PoissonCSR{Intensity: 100},
			Options{NSim: 16, Seed: 99, Workers: workers, Radii: radii})
		require.NoError(t, err)
		return env
	}

	serial := run(1)
	parallel := run(4)
	assert.Equal(t, serial, parallel)
}

func TestTest_Cancellation(t *testing.T) {
	p := csrPattern(t, 9)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Test(ctx, p, StatL, sim.PoissonCSR{Intensity: 100},
		Options{NSim: 1000, Workers: 2, Radii: testRadii()})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStatisticCompute(t *testing.T) {
	p := csrPattern(t, 10)
	for _, s := range []Statistic{StatG, StatF, StatK, StatL, StatPCF} {
		c, err := s.Compute(p, testRadii(), edge.None)
		require.NoError(t, err, s.String())
		assert.NotEmpty(t, c.Samples)
	}

	_, err := Statistic(200).Compute(p, testRadii(), edge.None)
	assert.True(t, eris.Is(err, ErrInvalidParameter))
}
