package plotting

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlange-42/ppa/pkg/envelope"
	"github.com/mlange-42/ppa/pkg/geom"
	"github.com/mlange-42/ppa/pkg/sim"
	"github.com/mlange-42/ppa/pkg/stats"
)

func TestPlotCurve(t *testing.T) {
	c := &stats.Curve{
		Name: "L",
		Samples: []stats.Sample{
			{R: 0.05, Value: -0.01},
			{R: 0.1, Value: 0.02},
			{R: 0.15, Value: 0.0},
		},
	}

	path := filepath.Join(t.TempDir(), "curve.png")
	require.NoError(t, PlotCurve(path, c))
	assertNonEmptyFile(t, path)
}

func TestPlotEnvelope(t *testing.T) {
	env := &envelope.Envelope{
		Statistic: envelope.StatL,
		Bands: []envelope.Band{
			{R: 0.05, Lower: -0.02, Upper: 0.02, Observed: 0.01},
			{R: 0.1, Lower: -0.03, Upper: 0.03, Observed: -0.01},
		},
		PValue: 0.4,
		NSim:   19,
		Alpha:  0.05,
	}

	path := filepath.Join(t.TempDir(), "envelope.png")
	require.NoError(t, PlotEnvelope(path, env))
	assertNonEmptyFile(t, path)
}

func TestPlotPattern(t *testing.T) {
	w, err := geom.NewRect(0, 1, 0, 1)
	require.NoError(t, err)
	pat, err := sim.Simulate(w, sim.PoissonCSR{Intensity: 50}, 3)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "pattern.png")
	require.NoError(t, PlotPattern(path, pat))
	assertNonEmptyFile(t, path)
}

func assertNonEmptyFile(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}
