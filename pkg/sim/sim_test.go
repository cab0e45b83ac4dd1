package sim

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlange-42/ppa/pkg/geom"
)

func unitSquare(t *testing.T) geom.Rect {
	t.Helper()
	w, err := geom.NewRect(0, 1, 0, 1)
	require.NoError(t, err)
	return w
}

func TestSimulate_Deterministic(t *testing.T) {
	w := unitSquare(t)
	procs := []Process{
		PoissonCSR{Intensity: 100},
		MaternCluster{ParentIntensity: 10, Radius: 0.1, Mu: 8},
		ThomasCluster{ParentIntensity: 10, Sigma: 0.05, Mu: 8},
	}
	for _, proc := range procs {
		t.Run(proc.Name(), func(t *testing.T) {
			a, err := Simulate(w, proc, 42)
			require.NoError(t, err)
			b, err := Simulate(w, proc, 42)
			require.NoError(t, err)

			require.Equal(t, a.Len(), b.Len())
			assert.Equal(t, a.Points(), b.Points())

			c, err := Simulate(w, proc, 43)
			require.NoError(t, err)
			assert.NotEqual(t, a.Points(), c.Points(), "different seeds diverge")
		})
	}
}

func TestSimulate_PointsInsideWindow(t *testing.T) {
	windows := []geom.Window{
		unitSquare(t),
		mustDisc(t, geom.Point{X: 0, Y: 0}, 1),
		mustPolygon(t, []geom.Point{{X: 0, Y: 0}, {X: 2, Y: 0}, {X: 2, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 2}, {X: 0, Y: 2}}),
	}
	for _, w := range windows {
		p, err := Simulate(w, PoissonCSR{Intensity: 200}, 7)
		require.NoError(t, err)
		for i := 0; i < p.Len(); i++ {
			assert.True(t, w.Contains(p.At(i)))
		}
	}
}

func TestSimulate_PoissonCount(t *testing.T) {
	w, err := geom.NewRect(0, 10, 0, 10)
	require.NoError(t, err)

	// Mean count 1000; a realisation staying within 5 sigma of it.
	p, err := Simulate(w, PoissonCSR{Intensity: 10}, 42)
	require.NoError(t, err)
	assert.InDelta(t, 1000, float64(p.Len()), 5*32)
}

func TestSimulate_ClusterOffspringNearParents(t *testing.T) {
	w := unitSquare(t)
	p, err := Simulate(w, MaternCluster{ParentIntensity: 5, Radius: 0.05, Mu: 10}, 3)
	require.NoError(t, err)

	if p.Len() < 2 {
		t.Skip("degenerate realisation")
	}
	// In a tight cluster process, most points have a neighbour much
	// closer than the cluster diameter.
	within := 0
	for i := 0; i < p.Len(); i++ {
		if _, d := p.Nearest(p.At(i), i); d <= 0.1 {
			within++
		}
	}
	assert.Greater(t, float64(within)/float64(p.Len()), 0.5)
}

func TestSimulate_InvalidParameters(t *testing.T) {
	w := unitSquare(t)
	cases := []Process{
		PoissonCSR{Intensity: 0},
		PoissonCSR{Intensity: -5},
		MaternCluster{ParentIntensity: 1, Radius: 0, Mu: 1},
		MaternCluster{ParentIntensity: -1, Radius: 0.1, Mu: 1},
		MaternCluster{ParentIntensity: 1, Radius: 0.1, Mu: 0},
		ThomasCluster{ParentIntensity: 1, Sigma: -0.1, Mu: 1},
		ThomasCluster{ParentIntensity: 0, Sigma: 0.1, Mu: 1},
	}
	for _, proc := range cases {
		_, err := Simulate(w, proc, 1)
		assert.True(t, eris.Is(err, ErrInvalidParameter), "%v", proc)
	}

	_, err := Simulate(nil, PoissonCSR{Intensity: 1}, 1)
	assert.True(t, eris.Is(err, geom.ErrInvalidGeometry))

	_, err = Simulate(w, nil, 1)
	assert.True(t, eris.Is(err, ErrInvalidParameter))
}

func TestProcessStrings(t *testing.T) {
	assert.Equal(t, "poisson(intensity=100)", PoissonCSR{Intensity: 100}.String())
	assert.Equal(t, "matern(parents=10, radius=0.1, mu=5)",
		MaternCluster{ParentIntensity: 10, Radius: 0.1, Mu: 5}.String())
	assert.Equal(t, "thomas(parents=10, sigma=0.05, mu=5)",
		ThomasCluster{ParentIntensity: 10, Sigma: 0.05, Mu: 5}.String())
}

func TestProcessInterfaceDescribes(t *testing.T) {
	// Callers hold processes as the interface and log/store String().
	for _, proc := range []Process{
		PoissonCSR{Intensity: 100},
		MaternCluster{ParentIntensity: 10, Radius: 0.1, Mu: 5},
		ThomasCluster{ParentIntensity: 10, Sigma: 0.05, Mu: 5},
	} {
		assert.Contains(t, proc.String(), proc.Name())
	}
}

func mustDisc(t *testing.T, c geom.Point, r float64) geom.Disc {
	t.Helper()
	d, err := geom.NewDisc(c, r)
	require.NoError(t, err)
	return d
}

func mustPolygon(t *testing.T, vs []geom.Point) *geom.Polygon {
	t.Helper()
	pg, err := geom.NewPolygon(vs)
	require.NoError(t, err)
	return pg
}
