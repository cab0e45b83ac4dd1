package pattern

import (
	"math"
	"math/rand/v2"
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

func randomPoints(n int, w geom.Rect, seed uint64) []geom.Point {
	rnd := rand.New(rand.NewPCG(seed, seed))
	pts := make([]geom.Point, n)
	for i := range pts {
		pts[i] = geom.Point{
			X: w.XMin + rnd.Float64()*w.Width(),
			Y: w.YMin + rnd.Float64()*w.Height(),
		}
	}
	return pts
}

func TestNew_PointOutsideWindow(t *testing.T) {
	w := unitSquare(t)

	_, err := New([]geom.Point{{X: 0.5, Y: 0.5}, {X: 1.5, Y: 0.5}}, w)
	assert.True(t, eris.Is(err, ErrPointOutsideWindow))

	// Within tolerance is accepted.
	p, err := New([]geom.Point{{X: 1 + 1e-12, Y: 0.5}}, w)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Len())
}

func TestNew_NilWindow(t *testing.T) {
	_, err := New(nil, nil)
	assert.True(t, eris.Is(err, geom.ErrInvalidGeometry))
}

func TestNew_CopiesPoints(t *testing.T) {
	w := unitSquare(t)
	pts := []geom.Point{{X: 0.25, Y: 0.25}}
	p, err := New(pts, w)
	require.NoError(t, err)

	pts[0].X = 0.75
	assert.Equal(t, 0.25, p.At(0).X)
}

func TestPoints_ReturnsCopy(t *testing.T) {
	w := unitSquare(t)
	p, err := New([]geom.Point{{X: 0.25, Y: 0.25}, {X: 0.75, Y: 0.75}}, w)
	require.NoError(t, err)

	pts := p.Points()
	pts[0].X = 0.9
	assert.Equal(t, 0.25, p.At(0).X)
	assert.Equal(t, []geom.Point{{X: 0.25, Y: 0.25}, {X: 0.75, Y: 0.75}}, p.Points())
}

func TestNearest_TwoPoints(t *testing.T) {
	w, err := geom.NewRect(0, 2, 0, 1)
	require.NoError(t, err)
	p, err := New([]geom.Point{{X: 0, Y: 0}, {X: 1, Y: 0}}, w)
	require.NoError(t, err)

	idx, d := p.Nearest(p.At(0), 0)
	assert.Equal(t, 1, idx)
	assert.Equal(t, 1.0, d)

	idx, d = p.Nearest(p.At(1), 1)
	assert.Equal(t, 0, idx)
	assert.Equal(t, 1.0, d)
}

func TestNearest_TieBrokenByIndex(t *testing.T) {
	w, err := geom.NewRect(-2, 2, -2, 2)
	require.NoError(t, err)
	// Two candidates at identical distance from the origin.
	p, err := New([]geom.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: -1, Y: 0}}, w)
	require.NoError(t, err)

	idx, d := p.Nearest(p.At(0), 0)
	assert.Equal(t, 1, idx)
	assert.Equal(t, 1.0, d)
}

func TestQueries_EmptyPattern(t *testing.T) {
	p, err := New(nil, unitSquare(t))
	require.NoError(t, err)

	assert.Empty(t, p.Neighbors(geom.Point{X: 0.5, Y: 0.5}, 10))
	idx, d := p.Nearest(geom.Point{X: 0.5, Y: 0.5}, -1)
	assert.Equal(t, -1, idx)
	assert.True(t, math.IsInf(d, 1))
	assert.Empty(t, p.KNearest(geom.Point{X: 0.5, Y: 0.5}, 3, -1))
}

func TestNeighbors_RadiusInclusive(t *testing.T) {
	w, err := geom.NewRect(0, 4, 0, 4)
	require.NoError(t, err)
	p, err := New([]geom.Point{{X: 1, Y: 1}, {X: 2, Y: 1}, {X: 3.5, Y: 1}}, w)
	require.NoError(t, err)

	got := p.Neighbors(geom.Point{X: 1, Y: 1}, 1)
	assert.Equal(t, []int{0, 1}, got, "distance equal to r is included")

	assert.Nil(t, p.Neighbors(geom.Point{X: 1, Y: 1}, -0.5))
}

func TestGridMatchesBruteForce(t *testing.T) {
	w := unitSquare(t)
	pts := randomPoints(300, w, 7)

	indexed, err := New(pts, w)
	require.NoError(t, err)
	require.False(t, indexed.idx().brute)

	brute := &gridIndex{points: pts, brute: true}

	rnd := rand.New(rand.NewPCG(11, 11))
	for q := 0; q < 50; q++ {
		center := geom.Point{X: rnd.Float64(), Y: rnd.Float64()}
		r := 0.02 + rnd.Float64()*0.3

		assert.Equal(t, brute.neighbors(center, r), indexed.Neighbors(center, r))

		wantIdx, wantD := brute.nearest(center, -1)
		gotIdx, gotD := indexed.Nearest(center, -1)
		assert.Equal(t, wantIdx, gotIdx)
		assert.InDelta(t, wantD, gotD, 1e-12)

		assert.Equal(t, brute.kNearest(center, 5, -1), indexed.KNearest(center, 5, -1))
	}
}

func TestKNearest_Ordering(t *testing.T) {
	w := unitSquare(t)
	pts := randomPoints(64, w, 3)
	p, err := New(pts, w)
	require.NoError(t, err)

	center := geom.Point{X: 0.5, Y: 0.5}
	ns := p.KNearest(center, 10, -1)
	require.Len(t, ns, 10)
	for i := 1; i < len(ns); i++ {
		assert.LessOrEqual(t, ns[i-1].Distance, ns[i].Distance)
	}

	// k larger than the pattern returns everything.
	all := p.KNearest(center, 1000, -1)
	assert.Len(t, all, 64)

	assert.Nil(t, p.KNearest(center, 0, -1))
}

func TestIntensity(t *testing.T) {
	w, err := geom.NewRect(0, 2, 0, 2)
	require.NoError(t, err)
	p, err := New(randomPoints(100, w, 5), w)
	require.NoError(t, err)

	assert.InDelta(t, 25.0, p.Intensity(), 1e-12)
}

func TestIndexBuiltOnce(t *testing.T) {
	w := unitSquare(t)
	p, err := New(randomPoints(50, w, 9), w)
	require.NoError(t, err)

	first := p.idx()
	_ = p.Neighbors(geom.Point{X: 0.5, Y: 0.5}, 0.1)
	assert.Same(t, first, p.idx())
}
