package edge

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

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		want Correction
	}{
		{"none", None},
		{"", None},
		{"border", Border},
		{"isotropic", Isotropic},
		{"Ripley", Isotropic},
		{"translation", Translation},
		{" Translate ", Translation},
	}
	for _, tc := range cases {
		got, err := Parse(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	_, err := Parse("bogus")
	assert.True(t, eris.Is(err, ErrUnknownCorrection))
}

func TestString(t *testing.T) {
	assert.Equal(t, "none", None.String())
	assert.Equal(t, "border", Border.String())
	assert.Equal(t, "isotropic", Isotropic.String())
	assert.Equal(t, "translation", Translation.String())
}

func TestWeight_NegativeRadius(t *testing.T) {
	w := unitSquare(t)
	_, err := Weight(geom.Point{X: 0.5, Y: 0.5}, geom.Point{X: 0.6, Y: 0.5}, -0.1, w, Isotropic)
	assert.True(t, eris.Is(err, ErrNumericInstability))
}

func TestWeight_None(t *testing.T) {
	w := unitSquare(t)
	got, err := Weight(geom.Point{X: 0.01, Y: 0.01}, geom.Point{X: 0.9, Y: 0.9}, 0.9, w, None)
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)
}

func TestWeight_Border(t *testing.T) {
	w := unitSquare(t)

	got, err := Weight(geom.Point{X: 0.5, Y: 0.5}, geom.Point{}, 0.25, w, Border)
	require.NoError(t, err)
	assert.Equal(t, 1.0, got, "interior point sees the full disc")

	got, err = Weight(geom.Point{X: 0.1, Y: 0.5}, geom.Point{}, 0.25, w, Border)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got, "point nearer the boundary than r is discarded")
}

func TestWeight_Isotropic(t *testing.T) {
	w := unitSquare(t)

	// Interior point: full circle inside, weight 1.
	got, err := Weight(geom.Point{X: 0.5, Y: 0.5}, geom.Point{}, 0.2, w, Isotropic)
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)

	// Corner point: a quarter of the circle is inside, weight 4.
	got, err = Weight(geom.Point{X: 0, Y: 0}, geom.Point{}, 0.2, w, Isotropic)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, got, 0.05)

	// Edge midpoint: half the circle is inside, weight 2.
	got, err = Weight(geom.Point{X: 0.5, Y: 0}, geom.Point{}, 0.2, w, Isotropic)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, got, 0.02)
}

func TestWeight_IsotropicNeverBelowOne(t *testing.T) {
	w := unitSquare(t)
	for _, r := range []float64{0.01, 0.05, 0.1, 0.25} {
		got, err := Weight(geom.Point{X: 0.3, Y: 0.7}, geom.Point{}, r, w, Isotropic)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, got, 1.0)
	}
}

func TestWeight_TranslationRect(t *testing.T) {
	w := unitSquare(t)
	p := geom.Point{X: 0.25, Y: 0.5}

	// Horizontal shift of 0.5 leaves half the window overlapping.
	got, err := Weight(p, geom.Point{X: 0.75, Y: 0.5}, 0.5, w, Translation)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, got, 1e-12)

	// Zero shift overlaps fully.
	got, err = Weight(p, p, 0, w, Translation)
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)

	// Diagonal shift: overlap 0.5 * 0.75.
	got, err = Weight(p, geom.Point{X: 0.75, Y: 0.75}, 0.55, w, Translation)
	require.NoError(t, err)
	assert.InDelta(t, 1/(0.5*0.75), got, 1e-12)
}

func TestWeight_TranslationDegenerateShift(t *testing.T) {
	w, err := geom.NewRect(0, 10, 0, 10)
	require.NoError(t, err)

	// A shift as wide as the window has no overlap; the weight degrades
	// to the border method.
	got, err := Weight(geom.Point{X: 5, Y: 5}, geom.Point{X: 15, Y: 5}, 10, w, Translation)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)
}

func TestWeight_TranslationDisc(t *testing.T) {
	w, err := geom.NewDisc(geom.Point{X: 0, Y: 0}, 1)
	require.NoError(t, err)

	got, err := Weight(geom.Point{X: 0, Y: 0}, geom.Point{X: 0, Y: 0}, 0, w, Translation)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got, 0.05, "zero shift on a disc is near-exact overlap")

	got, err = Weight(geom.Point{X: -0.25, Y: 0}, geom.Point{X: 0.25, Y: 0}, 0.5, w, Translation)
	require.NoError(t, err)
	assert.Greater(t, got, 1.0)
}

func TestWeight_Polygon(t *testing.T) {
	pg, err := geom.NewPolygon([]geom.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}})
	require.NoError(t, err)

	got, err := Weight(geom.Point{X: 0.5, Y: 0.5}, geom.Point{}, 0.2, pg, Isotropic)
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)

	got, err = Weight(geom.Point{X: 0, Y: 0}, geom.Point{}, 0.2, pg, Isotropic)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, got, 0.1)
}
