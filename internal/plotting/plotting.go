// Package plotting renders point patterns, statistic curves and
// envelope bands as PNG images.
package plotting

import (
	"image/color"

	"github.com/rotisserie/eris"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/mlange-42/ppa/pkg/envelope"
	"github.com/mlange-42/ppa/pkg/pattern"
	"github.com/mlange-42/ppa/pkg/stats"
)

var (
	colorObserved = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 255}
	colorBand     = color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 255}
	colorPoints   = color.RGBA{R: 0x2c, G: 0x2c, B: 0x2c, A: 255}
)

// PlotCurve writes a statistic curve as a PNG line plot.
func PlotCurve(path string, c *stats.Curve) error {
	p := plot.New()
	p.Title.Text = c.Name
	p.X.Label.Text = "r"
	p.Y.Label.Text = c.Name + "(r)"

	line, err := plotter.NewLine(curveXYs(c.Samples))
	if err != nil {
		return eris.Wrap(err, "plotting: curve line")
	}
	line.Color = colorObserved
	line.Width = vg.Points(1.5)
	p.Add(line)

	if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return eris.Wrapf(err, "plotting: save %s", path)
	}
	return nil
}

// PlotEnvelope writes an envelope test result as a PNG: the observed
// curve plus dashed lower and upper band boundaries.
func PlotEnvelope(path string, env *envelope.Envelope) error {
	p := plot.New()
	p.Title.Text = env.Statistic.String() + " envelope"
	p.X.Label.Text = "r"
	p.Y.Label.Text = env.Statistic.String() + "(r)"

	obs := make(plotter.XYs, len(env.Bands))
	lower := make(plotter.XYs, len(env.Bands))
	upper := make(plotter.XYs, len(env.Bands))
	for i, b := range env.Bands {
		obs[i] = plotter.XY{X: b.R, Y: b.Observed}
		lower[i] = plotter.XY{X: b.R, Y: b.Lower}
		upper[i] = plotter.XY{X: b.R, Y: b.Upper}
	}

	obsLine, err := plotter.NewLine(obs)
	if err != nil {
		return eris.Wrap(err, "plotting: observed line")
	}
	obsLine.Color = colorObserved
	obsLine.Width = vg.Points(1.5)
	p.Add(obsLine)
	p.Legend.Add("observed", obsLine)

	for name, pts := range map[string]plotter.XYs{"lower": lower, "upper": upper} {
		line, err := plotter.NewLine(pts)
		if err != nil {
			return eris.Wrapf(err, "plotting: %s band line", name)
		}
		line.Color = colorBand
		line.Width = vg.Points(1)
		line.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
		p.Add(line)
		if name == "upper" {
			p.Legend.Add("envelope", line)
		}
	}

	p.Legend.Top = true
	p.Legend.Left = true

	if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return eris.Wrapf(err, "plotting: save %s", path)
	}
	return nil
}

// PlotPattern writes a scatter plot of a point pattern. The axes span
// the bounding box of the observation window.
func PlotPattern(path string, pat *pattern.Pattern) error {
	p := plot.New()
	p.Title.Text = "Point pattern"
	p.X.Label.Text = "x"
	p.Y.Label.Text = "y"

	bounds := pat.Window().Bounds()
	p.X.Min, p.X.Max = bounds.XMin, bounds.XMax
	p.Y.Min, p.Y.Max = bounds.YMin, bounds.YMax

	pts := make(plotter.XYs, pat.Len())
	for i := 0; i < pat.Len(); i++ {
		pt := pat.At(i)
		pts[i] = plotter.XY{X: pt.X, Y: pt.Y}
	}
	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return eris.Wrap(err, "plotting: scatter")
	}
	scatter.GlyphStyle.Color = colorPoints
	scatter.GlyphStyle.Radius = vg.Points(1.5)
	p.Add(scatter)

	if err := p.Save(6*vg.Inch, 6*vg.Inch, path); err != nil {
		return eris.Wrapf(err, "plotting: save %s", path)
	}
	return nil
}

func curveXYs(samples []stats.Sample) plotter.XYs {
	xys := make(plotter.XYs, len(samples))
	for i, s := range samples {
		xys[i] = plotter.XY{X: s.R, Y: s.Value}
	}
	return xys
}
