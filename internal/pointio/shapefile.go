package pointio

import (
	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mlange-42/ppa/pkg/geom"
)

// ReadPointsShapefile reads all point records of a shapefile. Non-point
// shapes are skipped and counted; Z and M variants are flattened to
// their planar coordinates.
func ReadPointsShapefile(path string) (*PointSet, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "pointio: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	ps := &PointSet{}
	skipped := 0
	for reader.Next() {
		_, shape := reader.Shape()
		switch s := shape.(type) {
		case *shp.Point:
			ps.Points = append(ps.Points, geom.Point{X: s.X, Y: s.Y})
		case *shp.PointZ:
			ps.Points = append(ps.Points, geom.Point{X: s.X, Y: s.Y})
		case *shp.PointM:
			ps.Points = append(ps.Points, geom.Point{X: s.X, Y: s.Y})
		default:
			skipped++
		}
	}

	if skipped > 0 {
		zap.L().Debug("pointio: skipped non-point shapefile records",
			zap.String("file", path),
			zap.Int("skipped", skipped),
		)
	}
	return ps, nil
}
