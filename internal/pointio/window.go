package pointio

import (
	"os"

	"github.com/rotisserie/eris"
	geomgo "github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/mlange-42/ppa/pkg/geom"
)

// ReadWindowGeoJSON reads a polygonal observation window from a GeoJSON
// geometry file. Accepts a Polygon, or a MultiPolygon with exactly one
// member; only the exterior ring is used.
func ReadWindowGeoJSON(path string) (*geom.Polygon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "pointio: read %s", path)
	}

	var g geomgo.T
	if err := geojson.Unmarshal(data, &g); err != nil {
		return nil, eris.Wrapf(err, "pointio: decode GeoJSON %s", path)
	}

	var poly *geomgo.Polygon
	switch v := g.(type) {
	case *geomgo.Polygon:
		poly = v
	case *geomgo.MultiPolygon:
		if v.NumPolygons() != 1 {
			return nil, eris.Wrapf(geom.ErrInvalidGeometry,
				"pointio: %s holds %d polygons, want exactly 1", path, v.NumPolygons())
		}
		poly = v.Polygon(0)
	default:
		return nil, eris.Wrapf(geom.ErrInvalidGeometry,
			"pointio: %s is not a polygon geometry", path)
	}

	if poly.NumLinearRings() < 1 {
		return nil, eris.Wrapf(geom.ErrInvalidGeometry, "pointio: %s has no exterior ring", path)
	}
	ring := poly.LinearRing(0)
	coords := ring.Coords()
	vertices := make([]geom.Point, len(coords))
	for i, c := range coords {
		vertices[i] = geom.Point{X: c.X(), Y: c.Y()}
	}
	return geom.NewPolygon(vertices)
}

// WriteWindowGeoJSON writes a polygonal window as a GeoJSON geometry.
func WriteWindowGeoJSON(path string, pg *geom.Polygon) error {
	data, err := geojson.Marshal(pg.GoGeom())
	if err != nil {
		return eris.Wrap(err, "pointio: encode GeoJSON")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "pointio: write %s", path)
	}
	return nil
}
