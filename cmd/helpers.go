package main

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mlange-42/ppa/internal/pointio"
	"github.com/mlange-42/ppa/internal/store"
	"github.com/mlange-42/ppa/pkg/edge"
	"github.com/mlange-42/ppa/pkg/geom"
	"github.com/mlange-42/ppa/pkg/pattern"
)

func initStore(ctx context.Context) (*store.SQLiteStore, error) {
	st, err := store.NewSQLite(cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

func csvOptions() pointio.CSVOptions {
	opts := pointio.DefaultCSVOptions()
	if cfg.IO.Delimiter != "" {
		opts.Delimiter = rune(cfg.IO.Delimiter[0])
	}
	if cfg.IO.XColumn != "" {
		opts.XColumn = cfg.IO.XColumn
	}
	if cfg.IO.YColumn != "" {
		opts.YColumn = cfg.IO.YColumn
	}
	opts.IDColumn = cfg.IO.IDColumn
	if cfg.IO.NoData != "" {
		opts.NoData = cfg.IO.NoData
	}
	return opts
}

// loadPoints reads a point file, dispatching on the extension:
// .shp is read as a shapefile, everything else as delimited text.
func loadPoints(path string) (*pointio.PointSet, error) {
	if strings.EqualFold(filepath.Ext(path), ".shp") {
		return pointio.ReadPointsShapefile(path)
	}
	return pointio.ReadPointsCSV(path, csvOptions())
}

// buildWindow resolves the observation window: a GeoJSON polygon file
// when given, an explicit rectangle when given, otherwise the bounding
// box of the points.
func buildWindow(windowFile string, rect []float64, points []geom.Point) (geom.Window, error) {
	if windowFile != "" {
		return pointio.ReadWindowGeoJSON(windowFile)
	}
	if len(rect) == 4 {
		return geom.NewRect(rect[0], rect[1], rect[2], rect[3])
	}
	if len(rect) != 0 {
		return nil, eris.Wrapf(geom.ErrInvalidGeometry,
			"cmd: --rect needs 4 values (xmin,xmax,ymin,ymax), got %d", len(rect))
	}
	if len(points) == 0 {
		return nil, eris.Wrap(geom.ErrInvalidGeometry, "cmd: no window given and no points to derive one from")
	}

	xmin, xmax := points[0].X, points[0].X
	ymin, ymax := points[0].Y, points[0].Y
	for _, p := range points[1:] {
		xmin, xmax = min(xmin, p.X), max(xmax, p.X)
		ymin, ymax = min(ymin, p.Y), max(ymax, p.Y)
	}
	zap.L().Warn("no window given, using bounding box of points",
		zap.Float64("xmin", xmin), zap.Float64("xmax", xmax),
		zap.Float64("ymin", ymin), zap.Float64("ymax", ymax),
	)
	return geom.NewRect(xmin, xmax, ymin, ymax)
}

// loadPattern combines loadPoints and buildWindow.
func loadPattern(path, windowFile string, rect []float64) (*pattern.Pattern, error) {
	ps, err := loadPoints(path)
	if err != nil {
		return nil, err
	}
	w, err := buildWindow(windowFile, rect, ps.Points)
	if err != nil {
		return nil, err
	}
	return pattern.New(ps.Points, w)
}

func resolveCorrection(flag string) (edge.Correction, error) {
	name := flag
	if name == "" {
		name = cfg.Stats.Correction
	}
	if name == "" {
		return edge.Isotropic, nil
	}
	return edge.Parse(name)
}
