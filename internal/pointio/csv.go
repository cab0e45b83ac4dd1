// Package pointio reads and writes point patterns, observation windows
// and statistic results: CSV and shapefile points, GeoJSON windows, and
// YAML scenario files describing a window plus a null-model process.
package pointio

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mlange-42/ppa/pkg/envelope"
	"github.com/mlange-42/ppa/pkg/geom"
	"github.com/mlange-42/ppa/pkg/stats"
)

// ErrMissingColumn reports a CSV header without a requested column.
var ErrMissingColumn = eris.New("pointio: column not found")

// CSVOptions configures point CSV reading and writing.
type CSVOptions struct {
	// Delimiter separates fields.
	Delimiter rune
	// XColumn and YColumn name the coordinate columns.
	XColumn string
	YColumn string
	// IDColumn optionally names a point identifier column.
	IDColumn string
	// NoData marks missing coordinates; rows carrying it are skipped.
	NoData string
}

// DefaultCSVOptions returns the historical defaults: semicolon-separated
// x/y columns with "NA" as the missing-value marker.
func DefaultCSVOptions() CSVOptions {
	return CSVOptions{Delimiter: ';', XColumn: "x", YColumn: "y", NoData: "NA"}
}

// PointSet is a raw coordinate list with optional per-point identifiers,
// as read from a file and not yet bound to a window.
type PointSet struct {
	Points []geom.Point
	// IDs is parallel to Points, or empty when no ID column was read.
	IDs []string
}

// ReadPointsCSV reads a delimited text file with a header row into a
// point set. Rows whose coordinate fields carry the no-data marker are
// skipped and counted; unparseable coordinates are an error.
func ReadPointsCSV(path string, opts CSVOptions) (*PointSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "pointio: open %s", path)
	}
	defer func() { _ = f.Close() }()
	return readPointsCSV(f, path, opts)
}

func readPointsCSV(f io.Reader, path string, opts CSVOptions) (*PointSet, error) {
	r := csv.NewReader(f)
	r.Comma = opts.Delimiter
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, eris.Wrapf(err, "pointio: read header of %s", path)
	}
	xIdx, err := columnIndex(header, opts.XColumn)
	if err != nil {
		return nil, err
	}
	yIdx, err := columnIndex(header, opts.YColumn)
	if err != nil {
		return nil, err
	}
	idIdx := -1
	if opts.IDColumn != "" {
		if idIdx, err = columnIndex(header, opts.IDColumn); err != nil {
			return nil, err
		}
	}

	ps := &PointSet{}
	skipped := 0
	for line := 2; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "pointio: read %s line %d", path, line)
		}

		xs, ys := strings.TrimSpace(rec[xIdx]), strings.TrimSpace(rec[yIdx])
		if xs == opts.NoData || ys == opts.NoData || xs == "" || ys == "" {
			skipped++
			continue
		}
		x, err := strconv.ParseFloat(xs, 64)
		if err != nil {
			return nil, eris.Wrapf(err, "pointio: parse %s line %d column %s", path, line, opts.XColumn)
		}
		y, err := strconv.ParseFloat(ys, 64)
		if err != nil {
			return nil, eris.Wrapf(err, "pointio: parse %s line %d column %s", path, line, opts.YColumn)
		}

		ps.Points = append(ps.Points, geom.Point{X: x, Y: y})
		if idIdx >= 0 {
			ps.IDs = append(ps.IDs, rec[idIdx])
		}
	}

	if skipped > 0 {
		zap.L().Warn("pointio: skipped rows with missing coordinates",
			zap.String("file", path),
			zap.Int("skipped", skipped),
		)
	}
	return ps, nil
}

func columnIndex(header []string, column string) (int, error) {
	for i, name := range header {
		if strings.EqualFold(strings.TrimSpace(name), column) {
			return i, nil
		}
	}
	return -1, eris.Wrapf(ErrMissingColumn, "pointio: %q", column)
}

type pointRecord struct {
	X float64 `csv:"x"`
	Y float64 `csv:"y"`
}

type idPointRecord struct {
	ID string  `csv:"id"`
	X  float64 `csv:"x"`
	Y  float64 `csv:"y"`
}

// WritePointsCSV writes a point set with a header row. The ID column is
// present only when the set carries identifiers.
func WritePointsCSV(path string, ps *PointSet, delimiter rune) error {
	if len(ps.IDs) > 0 {
		recs := make([]idPointRecord, len(ps.Points))
		for i, p := range ps.Points {
			recs[i] = idPointRecord{ID: ps.IDs[i], X: p.X, Y: p.Y}
		}
		return writeCSV(path, recs, delimiter)
	}
	recs := make([]pointRecord, len(ps.Points))
	for i, p := range ps.Points {
		recs[i] = pointRecord{X: p.X, Y: p.Y}
	}
	return writeCSV(path, recs, delimiter)
}

// WriteCurveCSV writes a statistic curve as (r, value) rows.
func WriteCurveCSV(path string, c *stats.Curve, delimiter rune) error {
	return writeCSV(path, c.Samples, delimiter)
}

// WriteEnvelopeCSV writes an envelope as (r, lower, upper, observed) rows.
func WriteEnvelopeCSV(path string, env *envelope.Envelope, delimiter rune) error {
	return writeCSV(path, env.Bands, delimiter)
}

func writeCSV(path string, records any, delimiter rune) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "pointio: create %s", path)
	}
	defer func() { _ = f.Close() }()

	cw := csv.NewWriter(f)
	cw.Comma = delimiter
	enc := csvutil.NewEncoder(cw)
	if err := enc.Encode(records); err != nil {
		return eris.Wrapf(err, "pointio: encode %s", path)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return eris.Wrapf(err, "pointio: flush %s", path)
	}
	return nil
}
