// Package georef moves a swath's ground control points into the frame of its
// deburst mosaic and derives the mosaic geotransform.
package georef

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/robert-malhotra/s1-deburst/internal/burst"
	"github.com/robert-malhotra/s1-deburst/internal/deburst"
	"github.com/robert-malhotra/s1-deburst/internal/geodesy"
	"github.com/robert-malhotra/s1-deburst/internal/raster"
)

// ErrInsufficientControlPoints is returned when fewer than three usable,
// non-collinear control points survive filtering.
var ErrInsufficientControlPoints = errors.New("insufficient ground control points")

// Result is the georeferencing of one mosaic.
type Result struct {
	// GCPs are the kept control points in mosaic-local coordinates.
	GCPs []raster.GCP
	// GeoTransform maps mosaic pixel (0,0) to its geographic position.
	GeoTransform geodesy.GeoTransform
	// RMSE is the fit residual over the kept points, in degrees.
	RMSE float64
	// Discarded counts points dropped for falling outside the mosaic columns
	// or carrying an invalid position.
	Discarded int

	Width   int
	XOffset int
	YOffset int
}

// Referencer rereferences control points against a swath layout.
type Referencer struct {
	logger *slog.Logger
}

// NewReferencer returns a Referencer logging to the default logger.
func NewReferencer() *Referencer {
	return &Referencer{logger: slog.Default()}
}

// WithLogger sets the logger for the referencer.
func (r *Referencer) WithLogger(logger *slog.Logger) *Referencer {
	r.logger = logger
	return r
}

// Rereference shifts each control point of burst i up by the lines trimmed
// through burst i, drops points outside the mosaic columns, and fits an
// affine transform anchored at mosaic pixel (0,0).
func (r *Referencer) Rereference(s *burst.Swath, gcps []raster.GCP) (*Result, error) {
	layout, err := deburst.Plan(s)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Width:   layout.Width,
		XOffset: layout.XOffset,
		YOffset: layout.YOffset,
	}

	var trimmed []raster.GCP
	for i, batch := range BatchByLine(gcps, s.LinesPerBurst(), s.Len()) {
		shift := float64(layout.CumulativeOverlap(i))
		for _, g := range batch {
			pixel := g.Pixel - float64(layout.XOffset)
			if !geodesy.ValidPoint(g) || pixel < 0 || pixel >= float64(layout.Width) {
				res.Discarded++
				continue
			}

			g.Line -= shift
			trimmed = append(trimmed, g)

			local := g
			local.Pixel = pixel
			local.Line = g.Line - float64(layout.YOffset)
			res.GCPs = append(res.GCPs, local)
		}
	}

	gt, err := geodesy.FitAffine(trimmed)
	if err != nil {
		if errors.Is(err, geodesy.ErrInsufficientPoints) {
			return nil, fmt.Errorf("%w: %d kept, %d discarded: %w", ErrInsufficientControlPoints, len(trimmed), res.Discarded, err)
		}
		return nil, err
	}
	res.GeoTransform = gt.Translate(float64(layout.XOffset), float64(layout.YOffset))
	res.RMSE = geodesy.RMSE(res.GeoTransform, res.GCPs)

	r.logger.Debug("rereferenced control points",
		slog.Int("kept", len(res.GCPs)),
		slog.Int("discarded", res.Discarded),
		slog.Float64("rmse", res.RMSE),
	)

	return res, nil
}

// BatchByLine splits control points into one batch per burst. A point belongs
// to burst floor(line / linesPerBurst), clamped to the swath. Order within a
// batch is preserved.
func BatchByLine(gcps []raster.GCP, linesPerBurst, bursts int) [][]raster.GCP {
	if bursts < 1 || linesPerBurst < 1 {
		return nil
	}

	batches := make([][]raster.GCP, bursts)
	for _, g := range gcps {
		i := 0
		if line := math.Floor(g.Line / float64(linesPerBurst)); line > 0 {
			i = int(min(line, float64(bursts-1)))
		}
		batches[i] = append(batches[i], g)
	}
	return batches
}
