// Package process runs the deburst pipeline for one swath and band of a SAFE
// product: metadata extraction, burst reads, assembly and rereferencing.
package process

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/robert-malhotra/s1-deburst/internal/annotation"
	"github.com/robert-malhotra/s1-deburst/internal/burst"
	"github.com/robert-malhotra/s1-deburst/internal/deburst"
	"github.com/robert-malhotra/s1-deburst/internal/georef"
	"github.com/robert-malhotra/s1-deburst/internal/raster"
	"github.com/robert-malhotra/s1-deburst/internal/safe"
)

// SpatialReference is the reference system of control point positions.
const SpatialReference = "EPSG:4326"

// Recorder observes pipeline runs.
type Recorder interface {
	ObserveMosaic(status string, elapsed time.Duration, bursts, discarded int)
}

type nopRecorder struct{}

func (nopRecorder) ObserveMosaic(string, time.Duration, int, int) {}

// BurstInfo summarises where one burst landed in the mosaic.
type BurstInfo struct {
	Index          int     `json:"index"`
	AzimuthAnxTime float64 `json:"azimuth_anx_time"`
	X              int     `json:"x"`
	Y              int     `json:"y"`
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	Overlap        int     `json:"overlap"`
	Offset         int     `json:"offset"`
	SpanStart      int     `json:"span_start"`
	SpanEnd        int     `json:"span_end"`
}

// Result is the output of one pipeline run.
type Result struct {
	ID      string           `json:"id"`
	Product safe.ProductName `json:"product"`
	Files   safe.Files       `json:"files"`
	Swath   annotation.Swath `json:"swath"`
	Bursts  []BurstInfo      `json:"bursts"`
	Mosaic  *deburst.Mosaic  `json:"-"`
	Georef  *georef.Result   `json:"-"`

	// GeorefError is set when the mosaic could not be georeferenced. The
	// pixels are still valid.
	GeorefError string    `json:"georef_error,omitempty"`
	Output      string    `json:"output,omitempty"`
	Created     time.Time `json:"created"`
}

// Georeferenced reports whether the result carries a geotransform.
func (r *Result) Georeferenced() bool { return r.Georef != nil }

// Pipeline wires the raster store, control point source and optional writer.
type Pipeline struct {
	reader     raster.Reader
	gcps       raster.GCPSource
	writer     raster.Writer
	assembler  *deburst.Assembler
	referencer *georef.Referencer
	recorder   Recorder
	logger     *slog.Logger
}

// NewPipeline creates a pipeline reading pixels from reader and control
// points from gcps.
func NewPipeline(reader raster.Reader, gcps raster.GCPSource) *Pipeline {
	return &Pipeline{
		reader:     reader,
		gcps:       gcps,
		assembler:  deburst.NewAssembler(reader),
		referencer: georef.NewReferencer(),
		recorder:   nopRecorder{},
		logger:     slog.Default(),
	}
}

// WithLogger sets the logger for the pipeline and its stages.
func (p *Pipeline) WithLogger(logger *slog.Logger) *Pipeline {
	p.logger = logger
	p.assembler.WithLogger(logger)
	p.referencer.WithLogger(logger)
	return p
}

// WithWorkers bounds concurrent burst reads.
func (p *Pipeline) WithWorkers(n int) *Pipeline {
	p.assembler.WithWorkers(n)
	return p
}

// WithWriter makes the pipeline persist every mosaic through w.
func (p *Pipeline) WithWriter(w raster.Writer) *Pipeline {
	p.writer = w
	return p
}

// WithRecorder sets the observer of pipeline runs.
func (p *Pipeline) WithRecorder(r Recorder) *Pipeline {
	p.recorder = r
	return p
}

// Run debursts one swath, numbered from 1, and band of the SAFE product at dir.
func (p *Pipeline) Run(ctx context.Context, dir string, swath int, band string) (*Result, error) {
	start := time.Now()

	res, err := p.run(ctx, dir, swath, band)
	bursts, discarded := 0, 0
	if res != nil {
		bursts = len(res.Bursts)
		if res.Georef != nil {
			discarded = res.Georef.Discarded
		}
	}
	p.recorder.ObserveMosaic(Status(err), time.Since(start), bursts, discarded)

	if err != nil {
		p.logger.Error("deburst failed",
			slog.String("safe", dir),
			slog.Int("swath", swath),
			slog.String("band", band),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	p.logger.Info("deburst complete",
		slog.String("id", res.ID),
		slog.Int("bursts", bursts),
		slog.Int("width", res.Mosaic.Width),
		slog.Int("height", res.Mosaic.Height),
		slog.Bool("georeferenced", res.Georeferenced()),
		slog.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, dir string, swath int, band string) (*Result, error) {
	product, err := safe.Open(dir)
	if err != nil {
		return nil, err
	}
	files, err := product.Files(swath, band)
	if err != nil {
		return nil, err
	}
	ann, err := annotation.Load(files.Annotation)
	if err != nil {
		return nil, err
	}

	res, err := p.Deburst(ctx, ann, files)
	if err != nil {
		return nil, err
	}
	res.Product = product.Name
	res.ID = MosaicID(product.Name, swath, files.Band)

	if p.writer != nil {
		if err := p.write(ctx, res); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// Deburst assembles and georeferences the swath described by ann, reading
// pixels from files.Measurement and control points from files.Annotation.
func (p *Pipeline) Deburst(ctx context.Context, ann *annotation.Annotation, files safe.Files) (*Result, error) {
	s, err := ann.Swath()
	if err != nil {
		return nil, err
	}

	mosaic, err := p.assembler.Assemble(ctx, s, files.Measurement)
	p.release(files.Measurement)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Files:   files,
		Swath:   ann.SwathMetadata(),
		Bursts:  burstInfos(s, mosaic),
		Mosaic:  mosaic,
		Created: time.Now().UTC(),
	}

	gcps, err := p.gcps.GroundControlPoints(ctx, files.Annotation)
	if err != nil {
		return nil, fmt.Errorf("failed to read ground control points: %w", err)
	}

	geo, err := p.referencer.Rereference(s, gcps)
	switch {
	case errors.Is(err, georef.ErrInsufficientControlPoints):
		p.logger.Warn("mosaic not georeferenced",
			slog.String("annotation", files.Annotation),
			slog.String("error", err.Error()),
		)
		res.GeorefError = err.Error()
	case err != nil:
		return nil, err
	default:
		res.Georef = geo
	}

	return res, nil
}

// release drops any decode cache the reader keeps for path. The mosaic owns
// its pixels once assembled.
func (p *Pipeline) release(path string) {
	if f, ok := p.reader.(interface{ Forget(string) }); ok {
		f.Forget(path)
	}
}

func (p *Pipeline) write(ctx context.Context, res *Result) error {
	var (
		gt  [6]float64
		srs string
	)
	if res.Georef != nil {
		gt = res.Georef.GeoTransform
		srs = SpatialReference
	} else {
		gt = [6]float64{0, 1, 0, 0, 0, 1}
	}

	if err := p.writer.Write(ctx, res.ID, res.Mosaic.Pixels, gt, srs); err != nil {
		return fmt.Errorf("failed to write mosaic %s: %w", res.ID, err)
	}
	if pw, ok := p.writer.(interface{ TIFFPath(string) string }); ok {
		res.Output = pw.TIFFPath(res.ID)
	}
	return nil
}

func burstInfos(s *burst.Swath, m *deburst.Mosaic) []BurstInfo {
	infos := make([]BurstInfo, s.Len())
	for i, b := range s.Bursts() {
		w := b.Window()
		start, end := m.Span(i)
		infos[i] = BurstInfo{
			Index:          b.Index(),
			AzimuthAnxTime: b.AzimuthAnxTime(),
			X:              w.X,
			Y:              w.Y,
			Width:          w.Width,
			Height:         w.Height,
			Overlap:        m.Overlaps[i],
			Offset:         m.Offsets[i],
			SpanStart:      start,
			SpanEnd:        end,
		}
	}
	return infos
}

// MosaicID names the mosaic of one swath and band of a product, e.g.
// S1A_IW_SLC__1SDV_..._F5B0_IW2_VV.
func MosaicID(name safe.ProductName, swath int, band string) string {
	return fmt.Sprintf("%s_%s%d_%s", name, name.Mode, swath, strings.ToUpper(band))
}

// Status classifies a pipeline error for metrics and logs.
func Status(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, burst.ErrMalformedTiming):
		return "malformed_timing"
	case errors.Is(err, burst.ErrDegenerateWindow):
		return "degenerate_window"
	case errors.Is(err, burst.ErrInconsistentMetadata):
		return "inconsistent_metadata"
	case errors.Is(err, safe.ErrInvalidSAFE), errors.Is(err, safe.ErrInvalidProductName):
		return "invalid_product"
	case errors.Is(err, safe.ErrNotFound), errors.Is(err, raster.ErrNotFound):
		return "not_found"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "error"
	}
}
