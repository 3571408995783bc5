package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/robert-malhotra/s1-deburst/internal/config"
	"github.com/robert-malhotra/s1-deburst/internal/process"
	"github.com/robert-malhotra/s1-deburst/internal/raster"
	"github.com/robert-malhotra/s1-deburst/internal/safe"
	"github.com/robert-malhotra/s1-deburst/internal/stac"
)

type runner struct {
	reader     raster.Reader
	gcps       raster.GCPSource
	workers    int
	defaultOut string
	baseURL    string
	collection string
	logger     *slog.Logger
}

// summary is one line of CLI output per produced mosaic.
type summary struct {
	ID     string
	Width  int
	Height int
	Bursts int
	Output string
	Note   string
}

func (s summary) String() string {
	line := fmt.Sprintf("%s %dx%d bursts=%d %s", s.ID, s.Width, s.Height, s.Bursts, s.Output)
	if s.Note != "" {
		line += " (" + s.Note + ")"
	}
	return line
}

// runJobs processes every swath and band selected by jobs. A failing
// mosaic does not stop the others; all failures are joined into the
// returned error.
func (r *runner) runJobs(ctx context.Context, jobs []config.Job) ([]summary, error) {
	var (
		out  []summary
		errs []error
	)
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		name, err := safe.ParseProductName(filepath.Base(filepath.Clean(job.SAFE)))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", job.SAFE, err))
			continue
		}

		dir := job.Output
		if dir == "" {
			dir = r.defaultOut
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return out, fmt.Errorf("failed to create output directory: %w", err)
		}
		pipeline := process.NewPipeline(r.reader, r.gcps).
			WithLogger(r.logger).
			WithWorkers(r.workers).
			WithWriter(raster.NewTIFFWriter(dir).WithLogger(r.logger))

		for _, swath := range selectSwaths(job, name) {
			for _, band := range selectBands(job, name) {
				s, err := r.runOne(ctx, pipeline, job.SAFE, swath, band)
				if err != nil {
					errs = append(errs, fmt.Errorf("%s %s%d %s: %w", name, name.Mode, swath, band, err))
					continue
				}
				out = append(out, s)
			}
		}
	}
	return out, errors.Join(errs...)
}

func (r *runner) runOne(ctx context.Context, p *process.Pipeline, dir string, swath int, band string) (summary, error) {
	res, err := p.Run(ctx, dir, swath, band)
	if err != nil {
		return summary{}, err
	}

	item, err := stac.MosaicItem(res, stac.ItemOptions{
		Collection: r.collection,
		BaseURL:    r.baseURL,
		Version:    "1.0.0",
	})
	if err != nil {
		return summary{}, err
	}
	if res.Output != "" {
		if err := stac.WriteSidecar(stac.SidecarPath(res.Output), item); err != nil {
			return summary{}, err
		}
	}

	s := summary{
		ID:     res.ID,
		Width:  res.Mosaic.Width,
		Height: res.Mosaic.Height,
		Bursts: len(res.Bursts),
		Output: res.Output,
	}
	if !res.Georeferenced() {
		s.Note = "not georeferenced: " + res.GeorefError
	}
	return s, nil
}

func selectSwaths(job config.Job, name safe.ProductName) []int {
	if len(job.Swaths) > 0 {
		return job.Swaths
	}
	swaths := make([]int, name.Swaths())
	for i := range swaths {
		swaths[i] = i + 1
	}
	return swaths
}

func selectBands(job config.Job, name safe.ProductName) []string {
	if len(job.Bands) == 0 {
		return name.Bands()
	}
	bands := make([]string, len(job.Bands))
	for i, b := range job.Bands {
		bands[i] = strings.ToUpper(b)
	}
	return bands
}
