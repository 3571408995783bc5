// Command deburst stitches the bursts of Sentinel-1 SAFE swaths into
// georeferenced mosaics, writing a GeoTIFF, world file and STAC item per
// swath and band.
//
// Usage:
//
//	deburst -safe S1A_IW_SLC__1SDV_....SAFE -swath 1 -band VV -out ./output
//	deburst -jobs jobs.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/robert-malhotra/s1-deburst/internal/annotation"
	"github.com/robert-malhotra/s1-deburst/internal/config"
	"github.com/robert-malhotra/s1-deburst/internal/raster"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("deburst", flag.ContinueOnError)
	safeDir := fs.String("safe", "", "SAFE product directory")
	swath := fs.Int("swath", 0, "swath number, 0 for every swath of the product")
	band := fs.String("band", "", "polarisation band, empty for every band of the product")
	out := fs.String("out", "./output", "output directory")
	jobsFile := fs.String("jobs", "", "YAML job file, used instead of -safe")
	workers := fs.Int("workers", 4, "concurrent burst reads per mosaic")
	baseURL := fs.String("base-url", "", "public URL used in STAC item links")
	collection := fs.String("collection", "sentinel-1-deburst", "STAC collection of produced items")
	logLevel := fs.String("log-level", "info", "log level: debug, info, warn, error")
	logFormat := fs.String("log-format", "text", "log format: json, text")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger := setupLogger(*logLevel, *logFormat)

	var jobs []config.Job
	switch {
	case *jobsFile != "":
		jf, err := config.LoadJobs(*jobsFile)
		if err != nil {
			return err
		}
		jobs = jf.Jobs
	case *safeDir != "":
		job := config.Job{SAFE: *safeDir, Output: *out}
		if *swath != 0 {
			job.Swaths = []int{*swath}
		}
		if *band != "" {
			job.Bands = []string{*band}
		}
		if err := job.Validate(); err != nil {
			return err
		}
		jobs = []config.Job{job}
	default:
		fs.Usage()
		return fmt.Errorf("either -safe or -jobs is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r := &runner{
		reader:     raster.NewTIFFStore().WithLogger(logger),
		gcps:       annotation.FileSource{},
		workers:    *workers,
		defaultOut: *out,
		baseURL:    *baseURL,
		collection: *collection,
		logger:     logger,
	}

	summaries, err := r.runJobs(ctx, jobs)
	for _, s := range summaries {
		fmt.Println(s)
	}
	return err
}

func setupLogger(level, format string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}
