// Package server provides a public API for embedding the deburst service.
package server

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/robert-malhotra/s1-deburst/internal/annotation"
	"github.com/robert-malhotra/s1-deburst/internal/api"
	"github.com/robert-malhotra/s1-deburst/internal/catalog"
	"github.com/robert-malhotra/s1-deburst/internal/config"
	"github.com/robert-malhotra/s1-deburst/internal/metrics"
	"github.com/robert-malhotra/s1-deburst/internal/process"
	"github.com/robert-malhotra/s1-deburst/internal/raster"
)

// Options configures the deburst server.
type Options struct {
	// BaseURL is the public-facing URL for self-referential links (required).
	// Example: "https://api.example.com/deburst" or "http://localhost:8080"
	BaseURL string

	// DataRoot is the directory SAFE products are resolved against (required).
	DataRoot string

	// Collection is the STAC collection ID of produced mosaics.
	// Default: "sentinel-1-deburst"
	Collection string

	// Workers bounds concurrent burst reads per mosaic.
	// Default: 4
	Workers int

	// OutputDir receives a GeoTIFF, world file and item sidecar per mosaic.
	// Default: "" (mosaics are kept in memory only)
	OutputDir string

	// CatalogTTL is how long processed mosaics are served.
	// Default: 1h
	CatalogTTL time.Duration

	// Metrics instruments the router and pipeline and serves /metrics.
	// Default: nil (a private registry is created)
	Metrics *metrics.Metrics

	// Logger is the slog logger to use.
	// Default: slog.Default()
	Logger *slog.Logger
}

// Server is a deburst server that can be embedded in another application.
type Server struct {
	router chi.Router
	store  *catalog.MemoryStore
}

// New creates a new deburst server with the given options.
func New(opts Options) (*Server, error) {
	if opts.Collection == "" {
		opts.Collection = "sentinel-1-deburst"
	}
	if opts.Workers == 0 {
		opts.Workers = 4
	}
	if opts.CatalogTTL == 0 {
		opts.CatalogTTL = time.Hour
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	cfg := &config.Config{
		Server: config.ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    5 * time.Minute,
			ShutdownTimeout: 10 * time.Second,
		},
		Processing: config.ProcessingConfig{
			Workers:     opts.Workers,
			OutputDir:   opts.OutputDir,
			WriteOutput: opts.OutputDir != "",
			DataRoot:    opts.DataRoot,
		},
		Catalog: config.CatalogConfig{
			TTL:             opts.CatalogTTL,
			CleanupInterval: min(opts.CatalogTTL, 5*time.Minute),
		},
		STAC: config.STACConfig{
			Version:    "1.0.0",
			BaseURL:    opts.BaseURL,
			Collection: opts.Collection,
		},
		Logging: config.LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server options: %w", err)
	}

	return NewFromConfig(cfg, opts.Metrics, opts.Logger), nil
}

// NewFromConfig wires the pipeline, catalog and router described by cfg.
// cfg must already be validated.
func NewFromConfig(cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) *Server {
	pipeline := process.NewPipeline(raster.NewTIFFStore().WithLogger(logger), annotation.FileSource{}).
		WithLogger(logger).
		WithWorkers(cfg.Processing.Workers).
		WithRecorder(m)
	if cfg.Processing.WriteOutput {
		pipeline = pipeline.WithWriter(raster.NewTIFFWriter(cfg.Processing.OutputDir).WithLogger(logger))
	}

	store := catalog.NewMemoryStore(cfg.Catalog.TTL, cfg.Catalog.CleanupInterval)

	handlers := api.NewHandlers(cfg, pipeline, store, logger).WithMetrics(m)
	router := api.NewRouter(handlers, logger)

	return &Server{
		router: router,
		store:  store,
	}
}

// Router returns the chi.Router for mounting in another application.
func (s *Server) Router() chi.Router {
	return s.router
}

// Close stops background goroutines (catalog cleanup).
func (s *Server) Close() {
	if s.store != nil {
		s.store.Stop()
	}
}
