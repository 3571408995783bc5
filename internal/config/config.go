// Package config provides configuration management for the deburst service and CLI.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds the complete application configuration loaded from environment variables.
type Config struct {
	Server     ServerConfig     `envPrefix:"SERVER_"`
	Processing ProcessingConfig `envPrefix:"PROCESSING_"`
	Catalog    CatalogConfig    `envPrefix:"CATALOG_"`
	STAC       STACConfig       `envPrefix:"STAC_"`
	Logging    LoggingConfig    `envPrefix:"LOG_"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Host            string        `env:"HOST" envDefault:"0.0.0.0"`
	Port            int           `env:"PORT" envDefault:"8080"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"5m"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// ProcessingConfig controls mosaic assembly.
type ProcessingConfig struct {
	// Workers bounds the number of bursts read concurrently
	Workers     int    `env:"WORKERS" envDefault:"4"`
	OutputDir   string `env:"OUTPUT_DIR" envDefault:"./output"`
	WriteOutput bool   `env:"WRITE_OUTPUT" envDefault:"false"`
	// DataRoot is the directory SAFE paths in requests are resolved against
	DataRoot string `env:"DATA_ROOT" envDefault:"./data"`
}

// CatalogConfig controls how long processed mosaics are retained.
type CatalogConfig struct {
	TTL             time.Duration `env:"TTL" envDefault:"1h"`
	CleanupInterval time.Duration `env:"CLEANUP_INTERVAL" envDefault:"5m"`
}

// STACConfig contains STAC metadata configuration.
type STACConfig struct {
	Version    string `env:"VERSION" envDefault:"1.0.0"`
	BaseURL    string `env:"BASE_URL"` // Public-facing URL (required)
	Collection string `env:"COLLECTION" envDefault:"sentinel-1-deburst"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"`
}

// Load parses configuration from environment variables.
// It returns an error if required fields are missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}

	opts := env.Options{
		RequiredIfNoDef: true,
	}

	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive, got %s", c.Server.ReadTimeout)
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive, got %s", c.Server.WriteTimeout)
	}

	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server shutdown timeout must be positive, got %s", c.Server.ShutdownTimeout)
	}

	// Validate processing config
	if c.Processing.Workers < 1 {
		return fmt.Errorf("processing workers must be at least 1, got %d", c.Processing.Workers)
	}

	if c.Processing.WriteOutput && c.Processing.OutputDir == "" {
		return fmt.Errorf("output directory is required when output writing is enabled")
	}

	if c.Processing.DataRoot == "" {
		return fmt.Errorf("data root is required")
	}

	// Validate catalog config
	if c.Catalog.TTL <= 0 {
		return fmt.Errorf("catalog TTL must be positive, got %s", c.Catalog.TTL)
	}

	if c.Catalog.CleanupInterval <= 0 {
		return fmt.Errorf("catalog cleanup interval must be positive, got %s", c.Catalog.CleanupInterval)
	}

	// Validate STAC config
	if c.STAC.BaseURL == "" {
		return fmt.Errorf("STAC base URL is required")
	}

	if c.STAC.Version == "" {
		return fmt.Errorf("STAC version is required")
	}

	if c.STAC.Collection == "" {
		return fmt.Errorf("STAC collection is required")
	}

	// Validate logging config
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level %q, must be one of: debug, info, warn, error", c.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"json": true,
		"text": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format %q, must be one of: json, text", c.Logging.Format)
	}

	return nil
}

// Address returns the server listen address in the format "host:port".
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
