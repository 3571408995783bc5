package raster

import "errors"

var (
	// ErrNotFound is returned when a raster or its control points are unknown to a store.
	ErrNotFound = errors.New("raster not found")

	// ErrWindowOutOfBounds is returned when a requested window does not fit inside the raster.
	ErrWindowOutOfBounds = errors.New("window out of raster bounds")

	// ErrUnsupportedFormat is returned when a raster file cannot be represented as samples.
	ErrUnsupportedFormat = errors.New("unsupported raster format")
)
