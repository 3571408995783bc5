package safe

import "errors"

var (
	// ErrInvalidProductName is returned when a name does not follow the
	// Sentinel-1 product naming convention.
	ErrInvalidProductName = errors.New("invalid product name")

	// ErrInvalidSAFE is returned when a directory lacks the SAFE layout.
	ErrInvalidSAFE = errors.New("not a valid SAFE directory")

	// ErrNotFound is returned when no file matches a swath and band.
	ErrNotFound = errors.New("file not found in product")
)
