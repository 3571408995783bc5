package burst

import "errors"

var (
	// ErrMalformedTiming is returned when burst azimuth timing contradicts the
	// acquisition order, e.g. a negative overlap between adjacent bursts.
	ErrMalformedTiming = errors.New("malformed burst timing")

	// ErrDegenerateWindow is returned when a burst's valid pixel window has
	// zero or negative extent.
	ErrDegenerateWindow = errors.New("degenerate burst window")

	// ErrInconsistentMetadata is returned when burst metadata fields disagree
	// with each other or with the rest of the swath.
	ErrInconsistentMetadata = errors.New("inconsistent burst metadata")

	// ErrNotAdjacent is returned when an overlap is requested for bursts that
	// are not consecutive within one swath.
	ErrNotAdjacent = errors.New("bursts are not adjacent")
)
