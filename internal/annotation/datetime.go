package annotation

import (
	"fmt"
	"strings"
	"time"
)

// Time formats observed in product annotation and manifest files.
// Annotation timestamps carry microseconds and no zone: "2019-01-20T06:03:57.094993".
var timeFormats = []string{
	"2006-01-02T15:04:05.000000",    // annotation format with microseconds
	"2006-01-02T15:04:05.999999999", // variable fraction
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"20060102T150405", // product name format
}

// ParseTime parses an annotation timestamp. Times without a zone are UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty time string")
	}

	var lastErr error
	for _, format := range timeFormats {
		t, err := time.Parse(format, s)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}

	return time.Time{}, fmt.Errorf("failed to parse annotation time %q: %w", s, lastErr)
}

// Time is an annotation timestamp element.
type Time struct {
	time.Time
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Time) UnmarshalText(text []byte) error {
	if len(strings.TrimSpace(string(text))) == 0 {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := ParseTime(string(text))
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}
