// Package burst models Sentinel-1 TOPSAR bursts and the line overlap between
// consecutive bursts of one swath.
package burst

import (
	"fmt"
)

// Metadata holds the per-burst annotation fields needed to locate a burst
// inside its measurement raster. A negative value in FirstValidSample or
// LastValidSample marks an invalid line at that offset within the burst.
type Metadata struct {
	LinesPerBurst       int
	SamplesPerBurst     int
	AzimuthTimeInterval float64 // seconds per line, constant per swath
	AzimuthAnxTime      float64 // seconds since ascending node crossing
	FirstValidSample    []int
	LastValidSample     []int
}

// Window is a rectangular pixel region of the raw measurement raster.
type Window struct {
	X, Y          int
	Width, Height int
}

// Burst is an immutable view of one burst of a swath, with its valid pixel
// window already derived from the annotation.
type Burst struct {
	index      int
	lineOffset int

	linesPerBurst   int
	samplesPerBurst int
	interval        float64
	anxTime         float64

	// Valid window. Vertical bounds are local to the burst.
	hStart, hEnd int
	vStart, vEnd int
}

// New derives the burst at position index of its swath from meta.
func New(index int, meta Metadata) (*Burst, error) {
	if index < 0 {
		return nil, fmt.Errorf("%w: negative burst index %d", ErrInconsistentMetadata, index)
	}
	if meta.LinesPerBurst <= 0 || meta.SamplesPerBurst <= 0 {
		return nil, fmt.Errorf("%w: burst %d has %d lines and %d samples",
			ErrInconsistentMetadata, index, meta.LinesPerBurst, meta.SamplesPerBurst)
	}
	if meta.AzimuthTimeInterval <= 0 {
		return nil, fmt.Errorf("%w: burst %d azimuth time interval must be positive, got %g",
			ErrInconsistentMetadata, index, meta.AzimuthTimeInterval)
	}
	if len(meta.FirstValidSample) != meta.LinesPerBurst || len(meta.LastValidSample) != meta.LinesPerBurst {
		return nil, fmt.Errorf("%w: burst %d valid sample arrays have lengths %d/%d, want %d",
			ErrInconsistentMetadata, index, len(meta.FirstValidSample), len(meta.LastValidSample), meta.LinesPerBurst)
	}

	b := &Burst{
		index:           index,
		lineOffset:      index * meta.LinesPerBurst,
		linesPerBurst:   meta.LinesPerBurst,
		samplesPerBurst: meta.SamplesPerBurst,
		interval:        meta.AzimuthTimeInterval,
		anxTime:         meta.AzimuthAnxTime,
	}

	b.hStart = maxInt(meta.FirstValidSample)
	b.hEnd = maxInt(meta.LastValidSample)
	if b.hStart < 0 || b.hEnd > meta.SamplesPerBurst {
		return nil, fmt.Errorf("%w: burst %d horizontal window [%d, %d) outside [0, %d)",
			ErrDegenerateWindow, index, b.hStart, b.hEnd, meta.SamplesPerBurst)
	}
	if b.hEnd <= b.hStart {
		return nil, fmt.Errorf("%w: burst %d horizontal window [%d, %d)", ErrDegenerateWindow, index, b.hStart, b.hEnd)
	}

	// The azimuth-valid strip starts at the first valid line and ends at the
	// first line after it that turns invalid again.
	b.vStart = -1
	for i, s := range meta.FirstValidSample {
		if s >= 0 {
			b.vStart = i
			break
		}
	}
	if b.vStart < 0 {
		return nil, fmt.Errorf("%w: burst %d has no valid lines", ErrDegenerateWindow, index)
	}
	b.vEnd = meta.LinesPerBurst
	for i := b.vStart; i < meta.LinesPerBurst; i++ {
		if meta.FirstValidSample[i] < 0 {
			b.vEnd = i
			break
		}
	}

	return b, nil
}

// Index returns the 0-based position of the burst within its swath.
func (b *Burst) Index() int { return b.index }

// LineOffset returns the absolute raster line of the burst's first row.
func (b *Burst) LineOffset() int { return b.lineOffset }

// LinesPerBurst returns the number of raster lines recorded for the burst.
func (b *Burst) LinesPerBurst() int { return b.linesPerBurst }

// SamplesPerBurst returns the number of raster samples per line.
func (b *Burst) SamplesPerBurst() int { return b.samplesPerBurst }

// AzimuthTimeInterval returns the line spacing in seconds.
func (b *Burst) AzimuthTimeInterval() float64 { return b.interval }

// AzimuthAnxTime returns the burst reference epoch in seconds.
func (b *Burst) AzimuthAnxTime() float64 { return b.anxTime }

// HStart returns the first valid sample column.
func (b *Burst) HStart() int { return b.hStart }

// HEnd returns the exclusive end of the valid sample columns.
func (b *Burst) HEnd() int { return b.hEnd }

// VStart returns the first valid line, local to the burst.
func (b *Burst) VStart() int { return b.vStart }

// VEnd returns the exclusive end of the valid lines, local to the burst.
func (b *Burst) VEnd() int { return b.vEnd }

// AbsVStart returns the first valid line in the raw raster.
func (b *Burst) AbsVStart() int { return b.vStart + b.lineOffset }

// AbsVEnd returns the exclusive end of the valid lines in the raw raster.
func (b *Burst) AbsVEnd() int { return b.vEnd + b.lineOffset }

// Width returns the valid window width in samples.
func (b *Burst) Width() int { return b.hEnd - b.hStart }

// Height returns the valid window height in lines.
func (b *Burst) Height() int { return b.vEnd - b.vStart }

// Window returns the valid window in raw raster coordinates.
func (b *Burst) Window() Window {
	return Window{
		X:      b.hStart,
		Y:      b.AbsVStart(),
		Width:  b.Width(),
		Height: b.Height(),
	}
}

// AzimuthTime returns the acquisition time of a line local to the burst.
func (b *Burst) AzimuthTime(line int) float64 {
	return b.anxTime + float64(line)*b.interval
}

// String implements fmt.Stringer.
func (b *Burst) String() string {
	return fmt.Sprintf("burst %d [x=%d y=%d w=%d h=%d]", b.index, b.hStart, b.AbsVStart(), b.Width(), b.Height())
}

func maxInt(values []int) int {
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
