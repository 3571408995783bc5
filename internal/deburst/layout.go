// Package deburst assembles the bursts of one swath into a single mosaic with
// the duplicated overlap lines removed.
package deburst

import (
	"fmt"

	"github.com/robert-malhotra/s1-deburst/internal/burst"
)

// Layout describes where each burst of a swath lands in the mosaic.
type Layout struct {
	// Overlaps[i] is the number of lines burst i shares with burst i-1.
	Overlaps []int `json:"overlaps"`
	// Heights and Widths are the valid window extents of each burst.
	Heights []int `json:"heights"`
	Widths  []int `json:"widths"`
	// Offsets[i] is the mosaic row where burst i's first valid line is written.
	Offsets []int `json:"offsets"`

	Width  int `json:"width"`
	Height int `json:"height"`

	// XOffset and YOffset locate mosaic pixel (0,0) in the raw raster: the
	// first burst's h_start and absolute v_start.
	XOffset int `json:"x_offset"`
	YOffset int `json:"y_offset"`
}

// Plan computes the mosaic layout of a swath without reading any pixels.
func Plan(s *burst.Swath) (*Layout, error) {
	if s == nil || s.Len() == 0 {
		return nil, fmt.Errorf("%w: empty swath", burst.ErrInconsistentMetadata)
	}

	overlaps, err := s.Overlaps()
	if err != nil {
		return nil, err
	}

	n := s.Len()
	l := &Layout{
		Overlaps: overlaps,
		Heights:  make([]int, n),
		Widths:   make([]int, n),
		Offsets:  make([]int, n),
		XOffset:  s.Burst(0).HStart(),
		YOffset:  s.Burst(0).AbsVStart(),
	}

	width := 0
	for i, b := range s.Bursts() {
		l.Heights[i] = b.Height()
		l.Widths[i] = b.Width()
		if l.Widths[i] < 1 || l.Heights[i] < 1 {
			return nil, fmt.Errorf("%w: %s", burst.ErrDegenerateWindow, b)
		}
		if i == 0 || l.Widths[i] < width {
			width = l.Widths[i]
		}
	}
	l.Width = width

	p := 0
	for i := range l.Offsets {
		if i > 0 && overlaps[i] > l.Heights[i-1] {
			return nil, fmt.Errorf("%w: overlap %d of burst %d exceeds previous valid height %d",
				burst.ErrMalformedTiming, overlaps[i], i, l.Heights[i-1])
		}
		if overlaps[i] > l.Heights[i] {
			return nil, fmt.Errorf("%w: overlap %d of burst %d exceeds its own valid height %d",
				burst.ErrMalformedTiming, overlaps[i], i, l.Heights[i])
		}
		l.Offsets[i] = p - overlaps[i]
		p = l.Offsets[i] + l.Heights[i]
	}

	height := 0
	for i := range l.Heights {
		height += l.Heights[i] - l.Overlaps[i]
	}
	if height != p {
		return nil, fmt.Errorf("%w: mosaic height %d does not match composed height %d",
			burst.ErrInconsistentMetadata, height, p)
	}
	l.Height = height

	return l, nil
}

// Span returns the half-open mosaic row range [start, end) that burst i
// occupies once every later burst has been written.
func (l *Layout) Span(i int) (start, end int) {
	start = l.Offsets[i]
	end = start + l.Heights[i]
	if i+1 < len(l.Offsets) {
		end = l.Offsets[i+1]
	}
	return start, end
}

// CumulativeOverlap returns the number of lines trimmed up to and including
// burst i.
func (l *Layout) CumulativeOverlap(i int) int {
	total := 0
	for k := 0; k <= i && k < len(l.Overlaps); k++ {
		total += l.Overlaps[k]
	}
	return total
}
