package burst

import (
	"fmt"
)

// Swath is an ordered sequence of bursts sharing one annotation and
// measurement pair. Burst i of a swath always has index i.
type Swath struct {
	bursts []*Burst
}

// NewSwath builds the bursts of a swath from their metadata, in acquisition
// order. Per-swath constants must agree across bursts and reference epochs
// must strictly increase.
func NewSwath(metas []Metadata) (*Swath, error) {
	if len(metas) == 0 {
		return nil, fmt.Errorf("%w: swath has no bursts", ErrInconsistentMetadata)
	}

	bursts := make([]*Burst, 0, len(metas))
	for i, meta := range metas {
		b, err := New(i, meta)
		if err != nil {
			return nil, err
		}

		if i > 0 {
			first := bursts[0]
			if b.linesPerBurst != first.linesPerBurst || b.samplesPerBurst != first.samplesPerBurst {
				return nil, fmt.Errorf("%w: burst %d geometry %dx%d differs from swath %dx%d",
					ErrInconsistentMetadata, i, b.linesPerBurst, b.samplesPerBurst, first.linesPerBurst, first.samplesPerBurst)
			}
			if b.interval != first.interval {
				return nil, fmt.Errorf("%w: burst %d azimuth time interval %g differs from swath %g",
					ErrInconsistentMetadata, i, b.interval, first.interval)
			}
			if prev := bursts[i-1]; b.anxTime <= prev.anxTime {
				return nil, fmt.Errorf("%w: burst %d epoch %gs not after burst %d epoch %gs",
					ErrMalformedTiming, i, b.anxTime, i-1, prev.anxTime)
			}
		}

		bursts = append(bursts, b)
	}

	return &Swath{bursts: bursts}, nil
}

// Len returns the number of bursts.
func (s *Swath) Len() int { return len(s.bursts) }

// Burst returns the burst at index i.
func (s *Swath) Burst(i int) *Burst { return s.bursts[i] }

// Bursts returns the bursts in acquisition order.
func (s *Swath) Bursts() []*Burst {
	out := make([]*Burst, len(s.bursts))
	copy(out, s.bursts)
	return out
}

// LinesPerBurst returns the raster lines per burst shared by the swath.
func (s *Swath) LinesPerBurst() int { return s.bursts[0].linesPerBurst }

// Overlaps returns the overlap of every burst with its predecessor. The first
// entry is always 0.
func (s *Swath) Overlaps() ([]int, error) {
	overlaps := make([]int, len(s.bursts))
	for i := 1; i < len(s.bursts); i++ {
		n, err := Overlap(s.bursts[i-1], s.bursts[i])
		if err != nil {
			return nil, err
		}
		overlaps[i] = n
	}
	return overlaps, nil
}
