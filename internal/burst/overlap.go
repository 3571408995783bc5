package burst

import (
	"fmt"
	"math"
)

// Overlap returns the number of lines that curr repeats from the tail of prev.
// It compares the azimuth time of the last valid line of prev with the first
// valid line of curr. The extra line biases toward removing one shared line
// rather than leaving a duplicate.
//
// A negative result means the bursts do not overlap in time and is reported
// as ErrMalformedTiming.
func Overlap(prev, curr *Burst) (int, error) {
	if prev == nil || curr == nil {
		return 0, fmt.Errorf("%w: nil burst", ErrNotAdjacent)
	}
	if curr.index != prev.index+1 {
		return 0, fmt.Errorf("%w: burst %d does not follow burst %d", ErrNotAdjacent, curr.index, prev.index)
	}
	if curr.anxTime <= prev.anxTime {
		return 0, fmt.Errorf("%w: burst %d epoch %gs not after burst %d epoch %gs",
			ErrMalformedTiming, curr.index, curr.anxTime, prev.index, prev.anxTime)
	}

	prevLast := prev.AzimuthTime(prev.AbsVEnd() - prev.lineOffset)
	currFirst := curr.AzimuthTime(curr.AbsVStart() - curr.lineOffset)

	// Floor plus one counts both boundary lines as shared.
	lines := int(math.Floor((prevLast-currFirst)/curr.interval)) + 1
	if lines < 0 {
		return lines, fmt.Errorf("%w: bursts %d and %d overlap by %d lines (dt=%gs)",
			ErrMalformedTiming, prev.index, curr.index, lines, prevLast-currFirst)
	}

	return lines, nil
}
