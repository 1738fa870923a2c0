// Package tone splits a frame's observed intensity range into glyph bins.
package tone

import (
	"github.com/textcamera/textcamera/internal/gray"

	apperrors "github.com/textcamera/textcamera/internal/errors"
)

// Bins holds one upper threshold per glyph, non-decreasing.
//
// Thresholds are multiples of the bin size counted from zero, not from the
// frame minimum: thresholds[i] = binSize*(i+1) with
// binSize = (max-min)/glyphCount.
type Bins struct {
	thresholds []float64
}

// Range returns the darkest and brightest sample of b.
func Range(b *gray.Buffer) (lo, hi int) {
	s := b.Samples()
	if len(s) == 0 {
		return 0, 0
	}
	lo, hi = s[0], s[0]
	for _, v := range s[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

// ComputeBins scans b once and returns glyphCount thresholds.
//
// A flat frame (min == max) yields all-zero thresholds; see Classify for how
// those are resolved.
func ComputeBins(b *gray.Buffer, glyphCount int) (Bins, error) {
	if glyphCount <= 0 {
		return Bins{}, apperrors.Newf(apperrors.CodeInvalidArgument, "glyph count %d", glyphCount)
	}
	lo, hi := Range(b)
	binSize := float64(hi-lo) / float64(glyphCount)
	t := make([]float64, glyphCount)
	for i := range t {
		t[i] = binSize * float64(i+1)
	}
	return Bins{thresholds: t}, nil
}

// Len returns the number of bins.
func (b Bins) Len() int { return len(b.thresholds) }

// Thresholds returns a copy of the thresholds.
func (b Bins) Thresholds() []float64 {
	out := make([]float64, len(b.thresholds))
	copy(out, b.thresholds)
	return out
}

// Classify returns the index of the first bin whose threshold is not exceeded
// by avg. A value equal to a threshold belongs to that bin. Values above every
// threshold fall into the last bin.
//
// With a flat frame every threshold is 0: avg 0 maps to bin 0 and anything
// brighter to the last bin. Classify never returns an index outside
// [0, Len()) unless Len() is 0, in which case it returns 0.
func (b Bins) Classify(avg int) int {
	v := float64(avg)
	for i, t := range b.thresholds {
		if v <= t {
			return i
		}
	}
	if len(b.thresholds) == 0 {
		return 0
	}
	return len(b.thresholds) - 1
}
