// Package transform rotates and crops grayscale buffers to match the display.
//
// Every function returns a new buffer and leaves its input untouched, except
// for the identity cases that hand the input back as-is.
package transform

import (
	"github.com/textcamera/textcamera/internal/gray"

	apperrors "github.com/textcamera/textcamera/internal/errors"
)

// QuarterTurns maps a sensor rotation hint in degrees to clockwise quarter turns.
func QuarterTurns(degrees int) (int, error) {
	switch degrees {
	case 0:
		return 0, nil
	case 90:
		return 1, nil
	case 180:
		return 2, nil
	case 270:
		return 3, nil
	default:
		return 0, apperrors.Newf(apperrors.CodeInvalidArgument, "unsupported rotation %d degrees", degrees)
	}
}

// RotateClockwise rotates b by quarterTurns*90 degrees clockwise.
//
// quarterTurns is taken mod 4 and may be negative. Zero returns b itself.
// Odd turns swap width and height.
func RotateClockwise(b *gray.Buffer, quarterTurns int) *gray.Buffer {
	w, h := b.Width(), b.Height()
	src := b.Samples()
	switch ((quarterTurns % 4) + 4) % 4 {
	case 1:
		// Each input column, read bottom to top, becomes an output row.
		dst := make([]int, 0, w*h)
		for x := 0; x < w; x++ {
			for y := h - 1; y >= 0; y-- {
				dst = append(dst, src[y*w+x])
			}
		}
		return fromSamples(h, w, dst)
	case 2:
		dst := make([]int, len(src))
		for i, v := range src {
			dst[len(src)-1-i] = v
		}
		return fromSamples(w, h, dst)
	case 3:
		// Input columns right to left, each read top to bottom.
		dst := make([]int, 0, w*h)
		for x := w - 1; x >= 0; x-- {
			for y := 0; y < h; y++ {
				dst = append(dst, src[y*w+x])
			}
		}
		return fromSamples(h, w, dst)
	default:
		return b
	}
}

func fromSamples(width, height int, samples []int) *gray.Buffer {
	out := &gray.Buffer{}
	out.Replace(width, height, samples)
	return out
}

// CenterCrop returns the targetWidth x targetHeight window centered in b.
//
// The window starts at ((W-w)/2, (H-h)/2) with floor division, so an odd
// surplus leaves the extra column or row on the right or bottom. A target
// larger than b in either dimension fails with CodeCropTargetTooLarge.
func CenterCrop(b *gray.Buffer, targetWidth, targetHeight int) (*gray.Buffer, error) {
	if targetWidth <= 0 || targetHeight <= 0 {
		return nil, apperrors.Newf(apperrors.CodeInvalidArgument, "invalid crop target %dx%d", targetWidth, targetHeight)
	}
	w, h := b.Width(), b.Height()
	if targetWidth > w || targetHeight > h {
		return nil, apperrors.Newf(apperrors.CodeCropTargetTooLarge, "crop target %dx%d exceeds %dx%d", targetWidth, targetHeight, w, h)
	}
	xOff := (w - targetWidth) / 2
	yOff := (h - targetHeight) / 2
	src := b.Samples()
	dst := make([]int, targetWidth*targetHeight)
	for y := 0; y < targetHeight; y++ {
		start := (y+yOff)*w + xOff
		copy(dst[y*targetWidth:(y+1)*targetWidth], src[start:start+targetWidth])
	}
	return fromSamples(targetWidth, targetHeight, dst), nil
}
