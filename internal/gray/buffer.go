// Package gray holds the grayscale pixel model shared by every pipeline stage.
package gray

import (
	"image"
	"image/color"

	apperrors "github.com/textcamera/textcamera/internal/errors"
)

// MaxIntensity is the brightest sample value.
const MaxIntensity = 255

// Buffer is a row-major grayscale image with its origin at the top-left.
// Sample (x, y) lives at index y*width + x.
type Buffer struct {
	width   int
	height  int
	samples []int
}

// New creates a buffer after checking dimensions, length and sample range.
func New(width, height int, samples []int) (*Buffer, error) {
	if width <= 0 || height <= 0 {
		return nil, apperrors.Newf(apperrors.CodeInvalidArgument, "invalid dimensions %dx%d", width, height)
	}
	if len(samples) != width*height {
		return nil, apperrors.Newf(apperrors.CodeInvalidArgument, "got %d samples for %dx%d", len(samples), width, height)
	}
	for i, v := range samples {
		if v < 0 || v > MaxIntensity {
			return nil, apperrors.Newf(apperrors.CodeInvalidArgument, "sample %d out of range: %d", i, v)
		}
	}
	return &Buffer{width: width, height: height, samples: samples}, nil
}

// Width returns the number of columns.
func (b *Buffer) Width() int { return b.width }

// Height returns the number of rows.
func (b *Buffer) Height() int { return b.height }

// Len returns the number of stored samples.
func (b *Buffer) Len() int { return len(b.samples) }

// Samples returns the backing slice. Callers must not modify it.
func (b *Buffer) Samples() []int { return b.samples }

// Sample returns the intensity at (x, y).
//
// It fails with CodeOutOfRange outside [0,width)x[0,height), and also when a
// mismatched Replace left the sample slice shorter than the recorded size.
func (b *Buffer) Sample(x, y int) (int, error) {
	if x < 0 || x >= b.width || y < 0 || y >= b.height {
		return 0, apperrors.Newf(apperrors.CodeOutOfRange, "(%d,%d) outside %dx%d", x, y, b.width, b.height)
	}
	i := y*b.width + x
	if i >= len(b.samples) {
		return 0, apperrors.Newf(apperrors.CodeOutOfRange, "index %d beyond %d samples", i, len(b.samples))
	}
	return b.samples[i], nil
}

// Replace swaps dimensions and data together. No validation is done; a
// samples slice that does not hold width*height values surfaces as
// CodeOutOfRange from later Sample calls instead of corrupting memory.
func (b *Buffer) Replace(width, height int, samples []int) {
	b.width = width
	b.height = height
	b.samples = samples
}

// Equal reports whether both buffers have the same dimensions and samples.
func (b *Buffer) Equal(o *Buffer) bool {
	if b.width != o.width || b.height != o.height || len(b.samples) != len(o.samples) {
		return false
	}
	for i, v := range b.samples {
		if o.samples[i] != v {
			return false
		}
	}
	return true
}

// Gray returns a copy of the buffer as an *image.Gray.
func (b *Buffer) Gray() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, b.width, b.height))
	for y := 0; y < b.height; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+b.width]
		for x := range row {
			if i := y*b.width + x; i < len(b.samples) {
				row[x] = uint8(b.samples[i])
			}
		}
	}
	return img
}

// FromImage converts any image to luma using the ITU-R 601 integer weights.
func FromImage(img image.Image) (*Buffer, error) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 {
		return nil, apperrors.Newf(apperrors.CodeInvalidFrame, "empty image %dx%d", w, h)
	}
	samples := make([]int, w*h)
	if g, ok := img.(*image.Gray); ok {
		for y := 0; y < h; y++ {
			off := g.PixOffset(bounds.Min.X, bounds.Min.Y+y)
			for x := 0; x < w; x++ {
				samples[y*w+x] = int(g.Pix[off+x])
			}
		}
		return &Buffer{width: w, height: h, samples: samples}, nil
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			samples[y*w+x] = int(color.GrayModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray).Y)
		}
	}
	return &Buffer{width: w, height: h, samples: samples}, nil
}
