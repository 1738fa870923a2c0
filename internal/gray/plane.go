package gray

import (
	apperrors "github.com/textcamera/textcamera/internal/errors"
)

// FromPlane converts a camera luma plane into a Buffer.
//
// Rows are rowStride bytes apart; the bytes past width in each row are
// padding and are skipped. The last row may omit its padding, so the plane
// only needs (height-1)*rowStride + width bytes.
func FromPlane(plane []byte, width, height, rowStride int) (*Buffer, error) {
	if width <= 0 || height <= 0 {
		return nil, apperrors.Newf(apperrors.CodeInvalidFrame, "invalid dimensions %dx%d", width, height)
	}
	if rowStride < width {
		return nil, apperrors.Newf(apperrors.CodeInvalidFrame, "row stride %d smaller than width %d", rowStride, width)
	}
	if need := (height-1)*rowStride + width; len(plane) < need {
		return nil, apperrors.Newf(apperrors.CodeInvalidFrame, "plane holds %d bytes, need %d", len(plane), need)
	}
	samples := make([]int, width*height)
	for y := 0; y < height; y++ {
		row := plane[y*rowStride : y*rowStride+width]
		for x, v := range row {
			samples[y*width+x] = int(v) & 0xff
		}
	}
	return &Buffer{width: width, height: height, samples: samples}, nil
}
