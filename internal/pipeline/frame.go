// Package pipeline turns camera frames into glyph mosaics
package pipeline

import (
	"strings"

	apperrors "github.com/textcamera/textcamera/internal/errors"
)

// Frame is a single camera frame borrowed from a capture source.
//
// Plane holds the luma channel, one byte per pixel, with RowStride bytes per
// row (RowStride >= Width). RotationDegrees is the clockwise rotation that
// makes the image upright. Close returns the frame to its producer and must
// be called exactly once.
type Frame interface {
	Width() int
	Height() int
	RowStride() int
	Plane() []byte
	RotationDegrees() int
	Close() error
}

// Orientation is the display orientation requested for a frame.
type Orientation int

const (
	Portrait Orientation = iota
	Landscape
)

func (o Orientation) String() string {
	if o == Landscape {
		return "landscape"
	}
	return "portrait"
}

// ParseOrientation accepts "portrait" or "landscape", case-insensitive.
func ParseOrientation(s string) (Orientation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "portrait":
		return Portrait, nil
	case "landscape":
		return Landscape, nil
	default:
		return Portrait, apperrors.Newf(apperrors.CodeInvalidArgument, "unknown orientation %q", s)
	}
}
