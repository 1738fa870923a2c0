package capture

import (
	"context"
	"image"
	_ "image/gif"  // GIF decoder
	_ "image/jpeg" // JPEG decoder
	_ "image/png"  // PNG decoder
	"log/slog"
	"os"

	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"  // BMP decoder
	_ "golang.org/x/image/tiff" // TIFF decoder
	_ "golang.org/x/image/webp" // WebP decoder

	"github.com/textcamera/textcamera/internal/gray"
	"github.com/textcamera/textcamera/internal/transform"

	apperrors "github.com/textcamera/textcamera/internal/errors"
)

// StillSource replays one picture as if a sensor mounted at rotation degrees
// kept seeing it.
type StillSource struct {
	width    int
	height   int
	stride   int
	rotation int
	template []byte
	pool     *planePool
}

// OpenStill decodes the image at path. See NewStillSource.
func OpenStill(path string, sensorWidth, sensorHeight, rotation int) (*StillSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.CodeNotFound, "open %s", path)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.CodeInvalidFrame, "decode %s", path)
	}
	slog.Debug("still image decoded", "path", path, "format", format, "bounds", img.Bounds().String())
	return NewStillSource(img, sensorWidth, sensorHeight, rotation)
}

// NewStillSource scales img, taken to be upright, to the sensor's upright
// size and stores it the way the sensor would deliver it: rotated back by
// rotation degrees into a sensorWidth x sensorHeight plane with padded rows.
func NewStillSource(img image.Image, sensorWidth, sensorHeight, rotation int) (*StillSource, error) {
	template, stride, err := sensorPlane(img, sensorWidth, sensorHeight, rotation, nil)
	if err != nil {
		return nil, err
	}
	return &StillSource{
		width:    sensorWidth,
		height:   sensorHeight,
		stride:   stride,
		rotation: rotation,
		template: template,
		pool:     newPlanePool(len(template)),
	}, nil
}

// sensorPlane renders an upright image into a sensor plane. dst is reused
// when it has room for AlignStride(sensorWidth)*sensorHeight bytes.
func sensorPlane(img image.Image, sensorWidth, sensorHeight, rotation int, dst []byte) ([]byte, int, error) {
	if sensorWidth <= 0 || sensorHeight <= 0 {
		return nil, 0, apperrors.Newf(apperrors.CodeInvalidArgument, "invalid sensor size %dx%d", sensorWidth, sensorHeight)
	}
	turns, err := transform.QuarterTurns(rotation)
	if err != nil {
		return nil, 0, err
	}

	uw, uh := sensorWidth, sensorHeight
	if turns%2 == 1 {
		uw, uh = uh, uw
	}
	upright := image.NewGray(image.Rect(0, 0, uw, uh))
	draw.CatmullRom.Scale(upright, upright.Bounds(), img, img.Bounds(), draw.Src, nil)

	buf, err := gray.FromImage(upright)
	if err != nil {
		return nil, 0, err
	}
	sensor := transform.RotateClockwise(buf, -turns)

	stride := AlignStride(sensorWidth)
	if cap(dst) < stride*sensorHeight {
		dst = make([]byte, stride*sensorHeight)
	}
	dst = dst[:stride*sensorHeight]
	samples := sensor.Samples()
	for y := 0; y < sensorHeight; y++ {
		row := dst[y*stride : y*stride+sensorWidth]
		for x, v := range samples[y*sensorWidth : (y+1)*sensorWidth] {
			row[x] = byte(v)
		}
	}
	return dst, stride, nil
}

// Next returns a fresh copy of the picture.
func (s *StillSource) Next(ctx context.Context) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeCancelled, "capture cancelled")
	}
	b := s.pool.get()
	copy(*b, s.template)
	return NewFrame(*b, s.width, s.height, s.stride, s.rotation, func() { s.pool.put(b) }), nil
}

func (s *StillSource) Close() error { return nil }
