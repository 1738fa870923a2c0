package capture

import (
	"context"
	"image"
	"sync"

	apperrors "github.com/textcamera/textcamera/internal/errors"
)

// Source produces frames on demand.
//
// Next returns a nil frame and a nil error when nothing new is available.
// Every non-nil frame must be closed by its consumer.
type Source interface {
	Next(ctx context.Context) (*Frame, error)
	Close() error
}

// Frame is a borrowed luma plane. It implements pipeline.Frame.
type Frame struct {
	width    int
	height   int
	stride   int
	plane    []byte
	rotation int

	once    sync.Once
	release func()
}

// NewFrame wraps plane. release, if non-nil, runs on the first Close.
func NewFrame(plane []byte, width, height, stride, rotation int, release func()) *Frame {
	return &Frame{
		width:    width,
		height:   height,
		stride:   stride,
		plane:    plane,
		rotation: rotation,
		release:  release,
	}
}

func (f *Frame) Width() int           { return f.width }
func (f *Frame) Height() int          { return f.height }
func (f *Frame) RowStride() int       { return f.stride }
func (f *Frame) Plane() []byte        { return f.plane }
func (f *Frame) RotationDegrees() int { return f.rotation }

// Close releases the plane. Closing twice returns an error and does not
// release again.
func (f *Frame) Close() error {
	closed := false
	f.once.Do(func() {
		closed = true
		if f.release != nil {
			f.release()
		}
	})
	if !closed {
		return apperrors.New(apperrors.CodeInvalidFrame, "frame already closed")
	}
	return nil
}

// Gray returns an image view over the plane without copying. It is only
// valid until Close.
func (f *Frame) Gray() *image.Gray {
	return &image.Gray{
		Pix:    f.plane,
		Stride: f.stride,
		Rect:   image.Rect(0, 0, f.width, f.height),
	}
}

// planePool recycles padded planes of one size.
type planePool struct {
	size int
	pool sync.Pool
}

func newPlanePool(size int) *planePool {
	p := &planePool{size: size}
	p.pool.New = func() any {
		b := make([]byte, size)
		return &b
	}
	return p
}

func (p *planePool) get() *[]byte { return p.pool.Get().(*[]byte) }

func (p *planePool) put(b *[]byte) { p.pool.Put(b) }
