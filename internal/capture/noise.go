package capture

import (
	"context"
	"math/rand"
	"sync"

	apperrors "github.com/textcamera/textcamera/internal/errors"
)

type blob struct {
	intensity float64
	x         float64
	y         float64
}

// NoiseSource synthesizes drifting light and dark blobs so the service can
// run without a camera.
type NoiseSource struct {
	width    int
	height   int
	stride   int
	rotation int
	pool     *planePool

	mu    sync.Mutex
	rand  *rand.Rand
	blobs []blob
}

// NewNoiseSource returns a deterministic noise source for seed.
func NewNoiseSource(width, height, rotation int, seed int64) (*NoiseSource, error) {
	if width <= 0 || height <= 0 {
		return nil, apperrors.Newf(apperrors.CodeInvalidArgument, "invalid sensor size %dx%d", width, height)
	}
	stride := AlignStride(width)
	n := &NoiseSource{
		width:    width,
		height:   height,
		stride:   stride,
		rotation: rotation,
		pool:     newPlanePool(stride * height),
		rand:     rand.New(rand.NewSource(seed)),
		blobs:    make([]blob, 10),
	}
	fw, fh := float64(width), float64(height)
	for i := range n.blobs {
		n.blobs[i].intensity = n.rand.NormFloat64() * fw * 40
		n.blobs[i].x = n.rand.NormFloat64()*fw/6 + fw/2
		n.blobs[i].y = n.rand.NormFloat64()*fh/6 + fh/2
	}
	return n, nil
}

// Next advances the blobs one step and renders them.
func (n *NoiseSource) Next(ctx context.Context) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeCancelled, "capture cancelled")
	}
	n.mu.Lock()
	defer n.mu.Unlock()

	n.update()
	b := n.pool.get()
	n.render(*b)
	return NewFrame(*b, n.width, n.height, n.stride, n.rotation, func() { n.pool.put(b) }), nil
}

func (n *NoiseSource) update() {
	step := float64(n.width) / 100
	for i := range n.blobs {
		n.blobs[i].intensity += n.rand.NormFloat64() * float64(n.width)
		n.blobs[i].x += n.rand.NormFloat64() * step
		n.blobs[i].y += n.rand.NormFloat64() * step
	}
}

func (n *NoiseSource) render(plane []byte) {
	for y := 0; y < n.height; y++ {
		fy := float64(y)
		row := plane[y*n.stride : y*n.stride+n.width]
		for x := range row {
			fx := float64(x)
			value := 128.0
			for _, b := range n.blobs {
				distance := (b.x-fx)*(b.x-fx) + (b.y-fy)*(b.y-fy) + 16
				value += b.intensity / distance
			}
			row[x] = byte(min(max(value, 0), 255))
		}
	}
}

func (n *NoiseSource) Close() error { return nil }
