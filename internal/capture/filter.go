package capture

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/corona10/goimagehash"

	"github.com/textcamera/textcamera/internal/trace"
)

// ChangeFilter drops frames whose perceptual hash is within MaxDistance of the
// last frame it let through. A negative MaxDistance disables filtering.
type ChangeFilter struct {
	src         Source
	maxDistance int

	mu       sync.Mutex
	lastHash *goimagehash.ImageHash
	skipped  atomic.Uint64
}

// NewChangeFilter wraps src.
func NewChangeFilter(src Source, maxDistance int) *ChangeFilter {
	return &ChangeFilter{src: src, maxDistance: maxDistance}
}

// Next pulls one frame from the wrapped source. A frame similar to the
// previous one is closed and reported as nothing new.
func (c *ChangeFilter) Next(ctx context.Context) (*Frame, error) {
	f, err := c.src.Next(ctx)
	if err != nil || f == nil || c.maxDistance < 0 {
		return f, err
	}
	if c.similar(ctx, f) {
		c.skipped.Add(1)
		_ = f.Close()
		return nil, nil
	}
	return f, nil
}

// similar computes the frame's pHash and compares it to the last admitted one.
func (c *ChangeFilter) similar(ctx context.Context, f *Frame) bool {
	hash, err := goimagehash.PerceptionHash(f.Gray())
	if err != nil {
		trace.Logger(ctx).Debug("perception hash failed", "error", err)
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.lastHash == nil {
		c.lastHash = hash
		return false
	}
	dist, err := c.lastHash.Distance(hash)
	if err != nil {
		c.lastHash = hash
		return false
	}
	if dist <= c.maxDistance {
		return true
	}
	c.lastHash = hash
	return false
}

// Reset forgets the last hash so the next frame always passes. A wrapped
// source with its own repeat detection is reset too.
func (c *ChangeFilter) Reset() {
	c.mu.Lock()
	c.lastHash = nil
	c.mu.Unlock()
	if r, ok := c.src.(interface{ Reset() }); ok {
		r.Reset()
	}
}

// Skipped returns the number of frames dropped as unchanged.
func (c *ChangeFilter) Skipped() uint64 { return c.skipped.Load() }

func (c *ChangeFilter) Close() error { return c.src.Close() }
