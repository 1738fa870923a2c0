package pipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/textcamera/textcamera/internal/mosaic"
	"github.com/textcamera/textcamera/internal/trace"

	apperrors "github.com/textcamera/textcamera/internal/errors"
)

// Sink receives finished mosaics. The mosaic is immutable and may be
// retained or shared with other goroutines.
type Sink interface {
	Present(ctx context.Context, m *mosaic.Mosaic) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, m *mosaic.Mosaic) error

// Present calls f.
func (f SinkFunc) Present(ctx context.Context, m *mosaic.Mosaic) error { return f(ctx, m) }

// Stats counts frame outcomes since the worker was created.
type Stats struct {
	Processed uint64 `json:"processed"`
	Dropped   uint64 `json:"dropped"`
	Failed    uint64 `json:"failed"`
}

type job struct {
	frame Frame
	o     Orientation
}

// Worker processes one frame at a time on a single goroutine.
//
// Frames are never queued: a frame submitted while the worker is busy is
// closed and counted as dropped.
type Worker struct {
	pipeline *Pipeline
	sink     Sink
	jobs     chan job

	mu     sync.Mutex
	busy   bool
	closed bool

	processed atomic.Uint64
	dropped   atomic.Uint64
	failed    atomic.Uint64
}

// NewWorker creates a worker that hands every mosaic to sink.
func NewWorker(p *Pipeline, sink Sink) *Worker {
	return &Worker{
		pipeline: p,
		sink:     sink,
		jobs:     make(chan job, 1),
	}
}

// Submit offers frame to the worker. It returns false, after closing the
// frame, when the worker is busy or stopped.
func (w *Worker) Submit(frame Frame, o Orientation) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.busy || w.closed {
		w.dropped.Add(1)
		if err := frame.Close(); err != nil {
			trace.Logger(context.Background()).Warn("frame close failed", "error", err)
		}
		return false
	}
	w.busy = true
	w.jobs <- job{frame: frame, o: o}
	return true
}

// Idle reports whether a Submit would be accepted.
func (w *Worker) Idle() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return !w.busy && !w.closed
}

// Run processes submitted frames until ctx is done. Frames still pending
// when Run returns are closed.
func (w *Worker) Run(ctx context.Context) {
	defer w.shutdown()
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-w.jobs:
			w.handle(ctx, j)
			w.mu.Lock()
			w.busy = false
			w.mu.Unlock()
		}
	}
}

func (w *Worker) shutdown() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	select {
	case j := <-w.jobs:
		w.dropped.Add(1)
		_ = j.frame.Close()
	default:
	}
}

func (w *Worker) handle(ctx context.Context, j job) {
	ctx, _ = trace.EnsureContext(ctx)
	log := trace.Logger(ctx)
	defer func() {
		if r := recover(); r != nil {
			w.failed.Add(1)
			log.Error("frame panicked", "panic", fmt.Sprint(r))
		}
	}()

	m, err := w.pipeline.Process(ctx, j.frame, j.o)
	if err != nil {
		w.failed.Add(1)
		if apperrors.IsCode(err, apperrors.CodeCropTargetTooLarge) {
			log.Warn("frame smaller than crop target", "error", err)
		} else {
			log.Warn("frame failed", "error", err)
		}
		return
	}
	w.processed.Add(1)
	if w.sink == nil {
		return
	}
	if err := w.sink.Present(ctx, m); err != nil {
		log.Error("present failed", "error", err)
	}
}

// Stats returns a snapshot of the outcome counters.
func (w *Worker) Stats() Stats {
	return Stats{
		Processed: w.processed.Load(),
		Dropped:   w.dropped.Load(),
		Failed:    w.failed.Load(),
	}
}
