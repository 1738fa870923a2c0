package orchestrator

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/textcamera/textcamera/internal/capture"
	"github.com/textcamera/textcamera/internal/config"
	"github.com/textcamera/textcamera/internal/display"
	"github.com/textcamera/textcamera/internal/mosaic"
	"github.com/textcamera/textcamera/internal/pipeline"
	"github.com/textcamera/textcamera/internal/syncx"
	"github.com/textcamera/textcamera/internal/trace"

	apperrors "github.com/textcamera/textcamera/internal/errors"
)

// Frame is a published mosaic. Seq increases with every mosaic.
type Frame struct {
	Seq    uint64
	Mosaic *mosaic.Mosaic
	At     time.Time
}

// FrameEvent announces a new mosaic to broadcast listeners.
type FrameEvent struct {
	Seq         uint64
	Cols        int
	Rows        int
	Text        string
	Orientation pipeline.Orientation
}

// Stats reports frame counters.
type Stats struct {
	pipeline.Stats
	Unchanged     uint64 `json:"unchanged"`
	Seq           uint64 `json:"seq"`
	EventsDropped uint64 `json:"events_dropped"`
	Orientation   string `json:"orientation"`
}

// Options configures a Manager.
type Options struct {
	Source          capture.Source
	Pipeline        *pipeline.Pipeline
	Sinks           []pipeline.Sink
	Rate            float64 // Hz
	MaxHashDistance int
	Orientation     pipeline.Orientation
}

// Manager runs the capture loop and the pipeline worker, keeps the latest
// mosaic and forwards every mosaic to the display sinks.
type Manager struct {
	source *capture.ChangeFilter
	worker *pipeline.Worker
	loop   *capture.Loop
	sinks  display.Fanout

	latest        *syncx.Latest[Frame]
	orientation   *syncx.Latest[pipeline.Orientation]
	events        chan FrameEvent
	eventsDropped atomic.Uint64

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	stopped bool
}

// New creates a manager from opts. Call Start to begin capturing.
func New(opts Options) *Manager {
	m := &Manager{
		source:      capture.NewChangeFilter(opts.Source, opts.MaxHashDistance),
		sinks:       display.Fanout(opts.Sinks),
		latest:      syncx.NewLatest(Frame{}),
		orientation: syncx.NewLatest(opts.Orientation),
		events:      make(chan FrameEvent, FrameEventBuffer),
	}
	m.worker = pipeline.NewWorker(opts.Pipeline, m)
	m.loop = &capture.Loop{
		Source:      m.source,
		Target:      m.worker,
		Rate:        opts.Rate,
		Orientation: m.Orientation,
	}
	return m
}

// FromConfig opens the configured source and displays and builds a manager.
func FromConfig(cfg *config.Config) (*Manager, error) {
	pc, err := cfg.Pipeline()
	if err != nil {
		return nil, err
	}
	p, err := pipeline.New(pc)
	if err != nil {
		return nil, err
	}
	src, err := capture.Open(cfg.CaptureOptions())
	if err != nil {
		return nil, err
	}

	var sinks []pipeline.Sink
	if cfg.TerminalOutput {
		sinks = append(sinks, display.NewWriterSink(os.Stdout, true))
	}
	if cfg.SerialDevice != "" {
		sinks = append(sinks, display.NewSerialSink(cfg.SerialDevice, cfg.SerialBaud))
	}

	return New(Options{
		Source:          src,
		Pipeline:        p,
		Sinks:           sinks,
		Rate:            cfg.CaptureRate,
		MaxHashDistance: cfg.MaxHashDistance,
		Orientation:     cfg.StartOrientation(),
	}), nil
}

// Present publishes m as the latest frame and forwards it to the sinks.
// The worker calls it once per finished mosaic.
func (m *Manager) Present(ctx context.Context, mo *mosaic.Mosaic) error {
	seq := m.latest.Set(Frame{Mosaic: mo, At: time.Now()})

	ev := FrameEvent{
		Seq:         seq,
		Cols:        mo.Cols(),
		Rows:        mo.Rows(),
		Text:        mo.Text(),
		Orientation: m.Orientation(),
	}
	select {
	case m.events <- ev:
	default:
		m.eventsDropped.Add(1)
		trace.Logger(ctx).Debug("frame event dropped, listener slow", "seq", seq)
	}

	if len(m.sinks) == 0 {
		return nil
	}
	return m.sinks.Present(ctx, mo)
}

// Events returns the frame event channel.
func (m *Manager) Events() <-chan FrameEvent {
	return m.events
}

// Latest returns the newest frame, false before the first mosaic.
func (m *Manager) Latest() (Frame, bool) {
	f, seq := m.latest.Get()
	f.Seq = seq
	return f, seq > 0
}

// Wait blocks until a frame newer than after exists.
func (m *Manager) Wait(ctx context.Context, after uint64) (Frame, error) {
	f, seq, err := m.latest.Wait(ctx, after)
	if err != nil {
		return Frame{}, apperrors.Wrap(err, apperrors.CodeCancelled, "wait for frame")
	}
	f.Seq = seq
	return f, nil
}

// SetOrientation switches the layout for subsequent frames. The change
// filter is reset so an unchanged scene is rendered again.
func (m *Manager) SetOrientation(o pipeline.Orientation) {
	if m.orientation.Swap(o) == o {
		return
	}
	m.source.Reset()
	trace.Logger(context.Background()).Info("orientation changed", "orientation", o.String())
}

// Orientation returns the current display orientation.
func (m *Manager) Orientation() pipeline.Orientation {
	o, _ := m.orientation.Get()
	return o
}

// Stats returns frame counters.
func (m *Manager) Stats() Stats {
	_, seq := m.latest.Get()
	return Stats{
		Stats:         m.worker.Stats(),
		Unchanged:     m.source.Skipped(),
		Seq:           seq,
		EventsDropped: m.eventsDropped.Load(),
		Orientation:   m.Orientation().String(),
	}
}

// Start runs the worker and capture loop until Stop or ctx ends.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return apperrors.New(apperrors.CodeUnavailable, "manager stopped")
	}
	if m.cancel != nil {
		return nil
	}
	ctx, m.cancel = context.WithCancel(ctx)

	m.wg.Add(2)
	go func() {
		defer m.wg.Done()
		m.worker.Run(ctx)
	}()
	go func() {
		defer m.wg.Done()
		m.loop.Run(ctx)
	}()
	trace.Logger(ctx).Info("capture started", "orientation", m.Orientation().String())
	return nil
}

// Stop ends capturing and closes the source and closable sinks.
func (m *Manager) Stop() error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return nil
	}
	m.stopped = true
	if m.cancel != nil {
		m.cancel()
	}
	m.mu.Unlock()
	m.wg.Wait()

	errs := []error{m.source.Close()}
	for _, s := range m.sinks {
		if c, ok := s.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}
