package capture

import (
	"context"
	"time"

	"github.com/textcamera/textcamera/internal/pipeline"
	"github.com/textcamera/textcamera/internal/trace"

	apperrors "github.com/textcamera/textcamera/internal/errors"
)

// Submitter accepts a frame or closes it. pipeline.Worker implements it.
type Submitter interface {
	Submit(frame pipeline.Frame, o pipeline.Orientation) bool
}

// idler is implemented by submitters that can report spare capacity.
// pipeline.Worker does.
type idler interface {
	Idle() bool
}

// resetter is implemented by sources that remember what they last emitted,
// such as ChangeFilter.
type resetter interface {
	Reset()
}

// Loop pulls frames from a source at a fixed rate and hands them on.
type Loop struct {
	Source      Source
	Target      Submitter
	Rate        float64
	Orientation func() pipeline.Orientation
}

// Run pulls frames until ctx is done. Source errors are logged and followed
// by a short pause.
func (l *Loop) Run(ctx context.Context) {
	rate := l.Rate
	if rate <= 0 {
		rate = DefaultRate
	}
	interval := time.Duration(float64(time.Second) / rate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log := trace.Logger(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// A busy target would drop the frame after the source has
			// already counted it as seen, so do not pull at all.
			if t, ok := l.Target.(idler); ok && !t.Idle() {
				continue
			}
			f, err := l.Source.Next(ctx)
			if err != nil {
				if ctx.Err() != nil || apperrors.IsCode(err, apperrors.CodeCancelled) {
					return
				}
				log.Warn("capture failed", "error", err)
				select {
				case <-ctx.Done():
					return
				case <-time.After(ErrorBackoff):
				}
				continue
			}
			if f == nil {
				continue
			}
			o := pipeline.Portrait
			if l.Orientation != nil {
				o = l.Orientation()
			}
			if !l.Target.Submit(f, o) {
				log.Debug("frame dropped, pipeline busy")
				if r, ok := l.Source.(resetter); ok {
					r.Reset()
				}
			}
		}
	}
}
