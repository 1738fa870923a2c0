// Package display presents mosaics on text terminals
package display

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/textcamera/textcamera/internal/mosaic"

	apperrors "github.com/textcamera/textcamera/internal/errors"
)

// ANSI cursor-home and clear-screen, so each mosaic redraws in place.
const clearScreen = "\x1b[H\x1b[2J"

// WriterSink writes each mosaic's text to an io.Writer.
type WriterSink struct {
	mu    sync.Mutex
	w     io.Writer
	clear bool
}

// NewWriterSink returns a sink writing to w. With clear set each mosaic is
// preceded by an ANSI clear-screen sequence.
func NewWriterSink(w io.Writer, clear bool) *WriterSink {
	return &WriterSink{w: w, clear: clear}
}

// Present writes m.Text() in a single Write call.
func (s *WriterSink) Present(_ context.Context, m *mosaic.Mosaic) error {
	var sb strings.Builder
	if s.clear {
		sb.WriteString(clearScreen)
	}
	sb.WriteString(m.Text())

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := io.WriteString(s.w, sb.String()); err != nil {
		return apperrors.Wrap(err, apperrors.CodeUnavailable, "write mosaic")
	}
	return nil
}
