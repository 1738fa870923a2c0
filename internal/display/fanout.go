package display

import (
	"context"
	"errors"

	"github.com/textcamera/textcamera/internal/mosaic"
	"github.com/textcamera/textcamera/internal/pipeline"
)

// Fanout presents each mosaic to every sink in order. A failing sink does
// not stop the others; their errors are joined.
type Fanout []pipeline.Sink

func (f Fanout) Present(ctx context.Context, m *mosaic.Mosaic) error {
	var errs []error
	for _, s := range f {
		if err := s.Present(ctx, m); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
