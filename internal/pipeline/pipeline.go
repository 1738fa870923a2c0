package pipeline

import (
	"context"

	"github.com/textcamera/textcamera/internal/gray"
	"github.com/textcamera/textcamera/internal/mosaic"
	"github.com/textcamera/textcamera/internal/tone"
	"github.com/textcamera/textcamera/internal/trace"
	"github.com/textcamera/textcamera/internal/transform"

	apperrors "github.com/textcamera/textcamera/internal/errors"
)

// Pipeline converts one frame at a time into a mosaic. It holds no per-frame
// state, so a single Pipeline may be shared.
type Pipeline struct {
	cfg Config
}

// New validates cfg and returns a Pipeline.
func New(cfg Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Pipeline{cfg: cfg}, nil
}

// Config returns the pipeline's configuration.
func (p *Pipeline) Config() Config { return p.cfg }

// Process runs frame through plane extraction, rotation, center crop, tone
// analysis and tile quantization.
//
// The frame is closed exactly once before Process returns, on every path.
// A crop target larger than the rotated frame fails with
// CodeCropTargetTooLarge and no mosaic.
func (p *Pipeline) Process(ctx context.Context, frame Frame, o Orientation) (m *mosaic.Mosaic, err error) {
	ctx, span := trace.StartSpan(ctx, "pipeline.process")
	log := trace.Logger(ctx)
	defer func() {
		if cerr := frame.Close(); cerr != nil {
			log.Warn("frame close failed", "error", cerr)
		}
		span.End()
		if m == nil {
			log.Debug("frame aborted", "span", span, "error", err)
			return
		}
		log.Debug("frame rendered", "span", span)
	}()

	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeCancelled, "frame cancelled")
	}

	buf, err := gray.FromPlane(frame.Plane(), frame.Width(), frame.Height(), frame.RowStride())
	if err != nil {
		return nil, err
	}
	turns, err := transform.QuarterTurns(frame.RotationDegrees())
	if err != nil {
		return nil, err
	}
	buf = transform.RotateClockwise(buf, turns)
	log.Debug("frame rotated", "turns", turns, "width", buf.Width(), "height", buf.Height())

	layout := p.cfg.Layout(o)
	if buf.Width() != layout.TargetWidth || buf.Height() != layout.TargetHeight {
		buf, err = transform.CenterCrop(buf, layout.TargetWidth, layout.TargetHeight)
		if err != nil {
			return nil, err
		}
	}

	bins, err := tone.ComputeBins(buf, p.cfg.Alphabet.Len())
	if err != nil {
		return nil, err
	}
	m, err = mosaic.Render(buf, layout.Cols, layout.Rows, bins, p.cfg.Alphabet)
	if err != nil {
		return nil, err
	}

	span.SetAttr("orientation", o.String())
	span.SetAttr("cols", m.Cols())
	span.SetAttr("rows", m.Rows())
	return m, nil
}
