package pipeline

import (
	"github.com/textcamera/textcamera/internal/mosaic"

	apperrors "github.com/textcamera/textcamera/internal/errors"
)

// Layout is the crop target and glyph grid for one orientation.
type Layout struct {
	TargetWidth  int
	TargetHeight int
	Cols         int
	Rows         int
}

// Transpose swaps the horizontal and vertical dimensions.
func (l Layout) Transpose() Layout {
	return Layout{
		TargetWidth:  l.TargetHeight,
		TargetHeight: l.TargetWidth,
		Cols:         l.Rows,
		Rows:         l.Cols,
	}
}

// Validate checks the layout can be rendered.
func (l Layout) Validate() error {
	if l.TargetWidth <= 0 || l.TargetHeight <= 0 {
		return apperrors.Newf(apperrors.CodeInvalidArgument, "invalid crop target %dx%d", l.TargetWidth, l.TargetHeight)
	}
	if l.Cols <= 0 || l.Rows <= 0 {
		return apperrors.Newf(apperrors.CodeInvalidArgument, "invalid grid %dx%d", l.Cols, l.Rows)
	}
	if l.Cols > l.TargetWidth || l.Rows > l.TargetHeight {
		return apperrors.Newf(apperrors.CodeInvalidArgument, "grid %dx%d finer than crop %dx%d",
			l.Cols, l.Rows, l.TargetWidth, l.TargetHeight)
	}
	return nil
}

// Config holds the pipeline's display configuration. Landscape uses the
// portrait layout transposed.
type Config struct {
	Alphabet mosaic.Alphabet
	Portrait Layout
}

// DefaultConfig returns a 480x640 portrait crop rendered as 96x128 glyphs,
// each glyph covering a 5x5 tile.
func DefaultConfig() Config {
	return Config{
		Alphabet: mosaic.DefaultAlphabet,
		Portrait: Layout{TargetWidth: 480, TargetHeight: 640, Cols: 96, Rows: 128},
	}
}

// Layout returns the layout for orientation o.
func (c Config) Layout(o Orientation) Layout {
	if o == Landscape {
		return c.Portrait.Transpose()
	}
	return c.Portrait
}

// Validate checks the alphabet and portrait layout.
func (c Config) Validate() error {
	if c.Alphabet.Len() < 2 {
		return apperrors.New(apperrors.CodeInvalidArgument, "alphabet needs at least 2 glyphs")
	}
	return c.Portrait.Validate()
}
