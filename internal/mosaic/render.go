package mosaic

import (
	"github.com/textcamera/textcamera/internal/gray"
	"github.com/textcamera/textcamera/internal/tone"

	apperrors "github.com/textcamera/textcamera/internal/errors"
)

// Render averages cols x rows tiles of b and maps each average to a glyph.
//
// Tile size is width/cols by height/rows with floor division. When the
// buffer does not divide evenly the leftover right columns and bottom rows
// are not part of any tile and do not contribute to any average. Averages
// use integer sums truncated by the tile area; only the bin thresholds are
// real-valued.
func Render(b *gray.Buffer, cols, rows int, bins tone.Bins, alphabet Alphabet) (*Mosaic, error) {
	if cols <= 0 || rows <= 0 {
		return nil, apperrors.Newf(apperrors.CodeInvalidArgument, "invalid grid %dx%d", cols, rows)
	}
	if bins.Len() != alphabet.Len() {
		return nil, apperrors.Newf(apperrors.CodeInvalidArgument, "%d bins for %d glyphs", bins.Len(), alphabet.Len())
	}
	w := b.Width()
	tileW := w / cols
	tileH := b.Height() / rows
	if tileW == 0 || tileH == 0 {
		return nil, apperrors.Newf(apperrors.CodeInvalidArgument, "grid %dx%d finer than buffer %dx%d", cols, rows, w, b.Height())
	}
	src := b.Samples()
	area := tileW * tileH
	cells := make([]rune, cols*rows)
	for h := 0; h < rows; h++ {
		for c := 0; c < cols; c++ {
			sum := 0
			for y := h * tileH; y < (h+1)*tileH; y++ {
				row := src[y*w+c*tileW : y*w+(c+1)*tileW]
				for _, v := range row {
					sum += v
				}
			}
			cells[h*cols+c] = alphabet.Glyph(bins.Classify(sum / area))
		}
	}
	return &Mosaic{cols: cols, rows: rows, cells: cells}, nil
}
