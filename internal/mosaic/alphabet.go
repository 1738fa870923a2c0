package mosaic

import (
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/width"

	apperrors "github.com/textcamera/textcamera/internal/errors"
)

// DefaultGlyphs runs from the densest glyph to a blank cell.
const DefaultGlyphs = "@#%B0P2L7?/!;:-,. "

// Alphabet is an ordered, immutable glyph ramp. Index 0 pairs with the lowest
// tone bin.
type Alphabet struct {
	glyphs []rune
}

// DefaultAlphabet is the ramp used when none is configured.
var DefaultAlphabet = MustAlphabet(DefaultGlyphs)

// NewAlphabet validates s and returns it as an Alphabet.
//
// Every glyph must be printable and occupy a single terminal cell, otherwise
// the mosaic's columns would drift.
func NewAlphabet(s string) (Alphabet, error) {
	if !utf8.ValidString(s) {
		return Alphabet{}, apperrors.New(apperrors.CodeInvalidArgument, "glyphs are not valid UTF-8")
	}
	glyphs := []rune(s)
	if len(glyphs) < 2 {
		return Alphabet{}, apperrors.Newf(apperrors.CodeInvalidArgument, "need at least 2 glyphs, got %d", len(glyphs))
	}
	for i, r := range glyphs {
		if !unicode.IsPrint(r) {
			return Alphabet{}, apperrors.Newf(apperrors.CodeInvalidArgument, "glyph %d (%U) is not printable", i, r)
		}
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			return Alphabet{}, apperrors.Newf(apperrors.CodeInvalidArgument, "glyph %d (%q) is double width", i, r)
		}
	}
	return Alphabet{glyphs: glyphs}, nil
}

// MustAlphabet is like NewAlphabet but panics on error.
func MustAlphabet(s string) Alphabet {
	a, err := NewAlphabet(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Len returns the number of glyphs.
func (a Alphabet) Len() int { return len(a.glyphs) }

// Glyph returns the i-th glyph.
func (a Alphabet) Glyph(i int) rune { return a.glyphs[i] }

func (a Alphabet) String() string { return string(a.glyphs) }
