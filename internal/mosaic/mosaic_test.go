package mosaic

import (
	"strings"
	"testing"

	"github.com/textcamera/textcamera/internal/gray"
	"github.com/textcamera/textcamera/internal/tone"

	apperrors "github.com/textcamera/textcamera/internal/errors"
)

func render(t *testing.T, b *gray.Buffer, cols, rows int, a Alphabet) *Mosaic {
	t.Helper()
	bins, err := tone.ComputeBins(b, a.Len())
	if err != nil {
		t.Fatal(err)
	}
	m, err := Render(b, cols, rows, bins, a)
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	return m
}

func TestDefaultAlphabet(t *testing.T) {
	if DefaultAlphabet.Len() != 18 {
		t.Errorf("Len() = %d, want 18", DefaultAlphabet.Len())
	}
	if DefaultAlphabet.Glyph(0) != '@' || DefaultAlphabet.Glyph(17) != ' ' {
		t.Errorf("ramp = %q, want '@' first and ' ' last", DefaultAlphabet.String())
	}
}

func TestNewAlphabetInvalid(t *testing.T) {
	for _, s := range []string{"", "@", "@\t ", "@全 ", "\xff\xfe"} {
		if _, err := NewAlphabet(s); !apperrors.IsCode(err, apperrors.CodeInvalidArgument) {
			t.Errorf("NewAlphabet(%q) error = %v, want INVALID_ARGUMENT", s, err)
		}
	}
}

func TestRenderQuadrants(t *testing.T) {
	// 4x4 buffer, 2x2 tiles: averages 0, 100, 200, 100.
	b, _ := gray.New(4, 4, []int{
		0, 0, 100, 100,
		0, 0, 100, 100,
		200, 200, 100, 100,
		200, 200, 100, 100,
	})
	a := MustAlphabet("#+. ") // thresholds 50 100 150 200

	m := render(t, b, 2, 2, a)

	if m.String() != "#+ +" {
		t.Errorf("String() = %q, want %q", m.String(), "#+ +")
	}
	if m.Text() != "#+\n +\n" {
		t.Errorf("Text() = %q, want %q", m.Text(), "#+\n +\n")
	}
}

func TestRenderIntegerAverage(t *testing.T) {
	// Tile average (0+0+0+101)/4 truncates to 25, just under the first threshold.
	b, _ := gray.New(2, 2, []int{0, 0, 0, 101})
	bins, _ := tone.ComputeBins(b, 4) // 25.25 50.5 75.75 101
	m, err := Render(b, 1, 1, bins, MustAlphabet("abcd"))
	if err != nil {
		t.Fatal(err)
	}
	if m.Cell(0) != 'a' {
		t.Errorf("Cell(0) = %q, want 'a'", m.Cell(0))
	}
}

func TestRenderTruncatesPartialTiles(t *testing.T) {
	// 5x3 into 2x1 tiles: tile size 2x3, column 4 is ignored.
	b, _ := gray.New(5, 3, []int{
		0, 0, 255, 255, 255,
		0, 0, 255, 255, 0,
		0, 0, 255, 255, 0,
	})
	m := render(t, b, 2, 1, MustAlphabet("#. "))
	if m.String() != "# " {
		t.Errorf("String() = %q, want %q", m.String(), "# ")
	}
}

func TestRenderCellCountAndBounds(t *testing.T) {
	samples := make([]int, 48*64)
	for i := range samples {
		samples[i] = (i * 7) % 256
	}
	b, _ := gray.New(48, 64, samples)

	m := render(t, b, 12, 16, DefaultAlphabet)

	if m.Len() != 12*16 || m.Cols() != 12 || m.Rows() != 16 {
		t.Fatalf("mosaic %dx%d len %d, want 12x16 len 192", m.Cols(), m.Rows(), m.Len())
	}
	for i, r := range m.Cells() {
		if !strings.ContainsRune(DefaultGlyphs, r) {
			t.Fatalf("cell %d = %q not in alphabet", i, r)
		}
	}
	if lines := m.Lines(); len(lines) != 16 || len([]rune(lines[0])) != 12 {
		t.Errorf("Lines() = %d lines of %d glyphs, want 16 of 12", len(lines), len([]rune(lines[0])))
	}
}

func TestRenderFlatFrame(t *testing.T) {
	flat, _ := gray.New(4, 4, []int{90, 90, 90, 90, 90, 90, 90, 90, 90, 90, 90, 90, 90, 90, 90, 90})
	m := render(t, flat, 2, 2, DefaultAlphabet)
	if m.String() != "    " {
		t.Errorf("flat bright frame = %q, want all blank", m.String())
	}

	black, _ := gray.New(2, 2, []int{0, 0, 0, 0})
	m = render(t, black, 2, 2, DefaultAlphabet)
	if m.String() != "@@@@" {
		t.Errorf("flat black frame = %q, want all '@'", m.String())
	}
}

func TestRenderInvalid(t *testing.T) {
	b, _ := gray.New(4, 4, make([]int, 16))
	bins, _ := tone.ComputeBins(b, DefaultAlphabet.Len())

	tests := []struct {
		name       string
		cols, rows int
		bins       tone.Bins
	}{
		{"zero cols", 0, 2, bins},
		{"grid finer than buffer", 8, 2, bins},
		{"bin count mismatch", 2, 2, tone.Bins{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Render(b, tt.cols, tt.rows, tt.bins, DefaultAlphabet)
			if !apperrors.IsCode(err, apperrors.CodeInvalidArgument) {
				t.Errorf("Render() error = %v, want INVALID_ARGUMENT", err)
			}
		})
	}
}

func TestCellsIsCopy(t *testing.T) {
	b, _ := gray.New(2, 1, []int{0, 255})
	m := render(t, b, 2, 1, DefaultAlphabet)

	cells := m.Cells()
	cells[0] = 'X'
	if m.Cell(0) == 'X' {
		t.Error("Cells() must not expose the mosaic's backing slice")
	}
}
