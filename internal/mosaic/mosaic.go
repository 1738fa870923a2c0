// Package mosaic quantizes a grayscale buffer into a grid of glyphs.
package mosaic

import (
	"strings"
)

// Mosaic is a row-major grid of glyphs. It is never modified after Render
// returns, so it can be shared between goroutines.
type Mosaic struct {
	cols  int
	rows  int
	cells []rune
}

// Cols returns the number of glyphs per row.
func (m *Mosaic) Cols() int { return m.cols }

// Rows returns the number of rows.
func (m *Mosaic) Rows() int { return m.rows }

// Len returns Cols()*Rows().
func (m *Mosaic) Len() int { return len(m.cells) }

// Cell returns the glyph at flat index i.
func (m *Mosaic) Cell(i int) rune { return m.cells[i] }

// Cells returns a copy of the flat glyph grid.
func (m *Mosaic) Cells() []rune {
	out := make([]rune, len(m.cells))
	copy(out, m.cells)
	return out
}

// String returns the flat glyph sequence without line breaks.
func (m *Mosaic) String() string { return string(m.cells) }

// Lines splits the grid into one string per row.
func (m *Mosaic) Lines() []string {
	lines := make([]string, m.rows)
	for r := range lines {
		lines[r] = string(m.cells[r*m.cols : (r+1)*m.cols])
	}
	return lines
}

// Text returns the grid with a line break after every Cols() glyphs, ready
// for a non-wrapping monospace display.
func (m *Mosaic) Text() string {
	var sb strings.Builder
	sb.Grow(len(m.cells) + m.rows)
	for _, line := range m.Lines() {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String()
}
