package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/textcamera/textcamera/internal/mosaic"

	apperrors "github.com/textcamera/textcamera/internal/errors"
)

type fakeFrame struct {
	width, height, stride int
	plane                 []byte
	rotation              int
	closeErr              error
	panicOnPlane          bool
	closes                atomic.Int32
}

func (f *fakeFrame) Width() int           { return f.width }
func (f *fakeFrame) Height() int          { return f.height }
func (f *fakeFrame) RowStride() int       { return f.stride }
func (f *fakeFrame) RotationDegrees() int { return f.rotation }
func (f *fakeFrame) Close() error         { f.closes.Add(1); return f.closeErr }

func (f *fakeFrame) Plane() []byte {
	if f.panicOnPlane {
		panic("plane unavailable")
	}
	return f.plane
}

// stripes returns a 3x2 frame with columns 0, 128, 255 and one padding byte
// per row.
func stripes(rotation int) *fakeFrame {
	return &fakeFrame{
		width: 3, height: 2, stride: 4,
		plane:    []byte{0, 128, 255, 9, 0, 128, 255, 9},
		rotation: rotation,
	}
}

func newPipeline(t *testing.T, glyphs string, portrait Layout) *Pipeline {
	t.Helper()
	p, err := New(Config{Alphabet: mosaic.MustAlphabet(glyphs), Portrait: portrait})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return p
}

func TestProcessRotateAndCrop(t *testing.T) {
	p := newPipeline(t, "#. ", Layout{TargetWidth: 2, TargetHeight: 2, Cols: 2, Rows: 2})
	f := stripes(90)

	m, err := p.Process(context.Background(), f, Portrait)
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	// Rotated 2x3 is rows {0,0} {128,128} {255,255}; the crop keeps the top
	// two rows and the range is 0..128.
	if m.Text() != "##\n  \n" {
		t.Errorf("Text() = %q, want %q", m.Text(), "##\n  \n")
	}
	if f.closes.Load() != 1 {
		t.Errorf("Close called %d times, want 1", f.closes.Load())
	}
}

func TestProcessOrientation(t *testing.T) {
	p := newPipeline(t, "#. ", Layout{TargetWidth: 2, TargetHeight: 3, Cols: 1, Rows: 3})

	tests := []struct {
		name     string
		rotation int
		o        Orientation
		want     string
	}{
		{"portrait rotated", 90, Portrait, "#\n.\n \n"},
		{"landscape upright", 0, Landscape, "#. \n"},
		{"landscape upside down", 180, Landscape, " .#\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := p.Process(context.Background(), stripes(tt.rotation), tt.o)
			if err != nil {
				t.Fatalf("Process() error: %v", err)
			}
			if m.Text() != tt.want {
				t.Errorf("Text() = %q, want %q", m.Text(), tt.want)
			}
		})
	}
}

func TestProcessClosesFrameOnError(t *testing.T) {
	p := newPipeline(t, "#. ", Layout{TargetWidth: 2, TargetHeight: 2, Cols: 2, Rows: 2})

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name  string
		ctx   context.Context
		frame *fakeFrame
		o     Orientation
		code  apperrors.Code
	}{
		{"crop too large", context.Background(), &fakeFrame{width: 1, height: 1, stride: 1, plane: []byte{5}}, Portrait, apperrors.CodeCropTargetTooLarge},
		{"short plane", context.Background(), &fakeFrame{width: 3, height: 2, stride: 4, plane: []byte{1, 2, 3}}, Portrait, apperrors.CodeInvalidFrame},
		{"stride below width", context.Background(), &fakeFrame{width: 3, height: 2, stride: 2, plane: make([]byte, 8)}, Portrait, apperrors.CodeInvalidFrame},
		{"unsupported rotation", context.Background(), stripes(45), Portrait, apperrors.CodeInvalidArgument},
		{"cancelled", cancelled, stripes(90), Portrait, apperrors.CodeCancelled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := p.Process(tt.ctx, tt.frame, tt.o)
			if m != nil {
				t.Errorf("Process() returned a mosaic on error")
			}
			if !apperrors.IsCode(err, tt.code) {
				t.Errorf("Process() error = %v, want %v", err, tt.code)
			}
			if tt.frame.closes.Load() != 1 {
				t.Errorf("Close called %d times, want 1", tt.frame.closes.Load())
			}
		})
	}
}

func TestProcessCloseErrorIgnored(t *testing.T) {
	p := newPipeline(t, "#. ", Layout{TargetWidth: 2, TargetHeight: 2, Cols: 2, Rows: 2})
	f := stripes(90)
	f.closeErr = errors.New("already released")

	if _, err := p.Process(context.Background(), f, Portrait); err != nil {
		t.Errorf("Process() error = %v, want nil", err)
	}
}

func TestProcessClosesFrameOnPanic(t *testing.T) {
	p := newPipeline(t, "#. ", Layout{TargetWidth: 2, TargetHeight: 2, Cols: 2, Rows: 2})
	f := stripes(90)
	f.panicOnPlane = true

	func() {
		defer func() { _ = recover() }()
		_, _ = p.Process(context.Background(), f, Portrait)
	}()
	if f.closes.Load() != 1 {
		t.Errorf("Close called %d times, want 1", f.closes.Load())
	}
}

func TestConfigLayouts(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() error: %v", err)
	}

	want := Layout{TargetWidth: 640, TargetHeight: 480, Cols: 128, Rows: 96}
	if got := cfg.Layout(Landscape); got != want {
		t.Errorf("Layout(Landscape) = %+v, want %+v", got, want)
	}
	if got := cfg.Layout(Portrait); got != cfg.Portrait {
		t.Errorf("Layout(Portrait) = %+v, want %+v", got, cfg.Portrait)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		layout Layout
	}{
		{"zero target", Layout{TargetWidth: 0, TargetHeight: 4, Cols: 1, Rows: 1}},
		{"zero grid", Layout{TargetWidth: 4, TargetHeight: 4, Cols: 0, Rows: 1}},
		{"grid finer than crop", Layout{TargetWidth: 4, TargetHeight: 4, Cols: 5, Rows: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(Config{Alphabet: mosaic.DefaultAlphabet, Portrait: tt.layout})
			if !apperrors.IsCode(err, apperrors.CodeInvalidArgument) {
				t.Errorf("New() error = %v, want INVALID_ARGUMENT", err)
			}
		})
	}

	if _, err := New(Config{Portrait: DefaultConfig().Portrait}); err == nil {
		t.Error("New() with empty alphabet should fail")
	}
}

func TestParseOrientation(t *testing.T) {
	tests := []struct {
		in      string
		want    Orientation
		wantErr bool
	}{
		{"portrait", Portrait, false},
		{"Landscape", Landscape, false},
		{" landscape ", Landscape, false},
		{"sideways", Portrait, true},
	}
	for _, tt := range tests {
		got, err := ParseOrientation(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseOrientation(%q) = %v, %v", tt.in, got, err)
		}
	}
}
