package errors

import (
	"errors"
	"fmt"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestAppErrorString(t *testing.T) {
	err := New(CodeCropTargetTooLarge, "target 480x640 exceeds 320x240").
		WithMetadata("frame", "7")

	got := err.Error()
	want := "[CROP_TARGET_TOO_LARGE] target 480x640 exceeds 320x240 map[frame:7]"
	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("short read")
	err := Wrap(cause, CodeInvalidFrame, "bad plane")

	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause")
	}
	wrapped := fmt.Errorf("frame 3: %w", err)
	if !IsCode(wrapped, CodeInvalidFrame) {
		t.Error("IsCode should see through fmt.Errorf wrapping")
	}
	if CodeOf(wrapped) != CodeInvalidFrame {
		t.Errorf("CodeOf = %s, want %s", CodeOf(wrapped), CodeInvalidFrame)
	}
	if CodeOf(cause) != CodeUnknown {
		t.Errorf("CodeOf(plain) = %s, want %s", CodeOf(cause), CodeUnknown)
	}
}

func TestGRPCCode(t *testing.T) {
	tests := []struct {
		code Code
		want codes.Code
	}{
		{CodeInvalidArgument, codes.InvalidArgument},
		{CodeOutOfRange, codes.OutOfRange},
		{CodeCropTargetTooLarge, codes.FailedPrecondition},
		{CodeNotFound, codes.NotFound},
		{CodeUnavailable, codes.Unavailable},
		{CodeTimeout, codes.DeadlineExceeded},
		{Code(99), codes.Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.code.String(), func(t *testing.T) {
			if got := New(tt.code, "x").GRPCCode(); got != tt.want {
				t.Errorf("GRPCCode() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGRPCRoundTrip(t *testing.T) {
	orig := Newf(CodeCropTargetTooLarge, "target %dx%d", 480, 640).WithMetadata("frame", "12")

	back := FromGRPCError(orig.GRPCStatus().Err())

	if back.Code != CodeCropTargetTooLarge {
		t.Errorf("Code = %s, want %s", back.Code, CodeCropTargetTooLarge)
	}
	if back.Message != "target 480x640" {
		t.Errorf("Message = %q", back.Message)
	}
	if back.Metadata["frame"] != "12" {
		t.Errorf("Metadata = %v", back.Metadata)
	}
}

func TestFromGRPCErrorFallback(t *testing.T) {
	back := FromGRPCError(status.Error(codes.Unavailable, "down"))
	if back.Code != CodeUnavailable {
		t.Errorf("Code = %s, want %s", back.Code, CodeUnavailable)
	}

	plain := FromGRPCError(errors.New("boom"))
	if plain.Code != CodeUnknown {
		t.Errorf("Code = %s, want %s", plain.Code, CodeUnknown)
	}
	if FromGRPCError(nil) != nil {
		t.Error("FromGRPCError(nil) should be nil")
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(New(CodeUnavailable, "serial port gone")) {
		t.Error("unavailable should be retryable")
	}
	if IsRetryable(New(CodeInvalidArgument, "bad")) {
		t.Error("invalid argument should not be retryable")
	}
	if IsRetryable(errors.New("plain")) {
		t.Error("plain errors should not be retryable")
	}
}
