package capture

import (
	"time"

	apperrors "github.com/textcamera/textcamera/internal/errors"
)

// Source kinds accepted by Open.
const (
	KindNoise    = "noise"
	KindStill    = "still"
	KindSnapshot = "snapshot"
)

// Options selects and configures a source.
type Options struct {
	Kind         string
	ImagePath    string
	Command      []string // snapshot command, empty for the platform default
	SensorWidth  int
	SensorHeight int
	Rotation     int
}

// Open creates the source described by opts.
func Open(opts Options) (Source, error) {
	switch opts.Kind {
	case KindNoise, "":
		return NewNoiseSource(opts.SensorWidth, opts.SensorHeight, opts.Rotation, time.Now().UnixNano())
	case KindStill:
		if opts.ImagePath == "" {
			return nil, apperrors.New(apperrors.CodeInvalidArgument, "still source needs an image path")
		}
		return OpenStill(opts.ImagePath, opts.SensorWidth, opts.SensorHeight, opts.Rotation)
	case KindSnapshot:
		return NewSnapshotSource(opts.Command, opts.SensorWidth, opts.SensorHeight, opts.Rotation)
	default:
		return nil, apperrors.Newf(apperrors.CodeInvalidArgument, "unknown capture source %q", opts.Kind)
	}
}
