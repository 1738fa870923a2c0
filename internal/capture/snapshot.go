package capture

import (
	"bytes"
	"context"
	"crypto/md5"
	"image"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	apperrors "github.com/textcamera/textcamera/internal/errors"
)

// OutPlaceholder marks the argument replaced by the snapshot file path.
const OutPlaceholder = "{out}"

// hashPrefix bytes of each snapshot are compared to skip repeats before
// decoding.
const hashPrefix = 4096

// SnapshotSource runs an external still-capture command (fswebcam,
// libcamera-still, imagesnap...) once per frame and decodes the file it
// writes. The command delivers upright pictures; they are stored rotated back
// into the sensor's orientation like StillSource does.
type SnapshotSource struct {
	command  []string
	width    int
	height   int
	stride   int
	rotation int
	tempDir  string
	pool     *planePool

	mu       sync.Mutex
	lastHash [16]byte
}

// NewSnapshotSource prepares a source running command. One argument must be
// OutPlaceholder. An empty command selects the platform default.
func NewSnapshotSource(command []string, sensorWidth, sensorHeight, rotation int) (*SnapshotSource, error) {
	if len(command) == 0 {
		command = defaultSnapshotCommand()
		if len(command) == 0 {
			return nil, apperrors.New(apperrors.CodeUnavailable, "no snapshot tool found")
		}
	}
	if !hasPlaceholder(command) {
		return nil, apperrors.Newf(apperrors.CodeInvalidArgument, "snapshot command %q has no %s argument", strings.Join(command, " "), OutPlaceholder)
	}
	if sensorWidth <= 0 || sensorHeight <= 0 {
		return nil, apperrors.Newf(apperrors.CodeInvalidArgument, "invalid sensor size %dx%d", sensorWidth, sensorHeight)
	}
	if _, err := exec.LookPath(command[0]); err != nil {
		return nil, apperrors.Wrapf(err, apperrors.CodeUnavailable, "snapshot tool %s", command[0])
	}

	tmpDir, err := os.MkdirTemp("", "textcamera-snapshot-*")
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "create snapshot dir")
	}
	stride := AlignStride(sensorWidth)
	return &SnapshotSource{
		command:  command,
		width:    sensorWidth,
		height:   sensorHeight,
		stride:   stride,
		rotation: rotation,
		tempDir:  tmpDir,
		pool:     newPlanePool(stride * sensorHeight),
	}, nil
}

func hasPlaceholder(command []string) bool {
	for _, arg := range command[1:] {
		if arg == OutPlaceholder {
			return true
		}
	}
	return false
}

// Next takes one snapshot. It returns nil, nil when the file is identical to
// the previous one.
func (s *SnapshotSource) Next(ctx context.Context) (*Frame, error) {
	data, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	hash := md5.Sum(data[:min(len(data), hashPrefix)])
	s.mu.Lock()
	same := hash == s.lastHash
	s.mu.Unlock()
	if same {
		return nil, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInvalidFrame, "decode snapshot")
	}
	b := s.pool.get()
	plane, _, err := sensorPlane(img, s.width, s.height, s.rotation, *b)
	if err != nil {
		s.pool.put(b)
		return nil, err
	}
	s.mu.Lock()
	s.lastHash = hash
	s.mu.Unlock()
	return NewFrame(plane, s.width, s.height, s.stride, s.rotation, func() { s.pool.put(b) }), nil
}

func (s *SnapshotSource) snapshot(ctx context.Context) ([]byte, error) {
	out := filepath.Join(s.tempDir, "snapshot.jpg")
	args := make([]string, len(s.command)-1)
	for i, arg := range s.command[1:] {
		if arg == OutPlaceholder {
			arg = out
		}
		args[i] = arg
	}

	cmd := exec.CommandContext(ctx, s.command[0], args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, apperrors.Wrap(ctx.Err(), apperrors.CodeCancelled, "capture cancelled")
		}
		slog.Debug("snapshot command failed", "command", s.command[0], "stderr", strings.TrimSpace(stderr.String()))
		return nil, apperrors.Wrapf(err, apperrors.CodeUnavailable, "run %s", s.command[0])
	}

	data, err := os.ReadFile(out)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeUnavailable, "read snapshot")
	}
	_ = os.Remove(out)
	if len(data) == 0 {
		return nil, apperrors.New(apperrors.CodeInvalidFrame, "empty snapshot")
	}
	return data, nil
}

// Reset makes the next snapshot pass even if the file did not change.
func (s *SnapshotSource) Reset() {
	s.mu.Lock()
	s.lastHash = [16]byte{}
	s.mu.Unlock()
}

// Close removes the snapshot directory.
func (s *SnapshotSource) Close() error {
	if s.tempDir == "" {
		return nil
	}
	return os.RemoveAll(s.tempDir)
}
