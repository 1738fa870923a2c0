package display

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/textcamera/textcamera/internal/mosaic"
	"github.com/textcamera/textcamera/internal/resilience"
	"github.com/textcamera/textcamera/internal/trace"

	apperrors "github.com/textcamera/textcamera/internal/errors"
)

// DefaultBaud is the baud rate of most USB serial terminals.
const DefaultBaud = 115200

type openFunc func(device string, mode *serial.Mode) (io.WriteCloser, error)

func openSerial(device string, mode *serial.Mode) (io.WriteCloser, error) {
	return serial.Open(device, mode)
}

// SerialSink writes mosaics to a terminal on a serial port. The port is
// opened lazily and reopened after a write error.
type SerialSink struct {
	device  string
	mode    *serial.Mode
	open    openFunc
	retry   resilience.RetryConfig
	breaker *resilience.Breaker

	mu   sync.Mutex
	port io.WriteCloser
}

// NewSerialSink returns a sink for device at baud, 8N1.
func NewSerialSink(device string, baud int) *SerialSink {
	if baud <= 0 {
		baud = DefaultBaud
	}
	return &SerialSink{
		device: device,
		mode: &serial.Mode{
			BaudRate: baud,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		},
		open: openSerial,
		retry: resilience.RetryConfig{
			MaxRetries: 2,
			BaseDelay:  50 * time.Millisecond,
			MaxDelay:   200 * time.Millisecond,
		},
		breaker: resilience.New(resilience.SerialConfig()),
	}
}

// Present clears the terminal and writes the mosaic with CRLF line endings.
// While the port keeps failing the sink fails fast with resilience.ErrOpen.
func (s *SerialSink) Present(ctx context.Context, m *mosaic.Mosaic) error {
	data := []byte(clearScreen + strings.ReplaceAll(m.Text(), "\n", "\r\n"))
	return s.breaker.Execute(func() error {
		return resilience.Retry(ctx, s.retry, func() error {
			return s.write(ctx, data)
		})
	})
}

func (s *SerialSink) write(ctx context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.port == nil {
		port, err := s.open(s.device, s.mode)
		if err != nil {
			return apperrors.Wrapf(err, apperrors.CodeUnavailable, "open serial port %s", s.device)
		}
		trace.Logger(ctx).Info("serial display connected", "device", s.device, "baud", s.mode.BaudRate)
		s.port = port
	}

	n, err := s.port.Write(data)
	if err == nil && n < len(data) {
		err = io.ErrShortWrite
	}
	if err != nil {
		_ = s.port.Close()
		s.port = nil
		return apperrors.Wrapf(err, apperrors.CodeUnavailable, "write serial port %s", s.device)
	}
	return nil
}

// Close closes the port if it is open.
func (s *SerialSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	return err
}
