// Package capture produces camera frames for the pipeline
package capture

import "time"

// Capture constants
const (
	// Row stride alignment of produced luma planes, as camera HALs pad rows
	StrideAlign = 64

	// Default sensor geometry. Square, so both the portrait and the landscape
	// crop fit whatever the rotation.
	DefaultSensorWidth  = 640
	DefaultSensorHeight = 640

	// Default frame pull rate in Hz
	DefaultRate = 10.0

	// Pause after a source error before pulling again
	ErrorBackoff = 500 * time.Millisecond
)

// AlignStride rounds width up to a multiple of StrideAlign.
func AlignStride(width int) int {
	return (width + StrideAlign - 1) / StrideAlign * StrideAlign
}
