// Package orchestrator wires capture, pipeline and displays together
package orchestrator

// Orchestrator configuration constants
const (
	// Frame events buffered for the broadcast hub before dropping
	FrameEventBuffer = 16
)
