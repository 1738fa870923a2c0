// Package server provides HTTP and WebSocket handlers
package server

import "time"

// Server configuration constants
const (
	// Per-connection sliding window for client messages
	RateLimitMessages = 10
	RateLimitWindow   = time.Second

	// Deadline for a single frame write to one WebSocket client
	WriteTimeout = 2 * time.Second

	// Largest accepted POST body
	MaxBodyBytes = 1 << 10
)
