// Package grpcclient provides a client for the textcamera.Mosaic gRPC service
package grpcclient

import "time"

// Client configuration defaults
const (
	// Keepalive configuration
	DefaultKeepaliveTime    = 10 * time.Second
	DefaultKeepaliveTimeout = 3 * time.Second

	// Per-call deadline for unary requests
	DefaultCallTimeout = 2 * time.Second
)
