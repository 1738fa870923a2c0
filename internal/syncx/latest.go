// Package syncx provides extended synchronization primitives
package syncx

import (
	"context"
	"sync"
)

// Latest holds the most recent value of T together with a version that
// increases on every Set. Readers can block until a newer version exists.
type Latest[T any] struct {
	mu      sync.RWMutex
	value   T
	version uint64
	changed chan struct{}
}

// NewLatest returns a Latest at version 0 holding initial.
func NewLatest[T any](initial T) *Latest[T] {
	return &Latest[T]{value: initial, changed: make(chan struct{})}
}

// Get returns the current value and version.
func (l *Latest[T]) Get() (T, uint64) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.value, l.version
}

// Set replaces the value, wakes all waiters and returns the new version.
func (l *Latest[T]) Set(v T) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.value = v
	l.version++
	close(l.changed)
	l.changed = make(chan struct{})
	return l.version
}

// Swap replaces the value and returns the previous one.
func (l *Latest[T]) Swap(v T) T {
	l.mu.Lock()
	defer l.mu.Unlock()
	old := l.value
	l.value = v
	l.version++
	close(l.changed)
	l.changed = make(chan struct{})
	return old
}

// Wait blocks until the version is greater than after, then returns the
// value and its version. It returns ctx.Err() if ctx ends first.
func (l *Latest[T]) Wait(ctx context.Context, after uint64) (T, uint64, error) {
	for {
		l.mu.RLock()
		if l.version > after {
			v, ver := l.value, l.version
			l.mu.RUnlock()
			return v, ver, nil
		}
		ch := l.changed
		l.mu.RUnlock()

		select {
		case <-ctx.Done():
			var zero T
			return zero, after, ctx.Err()
		case <-ch:
		}
	}
}
