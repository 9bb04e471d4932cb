package flink

import (
	"io"
	"sync"
)

// CloserRegistry tracks the streams a snapshot or restore holds open
// so that an external cancellation can release them mid-operation.
// Resources are registered for the duration of the operation and
// unregistered on every exit path. All methods are safe on a nil
// receiver, which disables tracking.
type CloserRegistry struct {
	mu      sync.Mutex
	closers map[io.Closer]struct{}
	closed  bool
}

// NewCloserRegistry inits an empty registry.
func NewCloserRegistry() *CloserRegistry {
	return &CloserRegistry{closers: make(map[io.Closer]struct{})}
}

// Register starts tracking a resource. Registering against an already
// closed registry closes the resource immediately.
func (r *CloserRegistry) Register(c io.Closer) {
	if r == nil {
		return
	}
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		_ = c.Close()
		return
	}
	r.closers[c] = struct{}{}
	r.mu.Unlock()
}

// Unregister stops tracking a resource without closing it.
func (r *CloserRegistry) Unregister(c io.Closer) {
	if r == nil {
		return
	}
	r.mu.Lock()
	delete(r.closers, c)
	r.mu.Unlock()
}

// NumRegistered returns the number of currently tracked resources.
func (r *CloserRegistry) NumRegistered() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.closers)
}

// Close releases every tracked resource and marks the registry closed.
// The first close error is returned, remaining resources are still
// closed.
func (r *CloserRegistry) Close() error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var err error
	for c := range r.closers {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
		delete(r.closers, c)
	}
	r.closed = true
	return err
}
