// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FrameKit Contributors

// Package property provides observable value cells with synchronous
// change notification.
package property

import "sync"

// listener pairs a callback with a registration ID so unsubscribe can
// remove exactly one entry even when the same func is attached twice.
type listener[T any] struct {
	id int
	fn func(T)
}

// Property is an observable value cell. Setting the value invokes every
// attached listener synchronously, in attachment order, before Set returns.
// Set always notifies, including when the new value equals the current one;
// callers that care about idempotence must compare before setting.
//
// A Property is safe for concurrent use. Listeners are invoked outside the
// internal lock, so a listener may read or set the same Property without
// deadlocking.
type Property[T any] struct {
	mu        sync.Mutex
	value     T
	prev      T
	hasPrev   bool
	listeners []listener[T]
	nextID    int
}

// New creates a Property holding the given initial value. The initial
// assignment does not count as a previous value and fires no listeners.
func New[T any](initial T) *Property[T] {
	return &Property[T]{value: initial}
}

// Get returns the current value.
func (p *Property[T]) Get() T {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value
}

// Set stores the current value as the previous value, stores v, then
// invokes all listeners with v before returning.
func (p *Property[T]) Set(v T) {
	p.mu.Lock()
	p.prev = p.value
	p.hasPrev = true
	p.value = v
	snapshot := make([]listener[T], len(p.listeners))
	copy(snapshot, p.listeners)
	p.mu.Unlock()

	for _, l := range snapshot {
		l.fn(v)
	}
}

// Previous returns the value held before the most recent Set, and whether
// any Set has occurred yet.
func (p *Property[T]) Previous() (T, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.prev, p.hasPrev
}

// On attaches a listener and returns a func that detaches it. Listeners
// are invoked in attachment order.
func (p *Property[T]) On(fn func(T)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextID
	p.nextID++
	p.listeners = append(p.listeners, listener[T]{id: id, fn: fn})

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		for i, l := range p.listeners {
			if l.id == id {
				p.listeners = append(p.listeners[:i], p.listeners[i+1:]...)
				return
			}
		}
	}
}

// ListenerCount returns the number of attached listeners.
func (p *Property[T]) ListenerCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.listeners)
}

// HasListeners returns true if at least one listener is attached.
func (p *Property[T]) HasListeners() bool {
	return p.ListenerCount() > 0
}
