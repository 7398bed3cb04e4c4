// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package util

import (
	"sync"
	"sync/atomic"
)

// =============================================================================
// Ring Buffer
// =============================================================================

// RingBuffer is a thread-safe, fixed-size circular buffer that evicts the
// oldest item when full.
//
// # Description
//
// Backs the in-memory analysis history. Insertion order is preserved and
// Snapshot returns items oldest first, so the buffer behaves like an
// append-only log with a sliding window.
//
// # Thread Safety
//
// All methods are safe for concurrent use.
//
// # Example
//
//	buf := util.NewRingBuffer[Result](500)
//	if evicted := buf.Push(r); evicted {
//	    logger.Debug("history full, oldest entry evicted")
//	}
//	recent := buf.Snapshot()
//
// # Limitations
//
//   - Capacity is fixed at creation
//   - Memory for the full capacity is allocated up front
type RingBuffer[T any] struct {
	items    []T
	head     int
	size     int
	capacity int
	evicted  atomic.Int64
	mu       sync.Mutex
}

// NewRingBuffer creates an empty buffer holding at most capacity items.
//
// # Panics
//
// Panics if capacity <= 0.
func NewRingBuffer[T any](capacity int) *RingBuffer[T] {
	if capacity <= 0 {
		panic("ring buffer capacity must be positive")
	}
	return &RingBuffer[T]{
		items:    make([]T, capacity),
		capacity: capacity,
	}
}

// Push appends item, evicting the oldest item if the buffer is full.
//
// # Outputs
//
//   - bool: true if an item was evicted to make room
func (r *RingBuffer[T]) Push(item T) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	tail := (r.head + r.size) % r.capacity
	if r.size == r.capacity {
		r.items[r.head] = item
		r.head = (r.head + 1) % r.capacity
		r.evicted.Add(1)
		return true
	}

	r.items[tail] = item
	r.size++
	return false
}

// Snapshot returns a copy of all items, oldest first. Returns nil when empty.
func (r *RingBuffer[T]) Snapshot() []T {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.size == 0 {
		return nil
	}

	out := make([]T, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.items[(r.head+i)%r.capacity]
	}
	return out
}

// Last returns up to n of the most recent items, oldest first.
func (r *RingBuffer[T]) Last(n int) []T {
	all := r.Snapshot()
	if n <= 0 || n >= len(all) {
		return all
	}
	return all[len(all)-n:]
}

// Len returns the current number of items.
func (r *RingBuffer[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}

// Capacity returns the maximum number of items. Immutable.
func (r *RingBuffer[T]) Capacity() int {
	return r.capacity
}

// Evicted returns how many items have been evicted since creation or the
// last Clear.
func (r *RingBuffer[T]) Evicted() int64 {
	return r.evicted.Load()
}

// Clear removes every item and resets the eviction count.
func (r *RingBuffer[T]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	var zero T
	for i := range r.items {
		r.items[i] = zero // release references for GC
	}
	r.head = 0
	r.size = 0
	r.evicted.Store(0)
}
