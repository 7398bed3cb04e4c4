// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package connectivity decides whether the analysis backend is reachable.
//
// A single liveness probe at startup sets the state. After that the state
// only moves to Offline, when the orchestrator sees a failed remote call,
// unless an explicit Reprober is configured to lift it.
//
// # State Diagram
//
//	UNKNOWN ──[probe 2xx]──► CONNECTED
//	   │                        │
//	   │                  [remote failure]
//	   │                        ▼
//	   └──[probe failed]───► OFFLINE ──[re-probe 2xx, optional]──► CONNECTED
package connectivity

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// State is the client's belief about backend reachability.
type State int32

const (
	// Unknown means the startup probe has not completed.
	Unknown State = iota

	// Connected means the last probe or remote call succeeded.
	Connected

	// Offline means the backend is treated as unreachable.
	Offline
)

// String returns a lowercase state name.
func (s State) String() string {
	switch s {
	case Unknown:
		return "unknown"
	case Connected:
		return "connected"
	case Offline:
		return "offline"
	default:
		return fmt.Sprintf("unknown(%d)", int32(s))
	}
}

// =============================================================================
// Tracker
// =============================================================================

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithClock sets the clock used to stamp state changes.
func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) {
		t.now = now
	}
}

// WithOnChange registers a callback invoked synchronously after every
// state transition. The callback must not call back into the Tracker's
// setters.
func WithOnChange(fn func(from, to State)) TrackerOption {
	return func(t *Tracker) {
		t.onChange = fn
	}
}

// Tracker holds the shared connectivity state.
//
// # Description
//
// Reads are lock-free. Transitions are compare-and-swap, so concurrent
// downgrades from many failing analyze calls produce exactly one
// transition and one callback.
//
// # Thread Safety
//
// Safe for concurrent use.
type Tracker struct {
	state     atomic.Int32
	changedAt atomic.Int64
	now       func() time.Time
	onChange  func(from, to State)
	cbMu      sync.Mutex
}

// NewTracker returns a Tracker in the Unknown state.
func NewTracker(opts ...TrackerOption) *Tracker {
	t := &Tracker{now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	t.changedAt.Store(t.now().UnixNano())
	return t
}

// Get returns the current state.
func (t *Tracker) Get() State {
	return State(t.state.Load())
}

// ChangedAt returns the time of the last transition, or construction time.
func (t *Tracker) ChangedAt() time.Time {
	return time.Unix(0, t.changedAt.Load())
}

// Now returns the tracker's clock reading.
func (t *Tracker) Now() time.Time {
	return t.now()
}

// Set unconditionally moves to s. Returns true if the state changed.
func (t *Tracker) Set(s State) bool {
	old := State(t.state.Swap(int32(s)))
	if old == s {
		return false
	}
	t.changed(old, s)
	return true
}

// Resolve records the startup probe result only if the state is still
// Unknown, so a late probe cannot undo a downgrade. Returns true if applied.
func (t *Tracker) Resolve(s State) bool {
	if !t.state.CompareAndSwap(int32(Unknown), int32(s)) {
		return false
	}
	if s != Unknown {
		t.changed(Unknown, s)
	}
	return true
}

// Downgrade moves to Offline. Idempotent; returns true only for the call
// that performed the transition.
func (t *Tracker) Downgrade() bool {
	for {
		old := State(t.state.Load())
		if old == Offline {
			return false
		}
		if t.state.CompareAndSwap(int32(old), int32(Offline)) {
			t.changed(old, Offline)
			return true
		}
	}
}

func (t *Tracker) changed(from, to State) {
	t.changedAt.Store(t.now().UnixNano())
	if t.onChange != nil {
		t.cbMu.Lock()
		defer t.cbMu.Unlock()
		t.onChange(from, to)
	}
}
