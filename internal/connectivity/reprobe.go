// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package connectivity

import (
	"context"
	"sync"
	"time"
)

// Reprober lifts the Offline state after an exponential backoff.
//
// # Description
//
// The first re-probe is due Initial after the downgrade. Each failure
// doubles the wait up to Max. A success sets the tracker to Connected and
// resets the wait. A later downgrade starts over from Initial.
//
// At most one re-probe is in flight; callers arriving meanwhile see Offline.
//
// # Thread Safety
//
// Safe for concurrent use.
type Reprober struct {
	prober  *Prober
	tracker *Tracker
	baseURL string
	initial time.Duration
	max     time.Duration

	mu          sync.Mutex
	wait        time.Duration
	lastAttempt time.Time
	inflight    bool
}

// NewReprober returns a Reprober, or nil when initial is non-positive.
// A nil *Reprober is valid and never re-probes.
func NewReprober(prober *Prober, tracker *Tracker, baseURL string, initial, max time.Duration) *Reprober {
	if initial <= 0 || prober == nil || tracker == nil {
		return nil
	}
	if max < initial {
		max = initial
	}
	return &Reprober{
		prober:  prober,
		tracker: tracker,
		baseURL: baseURL,
		initial: initial,
		max:     max,
		wait:    initial,
	}
}

// Check returns the tracker's state after re-probing if one is due.
func (r *Reprober) Check(ctx context.Context) State {
	if r == nil {
		return Offline
	}
	if s := r.tracker.Get(); s != Offline {
		return s
	}

	r.mu.Lock()
	now := r.tracker.Now()
	ref := r.lastAttempt
	if downAt := r.tracker.ChangedAt(); ref.Before(downAt) {
		ref = downAt
		r.wait = r.initial
	}
	if r.inflight || now.Sub(ref) < r.wait {
		r.mu.Unlock()
		return Offline
	}
	r.inflight = true
	r.lastAttempt = now
	r.mu.Unlock()

	state := r.prober.Probe(ctx, r.baseURL)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.inflight = false
	if state == Connected {
		r.wait = r.initial
		r.tracker.Set(Connected)
		return Connected
	}
	r.wait *= 2
	if r.wait > r.max {
		r.wait = r.max
	}
	return r.tracker.Get()
}

// NextWait returns the current backoff.
func (r *Reprober) NextWait() time.Duration {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.wait
}
