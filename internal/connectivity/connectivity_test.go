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
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test Helpers
// =============================================================================

type mockHTTPClient struct {
	DoFunc func(*http.Request) (*http.Response, error)
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	return m.DoFunc(req)
}

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func statusServer(t *testing.T, status *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(status.Load()))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// =============================================================================
// State & Tracker Tests
// =============================================================================

func TestState_String(t *testing.T) {
	assert.Equal(t, "unknown", Unknown.String())
	assert.Equal(t, "connected", Connected.String())
	assert.Equal(t, "offline", Offline.String())
	assert.Equal(t, "unknown(9)", State(9).String())
}

func TestTracker_Transitions(t *testing.T) {
	var changes []string
	tracker := NewTracker(WithOnChange(func(from, to State) {
		changes = append(changes, from.String()+"->"+to.String())
	}))

	assert.Equal(t, Unknown, tracker.Get())

	assert.True(t, tracker.Resolve(Connected))
	assert.False(t, tracker.Resolve(Offline), "Resolve only applies from Unknown")
	assert.Equal(t, Connected, tracker.Get())

	assert.True(t, tracker.Downgrade())
	assert.False(t, tracker.Downgrade())
	assert.Equal(t, Offline, tracker.Get())

	assert.True(t, tracker.Set(Connected))
	assert.False(t, tracker.Set(Connected))

	assert.Equal(t, []string{"unknown->connected", "connected->offline", "offline->connected"}, changes)
}

// TestTracker_ConcurrentDowngrade verifies exactly one transition.
func TestTracker_ConcurrentDowngrade(t *testing.T) {
	var transitions atomic.Int32
	tracker := NewTracker(WithOnChange(func(from, to State) {
		transitions.Add(1)
	}))
	tracker.Resolve(Connected)
	transitions.Store(0)

	var wg sync.WaitGroup
	var winners atomic.Int32
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if tracker.Downgrade() {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), winners.Load())
	assert.Equal(t, int32(1), transitions.Load())
	assert.Equal(t, Offline, tracker.Get())
}

func TestTracker_ChangedAtUsesClock(t *testing.T) {
	clock := newFakeClock()
	tracker := NewTracker(WithClock(clock.Now))
	clock.Advance(time.Minute)
	tracker.Downgrade()

	assert.True(t, clock.Now().Equal(tracker.ChangedAt()), "ChangedAt = %v, want %v", tracker.ChangedAt(), clock.Now())
}

// =============================================================================
// Prober Tests
// =============================================================================

func TestProber_Probe(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   State
	}{
		{"200 connected", http.StatusOK, Connected},
		{"204 connected", http.StatusNoContent, Connected},
		{"301 offline", http.StatusMovedPermanently, Offline},
		{"404 offline", http.StatusNotFound, Offline},
		{"503 offline", http.StatusServiceUnavailable, Offline},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var status atomic.Int32
			status.Store(int32(tt.status))
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/", r.URL.Path)
				assert.Equal(t, http.MethodGet, r.Method)
				if tt.status == http.StatusMovedPermanently {
					w.Header().Set("Location", "/")
				}
				w.WriteHeader(int(status.Load()))
			}))
			defer srv.Close()

			client := srv.Client()
			client.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }
			prober := NewProber(client, ProberConfig{}, nil)

			assert.Equal(t, tt.want, prober.Probe(context.Background(), srv.URL))
		})
	}
}

func TestProber_TransportError(t *testing.T) {
	prober := NewProber(&mockHTTPClient{DoFunc: func(*http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	}}, ProberConfig{}, nil)

	assert.Equal(t, Offline, prober.Probe(context.Background(), "http://backend.invalid"))
}

func TestProber_InvalidURL(t *testing.T) {
	prober := NewProber(nil, ProberConfig{}, nil)
	assert.Equal(t, Offline, prober.Probe(context.Background(), "http://[::1"))
}

// TestProber_Timeout verifies a hung backend is Offline within the bound.
func TestProber_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	prober := NewProber(srv.Client(), ProberConfig{Timeout: 150 * time.Millisecond}, nil)

	start := time.Now()
	assert.Equal(t, Offline, prober.Probe(context.Background(), srv.URL))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestProber_CustomPath(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
	}))
	defer srv.Close()

	prober := NewProber(srv.Client(), ProberConfig{Path: "/health"}, nil)
	assert.Equal(t, Connected, prober.Probe(context.Background(), srv.URL+"/api/"))
	assert.Equal(t, "/api/health", gotPath)
}

func TestProber_Start(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusOK)
	srv := statusServer(t, &status)

	tracker := NewTracker()
	pending := NewProber(srv.Client(), ProberConfig{}, nil).Start(context.Background(), srv.URL, tracker)

	select {
	case <-pending.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("probe did not complete")
	}
	assert.Equal(t, Connected, pending.Wait(context.Background()))
	assert.Equal(t, Connected, tracker.Get())
}

// TestProber_StartDoesNotUndoDowngrade verifies a late probe result is
// ignored once the state has left Unknown.
func TestProber_StartDoesNotUndoDowngrade(t *testing.T) {
	release := make(chan struct{})
	prober := NewProber(&mockHTTPClient{DoFunc: func(r *http.Request) (*http.Response, error) {
		<-release
		return httptest.NewRecorder().Result(), nil
	}}, ProberConfig{}, nil)

	tracker := NewTracker()
	pending := prober.Start(context.Background(), "http://backend", tracker)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Equal(t, Unknown, pending.Wait(ctx))

	tracker.Downgrade()
	close(release)
	<-pending.Done()

	assert.Equal(t, Offline, tracker.Get())
}

func TestResolved(t *testing.T) {
	p := Resolved(Offline)
	select {
	case <-p.Done():
	default:
		t.Fatal("Resolved pending should be done")
	}
	assert.Equal(t, Offline, p.Wait(context.Background()))
}

func TestJoinURL(t *testing.T) {
	assert.Equal(t, "http://h/api/healing-analysis", JoinURL("http://h/api/", "/healing-analysis"))
	assert.Equal(t, "http://h/", JoinURL("http://h", "/"))
	assert.Equal(t, "http://h/x", JoinURL("http://h", "x"))
}

// =============================================================================
// Reprober Tests
// =============================================================================

func TestNewReprober_Disabled(t *testing.T) {
	r := NewReprober(NewProber(nil, ProberConfig{}, nil), NewTracker(), "http://x", 0, time.Minute)
	assert.Nil(t, r)
	assert.Equal(t, Offline, r.Check(context.Background()))
	assert.Zero(t, r.NextWait())
}

// TestReprober_Backoff walks the full schedule: not due, failed re-probes
// doubling up to the cap, then recovery.
func TestReprober_Backoff(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusServiceUnavailable)
	srv := statusServer(t, &status)

	clock := newFakeClock()
	tracker := NewTracker(WithClock(clock.Now))
	tracker.Resolve(Connected)
	tracker.Downgrade()

	prober := NewProber(srv.Client(), ProberConfig{}, nil)
	r := NewReprober(prober, tracker, srv.URL, 10*time.Second, 25*time.Second)
	ctx := context.Background()

	clock.Advance(9 * time.Second)
	assert.Equal(t, Offline, r.Check(ctx), "not due yet")
	assert.Equal(t, 10*time.Second, r.NextWait())

	clock.Advance(time.Second)
	assert.Equal(t, Offline, r.Check(ctx), "due, backend still down")
	assert.Equal(t, 20*time.Second, r.NextWait())

	clock.Advance(19 * time.Second)
	assert.Equal(t, Offline, r.Check(ctx), "not due after doubling")

	clock.Advance(time.Second)
	assert.Equal(t, Offline, r.Check(ctx))
	assert.Equal(t, 25*time.Second, r.NextWait(), "capped at max")

	status.Store(http.StatusOK)
	clock.Advance(25 * time.Second)
	assert.Equal(t, Connected, r.Check(ctx))
	assert.Equal(t, Connected, tracker.Get())
	assert.Equal(t, 10*time.Second, r.NextWait(), "reset after success")

	// A new downgrade starts over from the initial wait.
	tracker.Downgrade()
	clock.Advance(9 * time.Second)
	assert.Equal(t, Offline, r.Check(ctx))
	clock.Advance(time.Second)
	assert.Equal(t, Connected, r.Check(ctx))
}

func TestReprober_NotOffline(t *testing.T) {
	tracker := NewTracker()
	tracker.Resolve(Connected)
	prober := NewProber(&mockHTTPClient{DoFunc: func(*http.Request) (*http.Response, error) {
		t.Fatal("must not probe while connected")
		return nil, nil
	}}, ProberConfig{}, nil)

	r := NewReprober(prober, tracker, "http://x", time.Second, time.Minute)
	require.NotNil(t, r)
	assert.Equal(t, Connected, r.Check(context.Background()))
}
