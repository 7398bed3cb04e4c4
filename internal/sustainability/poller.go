// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package sustainability polls the backend for aggregate impact metrics.
//
// The Poller refreshes on a fixed interval independent of analysis traffic.
// A failed refresh yields DefaultSnapshot, never the previous value.
package sustainability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/AleutianAI/resonance/internal/connectivity"
	"github.com/AleutianAI/resonance/internal/observability"
	"github.com/AleutianAI/resonance/internal/util"
	"github.com/AleutianAI/resonance/pkg/logging"
)

// maxSnapshotBytes caps how much of a metrics body is read.
const maxSnapshotBytes = 64 << 10

// =============================================================================
// Configuration
// =============================================================================

// PollerConfig configures a Poller.
//
// # Fields
//
//   - BaseURL: Resolved backend base.
//   - Path: Metrics path. Default: "/api/sustainability-metrics".
//   - Timeout: Per-refresh bound. Default: util.DefaultMetricsTimeout.
//   - Interval: Time between refreshes. Default: util.DefaultPollInterval,
//     raised to util.MinPollInterval.
type PollerConfig struct {
	BaseURL  string
	Path     string
	Timeout  time.Duration
	Interval time.Duration
}

// Option configures a Poller.
type Option func(*Poller)

// WithLogger sets the logger. Default: logging.Discard().
func WithLogger(l *slog.Logger) Option {
	return func(p *Poller) { p.logger = l }
}

// WithMetrics counts refreshes by source.
func WithMetrics(m *observability.Metrics) Option {
	return func(p *Poller) { p.metrics = m }
}

// WithOnUpdate registers a callback fired after every refresh.
func WithOnUpdate(fn func(Snapshot)) Option {
	return func(p *Poller) { p.onUpdate = fn }
}

// WithClock sets the clock used for Snapshot.FetchedAt.
func WithClock(now func() time.Time) Option {
	return func(p *Poller) { p.now = now }
}

// =============================================================================
// Poller
// =============================================================================

// Poller periodically fetches the backend's sustainability snapshot.
//
// # Description
//
// Start launches a background loop that refreshes immediately and then on
// every tick until Stop is called or the context ends. Refresh can also be
// called directly.
//
// # Thread Safety
//
// All methods are safe for concurrent use. OnUpdate callbacks are invoked
// from the polling goroutine or the Refresh caller.
type Poller struct {
	http     connectivity.HTTPClient
	url      string
	timeout  time.Duration
	interval time.Duration
	logger   *slog.Logger
	metrics  *observability.Metrics
	onUpdate func(Snapshot)
	now      func() time.Time

	mu      sync.RWMutex
	latest  Snapshot
	running bool
	stop    chan struct{}
	done    <-chan struct{}
}

// NewPoller creates a Poller. A nil client uses http.DefaultClient.
//
// # Example
//
//	poller := sustainability.NewPoller(nil, sustainability.PollerConfig{
//	    BaseURL:  baseURL,
//	    Interval: cfg.Poller.Interval,
//	}, sustainability.WithLogger(logger.Slog()))
//	if err := poller.Start(ctx); err != nil {
//	    return err
//	}
//	defer poller.Stop()
func NewPoller(client connectivity.HTTPClient, cfg PollerConfig, opts ...Option) *Poller {
	if client == nil {
		client = http.DefaultClient
	}
	path := cfg.Path
	if path == "" {
		path = "/api/sustainability-metrics"
	}
	p := &Poller{
		http:     client,
		url:      connectivity.JoinURL(cfg.BaseURL, path),
		timeout:  util.EnforceMinTimeout(util.EnforceDefaultTimeout(cfg.Timeout, util.DefaultMetricsTimeout), util.MinRemoteTimeout),
		interval: util.EnforceMinTimeout(util.EnforceDefaultTimeout(cfg.Interval, util.DefaultPollInterval), util.MinPollInterval),
		latest:   DefaultSnapshot(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logging.Discard()
	}
	if p.now == nil {
		p.now = time.Now
	}
	p.logger = p.logger.With("component", "sustainability_poller")
	return p
}

// Interval returns the effective refresh interval.
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Latest returns the most recent snapshot. Before the first refresh it is
// DefaultSnapshot.
func (p *Poller) Latest() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.latest
}

// Refresh fetches one snapshot and stores it as Latest.
//
// # Description
//
// Never fails. Transport errors, non-200 statuses, malformed bodies and
// out-of-range values are logged as ErrMetricsUnavailable and
// DefaultSnapshot is stored instead.
//
// # Outputs
//
//   - Snapshot: The stored snapshot
func (p *Poller) Refresh(ctx context.Context) Snapshot {
	snap, err := p.fetch(ctx)
	if err != nil {
		p.logger.Warn("using default sustainability snapshot",
			"url", p.url,
			"error", fmt.Errorf("%w: %w", ErrMetricsUnavailable, err),
		)
		snap = DefaultSnapshot()
	}
	snap.FetchedAt = p.now()

	p.mu.Lock()
	p.latest = snap
	p.mu.Unlock()

	p.metrics.RecordRefresh(string(snap.Source))
	if p.onUpdate != nil {
		p.onUpdate(snap)
	}
	return snap
}

func (p *Poller) fetch(ctx context.Context) (Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return Snapshot{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return Snapshot{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxSnapshotBytes))
		return Snapshot{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var snap Snapshot
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxSnapshotBytes)).Decode(&snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if err := snap.Validate(); err != nil {
		return Snapshot{}, fmt.Errorf("invalid snapshot: %w", err)
	}
	snap.Source = SourceBackend
	return snap, nil
}

// =============================================================================
// Lifecycle
// =============================================================================

// Start launches the polling loop.
//
// # Outputs
//
//   - error: Non-nil if the poller is already running
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return errors.New("poller is already running")
	}
	p.running = true
	p.stop = make(chan struct{})

	stop := p.stop
	p.done = util.SafeGo(func() { p.run(ctx, stop) }, func(info util.PanicInfo) {
		p.logger.Error("sustainability poller panicked", "panic", info.Value, "stack", info.Stack)
	})

	p.logger.Info("sustainability poller starting", "interval", p.interval.String(), "url", p.url)
	return nil
}

// Stop halts the loop and waits for it to exit. Safe to call more than once.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stop)
	done := p.done
	p.mu.Unlock()

	<-done
}

// Run refreshes immediately and then on every tick until ctx ends. It blocks.
func (p *Poller) Run(ctx context.Context) {
	p.run(ctx, nil)
}

func (p *Poller) run(ctx context.Context, stop <-chan struct{}) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.Refresh(ctx)

	for {
		select {
		case <-ctx.Done():
			p.logger.Debug("sustainability poller stopped (context cancelled)")
			return
		case <-stop:
			p.logger.Debug("sustainability poller stopped (stop requested)")
			return
		case <-ticker.C:
			p.Refresh(ctx)
		}
	}
}
