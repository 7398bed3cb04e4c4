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
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/AleutianAI/resonance/internal/util"
	"github.com/AleutianAI/resonance/pkg/logging"
)

// =============================================================================
// Interfaces
// =============================================================================

// HTTPClient abstracts the single HTTP operation the prober needs.
//
// # Example
//
//	type mockHTTPClient struct {
//	    DoFunc func(*http.Request) (*http.Response, error)
//	}
//
//	func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
//	    return m.DoFunc(req)
//	}
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// =============================================================================
// Prober
// =============================================================================

// ProberConfig configures a Prober.
type ProberConfig struct {
	// Path is appended to the base URL. Default: "/".
	Path string

	// Timeout bounds a single probe. Raised to util.MinRemoteTimeout.
	// Default: util.DefaultProbeTimeout.
	Timeout time.Duration
}

// Prober performs one-shot liveness checks against the backend.
//
// # Thread Safety
//
// Safe for concurrent use.
type Prober struct {
	client  HTTPClient
	path    string
	timeout time.Duration
	logger  *slog.Logger
}

// NewProber creates a Prober.
//
// # Inputs
//
//   - client: HTTP client. Nil uses http.DefaultClient.
//   - cfg: Path and timeout.
//   - logger: Nil discards logs.
func NewProber(client HTTPClient, cfg ProberConfig, logger *slog.Logger) *Prober {
	if client == nil {
		client = http.DefaultClient
	}
	if cfg.Path == "" {
		cfg.Path = "/"
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Prober{
		client:  client,
		path:    cfg.Path,
		timeout: util.EnforceMinTimeout(util.EnforceDefaultTimeout(cfg.Timeout, util.DefaultProbeTimeout), util.MinRemoteTimeout),
		logger:  logger.With("component", "prober"),
	}
}

// Probe issues GET {baseURL}{path} and classifies the outcome.
//
// # Description
//
// Never returns an error. A 2xx response is Connected; a timeout, transport
// error, non-2xx status, or unparseable URL is Offline.
//
// # Example
//
//	state := prober.Probe(ctx, "http://localhost:5000")
func (p *Prober) Probe(ctx context.Context, baseURL string) State {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	target := JoinURL(baseURL, p.path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		p.logger.Warn("probe request invalid", "url", target, "error", err)
		return Offline
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Info("backend unreachable", "url", target, "error", err, "duration_ms", time.Since(start).Milliseconds())
		return Offline
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		p.logger.Info("backend unhealthy", "url", target, "status", resp.StatusCode)
		return Offline
	}

	p.logger.Debug("backend reachable", "url", target, "duration_ms", time.Since(start).Milliseconds())
	return Connected
}

// Start runs Probe in a panic-safe goroutine and records the result in
// tracker (if non-nil) via Tracker.Resolve.
//
// # Outputs
//
//   - *Pending: Completes when the probe finishes. A panicking probe
//     completes as Offline.
//
// # Example
//
//	pending := prober.Start(ctx, baseURL, tracker)
//	renderBanner()                 // runs concurrently with the probe
//	state := pending.Wait(ctx)
func (p *Prober) Start(ctx context.Context, baseURL string, tracker *Tracker) *Pending {
	pending := &Pending{done: make(chan struct{}), state: Offline}

	util.SafeGo(func() {
		defer close(pending.done)
		defer func() {
			if tracker != nil {
				tracker.Resolve(pending.state)
			}
		}()
		pending.state = p.Probe(ctx, baseURL)
	}, func(info util.PanicInfo) {
		p.logger.Error("probe panicked", "panic", info.Value, "stack", info.Stack)
	})

	return pending
}

// =============================================================================
// Pending
// =============================================================================

// Pending is the handle of an in-flight startup probe.
type Pending struct {
	done  chan struct{}
	state State
}

// Resolved returns a Pending that is already complete with state s.
func Resolved(s State) *Pending {
	p := &Pending{done: make(chan struct{}), state: s}
	close(p.done)
	return p
}

// Done is closed when the probe has completed.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the probe completes or ctx is done. It returns Unknown
// if ctx ends first.
func (p *Pending) Wait(ctx context.Context) State {
	select {
	case <-p.done:
		return p.state
	case <-ctx.Done():
		return Unknown
	}
}

// =============================================================================
// Helpers
// =============================================================================

// JoinURL joins a base URL and a path with exactly one slash between them.
func JoinURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
