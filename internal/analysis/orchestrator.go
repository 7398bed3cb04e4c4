// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package analysis produces analysis results, remotely when the backend is
// reachable and locally otherwise.
//
// # Description
//
// The Orchestrator makes at most one remote attempt per call. Any failure
// downgrades the shared connectivity state to Offline and the result is
// computed locally with the signature engine. Callers get the same Result
// shape either way; only Result.Mode differs.
//
// # Flow
//
//	Analyze(req)
//	   │
//	   ├─ Normalize ──[invalid]──► ErrInvalidInput (no network)
//	   │
//	   ├─ wait for startup probe, optional re-probe
//	   │
//	   ├─ state != Offline ──► POST /healing-analysis ──[ok]──► FromRemote
//	   │                              │
//	   │                          [failure]──► Downgrade, OnFallback
//	   │                              │
//	   └──────────────────────────────┴──► FromLocal
//	                                          │
//	                                     History.Append
//
// # Thread Safety
//
// Concurrent Analyze calls run independently. History order is completion
// order.
package analysis

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/AleutianAI/resonance/internal/connectivity"
	"github.com/AleutianAI/resonance/internal/observability"
	"github.com/AleutianAI/resonance/pkg/logging"
	"github.com/AleutianAI/resonance/pkg/signature"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClient enables the remote path. Without it every call is local.
func WithClient(c *Client) Option {
	return func(o *Orchestrator) { o.client = c }
}

// WithTracker shares a connectivity tracker. Default: a fresh Tracker.
func WithTracker(t *connectivity.Tracker) Option {
	return func(o *Orchestrator) { o.tracker = t }
}

// WithPending makes Analyze wait for an in-flight startup probe.
func WithPending(p *connectivity.Pending) Option {
	return func(o *Orchestrator) { o.pending = p }
}

// WithReprober enables recovery from the Offline state.
func WithReprober(r *connectivity.Reprober) Option {
	return func(o *Orchestrator) { o.reprober = r }
}

// WithHistory sets the history store. Default: NewRingHistory(500).
func WithHistory(h History) Option {
	return func(o *Orchestrator) { o.history = h }
}

// WithMetrics records analysis and fallback metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithLogger sets the logger. Default: logging.Discard().
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithOnFallback registers a hook called after every recovered remote
// failure, before the local result is computed.
func WithOnFallback(fn func(*TransportError)) Option {
	return func(o *Orchestrator) { o.onFallback = fn }
}

// WithClock sets the clock used for Result.CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// Orchestrator runs analyses with remote-first, local-fallback semantics.
type Orchestrator struct {
	engine     signature.Engine
	client     *Client
	tracker    *connectivity.Tracker
	pending    *connectivity.Pending
	reprober   *connectivity.Reprober
	history    History
	metrics    *observability.Metrics
	logger     *slog.Logger
	onFallback func(*TransportError)
	now        func() time.Time
	tracer     trace.Tracer
}

// NewOrchestrator creates an Orchestrator around engine.
//
// # Example
//
//	orch := analysis.NewOrchestrator(signature.NewEngine(cfg.Signature.EffectiveSalt()),
//	    analysis.WithClient(client),
//	    analysis.WithTracker(tracker),
//	    analysis.WithPending(prober.Start(ctx, baseURL, tracker)),
//	    analysis.WithLogger(logger.Slog()),
//	)
func NewOrchestrator(engine signature.Engine, opts ...Option) *Orchestrator {
	o := &Orchestrator{engine: engine}
	for _, opt := range opts {
		opt(o)
	}
	if o.tracker == nil {
		o.tracker = connectivity.NewTracker()
	}
	if o.history == nil {
		o.history = NewRingHistory(DefaultHistoryCapacity)
	}
	if o.logger == nil {
		o.logger = logging.Discard()
	}
	if o.now == nil {
		o.now = time.Now
	}
	o.logger = o.logger.With("component", "orchestrator")
	o.tracer = observability.Tracer()
	return o
}

// Analyze returns the analysis of req.
//
// # Description
//
// Validation failures return ErrInvalidInput before any I/O. Every valid
// request yields a Result: remote failures are absorbed by the local path.
// A cancelled ctx cuts the remote attempt short without downgrading
// connectivity; the local result is still returned.
//
// # Outputs
//
//   - *Result: Never nil when error is nil
//   - error: Wraps ErrInvalidInput
func (o *Orchestrator) Analyze(ctx context.Context, req Request) (*Result, error) {
	req, err := req.Normalize()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	ctx, span := o.tracer.Start(ctx, "analysis.Analyze", trace.WithAttributes(
		attribute.String("analysis.intention", string(req.Intention)),
		attribute.Int("analysis.text_len", len(req.Text)),
	))
	defer span.End()

	var result Result
	remoteOK := false

	if state := o.currentState(ctx); state != connectivity.Offline && o.client != nil {
		remote, err := o.client.Analyze(ctx, req)
		if err == nil {
			result = FromRemote(*remote, req.Intention, uuid.NewString(), o.now())
			remoteOK = true
		} else {
			o.handleFailure(ctx, span, err)
		}
	}

	if !remoteOK {
		result = FromLocal(o.engine.Analyze(req.Text), req.Intention, uuid.NewString(), o.now())
	}

	if err := o.history.Append(ctx, result); err != nil {
		o.logger.Error("history append failed", "id", result.ID, "error", err)
	}

	o.metrics.RecordAnalysis(string(result.Mode), time.Since(start))
	span.SetAttributes(attribute.String("analysis.mode", string(result.Mode)))
	o.logger.Debug("analysis completed",
		"id", result.ID,
		"mode", result.Mode,
		"text_len", len(req.Text),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return &result, nil
}

// State returns the current connectivity state.
func (o *Orchestrator) State() connectivity.State {
	return o.tracker.Get()
}

// History returns the orchestrator's history store.
func (o *Orchestrator) History() History {
	return o.history
}

// currentState waits for a pending startup probe and gives the reprober a
// chance to lift Offline.
func (o *Orchestrator) currentState(ctx context.Context) connectivity.State {
	if o.pending != nil {
		o.pending.Wait(ctx)
	}
	state := o.tracker.Get()
	if state == connectivity.Offline && o.reprober != nil {
		state = o.reprober.Check(ctx)
		if state == connectivity.Connected {
			o.logger.Info("backend reachable again, leaving offline mode")
		}
	}
	return state
}

func (o *Orchestrator) handleFailure(ctx context.Context, span trace.Span, err error) {
	var terr *TransportError
	if !errors.As(err, &terr) {
		terr = &TransportError{Op: "analyze", Reason: ReasonTransport, Err: err}
	}

	span.RecordError(terr)
	span.SetStatus(codes.Error, string(terr.Reason))

	if ctx.Err() != nil {
		o.logger.Debug("remote analysis abandoned by caller", "error", terr)
		return
	}

	if o.tracker.Downgrade() {
		o.logger.Warn("backend unavailable, switching to local analysis",
			"op", terr.Op,
			"reason", terr.Reason,
			"status", terr.StatusCode,
			"error", terr.Err,
		)
	}
	o.metrics.RecordFallback(string(terr.Reason))
	if o.onFallback != nil {
		o.onFallback(terr)
	}
}
