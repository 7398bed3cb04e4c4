// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides metrics and tracing for the client and the
// reference backend.
//
// # Description
//
// Prometheus collectors cover:
//   - Analyses by mode (remote, local) and their latency
//   - Fallbacks by reason (transport, status, decode, invalid_body)
//   - The connectivity state gauge
//   - Metrics refreshes by source (remote, default)
//   - Backend HTTP requests, latency, and rate-limited requests
//
// Collectors are registered on an injected prometheus.Registerer so tests
// can use a private registry. All recording methods accept a nil *Metrics.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Metric Definitions
// =============================================================================

const metricsNamespace = "resonance"

const (
	analysisSubsystem = "analysis"
	clientSubsystem   = "client"
	backendSubsystem  = "backend"
)

// Metrics holds every Prometheus collector used by the process.
type Metrics struct {
	// AnalysesTotal counts completed analyses.
	// Labels: mode (remote, local)
	AnalysesTotal *prometheus.CounterVec

	// AnalysisDurationSeconds measures Analyze latency, fallback included.
	// Labels: mode (remote, local)
	AnalysisDurationSeconds *prometheus.HistogramVec

	// FallbacksTotal counts remote failures recovered by the local path.
	// Labels: reason (transport, status, decode, invalid_body)
	FallbacksTotal *prometheus.CounterVec

	// ConnectivityState is 0 unknown, 1 connected, 2 offline.
	ConnectivityState prometheus.Gauge

	// MetricsRefreshTotal counts sustainability snapshot refreshes.
	// Labels: source (remote, default)
	MetricsRefreshTotal *prometheus.CounterVec

	// BackendRequestsTotal counts backend HTTP requests.
	// Labels: route, status
	BackendRequestsTotal *prometheus.CounterVec

	// BackendRequestDurationSeconds measures backend handler latency.
	// Labels: route
	BackendRequestDurationSeconds *prometheus.HistogramVec

	// BackendRateLimitedTotal counts requests rejected with 429.
	BackendRateLimitedTotal prometheus.Counter
}

// NewMetrics creates and registers all collectors on reg.
//
// # Inputs
//
//   - reg: Registry to register on. Nil uses prometheus.DefaultRegisterer.
//
// # Limitations
//
//   - Panics if called twice with the same registry (duplicate registration).
//
// # Examples
//
//	reg := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(reg)
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		AnalysesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: analysisSubsystem,
				Name:      "total",
				Help:      "Total completed analyses by mode",
			},
			[]string{"mode"},
		),

		AnalysisDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: analysisSubsystem,
				Name:      "duration_seconds",
				Help:      "Analysis latency in seconds, including any fallback",
				Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"mode"},
		),

		FallbacksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: analysisSubsystem,
				Name:      "fallbacks_total",
				Help:      "Remote analysis failures recovered by local computation",
			},
			[]string{"reason"},
		),

		ConnectivityState: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: clientSubsystem,
				Name:      "connectivity_state",
				Help:      "Backend connectivity: 0 unknown, 1 connected, 2 offline",
			},
		),

		MetricsRefreshTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: clientSubsystem,
				Name:      "metrics_refresh_total",
				Help:      "Sustainability snapshot refreshes by source",
			},
			[]string{"source"},
		),

		BackendRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: backendSubsystem,
				Name:      "requests_total",
				Help:      "Backend HTTP requests by route and status",
			},
			[]string{"route", "status"},
		),

		BackendRequestDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: backendSubsystem,
				Name:      "request_duration_seconds",
				Help:      "Backend handler latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),

		BackendRateLimitedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: backendSubsystem,
				Name:      "rate_limited_total",
				Help:      "Backend requests rejected by the rate limiter",
			},
		),
	}
}

// =============================================================================
// Recording Helpers
// =============================================================================

// RecordAnalysis records a completed analysis.
func (m *Metrics) RecordAnalysis(mode string, duration time.Duration) {
	if m == nil {
		return
	}
	m.AnalysesTotal.WithLabelValues(mode).Inc()
	m.AnalysisDurationSeconds.WithLabelValues(mode).Observe(duration.Seconds())
}

// RecordFallback records a remote failure recovered locally.
func (m *Metrics) RecordFallback(reason string) {
	if m == nil {
		return
	}
	m.FallbacksTotal.WithLabelValues(reason).Inc()
}

// SetConnectivity records the numeric connectivity state.
func (m *Metrics) SetConnectivity(state int) {
	if m == nil {
		return
	}
	m.ConnectivityState.Set(float64(state))
}

// RecordRefresh records a sustainability snapshot refresh.
func (m *Metrics) RecordRefresh(source string) {
	if m == nil {
		return
	}
	m.MetricsRefreshTotal.WithLabelValues(source).Inc()
}

// RecordRequest records a backend HTTP request.
func (m *Metrics) RecordRequest(route, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.BackendRequestsTotal.WithLabelValues(route, status).Inc()
	m.BackendRequestDurationSeconds.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordRateLimited records a request rejected with 429.
func (m *Metrics) RecordRateLimited() {
	if m == nil {
		return
	}
	m.BackendRateLimitedTotal.Inc()
}
