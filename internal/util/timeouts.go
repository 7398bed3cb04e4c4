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

import "time"

// =============================================================================
// Constants
// =============================================================================

// Timeout floors and defaults for every remote call the client makes.
//
// The fallback path is only reachable once the remote call gives up, so a
// zero or missing timeout would let a hung backend block analysis forever.
const (
	// MinRemoteTimeout is the smallest timeout any remote call may use.
	MinRemoteTimeout = 100 * time.Millisecond

	// DefaultProbeTimeout bounds the startup liveness probe.
	DefaultProbeTimeout = 5 * time.Second

	// DefaultAnalysisTimeout bounds a single healing-analysis call.
	DefaultAnalysisTimeout = 5 * time.Second

	// DefaultMetricsTimeout bounds a single metrics refresh.
	DefaultMetricsTimeout = 5 * time.Second

	// DefaultPollInterval is the metrics refresh period.
	DefaultPollInterval = 30 * time.Second

	// MinPollInterval keeps a misconfigured poller from hammering the backend.
	MinPollInterval = 1 * time.Second
)

// =============================================================================
// TimeoutConfig
// =============================================================================

// TimeoutConfig holds the per-call timeouts of the client.
//
// # Thread Safety
//
// Safe for concurrent reads. Callers copy it by value.
//
// # Example
//
//	cfg := util.NewTimeoutConfig()
//	cfg.Analysis = 2 * time.Second
//	client := NewClient(cfg.Validated())
type TimeoutConfig struct {
	// Probe bounds the liveness check.
	Probe time.Duration

	// Analysis bounds POST /healing-analysis.
	Analysis time.Duration

	// Metrics bounds GET /api/sustainability-metrics.
	Metrics time.Duration
}

// NewTimeoutConfig returns the default timeouts.
func NewTimeoutConfig() TimeoutConfig {
	return TimeoutConfig{
		Probe:    DefaultProbeTimeout,
		Analysis: DefaultAnalysisTimeout,
		Metrics:  DefaultMetricsTimeout,
	}
}

// Validated returns a copy with zero values replaced by defaults and every
// value raised to MinRemoteTimeout.
func (c TimeoutConfig) Validated() TimeoutConfig {
	return TimeoutConfig{
		Probe:    EnforceMinTimeout(EnforceDefaultTimeout(c.Probe, DefaultProbeTimeout), MinRemoteTimeout),
		Analysis: EnforceMinTimeout(EnforceDefaultTimeout(c.Analysis, DefaultAnalysisTimeout), MinRemoteTimeout),
		Metrics:  EnforceMinTimeout(EnforceDefaultTimeout(c.Metrics, DefaultMetricsTimeout), MinRemoteTimeout),
	}
}

// =============================================================================
// Helpers
// =============================================================================

// EnforceMinTimeout returns minimum if requested is non-positive or below it.
//
// # Example
//
//	timeout := util.EnforceMinTimeout(cfg.Analysis, util.MinRemoteTimeout)
func EnforceMinTimeout(requested, minimum time.Duration) time.Duration {
	if requested <= 0 || requested < minimum {
		return minimum
	}
	return requested
}

// EnforceDefaultTimeout returns defaultVal if requested is non-positive.
func EnforceDefaultTimeout(requested, defaultVal time.Duration) time.Duration {
	if requested <= 0 {
		return defaultVal
	}
	return requested
}
