// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package analysis

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is returned for requests that cannot be analyzed.
// It is never retried and never triggers a network call.
var ErrInvalidInput = errors.New("invalid analysis input")

// FallbackReason classifies a remote failure.
type FallbackReason string

const (
	ReasonTransport   FallbackReason = "transport"    // dial, timeout, reset
	ReasonStatus      FallbackReason = "status"       // non-200
	ReasonDecode      FallbackReason = "decode"       // not JSON
	ReasonInvalidBody FallbackReason = "invalid_body" // JSON out of range or incomplete
)

// TransportError describes a failed remote analysis call.
//
// The orchestrator recovers from every TransportError by computing the
// result locally; callers of Analyze never see one. It reaches the
// OnFallback hook and the logs.
type TransportError struct {
	// Op is the request that failed, e.g. "POST /healing-analysis".
	Op string

	// StatusCode is the HTTP status, or 0 if no response arrived.
	StatusCode int

	// Reason classifies the failure for metrics.
	Reason FallbackReason

	// Err is the underlying error.
	Err error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (status %d): %v", e.Op, e.Reason, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Reason, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
