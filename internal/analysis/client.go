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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/AleutianAI/resonance/internal/connectivity"
	"github.com/AleutianAI/resonance/internal/util"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// maxResponseBytes caps how much of a backend body is read.
const maxResponseBytes = 1 << 20

// ClientConfig configures a Client.
type ClientConfig struct {
	// BaseURL is the resolved backend base, e.g. "http://localhost:5000".
	BaseURL string

	// AnalysisPath is appended to BaseURL. Default: "/healing-analysis".
	AnalysisPath string

	// Timeout bounds one call. Raised to util.MinRemoteTimeout.
	// Default: util.DefaultAnalysisTimeout.
	Timeout time.Duration
}

// Client calls the remote analysis endpoint.
//
// # Thread Safety
//
// Safe for concurrent use.
type Client struct {
	http    connectivity.HTTPClient
	url     string
	op      string
	timeout time.Duration
}

// NewClient creates a Client. A nil httpClient uses http.DefaultClient.
func NewClient(httpClient connectivity.HTTPClient, cfg ClientConfig) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	path := cfg.AnalysisPath
	if path == "" {
		path = "/healing-analysis"
	}
	return &Client{
		http:    httpClient,
		url:     connectivity.JoinURL(cfg.BaseURL, path),
		op:      "POST " + path,
		timeout: util.EnforceMinTimeout(util.EnforceDefaultTimeout(cfg.Timeout, util.DefaultAnalysisTimeout), util.MinRemoteTimeout),
	}
}

// URL returns the full analysis endpoint.
func (c *Client) URL() string {
	return c.url
}

// Analyze posts req and returns the validated healing analysis.
//
// # Description
//
// Makes exactly one attempt under the client timeout. Trace context from
// ctx is propagated in the request headers.
//
// # Outputs
//
//   - *RemoteAnalysis: Validated body, ranges already checked
//   - error: Always a *TransportError on failure
func (c *Client) Analyze(ctx context.Context, req Request) (*RemoteAnalysis, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := json.Marshal(RemoteRequest{Text: req.Text, Intention: string(req.Intention)})
	if err != nil {
		return nil, c.fail(0, ReasonTransport, fmt.Errorf("encode request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, c.fail(0, ReasonTransport, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	resp, err := c.http.Do(httpReq)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return nil, c.fail(0, ReasonTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, c.fail(resp.StatusCode, ReasonTransport, fmt.Errorf("read body: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.fail(resp.StatusCode, ReasonStatus, fmt.Errorf("unexpected status %s", http.StatusText(resp.StatusCode)))
	}

	var decoded RemoteResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, c.fail(resp.StatusCode, ReasonDecode, err)
	}
	if err := ValidateResponse(&decoded); err != nil {
		return nil, c.fail(resp.StatusCode, ReasonInvalidBody, err)
	}

	return decoded.HealingAnalysis, nil
}

func (c *Client) fail(status int, reason FallbackReason, err error) *TransportError {
	return &TransportError{Op: c.op, StatusCode: status, Reason: reason, Err: err}
}
