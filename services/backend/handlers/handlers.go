// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers implements the healing backend's HTTP endpoints.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/AleutianAI/resonance/internal/analysis"
	"github.com/AleutianAI/resonance/internal/sustainability"
	"github.com/AleutianAI/resonance/pkg/signature"
	"github.com/AleutianAI/resonance/services/backend/store"
	"github.com/gin-gonic/gin"
)

// ServiceName and ServiceVersion are reported by the info endpoint.
const (
	ServiceName    = "Resonance Healing Analysis API"
	ServiceVersion = "1.0.0"
)

// Recorder stores served analyses and counts them.
type Recorder interface {
	Add(ctx context.Context, m signature.Metrics, intention string, textLen int) (store.Record, error)
	Count(ctx context.Context) (int64, error)
	Recent(ctx context.Context, limit int) ([]store.Record, error)
}

// InfoResponse is the body of GET /.
type InfoResponse struct {
	Service   string   `json:"service"`
	Version   string   `json:"version"`
	Status    string   `json:"status"`
	Endpoints []string `json:"endpoints"`
}

// HandleInfo serves the liveness and service description endpoint.
//
// # Inputs
//
//   - endpoints: Paths listed in the response.
func HandleInfo(endpoints []string) gin.HandlerFunc {
	body := InfoResponse{
		Service:   ServiceName,
		Version:   ServiceVersion,
		Status:    "operational",
		Endpoints: endpoints,
	}
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, body)
	}
}

// HandleHealingAnalysis computes and records one analysis.
//
// # Description
//
// Binds {text, intention}. Empty text or an unknown intention yields 400.
// The intention defaults to healing. The analysis is recorded before the
// response is written; a recording failure yields 500.
//
// # Inputs
//
//   - engine: Signature engine under the server salt.
//   - records: Persistent record store.
//   - logger: Request-independent logger.
//
// # Outputs
//
//   - gin.HandlerFunc: Replies with analysis.RemoteResponse on success.
func HandleHealingAnalysis(engine signature.Engine, records Recorder, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req analysis.RemoteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
			return
		}
		// Whitespace is content: only the empty string is rejected.
		if req.Text == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
			return
		}

		intention, err := analysis.ParseIntention(req.Intention)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		metrics := engine.Analyze(req.Text)
		rec, err := records.Add(c.Request.Context(), metrics, string(intention), len(req.Text))
		if err != nil {
			logger.Error("record analysis failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "analysis could not be recorded"})
			return
		}

		logger.Debug("analysis served",
			"record_id", rec.ID,
			"intention", intention,
			"grade", metrics.Grade,
		)

		c.JSON(http.StatusOK, analysis.RemoteResponse{
			HealingAnalysis:      analysis.NewRemoteAnalysis(metrics, intention),
			SustainabilityImpact: analysis.DefaultSustainabilityImpact(),
			AnalysisMode:         analysis.AnalysisModeOnline,
		})
	}
}

// HandleSustainabilityMetrics reports aggregate impact derived from the
// number of recorded analyses.
func HandleSustainabilityMetrics(records Recorder, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		n, err := records.Count(c.Request.Context())
		if err != nil {
			logger.Error("count records failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "metrics unavailable"})
			return
		}
		snap := sustainability.FromCount(n)
		snap.FetchedAt = time.Now().UTC()
		c.JSON(http.StatusOK, snap)
	}
}

// defaultRecentLimit and maxRecentLimit bound GET /api/records.
const (
	defaultRecentLimit = 20
	maxRecentLimit     = 500
)

// HandleRecentRecords lists the newest records. The optional "limit" query
// parameter is clamped to [1, 500].
func HandleRecentRecords(records Recorder, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := defaultRecentLimit
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
				return
			}
			limit = min(n, maxRecentLimit)
		}

		recs, err := records.Recent(c.Request.Context(), limit)
		if err != nil {
			logger.Error("list records failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "records unavailable"})
			return
		}
		if recs == nil {
			recs = []store.Record{}
		}
		c.JSON(http.StatusOK, gin.H{"records": recs, "count": len(recs)})
	}
}
