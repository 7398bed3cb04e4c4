// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package backend

import (
	"log/slog"

	"github.com/AleutianAI/resonance/internal/observability"
	"github.com/AleutianAI/resonance/pkg/signature"
	"github.com/AleutianAI/resonance/services/backend/handlers"
	"github.com/AleutianAI/resonance/services/backend/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Route paths served by the backend.
const (
	PathInfo           = "/"
	PathAnalysis       = "/healing-analysis"
	PathSustainability = "/api/sustainability-metrics"
	PathRecords        = "/api/records"
	PathMetrics        = "/metrics"
)

// RouterDeps carries everything SetupRouter wires together.
type RouterDeps struct {
	ServiceName   string
	Engine        signature.Engine
	Records       handlers.Recorder
	Registry      *prometheus.Registry
	Metrics       *observability.Metrics
	Logger        *slog.Logger
	RatePerMinute int
	Burst         int
}

// SetupRouter builds the gin engine with middleware and routes.
//
// /metrics is not rate limited.
func SetupRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		otelgin.Middleware(deps.ServiceName),
		middleware.RequestMetrics(deps.Metrics),
		middleware.RequestLogger(deps.Logger),
	)

	router.GET(PathMetrics, gin.WrapH(promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})))

	limited := router.Group("")
	limited.Use(middleware.RateLimit(middleware.NewClientLimiter(deps.RatePerMinute, deps.Burst), deps.Metrics))
	{
		limited.GET(PathInfo, handlers.HandleInfo([]string{PathAnalysis, PathSustainability, PathRecords, PathMetrics}))
		limited.POST(PathAnalysis, handlers.HandleHealingAnalysis(deps.Engine, deps.Records, deps.Logger))
		limited.GET(PathSustainability, handlers.HandleSustainabilityMetrics(deps.Records, deps.Logger))
		limited.GET(PathRecords, handlers.HandleRecentRecords(deps.Records, deps.Logger))
	}
	return router
}
