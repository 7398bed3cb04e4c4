// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package middleware provides gin middleware for the healing backend.
//
// # Request Flow
//
//	Request
//	   │
//	   ▼
//	otelgin.Middleware ──► span per request
//	   │
//	   ▼
//	RequestMetrics ──► resonance_backend_requests_total{route,status}
//	   │
//	   ▼
//	RateLimit ──[bucket empty]──► 429
//	   │
//	   ▼
//	Handler
package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/AleutianAI/resonance/internal/observability"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// =============================================================================
// Rate Limiter
// =============================================================================

const (
	// DefaultRatePerMinute is the sustained per-client request rate.
	DefaultRatePerMinute = 60

	// DefaultBurst is the per-client burst allowance.
	DefaultBurst = 10

	// pruneThreshold is the client count above which idle clients are dropped.
	pruneThreshold = 1024

	// idleAfter is how long a client must be quiet before it is pruned.
	idleAfter = 10 * time.Minute
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ClientLimiter keeps one token bucket per client key.
//
// # Thread Safety
//
// Safe for concurrent use.
type ClientLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter
	limit   rate.Limit
	burst   int
	now     func() time.Time
}

// NewClientLimiter creates a limiter allowing perMinute requests per minute
// with the given burst. Non-positive values use the defaults.
func NewClientLimiter(perMinute, burst int) *ClientLimiter {
	if perMinute <= 0 {
		perMinute = DefaultRatePerMinute
	}
	if burst <= 0 {
		burst = DefaultBurst
	}
	return &ClientLimiter{
		clients: make(map[string]*clientLimiter),
		limit:   rate.Every(time.Minute / time.Duration(perMinute)),
		burst:   burst,
		now:     time.Now,
	}
}

// Allow reports whether key may make a request now.
func (l *ClientLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	c, ok := l.clients[key]
	if !ok {
		if len(l.clients) >= pruneThreshold {
			l.pruneLocked(now)
		}
		c = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

// Clients returns the number of tracked clients.
func (l *ClientLimiter) Clients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

func (l *ClientLimiter) pruneLocked(now time.Time) {
	for key, c := range l.clients {
		if now.Sub(c.lastSeen) > idleAfter {
			delete(l.clients, key)
		}
	}
}

// RateLimit rejects requests from clients that exhausted their bucket.
//
// # Description
//
// Clients are keyed by gin's ClientIP. Rejected requests get 429 with a
// Retry-After hint and are counted in metrics.
//
// # Inputs
//
//   - limiter: Per-client buckets. Must not be nil.
//   - metrics: May be nil.
func RateLimit(limiter *ClientLimiter, metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			metrics.RecordRateLimited()
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
