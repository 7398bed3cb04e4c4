// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package backend is the reference healing-analysis server.
//
// # Description
//
// Serves the endpoints the analysis client and the sustainability poller
// consume, computing analyses with the same signature engine the client
// uses for its local fallback. Records are persisted in BadgerDB.
//
// # Endpoints
//
//	GET  /                              service info, liveness
//	POST /healing-analysis              analysis
//	GET  /api/sustainability-metrics    aggregate impact
//	GET  /api/records                   newest records
//	GET  /metrics                       Prometheus
package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/AleutianAI/resonance/internal/observability"
	"github.com/AleutianAI/resonance/pkg/logging"
	"github.com/AleutianAI/resonance/pkg/signature"
	"github.com/AleutianAI/resonance/pkg/storage/badger"
	"github.com/AleutianAI/resonance/services/backend/store"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// shutdownTimeout bounds graceful shutdown.
const shutdownTimeout = 5 * time.Second

// =============================================================================
// Configuration
// =============================================================================

// Config configures a Server.
type Config struct {
	// Addr is the listen address. Default: ":5000".
	Addr string

	// Salt is the signature salt. Must match the clients' salt for local
	// and remote results to agree.
	Salt uint32

	// RatePerMinute and Burst configure per-client rate limiting.
	// Defaults: 60 and 10.
	RatePerMinute int
	Burst         int

	// DataDir holds the record database. Empty keeps records in memory.
	DataDir string

	// ServiceName labels spans. Default: "resonance-backend".
	ServiceName string
}

// =============================================================================
// Server
// =============================================================================

// Server owns the router, the record database and the metrics registry.
//
// # Thread Safety
//
// Run may be called once. Router is safe for concurrent use.
type Server struct {
	config   Config
	router   *gin.Engine
	db       *badger.DB
	records  *store.RecordStore
	registry *prometheus.Registry
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// New opens the record database and builds the router.
//
// # Inputs
//
//   - cfg: Server configuration.
//   - logger: May be nil.
//
// # Outputs
//
//   - *Server: Ready to Run. Close releases the database.
//   - error: Non-nil if the database cannot be opened.
//
// # Example
//
//	srv, err := backend.New(backend.Config{Addr: ":5000", Salt: 19}, logger.Slog())
//	if err != nil {
//	    return err
//	}
//	defer srv.Close()
//	return srv.Run(ctx)
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	if cfg.Addr == "" {
		cfg.Addr = ":5000"
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "resonance-backend"
	}
	if logger == nil {
		logger = logging.Discard()
	}
	logger = logger.With("component", "backend")

	var (
		db  *badger.DB
		err error
	)
	if cfg.DataDir == "" {
		db, err = badger.OpenInMemory()
	} else {
		db, err = badger.OpenPath(cfg.DataDir, logger)
	}
	if err != nil {
		return nil, fmt.Errorf("open record database: %w", err)
	}

	records, err := store.NewRecordStore(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s := &Server{
		config:   cfg,
		db:       db,
		records:  records,
		registry: registry,
		metrics:  observability.NewMetrics(registry),
		logger:   logger,
	}
	s.router = SetupRouter(RouterDeps{
		ServiceName:   cfg.ServiceName,
		Engine:        signature.NewEngine(cfg.Salt),
		Records:       records,
		Registry:      registry,
		Metrics:       s.metrics,
		Logger:        logger,
		RatePerMinute: cfg.RatePerMinute,
		Burst:         cfg.Burst,
	})
	return s, nil
}

// Router returns the gin engine for testing.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Metrics returns the server's metrics.
func (s *Server) Metrics() *observability.Metrics {
	return s.metrics
}

// Run listens on the configured address and serves until ctx ends.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.config.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx ends, then shuts down gracefully.
//
// # Outputs
//
//   - error: nil after a clean shutdown
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpSrv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("healing backend listening", "addr", ln.Addr().String())
		errCh <- httpSrv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("healing backend shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// Close releases the record store and database.
func (s *Server) Close() error {
	return errors.Join(s.records.Close(), s.db.Close())
}
