// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/AleutianAI/resonance/internal/analysis"
	"github.com/AleutianAI/resonance/internal/config"
	"github.com/AleutianAI/resonance/internal/connectivity"
	"github.com/AleutianAI/resonance/internal/environment"
	"github.com/AleutianAI/resonance/internal/observability"
	"github.com/AleutianAI/resonance/internal/sustainability"
	"github.com/AleutianAI/resonance/internal/util"
	"github.com/AleutianAI/resonance/pkg/logging"
	"github.com/AleutianAI/resonance/pkg/signature"
	"github.com/AleutianAI/resonance/pkg/storage/badger"
	"github.com/AleutianAI/resonance/pkg/ux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

const (
	cliServiceName     = "resonance"
	backendServiceName = "resonance-backend"

	tracerShutdownTimeout = 5 * time.Second
)

// =============================================================================
// Application Bootstrap
// =============================================================================

// app holds everything a command needs after the config is loaded.
//
// Each command builds its own app in RunE and closes it before returning.
type app struct {
	cfg     *config.ResonanceConfig
	logger  *logging.Logger
	printer *ux.Printer
	metrics *observability.Metrics

	shutdownTracer observability.ShutdownFunc
}

// newApp loads the config and sets up logging, output and tracing.
//
// # Inputs
//
//   - cmd: The running command. Its writers receive all output.
//   - service: Logged as "service" and recorded as service.name on spans.
//   - console: Log to stderr even without --verbose. File logging follows
//     logging.dir either way.
//
// # Outputs
//
//   - *app: Call Close when the command finishes.
//   - error: Config load or validation failures, or an unusable exporter.
func newApp(cmd *cobra.Command, service string, console bool) (*app, error) {
	cfg, err := config.Load(configPath, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	if hostOverride != "" {
		cfg.Environment.Host = hostOverride
	}

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}
	if verbose {
		level = logging.LevelDebug
	}
	logger := logging.New(logging.Config{
		Level:   level,
		LogDir:  cfg.Logging.Dir,
		Service: service,
		JSON:    cfg.Logging.JSON,
		Quiet:   !console && !verbose,
		Output:  cmd.ErrOrStderr(),
	})

	shutdown, err := observability.InitTracer(commandContext(cmd), observability.TracerConfig{
		Exporter:    cfg.Telemetry.Exporter,
		Endpoint:    cfg.Telemetry.Endpoint,
		ServiceName: service,
		Writer:      cmd.ErrOrStderr(),
	})
	if err != nil {
		_ = logger.Close()
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	return &app{
		cfg:            cfg,
		logger:         logger,
		printer:        ux.NewPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), detectPersonality(cmd.OutOrStdout())),
		metrics:        observability.NewMetrics(prometheus.NewRegistry()),
		shutdownTracer: shutdown,
	}, nil
}

// Close flushes spans and closes the log file.
func (a *app) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), tracerShutdownTimeout)
	defer cancel()
	return errors.Join(a.shutdownTracer(ctx), a.logger.Close())
}

// engine returns the signature engine for the configured salt.
func (a *app) engine() signature.Engine {
	return signature.NewEngine(a.cfg.Signature.EffectiveSalt())
}

// resolve maps the configured host identity to a backend base URL.
func (a *app) resolve() (string, environment.Route) {
	return environment.NewResolver(a.cfg.Routing).Resolve(a.cfg.Environment.Host, a.cfg.Environment.Scheme)
}

// newPoller builds a metrics poller against the resolved backend.
func (a *app) newPoller(opts ...sustainability.Option) *sustainability.Poller {
	baseURL, _ := a.resolve()
	opts = append([]sustainability.Option{
		sustainability.WithLogger(a.logger.Slog()),
		sustainability.WithMetrics(a.metrics),
	}, opts...)
	return sustainability.NewPoller(newHTTPClient(), sustainability.PollerConfig{
		BaseURL:  baseURL,
		Path:     a.cfg.Backend.MetricsPath,
		Timeout:  a.cfg.Timeouts.Util().Metrics,
		Interval: a.cfg.Poller.Interval,
	}, opts...)
}

// =============================================================================
// Client Runtime
// =============================================================================

// clientRuntime is the wired analysis client: tracker, prober, orchestrator
// and history.
type clientRuntime struct {
	baseURL      string
	route        environment.Route
	tracker      *connectivity.Tracker
	prober       *connectivity.Prober
	pending      *connectivity.Pending
	orchestrator *analysis.Orchestrator
	history      analysis.History

	closers []func() error
}

// startClient resolves the backend, starts the initial probe and builds the
// orchestrator.
//
// # Description
//
// With remote false no probe is started and no client is attached, so every
// analysis runs locally. Extra options are applied after the defaults.
//
// # Outputs
//
//   - *clientRuntime: Call Close to release the history database.
//   - error: Non-nil only if a persistent history cannot be opened.
func (a *app) startClient(ctx context.Context, remote bool, opts ...analysis.Option) (*clientRuntime, error) {
	baseURL, route := a.resolve()
	timeouts := a.cfg.Timeouts.Util()
	logger := a.logger.Slog()

	rt := &clientRuntime{baseURL: baseURL, route: route}

	history, closeHistory, err := a.openHistory()
	if err != nil {
		return nil, err
	}
	rt.history = history
	rt.closers = append(rt.closers, closeHistory)

	rt.tracker = connectivity.NewTracker(connectivity.WithOnChange(func(from, to connectivity.State) {
		a.metrics.SetConnectivity(int(to))
		logger.Debug("connectivity changed", "from", from.String(), "to", to.String())
	}))

	base := []analysis.Option{
		analysis.WithTracker(rt.tracker),
		analysis.WithHistory(history),
		analysis.WithMetrics(a.metrics),
		analysis.WithLogger(logger),
	}

	if remote {
		httpClient := newHTTPClient()
		rt.prober = connectivity.NewProber(httpClient, connectivity.ProberConfig{
			Path:    a.cfg.Backend.ProbePath,
			Timeout: timeouts.Probe,
		}, logger)
		rt.pending = rt.prober.Start(ctx, baseURL, rt.tracker)

		base = append(base,
			analysis.WithClient(analysis.NewClient(httpClient, analysis.ClientConfig{
				BaseURL:      baseURL,
				AnalysisPath: a.cfg.Backend.AnalysisPath,
				Timeout:      timeouts.Analysis,
			})),
			analysis.WithPending(rt.pending),
		)
		if a.cfg.Reprobe.Enabled() {
			base = append(base, analysis.WithReprober(connectivity.NewReprober(
				rt.prober, rt.tracker, baseURL, a.cfg.Reprobe.Initial, a.cfg.Reprobe.Max)))
		}
	} else {
		rt.tracker.Set(connectivity.Offline)
	}

	rt.orchestrator = analysis.NewOrchestrator(a.engine(), append(base, opts...)...)
	logger.Debug("client started", "base_url", baseURL, "route", route.String(), "remote", remote)
	return rt, nil
}

// Close releases the history.
func (rt *clientRuntime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		errs = append(errs, rt.closers[i]())
	}
	return errors.Join(errs...)
}

// openHistory returns a badger-backed history when history.path is set and
// an in-memory ring otherwise.
func (a *app) openHistory() (analysis.History, func() error, error) {
	capacity := a.cfg.History.Capacity
	if a.cfg.History.Path == "" {
		return analysis.NewRingHistory(capacity), func() error { return nil }, nil
	}

	db, err := badger.OpenPath(util.ExpandHome(a.cfg.History.Path), a.logger.Slog())
	if err != nil {
		return nil, nil, fmt.Errorf("open history database: %w", err)
	}
	history, err := analysis.NewBadgerHistory(db, capacity)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return history, func() error {
		return errors.Join(history.Close(), db.Close())
	}, nil
}

// =============================================================================
// Helper Functions
// =============================================================================

// newHTTPClient returns the client shared by the prober, the analysis client
// and the poller. Every call carries its own context deadline, so the client
// itself has no timeout.
func newHTTPClient() *http.Client {
	return &http.Client{}
}

// detectPersonality picks the output style for w. Anything other than an
// *os.File is treated as a pipe.
func detectPersonality(w io.Writer) ux.PersonalityLevel {
	f, _ := w.(*os.File)
	return ux.DetectPersonality(personalityLevel, f)
}

// commandContext returns cmd's context, or Background when run without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// readInputText returns the text to analyze.
//
// # Description
//
// --text wins, then the arguments joined by single spaces. No arguments, or
// the single argument "-", reads all of stdin. One trailing newline is
// trimmed from stdin so `echo hello | resonance analyze` matches
// `resonance analyze hello`. The text is otherwise passed through unchanged,
// so whitespace is part of the signature.
func readInputText(cmd *cobra.Command, flagText string, args []string) (string, error) {
	if flagText != "" {
		return flagText, nil
	}
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return strings.Join(args, " "), nil
	}

	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	text := strings.TrimSuffix(string(data), "\n")
	return strings.TrimSuffix(text, "\r"), nil
}
