// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"time"

	"github.com/AleutianAI/resonance/internal/util"
	"github.com/AleutianAI/resonance/pkg/signature"
)

// CurrentConfigVersion is written into newly created config files.
const CurrentConfigVersion = "1"

type ResonanceConfig struct {
	// Meta: config file bookkeeping
	Meta MetaConfig `yaml:"meta"`

	// Signature: salt mixed into every fingerprint
	Signature SignatureConfig `yaml:"signature"`

	// Environment: the host identity the client resolves its backend from
	Environment EnvironmentConfig `yaml:"environment"`

	// Routing: host patterns and the base URLs they map to
	Routing RoutingConfig `yaml:"routing"`

	// Backend: endpoint paths relative to the resolved base URL
	Backend BackendConfig `yaml:"backend"`

	// Timeouts: per-call bounds on every remote request
	Timeouts TimeoutsConfig `yaml:"timeouts"`

	// Poller: sustainability metrics refresh
	Poller PollerConfig `yaml:"poller"`

	// History: bounded analysis history
	History HistoryConfig `yaml:"history"`

	// Reprobe: optional recovery from the sticky offline state
	Reprobe ReprobeConfig `yaml:"reprobe"`

	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Server: the reference healing backend run by `resonance serve`
	Server ServerConfig `yaml:"server"`
}

type MetaConfig struct {
	Version string `yaml:"version"`
}

type SignatureConfig struct {
	Salt uint32 `yaml:"salt"`

	// TenantID, when set, overrides Salt with signature.SaltFor(TenantID).
	TenantID string `yaml:"tenant_id,omitempty"`
}

// EffectiveSalt returns the salt the signature engine should use.
func (s SignatureConfig) EffectiveSalt() uint32 {
	if s.TenantID != "" {
		return signature.SaltFor(s.TenantID)
	}
	return s.Salt
}

type EnvironmentConfig struct {
	Host   string `yaml:"host" validate:"required"`            // e.g. localhost, alphapiomega.com
	Scheme string `yaml:"scheme" validate:"omitempty,oneof=http https"` // used for platform hosts
}

type RoutingConfig struct {
	ProductionHosts  []string `yaml:"production_hosts" validate:"dive,required"`
	ProductionURL    string   `yaml:"production_url" validate:"required,url"`
	PlatformSuffixes []string `yaml:"platform_suffixes" validate:"dive,required"`
	PlatformPath     string   `yaml:"platform_path" validate:"omitempty,startswith=/"`
	LocalHosts       []string `yaml:"local_hosts" validate:"dive,required"`
	LocalURL         string   `yaml:"local_url" validate:"required,url"`
}

type BackendConfig struct {
	AnalysisPath string `yaml:"analysis_path" validate:"required,startswith=/"`
	MetricsPath  string `yaml:"metrics_path" validate:"required,startswith=/"`
	ProbePath    string `yaml:"probe_path" validate:"required,startswith=/"`
}

type TimeoutsConfig struct {
	Probe    time.Duration `yaml:"probe" validate:"gte=0"`
	Analysis time.Duration `yaml:"analysis" validate:"gte=0"`
	Metrics  time.Duration `yaml:"metrics" validate:"gte=0"`
}

// Util converts the section into floor-enforced util.TimeoutConfig values.
func (t TimeoutsConfig) Util() util.TimeoutConfig {
	return util.TimeoutConfig{
		Probe:    t.Probe,
		Analysis: t.Analysis,
		Metrics:  t.Metrics,
	}.Validated()
}

type PollerConfig struct {
	Interval time.Duration `yaml:"interval" validate:"gte=1s"`
}

type HistoryConfig struct {
	Capacity int    `yaml:"capacity" validate:"gte=1,lte=100000"`
	Path     string `yaml:"path,omitempty"` // empty keeps history in memory
}

type ReprobeConfig struct {
	Initial time.Duration `yaml:"initial" validate:"gte=0"` // 0 disables re-probing
	Max     time.Duration `yaml:"max" validate:"gte=0"`
}

// Enabled reports whether the offline state may be lifted by a re-probe.
func (r ReprobeConfig) Enabled() bool {
	return r.Initial > 0
}

type LoggingConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Dir   string `yaml:"dir,omitempty"`
	JSON  bool   `yaml:"json"`
}

type TelemetryConfig struct {
	// Exporter can be "none", "stdout" or "otlp"
	Exporter string `yaml:"exporter" validate:"oneof=none stdout otlp"`
	Endpoint string `yaml:"endpoint,omitempty" validate:"required_if=Exporter otlp"`
}

type ServerConfig struct {
	Addr          string `yaml:"addr" validate:"required"`
	RatePerMinute int    `yaml:"rate_per_minute" validate:"gte=1"`
	Burst         int    `yaml:"burst" validate:"gte=1"`
	DataDir       string `yaml:"data_dir,omitempty"` // empty keeps records in memory
}

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() ResonanceConfig {
	return ResonanceConfig{
		Meta: MetaConfig{Version: CurrentConfigVersion},
		Signature: SignatureConfig{
			Salt: signature.DefaultSalt,
		},
		Environment: EnvironmentConfig{
			Host:   "localhost",
			Scheme: "https",
		},
		Routing: RoutingConfig{
			ProductionHosts:  []string{"alphapiomega.com", "www.alphapiomega.com"},
			ProductionURL:    "https://alphapiomega.com/api",
			PlatformSuffixes: []string{".azurewebsites.net"},
			PlatformPath:     "/api",
			LocalHosts:       []string{"localhost", "127.0.0.1", "::1", "0.0.0.0"},
			LocalURL:         "http://localhost:5000",
		},
		Backend: BackendConfig{
			AnalysisPath: "/healing-analysis",
			MetricsPath:  "/api/sustainability-metrics",
			ProbePath:    "/",
		},
		Timeouts: TimeoutsConfig{
			Probe:    util.DefaultProbeTimeout,
			Analysis: util.DefaultAnalysisTimeout,
			Metrics:  util.DefaultMetricsTimeout,
		},
		Poller: PollerConfig{
			Interval: util.DefaultPollInterval,
		},
		History: HistoryConfig{
			Capacity: 500,
		},
		Reprobe: ReprobeConfig{
			Max: 5 * time.Minute,
		},
		Logging: LoggingConfig{
			Level: "info",
			Dir:   "~/.resonance/logs",
		},
		Telemetry: TelemetryConfig{
			Exporter: "none",
		},
		Server: ServerConfig{
			Addr:          ":5000",
			RatePerMinute: 60,
			Burst:         10,
		},
	}
}
