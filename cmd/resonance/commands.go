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
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	configPath       string
	hostOverride     string
	personalityLevel string // UX personality level (full/minimal/machine)
	verbose          bool

	analyzeText      string
	analyzeIntention string
	analyzeJSON      bool
	analyzeLocal     bool

	signatureSalt   uint32
	signatureTenant string
	signatureJSON   bool

	metricsWatch bool
	metricsJSON  bool

	historyLimit int
	historyJSON  bool

	serveAddr string

	rootCmd = &cobra.Command{
		Use:   "resonance",
		Short: "Deterministic text resonance analysis with offline fallback",
		Long: `Resonance fingerprints text into a stable signature and derives its
healing frequency, resonance and grade. Analyses go to the healing backend
when it is reachable and are computed locally, with identical results,
when it is not.`,
		SilenceUsage: true,
	}

	// --- Analysis ---
	analyzeCmd = &cobra.Command{
		Use:   "analyze [text...]",
		Short: "Analyze text, remotely when the backend is reachable",
		Long: `Analyze text through the healing backend, falling back to the local
engine when the backend is unreachable. Text comes from the arguments,
--text, or stdin when neither is given (or the single argument is "-").`,
		Aliases: []string{"a"},
		RunE:    runAnalyzeCommand, // Defined in cmd_analyze.go
	}
	signatureCmd = &cobra.Command{
		Use:   "signature [text...]",
		Short: "Compute the signature and derived metrics locally",
		RunE:  runSignatureCommand, // Defined in cmd_signature.go
	}
	historyCmd = &cobra.Command{
		Use:   "history",
		Short: "Show the bounded analysis history",
		Args:  cobra.NoArgs,
		RunE:  runHistoryCommand, // Defined in cmd_history.go
	}

	// --- Connectivity ---
	resolveCmd = &cobra.Command{
		Use:   "resolve",
		Short: "Show the backend URL resolved for the configured host",
		Args:  cobra.NoArgs,
		RunE:  runResolveCommand, // Defined in cmd_probe.go
	}
	probeCmd = &cobra.Command{
		Use:   "probe",
		Short: "Probe the backend once and report the connectivity state",
		Args:  cobra.NoArgs,
		RunE:  runProbeCommand, // Defined in cmd_probe.go
	}
	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Report route, connectivity, metrics and history at once",
		Args:  cobra.NoArgs,
		RunE:  runStatusCommand, // Defined in cmd_probe.go
	}

	// --- Sustainability Metrics ---
	metricsCmd = &cobra.Command{
		Use:   "metrics",
		Short: "Fetch the sustainability metrics snapshot",
		Long: `Fetch the sustainability metrics snapshot from the backend. A failed
fetch reports the all-zero default snapshot. With --watch the snapshot
is refreshed every poller.interval until interrupted.`,
		Args: cobra.NoArgs,
		RunE: runMetricsCommand, // Defined in cmd_metrics.go
	}

	// --- Backend ---
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the reference healing backend",
		Args:  cobra.NoArgs,
		RunE:  runServeCommand, // Defined in cmd_serve.go
	}

	// --- Configuration ---
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Inspect and create the resonance configuration",
	}
	configShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE:  runConfigShow, // Defined in cmd_config.go
	}
	configInitCmd = &cobra.Command{
		Use:   "init [path]",
		Short: "Write the default configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runConfigInit, // Defined in cmd_config.go
	}
	configPathCmd = &cobra.Command{
		Use:   "path",
		Short: "Print the default configuration path",
		Args:  cobra.NoArgs,
		RunE:  runConfigPath, // Defined in cmd_config.go
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Config file (default ~/.resonance/resonance.yaml, created on first run)")
	rootCmd.PersistentFlags().StringVar(&hostOverride, "host", "",
		"Host identity used to resolve the backend, overrides environment.host")
	rootCmd.PersistentFlags().StringVar(&personalityLevel, "output", "",
		"Output style: full, minimal or machine (default: detect)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Log to stderr at debug level")

	analyzeCmd.Flags().StringVarP(&analyzeText, "text", "t", "", "Text to analyze")
	analyzeCmd.Flags().StringVarP(&analyzeIntention, "intention", "i", "healing",
		"Intention: healing, love, peace, wisdom or unity")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Print the result as JSON")
	analyzeCmd.Flags().BoolVar(&analyzeLocal, "local", false, "Skip the backend and analyze locally")
	rootCmd.AddCommand(analyzeCmd)

	signatureCmd.Flags().Uint32Var(&signatureSalt, "salt", 0,
		"Salt to use (default: signature.salt from the config)")
	signatureCmd.Flags().StringVar(&signatureTenant, "tenant", "",
		"Derive the salt from a tenant ID")
	signatureCmd.Flags().BoolVar(&signatureJSON, "json", false, "Print the metrics as JSON")
	rootCmd.AddCommand(signatureCmd)

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Show at most this many entries, newest first (0 for all)")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Print the entries as JSON")
	rootCmd.AddCommand(historyCmd)

	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(statusCmd)

	metricsCmd.Flags().BoolVarP(&metricsWatch, "watch", "w", false, "Refresh until interrupted")
	metricsCmd.Flags().BoolVar(&metricsJSON, "json", false, "Print snapshots as JSON")
	rootCmd.AddCommand(metricsCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default: server.addr from the config)")
	rootCmd.AddCommand(serveCmd)

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}
