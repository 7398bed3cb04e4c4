// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/AleutianAI/resonance/internal/analysis"
	"github.com/AleutianAI/resonance/internal/config"
	"github.com/AleutianAI/resonance/pkg/signature"
	"github.com/AleutianAI/resonance/pkg/ux"
	"github.com/AleutianAI/resonance/services/backend"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test Setup
// =============================================================================

func init() {
	gin.SetMode(gin.TestMode)
}

// resetFlags restores every flag to its default and clears every command's
// context so runs don't leak into each other. Cobra only hands the parent
// context to a subcommand whose own context is nil.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	//nolint:staticcheck // a nil context is how cobra marks "inherit from parent"
	c.SetContext(nil)
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// runCLI executes the root command with args and returns stdout and stderr.
func runCLI(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var stdout, stderr bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)

	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

// writeConfig writes a config whose local route points at localURL and
// returns its path.
func writeConfig(t *testing.T, localURL string, mutate ...func(*config.ResonanceConfig)) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv(ux.PersonalityEnv, "")

	cfg := config.DefaultConfig()
	cfg.Logging.Dir = ""
	cfg.Routing.LocalURL = localURL
	for _, m := range mutate {
		m(&cfg)
	}

	path := filepath.Join(t.TempDir(), "resonance.yaml")
	require.NoError(t, config.Write(path, cfg))
	return path
}

// startBackend serves the reference backend on an httptest server.
func startBackend(t *testing.T) string {
	t.Helper()
	srv, err := backend.New(backend.Config{Salt: signature.DefaultSalt, RatePerMinute: 600, Burst: 100}, nil)
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(func() {
		ts.Close()
		_ = srv.Close()
	})
	return ts.URL
}

// deadBackend returns the URL of a server that has already shut down.
func deadBackend(t *testing.T) string {
	t.Helper()
	ts := httptest.NewServer(nil)
	url := ts.URL
	ts.Close()
	return url
}

func decodeResult(t *testing.T, stdout string) analysis.Result {
	t.Helper()
	var r analysis.Result
	require.NoError(t, json.Unmarshal([]byte(stdout), &r), "stdout: %s", stdout)
	return r
}

// =============================================================================
// signature
// =============================================================================

func TestSignatureCommand_WorkedExample(t *testing.T) {
	cfgPath := writeConfig(t, "http://localhost:5000")

	stdout, _, err := runCLI(t, "", "signature", "--config", cfgPath, "")
	require.NoError(t, err)

	for _, want := range []string{
		"salt=19\n",
		"signature=2166136280\n",
		"consciousness=0.80\n",
		"frequency=480 Hz\n",
		"resonance=800\n",
		"regenerative_score=0.640\n",
		"grade=A\n",
	} {
		assert.Contains(t, stdout, want)
	}
}

func TestSignatureCommand_SaltSources(t *testing.T) {
	cfgPath := writeConfig(t, "http://localhost:5000", func(c *config.ResonanceConfig) {
		c.Signature.Salt = 3
	})

	tests := []struct {
		name string
		args []string
		salt uint32
	}{
		{"config", nil, 3},
		{"flag", []string{"--salt", "7"}, 7},
		{"zero flag", []string{"--salt", "0"}, 0},
		{"tenant", []string{"--tenant", "acme"}, signature.SaltFor("acme")},
		{"tenant beats salt", []string{"--salt", "7", "--tenant", "acme"}, signature.SaltFor("acme")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"signature", "--config", cfgPath, "--json"}, tt.args...)
			args = append(args, "hello")

			stdout, _, err := runCLI(t, "", args...)
			require.NoError(t, err)

			var got struct {
				Salt      uint32 `json:"salt"`
				Signature uint32 `json:"signature"`
			}
			require.NoError(t, json.Unmarshal([]byte(stdout), &got))
			assert.Equal(t, tt.salt, got.Salt)
			assert.Equal(t, signature.Compute("hello", tt.salt), got.Signature)
		})
	}
}

// =============================================================================
// analyze
// =============================================================================

func TestAnalyzeCommand_Remote(t *testing.T) {
	cfgPath := writeConfig(t, startBackend(t))

	stdout, stderr, err := runCLI(t, "", "analyze", "--config", cfgPath, "--json", "hello")
	require.NoError(t, err)

	r := decodeResult(t, stdout)
	assert.Equal(t, analysis.ModeRemote, r.Mode)
	assert.Equal(t, analysis.IntentionHealing, r.Intention)
	assert.Equal(t, float64(553), r.FrequencyHz)
	assert.Equal(t, signature.GradeAPlus, r.Grade)
	assert.Empty(t, stderr)
}

func TestAnalyzeCommand_FallbackMatchesRemote(t *testing.T) {
	up := writeConfig(t, startBackend(t))
	down := writeConfig(t, deadBackend(t))

	remoteOut, _, err := runCLI(t, "", "analyze", "--config", up, "--json", "-i", "wisdom", "The light heals")
	require.NoError(t, err)
	localOut, stderr, err := runCLI(t, "", "analyze", "--config", down, "--json", "-i", "wisdom", "The light heals")
	require.NoError(t, err)

	remote, local := decodeResult(t, remoteOut), decodeResult(t, localOut)
	assert.Equal(t, analysis.ModeRemote, remote.Mode)
	assert.Equal(t, analysis.ModeLocal, local.Mode)
	assert.Contains(t, stderr, "WARN Offline mode")

	local.Mode, local.ID, local.CreatedAt = remote.Mode, remote.ID, remote.CreatedAt
	assert.Equal(t, remote, local)
}

func TestAnalyzeCommand_LocalFlag(t *testing.T) {
	cfgPath := writeConfig(t, deadBackend(t))

	stdout, stderr, err := runCLI(t, "", "analyze", "--config", cfgPath, "--local", "hello")
	require.NoError(t, err)
	assert.Contains(t, stdout, "mode=local\n")
	assert.Contains(t, stdout, "frequency=553 Hz\n")
	assert.NotContains(t, stderr, "Offline mode")
}

func TestAnalyzeCommand_Stdin(t *testing.T) {
	cfgPath := writeConfig(t, deadBackend(t))

	stdout, _, err := runCLI(t, "hello\n", "analyze", "--config", cfgPath, "--local", "--json")
	require.NoError(t, err)
	assert.Equal(t, float64(553), decodeResult(t, stdout).FrequencyHz)
}

func TestAnalyzeCommand_InvalidInput(t *testing.T) {
	cfgPath := writeConfig(t, deadBackend(t))

	tests := []struct {
		name  string
		stdin string
		args  []string
	}{
		{"empty stdin", "", nil},
		{"empty dash", "", []string{"-"}},
		{"unknown intention", "", []string{"-i", "domination", "hello"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"analyze", "--config", cfgPath, "--local"}, tt.args...)
			_, _, err := runCLI(t, tt.stdin, args...)
			require.Error(t, err)
			assert.ErrorIs(t, err, analysis.ErrInvalidInput)
		})
	}
}

// =============================================================================
// history
// =============================================================================

func TestHistoryCommand_Persistent(t *testing.T) {
	historyDir := filepath.Join(t.TempDir(), "history")
	cfgPath := writeConfig(t, deadBackend(t), func(c *config.ResonanceConfig) {
		c.History.Path = historyDir
		c.History.Capacity = 2
	})

	for _, text := range []string{"one", "two", "three"} {
		_, _, err := runCLI(t, "", "analyze", "--config", cfgPath, "--local", text)
		require.NoError(t, err)
	}

	stdout, _, err := runCLI(t, "", "history", "--config", cfgPath, "--json", "--limit", "0")
	require.NoError(t, err)

	var entries []analysis.Result
	require.NoError(t, json.Unmarshal([]byte(stdout), &entries))
	require.Len(t, entries, 2, "capacity bounds the history")

	want := signature.NewEngine(signature.DefaultSalt)
	assert.Equal(t, want.Analyze("three").FrequencyHz, entries[0].FrequencyHz, "newest first")
	assert.Equal(t, want.Analyze("two").FrequencyHz, entries[1].FrequencyHz)
}

func TestHistoryCommand_InMemory(t *testing.T) {
	cfgPath := writeConfig(t, deadBackend(t))

	_, stderr, err := runCLI(t, "", "history", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, stderr, "history.path")
}

func TestHistoryCommand_NegativeLimit(t *testing.T) {
	cfgPath := writeConfig(t, deadBackend(t))

	_, _, err := runCLI(t, "", "history", "--config", cfgPath, "--limit", "-1")
	assert.Error(t, err)
}

// =============================================================================
// resolve / probe / status / metrics
// =============================================================================

func TestResolveCommand(t *testing.T) {
	cfgPath := writeConfig(t, "http://localhost:5000")

	tests := []struct {
		host  string
		route string
		url   string
	}{
		{"localhost", "local", "http://localhost:5000"},
		{"alphapiomega.com", "production", "https://alphapiomega.com/api"},
		{"myapp.azurewebsites.net", "platform", "https://myapp.azurewebsites.net/api"},
		{"example.org", "fallback", "https://alphapiomega.com/api"},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			stdout, _, err := runCLI(t, "", "resolve", "--config", cfgPath, "--host", tt.host)
			require.NoError(t, err)
			assert.Contains(t, stdout, "route="+tt.route+"\n")
			assert.Contains(t, stdout, "base_url="+tt.url+"\n")
		})
	}
}

func TestProbeCommand(t *testing.T) {
	up := writeConfig(t, startBackend(t))
	stdout, _, err := runCLI(t, "", "probe", "--config", up)
	require.NoError(t, err)
	assert.Contains(t, stdout, "OK:")
	assert.Contains(t, stdout, "connected")

	down := writeConfig(t, deadBackend(t))
	_, stderr, err := runCLI(t, "", "probe", "--config", down)
	require.NoError(t, err, "an unreachable backend is not a command failure")
	assert.Contains(t, stderr, "offline")
}

func TestMetricsCommand(t *testing.T) {
	url := startBackend(t)
	cfgPath := writeConfig(t, url)

	_, _, err := runCLI(t, "", "analyze", "--config", cfgPath, "hello")
	require.NoError(t, err)

	stdout, _, err := runCLI(t, "", "metrics", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "total_analyses=1\n")
	assert.Contains(t, stdout, "carbon_offset=2.1 kg\n")
	assert.Contains(t, stdout, "source=backend\n")

	down := writeConfig(t, deadBackend(t))
	stdout, stderr, err := runCLI(t, "", "metrics", "--config", down)
	require.NoError(t, err)
	assert.Contains(t, stdout, "total_analyses=0\n")
	assert.Contains(t, stdout, "source=default\n")
	assert.Contains(t, stderr, "unavailable")
}

func TestMetricsCommand_WatchStopsOnCancel(t *testing.T) {
	cfgPath := writeConfig(t, startBackend(t), func(c *config.ResonanceConfig) {
		c.Poller.Interval = time.Second
	})
	resetFlags(rootCmd)

	var stdout bytes.Buffer
	rootCmd.SetArgs([]string{"metrics", "--config", cfgPath, "--watch", "--json"})
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&bytes.Buffer{})

	ctx, cancel := context.WithTimeout(context.Background(), 1500*time.Millisecond)
	defer cancel()
	require.NoError(t, rootCmd.ExecuteContext(ctx))

	var first map[string]any
	require.NoError(t, json.NewDecoder(&stdout).Decode(&first), "the first refresh is immediate")
	assert.Equal(t, "backend", first["source"])
}

func TestStatusCommand(t *testing.T) {
	cfgPath := writeConfig(t, startBackend(t))

	stdout, _, err := runCLI(t, "", "status", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "connectivity=connected\n")
	assert.Contains(t, stdout, "route=local\n")
	assert.Contains(t, stdout, "history=0 entries (in memory)\n")
	assert.Contains(t, stdout, "source=backend\n")
}

// =============================================================================
// serve
// =============================================================================

func TestServeCommand_ShutsDownOnCancel(t *testing.T) {
	cfgPath := writeConfig(t, "http://localhost:5000")
	resetFlags(rootCmd)

	var stdout bytes.Buffer
	rootCmd.SetArgs([]string{"serve", "--config", cfgPath, "--addr", "127.0.0.1:0"})
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&bytes.Buffer{})

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	require.NoError(t, rootCmd.ExecuteContext(ctx))
	assert.Contains(t, stdout.String(), "Healing backend starting on 127.0.0.1:0")
}

// =============================================================================
// config
// =============================================================================

func TestConfigCommands(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "resonance.yaml")

	stdout, _, err := runCLI(t, "", "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, path)
	_, err = os.Stat(path)
	require.NoError(t, err)

	_, _, err = runCLI(t, "", "config", "init", path)
	assert.Error(t, err, "init must not overwrite")

	stdout, _, err = runCLI(t, "", "config", "show", "--config", path, "--host", "alphapiomega.com")
	require.NoError(t, err)
	assert.Contains(t, stdout, "salt: 19")
	assert.Contains(t, stdout, "host: alphapiomega.com")
}

func TestConfig_FirstRunCreatesDefault(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	_, stderr, err := runCLI(t, "", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, stderr, "First run detected")
	assert.FileExists(t, filepath.Join(home, ".resonance", "resonance.yaml"))
}

func TestConfig_Errors(t *testing.T) {
	dir := t.TempDir()

	_, _, err := runCLI(t, "", "signature", "--config", filepath.Join(dir, "missing.yaml"), "x")
	assert.Error(t, err, "an explicit path must exist")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("telemetry:\n  exporter: carrier-pigeon\n"), 0644))
	_, _, err = runCLI(t, "", "signature", "--config", bad, "x")
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

// =============================================================================
// Helpers
// =============================================================================

type runKey struct{}

// TestExecuteContext_ReachesSubcommandOnEveryRun verifies a later run's
// context replaces the one an earlier run left on the subcommand.
func TestExecuteContext_ReachesSubcommandOnEveryRun(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	_, _, err := runCLI(t, "", "config", "path")
	require.NoError(t, err)
	require.NotNil(t, configPathCmd.Context())

	resetFlags(rootCmd)
	rootCmd.SetArgs([]string{"config", "path"})
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})

	ctx := context.WithValue(context.Background(), runKey{}, "second")
	require.NoError(t, rootCmd.ExecuteContext(ctx))
	assert.Equal(t, "second", configPathCmd.Context().Value(runKey{}))
}

func TestReadInputText(t *testing.T) {
	tests := []struct {
		name     string
		flagText string
		args     []string
		stdin    string
		want     string
	}{
		{"flag wins", "from flag", []string{"ignored"}, "ignored", "from flag"},
		{"args joined", "", []string{"the", "light"}, "", "the light"},
		{"stdin", "", nil, "from stdin\n", "from stdin"},
		{"dash reads stdin", "", []string{"-"}, "dash\r\n", "dash"},
		{"inner whitespace kept", "", nil, "  spaced  \n\n", "  spaced  \n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &cobra.Command{}
			cmd.SetIn(strings.NewReader(tt.stdin))
			got, err := readInputText(cmd, tt.flagText, tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetectPersonality_NonFileIsMachine(t *testing.T) {
	t.Setenv(ux.PersonalityEnv, "")
	resetFlags(rootCmd)
	assert.Equal(t, ux.PersonalityMachine, detectPersonality(&bytes.Buffer{}))

	personalityLevel = "minimal"
	defer func() { personalityLevel = "" }()
	assert.Equal(t, ux.PersonalityMinimal, detectPersonality(&bytes.Buffer{}))
}

func TestResultFields(t *testing.T) {
	p := ux.NewPrinter(&bytes.Buffer{}, nil, ux.PersonalityMachine)
	m := signature.NewEngine(signature.DefaultSalt).Analyze("")
	r := analysis.FromLocal(m, analysis.IntentionHealing, "example", time.Time{})

	got := make(map[string]string)
	for _, f := range resultFields(p, &r) {
		got[f.Key] = f.Value
	}
	assert.Equal(t, map[string]string{
		"ID":                 "example",
		"Intention":          "healing",
		"Frequency":          "480 Hz",
		"Resonance":          "800",
		"Regenerative Score": "0.64",
		"Trees":              "0.1",
		"Grade":              "A",
		"Mode":               "local",
	}, got)
}
