// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func newTestPrinter(level PersonalityLevel) (*Printer, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return NewPrinter(&out, &errOut, level), &out, &errOut
}

// =============================================================================
// Icon.Render Tests
// =============================================================================

func TestIcon_Render(t *testing.T) {
	for _, icon := range []Icon{IconSuccess, IconWarning, IconError, IconPending, IconLeaf} {
		if !strings.Contains(icon.Render(), string(icon)) {
			t.Errorf("Render(%q) lost the icon", icon)
		}
	}
}

// =============================================================================
// Printer Tests
// =============================================================================

func TestPrinter_MachineMode(t *testing.T) {
	p, out, errOut := newTestPrinter(PersonalityMachine)

	p.Title("ignored")
	p.Muted("ignored")
	p.Success("done")
	p.Info("plain")
	p.Warning("careful")
	p.Error("broken")

	if got := out.String(); got != "OK: done\nplain\n" {
		t.Errorf("stdout = %q", got)
	}
	if got := errOut.String(); got != "WARN: careful\nERROR: broken\n" {
		t.Errorf("stderr = %q", got)
	}
}

func TestPrinter_FullMode(t *testing.T) {
	p, out, errOut := newTestPrinter(PersonalityFull)

	p.Title("Resonance")
	p.Success("done")
	p.Warning("careful")
	p.Error("broken")
	p.Muted("aside")

	got := out.String()
	for _, want := range []string{"Resonance", "✓", "done", "⚠", "careful", "✗", "broken", "aside"} {
		if !strings.Contains(got, want) {
			t.Errorf("full output missing %q:\n%s", want, got)
		}
	}
	if errOut.Len() != 0 {
		t.Errorf("full mode wrote to stderr: %q", errOut.String())
	}
}

func TestPrinter_MinimalMode(t *testing.T) {
	p, out, _ := newTestPrinter(PersonalityMinimal)

	p.Success("done")
	if got := out.String(); !strings.HasPrefix(got, "✓") && !strings.Contains(got, "✓ done") {
		t.Errorf("minimal output = %q", got)
	}
}

func TestPrinter_Fields(t *testing.T) {
	fields := []Field{{"Frequency", "480 Hz"}, {"Regen Score", "0.64"}}

	p, out, _ := newTestPrinter(PersonalityMachine)
	p.Fields("Analysis", fields)
	if got := out.String(); got != "frequency=480 Hz\nregen_score=0.64\n" {
		t.Errorf("machine fields = %q", got)
	}

	p, out, _ = newTestPrinter(PersonalityFull)
	p.Fields("Analysis", fields)
	got := out.String()
	for _, want := range []string{"Analysis", "Frequency", "480 Hz", "Regen Score", "0.64"} {
		if !strings.Contains(got, want) {
			t.Errorf("boxed fields missing %q:\n%s", want, got)
		}
	}

	p, out, _ = newTestPrinter(PersonalityMinimal)
	p.Fields("Analysis", fields)
	if !strings.HasPrefix(out.String(), "Analysis\n") {
		t.Errorf("minimal fields = %q", out.String())
	}
}

func TestPrinter_WarningBox(t *testing.T) {
	p, _, errOut := newTestPrinter(PersonalityMachine)
	p.WarningBox("Offline", "using local analysis")
	if got := errOut.String(); got != "WARN Offline: using local analysis\n" {
		t.Errorf("machine warning box = %q", got)
	}

	p, out, _ := newTestPrinter(PersonalityFull)
	p.WarningBox("Offline", "using local analysis")
	if !strings.Contains(out.String(), "using local analysis") {
		t.Errorf("full warning box = %q", out.String())
	}
}

func TestPrinter_ProgressBar(t *testing.T) {
	p, _, _ := newTestPrinter(PersonalityMachine)
	if got := p.ProgressBar(0.5, 10); got != "0.50" {
		t.Errorf("machine bar = %q", got)
	}
	if got := p.ProgressBar(3, 10); got != "1.00" {
		t.Errorf("clamped bar = %q", got)
	}

	p, _, _ = newTestPrinter(PersonalityFull)
	bar := p.ProgressBar(0.5, 10)
	if strings.Count(bar, "█") != 5 || !strings.Contains(bar, "50%") {
		t.Errorf("full bar = %q", bar)
	}
}

func TestNewPrinter_NilErrWriter(t *testing.T) {
	var out bytes.Buffer
	p := NewPrinter(&out, nil, PersonalityMachine)
	p.Error("x")
	if out.String() != "ERROR: x\n" {
		t.Errorf("errors should fall back to out, got %q", out.String())
	}
}

// =============================================================================
// Personality Tests
// =============================================================================

func TestParsePersonalityLevel(t *testing.T) {
	tests := map[string]PersonalityLevel{
		"full":    PersonalityFull,
		"FULL":    PersonalityFull,
		"min":     PersonalityMinimal,
		"minimal": PersonalityMinimal,
		"machine": PersonalityMachine,
		"q":       PersonalityMachine,
		"plain":   PersonalityMachine,
		"bogus":   PersonalityFull,
		"":        PersonalityFull,
	}
	for in, want := range tests {
		if got := ParsePersonalityLevel(in); got != want {
			t.Errorf("ParsePersonalityLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestDetectPersonality(t *testing.T) {
	t.Setenv(PersonalityEnv, "")

	if got := DetectPersonality("minimal", nil); got != PersonalityMinimal {
		t.Errorf("flag should win, got %v", got)
	}

	t.Setenv(PersonalityEnv, "machine")
	if got := DetectPersonality("", nil); got != PersonalityMachine {
		t.Errorf("env should apply, got %v", got)
	}

	t.Setenv(PersonalityEnv, "")
	f, err := os.CreateTemp(t.TempDir(), "out")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if got := DetectPersonality("", f); got != PersonalityMachine {
		t.Errorf("regular file should be machine, got %v", got)
	}
}

func TestIsTerminal_Nil(t *testing.T) {
	if IsTerminal(nil) {
		t.Error("nil file is not a terminal")
	}
}
