// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package signature

// =============================================================================
// Grade
// =============================================================================

// Grade is the coarse quality band assigned from a frequency.
type Grade string

const (
	GradeBPlus Grade = "B+"
	GradeA     Grade = "A"
	GradeAPlus Grade = "A+"
)

// Valid reports whether g is one of the three known grades.
func (g Grade) Valid() bool {
	switch g {
	case GradeBPlus, GradeA, GradeAPlus:
		return true
	}
	return false
}

// GradeFor returns A+ above 500 Hz, A above 450 Hz, and B+ otherwise.
func GradeFor(frequencyHz float64) Grade {
	switch {
	case frequencyHz > 500:
		return GradeAPlus
	case frequencyHz > 450:
		return GradeA
	default:
		return GradeBPlus
	}
}

// =============================================================================
// Derived Metrics
// =============================================================================

// Range bounds shared by every producer of analysis metrics. The healing
// backend and the remote-response validator use the same constants.
const (
	MinFrequencyHz = 400.0
	// MaxFrequencyHz is exclusive.
	MaxFrequencyHz = 600.0

	MaxRegenerativeScore = 0.8

	// TreesEquivalent is the fixed per-analysis tree credit.
	TreesEquivalent = 0.1
)

// Metrics are the values derived from a single signature.
//
// # Description
//
// Every field is a pure function of Signature:
//
//	Consciousness     = (Signature mod 100) / 100     in [0, 0.99]
//	FrequencyHz       = 400 + (Signature mod 200)     in [400, 599]
//	Resonance         = Consciousness * 1000          in [0, 990]
//	RegenerativeScore = Consciousness * 0.8           in [0, 0.792]
//	Grade             = GradeFor(FrequencyHz)
//	TreesEquivalent   = 0.1
type Metrics struct {
	Signature         uint32  `json:"signature"`
	Consciousness     float64 `json:"consciousness"`
	FrequencyHz       float64 `json:"frequency_hz"`
	Resonance         float64 `json:"resonance"`
	RegenerativeScore float64 `json:"regenerative_score"`
	TreesEquivalent   float64 `json:"trees_equivalent"`
	Grade             Grade   `json:"grade"`
}

// Derive computes Metrics from a signature.
//
// # Example
//
//	m := signature.Derive(2166136280)
//	// m.FrequencyHz == 480, m.Consciousness == 0.8, m.Grade == "A"
func Derive(sig uint32) Metrics {
	consciousness := float64(sig%100) / 100
	frequency := MinFrequencyHz + float64(sig%200)

	return Metrics{
		Signature:         sig,
		Consciousness:     consciousness,
		FrequencyHz:       frequency,
		Resonance:         consciousness * 1000,
		RegenerativeScore: consciousness * MaxRegenerativeScore,
		TreesEquivalent:   TreesEquivalent,
		Grade:             GradeFor(frequency),
	}
}
