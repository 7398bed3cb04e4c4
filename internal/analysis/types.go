// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package analysis

import (
	"fmt"
	"strings"
	"time"

	"github.com/AleutianAI/resonance/pkg/signature"
)

// =============================================================================
// Intention
// =============================================================================

// Intention labels what an analysis is for. It is echoed to the backend
// and recorded on the result; it does not change the local computation.
type Intention string

const (
	IntentionHealing       Intention = "healing"
	IntentionConsciousness Intention = "consciousness"
	IntentionManifestation Intention = "manifestation"
	IntentionWisdom        Intention = "wisdom"
	IntentionRegeneration  Intention = "regeneration"
)

// DefaultIntention is used when a request names none.
const DefaultIntention = IntentionHealing

// Intentions lists every accepted intention in display order.
var Intentions = []Intention{
	IntentionHealing,
	IntentionConsciousness,
	IntentionManifestation,
	IntentionWisdom,
	IntentionRegeneration,
}

// Valid reports whether i is one of Intentions.
func (i Intention) Valid() bool {
	for _, known := range Intentions {
		if i == known {
			return true
		}
	}
	return false
}

// ParseIntention normalizes s. Empty means DefaultIntention.
func ParseIntention(s string) (Intention, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultIntention, nil
	}
	i := Intention(s)
	if !i.Valid() {
		return "", fmt.Errorf("%w: unknown intention %q", ErrInvalidInput, s)
	}
	return i, nil
}

// =============================================================================
// Request
// =============================================================================

// Request is a single analysis request.
type Request struct {
	Text      string    `json:"text"`
	Intention Intention `json:"intention,omitempty"`
}

// Normalize validates r and fills the default intention.
//
// # Outputs
//
//   - Request: Copy with Intention set
//   - error: Wraps ErrInvalidInput for empty text or an unknown intention
func (r Request) Normalize() (Request, error) {
	if r.Text == "" {
		return Request{}, fmt.Errorf("%w: text must not be empty", ErrInvalidInput)
	}
	intention, err := ParseIntention(string(r.Intention))
	if err != nil {
		return Request{}, err
	}
	return Request{Text: r.Text, Intention: intention}, nil
}

// =============================================================================
// Result
// =============================================================================

// Mode records which path produced a Result.
type Mode string

const (
	ModeRemote Mode = "remote"
	ModeLocal  Mode = "local"
)

// Result is the outcome of one analysis. Both paths produce the same shape;
// only Mode tells them apart.
//
// Build results with FromRemote or FromLocal and treat them as values.
type Result struct {
	ID                string          `json:"id"`
	Intention         Intention       `json:"intention"`
	FrequencyHz       float64         `json:"frequency_hz"`
	Resonance         float64         `json:"resonance"`
	RegenerativeScore float64         `json:"regenerative_score"`
	TreesEquivalent   float64         `json:"trees_equivalent"`
	Grade             signature.Grade `json:"grade"`
	Mode              Mode            `json:"mode"`
	CreatedAt         time.Time       `json:"created_at"`
}

// FromLocal builds a local-mode Result from derived signature metrics.
func FromLocal(m signature.Metrics, intention Intention, id string, at time.Time) Result {
	return Result{
		ID:                id,
		Intention:         intention,
		FrequencyHz:       m.FrequencyHz,
		Resonance:         m.Resonance,
		RegenerativeScore: m.RegenerativeScore,
		TreesEquivalent:   m.TreesEquivalent,
		Grade:             m.Grade,
		Mode:              ModeLocal,
		CreatedAt:         at,
	}
}

// FromRemote builds a remote-mode Result from a validated backend body.
func FromRemote(a RemoteAnalysis, intention Intention, id string, at time.Time) Result {
	return Result{
		ID:                id,
		Intention:         intention,
		FrequencyHz:       a.ConsciousnessFrequency,
		Resonance:         a.HealingResonance,
		RegenerativeScore: a.RegenerativeScore,
		TreesEquivalent:   a.TreesPlantedEquivalent,
		Grade:             signature.Grade(a.HealingGrade),
		Mode:              ModeRemote,
		CreatedAt:         at,
	}
}
