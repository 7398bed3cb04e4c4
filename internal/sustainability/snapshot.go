// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package sustainability

import (
	"errors"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrMetricsUnavailable is logged when a refresh falls back to the default
// snapshot.
var ErrMetricsUnavailable = errors.New("sustainability metrics unavailable")

// Source records where a Snapshot came from.
type Source string

const (
	SourceBackend Source = "backend"
	SourceDefault Source = "default"
)

// Snapshot is the aggregate impact counters reported by the backend.
//
// Snapshots are replaced wholesale on every refresh.
type Snapshot struct {
	TotalAnalyses         int64   `json:"total_analyses_performed" validate:"gte=0"`
	CarbonOffsetKg        float64 `json:"carbon_offset_generated" validate:"gte=0"`
	TreesPlanted          float64 `json:"trees_planted_equivalent" validate:"gte=0"`
	RenewableEnergyKwh    float64 `json:"renewable_energy_used" validate:"gte=0"`
	ConsciousnessEvents   int64   `json:"consciousness_elevation_events" validate:"gte=0"`
	PlanetaryHealingScore float64 `json:"planetary_healing_score" validate:"gte=0,lte=1"`

	Source    Source    `json:"source"`
	FetchedAt time.Time `json:"fetched_at"`
}

// DefaultSnapshot is substituted whenever a refresh fails.
func DefaultSnapshot() Snapshot {
	return Snapshot{Source: SourceDefault}
}

// IsDefault reports whether s is the fallback snapshot.
func (s Snapshot) IsDefault() bool {
	return s.Source == SourceDefault
}

// FromCount derives the snapshot the reference backend reports after n
// analyses.
//
// # Example
//
//	s := FromCount(10)
//	// s.CarbonOffsetKg == 21, s.PlanetaryHealingScore == 0.1
func FromCount(n int64) Snapshot {
	if n < 0 {
		n = 0
	}
	f := float64(n)
	return Snapshot{
		TotalAnalyses:         n,
		CarbonOffsetKg:        f * 2.1,
		TreesPlanted:          f * 0.1,
		RenewableEnergyKwh:    f * 5.5,
		ConsciousnessEvents:   n,
		PlanetaryHealingScore: math.Min(f*0.01, 1),
		Source:                SourceBackend,
	}
}

var snapshotValidate = validator.New()

// Validate checks counter ranges.
func (s Snapshot) Validate() error {
	return snapshotValidate.Struct(s)
}
