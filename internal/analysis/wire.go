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
	"github.com/AleutianAI/resonance/pkg/signature"
	"github.com/go-playground/validator/v10"
)

// AnalysisModeOnline is the analysis_mode value the backend reports.
const AnalysisModeOnline = "online"

// RemoteRequest is the body of POST {base}/healing-analysis.
type RemoteRequest struct {
	Text      string `json:"text" binding:"required"`
	Intention string `json:"intention" binding:"omitempty,oneof=healing consciousness manifestation wisdom regeneration"`
}

// RemoteResponse is the 200 body of POST {base}/healing-analysis.
type RemoteResponse struct {
	HealingAnalysis      *RemoteAnalysis       `json:"healing_analysis" validate:"required"`
	SustainabilityImpact *SustainabilityImpact `json:"sustainability_impact,omitempty"`
	AnalysisMode         string                `json:"analysis_mode"`
}

// RemoteAnalysis carries the numeric results. Ranges match the local path.
type RemoteAnalysis struct {
	ConsciousnessFrequency float64 `json:"consciousness_frequency" validate:"gte=400,lt=600"`
	HealingResonance       float64 `json:"healing_resonance" validate:"gte=0"`
	RegenerativeScore      float64 `json:"regenerative_score" validate:"gte=0,lte=0.8"`
	TreesPlantedEquivalent float64 `json:"trees_planted_equivalent" validate:"gte=0"`
	HealingGrade           string  `json:"healing_grade" validate:"grade"`
	IntentionAmplification string  `json:"intention_amplification,omitempty"`
	Signature              uint32  `json:"signature,omitempty"`
}

// SustainabilityImpact is informational and ignored by the client.
type SustainabilityImpact struct {
	RenewableEnergyUsed          string `json:"renewable_energy_used"`
	CarbonFootprint              string `json:"carbon_footprint"`
	ConsciousnessElevation       string `json:"consciousness_elevation"`
	PlanetaryHealingContribution string `json:"planetary_healing_contribution"`
}

// DefaultSustainabilityImpact is what the reference backend reports.
func DefaultSustainabilityImpact() *SustainabilityImpact {
	return &SustainabilityImpact{
		RenewableEnergyUsed:          "100% solar",
		CarbonFootprint:              "negative",
		ConsciousnessElevation:       "positive",
		PlanetaryHealingContribution: "active",
	}
}

// NewRemoteAnalysis renders derived metrics into the wire shape.
func NewRemoteAnalysis(m signature.Metrics, intention Intention) *RemoteAnalysis {
	return &RemoteAnalysis{
		ConsciousnessFrequency: m.FrequencyHz,
		HealingResonance:       m.Resonance,
		RegenerativeScore:      m.RegenerativeScore,
		TreesPlantedEquivalent: m.TreesEquivalent,
		HealingGrade:           string(m.Grade),
		IntentionAmplification: string(intention),
		Signature:              m.Signature,
	}
}

// bodyValidate checks remote bodies before they become Results.
var bodyValidate *validator.Validate

func init() {
	bodyValidate = validator.New()
	_ = bodyValidate.RegisterValidation("grade", validateGrade)
}

// validateGrade accepts exactly the grades the signature engine produces.
func validateGrade(fl validator.FieldLevel) bool {
	return signature.Grade(fl.Field().String()).Valid()
}

// ValidateResponse checks a decoded backend body.
func ValidateResponse(resp *RemoteResponse) error {
	return bodyValidate.Struct(resp)
}
