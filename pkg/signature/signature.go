// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package signature implements the deterministic text fingerprint used by
// both the local fallback path and the healing backend.
//
// # Description
//
// A signature is a 32-bit unsigned fingerprint derived from input text and a
// fixed numeric salt. It is a content fingerprint, not a security primitive:
// collisions are cheap to find and nothing here should be used for integrity
// or authentication.
//
// The algorithm is an FNV-1a variant with two extra ingredients per code
// point: a golden-ratio modulator that grows with every vowel, and an
// additive bonus picked from a nine-entry table of Solfeggio frequencies.
//
// # Determinism
//
// Every step is defined on exact integer or IEEE-754 float64 arithmetic, and
// the final float-to-integer conversion follows the ECMAScript ToUint32 rules
// (truncate, reduce modulo 2^32, NaN and infinities map to zero). The same
// text and salt therefore produce the same signature on every platform.
//
// # Thread Safety
//
// All functions are pure. Engine is an immutable value and safe for
// concurrent use without synchronization.
package signature

import (
	"math"
	"unicode"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// OffsetBasis is the FNV-1a 32-bit offset basis (0x811c9dc5).
	OffsetBasis uint32 = 2166136261

	// Prime is the FNV-1a 32-bit prime (0x01000193).
	Prime uint32 = 16777619

	// GoldenRatio multiplies the modulator once per vowel.
	GoldenRatio = 1.618033988749895

	// DefaultTenantID identifies the reference deployment. Its length is the
	// default salt.
	DefaultTenantID = "ALPHA-PI-OMEGA-2024"

	// DefaultSalt is len(DefaultTenantID).
	DefaultSalt uint32 = uint32(len(DefaultTenantID))
)

// frequencyBonus is indexed by (code point mod 9).
var frequencyBonus = [9]uint32{174, 285, 396, 417, 528, 639, 741, 852, 963}

// two32 is 2^32 as a float64, exact.
const two32 = 4294967296.0

// =============================================================================
// Engine
// =============================================================================

// Engine computes signatures and derived metrics under a fixed salt.
//
// # Description
//
// Engine exists so callers configure the salt once (from config) and pass a
// single value around instead of threading the salt through every call.
//
// # Example
//
//	engine := signature.NewEngine(signature.DefaultSalt)
//	m := engine.Analyze("hello")
//	fmt.Println(m.Signature, m.FrequencyHz, m.Grade)
type Engine struct {
	salt uint32
}

// NewEngine returns an Engine bound to salt.
func NewEngine(salt uint32) Engine {
	return Engine{salt: salt}
}

// Salt returns the configured salt.
func (e Engine) Salt() uint32 {
	return e.salt
}

// Signature returns Compute(text, e.Salt()).
func (e Engine) Signature(text string) uint32 {
	return Compute(text, e.salt)
}

// Analyze computes the signature of text and derives its metrics.
func (e Engine) Analyze(text string) Metrics {
	return Derive(Compute(text, e.salt))
}

// SaltFor derives a salt from a tenant identifier.
//
// The salt is the byte length of the identifier, which is how the reference
// deployment namespaces its fingerprints.
func SaltFor(tenantID string) uint32 {
	return uint32(len(tenantID))
}

// =============================================================================
// Algorithm
// =============================================================================

// Compute returns the signature of text under salt.
//
// # Description
//
// For each code point c of text, in order:
//
//  1. hash ^= c, then hash *= Prime (uint32 wraparound)
//  2. if c lower-cases to one of a, e, i, o, u: modulator *= GoldenRatio
//  3. hash += frequencyBonus[c mod 9] (uint32 wraparound)
//
// The result is toUint32(|round(hash * modulator) + salt|).
//
// # Inputs
//
//   - text: Any string. Invalid UTF-8 bytes are read as U+FFFD.
//   - salt: Namespace constant mixed into the final value.
//
// # Outputs
//
//   - uint32: The signature. Compute("", salt) == OffsetBasis + salt.
//
// # Limitations
//
//   - Very vowel-heavy text (about 1475 vowels) overflows the modulator to
//     +Inf, and every such text maps to the same signature (0).
func Compute(text string, salt uint32) uint32 {
	hash := OffsetBasis
	modulator := 1.0

	for _, c := range text {
		cp := uint32(c)
		hash ^= cp
		hash *= Prime
		if isVowel(c) {
			modulator *= GoldenRatio
		}
		hash += frequencyBonus[cp%9]
	}

	scaled := math.Round(float64(hash)*modulator) + float64(salt)
	return toUint32(math.Abs(scaled))
}

func isVowel(c rune) bool {
	switch unicode.ToLower(c) {
	case 'a', 'e', 'i', 'o', 'u':
		return true
	}
	return false
}

// toUint32 applies the ECMAScript ToUint32 conversion.
func toUint32(x float64) uint32 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	m := math.Mod(math.Trunc(x), two32)
	if m < 0 {
		m += two32
	}
	return uint32(m)
}
