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
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/AleutianAI/resonance/pkg/signature"
	"github.com/AleutianAI/resonance/pkg/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFromRemoteFromLocal_ShapeEquivalence verifies both constructors
// produce identical results for identical inputs, apart from Mode.
func TestFromRemoteFromLocal_ShapeEquivalence(t *testing.T) {
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	for _, text := range []string{"a", "hello", "Hello, World!", "🌱 grow"} {
		m := testEngine.Analyze(text)

		local := FromLocal(m, IntentionWisdom, "id-1", at)
		remote := FromRemote(*NewRemoteAnalysis(m, IntentionWisdom), IntentionWisdom, "id-1", at)

		assert.Equal(t, ModeLocal, local.Mode)
		assert.Equal(t, ModeRemote, remote.Mode)

		remote.Mode = ModeLocal
		assert.Equal(t, local, remote, "text %q", text)
	}
}

// TestFromLocal_WorkedExample covers signature 2166136280 (empty text under
// the default salt).
func TestFromLocal_WorkedExample(t *testing.T) {
	r := FromLocal(signature.Derive(2166136280), IntentionHealing, "x", time.Time{})

	assert.Equal(t, 480.0, r.FrequencyHz)
	assert.InDelta(t, 800.0, r.Resonance, 1e-9)
	assert.InDelta(t, 0.64, r.RegenerativeScore, 1e-9)
	assert.Equal(t, signature.GradeA, r.Grade)
	assert.Equal(t, 0.1, r.TreesEquivalent)
}

func TestParseIntention(t *testing.T) {
	for _, i := range Intentions {
		got, err := ParseIntention(string(i))
		require.NoError(t, err)
		assert.Equal(t, i, got)
	}

	got, err := ParseIntention("")
	require.NoError(t, err)
	assert.Equal(t, DefaultIntention, got)

	_, err = ParseIntention("telekinesis")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestTransportError(t *testing.T) {
	cause := errors.New("boom")
	err := &TransportError{Op: "POST /healing-analysis", StatusCode: 502, Reason: ReasonStatus, Err: cause}

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "POST /healing-analysis: status (status 502): boom", err.Error())

	var target *TransportError
	assert.True(t, errors.As(fmt.Errorf("wrapped: %w", err), &target))
}

func TestValidateResponse(t *testing.T) {
	ok := &RemoteResponse{HealingAnalysis: NewRemoteAnalysis(testEngine.Analyze("hello"), IntentionHealing)}
	assert.NoError(t, ValidateResponse(ok))

	assert.Error(t, ValidateResponse(&RemoteResponse{}))
}

// =============================================================================
// History
// =============================================================================

func sampleResult(i int) Result {
	m := testEngine.Analyze(fmt.Sprintf("text-%d", i))
	return FromLocal(m, IntentionHealing, fmt.Sprintf("id-%d", i), time.Date(2025, 1, 1, 0, 0, i, 0, time.UTC))
}

func TestRingHistory(t *testing.T) {
	ctx := context.Background()
	h := NewRingHistory(2)

	for i := 0; i < 3; i++ {
		require.NoError(t, h.Append(ctx, sampleResult(i)))
	}

	list, err := h.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "id-1", list[0].ID)
	assert.Equal(t, "id-2", list[1].ID)
	assert.Equal(t, int64(1), h.Evicted())

	n, err := h.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestNewRingHistory_DefaultCapacity(t *testing.T) {
	h := NewRingHistory(0)
	assert.Equal(t, DefaultHistoryCapacity, h.buf.Capacity())
}

func TestBadgerHistory_BoundedAndOrdered(t *testing.T) {
	db, err := badger.OpenInMemory()
	require.NoError(t, err)
	defer db.Close()

	h, err := NewBadgerHistory(db, 3)
	require.NoError(t, err)
	defer h.Close()

	ctx := context.Background()
	var want []Result
	for i := 0; i < 5; i++ {
		r := sampleResult(i)
		want = append(want, r)
		require.NoError(t, h.Append(ctx, r))
	}

	list, err := h.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	for i, got := range list {
		exp := want[i+2]
		assert.Equal(t, exp.ID, got.ID)
		assert.Equal(t, exp.FrequencyHz, got.FrequencyHz)
		assert.Equal(t, exp.Grade, got.Grade)
		assert.Equal(t, exp.Mode, got.Mode)
		assert.True(t, exp.CreatedAt.Equal(got.CreatedAt))
	}

	n, err := h.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestBadgerHistory_Persists(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	db, err := badger.OpenPath(dir, nil)
	require.NoError(t, err)
	h, err := NewBadgerHistory(db, 10)
	require.NoError(t, err)
	require.NoError(t, h.Append(ctx, sampleResult(1)))
	require.NoError(t, h.Close())
	require.NoError(t, db.Close())

	db, err = badger.OpenPath(dir, nil)
	require.NoError(t, err)
	defer db.Close()
	h, err = NewBadgerHistory(db, 10)
	require.NoError(t, err)
	defer h.Close()

	list, err := h.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "id-1", list[0].ID)
}

func TestOrchestrator_WithBadgerHistory(t *testing.T) {
	db, err := badger.OpenInMemory()
	require.NoError(t, err)
	defer db.Close()

	h, err := NewBadgerHistory(db, 10)
	require.NoError(t, err)
	defer h.Close()

	o := NewOrchestrator(testEngine, WithHistory(h))
	res, err := o.Analyze(context.Background(), Request{Text: "persist me"})
	require.NoError(t, err)

	list, err := h.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, res.ID, list[0].ID)
}
