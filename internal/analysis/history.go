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
	"encoding/json"
	"fmt"
	"sync"

	"github.com/AleutianAI/resonance/internal/util"
	"github.com/AleutianAI/resonance/pkg/storage/badger"
)

// DefaultHistoryCapacity is the number of results kept before eviction.
const DefaultHistoryCapacity = 500

// History is a bounded, append-only record of results, oldest first.
//
// # Implementations
//
//   - RingHistory: in memory
//   - BadgerHistory: persisted across runs
type History interface {
	// Append adds r, evicting the oldest entry when full.
	Append(ctx context.Context, r Result) error

	// List returns every retained result, oldest first.
	List(ctx context.Context) ([]Result, error)

	// Len returns the number of retained results.
	Len(ctx context.Context) (int, error)
}

// =============================================================================
// RingHistory
// =============================================================================

// RingHistory keeps results in a fixed-size ring buffer.
type RingHistory struct {
	buf *util.RingBuffer[Result]
}

// NewRingHistory returns an empty RingHistory. Non-positive capacity uses
// DefaultHistoryCapacity.
func NewRingHistory(capacity int) *RingHistory {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &RingHistory{buf: util.NewRingBuffer[Result](capacity)}
}

func (h *RingHistory) Append(_ context.Context, r Result) error {
	h.buf.Push(r)
	return nil
}

func (h *RingHistory) List(_ context.Context) ([]Result, error) {
	return h.buf.Snapshot(), nil
}

func (h *RingHistory) Len(_ context.Context) (int, error) {
	return h.buf.Len(), nil
}

// Evicted returns how many results have been dropped for capacity.
func (h *RingHistory) Evicted() int64 {
	return h.buf.Evicted()
}

// =============================================================================
// BadgerHistory
// =============================================================================

// historyPrefix namespaces history keys in a shared database.
const historyPrefix = "history"

// BadgerHistory persists results as JSON in a badger.Log.
//
// # Thread Safety
//
// Safe for concurrent use. Append and its eviction run under one mutex so
// concurrent appends never trim more than necessary.
type BadgerHistory struct {
	log      *badger.Log
	capacity int
	mu       sync.Mutex
}

// NewBadgerHistory opens the history stored in db.
func NewBadgerHistory(db *badger.DB, capacity int) (*BadgerHistory, error) {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	log, err := badger.NewLog(db, historyPrefix)
	if err != nil {
		return nil, fmt.Errorf("open history log: %w", err)
	}
	return &BadgerHistory{log: log, capacity: capacity}, nil
}

func (h *BadgerHistory) Append(ctx context.Context, r Result) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode result %s: %w", r.ID, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, err := h.log.Append(ctx, data); err != nil {
		return err
	}
	if _, err := h.log.TrimTo(ctx, h.capacity); err != nil {
		return fmt.Errorf("evict history: %w", err)
	}
	return nil
}

func (h *BadgerHistory) List(ctx context.Context) ([]Result, error) {
	var out []Result
	err := h.log.Scan(ctx, func(_ uint64, value []byte) error {
		var r Result
		if err := json.Unmarshal(value, &r); err != nil {
			return fmt.Errorf("decode history entry: %w", err)
		}
		out = append(out, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (h *BadgerHistory) Len(ctx context.Context) (int, error) {
	return h.log.Len(ctx)
}

// Close releases the underlying log. The database stays open.
func (h *BadgerHistory) Close() error {
	return h.log.Close()
}

var (
	_ History = (*RingHistory)(nil)
	_ History = (*BadgerHistory)(nil)
)
