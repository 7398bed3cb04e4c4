// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package store persists the backend's analysis records.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/AleutianAI/resonance/pkg/signature"
	"github.com/AleutianAI/resonance/pkg/storage/badger"
	"github.com/google/uuid"
)

// recordsPrefix namespaces record keys in a shared database.
const recordsPrefix = "records"

// Record is one analysis served by the backend. The text itself is not
// stored.
type Record struct {
	ID          string          `json:"id"`
	Intention   string          `json:"intention"`
	Signature   uint32          `json:"signature"`
	FrequencyHz float64         `json:"frequency_hz"`
	Grade       signature.Grade `json:"grade"`
	TextLength  int             `json:"text_length"`
	CreatedAt   time.Time       `json:"created_at"`
}

// RecordStore appends records to a badger.Log.
//
// # Thread Safety
//
// Safe for concurrent use.
type RecordStore struct {
	log *badger.Log
	now func() time.Time
}

// NewRecordStore opens the record log in db.
func NewRecordStore(db *badger.DB) (*RecordStore, error) {
	if db == nil {
		return nil, errors.New("record store requires a database")
	}
	log, err := badger.NewLog(db, recordsPrefix)
	if err != nil {
		return nil, fmt.Errorf("open record log: %w", err)
	}
	return &RecordStore{log: log, now: time.Now}, nil
}

// Add stores a record for the analysis of text and returns it with its
// assigned ID.
func (s *RecordStore) Add(ctx context.Context, m signature.Metrics, intention string, textLen int) (Record, error) {
	rec := Record{
		ID:          uuid.NewString(),
		Intention:   intention,
		Signature:   m.Signature,
		FrequencyHz: m.FrequencyHz,
		Grade:       m.Grade,
		TextLength:  textLen,
		CreatedAt:   s.now().UTC(),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return Record{}, fmt.Errorf("encode record: %w", err)
	}
	if _, err := s.log.Append(ctx, data); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Count returns the number of stored records.
func (s *RecordStore) Count(ctx context.Context) (int64, error) {
	n, err := s.log.Len(ctx)
	return int64(n), err
}

// Recent returns up to limit records, newest first.
func (s *RecordStore) Recent(ctx context.Context, limit int) ([]Record, error) {
	var all []Record
	err := s.log.Scan(ctx, func(_ uint64, value []byte) error {
		var r Record
		if err := json.Unmarshal(value, &r); err != nil {
			return fmt.Errorf("decode record: %w", err)
		}
		all = append(all, r)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if limit <= 0 || limit > len(all) {
		limit = len(all)
	}
	out := make([]Record, 0, limit)
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

// Close releases the log. The database stays open.
func (s *RecordStore) Close() error {
	return s.log.Close()
}
