// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package badger

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// sequenceBandwidth is how many sequence numbers are leased per disk write.
const sequenceBandwidth = 64

// ErrEmptyPrefix is returned by NewLog when no key prefix is given.
var ErrEmptyPrefix = errors.New("log prefix must not be empty")

// Log is an append-only sequence of values stored under a key prefix.
//
// # Description
//
// Each value is stored at "{prefix}/r/{seq}" where seq is a big-endian
// uint64 from a badger.Sequence, so prefix iteration yields insertion
// order. Sequence numbers survive restarts but may skip values leased and
// not used before a crash.
//
// # Thread Safety
//
// Safe for concurrent use.
type Log struct {
	db        *DB
	recPrefix []byte
	seq       *badger.Sequence
}

// NewLog opens the log stored under prefix.
//
// # Inputs
//
//   - db: Open database. Must not be nil.
//   - prefix: Key namespace, e.g. "history" or "records".
//
// # Outputs
//
//   - *Log: Ready for use. Call Close to release the sequence lease.
//   - error: Non-nil if prefix is empty or the sequence cannot be leased.
func NewLog(db *DB, prefix string) (*Log, error) {
	if db == nil {
		return nil, errors.New("db must not be nil")
	}
	if prefix == "" {
		return nil, ErrEmptyPrefix
	}

	seq, err := db.GetSequence([]byte(prefix+"/seq"), sequenceBandwidth)
	if err != nil {
		return nil, fmt.Errorf("lease sequence for %s: %w", prefix, err)
	}

	return &Log{
		db:        db,
		recPrefix: []byte(prefix + "/r/"),
		seq:       seq,
	}, nil
}

// Append stores value at the next sequence number and returns it.
func (l *Log) Append(ctx context.Context, value []byte) (uint64, error) {
	n, err := l.seq.Next()
	if err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}

	err = l.db.WithTxn(ctx, func(txn *badger.Txn) error {
		return txn.Set(l.key(n), value)
	})
	if err != nil {
		return 0, fmt.Errorf("append seq %d: %w", n, err)
	}
	return n, nil
}

// Len returns the number of stored values.
func (l *Log) Len(ctx context.Context) (int, error) {
	count := 0
	err := l.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = l.recPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// Scan calls fn for every value in insertion order. The value slice is
// only valid during the call. Returning an error from fn stops the scan.
func (l *Log) Scan(ctx context.Context, fn func(seq uint64, value []byte) error) error {
	return l.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = l.recPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			n := binary.BigEndian.Uint64(item.Key()[len(l.recPrefix):])
			if err := item.Value(func(val []byte) error {
				return fn(n, val)
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

// TrimTo deletes the oldest values until at most max remain and returns
// the number deleted. A non-positive max is a no-op.
func (l *Log) TrimTo(ctx context.Context, max int) (int, error) {
	if max <= 0 {
		return 0, nil
	}

	n, err := l.Len(ctx)
	if err != nil {
		return 0, err
	}
	excess := n - max
	if excess <= 0 {
		return 0, nil
	}

	var stale [][]byte
	err = l.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = l.recPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid() && len(stale) < excess; it.Next() {
			stale = append(stale, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	err = l.db.WithTxn(ctx, func(txn *badger.Txn) error {
		for _, k := range stale {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("trim log: %w", err)
	}
	return len(stale), nil
}

// Close releases the unused part of the sequence lease.
func (l *Log) Close() error {
	return l.seq.Release()
}

func (l *Log) key(n uint64) []byte {
	k := make([]byte, len(l.recPrefix)+8)
	copy(k, l.recPrefix)
	binary.BigEndian.PutUint64(k[len(l.recPrefix):], n)
	return k
}
