// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package util

import (
	"sync"
	"testing"
)

// TestNewRingBuffer verifies initial state of a new buffer.
func TestNewRingBuffer(t *testing.T) {
	buffer := NewRingBuffer[int](10)

	if buffer.Capacity() != 10 {
		t.Errorf("Capacity() = %d, want 10", buffer.Capacity())
	}
	if buffer.Len() != 0 {
		t.Errorf("Len() = %d, want 0", buffer.Len())
	}
	if buffer.Snapshot() != nil {
		t.Error("Snapshot() of empty buffer should be nil")
	}
	if buffer.Evicted() != 0 {
		t.Errorf("Evicted() = %d, want 0", buffer.Evicted())
	}
}

// TestNewRingBuffer_PanicsOnZeroCapacity verifies panic on zero capacity.
func TestNewRingBuffer_PanicsOnZeroCapacity(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewRingBuffer(0) should panic")
		}
	}()
	NewRingBuffer[int](0)
}

// TestRingBuffer_PushEvictsOldest verifies insertion order and eviction.
func TestRingBuffer_PushEvictsOldest(t *testing.T) {
	buffer := NewRingBuffer[int](3)

	for i := 1; i <= 3; i++ {
		if buffer.Push(i) {
			t.Errorf("Push(%d) should not evict", i)
		}
	}
	if !buffer.Push(4) {
		t.Error("Push(4) should evict the oldest item")
	}
	if !buffer.Push(5) {
		t.Error("Push(5) should evict the oldest item")
	}

	got := buffer.Snapshot()
	want := []int{3, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("Snapshot() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Snapshot()[%d] = %d, want %d", i, got[i], want[i])
		}
	}
	if buffer.Evicted() != 2 {
		t.Errorf("Evicted() = %d, want 2", buffer.Evicted())
	}
}

// TestRingBuffer_Last verifies tail selection.
func TestRingBuffer_Last(t *testing.T) {
	buffer := NewRingBuffer[string](5)
	for _, s := range []string{"a", "b", "c", "d"} {
		buffer.Push(s)
	}

	last := buffer.Last(2)
	if len(last) != 2 || last[0] != "c" || last[1] != "d" {
		t.Errorf("Last(2) = %v, want [c d]", last)
	}
	if got := buffer.Last(0); len(got) != 4 {
		t.Errorf("Last(0) should return everything, got %v", got)
	}
	if got := buffer.Last(10); len(got) != 4 {
		t.Errorf("Last(10) should return everything, got %v", got)
	}
}

// TestRingBuffer_Clear verifies reset.
func TestRingBuffer_Clear(t *testing.T) {
	buffer := NewRingBuffer[int](2)
	buffer.Push(1)
	buffer.Push(2)
	buffer.Push(3)

	buffer.Clear()

	if buffer.Len() != 0 {
		t.Errorf("Len() after Clear = %d, want 0", buffer.Len())
	}
	if buffer.Evicted() != 0 {
		t.Errorf("Evicted() after Clear = %d, want 0", buffer.Evicted())
	}
	buffer.Push(7)
	if got := buffer.Snapshot(); len(got) != 1 || got[0] != 7 {
		t.Errorf("Snapshot() after Clear+Push = %v, want [7]", got)
	}
}

// TestRingBuffer_Concurrent verifies no items are lost below capacity.
func TestRingBuffer_Concurrent(t *testing.T) {
	buffer := NewRingBuffer[int](1000)
	var wg sync.WaitGroup

	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				buffer.Push(base*100 + i)
			}
		}(g)
	}
	wg.Wait()

	if buffer.Len() != 500 {
		t.Errorf("Len() = %d, want 500", buffer.Len())
	}
	if buffer.Evicted() != 0 {
		t.Errorf("Evicted() = %d, want 0", buffer.Evicted())
	}
}
