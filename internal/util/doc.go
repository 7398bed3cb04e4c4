// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package util provides foundational utilities for the Resonance client.
//
// This package has no dependencies on other internal packages and depends
// only on the Go standard library, making it a leaf in the dependency graph.
//
// # Overview
//
//   - Timeout Management: defaults and floors for every remote call
//   - Ring Buffer: bounded, thread-safe history with oldest-first eviction
//   - Goroutine Safety: panic recovery for background loops
//   - Paths: ~ expansion for configured data directories
//
// # Thread Safety
//
//   - [RingBuffer] is fully thread-safe (protected by mutex)
//   - [TimeoutConfig] is a value type; copy it, don't share pointers
//
// # Key Types
//
// Timeout utilities:
//
//	cfg := util.NewTimeoutConfig().Validated()
//	timeout := util.EnforceMinTimeout(requested, util.MinRemoteTimeout)
//
// Ring buffer:
//
//	buffer := util.NewRingBuffer[analysis.Result](500)
//	buffer.Push(result)
//	recent := buffer.Last(10)
//
// Safe goroutines:
//
//	done := util.SafeGo(loop, func(p util.PanicInfo) {
//	    logger.Error("panic recovered", "panic", p.Value)
//	})
package util
