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
	"runtime/debug"
)

// PanicInfo describes a panic recovered from a background goroutine.
type PanicInfo struct {
	// Value is whatever was passed to panic().
	Value any

	// Stack is the stack trace captured at recovery time.
	Stack string
}

// SafeGo runs fn in a new goroutine and recovers any panic.
//
// # Description
//
// Background loops (the metrics poller, the startup probe) must never take
// the process down. A recovered panic is handed to onPanic, which may be nil.
//
// # Outputs
//
//   - <-chan struct{}: closed when fn returns or panics
//
// # Example
//
//	done := util.SafeGo(func() { poller.Run(ctx) }, func(p util.PanicInfo) {
//	    logger.Error("poller panicked", "panic", p.Value, "stack", p.Stack)
//	})
//	<-done
func SafeGo(fn func(), onPanic func(PanicInfo)) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer RecoverPanic(onPanic)()
		fn()
	}()
	return done
}

// RecoverPanic returns a function for use with defer that recovers a panic
// and reports it to onPanic.
//
// # Example
//
//	defer util.RecoverPanic(handler)()
func RecoverPanic(onPanic func(PanicInfo)) func() {
	return func() {
		if r := recover(); r != nil {
			if onPanic != nil {
				onPanic(PanicInfo{Value: r, Stack: string(debug.Stack())})
			}
		}
	}
}
