// Copyright 2026 The Agent Sidecar Authors
// SPDX-License-Identifier: Apache-2.0

package sidecar

import (
	"context"
)

// shutdown converts a shutdown trigger (control message, input
// closure, or signal) into a bounded graceful unwind:
//
//  1. cancel the shared context, aborting any in-flight execution;
//  2. arm the forced-exit timer — if graceful unwind does not finish
//     within the grace period, the process exits 0 anyway;
//  3. await the in-flight request's settlement so it is cancelled, not
//     abandoned — its error and completion markers still go out;
//  4. emit the terminal pair for a request that never got to start.
//
// Shutdown is always a clean exit from the runtime's perspective:
// abnormal outcomes were reported as protocol messages, never as an
// exit code.
func (r *Runtime) shutdown(cancelAll context.CancelFunc, current *inFlight, pending *pendingRequest, settlements <-chan settlement) error {
	cancelAll()

	timer := r.clock.AfterFunc(r.grace, func() {
		r.logger.Warn("grace period elapsed, forcing exit")
		r.exit(0)
	})

	if current != nil {
		r.finish(<-settlements)
	}
	if pending != nil {
		r.failBeforeStart(pending, "shutdown")
	}

	timer.Stop()
	return nil
}
