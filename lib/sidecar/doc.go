// Copyright 2026 The Agent Sidecar Authors
// SPDX-License-Identifier: Apache-2.0

// Package sidecar implements the agent request runtime: a single
// event loop that reads control messages from a byte stream, drives
// at most one agent conversation at a time, and streams the
// conversation's output back tagged with the request's correlation id.
//
// The loop enforces single-flight execution: a new agent_request
// preempts the in-flight one (its cancellation is signalled, its
// settlement awaited, its terminal marker emitted) before the new
// request's execution begins. Targeted cancels abort the matching
// request; stale cancels are no-ops. Shutdown — by control message,
// input-stream closure, or OS signal — cancels in-flight work, unwinds
// gracefully, and is bounded by a forced-exit grace timer.
//
// Every request that is accepted produces exactly one terminal
// request_complete marker, preceded by exactly one request-scoped
// error message if it did not succeed. No request failure ever
// terminates the process.
package sidecar
