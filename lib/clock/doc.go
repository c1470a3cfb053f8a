// Copyright 2026 The Agent Sidecar Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// The sidecar has exactly one time-sensitive behavior: the forced-exit
// grace timer armed when a shutdown is requested. Production code
// injects Real(); tests inject Fake() and advance time deterministically
// instead of sleeping.
package clock
