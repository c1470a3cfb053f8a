// Copyright 2026 The Agent Sidecar Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides channel assertion helpers for tests.
//
// The sidecar's tests coordinate goroutines through channels (output
// lines, settlement signals, exit notifications). These helpers wrap
// the receive-with-timeout pattern so individual tests do not need
// their own time.After safety valves.
package testutil
