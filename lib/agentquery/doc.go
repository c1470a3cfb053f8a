// Copyright 2026 The Agent Sidecar Authors
// SPDX-License-Identifier: Apache-2.0

// Package agentquery is the boundary to the agent conversation
// capability.
//
// A [Capability] turns a prompt plus resolved [Options] into a
// [Conversation]: a lazy, finite, non-restartable sequence of opaque
// JSON messages that may fail at any point, including before the first
// element. The sidecar forwards conversation elements verbatim and
// never interprets their content.
//
// [ResolveOptions] maps a request's configuration onto Options,
// encoding the agent/model precedence rules. Cancellation is the
// context passed to Query: advisory, cooperative, no hard kill beyond
// the signal it implies.
//
// The production capability is [CLICapability], which spawns the
// Claude Code CLI in stream-json print mode. Tests substitute fakes.
package agentquery
