// Copyright 2026 The Agent Sidecar Authors
// SPDX-License-Identifier: Apache-2.0

// Package protocol defines the sidecar's wire protocol: one JSON
// object per line in each direction.
//
// Inbound lines parse into a [ControlMessage] — a closed set of tagged
// variants (agent_request, cancel, shutdown, ping). Parsing is total:
// a line either yields a valid variant, is an ignorable blank, or is a
// reject reported as a protocol-level error. Invalid variants (a
// cancel without a request id, an agent_request without a config) are
// never constructed.
//
// Outbound messages are either structured sidecar messages (ready,
// pong, system events, errors, completion markers) or passthrough
// payloads forwarded verbatim from the agent conversation with the
// request's correlation id spliced in as the first key.
package protocol
