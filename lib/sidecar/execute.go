// Copyright 2026 The Agent Sidecar Authors
// SPDX-License-Identifier: Apache-2.0

package sidecar

import (
	"context"
	"fmt"
	"os"

	"github.com/hbanerjee74/agent-sidecar/lib/agentquery"
	"github.com/hbanerjee74/agent-sidecar/lib/protocol"
)

// credentialEnvironmentVariable is where the capability expects the
// request's credential.
const credentialEnvironmentVariable = "ANTHROPIC_API_KEY"

// execute drives one agent conversation to completion. It emits
// lifecycle markers and forwards every conversation element verbatim —
// including result elements with their is_error, stop_reason, and
// cost fields — without interpreting any of them. The returned error
// is the request's failure outcome; nil means the conversation's
// sequence was exhausted normally.
func (r *Runtime) execute(ctx context.Context, requestID string, config protocol.RequestConfig) error {
	// Emitted before touching the capability so the caller observes
	// progress even when construction fails synchronously.
	r.emitSystem(protocol.SubtypeInitStart, "")

	// The capability reads the credential from the ambient
	// environment for the duration of the request.
	if err := os.Setenv(credentialEnvironmentVariable, config.Credential); err != nil {
		return r.asAbort(ctx, fmt.Errorf("applying credential: %w", err))
	}

	conversation, err := r.capability.Query(ctx, config.Prompt, agentquery.ResolveOptions(config))
	if err != nil {
		return r.asAbort(ctx, fmt.Errorf("starting conversation: %w", err))
	}
	r.emitSystem(protocol.SubtypeSDKReady, "")

	messages := conversation.Messages()
	stderrLines := conversation.Stderr()
	for messages != nil || stderrLines != nil {
		select {
		case payload, ok := <-messages:
			if !ok {
				messages = nil
				continue
			}
			if err := r.writer.WriteTagged(requestID, payload); err != nil {
				r.logger.Warn("forwarding conversation message", "request_id", requestID, "error", err)
			}

		case line, ok := <-stderrLines:
			if !ok {
				stderrLines = nil
				continue
			}
			r.emitSystem(protocol.SubtypeSDKStderr, line)
		}
	}

	if err := conversation.Err(); err != nil {
		return r.asAbort(ctx, err)
	}
	return nil
}

// asAbort marks failures caused by cancellation so callers of the
// protocol can distinguish an aborted request from an organic failure.
func (r *Runtime) asAbort(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("aborted: %w", err)
	}
	return err
}

// emitSystem writes a lifecycle event stamped with the injected clock.
func (r *Runtime) emitSystem(subtype, data string) {
	r.writeOut(protocol.SystemEvent(subtype, r.clock.Now().UnixMilli(), data))
}
