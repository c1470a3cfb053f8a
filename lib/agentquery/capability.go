// Copyright 2026 The Agent Sidecar Authors
// SPDX-License-Identifier: Apache-2.0

package agentquery

import (
	"context"
	"encoding/json"
)

// Capability starts agent conversations. Implementations must treat
// the context as the conversation's cancellation handle: when it is
// cancelled, the conversation should stop producing messages and
// report an error promptly.
type Capability interface {
	// Query starts a conversation for the given prompt. A non-nil
	// error means construction itself failed and no Conversation
	// exists.
	Query(ctx context.Context, prompt string, options Options) (Conversation, error)
}

// Conversation is one in-flight agent conversation.
type Conversation interface {
	// Messages delivers the conversation's elements in production
	// order, each an opaque JSON object. The channel is closed when
	// the sequence ends, normally or not.
	Messages() <-chan json.RawMessage

	// Stderr delivers diagnostic side-channel lines. Closed before
	// Messages closes.
	Stderr() <-chan string

	// Err reports how the sequence ended. Valid only after Messages
	// is closed; nil means normal exhaustion.
	Err() error
}
