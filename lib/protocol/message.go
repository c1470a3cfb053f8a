// Copyright 2026 The Agent Sidecar Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

// PermissionMode controls how the agent conversation handles tool
// permission prompts.
type PermissionMode string

const (
	// PermissionDefault prompts for each tool use.
	PermissionDefault PermissionMode = "default"

	// PermissionAcceptEdits auto-accepts file edit tools.
	PermissionAcceptEdits PermissionMode = "acceptEdits"

	// PermissionPlan restricts the conversation to planning.
	PermissionPlan PermissionMode = "plan"

	// PermissionBypass skips all permission prompts. This is the
	// default for sidecar-driven conversations — there is no human
	// present to answer a prompt.
	PermissionBypass PermissionMode = "bypassPermissions"
)

// RequestConfig holds the immutable parameters of a single agent
// request. It is created when an agent_request line is parsed, owned
// by that request, and discarded when the request completes.
//
// The envelope keys of the wire protocol are snake_case; the config
// object is produced by the UI layer and uses camelCase keys.
type RequestConfig struct {
	// Prompt is the conversation prompt. Required.
	Prompt string `json:"prompt"`

	// Credential is the API credential applied to the ambient
	// environment for the duration of the request. Required. Never
	// logged.
	Credential string `json:"credential"`

	// WorkingDirectory is where the conversation runs. Required.
	WorkingDirectory string `json:"workingDirectory"`

	// Model selects a specific model, overriding any default the
	// named agent declares.
	Model string `json:"model,omitempty"`

	// AgentName selects a named agent definition.
	AgentName string `json:"agentName,omitempty"`

	// AllowedTools is the ordered tool allow-list.
	AllowedTools []string `json:"allowedTools,omitempty"`

	// MaxTurns caps the conversation length. Zero means the resolver
	// default.
	MaxTurns int `json:"maxTurns,omitempty"`

	// PermissionMode overrides the resolver's default permission mode.
	PermissionMode PermissionMode `json:"permissionMode,omitempty"`

	// ResumeSessionID resumes a prior conversation.
	ResumeSessionID string `json:"resumeSessionId,omitempty"`

	// ProtocolBetas lists beta protocol features to enable.
	ProtocolBetas []string `json:"protocolBetas,omitempty"`

	// ExecutablePathOverride points at an alternate agent executable.
	ExecutablePathOverride string `json:"executablePathOverride,omitempty"`
}

// MessageKind discriminates ControlMessage variants.
type MessageKind string

const (
	// KindAgentRequest starts an agent conversation.
	KindAgentRequest MessageKind = "agent_request"

	// KindCancel aborts the identified in-flight request.
	KindCancel MessageKind = "cancel"

	// KindShutdown begins bounded graceful shutdown.
	KindShutdown MessageKind = "shutdown"

	// KindPing is a liveness probe.
	KindPing MessageKind = "ping"
)

// ControlMessage is a validated inbound message. Variants that carry a
// correlation id always have a non-empty RequestID — Parse rejects
// lines that would violate this.
type ControlMessage struct {
	// Kind identifies the variant.
	Kind MessageKind

	// RequestID is set for KindAgentRequest and KindCancel.
	RequestID string

	// Config is set for KindAgentRequest.
	Config RequestConfig
}

// ReadyMessage announces the sidecar is consuming input. Emitted once,
// before any line is read.
type ReadyMessage struct {
	Type string `json:"type"`
}

// Ready returns the startup announcement.
func Ready() ReadyMessage { return ReadyMessage{Type: "sidecar_ready"} }

// PongMessage replies to a ping.
type PongMessage struct {
	Type string `json:"type"`
}

// Pong returns a ping reply.
func Pong() PongMessage { return PongMessage{Type: "pong"} }

// Lifecycle subtypes for SystemMessage.
const (
	SubtypeInitStart = "init_start"
	SubtypeSDKReady  = "sdk_ready"
	SubtypeSDKStderr = "sdk_stderr"
)

// SystemMessage is a lifecycle or diagnostic event.
type SystemMessage struct {
	Type      string `json:"type"`
	Subtype   string `json:"subtype"`
	Timestamp int64  `json:"timestamp"`
	Data      string `json:"data,omitempty"`
}

// SystemEvent builds a system message. The timestamp is unix
// milliseconds, supplied by the caller so emission stays clock-injectable.
func SystemEvent(subtype string, timestampMillis int64, data string) SystemMessage {
	return SystemMessage{
		Type:      "system",
		Subtype:   subtype,
		Timestamp: timestampMillis,
		Data:      data,
	}
}

// ErrorMessage reports a failure. RequestID is empty for protocol-level
// parse failures and set for request-scoped failures. The field order
// below is load-bearing: a request-scoped message serializes with
// request_id as its first key.
type ErrorMessage struct {
	RequestID string `json:"request_id,omitempty"`
	Type      string `json:"type"`
	Message   string `json:"message"`
}

// RequestError builds a request-scoped error message. Pass an empty id
// for protocol-level errors.
func RequestError(requestID, message string) ErrorMessage {
	return ErrorMessage{RequestID: requestID, Type: "error", Message: message}
}

// CompleteMessage is the terminal marker for a request: always the
// last message bearing its id.
type CompleteMessage struct {
	RequestID string `json:"request_id"`
	Type      string `json:"type"`
}

// RequestComplete builds the terminal marker for a request.
func RequestComplete(requestID string) CompleteMessage {
	return CompleteMessage{RequestID: requestID, Type: "request_complete"}
}
