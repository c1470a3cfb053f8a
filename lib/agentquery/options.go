// Copyright 2026 The Agent Sidecar Authors
// SPDX-License-Identifier: Apache-2.0

package agentquery

import (
	"github.com/hbanerjee74/agent-sidecar/lib/protocol"
)

// DefaultMaxTurns caps conversations whose request did not set a
// turn limit.
const DefaultMaxTurns = 50

// agentSettingSources is the setting-source set loaded when a named
// agent is selected. Agent definitions live in user and project
// settings, so both are needed to resolve the name.
var agentSettingSources = []string{"user", "project"}

// Options is the resolved parameter set handed to Capability.Query.
// The conversation's cancellation handle is the context passed
// alongside it.
type Options struct {
	// Agent is the named agent definition to run. Set only when the
	// request names one.
	Agent string

	// SettingSources lists the settings scopes to load. Set only when
	// Agent is set — it exists to make the agent name resolvable.
	SettingSources []string

	// Model pins a specific model. When both Agent and Model are set,
	// Model wins over any default the agent declares.
	Model string

	// WorkingDirectory is where the conversation runs.
	WorkingDirectory string

	// AllowedTools is the ordered tool allow-list.
	AllowedTools []string

	// MaxTurns caps the conversation length.
	MaxTurns int

	// PermissionMode controls tool permission prompts.
	PermissionMode protocol.PermissionMode

	// Resume is a prior session id to continue. Empty starts fresh.
	Resume string

	// Betas lists beta protocol features to enable.
	Betas []string

	// ExecutablePath overrides the agent executable for this
	// conversation. Empty uses the capability's default.
	ExecutablePath string
}

// ResolveOptions maps a request's configuration onto Options. Pure —
// same config, same options.
//
// Agent/model precedence:
//
//	agent set, model unset  → Agent + SettingSources
//	agent unset, model set  → Model
//	both set                → Agent + SettingSources + Model
//	neither                 → none of the three
func ResolveOptions(config protocol.RequestConfig) Options {
	options := Options{
		WorkingDirectory: config.WorkingDirectory,
		AllowedTools:     config.AllowedTools,
		MaxTurns:         config.MaxTurns,
		PermissionMode:   config.PermissionMode,
		Resume:           config.ResumeSessionID,
		Betas:            config.ProtocolBetas,
		ExecutablePath:   config.ExecutablePathOverride,
	}

	if options.MaxTurns <= 0 {
		options.MaxTurns = DefaultMaxTurns
	}
	if options.PermissionMode == "" {
		options.PermissionMode = protocol.PermissionBypass
	}

	if config.AgentName != "" {
		options.Agent = config.AgentName
		options.SettingSources = append([]string(nil), agentSettingSources...)
	}
	if config.Model != "" {
		options.Model = config.Model
	}

	return options
}
