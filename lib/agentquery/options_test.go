// Copyright 2026 The Agent Sidecar Authors
// SPDX-License-Identifier: Apache-2.0

package agentquery

import (
	"reflect"
	"testing"

	"github.com/hbanerjee74/agent-sidecar/lib/protocol"
)

func baseConfig() protocol.RequestConfig {
	return protocol.RequestConfig{
		Prompt:           "build a skill",
		Credential:       "sk-test",
		WorkingDirectory: "/work",
	}
}

// TestResolveAgentModelPrecedence enumerates the four rows of the
// agent/model decision table.
func TestResolveAgentModelPrecedence(t *testing.T) {
	tests := []struct {
		name               string
		agentName          string
		model              string
		wantAgent          string
		wantSettingSources []string
		wantModel          string
	}{
		{
			name:               "agent only",
			agentName:          "builder",
			wantAgent:          "builder",
			wantSettingSources: []string{"user", "project"},
		},
		{
			name:      "model only",
			model:     "opus",
			wantModel: "opus",
		},
		{
			name:               "agent and model",
			agentName:          "builder",
			model:              "opus",
			wantAgent:          "builder",
			wantSettingSources: []string{"user", "project"},
			wantModel:          "opus",
		},
		{
			name: "neither",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			config := baseConfig()
			config.AgentName = test.agentName
			config.Model = test.model

			options := ResolveOptions(config)
			if options.Agent != test.wantAgent {
				t.Fatalf("Agent = %q, want %q", options.Agent, test.wantAgent)
			}
			if !reflect.DeepEqual(options.SettingSources, test.wantSettingSources) {
				t.Fatalf("SettingSources = %v, want %v", options.SettingSources, test.wantSettingSources)
			}
			if options.Model != test.wantModel {
				t.Fatalf("Model = %q, want %q", options.Model, test.wantModel)
			}
		})
	}
}

func TestResolveDefaults(t *testing.T) {
	options := ResolveOptions(baseConfig())

	if options.MaxTurns != DefaultMaxTurns {
		t.Fatalf("MaxTurns = %d, want %d", options.MaxTurns, DefaultMaxTurns)
	}
	if options.PermissionMode != protocol.PermissionBypass {
		t.Fatalf("PermissionMode = %q, want %q", options.PermissionMode, protocol.PermissionBypass)
	}
	if options.WorkingDirectory != "/work" {
		t.Fatalf("WorkingDirectory = %q", options.WorkingDirectory)
	}
	if options.Resume != "" || options.Betas != nil || options.ExecutablePath != "" {
		t.Fatalf("conditional fields set without config: %+v", options)
	}
}

func TestResolveExplicitTuning(t *testing.T) {
	config := baseConfig()
	config.MaxTurns = 7
	config.PermissionMode = protocol.PermissionPlan
	config.AllowedTools = []string{"Read", "Bash"}
	config.ResumeSessionID = "s42"
	config.ProtocolBetas = []string{"beta-1", "beta-2"}
	config.ExecutablePathOverride = "/opt/claude"

	options := ResolveOptions(config)
	if options.MaxTurns != 7 {
		t.Fatalf("MaxTurns = %d, want 7", options.MaxTurns)
	}
	if options.PermissionMode != protocol.PermissionPlan {
		t.Fatalf("PermissionMode = %q", options.PermissionMode)
	}
	if !reflect.DeepEqual(options.AllowedTools, []string{"Read", "Bash"}) {
		t.Fatalf("AllowedTools = %v", options.AllowedTools)
	}
	if options.Resume != "s42" {
		t.Fatalf("Resume = %q", options.Resume)
	}
	if !reflect.DeepEqual(options.Betas, []string{"beta-1", "beta-2"}) {
		t.Fatalf("Betas = %v", options.Betas)
	}
	if options.ExecutablePath != "/opt/claude" {
		t.Fatalf("ExecutablePath = %q", options.ExecutablePath)
	}
}

// TestResolveIsPure runs the resolver twice on the same config and on
// a mutated copy of its output, confirming no shared state.
func TestResolveIsPure(t *testing.T) {
	config := baseConfig()
	config.AgentName = "builder"

	first := ResolveOptions(config)
	first.SettingSources[0] = "mutated"

	second := ResolveOptions(config)
	if second.SettingSources[0] != "user" {
		t.Fatalf("resolver output shares state across calls: %v", second.SettingSources)
	}
}
