// Copyright 2026 The Agent Sidecar Authors
// SPDX-License-Identifier: Apache-2.0

package agentquery

import (
	"reflect"
	"strings"
	"testing"

	"github.com/hbanerjee74/agent-sidecar/lib/protocol"
)

func TestBuildArgumentsMinimal(t *testing.T) {
	options := ResolveOptions(baseConfig())
	arguments := buildArguments("do the thing", options)

	want := []string{
		"--output-format", "stream-json",
		"--print",
		"--verbose",
		"--max-turns", "50",
		"--permission-mode", "bypassPermissions",
		"do the thing",
	}
	if !reflect.DeepEqual(arguments, want) {
		t.Fatalf("buildArguments = %v, want %v", arguments, want)
	}
}

func TestBuildArgumentsFull(t *testing.T) {
	config := baseConfig()
	config.AgentName = "builder"
	config.Model = "opus"
	config.AllowedTools = []string{"Read", "Bash"}
	config.MaxTurns = 9
	config.PermissionMode = protocol.PermissionPlan
	config.ResumeSessionID = "s1"
	config.ProtocolBetas = []string{"b1", "b2"}

	arguments := buildArguments("p", ResolveOptions(config))
	joined := strings.Join(arguments, " ")

	for _, fragment := range []string{
		"--agent builder",
		"--setting-sources user,project",
		"--model opus",
		"--allowed-tools Read,Bash",
		"--max-turns 9",
		"--permission-mode plan",
		"--resume s1",
		"--beta b1",
		"--beta b2",
	} {
		if !strings.Contains(joined, fragment) {
			t.Fatalf("arguments missing %q: %v", fragment, arguments)
		}
	}
	if arguments[len(arguments)-1] != "p" {
		t.Fatalf("prompt is not the final positional argument: %v", arguments)
	}
}

func TestBuildArgumentsModelOnlyOmitsAgentFlags(t *testing.T) {
	config := baseConfig()
	config.Model = "opus"

	joined := strings.Join(buildArguments("p", ResolveOptions(config)), " ")
	if strings.Contains(joined, "--agent") || strings.Contains(joined, "--setting-sources") {
		t.Fatalf("model-only request produced agent flags: %s", joined)
	}
}
