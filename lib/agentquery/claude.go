// Copyright 2026 The Agent Sidecar Authors
// SPDX-License-Identifier: Apache-2.0

package agentquery

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
)

// defaultScannerBuffer and maxLineBytes size the stdout scanner.
// Claude Code can produce very long lines (tool results carrying whole
// file contents).
const (
	defaultScannerBuffer = 64 * 1024
	defaultMaxLineBytes  = 1024 * 1024
)

// CLICapability runs conversations by spawning the Claude Code CLI
// with stream-json output. Each Query is one subprocess; cancelling
// the query context kills it.
type CLICapability struct {
	// DefaultExecutable is the agent binary used when a request does
	// not override it. Empty falls back to $CLAUDE_BINARY, then
	// "claude" on PATH.
	DefaultExecutable string

	// MaxLineBytes bounds a single stdout line. Zero uses the default
	// 1 MiB.
	MaxLineBytes int
}

// Query spawns the CLI and streams its stdout lines as conversation
// messages. The credential is expected in the ambient environment —
// the execution wrapper applies it before calling Query.
func (capability *CLICapability) Query(ctx context.Context, prompt string, options Options) (Conversation, error) {
	binary := options.ExecutablePath
	if binary == "" {
		binary = capability.DefaultExecutable
	}
	if binary == "" {
		binary = os.Getenv("CLAUDE_BINARY")
	}
	if binary == "" {
		binary = "claude"
	}

	command := exec.CommandContext(ctx, binary, buildArguments(prompt, options)...)
	command.Dir = options.WorkingDirectory
	command.Env = os.Environ()

	stdout, err := command.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("creating stdout pipe: %w", err)
	}
	stderr, err := command.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("creating stderr pipe: %w", err)
	}

	if err := command.Start(); err != nil {
		return nil, fmt.Errorf("starting agent executable %q: %w", binary, err)
	}

	conversation := &cliConversation{
		messages:    make(chan json.RawMessage, 64),
		stderrLines: make(chan string, 16),
	}

	maxLine := capability.MaxLineBytes
	if maxLine <= 0 {
		maxLine = defaultMaxLineBytes
	}

	var stderrDone sync.WaitGroup
	stderrDone.Add(1)
	go func() {
		defer stderrDone.Done()
		scanner := bufio.NewScanner(stderr)
		scanner.Buffer(make([]byte, 0, defaultScannerBuffer), maxLine)
		for scanner.Scan() {
			conversation.stderrLines <- scanner.Text()
		}
	}()

	go func() {
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 0, defaultScannerBuffer), maxLine)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			conversation.messages <- json.RawMessage(append([]byte(nil), line...))
		}
		scanError := scanner.Err()

		// Both pipes must be drained before Wait, which closes them.
		stderrDone.Wait()
		close(conversation.stderrLines)
		waitError := command.Wait()

		switch {
		case scanError != nil:
			conversation.err = fmt.Errorf("reading agent output: %w", scanError)
		case waitError != nil:
			conversation.err = fmt.Errorf("agent process: %w", waitError)
		}
		close(conversation.messages)
	}()

	return conversation, nil
}

// cliConversation carries the subprocess's output streams. err is
// written before messages is closed and read only after — the channel
// close is the synchronization point.
type cliConversation struct {
	messages    chan json.RawMessage
	stderrLines chan string
	err         error
}

func (c *cliConversation) Messages() <-chan json.RawMessage { return c.messages }

func (c *cliConversation) Stderr() <-chan string { return c.stderrLines }

func (c *cliConversation) Err() error { return c.err }

// buildArguments maps resolved Options onto the CLI's flag surface.
// The prompt is the final positional argument.
func buildArguments(prompt string, options Options) []string {
	arguments := []string{
		"--output-format", "stream-json",
		"--print",
		"--verbose",
	}

	if options.Agent != "" {
		arguments = append(arguments, "--agent", options.Agent)
	}
	if len(options.SettingSources) > 0 {
		arguments = append(arguments, "--setting-sources", strings.Join(options.SettingSources, ","))
	}
	if options.Model != "" {
		arguments = append(arguments, "--model", options.Model)
	}
	if len(options.AllowedTools) > 0 {
		arguments = append(arguments, "--allowed-tools", strings.Join(options.AllowedTools, ","))
	}
	arguments = append(arguments, "--max-turns", strconv.Itoa(options.MaxTurns))
	arguments = append(arguments, "--permission-mode", string(options.PermissionMode))
	if options.Resume != "" {
		arguments = append(arguments, "--resume", options.Resume)
	}
	for _, beta := range options.Betas {
		arguments = append(arguments, "--beta", beta)
	}

	arguments = append(arguments, prompt)
	return arguments
}
