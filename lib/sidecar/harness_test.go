// Copyright 2026 The Agent Sidecar Authors
// SPDX-License-Identifier: Apache-2.0

package sidecar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hbanerjee74/agent-sidecar/lib/agentquery"
	"github.com/hbanerjee74/agent-sidecar/lib/clock"
	"github.com/hbanerjee74/agent-sidecar/lib/testutil"
)

const testTimeout = 5 * time.Second

// fakeConversation implements agentquery.Conversation with channels
// the test scripts directly.
type fakeConversation struct {
	messages    chan json.RawMessage
	stderrLines chan string

	mutex sync.Mutex
	err   error
	once  sync.Once
}

func newFakeConversation() *fakeConversation {
	return &fakeConversation{
		messages:    make(chan json.RawMessage, 16),
		stderrLines: make(chan string, 16),
	}
}

func (c *fakeConversation) Messages() <-chan json.RawMessage { return c.messages }

func (c *fakeConversation) Stderr() <-chan string { return c.stderrLines }

func (c *fakeConversation) Err() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.err
}

func (c *fakeConversation) emit(payload string) {
	c.messages <- json.RawMessage(payload)
}

func (c *fakeConversation) emitStderr(line string) {
	c.stderrLines <- line
}

// finish ends the sequence. Idempotent — the auto-abort watcher and
// the test may both call it.
func (c *fakeConversation) finish(err error) {
	c.once.Do(func() {
		c.mutex.Lock()
		c.err = err
		c.mutex.Unlock()
		close(c.stderrLines)
		close(c.messages)
	})
}

// fakeCapability hands out scripted conversations. With autoAbort set
// (the default), a conversation settles itself with an error when its
// query context is cancelled, mimicking a cooperative capability.
type fakeCapability struct {
	mutex      sync.Mutex
	startError error
	autoAbort  bool
	prompts    []string
	options    []agentquery.Options

	conversations chan *fakeConversation
	credentials   chan string
}

func newFakeCapability() *fakeCapability {
	return &fakeCapability{
		autoAbort:     true,
		conversations: make(chan *fakeConversation, 4),
		credentials:   make(chan string, 4),
	}
}

func (f *fakeCapability) Query(ctx context.Context, prompt string, options agentquery.Options) (agentquery.Conversation, error) {
	f.mutex.Lock()
	f.prompts = append(f.prompts, prompt)
	f.options = append(f.options, options)
	startError := f.startError
	autoAbort := f.autoAbort
	f.mutex.Unlock()

	// Record the ambient credential as the capability would see it.
	f.credentials <- os.Getenv(credentialEnvironmentVariable)

	if startError != nil {
		return nil, startError
	}

	conversation := newFakeConversation()
	if autoAbort {
		go func() {
			<-ctx.Done()
			conversation.finish(fmt.Errorf("conversation interrupted: %w", ctx.Err()))
		}()
	}
	f.conversations <- conversation
	return conversation, nil
}

// outputRecorder splits the runtime's output into lines. The
// LineWriter issues exactly one Write per line.
type outputRecorder struct {
	lines chan string
}

func (r *outputRecorder) Write(p []byte) (int, error) {
	r.lines <- strings.TrimRight(string(p), "\n")
	return len(p), nil
}

// harness runs a Runtime against scripted input/output streams.
type harness struct {
	t          *testing.T
	runtime    *Runtime
	capability *fakeCapability
	input      *io.PipeWriter
	lines      chan string
	exitCodes  chan int
	clock      *clock.FakeClock
	done       chan error
}

// startHarness boots a runtime on a fake capability and consumes the
// sidecar_ready announcement.
func startHarness(t *testing.T, extra ...Option) *harness {
	t.Helper()

	inputReader, inputWriter := io.Pipe()
	recorder := &outputRecorder{lines: make(chan string, 64)}
	capability := newFakeCapability()
	fakeClock := clock.Fake(time.UnixMilli(1700000000000))
	exitCodes := make(chan int, 4)

	options := append([]Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(fakeClock),
		WithExitFunc(func(code int) { exitCodes <- code }),
	}, extra...)
	agentRuntime := New(capability, inputReader, recorder, options...)

	done := make(chan error, 1)
	go func() { done <- agentRuntime.Run(context.Background()) }()

	h := &harness{
		t:          t,
		runtime:    agentRuntime,
		capability: capability,
		input:      inputWriter,
		lines:      recorder.lines,
		exitCodes:  exitCodes,
		clock:      fakeClock,
		done:       done,
	}
	t.Cleanup(func() { inputWriter.Close() })

	h.expectLine(`"type":"sidecar_ready"`)
	return h
}

// send writes one input line.
func (h *harness) send(line string) {
	h.t.Helper()
	if _, err := io.WriteString(h.input, line+"\n"); err != nil {
		h.t.Fatalf("writing input line: %v", err)
	}
}

// closeInput simulates the consumer hanging up.
func (h *harness) closeInput() {
	h.input.Close()
}

// nextLine returns the next output line, asserting it is valid JSON on
// its own.
func (h *harness) nextLine() string {
	h.t.Helper()
	line := testutil.RequireReceive(h.t, h.lines, testTimeout, "waiting for output line")
	if !json.Valid([]byte(line)) {
		h.t.Fatalf("output line is not self-contained JSON: %s", line)
	}
	return line
}

// expectLine asserts the next output line contains every fragment.
func (h *harness) expectLine(fragments ...string) string {
	h.t.Helper()
	line := h.nextLine()
	for _, fragment := range fragments {
		if !strings.Contains(line, fragment) {
			h.t.Fatalf("output line %s missing %q", line, fragment)
		}
	}
	return line
}

// expectSilence asserts no output arrives within a short window.
func (h *harness) expectSilence() {
	h.t.Helper()
	testutil.RequireNoReceive(h.t, h.lines, 100*time.Millisecond, "expected no output")
}

// expectDone asserts Run returned nil.
func (h *harness) expectDone() {
	h.t.Helper()
	if err := testutil.RequireReceive(h.t, h.done, testTimeout, "waiting for Run to return"); err != nil {
		h.t.Fatalf("Run returned %v, want nil", err)
	}
}

// conversation waits for the capability to hand out the next scripted
// conversation.
func (h *harness) conversation() *fakeConversation {
	h.t.Helper()
	return testutil.RequireReceive(h.t, h.capability.conversations, testTimeout, "waiting for capability query")
}

// agentRequestLine builds a minimal valid agent_request.
func agentRequestLine(requestID string) string {
	return fmt.Sprintf(
		`{"type":"agent_request","request_id":%q,"config":{"prompt":"p","credential":"sk-test","workingDirectory":"/work"}}`,
		requestID,
	)
}
