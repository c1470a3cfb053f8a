// Copyright 2026 The Agent Sidecar Authors
// SPDX-License-Identifier: Apache-2.0

package sidecar

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/hbanerjee74/agent-sidecar/lib/agentquery"
	"github.com/hbanerjee74/agent-sidecar/lib/clock"
	"github.com/hbanerjee74/agent-sidecar/lib/protocol"
)

const (
	// defaultShutdownGrace bounds graceful unwind after a shutdown is
	// requested. When it elapses the process force-exits with code 0.
	defaultShutdownGrace = 3 * time.Second

	// defaultMaxLineBytes bounds a single input line.
	defaultMaxLineBytes = 1024 * 1024

	inputScannerBuffer = 64 * 1024
)

// Runtime is the agent request runtime. Build one with New, then call
// Run exactly once.
type Runtime struct {
	capability agentquery.Capability
	input      io.Reader
	writer     *protocol.LineWriter
	logger     *slog.Logger
	clock      clock.Clock
	exit       func(code int)
	grace      time.Duration
	maxLine    int

	shutdownOnce      sync.Once
	shutdownRequested chan struct{}
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger sets the structured logger. Defaults to a text handler on
// stderr.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runtime) { r.logger = logger }
}

// WithClock injects the time source for the forced-exit grace timer.
func WithClock(c clock.Clock) Option {
	return func(r *Runtime) { r.clock = c }
}

// WithExitFunc replaces os.Exit for the forced-exit path.
func WithExitFunc(exit func(code int)) Option {
	return func(r *Runtime) { r.exit = exit }
}

// WithShutdownGrace overrides the forced-exit grace period.
func WithShutdownGrace(grace time.Duration) Option {
	return func(r *Runtime) {
		if grace > 0 {
			r.grace = grace
		}
	}
}

// WithMaxLineBytes overrides the input line length bound.
func WithMaxLineBytes(limit int) Option {
	return func(r *Runtime) {
		if limit > 0 {
			r.maxLine = limit
		}
	}
}

// New builds a Runtime reading control messages from input and writing
// protocol lines to output.
func New(capability agentquery.Capability, input io.Reader, output io.Writer, options ...Option) *Runtime {
	runtime := &Runtime{
		capability:        capability,
		input:             input,
		writer:            protocol.NewLineWriter(output),
		logger:            slog.New(slog.NewTextHandler(os.Stderr, nil)),
		clock:             clock.Real(),
		exit:              os.Exit,
		grace:             defaultShutdownGrace,
		maxLine:           defaultMaxLineBytes,
		shutdownRequested: make(chan struct{}),
	}
	for _, option := range options {
		option(runtime)
	}
	return runtime
}

// inFlight is the supervisor's record of the running request. It lives
// as a local variable of the Run loop: nothing outside the loop can
// reach it, so cancellation and preemption are always expressed as
// messages the loop processes itself.
type inFlight struct {
	id     string
	cancel context.CancelFunc
}

// pendingRequest is a request accepted while another was running. It
// starts once the running request settles.
type pendingRequest struct {
	id     string
	config protocol.RequestConfig
}

// settlement reports how a started request's execution ended.
type settlement struct {
	id  string
	err error
}

// Run announces readiness, then processes control messages until the
// input stream closes, a shutdown message arrives, or RequestShutdown
// is called. It returns nil on every defined exit path — request and
// protocol failures are reported over the output stream, never as a
// process error.
func (r *Runtime) Run(ctx context.Context) error {
	if err := r.writer.Write(protocol.Ready()); err != nil {
		return fmt.Errorf("announcing readiness: %w", err)
	}

	// runCtx is the shared cancellation primitive: per-request
	// contexts derive from it, and shutdown cancels it.
	runCtx, cancelAll := context.WithCancel(ctx)
	defer cancelAll()

	lines := r.readLines(runCtx)

	// Buffered so a settling request never blocks on the loop.
	// Single-flight execution means at most one outstanding settlement.
	settlements := make(chan settlement, 1)

	var current *inFlight
	var pending *pendingRequest

	for {
		select {
		case line, ok := <-lines:
			if !ok {
				r.logger.Info("input stream closed, shutting down")
				return r.shutdown(cancelAll, current, pending, settlements)
			}

			message, err := protocol.Parse(line)
			if err != nil {
				if errors.Is(err, protocol.ErrEmptyLine) {
					continue
				}
				var parseError *protocol.ParseError
				if errors.As(err, &parseError) {
					r.logger.Warn("rejecting input line", "reason", parseError.Reason)
					r.writeOut(protocol.RequestError("", "Unrecognized input: "+parseError.Line))
					continue
				}
				// Parse returns only ErrEmptyLine or *ParseError;
				// anything else is a bug worth surfacing, still
				// without killing the loop.
				r.writeOut(protocol.RequestError("", err.Error()))
				continue
			}

			switch message.Kind {
			case protocol.KindPing:
				r.writeOut(protocol.Pong())

			case protocol.KindShutdown:
				r.logger.Info("shutdown requested")
				return r.shutdown(cancelAll, current, pending, settlements)

			case protocol.KindCancel:
				switch {
				case current != nil && current.id == message.RequestID:
					r.logger.Info("cancelling request", "request_id", message.RequestID)
					current.cancel()
				case pending != nil && pending.id == message.RequestID:
					r.failBeforeStart(pending, "cancelled")
					pending = nil
				default:
					// Stale or unknown cancel: a no-op, not an error.
					r.logger.Debug("ignoring cancel for unknown request", "request_id", message.RequestID)
				}

			case protocol.KindAgentRequest:
				if current == nil {
					current = r.start(runCtx, message.RequestID, message.Config, settlements)
					continue
				}
				// Preempt: signal the running request and queue this
				// one. Its execution begins only after the running
				// request has fully settled.
				r.logger.Info("preempting in-flight request",
					"request_id", current.id, "superseded_by", message.RequestID)
				if pending != nil {
					r.failBeforeStart(pending, "superseded")
				}
				pending = &pendingRequest{id: message.RequestID, config: message.Config}
				current.cancel()
			}

		case <-r.shutdownRequested:
			r.logger.Info("shutdown requested by signal")
			return r.shutdown(cancelAll, current, pending, settlements)

		case settled := <-settlements:
			r.finish(settled)
			current = nil
			if pending != nil {
				current = r.start(runCtx, pending.id, pending.config, settlements)
				pending = nil
			}
		}
	}
}

// RequestShutdown triggers the same shutdown path as a shutdown
// control message. Safe to call from any goroutine, any number of
// times; used by the entrypoint's signal handler.
func (r *Runtime) RequestShutdown() {
	r.shutdownOnce.Do(func() { close(r.shutdownRequested) })
}

// readLines feeds input lines to the loop. The channel closes on EOF
// or read error; a read error is logged, not fatal — the loop treats
// both as input closure.
func (r *Runtime) readLines(ctx context.Context) <-chan []byte {
	lines := make(chan []byte)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r.input)
		scanner.Buffer(make([]byte, 0, inputScannerBuffer), r.maxLine)
		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			r.logger.Warn("reading input stream", "error", err)
		}
	}()
	return lines
}

// start launches execution of a request on its own goroutine and
// returns the supervisor record. The request's context derives from
// runCtx so a shutdown cancels it too.
func (r *Runtime) start(runCtx context.Context, requestID string, config protocol.RequestConfig, settlements chan<- settlement) *inFlight {
	r.logger.Info("starting request",
		"request_id", requestID,
		"working_directory", config.WorkingDirectory,
		"agent", config.AgentName,
		"model", config.Model,
	)

	requestCtx, cancel := context.WithCancel(runCtx)
	go func() {
		err := r.execute(requestCtx, requestID, config)
		settlements <- settlement{id: requestID, err: err}
	}()

	return &inFlight{id: requestID, cancel: cancel}
}

// finish emits the terminal pair for a settled request: one error
// message when it failed, always one request_complete marker.
func (r *Runtime) finish(settled settlement) {
	if settled.err != nil {
		r.logger.Warn("request failed", "request_id", settled.id, "error", settled.err)
		r.writeOut(protocol.RequestError(settled.id, settled.err.Error()))
	} else {
		r.logger.Info("request complete", "request_id", settled.id)
	}
	r.writeOut(protocol.RequestComplete(settled.id))
}

// failBeforeStart emits the terminal pair for a request that was
// accepted but displaced or cancelled before its execution began.
func (r *Runtime) failBeforeStart(pending *pendingRequest, cause string) {
	r.logger.Info("aborting queued request", "request_id", pending.id, "cause", cause)
	r.writeOut(protocol.RequestError(pending.id, "aborted before start: "+cause))
	r.writeOut(protocol.RequestComplete(pending.id))
}

// writeOut writes one outgoing message, logging rather than failing on
// a broken output stream: the loop's own lifecycle is governed by the
// input stream.
func (r *Runtime) writeOut(message any) {
	if err := r.writer.Write(message); err != nil {
		r.logger.Warn("writing output line", "error", err)
	}
}
