// Copyright 2026 The Agent Sidecar Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
)

// ErrEmptyLine marks a blank or whitespace-only input line. Callers
// skip these silently — they are not protocol errors.
var ErrEmptyLine = errors.New("protocol: empty line")

// ParseError is a reject: a non-empty line that does not form a valid
// ControlMessage. The caller reports it as a protocol-level error (no
// correlation id) and keeps reading.
type ParseError struct {
	// Line is the offending input, whitespace-trimmed.
	Line string

	// Reason describes the validation failure.
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("protocol: %s: %s", e.Reason, e.Line)
}

// controlEnvelope is the superset of inbound wire fields.
type controlEnvelope struct {
	Type      string         `json:"type"`
	RequestID string         `json:"request_id"`
	Config    *RequestConfig `json:"config"`
}

// Parse converts one input line into a ControlMessage.
//
// Blank lines return ErrEmptyLine. Non-JSON text, non-object JSON,
// unrecognized types, and per-type validation failures return a
// *ParseError. Parse never panics on any input.
func Parse(line []byte) (ControlMessage, error) {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 {
		return ControlMessage{}, ErrEmptyLine
	}

	var envelope controlEnvelope
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return ControlMessage{}, &ParseError{Line: string(trimmed), Reason: "not a JSON object"}
	}

	switch MessageKind(envelope.Type) {
	case KindAgentRequest:
		if envelope.RequestID == "" {
			return ControlMessage{}, &ParseError{Line: string(trimmed), Reason: "agent_request without request_id"}
		}
		if envelope.Config == nil {
			return ControlMessage{}, &ParseError{Line: string(trimmed), Reason: "agent_request without config"}
		}
		return ControlMessage{
			Kind:      KindAgentRequest,
			RequestID: envelope.RequestID,
			Config:    *envelope.Config,
		}, nil

	case KindCancel:
		if envelope.RequestID == "" {
			return ControlMessage{}, &ParseError{Line: string(trimmed), Reason: "cancel without request_id"}
		}
		return ControlMessage{Kind: KindCancel, RequestID: envelope.RequestID}, nil

	case KindShutdown:
		return ControlMessage{Kind: KindShutdown}, nil

	case KindPing:
		return ControlMessage{Kind: KindPing}, nil

	default:
		return ControlMessage{}, &ParseError{Line: string(trimmed), Reason: "unrecognized message type"}
	}
}

// Serialize prefixes a passthrough payload with the request's
// correlation id. The payload must be a JSON object; its own keys and
// their order are preserved byte-for-byte after the spliced
// "request_id" key.
func Serialize(requestID string, payload []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(payload)
	if !json.Valid(trimmed) || len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("protocol: passthrough payload is not a JSON object")
	}

	idValue, err := json.Marshal(requestID)
	if err != nil {
		return nil, fmt.Errorf("protocol: encoding request id: %w", err)
	}

	// interior is the payload between its braces; empty objects splice
	// to {"request_id":...} with no trailing comma.
	interior := bytes.TrimSpace(trimmed[1 : len(trimmed)-1])

	var buffer bytes.Buffer
	buffer.Grow(len(trimmed) + len(idValue) + 16)
	buffer.WriteString(`{"request_id":`)
	buffer.Write(idValue)
	if len(interior) > 0 {
		buffer.WriteByte(',')
		buffer.Write(interior)
	}
	buffer.WriteByte('}')
	return buffer.Bytes(), nil
}

// LineWriter emits outgoing messages to a byte stream, one
// self-contained JSON object per line. It is safe for concurrent use:
// the supervisor loop and the execution wrapper both emit through it.
type LineWriter struct {
	mutex  sync.Mutex
	writer io.Writer
}

// NewLineWriter wraps an output stream.
func NewLineWriter(writer io.Writer) *LineWriter {
	return &LineWriter{writer: writer}
}

// Write serializes one structured message and appends the line
// terminator.
func (w *LineWriter) Write(message any) error {
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("protocol: encoding outgoing message: %w", err)
	}
	return w.writeLine(data)
}

// WriteTagged emits a passthrough payload prefixed with the request's
// correlation id.
func (w *LineWriter) WriteTagged(requestID string, payload []byte) error {
	data, err := Serialize(requestID, payload)
	if err != nil {
		return err
	}
	return w.writeLine(data)
}

// writeLine writes data plus terminator as a single Write call so
// concurrent emitters cannot interleave partial lines.
func (w *LineWriter) writeLine(data []byte) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	line := make([]byte, 0, len(data)+1)
	line = append(line, data...)
	line = append(line, '\n')
	if _, err := w.writer.Write(line); err != nil {
		return fmt.Errorf("protocol: writing output line: %w", err)
	}
	return nil
}
