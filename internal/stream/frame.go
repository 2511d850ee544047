// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream decodes raw transport bytes into typed frames.
package stream

import "fmt"

// DoneSentinel is the literal payload value that marks stream completion.
const DoneSentinel = "[DONE]"

// =============================================================================
// FRAME TYPE
// =============================================================================

// FrameKind discriminates the closed set of decoded record types.
type FrameKind int

const (
	// FrameContent carries a text delta for the in-progress message.
	FrameContent FrameKind = iota

	// FrameDone marks successful stream completion.
	FrameDone

	// FrameError carries an upstream error payload.
	FrameError
)

// String returns the string representation of the frame kind.
func (k FrameKind) String() string {
	switch k {
	case FrameContent:
		return "content"
	case FrameDone:
		return "done"
	case FrameError:
		return "error"
	default:
		return "unknown"
	}
}

// Frame is one decoded transport record. Downstream components never see
// raw payload bytes; everything is folded into this variant at the
// transport boundary.
type Frame struct {
	Kind FrameKind

	// Text is the content delta (FrameContent only).
	Text string

	// Message is the upstream error description (FrameError only).
	Message string
}

// ContentFrame creates a content delta frame.
func ContentFrame(text string) Frame {
	return Frame{Kind: FrameContent, Text: text}
}

// DoneFrame creates a completion frame.
func DoneFrame() Frame {
	return Frame{Kind: FrameDone}
}

// ErrorFrame creates an error frame.
func ErrorFrame(message string) Frame {
	return Frame{Kind: FrameError, Message: message}
}

// =============================================================================
// ERROR TAXONOMY
// =============================================================================

// DecodeError reports a record that could never be completed, detected at
// stream end. It is contained to the decoder: callers log it and move on.
type DecodeError struct {
	Data string // the undecodable remainder, truncated for display
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("undecodable trailing data (%d bytes)", len(e.Data))
}

// TransportError reports a connection dropped mid-stream. The caller
// finalizes the in-progress message with partial content and surfaces a
// non-fatal notice.
type TransportError struct {
	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("transport interrupted: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}
