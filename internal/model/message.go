// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for sessions and messages.
package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single message in a session.
//
// Assistant messages start out streaming: content is append-only until the
// message is finalized, after which it is immutable. User messages are
// finalized on creation.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Timestamp time.Time `json:"timestamp"`

	// Final content. Empty while streaming; set by Finalize.
	FinalContent string `json:"content"`

	// PERFORMANCE: strings.Builder avoids quadratic allocations while
	// deltas are appended during streaming.
	streaming bool
	buf       strings.Builder
}

// NewUserMessage creates a finalized user message.
func NewUserMessage(content string) *Message {
	return &Message{
		ID:           uuid.NewString(),
		Role:         RoleUser,
		Timestamp:    time.Now(),
		FinalContent: content,
	}
}

// NewAssistantMessage creates an empty, streaming assistant message.
func NewAssistantMessage() *Message {
	return &Message{
		ID:        uuid.NewString(),
		Role:      RoleAssistant,
		Timestamp: time.Now(),
		streaming: true,
	}
}

// Append appends a delta to a streaming message. It is a no-op once the
// message has been finalized.
func (m *Message) Append(delta string) {
	if m.streaming {
		m.buf.WriteString(delta)
	}
}

// Finalize marks the message complete. Content becomes immutable; further
// Append calls are ignored.
func (m *Message) Finalize() {
	if !m.streaming {
		return
	}
	m.FinalContent = m.buf.String()
	m.buf.Reset()
	m.streaming = false
}

// Finalized reports whether the message is complete.
func (m *Message) Finalized() bool {
	return !m.streaming
}

// Content returns the current content, streaming or final.
func (m *Message) Content() string {
	if m.streaming {
		return m.buf.String()
	}
	return m.FinalContent
}

// IsEmpty returns true if the message has no content.
func (m *Message) IsEmpty() bool {
	return m.FinalContent == "" && m.buf.Len() == 0
}
