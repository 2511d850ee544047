// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/google/uuid"
)

// TitleRunes is the number of leading characters of the first user message
// used as the session title. Longer messages get an ellipsis.
const TitleRunes = 30

// PreviewWords is the number of words of the latest assistant message kept
// as the session preview.
const PreviewWords = 10

// =============================================================================
// SESSION TYPE
// =============================================================================

// Session holds an ordered message log with metadata.
//
// The title is derived exactly once, from the first user message, and never
// recomputed. The preview tracks the latest assistant reply.
type Session struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	CreatedAt   time.Time `json:"created_at"`
	LastUpdated time.Time `json:"last_updated"`
	Preview     string    `json:"preview"`

	Messages []*Message `json:"messages"`
}

// NewSession creates an empty session with a generated ID.
func NewSession() *Session {
	now := time.Now()
	return &Session{
		ID:          uuid.NewString(),
		CreatedAt:   now,
		LastUpdated: now,
		Messages:    make([]*Message, 0),
	}
}

// AddMessage appends a message to the log.
func (s *Session) AddMessage(msg *Message) {
	s.Messages = append(s.Messages, msg)
	s.LastUpdated = time.Now()
}

// LastMessage returns the most recent message, or nil if the log is empty.
func (s *Session) LastMessage() *Message {
	if len(s.Messages) == 0 {
		return nil
	}
	return s.Messages[len(s.Messages)-1]
}

// FirstUserMessage returns the first user message, or nil.
func (s *Session) FirstUserMessage() *Message {
	for _, msg := range s.Messages {
		if msg.Role == RoleUser {
			return msg
		}
	}
	return nil
}

// MessageCount returns the number of messages in the log.
func (s *Session) MessageCount() int {
	return len(s.Messages)
}

// DeriveTitle computes the session title from text: the first TitleRunes
// characters, with an ellipsis when the text is longer. It does not modify
// the session.
func DeriveTitle(text string) string {
	runes := []rune(text)
	if len(runes) <= TitleRunes {
		return text
	}
	return string(runes[:TitleRunes]) + "..."
}

// Meta holds lightweight session metadata for listing.
type Meta struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Preview      string    `json:"preview"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	LastUpdated  time.Time `json:"last_updated"`
}

// GetMeta returns metadata about the session.
func (s *Session) GetMeta() Meta {
	title := s.Title
	if title == "" {
		title = "New Chat"
	}
	return Meta{
		ID:           s.ID,
		Title:        title,
		Preview:      s.Preview,
		MessageCount: len(s.Messages),
		CreatedAt:    s.CreatedAt,
		LastUpdated:  s.LastUpdated,
	}
}
