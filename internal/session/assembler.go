// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session owns the ordered session and message log and applies
// decoded stream frames to it.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mhollis/streamdown/internal/model"
	"github.com/mhollis/streamdown/internal/stream"
	"github.com/mhollis/streamdown/internal/util"
)

// =============================================================================
// PERSISTENCE BOUNDARY
// =============================================================================

// Store is the persistence collaborator. Calls are fire-and-forget: local
// in-memory state updates regardless of store success, and failures are
// surfaced as non-fatal notices.
//
// Every argument is a plain value or a detached snapshot. Store calls run
// on background goroutines while the stream loop keeps appending deltas,
// so a store must never be handed live message state.
type Store interface {
	CreateSession(ctx context.Context, meta model.Meta) error
	UpdateSessionTitle(ctx context.Context, sessionID, title string) error
	AppendMessage(ctx context.Context, sessionID string, msg MessageSnapshot) error
	FinalizeMessage(ctx context.Context, sessionID, messageID, content string) error
}

// NoticeLevel classifies user-visible notices.
type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeWarn
)

// Notice is a non-fatal, user-visible message raised by the assembler,
// typically for persistence or transport trouble.
type Notice struct {
	Level NoticeLevel
	Text  string
	Time  time.Time
}

// =============================================================================
// ASSEMBLER
// =============================================================================

// storeTimeout bounds each fire-and-forget persistence call.
const storeTimeout = 5 * time.Second

// Assembler applies decoded frames to the in-progress assistant message
// and is the only component that mutates the session list. All other
// components read snapshots.
type Assembler struct {
	mu sync.Mutex

	store   Store // may be nil
	notices chan Notice

	sessions []*model.Session
	current  *model.Session

	// canceled suppresses deltas for a message even for frames already in
	// flight when Cancel was called.
	canceled map[string]bool
}

// New creates an assembler backed by the given store. A nil store disables
// persistence; local state remains authoritative either way.
func New(store Store) *Assembler {
	return &Assembler{
		store:    store,
		notices:  make(chan Notice, 16),
		canceled: make(map[string]bool),
	}
}

// Notices returns the channel of non-fatal user-visible notices.
func (a *Assembler) Notices() <-chan Notice {
	return a.notices
}

// =============================================================================
// SESSION LIFECYCLE
// =============================================================================

// NewSession creates a session, makes it current, and pushes it to the
// store.
func (a *Assembler) NewSession() *model.Session {
	a.mu.Lock()
	s := model.NewSession()
	a.sessions = append(a.sessions, s)
	a.current = s
	meta := s.GetMeta()
	a.mu.Unlock()

	a.persist("create session", func(ctx context.Context) error {
		return a.store.CreateSession(ctx, meta)
	})
	return s
}

// AdoptSession installs a session loaded from the store as current.
func (a *Assembler) AdoptSession(s *model.Session) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sessions = append(a.sessions, s)
	a.current = s
}

// Current returns the current session, or nil.
func (a *Assembler) Current() *model.Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

// =============================================================================
// MESSAGE OPERATIONS
// =============================================================================

// AppendUserMessage pushes a finalized user message. If it is the session's
// first message, the session title is derived from it, exactly once; later
// messages never recompute it.
func (a *Assembler) AppendUserMessage(text string) *model.Message {
	a.mu.Lock()
	s := a.ensureSessionLocked()
	msg := model.NewUserMessage(text)
	s.AddMessage(msg)

	titled := false
	if s.Title == "" {
		s.Title = model.DeriveTitle(text)
		titled = true
	}
	sessionID := s.ID
	title := s.Title
	snap := snapshotLocked(msg)
	a.mu.Unlock()

	a.persist("append message", func(ctx context.Context) error {
		return a.store.AppendMessage(ctx, sessionID, snap)
	})
	if titled {
		a.persist("update title", func(ctx context.Context) error {
			return a.store.UpdateSessionTitle(ctx, sessionID, title)
		})
	}
	return msg
}

// BeginAssistantMessage pushes an empty, unfinalized assistant message.
func (a *Assembler) BeginAssistantMessage() *model.Message {
	a.mu.Lock()
	s := a.ensureSessionLocked()
	msg := model.NewAssistantMessage()
	s.AddMessage(msg)
	sessionID := s.ID
	snap := snapshotLocked(msg)
	a.mu.Unlock()

	a.persist("append message", func(ctx context.Context) error {
		return a.store.AppendMessage(ctx, sessionID, snap)
	})
	return msg
}

// ApplyDelta appends text to the current unfinalized assistant message.
// No-op when there is none, it is already finalized, or it was canceled.
func (a *Assembler) ApplyDelta(text string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	msg := a.streamingMessageLocked()
	if msg == nil || a.canceled[msg.ID] {
		return
	}
	msg.Append(text)
	a.current.LastUpdated = time.Now()
}

// Finalize marks the current assistant message complete and updates the
// session preview from it.
func (a *Assembler) Finalize() {
	a.finalize(false)
}

// Cancel is user-triggered: it finalizes the current assistant message and
// additionally suppresses any further deltas for it, including ones from
// frames already in flight.
func (a *Assembler) Cancel() {
	a.finalize(true)
}

func (a *Assembler) finalize(canceled bool) {
	a.mu.Lock()
	msg := a.streamingMessageLocked()
	if msg == nil {
		a.mu.Unlock()
		return
	}
	if canceled {
		a.canceled[msg.ID] = true
	}
	msg.Finalize()
	s := a.current
	s.Preview = util.FirstWords(msg.Content(), model.PreviewWords)
	s.LastUpdated = time.Now()
	content := msg.Content()
	a.mu.Unlock()

	a.persist("finalize message", func(ctx context.Context) error {
		return a.store.FinalizeMessage(ctx, s.ID, msg.ID, content)
	})
}

// ApplyFrame applies one decoded frame to the current assistant message.
// Content appends a delta; Done finalizes; Error finalizes with the
// partial content and raises a notice.
func (a *Assembler) ApplyFrame(f stream.Frame) {
	switch f.Kind {
	case stream.FrameContent:
		a.ApplyDelta(f.Text)
	case stream.FrameDone:
		a.Finalize()
	case stream.FrameError:
		a.Finalize()
		a.notify(NoticeWarn, fmt.Sprintf("stream error: %s", f.Message))
	}
}

// =============================================================================
// SNAPSHOTS
// =============================================================================

// StreamingContent returns the content of the in-progress assistant
// message along with whether one exists.
func (a *Assembler) StreamingContent() (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	msg := a.streamingMessageLocked()
	if msg == nil {
		return "", false
	}
	return msg.Content(), true
}

// MessageSnapshot is a detached copy of one message: later mutation of the
// live log does not affect it.
type MessageSnapshot struct {
	ID        string
	Role      model.Role
	Content   string
	Finalized bool
	Timestamp time.Time
}

// snapshotLocked detaches a message for use outside a.mu, typically on a
// persistence goroutine. Callers hold a.mu.
func snapshotLocked(m *model.Message) MessageSnapshot {
	return MessageSnapshot{
		ID:        m.ID,
		Role:      m.Role,
		Content:   m.Content(),
		Finalized: m.Finalized(),
		Timestamp: m.Timestamp,
	}
}

// Messages returns a snapshot of the current session's message log.
func (a *Assembler) Messages() []MessageSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current == nil {
		return nil
	}
	out := make([]MessageSnapshot, 0, len(a.current.Messages))
	for _, m := range a.current.Messages {
		out = append(out, MessageSnapshot{
			ID:        m.ID,
			Role:      m.Role,
			Content:   m.Content(),
			Finalized: m.Finalized(),
		})
	}
	return out
}

// =============================================================================
// INTERNAL
// =============================================================================

// ensureSessionLocked lazily creates a session for the first message.
// Callers hold a.mu. The store create is skipped here; the session reaches
// the store with its first message.
func (a *Assembler) ensureSessionLocked() *model.Session {
	if a.current == nil {
		s := model.NewSession()
		a.sessions = append(a.sessions, s)
		a.current = s
	}
	return a.current
}

// streamingMessageLocked returns the current unfinalized assistant
// message, or nil. Callers hold a.mu.
func (a *Assembler) streamingMessageLocked() *model.Message {
	if a.current == nil {
		return nil
	}
	last := a.current.LastMessage()
	if last == nil || last.Role != model.RoleAssistant || last.Finalized() {
		return nil
	}
	return last
}

// persist runs one store call in the background. Failures raise a notice;
// they never affect local state.
func (a *Assembler) persist(op string, call func(context.Context) error) {
	if a.store == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		if err := call(ctx); err != nil {
			a.notify(NoticeWarn, fmt.Sprintf("could not %s: %v (history kept in memory)", op, err))
		}
	}()
}

// notify pushes a notice without ever blocking the assembler.
func (a *Assembler) notify(level NoticeLevel, text string) {
	select {
	case a.notices <- Notice{Level: level, Text: text, Time: time.Now()}:
	default:
	}
}
