// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
package chat

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mhollis/streamdown/internal/export"
	"github.com/mhollis/streamdown/internal/model"
	"github.com/mhollis/streamdown/internal/session"
	"github.com/mhollis/streamdown/internal/stream"
)

// =============================================================================
// UPDATE LOOP
// =============================================================================

// Update handles all incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case StreamStartedMsg:
		m.frames = msg.Frames
		m.cancelStream = msg.Cancel
		return m, waitForFrame(m.frames)

	case StreamFailedMsg:
		m.state = StateReady
		m.assembler.Cancel()
		m.setNotice(session.NoticeWarn, msg.Err.Error())
		m.refreshTranscript()
		return m, nil

	case FrameMsg:
		return m.handleFrame(msg.Frame)

	case StreamClosedMsg:
		return m.finishStream()

	case FlushTickMsg:
		return m.handleFlushTick()

	case RenderUpdateMsg:
		m.refreshTranscript()
		return m, waitForRenderUpdate(m.pipeline.Updates())

	case NoticeMsg:
		m.setNotice(msg.Notice.Level, msg.Notice.Text)
		return m, waitForNotice(m.assembler.Notices())

	case ConfigReloadedMsg:
		m.cfg = msg.Cfg
		m.setNotice(session.NoticeInfo, "configuration reloaded")
		m.refreshTranscript()
		return m, nil

	case ExportDoneMsg:
		if msg.Err != nil {
			m.setNotice(session.NoticeWarn, "export failed: "+msg.Err.Error())
		} else {
			m.setNotice(session.NoticeInfo, "exported to "+msg.Path)
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// =============================================================================
// RESIZE AND KEYS
// =============================================================================

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.theme.Resize(msg.Width, msg.Height)

	headerHeight := 1
	footerHeight := 3
	vpHeight := msg.Height - headerHeight - footerHeight
	if vpHeight < 1 {
		vpHeight = 1
	}

	if !m.ready {
		m.viewport = viewport.New(msg.Width, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = msg.Width
		m.viewport.Height = vpHeight
	}
	m.input.Width = msg.Width - 6
	m.refreshTranscript()
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keyMap.Quit):
		if m.cancelStream != nil {
			m.cancelStream()
		}
		return m, tea.Quit

	case key.Matches(msg, m.keyMap.Cancel):
		if m.state == StateStreaming {
			return m.cancelActive()
		}
		return m, nil

	case key.Matches(msg, m.keyMap.Submit):
		return m.submit()

	case key.Matches(msg, m.keyMap.NewChat):
		if m.state == StateStreaming {
			return m, nil
		}
		m.assembler.NewSession()
		m.pipeline.BeginMessage()
		m.refreshTranscript()
		return m, nil

	case key.Matches(msg, m.keyMap.Export):
		return m.exportCurrent()

	case key.Matches(msg, m.keyMap.Up):
		m.viewport.LineUp(1)
		return m, nil
	case key.Matches(msg, m.keyMap.Down):
		m.viewport.LineDown(1)
		return m, nil
	case key.Matches(msg, m.keyMap.PageUp):
		m.viewport.HalfViewUp()
		return m, nil
	case key.Matches(msg, m.keyMap.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	case key.Matches(msg, m.keyMap.Home):
		m.viewport.GotoTop()
		return m, nil
	case key.Matches(msg, m.keyMap.End):
		m.viewport.GotoBottom()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// =============================================================================
// STREAM LIFECYCLE
// =============================================================================

// submit sends the typed message and opens a response stream.
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" || m.state == StateStreaming {
		return m, nil
	}
	m.input.Reset()

	m.assembler.AppendUserMessage(text)
	// Snapshot before the empty assistant message joins the log: it is not
	// part of the upstream request.
	history := append([]*model.Message(nil), m.assembler.Current().Messages...)
	m.assembler.BeginAssistantMessage()
	m.pipeline.BeginMessage()
	m.state = StateStreaming
	m.refreshTranscript()
	m.viewport.GotoBottom()

	streamer := m.streamer

	open := func() tea.Msg {
		ctx, cancel := context.WithCancel(context.Background())
		frames, err := streamer.Stream(ctx, history)
		if err != nil {
			cancel()
			return StreamFailedMsg{Err: err}
		}
		return StreamStartedMsg{Frames: frames, Cancel: cancel}
	}

	return m, tea.Batch(open, m.spinner.Tick, FlushTickCmd())
}

// handleFrame routes one decoded frame.
func (m Model) handleFrame(f stream.Frame) (tea.Model, tea.Cmd) {
	switch f.Kind {
	case stream.FrameContent:
		// Coalesced: the flush tick applies buffered content.
		m.buffer.Write(f.Text)
		return m, waitForFrame(m.frames)

	case stream.FrameDone, stream.FrameError:
		m.drainBuffer()
		m.assembler.ApplyFrame(f)
		return m.finishStream()
	}
	return m, waitForFrame(m.frames)
}

// handleFlushTick applies coalesced deltas while streaming.
func (m Model) handleFlushTick() (tea.Model, tea.Cmd) {
	if m.state != StateStreaming {
		return m, nil
	}
	if content, ok := m.buffer.Flush(); ok {
		m.assembler.ApplyDelta(content)
		m.refreshTranscript()
		m.viewport.GotoBottom()
	}
	return m, FlushTickCmd()
}

// finishStream closes out the active stream.
func (m Model) finishStream() (tea.Model, tea.Cmd) {
	if m.state != StateStreaming {
		return m, nil
	}
	m.drainBuffer()
	// EOF without a done sentinel still finalizes the message.
	if _, streaming := m.assembler.StreamingContent(); streaming {
		m.assembler.Finalize()
	}
	if m.cancelStream != nil {
		m.cancelStream()
		m.cancelStream = nil
	}
	m.frames = nil
	m.state = StateReady
	m.refreshTranscript()
	m.viewport.GotoBottom()
	return m, nil
}

// cancelActive stops the in-flight response at whatever content arrived.
func (m Model) cancelActive() (tea.Model, tea.Cmd) {
	m.drainBuffer()
	m.assembler.Cancel()
	m.pipeline.CancelActive()
	if m.cancelStream != nil {
		m.cancelStream()
		m.cancelStream = nil
	}
	m.frames = nil
	m.state = StateReady
	m.setNotice(session.NoticeInfo, "response canceled")
	m.refreshTranscript()
	return m, nil
}

// drainBuffer applies any coalesced content immediately.
func (m *Model) drainBuffer() {
	if content, ok := m.buffer.ForceFlush(); ok {
		m.assembler.ApplyDelta(content)
	}
}

// =============================================================================
// EXPORT
// =============================================================================

func (m Model) exportCurrent() (tea.Model, tea.Cmd) {
	s := m.assembler.Current()
	if s == nil || len(s.Messages) == 0 {
		m.setNotice(session.NoticeInfo, "nothing to export")
		return m, nil
	}
	return m, func() tea.Msg {
		path, err := export.ExportMarkdown(s, nil)
		return ExportDoneMsg{Path: path, Err: err}
	}
}

// =============================================================================
// STATUS NOTICES
// =============================================================================

func (m *Model) setNotice(level session.NoticeLevel, text string) {
	m.notice = text
	m.noticeLevel = level
	m.noticeUntil = time.Now().Add(noticeDisplayFor)
}
