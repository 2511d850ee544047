// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
package chat

import (
	"strings"
	"time"

	"github.com/mhollis/streamdown/internal/markdown"
	"github.com/mhollis/streamdown/internal/model"
	"github.com/mhollis/streamdown/internal/session"
	"github.com/mhollis/streamdown/internal/util"
)

// =============================================================================
// VIEW
// =============================================================================

// View renders the full chat screen: header, transcript, input, status.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.renderInput())
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())
	return b.String()
}

func (m Model) renderHeader() string {
	title := "New Chat"
	if s := m.assembler.Current(); s != nil {
		title = s.GetMeta().Title
	}
	// Clamp to one line; long titles would wrap the header.
	return m.theme.Header.Render(util.TruncateWidth("streamdown — "+title, m.width-2))
}

func (m Model) renderInput() string {
	prompt := m.theme.InputPrompt.Render("> ")
	if m.state == StateStreaming {
		prompt = m.spinner.View() + " "
	}
	return m.theme.InputContainer.Width(m.width - 2).Render(prompt + m.input.View())
}

func (m Model) renderStatusBar() string {
	if m.notice != "" && time.Now().Before(m.noticeUntil) {
		text := m.notice
		switch m.noticeLevel {
		case session.NoticeWarn:
			return m.theme.NoticeWarn.Render("[!] " + text)
		default:
			return m.theme.StatusBar.Render(text)
		}
	}

	var parts []string
	for _, kb := range m.keyMap.ShortHelp() {
		h := kb.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return m.theme.StatusBar.Width(m.width).Render(strings.Join(parts, "  ·  "))
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// refreshTranscript rebuilds the viewport content from the assembler's
// message log. Assistant content goes through the full re-scan: the scanner
// runs over the complete accumulated text every time, and the pipeline
// observes the resulting blocks before they render.
func (m *Model) refreshTranscript() {
	if !m.ready {
		return
	}
	var b strings.Builder

	for i, msg := range m.assembler.Messages() {
		if i > 0 {
			b.WriteString("\n\n")
		}
		if msg.Role == model.RoleUser {
			b.WriteString(m.theme.UserBubble.Width(m.contentWidth()).Render(msg.Content))
		} else {
			b.WriteString(m.renderAssistant(msg.Content, msg.Finalized))
		}
	}

	m.viewport.SetContent(b.String())
}

// renderAssistant scans and renders one assistant message.
func (m *Model) renderAssistant(content string, finalized bool) string {
	if content == "" && !finalized {
		return m.theme.AssistantBubble.Render(m.theme.Spinner.Render("…"))
	}

	blocks := markdown.Scan(content, finalized)
	m.pipeline.Observe(blocks, finalized)

	body := m.blocks.RenderAll(blocks, finalized)
	if body == "" {
		body = content
	}
	return m.theme.AssistantBubble.Width(m.contentWidth()).Render(body)
}

// contentWidth returns the usable width for message content.
func (m Model) contentWidth() int {
	w := m.width - 4
	if max := m.cfg.UI.MaxWidth; max > 0 && w > max {
		w = max
	}
	if w < 20 {
		w = 20
	}
	return w
}
