// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// This file defines the Bubble Tea messages and commands that connect the
// transport, assembler, and render pipeline to the update loop.
package chat

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mhollis/streamdown/internal/config"
	"github.com/mhollis/streamdown/internal/model"
	"github.com/mhollis/streamdown/internal/session"
	"github.com/mhollis/streamdown/internal/stream"
)

// =============================================================================
// MESSAGE TYPES
// =============================================================================

// StreamStartedMsg reports a successfully opened stream.
type StreamStartedMsg struct {
	Frames <-chan stream.Frame
	Cancel context.CancelFunc
}

// StreamFailedMsg reports that the stream could not be opened.
type StreamFailedMsg struct {
	Err error
}

// FrameMsg delivers one decoded frame from the active stream.
type FrameMsg struct {
	Frame stream.Frame
}

// StreamClosedMsg reports that the frame channel closed.
type StreamClosedMsg struct{}

// RenderUpdateMsg reports that an async render task finished for a block.
type RenderUpdateMsg struct {
	Key string
}

// NoticeMsg delivers a non-fatal notice from the assembler.
type NoticeMsg struct {
	Notice session.Notice
}

// ConfigReloadedMsg carries a configuration reloaded from disk.
type ConfigReloadedMsg struct {
	Cfg *config.Config
}

// ExportDoneMsg reports the outcome of an export.
type ExportDoneMsg struct {
	Path string
	Err  error
}

// =============================================================================
// COMMANDS
// =============================================================================

// Streamer opens a stream for the current conversation. Implemented by
// transport.Client; an interface here keeps tests free of real sockets.
type Streamer interface {
	Stream(ctx context.Context, history []*model.Message) (<-chan stream.Frame, error)
}

// waitForFrame returns a command that delivers the next frame, or
// StreamClosedMsg when the channel closes.
func waitForFrame(frames <-chan stream.Frame) tea.Cmd {
	return func() tea.Msg {
		f, ok := <-frames
		if !ok {
			return StreamClosedMsg{}
		}
		return FrameMsg{Frame: f}
	}
}

// waitForRenderUpdate returns a command that delivers the next completed
// render task.
func waitForRenderUpdate(updates <-chan string) tea.Cmd {
	return func() tea.Msg {
		key, ok := <-updates
		if !ok {
			return nil
		}
		return RenderUpdateMsg{Key: key}
	}
}

// waitForNotice returns a command that delivers the next assembler notice.
func waitForNotice(notices <-chan session.Notice) tea.Cmd {
	return func() tea.Msg {
		n, ok := <-notices
		if !ok {
			return nil
		}
		return NoticeMsg{Notice: n}
	}
}
