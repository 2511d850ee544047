// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
package chat

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mhollis/streamdown/internal/config"
	"github.com/mhollis/streamdown/internal/render"
	"github.com/mhollis/streamdown/internal/session"
	"github.com/mhollis/streamdown/internal/stream"
	"github.com/mhollis/streamdown/internal/ui/styles"
)

// =============================================================================
// CHAT STATE
// =============================================================================

// State represents the current state of the chat view.
type State int

const (
	StateReady     State = iota // Ready for input
	StateStreaming              // Receiving a streaming response
)

// noticeDisplayFor is how long a notice stays in the status bar.
const noticeDisplayFor = 6 * time.Second

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
type Model struct {
	// State
	state State

	// Styling
	theme *styles.Theme

	// Dimensions
	width  int
	height int
	ready  bool

	// Configuration
	cfg *config.Config

	// Conversation state and rendering
	assembler *session.Assembler
	pipeline  *render.Pipeline
	blocks    *render.BlockRenderer

	// Transport
	streamer Streamer

	// Active stream
	frames       <-chan stream.Frame
	cancelStream context.CancelFunc
	buffer       *StreamingBuffer

	// UI components
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	// Key bindings
	keyMap KeyMap

	// Status line
	notice      string
	noticeLevel session.NoticeLevel
	noticeUntil time.Time
}

// New creates the chat model.
func New(cfg *config.Config, assembler *session.Assembler, pipeline *render.Pipeline, streamer Streamer) Model {
	theme := styles.NewTheme(80, 24)

	input := textinput.New()
	input.Placeholder = "Send a message..."
	input.CharLimit = 8192
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.Spinner

	return Model{
		state:     StateReady,
		theme:     theme,
		cfg:       cfg,
		assembler: assembler,
		pipeline:  pipeline,
		blocks:    render.NewBlockRenderer(theme, pipeline),
		streamer:  streamer,
		buffer:    NewStreamingBuffer(),
		input:     input,
		spinner:   sp,
		keyMap:    DefaultKeyMap(),
	}
}

// Init starts the background listeners.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		waitForRenderUpdate(m.pipeline.Updates()),
		waitForNotice(m.assembler.Notices()),
	)
}

// Streaming reports whether a response is currently streaming.
func (m Model) Streaming() bool {
	return m.state == StateStreaming
}
