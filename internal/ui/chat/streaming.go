// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// This file implements delta coalescing for smooth, flicker-free rendering
// during response streaming. The StreamingBuffer batches deltas so the
// transcript re-renders at a capped frame rate instead of once per token.
package chat

import (
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// STREAMING BUFFER
// =============================================================================

// StreamingBuffer batches content deltas. Deltas accumulate and are flushed
// either when the batch size threshold is reached or enough time has passed
// since the last flush.
//
// Thread-safety: deltas arrive from the frame-reading goroutine while
// flushes happen in the Bubble Tea loop, so all operations take the mutex.
type StreamingBuffer struct {
	mu         sync.Mutex
	buffer     strings.Builder
	deltaCount int
	lastFlush  time.Time

	batchSize int           // deltas per batch
	minFlush  time.Duration // min time between flushes
}

const (
	defaultBatchSize = 15
	defaultMaxFPS    = 30
)

// NewStreamingBuffer creates a buffer with default settings: 15 deltas per
// batch at a 30fps cap.
func NewStreamingBuffer() *StreamingBuffer {
	return NewStreamingBufferWithConfig(defaultBatchSize, defaultMaxFPS)
}

// NewStreamingBufferWithConfig creates a buffer with custom settings.
func NewStreamingBufferWithConfig(batchSize, maxFPS int) *StreamingBuffer {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if maxFPS <= 0 || maxFPS > 60 {
		maxFPS = defaultMaxFPS
	}
	return &StreamingBuffer{
		batchSize: batchSize,
		minFlush:  time.Duration(1000/maxFPS) * time.Millisecond,
		lastFlush: time.Now(),
	}
}

// Write adds a delta to the buffer.
func (sb *StreamingBuffer) Write(delta string) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.buffer.WriteString(delta)
	sb.deltaCount++
}

// Flush returns accumulated content if either threshold is reached.
func (sb *StreamingBuffer) Flush() (string, bool) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if sb.buffer.Len() == 0 {
		return "", false
	}
	if sb.deltaCount < sb.batchSize && time.Since(sb.lastFlush) < sb.minFlush {
		return "", false
	}
	return sb.drainLocked(), true
}

// ForceFlush returns all accumulated content regardless of thresholds.
// Called when the stream ends so no tail is left behind.
func (sb *StreamingBuffer) ForceFlush() (string, bool) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	if sb.buffer.Len() == 0 {
		return "", false
	}
	return sb.drainLocked(), true
}

// pending reports whether undelivered content is buffered.
func (sb *StreamingBuffer) pending() bool {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.buffer.Len() > 0
}

func (sb *StreamingBuffer) drainLocked() string {
	content := sb.buffer.String()
	sb.buffer.Reset()
	sb.deltaCount = 0
	sb.lastFlush = time.Now()
	return content
}

// =============================================================================
// FLUSH TICK
// =============================================================================

// FlushTickMsg drives buffer flushes while a stream is active.
type FlushTickMsg struct {
	Time time.Time
}

// FlushTickCmd schedules the next buffer flush at the render frame rate.
func FlushTickCmd() tea.Cmd {
	return tea.Tick(time.Second/defaultMaxFPS, func(t time.Time) tea.Msg {
		return FlushTickMsg{Time: t}
	})
}
