// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

// =============================================================================
// STREAMING BUFFER TESTS
// =============================================================================

func TestBufferFlushesAtBatchSize(t *testing.T) {
	sb := NewStreamingBufferWithConfig(3, 30)

	sb.Write("a")
	sb.Write("b")
	if _, ok := sb.Flush(); ok {
		t.Error("flushed below batch size before time threshold")
	}

	sb.Write("c")
	content, ok := sb.Flush()
	if !ok {
		t.Fatal("did not flush at batch size")
	}
	if content != "abc" {
		t.Errorf("content = %q", content)
	}
}

func TestBufferFlushesAfterTimeThreshold(t *testing.T) {
	sb := NewStreamingBufferWithConfig(100, 30) // huge batch, ~33ms window

	sb.Write("slow token")
	time.Sleep(40 * time.Millisecond)

	content, ok := sb.Flush()
	if !ok {
		t.Fatal("did not flush after time threshold")
	}
	if content != "slow token" {
		t.Errorf("content = %q", content)
	}
}

func TestBufferEmptyFlush(t *testing.T) {
	sb := NewStreamingBuffer()
	if _, ok := sb.Flush(); ok {
		t.Error("empty buffer reported content")
	}
	if sb.pending() {
		t.Error("empty buffer reports pending")
	}
}

func TestForceFlushIgnoresThresholds(t *testing.T) {
	sb := NewStreamingBufferWithConfig(100, 30)
	sb.Write("tail")

	content, ok := sb.ForceFlush()
	if !ok || content != "tail" {
		t.Errorf("ForceFlush = %q, %v", content, ok)
	}
	if sb.pending() {
		t.Error("buffer not drained")
	}
}

func TestBufferPreservesDeltaOrder(t *testing.T) {
	sb := NewStreamingBufferWithConfig(1000, 1)
	for i := 0; i < 100; i++ {
		sb.Write(fmt.Sprintf("[%d]", i))
	}
	content, ok := sb.ForceFlush()
	if !ok {
		t.Fatal("no content")
	}
	want := ""
	for i := 0; i < 100; i++ {
		want += fmt.Sprintf("[%d]", i)
	}
	if content != want {
		t.Error("deltas reordered or lost")
	}
}

func TestBufferConcurrentWrites(t *testing.T) {
	sb := NewStreamingBuffer()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				sb.Write("x")
			}
		}()
	}
	wg.Wait()

	content, ok := sb.ForceFlush()
	if !ok || len(content) != 1000 {
		t.Errorf("got %d bytes, want 1000", len(content))
	}
}

func TestInvalidConfigFallsBackToDefaults(t *testing.T) {
	sb := NewStreamingBufferWithConfig(-1, 500)
	if sb.batchSize != defaultBatchSize {
		t.Errorf("batchSize = %d", sb.batchSize)
	}
	if sb.minFlush != time.Duration(1000/defaultMaxFPS)*time.Millisecond {
		t.Errorf("minFlush = %v", sb.minFlush)
	}
}
