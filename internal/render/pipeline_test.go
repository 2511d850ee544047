// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhollis/streamdown/internal/markdown"
)

func codeBlock(lang, text string) markdown.Block {
	return markdown.Block{Kind: markdown.KindCodeBlock, Language: lang, Text: text}
}

func diagramBlock(text string) markdown.Block {
	return markdown.Block{Kind: markdown.KindDiagramBlock, Language: markdown.DiagramTag, Text: text}
}

// waitState polls until the block reaches the wanted state.
func waitState(t *testing.T, p *Pipeline, b markdown.Block, want State) Result {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if res := p.Result(b); res.State == want {
			return res
		}
		time.Sleep(5 * time.Millisecond)
	}
	res := p.Result(b)
	t.Fatalf("block stuck in %v, want %v", res.State, want)
	return res
}

// =============================================================================
// CODE BLOCK TESTS
// =============================================================================

func TestCodeBlockAlwaysReachesRendered(t *testing.T) {
	p := NewPipeline()
	b := codeBlock("python", "print(1)\n")

	p.Observe([]markdown.Block{b}, false)
	res := waitState(t, p, b, StateRendered)
	assert.NotEmpty(t, res.Output)
}

func TestUnknownLanguageFallsBackToPlainText(t *testing.T) {
	p := NewPipeline()
	b := codeBlock("nosuchlang", "some text here\n")

	p.Observe([]markdown.Block{b}, true)
	res := waitState(t, p, b, StateRendered)
	// Fallback must still carry the code content.
	assert.Contains(t, res.Output, "some text")
}

// =============================================================================
// DIAGRAM STATE MACHINE TESTS
// =============================================================================

func TestDiagramValidatingPersistsMidStream(t *testing.T) {
	p := NewPipeline()
	b := diagramBlock("graph TD\nA--")

	// Repeated scans of an incomplete diagram never terminally fail.
	for i := 0; i < 3; i++ {
		p.Observe([]markdown.Block{b}, false)
	}
	res := p.Result(b)
	assert.Equal(t, StateValidating, res.State)
}

func TestDiagramFailsOnceFinalized(t *testing.T) {
	p := NewPipeline()
	b := diagramBlock("graph TD\nA--")

	p.Observe([]markdown.Block{b}, true)
	res := p.Result(b)
	require.Equal(t, StateFailed, res.State)
	assert.NotEmpty(t, res.Reason)
}

func TestDiagramRendersWhenValid(t *testing.T) {
	p := NewPipeline()
	b := diagramBlock("graph TD\nA[Start] --> B[End]")

	p.Observe([]markdown.Block{b}, false)
	res := waitState(t, p, b, StateRendered)
	assert.Contains(t, res.Output, "A ──▶ B")
}

func TestGrownDiagramIsANewBlock(t *testing.T) {
	p := NewPipeline()
	partial := diagramBlock("graph TD\nA--")
	complete := diagramBlock("graph TD\nA-->B")

	p.Observe([]markdown.Block{partial}, false)
	assert.Equal(t, StateValidating, p.Result(partial).State)

	// The grown text has a new key; its state starts fresh.
	p.Observe([]markdown.Block{complete}, false)
	waitState(t, p, complete, StateRendered)
}

func TestUnseenBlockReportsEmpty(t *testing.T) {
	p := NewPipeline()
	res := p.Result(diagramBlock("graph TD\nA-->B"))
	assert.Equal(t, StateEmpty, res.State)
}

// =============================================================================
// CANCELLATION TESTS
// =============================================================================

func TestStaleResultsDiscardedAfterBeginMessage(t *testing.T) {
	p := NewPipeline()
	started := make(chan struct{})
	release := make(chan struct{})
	p.renderDiagram = func(ctx context.Context, text string) (string, error) {
		close(started)
		<-release
		return "late output", nil
	}

	b := diagramBlock("graph TD\nA-->B")
	p.Observe([]markdown.Block{b}, false)
	<-started

	// A new message supersedes the in-flight task.
	p.BeginMessage()
	close(release)

	time.Sleep(50 * time.Millisecond)
	res := p.Result(b)
	assert.NotEqual(t, StateRendered, res.State, "stale result was applied")
}

func TestCancelActiveAbandonsTasks(t *testing.T) {
	p := NewPipeline()
	p.renderDiagram = func(ctx context.Context, text string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}

	b := diagramBlock("graph TD\nA-->B")
	p.Observe([]markdown.Block{b}, false)
	p.CancelActive()

	time.Sleep(50 * time.Millisecond)
	res := p.Result(b)
	assert.NotEqual(t, StateRendered, res.State)
	// The failure path also discards: a canceled context is not an error
	// the user ever sees.
	assert.NotEqual(t, StateFailed, res.State)
}

func TestRenderFailureReportsReason(t *testing.T) {
	p := NewPipeline()
	p.renderDiagram = func(ctx context.Context, text string) (string, error) {
		return "", errors.New("layout engine exploded")
	}

	b := diagramBlock("graph TD\nA-->B")
	p.Observe([]markdown.Block{b}, true)
	res := waitState(t, p, b, StateFailed)
	assert.Contains(t, res.Reason, "layout engine exploded")
}

func TestUpdatesChannelSignalsCompletion(t *testing.T) {
	p := NewPipeline()
	b := codeBlock("go", "package main\n")
	p.Observe([]markdown.Block{b}, true)

	select {
	case key := <-p.Updates():
		assert.Equal(t, b.Key(), key)
	case <-time.After(2 * time.Second):
		t.Fatal("no update signal")
	}
}
