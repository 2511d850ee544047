// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"

	"github.com/mhollis/streamdown/internal/markdown"
)

// =============================================================================
// PIPELINE
// =============================================================================

// validationRate throttles re-validation of diagrams that keep failing
// mid-stream, so a rapidly growing message does not burn CPU revalidating
// the same half-finished diagram on every delta.
var validationRate = rate.Limit(20)

// Pipeline tracks render state per block and runs render tasks out of band
// relative to the scan loop. Each block has an independent task and a
// single result slot; a slow or failing diagram never blocks other blocks.
type Pipeline struct {
	mu      sync.Mutex
	entries map[string]*entry
	limiter *rate.Limiter

	// Per-message cancellation. A new stream bumps the generation; results
	// from tasks of older generations are discarded on arrival.
	gen    uint64
	ctx    context.Context
	cancel context.CancelFunc

	updates chan string

	// renderDiagram is swappable in tests.
	renderDiagram func(ctx context.Context, text string) (string, error)
}

type entry struct {
	res Result
}

// NewPipeline creates a render pipeline.
func NewPipeline() *Pipeline {
	ctx, cancel := context.WithCancel(context.Background())
	return &Pipeline{
		entries:       make(map[string]*entry),
		limiter:       rate.NewLimiter(validationRate, 5),
		ctx:           ctx,
		cancel:        cancel,
		updates:       make(chan string, 32),
		renderDiagram: RenderDiagram,
	}
}

// Updates delivers the key of each block whose render task completed. The
// UI listens and redraws; no other state is exchanged here.
func (p *Pipeline) Updates() <-chan string {
	return p.updates
}

// BeginMessage starts a new render generation for a new assistant message.
// Tasks still running for the previous message are abandoned best-effort
// and their late results discarded.
func (p *Pipeline) BeginMessage() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancel()
	p.gen++
	p.ctx, p.cancel = context.WithCancel(context.Background())
}

// CancelActive abandons in-flight render tasks for the active message.
func (p *Pipeline) CancelActive() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancel()
	p.ctx, p.cancel = context.WithCancel(context.Background())
}

// Result returns the current render state for a block. Blocks the pipeline
// has never seen report StateEmpty.
func (p *Pipeline) Result(b markdown.Block) Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.entries[b.Key()]; ok {
		return e.res
	}
	return Result{State: StateEmpty}
}

// =============================================================================
// STATE MACHINE
// =============================================================================

// Observe advances the state machine for every code and diagram block of a
// scan. It is called after each re-scan; finalized reports whether the
// owning message is complete.
//
// Observe never blocks on rendering: tasks run in their own goroutines and
// deposit into the block's result slot.
func (p *Pipeline) Observe(blocks []markdown.Block, finalized bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, b := range blocks {
		switch b.Kind {
		case markdown.KindCodeBlock:
			p.observeCodeLocked(b)
		case markdown.KindDiagramBlock:
			p.observeDiagramLocked(b, finalized)
		}
	}
}

// observeCodeLocked starts highlighting for a code block on first sight.
// Highlighting cannot fail past this boundary: on error the output falls
// back to escaped plain text, so code blocks always reach Rendered.
func (p *Pipeline) observeCodeLocked(b markdown.Block) {
	key := b.Key()
	if _, ok := p.entries[key]; ok {
		return
	}
	e := &entry{res: Result{State: StateRendering}}
	p.entries[key] = e

	ctx, gen := p.ctx, p.gen
	go func() {
		out := Highlight(b.Language, b.Text)
		p.complete(ctx, gen, key, Result{State: StateRendered, Output: out})
	}()
}

// observeDiagramLocked advances one diagram block.
func (p *Pipeline) observeDiagramLocked(b markdown.Block, finalized bool) {
	key := b.Key()
	e, ok := p.entries[key]
	if !ok {
		e = &entry{res: Result{State: StateValidating}}
		p.entries[key] = e
	}
	if e.res.State != StateValidating {
		return
	}

	if !finalized && !p.limiter.Allow() {
		return // revalidation throttled; next scan retries
	}

	if err := ValidateDiagram(b.Text); err != nil {
		if finalized {
			// Terminal: the text will never change again.
			e.res = Result{State: StateFailed, Reason: err.Error()}
			p.push(key)
		}
		// Still streaming: stay in Validating, retry on the next scan.
		return
	}

	e.res = Result{State: StateRendering}
	ctx, gen := p.ctx, p.gen
	go func() {
		out, err := p.renderDiagram(ctx, b.Text)
		if err != nil {
			p.complete(ctx, gen, key, Result{State: StateFailed, Reason: fmt.Sprintf("render failed: %v", err)})
			return
		}
		p.complete(ctx, gen, key, Result{State: StateRendered, Output: out})
	}()
}

// complete deposits a task result into the block's slot. Results from a
// canceled context or a stale generation are discarded: the owning message
// is no longer the active one.
func (p *Pipeline) complete(ctx context.Context, gen uint64, key string, res Result) {
	if ctx.Err() != nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.gen {
		return
	}
	if e, ok := p.entries[key]; ok {
		e.res = res
	}
	p.push(key)
}

// push signals an update without ever blocking a render task.
func (p *Pipeline) push(key string) {
	select {
	case p.updates <- key:
	default:
	}
}
