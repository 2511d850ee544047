// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"context"
	"strings"
	"testing"
)

func TestValidateDiagram(t *testing.T) {
	tests := []struct {
		name string
		text string
		ok   bool
	}{
		{"simple graph", "graph TD\nA-->B", true},
		{"flowchart with labels", "flowchart LR\nA[Start] --> B{Choice}\nB -->|yes| C(Done)", true},
		{"chained edges", "graph LR\nA-->B-->C-->D", true},
		{"subgraph", "graph TD\nsubgraph cluster\nA-->B\nend", true},
		{"comment line", "graph TD\n%% a note\nA-->B", true},
		{"bare node", "graph TD\nA[Only node]", true},
		{"semicolons", "graph TD;\nA-->B;", true},
		{"empty", "", false},
		{"missing header", "A-->B", false},
		{"truncated edge", "graph TD\nA--", false},
		{"truncated header", "graph T", false},
		{"garbage statement", "graph TD\nA-->B\n???", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDiagram(tt.text)
			if tt.ok && err != nil {
				t.Errorf("ValidateDiagram(%q) = %v, want nil", tt.text, err)
			}
			if !tt.ok && err == nil {
				t.Errorf("ValidateDiagram(%q) = nil, want error", tt.text)
			}
		})
	}
}

func TestRenderDiagramEdges(t *testing.T) {
	out, err := RenderDiagram(context.Background(), "graph TD\nA[Start] --> B[End]")
	if err != nil {
		t.Fatalf("RenderDiagram: %v", err)
	}
	for _, want := range []string{"[A] Start", "[B] End", "A ──▶ B"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderDiagramEdgeLabel(t *testing.T) {
	out, err := RenderDiagram(context.Background(), "graph LR\nA -->|yes| B")
	if err != nil {
		t.Fatalf("RenderDiagram: %v", err)
	}
	if !strings.Contains(out, "A ──yes──▶ B") {
		t.Errorf("labeled edge missing:\n%s", out)
	}
}

func TestRenderDiagramCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := RenderDiagram(ctx, "graph TD\nA-->B"); err == nil {
		t.Error("expected context error")
	}
}

func TestRenderDiagramInvalidInput(t *testing.T) {
	if _, err := RenderDiagram(context.Background(), "not a diagram"); err == nil {
		t.Error("expected validation error")
	}
}
