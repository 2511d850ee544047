// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// =============================================================================
// DIAGRAM VALIDATION
// =============================================================================

// The diagram language is the mermaid flowchart subset real responses
// contain. Validation is deliberately strict about shape and loose about
// labels: a half-streamed edge like "A--" must fail (the block stays in
// Validating until the rest arrives), while any well-formed edge or node
// statement passes.

var (
	headerRe = regexp.MustCompile(`^(graph|flowchart)\s+(TD|TB|BT|LR|RL)\s*;?$`)

	// A[label], B(label), C{label}, or a bare identifier.
	nodeTerm = `[A-Za-z0-9_]+(\[[^\[\]]*\]|\([^()]*\)|\{[^{}]*\})?`

	// A --> B, A-->|label|B, A -- text --> B, chained with optional
	// trailing semicolon.
	edgeRe = regexp.MustCompile(`^` + nodeTerm + `(\s*(-->|---|-\.->|==>)(\|[^|]*\|)?\s*` + nodeTerm + `)+\s*;?$`)

	nodeRe = regexp.MustCompile(`^` + nodeTerm + `\s*;?$`)
)

var errEmptyDiagram = errors.New("empty diagram")

// ValidateDiagram runs a syntax-validation pass over diagram text. It
// returns nil when the text is a complete, renderable flowchart.
func ValidateDiagram(text string) error {
	lines := nonEmptyLines(text)
	if len(lines) == 0 {
		return errEmptyDiagram
	}

	if !headerRe.MatchString(lines[0]) {
		return fmt.Errorf("line 1: expected a graph/flowchart header, got %q", lines[0])
	}

	for i, line := range lines[1:] {
		switch {
		case strings.HasPrefix(line, "subgraph ") || line == "end":
			continue
		case strings.HasPrefix(line, "%%"): // comment
			continue
		case edgeRe.MatchString(line) || nodeRe.MatchString(line):
			continue
		default:
			return fmt.Errorf("line %d: unparsable statement %q", i+2, line)
		}
	}
	return nil
}

// =============================================================================
// DIAGRAM RENDERING
// =============================================================================

// edge is one parsed connection of the flowchart.
type edge struct {
	from, label, to string
}

var edgePartRe = regexp.MustCompile(`(-->|---|-\.->|==>)(\|([^|]*)\|)?`)

// RenderDiagram renders validated diagram text to terminal graphics: a
// node list and an arrow-per-edge layout. The context aborts the render
// when the owning message is cancelled.
func RenderDiagram(ctx context.Context, text string) (string, error) {
	if err := ValidateDiagram(text); err != nil {
		return "", err
	}

	var edges []edge
	nodes := make(map[string]string) // id -> label
	order := []string{}

	note := func(id, label string) {
		if _, ok := nodes[id]; !ok {
			order = append(order, id)
		}
		if label != "" || nodes[id] == "" {
			if label == "" {
				label = id
			}
			nodes[id] = label
		}
	}

	lines := nonEmptyLines(text)
	for _, line := range lines[1:] {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if strings.HasPrefix(line, "subgraph ") || line == "end" || strings.HasPrefix(line, "%%") {
			continue
		}
		line = strings.TrimSuffix(line, ";")

		parts := edgePartRe.Split(line, -1)
		links := edgePartRe.FindAllStringSubmatch(line, -1)
		prevID := ""
		for i, part := range parts {
			id, label := parseNode(strings.TrimSpace(part))
			if id == "" {
				continue
			}
			note(id, label)
			if prevID != "" && i-1 < len(links) {
				edges = append(edges, edge{from: prevID, label: links[i-1][3], to: id})
			}
			prevID = id
		}
	}

	var b strings.Builder
	for _, id := range order {
		fmt.Fprintf(&b, "[%s] %s\n", id, nodes[id])
	}
	if len(edges) > 0 {
		b.WriteString("\n")
	}
	for _, e := range edges {
		if e.label != "" {
			fmt.Fprintf(&b, "%s ──%s──▶ %s\n", e.from, e.label, e.to)
		} else {
			fmt.Fprintf(&b, "%s ──▶ %s\n", e.from, e.to)
		}
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

var nodeLabelRe = regexp.MustCompile(`^([A-Za-z0-9_]+)(?:\[([^\[\]]*)\]|\(([^()]*)\)|\{([^{}]*)\})?$`)

// parseNode splits a node term into identifier and optional label.
func parseNode(term string) (id, label string) {
	m := nodeLabelRe.FindStringSubmatch(term)
	if m == nil {
		return "", ""
	}
	id = m[1]
	for _, g := range m[2:] {
		if g != "" {
			return id, g
		}
	}
	return id, ""
}

// nonEmptyLines splits text into trimmed, non-empty lines.
func nonEmptyLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
