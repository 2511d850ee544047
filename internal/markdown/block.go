// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package markdown provides the line-oriented block scanner for streamed
// assistant responses.
//
// The scanner recognizes the markdown subset real model traffic actually
// uses: headings, fenced code/diagram blocks, pipe tables, blockquotes,
// flat list items, thematic breaks and paragraphs with basic inline spans.
// It is a pure function of the current content: scanning the same string
// always yields the same block sequence, no matter how the string was
// assembled incrementally.
package markdown

// DiagramTag is the fence language tag that classifies a fenced block as a
// diagram rather than code.
const DiagramTag = "mermaid"

// =============================================================================
// BLOCK TYPE
// =============================================================================

// BlockKind discriminates the closed set of scanner output types.
type BlockKind int

const (
	KindHeading BlockKind = iota
	KindParagraph
	KindCodeBlock
	KindDiagramBlock
	KindTable
	KindBlockquote
	KindListItem
	KindThematicBreak
)

// String returns the string representation of the block kind.
func (k BlockKind) String() string {
	switch k {
	case KindHeading:
		return "heading"
	case KindParagraph:
		return "paragraph"
	case KindCodeBlock:
		return "code"
	case KindDiagramBlock:
		return "diagram"
	case KindTable:
		return "table"
	case KindBlockquote:
		return "blockquote"
	case KindListItem:
		return "list-item"
	case KindThematicBreak:
		return "break"
	default:
		return "unknown"
	}
}

// Block is one structurally recognized unit of a message.
//
// Fields are populated per kind: Level for headings, Language for fenced
// blocks, Ordered for list items, Header/Rows for tables. Text carries the
// block body; for paragraphs it already contains inline markup tags.
type Block struct {
	Kind BlockKind

	Text     string
	Level    int
	Language string
	Ordered  bool

	Header []string
	Rows   [][]string
}

// Key returns a stable identity for the block, used by the renderer to
// track per-block state across repeated scans of growing content.
func (b Block) Key() string {
	switch b.Kind {
	case KindCodeBlock, KindDiagramBlock:
		return b.Kind.String() + ":" + b.Language + ":" + b.Text
	default:
		return b.Kind.String() + ":" + b.Text
	}
}
