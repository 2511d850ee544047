// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mhollis/streamdown/internal/markdown"
	"github.com/mhollis/streamdown/internal/ui/styles"
	"github.com/mhollis/streamdown/internal/util"
)

// =============================================================================
// BLOCK RENDERING
// =============================================================================

// BlockRenderer turns scanner blocks into styled terminal text. It reads
// async results out of the pipeline; blocks whose tasks have not finished
// show a placeholder instead of blocking the view.
type BlockRenderer struct {
	theme    *styles.Theme
	pipeline *Pipeline
}

// NewBlockRenderer creates a renderer bound to a theme and pipeline.
func NewBlockRenderer(theme *styles.Theme, pipeline *Pipeline) *BlockRenderer {
	return &BlockRenderer{theme: theme, pipeline: pipeline}
}

// Render renders one block. finalized reports whether the owning message
// is complete, which decides how unfinished render states are shown.
func (r *BlockRenderer) Render(b markdown.Block, finalized bool) string {
	switch b.Kind {
	case markdown.KindHeading:
		return r.renderHeading(b)
	case markdown.KindParagraph:
		return r.styleInline(markdown.RenderInline(b.Text))
	case markdown.KindBlockquote:
		return r.theme.Blockquote.Render(r.styleInline(markdown.RenderInline(b.Text)))
	case markdown.KindListItem:
		return r.renderListItem(b, 1)
	case markdown.KindThematicBreak:
		width := r.theme.Width - 4
		if width < 8 {
			width = 8
		}
		return r.theme.ThematicBreak.Render(strings.Repeat("─", width))
	case markdown.KindCodeBlock:
		return r.renderCode(b)
	case markdown.KindDiagramBlock:
		return r.renderDiagram(b, finalized)
	case markdown.KindTable:
		return r.renderTable(b)
	default:
		return b.Text
	}
}

// RenderAll renders a full scan, blocks separated by blank lines.
// Consecutive list items join into one list and ordered items are numbered
// by their position in the run.
func (r *BlockRenderer) RenderAll(blocks []markdown.Block, finalized bool) string {
	var parts []string
	ordinal := 0
	for i, b := range blocks {
		if b.Kind == markdown.KindListItem {
			ordinal++
			item := r.renderListItem(b, ordinal)
			if i > 0 && blocks[i-1].Kind == markdown.KindListItem {
				parts[len(parts)-1] += "\n" + item
			} else {
				parts = append(parts, item)
			}
			continue
		}
		ordinal = 0
		parts = append(parts, r.Render(b, finalized))
	}
	return strings.Join(parts, "\n\n")
}

func (r *BlockRenderer) renderHeading(b markdown.Block) string {
	text := r.styleInline(markdown.RenderInline(b.Text))
	switch b.Level {
	case 1:
		return r.theme.Heading1.Render(text)
	case 2:
		return r.theme.Heading2.Render(text)
	default:
		return r.theme.Heading3.Render(strings.Repeat("#", b.Level) + " " + text)
	}
}

func (r *BlockRenderer) renderListItem(b markdown.Block, ordinal int) string {
	marker := "•"
	if b.Ordered {
		marker = fmt.Sprintf("%d.", ordinal)
	}
	return r.theme.ListBullet.Render(marker) + " " + r.styleInline(markdown.RenderInline(b.Text))
}

// renderCode shows the highlighted output once the pipeline delivers it,
// and raw text inside the frame until then. The badge carries the fence's
// language tag, or the detected language when the fence is untagged.
func (r *BlockRenderer) renderCode(b markdown.Block) string {
	body := b.Text
	if res := r.pipeline.Result(b); res.State == StateRendered {
		body = res.Output
	}
	body = strings.TrimRight(body, "\n")

	frame := r.theme.CodeBlock.Render(body)
	lang := b.Language
	if lang == "" {
		lang = strings.ToLower(DetectLanguage(b.Text))
	}
	if lang == "" {
		return frame
	}
	badge := r.theme.CodeLangBadge.Render(lang)
	return lipgloss.JoinVertical(lipgloss.Left, badge, frame)
}

// renderDiagram maps the pipeline state to what the user sees: source text
// with a progress note while the render is pending, the graphic once done,
// and the failure reason plus raw source when validation terminally fails.
func (r *BlockRenderer) renderDiagram(b markdown.Block, finalized bool) string {
	res := r.pipeline.Result(b)
	switch res.State {
	case StateRendered:
		return r.theme.DiagramBox.Render(res.Output)
	case StateFailed:
		note := r.theme.DiagramFailed.Render(styles.StatusIndicators.Error + " diagram failed: " + res.Reason)
		return note + "\n" + r.theme.CodeBlock.Render(strings.TrimRight(b.Text, "\n"))
	default:
		note := "validating diagram…"
		if res.State == StateRendering {
			note = "rendering diagram…"
		}
		pending := r.theme.DiagramPending.Render(note)
		return pending + "\n" + r.theme.CodeBlock.Render(strings.TrimRight(b.Text, "\n"))
	}
}

// renderTable lays out rows with width-aware column padding so CJK and
// emoji cells keep the grid aligned.
func (r *BlockRenderer) renderTable(b markdown.Block) string {
	if len(b.Header) == 0 {
		return b.Text
	}

	widths := make([]int, len(b.Header))
	measure := func(row []string) {
		for i, cell := range row {
			if i >= len(widths) {
				break
			}
			if w := util.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}
	measure(b.Header)
	for _, row := range b.Rows {
		measure(row)
	}

	var out []string
	renderRow := func(row []string, style lipgloss.Style) string {
		cells := make([]string, len(widths))
		for i := range widths {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			cells[i] = style.Render(util.PadWidth(cell, widths[i]))
		}
		sep := r.theme.TableBorder.Render(" │ ")
		return strings.Join(cells, sep)
	}

	out = append(out, renderRow(b.Header, r.theme.TableHeader))
	divider := make([]string, len(widths))
	for i, w := range widths {
		divider[i] = strings.Repeat("─", w)
	}
	out = append(out, r.theme.TableBorder.Render(strings.Join(divider, "─┼─")))
	for _, row := range b.Rows {
		out = append(out, renderRow(row, r.theme.TableCell))
	}
	return strings.Join(out, "\n")
}

// =============================================================================
// INLINE TAG STYLING
// =============================================================================

var (
	boldTagRe   = regexp.MustCompile(`<b>(.*?)</b>`)
	italicTagRe = regexp.MustCompile(`<i>(.*?)</i>`)
	codeTagRe   = regexp.MustCompile(`<code>(.*?)</code>`)
	linkTagRe   = regexp.MustCompile(`<a href="([^"]*)">(.*?)</a>`)
)

// styleInline converts the scanner's neutral inline tags to terminal
// styling. Links render as "text (url)" since the terminal has no anchors.
func (r *BlockRenderer) styleInline(s string) string {
	s = codeTagRe.ReplaceAllStringFunc(s, func(m string) string {
		inner := codeTagRe.FindStringSubmatch(m)[1]
		return r.theme.InlineCode.Render(inner)
	})
	s = boldTagRe.ReplaceAllStringFunc(s, func(m string) string {
		inner := boldTagRe.FindStringSubmatch(m)[1]
		return r.theme.InlineBold.Render(inner)
	})
	s = italicTagRe.ReplaceAllStringFunc(s, func(m string) string {
		inner := italicTagRe.FindStringSubmatch(m)[1]
		return r.theme.InlineItalic.Render(inner)
	})
	s = linkTagRe.ReplaceAllStringFunc(s, func(m string) string {
		sub := linkTagRe.FindStringSubmatch(m)
		return r.theme.InlineLink.Render(sub[2]) + " (" + sub[1] + ")"
	})
	return s
}
