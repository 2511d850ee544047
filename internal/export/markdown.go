// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"

	"github.com/mhollis/streamdown/internal/model"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports sessions to Markdown.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// FileExtension returns ".md".
func (e *MarkdownExporter) FileExtension() string { return ".md" }

// Export converts a session to Markdown.
func (e *MarkdownExporter) Export(s *model.Session) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("session is nil")
	}
	if s.MessageCount() == 0 {
		return nil, fmt.Errorf("session has no messages")
	}

	meta := s.GetMeta()
	var sb strings.Builder

	if e.options.IncludeMetadata {
		sb.WriteString("---\n")
		sb.WriteString(fmt.Sprintf("title: %s\n", escapeYAML(meta.Title)))
		sb.WriteString(fmt.Sprintf("date: %s\n", s.CreatedAt.Format(time.RFC3339)))
		sb.WriteString(fmt.Sprintf("updated: %s\n", s.LastUpdated.Format(time.RFC3339)))
		sb.WriteString(fmt.Sprintf("messages: %d\n", s.MessageCount()))
		sb.WriteString(fmt.Sprintf("exported: %s\n", time.Now().Format(time.RFC3339)))
		sb.WriteString("generator: streamdown\n")
		sb.WriteString("---\n\n")
	}

	sb.WriteString(fmt.Sprintf("# %s\n\n", meta.Title))

	for _, msg := range s.Messages {
		// A canceled response can leave an assistant stub with no content.
		if msg.IsEmpty() {
			continue
		}
		sb.WriteString(fmt.Sprintf("## %s", msg.Role.DisplayName()))
		if e.options.IncludeTimestamps {
			sb.WriteString(fmt.Sprintf(" (%s)", formatTimestamp(msg.Timestamp)))
		}
		sb.WriteString("\n\n")
		sb.WriteString(msg.Content())
		sb.WriteString("\n\n")
	}

	return []byte(sb.String()), nil
}

// escapeYAML quotes a value when it would break YAML frontmatter.
func escapeYAML(s string) string {
	if strings.ContainsAny(s, ":#{}[]&*!|>'\"%@`") {
		return fmt.Sprintf("%q", s)
	}
	return s
}

// =============================================================================
// TERMINAL PREVIEW
// =============================================================================

// Preview renders exported Markdown for terminal display. Returns the raw
// content when the renderer is unavailable.
func Preview(markdown string, width int) string {
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return markdown
	}
	out, err := r.Render(markdown)
	if err != nil {
		return markdown
	}
	return out
}
