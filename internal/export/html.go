// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/mhollis/streamdown/internal/model"
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter exports sessions to a standalone dark-theme HTML page.
type HTMLExporter struct {
	options *Options
}

// NewHTMLExporter creates an HTML exporter.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &HTMLExporter{options: opts}
}

// FileExtension returns ".html".
func (e *HTMLExporter) FileExtension() string { return ".html" }

const htmlStyle = `
body { font-family: -apple-system, "Segoe UI", sans-serif; background: #1e1e2e; color: #cdd6f4; max-width: 860px; margin: 0 auto; padding: 2rem; }
h1 { color: #a78bfa; border-bottom: 1px solid #313244; padding-bottom: .5rem; }
.meta { color: #6c7086; font-size: .85rem; margin-bottom: 2rem; }
.message { border-radius: 8px; padding: 1rem; margin: 1rem 0; white-space: pre-wrap; }
.user { background: #1d4ed8; color: #e0f2fe; }
.assistant { background: #3b3655; color: #e9e4f5; }
.role { font-weight: bold; font-size: .8rem; text-transform: uppercase; letter-spacing: .05em; opacity: .8; margin-bottom: .5rem; }
.timestamp { float: right; font-weight: normal; opacity: .6; }
`

// Export converts a session to HTML.
func (e *HTMLExporter) Export(s *model.Session) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("session is nil")
	}
	if s.MessageCount() == 0 {
		return nil, fmt.Errorf("session has no messages")
	}

	meta := s.GetMeta()
	var sb strings.Builder

	sb.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	sb.WriteString("<meta charset=\"utf-8\">\n")
	sb.WriteString(fmt.Sprintf("<title>%s</title>\n", html.EscapeString(meta.Title)))
	sb.WriteString("<style>" + htmlStyle + "</style>\n</head>\n<body>\n")

	sb.WriteString(fmt.Sprintf("<h1>%s</h1>\n", html.EscapeString(meta.Title)))
	if e.options.IncludeMetadata {
		sb.WriteString(fmt.Sprintf("<div class=\"meta\">%d messages · created %s · exported %s</div>\n",
			s.MessageCount(),
			formatTimestamp(s.CreatedAt),
			formatTimestamp(time.Now())))
	}

	for _, msg := range s.Messages {
		if msg.IsEmpty() {
			continue
		}
		cls := "assistant"
		if msg.Role == model.RoleUser {
			cls = "user"
		}
		sb.WriteString(fmt.Sprintf("<div class=\"message %s\">\n", cls))
		sb.WriteString("<div class=\"role\">" + html.EscapeString(msg.Role.DisplayName()))
		if e.options.IncludeTimestamps {
			sb.WriteString("<span class=\"timestamp\">" + formatTimestamp(msg.Timestamp) + "</span>")
		}
		sb.WriteString("</div>\n")
		sb.WriteString(html.EscapeString(msg.Content()))
		sb.WriteString("\n</div>\n")
	}

	sb.WriteString("</body>\n</html>\n")
	return []byte(sb.String()), nil
}
