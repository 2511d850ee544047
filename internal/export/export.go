// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes chat sessions out as Markdown or HTML files and
// renders terminal previews of exported Markdown.
package export

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/mhollis/streamdown/internal/model"
	"github.com/mhollis/streamdown/internal/util"
)

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter converts a session to one output format.
type Exporter interface {
	// Export converts a session to the target format.
	Export(s *model.Session) ([]byte, error)

	// FileExtension returns the output file extension (e.g. ".md").
	FileExtension() string
}

// Options configures export behavior.
type Options struct {
	// OutputDir is the directory where files are written.
	// Default: current working directory.
	OutputDir string

	// IncludeMetadata includes a metadata header (title, dates, counts).
	IncludeMetadata bool

	// IncludeTimestamps includes per-message timestamps.
	IncludeTimestamps bool
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir:         ".",
		IncludeMetadata:   true,
		IncludeTimestamps: true,
	}
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// ExportToFile exports a session through the given exporter and writes the
// result atomically. Returns the output file path.
func ExportToFile(s *model.Session, exporter Exporter, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	content, err := exporter.Export(s)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	// Untitled sessions take their filename from the first user message.
	name := s.Title
	if name == "" {
		if first := s.FirstUserMessage(); first != nil {
			name = first.Content()
		}
	}

	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("chat_%s_%s%s",
		sanitizeFilename(name),
		timestamp,
		exporter.FileExtension(),
	)

	outputPath := filepath.Join(opts.OutputDir, filename)
	if err := util.AtomicWriteFile(outputPath, content, 0644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return outputPath, nil
}

// ExportMarkdown exports a session to a Markdown file.
func ExportMarkdown(s *model.Session, opts *Options) (string, error) {
	return ExportToFile(s, NewMarkdownExporter(opts), opts)
}

// ExportHTML exports a session to an HTML file.
func ExportHTML(s *model.Session, opts *Options) (string, error) {
	return ExportToFile(s, NewHTMLExporter(opts), opts)
}

// =============================================================================
// HELPERS
// =============================================================================

// sanitizeFilename reduces a title to a safe filename fragment.
func sanitizeFilename(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), "_")
	if out == "" {
		out = "untitled"
	}
	return util.TruncateRunesNoEllipsis(out, 40)
}

func formatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}
