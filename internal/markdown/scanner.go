// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package markdown

import (
	"regexp"
	"strings"
)

// =============================================================================
// LINE PATTERNS
// =============================================================================

var (
	headingRe     = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	blockquoteRe  = regexp.MustCompile(`^>\s?(.*)$`)
	unorderedRe   = regexp.MustCompile(`^[-*+]\s+(.*)$`)
	orderedRe     = regexp.MustCompile(`^\d{1,9}[.)]\s+(.*)$`)
	thematicRe    = regexp.MustCompile(`^-{3,}\s*$`)
	tableSepRe    = regexp.MustCompile(`^\|?[\s:|-]*-[\s:|-]*\|?$`)
)

// =============================================================================
// SCANNER
// =============================================================================

// Scan re-scans the entire accumulated content and returns its ordered
// block sequence.
//
// finalized controls the pending-fence rule: while the message is still
// streaming, a fenced block with no closing fence emits nothing (its text
// is likely incomplete); once finalized, the fence is force-closed with
// whatever was captured.
func Scan(content string, finalized bool) []Block {
	if content == "" {
		return nil
	}

	lines := strings.Split(content, "\n")
	blocks := make([]Block, 0, len(lines)/2)

	for i := 0; i < len(lines); {
		line := lines[i]
		trimmed := strings.TrimSpace(line)

		// Blank lines separate blocks but are not blocks themselves.
		if trimmed == "" {
			i++
			continue
		}

		// 1. Fenced code / diagram block.
		if strings.HasPrefix(trimmed, "```") {
			block, next, closed := scanFence(lines, i)
			if !closed && !finalized {
				// Pending: the open fence swallows the remainder of the
				// content and emits nothing this scan.
				return blocks
			}
			blocks = append(blocks, block)
			i = next
			continue
		}

		// 2. Pipe table (needs a separator row on the next line).
		if isTableRow(trimmed) && i+1 < len(lines) && isSeparatorRow(strings.TrimSpace(lines[i+1])) {
			block, next := scanTable(lines, i)
			blocks = append(blocks, block)
			i = next
			continue
		}

		// 3. Heading.
		if m := headingRe.FindStringSubmatch(trimmed); m != nil {
			blocks = append(blocks, Block{
				Kind:  KindHeading,
				Level: len(m[1]),
				Text:  m[2],
			})
			i++
			continue
		}

		// 4. Blockquote.
		if m := blockquoteRe.FindStringSubmatch(trimmed); m != nil {
			blocks = append(blocks, Block{Kind: KindBlockquote, Text: m[1]})
			i++
			continue
		}

		// 5. List item. Each qualifying line is its own independent item;
		// there is no grouping into a parent list and no multi-line items.
		if m := unorderedRe.FindStringSubmatch(trimmed); m != nil {
			blocks = append(blocks, Block{Kind: KindListItem, Text: m[1]})
			i++
			continue
		}
		if m := orderedRe.FindStringSubmatch(trimmed); m != nil {
			blocks = append(blocks, Block{Kind: KindListItem, Ordered: true, Text: m[1]})
			i++
			continue
		}

		// 6. Thematic break.
		if thematicRe.MatchString(trimmed) {
			blocks = append(blocks, Block{Kind: KindThematicBreak})
			i++
			continue
		}

		// 7. Paragraph with inline substitution.
		blocks = append(blocks, Block{
			Kind: KindParagraph,
			Text: RenderInline(line),
		})
		i++
	}

	return blocks
}

// =============================================================================
// FENCED BLOCKS
// =============================================================================

// scanFence consumes a fenced block starting at lines[start]. It returns
// the block, the index of the first line after it, and whether a closing
// fence was found before the content ran out.
func scanFence(lines []string, start int) (Block, int, bool) {
	opening := strings.TrimSpace(lines[start])
	language := strings.TrimSpace(strings.TrimPrefix(opening, "```"))

	var body []string
	for i := start + 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "```" {
			return makeFenceBlock(language, body), i + 1, true
		}
		body = append(body, lines[i])
	}

	// No closing fence: force-closed with whatever was captured.
	return makeFenceBlock(language, body), len(lines), false
}

func makeFenceBlock(language string, body []string) Block {
	kind := KindCodeBlock
	if language == DiagramTag {
		kind = KindDiagramBlock
	}
	return Block{
		Kind:     kind,
		Language: language,
		Text:     strings.Join(body, "\n"),
	}
}

// =============================================================================
// PIPE TABLES
// =============================================================================

// isTableRow reports whether a trimmed line is a |-delimited row.
func isTableRow(trimmed string) bool {
	return len(trimmed) >= 2 && strings.HasPrefix(trimmed, "|") && strings.HasSuffix(trimmed, "|")
}

// isSeparatorRow reports whether a trimmed line is the header separator
// row: |-delimited like any other row, containing a run of dashes (plus
// optional alignment colons and spaces).
func isSeparatorRow(trimmed string) bool {
	return isTableRow(trimmed) && strings.Contains(trimmed, "-") && tableSepRe.MatchString(trimmed)
}

// scanTable consumes a pipe table starting at the header row. Cell counts
// may be mismatched across rows; short rows are padded with empty strings,
// never treated as an error.
func scanTable(lines []string, start int) (Block, int) {
	header := splitRow(strings.TrimSpace(lines[start]))

	i := start + 2 // skip header and separator
	var rows [][]string
	for ; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if !isTableRow(trimmed) {
			break
		}
		row := splitRow(trimmed)
		for len(row) < len(header) {
			row = append(row, "")
		}
		rows = append(rows, row)
	}

	return Block{Kind: KindTable, Header: header, Rows: rows}, i
}

// splitRow splits a |-delimited row into trimmed cells, dropping the empty
// leading and trailing fields produced by the outer pipes.
func splitRow(trimmed string) []string {
	parts := strings.Split(trimmed, "|")
	if len(parts) >= 2 {
		parts = parts[1 : len(parts)-1]
	}
	cells := make([]string, len(parts))
	for i, p := range parts {
		cells[i] = strings.TrimSpace(p)
	}
	return cells
}
