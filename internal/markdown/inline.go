// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package markdown

import (
	"regexp"
	"strconv"
	"strings"
)

// Inline spans are recognized by bounded regex substitutions applied in a
// fixed order: code spans first, then bold, italic and links. Code spans
// are lifted out before the later passes run, so markers inside them are
// never restyled.
//
// Output uses neutral markup tags (<code>, <b>, <i>, <a href="...">); the
// renderer maps them to concrete terminal styling. Tags rather than ANSI
// keep the scanner deterministic and display-independent.

var (
	inlineCodeRe = regexp.MustCompile("`([^`\n]+)`")
	boldRe       = regexp.MustCompile(`\*\*([^*\n]+)\*\*`)
	italicRe     = regexp.MustCompile(`\*([^*\n]+)\*`)
	linkRe       = regexp.MustCompile(`\[([^\]\n]+)\]\(([^)\n]+)\)`)
)

// codeMark delimits lifted code spans. NUL can reach us through the
// transport (a backslash-u0000 escape in a JSON string decodes to it), so
// any NUL already in the input is stripped before lifting; after that the
// marker cannot collide with content. NUL has no terminal rendering to lose.
const codeMark = "\x00"

// RenderInline applies inline span substitution to one line of paragraph
// text. Substitutions are non-overlapping.
func RenderInline(line string) string {
	line = strings.ReplaceAll(line, codeMark, "")

	// Lift code spans out first.
	var spans []string
	line = inlineCodeRe.ReplaceAllStringFunc(line, func(m string) string {
		body := m[1 : len(m)-1]
		spans = append(spans, "<code>"+body+"</code>")
		return codeMark + strconv.Itoa(len(spans)-1) + codeMark
	})

	line = boldRe.ReplaceAllString(line, "<b>$1</b>")
	line = italicRe.ReplaceAllString(line, "<i>$1</i>")
	line = linkRe.ReplaceAllString(line, `<a href="$2">$1</a>`)

	// Restore code spans.
	for i, span := range spans {
		line = strings.Replace(line, codeMark+strconv.Itoa(i)+codeMark, span, 1)
	}
	return line
}
