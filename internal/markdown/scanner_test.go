// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package markdown

import (
	"reflect"
	"strings"
	"testing"
)

// =============================================================================
// BLOCK SCANNING TESTS
// =============================================================================

func TestScanHeading(t *testing.T) {
	blocks := Scan("## Results\n", false)
	if len(blocks) != 1 {
		t.Fatalf("got %d blocks, want 1", len(blocks))
	}
	want := Block{Kind: KindHeading, Level: 2, Text: "Results"}
	if !reflect.DeepEqual(blocks[0], want) {
		t.Errorf("got %+v, want %+v", blocks[0], want)
	}
}

func TestScanHeadingLevels(t *testing.T) {
	blocks := Scan("# a\n###### b\n####### c", false)
	if len(blocks) != 3 {
		t.Fatalf("got %d blocks, want 3", len(blocks))
	}
	if blocks[0].Level != 1 || blocks[1].Level != 6 {
		t.Errorf("levels = %d, %d", blocks[0].Level, blocks[1].Level)
	}
	// Seven hashes is not a heading.
	if blocks[2].Kind != KindParagraph {
		t.Errorf("7-hash line kind = %v, want paragraph", blocks[2].Kind)
	}
}

func TestScanBlockquoteAndList(t *testing.T) {
	blocks := Scan("> quoted\n- one\n* two\n2. three\n", false)
	kinds := []BlockKind{KindBlockquote, KindListItem, KindListItem, KindListItem}
	if len(blocks) != len(kinds) {
		t.Fatalf("got %d blocks, want %d", len(blocks), len(kinds))
	}
	for i, k := range kinds {
		if blocks[i].Kind != k {
			t.Errorf("block %d kind = %v, want %v", i, blocks[i].Kind, k)
		}
	}
	if blocks[0].Text != "quoted" {
		t.Errorf("quote text = %q", blocks[0].Text)
	}
	if blocks[3].Ordered != true || blocks[3].Text != "three" {
		t.Errorf("ordered item = %+v", blocks[3])
	}
	// Each list line is its own independent item, never grouped.
	if blocks[1].Ordered {
		t.Error("dash item marked ordered")
	}
}

func TestScanThematicBreak(t *testing.T) {
	blocks := Scan("---\n--\n", false)
	if len(blocks) != 2 {
		t.Fatalf("got %d blocks, want 2", len(blocks))
	}
	if blocks[0].Kind != KindThematicBreak {
		t.Errorf("first kind = %v, want break", blocks[0].Kind)
	}
	// Two dashes is just a paragraph.
	if blocks[1].Kind != KindParagraph {
		t.Errorf("second kind = %v, want paragraph", blocks[1].Kind)
	}
}

// =============================================================================
// FENCE TESTS
// =============================================================================

func TestFencePendingWhileStreaming(t *testing.T) {
	content := "```python\nprint(1)"

	// No closing fence: nothing emitted while streaming.
	if blocks := Scan(content, false); len(blocks) != 0 {
		t.Fatalf("pending fence emitted blocks: %+v", blocks)
	}

	// After finalize the fence is force-closed.
	blocks := Scan(content, true)
	if len(blocks) != 1 {
		t.Fatalf("got %d blocks after finalize, want 1", len(blocks))
	}
	want := Block{Kind: KindCodeBlock, Language: "python", Text: "print(1)"}
	if !reflect.DeepEqual(blocks[0], want) {
		t.Errorf("got %+v, want %+v", blocks[0], want)
	}
}

func TestFenceSwallowsRemainder(t *testing.T) {
	// Everything after an open fence belongs to it; text preceding it
	// still scans normally.
	content := "# title\n```go\nfunc main() {}\n# not a heading"
	blocks := Scan(content, false)
	if len(blocks) != 1 || blocks[0].Kind != KindHeading {
		t.Fatalf("got %+v, want only the heading", blocks)
	}
}

func TestFenceClosed(t *testing.T) {
	content := "```go\nfunc main() {}\n```\nafter\n"
	blocks := Scan(content, false)
	if len(blocks) != 2 {
		t.Fatalf("got %d blocks, want 2", len(blocks))
	}
	if blocks[0].Kind != KindCodeBlock || blocks[0].Language != "go" {
		t.Errorf("code block = %+v", blocks[0])
	}
	if blocks[0].Text != "func main() {}" {
		t.Errorf("code text = %q", blocks[0].Text)
	}
	if blocks[1].Kind != KindParagraph {
		t.Errorf("trailing paragraph missing: %+v", blocks[1])
	}
}

func TestDiagramFenceStreaming(t *testing.T) {
	// Unterminated mermaid fence: no diagram block yet.
	content := "```mermaid\ngraph TD;\nA--"
	if blocks := Scan(content, false); len(blocks) != 0 {
		t.Fatalf("unterminated diagram emitted blocks: %+v", blocks)
	}

	// Closing fence arrives: exactly one diagram block.
	content += ">B;\n```"
	blocks := Scan(content, false)
	if len(blocks) != 1 {
		t.Fatalf("got %d blocks, want 1", len(blocks))
	}
	if blocks[0].Kind != KindDiagramBlock {
		t.Errorf("kind = %v, want diagram", blocks[0].Kind)
	}
	if blocks[0].Text != "graph TD;\nA-->B;" {
		t.Errorf("diagram text = %q", blocks[0].Text)
	}
}

func TestEmptyFenceForceClosed(t *testing.T) {
	blocks := Scan("```", true)
	if len(blocks) != 1 || blocks[0].Kind != KindCodeBlock || blocks[0].Text != "" {
		t.Fatalf("got %+v", blocks)
	}
}

// =============================================================================
// TABLE TESTS
// =============================================================================

func TestScanTable(t *testing.T) {
	content := "| Name | Age | City |\n|------|-----|------|\n| Ada | 36 | London |\n"
	blocks := Scan(content, false)
	if len(blocks) != 1 || blocks[0].Kind != KindTable {
		t.Fatalf("got %+v, want one table", blocks)
	}
	if !reflect.DeepEqual(blocks[0].Header, []string{"Name", "Age", "City"}) {
		t.Errorf("header = %v", blocks[0].Header)
	}
	if !reflect.DeepEqual(blocks[0].Rows, [][]string{{"Ada", "36", "London"}}) {
		t.Errorf("rows = %v", blocks[0].Rows)
	}
}

func TestScanTableMissingCells(t *testing.T) {
	// A data row with fewer cells than the header pads with empty
	// strings; this is never an error.
	content := "| A | B | C |\n|---|---|---|\n| 1 | 2 |\n"
	blocks := Scan(content, false)
	if len(blocks) != 1 {
		t.Fatalf("got %d blocks, want 1", len(blocks))
	}
	if !reflect.DeepEqual(blocks[0].Rows, [][]string{{"1", "2", ""}}) {
		t.Errorf("rows = %v, want third cell empty", blocks[0].Rows)
	}
}

func TestTableNeedsSeparator(t *testing.T) {
	// A |-row without a separator row beneath is a paragraph.
	blocks := Scan("| a | b |\njust text\n", false)
	if len(blocks) != 2 || blocks[0].Kind != KindParagraph {
		t.Fatalf("got %+v, want paragraphs", blocks)
	}
}

func TestTableEndsAtNonRow(t *testing.T) {
	content := "| H |\n|---|\n| 1 |\n| 2 |\nplain\n"
	blocks := Scan(content, false)
	if len(blocks) != 2 {
		t.Fatalf("got %d blocks, want table + paragraph", len(blocks))
	}
	if len(blocks[0].Rows) != 2 {
		t.Errorf("rows = %v", blocks[0].Rows)
	}
}

// =============================================================================
// INLINE SPAN TESTS
// =============================================================================

func TestRenderInline(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bold", "a **b** c", "a <b>b</b> c"},
		{"italic", "a *b* c", "a <i>b</i> c"},
		{"code", "run `go test` now", "run <code>go test</code> now"},
		{"link", "see [docs](https://x.dev)", `see <a href="https://x.dev">docs</a>`},
		{"plain", "nothing here", "nothing here"},
		{"bold inside code untouched", "use `a**b**c`", "use <code>a**b**c</code>"},
		{"code then bold", "`x` and **y**", "<code>x</code> and <b>y</b>"},
		{"unterminated bold", "a **b", "a **b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RenderInline(tt.in); got != tt.want {
				t.Errorf("RenderInline(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRenderInlineStripsEmbeddedNUL(t *testing.T) {
	// A forged placeholder in the content must not hijack span restoration.
	got := RenderInline("a \x000\x00 `code` b")
	if !strings.Contains(got, "<code>code</code>") {
		t.Errorf("code span garbled: %q", got)
	}
	if strings.Contains(got, "\x00") {
		t.Errorf("NUL leaked into output: %q", got)
	}
}

func TestParagraphGetsInlineMarkup(t *testing.T) {
	blocks := Scan("this is **bold**\n", false)
	if len(blocks) != 1 || blocks[0].Text != "this is <b>bold</b>" {
		t.Fatalf("got %+v", blocks)
	}
}

// =============================================================================
// IDEMPOTENCE / EQUIVALENCE TESTS
// =============================================================================

// TestStreamingOneShotEquivalence checks the core property: the block
// sequence after applying a partition chunk by chunk (scanning the growing
// prefix each time) ends identical to scanning the complete string once.
func TestStreamingOneShotEquivalence(t *testing.T) {
	content := "# Title\n\nSome **bold** text.\n\n```go\nfmt.Println(\"hi\")\n```\n\n| a | b |\n|---|---|\n| 1 | 2 |\n\n> quote\n- item\n---\nbye 日本語\n"

	oneShot := Scan(content, false)

	partitions := [][]int{
		{1},          // byte at a time
		{3},          // small chunks
		{7},          // prime-size chunks
		{50},         // large chunks
		{1, 13, 100}, // mixed
	}

	for _, sizes := range partitions {
		var acc strings.Builder
		var last []Block
		i, s := 0, 0
		for i < len(content) {
			n := sizes[s%len(sizes)]
			s++
			end := i + n
			if end > len(content) {
				end = len(content)
			}
			acc.WriteString(content[i:end])
			last = Scan(acc.String(), false)
			i = end
		}
		if !reflect.DeepEqual(last, oneShot) {
			t.Errorf("partition %v: final blocks differ from one-shot scan", sizes)
		}
	}
}

func TestScanIsPure(t *testing.T) {
	content := "## h\ntext **b**\n"
	a := Scan(content, false)
	b := Scan(content, false)
	if !reflect.DeepEqual(a, b) {
		t.Error("repeated scans of identical content differ")
	}
}

func TestScanEmpty(t *testing.T) {
	if blocks := Scan("", false); blocks != nil {
		t.Errorf("empty content produced blocks: %+v", blocks)
	}
}
