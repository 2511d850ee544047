// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"os"
	"path/filepath"
	"testing"
)

// =============================================================================
// STRING HELPER TESTS
// =============================================================================

func TestTruncateRunesNoEllipsis(t *testing.T) {
	if got := TruncateRunesNoEllipsis("héllo", 3); got != "hél" {
		t.Errorf("got %q, want %q", got, "hél")
	}
	if got := TruncateRunesNoEllipsis("hi", 10); got != "hi" {
		t.Errorf("got %q, want %q", got, "hi")
	}
	// Multibyte characters count as one rune, never split.
	if got := TruncateRunesNoEllipsis("日本語のテキスト", 3); got != "日本語" {
		t.Errorf("got %q, want %q", got, "日本語")
	}
}

func TestTruncateWidth(t *testing.T) {
	// Double-width characters count as two cells.
	if got := TruncateWidth("日本語テキスト", 9); got != "日本語..." {
		t.Errorf("TruncateWidth CJK: got %q", got)
	}
	if got := TruncateWidth("short", 20); got != "short" {
		t.Errorf("TruncateWidth short: got %q", got)
	}
}

func TestPadWidth(t *testing.T) {
	if got := PadWidth("ab", 5); got != "ab   " {
		t.Errorf("PadWidth: got %q", got)
	}
	// Double-width characters count as two cells.
	if got := PadWidth("日本", 6); got != "日本  " {
		t.Errorf("PadWidth CJK: got %q", got)
	}
}

func TestFirstWords(t *testing.T) {
	if got := FirstWords("one two three four", 2); got != "one two..." {
		t.Errorf("FirstWords: got %q", got)
	}
	if got := FirstWords("one two", 5); got != "one two" {
		t.Errorf("FirstWords short: got %q", got)
	}
}

// =============================================================================
// ATOMIC WRITE TESTS
// =============================================================================

func TestAtomicWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "out.md")
	data := []byte("# exported\n")

	if err := AtomicWriteFile(path, data, 0644); err != nil {
		t.Fatalf("AtomicWriteFile failed: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read back: %v", err)
	}
	if string(content) != string(data) {
		t.Errorf("content mismatch: got %q, want %q", content, data)
	}
}

func TestAtomicWriteFileOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.md")
	if err := AtomicWriteFile(path, []byte("first"), 0644); err != nil {
		t.Fatalf("first write failed: %v", err)
	}
	if err := AtomicWriteFile(path, []byte("second"), 0644); err != nil {
		t.Fatalf("second write failed: %v", err)
	}
	content, _ := os.ReadFile(path)
	if string(content) != "second" {
		t.Errorf("got %q, want %q", content, "second")
	}
}
