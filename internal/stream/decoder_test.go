// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"strings"
	"testing"
)

// collect runs a sequence of chunks through a decoder and returns all frames
// including those produced by the final flush.
func collect(t *testing.T, d *Decoder, chunks []string) ([]Frame, error) {
	t.Helper()
	var frames []Frame
	for _, c := range chunks {
		frames = append(frames, d.Decode([]byte(c))...)
	}
	flushed, err := d.Flush()
	return append(frames, flushed...), err
}

// =============================================================================
// SSE FRAMING TESTS
// =============================================================================

func TestFlushCountsMalformedTailOnce(t *testing.T) {
	d := NewDecoder(FramingSSE)
	d.Decode([]byte("data: {not json"))
	_, err := d.Flush()
	if err == nil {
		t.Fatal("expected a DecodeError for the malformed tail")
	}
	if d.Malformed() != 1 {
		t.Errorf("malformed count = %d, want 1", d.Malformed())
	}
}

func TestDecodeSplitRecord(t *testing.T) {
	// A record split mid-JSON across two chunks must reassemble.
	d := NewDecoder(FramingSSE)
	frames, err := collect(t, d, []string{
		"data: {\"content\":\"Hel",
		"lo\"}\n\ndata: {\"content\":\"[DONE]\"}\n\n",
	})
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}

	want := []Frame{ContentFrame("Hello"), DoneFrame()}
	if len(frames) != len(want) {
		t.Fatalf("got %d frames, want %d: %+v", len(frames), len(want), frames)
	}
	for i := range want {
		if frames[i] != want[i] {
			t.Errorf("frame %d = %+v, want %+v", i, frames[i], want[i])
		}
	}
}

func TestDecodeBareSentinel(t *testing.T) {
	d := NewDecoder(FramingSSE)
	frames := d.Decode([]byte("data: [DONE]\n\n"))
	if len(frames) != 1 || frames[0].Kind != FrameDone {
		t.Fatalf("got %+v, want a single done frame", frames)
	}
}

func TestDecodeErrorPayload(t *testing.T) {
	d := NewDecoder(FramingSSE)
	frames := d.Decode([]byte("data: {\"error\":\"model overloaded\"}\n"))
	if len(frames) != 1 || frames[0].Kind != FrameError {
		t.Fatalf("got %+v, want a single error frame", frames)
	}
	if frames[0].Message != "model overloaded" {
		t.Errorf("message = %q", frames[0].Message)
	}
}

func TestDecodeIgnoresOtherFields(t *testing.T) {
	d := NewDecoder(FramingSSE)
	input := "event: message\nid: 42\nretry: 15000\ndata: {\"content\":\"hi\"}\n\n"
	frames := d.Decode([]byte(input))
	if len(frames) != 1 || frames[0].Text != "hi" {
		t.Fatalf("got %+v, want one content frame %q", frames, "hi")
	}
}

func TestDecodeSkipsMalformedLine(t *testing.T) {
	d := NewDecoder(FramingSSE)
	frames := d.Decode([]byte("data: {not json}\ndata: {\"content\":\"ok\"}\n"))
	if len(frames) != 1 || frames[0].Text != "ok" {
		t.Fatalf("got %+v, want the well-formed record only", frames)
	}
	if d.Malformed() != 1 {
		t.Errorf("malformed count = %d, want 1", d.Malformed())
	}
}

func TestDecodeCustomMarker(t *testing.T) {
	d := NewDecoderWithMarker("payload:")
	frames := d.Decode([]byte("payload: {\"content\":\"x\"}\n"))
	if len(frames) != 1 || frames[0].Text != "x" {
		t.Fatalf("got %+v", frames)
	}
}

func TestFlushFinalLineWithoutNewline(t *testing.T) {
	d := NewDecoder(FramingSSE)
	if frames := d.Decode([]byte("data: {\"content\":\"tail\"}")); len(frames) != 0 {
		t.Fatalf("record without newline must stay buffered, got %+v", frames)
	}
	frames, err := d.Flush()
	if err != nil {
		t.Fatalf("flush error: %v", err)
	}
	if len(frames) != 1 || frames[0].Text != "tail" {
		t.Fatalf("got %+v, want the final record", frames)
	}
}

// =============================================================================
// UTF-8 SAFETY TESTS
// =============================================================================

func TestDecodeSplitMultibyteRune(t *testing.T) {
	// "日" is e6 97 a5. Split the payload bytes inside the rune.
	record := []byte("data: {\"content\":\"日本\"}\n")
	for cut := 1; cut < len(record); cut++ {
		d := NewDecoder(FramingSSE)
		var frames []Frame
		frames = append(frames, d.Decode(record[:cut])...)
		frames = append(frames, d.Decode(record[cut:])...)

		if len(frames) != 1 {
			t.Fatalf("cut %d: got %d frames", cut, len(frames))
		}
		if frames[0].Text != "日本" {
			t.Errorf("cut %d: content = %q, want %q", cut, frames[0].Text, "日本")
		}
	}
}

func TestDecodeOneByteAtATime(t *testing.T) {
	record := "data: {\"content\":\"héllo wörld 🎉\"}\n\ndata: [DONE]\n\n"
	d := NewDecoder(FramingSSE)
	var frames []Frame
	for i := 0; i < len(record); i++ {
		frames = append(frames, d.Decode([]byte{record[i]})...)
	}
	if len(frames) != 2 {
		t.Fatalf("got %d frames, want 2", len(frames))
	}
	if frames[0].Text != "héllo wörld 🎉" {
		t.Errorf("content = %q", frames[0].Text)
	}
	if frames[1].Kind != FrameDone {
		t.Errorf("second frame = %+v, want done", frames[1])
	}
}

// =============================================================================
// CONCATENATED JSON FRAMING TESTS
// =============================================================================

func TestDecodeConcatenatedObjects(t *testing.T) {
	d := NewDecoder(FramingJSON)
	input := `{"content":"foo"}{"content":"bar"}{"content":"[DONE]"}`
	frames := d.Decode([]byte(input))

	want := []Frame{ContentFrame("foo"), ContentFrame("bar"), DoneFrame()}
	if len(frames) != len(want) {
		t.Fatalf("got %d frames, want %d", len(frames), len(want))
	}
	for i := range want {
		if frames[i] != want[i] {
			t.Errorf("frame %d = %+v, want %+v", i, frames[i], want[i])
		}
	}
}

func TestDecodeObjectSplitAcrossChunks(t *testing.T) {
	d := NewDecoder(FramingJSON)
	if frames := d.Decode([]byte(`{"content":"he`)); len(frames) != 0 {
		t.Fatalf("incomplete object must stay buffered, got %+v", frames)
	}
	frames := d.Decode([]byte(`llo"}`))
	if len(frames) != 1 || frames[0].Text != "hello" {
		t.Fatalf("got %+v", frames)
	}
}

func TestDecodeBracesInsideStrings(t *testing.T) {
	d := NewDecoder(FramingJSON)
	frames := d.Decode([]byte(`{"content":"a } b { c \" d"}`))
	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(frames))
	}
	if frames[0].Text != `a } b { c " d` {
		t.Errorf("content = %q", frames[0].Text)
	}
}

func TestFlushReportsUndecodableTail(t *testing.T) {
	d := NewDecoder(FramingJSON)
	d.Decode([]byte(`{"content":"ok"}{"content":"trunc`))
	frames, err := d.Flush()
	if len(frames) != 0 {
		t.Errorf("flush produced frames: %+v", frames)
	}
	if err == nil {
		t.Fatal("expected a DecodeError for the truncated object")
	}
	if _, ok := err.(*DecodeError); !ok {
		t.Errorf("error type = %T, want *DecodeError", err)
	}
	if d.buffered() != 0 {
		t.Errorf("buffer not drained after flush: %d bytes", d.buffered())
	}
}

func TestDecodeLargeContent(t *testing.T) {
	d := NewDecoder(FramingSSE)
	big := strings.Repeat("x", 10000)
	frames := d.Decode([]byte("data: {\"content\":\"" + big + "\"}\n"))
	if len(frames) != 1 || frames[0].Text != big {
		t.Fatal("large record mangled")
	}
}
