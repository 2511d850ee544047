// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"bytes"
	"encoding/json"
	"strings"
	"unicode/utf8"
)

// =============================================================================
// FRAMING MODES
// =============================================================================

// Framing selects how record boundaries are located in the byte stream.
type Framing int

const (
	// FramingSSE parses line-based records prefixed by a declared marker
	// (one JSON object per line, blank-line separated events).
	FramingSSE Framing = iota

	// FramingJSON parses raw concatenated JSON objects with no delimiter,
	// locating boundaries by brace-balance scanning.
	FramingJSON
)

// DefaultMarker is the record prefix used by SSE framing.
const DefaultMarker = "data:"

// =============================================================================
// DECODER
// =============================================================================

// Decoder turns raw incoming bytes into a sequence of typed frames,
// buffering partial data across calls.
//
// Input chunks are not assumed to align with record boundaries or even with
// UTF-8 code point boundaries: a multi-byte sequence split across chunks is
// reassembled before any text is interpreted.
type Decoder struct {
	framing Framing
	marker  string

	// pending holds trailing bytes that end mid-rune, withheld until the
	// rest of the sequence arrives.
	pending []byte

	// text holds decoded, rune-complete text not yet consumed by a record.
	text []byte

	malformed int
}

// NewDecoder creates a decoder for the given framing mode.
func NewDecoder(framing Framing) *Decoder {
	return &Decoder{
		framing: framing,
		marker:  DefaultMarker,
	}
}

// NewDecoderWithMarker creates an SSE-framed decoder with a custom record
// marker.
func NewDecoderWithMarker(marker string) *Decoder {
	return &Decoder{
		framing: FramingSSE,
		marker:  marker,
	}
}

// Malformed returns the count of records that were skipped because their
// payload could not be parsed.
func (d *Decoder) Malformed() int {
	return d.malformed
}

// buffered returns the number of bytes retained awaiting more input.
func (d *Decoder) buffered() int {
	return len(d.pending) + len(d.text)
}

// Decode consumes a chunk of raw bytes and returns the frames for every
// record completed by it. Incomplete trailing data is retained for the
// next call.
func (d *Decoder) Decode(chunk []byte) []Frame {
	d.ingest(chunk)

	switch d.framing {
	case FramingJSON:
		return d.scanObjects()
	default:
		return d.scanLines()
	}
}

// Flush drains the decoder at stream end. Any record that was waiting for
// more bytes can no longer be completed: a final unterminated SSE line is
// processed as-is, and undecodable leftovers are reported as a DecodeError
// and discarded.
func (d *Decoder) Flush() ([]Frame, error) {
	var frames []Frame

	// A trailing rune fragment can never complete now; treat it as text.
	if len(d.pending) > 0 {
		d.text = append(d.text, d.pending...)
		d.pending = nil
	}

	switch d.framing {
	case FramingJSON:
		frames = d.scanObjects()
	default:
		frames = d.scanLines()
		// Final line without a trailing newline. A marker-prefixed but
		// malformed payload is counted once, by decodeLine.
		if len(d.text) > 0 {
			line := string(d.text)
			d.text = nil
			before := d.malformed
			if f, ok := d.decodeLine(line); ok {
				frames = append(frames, f)
			} else if d.malformed > before {
				// decodeLine already counted the bad payload.
				return frames, &DecodeError{Data: line}
			} else {
				d.text = []byte(line)
			}
		}
	}

	if len(d.text) > 0 && len(bytes.TrimSpace(d.text)) > 0 {
		err := &DecodeError{Data: string(d.text)}
		d.malformed++
		d.text = nil
		return frames, err
	}
	d.text = nil
	return frames, nil
}

// =============================================================================
// BYTE INGESTION (UTF-8 SAFE)
// =============================================================================

// ingest appends a chunk to the text buffer, withholding any trailing bytes
// that form an incomplete UTF-8 sequence so a code point is never split.
func (d *Decoder) ingest(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	data := chunk
	if len(d.pending) > 0 {
		data = append(d.pending, chunk...)
		d.pending = nil
	}

	cut := completePrefix(data)
	d.text = append(d.text, data[:cut]...)
	if cut < len(data) {
		d.pending = append([]byte(nil), data[cut:]...)
	}
}

// completePrefix returns the length of the longest prefix of data that ends
// on a UTF-8 code point boundary. Only the last few bytes can be affected,
// so the scan is constant-time.
func completePrefix(data []byte) int {
	n := len(data)
	// Find the start of the last potential rune.
	start := n - 1
	for start > 0 && n-start < utf8.UTFMax && !utf8.RuneStart(data[start]) {
		start--
	}
	if !utf8.RuneStart(data[start]) {
		// No rune start within reach; the bytes are invalid rather than
		// incomplete. Pass them through.
		return n
	}
	size := runeLen(data[start])
	if size <= 0 || start+size <= n {
		return n
	}
	// The final sequence is incomplete; withhold it.
	return start
}

// runeLen returns the encoded length implied by a UTF-8 leading byte, or -1
// for a continuation or invalid byte.
func runeLen(b byte) int {
	switch {
	case b < 0x80:
		return 1
	case b&0xE0 == 0xC0:
		return 2
	case b&0xF0 == 0xE0:
		return 3
	case b&0xF8 == 0xF0:
		return 4
	default:
		return -1
	}
}

// =============================================================================
// SSE LINE FRAMING
// =============================================================================

// scanLines consumes every complete line in the buffer.
func (d *Decoder) scanLines() []Frame {
	var frames []Frame
	for {
		idx := bytes.IndexByte(d.text, '\n')
		if idx < 0 {
			return frames
		}
		line := string(d.text[:idx])
		d.text = d.text[idx+1:]

		if f, ok := d.decodeLine(line); ok {
			frames = append(frames, f)
		}
	}
}

// decodeLine decodes one record line. Blank separator lines and fields
// other than the record marker (event:, id:, retry:, comments) are ignored.
func (d *Decoder) decodeLine(line string) (Frame, bool) {
	line = strings.TrimRight(line, "\r")
	if strings.TrimSpace(line) == "" {
		return Frame{}, false
	}
	if !strings.HasPrefix(line, d.marker) {
		return Frame{}, false
	}
	payload := strings.TrimSpace(line[len(d.marker):])
	return d.decodePayload(payload)
}

// =============================================================================
// CONCATENATED JSON FRAMING
// =============================================================================

// scanObjects consumes every complete JSON object in the buffer, locating
// boundaries by brace balance. String literals (including escaped quotes
// and braces inside them) are skipped, not counted.
func (d *Decoder) scanObjects() []Frame {
	var frames []Frame
	for {
		start := bytes.IndexByte(d.text, '{')
		if start < 0 {
			// Nothing but inter-record noise; drop it.
			if len(bytes.TrimSpace(d.text)) > 0 {
				d.malformed++
			}
			d.text = nil
			return frames
		}

		end, ok := balanceBraces(d.text[start:])
		if !ok {
			// Incomplete object: keep it (and discard noise before it).
			d.text = d.text[start:]
			return frames
		}

		payload := string(d.text[start : start+end])
		d.text = d.text[start+end:]

		if f, ok := d.decodePayload(payload); ok {
			frames = append(frames, f)
		}
	}
}

// balanceBraces returns the length of the first balanced {...} group in
// data, which must start with '{'. ok is false while the group is still
// open.
func balanceBraces(data []byte) (int, bool) {
	depth := 0
	inString := false
	escaped := false

	for i, b := range data {
		if inString {
			switch {
			case escaped:
				escaped = false
			case b == '\\':
				escaped = true
			case b == '"':
				inString = false
			}
			continue
		}
		switch b {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1, true
			}
		}
	}
	return 0, false
}

// =============================================================================
// PAYLOAD DECODING
// =============================================================================

// recordPayload is the shape of one transport record. Which upstream model
// produced it is irrelevant here; adapters have already reduced everything
// to a content delta or an error field.
type recordPayload struct {
	Content *string `json:"content"`
	Error   *string `json:"error"`
}

// decodePayload folds a record payload into a frame. Malformed payloads are
// counted and skipped; the stream continues.
func (d *Decoder) decodePayload(payload string) (Frame, bool) {
	if payload == DoneSentinel {
		return DoneFrame(), true
	}

	var rec recordPayload
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		d.malformed++
		return Frame{}, false
	}

	switch {
	case rec.Error != nil:
		return ErrorFrame(*rec.Error), true
	case rec.Content != nil:
		if *rec.Content == DoneSentinel {
			return DoneFrame(), true
		}
		return ContentFrame(*rec.Content), true
	default:
		d.malformed++
		return Frame{}, false
	}
}
