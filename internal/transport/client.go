// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package transport connects to the upstream chat endpoint and turns its
// HTTP response body into decoded stream frames.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mhollis/streamdown/internal/model"
	"github.com/mhollis/streamdown/internal/stream"
)

// =============================================================================
// CLIENT
// =============================================================================

// readBufferSize is the per-read chunk size. Chunks cut anywhere, including
// mid-rune and mid-record; the decoder handles reassembly.
const readBufferSize = 4096

// sharedStreamingClient has no overall timeout: streams stay open as long
// as the server keeps sending. Per-request deadlines come from the context.
var sharedStreamingClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	},
}

// Client streams chat completions from a single upstream endpoint.
type Client struct {
	endpoint string
	framing  stream.Framing
	marker   string
	timeout  time.Duration
	httpc    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient substitutes the HTTP client, mainly for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpc = c }
}

// WithTimeout bounds each streaming request end to end.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) { cl.timeout = d }
}

// NewClient creates a streaming client for endpoint.
func NewClient(endpoint string, framing stream.Framing, marker string, opts ...Option) *Client {
	c := &Client{
		endpoint: endpoint,
		framing:  framing,
		marker:   marker,
		httpc:    sharedStreamingClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// chatRequest is the upstream request body: the full conversation so far.
type chatRequest struct {
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Stream sends the conversation upstream and delivers decoded frames on
// the returned channel. The channel closes when the stream ends, errors,
// or ctx is canceled; transport failures surface as error frames so the
// consumer has a single ordered event sequence.
func (c *Client) Stream(ctx context.Context, history []*model.Message) (<-chan stream.Frame, error) {
	cancel := context.CancelFunc(func() {})
	if c.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
	}

	body := chatRequest{Stream: true}
	for _, m := range history {
		body.Messages = append(body.Messages, chatMessage{
			Role:    string(m.Role),
			Content: m.Content(),
		})
	}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.httpc.Do(req)
	if err != nil {
		cancel()
		return nil, &stream.TransportError{Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, &stream.TransportError{
			Err: fmt.Errorf("unexpected status %d from %s", resp.StatusCode, c.endpoint),
		}
	}

	frames := make(chan stream.Frame, 32)
	go c.read(ctx, cancel, resp.Body, frames)
	return frames, nil
}

// read pumps body chunks through the decoder until EOF, error, or a
// terminal frame.
func (c *Client) read(ctx context.Context, cancel context.CancelFunc, body io.ReadCloser, frames chan<- stream.Frame) {
	defer cancel()
	defer close(frames)
	defer body.Close()

	dec := stream.NewDecoder(c.framing)
	if c.framing == stream.FramingSSE && c.marker != "" {
		dec = stream.NewDecoderWithMarker(c.marker)
	}
	buf := make([]byte, readBufferSize)

	emit := func(fs []stream.Frame) bool {
		for _, f := range fs {
			select {
			case frames <- f:
			case <-ctx.Done():
				return false
			}
			if f.Kind == stream.FrameDone || f.Kind == stream.FrameError {
				return false
			}
		}
		return true
	}

	for {
		n, err := body.Read(buf)
		if n > 0 {
			if !emit(dec.Decode(buf[:n])) {
				return
			}
		}
		if err != nil {
			tail, flushErr := dec.Flush()
			if !emit(tail) {
				return
			}
			switch {
			case err == io.EOF && flushErr != nil:
				emit([]stream.Frame{stream.ErrorFrame(flushErr.Error())})
			case err == io.EOF:
				// Upstream closed without a done sentinel; the consumer
				// finalizes on channel close.
			default:
				te := &stream.TransportError{Err: err}
				emit([]stream.Frame{stream.ErrorFrame(te.Error())})
			}
			return
		}
	}
}
