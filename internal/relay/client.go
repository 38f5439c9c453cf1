// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package relay

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jeranaias/arbiter/internal/model"
)

// ChatPath is the relay chat route.
const ChatPath = "/api/chat"

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 4 << 10

// StatusError is a relay answer other than success.
type StatusError struct {
	Code    int
	Message string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("relay: status %d", e.Code)
	}
	return fmt.Sprintf("relay: status %d: %s", e.Code, e.Message)
}

// Client calls a remote relay.
type Client struct {
	endpoint string
	http     *http.Client
}

// NewClient creates a client for the relay at baseURL, which may be the
// server root or the chat endpoint itself. A zero timeout leaves requests
// bounded only by their context.
func NewClient(baseURL string, timeout time.Duration) *Client {
	endpoint := strings.TrimRight(baseURL, "/")
	if !strings.HasSuffix(endpoint, ChatPath) {
		endpoint += ChatPath
	}
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
	}
}

// Endpoint returns the full chat URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

func (c *Client) post(ctx context.Context, turns []model.WireTurn, stream bool) (*http.Response, error) {
	body, err := json.Marshal(ChatRequest{Conversation: turns, Stream: stream})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if stream {
		req.Header.Set("Accept", "text/event-stream")
		req.Header.Set("Cache-Control", "no-cache")
	} else {
		req.Header.Set("Accept", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("relay request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, statusError(resp)
	}
	return resp, nil
}

func statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var body ErrorResponse
	if err := json.Unmarshal(raw, &body); err != nil || body.Error == "" {
		body.Error = strings.TrimSpace(string(raw))
	}
	return &StatusError{Code: resp.StatusCode, Message: body.Error}
}

// Complete requests the whole reply.
func (c *Client) Complete(ctx context.Context, turns []model.WireTurn) (string, error) {
	resp, err := c.post(ctx, turns, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	return out.Response, nil
}

// Stream requests the event variant and hands each fragment to onFragment
// in arrival order.
func (c *Client) Stream(ctx context.Context, turns []model.WireTurn, onFragment func(model.Fragment)) error {
	resp, err := c.post(ctx, turns, true)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	reader := NewSSEReader(resp.Body)
	for {
		event, data, err := reader.ReadEvent()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				return fmt.Errorf("relay stream ended early: %w", io.ErrUnexpectedEOF)
			}
			return fmt.Errorf("relay stream: %w", err)
		}

		switch event {
		case EventDone:
			return nil
		case EventError:
			var body ErrorResponse
			_ = json.Unmarshal(data, &body)
			return &StatusError{Code: http.StatusInternalServerError, Message: body.Error}
		case EventText, EventReasoning, "":
			f, err := model.DecodeFragment(data)
			if err != nil {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			onFragment(f)
		}
	}
}

// =============================================================================
// SSE READER
// =============================================================================

// maxEventSize caps a single SSE line.
const maxEventSize = 1 << 20

// SSEReader parses Server-Sent Events from a stream.
type SSEReader struct {
	scanner *bufio.Scanner
}

// NewSSEReader creates a new SSE reader from an io.Reader.
func NewSSEReader(r io.Reader) *SSEReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), maxEventSize)
	return &SSEReader{scanner: sc}
}

// ReadEvent reads the next event carrying data. Comments are skipped.
// Returns io.EOF when the stream ends.
func (s *SSEReader) ReadEvent() (string, []byte, error) {
	var eventType string
	var dataLines [][]byte

	for s.scanner.Scan() {
		line := bytes.TrimRight(s.scanner.Bytes(), "\r")

		if len(line) == 0 {
			if len(dataLines) > 0 {
				return eventType, bytes.Join(dataLines, []byte("\n")), nil
			}
			eventType = ""
			continue
		}

		switch {
		case bytes.HasPrefix(line, []byte(":")):
			// comment
		case bytes.HasPrefix(line, []byte("event:")):
			eventType = string(bytes.TrimSpace(line[len("event:"):]))
		case bytes.HasPrefix(line, []byte("data:")):
			data := bytes.TrimPrefix(line[len("data:"):], []byte(" "))
			dataLines = append(dataLines, append([]byte(nil), data...))
		}
	}
	if err := s.scanner.Err(); err != nil {
		return "", nil, err
	}
	if len(dataLines) > 0 {
		return eventType, bytes.Join(dataLines, []byte("\n")), nil
	}
	return "", nil, io.EOF
}
