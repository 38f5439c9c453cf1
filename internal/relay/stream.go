// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package relay

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/jeranaias/arbiter/internal/model"
	"github.com/jeranaias/arbiter/internal/provider"
)

// SSE event names.
const (
	EventText      = "text"
	EventReasoning = "reasoning"
	EventDone      = "done"
	EventError     = "error"
)

var errStreamingUnsupported = errors.New("response writer cannot flush")

// streamWriter writes one streamed reply. Nothing reaches the client until
// the first fragment, so a failure before that can still become a plain
// JSON error. All writes are serialised.
type streamWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	events  bool

	mu        sync.Mutex
	committed bool
	closed    bool
}

func newStreamWriter(w http.ResponseWriter, events bool) (*streamWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errStreamingUnsupported
	}
	return &streamWriter{w: w, flusher: flusher, events: events}, nil
}

// commitLocked sends the status line and stream headers once.
func (s *streamWriter) commitLocked() {
	if s.committed {
		return
	}
	s.committed = true
	h := s.w.Header()
	if s.events {
		h.Set("Content-Type", "text/event-stream")
		h.Set("Connection", "keep-alive")
	} else {
		h.Set("Content-Type", "text/plain; charset=utf-8")
	}
	h.Set("Cache-Control", "no-cache")
	h.Set("X-Accel-Buffering", "no")
	h.Set("X-Content-Type-Options", "nosniff")
	s.w.WriteHeader(http.StatusOK)
}

// WriteFragment implements provider.EmitFunc. The plain variant carries
// text only.
func (s *streamWriter) WriteFragment(f model.Fragment) error {
	if !s.events && f.Kind != model.FragmentText {
		return nil
	}
	if f.Payload == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.commitLocked()

	if !s.events {
		if _, err := s.w.Write([]byte(f.Payload)); err != nil {
			return err
		}
		s.flusher.Flush()
		return nil
	}

	name := EventText
	if f.Kind == model.FragmentReasoning {
		name = EventReasoning
	}
	return s.eventLocked(name, f)
}

// Done ends a successful stream.
func (s *streamWriter) Done(usage provider.Usage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.commitLocked()
	s.closed = true
	if !s.events {
		s.flusher.Flush()
		return nil
	}
	return s.eventLocked(EventDone, DoneEvent{Usage: usage})
}

// Fail ends a stream that broke after the first fragment.
func (s *streamWriter) Fail() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if !s.events || !s.committed {
		return nil
	}
	return s.eventLocked(EventError, ErrorResponse{Error: msgGenerateFailed})
}

// Reject writes a JSON error when nothing was streamed yet. It reports
// false once the headers are out.
func (s *streamWriter) Reject(status int, message string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.committed {
		return false
	}
	s.committed = true
	s.closed = true
	writeJSON(s.w, status, ErrorResponse{Error: message})
	return true
}

// WriteKeepAlive sends an SSE comment once the stream is open.
func (s *streamWriter) WriteKeepAlive() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.events || !s.committed || s.closed {
		return nil
	}
	if _, err := fmt.Fprint(s.w, ": keepalive\n\n"); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

func (s *streamWriter) eventLocked(name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", name, data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// keepAlive pings the stream on interval until stop is called or a write
// fails.
func (s *streamWriter) keepAlive(interval time.Duration, logger *log.Logger) (stop func()) {
	if interval <= 0 || !s.events {
		return func() {}
	}
	done := make(chan struct{})
	finished := make(chan struct{})
	ticker := time.NewTicker(interval)

	go func() {
		defer close(finished)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := s.WriteKeepAlive(); err != nil {
					logger.Warn("keep-alive write failed, stopping", "err", err)
					return
				}
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
		<-finished
	}
}
