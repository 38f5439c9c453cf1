// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package relay

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/jeranaias/arbiter/internal/model"
	"github.com/jeranaias/arbiter/internal/provider"
)

// Client-visible error bodies.
const (
	msgMessageRequired     = "Message is required"
	msgInvalidConversation = "Invalid conversation"
	msgInvalidRequest      = "Invalid request format"
	msgBodyTooLarge        = "Request body too large"
	msgGenerateFailed      = "Failed to generate response"
)

// Request validation errors.
var (
	ErrMessageRequired     = errors.New("no turn carries content")
	ErrInvalidConversation = errors.New("invalid conversation")
)

// ChatRequest is the POST /api/chat body.
type ChatRequest struct {
	Conversation []model.WireTurn `json:"conversation"`

	// Message is the single-turn form older clients send.
	Message string `json:"message,omitempty"`

	Stream bool `json:"stream,omitempty"`
}

// ChatResponse is the non-streaming reply.
type ChatResponse struct {
	Response string         `json:"response"`
	Usage    provider.Usage `json:"usage"`
}

// ErrorResponse is every error body the relay writes.
type ErrorResponse struct {
	Error string `json:"error"`
}

// DoneEvent closes an SSE stream.
type DoneEvent struct {
	Usage provider.Usage `json:"usage"`
}

// Turns returns the conversation to forward, without blank turns.
func (r *ChatRequest) Turns() []model.WireTurn {
	src := r.Conversation
	if len(src) == 0 && strings.TrimSpace(r.Message) != "" {
		src = []model.WireTurn{{Role: model.RoleUser, Content: r.Message}}
	}
	out := make([]model.WireTurn, 0, len(src))
	for _, t := range src {
		if strings.TrimSpace(t.Content) == "" {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Validate checks the request shape.
func (r *ChatRequest) Validate() error {
	if len(r.Turns()) == 0 {
		return ErrMessageRequired
	}
	err := validation.ValidateStruct(r,
		validation.Field(&r.Conversation,
			validation.Each(validation.By(conversationalRole)),
		),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConversation, err)
	}
	return nil
}

func conversationalRole(value interface{}) error {
	t, ok := value.(model.WireTurn)
	if !ok {
		return errors.New("must be a turn")
	}
	if !t.Role.IsConversational() {
		return fmt.Errorf("role %q must be user or assistant", t.Role)
	}
	return nil
}

// wantsEvents reports whether the client asked for the SSE variant.
func wantsEvents(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/event-stream")
}

// wantsStream reports whether any streaming selector is present.
func wantsStream(r *http.Request, req *ChatRequest) bool {
	if req.Stream || wantsEvents(r) {
		return true
	}
	switch strings.ToLower(r.URL.Query().Get("stream")) {
	case "1", "true", "yes":
		return true
	}
	return false
}
