// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jeranaias/arbiter/internal/config"
	"github.com/jeranaias/arbiter/internal/model"
	"github.com/jeranaias/arbiter/internal/persona"
)

// Provider errors.
var (
	ErrNotConfigured       = errors.New("provider not configured")
	ErrAuthFailed          = errors.New("provider authentication failed")
	ErrInsufficientCredits = errors.New("provider credits exhausted")
	ErrModelNotFound       = errors.New("provider model not found")
	ErrRateLimited         = errors.New("provider rate limited")
	ErrEmptyResponse       = errors.New("provider returned no choices")
)

// Request is one upstream call.
type Request struct {
	// System is the persona instruction, sent ahead of the turns.
	System string

	// Turns is the client conversation in chronological order.
	Turns []model.WireTurn
}

// Messages returns the full message list with the system instruction first.
func (r Request) Messages() []model.WireTurn {
	out := make([]model.WireTurn, 0, len(r.Turns)+1)
	if strings.TrimSpace(r.System) != "" {
		out = append(out, model.WireTurn{Role: model.RoleSystem, Content: r.System})
	}
	return append(out, r.Turns...)
}

// LastUserContent returns the newest user text, or "".
func (r Request) LastUserContent() string {
	for i := len(r.Turns) - 1; i >= 0; i-- {
		if r.Turns[i].Role == model.RoleUser {
			return r.Turns[i].Content
		}
	}
	return ""
}

// Usage reports token consumption.
type Usage struct {
	InputTokens  int `json:"inputTokens"`
	OutputTokens int `json:"outputTokens"`
	TotalTokens  int `json:"totalTokens"`
}

// Completion is a whole reply.
type Completion struct {
	Text      string
	Reasoning string
	Usage     Usage
}

// EmitFunc receives streamed fragments in order. Returning an error aborts
// the stream with that error.
type EmitFunc func(model.Fragment) error

// Provider is an upstream LLM.
type Provider interface {
	// Name identifies the provider in logs and health output.
	Name() string

	// Complete returns the whole reply.
	Complete(ctx context.Context, req Request) (Completion, error)

	// Stream delivers the reply as fragments and returns usage when known.
	Stream(ctx context.Context, req Request, emit EmitFunc) (Usage, error)
}

// New builds the provider selected by cfg.Kind.
func New(cfg config.ProviderConfig, p *persona.Persona) (Provider, error) {
	switch strings.ToLower(cfg.Kind) {
	case "openrouter", "":
		return NewOpenRouter(cfg)
	case "mock":
		return NewMock(p, MockOptions{ThinkDelay: DefaultThinkDelay}), nil
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrNotConfigured, cfg.Kind)
	}
}
