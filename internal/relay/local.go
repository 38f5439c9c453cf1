// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package relay

import (
	"context"
	"sync/atomic"

	"github.com/jeranaias/arbiter/internal/model"
	"github.com/jeranaias/arbiter/internal/persona"
	"github.com/jeranaias/arbiter/internal/provider"
)

// Local runs the relay pipeline in-process, without HTTP.
type Local struct {
	provider provider.Provider
	persona  atomic.Pointer[persona.Persona]
}

// NewLocal wraps p. A nil persona uses the embedded default.
func NewLocal(p provider.Provider, ps *persona.Persona) *Local {
	if ps == nil {
		ps = persona.Default()
	}
	l := &Local{provider: p}
	l.persona.Store(ps)
	return l
}

// SetPersona swaps the persona for later calls.
func (l *Local) SetPersona(p *persona.Persona) {
	if p != nil {
		l.persona.Store(p)
	}
}

func (l *Local) request(turns []model.WireTurn) (provider.Request, error) {
	req := ChatRequest{Conversation: turns}
	if err := req.Validate(); err != nil {
		return provider.Request{}, err
	}
	return provider.Request{System: l.persona.Load().Prompt, Turns: req.Turns()}, nil
}

// Stream implements the session transport.
func (l *Local) Stream(ctx context.Context, turns []model.WireTurn, onFragment func(model.Fragment)) error {
	req, err := l.request(turns)
	if err != nil {
		return err
	}
	_, err = l.provider.Stream(ctx, req, func(f model.Fragment) error {
		onFragment(f)
		return nil
	})
	return err
}

// Complete returns the whole reply.
func (l *Local) Complete(ctx context.Context, turns []model.WireTurn) (string, error) {
	req, err := l.request(turns)
	if err != nil {
		return "", err
	}
	c, err := l.provider.Complete(ctx, req)
	if err != nil {
		return "", err
	}
	return c.Text, nil
}
