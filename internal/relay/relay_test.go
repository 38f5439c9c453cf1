// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package relay

import (
	"context"
	"errors"
	"sync"

	"github.com/jeranaias/arbiter/internal/config"
	"github.com/jeranaias/arbiter/internal/logging"
	"github.com/jeranaias/arbiter/internal/model"
	"github.com/jeranaias/arbiter/internal/persona"
	"github.com/jeranaias/arbiter/internal/provider"
)

var errUpstream = errors.New("upstream exploded")

// scriptedProvider replays a fixed fragment list.
type scriptedProvider struct {
	frags []model.Fragment
	usage provider.Usage

	// err fails the call after failAfter fragments were emitted.
	err       error
	failAfter int

	// block waits for the request context before answering.
	block bool

	panicMsg string

	mu   sync.Mutex
	last provider.Request
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) record(req provider.Request) {
	p.mu.Lock()
	p.last = req
	p.mu.Unlock()
}

func (p *scriptedProvider) lastRequest() provider.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

func (p *scriptedProvider) Complete(ctx context.Context, req provider.Request) (provider.Completion, error) {
	p.record(req)
	if p.panicMsg != "" {
		panic(p.panicMsg)
	}
	if p.block {
		<-ctx.Done()
		return provider.Completion{}, ctx.Err()
	}
	if p.err != nil {
		return provider.Completion{}, p.err
	}
	var text string
	for _, f := range p.frags {
		if f.Kind == model.FragmentText {
			text += f.Payload
		}
	}
	return provider.Completion{Text: text, Usage: p.usage}, nil
}

func (p *scriptedProvider) Stream(ctx context.Context, req provider.Request, emit provider.EmitFunc) (provider.Usage, error) {
	p.record(req)
	if p.block {
		<-ctx.Done()
		return provider.Usage{}, ctx.Err()
	}
	for i, f := range p.frags {
		if p.err != nil && i == p.failAfter {
			return provider.Usage{}, p.err
		}
		if err := emit(f); err != nil {
			return provider.Usage{}, err
		}
	}
	if p.err != nil {
		return provider.Usage{}, p.err
	}
	return p.usage, nil
}

func helloProvider() *scriptedProvider {
	return &scriptedProvider{
		frags: []model.Fragment{
			model.ReasoningFragment("thinking it over"),
			model.TextFragment("Hello"),
			model.TextFragment(" world"),
		},
		usage: provider.Usage{InputTokens: 10, OutputTokens: 2, TotalTokens: 12},
	}
}

func newTestServer(p provider.Provider, cfg config.ServerConfig) *Server {
	return New(p, persona.Default(), cfg).WithLogger(logging.Discard())
}
