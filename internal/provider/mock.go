// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/jeranaias/arbiter/internal/model"
	"github.com/jeranaias/arbiter/internal/persona"
	"github.com/jeranaias/arbiter/internal/replay"
)

// MockOptions configures the offline provider.
type MockOptions struct {
	// Cadence paces the streamed words. Zero uses the replay defaults.
	Cadence replay.Options

	// Seed makes the response choice deterministic when non-zero.
	Seed int64

	// FailWith makes every call fail with this error.
	FailWith error

	// NoReasoning suppresses the reasoning fragment.
	NoReasoning bool

	// ThinkDelay is waited before the first fragment.
	ThinkDelay time.Duration
}

// DefaultThinkDelay is the pause New gives the mock before it answers.
const DefaultThinkDelay = 1500 * time.Millisecond

// Mock replays the persona's canned responses without any network access.
type Mock struct {
	persona *persona.Persona
	opts    MockOptions

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewMock creates an offline provider.
func NewMock(p *persona.Persona, opts MockOptions) *Mock {
	if p == nil {
		p = persona.Default()
	}
	if opts.Cadence.Interval == 0 && opts.Cadence.Jitter == 0 {
		opts.Cadence = replay.DefaultOptions()
	}
	seed := opts.Seed
	if seed == 0 {
		seed = rand.Int63()
	}
	return &Mock{persona: p, opts: opts, rnd: rand.New(rand.NewSource(seed))}
}

// Name implements Provider.
func (m *Mock) Name() string {
	return "mock"
}

func (m *Mock) respond(req Request) (Completion, error) {
	if m.opts.FailWith != nil {
		return Completion{}, m.opts.FailWith
	}
	m.mu.Lock()
	text := m.persona.RandomMockResponse(m.rnd)
	m.mu.Unlock()

	c := Completion{Text: text}
	if !m.opts.NoReasoning {
		c.Reasoning = analysisNote(req.LastUserContent())
	}
	input := 0
	for _, t := range req.Messages() {
		input += len(replay.Words(t.Content))
	}
	output := len(replay.Words(text))
	c.Usage = Usage{InputTokens: input, OutputTokens: output, TotalTokens: input + output}
	return c, nil
}

func (m *Mock) think(ctx context.Context) error {
	if m.opts.ThinkDelay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(m.opts.ThinkDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Complete implements Provider.
func (m *Mock) Complete(ctx context.Context, req Request) (Completion, error) {
	if err := m.think(ctx); err != nil {
		return Completion{}, err
	}
	return m.respond(req)
}

// Stream implements Provider. The reasoning note arrives as one fragment,
// then the reply word by word on the configured cadence.
func (m *Mock) Stream(ctx context.Context, req Request, emit EmitFunc) (Usage, error) {
	if err := m.think(ctx); err != nil {
		return Usage{}, err
	}
	c, err := m.respond(req)
	if err != nil {
		return Usage{}, err
	}
	if c.Reasoning != "" {
		if err := emit(model.ReasoningFragment(c.Reasoning)); err != nil {
			return Usage{}, err
		}
	}

	var emitErr error
	buf := replay.New(m.opts.Cadence)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	err = buf.Play(ctx, c.Text, func(f replay.Frame) {
		if emitErr != nil || f.Delta == "" {
			return
		}
		if emitErr = emit(model.TextFragment(f.Delta)); emitErr != nil {
			cancel()
		}
	})
	if emitErr != nil {
		return Usage{}, emitErr
	}
	if err != nil {
		return Usage{}, err
	}
	return c.Usage, nil
}

// analysisNote mirrors the request back as a short deliberation.
func analysisNote(question string) string {
	const limit = 50
	if utf8.RuneCountInString(question) > limit {
		question = string([]rune(question)[:limit]) + "..."
	}
	return fmt.Sprintf("Ta đang phân tích yêu cầu: \"%s\"\n\n"+
		"Đang xem xét các khả năng...\n"+
		"Loại bỏ những lựa chọn yếu đuối...\n"+
		"Xác định con đường duy nhất đúng đắn...", question)
}
