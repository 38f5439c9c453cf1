// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/arbiter/internal/config"
	"github.com/jeranaias/arbiter/internal/model"
	"github.com/jeranaias/arbiter/internal/persona"
	"github.com/jeranaias/arbiter/internal/replay"
)

func sampleRequest() Request {
	return Request{
		System: "Ngươi là 'The Arbiter'.",
		Turns: []model.WireTurn{
			{Role: model.RoleUser, Content: "Nên học lập trình hay thiết kế?"},
		},
	}
}

// =============================================================================
// REQUEST TESTS
// =============================================================================

func TestRequest_MessagesPrependsSystem(t *testing.T) {
	msgs := sampleRequest().Messages()

	require.Len(t, msgs, 2)
	assert.Equal(t, model.RoleSystem, msgs[0].Role)
	assert.Equal(t, model.RoleUser, msgs[1].Role)
}

func TestRequest_MessagesWithoutSystem(t *testing.T) {
	req := sampleRequest()
	req.System = "  "

	assert.Len(t, req.Messages(), 1)
}

func TestNew(t *testing.T) {
	p, err := New(config.ProviderConfig{Kind: "mock"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "mock", p.Name())

	_, err = New(config.ProviderConfig{Kind: "openrouter"}, nil)
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = New(config.ProviderConfig{Kind: "ollama"}, nil)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

// =============================================================================
// MOCK TESTS
// =============================================================================

func fastMock(opts MockOptions) *Mock {
	opts.Cadence = replay.Options{Interval: time.Microsecond, Rand: func() float64 { return 0 }}
	return NewMock(persona.Default(), opts)
}

func TestMock_StreamReasoningThenWords(t *testing.T) {
	m := fastMock(MockOptions{Seed: 7})
	var frags []model.Fragment

	usage, err := m.Stream(context.Background(), sampleRequest(), func(f model.Fragment) error {
		frags = append(frags, f)
		return nil
	})

	require.NoError(t, err)
	require.Greater(t, len(frags), 2)
	assert.Equal(t, model.FragmentReasoning, frags[0].Kind)
	assert.Contains(t, frags[0].Payload, "Nên học lập trình hay thiết kế?")

	var text strings.Builder
	for _, f := range frags[1:] {
		assert.Equal(t, model.FragmentText, f.Kind)
		text.WriteString(f.Payload)
	}
	assert.Contains(t, persona.Default().MockResponses, text.String())
	assert.Positive(t, usage.TotalTokens)
}

func TestMock_CompleteMatchesPersona(t *testing.T) {
	m := fastMock(MockOptions{NoReasoning: true})

	c, err := m.Complete(context.Background(), sampleRequest())

	require.NoError(t, err)
	assert.Contains(t, persona.Default().MockResponses, c.Text)
	assert.Empty(t, c.Reasoning)
}

func TestMock_FailWith(t *testing.T) {
	boom := errors.New("upstream down")
	m := fastMock(MockOptions{FailWith: boom})

	_, err := m.Stream(context.Background(), sampleRequest(), func(model.Fragment) error { return nil })
	assert.ErrorIs(t, err, boom)

	_, err = m.Complete(context.Background(), sampleRequest())
	assert.ErrorIs(t, err, boom)
}

func TestMock_EmitErrorAborts(t *testing.T) {
	m := fastMock(MockOptions{NoReasoning: true})
	stop := errors.New("client gone")
	calls := 0

	_, err := m.Stream(context.Background(), sampleRequest(), func(model.Fragment) error {
		calls++
		if calls == 2 {
			return stop
		}
		return nil
	})

	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 2, calls)
}

func TestMock_ThinkDelayHonoursContext(t *testing.T) {
	m := fastMock(MockOptions{ThinkDelay: time.Hour})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := m.Complete(ctx, sampleRequest())

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAnalysisNote_TruncatesLongQuestion(t *testing.T) {
	note := analysisNote(strings.Repeat("á", 80))

	assert.Contains(t, note, strings.Repeat("á", 50)+"...\"")
	assert.NotContains(t, note, strings.Repeat("á", 51))
}

// =============================================================================
// OPENROUTER TESTS
// =============================================================================

type capturedRequest struct {
	Model    string `json:"model"`
	Stream   bool   `json:"stream"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func newOpenRouter(t *testing.T, handler http.HandlerFunc) *OpenRouter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	o, err := NewOpenRouter(config.ProviderConfig{
		APIKey:      "sk-or-test",
		BaseURL:     srv.URL + "/api/v1/",
		Model:       config.DefaultModel,
		TimeoutSecs: 5,
		Title:       "The Arbiter",
	})
	require.NoError(t, err)
	return o
}

func TestOpenRouter_Complete(t *testing.T) {
	var got capturedRequest
	var headers http.Header
	o := newOpenRouter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/chat/completions", r.URL.Path)
		headers = r.Header.Clone()
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"gen-1","object":"chat.completion","model":"openai/gpt-4o-mini",
			"choices":[{"index":0,"message":{"role":"assistant","content":"**Lệnh:** LÀM NGAY."},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":12,"completion_tokens":5,"total_tokens":17}}`)
	})

	c, err := o.Complete(context.Background(), sampleRequest())

	require.NoError(t, err)
	assert.Equal(t, "**Lệnh:** LÀM NGAY.", c.Text)
	assert.Equal(t, Usage{InputTokens: 12, OutputTokens: 5, TotalTokens: 17}, c.Usage)
	assert.Equal(t, config.DefaultModel, got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "Bearer sk-or-test", headers.Get("Authorization"))
	assert.Equal(t, "The Arbiter", headers.Get("X-Title"))
}

func TestOpenRouter_Stream(t *testing.T) {
	o := newOpenRouter(t, func(w http.ResponseWriter, r *http.Request) {
		var got capturedRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.True(t, got.Stream)

		w.Header().Set("Content-Type", "text/event-stream")
		for _, piece := range []string{"Hello", " world"} {
			fmt.Fprintf(w, "data: {\"id\":\"gen-1\",\"object\":\"chat.completion.chunk\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", piece)
			w.(http.Flusher).Flush()
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	var text strings.Builder
	_, err := o.Stream(context.Background(), sampleRequest(), func(f model.Fragment) error {
		text.WriteString(f.Payload)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, "Hello world", text.String())
}

func TestOpenRouter_ErrorClassification(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, ErrAuthFailed},
		{http.StatusPaymentRequired, ErrInsufficientCredits},
		{http.StatusNotFound, ErrModelNotFound},
		{http.StatusTooManyRequests, ErrRateLimited},
	}

	for _, tc := range tests {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			o := newOpenRouter(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.status)
				fmt.Fprintf(w, `{"error":{"message":"nope","type":"error","code":%d}}`, tc.status)
			})

			_, err := o.Complete(context.Background(), sampleRequest())
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestOpenRouter_ServerErrorIsWrapped(t *testing.T) {
	o := newOpenRouter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, "bad gateway")
	})

	_, err := o.Complete(context.Background(), sampleRequest())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "openrouter")
}

func TestNewOpenRouter_RequiresKey(t *testing.T) {
	_, err := NewOpenRouter(config.ProviderConfig{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}
