// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/jeranaias/arbiter/internal/config"
	"github.com/jeranaias/arbiter/internal/model"
)

// OpenRouter talks to OpenRouter through its OpenAI-compatible API.
type OpenRouter struct {
	client *openai.Client
	model  string
}

// NewOpenRouter creates a client. An empty API key returns ErrNotConfigured.
func NewOpenRouter(cfg config.ProviderConfig) (*OpenRouter, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: set OPENROUTER_API_KEY", ErrNotConfigured)
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	oc.HTTPClient = &http.Client{
		Timeout: cfg.Timeout(),
		Transport: &attributionTransport{
			base:    http.DefaultTransport,
			referer: cfg.Referer,
			title:   cfg.Title,
		},
	}

	return &OpenRouter{
		client: openai.NewClientWithConfig(oc),
		model:  cfg.Model,
	}, nil
}

// Name implements Provider.
func (o *OpenRouter) Name() string {
	return "openrouter"
}

// Model returns the configured model ID.
func (o *OpenRouter) Model() string {
	return o.model
}

func (o *OpenRouter) request(req Request, stream bool) openai.ChatCompletionRequest {
	msgs := req.Messages()
	out := make([]openai.ChatCompletionMessage, len(msgs))
	for i, m := range msgs {
		out[i] = openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content}
	}
	return openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: out,
		Stream:   stream,
	}
}

// Complete implements Provider.
func (o *OpenRouter) Complete(ctx context.Context, req Request) (Completion, error) {
	resp, err := o.client.CreateChatCompletion(ctx, o.request(req, false))
	if err != nil {
		return Completion{}, classify(err)
	}
	if len(resp.Choices) == 0 {
		return Completion{}, ErrEmptyResponse
	}
	return Completion{
		Text: resp.Choices[0].Message.Content,
		Usage: Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		},
	}, nil
}

// Stream implements Provider. Usage is not reported by the streaming API.
func (o *OpenRouter) Stream(ctx context.Context, req Request, emit EmitFunc) (Usage, error) {
	stream, err := o.client.CreateChatCompletionStream(ctx, o.request(req, true))
	if err != nil {
		return Usage{}, classify(err)
	}
	defer stream.Close()

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return Usage{}, nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return Usage{}, ctx.Err()
			}
			return Usage{}, classify(err)
		}
		for _, choice := range resp.Choices {
			if choice.Delta.Content == "" {
				continue
			}
			if err := emit(model.TextFragment(choice.Delta.Content)); err != nil {
				return Usage{}, err
			}
		}
	}
}

// classify maps API status codes to the package sentinels.
func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %s", ErrAuthFailed, apiErr.Message)
		case http.StatusPaymentRequired:
			return fmt.Errorf("%w: %s", ErrInsufficientCredits, apiErr.Message)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", ErrModelNotFound, apiErr.Message)
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %s", ErrRateLimited, apiErr.Message)
		}
		return fmt.Errorf("openrouter: status %d: %w", apiErr.HTTPStatusCode, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("openrouter: status %d: %w", reqErr.HTTPStatusCode, err)
	}
	return fmt.Errorf("openrouter: %w", err)
}

// attributionTransport adds the OpenRouter app attribution headers.
type attributionTransport struct {
	base    http.RoundTripper
	referer string
	title   string
}

func (t *attributionTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.referer == "" && t.title == "" {
		return t.base.RoundTrip(req)
	}
	req = req.Clone(req.Context())
	if t.referer != "" {
		req.Header.Set("HTTP-Referer", t.referer)
	}
	if t.title != "" {
		req.Header.Set("X-Title", t.title)
	}
	return t.base.RoundTrip(req)
}
