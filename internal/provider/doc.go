// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package provider connects the relay to an upstream LLM.
//
// # Key Types
//
//   - Provider: Interface implemented by every upstream
//   - OpenRouter: OpenAI-compatible client pointed at OpenRouter
//   - Mock: Offline provider replaying canned persona responses
//   - Request: System instruction plus the conversation turns
//   - Completion: Whole reply with token usage
//
// # Usage
//
//	p, err := provider.New(cfg.Provider, persona.Default())
//	if err != nil {
//	    return err
//	}
//	usage, err := p.Stream(ctx, req, func(f model.Fragment) error {
//	    return w.Write(f)
//	})
package provider
