// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for arbiter.
//
// Configuration is TOML with sensible defaults, a .env bootstrap for
// credentials, environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - ServerConfig: Relay listener, timeouts and CORS
//   - ProviderConfig: Upstream LLM provider selection and credentials
//   - ChatConfig: Client session settings (relay URL, replay cadence)
//   - LogConfig: Logger level, format and destination
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (ARBITER_*, OPENROUTER_API_KEY)
//   - .env in the working directory (never overrides the real environment)
//   - ~/.arbiter/config.toml, or the file passed with --config
//   - Built-in defaults
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Access settings:
//
//	addr := cfg.Server.Addr
//	interval := cfg.Chat.RevealInterval()
package config
