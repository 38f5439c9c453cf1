// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete arbiter configuration.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Provider ProviderConfig `toml:"provider"`
	Persona  PersonaConfig  `toml:"persona"`
	Chat     ChatConfig     `toml:"chat"`
	Log      LogConfig      `toml:"log"`
}

// ServerConfig contains relay endpoint settings.
type ServerConfig struct {
	// Addr is the listen address (default: 127.0.0.1:8787).
	Addr string `toml:"addr"`

	// ReadTimeoutSecs bounds reading the request (default: 15).
	ReadTimeoutSecs int `toml:"read_timeout_secs"`

	// IdleTimeoutSecs bounds keep-alive connections (default: 60).
	IdleTimeoutSecs int `toml:"idle_timeout_secs"`

	// MaxBodyBytes caps the request body (default: 1 MiB).
	MaxBodyBytes int64 `toml:"max_body_bytes"`

	// KeepAliveSecs is the interval between SSE keep-alive comments (default: 10).
	KeepAliveSecs int `toml:"keepalive_secs"`

	// CORSOrigins lists origins allowed to call the relay from a browser.
	CORSOrigins []string `toml:"cors_origins"`
}

// ProviderConfig selects and configures the upstream LLM provider.
type ProviderConfig struct {
	// Kind is "openrouter" or "mock".
	Kind string `toml:"kind"`

	// BaseURL is the OpenAI-compatible API root.
	BaseURL string `toml:"base_url"`

	// Model is the provider model ID (default: openai/gpt-4o-mini).
	Model string `toml:"model"`

	// APIKey is normally supplied through OPENROUTER_API_KEY.
	APIKey string `toml:"api_key"`

	// TimeoutSecs bounds one upstream call (default: 60).
	TimeoutSecs int `toml:"timeout_secs"`

	// Referer and Title are sent as OpenRouter attribution headers.
	Referer string `toml:"referer"`
	Title   string `toml:"title"`
}

// PersonaConfig points at an optional persona override file.
type PersonaConfig struct {
	// File is a YAML persona; empty uses the built-in persona.
	File string `toml:"file"`

	// Watch reloads File on change while the relay runs.
	Watch bool `toml:"watch"`
}

// ChatConfig contains client session settings.
type ChatConfig struct {
	// RelayURL is the relay chat endpoint.
	RelayURL string `toml:"relay_url"`

	// Replay requests whole replies and reveals them word by word locally.
	Replay bool `toml:"replay"`

	// RevealIntervalMs is the minimum delay between revealed words (default: 30).
	RevealIntervalMs int `toml:"reveal_interval_ms"`

	// RevealJitterMs is the random delay added per word (default: 50).
	RevealJitterMs int `toml:"reveal_jitter_ms"`

	// RequestTimeoutSecs bounds one relay call; 0 disables the bound.
	RequestTimeoutSecs int `toml:"request_timeout_secs"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `toml:"level"`

	// Format is text, json or logfmt.
	Format string `toml:"format"`

	// File receives log lines; empty logs to stderr.
	File string `toml:"file"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default values.
const (
	DefaultAddr          = "127.0.0.1:8787"
	DefaultBaseURL       = "https://openrouter.ai/api/v1"
	DefaultModel         = "openai/gpt-4o-mini"
	DefaultMaxBodyBytes  = 1 << 20
	DefaultProviderKind  = "openrouter"
	DefaultRevealMs      = 30
	DefaultRevealJitter  = 50
	DefaultTimeoutSecs   = 60
	DefaultKeepAliveSecs = 10
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            DefaultAddr,
			ReadTimeoutSecs: 15,
			IdleTimeoutSecs: 60,
			MaxBodyBytes:    DefaultMaxBodyBytes,
			KeepAliveSecs:   DefaultKeepAliveSecs,
			CORSOrigins:     []string{"http://localhost:3000"},
		},
		Provider: ProviderConfig{
			Kind:        DefaultProviderKind,
			BaseURL:     DefaultBaseURL,
			Model:       DefaultModel,
			TimeoutSecs: DefaultTimeoutSecs,
			Title:       "The Arbiter",
		},
		Persona: PersonaConfig{
			Watch: true,
		},
		Chat: ChatConfig{
			RelayURL:         "http://" + DefaultAddr + "/api/chat",
			RevealIntervalMs: DefaultRevealMs,
			RevealJitterMs:   DefaultRevealJitter,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// =============================================================================
// DURATION HELPERS
// =============================================================================

// ReadTimeout returns the read timeout as a duration.
func (s ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(s.ReadTimeoutSecs) * time.Second
}

// IdleTimeout returns the idle timeout as a duration.
func (s ServerConfig) IdleTimeout() time.Duration {
	return time.Duration(s.IdleTimeoutSecs) * time.Second
}

// KeepAlive returns the SSE keep-alive interval.
func (s ServerConfig) KeepAlive() time.Duration {
	return time.Duration(s.KeepAliveSecs) * time.Second
}

// Timeout returns the upstream call timeout.
func (p ProviderConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSecs) * time.Second
}

// RevealInterval returns the minimum delay between revealed words.
func (c ChatConfig) RevealInterval() time.Duration {
	return time.Duration(c.RevealIntervalMs) * time.Millisecond
}

// RevealJitter returns the random delay bound added per word.
func (c ChatConfig) RevealJitter() time.Duration {
	return time.Duration(c.RevealJitterMs) * time.Millisecond
}

// RequestTimeout returns the relay call bound, zero meaning none.
func (c ChatConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSecs) * time.Second
}

// =============================================================================
// PATHS
// =============================================================================

// ConfigDir returns the configuration directory path (~/.arbiter).
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".arbiter"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from path, or from ~/.arbiter/config.toml when
// path is empty. A missing default file is not an error; a missing explicit
// file is. The .env file and environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		p, err := ConfigPath()
		if err == nil {
			path = p
		}
	}

	if path != "" {
		if _, statErr := os.Stat(path); statErr == nil {
			if err := LoadTOML(cfg, path); err != nil {
				return nil, err
			}
		} else if explicit {
			return nil, fmt.Errorf("config file %s: %w", path, statErr)
		}
	}

	// Variables already present in the environment win over .env.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file over cfg.
func LoadTOML(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

// Save writes cfg to path as TOML with owner-only permissions.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	if err := Write(f, cfg); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Write encodes cfg as TOML.
func Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode TOML: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if _, _, err := net.SplitHostPort(c.Server.Addr); err != nil {
		errs = append(errs, ValidationError{
			Field:   "server.addr",
			Message: fmt.Sprintf("invalid listen address %q: %v", c.Server.Addr, err),
		})
	}
	if c.Server.MaxBodyBytes <= 0 {
		errs = append(errs, ValidationError{
			Field:   "server.max_body_bytes",
			Message: fmt.Sprintf("must be positive, got %d", c.Server.MaxBodyBytes),
		})
	}

	switch strings.ToLower(c.Provider.Kind) {
	case "openrouter":
		if !isHTTPURL(c.Provider.BaseURL) {
			errs = append(errs, ValidationError{
				Field:   "provider.base_url",
				Message: fmt.Sprintf("invalid URL %q", c.Provider.BaseURL),
			})
		}
		if strings.TrimSpace(c.Provider.Model) == "" {
			errs = append(errs, ValidationError{Field: "provider.model", Message: "must not be empty"})
		}
	case "mock":
	default:
		errs = append(errs, ValidationError{
			Field:   "provider.kind",
			Message: fmt.Sprintf("invalid provider '%s', must be one of: openrouter, mock", c.Provider.Kind),
		})
	}
	if c.Provider.TimeoutSecs <= 0 {
		errs = append(errs, ValidationError{
			Field:   "provider.timeout_secs",
			Message: fmt.Sprintf("must be positive, got %d", c.Provider.TimeoutSecs),
		})
	}

	if !isHTTPURL(c.Chat.RelayURL) {
		errs = append(errs, ValidationError{
			Field:   "chat.relay_url",
			Message: fmt.Sprintf("invalid URL %q", c.Chat.RelayURL),
		})
	}
	if c.Chat.RevealIntervalMs < 0 || c.Chat.RevealIntervalMs > 1000 {
		errs = append(errs, ValidationError{
			Field:   "chat.reveal_interval_ms",
			Message: fmt.Sprintf("must be between 0 and 1000, got %d", c.Chat.RevealIntervalMs),
		})
	}
	if c.Chat.RevealJitterMs < 0 || c.Chat.RevealJitterMs > 1000 {
		errs = append(errs, ValidationError{
			Field:   "chat.reveal_jitter_ms",
			Message: fmt.Sprintf("must be between 0 and 1000, got %d", c.Chat.RevealJitterMs),
		})
	}
	if c.Chat.RequestTimeoutSecs < 0 {
		errs = append(errs, ValidationError{
			Field:   "chat.request_timeout_secs",
			Message: fmt.Sprintf("must not be negative, got %d", c.Chat.RequestTimeoutSecs),
		})
	}

	switch strings.ToLower(c.Log.Format) {
	case "text", "json", "logfmt":
	default:
		errs = append(errs, ValidationError{
			Field:   "log.format",
			Message: fmt.Sprintf("invalid format '%s', must be one of: text, json, logfmt", c.Log.Format),
		})
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: debug, info, warn, error", c.Log.Level),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// SetDefaults fills zero values with built-in defaults.
func (c *Config) SetDefaults() {
	d := Default()

	if c.Server.Addr == "" {
		c.Server.Addr = d.Server.Addr
	}
	if c.Server.ReadTimeoutSecs <= 0 {
		c.Server.ReadTimeoutSecs = d.Server.ReadTimeoutSecs
	}
	if c.Server.IdleTimeoutSecs <= 0 {
		c.Server.IdleTimeoutSecs = d.Server.IdleTimeoutSecs
	}
	if c.Server.MaxBodyBytes == 0 {
		c.Server.MaxBodyBytes = d.Server.MaxBodyBytes
	}
	if c.Server.KeepAliveSecs <= 0 {
		c.Server.KeepAliveSecs = d.Server.KeepAliveSecs
	}
	if c.Provider.Kind == "" {
		c.Provider.Kind = d.Provider.Kind
	}
	c.Provider.Kind = strings.ToLower(c.Provider.Kind)
	if c.Provider.BaseURL == "" {
		c.Provider.BaseURL = d.Provider.BaseURL
	}
	if c.Provider.Model == "" {
		c.Provider.Model = d.Provider.Model
	}
	if c.Provider.TimeoutSecs == 0 {
		c.Provider.TimeoutSecs = d.Provider.TimeoutSecs
	}
	if c.Chat.RelayURL == "" {
		c.Chat.RelayURL = d.Chat.RelayURL
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides.
//
//   - OPENROUTER_API_KEY: provider.api_key
//   - ARBITER_API_KEY: provider.api_key (takes precedence)
//   - ARBITER_ADDR: server.addr
//   - ARBITER_PROVIDER: provider.kind
//   - ARBITER_MODEL: provider.model
//   - ARBITER_BASE_URL: provider.base_url
//   - ARBITER_PERSONA: persona.file
//   - ARBITER_RELAY_URL: chat.relay_url
//   - ARBITER_REPLAY: chat.replay
//   - ARBITER_LOG_LEVEL: log.level
//   - ARBITER_LOG_FORMAT: log.format
func (c *Config) ApplyEnvOverrides() {
	if key := os.Getenv("OPENROUTER_API_KEY"); key != "" {
		c.Provider.APIKey = key
	}
	if key := os.Getenv("ARBITER_API_KEY"); key != "" {
		c.Provider.APIKey = key
	}
	if addr := os.Getenv("ARBITER_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
	if kind := os.Getenv("ARBITER_PROVIDER"); kind != "" {
		c.Provider.Kind = kind
	}
	if model := os.Getenv("ARBITER_MODEL"); model != "" {
		c.Provider.Model = model
	}
	if base := os.Getenv("ARBITER_BASE_URL"); base != "" {
		c.Provider.BaseURL = base
	}
	if file := os.Getenv("ARBITER_PERSONA"); file != "" {
		c.Persona.File = file
	}
	if relay := os.Getenv("ARBITER_RELAY_URL"); relay != "" {
		c.Chat.RelayURL = relay
	}
	if replay := os.Getenv("ARBITER_REPLAY"); replay != "" {
		if b, err := strconv.ParseBool(replay); err == nil {
			c.Chat.Replay = b
		}
	}
	if level := os.Getenv("ARBITER_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if format := os.Getenv("ARBITER_LOG_FORMAT"); format != "" {
		c.Log.Format = format
	}
}

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	out := *c
	out.Server.CORSOrigins = append([]string(nil), c.Server.CORSOrigins...)
	return &out
}

// Redacted returns a copy safe to print, with the API key masked.
func (c *Config) Redacted() *Config {
	out := c.Clone()
	if out.Provider.APIKey != "" {
		out.Provider.APIKey = "********"
	}
	return out
}
