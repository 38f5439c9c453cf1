// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv isolates a test from ARBITER_* variables set on the host.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"OPENROUTER_API_KEY", "ARBITER_API_KEY", "ARBITER_ADDR", "ARBITER_PROVIDER",
		"ARBITER_MODEL", "ARBITER_BASE_URL", "ARBITER_PERSONA", "ARBITER_RELAY_URL",
		"ARBITER_REPLAY", "ARBITER_LOG_LEVEL", "ARBITER_LOG_FORMAT",
	} {
		t.Setenv(k, "")
	}
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

// =============================================================================
// DEFAULTS
// =============================================================================

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "openai/gpt-4o-mini", cfg.Provider.Model)
	assert.Equal(t, "https://openrouter.ai/api/v1", cfg.Provider.BaseURL)
	assert.Equal(t, 30*time.Millisecond, cfg.Chat.RevealInterval())
	assert.Equal(t, 50*time.Millisecond, cfg.Chat.RevealJitter())
	assert.Equal(t, 60*time.Second, cfg.Provider.Timeout())
}

// =============================================================================
// LOAD
// =============================================================================

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, DefaultAddr, cfg.Server.Addr)
}

func TestLoad_TOMLOverridesDefaults(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
[server]
addr = "0.0.0.0:9000"

[provider]
kind = "MOCK"

[chat]
replay = true
reveal_interval_ms = 5
`)

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Addr)
	assert.Equal(t, "mock", cfg.Provider.Kind)
	assert.True(t, cfg.Chat.Replay)
	assert.Equal(t, 5*time.Millisecond, cfg.Chat.RevealInterval())
	assert.Equal(t, DefaultModel, cfg.Provider.Model)
}

func TestLoad_UnknownKey(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "[server]\nport = 1\n")

	_, err := Load(path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))

	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENROUTER_API_KEY", "sk-or-test")
	t.Setenv("ARBITER_MODEL", "anthropic/claude-3.5-haiku")
	t.Setenv("ARBITER_REPLAY", "true")

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, "sk-or-test", cfg.Provider.APIKey)
	assert.Equal(t, "anthropic/claude-3.5-haiku", cfg.Provider.Model)
	assert.True(t, cfg.Chat.Replay)
}

func TestLoad_DotEnvDoesNotOverrideEnvironment(t *testing.T) {
	clearEnv(t)
	require.NoError(t, os.WriteFile(".env", []byte("OPENROUTER_API_KEY=from-dotenv\nARBITER_LOG_LEVEL=debug\n"), 0o600))
	t.Setenv("ARBITER_LOG_LEVEL", "warn")
	// godotenv only fills variables that are unset, and t.Setenv("", ..) leaves them set.
	os.Unsetenv("OPENROUTER_API_KEY")
	t.Cleanup(func() { os.Unsetenv("OPENROUTER_API_KEY") })

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Provider.APIKey)
	assert.Equal(t, "warn", cfg.Log.Level)
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad addr", func(c *Config) { c.Server.Addr = "nocolon" }, "server.addr"},
		{"bad provider", func(c *Config) { c.Provider.Kind = "ollama" }, "provider.kind"},
		{"bad base url", func(c *Config) { c.Provider.BaseURL = "ftp://x" }, "provider.base_url"},
		{"bad relay url", func(c *Config) { c.Chat.RelayURL = "not a url" }, "chat.relay_url"},
		{"interval too large", func(c *Config) { c.Chat.RevealIntervalMs = 5000 }, "chat.reveal_interval_ms"},
		{"negative jitter", func(c *Config) { c.Chat.RevealJitterMs = -1 }, "chat.reveal_jitter_ms"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"bad log level", func(c *Config) { c.Log.Level = "trace" }, "log.level"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)

			err := cfg.Validate()

			var verrs ValidateErrors
			require.True(t, errors.As(err, &verrs), "want ValidateErrors, got %v", err)
			require.Len(t, verrs, 1)
			assert.Equal(t, tc.field, verrs[0].Field)
		})
	}
}

func TestValidate_MockSkipsProviderURL(t *testing.T) {
	cfg := Default()
	cfg.Provider.Kind = "mock"
	cfg.Provider.BaseURL = ""

	assert.NoError(t, cfg.Validate())
}

func TestSetDefaults_FillsZeroValues(t *testing.T) {
	cfg := &Config{}

	cfg.SetDefaults()

	assert.Equal(t, DefaultAddr, cfg.Server.Addr)
	assert.Equal(t, DefaultProviderKind, cfg.Provider.Kind)
	assert.EqualValues(t, DefaultMaxBodyBytes, cfg.Server.MaxBodyBytes)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := Default()
	cfg.Chat.Replay = true
	cfg.Server.CORSOrigins = []string{"https://arbiter.example"}

	require.NoError(t, Save(cfg, path))
	loaded, err := Load(path)

	require.NoError(t, err)
	assert.True(t, loaded.Chat.Replay)
	assert.Equal(t, []string{"https://arbiter.example"}, loaded.Server.CORSOrigins)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestClone(t *testing.T) {
	cfg := Default()
	clone := cfg.Clone()
	clone.Server.CORSOrigins[0] = "changed"

	assert.NotEqual(t, "changed", cfg.Server.CORSOrigins[0])
}

func TestRedacted(t *testing.T) {
	cfg := Default()
	cfg.Provider.APIKey = "sk-or-secret"

	var out bytes.Buffer
	require.NoError(t, Write(&out, cfg.Redacted()))

	assert.NotContains(t, out.String(), "sk-or-secret")
	assert.Contains(t, out.String(), "********")
	assert.Equal(t, "sk-or-secret", cfg.Provider.APIKey, "original is untouched")
}

func TestRedacted_EmptyKeyStaysEmpty(t *testing.T) {
	assert.Empty(t, Default().Redacted().Provider.APIKey)
}
