// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package persona holds the persona instruction and the display strings that
// go with it: thinking phrases, suggestions and the apology shown on failure.
//
// The built-in persona is embedded. A YAML file can override any field.
package persona

import (
	_ "embed"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// ErrInvalid is returned when a persona is missing a required field.
var ErrInvalid = errors.New("invalid persona")

// Persona is the opaque instruction supplied to the provider on every request,
// plus the strings the chat surface derives from it.
type Persona struct {
	Name            string   `yaml:"name"`
	Title           string   `yaml:"title"`
	Intro           string   `yaml:"intro"`
	Disclaimer      string   `yaml:"disclaimer"`
	Prompt          string   `yaml:"prompt"`
	ThinkingPhrases []string `yaml:"thinking_phrases"`
	Suggestions     []string `yaml:"suggestions"`
	Placeholder     string   `yaml:"placeholder"`
	ErrorMessage    string   `yaml:"error_message"`
	MockResponses   []string `yaml:"mock_responses"`
}

// Default returns a fresh copy of the embedded persona.
func Default() *Persona {
	p, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("persona: embedded default is broken: %v", err))
	}
	return p
}

// Parse decodes a persona document.
func Parse(data []byte) (*Persona, error) {
	var p Persona
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode persona: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Load reads a persona file and overlays it on the defaults.
// An empty path returns the defaults.
func Load(path string) (*Persona, error) {
	p := Default()
	if path == "" {
		return p, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read persona %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("decode persona %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks the fields every consumer relies on.
func (p *Persona) Validate() error {
	if strings.TrimSpace(p.Prompt) == "" {
		return fmt.Errorf("%w: prompt is empty", ErrInvalid)
	}
	if strings.TrimSpace(p.ErrorMessage) == "" {
		return fmt.Errorf("%w: error_message is empty", ErrInvalid)
	}
	return nil
}

// RandomThinkingPhrase picks one of the thinking phrases.
// A nil rnd uses the global source.
func (p *Persona) RandomThinkingPhrase(rnd *rand.Rand) string {
	return pick(p.ThinkingPhrases, rnd, "...")
}

// RandomMockResponse picks one of the canned responses used offline.
func (p *Persona) RandomMockResponse(rnd *rand.Rand) string {
	return pick(p.MockResponses, rnd, p.ErrorMessage)
}

func pick(items []string, rnd *rand.Rand, fallback string) string {
	if len(items) == 0 {
		return fallback
	}
	if rnd == nil {
		return items[rand.Intn(len(items))]
	}
	return items[rnd.Intn(len(items))]
}
