// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"fmt"
)

// FragmentKind selects the channel a fragment is appended to.
type FragmentKind int

const (
	FragmentText FragmentKind = iota
	FragmentReasoning
)

// String returns the wire name of the kind.
func (k FragmentKind) String() string {
	switch k {
	case FragmentText:
		return "text"
	case FragmentReasoning:
		return "reasoning"
	default:
		return "unknown"
	}
}

// ParseFragmentKind converts a wire name back into a kind.
func ParseFragmentKind(s string) (FragmentKind, error) {
	switch s {
	case "text", "":
		return FragmentText, nil
	case "reasoning":
		return FragmentReasoning, nil
	default:
		return FragmentText, fmt.Errorf("unknown fragment kind %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k FragmentKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *FragmentKind) UnmarshalText(b []byte) error {
	parsed, err := ParseFragmentKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Fragment is an incremental piece of streamed text.
type Fragment struct {
	Kind    FragmentKind `json:"kind"`
	Payload string       `json:"payload"`
}

// TextFragment builds a fragment for the main content channel.
func TextFragment(payload string) Fragment {
	return Fragment{Kind: FragmentText, Payload: payload}
}

// ReasoningFragment builds a fragment for the reasoning channel.
func ReasoningFragment(payload string) Fragment {
	return Fragment{Kind: FragmentReasoning, Payload: payload}
}

// Encode returns the JSON form used in relay stream events.
func (f Fragment) Encode() ([]byte, error) {
	return json.Marshal(f)
}

// DecodeFragment parses a relay stream event payload.
func DecodeFragment(data []byte) (Fragment, error) {
	var f Fragment
	if err := json.Unmarshal(data, &f); err != nil {
		return Fragment{}, fmt.Errorf("decode fragment: %w", err)
	}
	return f, nil
}
