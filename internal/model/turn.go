// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-runewidth"
)

// =============================================================================
// ROLE
// =============================================================================

// Role represents the author of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"

	// RoleSystem only appears on the provider wire, carrying the persona
	// instruction. Client conversations never contain it.
	RoleSystem Role = "system"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "Ngươi"
	case RoleAssistant:
		return "The Arbiter"
	case RoleSystem:
		return "System"
	default:
		return "Unknown"
	}
}

// IsConversational reports whether the role may appear in a client conversation.
func (r Role) IsConversational() bool {
	return r == RoleUser || r == RoleAssistant
}

// =============================================================================
// TURN
// =============================================================================

// Turn is one message unit in a conversation.
//
// Content and Reasoning only grow, and only while Streaming is set. Once a
// turn is finalized it is never mutated again.
type Turn struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Reasoning string    `json:"reasoning,omitempty"`
	Timestamp time.Time `json:"timestamp"`

	// Streaming is true only for the assistant turn currently receiving fragments.
	Streaming bool `json:"streaming,omitempty"`

	// Failed marks the synthetic turn appended after a transport failure.
	Failed bool `json:"failed,omitempty"`

	// Seq counts the fragments applied so far.
	Seq int `json:"seq,omitempty"`
}

// NewTurn creates a finalized turn with a fresh ID.
func NewTurn(role Role, content string) Turn {
	return Turn{
		ID:        generateID(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewUserTurn creates a user turn.
func NewUserTurn(content string) Turn {
	return NewTurn(RoleUser, content)
}

// NewAssistantTurn creates an empty assistant placeholder marked as streaming.
func NewAssistantTurn() Turn {
	t := NewTurn(RoleAssistant, "")
	t.Streaming = true
	return t
}

// NewErrorTurn creates the synthetic assistant turn shown after a failure.
func NewErrorTurn(message string) Turn {
	t := NewTurn(RoleAssistant, message)
	t.Failed = true
	return t
}

// Apply appends a fragment to the channel selected by its kind.
// It reports false, leaving the turn untouched, when the turn is not streaming.
func (t *Turn) Apply(f Fragment) bool {
	if !t.Streaming {
		return false
	}
	switch f.Kind {
	case FragmentReasoning:
		t.Reasoning += f.Payload
	default:
		t.Content += f.Payload
	}
	t.Seq++
	return true
}

// Finalize clears the streaming flag. The content is kept as-is.
func (t *Turn) Finalize() {
	t.Streaming = false
}

// IsEmpty reports whether the turn carries no text on either channel.
func (t Turn) IsEmpty() bool {
	return t.Content == "" && t.Reasoning == ""
}

// Wire reduces the turn to the relay request shape.
func (t Turn) Wire() WireTurn {
	return WireTurn{Role: t.Role, Content: t.Content}
}

// Preview returns the content truncated to maxWidth terminal cells.
func (t Turn) Preview(maxWidth int) string {
	line := strings.Join(strings.Fields(t.Content), " ")
	return runewidth.Truncate(line, maxWidth, "...")
}

// Clock renders the timestamp the way the chat bubbles show it.
func (t Turn) Clock() string {
	return t.Timestamp.Format("15:04")
}

// generateID creates a unique turn ID.
func generateID() string {
	return "turn_" + uuid.NewString()
}

// =============================================================================
// WIRE
// =============================================================================

// WireTurn is a turn reduced to what the relay and the provider need.
type WireTurn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
