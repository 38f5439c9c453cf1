// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "strings"

// =============================================================================
// CONVERSATION
// =============================================================================

// Conversation is an ordered sequence of turns.
// Insertion order is display order and chronological order.
//
// Conversation is not safe for concurrent use; its owner serializes access.
type Conversation struct {
	turns []Turn
}

// NewConversation creates an empty conversation.
func NewConversation() *Conversation {
	return &Conversation{}
}

// Append adds a turn at the end and returns a pointer to the stored turn.
func (c *Conversation) Append(t Turn) *Turn {
	c.turns = append(c.turns, t)
	return &c.turns[len(c.turns)-1]
}

// Len returns the number of turns.
func (c *Conversation) Len() int {
	return len(c.turns)
}

// IsEmpty reports whether the conversation has no turns.
func (c *Conversation) IsEmpty() bool {
	return len(c.turns) == 0
}

// Turns returns a copy of all turns.
func (c *Conversation) Turns() []Turn {
	out := make([]Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

// At returns a pointer to the turn at index i, or nil when out of range.
func (c *Conversation) At(i int) *Turn {
	if i < 0 || i >= len(c.turns) {
		return nil
	}
	return &c.turns[i]
}

// IndexOf returns the index of the turn with the given ID, or -1.
func (c *Conversation) IndexOf(id string) int {
	for i := range c.turns {
		if c.turns[i].ID == id {
			return i
		}
	}
	return -1
}

// ByID returns a pointer to the turn with the given ID, or nil.
func (c *Conversation) ByID(id string) *Turn {
	return c.At(c.IndexOf(id))
}

// LastIndex returns the index of the newest turn with the given role, or -1.
func (c *Conversation) LastIndex(role Role) int {
	return c.LastIndexBefore(role, len(c.turns))
}

// LastIndexBefore returns the index of the newest turn with the given role
// strictly before index end, or -1.
func (c *Conversation) LastIndexBefore(role Role, end int) int {
	if end > len(c.turns) {
		end = len(c.turns)
	}
	for i := end - 1; i >= 0; i-- {
		if c.turns[i].Role == role {
			return i
		}
	}
	return -1
}

// Truncate keeps the first n turns and drops the rest.
func (c *Conversation) Truncate(n int) {
	if n < 0 {
		n = 0
	}
	if n >= len(c.turns) {
		return
	}
	clear(c.turns[n:])
	c.turns = c.turns[:n]
}

// Clear removes all turns.
func (c *Conversation) Clear() {
	c.turns = nil
}

// Wire reduces the conversation to the relay request shape.
// Turns without content are skipped since providers reject empty messages,
// and so are failure notices, which the model never said.
func (c *Conversation) Wire() []WireTurn {
	out := make([]WireTurn, 0, len(c.turns))
	for _, t := range c.turns {
		if t.Failed || strings.TrimSpace(t.Content) == "" {
			continue
		}
		out = append(out, t.Wire())
	}
	return out
}

// Title returns a short label derived from the first user turn.
func (c *Conversation) Title(maxWidth int) string {
	for _, t := range c.turns {
		if t.Role == RoleUser {
			return t.Preview(maxWidth)
		}
	}
	return ""
}
