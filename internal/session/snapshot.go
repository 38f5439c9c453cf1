// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"

	"github.com/jeranaias/arbiter/internal/model"
)

// =============================================================================
// PHASE
// =============================================================================

// Phase is the request lifecycle state.
type Phase int

const (
	// PhaseIdle accepts Send and Regenerate.
	PhaseIdle Phase = iota

	// PhaseAwaitingFirstToken is a request in flight with nothing received.
	PhaseAwaitingFirstToken

	// PhaseStreaming is a request whose assistant turn is receiving fragments.
	PhaseStreaming
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAwaitingFirstToken:
		return "awaitingFirstToken"
	case PhaseStreaming:
		return "streaming"
	default:
		return "unknown"
	}
}

// Busy reports whether a request is outstanding.
func (p Phase) Busy() bool {
	return p != PhaseIdle
}

// =============================================================================
// SNAPSHOT
// =============================================================================

// Snapshot is a copy of the session state at one commit.
type Snapshot struct {
	Turns []model.Turn
	Input string

	// InputRev changes only when the Manager itself rewrites Input, so a
	// view can tell its own edits from restorations.
	InputRev uint64

	Phase          Phase
	ActiveStreamID string

	// ThinkingPhrase is shown while awaiting the first token.
	ThinkingPhrase string

	// Title labels the conversation by its first user turn.
	Title string

	// Version increases by one per commit.
	Version uint64
}

// Active returns the turn currently streaming, or nil.
func (s Snapshot) Active() *model.Turn {
	if s.ActiveStreamID == "" {
		return nil
	}
	for i := range s.Turns {
		if s.Turns[i].ID == s.ActiveStreamID {
			return &s.Turns[i]
		}
	}
	return nil
}

// LastAssistant returns the newest assistant turn, or nil.
func (s Snapshot) LastAssistant() *model.Turn {
	for i := len(s.Turns) - 1; i >= 0; i-- {
		if s.Turns[i].Role == model.RoleAssistant {
			return &s.Turns[i]
		}
	}
	return nil
}

// CanRegenerate reports whether Regenerate with an empty id would act.
func (s Snapshot) CanRegenerate() bool {
	if s.Phase.Busy() {
		return false
	}
	for i := len(s.Turns) - 1; i >= 0; i-- {
		if s.Turns[i].Role != model.RoleAssistant {
			continue
		}
		for j := i - 1; j >= 0; j-- {
			if s.Turns[j].Role == model.RoleUser {
				return true
			}
		}
		return false
	}
	return false
}

// =============================================================================
// TRANSPORT
// =============================================================================

// Transport delivers one reply as fragments. It returns when the reply is
// complete, failed, or ctx was cancelled.
type Transport interface {
	Stream(ctx context.Context, turns []model.WireTurn, onFragment func(model.Fragment)) error
}

// Completer is implemented by transports that can return a whole reply.
// It is used when Options.Replay is set.
type Completer interface {
	Complete(ctx context.Context, turns []model.WireTurn) (string, error)
}
