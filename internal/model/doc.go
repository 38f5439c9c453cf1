// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and turns.
//
// This package defines the core domain types shared by the relay, the
// session manager and the terminal UI.
//
// # Key Types
//
//   - Turn: One message unit authored by the user or the assistant persona
//   - Fragment: Tagged piece of streamed text (text or reasoning)
//   - Conversation: Ordered sequence of turns
//   - WireTurn: The {role, content} shape sent to the relay
//   - Role: Turn role enumeration (user, assistant, system)
//
// # Usage
//
// Build a conversation and reduce it to the relay request shape:
//
//	conv := model.NewConversation()
//	conv.Append(model.NewUserTurn("Nghỉ việc hay tiếp tục chịu đựng?"))
//	wire := conv.Wire()
//
// Apply streamed fragments to an assistant turn:
//
//	turn := model.NewAssistantTurn()
//	turn.Apply(model.TextFragment("**Lệnh:** "))
//	turn.Apply(model.ReasoningFragment("Ta đang phân tích..."))
package model
