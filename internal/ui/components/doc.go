// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides the building blocks of the Arbiter chat screen.
//
//   - Header: brand line with the turn counter
//   - Thinking: spinner and phrase shown while awaiting the first token
//   - Suggestions: starter questions on the empty screen
//   - Bubble: one conversation turn, with markdown for the assistant
//
// Components are pure renderers over values handed to them. None of them
// holds or mutates conversation state.
package components
