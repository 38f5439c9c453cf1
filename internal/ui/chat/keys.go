// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
)

// =============================================================================
// KEY MAP DEFINITION
// =============================================================================

// KeyMap defines all keyboard bindings for the chat screen.
type KeyMap struct {
	Submit          key.Binding
	Newline         key.Binding
	Stop            key.Binding
	Regenerate      key.Binding
	Clear           key.Binding
	ToggleReasoning key.Binding
	Copy            key.Binding
	PageUp          key.Binding
	PageDown        key.Binding
	NextSuggestion  key.Binding
	PickSuggestion  key.Binding
	Quit            key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "gửi"),
		),
		Newline: key.NewBinding(
			key.WithKeys("alt+enter", "ctrl+j"),
			key.WithHelp("alt+enter", "xuống dòng"),
		),
		Stop: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "dừng"),
		),
		Regenerate: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("C-r", "phán lại"),
		),
		Clear: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("C-l", "xoá"),
		),
		ToggleReasoning: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("C-t", "suy luận"),
		),
		Copy: key.NewBinding(
			key.WithKeys("ctrl+y"),
			key.WithHelp("C-y", "chép"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("PgUp", "cuộn lên"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("PgDn", "cuộn xuống"),
		),
		NextSuggestion: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "gợi ý"),
		),
		PickSuggestion: key.NewBinding(
			key.WithKeys("1", "2", "3", "4"),
			key.WithHelp("1-4", "hỏi ngay"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("C-c", "thoát"),
		),
	}
}

// =============================================================================
// KEY BINDING HELPERS
// =============================================================================

// ShortHelp returns the bindings shown in the help line for a phase.
func (k KeyMap) ShortHelp(busy, empty bool) []key.Binding {
	switch {
	case busy:
		return []key.Binding{k.Stop, k.PageUp, k.Quit}
	case empty:
		return []key.Binding{k.Submit, k.Newline, k.NextSuggestion, k.PickSuggestion, k.Quit}
	default:
		return []key.Binding{k.Submit, k.Newline, k.Regenerate, k.Copy, k.ToggleReasoning, k.Clear, k.Quit}
	}
}

// helpLine renders bindings as "key desc" pairs.
func helpLine(bindings []key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, " · ")
}
