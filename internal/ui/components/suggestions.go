// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/arbiter/internal/ui/styles"
)

// MaxSuggestions is how many chips get a number key.
const MaxSuggestions = 4

// Suggestions is the row of starter questions on the empty screen.
type Suggestions struct {
	theme    *styles.Theme
	items    []string
	selected int
}

// NewSuggestions keeps at most MaxSuggestions items.
func NewSuggestions(theme *styles.Theme, items []string) Suggestions {
	if len(items) > MaxSuggestions {
		items = items[:MaxSuggestions]
	}
	return Suggestions{theme: theme, items: items, selected: -1}
}

// Len returns the number of chips.
func (s Suggestions) Len() int {
	return len(s.items)
}

// Next moves the highlight to the following chip, wrapping around.
func (s *Suggestions) Next() {
	if len(s.items) == 0 {
		return
	}
	s.selected = (s.selected + 1) % len(s.items)
}

// Selected returns the highlighted chip text.
func (s Suggestions) Selected() (string, bool) {
	return s.At(s.selected + 1)
}

// At returns the chip bound to number key n (1-based).
func (s Suggestions) At(n int) (string, bool) {
	if n < 1 || n > len(s.items) {
		return "", false
	}
	return s.items[n-1], true
}

// Reset clears the highlight.
func (s *Suggestions) Reset() {
	s.selected = -1
}

// View lays the chips out in as many rows as width requires.
func (s Suggestions) View(width int) string {
	var rows []string
	var row []string
	rowWidth := 0

	for i, item := range s.items {
		style := s.theme.Chip
		if i == s.selected {
			style = s.theme.ChipActive
		}
		chip := style.Render(s.theme.ChipKey.Render(fmt.Sprintf("%d", i+1)) + " " + item)
		w := lipgloss.Width(chip)
		if len(row) > 0 && rowWidth+w+1 > width {
			rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
			row, rowWidth = nil, 0
		}
		if len(row) > 0 {
			row = append(row, " ")
			rowWidth++
		}
		row = append(row, chip)
		rowWidth += w
	}
	if len(row) > 0 {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
	}
	return strings.Join(rows, "\n")
}
