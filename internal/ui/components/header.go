// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/arbiter/internal/ui/styles"
)

// Header is the top bar.
type Header struct {
	theme *styles.Theme

	Title    string
	Subtitle string
	Turns    int
	Width    int
}

// NewHeader creates a header with the given brand strings.
func NewHeader(theme *styles.Theme, title, subtitle string) Header {
	return Header{theme: theme, Title: title, Subtitle: subtitle}
}

// View renders the header across Width columns.
func (h Header) View() string {
	left := h.theme.HeaderTitle.Render(strings.ToUpper(h.Title))
	if h.Subtitle != "" {
		left += "  " + h.theme.HeaderSubtitle.Render(h.Subtitle)
	}

	right := ""
	if h.Turns > 0 {
		right = h.theme.HeaderCounter.Render(fmt.Sprintf("%d lượt", h.Turns))
	}

	inner := max(h.Width-2, 0)
	gap := inner - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		// Narrow terminals drop the counter first.
		right, gap = "", max(inner-lipgloss.Width(left), 0)
	}
	return h.theme.Header.Width(max(h.Width, 0)).Render(left + strings.Repeat(" ", gap) + right)
}
