// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/jeranaias/arbiter/internal/ui/components"
)

const banner = `  ⚖  T H E   A R B I T E R  ⚖`

// View renders the screen.
func (m Model) View() string {
	sections := []string{
		m.header.View(),
		m.viewport.View(),
		m.renderStatus(),
		m.theme.InputBorder.Width(max(m.width-2, 10)).Render(m.input.View()),
		m.theme.Help.Render(helpLine(m.keys.ShortHelp(m.snap.Phase.Busy(), len(m.snap.Turns) == 0))),
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderTranscript draws every turn, or the empty state.
func (m Model) renderTranscript() string {
	width := m.theme.ContentWidth()
	if len(m.snap.Turns) == 0 {
		return m.renderEmpty(width)
	}

	opts := components.BubbleOptions{
		Width:         width,
		ShowReasoning: m.showReasoning,
		Markdown:      m.markdown,
	}
	blocks := make([]string, 0, len(m.snap.Turns))
	for _, t := range m.snap.Turns {
		blocks = append(blocks, components.RenderTurn(m.theme, t, opts))
	}
	return lipgloss.NewStyle().Width(max(m.width, width)).Render(strings.Join(blocks, "\n\n"))
}

func (m Model) renderEmpty(width int) string {
	parts := []string{
		"",
		m.theme.Banner.Render(banner),
		"",
		m.theme.Intro.Render(wordwrap.String(m.persona.Intro, width)),
		"",
		m.suggestions.View(width),
	}
	if m.persona.Disclaimer != "" {
		parts = append(parts, "", m.theme.Disclaimer.Render(wordwrap.String(m.persona.Disclaimer, width)))
	}
	return strings.Join(parts, "\n")
}

// renderStatus shows the thinking indicator, a transient notice, or nothing.
func (m Model) renderStatus() string {
	switch {
	case m.thinking.IsActive():
		return m.thinking.View()
	case m.status == "":
		return ""
	case m.statusErr:
		return m.theme.StatusError.Render(m.status)
	default:
		return m.theme.Status.Render(m.status)
	}
}
