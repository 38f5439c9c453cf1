// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/jeranaias/arbiter/internal/model"
	"github.com/jeranaias/arbiter/internal/ui/styles"
)

// cursorGlyph trails the text of the turn being streamed.
const cursorGlyph = "▌"

// BubbleOptions controls how a turn is drawn.
type BubbleOptions struct {
	Width         int
	ShowReasoning bool
	Markdown      *Markdown
}

// RenderTurn draws one turn: a label line followed by the body.
func RenderTurn(theme *styles.Theme, t model.Turn, opts BubbleOptions) string {
	width := max(opts.Width, 10)
	if t.Role == model.RoleUser {
		return renderUser(theme, t, width)
	}
	return renderAssistant(theme, t, width, opts)
}

func renderUser(theme *styles.Theme, t model.Turn, width int) string {
	label := theme.UserLabel.Render(t.Role.DisplayName()) + " " + theme.Timestamp.Render(t.Clock())
	body := theme.UserBubble.Render(wordwrap.String(t.Content, width-2))

	// User turns sit on the right.
	return lipgloss.JoinVertical(lipgloss.Right, label, body)
}

func renderAssistant(theme *styles.Theme, t model.Turn, width int, opts BubbleOptions) string {
	var b strings.Builder
	b.WriteString(theme.AssistantLabel.Render(t.Role.DisplayName()))
	b.WriteString(" ")
	b.WriteString(theme.Timestamp.Render(t.Clock()))
	b.WriteString("\n")

	inner := width - 2
	if t.Reasoning != "" {
		b.WriteString(renderReasoning(theme, t.Reasoning, inner, opts.ShowReasoning))
		b.WriteString("\n")
	}

	var body string
	switch {
	case t.Failed:
		return b.String() + theme.FailedBubble.Render(wordwrap.String(t.Content, inner))
	case t.Streaming:
		body = wordwrap.String(t.Content, inner) + theme.Cursor.Render(cursorGlyph)
	case opts.Markdown == nil:
		body = wordwrap.String(t.Content, inner)
	default:
		body = opts.Markdown.Render(t.Content, inner)
	}
	b.WriteString(theme.AssistantBubble.Render(body))
	return b.String()
}

// renderReasoning shows the reasoning channel, or a one-line toggle hint
// when it is collapsed.
func renderReasoning(theme *styles.Theme, reasoning string, width int, expanded bool) string {
	if !expanded {
		return theme.ReasoningLabel.Render("▸ Suy luận (ctrl+t)")
	}
	return theme.ReasoningLabel.Render("▾ Suy luận") + "\n" +
		theme.Reasoning.Render(wordwrap.String(reasoning, max(width-2, 8)))
}
