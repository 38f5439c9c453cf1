// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds all the styled components for the application.
type Theme struct {
	IsDark bool

	Width  int
	Height int

	// ==========================================================================
	// HEADER STYLES
	// ==========================================================================

	Header         lipgloss.Style
	HeaderTitle    lipgloss.Style
	HeaderSubtitle lipgloss.Style
	HeaderCounter  lipgloss.Style

	// ==========================================================================
	// MESSAGE BUBBLE STYLES
	// ==========================================================================

	UserBubble      lipgloss.Style
	UserLabel       lipgloss.Style
	AssistantBubble lipgloss.Style
	AssistantLabel  lipgloss.Style
	FailedBubble    lipgloss.Style
	Timestamp       lipgloss.Style
	Cursor          lipgloss.Style

	ReasoningLabel lipgloss.Style
	Reasoning      lipgloss.Style

	// ==========================================================================
	// EMPTY STATE STYLES
	// ==========================================================================

	Banner     lipgloss.Style
	Intro      lipgloss.Style
	Chip       lipgloss.Style
	ChipActive lipgloss.Style
	ChipKey    lipgloss.Style

	// ==========================================================================
	// INPUT AND STATUS STYLES
	// ==========================================================================

	InputBorder lipgloss.Style
	Thinking    lipgloss.Style
	Status      lipgloss.Style
	StatusError lipgloss.Style
	Help        lipgloss.Style
	Disclaimer  lipgloss.Style
}

// NewTheme creates a theme for the current terminal background.
func NewTheme() *Theme {
	return NewThemeFor(termenv.HasDarkBackground())
}

// NewThemeFor creates a theme for an explicit background.
func NewThemeFor(isDark bool) *Theme {
	t := &Theme{IsDark: isDark}
	t.initStyles()
	return t
}

func (t *Theme) initStyles() {
	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1)
	t.HeaderTitle = lipgloss.NewStyle().
		Foreground(Amber).
		Bold(true)
	t.HeaderSubtitle = lipgloss.NewStyle().
		Foreground(TextMuted)
	t.HeaderCounter = lipgloss.NewStyle().
		Foreground(TextSecondary)

	t.UserBubble = lipgloss.NewStyle().
		Background(SurfaceBright).
		Foreground(TextPrimary).
		Padding(0, 1)
	t.UserLabel = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Bold(true)
	t.AssistantBubble = lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(AmberDeep).
		PaddingLeft(1)
	t.AssistantLabel = lipgloss.NewStyle().
		Foreground(Amber).
		Bold(true)
	t.FailedBubble = t.AssistantBubble.
		BorderForeground(Rose).
		Foreground(Rose)
	t.Timestamp = lipgloss.NewStyle().
		Foreground(TextMuted)
	t.Cursor = lipgloss.NewStyle().
		Foreground(AmberGlow).
		Blink(true)

	t.ReasoningLabel = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)
	t.Reasoning = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Italic(true).
		PaddingLeft(2)

	t.Banner = lipgloss.NewStyle().
		Foreground(Amber).
		Bold(true)
	t.Intro = lipgloss.NewStyle().
		Foreground(TextSecondary)
	t.Chip = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)
	t.ChipActive = t.Chip.
		Foreground(Amber).
		BorderForeground(Amber)
	t.ChipKey = lipgloss.NewStyle().
		Foreground(Amber).
		Bold(true)

	t.InputBorder = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Overlay)
	t.Thinking = lipgloss.NewStyle().
		Foreground(Amber).
		Italic(true)
	t.Status = lipgloss.NewStyle().
		Foreground(TextMuted)
	t.StatusError = lipgloss.NewStyle().
		Foreground(Rose)
	t.Help = lipgloss.NewStyle().
		Foreground(TextMuted)
	t.Disclaimer = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)
}

// GlamourStyle returns the glamour standard style matching the background.
func (t *Theme) GlamourStyle() string {
	if t.IsDark {
		return "dark"
	}
	return "light"
}

// SetSize updates the theme dimensions for responsive layouts.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// GetLayoutMode returns the current layout mode based on width.
func (t *Theme) GetLayoutMode() LayoutMode {
	if t.Width < 60 {
		return LayoutNarrow
	}
	if t.Width < 100 {
		return LayoutMedium
	}
	return LayoutWide
}

// ContentWidth is the column budget for message text.
func (t *Theme) ContentWidth() int {
	switch t.GetLayoutMode() {
	case LayoutNarrow:
		return max(t.Width-4, 20)
	case LayoutMedium:
		return t.Width - 8
	default:
		return 92
	}
}

// LayoutMode represents the current responsive layout mode.
type LayoutMode int

const (
	LayoutNarrow LayoutMode = iota // < 60 columns
	LayoutMedium                   // 60-100 columns
	LayoutWide                     // > 100 columns
)
