// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the Arbiter TUI.
// All colors use Lip Gloss AdaptiveColor for automatic light/dark detection.
package styles

import "github.com/charmbracelet/lipgloss"

// =============================================================================
// PRIMARY ACCENT COLORS
// =============================================================================

// Amber - Primary accent, assistant name, selections
var Amber = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#FBBF24"}

// AmberDeep - Darker amber for borders and chips
var AmberDeep = lipgloss.AdaptiveColor{Light: "#92400E", Dark: "#B45309"}

// AmberGlow - Soft amber for the streaming cursor
var AmberGlow = lipgloss.AdaptiveColor{Light: "#F59E0B", Dark: "#F59E0B"}

// =============================================================================
// SEMANTIC COLORS
// =============================================================================

// Rose - Failure notices
var Rose = lipgloss.AdaptiveColor{Light: "#BE123C", Dark: "#FB7185"}

// Emerald - Idle and connected indicators
var Emerald = lipgloss.AdaptiveColor{Light: "#047857", Dark: "#34D399"}

// =============================================================================
// SURFACE COLORS (zinc)
// =============================================================================

// Surface - Main background
var Surface = lipgloss.AdaptiveColor{Light: "#FAFAFA", Dark: "#18181B"}

// SurfaceDim - Header and footer background
var SurfaceDim = lipgloss.AdaptiveColor{Light: "#F4F4F5", Dark: "#09090B"}

// SurfaceBright - User bubble background
var SurfaceBright = lipgloss.AdaptiveColor{Light: "#E4E4E7", Dark: "#27272A"}

// Overlay - Borders, separators
var Overlay = lipgloss.AdaptiveColor{Light: "#D4D4D8", Dark: "#3F3F46"}

// =============================================================================
// TEXT COLORS
// =============================================================================

// TextPrimary - Main body text
var TextPrimary = lipgloss.AdaptiveColor{Light: "#18181B", Dark: "#F4F4F5"}

// TextSecondary - Labels, reasoning text
var TextSecondary = lipgloss.AdaptiveColor{Light: "#52525B", Dark: "#A1A1AA"}

// TextMuted - Hints, timestamps
var TextMuted = lipgloss.AdaptiveColor{Light: "#A1A1AA", Dark: "#71717A"}
