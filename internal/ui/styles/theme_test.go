// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewThemeFor(t *testing.T) {
	assert.Equal(t, "dark", NewThemeFor(true).GlamourStyle())
	assert.Equal(t, "light", NewThemeFor(false).GlamourStyle())
}

func TestTheme_LayoutMode(t *testing.T) {
	tests := []struct {
		width int
		mode  LayoutMode
		text  int
	}{
		{40, LayoutNarrow, 36},
		{10, LayoutNarrow, 20},
		{80, LayoutMedium, 72},
		{160, LayoutWide, 92},
	}

	for _, tc := range tests {
		th := NewThemeFor(true)
		th.SetSize(tc.width, 24)

		assert.Equal(t, tc.mode, th.GetLayoutMode(), "width %d", tc.width)
		assert.Equal(t, tc.text, th.ContentWidth(), "width %d", tc.width)
	}
}

func TestTheme_StylesRender(t *testing.T) {
	th := NewThemeFor(true)

	assert.Contains(t, th.HeaderTitle.Render("THE ARBITER"), "THE ARBITER")
	assert.Contains(t, th.Chip.Render("Tỏ tình hay im lặng?"), "Tỏ tình hay im lặng?")
}
