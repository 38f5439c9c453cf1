// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/arbiter/internal/ui/styles"
)

// Thinking is the indicator shown between sending and the first fragment.
type Thinking struct {
	theme   *styles.Theme
	spinner spinner.Model

	phrase    string
	startTime time.Time
	isActive  bool
}

// NewThinking creates an idle indicator.
func NewThinking(theme *styles.Theme) Thinking {
	s := spinner.New()
	s.Spinner = spinner.Spinner{
		Frames: []string{"( )", "(o)", "(O)", "(o)"},
		FPS:    time.Second / 8,
	}
	return Thinking{theme: theme, spinner: s}
}

// Start activates the indicator with a phrase. It returns the first tick
// only when it was not already running.
func (t *Thinking) Start(phrase string) tea.Cmd {
	t.phrase = phrase
	if t.isActive {
		return nil
	}
	t.isActive = true
	t.startTime = time.Now()
	return t.spinner.Tick
}

// Stop deactivates the indicator.
func (t *Thinking) Stop() {
	t.isActive = false
}

// IsActive returns whether the indicator is running.
func (t Thinking) IsActive() bool {
	return t.isActive
}

// Update advances the spinner while active.
func (t Thinking) Update(msg tea.Msg) (Thinking, tea.Cmd) {
	if !t.isActive {
		return t, nil
	}
	var cmd tea.Cmd
	t.spinner, cmd = t.spinner.Update(msg)
	return t, cmd
}

// View renders the spinner, the phrase and the elapsed seconds.
func (t Thinking) View() string {
	if !t.isActive {
		return ""
	}
	elapsed := time.Since(t.startTime).Truncate(time.Second)
	return t.theme.Thinking.Render(fmt.Sprintf("%s %s", t.spinner.View(), t.phrase)) +
		" " + t.theme.Timestamp.Render(fmt.Sprintf("%ds", int(elapsed.Seconds())))
}
