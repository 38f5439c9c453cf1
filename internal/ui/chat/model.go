// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/arbiter/internal/persona"
	"github.com/jeranaias/arbiter/internal/session"
	"github.com/jeranaias/arbiter/internal/ui/components"
	"github.com/jeranaias/arbiter/internal/ui/styles"
)

// Session is the part of a session manager the screen drives.
type Session interface {
	Send(text string) bool
	Stop() bool
	Regenerate(turnID string) bool
	Clear()
	SetInput(text string)
	Snapshot() session.Snapshot
}

// Options configures the screen.
type Options struct {
	// Persona supplies the brand strings. Nil uses the embedded default.
	Persona *persona.Persona

	// Bridge delivers snapshots. Without one the model only sees the
	// SnapshotMsg values sent to it directly.
	Bridge *Bridge

	// Copy writes to the clipboard. Nil uses the system clipboard.
	Copy func(string) error
}

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat screen.
type Model struct {
	theme   *styles.Theme
	session Session
	persona *persona.Persona
	bridge  *Bridge
	copy    func(string) error
	keys    KeyMap

	// Newest snapshot applied
	snap     session.Snapshot
	inputRev uint64

	// UI Components
	header      components.Header
	thinking    components.Thinking
	suggestions components.Suggestions
	markdown    *components.Markdown
	viewport    viewport.Model
	input       textarea.Model

	// Dimensions
	width  int
	height int

	title         string
	showReasoning bool
	status        string
	statusErr     bool
}

// New creates the chat screen for s.
func New(theme *styles.Theme, s Session, opts Options) Model {
	p := opts.Persona
	if p == nil {
		p = persona.Default()
	}
	copyFn := opts.Copy
	if copyFn == nil {
		copyFn = clipboard.WriteAll
	}
	keys := DefaultKeyMap()

	ta := textarea.New()
	ta.Placeholder = p.Placeholder
	ta.Prompt = "› "
	ta.ShowLineNumbers = false
	ta.CharLimit = 4000
	ta.SetHeight(inputHeight)
	ta.KeyMap.InsertNewline = keys.Newline
	ta.Focus()

	m := Model{
		theme:       theme,
		session:     s,
		persona:     p,
		bridge:      opts.Bridge,
		copy:        copyFn,
		keys:        keys,
		header:      components.NewHeader(theme, p.Name, p.Title),
		thinking:    components.NewThinking(theme),
		suggestions: components.NewSuggestions(theme, p.Suggestions),
		markdown:    components.NewMarkdown(theme.GlamourStyle()),
		viewport:    viewport.New(80, 20),
		input:       ta,
	}
	m.applySnapshot(s.Snapshot())
	return m
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Init starts the cursor blink and the snapshot listener.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textarea.Blink, tea.SetWindowTitle(m.windowTitle())}
	if m.bridge != nil {
		cmds = append(cmds, m.bridge.Wait())
	}
	return tea.Batch(cmds...)
}

// Update handles Bubble Tea messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case SnapshotMsg:
		cmd := m.applySnapshot(msg.Snapshot)
		if m.bridge != nil {
			cmd = tea.Batch(cmd, m.bridge.Wait())
		}
		return m, cmd

	case copiedMsg:
		if msg.err != nil {
			m.setStatus("Không thể sao chép: "+msg.err.Error(), true)
		} else {
			m.setStatus("Đã chép phán quyết.", false)
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.thinking, cmd = m.thinking.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// =============================================================================
// MESSAGE HANDLERS
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	empty := len(m.snap.Turns) == 0
	busy := m.snap.Phase.Busy()

	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.bridge != nil {
			m.bridge.Close()
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Stop):
		if !m.session.Stop() && busy {
			m.setStatus("Chờ lời phán đầu tiên rồi hãy ngắt.", false)
		}
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		return m.submit(m.input.Value())

	case key.Matches(msg, m.keys.Regenerate):
		if last := m.snap.LastAssistant(); last != nil && m.snap.CanRegenerate() {
			m.session.Regenerate(last.ID)
		}
		return m, nil

	case key.Matches(msg, m.keys.Clear):
		m.session.Clear()
		m.suggestions.Reset()
		m.clearStatus()
		return m, nil

	case key.Matches(msg, m.keys.ToggleReasoning):
		m.showReasoning = !m.showReasoning
		m.refresh()
		return m, nil

	case key.Matches(msg, m.keys.Copy):
		return m, m.copyLast()

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.ViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.ViewDown()
		return m, nil

	case empty && key.Matches(msg, m.keys.NextSuggestion):
		m.suggestions.Next()
		if text, ok := m.suggestions.Selected(); ok {
			m.input.SetValue(text)
			m.session.SetInput(text)
		}
		m.refresh()
		return m, nil

	case empty && m.input.Value() == "" && key.Matches(msg, m.keys.PickSuggestion):
		if text, ok := m.suggestions.At(int(msg.String()[0] - '0')); ok {
			return m.submit(text)
		}
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if after := m.input.Value(); after != before {
		m.session.SetInput(after)
	}
	return m, cmd
}

// submit sends text. The textarea is only cleared when the session took it.
func (m Model) submit(text string) (tea.Model, tea.Cmd) {
	if m.snap.Phase.Busy() {
		m.setStatus("Kẻ Phán Quyết đang nói. Esc để ngắt.", false)
		return m, nil
	}
	if !m.session.Send(text) {
		return m, nil
	}
	m.input.Reset()
	m.suggestions.Reset()
	m.clearStatus()
	return m, nil
}

// applySnapshot replaces the rendered state. Older versions are dropped.
func (m *Model) applySnapshot(s session.Snapshot) tea.Cmd {
	if s.Version < m.snap.Version {
		return nil
	}
	m.snap = s

	if s.InputRev != m.inputRev {
		m.inputRev = s.InputRev
		m.input.SetValue(s.Input)
	}

	var cmds []tea.Cmd
	if s.Phase == session.PhaseAwaitingFirstToken {
		cmds = append(cmds, m.thinking.Start(s.ThinkingPhrase))
	} else {
		m.thinking.Stop()
	}
	if s.Title != m.title {
		m.title = s.Title
		cmds = append(cmds, tea.SetWindowTitle(m.windowTitle()))
	}

	m.header.Turns = len(s.Turns)
	m.refresh()
	return tea.Batch(cmds...)
}

// windowTitle names the terminal after the persona and the conversation.
func (m Model) windowTitle() string {
	if m.title == "" {
		return m.persona.Name
	}
	return m.persona.Name + " · " + m.title
}

func (m Model) copyLast() tea.Cmd {
	last := m.snap.LastAssistant()
	if last == nil || last.Content == "" || last.Failed {
		return nil
	}
	if active := m.snap.Active(); active != nil && active.ID == last.ID {
		return nil
	}
	text, copyFn := last.Content, m.copy
	return func() tea.Msg {
		return copiedMsg{err: copyFn(text)}
	}
}

func (m *Model) setStatus(text string, isErr bool) {
	m.status, m.statusErr = text, isErr
}

func (m *Model) clearStatus() {
	m.setStatus("", false)
}

// =============================================================================
// LAYOUT
// =============================================================================

const (
	headerHeight = 1
	inputHeight  = 3
	inputChrome  = 2 // border
	footerHeight = 2 // status + help
)

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.theme.SetSize(width, height)

	m.header.Width = width
	m.viewport.Width = max(width, 1)
	m.viewport.Height = max(height-headerHeight-inputHeight-inputChrome-footerHeight, 1)
	m.input.SetWidth(max(width-inputChrome, 10))
	m.refresh()
}

// refresh re-renders the transcript and follows the bottom while the
// reader has not scrolled away.
func (m *Model) refresh() {
	follow := m.viewport.AtBottom() || m.snap.Phase.Busy()
	m.viewport.SetContent(m.renderTranscript())
	if follow {
		m.viewport.GotoBottom()
	}
}
