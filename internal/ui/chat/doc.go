// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the Bubble Tea chat screen.
//
// The screen owns no conversation state. It renders the newest session
// Snapshot and turns key presses into session intents: Send, Stop,
// Regenerate and Clear. Snapshots arrive through a Bridge.
//
//	mgr := session.New(transport, session.Options{})
//	bridge := chat.NewBridge(mgr)
//	m := chat.New(styles.NewTheme(), mgr, chat.Options{Bridge: bridge})
//	tea.NewProgram(m, tea.WithAltScreen()).Run()
package chat
