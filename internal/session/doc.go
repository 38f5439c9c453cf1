// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session owns one chat conversation and its streaming lifecycle.
//
// A Manager mediates between user intents (send, stop, regenerate, clear)
// and a Transport that talks to the relay. It is the only writer of the
// conversation; presentation code reads Snapshots and issues intents.
//
// # Lifecycle
//
//	idle --Send--> awaitingFirstToken --first fragment--> streaming --done--> idle
//
// Stop is only accepted while streaming. Clear and Dispose cancel from any
// phase. A transport failure appends one synthetic assistant turn carrying
// the persona error message and returns to idle.
//
// # Observers
//
// Subscribe registers a callback that receives one Snapshot per state
// change, in commit order. Callbacks run outside the state lock and may call
// back into the Manager.
//
// # Usage
//
//	m := session.New(relay.NewClient(url, 0), session.Options{})
//	defer m.Dispose()
//	unsubscribe := m.Subscribe(func(s session.Snapshot) { render(s) })
//	defer unsubscribe()
//	m.Send("Nên học lập trình hay thiết kế?")
package session
