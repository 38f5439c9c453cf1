// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/arbiter/internal/session"
)

// =============================================================================
// MESSAGES
// =============================================================================

// SnapshotMsg carries a session state change into the Bubble Tea loop.
type SnapshotMsg struct {
	Snapshot session.Snapshot
}

// copiedMsg reports the result of a clipboard write.
type copiedMsg struct {
	err error
}

// =============================================================================
// BRIDGE
// =============================================================================

// Subscriber is the observer half of a session.
type Subscriber interface {
	Subscribe(fn func(session.Snapshot)) (unsubscribe func())
}

// Bridge moves snapshots from session goroutines into the Bubble Tea loop.
//
// Snapshots queue in commit order and Wait hands them out one at a time.
// push never blocks: observers run inside session intents, which the model
// calls from Update, so a blocking hand-off would stall the loop.
type Bridge struct {
	mu     sync.Mutex
	queue  []session.Snapshot
	notify chan struct{}
	done   chan struct{}

	closeOnce   sync.Once
	unsubscribe func()
}

// NewBridge subscribes to sub.
func NewBridge(sub Subscriber) *Bridge {
	b := &Bridge{
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	b.unsubscribe = sub.Subscribe(b.push)
	return b
}

func (b *Bridge) push(s session.Snapshot) {
	b.mu.Lock()
	b.queue = append(b.queue, s)
	b.mu.Unlock()
	b.signal()
}

func (b *Bridge) signal() {
	select {
	case b.notify <- struct{}{}:
	default:
	}
}

// pop removes the oldest queued snapshot, re-arming notify while more wait.
func (b *Bridge) pop() (session.Snapshot, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.queue) == 0 {
		return session.Snapshot{}, false
	}
	s := b.queue[0]
	b.queue[0] = session.Snapshot{}
	b.queue = b.queue[1:]
	if len(b.queue) > 0 {
		b.signal()
	}
	return s, true
}

// Wait returns a command that resolves to the next SnapshotMsg, or to nil
// once the bridge is closed.
func (b *Bridge) Wait() tea.Cmd {
	return func() tea.Msg {
		for {
			select {
			case <-b.notify:
				if s, ok := b.pop(); ok {
					return SnapshotMsg{Snapshot: s}
				}
			case <-b.done:
				return nil
			}
		}
	}
}

// Close unsubscribes and releases any pending Wait.
func (b *Bridge) Close() {
	b.closeOnce.Do(func() {
		b.unsubscribe()
		close(b.done)
	})
}
