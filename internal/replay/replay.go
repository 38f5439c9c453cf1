// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package replay reveals a complete text as a sequence of growing prefixes,
// split at whitespace, on a jittered cadence. It makes a whole-text reply
// look like a live token stream.
package replay

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"
)

// =============================================================================
// BOUNDARIES
// =============================================================================

// NextBoundary returns the end of the next prefix to reveal after pos.
// The prefix ends just past the first whitespace rune following the rune at
// pos, or at len(text) when no whitespace remains. It never splits a word.
func NextBoundary(text string, pos int) int {
	if pos >= len(text) {
		return len(text)
	}
	_, size := utf8.DecodeRuneInString(text[pos:])
	start := pos + size
	if start >= len(text) {
		return len(text)
	}
	i := strings.IndexFunc(text[start:], unicode.IsSpace)
	if i < 0 {
		return len(text)
	}
	_, spaceSize := utf8.DecodeRuneInString(text[start+i:])
	return start + i + spaceSize
}

// Words splits text into the deltas between successive prefixes.
// Joining the result yields text again.
func Words(text string) []string {
	var out []string
	for pos := 0; pos < len(text); {
		end := NextBoundary(text, pos)
		out = append(out, text[pos:end])
		pos = end
	}
	return out
}

// =============================================================================
// BUFFER
// =============================================================================

// Default cadence.
const (
	DefaultInterval = 30 * time.Millisecond
	DefaultJitter   = 50 * time.Millisecond
)

// Options configures the reveal cadence.
type Options struct {
	// Interval is the minimum delay between frames.
	Interval time.Duration

	// Jitter is the upper bound of the random delay added to Interval.
	Jitter time.Duration

	// Rand returns a value in [0, 1). Defaults to math/rand.
	Rand func() float64
}

// DefaultOptions returns the default cadence.
func DefaultOptions() Options {
	return Options{Interval: DefaultInterval, Jitter: DefaultJitter}
}

// Frame is one step of the reveal.
type Frame struct {
	// Text is the revealed prefix.
	Text string

	// Delta is what this frame added to the previous one.
	Delta string

	// Complete is set on the final frame.
	Complete bool
}

// Buffer reveals a text frame by frame. A Buffer is restartable and
// cancelable, and safe for concurrent use.
type Buffer struct {
	opts Options

	mu       sync.Mutex
	source   string
	frame    string
	done     bool
	running  bool
	run      uint64
	cancelFn context.CancelFunc
}

// New creates a buffer. Zero option fields fall back to defaults.
func New(opts Options) *Buffer {
	if opts.Interval < 0 {
		opts.Interval = 0
	}
	if opts.Jitter < 0 {
		opts.Jitter = 0
	}
	if opts.Rand == nil {
		opts.Rand = rand.Float64
	}
	return &Buffer{opts: opts}
}

// Delay returns the wait before the next frame: Interval plus jitter.
func (b *Buffer) Delay() time.Duration {
	return b.opts.Interval + time.Duration(b.opts.Rand()*float64(b.opts.Jitter))
}

// Frame returns the currently revealed prefix.
func (b *Buffer) Frame() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.frame
}

// Done reports whether the whole source has been revealed.
func (b *Buffer) Done() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.done
}

// Play reveals text synchronously, calling onFrame for every frame in order.
// It returns ctx.Err() if the context ends first, leaving the last revealed
// prefix in place. Empty text completes at once with a single empty frame.
func (b *Buffer) Play(ctx context.Context, text string, onFrame func(Frame)) error {
	id := b.begin(text, nil)
	return b.play(ctx, id, text, onFrame)
}

// Start reveals text in the background. Any reveal already running is
// cancelled and the frame resets to empty before the new one begins.
func (b *Buffer) Start(text string, onFrame func(Frame)) {
	ctx, cancel := context.WithCancel(context.Background())
	id := b.begin(text, cancel)
	go func() {
		defer cancel()
		_ = b.play(ctx, id, text, onFrame)
	}()
}

// Cancel halts the current reveal and keeps the last revealed prefix.
func (b *Buffer) Cancel() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopLocked()
}

// Sync applies a change of source or phase. When streaming is false the full
// text is shown immediately. When streaming is true and the text differs from
// the current source, the reveal restarts from empty.
func (b *Buffer) Sync(text string, streaming bool, onFrame func(Frame)) {
	b.mu.Lock()
	if !streaming {
		b.stopLocked()
		b.source = text
		b.frame = text
		b.done = true
		b.mu.Unlock()
		if onFrame != nil {
			onFrame(Frame{Text: text, Complete: true})
		}
		return
	}
	unchanged := b.source == text && (b.running || b.done || b.frame != "")
	b.mu.Unlock()
	if unchanged {
		return
	}
	b.Start(text, onFrame)
}

// Reset stops any reveal and clears all state.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopLocked()
	b.source = ""
	b.frame = ""
	b.done = false
}

func (b *Buffer) begin(text string, cancel context.CancelFunc) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopLocked()
	b.run++
	b.source = text
	b.frame = ""
	b.done = false
	b.running = true
	b.cancelFn = cancel
	return b.run
}

// stopLocked must be called with mu held.
func (b *Buffer) stopLocked() {
	if b.cancelFn != nil {
		b.cancelFn()
		b.cancelFn = nil
	}
	b.running = false
	b.run++
}

func (b *Buffer) play(ctx context.Context, id uint64, text string, onFrame func(Frame)) error {
	emit := func(f Frame) bool {
		b.mu.Lock()
		if b.run != id {
			b.mu.Unlock()
			return false
		}
		b.frame = f.Text
		if f.Complete {
			b.done = true
			b.running = false
			b.cancelFn = nil
		}
		b.mu.Unlock()
		if onFrame != nil {
			onFrame(f)
		}
		return true
	}

	if text == "" {
		emit(Frame{Complete: true})
		return nil
	}

	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C

	pos := 0
	for pos < len(text) {
		if pos > 0 {
			timer.Reset(b.Delay())
			select {
			case <-ctx.Done():
				b.abandon(id)
				return ctx.Err()
			case <-timer.C:
			}
		} else if err := ctx.Err(); err != nil {
			b.abandon(id)
			return err
		}

		end := NextBoundary(text, pos)
		frame := Frame{Text: text[:end], Delta: text[pos:end], Complete: end >= len(text)}
		if !emit(frame) {
			return context.Canceled
		}
		pos = end
	}
	return nil
}

func (b *Buffer) abandon(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.run == id {
		b.running = false
		b.cancelFn = nil
	}
}
