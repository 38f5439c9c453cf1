// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/arbiter/internal/logging"
	"github.com/jeranaias/arbiter/internal/model"
	"github.com/jeranaias/arbiter/internal/persona"
	"github.com/jeranaias/arbiter/internal/replay"
)

// =============================================================================
// OPTIONS
// =============================================================================

// Options configures a Manager.
type Options struct {
	// Persona supplies the thinking phrases and the failure message.
	// Nil uses the embedded default.
	Persona *persona.Persona

	// Replay requests whole replies and reveals them word by word. It only
	// takes effect when the transport implements Completer.
	Replay bool

	// Reveal paces the replay. Zero uses the replay defaults.
	Reveal replay.Options

	// Timeout bounds each request. Zero means no bound.
	Timeout time.Duration

	// Seed makes thinking phrase selection deterministic when non-zero.
	Seed int64

	Logger *log.Logger
}

// TitleWidth bounds Snapshot.Title in terminal cells.
const TitleWidth = 48

// =============================================================================
// MANAGER
// =============================================================================

type observer struct {
	id uint64
	fn func(Snapshot)
}

// Manager owns one conversation. All methods are safe for concurrent use.
type Manager struct {
	transport Transport
	persona   *persona.Persona
	opts      Options
	log       *log.Logger

	mu       sync.Mutex
	conv     *model.Conversation
	input    string
	inputRev uint64
	phase    Phase
	activeID string
	thinking string
	version  uint64
	disposed bool
	rnd      *rand.Rand

	// gen identifies the current request. Stop, Clear, Regenerate and
	// Dispose bump it so a stale stream cannot touch state.
	gen    uint64
	cancel context.CancelFunc

	observers []observer
	nextObs   uint64
	queue     []Snapshot
	draining  bool

	wg sync.WaitGroup
}

// New creates a Manager over t.
func New(t Transport, opts Options) *Manager {
	p := opts.Persona
	if p == nil {
		p = persona.Default()
	}
	if opts.Reveal.Interval == 0 && opts.Reveal.Jitter == 0 {
		opts.Reveal = replay.DefaultOptions()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.For("session")
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Manager{
		transport: t,
		persona:   p,
		opts:      opts,
		log:       logger,
		conv:      model.NewConversation(),
		rnd:       rand.New(rand.NewSource(seed)),
	}
}

// Persona returns the persona the Manager was created with.
func (m *Manager) Persona() *persona.Persona {
	return m.persona
}

// =============================================================================
// OBSERVERS
// =============================================================================

// Subscribe registers fn for every later state change and returns a func
// that removes it.
func (m *Manager) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.disposed || fn == nil {
		return func() {}
	}
	m.nextObs++
	id := m.nextObs
	m.observers = append(m.observers, observer{id: id, fn: fn})

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, o := range m.observers {
			if o.id == id {
				m.observers = append(m.observers[:i:i], m.observers[i+1:]...)
				return
			}
		}
	}
}

// Snapshot returns a copy of the current state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() Snapshot {
	return Snapshot{
		Turns:          m.conv.Turns(),
		Input:          m.input,
		InputRev:       m.inputRev,
		Phase:          m.phase,
		ActiveStreamID: m.activeID,
		ThinkingPhrase: m.thinking,
		Title:          m.conv.Title(TitleWidth),
		Version:        m.version,
	}
}

// commitLocked records one state change and queues its notification.
func (m *Manager) commitLocked() {
	m.version++
	if len(m.observers) > 0 {
		m.queue = append(m.queue, m.snapshotLocked())
	}
}

// flush delivers queued snapshots in order. Only one goroutine drains at a
// time; a reentrant or concurrent caller leaves its snapshots to it.
func (m *Manager) flush() {
	m.mu.Lock()
	if m.draining {
		m.mu.Unlock()
		return
	}
	m.draining = true
	for len(m.queue) > 0 {
		snap := m.queue[0]
		m.queue = m.queue[1:]
		observers := append([]observer(nil), m.observers...)
		m.mu.Unlock()

		for _, o := range observers {
			o.fn(snap)
		}

		m.mu.Lock()
	}
	m.draining = false
	m.mu.Unlock()
}

// =============================================================================
// INPUT
// =============================================================================

// SetInput replaces the pending input.
func (m *Manager) SetInput(text string) {
	m.mu.Lock()
	if m.disposed || text == m.input {
		m.mu.Unlock()
		return
	}
	m.input = text
	m.commitLocked()
	m.mu.Unlock()
	m.flush()
}

// Input returns the pending input.
func (m *Manager) Input() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.input
}

// =============================================================================
// INTENTS
// =============================================================================

// Send appends a user turn and starts a request. An empty text sends the
// pending input. It reports false, changing nothing, when the text is blank,
// a request is outstanding, or the Manager is disposed.
func (m *Manager) Send(text string) bool {
	m.mu.Lock()
	ok := m.sendLocked(text)
	m.mu.Unlock()
	m.flush()
	return ok
}

func (m *Manager) sendLocked(text string) bool {
	if m.disposed || m.phase.Busy() {
		return false
	}
	if text == "" {
		text = m.input
	}
	text = normalize(text)
	if text == "" {
		return false
	}

	m.conv.Append(model.NewUserTurn(text))
	if m.input != "" {
		m.input = ""
		m.inputRev++
	}
	m.startLocked(text)
	return true
}

// Stop cancels the stream and keeps the partial reply. It only acts while
// streaming.
func (m *Manager) Stop() bool {
	m.mu.Lock()
	if m.disposed || m.phase != PhaseStreaming {
		m.mu.Unlock()
		return false
	}
	m.abortLocked()
	m.commitLocked()
	m.mu.Unlock()
	m.flush()
	return true
}

// Regenerate discards an assistant turn and everything after it, then asks
// again with the user turn that preceded it. An empty id means the last
// assistant turn. It is a silent no-op unless the Manager is idle and such
// a pair exists.
func (m *Manager) Regenerate(turnID string) bool {
	m.mu.Lock()
	ok := m.regenerateLocked(turnID)
	m.mu.Unlock()
	m.flush()
	return ok
}

func (m *Manager) regenerateLocked(turnID string) bool {
	if m.disposed || m.phase.Busy() {
		return false
	}

	idx := m.conv.LastIndex(model.RoleAssistant)
	if turnID != "" {
		idx = m.conv.IndexOf(turnID)
		if t := m.conv.At(idx); t == nil || t.Role != model.RoleAssistant {
			return false
		}
	}
	if idx < 0 {
		return false
	}
	u := m.conv.LastIndexBefore(model.RoleUser, idx)
	if u < 0 {
		return false
	}

	text := m.conv.At(u).Content
	m.conv.Truncate(u + 1)
	// A failed send left its text in the input; it is being resent now.
	if m.input == text {
		m.input = ""
		m.inputRev++
	}
	m.startLocked(text)
	return true
}

// Clear cancels any request and empties the conversation.
func (m *Manager) Clear() {
	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return
	}
	m.abortLocked()
	m.conv.Clear()
	m.commitLocked()
	m.mu.Unlock()
	m.flush()
}

// Dispose cancels any request and releases observers. Every later call is a
// no-op.
func (m *Manager) Dispose() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.disposed {
		return
	}
	m.abortLocked()
	m.disposed = true
	m.observers = nil
	m.queue = nil
}

// Wait blocks until every started request goroutine has returned.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// =============================================================================
// REQUEST LIFECYCLE
// =============================================================================

// startLocked enters awaitingFirstToken and launches the request. The
// conversation must already end with the user turn being answered.
func (m *Manager) startLocked(userText string) {
	m.gen++
	gen := m.gen

	var ctx context.Context
	if m.opts.Timeout > 0 {
		ctx, m.cancel = context.WithTimeout(context.Background(), m.opts.Timeout)
	} else {
		ctx, m.cancel = context.WithCancel(context.Background())
	}

	m.phase = PhaseAwaitingFirstToken
	m.activeID = ""
	m.thinking = m.persona.RandomThinkingPhrase(m.rnd)
	turns := m.conv.Wire()
	m.commitLocked()

	m.wg.Add(1)
	go m.run(ctx, gen, turns, userText)
}

// abortLocked invalidates the current request and finalizes its partial
// turn.
func (m *Manager) abortLocked() {
	m.gen++
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	if t := m.conv.ByID(m.activeID); t != nil {
		t.Finalize()
	}
	m.phase = PhaseIdle
	m.activeID = ""
	m.thinking = ""
}

func (m *Manager) run(ctx context.Context, gen uint64, turns []model.WireTurn, userText string) {
	defer m.wg.Done()

	onFragment := func(f model.Fragment) { m.apply(gen, f) }

	var err error
	if c, ok := m.transport.(Completer); ok && m.opts.Replay {
		err = m.replayWhole(ctx, c, turns, onFragment)
	} else {
		err = m.transport.Stream(ctx, turns, onFragment)
	}
	m.finish(gen, userText, err)
}

// replayWhole fetches the whole reply and reveals it on the reveal cadence.
func (m *Manager) replayWhole(ctx context.Context, c Completer, turns []model.WireTurn, onFragment func(model.Fragment)) error {
	text, err := c.Complete(ctx, turns)
	if err != nil {
		return err
	}
	buf := replay.New(m.opts.Reveal)
	return buf.Play(ctx, text, func(f replay.Frame) {
		if f.Delta != "" {
			onFragment(model.TextFragment(f.Delta))
		}
	})
}

// apply adds one fragment to the active turn, creating the assistant
// placeholder on the first one.
func (m *Manager) apply(gen uint64, f model.Fragment) {
	m.mu.Lock()
	if m.disposed || gen != m.gen || !m.phase.Busy() {
		m.mu.Unlock()
		return
	}
	if m.phase == PhaseAwaitingFirstToken {
		t := m.conv.Append(model.NewAssistantTurn())
		m.activeID = t.ID
		m.phase = PhaseStreaming
		m.thinking = ""
	}
	if t := m.conv.ByID(m.activeID); t != nil {
		t.Apply(f)
	}
	m.commitLocked()
	m.mu.Unlock()
	m.flush()
}

// finish settles a request that ended on its own.
func (m *Manager) finish(gen uint64, userText string, err error) {
	m.mu.Lock()
	if m.disposed || gen != m.gen {
		m.mu.Unlock()
		return
	}

	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	active := m.conv.ByID(m.activeID)
	if active != nil {
		active.Finalize()
	}

	switch {
	case err == nil:
		if active == nil {
			empty := model.NewAssistantTurn()
			empty.Finalize()
			m.conv.Append(empty)
		}
	case errors.Is(err, context.Canceled):
		m.log.Debug("request cancelled")
	default:
		m.log.Warn("request failed", "err", err)
		m.conv.Append(model.NewErrorTurn(m.persona.ErrorMessage))
		if m.input == "" {
			m.input = userText
			m.inputRev++
		}
	}

	m.phase = PhaseIdle
	m.activeID = ""
	m.thinking = ""
	m.commitLocked()
	m.mu.Unlock()
	m.flush()
}

// normalize trims the text and composes it to NFC.
func normalize(text string) string {
	return norm.NFC.String(strings.TrimSpace(text))
}
