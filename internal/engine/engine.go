package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/ovenlight/pizzeria-bot/internal/event"
	"github.com/ovenlight/pizzeria-bot/internal/session"
)

// ResetCommand unconditionally returns a session to the entry state.
const ResetCommand = "/start"

var (
	// ErrSessionNotFound indicates an event arrived for a session with no
	// in-memory state and no persisted snapshot. The engine cannot dispatch
	// without a current state.
	ErrSessionNotFound = errors.New("no state for session and no persisted snapshot")
	// ErrSnapshotCorrupt indicates a persisted snapshot that cannot be
	// decoded. This is unrecoverable for the session and must not be masked
	// by a silent reset.
	ErrSnapshotCorrupt = errors.New("persisted snapshot cannot be decoded")
)

var (
	transitionRecorder   = func(from, to string) {}
	sessionGaugeRecorder = func(count int) {}
)

// RegisterTransitionRecorder allows external packages to observe state transitions.
func RegisterTransitionRecorder(recorder func(from, to string)) {
	if recorder == nil {
		transitionRecorder = func(string, string) {}
		return
	}

	transitionRecorder = recorder
}

// RegisterSessionGaugeRecorder allows external packages to observe the in-memory session count.
func RegisterSessionGaugeRecorder(recorder func(count int)) {
	if recorder == nil {
		sessionGaugeRecorder = func(int) {}
		return
	}

	sessionGaugeRecorder = recorder
}

// Engine stores, dispatches, transitions and durably snapshots per-user
// conversational state. Sessions are cached in memory on demand and never
// proactively evicted; eviction, if any, is a deployment concern.
type Engine struct {
	store   session.Store
	codec   Codec
	initial func() State
	log     *slog.Logger

	mu       sync.RWMutex
	sessions map[int64]*Session
}

// New builds an Engine. initial constructs the workflow's entry state.
func New(store session.Store, codec Codec, initial func() State, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}

	return &Engine{
		store:    store,
		codec:    codec,
		initial:  initial,
		log:      log,
		sessions: make(map[int64]*Session),
	}
}

// HandleEvent processes one inbound event to completion. Events for the same
// session are serialized; unrelated sessions proceed in parallel.
func (e *Engine) HandleEvent(ctx context.Context, ev event.Event) error {
	chatID, err := ev.SessionID()
	if err != nil {
		return err
	}

	sess := e.session(chatID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if ev.Kind == event.KindCommand && isResetCommand(ev.Command) {
		return e.reset(ctx, sess)
	}

	if sess.state == nil {
		if err := e.rehydrate(ctx, sess); err != nil {
			return err
		}
	}

	transition, err := sess.state.HandleInput(ctx, sess, ev)
	if err != nil {
		return fmt.Errorf("%s: handle input: %w", sess.state.Name(), err)
	}

	if transition.stay() {
		return nil
	}

	next := transition.next
	if transition.reset {
		next = e.initial()
	}

	return e.install(ctx, sess, next)
}

// session returns the cached session for chatID, creating an empty shell on
// first sight.
func (e *Engine) session(chatID int64) *Session {
	e.mu.RLock()
	sess, ok := e.sessions[chatID]
	e.mu.RUnlock()
	if ok {
		return sess
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if sess, ok = e.sessions[chatID]; ok {
		return sess
	}

	sess = &Session{ChatID: chatID}
	e.sessions[chatID] = sess
	sessionGaugeRecorder(len(e.sessions))
	return sess
}

// reset bypasses the normal transition path entirely: no HandleInput, no
// Cleanup of whatever state the session held before.
func (e *Engine) reset(ctx context.Context, sess *Session) error {
	from := "none"
	if sess.state != nil {
		from = sess.state.Name()
	}

	sess.state = e.initial()
	if err := sess.state.Prepare(ctx, sess); err != nil {
		return fmt.Errorf("%s: prepare on reset: %w", sess.state.Name(), err)
	}

	transitionRecorder(from, sess.state.Name())
	e.log.Info("session reset to entry state", "chat_id", sess.ChatID)

	return e.persist(ctx, sess)
}

func (e *Engine) rehydrate(ctx context.Context, sess *Session) error {
	exists, err := e.store.Exists(ctx, sess.ChatID)
	if err != nil {
		return fmt.Errorf("check snapshot for session %d: %w", sess.ChatID, err)
	}
	if !exists {
		return fmt.Errorf("session %d: %w", sess.ChatID, ErrSessionNotFound)
	}

	data, err := e.store.Get(ctx, sess.ChatID)
	if err != nil {
		return fmt.Errorf("load snapshot for session %d: %w", sess.ChatID, err)
	}

	state, err := e.codec.Decode(data)
	if err != nil {
		return fmt.Errorf("session %d: %w: %v", sess.ChatID, ErrSnapshotCorrupt, err)
	}

	sess.state = state
	e.log.Info("session rehydrated from snapshot", "chat_id", sess.ChatID, "state", state.Name())
	return nil
}

// install runs the strict transition order: cleanup of the outgoing state,
// replacement, Prepare of the incoming state, then persistence. A Prepare
// failure leaves the snapshot untouched so the session is never persisted in
// an uninitialized UI state.
func (e *Engine) install(ctx context.Context, sess *Session, next State) error {
	outgoing := sess.state

	if err := outgoing.Cleanup(ctx, sess); err != nil {
		return fmt.Errorf("%s: cleanup: %w", outgoing.Name(), err)
	}

	sess.state = next
	if err := next.Prepare(ctx, sess); err != nil {
		return fmt.Errorf("%s: prepare: %w", next.Name(), err)
	}

	transitionRecorder(outgoing.Name(), next.Name())
	e.log.Debug("session transitioned",
		"chat_id", sess.ChatID, "from", outgoing.Name(), "to", next.Name())

	return e.persist(ctx, sess)
}

func (e *Engine) persist(ctx context.Context, sess *Session) error {
	data, err := e.codec.Encode(sess.state)
	if err != nil {
		return fmt.Errorf("%s: encode snapshot: %w", sess.state.Name(), err)
	}

	if err := e.store.Put(ctx, sess.ChatID, data); err != nil {
		return fmt.Errorf("persist snapshot for session %d: %w", sess.ChatID, err)
	}

	return nil
}

// isResetCommand matches the reset command, tolerating bot-name suffixes and
// trailing arguments ("/start@pizzeria_bot deep-link").
func isResetCommand(command string) bool {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return false
	}

	name, _, _ := strings.Cut(fields[0], "@")
	return name == ResetCommand
}
