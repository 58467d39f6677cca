// Package engine implements the persistent per-session conversation state machine.
package engine

import (
	"context"
	"sync"

	"github.com/ovenlight/pizzeria-bot/internal/event"
)

// State is one step of the ordering workflow. A state owns the data needed to
// resume that step plus the handle of the UI artifact it sent.
type State interface {
	// Name returns the stable discriminant of the state, used for snapshots
	// and metrics labels.
	Name() string
	// Prepare performs the side effects needed to present this step: queries
	// backends, renders templates, sends exactly one primary outbound UI
	// artifact and records its handle for later Cleanup. It is called exactly
	// once per transition into the state.
	Prepare(ctx context.Context, sess *Session) error
	// HandleInput decides the transition for an inbound event. Returning
	// Stay() means the event was not meaningful for this state.
	HandleInput(ctx context.Context, sess *Session, ev event.Event) (Transition, error)
	// Cleanup retires the UI artifact created in Prepare before the next
	// state's Prepare runs. It must tolerate the artifact being already gone.
	Cleanup(ctx context.Context, sess *Session) error
}

// Transition is the outcome of HandleInput: keep the current state, move to a
// concrete next state, or re-enter the workflow's entry state.
type Transition struct {
	next  State
	reset bool
}

// Stay keeps the current state; no cleanup, prepare or persistence happens.
func Stay() Transition {
	return Transition{}
}

// To moves the session to the given state.
func To(next State) Transition {
	return Transition{next: next}
}

// ToInitial re-enters the workflow's entry state, discarding accumulated
// step-specific data.
func ToInitial() Transition {
	return Transition{reset: true}
}

func (t Transition) stay() bool {
	return t.next == nil && !t.reset
}

// Next returns the destination state of a concrete transition, or nil.
func (t Transition) Next() State { return t.next }

// IsReset reports whether the transition re-enters the entry state.
func (t Transition) IsReset() bool { return t.reset }

// IsStay reports whether the session keeps its current state.
func (t Transition) IsStay() bool { return t.stay() }

// Codec translates states to and from their persisted snapshot form. The
// encoding must capture the state discriminant plus its captured fields.
type Codec interface {
	Encode(s State) ([]byte, error)
	Decode(data []byte) (State, error)
}

// Session is one user's ongoing conversation. The current state is owned
// exclusively by the session; the per-session mutex serializes event
// processing so states never see concurrent access to their own fields.
type Session struct {
	ChatID int64

	mu    sync.Mutex
	state State
}

// State returns the session's current state. Intended for inspection; event
// processing goes through Engine.HandleEvent.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
