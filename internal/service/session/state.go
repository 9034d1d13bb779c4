package session

import (
	"errors"
	"fmt"
	"sync"
)

// State represents the lifecycle state of a call session.
type State int

const (
	// StateActive - turns are processed normally.
	StateActive State = iota
	// StateTransferring - the caller asked for a human; no more turns run.
	StateTransferring
	// StateClosed - the stream stopped or the connection closed. Terminal.
	StateClosed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateActive:
		return "ACTIVE"
	case StateTransferring:
		return "TRANSFERRING"
	case StateClosed:
		return "CLOSED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// IsTerminal returns true if the state is CLOSED.
func (s State) IsTerminal() bool {
	return s == StateClosed
}

// Errors for invalid state transitions.
var (
	ErrSessionClosed       = errors.New("session is closed")
	ErrAlreadyTransferring = errors.New("session is already transferring")
)

// Lifecycle manages the state machine for a single call session.
// Thread-safe for concurrent access.
//
// State transitions:
//
//	ACTIVE → TRANSFERRING → CLOSED
//	  │                       ↑
//	  └───────── Close() ─────┘
//
// Rules:
//   - ACTIVE: turns may run, Transfer() moves to TRANSFERRING once
//   - TRANSFERRING: no new turns, Transfer() fails, can close
//   - CLOSED: Transfer() fails, Close() is a no-op
type Lifecycle struct {
	mu    sync.RWMutex
	state State
}

// NewLifecycle creates a lifecycle in ACTIVE state.
func NewLifecycle() *Lifecycle {
	return &Lifecycle{state: StateActive}
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// IsActive returns true if turns may still run.
func (l *Lifecycle) IsActive() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state == StateActive
}

// IsClosed returns true if the session is in its terminal state.
func (l *Lifecycle) IsClosed() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.IsTerminal()
}

// Transfer moves ACTIVE to TRANSFERRING.
func (l *Lifecycle) Transfer() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case StateActive:
		l.state = StateTransferring
		return nil
	case StateTransferring:
		return ErrAlreadyTransferring
	case StateClosed:
		return ErrSessionClosed
	default:
		return fmt.Errorf("unexpected state: %v", l.state)
	}
}

// Close transitions to CLOSED from any state.
// Returns true if this call closed the session, false if it was already closed.
func (l *Lifecycle) Close() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state.IsTerminal() {
		return false
	}
	l.state = StateClosed
	return true
}
