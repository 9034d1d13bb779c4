// Package session defines the per-call aggregate: identifiers, conversation
// memory, audio accumulator and lifecycle.
package session

import (
	"maps"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"ai-voice-agent-service/internal/service/audio"
	"ai-voice-agent-service/internal/service/memory"
)

// Options tune a new session.
type Options struct {
	MaxTurns     int
	WindowFrames int
	// Parameters are the custom parameters passed by the telephony layer on start.
	Parameters map[string]string
}

// Session is the live state of one call. It is owned by the connection that
// created it; the registry only indexes it.
type Session struct {
	id         string
	callId     string
	streamId   string
	startedAt  time.Time
	parameters map[string]string

	memory    *memory.Memory
	audio     *audio.Accumulator
	lifecycle *Lifecycle
	turns     *TurnGenerator

	processing atomic.Bool
}

// Summary is a read-only snapshot for monitoring.
type Summary struct {
	SessionID      string    `json:"sessionId"`
	CallID         string    `json:"callId"`
	StreamID       string    `json:"streamId"`
	State          string    `json:"state"`
	StartedAt      time.Time `json:"startedAt"`
	DurationMs     int64     `json:"durationMs"`
	Turns          int       `json:"turns"`
	Windows        uint64    `json:"windows"`
	Processing     bool      `json:"processing"`
	BufferedFrames int       `json:"bufferedFrames"`
}

// New creates an ACTIVE session with a fresh random id.
func New(callId, streamId string, opts Options) *Session {
	id := uuid.NewString()
	return &Session{
		id:         id,
		callId:     callId,
		streamId:   streamId,
		startedAt:  time.Now(),
		parameters: maps.Clone(opts.Parameters),
		memory:     memory.New(id, opts.MaxTurns),
		audio:      audio.NewAccumulator(opts.WindowFrames),
		lifecycle:  NewLifecycle(),
		turns:      NewTurnGenerator(),
	}
}

func (s *Session) ID() string                { return s.id }
func (s *Session) CallID() string            { return s.callId }
func (s *Session) StreamID() string          { return s.streamId }
func (s *Session) StartedAt() time.Time      { return s.startedAt }
func (s *Session) Memory() *memory.Memory    { return s.memory }
func (s *Session) Audio() *audio.Accumulator { return s.audio }
func (s *Session) State() State              { return s.lifecycle.State() }

// Parameter returns a custom start parameter.
func (s *Session) Parameter(key string) string {
	return s.parameters[key]
}

// Duration returns the time since the session started.
func (s *Session) Duration() time.Duration {
	return time.Since(s.startedAt)
}

// Transfer moves the session to TRANSFERRING.
func (s *Session) Transfer() error {
	return s.lifecycle.Transfer()
}

// Close moves the session to CLOSED. Returns false if it was already closed.
func (s *Session) Close() bool {
	return s.lifecycle.Close()
}

// IsActive reports whether new turns may start.
func (s *Session) IsActive() bool {
	return s.lifecycle.IsActive()
}

// TryBeginTurn atomically claims the session for one pipeline run. It returns
// false if a run is already in flight or the session is no longer active.
func (s *Session) TryBeginTurn() bool {
	if !s.lifecycle.IsActive() {
		return false
	}
	return s.processing.CompareAndSwap(false, true)
}

// EndTurn releases the claim taken by TryBeginTurn.
func (s *Session) EndTurn() {
	s.processing.Store(false)
}

// IsProcessing reports whether a pipeline run is in flight.
func (s *Session) IsProcessing() bool {
	return s.processing.Load()
}

// NextTurnID returns a new sequential turn id.
func (s *Session) NextTurnID() string {
	return s.turns.Next(s.id)
}

// Summary returns a monitoring snapshot.
func (s *Session) Summary() Summary {
	return Summary{
		SessionID:      s.id,
		CallID:         s.callId,
		StreamID:       s.streamId,
		State:          s.State().String(),
		StartedAt:      s.startedAt,
		DurationMs:     s.Duration().Milliseconds(),
		Turns:          s.memory.Stats().Turns,
		Windows:        s.turns.Count(),
		Processing:     s.IsProcessing(),
		BufferedFrames: s.audio.Len(),
	}
}
