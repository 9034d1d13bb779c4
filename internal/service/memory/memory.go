// Package memory provides the bounded per-call conversation history.
package memory

import (
	"strings"
	"sync"
	"time"
)

// Role identifies the speaker of a turn entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	// RoleTool marks synthetic tool-result entries. They are only ever passed
	// to the reasoning port and never stored in a Memory.
	RoleTool Role = "tool"
)

// DefaultMaxTurns is used when a non-positive turn limit is given.
const DefaultMaxTurns = 5

// Turn is one history entry.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Stats summarizes a conversation.
type Stats struct {
	SessionID         string        `json:"sessionId"`
	TotalMessages     int           `json:"totalMessages"`
	UserMessages      int           `json:"userMessages"`
	AssistantMessages int           `json:"assistantMessages"`
	Turns             int           `json:"turns"`
	MaxTurns          int           `json:"maxTurns"`
	Duration          time.Duration `json:"duration"`
	CreatedAt         time.Time     `json:"createdAt"`
}

// Export is a full snapshot of a conversation.
type Export struct {
	SessionID string `json:"sessionId"`
	History   []Turn `json:"history"`
	Stats     Stats  `json:"stats"`
}

// Memory is a sliding window over the last maxTurns user/assistant pairs.
// Entries are kept in arrival order and the oldest entry is evicted once
// the window holds more than maxTurns*2 entries.
//
// A Memory belongs to exactly one call session. The lock only exists so the
// monitoring surface can read a consistent snapshot while a turn is running.
type Memory struct {
	mu        sync.RWMutex
	sessionID string
	maxTurns  int
	history   []Turn
	createdAt time.Time
	now       func() time.Time
}

// New creates an empty memory for a session.
func New(sessionID string, maxTurns int) *Memory {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return &Memory{
		sessionID: sessionID,
		maxTurns:  maxTurns,
		history:   make([]Turn, 0, maxTurns*2),
		createdAt: time.Now(),
		now:       time.Now,
	}
}

// MaxTurns returns the turn limit fixed at creation.
func (m *Memory) MaxTurns() int {
	return m.maxTurns
}

// Capacity returns the maximum number of stored entries.
func (m *Memory) Capacity() int {
	return m.maxTurns * 2
}

// Add appends an entry and evicts the oldest one if over capacity.
func (m *Memory) Add(role Role, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.history = append(m.history, Turn{Role: role, Content: content, Timestamp: m.now()})
	for len(m.history) > m.Capacity() {
		m.history[0] = Turn{}
		m.history = m.history[1:]
	}
}

// History returns an ordered copy of all entries.
func (m *Memory) History() []Turn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Turn, len(m.history))
	copy(out, m.history)
	return out
}

// Len returns the number of stored entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.history)
}

// Recent returns up to the last n entries.
func (m *Memory) Recent(n int) []Turn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if n <= 0 {
		return []Turn{}
	}
	if n > len(m.history) {
		n = len(m.history)
	}
	out := make([]Turn, n)
	copy(out, m.history[len(m.history)-n:])
	return out
}

// Last returns the newest entry.
func (m *Memory) Last() (Turn, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.history) == 0 {
		return Turn{}, false
	}
	return m.history[len(m.history)-1], true
}

// Search returns entries whose content contains text, ignoring case.
func (m *Memory) Search(text string) []Turn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	needle := strings.ToLower(text)
	var out []Turn
	for _, t := range m.history {
		if strings.Contains(strings.ToLower(t.Content), needle) {
			out = append(out, t)
		}
	}
	return out
}

// Clear drops all entries and returns how many were removed.
func (m *Memory) Clear() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.history)
	m.history = make([]Turn, 0, m.Capacity())
	return n
}

// Stats returns counts and the age of the conversation.
func (m *Memory) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.statsLocked()
}

func (m *Memory) statsLocked() Stats {
	var users, assistants int
	for _, t := range m.history {
		switch t.Role {
		case RoleUser:
			users++
		case RoleAssistant:
			assistants++
		}
	}
	return Stats{
		SessionID:         m.sessionID,
		TotalMessages:     len(m.history),
		UserMessages:      users,
		AssistantMessages: assistants,
		Turns:             min(users, assistants),
		MaxTurns:          m.maxTurns,
		Duration:          m.now().Sub(m.createdAt),
		CreatedAt:         m.createdAt,
	}
}

// Export returns history and stats in one consistent snapshot.
func (m *Memory) Export() Export {
	m.mu.RLock()
	defer m.mu.RUnlock()
	history := make([]Turn, len(m.history))
	copy(history, m.history)
	return Export{
		SessionID: m.sessionID,
		History:   history,
		Stats:     m.statsLocked(),
	}
}
