// Package models defines the conversation events published by the service.
package models

// Event type names.
const (
	EventCallStarted      = "call.started"
	EventCallTransferring = "call.transferring"
	EventCallEnded        = "call.ended"
	EventTurnCompleted    = "call.turn.completed"
)

// CallLifecycle is published when a call session starts, is handed off to a
// human agent, or ends.
type CallLifecycle struct {
	EventType  string `json:"eventType"`
	SessionID  string `json:"sessionId"`
	CallID     string `json:"callId"`
	StreamID   string `json:"streamId"`
	Timestamp  int64  `json:"timestamp"`
	State      string `json:"state"`
	DurationMs int64  `json:"durationMs,omitempty"`
	Turns      int    `json:"turns,omitempty"`
}

// TurnCompleted is published after every pipeline run that produced a reply.
type TurnCompleted struct {
	EventType  string   `json:"eventType"`
	SessionID  string   `json:"sessionId"`
	CallID     string   `json:"callId"`
	TurnID     string   `json:"turnId"`
	Timestamp  int64    `json:"timestamp"`
	Outcome    string   `json:"outcome"`
	Transcript string   `json:"transcript"`
	Reply      string   `json:"reply"`
	Tools      []string `json:"tools,omitempty"`
	LatencyMs  int64    `json:"latencyMs"`
	CacheHit   bool     `json:"cacheHit"`
}
