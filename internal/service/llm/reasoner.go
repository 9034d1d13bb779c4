// Package llm defines the reasoning port used by the turn pipeline.
package llm

import (
	"context"
	"errors"

	"ai-voice-agent-service/internal/service/memory"
)

// ErrReasoning wraps upstream reasoning failures.
var ErrReasoning = errors.New("reasoning failed")

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

// Reply is one reasoning response. Text may be empty when only tool calls
// are returned.
type Reply struct {
	Text      string     `json:"text"`
	ToolCalls []ToolCall `json:"toolCalls,omitempty"`
}

// Reasoner produces the agent's next reply.
//
// history is the ordered conversation so far and may end with message itself
// as a user entry. When isToolResult is set, message is a synthetic tool
// result rather than caller speech.
type Reasoner interface {
	Reason(ctx context.Context, message string, history []memory.Turn, isToolResult bool) (*Reply, error)
}
