// Package tools defines the tool execution port and tool declarations
// offered to the reasoning model.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownTool is reported in a Result when no tool has the requested name.
var ErrUnknownTool = errors.New("unknown tool")

// Result is the outcome of one tool execution. Failures are data, not errors.
type Result struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Executor runs a named tool. It never returns an error: failures, including
// context deadline expiry, are reported in the Result.
type Executor interface {
	Execute(ctx context.Context, name string, args map[string]any) Result
}

// Success builds a successful result.
func Success(data any) Result {
	return Result{Success: true, Data: data}
}

// Failure builds a failed result from an error.
func Failure(err error) Result {
	return Result{Success: false, Error: err.Error()}
}

// Message renders a result as the synthetic message fed back to the model.
func (r Result) Message(name string) string {
	payload, err := json.Marshal(r)
	if err != nil {
		payload, _ = json.Marshal(Failure(fmt.Errorf("encode result: %w", err)))
	}
	return fmt.Sprintf("Tool %q returned: %s", name, payload)
}
