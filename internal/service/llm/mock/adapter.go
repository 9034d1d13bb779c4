// Package mock provides a rule-based reasoner for running without an API key.
package mock

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"ai-voice-agent-service/internal/service/llm"
	"ai-voice-agent-service/internal/service/memory"
)

var orderNumber = regexp.MustCompile(`\b(\d{4,})\b`)

// Adapter implements llm.Reasoner. It asks for an order lookup when the caller
// mentions an order number and otherwise answers with canned phrases.
type Adapter struct {
	mu    sync.Mutex
	calls int
}

func New() *Adapter {
	return &Adapter{}
}

// Reason implements llm.Reasoner.
func (a *Adapter) Reason(ctx context.Context, message string, history []memory.Turn, isToolResult bool) (*llm.Reply, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", llm.ErrReasoning, err)
	}

	a.mu.Lock()
	a.calls++
	a.mu.Unlock()

	if isToolResult {
		if strings.Contains(message, `"success":true`) {
			return &llm.Reply{Text: "I found it. Your order has shipped and should arrive soon."}, nil
		}
		return &llm.Reply{Text: "I couldn't look that up right now. Is there anything else I can help with?"}, nil
	}

	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "order") && orderNumber.MatchString(message):
		id := orderNumber.FindStringSubmatch(message)[1]
		return &llm.Reply{
			Text:      "Let me check that for you.",
			ToolCalls: []llm.ToolCall{{Name: "checkOrderStatus", Args: map[string]any{"orderId": id}}},
		}, nil
	case strings.Contains(lower, "order"):
		return &llm.Reply{Text: "Sure, what's your order number?"}, nil
	case strings.Contains(lower, "thank"):
		return &llm.Reply{Text: "You're welcome! Anything else?"}, nil
	case len(history) <= 1:
		return &llm.Reply{Text: "Hi! How can I help you today?"}, nil
	default:
		return &llm.Reply{Text: "Got it. Could you tell me a bit more?"}, nil
	}
}

// Calls returns how many times Reason was invoked.
func (a *Adapter) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}
