// Package mock provides canned tool results for running without backends.
package mock

import (
	"context"
	"fmt"
	"sync"

	"ai-voice-agent-service/internal/service/tools"
)

// Executor implements tools.Executor with fixed data per tool.
type Executor struct {
	mu    sync.Mutex
	calls []string
}

func New() *Executor {
	return &Executor{}
}

// Execute returns canned data for the default tools and fails for anything else.
func (e *Executor) Execute(ctx context.Context, name string, args map[string]any) tools.Result {
	e.mu.Lock()
	e.calls = append(e.calls, name)
	e.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return tools.Failure(err)
	}

	switch name {
	case "checkOrderStatus":
		return tools.Success(map[string]any{
			"orderId":           stringArg(args, "orderId", "12345"),
			"status":            "shipped",
			"trackingNumber":    "TRK789456123",
			"estimatedDelivery": "2025-11-15",
		})
	case "lookupCustomer":
		return tools.Success(map[string]any{
			"customerId":    stringArg(args, "customerId", "CUST001"),
			"name":          "John Doe",
			"accountStatus": "active",
			"recentOrders":  3,
		})
	case "createAppointment":
		return tools.Success(map[string]any{
			"appointmentId": "APT-1001",
			"date":          stringArg(args, "date", ""),
			"time":          stringArg(args, "time", ""),
			"status":        "confirmed",
		})
	case "updateAppointment":
		return tools.Success(map[string]any{
			"appointmentId": stringArg(args, "appointmentId", ""),
			"status":        stringArg(args, "status", "updated"),
		})
	case "searchDatabase":
		return tools.Success(map[string]any{
			"results": []any{},
			"count":   0,
		})
	default:
		return tools.Failure(fmt.Errorf("%w: %s", tools.ErrUnknownTool, name))
	}
}

// Calls returns the tool names executed so far, in order.
func (e *Executor) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.calls...)
}

func stringArg(args map[string]any, key, def string) string {
	if v, ok := args[key].(string); ok && v != "" {
		return v
	}
	return def
}
