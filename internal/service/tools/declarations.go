package tools

import (
	"encoding/json"
	"fmt"
	"os"
)

// Declaration describes a tool to the reasoning model. Parameters is a JSON
// schema object.
type Declaration struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// DefaultDeclarations are offered when no declarations file is configured.
var DefaultDeclarations = []Declaration{
	{
		Name:        "checkOrderStatus",
		Description: "Look up the shipping status of a customer order by order id or phone number.",
		Parameters: objectSchema(map[string]any{
			"orderId":       stringProp("The order number"),
			"customerPhone": stringProp("Phone number the order was placed with"),
		}),
	},
	{
		Name:        "lookupCustomer",
		Description: "Find a customer account by customer id, phone number or email.",
		Parameters: objectSchema(map[string]any{
			"customerId": stringProp("Customer account id"),
			"phone":      stringProp("Customer phone number"),
			"email":      stringProp("Customer email address"),
		}),
	},
	{
		Name:        "createAppointment",
		Description: "Book an appointment or callback for the caller.",
		Parameters: objectSchema(map[string]any{
			"customerName": stringProp("Name of the caller"),
			"phone":        stringProp("Callback phone number"),
			"date":         stringProp("Date in YYYY-MM-DD format"),
			"time":         stringProp("Time in HH:MM 24 hour format"),
			"duration":     map[string]any{"type": "integer", "description": "Length in minutes"},
			"purpose":      stringProp("Reason for the appointment"),
		}, "customerName", "date", "time"),
	},
	{
		Name:        "updateAppointment",
		Description: "Reschedule or cancel an existing appointment.",
		Parameters: objectSchema(map[string]any{
			"appointmentId": stringProp("Appointment confirmation number"),
			"newDate":       stringProp("New date in YYYY-MM-DD format"),
			"newTime":       stringProp("New time in HH:MM 24 hour format"),
			"status":        map[string]any{"type": "string", "enum": []any{"confirmed", "tentative", "cancelled"}},
		}, "appointmentId"),
	},
	{
		Name:        "searchDatabase",
		Description: "Search business records such as products or FAQs.",
		Parameters: objectSchema(map[string]any{
			"table": stringProp("Table to search"),
			"query": stringProp("Free text query"),
		}, "table", "query"),
	},
}

// LoadDeclarations reads a JSON array of declarations. An empty path returns
// DefaultDeclarations.
func LoadDeclarations(path string) ([]Declaration, error) {
	if path == "" {
		return DefaultDeclarations, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tool declarations: %w", err)
	}
	var decls []Declaration
	if err := json.Unmarshal(raw, &decls); err != nil {
		return nil, fmt.Errorf("parse tool declarations %s: %w", path, err)
	}
	for i, d := range decls {
		if d.Name == "" {
			return nil, fmt.Errorf("tool declaration %d has no name", i)
		}
	}
	return decls, nil
}

func objectSchema(props map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		req := make([]any, len(required))
		for i, r := range required {
			req[i] = r
		}
		schema["required"] = req
	}
	return schema
}

func stringProp(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}
