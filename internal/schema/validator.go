// Package schema checks conversation events before they are published.
package schema

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"ai-voice-agent-service/internal/models"
)

// ErrMissingField is returned when a required event field is empty.
var ErrMissingField = errors.New("missing required field")

// ErrUnknownEvent is returned for event values the validator does not know.
var ErrUnknownEvent = errors.New("unknown event")

type Validator struct{}

func New() *Validator {
	return &Validator{}
}

// Validate checks required fields of a models event.
func (v *Validator) Validate(event any) error {
	switch e := event.(type) {
	case models.CallLifecycle:
		return required(map[string]string{
			"eventType": e.EventType,
			"sessionId": e.SessionID,
			"callId":    e.CallID,
			"state":     e.State,
		})
	case *models.CallLifecycle:
		return v.Validate(*e)
	case models.TurnCompleted:
		return required(map[string]string{
			"eventType": e.EventType,
			"sessionId": e.SessionID,
			"callId":    e.CallID,
			"turnId":    e.TurnID,
			"outcome":   e.Outcome,
		})
	case *models.TurnCompleted:
		return v.Validate(*e)
	default:
		return fmt.Errorf("%w: %T", ErrUnknownEvent, event)
	}
}

func required(fields map[string]string) error {
	var missing []string
	for name, value := range fields {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return fmt.Errorf("%w: %s", ErrMissingField, strings.Join(missing, ", "))
}
