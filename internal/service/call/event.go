// Package call runs the per-connection state machine: it creates the call
// session on start, feeds media into its accumulator, dispatches ready windows
// to the turn pipeline one at a time and tears everything down on stop.
package call

// EventKind is the type of an inbound stream event.
type EventKind string

const (
	EventConnected EventKind = "connected"
	EventStart     EventKind = "start"
	EventMedia     EventKind = "media"
	EventStop      EventKind = "stop"
	EventMark      EventKind = "mark"
	EventDTMF      EventKind = "dtmf"
)

// Event is one decoded inbound stream event. Only the fields relevant to
// Kind are set.
type Event struct {
	Kind     EventKind
	StreamID string
	Sequence string

	// start
	CallID     string
	Parameters map[string]string

	// media: base64 encoded audio frame
	Payload string

	// mark
	Mark string

	// dtmf
	Digit string
}

// State is the connection state.
type State int

const (
	StateAwaitingStart State = iota
	StateActive
	StateTransferring
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateAwaitingStart:
		return "AWAITING_START"
	case StateActive:
		return "ACTIVE"
	case StateTransferring:
		return "TRANSFERRING"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Protocol anomaly reasons, used as metric labels.
const (
	AnomalyMediaBeforeStart = "media_before_start"
	AnomalyDuplicateStart   = "duplicate_start"
	AnomalyAfterClose       = "event_after_close"
	AnomalyBadPayload       = "bad_payload"
	AnomalyUnknownEvent     = "unknown_event"
	AnomalyMalformed        = "malformed"
)
