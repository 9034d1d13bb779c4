// Package media speaks the telephony media stream protocol: JSON text frames
// over a websocket carrying base64 mu-law audio in both directions.
package media

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"ai-voice-agent-service/internal/service/call"
)

var (
	// ErrMalformed is returned for frames that are not valid protocol JSON.
	ErrMalformed = errors.New("malformed stream message")
	// ErrUnknownEvent is returned for well-formed frames with an unsupported event.
	ErrUnknownEvent = errors.New("unknown stream event")
)

// InboundMessage is a frame sent by the telephony layer.
type InboundMessage struct {
	Event          string        `json:"event"`
	SequenceNumber string        `json:"sequenceNumber,omitempty"`
	StreamSid      string        `json:"streamSid,omitempty"`
	Protocol       string        `json:"protocol,omitempty"`
	Version        string        `json:"version,omitempty"`
	Start          *StartPayload `json:"start,omitempty"`
	Media          *MediaPayload `json:"media,omitempty"`
	Stop           *StopPayload  `json:"stop,omitempty"`
	Mark           *MarkPayload  `json:"mark,omitempty"`
	DTMF           *DTMFPayload  `json:"dtmf,omitempty"`
}

type StartPayload struct {
	AccountSid       string            `json:"accountSid,omitempty"`
	StreamSid        string            `json:"streamSid"`
	CallSid          string            `json:"callSid"`
	Tracks           []string          `json:"tracks,omitempty"`
	CustomParameters map[string]string `json:"customParameters,omitempty"`
	MediaFormat      *MediaFormat      `json:"mediaFormat,omitempty"`
}

type MediaFormat struct {
	Encoding   string `json:"encoding"`
	SampleRate int    `json:"sampleRate"`
	Channels   int    `json:"channels"`
}

type MediaPayload struct {
	Track     string `json:"track,omitempty"`
	Chunk     string `json:"chunk,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   string `json:"payload"`
}

type StopPayload struct {
	AccountSid string `json:"accountSid,omitempty"`
	CallSid    string `json:"callSid,omitempty"`
}

type MarkPayload struct {
	Name string `json:"name"`
}

type DTMFPayload struct {
	Track string `json:"track,omitempty"`
	Digit string `json:"digit"`
}

// OutboundMessage is a frame sent back to the telephony layer.
type OutboundMessage struct {
	Event     string                `json:"event"`
	StreamSid string                `json:"streamSid"`
	Media     *OutboundMediaPayload `json:"media,omitempty"`
	Mark      *MarkPayload          `json:"mark,omitempty"`
}

type OutboundMediaPayload struct {
	Payload string `json:"payload"`
}

// Decode parses one inbound frame into a call event.
func Decode(data []byte) (call.Event, error) {
	var msg InboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return call.Event{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	ev := call.Event{
		Kind:     call.EventKind(msg.Event),
		StreamID: msg.StreamSid,
		Sequence: msg.SequenceNumber,
	}

	switch ev.Kind {
	case call.EventConnected, call.EventStop:
	case call.EventStart:
		if msg.Start == nil {
			return call.Event{}, fmt.Errorf("%w: start without start payload", ErrMalformed)
		}
		ev.CallID = msg.Start.CallSid
		ev.Parameters = msg.Start.CustomParameters
		if ev.StreamID == "" {
			ev.StreamID = msg.Start.StreamSid
		}
	case call.EventMedia:
		if msg.Media == nil {
			return call.Event{}, fmt.Errorf("%w: media without media payload", ErrMalformed)
		}
		ev.Payload = msg.Media.Payload
	case call.EventMark:
		if msg.Mark != nil {
			ev.Mark = msg.Mark.Name
		}
	case call.EventDTMF:
		if msg.DTMF != nil {
			ev.Digit = msg.DTMF.Digit
		}
	case "":
		return call.Event{}, fmt.Errorf("%w: missing event", ErrMalformed)
	default:
		return call.Event{}, fmt.Errorf("%w: %q", ErrUnknownEvent, msg.Event)
	}
	return ev, nil
}

// EncodeMedia builds an outbound media frame carrying audio as one payload.
func EncodeMedia(streamSid string, audio []byte) ([]byte, error) {
	return json.Marshal(OutboundMessage{
		Event:     "media",
		StreamSid: streamSid,
		Media:     &OutboundMediaPayload{Payload: base64.StdEncoding.EncodeToString(audio)},
	})
}

// EncodeMark builds an outbound mark frame.
func EncodeMark(streamSid, name string) ([]byte, error) {
	return json.Marshal(OutboundMessage{
		Event:     "mark",
		StreamSid: streamSid,
		Mark:      &MarkPayload{Name: name},
	})
}
