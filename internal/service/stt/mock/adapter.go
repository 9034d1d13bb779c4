// Package mock provides a mock transcriber for running without cloud credentials.
// It returns scripted caller utterances in order and treats windows of pure
// mu-law silence as silence.
package mock

import (
	"context"
	"sync"
	"time"
)

// DefaultUtterances are cycled through, one per non-silent window.
var DefaultUtterances = []string{
	"Hi, I'm calling about my order",
	"The order number is 12345",
	"Can you tell me when it will arrive",
	"Great, thank you",
}

// Adapter implements stt.Transcriber with scripted responses.
type Adapter struct {
	mu         sync.Mutex
	utterances []string
	next       int
	latency    time.Duration
	calls      int
}

// New creates a mock transcriber cycling through DefaultUtterances.
func New() *Adapter {
	return NewWithUtterances(DefaultUtterances, 0)
}

// NewWithUtterances creates a mock transcriber with a custom script and an
// artificial per-call latency.
func NewWithUtterances(utterances []string, latency time.Duration) *Adapter {
	return &Adapter{
		utterances: append([]string(nil), utterances...),
		latency:    latency,
	}
}

// Transcribe returns the next scripted utterance, or "" for silence.
func (a *Adapter) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if a.latency > 0 {
		select {
		case <-time.After(a.latency):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++

	if isSilence(audio) || len(a.utterances) == 0 {
		return "", nil
	}
	text := a.utterances[a.next%len(a.utterances)]
	a.next++
	return text, nil
}

// Calls returns how many windows were transcribed.
func (a *Adapter) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

// isSilence reports whether every byte is a mu-law zero sample.
func isSilence(audio []byte) bool {
	for _, b := range audio {
		if b != 0xff && b != 0x7f {
			return false
		}
	}
	return true
}
