// Package tts defines the synthesis port used by the turn pipeline.
package tts

import (
	"context"
	"errors"
)

// ErrSynthesis wraps upstream synthesis failures.
var ErrSynthesis = errors.New("synthesis failed")

// Synthesizer converts reply text into caller-ready audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}
