// Package stt defines the transcription port used by the turn pipeline.
package stt

import (
	"context"
	"errors"
)

// ErrTranscription wraps upstream transcription failures.
var ErrTranscription = errors.New("transcription failed")

// Transcriber converts one window of caller audio into text.
// An empty result means the caller was silent; it is not an error.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}
