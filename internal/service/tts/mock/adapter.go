// Package mock provides a mock synthesizer for running without cloud credentials.
package mock

import (
	"context"
	"hash/fnv"
	"sync"
)

// bytesPerRune approximates 8 kHz speech at roughly 15 characters per second.
const bytesPerRune = 530

// Adapter implements tts.Synthesizer. The same text always yields the same
// audio bytes.
type Adapter struct {
	mu    sync.Mutex
	calls map[string]int
}

func New() *Adapter {
	return &Adapter{calls: make(map[string]int)}
}

// Synthesize returns deterministic mu-law bytes sized to the text.
func (a *Adapter) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.calls[text]++
	a.mu.Unlock()

	h := fnv.New32a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum32()

	out := make([]byte, len([]rune(text))*bytesPerRune)
	for i := range out {
		seed = seed*1664525 + 1013904223
		out[i] = byte(seed >> 24)
	}
	return out, nil
}

// Calls returns how often text was synthesized.
func (a *Adapter) Calls(text string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls[text]
}
