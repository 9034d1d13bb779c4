// Package audio batches inbound telephony audio frames into processing windows.
package audio

import "sync"

// DefaultWindowFrames is the window threshold. At 20 ms per mu-law frame this
// is roughly 400 ms of caller audio.
const DefaultWindowFrames = 20

// Accumulator buffers raw audio frames for one call until a window is ready.
// Frames are never reordered or dropped; Drain hands the whole buffer over as
// one window and starts a fresh one.
type Accumulator struct {
	mu        sync.Mutex
	frames    [][]byte
	bytes     int
	threshold int
}

// NewAccumulator creates an accumulator with the given window threshold.
// A non-positive threshold falls back to DefaultWindowFrames.
func NewAccumulator(windowFrames int) *Accumulator {
	if windowFrames <= 0 {
		windowFrames = DefaultWindowFrames
	}
	return &Accumulator{
		frames:    make([][]byte, 0, windowFrames),
		threshold: windowFrames,
	}
}

// Push appends a frame. Empty frames are ignored.
func (a *Accumulator) Push(frame []byte) {
	if len(frame) == 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.frames = append(a.frames, frame)
	a.bytes += len(frame)
}

// IsWindowReady reports whether at least the threshold number of frames is buffered.
func (a *Accumulator) IsWindowReady() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.frames) >= a.threshold
}

// Drain returns all buffered frames concatenated in arrival order and clears
// the buffer. Draining an empty accumulator returns an empty window.
func (a *Accumulator) Drain() []byte {
	a.mu.Lock()
	frames, size := a.frames, a.bytes
	a.frames = make([][]byte, 0, a.threshold)
	a.bytes = 0
	a.mu.Unlock()

	window := make([]byte, 0, size)
	for _, f := range frames {
		window = append(window, f...)
	}
	return window
}

// Len returns the number of buffered frames.
func (a *Accumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.frames)
}

// Bytes returns the number of buffered audio bytes.
func (a *Accumulator) Bytes() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.bytes
}

// Threshold returns the window size in frames.
func (a *Accumulator) Threshold() int {
	return a.threshold
}
