package call

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"ai-voice-agent-service/internal/models"
	"ai-voice-agent-service/internal/service/pipeline"
	"ai-voice-agent-service/internal/service/registry"
	"ai-voice-agent-service/internal/service/session"
)

// testRunner records windows and optionally blocks until released.
type testRunner struct {
	mu        sync.Mutex
	windows   [][]byte
	active    atomic.Int32
	maxActive atomic.Int32
	started   chan struct{}
	release   chan struct{}
}

func newTestRunner(block bool) *testRunner {
	r := &testRunner{started: make(chan struct{}, 16)}
	if block {
		r.release = make(chan struct{})
	}
	return r
}

func (r *testRunner) Run(ctx context.Context, s *session.Session, window []byte, out pipeline.Sender) pipeline.Result {
	n := r.active.Add(1)
	for {
		cur := r.maxActive.Load()
		if n <= cur || r.maxActive.CompareAndSwap(cur, n) {
			break
		}
	}
	r.mu.Lock()
	r.windows = append(r.windows, window)
	r.mu.Unlock()

	r.started <- struct{}{}
	if r.release != nil {
		<-r.release
	}
	r.active.Add(-1)
	return pipeline.Result{Outcome: pipeline.OutcomeReplied}
}

func (r *testRunner) runs() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]byte(nil), r.windows...)
}

type testSender struct{}

func (testSender) SendAudio(audio []byte) error { return nil }
func (testSender) SendMark(name string) error   { return nil }

type testPublisher struct {
	mu     sync.Mutex
	events []models.CallLifecycle
}

func (p *testPublisher) PublishTurn(ctx context.Context, event models.TurnCompleted) error {
	return nil
}

func (p *testPublisher) PublishLifecycle(ctx context.Context, event models.CallLifecycle) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *testPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.EventType
	}
	return out
}

type harness struct {
	reg    *registry.Registry
	runner *testRunner
	pub    *testPublisher
	h      *Handler
}

func newHarness(block bool) *harness {
	hs := &harness{
		reg:    registry.New(),
		runner: newTestRunner(block),
		pub:    &testPublisher{},
	}
	hs.h = NewHandler(Deps{
		Registry:  hs.reg,
		Pipeline:  hs.runner,
		Publisher: hs.pub,
		Session:   session.Options{MaxTurns: 5, WindowFrames: 2},
	}, testSender{})
	return hs
}

func startEvent() Event {
	return Event{
		Kind:       EventStart,
		StreamID:   "MZ123",
		CallID:     "CA123",
		Parameters: map[string]string{"from": "+15550001111"},
	}
}

func mediaEvent(b byte) Event {
	return Event{Kind: EventMedia, StreamID: "MZ123", Payload: base64.StdEncoding.EncodeToString([]byte{b})}
}

func waitStarted(t *testing.T, r *testRunner) {
	t.Helper()
	select {
	case <-r.started:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for pipeline run")
	}
}

func waitIdle(t *testing.T, s *session.Session) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for s.IsProcessing() {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for turn to end")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestHandler_StartRegistersSession(t *testing.T) {
	hs := newHarness(false)
	ctx := context.Background()

	hs.h.HandleEvent(ctx, startEvent())

	if hs.h.State() != StateActive {
		t.Fatalf("expected ACTIVE, got %s", hs.h.State())
	}
	s := hs.h.Session()
	if s == nil {
		t.Fatal("expected session after start")
	}
	if s.CallID() != "CA123" || s.StreamID() != "MZ123" {
		t.Errorf("unexpected session ids %s/%s", s.CallID(), s.StreamID())
	}
	if s.Parameter("from") != "+15550001111" {
		t.Errorf("expected start parameters on session, got %q", s.Parameter("from"))
	}
	if _, ok := hs.reg.Get(s.ID()); !ok {
		t.Error("expected session in registry")
	}
	if got := hs.pub.types(); len(got) != 1 || got[0] != models.EventCallStarted {
		t.Errorf("expected call.started, got %v", got)
	}
}

func TestHandler_DispatchesFullWindow(t *testing.T) {
	hs := newHarness(false)
	ctx := context.Background()

	hs.h.HandleEvent(ctx, startEvent())
	hs.h.HandleEvent(ctx, mediaEvent(0x01))
	if len(hs.runner.runs()) != 0 {
		t.Fatal("expected no run before the window is full")
	}
	hs.h.HandleEvent(ctx, mediaEvent(0x02))
	waitStarted(t, hs.runner)

	runs := hs.runner.runs()
	if len(runs) != 1 || string(runs[0]) != "\x01\x02" {
		t.Errorf("expected one window with both frames in order, got %v", runs)
	}
	if hs.h.Session().Audio().Len() != 0 {
		t.Error("expected accumulator drained")
	}
}

func TestHandler_AtMostOneRunInFlight(t *testing.T) {
	hs := newHarness(true)
	ctx := context.Background()

	hs.h.HandleEvent(ctx, startEvent())
	hs.h.HandleEvent(ctx, mediaEvent(0x01))
	hs.h.HandleEvent(ctx, mediaEvent(0x02))
	waitStarted(t, hs.runner)

	// Frames arriving mid-run keep buffering.
	for b := byte(0x03); b <= 0x06; b++ {
		hs.h.HandleEvent(ctx, mediaEvent(b))
	}
	s := hs.h.Session()
	if got := len(hs.runner.runs()); got != 1 {
		t.Fatalf("expected a single run while busy, got %d", got)
	}
	if s.Audio().Len() != 4 {
		t.Errorf("expected 4 buffered frames, got %d", s.Audio().Len())
	}

	hs.runner.release <- struct{}{}
	waitIdle(t, s)

	hs.h.HandleEvent(ctx, mediaEvent(0x07))
	waitStarted(t, hs.runner)
	hs.runner.release <- struct{}{}
	waitIdle(t, s)

	runs := hs.runner.runs()
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if string(runs[1]) != "\x03\x04\x05\x06\x07" {
		t.Errorf("expected deferred frames in the next window, got %v", runs[1])
	}
	if hs.runner.maxActive.Load() != 1 {
		t.Errorf("expected at most one concurrent run, got %d", hs.runner.maxActive.Load())
	}
}

func TestHandler_ProtocolAnomaliesAreDropped(t *testing.T) {
	hs := newHarness(false)
	ctx := context.Background()

	hs.h.HandleEvent(ctx, mediaEvent(0x01))
	if hs.h.State() != StateAwaitingStart || hs.h.Session() != nil {
		t.Fatal("expected media before start to be ignored")
	}

	hs.h.HandleEvent(ctx, Event{Kind: "bogus"})
	hs.h.HandleEvent(ctx, startEvent())
	first := hs.h.Session()

	hs.h.HandleEvent(ctx, startEvent())
	if hs.h.Session() != first {
		t.Error("expected duplicate start to keep the first session")
	}
	if hs.reg.Count() != 1 {
		t.Errorf("expected one registered session, got %d", hs.reg.Count())
	}

	hs.h.HandleEvent(ctx, Event{Kind: EventMedia, Payload: "not base64!"})
	if first.Audio().Len() != 0 {
		t.Error("expected undecodable frame to be dropped")
	}

	hs.h.HandleEvent(ctx, Event{Kind: EventMark, Mark: pipeline.CompletionMark})
	hs.h.HandleEvent(ctx, Event{Kind: EventDTMF, Digit: "1"})
	if hs.h.State() != StateActive {
		t.Errorf("expected session to survive anomalies, got %s", hs.h.State())
	}
}

func TestHandler_DuplicateStartLogsForeignCallID(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	defer func() { log.Logger = prev }()

	hs := newHarness(false)
	ctx := context.Background()
	hs.h.HandleEvent(ctx, Event{Kind: EventStart, StreamID: "MZ1", CallID: "CA1"})
	hs.h.HandleEvent(ctx, Event{Kind: EventStart, StreamID: "MZ2", CallID: "CA2"})

	var line string
	for _, l := range strings.Split(buf.String(), "\n") {
		if strings.Contains(l, AnomalyDuplicateStart) {
			line = l
		}
	}
	if line == "" {
		t.Fatalf("expected a duplicate start log line, got:\n%s", buf.String())
	}
	if n := strings.Count(line, `"callId"`); n != 1 {
		t.Errorf("expected a single callId key, found %d in %s", n, line)
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(line), &fields); err != nil {
		t.Fatalf("invalid log line %s: %v", line, err)
	}
	if fields["callId"] != "CA1" || fields["duplicateCallId"] != "CA2" {
		t.Errorf("expected callId CA1 and duplicateCallId CA2, got %v", fields)
	}
}

func TestHandler_StopWithoutStartIsNoop(t *testing.T) {
	hs := newHarness(false)

	hs.h.HandleEvent(context.Background(), Event{Kind: EventStop})

	if hs.h.State() != StateAwaitingStart {
		t.Errorf("expected AWAITING_START, got %s", hs.h.State())
	}
	if len(hs.pub.types()) != 0 {
		t.Error("expected no lifecycle events")
	}
}

func TestHandler_StopClosesOnce(t *testing.T) {
	hs := newHarness(false)
	ctx := context.Background()

	hs.h.HandleEvent(ctx, startEvent())
	s := hs.h.Session()

	hs.h.HandleEvent(ctx, Event{Kind: EventStop})
	hs.h.Close(ctx)
	hs.h.HandleEvent(ctx, Event{Kind: EventStop})

	if hs.h.State() != StateClosed {
		t.Errorf("expected CLOSED, got %s", hs.h.State())
	}
	if s.State() != session.StateClosed {
		t.Errorf("expected session CLOSED, got %s", s.State())
	}
	if hs.reg.Count() != 0 {
		t.Errorf("expected session unregistered, got %d", hs.reg.Count())
	}
	got := hs.pub.types()
	if len(got) != 2 || got[1] != models.EventCallEnded {
		t.Errorf("expected started then a single ended event, got %v", got)
	}

	hs.h.HandleEvent(ctx, mediaEvent(0x01))
	hs.h.HandleEvent(ctx, mediaEvent(0x02))
	if len(hs.runner.runs()) != 0 {
		t.Error("expected no runs after close")
	}
}

func TestHandler_CloseWaitsForInflightRun(t *testing.T) {
	hs := newHarness(true)
	ctx := context.Background()

	hs.h.HandleEvent(ctx, startEvent())
	hs.h.HandleEvent(ctx, mediaEvent(0x01))
	hs.h.HandleEvent(ctx, mediaEvent(0x02))
	waitStarted(t, hs.runner)

	closed := make(chan struct{})
	go func() {
		hs.h.Close(ctx)
		close(closed)
	}()

	select {
	case <-closed:
		t.Fatal("expected Close to wait for the running turn")
	case <-time.After(20 * time.Millisecond):
	}

	hs.runner.release <- struct{}{}
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return after the turn finished")
	}
}

func TestHandler_TransferringStopsDispatch(t *testing.T) {
	hs := newHarness(false)
	ctx := context.Background()

	hs.h.HandleEvent(ctx, startEvent())
	if err := hs.h.Session().Transfer(); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if hs.h.State() != StateTransferring {
		t.Fatalf("expected TRANSFERRING, got %s", hs.h.State())
	}

	for b := byte(0); b < 6; b++ {
		hs.h.HandleEvent(ctx, mediaEvent(b))
	}
	if len(hs.runner.runs()) != 0 {
		t.Error("expected no pipeline runs while transferring")
	}

	hs.h.HandleEvent(ctx, Event{Kind: EventStop})
	if hs.h.State() != StateClosed {
		t.Errorf("expected CLOSED after stop, got %s", hs.h.State())
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateAwaitingStart, "AWAITING_START"},
		{StateActive, "ACTIVE"},
		{StateTransferring, "TRANSFERRING"},
		{StateClosed, "CLOSED"},
		{State(42), "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %s, want %s", tt.state, got, tt.want)
		}
	}
}
