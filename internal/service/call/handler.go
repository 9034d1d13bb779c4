package call

import (
	"context"
	"encoding/base64"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"ai-voice-agent-service/internal/models"
	"ai-voice-agent-service/internal/observability/logging"
	"ai-voice-agent-service/internal/observability/metrics"
	"ai-voice-agent-service/internal/service/pipeline"
	"ai-voice-agent-service/internal/service/registry"
	"ai-voice-agent-service/internal/service/session"
)

// Runner runs one turn. *pipeline.Pipeline implements it.
type Runner interface {
	Run(ctx context.Context, s *session.Session, window []byte, out pipeline.Sender) pipeline.Result
}

// Deps are shared by every connection handler. Publisher and Metrics are optional.
type Deps struct {
	Registry  *registry.Registry
	Pipeline  Runner
	Publisher pipeline.Publisher
	Metrics   *metrics.Metrics
	Session   session.Options
}

// Handler owns one connection. Events must be delivered in order from a
// single goroutine; pipeline runs happen on their own goroutine, at most one
// at a time per session.
type Handler struct {
	deps    Deps
	out     pipeline.Sender
	metrics *metrics.Metrics

	mu      sync.Mutex
	state   State
	session *session.Session
	logger  zerolog.Logger

	inflight sync.WaitGroup
}

// NewHandler creates a handler in AWAITING_START that replies through out.
func NewHandler(deps Deps, out pipeline.Sender) *Handler {
	m := deps.Metrics
	if m == nil {
		m = metrics.DefaultMetrics
	}
	return &Handler{
		deps:    deps,
		out:     out,
		metrics: m,
		state:   StateAwaitingStart,
		logger:  logging.WithComponent("call"),
	}
}

// State returns the connection state. An active session that has begun a
// hand-off reports TRANSFERRING.
func (h *Handler) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state == StateActive && h.session.State() == session.StateTransferring {
		return StateTransferring
	}
	return h.state
}

// Session returns the call session, or nil before start.
func (h *Handler) Session() *session.Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.session
}

// HandleEvent applies one inbound event. Anomalies are logged and counted,
// never returned.
func (h *Handler) HandleEvent(ctx context.Context, ev Event) {
	switch ev.Kind {
	case EventStart:
		h.handleStart(ctx, ev)
	case EventMedia:
		h.handleMedia(ctx, ev)
	case EventStop:
		h.handleStop(ctx)
	case EventMark:
		h.log().Debug().Str("mark", ev.Mark).Str("streamId", ev.StreamID).Msg("Playback mark received")
	case EventConnected:
		h.log().Debug().Msg("Media stream connected")
	case EventDTMF:
		h.log().Info().Str("digit", ev.Digit).Str("streamId", ev.StreamID).Msg("DTMF received")
	default:
		h.anomaly(AnomalyUnknownEvent, h.log().Warn().Str("event", string(ev.Kind)))
	}
}

// Anomaly records an event dropped before it reached the handler, such as
// a frame that could not be decoded.
func (h *Handler) Anomaly(reason string, err error) {
	h.anomaly(reason, h.log().Warn().Err(err))
}

func (h *Handler) handleStart(ctx context.Context, ev Event) {
	h.mu.Lock()
	switch h.state {
	case StateClosed:
		h.mu.Unlock()
		h.anomaly(AnomalyAfterClose, h.log().Warn().Str("event", string(ev.Kind)))
		return
	case StateActive:
		h.mu.Unlock()
		h.anomaly(AnomalyDuplicateStart, h.log().Warn().Str("duplicateCallId", ev.CallID))
		return
	}

	opts := h.deps.Session
	opts.Parameters = ev.Parameters
	s := session.New(ev.CallID, ev.StreamID, opts)
	if err := h.deps.Registry.Register(s); err != nil {
		h.mu.Unlock()
		h.log().Error().Err(err).Str("sessionId", s.ID()).Msg("Failed to register session")
		return
	}
	h.session = s
	h.state = StateActive
	h.logger = logging.WithSession(s.ID(), s.CallID(), s.StreamID())
	logger := h.logger
	h.mu.Unlock()

	h.metrics.RecordCallStart()
	logger.Info().Int("windowFrames", s.Audio().Threshold()).Msg("Call started")
	h.publishLifecycle(ctx, s, models.EventCallStarted)
}

func (h *Handler) handleMedia(ctx context.Context, ev Event) {
	h.mu.Lock()
	state, s := h.state, h.session
	h.mu.Unlock()

	switch state {
	case StateAwaitingStart:
		h.anomaly(AnomalyMediaBeforeStart, h.log().Warn())
		return
	case StateClosed:
		h.anomaly(AnomalyAfterClose, h.log().Warn().Str("event", string(ev.Kind)))
		return
	}

	frame, err := base64.StdEncoding.DecodeString(ev.Payload)
	if err != nil {
		h.anomaly(AnomalyBadPayload, h.log().Warn().Err(err))
		return
	}
	h.metrics.RecordAudioReceived(len(frame))

	// Audio heard during a hand-off is counted but never answered.
	if !s.IsActive() {
		return
	}

	acc := s.Audio()
	acc.Push(frame)
	if !acc.IsWindowReady() {
		return
	}
	if !s.TryBeginTurn() {
		// Keep buffering; the next frame after the current run retries.
		h.metrics.RecordWindow(false)
		return
	}

	window := acc.Drain()
	h.metrics.RecordWindow(true)

	runCtx := context.WithoutCancel(ctx)
	h.inflight.Add(1)
	go func() {
		defer h.inflight.Done()
		defer s.EndTurn()
		h.deps.Pipeline.Run(runCtx, s, window, h.out)
	}()
}

func (h *Handler) handleStop(ctx context.Context) {
	h.mu.Lock()
	state := h.state
	h.mu.Unlock()

	if state == StateAwaitingStart {
		h.log().Debug().Msg("Stop received before start, ignoring")
		return
	}
	h.Close(ctx)
}

// Close ends the call: unregisters and closes the session, waits for any
// in-flight turn and publishes call.ended. Safe to call more than once.
func (h *Handler) Close(ctx context.Context) {
	h.mu.Lock()
	if h.state == StateClosed {
		h.mu.Unlock()
		return
	}
	prev := h.state
	h.state = StateClosed
	s, logger := h.session, h.logger
	h.mu.Unlock()

	if prev == StateAwaitingStart || s == nil {
		logger.Debug().Msg("Connection closed before start")
		return
	}

	h.deps.Registry.Unregister(s.ID())
	s.Close()
	h.inflight.Wait()

	duration := s.Duration()
	h.metrics.RecordCallEnd(duration.Seconds())
	logger.Info().
		Dur("duration", duration).
		Int("turns", s.Memory().Stats().Turns).
		Msg("Call ended")
	h.publishLifecycle(ctx, s, models.EventCallEnded)
}

func (h *Handler) log() *zerolog.Logger {
	h.mu.Lock()
	defer h.mu.Unlock()
	l := h.logger
	return &l
}

func (h *Handler) anomaly(reason string, ev *zerolog.Event) {
	h.metrics.RecordProtocolAnomaly(reason)
	ev.Str("reason", reason).Msg("Dropping stream event")
}

func (h *Handler) publishLifecycle(ctx context.Context, s *session.Session, eventType string) {
	if h.deps.Publisher == nil {
		return
	}
	ev := models.CallLifecycle{
		EventType:  eventType,
		SessionID:  s.ID(),
		CallID:     s.CallID(),
		StreamID:   s.StreamID(),
		Timestamp:  time.Now().UnixMilli(),
		State:      s.State().String(),
		DurationMs: s.Duration().Milliseconds(),
		Turns:      s.Memory().Stats().Turns,
	}
	if err := h.deps.Publisher.PublishLifecycle(context.WithoutCancel(ctx), ev); err != nil {
		h.log().Warn().Err(err).Str("eventType", eventType).Msg("Failed to publish lifecycle event")
	}
}
