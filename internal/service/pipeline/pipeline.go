// Package pipeline turns one window of caller audio into one conversational
// exchange: transcribe, check for a transfer request, reason (running any
// requested tools), synthesize and send the reply.
package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"ai-voice-agent-service/internal/models"
	"ai-voice-agent-service/internal/observability/logging"
	"ai-voice-agent-service/internal/observability/metrics"
	"ai-voice-agent-service/internal/service/cache"
	"ai-voice-agent-service/internal/service/llm"
	"ai-voice-agent-service/internal/service/memory"
	"ai-voice-agent-service/internal/service/session"
	"ai-voice-agent-service/internal/service/stt"
	"ai-voice-agent-service/internal/service/tools"
	"ai-voice-agent-service/internal/service/tts"
)

// Fixed phrases spoken to the caller.
const (
	HandOffPhrase = "I'll transfer you to a human agent right away. Please hold."
	ApologyPhrase = "I'm having trouble processing that, could you repeat?"
)

// CompletionMark is the mark name sent after every reply's audio.
const CompletionMark = "audio_complete"

// ErrEmptyReply is recorded when reasoning ends without any reply text.
var ErrEmptyReply = errors.New("reasoning returned an empty reply")

// Outcome classifies a pipeline run.
type Outcome string

const (
	OutcomeSilence     Outcome = "silence"
	OutcomeTransferred Outcome = "transferred"
	OutcomeReplied     Outcome = "replied"
	OutcomeFallback    Outcome = "fallback"
)

// Stage names used for metrics and logs.
const (
	stageTranscribe = "transcribe"
	stageReason     = "reason"
	stageSynthesize = "synthesize"
	stageSend       = "send"
)

// Sender delivers outbound audio and marks to the caller's stream.
type Sender interface {
	SendAudio(audio []byte) error
	SendMark(name string) error
}

// Publisher receives conversation events. *events.Publisher implements it.
type Publisher interface {
	PublishTurn(ctx context.Context, event models.TurnCompleted) error
	PublishLifecycle(ctx context.Context, event models.CallLifecycle) error
}

// Config tunes the pipeline.
type Config struct {
	// LatencyBudget is the window-ready to reply-sent target. Exceeding it
	// is logged and counted, never enforced.
	LatencyBudget   time.Duration
	ToolTimeout     time.Duration
	TransferPhrases []string
}

// DefaultConfig returns the standard budget, tool timeout and phrases.
func DefaultConfig() Config {
	return Config{
		LatencyBudget:   500 * time.Millisecond,
		ToolTimeout:     3 * time.Second,
		TransferPhrases: DefaultTransferPhrases,
	}
}

// Deps are the collaborators of a Pipeline. Publisher and Metrics are optional.
type Deps struct {
	Transcriber stt.Transcriber
	Synthesizer tts.Synthesizer
	Reasoner    llm.Reasoner
	Tools       tools.Executor
	Cache       *cache.Cache
	Publisher   Publisher
	Metrics     *metrics.Metrics
}

// Result describes one pipeline run.
type Result struct {
	TurnID     string
	Outcome    Outcome
	Transcript string
	Reply      string
	Tools      []string
	CacheHit   bool
	Latency    time.Duration
	// Err is the upstream error behind a fallback, or a send failure.
	Err error
}

// Pipeline is shared by all sessions; per-call state lives in the session.
type Pipeline struct {
	deps     Deps
	cfg      Config
	transfer transferMatcher
	metrics  *metrics.Metrics
	now      func() time.Time
}

// New creates a pipeline.
func New(deps Deps, cfg Config) *Pipeline {
	m := deps.Metrics
	if m == nil {
		m = metrics.DefaultMetrics
	}
	if cfg.TransferPhrases == nil {
		cfg.TransferPhrases = DefaultTransferPhrases
	}
	return &Pipeline{
		deps:     deps,
		cfg:      cfg,
		transfer: newTransferMatcher(cfg.TransferPhrases),
		metrics:  m,
		now:      time.Now,
	}
}

// Run processes one audio window for s and sends any reply through out.
// The caller must hold the session's turn claim. Upstream failures are
// answered with ApologyPhrase and never returned as a Go error.
func (p *Pipeline) Run(ctx context.Context, s *session.Session, window []byte, out Sender) (res Result) {
	start := p.now()
	res.TurnID = s.NextTurnID()
	logger := logging.WithTurn(s.ID(), s.CallID(), res.TurnID)

	defer func() {
		res.Latency = p.now().Sub(start)
		p.finish(ctx, s, &res, logger)
	}()

	// 1. Transcribe
	text, err := p.transcribe(ctx, window)
	if err != nil {
		p.fallback(ctx, &res, out, stageTranscribe, err, logger)
		return res
	}
	text = strings.TrimSpace(text)
	if text == "" {
		res.Outcome = OutcomeSilence
		return res
	}
	res.Transcript = text
	logger.Info().Str("transcript", text).Msg("Caller said")

	// 2. Transfer check, before any reasoning or memory change
	if phrase, ok := p.transfer.match(text); ok {
		p.handOff(ctx, s, &res, out, phrase, logger)
		return res
	}

	// 3. Record the caller turn
	mem := s.Memory()
	mem.Add(memory.RoleUser, text)

	// 4. Reason
	history := mem.History()
	reply, err := p.reason(ctx, text, history, false)
	if err != nil {
		p.fallback(ctx, &res, out, stageReason, err, logger)
		return res
	}

	// 5. Tool loop
	if len(reply.ToolCalls) > 0 {
		reply, err = p.runTools(ctx, reply.ToolCalls, history, &res, logger)
		if err != nil {
			p.fallback(ctx, &res, out, stageReason, err, logger)
			return res
		}
	}

	// 6. Record the reply
	answer := strings.TrimSpace(reply.Text)
	if answer == "" {
		p.fallback(ctx, &res, out, stageReason, ErrEmptyReply, logger)
		return res
	}
	mem.Add(memory.RoleAssistant, answer)
	res.Reply = answer

	// 7. Synthesize
	audio, hit, err := p.speak(ctx, answer)
	if err != nil {
		p.fallback(ctx, &res, out, stageSynthesize, err, logger)
		return res
	}
	res.CacheHit = hit

	// 8. Emit
	res.Outcome = OutcomeReplied
	if err := p.emit(out, audio); err != nil {
		res.Err = err
		logger.Warn().Err(err).Msg("Failed to send reply audio")
	}
	return res
}

// runTools executes each tool call in order, re-invoking reasoning with each
// result. Only the reply to the last tool result is kept.
func (p *Pipeline) runTools(ctx context.Context, calls []llm.ToolCall, history []memory.Turn, res *Result, logger zerolog.Logger) (*llm.Reply, error) {
	if len(calls) > 1 {
		logger.Warn().
			Int("toolCalls", len(calls)).
			Msg("Multiple tool calls in one reply; only the reply to the last result is spoken")
	}

	var (
		final  *llm.Reply
		rounds []memory.Turn
	)
	for _, call := range calls {
		res.Tools = append(res.Tools, call.Name)
		result := p.executeTool(ctx, call, logger)
		msg := result.Message(call.Name)

		h := make([]memory.Turn, 0, len(history)+len(rounds))
		h = append(h, history...)
		h = append(h, rounds...)

		next, err := p.reason(ctx, msg, h, true)
		if err != nil {
			return nil, err
		}
		if len(next.ToolCalls) > 0 {
			logger.Debug().
				Int("toolCalls", len(next.ToolCalls)).
				Msg("Ignoring tool calls requested after a tool result")
		}
		final = next
		rounds = append(rounds, memory.Turn{Role: memory.RoleTool, Content: msg, Timestamp: p.now()})
	}
	return final, nil
}

func (p *Pipeline) executeTool(ctx context.Context, call llm.ToolCall, logger zerolog.Logger) tools.Result {
	toolCtx := ctx
	if p.cfg.ToolTimeout > 0 {
		var cancel context.CancelFunc
		toolCtx, cancel = context.WithTimeout(ctx, p.cfg.ToolTimeout)
		defer cancel()
	}

	start := p.now()
	result := p.deps.Tools.Execute(toolCtx, call.Name, call.Args)
	if !result.Success && result.Error == "" && toolCtx.Err() != nil {
		result.Error = toolCtx.Err().Error()
	}
	elapsed := p.now().Sub(start)
	p.metrics.RecordToolCall(call.Name, result.Success, elapsed.Seconds())

	ev := logger.Info()
	if !result.Success {
		ev = logger.Warn().Str("error", result.Error)
	}
	ev.Str("tool", call.Name).Bool("success", result.Success).Dur("latency", elapsed).Msg("Tool executed")
	return result
}

// handOff announces the transfer and moves the session to TRANSFERRING.
func (p *Pipeline) handOff(ctx context.Context, s *session.Session, res *Result, out Sender, phrase string, logger zerolog.Logger) {
	res.Outcome = OutcomeTransferred
	res.Reply = HandOffPhrase
	logger.Info().Str("phrase", phrase).Msg("Transfer requested")

	audio, hit, err := p.speak(ctx, HandOffPhrase)
	if err != nil {
		res.Err = err
		logger.Error().Err(err).Msg("Failed to synthesize hand-off announcement")
	} else {
		res.CacheHit = hit
		if err := p.emit(out, audio); err != nil {
			res.Err = err
			logger.Warn().Err(err).Msg("Failed to send hand-off announcement")
		}
	}

	if err := s.Transfer(); err != nil {
		logger.Warn().Err(err).Msg("Session could not enter TRANSFERRING")
		return
	}
	p.metrics.RecordTransfer()
	p.publishLifecycle(ctx, s, models.EventCallTransferring, logger)
}

// fallback answers the caller with the apology phrase after an upstream error.
func (p *Pipeline) fallback(ctx context.Context, res *Result, out Sender, stage string, cause error, logger zerolog.Logger) {
	res.Outcome = OutcomeFallback
	res.Err = cause
	res.Reply = ApologyPhrase
	logger.Error().Err(cause).Str("stage", stage).Msg("Turn failed, sending apology")

	audio, hit, err := p.speak(ctx, ApologyPhrase)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to synthesize apology")
		return
	}
	res.CacheHit = hit
	if err := p.emit(out, audio); err != nil {
		logger.Warn().Err(err).Msg("Failed to send apology")
	}
}

func (p *Pipeline) transcribe(ctx context.Context, window []byte) (string, error) {
	start := p.now()
	text, err := p.deps.Transcriber.Transcribe(ctx, window)
	p.metrics.RecordStage(stageTranscribe, err, p.now().Sub(start).Seconds())
	return text, err
}

func (p *Pipeline) reason(ctx context.Context, message string, history []memory.Turn, isToolResult bool) (*llm.Reply, error) {
	start := p.now()
	reply, err := p.deps.Reasoner.Reason(ctx, message, history, isToolResult)
	if err == nil && reply == nil {
		reply = &llm.Reply{}
	}
	p.metrics.RecordStage(stageReason, err, p.now().Sub(start).Seconds())
	return reply, err
}

// speak returns audio for text, from the cache when possible. New audio is
// offered to the cache, which may drop it when full.
func (p *Pipeline) speak(ctx context.Context, text string) ([]byte, bool, error) {
	if audio, ok := p.deps.Cache.Get(text); ok {
		p.metrics.RecordCacheLookup(true)
		return audio, true, nil
	}
	p.metrics.RecordCacheLookup(false)

	start := p.now()
	audio, err := p.deps.Synthesizer.Synthesize(ctx, text)
	p.metrics.RecordStage(stageSynthesize, err, p.now().Sub(start).Seconds())
	if err != nil {
		return nil, false, err
	}
	if !p.deps.Cache.Put(text, audio) {
		p.metrics.RecordCacheRejected()
	}
	return audio, false, nil
}

// emit sends the whole reply as one media event followed by the completion mark.
func (p *Pipeline) emit(out Sender, audio []byte) error {
	start := p.now()
	err := out.SendAudio(audio)
	if err == nil {
		p.metrics.RecordAudioSent(len(audio))
		err = out.SendMark(CompletionMark)
	}
	p.metrics.RecordStage(stageSend, err, p.now().Sub(start).Seconds())
	return err
}

func (p *Pipeline) finish(ctx context.Context, s *session.Session, res *Result, logger zerolog.Logger) {
	overBudget := p.cfg.LatencyBudget > 0 && res.Latency > p.cfg.LatencyBudget
	p.metrics.RecordTurn(string(res.Outcome), res.Latency.Seconds(), overBudget && res.Outcome != OutcomeSilence)

	if res.Outcome == OutcomeSilence {
		logger.Debug().Dur("latency", res.Latency).Msg("Silent window")
		return
	}

	if overBudget {
		logger.Warn().
			Dur("latency", res.Latency).
			Dur("budget", p.cfg.LatencyBudget).
			Str("outcome", string(res.Outcome)).
			Msg("Turn exceeded latency budget")
	} else {
		logger.Info().
			Dur("latency", res.Latency).
			Str("outcome", string(res.Outcome)).
			Bool("cacheHit", res.CacheHit).
			Msg("Turn completed")
	}

	if p.deps.Publisher == nil {
		return
	}
	ev := models.TurnCompleted{
		EventType:  models.EventTurnCompleted,
		SessionID:  s.ID(),
		CallID:     s.CallID(),
		TurnID:     res.TurnID,
		Timestamp:  p.now().UnixMilli(),
		Outcome:    string(res.Outcome),
		Transcript: res.Transcript,
		Reply:      res.Reply,
		Tools:      res.Tools,
		LatencyMs:  res.Latency.Milliseconds(),
		CacheHit:   res.CacheHit,
	}
	if err := p.deps.Publisher.PublishTurn(ctx, ev); err != nil {
		logger.Warn().Err(err).Msg("Failed to publish turn event")
	}
}

func (p *Pipeline) publishLifecycle(ctx context.Context, s *session.Session, eventType string, logger zerolog.Logger) {
	if p.deps.Publisher == nil {
		return
	}
	ev := models.CallLifecycle{
		EventType:  eventType,
		SessionID:  s.ID(),
		CallID:     s.CallID(),
		StreamID:   s.StreamID(),
		Timestamp:  p.now().UnixMilli(),
		State:      s.State().String(),
		DurationMs: s.Duration().Milliseconds(),
		Turns:      s.Memory().Stats().Turns,
	}
	if err := p.deps.Publisher.PublishLifecycle(ctx, ev); err != nil {
		logger.Warn().Err(err).Str("eventType", eventType).Msg("Failed to publish lifecycle event")
	}
}
