package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"ai-voice-agent-service/internal/config"
	"ai-voice-agent-service/internal/events"
	"ai-voice-agent-service/internal/observability/logging"
	"ai-voice-agent-service/internal/observability/metrics"
	"ai-voice-agent-service/internal/service/cache"
	"ai-voice-agent-service/internal/service/call"
	"ai-voice-agent-service/internal/service/pipeline"
	"ai-voice-agent-service/internal/service/registry"
	"ai-voice-agent-service/internal/service/session"
	"ai-voice-agent-service/internal/service/tools"
)

// Application holds process-wide state for the service.
type Application struct {
	StartupTime time.Time
	Logger      zerolog.Logger
	Cfg         *config.Config

	Registry  *registry.Registry
	Cache     *cache.Cache
	Publisher *events.Publisher
	Pipeline  *pipeline.Pipeline

	closers []io.Closer
}

// Status is the process-level monitoring snapshot.
type Status struct {
	Status        string      `json:"status"`
	UptimeSeconds float64     `json:"uptimeSeconds"`
	StartedAt     time.Time   `json:"startedAt"`
	ActiveCalls   int         `json:"activeCalls"`
	Memory        MemoryStats `json:"memory"`
	Cache         cache.Stats `json:"cache"`
	KafkaEnabled  bool        `json:"kafkaEnabled"`
}

// MemoryStats reports Go heap usage in bytes.
type MemoryStats struct {
	HeapAlloc  uint64 `json:"heapAlloc"`
	HeapSys    uint64 `json:"heapSys"`
	TotalAlloc uint64 `json:"totalAlloc"`
	Goroutines int    `json:"goroutines"`
}

// New constructs a new Application from the provided configuration.
func New(cfg *config.Config) *Application {
	a := &Application{
		Cfg:      cfg,
		Registry: registry.New(),
		Cache:    cache.New(cfg.Cache.Capacity),
	}
	a.setupLogger()

	appLogger := a.Logger.With().
		Str("method", "New").
		Logger()

	appLogger.Info().Msg("AI voice agent application created")
	return a
}

// setupLogger configures zerolog for the service. ZEROLOG_LOG_LEVEL and
// ENV=dev override the configured level and format.
func (a *Application) setupLogger() {
	logCfg := logging.DefaultConfig()
	logCfg.Level = a.Cfg.Observability.LogLevel
	logCfg.Format = a.Cfg.Observability.LogFormat

	if envLevel := os.Getenv("ZEROLOG_LOG_LEVEL"); envLevel != "" {
		if _, err := zerolog.ParseLevel(strings.ToLower(envLevel)); err == nil {
			logCfg.Level = strings.ToLower(envLevel)
		}
	}
	if os.Getenv("ENV") == "dev" {
		logCfg.Format = "console"
	}

	logging.Init(logCfg)
	a.Logger = logging.WithComponent("application")

	a.Logger.Info().
		Str("logLevel", zerolog.GlobalLevel().String()).
		Str("logFormat", logCfg.Format).
		Str("environment", os.Getenv("ENV")).
		Msg("Logger setup completed")
}

// Start builds the providers and the turn pipeline.
func (a *Application) Start(ctx context.Context) error {
	startLogger := a.Logger.With().
		Str("method", "Start").
		Logger()

	cfg := a.Cfg

	decls, err := tools.LoadDeclarations(cfg.Tools.DeclarationsFile)
	if err != nil {
		return err
	}

	transcriber, closer, err := newTranscriber(ctx, cfg.STT)
	if err != nil {
		return fmt.Errorf("stt: %w", err)
	}
	a.addCloser(closer)

	synthesizer, closer, err := newSynthesizer(ctx, cfg.TTS)
	if err != nil {
		return fmt.Errorf("tts: %w", err)
	}
	a.addCloser(closer)

	reasoner, err := newReasoner(ctx, cfg.LLM, decls)
	if err != nil {
		return fmt.Errorf("llm: %w", err)
	}

	executor, err := newToolExecutor(cfg.Tools, decls)
	if err != nil {
		return fmt.Errorf("tools: %w", err)
	}

	a.Publisher = events.New(&events.Config{
		Enabled:        cfg.Kafka.Enabled,
		Brokers:        cfg.Kafka.Brokers,
		TopicTurns:     cfg.Kafka.TopicTurns,
		TopicLifecycle: cfg.Kafka.TopicLifecycle,
		Principal:      cfg.Kafka.Principal,
	})
	a.addCloser(a.Publisher)

	a.Pipeline = pipeline.New(pipeline.Deps{
		Transcriber: transcriber,
		Synthesizer: synthesizer,
		Reasoner:    reasoner,
		Tools:       executor,
		Cache:       a.Cache,
		Publisher:   a.Publisher,
	}, pipeline.Config{
		LatencyBudget:   cfg.Session.LatencyBudget,
		ToolTimeout:     cfg.Tools.Timeout,
		TransferPhrases: pipeline.DefaultTransferPhrases,
	})

	a.StartupTime = time.Now().UTC()
	startLogger.Info().
		Time("startupTime", a.StartupTime).
		Str("stt", cfg.STT.Provider).
		Str("tts", cfg.TTS.Provider).
		Str("llm", cfg.LLM.Provider).
		Str("tools", cfg.Tools.Provider).
		Int("declarations", len(decls)).
		Msg("AI voice agent service starting")

	return nil
}

// CallDeps returns the dependencies shared by every call handler.
func (a *Application) CallDeps() call.Deps {
	return call.Deps{
		Registry:  a.Registry,
		Pipeline:  a.Pipeline,
		Publisher: a.Publisher,
		Session: session.Options{
			MaxTurns:     a.Cfg.Session.MaxTurns,
			WindowFrames: a.Cfg.Session.WindowFrames,
		},
	}
}

// Uptime returns the time since Start.
func (a *Application) Uptime() time.Duration {
	if a.StartupTime.IsZero() {
		return 0
	}
	return time.Since(a.StartupTime)
}

// Status returns a monitoring snapshot.
func (a *Application) Status() Status {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	return Status{
		Status:        "ok",
		UptimeSeconds: a.Uptime().Seconds(),
		StartedAt:     a.StartupTime,
		ActiveCalls:   a.Registry.Count(),
		Memory: MemoryStats{
			HeapAlloc:  ms.HeapAlloc,
			HeapSys:    ms.HeapSys,
			TotalAlloc: ms.TotalAlloc,
			Goroutines: runtime.NumGoroutine(),
		},
		Cache:        a.Cache.Stats(),
		KafkaEnabled: a.Publisher != nil && a.Publisher.Enabled(),
	}
}

// Sweep removes registry entries older than maxAge and returns the count.
func (a *Application) Sweep(maxAge time.Duration) int {
	n := a.Registry.Sweep(maxAge)
	if n > 0 {
		metrics.DefaultMetrics.RecordSessionsSwept(n)
		a.Logger.Info().Int("removed", n).Dur("maxAge", maxAge).Msg("Swept stale sessions")
	}
	return n
}

// RunSweeper sweeps every SweepInterval until ctx is done.
func (a *Application) RunSweeper(ctx context.Context) error {
	interval := a.Cfg.Session.SweepInterval
	if interval <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			a.Sweep(a.Cfg.Session.MaxAge)
		}
	}
}

// Shutdown performs a best-effort cleanup before process exit.
func (a *Application) Shutdown() {
	shutdownLogger := a.Logger.With().
		Str("method", "Shutdown").
		Logger()

	shutdownLogger.Info().
		Int("activeCalls", a.Registry.Count()).
		Msg("AI voice agent service shutting down")

	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			shutdownLogger.Warn().Err(err).Msg("Error closing component")
		}
	}
	a.closers = nil
}

func (a *Application) addCloser(c io.Closer) {
	if c != nil {
		a.closers = append(a.closers, c)
	}
}
