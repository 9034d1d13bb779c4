// Package config loads service configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full service configuration.
type Config struct {
	Service       ServiceConfig
	STT           STTConfig
	TTS           TTSConfig
	LLM           LLMConfig
	Tools         ToolsConfig
	Session       SessionConfig
	Cache         CacheConfig
	Kafka         KafkaConfig
	Observability ObservabilityConfig
}

// ServiceConfig holds listener and identity settings.
type ServiceConfig struct {
	Principal  string
	HTTPPort   string
	GRPCPort   string
	PublicHost string // used in TwiML when no forwarded host header is present
	Greeting   string
}

// STTConfig configures the transcription provider.
type STTConfig struct {
	Provider      string // mock, google
	LanguageCode  string
	SampleRateHz  int
	AudioEncoding string
	Model         string
	UseEnhanced   bool
}

// TTSConfig configures the synthesis provider.
type TTSConfig struct {
	Provider      string // mock, google
	LanguageCode  string
	VoiceName     string
	SampleRateHz  int
	AudioEncoding string
	SpeakingRate  float64
}

// LLMConfig configures the reasoning provider.
type LLMConfig struct {
	Provider        string // mock, gemini
	APIKey          string
	Model           string
	Temperature     float64
	MaxOutputTokens int
	SystemPrompt    string
}

// ToolsConfig configures tool execution.
type ToolsConfig struct {
	Provider         string // mock, http
	BaseURL          string
	Timeout          time.Duration
	DeclarationsFile string
}

// SessionConfig holds per-call tuning.
type SessionConfig struct {
	MaxTurns      int
	WindowFrames  int
	LatencyBudget time.Duration
	MaxAge        time.Duration
	SweepInterval time.Duration
}

// CacheConfig sizes the shared synthesis cache.
type CacheConfig struct {
	Capacity int
}

// KafkaConfig configures the conversation event publisher.
type KafkaConfig struct {
	Enabled        bool
	Brokers        []string
	TopicTurns     string
	TopicLifecycle string
	Principal      string
}

// ObservabilityConfig configures logging and the metrics listener.
type ObservabilityConfig struct {
	LogLevel    string
	LogFormat   string
	MetricsAddr string
}

const defaultSystemPrompt = "You are a friendly phone assistant. Keep answers short and conversational, " +
	"one or two sentences, and never use markdown or lists since your reply is spoken aloud."

// Load reads configuration from environment variables. Values that fail to
// parse fall back to their defaults.
func Load() *Config {
	principal := envOrDefault("SERVICE_PRINCIPAL", "svc-voice-agent")

	return &Config{
		Service: ServiceConfig{
			Principal:  principal,
			HTTPPort:   envOrDefault("PORT", "3000"),
			GRPCPort:   envOrDefault("GRPC_PORT", "50051"),
			PublicHost: envOrDefault("PUBLIC_HOST", ""),
			Greeting:   envOrDefault("GREETING", "Hello! I am your AI assistant. How can I help you today?"),
		},
		STT: STTConfig{
			Provider:      envOrDefault("STT_PROVIDER", "mock"),
			LanguageCode:  envOrDefault("STT_LANGUAGE_CODE", "en-US"),
			SampleRateHz:  envOrDefaultInt("STT_SAMPLE_RATE_HZ", 8000),
			AudioEncoding: envOrDefault("STT_AUDIO_ENCODING", "MULAW"),
			Model:         envOrDefault("STT_MODEL", "phone_call"),
			UseEnhanced:   envOrDefaultBool("STT_USE_ENHANCED", true),
		},
		TTS: TTSConfig{
			Provider:      envOrDefault("TTS_PROVIDER", "mock"),
			LanguageCode:  envOrDefault("TTS_LANGUAGE_CODE", "en-US"),
			VoiceName:     envOrDefault("TTS_VOICE_NAME", "en-US-Neural2-F"),
			SampleRateHz:  envOrDefaultInt("TTS_SAMPLE_RATE_HZ", 8000),
			AudioEncoding: envOrDefault("TTS_AUDIO_ENCODING", "MULAW"),
			SpeakingRate:  envOrDefaultFloat("TTS_SPEAKING_RATE", 1.0),
		},
		LLM: LLMConfig{
			Provider:        envOrDefault("LLM_PROVIDER", "mock"),
			APIKey:          envOrDefault("GEMINI_API_KEY", ""),
			Model:           envOrDefault("LLM_MODEL", "gemini-2.0-flash"),
			Temperature:     envOrDefaultFloat("LLM_TEMPERATURE", 0.7),
			MaxOutputTokens: envOrDefaultInt("LLM_MAX_OUTPUT_TOKENS", 150),
			SystemPrompt:    envOrDefault("LLM_SYSTEM_PROMPT", defaultSystemPrompt),
		},
		Tools: ToolsConfig{
			Provider:         envOrDefault("TOOLS_PROVIDER", "mock"),
			BaseURL:          envOrDefault("TOOLS_BASE_URL", ""),
			Timeout:          envOrDefaultDuration("TOOLS_TIMEOUT", 3*time.Second),
			DeclarationsFile: envOrDefault("TOOLS_DECLARATIONS_FILE", ""),
		},
		Session: SessionConfig{
			MaxTurns:      envOrDefaultInt("CONVERSATION_HISTORY_TURNS", 5),
			WindowFrames:  envOrDefaultInt("SESSION_WINDOW_FRAMES", 20),
			LatencyBudget: envOrDefaultDuration("SESSION_LATENCY_BUDGET", 500*time.Millisecond),
			MaxAge:        envOrDefaultDuration("SESSION_MAX_AGE", time.Hour),
			SweepInterval: envOrDefaultDuration("SESSION_SWEEP_INTERVAL", 5*time.Minute),
		},
		Cache: CacheConfig{
			Capacity: envOrDefaultInt("TTS_CACHE_CAPACITY", 100),
		},
		Kafka: KafkaConfig{
			Enabled:        envOrDefaultBool("KAFKA_ENABLED", false),
			Brokers:        envList("KAFKA_BROKERS"),
			TopicTurns:     envOrDefault("KAFKA_TOPIC_TURNS", "call.turn.completed"),
			TopicLifecycle: envOrDefault("KAFKA_TOPIC_LIFECYCLE", "call.lifecycle"),
			Principal:      envOrDefault("KAFKA_PRINCIPAL", principal),
		},
		Observability: ObservabilityConfig{
			LogLevel:    envOrDefault("LOG_LEVEL", "info"),
			LogFormat:   envOrDefault("LOG_FORMAT", "json"),
			MetricsAddr: envOrDefault("METRICS_ADDR", ":9090"),
		},
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envOrDefaultFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func envOrDefaultBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
