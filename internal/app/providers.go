package app

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"

	"ai-voice-agent-service/internal/config"
	"ai-voice-agent-service/internal/service/llm"
	"ai-voice-agent-service/internal/service/llm/gemini"
	llmmock "ai-voice-agent-service/internal/service/llm/mock"
	"ai-voice-agent-service/internal/service/stt"
	sttgoogle "ai-voice-agent-service/internal/service/stt/google"
	sttmock "ai-voice-agent-service/internal/service/stt/mock"
	"ai-voice-agent-service/internal/service/tools"
	toolsmock "ai-voice-agent-service/internal/service/tools/mock"
	"ai-voice-agent-service/internal/service/tts"
	ttsgoogle "ai-voice-agent-service/internal/service/tts/google"
	ttsmock "ai-voice-agent-service/internal/service/tts/mock"
)

// Provider names accepted in configuration.
const (
	ProviderMock   = "mock"
	ProviderGoogle = "google"
	ProviderGemini = "gemini"
	ProviderHTTP   = "http"
)

func newTranscriber(ctx context.Context, cfg config.STTConfig) (stt.Transcriber, io.Closer, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderGoogle:
		a, err := sttgoogle.New(ctx, sttgoogle.Config{
			LanguageCode:         cfg.LanguageCode,
			SampleRateHz:         cfg.SampleRateHz,
			AudioEncoding:        cfg.AudioEncoding,
			Model:                cfg.Model,
			UseEnhanced:          cfg.UseEnhanced,
			AutomaticPunctuation: true,
		})
		if err != nil {
			return nil, nil, err
		}
		return a, a, nil
	case ProviderMock, "":
		log.Info().Msg("Using mock STT adapter")
		return sttmock.New(), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown STT provider %q", cfg.Provider)
	}
}

func newSynthesizer(ctx context.Context, cfg config.TTSConfig) (tts.Synthesizer, io.Closer, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderGoogle:
		a, err := ttsgoogle.New(ctx, ttsgoogle.Config{
			LanguageCode:  cfg.LanguageCode,
			VoiceName:     cfg.VoiceName,
			SampleRateHz:  cfg.SampleRateHz,
			AudioEncoding: cfg.AudioEncoding,
			SpeakingRate:  cfg.SpeakingRate,
		})
		if err != nil {
			return nil, nil, err
		}
		return a, a, nil
	case ProviderMock, "":
		log.Info().Msg("Using mock TTS adapter")
		return ttsmock.New(), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown TTS provider %q", cfg.Provider)
	}
}

func newReasoner(ctx context.Context, cfg config.LLMConfig, decls []tools.Declaration) (llm.Reasoner, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderGemini:
		return gemini.New(ctx, gemini.Config{
			APIKey:          cfg.APIKey,
			Model:           cfg.Model,
			Temperature:     cfg.Temperature,
			MaxOutputTokens: cfg.MaxOutputTokens,
			SystemPrompt:    cfg.SystemPrompt,
		}, decls)
	case ProviderMock, "":
		log.Info().Msg("Using mock reasoner")
		return llmmock.New(), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
}

func newToolExecutor(cfg config.ToolsConfig, decls []tools.Declaration) (tools.Executor, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderHTTP:
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("tools provider %q requires TOOLS_BASE_URL", cfg.Provider)
		}
		return tools.NewHTTPExecutor(cfg.BaseURL, decls, cfg.Timeout), nil
	case ProviderMock, "":
		log.Info().Msg("Using mock tool executor")
		return toolsmock.New(), nil
	default:
		return nil, fmt.Errorf("unknown tools provider %q", cfg.Provider)
	}
}
