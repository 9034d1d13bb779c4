// Package google provides a Google Cloud Speech-to-Text transcriber.
package google

import (
	"context"
	"fmt"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/rs/zerolog/log"

	"ai-voice-agent-service/internal/service/stt"
)

// Config holds recognition settings.
type Config struct {
	LanguageCode         string
	SampleRateHz         int
	AudioEncoding        string
	Model                string
	UseEnhanced          bool
	AutomaticPunctuation bool
}

// DefaultConfig returns settings for 8 kHz mu-law telephone audio.
func DefaultConfig() Config {
	return Config{
		LanguageCode:         "en-US",
		SampleRateHz:         8000,
		AudioEncoding:        "MULAW",
		Model:                "phone_call",
		UseEnhanced:          true,
		AutomaticPunctuation: true,
	}
}

// Adapter implements stt.Transcriber with synchronous recognition, one
// request per audio window.
type Adapter struct {
	client *speech.Client
	cfg    Config
}

// New creates a new Google STT adapter.
// Requires GOOGLE_APPLICATION_CREDENTIALS environment variable to be set.
func New(ctx context.Context, cfg Config) (*Adapter, error) {
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create speech client: %w", err)
	}
	log.Info().
		Str("languageCode", cfg.LanguageCode).
		Int("sampleRateHz", cfg.SampleRateHz).
		Str("encoding", cfg.AudioEncoding).
		Str("model", cfg.Model).
		Msg("Google STT adapter initialized")
	return &Adapter{client: c, cfg: cfg}, nil
}

// Transcribe recognizes one audio window.
func (a *Adapter) Transcribe(ctx context.Context, audio []byte) (string, error) {
	resp, err := a.client.Recognize(ctx, buildRequest(a.cfg, audio))
	if err != nil {
		return "", fmt.Errorf("%w: %v", stt.ErrTranscription, err)
	}
	return joinResults(resp), nil
}

// Close releases the underlying gRPC connection.
func (a *Adapter) Close() error {
	return a.client.Close()
}

func buildRequest(cfg Config, audio []byte) *speechpb.RecognizeRequest {
	return &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   parseAudioEncoding(cfg.AudioEncoding),
			SampleRateHertz:            int32(cfg.SampleRateHz),
			LanguageCode:               cfg.LanguageCode,
			EnableAutomaticPunctuation: cfg.AutomaticPunctuation,
			Model:                      cfg.Model,
			UseEnhanced:                cfg.UseEnhanced,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	}
}

// joinResults concatenates the top alternative of every result.
func joinResults(resp *speechpb.RecognizeResponse) string {
	if resp == nil {
		return ""
	}
	parts := make([]string, 0, len(resp.Results))
	for _, r := range resp.Results {
		if len(r.Alternatives) == 0 {
			continue
		}
		if t := strings.TrimSpace(r.Alternatives[0].Transcript); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

func parseAudioEncoding(s string) speechpb.RecognitionConfig_AudioEncoding {
	switch s {
	case "LINEAR16":
		return speechpb.RecognitionConfig_LINEAR16
	case "MULAW":
		return speechpb.RecognitionConfig_MULAW
	case "FLAC":
		return speechpb.RecognitionConfig_FLAC
	case "AMR":
		return speechpb.RecognitionConfig_AMR
	case "AMR_WB":
		return speechpb.RecognitionConfig_AMR_WB
	case "OGG_OPUS":
		return speechpb.RecognitionConfig_OGG_OPUS
	case "SPEEX_WITH_HEADER_BYTE":
		return speechpb.RecognitionConfig_SPEEX_WITH_HEADER_BYTE
	case "WEBM_OPUS":
		return speechpb.RecognitionConfig_WEBM_OPUS
	default:
		return speechpb.RecognitionConfig_MULAW
	}
}
