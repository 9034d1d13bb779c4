// Package google provides a Google Cloud Text-to-Speech synthesizer.
package google

import (
	"context"
	"fmt"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/rs/zerolog/log"

	"ai-voice-agent-service/internal/service/tts"
)

// Config holds voice and output settings.
type Config struct {
	LanguageCode  string
	VoiceName     string
	SampleRateHz  int
	AudioEncoding string
	SpeakingRate  float64
}

// DefaultConfig returns settings producing 8 kHz mu-law audio that can be
// streamed straight back to a phone call.
func DefaultConfig() Config {
	return Config{
		LanguageCode:  "en-US",
		VoiceName:     "en-US-Neural2-F",
		SampleRateHz:  8000,
		AudioEncoding: "MULAW",
		SpeakingRate:  1.0,
	}
}

// Adapter implements tts.Synthesizer.
type Adapter struct {
	client *texttospeech.Client
	cfg    Config
}

// New creates a new Google TTS adapter.
// Requires GOOGLE_APPLICATION_CREDENTIALS environment variable to be set.
func New(ctx context.Context, cfg Config) (*Adapter, error) {
	c, err := texttospeech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create text-to-speech client: %w", err)
	}
	log.Info().
		Str("voice", cfg.VoiceName).
		Int("sampleRateHz", cfg.SampleRateHz).
		Str("encoding", cfg.AudioEncoding).
		Msg("Google TTS adapter initialized")
	return &Adapter{client: c, cfg: cfg}, nil
}

// Synthesize renders text to audio.
func (a *Adapter) Synthesize(ctx context.Context, text string) ([]byte, error) {
	resp, err := a.client.SynthesizeSpeech(ctx, buildRequest(a.cfg, text))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", tts.ErrSynthesis, err)
	}
	if len(resp.GetAudioContent()) == 0 {
		return nil, fmt.Errorf("%w: empty audio content", tts.ErrSynthesis)
	}
	return resp.GetAudioContent(), nil
}

// Close releases the underlying gRPC connection.
func (a *Adapter) Close() error {
	return a.client.Close()
}

func buildRequest(cfg Config, text string) *texttospeechpb.SynthesizeSpeechRequest {
	return &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: cfg.LanguageCode,
			Name:         cfg.VoiceName,
			SsmlGender:   texttospeechpb.SsmlVoiceGender_FEMALE,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding:   parseAudioEncoding(cfg.AudioEncoding),
			SampleRateHertz: int32(cfg.SampleRateHz),
			SpeakingRate:    cfg.SpeakingRate,
		},
	}
}

func parseAudioEncoding(s string) texttospeechpb.AudioEncoding {
	switch s {
	case "LINEAR16":
		return texttospeechpb.AudioEncoding_LINEAR16
	case "MULAW":
		return texttospeechpb.AudioEncoding_MULAW
	case "ALAW":
		return texttospeechpb.AudioEncoding_ALAW
	case "MP3":
		return texttospeechpb.AudioEncoding_MP3
	case "OGG_OPUS":
		return texttospeechpb.AudioEncoding_OGG_OPUS
	default:
		return texttospeechpb.AudioEncoding_MULAW
	}
}
