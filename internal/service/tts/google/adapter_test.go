package google

import (
	"testing"

	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.VoiceName != "en-US-Neural2-F" {
		t.Errorf("expected default voice 'en-US-Neural2-F', got %s", cfg.VoiceName)
	}
	if cfg.SampleRateHz != 8000 {
		t.Errorf("expected default sample rate 8000, got %d", cfg.SampleRateHz)
	}
	if cfg.AudioEncoding != "MULAW" {
		t.Errorf("expected default encoding 'MULAW', got %s", cfg.AudioEncoding)
	}
	if cfg.SpeakingRate != 1.0 {
		t.Errorf("expected default speaking rate 1.0, got %v", cfg.SpeakingRate)
	}
}

func TestParseAudioEncoding(t *testing.T) {
	tests := []struct {
		input    string
		expected texttospeechpb.AudioEncoding
	}{
		{"LINEAR16", texttospeechpb.AudioEncoding_LINEAR16},
		{"MULAW", texttospeechpb.AudioEncoding_MULAW},
		{"ALAW", texttospeechpb.AudioEncoding_ALAW},
		{"MP3", texttospeechpb.AudioEncoding_MP3},
		{"OGG_OPUS", texttospeechpb.AudioEncoding_OGG_OPUS},
		{"", texttospeechpb.AudioEncoding_MULAW},      // fallback
		{"wav", texttospeechpb.AudioEncoding_MULAW},   // fallback
		{"mulaw", texttospeechpb.AudioEncoding_MULAW}, // fallback
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseAudioEncoding(tt.input); got != tt.expected {
				t.Errorf("parseAudioEncoding(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestBuildRequest(t *testing.T) {
	req := buildRequest(DefaultConfig(), "Great, see you then!")

	if got := req.GetInput().GetText(); got != "Great, see you then!" {
		t.Errorf("expected input text to be passed through, got %q", got)
	}
	voice := req.GetVoice()
	if voice.GetName() != "en-US-Neural2-F" || voice.GetLanguageCode() != "en-US" {
		t.Errorf("unexpected voice: %+v", voice)
	}
	if voice.GetSsmlGender() != texttospeechpb.SsmlVoiceGender_FEMALE {
		t.Errorf("expected FEMALE voice, got %v", voice.GetSsmlGender())
	}
	audio := req.GetAudioConfig()
	if audio.GetAudioEncoding() != texttospeechpb.AudioEncoding_MULAW || audio.GetSampleRateHertz() != 8000 {
		t.Errorf("unexpected audio config: %+v", audio)
	}
}
