package google

import (
	"bytes"
	"testing"

	"cloud.google.com/go/speech/apiv1/speechpb"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.LanguageCode != "en-US" {
		t.Errorf("expected default language 'en-US', got %s", cfg.LanguageCode)
	}
	if cfg.SampleRateHz != 8000 {
		t.Errorf("expected default sample rate 8000, got %d", cfg.SampleRateHz)
	}
	if cfg.AudioEncoding != "MULAW" {
		t.Errorf("expected default encoding 'MULAW', got %s", cfg.AudioEncoding)
	}
	if cfg.Model != "phone_call" {
		t.Errorf("expected default model 'phone_call', got %s", cfg.Model)
	}
	if !cfg.UseEnhanced || !cfg.AutomaticPunctuation {
		t.Error("expected enhanced model and automatic punctuation by default")
	}
}

func TestParseAudioEncoding(t *testing.T) {
	tests := []struct {
		input    string
		expected speechpb.RecognitionConfig_AudioEncoding
	}{
		{"LINEAR16", speechpb.RecognitionConfig_LINEAR16},
		{"MULAW", speechpb.RecognitionConfig_MULAW},
		{"FLAC", speechpb.RecognitionConfig_FLAC},
		{"AMR", speechpb.RecognitionConfig_AMR},
		{"AMR_WB", speechpb.RecognitionConfig_AMR_WB},
		{"OGG_OPUS", speechpb.RecognitionConfig_OGG_OPUS},
		{"SPEEX_WITH_HEADER_BYTE", speechpb.RecognitionConfig_SPEEX_WITH_HEADER_BYTE},
		{"WEBM_OPUS", speechpb.RecognitionConfig_WEBM_OPUS},
		{"mulaw", speechpb.RecognitionConfig_MULAW},   // fallback
		{"invalid", speechpb.RecognitionConfig_MULAW}, // fallback
		{"", speechpb.RecognitionConfig_MULAW},        // fallback
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseAudioEncoding(tt.input)
			if got != tt.expected {
				t.Errorf("parseAudioEncoding(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestBuildRequest(t *testing.T) {
	audio := []byte{0xff, 0x7f, 0x10}
	req := buildRequest(DefaultConfig(), audio)

	cfg := req.GetConfig()
	if cfg.GetEncoding() != speechpb.RecognitionConfig_MULAW {
		t.Errorf("expected MULAW, got %v", cfg.GetEncoding())
	}
	if cfg.GetSampleRateHertz() != 8000 {
		t.Errorf("expected 8000 Hz, got %d", cfg.GetSampleRateHertz())
	}
	if cfg.GetModel() != "phone_call" || !cfg.GetUseEnhanced() || !cfg.GetEnableAutomaticPunctuation() {
		t.Errorf("unexpected recognition config: %+v", cfg)
	}
	if !bytes.Equal(req.GetAudio().GetContent(), audio) {
		t.Errorf("expected audio content to be passed through")
	}
}

func TestJoinResults(t *testing.T) {
	tests := []struct {
		name string
		resp *speechpb.RecognizeResponse
		want string
	}{
		{"nil response", nil, ""},
		{"no results", &speechpb.RecognizeResponse{}, ""},
		{
			name: "single result",
			resp: &speechpb.RecognizeResponse{Results: []*speechpb.SpeechRecognitionResult{
				{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: "where is my order"}}},
			}},
			want: "where is my order",
		},
		{
			name: "multiple results use top alternative",
			resp: &speechpb.RecognizeResponse{Results: []*speechpb.SpeechRecognitionResult{
				{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: "Hello."}, {Transcript: "Yellow."}}},
				{Alternatives: nil},
				{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: " I need help. "}}},
			}},
			want: "Hello. I need help.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := joinResults(tt.resp); got != tt.want {
				t.Errorf("joinResults() = %q, want %q", got, tt.want)
			}
		})
	}
}
