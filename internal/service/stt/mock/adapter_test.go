package mock

import (
	"context"
	"testing"
	"time"
)

func TestAdapter_CyclesUtterances(t *testing.T) {
	a := NewWithUtterances([]string{"one", "two"}, 0)
	speech := []byte{0x10, 0x20, 0x30}

	want := []string{"one", "two", "one"}
	for i, w := range want {
		got, err := a.Transcribe(context.Background(), speech)
		if err != nil {
			t.Fatalf("call %d: unexpected error: %v", i, err)
		}
		if got != w {
			t.Errorf("call %d: expected %q, got %q", i, w, got)
		}
	}
	if a.Calls() != 3 {
		t.Errorf("expected 3 calls, got %d", a.Calls())
	}
}

func TestAdapter_SilenceDoesNotAdvanceScript(t *testing.T) {
	a := NewWithUtterances([]string{"one", "two"}, 0)

	tests := []struct {
		name  string
		audio []byte
		want  string
	}{
		{"empty window", nil, ""},
		{"mu-law silence", []byte{0xff, 0xff, 0x7f, 0xff}, ""},
		{"speech", []byte{0xff, 0x12}, "one"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := a.Transcribe(context.Background(), tt.audio)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestAdapter_DefaultScript(t *testing.T) {
	a := New()
	got, _ := a.Transcribe(context.Background(), []byte{0x01})
	if got != DefaultUtterances[0] {
		t.Errorf("expected first default utterance, got %q", got)
	}
}

func TestAdapter_LatencyRespectsContext(t *testing.T) {
	a := NewWithUtterances([]string{"slow"}, time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := a.Transcribe(ctx, []byte{0x01}); err == nil {
		t.Error("expected context error")
	}
}
