package pipeline

import "testing"

func TestTransferMatcher(t *testing.T) {
	m := newTransferMatcher(DefaultTransferPhrases)

	tests := []struct {
		text   string
		phrase string
		ok     bool
	}{
		{"I'd like to speak to agent now", "speak to agent", true},
		{"HUMAN AGENT please", "human agent", true},
		{"Can I speak to someone?", "speak to someone", true},
		{"Transfer me", "transfer me", true},
		{"where is my order", "", false},
		{"agent", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			phrase, ok := m.match(tt.text)
			if ok != tt.ok || phrase != tt.phrase {
				t.Errorf("match(%q) = %q, %v; want %q, %v", tt.text, phrase, ok, tt.phrase, tt.ok)
			}
		})
	}
}

func TestTransferMatcher_NormalizesPhrases(t *testing.T) {
	m := newTransferMatcher([]string{"  Escalate ", "", "   "})

	if len(m.phrases) != 1 {
		t.Fatalf("expected blank phrases to be dropped, got %v", m.phrases)
	}
	if _, ok := m.match("please ESCALATE this"); !ok {
		t.Error("expected case-insensitive match on normalized phrase")
	}
}
