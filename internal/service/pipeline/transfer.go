package pipeline

import "strings"

// DefaultTransferPhrases trigger a hand-off to a human agent when found
// anywhere in a transcript, ignoring case.
var DefaultTransferPhrases = []string{
	"speak to agent",
	"talk to human",
	"human agent",
	"real person",
	"speak to someone",
	"transfer me",
	"customer service",
}

// transferMatcher matches transcripts against lower-cased phrases.
type transferMatcher struct {
	phrases []string
}

func newTransferMatcher(phrases []string) transferMatcher {
	m := transferMatcher{phrases: make([]string, 0, len(phrases))}
	for _, p := range phrases {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			m.phrases = append(m.phrases, p)
		}
	}
	return m
}

// match returns the first phrase contained in text.
func (m transferMatcher) match(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, p := range m.phrases {
		if strings.Contains(lower, p) {
			return p, true
		}
	}
	return "", false
}
