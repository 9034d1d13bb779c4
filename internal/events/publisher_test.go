package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/segmentio/kafka-go"

	"ai-voice-agent-service/internal/models"
	"ai-voice-agent-service/internal/schema"
)

func TestNew_DisabledMode(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
	}{
		{"nil config", nil},
		{"disabled", &Config{Enabled: false, Brokers: []string{"localhost:9092"}}},
		{"no brokers", &Config{Enabled: true, Brokers: []string{}}},
		{"empty brokers", &Config{Enabled: true, Brokers: nil}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.cfg)
			if p == nil {
				t.Fatal("expected non-nil publisher")
			}
			if p.Enabled() {
				t.Error("expected publisher to be disabled")
			}
			if p.writerTurns != nil {
				t.Error("expected nil turns writer when disabled")
			}
			if p.writerLifecycle != nil {
				t.Error("expected nil lifecycle writer when disabled")
			}
		})
	}
}

func TestNew_EnabledCreatesWriters(t *testing.T) {
	p := New(&Config{
		Enabled:        true,
		Brokers:        []string{"localhost:9092"},
		TopicTurns:     "test.turns",
		TopicLifecycle: "test.lifecycle",
	})
	defer p.Close()

	if !p.Enabled() {
		t.Fatal("expected publisher to be enabled")
	}
	if p.writerTurns == nil || p.writerTurns.Topic != "test.turns" {
		t.Error("expected turns writer on test.turns")
	}
	if p.writerLifecycle == nil || p.writerLifecycle.Topic != "test.lifecycle" {
		t.Error("expected lifecycle writer on test.lifecycle")
	}
}

func TestNew_WritersAreAsync(t *testing.T) {
	p := New(&Config{
		Enabled:        true,
		Brokers:        []string{"localhost:9092"},
		TopicTurns:     "async.turns",
		TopicLifecycle: "async.lifecycle",
	})
	defer p.Close()

	for _, w := range []*kafka.Writer{p.writerTurns, p.writerLifecycle} {
		if !w.Async {
			t.Errorf("expected async writer for %s", w.Topic)
		}
		if w.Completion == nil {
			t.Errorf("expected completion callback for %s", w.Topic)
		}
	}
}

func TestPublisher_CompletionRecordsFailures(t *testing.T) {
	p := New(&Config{
		Enabled:        true,
		Brokers:        []string{"localhost:9092"},
		TopicTurns:     "completion.turns",
		TopicLifecycle: "completion.lifecycle",
	})
	defer p.Close()

	errs := p.metrics.KafkaPublishErrors.WithLabelValues("completion.turns", models.EventTurnCompleted)
	before := counterValue(t, errs)

	msg := kafka.Message{
		Key:     []byte("session-1"),
		Time:    time.Now(),
		Headers: []kafka.Header{{Key: "eventType", Value: []byte(models.EventTurnCompleted)}},
	}
	p.writerTurns.Completion([]kafka.Message{msg}, errors.New("broker unavailable"))
	p.writerTurns.Completion([]kafka.Message{msg}, nil)

	if got := counterValue(t, errs) - before; got != 1 {
		t.Errorf("expected 1 recorded publish error, got %v", got)
	}
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("read counter: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestNew_ConfigValues(t *testing.T) {
	p := New(&Config{
		Enabled:        false,
		Brokers:        []string{"localhost:9092"},
		TopicTurns:     "test.turns",
		TopicLifecycle: "test.lifecycle",
		Principal:      "test-principal",
	})

	if p.principal != "test-principal" {
		t.Errorf("expected principal 'test-principal', got %s", p.principal)
	}
	if p.topicTurns != "test.turns" {
		t.Errorf("expected turns topic 'test.turns', got %s", p.topicTurns)
	}
	if p.topicLifecycle != "test.lifecycle" {
		t.Errorf("expected lifecycle topic 'test.lifecycle', got %s", p.topicLifecycle)
	}
}

func TestPublisher_PublishTurn_Disabled(t *testing.T) {
	p := New(&Config{Enabled: false, TopicTurns: "test.turns"})

	err := p.PublishTurn(context.Background(), models.TurnCompleted{
		EventType:  models.EventTurnCompleted,
		SessionID:  "sess-1",
		CallID:     "CA123",
		TurnID:     "sess-1-turn-1",
		Outcome:    "replied",
		Transcript: "where is my order",
		Reply:      "It shipped yesterday.",
		Tools:      []string{"lookup_order"},
	})
	if err != nil {
		t.Errorf("expected no error when disabled, got %v", err)
	}
}

func TestPublisher_PublishLifecycle_Disabled(t *testing.T) {
	p := New(&Config{Enabled: false, TopicLifecycle: "test.lifecycle"})

	err := p.PublishLifecycle(context.Background(), models.CallLifecycle{
		EventType: models.EventCallStarted,
		SessionID: "sess-1",
		CallID:    "CA123",
		StreamID:  "MZ123",
		State:     "ACTIVE",
	})
	if err != nil {
		t.Errorf("expected no error when disabled, got %v", err)
	}
}

func TestPublisher_RejectsInvalidEvents(t *testing.T) {
	p := New(&Config{Enabled: false})

	err := p.PublishTurn(context.Background(), models.TurnCompleted{EventType: models.EventTurnCompleted})
	if !errors.Is(err, schema.ErrMissingField) {
		t.Errorf("expected ErrMissingField for turn, got %v", err)
	}

	err = p.PublishLifecycle(context.Background(), models.CallLifecycle{EventType: models.EventCallEnded})
	if !errors.Is(err, schema.ErrMissingField) {
		t.Errorf("expected ErrMissingField for lifecycle, got %v", err)
	}
}

func TestPublisher_Publish_InvalidJSON(t *testing.T) {
	p := New(&Config{Enabled: false})

	// Channels cannot be marshaled.
	err := p.publish(context.Background(), nil, "test", "test", "key", make(chan int))
	if err == nil {
		t.Error("expected error for unmarshalable event")
	}
}

func TestPublisher_Close_NoWriters(t *testing.T) {
	p := New(&Config{Enabled: false})

	if err := p.Close(); err != nil {
		t.Errorf("expected no error closing disabled publisher, got %v", err)
	}
}

func TestPublisher_Close_NilWriters(t *testing.T) {
	p := &Publisher{}

	if err := p.Close(); err != nil {
		t.Errorf("expected no error closing publisher with nil writers, got %v", err)
	}
}
