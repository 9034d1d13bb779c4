// Package events publishes conversation events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"ai-voice-agent-service/internal/models"
	"ai-voice-agent-service/internal/observability/metrics"
	"ai-voice-agent-service/internal/schema"
)

// Publisher publishes call lifecycle and turn events to separate Kafka topics.
type Publisher struct {
	writerTurns     *kafka.Writer
	writerLifecycle *kafka.Writer
	principal       string
	topicTurns      string
	topicLifecycle  string
	enabled         bool
	validator       *schema.Validator
	metrics         *metrics.Metrics
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers        []string
	TopicTurns     string
	TopicLifecycle string
	Principal      string
	Enabled        bool
}

// New creates a publisher. When Kafka is disabled or no brokers are configured
// events are only logged.
func New(cfg *Config) *Publisher {
	m := metrics.DefaultMetrics
	v := schema.New()

	if cfg == nil {
		log.Info().Msg("Kafka disabled (nil config), using log-only mode")
		return &Publisher{validator: v, metrics: m}
	}

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("Kafka disabled, using log-only mode")
		return &Publisher{
			principal:      cfg.Principal,
			topicTurns:     cfg.TopicTurns,
			topicLifecycle: cfg.TopicLifecycle,
			validator:      v,
			metrics:        m,
		}
	}

	// Longer dial timeout for DNS resolution inside Kubernetes.
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
	transport := &kafka.Transport{
		Dial: dialer.DialFunc,
	}

	p := &Publisher{
		principal:      cfg.Principal,
		topicTurns:     cfg.TopicTurns,
		topicLifecycle: cfg.TopicLifecycle,
		enabled:        true,
		validator:      v,
		metrics:        m,
	}

	// Async writes; delivery is recorded by completion.
	newWriter := func(topic string) *kafka.Writer {
		return &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 10 * time.Millisecond,
			WriteTimeout: 10 * time.Second,
			RequiredAcks: kafka.RequireOne,
			Async:        true,
			Completion:   p.completion(topic),
			Transport:    transport,
		}
	}
	p.writerTurns = newWriter(cfg.TopicTurns)
	p.writerLifecycle = newWriter(cfg.TopicLifecycle)

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topicTurns", cfg.TopicTurns).
		Str("topicLifecycle", cfg.TopicLifecycle).
		Str("principal", cfg.Principal).
		Msg("Kafka publisher initialized")

	return p
}

// completion records the outcome of an async batch written to topic.
func (p *Publisher) completion(topic string) func([]kafka.Message, error) {
	return func(messages []kafka.Message, err error) {
		for _, msg := range messages {
			eventType := header(msg, "eventType")
			if err != nil {
				log.Error().
					Err(err).
					Str("topic", topic).
					Str("key", string(msg.Key)).
					Str("eventType", eventType).
					Msg("Failed to write to Kafka")
			}
			p.metrics.RecordKafkaPublish(topic, eventType, err, time.Since(msg.Time).Seconds())
		}
	}
}

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

// PublishTurn publishes a completed turn keyed by session id, so all turns of
// one call land on the same partition in order.
func (p *Publisher) PublishTurn(ctx context.Context, event models.TurnCompleted) error {
	if err := p.validator.Validate(event); err != nil {
		log.Warn().Err(err).Str("eventType", event.EventType).Msg("Dropping invalid turn event")
		return err
	}
	return p.publish(ctx, p.writerTurns, p.topicTurns, event.EventType, event.SessionID, event)
}

// PublishLifecycle publishes a call lifecycle event keyed by session id.
func (p *Publisher) PublishLifecycle(ctx context.Context, event models.CallLifecycle) error {
	if err := p.validator.Validate(event); err != nil {
		log.Warn().Err(err).Str("eventType", event.EventType).Msg("Dropping invalid lifecycle event")
		return err
	}
	return p.publish(ctx, p.writerLifecycle, p.topicLifecycle, event.EventType, event.SessionID, event)
}

func (p *Publisher) publish(ctx context.Context, writer *kafka.Writer, topic, eventType, key string, event any) error {
	start := time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to marshal event")
		return err
	}

	log.Debug().
		Str("principal", p.principal).
		Str("topic", topic).
		Str("key", key).
		RawJSON("payload", payload).
		Msg("Publishing event")

	if !p.enabled || writer == nil {
		p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Time:  start,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(eventType)},
			{Key: "principal", Value: []byte(p.principal)},
		},
	}

	// The writer is async: this only enqueues, delivery is recorded by completion.
	if err := writer.WriteMessages(ctx, msg); err != nil {
		log.Error().
			Err(err).
			Str("topic", topic).
			Str("key", key).
			Msg("Failed to enqueue Kafka message")
		p.metrics.RecordKafkaPublish(topic, eventType, err, time.Since(start).Seconds())
		return err
	}
	return nil
}

// Enabled reports whether events are written to Kafka.
func (p *Publisher) Enabled() bool {
	return p.enabled
}

// Close closes both Kafka writers.
func (p *Publisher) Close() error {
	var err error
	if p.writerTurns != nil {
		if e := p.writerTurns.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing turns writer")
			err = e
		}
	}
	if p.writerLifecycle != nil {
		if e := p.writerLifecycle.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing lifecycle writer")
			err = e
		}
	}
	return err
}
