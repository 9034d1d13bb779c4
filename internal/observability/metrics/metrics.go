// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ai_voice_agent"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Call metrics
	CallsTotal    prometheus.Counter
	CallsActive   prometheus.Gauge
	CallDuration  prometheus.Histogram
	Transfers     prometheus.Counter
	SessionsSwept prometheus.Counter

	// Turn metrics
	TurnsTotal            *prometheus.CounterVec
	TurnLatency           prometheus.Histogram
	LatencyBudgetExceeded prometheus.Counter
	StageLatency          *prometheus.HistogramVec
	UpstreamErrors        *prometheus.CounterVec

	// Tool metrics
	ToolCalls   *prometheus.CounterVec
	ToolLatency *prometheus.HistogramVec

	// Synthesis cache metrics
	CacheHits     prometheus.Counter
	CacheMisses   prometheus.Counter
	CacheRejected prometheus.Counter

	// Audio metrics
	AudioBytesReceived  prometheus.Counter
	AudioFramesReceived prometheus.Counter
	WindowsDispatched   prometheus.Counter
	WindowsDeferred     prometheus.Counter
	AudioBytesSent      prometheus.Counter

	// Protocol metrics
	ProtocolAnomalies *prometheus.CounterVec

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec

	// gRPC metrics
	GRPCCalls *prometheus.CounterVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		CallsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_total",
			Help:      "Total number of media streams started",
		}),
		CallsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "calls_active",
			Help:      "Number of currently active call sessions",
		}),
		CallDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "call_duration_seconds",
			Help:      "Duration of call sessions in seconds",
			Buckets:   []float64{5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		}),
		Transfers: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transfers_total",
			Help:      "Total number of calls handed off to a human agent",
		}),
		SessionsSwept: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_swept_total",
			Help:      "Total number of stale sessions removed by the sweeper",
		}),

		TurnsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Total number of pipeline runs by outcome",
		}, []string{"outcome"}),
		TurnLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_latency_seconds",
			Help:      "Time from window ready to reply emitted",
			Buckets:   []float64{0.1, 0.25, 0.5, 0.75, 1, 2, 5, 10},
		}),
		LatencyBudgetExceeded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "latency_budget_exceeded_total",
			Help:      "Total number of turns that exceeded the latency budget",
		}),
		StageLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_latency_seconds",
			Help:      "Latency of external pipeline stages",
			Buckets:   []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"stage"}),
		UpstreamErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_errors_total",
			Help:      "Total number of failed upstream calls by stage",
		}, []string{"stage"}),

		ToolCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Total number of tool executions",
		}, []string{"tool", "result"}),
		ToolLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_latency_seconds",
			Help:      "Tool execution latency in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5},
		}, []string{"tool"}),

		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "synthesis_cache_hits_total",
			Help:      "Total number of synthesis cache hits",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "synthesis_cache_misses_total",
			Help:      "Total number of synthesis cache misses",
		}),
		CacheRejected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "synthesis_cache_rejected_total",
			Help:      "Total number of inserts dropped because the cache was full",
		}),

		AudioBytesReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_bytes_received_total",
			Help:      "Total audio bytes received",
		}),
		AudioFramesReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_frames_received_total",
			Help:      "Total audio frames received",
		}),
		WindowsDispatched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "windows_dispatched_total",
			Help:      "Total audio windows handed to the turn pipeline",
		}),
		WindowsDeferred: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "windows_deferred_total",
			Help:      "Times a ready window kept accumulating because a turn was in flight",
		}),
		AudioBytesSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_bytes_sent_total",
			Help:      "Total synthesized audio bytes sent to callers",
		}),

		ProtocolAnomalies: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "protocol_anomalies_total",
			Help:      "Total number of malformed or out-of-order stream events",
		}, []string{"reason"}),

		KafkaPublishTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),

		GRPCCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grpc_calls_total",
			Help:      "Total number of gRPC calls by method and code",
		}, []string{"method", "code"}),
	}
}

// RecordCallStart records a new call session.
func (m *Metrics) RecordCallStart() {
	m.CallsTotal.Inc()
	m.CallsActive.Inc()
}

// RecordCallEnd records a call session ending.
func (m *Metrics) RecordCallEnd(durationSeconds float64) {
	m.CallsActive.Dec()
	m.CallDuration.Observe(durationSeconds)
}

// RecordTransfer records a hand-off to a human agent.
func (m *Metrics) RecordTransfer() {
	m.Transfers.Inc()
}

// RecordSessionsSwept records stale sessions removed from the registry.
func (m *Metrics) RecordSessionsSwept(n int) {
	m.SessionsSwept.Add(float64(n))
}

// RecordTurn records a finished pipeline run.
func (m *Metrics) RecordTurn(outcome string, latencySeconds float64, overBudget bool) {
	m.TurnsTotal.WithLabelValues(outcome).Inc()
	m.TurnLatency.Observe(latencySeconds)
	if overBudget {
		m.LatencyBudgetExceeded.Inc()
	}
}

// RecordStage records the latency of one upstream stage.
func (m *Metrics) RecordStage(stage string, err error, latencySeconds float64) {
	m.StageLatency.WithLabelValues(stage).Observe(latencySeconds)
	if err != nil {
		m.UpstreamErrors.WithLabelValues(stage).Inc()
	}
}

// RecordToolCall records a tool execution.
func (m *Metrics) RecordToolCall(tool string, success bool, latencySeconds float64) {
	result := "success"
	if !success {
		result = "failure"
	}
	m.ToolCalls.WithLabelValues(tool, result).Inc()
	m.ToolLatency.WithLabelValues(tool).Observe(latencySeconds)
}

// RecordCacheLookup records a synthesis cache hit or miss.
func (m *Metrics) RecordCacheLookup(hit bool) {
	if hit {
		m.CacheHits.Inc()
	} else {
		m.CacheMisses.Inc()
	}
}

// RecordCacheRejected records an insert dropped at capacity.
func (m *Metrics) RecordCacheRejected() {
	m.CacheRejected.Inc()
}

// RecordAudioReceived records audio bytes and frames received.
func (m *Metrics) RecordAudioReceived(bytes int) {
	m.AudioBytesReceived.Add(float64(bytes))
	m.AudioFramesReceived.Inc()
}

// RecordAudioSent records synthesized audio sent to a caller.
func (m *Metrics) RecordAudioSent(bytes int) {
	m.AudioBytesSent.Add(float64(bytes))
}

// RecordWindow records a ready window that was dispatched or deferred.
func (m *Metrics) RecordWindow(dispatched bool) {
	if dispatched {
		m.WindowsDispatched.Inc()
	} else {
		m.WindowsDeferred.Inc()
	}
}

// RecordProtocolAnomaly records a dropped stream event.
func (m *Metrics) RecordProtocolAnomaly(reason string) {
	m.ProtocolAnomalies.WithLabelValues(reason).Inc()
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}

// RecordGRPCCall records a served gRPC call.
func (m *Metrics) RecordGRPCCall(method, code string) {
	m.GRPCCalls.WithLabelValues(method, code).Inc()
}
