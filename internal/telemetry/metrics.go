// Package telemetry provides Prometheus metrics for the chat pipeline.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Counters
	MessagesProduced = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hopii_messages_produced_total",
		Help: "Chat messages emitted by each producer",
	}, []string{"source"})
	DuplicatesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hopii_duplicates_dropped_total",
		Help: "Messages discarded by the merger as duplicates",
	}, []string{"source"})
	ProducerErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hopii_producer_errors_total",
		Help: "Failed producer polls",
	}, []string{"source"})
	ProducerRestarts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hopii_producer_restarts_total",
		Help: "Producer restarts after hitting the error threshold",
	}, []string{"source"})
	Decisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hopii_relevance_decisions_total",
		Help: "Relevance decisions by deciding rule and outcome",
	}, []string{"rule", "relevant"})
	Responses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hopii_responses_total",
		Help: "Responses generated, by outcome",
	}, []string{"outcome"})

	// Histograms (seconds)
	ResponseDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "hopii_response_duration_seconds",
		Help:    "Time spent generating a response",
		Buckets: prometheus.DefBuckets,
	})

	// Gauges
	ProducerUp = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "hopii_producer_state",
		Help: "1 for the producer's current lifecycle state, 0 otherwise",
	}, []string{"source", "state"})
	ChatLogQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hopii_chat_log_queue_depth",
		Help: "Chat log records waiting for the batch writer",
	})
)

var producerStates = []string{"INIT", "RUNNING", "ERROR", "RESTARTING", "STOPPED"}

// SetProducerState marks state as the current one for source.
func SetProducerState(source, state string) {
	for _, s := range producerStates {
		v := 0.0
		if s == state {
			v = 1
		}
		ProducerUp.WithLabelValues(source, s).Set(v)
	}
}

// ProducerError counts a failed poll.
func ProducerError(source string) { ProducerErrors.WithLabelValues(source).Inc() }

// ProducerRestart counts a restart.
func ProducerRestart(source string) { ProducerRestarts.WithLabelValues(source).Inc() }

// Produced counts n emitted messages.
func Produced(source string, n int) {
	if n > 0 {
		MessagesProduced.WithLabelValues(source).Add(float64(n))
	}
}

// Duplicate counts a dropped duplicate.
func Duplicate(source string) { DuplicatesDropped.WithLabelValues(source).Inc() }

// Decision counts a relevance verdict.
func Decision(rule string, relevant bool) {
	r := "false"
	if relevant {
		r = "true"
	}
	Decisions.WithLabelValues(rule, r).Inc()
}
