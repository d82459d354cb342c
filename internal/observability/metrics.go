package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cortexctl",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total admin HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cortexctl",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Admin HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	handshakeSteps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cortexctl",
			Subsystem: "handshake",
			Name:      "steps_total",
			Help:      "Handshake steps entered.",
		},
		[]string{"step"},
	)
	handshakeStep = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "cortexctl",
			Subsystem: "handshake",
			Name:      "step",
			Help:      "Ordinal of the handshake step in flight.",
		},
	)
	streamSamples = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cortexctl",
			Subsystem: "stream",
			Name:      "samples_total",
			Help:      "Stream samples interpreted, by stream.",
		},
		[]string{"stream"},
	)
	droppedMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cortexctl",
			Subsystem: "stream",
			Name:      "dropped_total",
			Help:      "Inbound messages dropped, by reason.",
		},
		[]string{"reason"},
	)
	poorQuality = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "cortexctl",
			Subsystem: "detector",
			Name:      "poor_quality_total",
			Help:      "Quality samples below the floor.",
		},
	)
	debounce = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "cortexctl",
			Subsystem: "detector",
			Name:      "debounce_count",
			Help:      "Consecutive qualifying band power samples.",
		},
	)
	triggers = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cortexctl",
			Subsystem: "trigger",
			Name:      "attempts_total",
			Help:      "Trigger attempts, by outcome.",
		},
		[]string{"outcome"},
	)
)

const (
	TriggerFired      = "fired"
	TriggerSuppressed = "suppressed"
	TriggerFailed     = "failed"
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			handshakeSteps,
			handshakeStep,
			streamSamples,
			droppedMessages,
			poorQuality,
			debounce,
			triggers,
		)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

func RecordHandshakeStep(step string, ordinal int) {
	RegisterMetrics()
	handshakeSteps.WithLabelValues(step).Inc()
	handshakeStep.Set(float64(ordinal))
}

func RecordSample(stream string) {
	RegisterMetrics()
	streamSamples.WithLabelValues(stream).Inc()
}

func RecordDropped(reason string) {
	RegisterMetrics()
	droppedMessages.WithLabelValues(reason).Inc()
}

func RecordPoorQuality() {
	RegisterMetrics()
	poorQuality.Inc()
}

func SetDebounce(count int) {
	RegisterMetrics()
	debounce.Set(float64(count))
}

func RecordTrigger(outcome string) {
	RegisterMetrics()
	triggers.WithLabelValues(outcome).Inc()
}
