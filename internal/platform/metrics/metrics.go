// Package metrics exposes Prometheus collectors for the HTTP layer and the quiz pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "quizethic"

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 14), // 5ms to ~40s
		},
		[]string{"method", "route"},
	)

	generations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "quiz",
			Name:      "generations_total",
			Help:      "Quiz generation requests by outcome.",
		},
		[]string{"outcome"},
	)

	attempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "quiz",
			Name:      "attempts_total",
			Help:      "Individual pipeline attempts by failure stage (ok on success).",
		},
		[]string{"stage"},
	)

	llmDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "call_duration_seconds",
			Help:      "Duration of LLM calls by pipeline phase.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		},
		[]string{"phase"},
	)

	providerCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "provider_calls_total",
			Help:      "Provider attempts made by the AI router, by outcome.",
		},
		[]string{"provider", "task", "outcome"},
	)

	quotaRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "usage",
			Name:      "quota_rejections_total",
			Help:      "Requests refused because the daily quota was used up.",
		},
		[]string{"tier"},
	)
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		generations,
		attempts,
		llmDuration,
		providerCalls,
		quotaRejections,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// ObserveGeneration counts a finished generation request ("ok", "failed", "quota", "invalid").
func ObserveGeneration(outcome string) {
	generations.WithLabelValues(outcome).Inc()
}

// ObserveAttempt counts one pipeline attempt by the stage it stopped at.
func ObserveAttempt(stage string) {
	attempts.WithLabelValues(stage).Inc()
}

// ObserveLLMCall records the latency of one LLM round trip.
func ObserveLLMCall(phase string, d time.Duration) {
	llmDuration.WithLabelValues(phase).Observe(d.Seconds())
}

// ObserveProviderCall counts one router attempt against a named provider.
func ObserveProviderCall(provider, task string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	providerCalls.WithLabelValues(provider, task, outcome).Inc()
}

// ObserveQuotaRejection counts a request refused by the usage gate.
func ObserveQuotaRejection(tier string) {
	quotaRejections.WithLabelValues(tier).Inc()
}

// InstrumentHandler wraps next with request count and latency collection under the given route label.
func InstrumentHandler(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rec, r)

		httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
