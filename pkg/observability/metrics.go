// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the chatbridge gateway.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rhuss/chatbridge/pkg/api"
)

// LLMBuckets are histogram buckets for inference latencies, 100ms to 120s.
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

var (
	// RequestsTotal counts HTTP requests by method, route pattern and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatbridge_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatbridge_request_duration_seconds",
			Help:    "Request duration",
			Buckets: LLMBuckets,
		},
		[]string{"method", "route"},
	)

	// StreamingConnections tracks SSE responses currently being written.
	StreamingConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chatbridge_streaming_connections_active",
			Help: "Active streaming connections",
		},
	)

	ProviderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatbridge_provider_requests_total",
			Help: "Provider requests",
		},
		[]string{"provider", "model", "status"},
	)

	// ProviderLatency measures the full provider exchange, including the
	// whole stream for streaming requests.
	ProviderLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatbridge_provider_latency_seconds",
			Help:    "Provider latency",
			Buckets: LLMBuckets,
		},
		[]string{"provider", "model"},
	)

	ProviderTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatbridge_provider_tokens_total",
			Help: "Token count",
		},
		[]string{"provider", "model", "direction"},
	)

	// StreamOutcomesTotal counts finished streams by outcome; see Outcome.
	StreamOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatbridge_stream_outcomes_total",
			Help: "Stream outcomes",
		},
		[]string{"provider", "outcome"},
	)

	// StreamEventsTotal counts normalized stream events by kind.
	StreamEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatbridge_stream_events_total",
			Help: "Stream events",
		},
		[]string{"provider", "kind"},
	)

	// ToolCallsTotal counts tool calls reconstructed from model output.
	ToolCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatbridge_tool_calls_total",
			Help: "Tool calls",
		},
		[]string{"provider", "tool_name"},
	)

	AuthRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatbridge_auth_rejected_total",
			Help: "Auth rejections",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		StreamingConnections,
		ProviderRequestsTotal,
		ProviderLatency,
		ProviderTokensTotal,
		StreamOutcomesTotal,
		StreamEventsTotal,
		ToolCallsTotal,
		AuthRejectedTotal,
	)
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Outcome classifies the result of a chat call for metric labels:
// "completed", or the APIError type ("provider_error", "incomplete",
// "cancelled", ...). Errors that are not APIErrors count as "error".
func Outcome(err error) string {
	if err == nil {
		return "completed"
	}
	if apiErr, ok := api.AsAPIError(err); ok {
		return string(apiErr.Type)
	}
	return "error"
}

// RecordProviderCall records one provider exchange.
func RecordProviderCall(provider, model string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	ProviderRequestsTotal.WithLabelValues(provider, model, status).Inc()
	ProviderLatency.WithLabelValues(provider, model).Observe(d.Seconds())
}

// RecordResult records usage and tool calls from a final response.
func RecordResult(provider string, resp *api.ChatResponse) {
	if resp == nil {
		return
	}
	if u := resp.Usage; u != nil {
		ProviderTokensTotal.WithLabelValues(provider, resp.Model, "input").Add(float64(u.InputTokens))
		ProviderTokensTotal.WithLabelValues(provider, resp.Model, "output").Add(float64(u.OutputTokens))
		if u.ReasoningTokens > 0 {
			ProviderTokensTotal.WithLabelValues(provider, resp.Model, "reasoning").Add(float64(u.ReasoningTokens))
		}
	}
	for _, tc := range resp.ToolCalls {
		ToolCallsTotal.WithLabelValues(provider, tc.Name).Inc()
	}
}
