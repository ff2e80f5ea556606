package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RelayRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_requests_total",
			Help: "Total number of relay requests by response status (count)",
		},
		[]string{"status"},
	)

	DispatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relay_dispatch_duration_ms",
			Help:    "Fan-out dispatch duration in milliseconds",
			Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		},
		[]string{"status"},
	)

	RecipientSendsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_recipient_sends_total",
			Help: "Total number of per-recipient send attempts (count)",
		},
		[]string{"status"},
	)

	TokenExchangesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_token_exchanges_total",
			Help: "Total number of provider access token exchanges (count)",
		},
		[]string{"status"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open) (state code)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker (count)",
		},
		[]string{"name", "state"},
	)

	CircuitBreakerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_failures_total",
			Help: "Total number of failed requests through circuit breaker (count)",
		},
		[]string{"name"},
	)
)

func RegisterRelayMetrics() {
	prometheus.MustRegister(
		RelayRequestsTotal,
		DispatchDuration,
		RecipientSendsTotal,
		TokenExchangesTotal,
	)
}

func RegisterCircuitBreakerMetrics() {
	prometheus.MustRegister(
		CircuitBreakerState,
		CircuitBreakerRequests,
		CircuitBreakerFailures,
	)
}
