package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	providerCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "quiz_gate_idp_request_duration_seconds",
		Help:    "Latency of calls to the LearnWorlds identity provider",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"operation", "outcome"})

	accessVerdicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quiz_gate_access_verdicts_total",
		Help: "Access gate verdicts by strategy and outcome",
	}, []string{"strategy", "verdict"})

	handshakes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quiz_gate_oauth_handshakes_total",
		Help: "Completed OAuth2 handshakes by outcome",
	}, []string{"outcome"})

	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "quiz_gate_sessions_active",
		Help: "Sessions currently held by the in-memory session store",
	})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quiz_gate_http_requests_total",
		Help: "HTTP requests by route pattern and status code",
	}, []string{"route", "code"})
)

// ObserveProviderCall records the duration of one identity provider round trip.
func ObserveProviderCall(operation, outcome string, d time.Duration) {
	providerCallDuration.WithLabelValues(operation, outcome).Observe(d.Seconds())
}

func RecordVerdict(strategy, verdict string) {
	accessVerdicts.WithLabelValues(strategy, verdict).Inc()
}

func RecordHandshake(outcome string) {
	handshakes.WithLabelValues(outcome).Inc()
}

func SetActiveSessions(n int) {
	activeSessions.Set(float64(n))
}

func RecordHTTPRequest(route string, code int) {
	httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
