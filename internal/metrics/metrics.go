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
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "endpoint", "status"},
	)

	// Business metrics
	adEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ad_events_recorded_total",
			Help: "Ad events recorded, by type",
		},
		[]string{"event_type"},
	)

	suspiciousEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ad_events_suspicious_total",
			Help: "Ad events classified suspicious, by fraud reason",
		},
		[]string{"reason"},
	)

	counterReplaysTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ad_counter_replays_total",
			Help: "Counter increments handed to the replay queue after retry exhaustion",
		},
	)

	adSelectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ad_selections_total",
			Help: "Position selections, by outcome",
		},
		[]string{"position", "outcome"},
	)
)

func RecordHTTPRequest(method, endpoint string, status int, duration time.Duration) {
	s := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, endpoint, s).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint, s).Observe(duration.Seconds())
}

func RecordAdEvent(eventType string, suspicious bool, reason string) {
	adEventsTotal.WithLabelValues(eventType).Inc()
	if suspicious {
		suspiciousEventsTotal.WithLabelValues(reason).Inc()
	}
}

func RecordCounterReplay() { counterReplaysTotal.Inc() }

func RecordSelection(position string, served bool) {
	outcome := "served"
	if !served {
		outcome = "empty"
	}
	adSelectionsTotal.WithLabelValues(position, outcome).Inc()
}

// Handler exposes the registry for the /metrics route.
func Handler() http.Handler { return promhttp.Handler() }
