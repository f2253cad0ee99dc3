// Package metrics exposes the Prometheus collectors for the service.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "boost",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "boost",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "boost",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	challengeResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "boost",
			Subsystem: "challenges",
			Name:      "resolutions_total",
			Help:      "Total number of challenge request resolutions by decision.",
		},
		[]string{"decision"},
	)

	pointsAwarded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "boost",
			Subsystem: "challenges",
			Name:      "points_awarded_total",
			Help:      "Total reward points credited through approvals.",
		},
	)

	achievementsAwarded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "boost",
			Subsystem: "achievements",
			Name:      "awarded_total",
			Help:      "Total number of achievement records appended.",
		},
	)

	notificationDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "boost",
			Subsystem: "notifications",
			Name:      "deliveries_total",
			Help:      "Total notification delivery attempts by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		challengeResolutions,
		pointsAwarded,
		achievementsAwarded,
		notificationDeliveries,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

// RecordResolution records a challenge resolution and, for approvals, the
// credited points.
func RecordResolution(decision string, rewardPoints int) {
	challengeResolutions.WithLabelValues(decision).Inc()
	if decision == "approved" && rewardPoints > 0 {
		pointsAwarded.Add(float64(rewardPoints))
	}
}

// RecordAchievement records an appended achievement.
func RecordAchievement() {
	achievementsAwarded.Inc()
}

// RecordDelivery records a notification delivery attempt outcome.
func RecordDelivery(success bool) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	notificationDeliveries.WithLabelValues(outcome).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func canonicalPath(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	switch parts[0] {
	case "users":
		if len(parts) > 1 {
			return "/users/:id"
		}
		return "/users"
	case "challenge-requests":
		if len(parts) == 3 && parts[2] == "resolve" {
			return "/challenge-requests/:id/resolve"
		}
		if len(parts) > 1 {
			return "/challenge-requests/:id"
		}
		return "/challenge-requests"
	default:
		return "/" + parts[0]
	}
}
