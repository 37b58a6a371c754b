package obs

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Shared HTTP metrics.
var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// Account-security metrics. Lock escalations are the signal operators page
// on, so they get their own counter rather than a label on login outcomes.
var (
	loginAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_login_attempts_total",
			Help: "Login attempts by outcome (success, invalid, locked, error).",
		},
		[]string{"outcome"},
	)

	lockEscalations = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_lock_escalations_total",
		Help: "Lock level escalations caused by repeated failed logins.",
	})

	codesIssued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_verification_codes_issued_total",
			Help: "Verification codes issued, by kind (reset, otp).",
		},
		[]string{"kind"},
	)

	codesConsumed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_verification_codes_consumed_total",
			Help: "Verification codes successfully consumed, by kind (reset, otp).",
		},
		[]string{"kind"},
	)
)

// Init registers all metrics in the default registry.
func Init() {
	prometheus.MustRegister(
		httpInFlight, httpRequestsTotal, httpRequestDuration,
		loginAttempts, lockEscalations, codesIssued, codesConsumed,
	)
}

// ObserveLogin records a login attempt outcome.
func ObserveLogin(outcome string) {
	loginAttempts.WithLabelValues(outcome).Inc()
}

// ObserveLockEscalation records a lock level increase.
func ObserveLockEscalation() {
	lockEscalations.Inc()
}

// ObserveCodeIssued records an issued verification code.
func ObserveCodeIssued(kind string) {
	codesIssued.WithLabelValues(kind).Inc()
}

// ObserveCodeConsumed records a consumed verification code.
func ObserveCodeConsumed(kind string) {
	codesConsumed.WithLabelValues(kind).Inc()
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// CanonicalPath collapses resource identifiers so metric labels stay
// bounded.
func CanonicalPath(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}
	parts := strings.Split(path, "/")
	// /api/<collection>/<id>[...]: replace a numeric or opaque id segment.
	if len(parts) == 4 && parts[1] == "api" && parts[3] != "" {
		switch parts[3] {
		case "low-stock", "stream", "login", "register", "logout",
			"forgot-password", "reset-password", "otp", "unlock",
			"sales-by-product", "sales-by-date":
			return path
		}
		parts[3] = ":id"
		return strings.Join(parts, "/")
	}
	return path
}

// Instrument wraps a handler with RPS, latency and in-flight measurements.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	})
}

// statusWriter captures the response code for metrics.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
