// Package metrics holds the Prometheus collectors for the HTTP surface and the auth and
// onboarding flows.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "devbhakti"

// Metrics owns a registry and the collectors registered on it.
type Metrics struct {
	Registry *prometheus.Registry

	httpInFlight prometheus.Gauge
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	otpEvents        *prometheus.CounterVec
	onboardingTx     *prometheus.CounterVec
	rateLimited      *prometheus.CounterVec
	otpSweeperClears prometheus.Counter
}

// New creates a Metrics with all collectors registered on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		}, []string{"method", "route"}),
		otpEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "otp_events_total",
			Help:      "OTP codes issued, verified and rejected.",
		}, []string{"event"}),
		onboardingTx: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "onboarding",
			Name:      "transactions_total",
			Help:      "Institution onboarding transactions by operation and outcome.",
		}, []string{"operation", "outcome"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		}, []string{"bucket"}),
		otpSweeperClears: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "expired_otps_cleared_total",
			Help:      "Expired OTP codes cleared by the sweeper.",
		}),
	}

	m.Registry.MustRegister(
		m.httpInFlight,
		m.httpRequests,
		m.httpDuration,
		m.otpEvents,
		m.onboardingTx,
		m.rateLimited,
		m.otpSweeperClears,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	return m
}

// Handler returns an HTTP handler exposing the registered metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler records request count, latency and in-flight requests. Routes are
// labelled by their chi pattern so ids do not explode cardinality.
func (m *Metrics) InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		m.httpInFlight.Inc()
		defer m.httpInFlight.Dec()

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := routePattern(r)
		method := strings.ToUpper(r.Method)

		m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	})
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// OTP event labels
const (
	OTPIssued   = "issued"
	OTPVerified = "verified"
	OTPRejected = "rejected"
)

// RecordOTP counts an OTP lifecycle event. Safe on a nil receiver.
func (m *Metrics) RecordOTP(event string) {
	if m == nil {
		return
	}
	m.otpEvents.WithLabelValues(event).Inc()
}

// RecordOnboarding counts a finished onboarding transaction. Safe on a nil receiver.
func (m *Metrics) RecordOnboarding(operation string, err error) {
	if m == nil {
		return
	}
	outcome := "committed"
	if err != nil {
		outcome = "rolled_back"
	}
	m.onboardingTx.WithLabelValues(operation, outcome).Inc()
}

// RecordRateLimited counts a rejected request for bucket. Safe on a nil receiver.
func (m *Metrics) RecordRateLimited(bucket string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(bucket).Inc()
}

// RecordOTPsCleared adds n to the sweeper counter. Safe on a nil receiver.
func (m *Metrics) RecordOTPsCleared(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.otpSweeperClears.Add(float64(n))
}
