// Package metrics contains middlewares and counters for metrics gathering.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP Requests total counter
var totalRequests = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP Requests.",
	},
	[]string{"method", "route", "status"},
)

// HTTP Response duration
var duration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "http_duration_seconds",
		Help:    "HTTP Requests Duration",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"method", "route"},
)

// Appointment operations by outcome, e.g. create/ok, create/SLOT_UNAVAILABLE.
var appointmentOperations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "appointment_operations_total",
		Help: "Appointment lifecycle operations by outcome.",
	},
	[]string{"operation", "outcome"},
)

func init() {
	prometheus.MustRegister(totalRequests, duration, appointmentOperations)
}

// routePattern returns the matched chi route pattern, or "unmatched".
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}

// PrometheusMiddleware instruments the given request and register metrics.
func PrometheusMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		timer := prometheus.NewTimer(prometheus.ObserverFunc(func(v float64) {
			duration.WithLabelValues(r.Method, routePattern(r)).Observe(v)
		}))
		next.ServeHTTP(ww, r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		totalRequests.WithLabelValues(r.Method, routePattern(r), strconv.Itoa(status)).Inc()
		timer.ObserveDuration()
	})
}

// ObserveAppointmentOperation counts one appointment operation with its outcome.
func ObserveAppointmentOperation(operation, outcome string) {
	appointmentOperations.WithLabelValues(operation, outcome).Inc()
}

// Handler exposes the registered metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
