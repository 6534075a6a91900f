// package metrics exposes prometheus collectors for the school's activity and HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "encore"

// Metrics holds the application's collectors on a private registry.
//
// All Record methods are safe on a nil *Metrics so callers can run without instrumentation.
type Metrics struct {
	registry *prometheus.Registry

	studentsRegistered prometheus.Counter
	attendanceMarked   *prometheus.CounterVec
	paymentsRecorded   *prometheus.CounterVec
	emailsSent         *prometheus.CounterVec
	logins             *prometheus.CounterVec
	requestDuration    *prometheus.HistogramVec
}

// New creates a [Metrics] with its collectors registered. Go runtime and process collectors are included.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		studentsRegistered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "students_registered_total",
			Help:      "Students registered.",
		}),
		attendanceMarked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attendance_marked_total",
			Help:      "Attendance records marked, by status.",
		}, []string{"status"}),
		paymentsRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_recorded_total",
			Help:      "Payments recorded, by status.",
		}, []string{"status"}),
		emailsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_sent_total",
			Help:      "Emails sent, by kind and result.",
		}, []string{"kind", "result"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Login attempts, by result.",
		}, []string{"result"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.studentsRegistered,
		m.attendanceMarked,
		m.paymentsRecorded,
		m.emailsSent,
		m.logins,
		m.requestDuration,
	)
	return m
}

// Registry returns the private registry, for tests and custom collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) RecordStudentRegistered() {
	if m == nil {
		return
	}
	m.studentsRegistered.Inc()
}

func (m *Metrics) RecordAttendance(status string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.attendanceMarked.WithLabelValues(status).Add(float64(n))
}

func (m *Metrics) RecordPayment(status string) {
	if m == nil {
		return
	}
	m.paymentsRecorded.WithLabelValues(status).Inc()
}

// RecordEmail counts one email of kind (verification, contact, reminder) as sent or failed.
func (m *Metrics) RecordEmail(kind string, err error) {
	if m == nil {
		return
	}
	m.emailsSent.WithLabelValues(kind, result(err)).Inc()
}

// RecordLogin counts a login attempt by result, e.g. "success", "invalid" or "rate_limited".
func (m *Metrics) RecordLogin(result string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(result).Inc()
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware observes request latency labelled by the matched chi route pattern, so path parameters do not
// explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requestDuration.
			WithLabelValues(r.Method, route, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
	})
}

func result(err error) string {
	if err != nil {
		return "failed"
	}
	return "sent"
}
