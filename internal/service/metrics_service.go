package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation. A nil *MetricsService
// is valid and records nothing.
type MetricsService struct {
	registry           *prometheus.Registry
	handler            http.Handler
	requestDuration    *prometheus.HistogramVec
	requestTotal       *prometheus.CounterVec
	dbQueryDuration    *prometheus.HistogramVec
	registrations      *prometheus.CounterVec
	decisions          *prometheus.CounterVec
	membershipFailures prometheus.Counter
	relaySubscriptions prometheus.Gauge
	auditDropped       prometheus.Counter
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	dbQueryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "Duration of database queries",
		Buckets: prometheus.DefBuckets,
	}, []string{"query"})

	registrations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "registrations_total",
		Help: "Registration attempts by mode (created, pending) and outcome",
	}, []string{"mode", "outcome"})

	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "signup_request_decisions_total",
		Help: "Accept/reject calls on signup requests by outcome",
	}, []string{"decision", "outcome"})

	membershipFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "class_membership_push_failures_total",
		Help: "Users created directly whose class membership could not be recorded",
	})

	relaySubscriptions := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "signup_relay_active_subscriptions",
		Help: "Open signup request change streams",
	})

	auditDropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audit_logs_dropped_total",
		Help: "Audit entries that could not be queued",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, dbQueryDuration, registrations, decisions,
		membershipFailures, relaySubscriptions, auditDropped, goroutines)

	return &MetricsService{
		registry:           registry,
		handler:            promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		dbQueryDuration:    dbQueryDuration,
		registrations:      registrations,
		decisions:          decisions,
		membershipFailures: membershipFailures,
		relaySubscriptions: relaySubscriptions,
		auditDropped:       auditDropped,
	}
}

// Registry exposes the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveDBQuery records database query timing.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// RecordRegistration counts a registration attempt.
func (m *MetricsService) RecordRegistration(mode, outcome string) {
	if m == nil {
		return
	}
	m.registrations.WithLabelValues(mode, outcome).Inc()
}

// RecordDecision counts an accept/reject call.
func (m *MetricsService) RecordDecision(decision, outcome string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(decision, outcome).Inc()
}

// RecordMembershipFailure counts a failed post-creation membership push.
func (m *MetricsService) RecordMembershipFailure() {
	if m == nil {
		return
	}
	m.membershipFailures.Inc()
}

// RelaySubscribed adjusts the open stream gauge by delta.
func (m *MetricsService) RelaySubscribed(delta int) {
	if m == nil {
		return
	}
	m.relaySubscriptions.Add(float64(delta))
}

// RecordAuditDropped counts an audit entry that never reached the queue.
func (m *MetricsService) RecordAuditDropped() {
	if m == nil {
		return
	}
	m.auditDropped.Inc()
}
