package metrics

import (
	"log"

	"github.com/prometheus/client_golang/prometheus"
)

// ---------------------------------------------------------------------------
// Package-level metric variables. These are set by RegisterBusinessMetrics and
// referenced by the record/increment helpers below. When nil (i.e. before
// RegisterBusinessMetrics is called), callers simply skip recording.
// ---------------------------------------------------------------------------

// Auth metrics
var (
	authLoginsTotal       *prometheus.CounterVec
	authTokensIssuedTotal *prometheus.CounterVec
	authSessionsActive    prometheus.Gauge
)

// Entity metrics
var (
	entityOperationsTotal *prometheus.CounterVec
)

// RegisterBusinessMetrics registers all business-related Prometheus metrics on
// the provided registry. If reg is nil the call is a no-op.
func RegisterBusinessMetrics(reg *prometheus.Registry) {
	if reg == nil {
		return
	}

	// --- Auth metrics ---

	authLoginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrum_auth_logins_total",
			Help: "Total number of login attempts.",
		},
		[]string{"status"},
	)

	authTokensIssuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrum_auth_tokens_issued_total",
			Help: "Total number of session tokens issued.",
		},
		[]string{"token_type"},
	)

	authSessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scrum_auth_sessions_active",
		Help: "Current number of live session records.",
	})

	// --- Entity metrics ---

	entityOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrum_entity_operations_total",
			Help: "Total number of entity CRUD operations.",
		},
		[]string{"entity", "operation"},
	)

	reg.MustRegister(
		authLoginsTotal,
		authTokensIssuedTotal,
		authSessionsActive,
		entityOperationsTotal,
	)
}

// IncLoginTotal records a login attempt outcome ("success" or "failure").
// Safe to call before RegisterBusinessMetrics; it becomes a no-op.
func IncLoginTotal(status string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[metrics] recovered from panic in IncLoginTotal: %v", r)
		}
	}()

	if authLoginsTotal != nil {
		authLoginsTotal.WithLabelValues(status).Inc()
	}
}

// IncTokenIssued records an issued session token.
func IncTokenIssued(tokenType string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[metrics] recovered from panic in IncTokenIssued: %v", r)
		}
	}()

	if authTokensIssuedTotal != nil {
		authTokensIssuedTotal.WithLabelValues(tokenType).Inc()
	}
}

// SetActiveSessions sets the live session gauge.
func SetActiveSessions(n int) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[metrics] recovered from panic in SetActiveSessions: %v", r)
		}
	}()

	if authSessionsActive != nil {
		authSessionsActive.Set(float64(n))
	}
}

// IncEntityOperation records one CRUD operation against a named entity.
func IncEntityOperation(entity, operation string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[metrics] recovered from panic in IncEntityOperation: %v", r)
		}
	}()

	if entityOperationsTotal != nil {
		entityOperationsTotal.WithLabelValues(entity, operation).Inc()
	}
}
