package metrics

import (
	"database/sql"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the domain Prometheus metrics for the credential store.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	ResourcesCreated    *prometheus.CounterVec
	ResourcesDeleted    *prometheus.CounterVec
	ConformanceChecks   *prometheus.CounterVec
	ConformanceLatency  prometheus.Histogram
	CredentialsRejected *prometheus.CounterVec
	SchemaCacheLookups  *prometheus.CounterVec
}

// New creates the metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ResourcesCreated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "credstore_resources_created_total",
			Help: "Total number of resources created, labeled by resource",
		}, []string{"resource"}),
		ResourcesDeleted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "credstore_resources_deleted_total",
			Help: "Total number of resources deleted, labeled by resource",
		}, []string{"resource"}),
		ConformanceChecks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "credstore_conformance_checks_total",
			Help: "Total number of schema conformance checks, labeled by result",
		}, []string{"result"}),
		ConformanceLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "credstore_conformance_check_seconds",
			Help:    "Duration of schema conformance checks in seconds",
			Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05},
		}),
		CredentialsRejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "credstore_credentials_rejected_total",
			Help: "Total number of credential writes rejected by validation, labeled by reason",
		}, []string{"reason"}),
		SchemaCacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "credstore_schema_cache_lookups_total",
			Help: "Schema cache lookups, labeled by result (hit, miss, error)",
		}, []string{"result"}),
	}
}

// RegisterDBStats exposes database/sql pool statistics under db_name.
func RegisterDBStats(reg prometheus.Registerer, db *sql.DB, name string) error {
	return reg.Register(collectors.NewDBStatsCollector(db, name))
}

func (m *Metrics) IncrementCreated(resource string) {
	if m == nil {
		return
	}
	m.ResourcesCreated.WithLabelValues(resource).Inc()
}

func (m *Metrics) IncrementDeleted(resource string) {
	if m == nil {
		return
	}
	m.ResourcesDeleted.WithLabelValues(resource).Inc()
}

// ObserveConformance records one conformance check outcome and its duration.
func (m *Metrics) ObserveConformance(conforms bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	result := "nonconforming"
	if conforms {
		result = "conforming"
	}
	m.ConformanceChecks.WithLabelValues(result).Inc()
	m.ConformanceLatency.Observe(elapsed.Seconds())
}

func (m *Metrics) IncrementRejected(reason string) {
	if m == nil {
		return
	}
	m.CredentialsRejected.WithLabelValues(reason).Inc()
}

// RecordCacheLookup records a schema cache hit, miss or error.
func (m *Metrics) RecordCacheLookup(result string) {
	if m == nil {
		return
	}
	m.SchemaCacheLookups.WithLabelValues(result).Inc()
}
