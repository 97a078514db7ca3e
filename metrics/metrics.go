// Package metrics exposes Prometheus counters for storage activity.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts storage operations per provider. The manager records
// one operation per facade call and one error per failed call.
type Metrics struct {
	Operations     *prometheus.CounterVec
	Errors         *prometheus.CounterVec
	RecordsStored  *prometheus.CounterVec
	ActiveProvider *prometheus.GaugeVec
}

// New registers the metrics on the default registerer.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the metrics on reg. Tests pass an
// isolated registry so multiple managers can coexist in one process.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "qadash_storage_operations_total",
				Help: "Storage operations by provider and operation",
			},
			[]string{"provider", "operation"},
		),
		Errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "qadash_storage_errors_total",
				Help: "Failed storage operations by provider and operation",
			},
			[]string{"provider", "operation"},
		),
		RecordsStored: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "qadash_records_stored_total",
				Help: "Test result records written by provider",
			},
			[]string{"provider"},
		),
		ActiveProvider: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "qadash_active_provider",
				Help: "Set to 1 for the currently active storage provider",
			},
			[]string{"provider"},
		),
	}
}
