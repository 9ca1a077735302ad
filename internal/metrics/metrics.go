// Package metrics exposes swarm store activity as Prometheus metrics.
package metrics

import (
	"github.com/dyluth/swarmstate/pkg/swarmstore"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Operation results used as the "result" label.
const (
	ResultSuccess  = "success"
	ResultNotFound = "not_found"
	ResultError    = "error"
)

// StoreMetrics implements swarmstore.Recorder.
type StoreMetrics struct {
	// OperationsTotal counts store operations by operation and result
	OperationsTotal *prometheus.CounterVec

	// IndexRepairsTotal counts stale ids pruned from a secondary index
	IndexRepairsTotal *prometheus.CounterVec
}

var _ swarmstore.Recorder = (*StoreMetrics)(nil)

// New registers the store metrics with reg.
func New(reg prometheus.Registerer) *StoreMetrics {
	factory := promauto.With(reg)
	return &StoreMetrics{
		OperationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "swarmstate_operations_total",
			Help: "Total swarm store operations by operation and result",
		}, []string{"operation", "result"}),
		IndexRepairsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "swarmstate_index_repairs_total",
			Help: "Stale ids pruned from secondary indexes during reads",
		}, []string{"index"}),
	}
}

// ObserveOperation implements swarmstore.Recorder.
func (m *StoreMetrics) ObserveOperation(op string, err error) {
	m.OperationsTotal.WithLabelValues(op, result(err)).Inc()
}

// IndexRepaired implements swarmstore.Recorder.
func (m *StoreMetrics) IndexRepaired(index string) {
	m.IndexRepairsTotal.WithLabelValues(index).Inc()
}

func result(err error) string {
	switch {
	case err == nil:
		return ResultSuccess
	case swarmstore.IsNotFound(err):
		return ResultNotFound
	default:
		return ResultError
	}
}
