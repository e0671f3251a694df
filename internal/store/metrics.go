package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/roach88/pushdown/internal/ir"
	"github.com/roach88/pushdown/internal/pushdown"
)

// Metrics observes statements executed by the store.
type Metrics interface {
	// ObservePlan records one optimized statement for source.
	ObservePlan(source string, plan pushdown.Result)
	// ObserveRows records how many rows the database returned and how many
	// survived the remaining pipeline.
	ObserveRows(source string, fetched, returned int)
}

var _ Metrics = &prometheusMetrics{}

type prometheusMetrics struct {
	statements *prometheus.CounterVec
	pushed     *prometheus.CounterVec
	fallbacks  *prometheus.CounterVec
	remaining  *prometheus.GaugeVec
	fetched    *prometheus.CounterVec
	returned   *prometheus.CounterVec
}

// NewPrometheusMetrics registers the store collectors with reg. A nil reg
// uses prometheus.DefaultRegisterer.
func NewPrometheusMetrics(reg prometheus.Registerer) Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &prometheusMetrics{
		statements: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pushdown_statements_total",
			Help: "Number of statements executed, by source and winning strategy",
		}, []string{"source", "strategy"}),
		pushed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pushdown_operations_pushed_total",
			Help: "Number of pipeline operations handled by SQL, by kind",
		}, []string{"source", "kind"}),
		fallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pushdown_fallbacks_total",
			Help: "Number of statements for which nothing could be pushed down",
		}, []string{"source"}),
		remaining: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pushdown_remaining_operations",
			Help: "Operations evaluated in memory by the last statement",
		}, []string{"source"}),
		fetched: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pushdown_rows_fetched_total",
			Help: "Rows returned by the database",
		}, []string{"source"}),
		returned: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pushdown_rows_returned_total",
			Help: "Rows returned to the caller after in-memory evaluation",
		}, []string{"source"}),
	}
}

func (m *prometheusMetrics) ObservePlan(source string, plan pushdown.Result) {
	m.statements.WithLabelValues(source, plan.Strategy).Inc()
	if plan.Metrics.IsZero() {
		m.fallbacks.WithLabelValues(source).Inc()
	}
	var filters, sorts, skips, limits int
	for _, op := range plan.Pushed {
		switch op.(type) {
		case ir.Filter:
			filters++
		case ir.Sorted:
			sorts++
		case ir.Skip:
			skips++
		case ir.Limit:
			limits++
		}
	}
	// Pagination a dialect cannot express is matched but stays in memory,
	// so only operations compiled into the statement are counted.
	m.pushed.WithLabelValues(source, "filter").Add(float64(filters))
	m.pushed.WithLabelValues(source, "sorted").Add(float64(sorts))
	m.pushed.WithLabelValues(source, "skip").Add(float64(skips))
	m.pushed.WithLabelValues(source, "limit").Add(float64(limits))
	m.remaining.WithLabelValues(source).Set(float64(len(plan.Remaining)))
}

func (m *prometheusMetrics) ObserveRows(source string, fetched, returned int) {
	m.fetched.WithLabelValues(source).Add(float64(fetched))
	m.returned.WithLabelValues(source).Add(float64(returned))
}

type nopMetrics struct {
}

// NewNopMetrics returns a Metrics that discards everything.
func NewNopMetrics() Metrics {
	return &nopMetrics{}
}

func (m *nopMetrics) ObservePlan(string, pushdown.Result) {
}

func (m *nopMetrics) ObserveRows(string, int, int) {
}
