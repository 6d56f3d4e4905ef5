package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Operation results used as the "result" label.
const (
	ResultOK           = "ok"
	ResultInvalid      = "invalid"
	ResultNotFound     = "not_found"
	ResultPersistError = "persist_error"
	ResultUsage        = "usage"
	ResultCanceled     = "canceled"
	ResultError        = "error"
)

// CartMetrics holds the Prometheus collectors for cart operations.
type CartMetrics struct {
	operations      *prometheus.CounterVec
	persistDuration prometheus.Histogram
	lines           prometheus.Gauge
	units           prometheus.Gauge
}

// New registers the cart collectors on reg.
func New(reg prometheus.Registerer) *CartMetrics {
	f := promauto.With(reg)
	return &CartMetrics{
		operations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cart_operations_total",
				Help: "Total number of cart operations by operation and result",
			},
			[]string{"operation", "result"},
		),
		persistDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "cart_persist_duration_seconds",
				Help:    "Duration of cart writes to the backing store",
				Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
			},
		),
		lines: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "cart_items",
				Help: "Number of distinct lines currently in the cart",
			},
		),
		units: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "cart_item_units",
				Help: "Total quantity across all cart lines",
			},
		),
	}
}

// ObserveOperation counts one operation outcome.
func (m *CartMetrics) ObserveOperation(operation, result string) {
	m.operations.WithLabelValues(operation, result).Inc()
}

// ObservePersist records the duration of one write.
func (m *CartMetrics) ObservePersist(d time.Duration) {
	m.persistDuration.Observe(d.Seconds())
}

// SetContents updates the cart size gauges.
func (m *CartMetrics) SetContents(lines, units int) {
	m.lines.Set(float64(lines))
	m.units.Set(float64(units))
}
