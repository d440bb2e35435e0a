// Package metrics holds the Prometheus collectors shared by the canteen services.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "canteen"

// Metrics is nil-safe: every method is a no-op on a nil receiver so packages
// can be used without wiring a registry (tests, CLI).
type Metrics struct {
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
	StockOps         *prometheus.CounterVec
	StockUnits       *prometheus.CounterVec
	SweepDuration    prometheus.Histogram
	ExpiredLocks     prometheus.Counter
	AvailableStock   *prometheus.GaugeVec
	OrderTransitions *prometheus.CounterVec
}

// New builds the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
			Help: "HTTP request latency.", Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		StockOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "stock", Name: "operations_total",
			Help: "Stock reservation operations by kind and result.",
		}, []string{"op", "result"}),
		StockUnits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "stock", Name: "units_total",
			Help: "Units moved by reservation operations.",
		}, []string{"op"}),
		SweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "stock", Name: "sweep_duration_seconds",
			Help: "Duration of expired-lock sweeps.", Buckets: prometheus.DefBuckets,
		}),
		ExpiredLocks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "stock", Name: "expired_locks_total",
			Help: "Reservations released by the expiry sweep.",
		}),
		AvailableStock: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "stock", Name: "available_units",
			Help: "Available units per menu item, refreshed by the stock health check.",
		}, []string{"menu_item_id"}),
		OrderTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "orders", Name: "transitions_total",
			Help: "Order status transitions by target status.",
		}, []string{"status"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.HTTPRequests, m.HTTPDuration, m.StockOps, m.StockUnits,
			m.SweepDuration, m.ExpiredLocks, m.AvailableStock, m.OrderTransitions,
		)
	}
	return m
}

func (m *Metrics) ObserveHTTP(method, route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, status).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(seconds)
}

func (m *Metrics) StockOp(op string, err error, units int) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.StockOps.WithLabelValues(op, result).Inc()
	if err == nil && units > 0 {
		m.StockUnits.WithLabelValues(op).Add(float64(units))
	}
}

func (m *Metrics) Sweep(seconds float64, expired int) {
	if m == nil {
		return
	}
	m.SweepDuration.Observe(seconds)
	m.ExpiredLocks.Add(float64(expired))
}

func (m *Metrics) SetAvailable(menuItemID string, units int) {
	if m == nil {
		return
	}
	m.AvailableStock.WithLabelValues(menuItemID).Set(float64(units))
}

func (m *Metrics) OrderTransition(status string) {
	if m == nil {
		return
	}
	m.OrderTransitions.WithLabelValues(status).Inc()
}
