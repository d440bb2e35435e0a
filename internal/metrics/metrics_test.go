package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestStockOp_CountsResultAndUnits(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.StockOp("lock", nil, 3)
	m.StockOp("lock", errors.New("boom"), 3)

	if got := testutil.ToFloat64(m.StockOps.WithLabelValues("lock", "ok")); got != 1 {
		t.Fatalf("ok=%v", got)
	}
	if got := testutil.ToFloat64(m.StockOps.WithLabelValues("lock", "error")); got != 1 {
		t.Fatalf("error=%v", got)
	}
	if got := testutil.ToFloat64(m.StockUnits.WithLabelValues("lock")); got != 3 {
		t.Fatalf("units=%v, failed ops must not count units", got)
	}
}

func TestNilMetrics_NoPanic(t *testing.T) {
	var m *Metrics
	m.StockOp("lock", nil, 1)
	m.Sweep(0.1, 2)
	m.SetAvailable("x", 1)
	m.ObserveHTTP("GET", "/", "200", 0.01)
	m.OrderTransition("confirmed")
}
