package stock_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"github.com/MikeMC777/canteen-ordering/internal/events"
	"github.com/MikeMC777/canteen-ordering/internal/metrics"
	"github.com/MikeMC777/canteen-ordering/internal/stock"
)

const (
	burger = "item-burger"
	fries  = "item-fries"
	soda   = "item-soda"
)

type StockServiceSuite struct {
	suite.Suite
	ctx     context.Context
	now     time.Time
	store   *stock.MemStore
	rec     *events.Recorder
	metrics *metrics.Metrics
	svc     *stock.Service
}

func (s *StockServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	s.store = stock.NewMemStore()
	s.store.PutItem(burger, "Burger", "Mains", 10, true)
	s.store.PutItem(fries, "Fries", "Sides", 5, true)
	s.store.PutItem(soda, "Soda", "Drinks", 1, true)
	s.rec = &events.Recorder{}
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.svc = stock.NewService(s.store,
		stock.WithClock(func() time.Time { return s.now }),
		stock.WithPublisher(s.rec),
		stock.WithMetrics(s.metrics),
	)
}

func (s *StockServiceSuite) available(id string) int {
	lvl, err := s.svc.Level(s.ctx, id)
	s.Require().NoError(err)
	return lvl.Available
}

func (s *StockServiceSuite) TestLockDecrementsAndHolds() {
	locks, err := s.svc.Lock(s.ctx, "order-1", []stock.Request{{MenuItemID: burger, Quantity: 3}})
	s.Require().NoError(err)
	s.Require().Len(locks, 1)
	s.Equal(stock.LockActive, locks[0].Status)
	s.Equal(s.now.Add(15*time.Minute), locks[0].ExpiresAt)

	lvl, err := s.svc.Level(s.ctx, burger)
	s.Require().NoError(err)
	s.Equal(7, lvl.Available)
	s.Equal(3, lvl.Locked)
	s.Equal(10, lvl.OnHand)
	s.Equal([]string{events.StockLocked}, s.rec.Types())
}

func (s *StockServiceSuite) TestLockMergesDuplicateItems() {
	locks, err := s.svc.Lock(s.ctx, "order-1", []stock.Request{
		{MenuItemID: burger, Quantity: 1},
		{MenuItemID: burger, Quantity: 2},
	})
	s.Require().NoError(err)
	s.Require().Len(locks, 1)
	s.Equal(3, locks[0].Quantity)
	s.Equal(7, s.available(burger))
}

func (s *StockServiceSuite) TestLockIsAllOrNothing() {
	_, err := s.svc.Lock(s.ctx, "order-1", []stock.Request{
		{MenuItemID: burger, Quantity: 2},
		{MenuItemID: soda, Quantity: 2},
	})
	s.Require().ErrorIs(err, stock.ErrInsufficientStock)

	var ise *stock.InsufficientStockError
	s.Require().True(errors.As(err, &ise))
	s.Equal(soda, ise.MenuItemID)
	s.Equal(1, ise.Available)
	s.Equal(2, ise.Requested)

	s.Equal(10, s.available(burger))
	s.Equal(1, s.available(soda))
	active, err := s.svc.ActiveLocks(s.ctx)
	s.Require().NoError(err)
	s.Empty(active)
	s.Empty(s.rec.Events)
}

func (s *StockServiceSuite) TestLockValidation() {
	cases := []struct {
		name    string
		orderID string
		reqs    []stock.Request
		want    error
	}{
		{"empty order", "", []stock.Request{{MenuItemID: burger, Quantity: 1}}, stock.ErrInvalidRequest},
		{"no items", "o", nil, stock.ErrInvalidRequest},
		{"zero quantity", "o", []stock.Request{{MenuItemID: burger, Quantity: 0}}, stock.ErrInvalidRequest},
		{"negative quantity", "o", []stock.Request{{MenuItemID: burger, Quantity: -1}}, stock.ErrInvalidRequest},
		{"unknown item", "o", []stock.Request{{MenuItemID: "nope", Quantity: 1}}, stock.ErrItemNotFound},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			_, err := s.svc.Lock(s.ctx, tc.orderID, tc.reqs)
			s.ErrorIs(err, tc.want)
		})
	}
	s.Equal(10, s.available(burger))
}

func (s *StockServiceSuite) TestLockUnavailableItem() {
	s.store.PutItem("item-soup", "Soup", "Mains", 4, false)
	_, err := s.svc.Lock(s.ctx, "order-1", []stock.Request{{MenuItemID: "item-soup", Quantity: 1}})
	s.ErrorIs(err, stock.ErrItemUnavailable)
	s.Equal(4, s.available("item-soup"))
}

func (s *StockServiceSuite) TestLockTwiceForSameOrder() {
	_, err := s.svc.Lock(s.ctx, "order-1", []stock.Request{{MenuItemID: burger, Quantity: 1}})
	s.Require().NoError(err)
	_, err = s.svc.Lock(s.ctx, "order-1", []stock.Request{{MenuItemID: fries, Quantity: 1}})
	s.ErrorIs(err, stock.ErrAlreadyLocked)
	s.Equal(5, s.available(fries))
}

func (s *StockServiceSuite) TestConcurrentLocksNeverOversell() {
	const buyers = 50
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		won      int
		rejected int
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.svc.Lock(s.ctx, fmt.Sprintf("order-%d", i), []stock.Request{{MenuItemID: burger, Quantity: 1}})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				won++
			case errors.Is(err, stock.ErrInsufficientStock):
				rejected++
			}
		}(i)
	}
	wg.Wait()

	s.Equal(10, won)
	s.Equal(buyers-10, rejected)
	lvl, err := s.svc.Level(s.ctx, burger)
	s.Require().NoError(err)
	s.Equal(0, lvl.Available)
	s.Equal(10, lvl.Locked)
}

func (s *StockServiceSuite) TestConfirmKeepsDeduction() {
	_, err := s.svc.Lock(s.ctx, "order-1", []stock.Request{{MenuItemID: fries, Quantity: 2}})
	s.Require().NoError(err)

	locks, err := s.svc.Confirm(s.ctx, "order-1")
	s.Require().NoError(err)
	s.Require().Len(locks, 1)
	s.Equal(stock.LockConfirmed, locks[0].Status)

	lvl, err := s.svc.Level(s.ctx, fries)
	s.Require().NoError(err)
	s.Equal(3, lvl.Available)
	s.Equal(0, lvl.Locked)

	_, err = s.svc.Confirm(s.ctx, "order-1")
	s.ErrorIs(err, stock.ErrNoActiveLocks)
}

func (s *StockServiceSuite) TestConfirmAfterExpiryFails() {
	_, err := s.svc.Lock(s.ctx, "order-1", []stock.Request{{MenuItemID: fries, Quantity: 2}})
	s.Require().NoError(err)

	s.now = s.now.Add(16 * time.Minute)
	_, err = s.svc.Confirm(s.ctx, "order-1")
	s.ErrorIs(err, stock.ErrLockExpired)
	s.Equal(3, s.available(fries))

	n, err := s.svc.Sweep(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, n)
	s.Equal(5, s.available(fries))
}

func (s *StockServiceSuite) TestReleaseIsIdempotent() {
	_, err := s.svc.Lock(s.ctx, "order-1", []stock.Request{{MenuItemID: burger, Quantity: 4}})
	s.Require().NoError(err)

	locks, err := s.svc.Release(s.ctx, "order-1")
	s.Require().NoError(err)
	s.Len(locks, 1)
	s.Equal(10, s.available(burger))

	locks, err = s.svc.Release(s.ctx, "order-1")
	s.Require().NoError(err)
	s.Empty(locks)
	s.Equal(10, s.available(burger))

	// a released order may reserve again
	_, err = s.svc.Lock(s.ctx, "order-1", []stock.Request{{MenuItemID: burger, Quantity: 1}})
	s.NoError(err)
}

func (s *StockServiceSuite) TestReleaseConfirmedRestoresStock() {
	_, err := s.svc.Lock(s.ctx, "order-1", []stock.Request{{MenuItemID: burger, Quantity: 2}})
	s.Require().NoError(err)
	_, err = s.svc.Confirm(s.ctx, "order-1")
	s.Require().NoError(err)

	_, err = s.svc.Release(s.ctx, "order-1")
	s.Require().NoError(err)
	s.Equal(10, s.available(burger))

	txs, err := s.svc.Transactions(s.ctx, 10, 0)
	s.Require().NoError(err)
	s.Require().Len(txs, 3)
	s.Equal(stock.TxRestore, txs[0].Type)
	s.Equal(2, txs[0].Delta)
	s.Equal(stock.TxConfirm, txs[1].Type)
	s.Equal(0, txs[1].Delta)
	s.Equal(stock.TxLock, txs[2].Type)
	s.Equal(-2, txs[2].Delta)
}

func (s *StockServiceSuite) TestSweepDrainsInBatches() {
	svc := stock.NewService(s.store,
		stock.WithClock(func() time.Time { return s.now }),
		stock.WithBatchSize(2),
		stock.WithMetrics(s.metrics),
	)
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("order-%d", i)
		s.store.PutOrder(id, s.now.Add(15*time.Minute))
		_, err := svc.Lock(s.ctx, id, []stock.Request{{MenuItemID: burger, Quantity: 1}})
		s.Require().NoError(err)
	}
	_, err := svc.Lock(s.ctx, "late", []stock.Request{{MenuItemID: fries, Quantity: 1}})
	s.Require().NoError(err)

	n, err := svc.Sweep(s.ctx)
	s.Require().NoError(err)
	s.Equal(0, n)

	s.now = s.now.Add(15 * time.Minute)
	n, err = svc.Sweep(s.ctx)
	s.Require().NoError(err)
	s.Equal(6, n)
	s.Equal(10, s.available(burger))
	s.Equal(5, s.available(fries))
	s.Equal("expired", s.store.OrderStatus("order-3"))
	s.Equal(6.0, testutil.ToFloat64(s.metrics.ExpiredLocks))

	// nothing left for a second pass
	n, err = svc.Sweep(s.ctx)
	s.Require().NoError(err)
	s.Equal(0, n)
}

func (s *StockServiceSuite) TestSweepLeavesConfirmedLocks() {
	_, err := s.svc.Lock(s.ctx, "order-1", []stock.Request{{MenuItemID: burger, Quantity: 2}})
	s.Require().NoError(err)
	_, err = s.svc.Confirm(s.ctx, "order-1")
	s.Require().NoError(err)

	s.now = s.now.Add(time.Hour)
	n, err := s.svc.Sweep(s.ctx)
	s.Require().NoError(err)
	s.Equal(0, n)
	s.Equal(8, s.available(burger))
}

func (s *StockServiceSuite) TestConfirmedOrderSurvivesSweep() {
	s.store.PutOrder("order-1", s.now.Add(15*time.Minute))
	_, err := s.svc.Lock(s.ctx, "order-1", []stock.Request{{MenuItemID: burger, Quantity: 4}})
	s.Require().NoError(err)
	_, err = s.svc.Confirm(s.ctx, "order-1")
	s.Require().NoError(err)
	s.Equal("confirmed", s.store.OrderStatus("order-1"))

	s.now = s.now.Add(20 * time.Minute)
	n, err := s.svc.Sweep(s.ctx)
	s.Require().NoError(err)
	s.Equal(0, n)
	s.Equal("confirmed", s.store.OrderStatus("order-1"))
	s.Equal(6, s.available(burger))

	// the order can still be cancelled and its units come back
	_, err = s.svc.Release(s.ctx, "order-1")
	s.Require().NoError(err)
	s.Equal("cancelled", s.store.OrderStatus("order-1"))
	s.Equal(10, s.available(burger))
}

func (s *StockServiceSuite) TestReleaseCancelsPendingOrder() {
	s.store.PutOrder("order-1", s.now.Add(15*time.Minute))
	_, err := s.svc.Lock(s.ctx, "order-1", []stock.Request{{MenuItemID: fries, Quantity: 1}})
	s.Require().NoError(err)

	_, err = s.svc.Release(s.ctx, "order-1")
	s.Require().NoError(err)
	s.Equal("cancelled", s.store.OrderStatus("order-1"))

	s.now = s.now.Add(time.Hour)
	_, err = s.svc.Sweep(s.ctx)
	s.Require().NoError(err)
	s.Equal("cancelled", s.store.OrderStatus("order-1"))
	s.Equal(5, s.available(fries))
}

func (s *StockServiceSuite) TestSetStock() {
	adj, err := s.svc.SetStock(s.ctx, fries, 12, "")
	s.Require().NoError(err)
	s.Equal(5, adj.PreviousStock)
	s.Equal(7, adj.Change)
	s.True(adj.IsAvailable)

	adj, err = s.svc.SetStock(s.ctx, fries, 0, "sold out")
	s.Require().NoError(err)
	s.Equal(-12, adj.Change)
	s.False(adj.IsAvailable)

	txs, err := s.svc.Transactions(s.ctx, 1, 0)
	s.Require().NoError(err)
	s.Require().Len(txs, 1)
	s.Equal(stock.TxAdjust, txs[0].Type)
	s.Equal(-12, txs[0].Delta)
	s.Equal(12, txs[0].Quantity)
	s.Equal("sold out", txs[0].Reason)

	_, err = s.svc.SetStock(s.ctx, fries, -1, "")
	s.ErrorIs(err, stock.ErrNegativeStock)
	_, err = s.svc.SetStock(s.ctx, "nope", 1, "")
	s.ErrorIs(err, stock.ErrItemNotFound)
}

func (s *StockServiceSuite) TestCheckDoesNotReserve() {
	res, ok, err := s.svc.Check(s.ctx, []stock.Request{
		{MenuItemID: burger, Quantity: 2},
		{MenuItemID: soda, Quantity: 3},
		{MenuItemID: "nope", Quantity: 1},
	})
	s.Require().NoError(err)
	s.False(ok)
	s.Require().Len(res, 3)
	s.True(res[0].OK)
	s.False(res[1].OK)
	s.Equal(1, res[1].Available)
	s.False(res[2].OK)
	s.Equal(10, s.available(burger))
}

func (s *StockServiceSuite) TestAlertsAndLowStock() {
	s.store.PutItem("item-pie", "Pie", "Desserts", 0, true)
	s.store.PutItem("item-tea", "Tea", "Drinks", 3, false)

	alerts, err := s.svc.Alerts(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(alerts, 4)
	s.Equal("item-pie", alerts[0].MenuItemID)
	s.Equal(stock.AlertOutOfStock, alerts[0].AlertLevel)
	s.Equal(soda, alerts[1].MenuItemID)
	s.Equal(stock.AlertCritical, alerts[1].AlertLevel)
	s.Equal(stock.AlertLow, alerts[2].AlertLevel)

	// disabled items are left out, scarcest first
	low, err := s.svc.LowStock(s.ctx, 3)
	s.Require().NoError(err)
	s.Require().Len(low, 2)
	s.Equal("item-pie", low[0].MenuItemID)
	s.Equal(soda, low[1].MenuItemID)

	_, err = s.svc.LowStock(s.ctx, -1)
	s.ErrorIs(err, stock.ErrInvalidRequest)
}

func (s *StockServiceSuite) TestHealthCheckPublishesAlerts() {
	s.store.PutItem("item-pie", "Pie", "Desserts", 0, true)

	rep, err := s.svc.HealthCheck(s.ctx, 5)
	s.Require().NoError(err)
	s.Equal(4, rep.Items)
	s.Equal(1, rep.OutOfStock)
	s.Equal(1, rep.Critical)
	s.Equal(2, rep.Low)
	s.ElementsMatch([]string{events.StockLowAlert, events.StockLowAlert, events.StockOutAlert}, s.rec.Types())
	s.Equal(10.0, testutil.ToFloat64(s.metrics.AvailableStock.WithLabelValues(burger)))
}

func TestStockServiceSuite(t *testing.T) {
	suite.Run(t, new(StockServiceSuite))
}
