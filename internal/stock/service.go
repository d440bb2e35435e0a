package stock

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/MikeMC777/canteen-ordering/internal/events"
	"github.com/MikeMC777/canteen-ordering/internal/metrics"
)

const (
	DefaultLockTTL   = 15 * time.Minute
	DefaultBatchSize = 200
	// AlertThreshold is the available count at or below which an item shows up in alerts.
	AlertThreshold = 10
)

type Service struct {
	store     Store
	ttl       time.Duration
	batchSize int
	now       func() time.Time
	log       *zap.Logger
	metrics   *metrics.Metrics
	events    events.Publisher
	tracer    trace.Tracer
}

type Option func(*Service)

func WithTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.ttl = d
		}
	}
}

func WithBatchSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func WithLogger(l *zap.Logger) Option { return func(s *Service) { s.log = l } }

func WithMetrics(m *metrics.Metrics) Option { return func(s *Service) { s.metrics = m } }

func WithPublisher(p events.Publisher) Option { return func(s *Service) { s.events = p } }

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:     store,
		ttl:       DefaultLockTTL,
		batchSize: DefaultBatchSize,
		now:       func() time.Time { return time.Now().UTC() },
		log:       zap.NewNop(),
		events:    events.Nop{},
		tracer:    otel.Tracer("github.com/MikeMC777/canteen-ordering/internal/stock"),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) TTL() time.Duration { return s.ttl }

func (s *Service) span(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "stock."+name, trace.WithAttributes(attrs...))
}

func endSpan(sp trace.Span, err error) {
	if err != nil {
		sp.RecordError(err)
		sp.SetStatus(codes.Error, err.Error())
	}
	sp.End()
}

// Lock reserves every requested item for orderID or nothing at all. The hold
// lasts for the service TTL.
func (s *Service) Lock(ctx context.Context, orderID string, reqs []Request) (_ []Lock, err error) {
	ctx, sp := s.span(ctx, "lock", attribute.String("order_id", orderID), attribute.Int("items", len(reqs)))
	defer func() { endSpan(sp, err) }()

	locks, err := s.store.Lock(ctx, orderID, reqs, s.now().Add(s.ttl))
	s.metrics.StockOp("lock", err, TotalQuantity(locks))
	if err != nil {
		s.log.Warn("stock lock failed", zap.String("order_id", orderID), zap.Error(err))
		return nil, err
	}
	s.log.Info("stock locked", zap.String("order_id", orderID), zap.Int("items", len(locks)))
	s.publish(ctx, events.StockLocked, orderID, locks)
	return locks, nil
}

// Confirm turns an order's active locks into a permanent deduction.
func (s *Service) Confirm(ctx context.Context, orderID string) (_ []Lock, err error) {
	ctx, sp := s.span(ctx, "confirm", attribute.String("order_id", orderID))
	defer func() { endSpan(sp, err) }()

	locks, err := s.store.Confirm(ctx, orderID, s.now())
	s.metrics.StockOp("confirm", err, TotalQuantity(locks))
	if err != nil {
		s.log.Warn("stock confirm failed", zap.String("order_id", orderID), zap.Error(err))
		return nil, err
	}
	s.log.Info("stock confirmed", zap.String("order_id", orderID), zap.Int("items", len(locks)))
	s.publish(ctx, events.StockConfirmed, orderID, locks)
	return locks, nil
}

// Release returns an order's held units to stock. Releasing an order with no
// live locks succeeds and returns an empty slice.
func (s *Service) Release(ctx context.Context, orderID string) (_ []Lock, err error) {
	ctx, sp := s.span(ctx, "release", attribute.String("order_id", orderID))
	defer func() { endSpan(sp, err) }()

	locks, err := s.store.Release(ctx, orderID, s.now())
	s.metrics.StockOp("release", err, TotalQuantity(locks))
	if err != nil {
		s.log.Error("stock release failed", zap.String("order_id", orderID), zap.Error(err))
		return nil, err
	}
	if len(locks) > 0 {
		s.log.Info("stock released", zap.String("order_id", orderID), zap.Int("items", len(locks)))
		s.publish(ctx, events.StockReleased, orderID, locks)
	}
	return locks, nil
}

// Sweep expires due reservations in batches until none are left and returns
// the number of locks it expired.
func (s *Service) Sweep(ctx context.Context) (_ int, err error) {
	ctx, sp := s.span(ctx, "sweep")
	defer func() { endSpan(sp, err) }()

	start := time.Now()
	now := s.now()
	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		locks, err := s.store.ExpireDue(ctx, now, s.batchSize)
		if err != nil {
			s.log.Error("sweep failed", zap.Int("expired_so_far", total), zap.Error(err))
			return total, err
		}
		total += len(locks)
		for orderID, ls := range groupByOrder(locks) {
			s.publish(ctx, events.StockExpired, orderID, ls)
		}
		if len(locks) < s.batchSize {
			break
		}
	}
	s.metrics.Sweep(time.Since(start).Seconds(), total)
	sp.SetAttributes(attribute.Int("expired", total))
	if total > 0 {
		s.log.Info("expired stock locks released", zap.Int("count", total))
	} else {
		s.log.Debug("no expired stock locks")
	}
	return total, nil
}

func (s *Service) Level(ctx context.Context, menuItemID string) (*Level, error) {
	return s.store.Level(ctx, menuItemID)
}

func (s *Service) Levels(ctx context.Context) ([]Level, error) {
	return s.store.Levels(ctx)
}

// Alerts lists available items at or below AlertThreshold, lowest first.
func (s *Service) Alerts(ctx context.Context) ([]Alert, error) {
	levels, err := s.store.Levels(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Alert, 0)
	for _, l := range levels {
		if !l.IsAvailable || l.Available > AlertThreshold {
			continue
		}
		out = append(out, Alert{Level: l, AlertLevel: ClassifyAlert(l.Available)})
	}
	sortAlerts(out)
	return out, nil
}

// LowStock lists orderable items whose available count is at or below
// threshold, scarcest first.
func (s *Service) LowStock(ctx context.Context, threshold int) ([]Level, error) {
	if threshold < 0 {
		return nil, ErrInvalidRequest
	}
	levels, err := s.store.Levels(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Level, 0)
	for _, l := range levels {
		if l.IsAvailable && l.Available <= threshold {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Available < out[j].Available })
	return out, nil
}

// Check reports whether reqs could be reserved right now without reserving
// anything. The answer may be stale by the time Lock runs.
func (s *Service) Check(ctx context.Context, reqs []Request) ([]Availability, bool, error) {
	reqs, err := mergeRequests(reqs)
	if err != nil {
		return nil, false, err
	}
	out := make([]Availability, 0, len(reqs))
	all := true
	for _, r := range reqs {
		lvl, err := s.store.Level(ctx, r.MenuItemID)
		if err != nil {
			if errors.Is(err, ErrItemNotFound) {
				out = append(out, Availability{MenuItemID: r.MenuItemID, Requested: r.Quantity})
				all = false
				continue
			}
			return nil, false, err
		}
		ok := lvl.IsAvailable && lvl.Available >= r.Quantity
		all = all && ok
		out = append(out, Availability{MenuItemID: r.MenuItemID, Requested: r.Quantity, Available: lvl.Available, OK: ok})
	}
	return out, all, nil
}

func (s *Service) ActiveLocks(ctx context.Context) ([]Lock, error) {
	return s.store.ActiveLocks(ctx, s.now())
}

// SetStock overwrites an item's available count. Zero marks the item unavailable.
func (s *Service) SetStock(ctx context.Context, menuItemID string, qty int, reason string) (_ *Adjustment, err error) {
	ctx, sp := s.span(ctx, "set_stock", attribute.String("menu_item_id", menuItemID), attribute.Int("quantity", qty))
	defer func() { endSpan(sp, err) }()

	if qty < 0 {
		return nil, ErrNegativeStock
	}
	if reason == "" {
		reason = "manual adjustment"
	}
	adj, err := s.store.SetStock(ctx, menuItemID, qty, reason)
	s.metrics.StockOp("adjust", err, 0)
	if err != nil {
		return nil, err
	}
	s.metrics.SetAvailable(menuItemID, adj.NewStock)
	s.log.Info("stock adjusted",
		zap.String("menu_item_id", menuItemID),
		zap.Int("previous", adj.PreviousStock),
		zap.Int("new", adj.NewStock),
		zap.String("reason", reason),
	)
	s.emit(ctx, events.Event{Type: events.StockAdjusted, MenuItemID: menuItemID, Count: adj.NewStock, At: s.now()})
	return adj, nil
}

const maxTxPage = 200

func (s *Service) Transactions(ctx context.Context, limit, offset int) ([]Transaction, error) {
	if limit <= 0 || limit > maxTxPage {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.Transactions(ctx, limit, offset)
}

// HealthReport summarizes one stock health check.
type HealthReport struct {
	Items      int `json:"items"`
	OutOfStock int `json:"out_of_stock"`
	Critical   int `json:"critical"`
	Low        int `json:"low"`
}

// HealthCheck refreshes the available-units gauge and publishes an alert for
// every item at or below threshold.
func (s *Service) HealthCheck(ctx context.Context, threshold int) (_ HealthReport, err error) {
	ctx, sp := s.span(ctx, "health_check")
	defer func() { endSpan(sp, err) }()

	levels, err := s.store.Levels(ctx)
	if err != nil {
		return HealthReport{}, err
	}
	rep := HealthReport{Items: len(levels)}
	var evts []events.Event
	for _, l := range levels {
		s.metrics.SetAvailable(l.MenuItemID, l.Available)
		switch ClassifyAlert(l.Available) {
		case AlertOutOfStock:
			rep.OutOfStock++
		case AlertCritical:
			rep.Critical++
		case AlertLow:
			rep.Low++
		}
		if l.Available > threshold {
			continue
		}
		typ := events.StockLowAlert
		if l.Available <= 0 {
			typ = events.StockOutAlert
		}
		evts = append(evts, events.Event{Type: typ, MenuItemID: l.MenuItemID, Count: l.Available, At: s.now()})
	}
	if len(evts) > 0 {
		s.log.Warn("low stock detected", zap.Int("items", len(evts)), zap.Int("threshold", threshold))
		s.emit(ctx, evts...)
	}
	return rep, nil
}

func (s *Service) publish(ctx context.Context, typ, orderID string, locks []Lock) {
	items := make([]events.ItemQty, 0, len(locks))
	for _, l := range locks {
		items = append(items, events.ItemQty{MenuItemID: l.MenuItemID, Quantity: l.Quantity})
	}
	s.emit(ctx, events.Event{Type: typ, OrderID: orderID, Items: items, At: s.now()})
}

// emit never fails the caller: the database change is already committed.
func (s *Service) emit(ctx context.Context, evts ...events.Event) {
	if err := s.events.Publish(ctx, evts...); err != nil {
		s.log.Error("publish events", zap.Int("count", len(evts)), zap.Error(err))
	}
}

func groupByOrder(locks []Lock) map[string][]Lock {
	out := make(map[string][]Lock)
	for _, l := range locks {
		out[l.OrderID] = append(out[l.OrderID], l)
	}
	return out
}

func sortAlerts(a []Alert) {
	// stable so equal counts keep the category/name order from Levels
	sort.SliceStable(a, func(i, j int) bool { return a[i].Available < a[j].Available })
}
