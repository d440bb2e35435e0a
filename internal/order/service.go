package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/MikeMC777/canteen-ordering/internal/events"
	"github.com/MikeMC777/canteen-ordering/internal/logging"
	"github.com/MikeMC777/canteen-ordering/internal/metrics"
	"github.com/MikeMC777/canteen-ordering/internal/stock"
)

const DefaultTimeout = 15 * time.Minute

type Service struct {
	Repo    Repository
	Menu    MenuClient
	Timeout time.Duration
	Now     func() time.Time
	Metrics *metrics.Metrics
	Events  events.Publisher
}

func NewService(repo Repository, menu MenuClient) *Service {
	return &Service{
		Repo:    repo,
		Menu:    menu,
		Timeout: DefaultTimeout,
		Now:     func() time.Time { return time.Now().UTC() },
		Events:  events.Nop{},
	}
}

// Create prices every line from menu-service, then stores the order and
// reserves its stock. Nothing is stored when any item cannot be reserved.
func (s *Service) Create(ctx context.Context, req CreateOrderRequest) (*Order, []Item, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return nil, nil, fmt.Errorf("%w: user_id is required", ErrInvalid)
	}
	if len(req.Items) == 0 {
		return nil, nil, fmt.Errorf("%w: at least one item is required", ErrInvalid)
	}

	// merge repeated lines so each menu item is priced and reserved once
	qty := make(map[string]int, len(req.Items))
	order := make([]string, 0, len(req.Items))
	for _, it := range req.Items {
		id := strings.TrimSpace(it.MenuItemID)
		if id == "" {
			return nil, nil, fmt.Errorf("%w: menu_item_id is required", ErrInvalid)
		}
		if it.Quantity <= 0 {
			return nil, nil, fmt.Errorf("%w: quantity must be greater than 0", ErrInvalid)
		}
		if _, seen := qty[id]; !seen {
			order = append(order, id)
		}
		qty[id] += it.Quantity
	}

	now := s.Now()
	o := &Order{
		ID:        uuid.NewString(),
		UserID:    userID,
		Status:    StatusPending,
		Notes:     strings.TrimSpace(req.Notes),
		ExpiresAt: now.Add(s.Timeout),
	}

	total := decimal.Zero
	items := make([]Item, 0, len(order))
	for _, id := range order {
		m, err := s.Menu.FetchMenuItem(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		if !m.IsAvailable {
			return nil, nil, fmt.Errorf("%w: %s", stock.ErrItemUnavailable, m.Name)
		}
		price, err := decimal.NewFromString(m.Price)
		if err != nil {
			return nil, nil, fmt.Errorf("menu item %s has invalid price %q: %w", id, m.Price, err)
		}
		price = price.Round(2)
		line := price.Mul(decimal.NewFromInt(int64(qty[id])))
		total = total.Add(line)
		items = append(items, Item{
			ID:           uuid.NewString(),
			OrderID:      o.ID,
			MenuItemID:   id,
			MenuItemName: m.Name,
			Quantity:     qty[id],
			UnitPrice:    price.StringFixed(2),
			TotalPrice:   line.StringFixed(2),
		})
	}
	o.Total = total.StringFixed(2)

	ctx = logging.WithOrder(ctx, o.ID)
	log := logging.FromContext(ctx)
	if err := s.Repo.Create(ctx, o, items); err != nil {
		s.Metrics.StockOp("lock", err, 0)
		log.Warn("create order failed", zap.String("user_id", userID), zap.Error(err))
		return nil, nil, err
	}
	s.Metrics.StockOp("lock", nil, totalQuantity(items))
	s.Metrics.OrderTransition(string(StatusPending))
	log.Info("order created",
		zap.String("user_id", userID),
		zap.String("total", o.Total),
		zap.Time("expires_at", o.ExpiresAt),
	)

	evItems := make([]events.ItemQty, 0, len(items))
	for _, it := range items {
		evItems = append(evItems, events.ItemQty{MenuItemID: it.MenuItemID, Quantity: it.Quantity})
	}
	s.publish(ctx,
		events.Event{Type: events.OrderCreated, OrderID: o.ID, Status: string(o.Status), Items: evItems, At: now},
		events.Event{Type: events.StockLocked, OrderID: o.ID, Items: evItems, At: now},
	)
	return o, items, nil
}

func (s *Service) Get(ctx context.Context, id string) (*View, error) {
	o, items, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	v := NewView(*o, items, s.Now())
	return &v, nil
}

// Transition validates status and applies it. Reason is kept on cancellation.
func (s *Service) Transition(ctx context.Context, id, status, reason string) (*Order, error) {
	to, err := ParseStatus(status)
	if err != nil {
		return nil, err
	}
	ctx = logging.WithOrder(ctx, id)
	log := logging.FromContext(ctx)
	now := s.Now()
	o, locks, err := s.Repo.Transition(ctx, id, to, strings.TrimSpace(reason), now)
	if err != nil {
		log.Warn("order transition failed", zap.String("to", string(to)), zap.Error(err))
		return nil, err
	}
	s.Metrics.OrderTransition(string(to))
	log.Info("order status changed", zap.String("status", string(to)), zap.Int("locks", len(locks)))

	evts := []events.Event{{Type: events.OrderTransition, OrderID: id, Status: string(to), At: now}}
	if len(locks) > 0 {
		typ := events.StockReleased
		op := "release"
		if to == StatusConfirmed {
			typ = events.StockConfirmed
			op = "confirm"
		}
		s.Metrics.StockOp(op, nil, stock.TotalQuantity(locks))
		items := make([]events.ItemQty, 0, len(locks))
		for _, l := range locks {
			items = append(items, events.ItemQty{MenuItemID: l.MenuItemID, Quantity: l.Quantity})
		}
		evts = append(evts, events.Event{Type: typ, OrderID: id, Items: items, At: now})
	}
	s.publish(ctx, evts...)
	return o, nil
}

func (s *Service) Cancel(ctx context.Context, id, reason string) (*Order, error) {
	if strings.TrimSpace(reason) == "" {
		reason = "cancelled by user"
	}
	return s.Transition(ctx, id, string(StatusCancelled), reason)
}

// Stats reports on the UTC day containing now.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	now := s.Now().UTC()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return s.Repo.Stats(ctx, from, from.AddDate(0, 0, 1))
}

func (s *Service) publish(ctx context.Context, evts ...events.Event) {
	if err := s.Events.Publish(ctx, evts...); err != nil {
		logging.FromContext(ctx).Error("publish events", zap.Error(err))
	}
}

func totalQuantity(items []Item) int {
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return n
}
