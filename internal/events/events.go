// Package events publishes stock and order domain events.
package events

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Event types.
const (
	StockLocked     = "stock.locked"
	StockConfirmed  = "stock.confirmed"
	StockReleased   = "stock.released"
	StockExpired    = "stock.expired"
	StockAdjusted   = "stock.adjusted"
	StockLowAlert   = "stock.low"
	StockOutAlert   = "stock.out"
	OrderCreated    = "order.created"
	OrderTransition = "order.status_changed"
)

type ItemQty struct {
	MenuItemID string `json:"menu_item_id"`
	Quantity   int    `json:"quantity"`
}

type Event struct {
	Type       string    `json:"type"`
	OrderID    string    `json:"order_id,omitempty"`
	MenuItemID string    `json:"menu_item_id,omitempty"`
	Status     string    `json:"status,omitempty"`
	Items      []ItemQty `json:"items,omitempty"`
	Count      int       `json:"count,omitempty"`
	At         time.Time `json:"at"`
}

// Key is the partition key: order first, then item, so all events of one
// order land on the same partition.
func (e Event) Key() string {
	if e.OrderID != "" {
		return e.OrderID
	}
	return e.MenuItemID
}

type Publisher interface {
	Publish(ctx context.Context, evts ...Event) error
	Close() error
}

// LogPublisher writes events to the structured log. Used when no broker is configured.
type LogPublisher struct{ log *zap.Logger }

func NewLogPublisher(l *zap.Logger) *LogPublisher {
	if l == nil {
		l = zap.NewNop()
	}
	return &LogPublisher{log: l.With(zap.String("component", "events"))}
}

func (p *LogPublisher) Publish(_ context.Context, evts ...Event) error {
	for _, e := range evts {
		p.log.Info("event",
			zap.String("type", e.Type),
			zap.String("order_id", e.OrderID),
			zap.String("menu_item_id", e.MenuItemID),
			zap.Int("items", len(e.Items)),
			zap.Int("count", e.Count),
		)
	}
	return nil
}

func (p *LogPublisher) Close() error { return nil }

// Nop discards everything.
type Nop struct{}

func (Nop) Publish(context.Context, ...Event) error { return nil }
func (Nop) Close() error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	Events []Event
}

func (r *Recorder) Publish(_ context.Context, evts ...Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, evts...)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Types lists recorded event types in order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.Events))
	for _, e := range r.Events {
		out = append(out, e.Type)
	}
	return out
}
