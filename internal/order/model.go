package order

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound          = errors.New("order not found")
	ErrInvalid           = errors.New("invalid order")
	ErrInvalidStatus     = errors.New("invalid order status")
	ErrInvalidTransition = errors.New("invalid status transition")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled, StatusExpired},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
}

// ParseStatus accepts any case and the "canceled" spelling.
func ParseStatus(s string) (Status, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "canceled" {
		v = string(StatusCancelled)
	}
	switch st := Status(v); st {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled, StatusExpired:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func (s Status) Terminal() bool { return len(transitions[s]) == 0 }

type Order struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Status       Status    `json:"status"`
	Total        string    `json:"total"` // NUMERIC -> string
	Notes        string    `json:"notes,omitempty"`
	CancelReason string    `json:"cancel_reason,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Item struct {
	ID           string `json:"id"`
	OrderID      string `json:"order_id"`
	MenuItemID   string `json:"menu_item_id"`
	MenuItemName string `json:"menu_item_name,omitempty"`
	Quantity     int    `json:"quantity"`
	UnitPrice    string `json:"unit_price"`
	TotalPrice   string `json:"total_price"`
}

// View is an order as returned by GET /api/orders/:id.
type View struct {
	Order
	Items            []Item `json:"items"`
	SecondsRemaining int    `json:"seconds_remaining"`
	Expired          bool   `json:"is_expired"`
}

// NewView fills the countdown fields relative to now. Only pending orders
// count down.
func NewView(o Order, items []Item, now time.Time) View {
	v := View{Order: o, Items: items}
	if v.Items == nil {
		v.Items = []Item{}
	}
	if o.Status != StatusPending {
		v.Expired = o.Status == StatusExpired
		return v
	}
	left := o.ExpiresAt.Sub(now)
	if left <= 0 {
		v.Expired = true
		return v
	}
	v.SecondsRemaining = int(left / time.Second)
	return v
}

type ListQuery struct {
	Status Status
	Limit  int
	Offset int
}

// Stats counts the orders created on one day.
type Stats struct {
	Date      string `json:"date"`
	Total     int    `json:"total_orders"`
	Pending   int    `json:"pending_orders"`
	Confirmed int    `json:"confirmed_orders"`
	Completed int    `json:"completed_orders"`
	Cancelled int    `json:"cancelled_orders"`
	Expired   int    `json:"expired_orders"`
	Revenue   string `json:"total_revenue"`
}
