// Package stock reserves menu-item stock for orders.
//
// Reserving decrements menu_items.stock_quantity immediately and records an
// active lock. A lock then ends in exactly one of three ways: confirmed (the
// units stay consumed), released (units return to stock) or expired by the
// sweep (units return to stock). Every change to stock_quantity is written to
// stock_transactions in the same database transaction.
package stock

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var (
	ErrInvalidRequest    = errors.New("invalid stock request")
	ErrItemNotFound      = errors.New("menu item not found")
	ErrItemUnavailable   = errors.New("menu item not available")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrAlreadyLocked     = errors.New("order already holds stock locks")
	ErrNoActiveLocks     = errors.New("no active stock locks for order")
	ErrLockExpired       = errors.New("stock lock expired")
	ErrNegativeStock     = errors.New("stock count cannot be negative")
)

// InsufficientStockError carries the numbers behind ErrInsufficientStock.
type InsufficientStockError struct {
	MenuItemID string
	Name       string
	Available  int
	Requested  int
}

func (e *InsufficientStockError) Error() string {
	label := e.MenuItemID
	if e.Name != "" {
		label = e.Name
	}
	return fmt.Sprintf("insufficient stock for %s. Available: %d, Requested: %d", label, e.Available, e.Requested)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

type LockStatus string

const (
	LockActive    LockStatus = "active"
	LockConfirmed LockStatus = "confirmed"
	LockReleased  LockStatus = "released"
	LockExpired   LockStatus = "expired"
)

type TxType string

const (
	TxLock    TxType = "lock"
	TxConfirm TxType = "confirm"
	TxUnlock  TxType = "unlock"
	TxRestore TxType = "restore"
	TxExpire  TxType = "expire"
	TxAdjust  TxType = "adjust"
)

type Request struct {
	MenuItemID string `json:"menu_item_id" example:"0b1e0c1a-3f5e-4c8e-9a55-2b7f3f0d6a11"`
	Quantity   int    `json:"quantity"     example:"2"`
}

type Lock struct {
	ID         string     `json:"id"`
	OrderID    string     `json:"order_id"`
	MenuItemID string     `json:"menu_item_id"`
	Quantity   int        `json:"quantity"`
	Status     LockStatus `json:"status"`
	LockedAt   time.Time  `json:"locked_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// Transaction is one audit row. Delta is the signed change applied to the
// available stock; Quantity is the number of units the operation concerned.
type Transaction struct {
	ID            string    `json:"id"`
	MenuItemID    string    `json:"menu_item_id"`
	ItemName      string    `json:"item_name,omitempty"`
	OrderID       string    `json:"order_id,omitempty"`
	Type          TxType    `json:"type"`
	Quantity      int       `json:"quantity"`
	Delta         int       `json:"delta"`
	PreviousStock int       `json:"previous_stock"`
	NewStock      int       `json:"new_stock"`
	Reason        string    `json:"reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Level is the stock picture of one menu item. Available is what can still be
// reserved; Locked is held by active reservations; OnHand is their sum.
type Level struct {
	MenuItemID  string `json:"menu_item_id"`
	Name        string `json:"name"`
	Category    string `json:"category,omitempty"`
	IsAvailable bool   `json:"is_available"`
	Available   int    `json:"available"`
	Locked      int    `json:"locked"`
	OnHand      int    `json:"on_hand"`
}

type Adjustment struct {
	MenuItemID    string `json:"menu_item_id"`
	PreviousStock int    `json:"previous_stock"`
	NewStock      int    `json:"new_stock"`
	Change        int    `json:"change"`
	IsAvailable   bool   `json:"is_available"`
}

type AlertLevel string

const (
	AlertOutOfStock AlertLevel = "out_of_stock"
	AlertCritical   AlertLevel = "critical"
	AlertLow        AlertLevel = "low"
	AlertNormal     AlertLevel = "normal"
)

type Alert struct {
	Level
	AlertLevel AlertLevel `json:"alert_level"`
}

func ClassifyAlert(available int) AlertLevel {
	switch {
	case available <= 0:
		return AlertOutOfStock
	case available <= 3:
		return AlertCritical
	case available <= 10:
		return AlertLow
	default:
		return AlertNormal
	}
}

// Availability is the result of a non-reserving pre-check for one item.
type Availability struct {
	MenuItemID string `json:"menu_item_id"`
	Requested  int    `json:"requested"`
	Available  int    `json:"available"`
	OK         bool   `json:"ok"`
}

// normalize validates a lock request and merges duplicate items. The result is
// sorted by menu item id, which is also the row-lock order.
func normalize(orderID string, reqs []Request) ([]Request, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, fmt.Errorf("%w: order id is required", ErrInvalidRequest)
	}
	return mergeRequests(reqs)
}

func mergeRequests(reqs []Request) ([]Request, error) {
	if len(reqs) == 0 {
		return nil, fmt.Errorf("%w: at least one item is required", ErrInvalidRequest)
	}
	byID := make(map[string]int, len(reqs))
	for _, r := range reqs {
		id := strings.TrimSpace(r.MenuItemID)
		if id == "" {
			return nil, fmt.Errorf("%w: menu item id is required", ErrInvalidRequest)
		}
		if r.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity must be greater than 0", ErrInvalidRequest)
		}
		byID[id] += r.Quantity
	}
	out := make([]Request, 0, len(byID))
	for id, q := range byID {
		out = append(out, Request{MenuItemID: id, Quantity: q})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MenuItemID < out[j].MenuItemID })
	return out, nil
}

func sortLocksByItem(locks []Lock) {
	sort.SliceStable(locks, func(i, j int) bool { return locks[i].MenuItemID < locks[j].MenuItemID })
}

// TotalQuantity sums lock quantities.
func TotalQuantity(locks []Lock) int {
	n := 0
	for _, l := range locks {
		n += l.Quantity
	}
	return n
}
