package stock

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemStore is an in-memory Store guarded by a single mutex. It mirrors the
// PGStore semantics and backs tests and local runs without Postgres.
type MemStore struct {
	mu     sync.Mutex
	items  map[string]*memItem
	locks  []*Lock
	txs    []Transaction
	orders map[string]memOrder
	now    func() time.Time
}

type memItem struct {
	name      string
	category  string
	stock     int
	available bool
}

type memOrder struct {
	status    string
	expiresAt time.Time
}

func NewMemStore() *MemStore {
	return &MemStore{
		items:  make(map[string]*memItem),
		orders: make(map[string]memOrder),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// PutItem creates or replaces a menu item.
func (s *MemStore) PutItem(id, name, category string, stock int, available bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[id] = &memItem{name: name, category: category, stock: stock, available: available}
}

// PutOrder registers a pending order so ExpireDue can expire it.
func (s *MemStore) PutOrder(id string, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[id] = memOrder{status: "pending", expiresAt: expiresAt}
}

func (s *MemStore) OrderStatus(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orders[id].status
}

func (s *MemStore) Lock(_ context.Context, orderID string, reqs []Request, expiresAt time.Time) ([]Lock, error) {
	reqs, err := normalize(orderID, reqs)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, l := range s.locks {
		if l.OrderID == orderID && (l.Status == LockActive || l.Status == LockConfirmed) {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyLocked, orderID)
		}
	}
	// validate everything first so a failure leaves no partial reservation
	for _, r := range reqs {
		it, ok := s.items[r.MenuItemID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrItemNotFound, r.MenuItemID)
		}
		if it.stock < r.Quantity {
			return nil, &InsufficientStockError{MenuItemID: r.MenuItemID, Name: it.name, Available: it.stock, Requested: r.Quantity}
		}
		if !it.available {
			return nil, fmt.Errorf("%w: %s", ErrItemUnavailable, it.name)
		}
	}

	now := s.now()
	out := make([]Lock, 0, len(reqs))
	for _, r := range reqs {
		it := s.items[r.MenuItemID]
		prev := it.stock
		it.stock -= r.Quantity
		l := &Lock{
			ID: uuid.NewString(), OrderID: orderID, MenuItemID: r.MenuItemID, Quantity: r.Quantity,
			Status: LockActive, LockedAt: now, ExpiresAt: expiresAt,
		}
		s.locks = append(s.locks, l)
		s.audit(Transaction{MenuItemID: r.MenuItemID, OrderID: orderID, Type: TxLock,
			Quantity: r.Quantity, Delta: -r.Quantity, PreviousStock: prev, NewStock: it.stock})
		out = append(out, *l)
	}
	return out, nil
}

func (s *MemStore) Confirm(_ context.Context, orderID string, now time.Time) ([]Lock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	live := s.orderLocks(orderID, LockActive)
	if len(live) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoActiveLocks, orderID)
	}
	for _, l := range live {
		if !l.ExpiresAt.After(now) {
			return nil, fmt.Errorf("%w: order %s", ErrLockExpired, orderID)
		}
	}
	out := make([]Lock, 0, len(live))
	for _, l := range live {
		l.Status = LockConfirmed
		l.ResolvedAt = timePtr(now)
		cur := 0
		if it, ok := s.items[l.MenuItemID]; ok {
			cur = it.stock
		}
		s.audit(Transaction{MenuItemID: l.MenuItemID, OrderID: orderID, Type: TxConfirm,
			Quantity: l.Quantity, PreviousStock: cur, NewStock: cur})
		out = append(out, *l)
	}
	s.moveOrder(orderID, "confirmed", "pending")
	return out, nil
}

func (s *MemStore) Release(_ context.Context, orderID string, now time.Time) ([]Lock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	live := s.orderLocks(orderID, LockActive, LockConfirmed)
	out := make([]Lock, 0, len(live))
	for _, l := range live {
		typ := TxUnlock
		if l.Status == LockConfirmed {
			typ = TxRestore
		}
		s.restore(l, typ, "released")
		l.Status = LockReleased
		l.ResolvedAt = timePtr(now)
		out = append(out, *l)
	}
	if len(out) > 0 {
		s.moveOrder(orderID, "cancelled", "pending", "confirmed")
	}
	return out, nil
}

func (s *MemStore) hasConfirmed(orderID string) bool {
	for _, l := range s.locks {
		if l.OrderID == orderID && l.Status == LockConfirmed {
			return true
		}
	}
	return false
}

func (s *MemStore) moveOrder(id, to string, from ...string) {
	o, ok := s.orders[id]
	if !ok {
		return
	}
	for _, f := range from {
		if o.status == f {
			o.status = to
			s.orders[id] = o
			return
		}
	}
}

func (s *MemStore) ExpireDue(_ context.Context, now time.Time, limit int) ([]Lock, error) {
	if limit <= 0 {
		limit = 100
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []*Lock
	for _, l := range s.locks {
		if l.Status == LockActive && !l.ExpiresAt.After(now) {
			due = append(due, l)
		}
	}
	sort.SliceStable(due, func(i, j int) bool { return due[i].ExpiresAt.Before(due[j].ExpiresAt) })
	if len(due) > limit {
		due = due[:limit]
	}

	out := make([]Lock, 0, len(due))
	expiredOrders := make(map[string]bool, len(due))
	for _, l := range due {
		s.restore(l, TxExpire, "reservation expired")
		l.Status = LockExpired
		l.ResolvedAt = timePtr(now)
		expiredOrders[l.OrderID] = true
		out = append(out, *l)
	}
	for id, o := range s.orders {
		if o.status == "pending" && (!o.expiresAt.After(now) || expiredOrders[id]) && !s.hasConfirmed(id) {
			o.status = "expired"
			s.orders[id] = o
		}
	}
	sortLocksByItem(out)
	return out, nil
}

func (s *MemStore) Level(_ context.Context, menuItemID string) (*Level, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.items[menuItemID]
	if !ok {
		return nil, ErrItemNotFound
	}
	l := s.level(menuItemID, it)
	return &l, nil
}

func (s *MemStore) Levels(_ context.Context) ([]Level, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Level, 0, len(s.items))
	for id, it := range s.items {
		out = append(out, s.level(id, it))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *MemStore) ActiveLocks(_ context.Context, now time.Time) ([]Lock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Lock
	for _, l := range s.locks {
		if l.Status == LockActive && l.ExpiresAt.After(now) {
			out = append(out, *l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].LockedAt.After(out[j].LockedAt) })
	return out, nil
}

func (s *MemStore) SetStock(_ context.Context, menuItemID string, qty int, reason string) (*Adjustment, error) {
	if qty < 0 {
		return nil, ErrNegativeStock
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.items[menuItemID]
	if !ok {
		return nil, ErrItemNotFound
	}
	prev := it.stock
	it.stock = qty
	it.available = qty > 0
	delta := qty - prev
	s.audit(Transaction{MenuItemID: menuItemID, Type: TxAdjust, Quantity: abs(delta), Delta: delta,
		PreviousStock: prev, NewStock: qty, Reason: reason})
	return &Adjustment{MenuItemID: menuItemID, PreviousStock: prev, NewStock: qty, Change: delta, IsAvailable: it.available}, nil
}

func (s *MemStore) Transactions(_ context.Context, limit, offset int) ([]Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// newest first
	out := make([]Transaction, 0, len(s.txs))
	for i := len(s.txs) - 1; i >= 0; i-- {
		out = append(out, s.txs[i])
	}
	if offset >= len(out) {
		return []Transaction{}, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemStore) orderLocks(orderID string, statuses ...LockStatus) []*Lock {
	var out []*Lock
	for _, l := range s.locks {
		if l.OrderID != orderID {
			continue
		}
		for _, st := range statuses {
			if l.Status == st {
				out = append(out, l)
				break
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].MenuItemID < out[j].MenuItemID })
	return out
}

func (s *MemStore) restore(l *Lock, typ TxType, reason string) {
	it, ok := s.items[l.MenuItemID]
	if !ok {
		return
	}
	prev := it.stock
	it.stock += l.Quantity
	s.audit(Transaction{MenuItemID: l.MenuItemID, OrderID: l.OrderID, Type: typ,
		Quantity: l.Quantity, Delta: l.Quantity, PreviousStock: prev, NewStock: it.stock, Reason: reason})
}

func (s *MemStore) level(id string, it *memItem) Level {
	locked := 0
	for _, l := range s.locks {
		if l.MenuItemID == id && l.Status == LockActive {
			locked += l.Quantity
		}
	}
	return Level{
		MenuItemID: id, Name: it.name, Category: it.category, IsAvailable: it.available,
		Available: it.stock, Locked: locked, OnHand: it.stock + locked,
	}
}

func (s *MemStore) audit(t Transaction) {
	t.ID = uuid.NewString()
	if it, ok := s.items[t.MenuItemID]; ok {
		t.ItemName = it.name
	}
	t.CreatedAt = s.now()
	s.txs = append(s.txs, t)
}
