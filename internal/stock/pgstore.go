package stock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PGStore struct{ db *pgxpool.Pool }

func NewPGStore(db *pgxpool.Pool) *PGStore { return &PGStore{db: db} }

func (s *PGStore) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PGStore) Lock(ctx context.Context, orderID string, reqs []Request, expiresAt time.Time) ([]Lock, error) {
	var out []Lock
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		var err error
		out, err = LockTx(ctx, tx, orderID, reqs, expiresAt)
		return err
	})
	return out, err
}

func (s *PGStore) Confirm(ctx context.Context, orderID string, now time.Time) ([]Lock, error) {
	var out []Lock
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		if err := lockOrderRow(ctx, tx, orderID); err != nil {
			return err
		}
		var err error
		if out, err = ConfirmTx(ctx, tx, orderID, now); err != nil {
			return err
		}
		return moveOrderTx(ctx, tx, orderID, "confirmed", "", "pending")
	})
	return out, err
}

func (s *PGStore) Release(ctx context.Context, orderID string, now time.Time) ([]Lock, error) {
	var out []Lock
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		if err := lockOrderRow(ctx, tx, orderID); err != nil {
			return err
		}
		var err error
		if out, err = ReleaseTx(ctx, tx, orderID, now); err != nil || len(out) == 0 {
			return err
		}
		return moveOrderTx(ctx, tx, orderID, "cancelled", "stock released", "pending", "confirmed")
	})
	return out, err
}

// lockOrderRow takes the owning order's row lock before any stock lock, the
// same order the order repository uses.
func lockOrderRow(ctx context.Context, tx pgx.Tx, orderID string) error {
	_, err := tx.Exec(ctx, `SELECT 1 FROM orders WHERE id::text = $1 FOR UPDATE`, orderID)
	return err
}

// moveOrderTx keeps an order row in step with its locks when they are
// resolved directly. Unknown order ids are left alone.
func moveOrderTx(ctx context.Context, tx pgx.Tx, orderID, to, reason string, from ...string) error {
	_, err := tx.Exec(ctx, `
		UPDATE orders
		SET status = $2,
		    cancel_reason = CASE WHEN $2 = 'cancelled' THEN $3 ELSE cancel_reason END,
		    updated_at = NOW()
		WHERE id::text = $1 AND status = ANY($4::text[])
	`, orderID, to, reason, from)
	return err
}

// LockTx reserves stock for orderID inside an existing transaction. Callers
// that create the order row in the same transaction get order and reservation
// atomically.
func LockTx(ctx context.Context, tx pgx.Tx, orderID string, reqs []Request, expiresAt time.Time) ([]Lock, error) {
	reqs, err := normalize(orderID, reqs)
	if err != nil {
		return nil, err
	}

	// serialise concurrent reservations of the same order
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, orderID); err != nil {
		return nil, err
	}
	var held int
	if err := tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM stock_locks
		WHERE order_id = $1 AND status IN ('active','confirmed')
	`, orderID).Scan(&held); err != nil {
		return nil, err
	}
	if held > 0 {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyLocked, orderID)
	}

	locks := make([]Lock, 0, len(reqs))
	for _, r := range reqs {
		if _, err := uuid.Parse(r.MenuItemID); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrItemNotFound, r.MenuItemID)
		}
		var (
			name      string
			current   int
			available bool
		)
		err := tx.QueryRow(ctx, `
			SELECT name, stock_quantity, is_available
			FROM menu_items WHERE id = $1
			FOR UPDATE
		`, r.MenuItemID).Scan(&name, &current, &available)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrItemNotFound, r.MenuItemID)
		}
		if err != nil {
			return nil, err
		}
		if current < r.Quantity {
			return nil, &InsufficientStockError{MenuItemID: r.MenuItemID, Name: name, Available: current, Requested: r.Quantity}
		}
		if !available {
			return nil, fmt.Errorf("%w: %s", ErrItemUnavailable, name)
		}

		newStock := current - r.Quantity
		if _, err := tx.Exec(ctx, `
			UPDATE menu_items SET stock_quantity = $2, updated_at = NOW() WHERE id = $1
		`, r.MenuItemID, newStock); err != nil {
			return nil, err
		}

		l := Lock{
			ID:         uuid.NewString(),
			OrderID:    orderID,
			MenuItemID: r.MenuItemID,
			Quantity:   r.Quantity,
			Status:     LockActive,
			ExpiresAt:  expiresAt,
		}
		if err := tx.QueryRow(ctx, `
			INSERT INTO stock_locks (id, order_id, menu_item_id, quantity, status, locked_at, expires_at)
			VALUES ($1,$2,$3,$4,'active',NOW(),$5)
			RETURNING locked_at
		`, l.ID, l.OrderID, l.MenuItemID, l.Quantity, l.ExpiresAt).Scan(&l.LockedAt); err != nil {
			return nil, err
		}
		if err := insertTransaction(ctx, tx, Transaction{
			MenuItemID: r.MenuItemID, OrderID: orderID, Type: TxLock,
			Quantity: r.Quantity, Delta: -r.Quantity, PreviousStock: current, NewStock: newStock,
		}); err != nil {
			return nil, err
		}
		locks = append(locks, l)
	}
	return locks, nil
}

// ConfirmTx turns the order's active locks into confirmed ones. The units were
// taken out of stock at lock time, so only the audit trail changes.
func ConfirmTx(ctx context.Context, tx pgx.Tx, orderID string, now time.Time) ([]Lock, error) {
	locks, err := selectLocksForUpdate(ctx, tx, orderID, LockActive)
	if err != nil {
		return nil, err
	}
	if len(locks) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoActiveLocks, orderID)
	}
	for _, l := range locks {
		if !l.ExpiresAt.After(now) {
			return nil, fmt.Errorf("%w: order %s", ErrLockExpired, orderID)
		}
	}

	ids := lockIDs(locks)
	if _, err := tx.Exec(ctx, `
		UPDATE stock_locks SET status = 'confirmed', resolved_at = $2 WHERE id::text = ANY($1::text[])
	`, ids, now); err != nil {
		return nil, err
	}
	for i := range locks {
		var current int
		if err := tx.QueryRow(ctx, `SELECT stock_quantity FROM menu_items WHERE id = $1`, locks[i].MenuItemID).Scan(&current); err != nil {
			return nil, err
		}
		if err := insertTransaction(ctx, tx, Transaction{
			MenuItemID: locks[i].MenuItemID, OrderID: orderID, Type: TxConfirm,
			Quantity: locks[i].Quantity, PreviousStock: current, NewStock: current,
		}); err != nil {
			return nil, err
		}
		locks[i].Status = LockConfirmed
		locks[i].ResolvedAt = timePtr(now)
	}
	return locks, nil
}

// ReleaseTx gives back the stock of every live lock of the order. Active locks
// are unlocked; confirmed locks are restored (a confirmed order was cancelled).
func ReleaseTx(ctx context.Context, tx pgx.Tx, orderID string, now time.Time) ([]Lock, error) {
	locks, err := selectLocksForUpdate(ctx, tx, orderID, LockActive, LockConfirmed)
	if err != nil {
		return nil, err
	}
	for i := range locks {
		typ := TxUnlock
		if locks[i].Status == LockConfirmed {
			typ = TxRestore
		}
		if err := restoreTx(ctx, tx, locks[i], typ, "released"); err != nil {
			return nil, err
		}
		locks[i].Status = LockReleased
		locks[i].ResolvedAt = timePtr(now)
	}
	if len(locks) > 0 {
		if _, err := tx.Exec(ctx, `
			UPDATE stock_locks SET status = 'released', resolved_at = $2 WHERE id::text = ANY($1::text[])
		`, lockIDs(locks), now); err != nil {
			return nil, err
		}
	}
	return locks, nil
}

func (s *PGStore) ExpireDue(ctx context.Context, now time.Time, limit int) ([]Lock, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []Lock
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT id, order_id, menu_item_id, quantity, status, locked_at, expires_at, resolved_at
			FROM stock_locks
			WHERE status = 'active' AND expires_at <= $1
			ORDER BY expires_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		`, now, limit)
		if err != nil {
			return err
		}
		locks, err := scanLocks(rows)
		if err != nil {
			return err
		}
		sortLocksByItem(locks)

		orderIDs := make([]string, 0, len(locks))
		for i := range locks {
			if err := restoreTx(ctx, tx, locks[i], TxExpire, "reservation expired"); err != nil {
				return err
			}
			locks[i].Status = LockExpired
			locks[i].ResolvedAt = timePtr(now)
			orderIDs = append(orderIDs, locks[i].OrderID)
		}
		if len(locks) > 0 {
			if _, err := tx.Exec(ctx, `
				UPDATE stock_locks SET status = 'expired', resolved_at = $2 WHERE id::text = ANY($1::text[])
			`, lockIDs(locks), now); err != nil {
				return err
			}
		}

		// orders being transitioned right now are skipped; the next sweep sees them.
		// An order whose stock was already confirmed is never expired.
		if _, err := tx.Exec(ctx, `
			UPDATE orders SET status = 'expired', updated_at = NOW()
			WHERE id IN (
				SELECT id FROM orders
				WHERE status = 'pending' AND (expires_at <= $1 OR id::text = ANY($2::text[]))
				  AND NOT EXISTS (
				      SELECT 1 FROM stock_locks sl
				      WHERE sl.order_id = orders.id::text AND sl.status = 'confirmed')
				FOR UPDATE SKIP LOCKED
			)
		`, now, orderIDs); err != nil {
			return err
		}
		out = locks
		return nil
	})
	return out, err
}

func (s *PGStore) Level(ctx context.Context, menuItemID string) (*Level, error) {
	if _, err := uuid.Parse(menuItemID); err != nil {
		return nil, ErrItemNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var l Level
	err := s.db.QueryRow(ctx, levelSelect+` WHERE mi.id = $1`, menuItemID).
		Scan(&l.MenuItemID, &l.Name, &l.Category, &l.IsAvailable, &l.Available, &l.Locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, err
	}
	l.OnHand = l.Available + l.Locked
	return &l, nil
}

func (s *PGStore) Levels(ctx context.Context) ([]Level, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := s.db.Query(ctx, levelSelect+` ORDER BY mc.name NULLS LAST, mi.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Level
	for rows.Next() {
		var l Level
		if err := rows.Scan(&l.MenuItemID, &l.Name, &l.Category, &l.IsAvailable, &l.Available, &l.Locked); err != nil {
			return nil, err
		}
		l.OnHand = l.Available + l.Locked
		out = append(out, l)
	}
	return out, rows.Err()
}

const levelSelect = `
	SELECT mi.id, mi.name, COALESCE(mc.name, ''), mi.is_available, mi.stock_quantity,
	       COALESCE((SELECT SUM(sl.quantity) FROM stock_locks sl
	                 WHERE sl.menu_item_id = mi.id AND sl.status = 'active'), 0)
	FROM menu_items mi
	LEFT JOIN menu_categories mc ON mc.id = mi.category_id`

func (s *PGStore) ActiveLocks(ctx context.Context, now time.Time) ([]Lock, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := s.db.Query(ctx, `
		SELECT id, order_id, menu_item_id, quantity, status, locked_at, expires_at, resolved_at
		FROM stock_locks
		WHERE status = 'active' AND expires_at > $1
		ORDER BY locked_at DESC
	`, now)
	if err != nil {
		return nil, err
	}
	return scanLocks(rows)
}

func (s *PGStore) SetStock(ctx context.Context, menuItemID string, qty int, reason string) (*Adjustment, error) {
	if qty < 0 {
		return nil, ErrNegativeStock
	}
	if _, err := uuid.Parse(menuItemID); err != nil {
		return nil, ErrItemNotFound
	}
	var adj *Adjustment
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		var current int
		err := tx.QueryRow(ctx, `SELECT stock_quantity FROM menu_items WHERE id = $1 FOR UPDATE`, menuItemID).Scan(&current)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrItemNotFound
		}
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			UPDATE menu_items
			SET stock_quantity = $2, is_available = $3, updated_at = NOW()
			WHERE id = $1
		`, menuItemID, qty, qty > 0); err != nil {
			return err
		}
		delta := qty - current
		if err := insertTransaction(ctx, tx, Transaction{
			MenuItemID: menuItemID, Type: TxAdjust, Quantity: abs(delta), Delta: delta,
			PreviousStock: current, NewStock: qty, Reason: reason,
		}); err != nil {
			return err
		}
		adj = &Adjustment{MenuItemID: menuItemID, PreviousStock: current, NewStock: qty, Change: delta, IsAvailable: qty > 0}
		return nil
	})
	return adj, err
}

func (s *PGStore) Transactions(ctx context.Context, limit, offset int) ([]Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := s.db.Query(ctx, `
		SELECT st.id, st.menu_item_id, mi.name, COALESCE(st.order_id, ''), st.type,
		       st.quantity, st.delta, st.previous_stock, st.new_stock, COALESCE(st.reason, ''), st.created_at
		FROM stock_transactions st
		JOIN menu_items mi ON mi.id = st.menu_item_id
		ORDER BY st.created_at DESC, st.id
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.MenuItemID, &t.ItemName, &t.OrderID, &t.Type,
			&t.Quantity, &t.Delta, &t.PreviousStock, &t.NewStock, &t.Reason, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func selectLocksForUpdate(ctx context.Context, tx pgx.Tx, orderID string, statuses ...LockStatus) ([]Lock, error) {
	ss := make([]string, len(statuses))
	for i, st := range statuses {
		ss[i] = string(st)
	}
	rows, err := tx.Query(ctx, `
		SELECT id, order_id, menu_item_id, quantity, status, locked_at, expires_at, resolved_at
		FROM stock_locks
		WHERE order_id = $1 AND status = ANY($2::text[])
		ORDER BY menu_item_id
		FOR UPDATE
	`, orderID, ss)
	if err != nil {
		return nil, err
	}
	return scanLocks(rows)
}

func scanLocks(rows pgx.Rows) ([]Lock, error) {
	defer rows.Close()
	var out []Lock
	for rows.Next() {
		var l Lock
		var status string
		if err := rows.Scan(&l.ID, &l.OrderID, &l.MenuItemID, &l.Quantity, &status, &l.LockedAt, &l.ExpiresAt, &l.ResolvedAt); err != nil {
			return nil, err
		}
		l.Status = LockStatus(status)
		out = append(out, l)
	}
	return out, rows.Err()
}

// restoreTx returns a lock's units to stock and audits it. A menu item that no
// longer exists is skipped.
func restoreTx(ctx context.Context, tx pgx.Tx, l Lock, typ TxType, reason string) error {
	var current int
	err := tx.QueryRow(ctx, `SELECT stock_quantity FROM menu_items WHERE id = $1 FOR UPDATE`, l.MenuItemID).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	newStock := current + l.Quantity
	if _, err := tx.Exec(ctx, `
		UPDATE menu_items SET stock_quantity = $2, updated_at = NOW() WHERE id = $1
	`, l.MenuItemID, newStock); err != nil {
		return err
	}
	return insertTransaction(ctx, tx, Transaction{
		MenuItemID: l.MenuItemID, OrderID: l.OrderID, Type: typ,
		Quantity: l.Quantity, Delta: l.Quantity, PreviousStock: current, NewStock: newStock, Reason: reason,
	})
}

func insertTransaction(ctx context.Context, tx pgx.Tx, t Transaction) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO stock_transactions
		  (id, menu_item_id, order_id, type, quantity, delta, previous_stock, new_stock, reason, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NOW())
	`, t.ID, t.MenuItemID, nullable(t.OrderID), string(t.Type), t.Quantity, t.Delta, t.PreviousStock, t.NewStock, t.Reason)
	return err
}

func lockIDs(locks []Lock) []string {
	ids := make([]string, len(locks))
	for i, l := range locks {
		ids[i] = l.ID
	}
	return ids
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func timePtr(t time.Time) *time.Time { return &t }

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
