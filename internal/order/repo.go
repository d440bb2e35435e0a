package order

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MikeMC777/canteen-ordering/internal/stock"
)

type Repository interface {
	// Create stores the order with its items and reserves their stock until
	// o.ExpiresAt, all in one transaction.
	Create(ctx context.Context, o *Order, items []Item) error
	GetByID(ctx context.Context, id string) (*Order, []Item, error)
	GetItems(ctx context.Context, orderID string) ([]Item, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Order, error)
	List(ctx context.Context, q ListQuery) ([]Order, error)
	// Transition moves the order to status `to` and applies the stock side
	// effect in the same transaction: confirm keeps the reservation, cancel
	// and expire give it back.
	Transition(ctx context.Context, id string, to Status, reason string, now time.Time) (*Order, []stock.Lock, error)
	Stats(ctx context.Context, from, to time.Time) (*Stats, error)
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

const orderColumns = `id, user_id, status, total::text, notes, cancel_reason, expires_at, created_at, updated_at`

func scanOrder(row pgx.Row, o *Order) error {
	return row.Scan(&o.ID, &o.UserID, &o.Status, &o.Total, &o.Notes, &o.CancelReason, &o.ExpiresAt, &o.CreatedAt, &o.UpdatedAt)
}

func (r *PGRepo) Create(ctx context.Context, o *Order, items []Item) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := tx.QueryRow(ctx, `
		INSERT INTO orders (id, user_id, status, total, notes, expires_at, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,NOW(),NOW())
		RETURNING created_at, updated_at
	`, o.ID, o.UserID, string(o.Status), o.Total, o.Notes, o.ExpiresAt).Scan(&o.CreatedAt, &o.UpdatedAt); err != nil {
		return err
	}

	reqs := make([]stock.Request, 0, len(items))
	for _, it := range items {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items (id, order_id, menu_item_id, quantity, unit_price, total_price)
			VALUES ($1,$2,$3,$4,$5,$6)
		`, it.ID, o.ID, it.MenuItemID, it.Quantity, it.UnitPrice, it.TotalPrice); err != nil {
			return err
		}
		reqs = append(reqs, stock.Request{MenuItemID: it.MenuItemID, Quantity: it.Quantity})
	}

	if _, err := stock.LockTx(ctx, tx, o.ID, reqs, o.ExpiresAt); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (*Order, []Item, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil, ErrNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var o Order
	err := scanOrder(r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id), &o)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	items, err := r.items(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return &o, items, nil
}

func (r *PGRepo) GetItems(ctx context.Context, orderID string) ([]Item, error) {
	if _, err := uuid.Parse(orderID); err != nil {
		return nil, ErrNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id=$1)`, orderID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotFound
	}
	return r.items(ctx, orderID)
}

func (r *PGRepo) items(ctx context.Context, orderID string) ([]Item, error) {
	rows, err := r.db.Query(ctx, `
		SELECT oi.id, oi.order_id, oi.menu_item_id, COALESCE(mi.name, ''), oi.quantity,
		       oi.unit_price::text, oi.total_price::text
		FROM order_items oi
		LEFT JOIN menu_items mi ON mi.id = oi.menu_item_id
		WHERE oi.order_id = $1
		ORDER BY mi.name
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Item, 0)
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.OrderID, &it.MenuItemID, &it.MenuItemName, &it.Quantity, &it.UnitPrice, &it.TotalPrice); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	limit, offset = clampPage(limit, offset)
	rows, err := r.db.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders WHERE user_id=$1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

func (r *PGRepo) List(ctx context.Context, q ListQuery) ([]Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	limit, offset := clampPage(q.Limit, q.Offset)
	rows, err := r.db.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, string(q.Status), limit, offset)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

func collectOrders(rows pgx.Rows) ([]Order, error) {
	defer rows.Close()
	out := make([]Order, 0)
	for rows.Next() {
		var o Order
		if err := scanOrder(rows, &o); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *PGRepo) Transition(ctx context.Context, id string, to Status, reason string, now time.Time) (*Order, []stock.Lock, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil, ErrNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var cur Status
	err = tx.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1 FOR UPDATE`, id).Scan(&cur)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	if !CanTransition(cur, to) {
		return nil, nil, transitionError(cur, to)
	}

	var locks []stock.Lock
	switch to {
	case StatusConfirmed:
		locks, err = stock.ConfirmTx(ctx, tx, id, now)
	case StatusCancelled, StatusExpired:
		locks, err = stock.ReleaseTx(ctx, tx, id, now)
	}
	if err != nil {
		return nil, nil, err
	}

	var o Order
	if err := scanOrder(tx.QueryRow(ctx, `
		UPDATE orders
		SET status = $2,
		    cancel_reason = CASE WHEN $2 = 'cancelled' THEN $3 ELSE cancel_reason END,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING `+orderColumns, id, string(to), reason), &o); err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}
	return &o, locks, nil
}

func (r *PGRepo) Stats(ctx context.Context, from, to time.Time) (*Stats, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	st := Stats{Date: from.Format("2006-01-02")}
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'pending'),
		       COUNT(*) FILTER (WHERE status = 'confirmed'),
		       COUNT(*) FILTER (WHERE status = 'completed'),
		       COUNT(*) FILTER (WHERE status = 'cancelled'),
		       COUNT(*) FILTER (WHERE status = 'expired'),
		       COALESCE(SUM(total) FILTER (WHERE status = 'completed'), 0)::numeric(10,2)::text
		FROM orders
		WHERE created_at >= $1 AND created_at < $2
	`, from, to).Scan(&st.Total, &st.Pending, &st.Confirmed, &st.Completed, &st.Cancelled, &st.Expired, &st.Revenue)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func transitionError(from, to Status) error {
	return &TransitionError{From: from, To: to}
}

// TransitionError matches ErrInvalidTransition.
type TransitionError struct {
	From, To Status
}

func (e *TransitionError) Error() string {
	return "cannot change order status from " + string(e.From) + " to " + string(e.To)
}

func (e *TransitionError) Is(target error) bool { return target == ErrInvalidTransition }
