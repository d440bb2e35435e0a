package stock

import (
	"context"
	"time"
)

// Store is the transactional reservation primitive. Each method is atomic:
// either every row it touches changes or none does.
type Store interface {
	Lock(ctx context.Context, orderID string, reqs []Request, expiresAt time.Time) ([]Lock, error)
	Confirm(ctx context.Context, orderID string, now time.Time) ([]Lock, error)
	Release(ctx context.Context, orderID string, now time.Time) ([]Lock, error)
	// ExpireDue expires at most limit active locks whose hold ended at or
	// before now, and expires pending orders past their deadline.
	ExpireDue(ctx context.Context, now time.Time, limit int) ([]Lock, error)

	Level(ctx context.Context, menuItemID string) (*Level, error)
	Levels(ctx context.Context) ([]Level, error)
	ActiveLocks(ctx context.Context, now time.Time) ([]Lock, error)
	SetStock(ctx context.Context, menuItemID string, qty int, reason string) (*Adjustment, error)
	Transactions(ctx context.Context, limit, offset int) ([]Transaction, error)
}
