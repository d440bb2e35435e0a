// Package menu provides the repository interface and PostgreSQL implementation
// for menu items and categories.
package menu

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound         = errors.New("menu item not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrCategoryExists   = errors.New("category already exists")
	ErrInUse            = errors.New("menu item is referenced by orders or reservations")
	ErrInvalid          = errors.New("invalid menu item")
)

type Query struct {
	Q             string
	CategoryID    string
	AvailableOnly bool
	Limit         int
	Offset        int
}

type Repository interface {
	Create(ctx context.Context, it *Item) error
	GetByID(ctx context.Context, id string) (*Item, error)
	List(ctx context.Context, q Query) ([]Item, error)
	Update(ctx context.Context, id string, req UpdateItemRequest) (*Item, error)
	Delete(ctx context.Context, id string) (bool, error)
	Categories(ctx context.Context) ([]Category, error)
	CreateCategory(ctx context.Context, c *Category) error
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

const itemSelect = `
	SELECT mi.id, mi.category_id::text, COALESCE(mc.name, ''), mi.name, mi.description, mi.price::text,
	       mi.stock_quantity, mi.is_available, mi.preparation_time, mi.image_url, mi.created_at, mi.updated_at
	FROM menu_items mi
	LEFT JOIN menu_categories mc ON mc.id = mi.category_id`

func scanItem(row pgx.Row, it *Item) error {
	return row.Scan(&it.ID, &it.CategoryID, &it.CategoryName, &it.Name, &it.Description, &it.Price,
		&it.StockQuantity, &it.IsAvailable, &it.PreparationTime, &it.ImageURL, &it.CreatedAt, &it.UpdatedAt)
}

// Create inserts the item and, when it starts with stock, the matching
// adjustment row so the audit trail accounts for every unit.
func (r *PGRepo) Create(ctx context.Context, it *Item) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	if it.CategoryID != nil {
		if _, err := uuid.Parse(*it.CategoryID); err != nil {
			return ErrCategoryNotFound
		}
	}
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO menu_items (id, category_id, name, description, price, stock_quantity,
		                        is_available, preparation_time, image_url, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NOW(),NOW())
		RETURNING created_at, updated_at
	`, it.ID, it.CategoryID, it.Name, it.Description, it.Price, it.StockQuantity,
		it.IsAvailable, it.PreparationTime, it.ImageURL).Scan(&it.CreatedAt, &it.UpdatedAt)
	if isForeignKeyViolation(err) {
		return ErrCategoryNotFound
	}
	if err != nil {
		return err
	}
	if it.StockQuantity > 0 {
		if _, err := tx.Exec(ctx, `
			INSERT INTO stock_transactions (id, menu_item_id, type, quantity, delta, previous_stock, new_stock, reason, created_at)
			VALUES ($1,$2,'adjust',$3,$3,0,$3,'initial stock',NOW())
		`, uuid.NewString(), it.ID, it.StockQuantity); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (*Item, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var it Item
	err := scanItem(r.db.QueryRow(ctx, itemSelect+` WHERE mi.id = $1`, id), &it)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func (r *PGRepo) List(ctx context.Context, q Query) ([]Item, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	limit := q.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	search := strings.TrimSpace(q.Q)

	rows, err := r.db.Query(ctx, itemSelect+`
		WHERE ($1 = '' OR mi.name ILIKE '%'||$1||'%' OR mi.description ILIKE '%'||$1||'%')
		  AND ($2 = '' OR mi.category_id::text = $2)
		  AND (NOT $3 OR (mi.is_available AND mi.stock_quantity > 0))
		ORDER BY mc.name NULLS LAST, mi.name
		LIMIT $4 OFFSET $5
	`, search, strings.TrimSpace(q.CategoryID), q.AvailableOnly, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Item, 0)
	for rows.Next() {
		var it Item
		if err := scanItem(rows, &it); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *PGRepo) Update(ctx context.Context, id string, req UpdateItemRequest) (*Item, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	setCategory := req.CategoryID != nil
	category := ""
	if setCategory {
		category = strings.TrimSpace(*req.CategoryID)
		if category != "" {
			if _, err := uuid.Parse(category); err != nil {
				return nil, ErrCategoryNotFound
			}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
		UPDATE menu_items
		SET name = COALESCE($2, name),
		    description = COALESCE($3, description),
		    price = COALESCE($4::numeric, price),
		    is_available = COALESCE($5, is_available),
		    preparation_time = COALESCE($6, preparation_time),
		    image_url = COALESCE($7, image_url),
		    category_id = CASE WHEN $8::boolean THEN NULLIF($9::text, '')::uuid ELSE category_id END,
		    updated_at = NOW()
		WHERE id = $1
	`, id, req.Name, req.Description, req.Price, req.IsAvailable, req.PreparationTime, req.ImageURL,
		setCategory, category)
	if isForeignKeyViolation(err) {
		return nil, ErrCategoryNotFound
	}
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *PGRepo) Delete(ctx context.Context, id string) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cmd, err := r.db.Exec(ctx, `DELETE FROM menu_items WHERE id=$1`, id)
	if isForeignKeyViolation(err) {
		return false, ErrInUse
	}
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *PGRepo) Categories(ctx context.Context) ([]Category, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT id, name, description, is_active, created_at
		FROM menu_categories
		WHERE is_active
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Category, 0)
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.IsActive, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PGRepo) CreateCategory(ctx context.Context, c *Category) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO menu_categories (id, name, description, is_active, created_at)
		VALUES ($1,$2,$3,TRUE,NOW())
		RETURNING is_active, created_at
	`, c.ID, c.Name, c.Description).Scan(&c.IsActive, &c.CreatedAt)
	if isUniqueViolation(err) {
		return ErrCategoryExists
	}
	return err
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isForeignKeyViolation(err error) bool { return pgCode(err) == "23503" }

func isUniqueViolation(err error) bool { return pgCode(err) == "23505" }
