// Package db opens the shared Postgres pool and applies the schema.
package db

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schema string

// Connect opens a pool and pings it.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// Migrate applies the embedded schema. Every statement is idempotent;
// concurrent callers queue on an advisory lock.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext('canteen-schema'))`); err != nil {
		return fmt.Errorf("schema lock: %w", err)
	}
	if _, err := tx.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return tx.Commit(ctx)
}

type seedItem struct {
	category    string
	name        string
	description string
	price       string
	stock       int
	prepMinutes int
}

var seedCategories = []struct{ name, description string }{
	{"Lunch", "Mains served from 11:30"},
	{"Dinner", "Evening menu"},
	{"Snacks", "Quick bites"},
	{"Beverages", "Hot and cold drinks"},
}

var seedItems = []seedItem{
	{"Lunch", "Margherita Pizza", "Tomato, mozzarella and basil", "299.00", 15, 15},
	{"Lunch", "Chicken Burger", "Grilled chicken with lettuce and mayo", "199.00", 8, 10},
	{"Lunch", "Club Sandwich", "Triple-decker with chicken and bacon", "179.00", 7, 8},
	{"Dinner", "Ramen Bowl", "Pork broth, noodles and soft egg", "399.00", 5, 20},
	{"Dinner", "Sushi Roll", "Salmon and avocado, eight pieces", "249.00", 10, 15},
	{"Snacks", "Caesar Salad", "Romaine, parmesan and croutons", "149.00", 12, 5},
	{"Snacks", "Chocolate Cake", "Slice of dark chocolate cake", "89.00", 20, 2},
	{"Snacks", "French Fries", "Salted fries", "99.00", 0, 6},
	{"Snacks", "Hot Dog", "Beef sausage in a soft bun", "129.00", 3, 5},
	{"Beverages", "Cappuccino", "Double shot with steamed milk", "79.00", 25, 3},
}

// Seed inserts sample categories and menu items. Items whose name already
// exists are left alone, so running it twice is harmless.
func Seed(ctx context.Context, pool *pgxpool.Pool) (int, error) {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	catIDs := make(map[string]string, len(seedCategories))
	for _, c := range seedCategories {
		var id string
		err := tx.QueryRow(ctx, `
			INSERT INTO menu_categories (name, description)
			VALUES ($1,$2)
			ON CONFLICT (name) DO UPDATE SET description = EXCLUDED.description
			RETURNING id
		`, c.name, c.description).Scan(&id)
		if err != nil {
			return 0, fmt.Errorf("seed category %s: %w", c.name, err)
		}
		catIDs[c.name] = id
	}

	inserted := 0
	for _, it := range seedItems {
		tag, err := tx.Exec(ctx, `
			INSERT INTO menu_items (category_id, name, description, price, stock_quantity, is_available, preparation_time)
			SELECT $1::uuid, $2::text, $3::text, $4::numeric, $5::int, $6::boolean, $7::int
			WHERE NOT EXISTS (SELECT 1 FROM menu_items WHERE name = $2)
		`, catIDs[it.category], it.name, it.description, it.price, it.stock, it.stock > 0, it.prepMinutes)
		if err != nil {
			return 0, fmt.Errorf("seed item %s: %w", it.name, err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, tx.Commit(ctx)
}
