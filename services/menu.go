package services

import (
	"context"
	"errors"
	"fmt"

	"restaurant-chatbot/db"
	"restaurant-chatbot/models"

	"github.com/jackc/pgx/v5"
)

// MenuStore reads and seeds the menu catalog. Items are immutable after
// seeding except for the availability flag.
type MenuStore interface {
	ListAvailable(ctx context.Context) ([]models.MenuItem, error)
	Get(ctx context.Context, id int64) (*models.MenuItem, error)
	Seed(ctx context.Context, items []models.MenuItem) error
}

type PgMenuStore struct{}

func NewPgMenuStore() *PgMenuStore {
	return &PgMenuStore{}
}

func (s *PgMenuStore) ListAvailable(ctx context.Context) ([]models.MenuItem, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, name, description, price_cents, category, available
		FROM menu_items
		WHERE available
		ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.MenuItem
	for rows.Next() {
		var it models.MenuItem
		if err := rows.Scan(&it.ID, &it.Name, &it.Description, &it.PriceCents, &it.Category, &it.Available); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// Get returns (nil, nil) when no item has the given id.
func (s *PgMenuStore) Get(ctx context.Context, id int64) (*models.MenuItem, error) {
	var it models.MenuItem
	err := db.Pool.QueryRow(ctx, `
		SELECT id, name, description, price_cents, category, available
		FROM menu_items WHERE id = $1`,
		id,
	).Scan(&it.ID, &it.Name, &it.Description, &it.PriceCents, &it.Category, &it.Available)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// Seed replaces the whole catalog with the given items in one transaction.
func (s *PgMenuStore) Seed(ctx context.Context, items []models.MenuItem) error {
	for _, it := range items {
		if !models.ValidCategory(it.Category) {
			return fmt.Errorf("invalid category: %s", it.Category)
		}
		if it.Name == "" {
			return fmt.Errorf("name is required")
		}
		if it.PriceCents < 0 {
			return fmt.Errorf("price must be >= 0")
		}
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM menu_items`); err != nil {
		return fmt.Errorf("clear menu: %w", err)
	}
	for _, it := range items {
		_, err := tx.Exec(ctx, `
			INSERT INTO menu_items (id, name, description, price_cents, category, available)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			it.ID, it.Name, it.Description, it.PriceCents, it.Category, it.Available,
		)
		if err != nil {
			return fmt.Errorf("insert menu item %d: %w", it.ID, err)
		}
	}
	return tx.Commit(ctx)
}

// SampleMenu is the fixed catalog installed by the seed endpoint.
func SampleMenu() []models.MenuItem {
	return []models.MenuItem{
		{ID: 1, Name: "Chicken Burger", Description: "Juicy chicken patty with lettuce and special sauce", PriceCents: 899, Category: models.CategoryMain, Available: true},
		{ID: 2, Name: "Vegetable Salad", Description: "Fresh vegetables with olive oil dressing", PriceCents: 599, Category: models.CategoryAppetizer, Available: true},
		{ID: 3, Name: "French Fries", Description: "Crispy potato fries with ketchup", PriceCents: 399, Category: models.CategoryAppetizer, Available: true},
		{ID: 4, Name: "Chocolate Cake", Description: "Rich chocolate cake with cream", PriceCents: 499, Category: models.CategoryDessert, Available: true},
		{ID: 5, Name: "Soda", Description: "Refreshing carbonated drink", PriceCents: 199, Category: models.CategoryDrink, Available: true},
		{ID: 6, Name: "Pizza", Description: "Cheese pizza with tomato sauce", PriceCents: 1099, Category: models.CategoryMain, Available: true},
		{ID: 7, Name: "Ice Cream", Description: "Vanilla ice cream with chocolate sauce", PriceCents: 399, Category: models.CategoryDessert, Available: true},
		{ID: 8, Name: "Lemonade", Description: "Fresh lemonade with mint", PriceCents: 299, Category: models.CategoryDrink, Available: true},
	}
}
