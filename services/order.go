package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"restaurant-chatbot/db"
	"restaurant-chatbot/models"

	"github.com/jackc/pgx/v5"
)

// OrderStore persists orders. Line items are embedded in the order row as
// JSONB, so an order is always read and written as a whole.
type OrderStore interface {
	Create(ctx context.Context, o *models.Order) error
	Update(ctx context.Context, o *models.Order) error
	CurrentByDevice(ctx context.Context, deviceID string) (*models.Order, error)
	HistoryByDevice(ctx context.Context, deviceID string) ([]models.Order, error)
	GetByID(ctx context.Context, id int64) (*models.Order, error)
}

type PgOrderStore struct{}

func NewPgOrderStore() *PgOrderStore {
	return &PgOrderStore{}
}

func (s *PgOrderStore) Create(ctx context.Context, o *models.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshal order items: %w", err)
	}
	err = db.Pool.QueryRow(ctx, `
		INSERT INTO orders (device_id, items, total_cents, status, scheduled_for, payment_reference)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''))
		RETURNING id, created_at`,
		o.DeviceID, itemsJSON, o.TotalCents, o.Status, o.ScheduledFor, o.PaymentReference,
	).Scan(&o.ID, &o.CreatedAt)
	return err
}

func (s *PgOrderStore) Update(ctx context.Context, o *models.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshal order items: %w", err)
	}
	_, err = db.Pool.Exec(ctx, `
		UPDATE orders SET
			items = $1,
			total_cents = $2,
			status = $3,
			scheduled_for = $4,
			payment_reference = NULLIF($5, '')
		WHERE id = $6`,
		itemsJSON, o.TotalCents, o.Status, o.ScheduledFor, o.PaymentReference, o.ID,
	)
	return err
}

// CurrentByDevice returns the device's in-progress order, or (nil, nil) if
// there is none.
func (s *PgOrderStore) CurrentByDevice(ctx context.Context, deviceID string) (*models.Order, error) {
	o, err := s.scanOne(db.Pool.QueryRow(ctx, `
		SELECT id, device_id, items, total_cents, status, created_at, scheduled_for, payment_reference
		FROM orders
		WHERE device_id = $1 AND status = $2`,
		deviceID, models.OrderStatusCurrent,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return o, err
}

func (s *PgOrderStore) HistoryByDevice(ctx context.Context, deviceID string) ([]models.Order, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, device_id, items, total_cents, status, created_at, scheduled_for, payment_reference
		FROM orders
		WHERE device_id = $1 AND status IN ($2, $3)
		ORDER BY created_at DESC`,
		deviceID, models.OrderStatusPlaced, models.OrderStatusPaid,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		o, err := s.scanOne(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

func (s *PgOrderStore) GetByID(ctx context.Context, id int64) (*models.Order, error) {
	o, err := s.scanOne(db.Pool.QueryRow(ctx, `
		SELECT id, device_id, items, total_cents, status, created_at, scheduled_for, payment_reference
		FROM orders WHERE id = $1`,
		id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return o, err
}

func (s *PgOrderStore) scanOne(row pgx.Row) (*models.Order, error) {
	var o models.Order
	var itemsJSON []byte
	var ref *string
	if err := row.Scan(&o.ID, &o.DeviceID, &itemsJSON, &o.TotalCents, &o.Status, &o.CreatedAt, &o.ScheduledFor, &ref); err != nil {
		return nil, err
	}
	if len(itemsJSON) > 0 {
		if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
			return nil, fmt.Errorf("unmarshal order items: %w", err)
		}
	}
	if ref != nil {
		o.PaymentReference = *ref
	}
	return &o, nil
}
