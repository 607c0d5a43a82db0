package models

import (
	"fmt"
	"time"
)

const (
	OrderStatusCurrent   = "current"
	OrderStatusPlaced    = "placed"
	OrderStatusPaid      = "paid"
	OrderStatusCancelled = "cancelled"
)

// OrderItem is one line of an order. Name and price are snapshotted from the
// menu item at selection time; the line is stored embedded in the order row
// as JSONB.
type OrderItem struct {
	MenuItemID int64  `json:"menu_item_id"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
	Quantity   int    `json:"qty"`
}

func (i OrderItem) SubtotalCents() int64 {
	return i.PriceCents * int64(i.Quantity)
}

// Order is a row from the orders table. Exactly one order per device may be
// in status "current" at a time (partial unique index in the schema).
type Order struct {
	ID               int64
	DeviceID         string
	Items            []OrderItem
	TotalCents       int64
	Status           string
	CreatedAt        time.Time
	ScheduledFor     *time.Time
	PaymentReference string
}

// AddItem appends the menu item as a new line, or bumps the quantity when it
// is already in the order, and keeps the total in sync.
func (o *Order) AddItem(item MenuItem) {
	for idx := range o.Items {
		if o.Items[idx].MenuItemID == item.ID {
			o.Items[idx].Quantity++
			o.TotalCents += item.PriceCents
			return
		}
	}
	o.Items = append(o.Items, OrderItem{
		MenuItemID: item.ID,
		Name:       item.Name,
		PriceCents: item.PriceCents,
		Quantity:   1,
	})
	o.TotalCents += item.PriceCents
}

// FormatPrice renders cents as a dollar amount, e.g. 899 -> "$8.99".
func FormatPrice(cents int64) string {
	return fmt.Sprintf("$%.2f", float64(cents)/100)
}
