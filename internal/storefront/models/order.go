package models

import "time"

type OrderStatus string

const (
	OrderActive    OrderStatus = "active"
	OrderCancelled OrderStatus = "cancelled"
)

// Order is a client's contract for a single service. An order starts active and
// may only move to cancelled.
type Order struct {
	ID        int64       `json:"id"`
	ClientID  int64       `json:"client_id"`
	ServiceID int64       `json:"service_id"`
	Status    OrderStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	Notes     *string     `json:"notes,omitempty"`
}

func (o Order) IsActive() bool {
	return o.Status == OrderActive
}
