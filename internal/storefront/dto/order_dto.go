package dto

import "servicehub/internal/storefront/models"

// CreateOrderRequest for POST /orders
type CreateOrderRequest struct {
	ClientID  int64              `json:"client_id"`
	ServiceID int64              `json:"service_id"`
	Status    models.OrderStatus `json:"status"`
	Notes     *string            `json:"notes,omitempty"`
}

// UpdateOrderStatusRequest for PATCH /orders/:id/status
type UpdateOrderStatusRequest struct {
	Status models.OrderStatus `json:"status"`
}

// OrderFilter narrows GET /orders; zero fields are not sent.
type OrderFilter struct {
	ClientID        int64
	EstablishmentID int64
}
