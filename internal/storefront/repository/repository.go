package repository

import (
	"context"

	"servicehub/internal/storefront/dto"
	"servicehub/internal/storefront/models"
)

// CatalogRepository lists the read-mostly catalog collections.
type CatalogRepository interface {
	ListServices(ctx context.Context) ([]models.Service, error)
	ListEstablishments(ctx context.Context) ([]models.Establishment, error)
	ListAddresses(ctx context.Context) ([]models.Address, error)
	ListUsers(ctx context.Context) ([]models.User, error)
}

// OrderRepository is the contract side of the data API.
type OrderRepository interface {
	ListOrders(ctx context.Context, filter dto.OrderFilter) ([]models.Order, error)
	CreateOrder(ctx context.Context, req dto.CreateOrderRequest) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, status models.OrderStatus) (*models.Order, error)
}

// RatingRepository lists and creates ratings.
type RatingRepository interface {
	ListRatingsByService(ctx context.Context, serviceID int64) ([]models.Rating, error)
	CreateRating(ctx context.Context, req dto.CreateRatingRequest) (*models.Rating, error)
}
