package service

import (
	"context"
	"time"

	"servicehub/internal/storefront/dto"
	"servicehub/internal/storefront/models"
	"servicehub/internal/storefront/repository"
	"servicehub/internal/storefront/session"

	"github.com/stretchr/testify/mock"
)

// MockOrderRepository mocks the OrderRepository interface
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) ListOrders(ctx context.Context, filter dto.OrderFilter) ([]models.Order, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Order), args.Error(1)
}

func (m *MockOrderRepository) CreateOrder(ctx context.Context, req dto.CreateOrderRequest) (*models.Order, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderRepository) UpdateOrderStatus(ctx context.Context, orderID int64, status models.OrderStatus) (*models.Order, error) {
	args := m.Called(ctx, orderID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

// MockRatingRepository mocks the RatingRepository interface
type MockRatingRepository struct {
	mock.Mock
}

func (m *MockRatingRepository) ListRatingsByService(ctx context.Context, serviceID int64) ([]models.Rating, error) {
	args := m.Called(ctx, serviceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Rating), args.Error(1)
}

func (m *MockRatingRepository) CreateRating(ctx context.Context, req dto.CreateRatingRequest) (*models.Rating, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Rating), args.Error(1)
}

// MockCatalogLoader mocks the CatalogLoader interface
type MockCatalogLoader struct {
	mock.Mock
}

func (m *MockCatalogLoader) Load(ctx context.Context) (*repository.Catalog, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.Catalog), args.Error(1)
}

// --- FIXTURES ---

var baseTime = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func clientSession(id int64) *session.Session {
	return session.New(models.User{ID: id, Name: "Ana", Email: "ana@example.com", Role: models.RoleClient, Active: true}, "token", time.Time{})
}

func providerSession(id int64) *session.Session {
	return session.New(models.User{ID: id, Name: "Bruno", Email: "bruno@example.com", Role: models.RoleProvider, Active: true}, "token", time.Time{})
}

func order(id, clientID, serviceID int64, status models.OrderStatus, offset time.Duration) models.Order {
	return models.Order{ID: id, ClientID: clientID, ServiceID: serviceID, Status: status, CreatedAt: baseTime.Add(offset)}
}

func rating(id, orderID, serviceID int64, score int) models.Rating {
	return models.Rating{ID: id, OrderID: orderID, ServiceID: serviceID, Score: score, CreatedAt: baseTime}
}

func newCatalog(services []models.Service, establishments []models.Establishment, addresses []models.Address, users []models.User) *repository.Catalog {
	return &repository.Catalog{
		Services:       repository.NewSnapshot(services, func(s models.Service) int64 { return s.ID }, baseTime),
		Establishments: repository.NewSnapshot(establishments, func(e models.Establishment) int64 { return e.ID }, baseTime),
		Addresses:      repository.NewSnapshot(addresses, func(a models.Address) int64 { return a.ID }, baseTime),
		Users:          repository.NewSnapshot(users, func(u models.User) int64 { return u.ID }, baseTime),
	}
}
