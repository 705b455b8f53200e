package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"servicehub/internal/logger"
	"servicehub/internal/shared"
	"servicehub/internal/storefront/dto"
	"servicehub/internal/storefront/models"
	"servicehub/internal/storefront/repository"
	"servicehub/internal/storefront/session"
)

type ContractLedger interface {
	ListActiveOrders(ctx context.Context, clientID int64) ([]models.Order, error)
	ListEstablishmentOrders(ctx context.Context, establishmentID int64) ([]models.Order, error)
	CreateOrder(ctx context.Context, sess *session.Session, serviceID int64, notes *string) (*models.Order, error)
	CancelOrder(ctx context.Context, orderID int64) error
	DeleteOrder(ctx context.Context, orderID int64) error
}

// contractLedger keeps the last known order snapshot per client so the duplicate
// check can run before delegating to the store. The check is best-effort: two
// concurrent creations may still both reach the store.
type contractLedger struct {
	orderRepo repository.OrderRepository

	mu       sync.Mutex
	byClient map[int64][]models.Order
}

func NewContractLedger(orderRepo repository.OrderRepository) ContractLedger {
	return &contractLedger{
		orderRepo: orderRepo,
		byClient:  make(map[int64][]models.Order),
	}
}

// ListActiveOrders fetches the client's orders, remembers them as the last known
// snapshot and returns the active ones ordered by creation time, then id.
func (l *contractLedger) ListActiveOrders(ctx context.Context, clientID int64) ([]models.Order, error) {
	orders, err := l.refresh(ctx, clientID)
	if err != nil {
		return nil, err
	}
	return activeOnly(orders), nil
}

// ListEstablishmentOrders is the provider-side view: every order for services of
// one establishment, including cancelled ones.
func (l *contractLedger) ListEstablishmentOrders(ctx context.Context, establishmentID int64) ([]models.Order, error) {
	orders, err := l.orderRepo.ListOrders(ctx, dto.OrderFilter{EstablishmentID: establishmentID})
	if err != nil {
		return nil, fmt.Errorf("list orders for establishment %d: %w", establishmentID, err)
	}
	sorted := append([]models.Order(nil), orders...)
	sortOrders(sorted)
	return sorted, nil
}

// CreateOrder contracts serviceID for the session's client.
func (l *contractLedger) CreateOrder(ctx context.Context, sess *session.Session, serviceID int64, notes *string) (*models.Order, error) {
	if !sess.Authenticated() {
		return nil, shared.ErrNotAuthenticated
	}
	if !sess.User.IsClient() {
		return nil, shared.ErrWrongRole
	}
	clientID := sess.User.ID

	known, ok := l.snapshot(clientID)
	if !ok {
		var err error
		if known, err = l.refresh(ctx, clientID); err != nil {
			return nil, err
		}
	}
	for _, o := range known {
		if o.ServiceID == serviceID && o.Status != models.OrderCancelled {
			return nil, fmt.Errorf("service %d: %w", serviceID, shared.ErrDuplicateOrder)
		}
	}

	order, err := l.orderRepo.CreateOrder(ctx, dto.CreateOrderRequest{
		ClientID:  clientID,
		ServiceID: serviceID,
		Status:    models.OrderActive,
		Notes:     notes,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	order.Status = models.OrderActive
	if order.ClientID == 0 {
		order.ClientID = clientID
	}
	if order.ServiceID == 0 {
		order.ServiceID = serviceID
	}

	l.mu.Lock()
	l.byClient[clientID] = append(l.byClient[clientID], *order)
	l.mu.Unlock()

	logger.FromContext(ctx).Info().
		Int64("order_id", order.ID).
		Int64("client_id", clientID).
		Int64("service_id", serviceID).
		Msg("order created")
	return order, nil
}

// CancelOrder flips the order to cancelled. Cancelling an order already known
// to be cancelled is a no-op; there is no way back to active.
// Whether the caller may cancel (contracting client or servicing provider) is
// checked by the caller.
func (l *contractLedger) CancelOrder(ctx context.Context, orderID int64) error {
	if o, ok := l.findKnown(orderID); ok && o.Status == models.OrderCancelled {
		return nil
	}

	updated, err := l.orderRepo.UpdateOrderStatus(ctx, orderID, models.OrderCancelled)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return fmt.Errorf("order %d: %w", orderID, shared.ErrNotFound)
		}
		return fmt.Errorf("cancel order %d: %w", orderID, err)
	}
	if updated != nil && updated.Status != "" && updated.Status != models.OrderCancelled {
		logger.FromContext(ctx).Warn().
			Int64("order_id", orderID).
			Str("status", string(updated.Status)).
			Msg("store returned unexpected status after cancellation")
	}

	l.markCancelled(orderID)
	logger.FromContext(ctx).Info().Int64("order_id", orderID).Msg("order cancelled")
	return nil
}

// DeleteOrder is kept for callers of the old hard-delete path.
//
// Deprecated: orders are never removed; use CancelOrder.
func (l *contractLedger) DeleteOrder(ctx context.Context, orderID int64) error {
	return l.CancelOrder(ctx, orderID)
}

func (l *contractLedger) refresh(ctx context.Context, clientID int64) ([]models.Order, error) {
	orders, err := l.orderRepo.ListOrders(ctx, dto.OrderFilter{ClientID: clientID})
	if err != nil {
		return nil, fmt.Errorf("list orders for client %d: %w", clientID, err)
	}
	snapshot := append([]models.Order(nil), orders...)

	l.mu.Lock()
	l.byClient[clientID] = snapshot
	l.mu.Unlock()

	return append([]models.Order(nil), snapshot...), nil
}

func (l *contractLedger) snapshot(clientID int64) ([]models.Order, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	orders, ok := l.byClient[clientID]
	return append([]models.Order(nil), orders...), ok
}

func (l *contractLedger) findKnown(orderID int64) (models.Order, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, orders := range l.byClient {
		for _, o := range orders {
			if o.ID == orderID {
				return o, true
			}
		}
	}
	return models.Order{}, false
}

// markCancelled replaces the known order with a cancelled copy; snapshots are never mutated in place.
func (l *contractLedger) markCancelled(orderID int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for clientID, orders := range l.byClient {
		for i, o := range orders {
			if o.ID != orderID {
				continue
			}
			next := append([]models.Order(nil), orders...)
			next[i].Status = models.OrderCancelled
			l.byClient[clientID] = next
			break
		}
	}
}

func activeOnly(orders []models.Order) []models.Order {
	active := make([]models.Order, 0, len(orders))
	for _, o := range orders {
		if o.IsActive() {
			active = append(active, o)
		}
	}
	sortOrders(active)
	return active
}
