package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"servicehub/internal/shared"
	"servicehub/internal/storefront/models"
)

// Kind tags an entity collection managed from the admin surface.
type Kind string

const (
	KindServices       Kind = "services"
	KindEstablishments Kind = "establishments"
	KindAddresses      Kind = "addresses"
	KindUsers          Kind = "users"
	KindOrders         Kind = "orders"
	KindRatings        Kind = "ratings"
)

// EntityAPI is the capability set every registered entity kind provides.
type EntityAPI interface {
	List(ctx context.Context) ([]json.RawMessage, error)
	Create(ctx context.Context, payload json.RawMessage) (json.RawMessage, error)
	Update(ctx context.Context, id int64, payload json.RawMessage) (json.RawMessage, error)
	Delete(ctx context.Context, id int64) error
}

// RawResourceClient is the untyped side of the data API.
type RawResourceClient interface {
	ListRaw(ctx context.Context, resource string) ([]json.RawMessage, error)
	CreateRaw(ctx context.Context, resource string, payload json.RawMessage) (json.RawMessage, error)
	UpdateRaw(ctx context.Context, resource string, id int64, payload json.RawMessage) (json.RawMessage, error)
	DeleteRaw(ctx context.Context, resource string, id int64) error
}

// OrderCanceller performs the soft cancellation of an order.
type OrderCanceller interface {
	CancelOrder(ctx context.Context, orderID int64) error
}

// Registry maps entity kinds to their EntityAPI.
// Adding an entity kind means registering one implementation.
type Registry struct {
	mu   sync.RWMutex
	apis map[Kind]EntityAPI
}

func NewRegistry() *Registry {
	return &Registry{apis: make(map[Kind]EntityAPI)}
}

// NewDefaultRegistry registers every storefront kind against client.
// Orders and ratings are list-only apart from cancelling an order: orders are
// created by the contract ledger, ratings by the eligibility-gated submission.
func NewDefaultRegistry(client RawResourceClient, canceller OrderCanceller) *Registry {
	r := NewRegistry()
	for _, kind := range []Kind{KindServices, KindEstablishments, KindAddresses, KindUsers} {
		r.Register(kind, NewRESTResource(client, string(kind)))
	}
	r.Register(KindOrders, &orderResource{client: client, canceller: canceller})
	r.Register(KindRatings, &ratingResource{client: client})
	return r
}

// Register adds or replaces the implementation for kind.
func (r *Registry) Register(kind Kind, api EntityAPI) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.apis[kind] = api
}

// Get returns the implementation for kind.
func (r *Registry) Get(kind Kind) (EntityAPI, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	api, ok := r.apis[kind]
	if !ok {
		return nil, fmt.Errorf("unknown entity kind: %s", kind)
	}
	return api, nil
}

func (r *Registry) Has(kind Kind) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.apis[kind]
	return ok
}

// Kinds returns the registered kinds sorted by name.
func (r *Registry) Kinds() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]Kind, 0, len(r.apis))
	for k := range r.apis {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// RESTResource is the plain REST implementation of EntityAPI.
type RESTResource struct {
	client   RawResourceClient
	resource string
}

func NewRESTResource(client RawResourceClient, resource string) *RESTResource {
	return &RESTResource{client: client, resource: resource}
}

func (r *RESTResource) List(ctx context.Context) ([]json.RawMessage, error) {
	return r.client.ListRaw(ctx, r.resource)
}

func (r *RESTResource) Create(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
	return r.client.CreateRaw(ctx, r.resource, payload)
}

func (r *RESTResource) Update(ctx context.Context, id int64, payload json.RawMessage) (json.RawMessage, error) {
	return r.client.UpdateRaw(ctx, r.resource, id, payload)
}

func (r *RESTResource) Delete(ctx context.Context, id int64) error {
	return r.client.DeleteRaw(ctx, r.resource, id)
}

// orderResource only allows the active to cancelled transition, either as a
// delete or as an update whose payload is exactly {"status":"cancelled"}.
type orderResource struct {
	client    RawResourceClient
	canceller OrderCanceller
}

func (r *orderResource) List(ctx context.Context) ([]json.RawMessage, error) {
	return r.client.ListRaw(ctx, string(KindOrders))
}

func (r *orderResource) Create(context.Context, json.RawMessage) (json.RawMessage, error) {
	return nil, fmt.Errorf("orders are created with \"orders create\": %w", shared.ErrImmutable)
}

func (r *orderResource) Update(ctx context.Context, id int64, payload json.RawMessage) (json.RawMessage, error) {
	if !isCancelPayload(payload) {
		return nil, fmt.Errorf("order %d: only {\"status\":%q} is accepted: %w", id, models.OrderCancelled, shared.ErrImmutable)
	}
	if err := r.canceller.CancelOrder(ctx, id); err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		ID     int64              `json:"id"`
		Status models.OrderStatus `json:"status"`
	}{id, models.OrderCancelled})
}

func (r *orderResource) Delete(ctx context.Context, id int64) error {
	return r.canceller.CancelOrder(ctx, id)
}

func isCancelPayload(payload json.RawMessage) bool {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil || len(fields) != 1 {
		return false
	}
	raw, ok := fields["status"]
	if !ok {
		return false
	}
	var status models.OrderStatus
	return json.Unmarshal(raw, &status) == nil && status == models.OrderCancelled
}

// ratingResource is read-only.
type ratingResource struct {
	client RawResourceClient
}

func (r *ratingResource) List(ctx context.Context) ([]json.RawMessage, error) {
	return r.client.ListRaw(ctx, string(KindRatings))
}

func (r *ratingResource) Create(context.Context, json.RawMessage) (json.RawMessage, error) {
	return nil, fmt.Errorf("ratings are submitted with \"rating rate\": %w", shared.ErrImmutable)
}

func (r *ratingResource) Update(_ context.Context, id int64, _ json.RawMessage) (json.RawMessage, error) {
	return nil, fmt.Errorf("rating %d: %w", id, shared.ErrImmutable)
}

func (r *ratingResource) Delete(_ context.Context, id int64) error {
	return fmt.Errorf("rating %d: %w", id, shared.ErrImmutable)
}
