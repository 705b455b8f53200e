package service

import (
	"context"
	"fmt"

	"servicehub/internal/logger"
	"servicehub/internal/shared"
	"servicehub/internal/storefront/models"
	"servicehub/internal/storefront/repository"
)

// ResolveService joins service with its establishment, the establishment's address
// and its owning provider. Unresolvable references stay nil; duplicate ids resolve
// to the first entry in snapshot order. Pure: no I/O, no errors.
func ResolveService(
	service models.Service,
	establishments *repository.Snapshot[models.Establishment],
	addresses *repository.Snapshot[models.Address],
	providers *repository.Snapshot[models.User],
) models.EnrichedService {
	enriched := models.EnrichedService{Service: service}

	enriched.Establishment = establishments.Lookup(service.EstablishmentID)
	if enriched.Establishment == nil {
		return enriched
	}
	enriched.Address = addresses.Lookup(enriched.Establishment.AddressID)
	enriched.Provider = providers.Lookup(enriched.Establishment.ProviderID)
	return enriched
}

// ResolveServices resolves every service, keeping the input order.
func ResolveServices(
	services []models.Service,
	establishments *repository.Snapshot[models.Establishment],
	addresses *repository.Snapshot[models.Address],
	providers *repository.Snapshot[models.User],
) []models.EnrichedService {
	out := make([]models.EnrichedService, 0, len(services))
	for _, s := range services {
		out = append(out, ResolveService(s, establishments, addresses, providers))
	}
	return out
}

// CatalogLoader produces fresh catalog snapshots.
type CatalogLoader interface {
	Load(ctx context.Context) (*repository.Catalog, error)
}

type CatalogService interface {
	ListEnrichedServices(ctx context.Context) ([]models.EnrichedService, error)
	GetEnrichedService(ctx context.Context, serviceID int64) (*models.EnrichedService, error)
	ListProviderServices(ctx context.Context, providerID int64) ([]models.EnrichedService, error)
}

type catalogService struct {
	loader CatalogLoader
}

func NewCatalogService(loader CatalogLoader) CatalogService {
	return &catalogService{loader: loader}
}

// ListEnrichedServices loads fresh snapshots and joins every service.
func (s *catalogService) ListEnrichedServices(ctx context.Context) ([]models.EnrichedService, error) {
	catalog, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return ResolveServices(catalog.Services.All(), catalog.Establishments, catalog.Addresses, catalog.Users), nil
}

// GetEnrichedService joins a single service.
func (s *catalogService) GetEnrichedService(ctx context.Context, serviceID int64) (*models.EnrichedService, error) {
	catalog, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	svc, ok := catalog.Services.Get(serviceID)
	if !ok {
		return nil, fmt.Errorf("service %d: %w", serviceID, shared.ErrNotFound)
	}
	enriched := ResolveService(svc, catalog.Establishments, catalog.Addresses, catalog.Users)
	return &enriched, nil
}

// ListProviderServices returns the services offered by establishments the provider owns.
func (s *catalogService) ListProviderServices(ctx context.Context, providerID int64) ([]models.EnrichedService, error) {
	catalog, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	owned := catalog.Establishments.ByForeignKey(func(e models.Establishment) int64 { return e.ProviderID }, providerID)
	if len(owned) == 0 {
		return []models.EnrichedService{}, nil
	}
	ownedIDs := make(map[int64]bool, len(owned))
	for _, e := range owned {
		ownedIDs[e.ID] = true
	}

	var services []models.Service
	for _, svc := range catalog.Services.All() {
		if ownedIDs[svc.EstablishmentID] {
			services = append(services, svc)
		}
	}
	return ResolveServices(services, catalog.Establishments, catalog.Addresses, catalog.Users), nil
}

func (s *catalogService) load(ctx context.Context) (*repository.Catalog, error) {
	catalog, err := s.loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	warnDuplicates(ctx, "services", catalog.Services.Duplicates())
	warnDuplicates(ctx, "establishments", catalog.Establishments.Duplicates())
	warnDuplicates(ctx, "addresses", catalog.Addresses.Duplicates())
	warnDuplicates(ctx, "users", catalog.Users.Duplicates())
	return catalog, nil
}

func warnDuplicates(ctx context.Context, collection string, ids []int64) {
	if len(ids) == 0 {
		return
	}
	logger.FromContext(ctx).Warn().
		Str("collection", collection).
		Ints64("ids", ids).
		Msg("duplicate ids in snapshot, first match wins")
}
