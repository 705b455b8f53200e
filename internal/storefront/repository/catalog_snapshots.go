package repository

import (
	"context"
	"encoding/json"
	"time"

	"servicehub/internal/logger"
	"servicehub/internal/storefront/models"

	"golang.org/x/sync/errgroup"
)

const (
	keyServices       = "services"
	keyEstablishments = "establishments"
	keyAddresses      = "addresses"
	keyUsers          = "users"
)

// Catalog groups the four snapshots the join resolver reads.
type Catalog struct {
	Services       *Snapshot[models.Service]
	Establishments *Snapshot[models.Establishment]
	Addresses      *Snapshot[models.Address]
	Users          *Snapshot[models.User]
}

// CatalogSnapshots fetches the catalog collections, optionally through a SnapshotCache.
type CatalogSnapshots struct {
	repo  CatalogRepository
	cache SnapshotCache
	ttl   time.Duration
	now   func() time.Time
}

// NewCatalogSnapshots creates a snapshot loader. cache may be nil; ttl<=0 disables caching.
func NewCatalogSnapshots(repo CatalogRepository, cache SnapshotCache, ttl time.Duration) *CatalogSnapshots {
	return &CatalogSnapshots{repo: repo, cache: cache, ttl: ttl, now: time.Now}
}

// Load fetches all four collections concurrently. Any failure fails the whole load.
func (s *CatalogSnapshots) Load(ctx context.Context) (*Catalog, error) {
	var (
		services       []models.Service
		establishments []models.Establishment
		addresses      []models.Address
		users          []models.User
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		services, err = cached(gctx, s, keyServices, s.repo.ListServices)
		return err
	})
	g.Go(func() (err error) {
		establishments, err = cached(gctx, s, keyEstablishments, s.repo.ListEstablishments)
		return err
	})
	g.Go(func() (err error) {
		addresses, err = cached(gctx, s, keyAddresses, s.repo.ListAddresses)
		return err
	})
	g.Go(func() (err error) {
		users, err = cached(gctx, s, keyUsers, s.repo.ListUsers)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	at := s.now()
	return &Catalog{
		Services:       NewSnapshot(services, func(v models.Service) int64 { return v.ID }, at),
		Establishments: NewSnapshot(establishments, func(v models.Establishment) int64 { return v.ID }, at),
		Addresses:      NewSnapshot(addresses, func(v models.Address) int64 { return v.ID }, at),
		Users:          NewSnapshot(users, func(v models.User) int64 { return v.ID }, at),
	}, nil
}

// Invalidate drops every cached catalog collection.
func (s *CatalogSnapshots) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Delete(ctx, keyServices, keyEstablishments, keyAddresses, keyUsers)
}

// cached serves key from the cache when possible, otherwise fetches and stores it.
// Cache errors are logged and never fail the load.
func cached[T any](ctx context.Context, s *CatalogSnapshots, key string, fetch func(context.Context) ([]T, error)) ([]T, error) {
	log := logger.FromContext(ctx)
	useCache := s.cache != nil && s.ttl > 0

	if useCache {
		data, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			log.Warn().Err(err).Str("collection", key).Msg("snapshot cache read failed")
		} else if ok {
			var items []T
			if err := json.Unmarshal(data, &items); err == nil {
				log.Debug().Str("collection", key).Int("count", len(items)).Msg("snapshot served from cache")
				return items, nil
			}
			log.Warn().Str("collection", key).Msg("discarding undecodable cached snapshot")
		}
	}

	items, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("collection", key).Int("count", len(items)).Msg("snapshot fetched")

	if useCache {
		if data, err := json.Marshal(items); err == nil {
			if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
				log.Warn().Err(err).Str("collection", key).Msg("snapshot cache write failed")
			}
		}
	}
	return items, nil
}
