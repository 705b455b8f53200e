package command

import (
	"context"
	"fmt"

	"servicehub/cmd/cli/authentication"
	"servicehub/internal/config"
	"servicehub/internal/logger"
	"servicehub/internal/shared"
	"servicehub/internal/storefront/repository"
	"servicehub/internal/storefront/service"
	"servicehub/internal/storefront/session"
)

// cliApp holds the storefront engine wired for one CLI invocation.
type cliApp struct {
	cfg        *config.Config
	client     *repository.APIClient
	cache      *repository.RedisSnapshotCache
	snapshots  *repository.CatalogSnapshots
	catalog    service.CatalogService
	ledger     service.ContractLedger
	aggregator service.RatingAggregator
	registry   *repository.Registry
	session    *session.Session
}

func newCLIApp(ctx context.Context, cfg *config.Config) (*cliApp, error) {
	log := logger.FromContext(ctx)

	client := repository.NewAPIClient(cfg.APIURL, repository.ClientOptions{
		Timeout:   cfg.APITimeout,
		RateLimit: cfg.APIRateLimit,
		RateBurst: cfg.APIRateBurst,
	})

	a := &cliApp{cfg: cfg, client: client}

	// redis is optional: without it every load goes to the data API
	var snapshotCache repository.SnapshotCache
	if cfg.CacheEnabled() {
		cache, err := repository.NewRedisSnapshotCache(cfg.RedisURL, cfg.RedisPassword)
		if err != nil {
			log.Warn().Err(err).Msg("snapshot cache disabled")
		} else {
			a.cache = cache
			snapshotCache = cache
		}
	}

	sess, err := loadSession(cfg)
	if err != nil {
		log.Warn().Err(err).Msg("ignoring stored session")
	}
	if sess != nil {
		client.SetToken(sess.Token)
	}
	a.session = sess

	a.snapshots = repository.NewCatalogSnapshots(client, snapshotCache, cfg.SnapshotTTL)
	a.catalog = service.NewCatalogService(a.snapshots)
	a.ledger = service.NewContractLedger(client)
	a.aggregator = service.NewRatingAggregator(client, a.ledger)
	a.registry = repository.NewDefaultRegistry(client, a.ledger)
	return a, nil
}

func loadSession(cfg *config.Config) (*session.Session, error) {
	creds, err := authentication.GetTokens()
	if err != nil {
		return nil, fmt.Errorf("read keyring: %w", err)
	}
	if creds == nil || creds.Token == "" {
		return nil, nil
	}
	return session.FromToken(creds.Token, cfg.SessionSecret)
}

// requireSession returns the stored session or shared.ErrNotAuthenticated.
func (a *cliApp) requireSession() (*session.Session, error) {
	if !a.session.Authenticated() {
		return nil, fmt.Errorf("%w: run \"servicehub auth login --token <token>\" first", shared.ErrNotAuthenticated)
	}
	return a.session, nil
}

func (a *cliApp) newRatingPanel() *service.RatingPanel {
	return service.NewRatingPanel(a.ledger, a.aggregator)
}

func (a *cliApp) Close() {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			logger.FromContext(context.Background()).Debug().Err(err).Msg("closing snapshot cache")
		}
	}
}
