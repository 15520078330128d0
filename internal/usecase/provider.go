package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/apkrank/apk/internal/domain"
	"github.com/sirupsen/logrus"
)

// DefaultMaxAge is the staleness window of a local catalog copy
const DefaultMaxAge = 24 * time.Hour

// ProviderConfig holds configuration for the catalog provider
type ProviderConfig struct {
	MaxAge time.Duration

	// AllowStale returns an outdated local copy when refreshing it fails
	AllowStale bool

	Now func() time.Time
}

// CatalogProvider owns the local catalog copy and its in-process cache
type CatalogProvider struct {
	fetcher    domain.CatalogFetcher
	store      domain.CatalogStore
	cache      domain.SnapshotCache
	maxAge     time.Duration
	allowStale bool
	now        func() time.Time
	log        logrus.FieldLogger
}

// NewCatalogProvider creates a new catalog provider with dependencies
func NewCatalogProvider(
	fetcher domain.CatalogFetcher,
	store domain.CatalogStore,
	cache domain.SnapshotCache,
	config ProviderConfig,
	log logrus.FieldLogger,
) *CatalogProvider {
	maxAge := config.MaxAge
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	now := config.Now
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &CatalogProvider{
		fetcher:    fetcher,
		store:      store,
		cache:      cache,
		maxAge:     maxAge,
		allowStale: config.AllowStale,
		now:        now,
		log:        log.WithField("component", "provider"),
	}
}

// Acquire returns a snapshot of the catalog at path.
// Flow: cache -> local file (download when missing) -> one re-download when stale
func (p *CatalogProvider) Acquire(ctx context.Context, path string) (*domain.CatalogSnapshot, error) {
	log := p.log.WithField("path", path)

	if cached, err := p.cache.Get(ctx, path); err == nil {
		log.Debug("using cached catalog snapshot")
		return cached, nil
	} else if !errors.Is(err, domain.ErrCacheMiss) {
		log.WithError(err).Warn("snapshot cache unavailable")
	}

	exists, err := p.store.Exists(path)
	if err != nil {
		return nil, fmt.Errorf("failed to check for local catalog: %w", err)
	}

	var snapshot *domain.CatalogSnapshot
	downloaded := false
	if exists {
		snapshot, err = p.store.Load(path)
	} else {
		log.Info("no local catalog available, downloading")
		snapshot, err = p.download(ctx, path)
		downloaded = true
	}
	if err != nil {
		return nil, err
	}

	now := p.now()
	if snapshot.IsStale(now, p.maxAge) {
		snapshot, err = p.refresh(ctx, path, snapshot, now, downloaded)
		if err != nil {
			return nil, err
		}
	}

	if err := p.cache.Set(ctx, path, snapshot, snapshot.CreatedAt.Add(p.maxAge)); err != nil {
		log.WithError(err).Warn("failed to cache catalog snapshot")
	}
	return snapshot, nil
}

// refresh replaces a stale snapshot with a single new download. A copy that
// was itself just downloaded is kept as is.
func (p *CatalogProvider) refresh(
	ctx context.Context,
	path string,
	stale *domain.CatalogSnapshot,
	now time.Time,
	downloaded bool,
) (*domain.CatalogSnapshot, error) {
	log := p.log.WithFields(logrus.Fields{
		"path":    path,
		"created": stale.CreatedAt,
		"age":     stale.Age(now).Round(time.Minute).String(),
	})

	if downloaded {
		log.Warn("downloaded catalog is already older than the staleness window")
		return stale, nil
	}

	log.Infof("catalog is %d day(s) old, downloading again", int(stale.Age(now)/(24*time.Hour)))
	fresh, err := p.download(ctx, path)
	if err != nil {
		if p.allowStale && errors.Is(err, domain.ErrFetchFailed) {
			log.WithError(err).Warn("refresh failed, using stale catalog")
			return stale, nil
		}
		return nil, err
	}

	if fresh.IsStale(now, p.maxAge) {
		log.WithField("created", fresh.CreatedAt).Warn("catalog is still stale after download")
	}
	return fresh, nil
}

// download fetches the remote catalog and replaces the local copy. The body
// is decoded first so a malformed download never overwrites the file.
func (p *CatalogProvider) download(ctx context.Context, path string) (*domain.CatalogSnapshot, error) {
	raw, err := p.fetcher.FetchCatalog(ctx)
	if err != nil {
		return nil, err
	}

	snapshot, err := p.store.Decode(path, raw)
	if err != nil {
		return nil, err
	}

	if err := p.store.WriteRaw(path, raw); err != nil {
		return nil, fmt.Errorf("failed to store downloaded catalog: %w", err)
	}

	p.log.WithFields(logrus.Fields{
		"path":    path,
		"records": len(snapshot.Records),
		"created": snapshot.CreatedAt,
		"bytes":   len(raw),
	}).Info("catalog downloaded")
	return snapshot, nil
}

// Save writes the snapshot's metric annotation back to the catalog at path
func (p *CatalogProvider) Save(ctx context.Context, path string, snapshot *domain.CatalogSnapshot) error {
	if err := p.store.Save(path, snapshot); err != nil {
		return fmt.Errorf("failed to save annotated catalog: %w", err)
	}
	if err := p.cache.Set(ctx, path, snapshot, snapshot.CreatedAt.Add(p.maxAge)); err != nil {
		p.log.WithError(err).Warn("failed to cache catalog snapshot")
	}
	return nil
}
