package infrastructure

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tracklytics/internal/domain"
	"tracklytics/pkg/logger"
)

// CatalogCache serves immutable traffic source snapshots with a
// refresh TTL. Callers always get a copy, never shared mutable state.
//
// A failed refresh falls back to the previous snapshot when one
// exists; with no snapshot at all the error is ErrCatalogUnavailable
// so source classification fails closed.
type CatalogCache struct {
	catalog domain.SourceCatalog
	ttl     time.Duration
	logger  *logger.Logger

	mutex     sync.RWMutex
	snapshot  []domain.TrafficSource
	fetchedAt time.Time
}

// creates a new catalog cache
func NewCatalogCache(catalog domain.SourceCatalog, ttl time.Duration, logger *logger.Logger) *CatalogCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CatalogCache{
		catalog: catalog,
		ttl:     ttl,
		logger:  logger,
	}
}

// Snapshot returns the current catalog, refreshing it when stale.
func (c *CatalogCache) Snapshot(ctx context.Context) ([]domain.TrafficSource, error) {
	c.mutex.RLock()
	if c.snapshot != nil && time.Since(c.fetchedAt) < c.ttl {
		fresh := copySources(c.snapshot)
		c.mutex.RUnlock()
		return fresh, nil
	}
	c.mutex.RUnlock()

	c.mutex.Lock()
	defer c.mutex.Unlock()

	// another caller may have refreshed while we waited
	if c.snapshot != nil && time.Since(c.fetchedAt) < c.ttl {
		return copySources(c.snapshot), nil
	}

	sources, err := c.catalog.FetchSources(ctx)
	if err != nil {
		if c.snapshot != nil {
			c.logger.WithContext(ctx).WithError(err).Warn("Catalog refresh failed, serving stale snapshot")
			return copySources(c.snapshot), nil
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrCatalogUnavailable, err)
	}

	c.snapshot = copySources(sources)
	c.fetchedAt = time.Now()

	c.logger.WithContext(ctx).WithField("sources", len(sources)).Info("Refreshed traffic source catalog")
	return copySources(c.snapshot), nil
}

func copySources(src []domain.TrafficSource) []domain.TrafficSource {
	out := make([]domain.TrafficSource, len(src))
	copy(out, src)
	return out
}
