package heroes

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/draftarena/backend/models"
)

const cacheKey = "heroes:pool"

// cachedCatalog keeps the hero pool in Redis with a TTL so draft-time
// validation does not hammer the upstream API. Cache failures are logged
// and fall through to the wrapped catalog; the pool is small and changes
// rarely, availability wins over freshness.
type cachedCatalog struct {
	inner  Catalog
	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedCatalog(inner Catalog, rdb *redis.Client, ttl time.Duration, logger *slog.Logger) Catalog {
	return &cachedCatalog{inner: inner, rdb: rdb, ttl: ttl, logger: logger}
}

func (c *cachedCatalog) List(ctx context.Context) ([]models.Hero, error) {
	raw, err := c.rdb.Get(ctx, cacheKey).Bytes()
	if err == nil {
		var heroes []models.Hero
		if jsonErr := json.Unmarshal(raw, &heroes); jsonErr == nil && len(heroes) > 0 {
			return heroes, nil
		}
		c.logger.Warn("hero cache entry corrupt, refetching", slog.String("key", cacheKey))
	} else if err != redis.Nil {
		c.logger.Warn("hero cache read failed", slog.Any("error", err))
	}

	heroes, err := c.inner.List(ctx)
	if err != nil {
		return nil, err
	}

	if raw, jsonErr := json.Marshal(heroes); jsonErr == nil {
		if setErr := c.rdb.Set(ctx, cacheKey, raw, c.ttl).Err(); setErr != nil {
			c.logger.Warn("hero cache write failed", slog.Any("error", setErr))
		}
	}
	return heroes, nil
}
