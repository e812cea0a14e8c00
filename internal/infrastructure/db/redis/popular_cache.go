package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/smartrecipehub/recipe-hub/internal/api/metrics"
	"github.com/smartrecipehub/recipe-hub/internal/core/domain"
	"github.com/smartrecipehub/recipe-hub/internal/core/ports"
)

const (
	popularTTL    = time.Minute
	popularPrefix = "recipes:popular:"
)

// PopularCache keeps the popular listing per limit as JSON.
// Key format: recipes:popular:<limit>
type PopularCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewPopularCache(client *redis.Client) *PopularCache {
	return &PopularCache{client: client, ttl: popularTTL}
}

// cachedRecipe carries the fields the public JSON form of domain.Recipe hides.
type cachedRecipe struct {
	domain.Recipe
	Version int64 `json:"version"`
}

func (c *PopularCache) GetPopular(ctx context.Context, limit int) ([]*domain.Recipe, bool, error) {
	raw, err := c.client.Get(ctx, popularKey(limit)).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.PopularCacheTotal.WithLabelValues("miss").Inc()
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("popular cache get: %w", err)
	}

	var cached []cachedRecipe
	if err := json.Unmarshal(raw, &cached); err != nil {
		return nil, false, fmt.Errorf("popular cache decode: %w", err)
	}
	out := make([]*domain.Recipe, len(cached))
	for i := range cached {
		r := cached[i].Recipe
		r.Version = cached[i].Version
		out[i] = &r
	}
	metrics.PopularCacheTotal.WithLabelValues("hit").Inc()
	return out, true, nil
}

func (c *PopularCache) SetPopular(ctx context.Context, limit int, recipes []*domain.Recipe) error {
	cached := make([]cachedRecipe, len(recipes))
	for i, r := range recipes {
		cached[i] = cachedRecipe{Recipe: *r, Version: r.Version}
	}
	raw, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("popular cache encode: %w", err)
	}
	return c.client.Set(ctx, popularKey(limit), raw, c.ttl).Err()
}

// InvalidatePopular drops every cached limit variant.
func (c *PopularCache) InvalidatePopular(ctx context.Context) error {
	var keys []string
	iter := c.client.Scan(ctx, 0, popularPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("popular cache scan: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

func popularKey(limit int) string {
	return fmt.Sprintf("%s%d", popularPrefix, limit)
}

var _ ports.PopularCache = (*PopularCache)(nil)
