package dedup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Ramsey-B/wisteria/pkg/models"
	"github.com/Ramsey-B/wisteria/pkg/redis"
)

const (
	// GenerationKey holds a counter that advances whenever building data
	// changes. Cached scan results embed the generation in their key, so one
	// bump orphans every previously cached result at once.
	GenerationKey = "dedup:generation"

	// ResultKeyPrefix is the prefix for cached duplicate scan results
	ResultKeyPrefix = "dedup:groups:"
)

// Cache stores duplicate scan results in Redis stamped with a data generation.
// Invalidation never deletes result keys; it advances the generation so stale
// entries stop being read and expire through their TTL.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache creates a scan result cache with the given entry TTL.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Get returns the cached result for a scan query, or false when no fresh
// entry exists. Redis errors are treated as misses so a degraded cache never
// breaks scanning.
func (c *Cache) Get(ctx context.Context, search string, minSimilarity float64, limit int) (*models.DuplicateGroupsResponse, bool) {
	gen, err := c.generation(ctx)
	if err != nil {
		return nil, false
	}

	data, err := c.client.Get(ctx, c.resultKey(gen, search, minSimilarity, limit))
	if err != nil {
		return nil, false
	}

	var resp models.DuplicateGroupsResponse
	if err := json.Unmarshal([]byte(data), &resp); err != nil {
		return nil, false
	}

	return &resp, true
}

// Put stores a scan result under the current generation.
func (c *Cache) Put(ctx context.Context, search string, minSimilarity float64, limit int, resp *models.DuplicateGroupsResponse) error {
	gen, err := c.generation(ctx)
	if err != nil {
		return err
	}

	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to marshal scan result: %w", err)
	}

	return c.client.Set(ctx, c.resultKey(gen, search, minSimilarity, limit), string(data), c.ttl)
}

// Bump invalidates every cached scan result by advancing the generation.
// Called after merges, reverts, exclusion changes, and ingested data changes.
func (c *Cache) Bump(ctx context.Context) error {
	_, err := c.client.Incr(ctx, GenerationKey)
	return err
}

// generation reads the current generation counter. A counter that has never
// been bumped reads as zero.
func (c *Cache) generation(ctx context.Context) (int64, error) {
	val, err := c.client.Get(ctx, GenerationKey)
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return 0, nil
		}
		return 0, err
	}
	return strconv.ParseInt(val, 10, 64)
}

// resultKey builds the cache key for one scan query. The search term goes
// last because it is free-form text; Redis keys are binary safe.
func (c *Cache) resultKey(gen int64, search string, minSimilarity float64, limit int) string {
	return fmt.Sprintf("%s%d:%.4f:%d:%s", ResultKeyPrefix, gen, minSimilarity, limit, search)
}
