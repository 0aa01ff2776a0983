package funnel

import (
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/gringalabs/leadscore/internal/metrics"
	"github.com/gringalabs/leadscore/internal/models"
)

const cacheVersionKey = "leadscore:dashboard:version"

// Cache is a Redis-backed cache for the aggregated dashboard payload.
// Invalidation bumps a version counter instead of deleting keys; stale
// entries simply expire. A nil *Cache is valid and disables caching.
type Cache struct {
	client  *redis.Client
	ttl     time.Duration
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewCache creates a dashboard cache. Returns nil when client is nil so
// callers can wire it unconditionally.
func NewCache(client *redis.Client, ttl time.Duration, logger *zap.Logger, m *metrics.Metrics) *Cache {
	if client == nil {
		return nil
	}
	return &Cache{client: client, ttl: ttl, logger: logger, metrics: m}
}

func (c *Cache) key(ctx context.Context, filters models.DashboardFilters) string {
	version, err := c.client.Get(ctx, cacheVersionKey).Result()
	if err != nil {
		version = "0"
	}
	raw, _ := json.Marshal(filters)
	return fmt.Sprintf("leadscore:dashboard:%s:%x", version, sha1.Sum(raw))
}

// GetDashboard returns the cached dashboard for the given filters, if any.
func (c *Cache) GetDashboard(ctx context.Context, filters models.DashboardFilters) (*models.Dashboard, bool) {
	if c == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, c.key(ctx, filters)).Bytes()
	if err != nil {
		if c.metrics != nil {
			c.metrics.RecordCacheOutcome("miss")
		}
		return nil, false
	}
	var dashboard models.Dashboard
	if err := json.Unmarshal(raw, &dashboard); err != nil {
		return nil, false
	}
	if c.metrics != nil {
		c.metrics.RecordCacheOutcome("hit")
	}
	return &dashboard, true
}

// SetDashboard stores the dashboard for the given filters.
func (c *Cache) SetDashboard(ctx context.Context, filters models.DashboardFilters, dashboard *models.Dashboard) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(dashboard)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, c.key(ctx, filters), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("failed to cache dashboard", zap.Error(err))
	}
}

// Invalidate makes all cached dashboards stale after a write.
func (c *Cache) Invalidate(ctx context.Context) {
	if c == nil {
		return
	}
	if err := c.client.Incr(ctx, cacheVersionKey).Err(); err != nil {
		c.logger.Warn("failed to invalidate dashboard cache", zap.Error(err))
	}
}
