package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/pocketledger/internal/domain"
	"github.com/iho/pocketledger/internal/infrastructure/metrics"
)

// breakdownCache keeps monthly category breakdowns. Writers invalidate the
// months their movements touched after committing. All methods are no-ops
// without a backing Cache; cache failures are logged, never returned.
type breakdownCache struct {
	cache   Cache
	ttl     time.Duration
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

func newBreakdownCache(cache Cache, ttl time.Duration, logger zerolog.Logger, m *metrics.Metrics) *breakdownCache {
	if ttl <= 0 {
		ttl = DefaultBreakdownCacheTTL
	}

	return &breakdownCache{cache: cache, ttl: ttl, logger: logger, metrics: m}
}

func breakdownKey(userID string, month, year int) string {
	return fmt.Sprintf("breakdown:%s:%04d-%02d", userID, year, month)
}

func (c *breakdownCache) get(ctx context.Context, userID string, month, year int) (*domain.CategoryBreakdown, bool) {
	if c == nil || c.cache == nil {
		return nil, false
	}

	raw, err := c.cache.Get(ctx, breakdownKey(userID, month, year))
	if err != nil || len(raw) == 0 {
		c.count("miss")
		return nil, false
	}

	var breakdown domain.CategoryBreakdown
	if err := json.Unmarshal(raw, &breakdown); err != nil {
		c.logger.Warn().Err(err).Str("user_id", userID).Msg("discarding undecodable breakdown cache entry")
		c.count("miss")
		return nil, false
	}

	c.count("hit")
	return &breakdown, true
}

func (c *breakdownCache) set(ctx context.Context, userID string, breakdown *domain.CategoryBreakdown) {
	if c == nil || c.cache == nil {
		return
	}

	raw, err := json.Marshal(breakdown)
	if err != nil {
		return
	}

	key := breakdownKey(userID, breakdown.Month, breakdown.Year)
	if err := c.cache.Set(ctx, key, raw, c.ttl); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("failed to cache breakdown")
	}
}

// invalidate drops the breakdowns of every month containing one of dates.
func (c *breakdownCache) invalidate(ctx context.Context, userID string, dates ...time.Time) {
	if c == nil || c.cache == nil || len(dates) == 0 {
		return
	}

	seen := make(map[string]bool, len(dates))
	keys := make([]string, 0, len(dates))
	for _, d := range dates {
		d = d.UTC()
		key := breakdownKey(userID, int(d.Month()), d.Year())
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}

	if err := c.cache.Delete(ctx, keys...); err != nil {
		c.logger.Warn().Err(err).Strs("keys", keys).Msg("failed to invalidate breakdown cache")
	}
}

func (c *breakdownCache) count(result string) {
	if c.metrics != nil {
		c.metrics.BreakdownCache.WithLabelValues(result).Inc()
	}
}
