package account

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"trade-guard/internal/core"
	"trade-guard/internal/exchange"
)

// ErrBalanceFetch marks a failed balance refresh. The cache never papers over
// a refresh failure with stale or empty data; validating against wrong
// balances is worse than failing loudly.
var ErrBalanceFetch = errors.New("balance refresh failed")

const defaultBalanceTTL = 30 * time.Second

// Cache is a read-through copy of the account balances held at the gateway.
// Returned snapshots are at most one refresh interval old unless the caller
// forces a refresh.
type Cache struct {
	gateway exchange.Gateway
	ttl     time.Duration
	logger  *zap.Logger
	now     func() time.Time
	group   singleflight.Group

	mu        sync.Mutex
	balances  core.AssetBalances
	fetchedAt time.Time
}

func NewCache(gateway exchange.Gateway, ttl time.Duration, logger *zap.Logger) *Cache {
	if ttl <= 0 {
		ttl = defaultBalanceTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		gateway: gateway,
		ttl:     ttl,
		logger:  logger,
		now:     time.Now,
	}
}

// Get returns a balance snapshot, refreshing from the gateway when forced,
// when the cache is empty, or when the last refresh is older than the TTL.
// Concurrent callers share a single in-flight refresh.
func (c *Cache) Get(ctx context.Context, forceRefresh bool) (core.AssetBalances, error) {
	c.mu.Lock()
	if !forceRefresh && !c.staleLocked(c.now()) {
		snapshot := c.balances.Clone()
		c.mu.Unlock()
		return snapshot, nil
	}
	c.mu.Unlock()

	if _, err, _ := c.group.Do("balances", func() (interface{}, error) {
		return nil, c.refresh(ctx)
	}); err != nil {
		return nil, err
	}

	c.mu.Lock()
	snapshot := c.balances.Clone()
	c.mu.Unlock()
	return snapshot, nil
}

// Invalidate resets the cache age so the next Get refetches. Called after a
// successful order submission: the next proposal must be validated against
// post-trade balances, not pre-trade ones.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.fetchedAt = time.Time{}
	c.mu.Unlock()
}

func (c *Cache) staleLocked(now time.Time) bool {
	if c.balances == nil || c.fetchedAt.IsZero() {
		return true
	}
	return now.Sub(c.fetchedAt) > c.ttl
}

func (c *Cache) refresh(ctx context.Context) error {
	fetched, err := c.gateway.Balances(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBalanceFetch, err)
	}
	c.mu.Lock()
	c.balances = fetched.Clone()
	c.fetchedAt = c.now()
	c.mu.Unlock()
	c.logger.Debug("balances refreshed", zap.Int("assets", len(fetched)))
	return nil
}
