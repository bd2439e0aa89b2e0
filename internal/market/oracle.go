package market

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"trade-guard/internal/core"
)

const defaultPriceTTL = 60 * time.Second

// fallbackPrices cover feed outages so validation can always run. Keyed by
// human notation; converted to exchange notation when served.
var fallbackPrices = map[string]decimal.Decimal{
	"BTC": decimal.NewFromInt(45000),
	"ETH": decimal.NewFromInt(2500),
	"XRP": decimal.RequireFromString("0.6"),
	"LTC": decimal.NewFromInt(100),
	"ADA": decimal.RequireFromString("0.5"),
	"DOT": decimal.NewFromInt(7),
}

// PriceOracle caches USD spot prices for the supported assets. A feed outage
// degrades to the fallback table instead of blocking validation, so Prices
// never fails.
type PriceOracle struct {
	feed   Feed
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
	group  singleflight.Group

	mu        sync.Mutex
	prices    core.PriceTable
	fetchedAt time.Time
}

func NewPriceOracle(feed Feed, ttl time.Duration, logger *zap.Logger) *PriceOracle {
	if ttl <= 0 {
		ttl = defaultPriceTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PriceOracle{
		feed:   feed,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// Prices returns the cached price table, refreshing it when older than the
// TTL. Concurrent callers share a single in-flight refresh.
func (o *PriceOracle) Prices(ctx context.Context) core.PriceTable {
	o.mu.Lock()
	if !o.staleLocked(o.now()) {
		snapshot := o.prices.Clone()
		o.mu.Unlock()
		return snapshot
	}
	o.mu.Unlock()

	o.group.Do("prices", func() (interface{}, error) {
		o.refresh(ctx)
		return nil, nil
	})

	o.mu.Lock()
	snapshot := o.prices.Clone()
	o.mu.Unlock()
	return snapshot
}

// Price returns the USD price for one asset in any notation, falling back to
// 1 for assets outside the supported set.
func (o *PriceOracle) Price(ctx context.Context, asset string) decimal.Decimal {
	return o.Prices(ctx).USD(core.CanonicalAsset(asset))
}

func (o *PriceOracle) staleLocked(now time.Time) bool {
	if o.prices == nil || o.fetchedAt.IsZero() {
		return true
	}
	return now.Sub(o.fetchedAt) > o.ttl
}

func (o *PriceOracle) refresh(ctx context.Context) {
	fetched, err := o.feed.SpotPrices(ctx, SupportedAssets)
	if err != nil {
		o.logger.Warn("price feed unavailable, serving fallback prices", zap.Error(err))
		fetched = nil
	}

	table := make(core.PriceTable, len(fallbackPrices))
	for asset, fallback := range fallbackPrices {
		price := fallback
		if fresh, ok := fetched[asset]; ok && fresh.IsPositive() {
			price = fresh
		}
		table[core.CanonicalAsset(asset)] = price
	}

	o.mu.Lock()
	o.prices = table
	o.fetchedAt = o.now()
	o.mu.Unlock()
	o.logger.Debug("prices refreshed", zap.Int("assets", len(table)), zap.Bool("fallback", err != nil))
}
