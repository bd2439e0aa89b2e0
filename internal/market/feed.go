package market

import (
	"context"

	"github.com/shopspring/decimal"
)

// SupportedAssets is the fixed set of assets the oracle quotes, in human
// notation.
var SupportedAssets = []string{"BTC", "ETH", "XRP", "LTC", "ADA", "DOT"}

// Feed delivers USD spot prices for a list of assets in human notation.
// Assets missing from the response are simply absent from the map; the
// oracle fills them from its fallback table.
type Feed interface {
	SpotPrices(ctx context.Context, assets []string) (map[string]decimal.Decimal, error)
}
