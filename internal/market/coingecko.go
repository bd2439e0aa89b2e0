package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"trade-guard/internal/config"
)

const defaultFeedBaseURL = "https://api.coingecko.com"

var coinGeckoIDs = map[string]string{
	"BTC": "bitcoin",
	"ETH": "ethereum",
	"XRP": "ripple",
	"LTC": "litecoin",
	"ADA": "cardano",
	"DOT": "polkadot",
}

// CoinGeckoFeed queries the simple-price endpoint for USD quotes.
type CoinGeckoFeed struct {
	baseURL    string
	httpClient *http.Client
}

func NewCoinGeckoFeed(cfg config.FeedConfig) *CoinGeckoFeed {
	timeout := 10 * time.Second
	if cfg.HTTPTimeoutSec > 0 {
		timeout = time.Duration(cfg.HTTPTimeoutSec) * time.Second
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultFeedBaseURL
	}
	return &CoinGeckoFeed{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (f *CoinGeckoFeed) SpotPrices(ctx context.Context, assets []string) (map[string]decimal.Decimal, error) {
	ids := make([]string, 0, len(assets))
	idToAsset := make(map[string]string, len(assets))
	for _, asset := range assets {
		asset = strings.ToUpper(strings.TrimSpace(asset))
		id, ok := coinGeckoIDs[asset]
		if !ok {
			continue
		}
		ids = append(ids, id)
		idToAsset[id] = asset
	}
	if len(ids) == 0 {
		return map[string]decimal.Decimal{}, nil
	}

	params := url.Values{}
	params.Set("ids", strings.Join(ids, ","))
	params.Set("vs_currencies", "usd")
	endpoint := f.baseURL + "/api/v3/simple/price?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("price feed http error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	// Decode through json.Number so quotes survive without a float round-trip.
	var parsed map[string]map[string]json.Number
	dec := json.NewDecoder(strings.NewReader(string(body)))
	dec.UseNumber()
	if err := dec.Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode price feed response: %w", err)
	}

	prices := make(map[string]decimal.Decimal, len(parsed))
	for id, quote := range parsed {
		asset, ok := idToAsset[id]
		if !ok {
			continue
		}
		usd, ok := quote["usd"]
		if !ok {
			continue
		}
		price, err := decimal.NewFromString(usd.String())
		if err != nil {
			continue
		}
		prices[asset] = price
	}
	return prices, nil
}
