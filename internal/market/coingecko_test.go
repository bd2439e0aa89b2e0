package market

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"trade-guard/internal/config"
)

func TestSpotPricesParsesQuotes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/simple/price" {
			t.Errorf("path = %s", r.URL.Path)
		}
		ids := r.URL.Query().Get("ids")
		for _, id := range []string{"bitcoin", "ethereum"} {
			if !strings.Contains(ids, id) {
				t.Errorf("ids %q missing %s", ids, id)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"bitcoin":{"usd":47123.55},"ethereum":{"usd":2610}}`))
	}))
	defer server.Close()

	feed := NewCoinGeckoFeed(config.FeedConfig{BaseURL: server.URL})
	prices, err := feed.SpotPrices(context.Background(), []string{"BTC", "ETH"})
	if err != nil {
		t.Fatalf("SpotPrices() error = %v", err)
	}
	if !prices["BTC"].Equal(decimal.RequireFromString("47123.55")) {
		t.Fatalf("BTC = %s, want 47123.55", prices["BTC"])
	}
	if !prices["ETH"].Equal(decimal.RequireFromString("2610")) {
		t.Fatalf("ETH = %s, want 2610", prices["ETH"])
	}
}

func TestSpotPricesHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	feed := NewCoinGeckoFeed(config.FeedConfig{BaseURL: server.URL})
	if _, err := feed.SpotPrices(context.Background(), []string{"BTC"}); err == nil {
		t.Fatal("SpotPrices() error = nil, want http error")
	}
}

func TestSpotPricesSkipsUnknownAssets(t *testing.T) {
	var requested string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = r.URL.Query().Get("ids")
		_, _ = w.Write([]byte(`{"ripple":{"usd":0.61}}`))
	}))
	defer server.Close()

	feed := NewCoinGeckoFeed(config.FeedConfig{BaseURL: server.URL})
	prices, err := feed.SpotPrices(context.Background(), []string{"XRP", "SOL"})
	if err != nil {
		t.Fatalf("SpotPrices() error = %v", err)
	}
	if requested != "ripple" {
		t.Fatalf("ids = %q, want only mapped assets requested", requested)
	}
	if len(prices) != 1 {
		t.Fatalf("prices = %v, want XRP only", prices)
	}
}
