package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"trade-guard/internal/config"
	"trade-guard/internal/exchange/kraken"
	"trade-guard/internal/log"
	"trade-guard/internal/market"
)

// balancecheck fetches the account balances once and prints each holding
// with its estimated USD value. Useful as a credentials smoke test.
func main() {
	var configPath string
	var timeoutSec int
	flag.StringVar(&configPath, "config", "config/config.yaml", "config yaml path")
	flag.IntVar(&timeoutSec, "timeout", 30, "overall timeout in seconds")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fatal(err.Error())
	}
	logger, err := log.New(cfg.Logging)
	if err != nil {
		fatal(err.Error())
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSec)*time.Second)
	defer cancel()

	gateway, err := kraken.NewClient(cfg.Gateway, logger)
	if err != nil {
		fatal(err.Error())
	}
	balances, err := gateway.Balances(ctx)
	if err != nil {
		fatal(fmt.Sprintf("fetch balances: %v", err))
	}

	oracle := market.NewPriceOracle(market.NewCoinGeckoFeed(cfg.Feed), time.Duration(cfg.Cache.PriceRefreshSec)*time.Second, logger)
	prices := oracle.Prices(ctx)

	assets := make([]string, 0, len(balances))
	for asset := range balances {
		assets = append(assets, asset)
	}
	sort.Strings(assets)

	total := decimal.Zero
	for _, asset := range assets {
		qty := balances[asset]
		value := qty.Mul(prices.USD(asset))
		total = total.Add(value)
		fmt.Printf("%-8s %20s  ~%s USD\n", asset, qty.String(), value.StringFixed(2))
	}
	fmt.Printf("%-8s %20s  ~%s USD\n", "TOTAL", "", total.StringFixed(2))
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
