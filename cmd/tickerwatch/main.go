package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"trade-guard/internal/config"
	"trade-guard/internal/market"
)

// tickerwatch subscribes to the public ticker stream and prints each tick.
func main() {
	var configPath string
	var pairsFlag string
	flag.StringVar(&configPath, "config", "config/config.yaml", "config yaml path")
	flag.StringVar(&pairsFlag, "pairs", "XBTUSD", "comma-separated pairs to watch")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fatal(err.Error())
	}

	var pairs []string
	for _, pair := range strings.Split(pairsFlag, ",") {
		pair = strings.TrimSpace(pair)
		if pair != "" {
			pairs = append(pairs, pair)
		}
	}
	if len(pairs) == 0 {
		fatal("at least one pair required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dialCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	stream, err := market.NewTickerStream(dialCtx, cfg.Stream.URL, pairs)
	cancel()
	if err != nil {
		fatal(fmt.Sprintf("connect ticker stream: %v", err))
	}
	defer stream.Close()

	updates, errCh := stream.Updates(ctx)
	for {
		select {
		case update, ok := <-updates:
			if !ok {
				select {
				case err := <-errCh:
					if ctx.Err() == nil {
						fatal(fmt.Sprintf("ticker stream closed: %v", err))
					}
				default:
				}
				return
			}
			fmt.Printf("%s %s last=%s bid=%s ask=%s\n",
				update.Time.UTC().Format(time.RFC3339),
				update.Pair,
				update.Last,
				update.Bid,
				update.Ask)
		case <-ctx.Done():
			return
		}
	}
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
