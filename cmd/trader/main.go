package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"trade-guard/internal/account"
	"trade-guard/internal/alert"
	"trade-guard/internal/config"
	"trade-guard/internal/core"
	"trade-guard/internal/exchange/kraken"
	"trade-guard/internal/executor"
	"trade-guard/internal/log"
	"trade-guard/internal/market"
	"trade-guard/internal/safety"
	"trade-guard/internal/store"
)

func main() {
	var (
		configPath string
		pair       string
		side       string
		amount     string
		price      string
	)
	flag.StringVar(&configPath, "config", "config/config.yaml", "config yaml path")
	flag.StringVar(&pair, "pair", "", "trading pair, e.g. XBTUSD or BTC/USD")
	flag.StringVar(&side, "side", "", "BUY or SELL")
	flag.StringVar(&amount, "amount", "", "order amount in base units")
	flag.StringVar(&price, "price", "", "optional limit price in quote units")
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

	proposal, err := parseProposal(pair, side, amount, price)
	if err != nil {
		fatal(err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gateway, err := kraken.NewClient(cfg.Gateway, logger)
	if err != nil {
		fatal(err.Error())
	}
	balances := account.NewCache(gateway, time.Duration(cfg.Cache.BalanceRefreshSec)*time.Second, logger)
	oracle := market.NewPriceOracle(
		market.NewCoinGeckoFeed(cfg.Feed),
		time.Duration(cfg.Cache.PriceRefreshSec)*time.Second,
		logger,
	)
	breaker := safety.NewBreaker(cfg.Safety.Enabled, cfg.Safety.MaxSubmitFailures, logger)

	alerts := buildAlertManager(cfg, logger)
	if alerts != nil {
		breaker.SetAlerter(alerts)
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := alerts.Close(closeCtx); err != nil {
				logger.Warn("close alert manager failed", zap.Error(err))
			}
		}()
	}

	stateDir := filepath.Join(cfg.State.Dir, cfg.InstanceID)
	st, err := store.New(stateDir, logger)
	if err != nil {
		fatal(err.Error())
	}

	startedAt := time.Now().UTC()
	persistRuntimeStatus(st, cfg.InstanceID, "running", startedAt, "", logger)

	exec := executor.New(gateway, balances, oracle, core.NewValidator(cfg.MinOrderSizeOverrides()), breaker, logger)
	outcome := exec.Execute(ctx, proposal)
	persistRuntimeStatus(st, cfg.InstanceID, "stopped", startedAt, outcome.Reason, logger)

	record := store.ExecutionRecord{
		Time:            time.Now().UTC(),
		InstanceID:      cfg.InstanceID,
		Pair:            outcome.Pair,
		Side:            outcome.Side,
		Status:          string(outcome.Status),
		RequestedAmount: outcome.RequestedAmount,
		ExecutedAmount:  outcome.ExecutedAmount,
		Adjusted:        outcome.Adjusted,
		TransactionID:   outcome.TransactionID,
		ErrorKind:       outcome.ErrorKind,
		RawMessage:      outcome.RawMessage,
		Reason:          outcome.Reason,
	}
	if err := st.AppendExecution(record); err != nil {
		logger.Error("persist execution record failed", zap.Error(err))
	}

	switch outcome.Status {
	case executor.StatusRejected:
		alerts.Important("order_rejected", map[string]string{
			"pair":   outcome.Pair,
			"side":   string(outcome.Side),
			"kind":   string(outcome.ErrorKind),
			"reason": outcome.Reason,
		})
	case executor.StatusExecutionFailed:
		alerts.Important("execution_failed", map[string]string{
			"pair":   outcome.Pair,
			"side":   string(outcome.Side),
			"reason": outcome.Reason,
		})
	}

	printOutcome(outcome)
	if outcome.Status != executor.StatusSubmitted {
		exitAfterCleanup(stop, alerts, logger, 1)
	}
}

func parseProposal(pair, side, amount, price string) (core.TradeProposal, error) {
	if pair == "" || side == "" || amount == "" {
		return core.TradeProposal{}, fmt.Errorf("-pair, -side and -amount are required")
	}
	var s core.Side
	switch strings.ToUpper(strings.TrimSpace(side)) {
	case string(core.Buy):
		s = core.Buy
	case string(core.Sell):
		s = core.Sell
	default:
		return core.TradeProposal{}, fmt.Errorf("side must be BUY or SELL, got %q", side)
	}
	amt, err := decimal.NewFromString(amount)
	if err != nil {
		return core.TradeProposal{}, fmt.Errorf("parse amount: %w", err)
	}
	p := core.TradeProposal{Pair: pair, Side: s, Amount: amt}
	if price != "" {
		limit, err := decimal.NewFromString(price)
		if err != nil {
			return core.TradeProposal{}, fmt.Errorf("parse price: %w", err)
		}
		p.Price = limit
	}
	return p, nil
}

func buildAlertManager(cfg config.Config, logger *zap.Logger) *alert.Manager {
	tg := cfg.Observability.Telegram
	if !tg.Enabled {
		return nil
	}
	notifier := alert.NewTelegramNotifier(tg.Enabled, tg.BotToken, tg.ChatID, tg.APIBaseURL, time.Duration(tg.TimeoutSec)*time.Second)
	return alert.NewManager(cfg.InstanceID, notifier, logger)
}

func printOutcome(o executor.Outcome) {
	fmt.Printf("status=%s pair=%s side=%s requested=%s", o.Status, o.Pair, o.Side, o.RequestedAmount)
	if o.Adjusted {
		fmt.Printf(" adjusted=%s", o.ExecutedAmount)
	}
	if o.TransactionID != "" {
		fmt.Printf(" txid=%s", o.TransactionID)
	}
	if o.ErrorKind != "" {
		fmt.Printf(" kind=%s", o.ErrorKind)
	}
	if o.Reason != "" {
		fmt.Printf(" reason=%q", o.Reason)
	}
	fmt.Println()
	for _, step := range o.Trail {
		fmt.Printf("  - %s\n", step)
	}
}

func persistRuntimeStatus(st *store.Store, instanceID, state string, startedAt time.Time, lastError string, logger *zap.Logger) {
	err := st.SaveRuntimeStatus(store.RuntimeStatus{
		InstanceID: instanceID,
		PID:        os.Getpid(),
		State:      state,
		StartedAt:  startedAt,
		LastError:  lastError,
	})
	if err != nil {
		logger.Warn("persist runtime status failed", zap.Error(err))
	}
}

func exitAfterCleanup(stop context.CancelFunc, alerts *alert.Manager, logger *zap.Logger, code int) {
	stop()
	if alerts != nil {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := alerts.Close(closeCtx); err != nil {
			logger.Warn("close alert manager failed", zap.Error(err))
		}
	}
	_ = logger.Sync()
	os.Exit(code)
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
