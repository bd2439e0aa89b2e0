package executor

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"trade-guard/internal/account"
	"trade-guard/internal/core"
	"trade-guard/internal/exchange"
	"trade-guard/internal/exchange/kraken"
	"trade-guard/internal/market"
	"trade-guard/internal/safety"
)

type Status string

const (
	// StatusSubmitted means the gateway accepted the order.
	StatusSubmitted Status = "SUBMITTED"
	// StatusRejected means the proposal was turned down, locally or by the
	// gateway, without any retryable transport failure.
	StatusRejected Status = "REJECTED"
	// StatusExecutionFailed means a dependency failed before an answer was
	// reached: balance fetch, transport, or an open circuit.
	StatusExecutionFailed Status = "EXECUTION_FAILED"
)

// Outcome is the full account of one proposal's journey through validation
// and submission.
type Outcome struct {
	Status          Status
	Pair            string
	Side            core.Side
	RequestedAmount decimal.Decimal
	ExecutedAmount  decimal.Decimal
	Adjusted        bool
	TransactionID   string
	ErrorKind       core.ErrorKind
	RawMessage      string
	Reason          string
	Trail           []string
}

// Executor validates proposals against cached balances and prices, applies at
// most one amount correction, and submits surviving orders to the gateway.
type Executor struct {
	gateway   exchange.Gateway
	balances  *account.Cache
	oracle    *market.PriceOracle
	validator core.Validator
	breaker   *safety.Breaker
	logger    *zap.Logger
}

func New(gateway exchange.Gateway, balances *account.Cache, oracle *market.PriceOracle, validator core.Validator, breaker *safety.Breaker, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		gateway:   gateway,
		balances:  balances,
		oracle:    oracle,
		validator: validator,
		breaker:   breaker,
		logger:    logger,
	}
}

// Execute runs one proposal end to end. The gateway is called at most once;
// a failed validation retries locally at the corrected amount exactly once
// before giving up.
func (e *Executor) Execute(ctx context.Context, proposal core.TradeProposal) Outcome {
	outcome := Outcome{
		Pair:            core.CanonicalPairName(proposal.Pair),
		Side:            proposal.Side,
		RequestedAmount: proposal.Amount,
	}
	outcome.trail("proposal received: %s %s %s", proposal.Side, proposal.Amount, outcome.Pair)

	balances, err := e.balances.Get(ctx, false)
	if err != nil {
		outcome.Status = StatusExecutionFailed
		outcome.Reason = err.Error()
		outcome.trail("balance snapshot unavailable: %v", err)
		e.logger.Error("execution failed before validation", zap.String("pair", outcome.Pair), zap.Error(err))
		return outcome
	}
	prices := e.oracle.Prices(ctx)

	verdict := e.validator.Validate(proposal, balances, prices)
	if !verdict.Valid {
		outcome.trail("validation failed: %s", verdict.Reason)
		if !verdict.HasAdjustment() {
			return e.reject(outcome, verdict.Reason)
		}

		adjusted := proposal.WithAmount(verdict.AdjustedAmount)
		outcome.Adjusted = true
		outcome.trail("retrying at corrected amount %s", verdict.AdjustedAmount)
		verdict = e.validator.Validate(adjusted, balances, prices)
		if !verdict.Valid {
			outcome.trail("corrected amount failed validation: %s", verdict.Reason)
			return e.reject(outcome, verdict.Reason)
		}
		proposal = adjusted
	}
	if verdict.Reason != "" {
		outcome.trail("validation note: %s", verdict.Reason)
	}
	outcome.ExecutedAmount = proposal.Amount
	outcome.trail("validation passed at amount %s", proposal.Amount)

	if err := e.breaker.Allow(); err != nil {
		outcome.Status = StatusExecutionFailed
		outcome.Reason = err.Error()
		outcome.trail("submission blocked: %v", err)
		return outcome
	}

	ack, err := e.gateway.PlaceOrder(ctx, buildOrderRequest(proposal))
	if err != nil {
		if apiErr, ok := kraken.AsAPIError(err); ok {
			// The gateway answered; transport is healthy.
			_ = e.breaker.Record(nil)
			kind, raw := kraken.Classify(apiErr)
			outcome.Status = StatusRejected
			outcome.ErrorKind = kind
			outcome.RawMessage = raw
			outcome.Reason = raw
			outcome.trail("gateway rejected order: %s (%s)", raw, kind)
			e.logger.Warn("order rejected by gateway",
				zap.String("pair", outcome.Pair),
				zap.String("kind", string(kind)),
				zap.String("raw", raw))
			return outcome
		}
		if trip := e.breaker.Record(err); trip != nil {
			outcome.trail("submission circuit tripped")
		}
		outcome.Status = StatusExecutionFailed
		outcome.Reason = err.Error()
		outcome.trail("order submission failed: %v", err)
		e.logger.Error("order submission failed", zap.String("pair", outcome.Pair), zap.Error(err))
		return outcome
	}

	_ = e.breaker.Record(nil)
	e.balances.Invalidate()

	outcome.Status = StatusSubmitted
	outcome.TransactionID = ack.TransactionID()
	outcome.trail("order submitted: txid=%s", outcome.TransactionID)
	e.logger.Info("order submitted",
		zap.String("pair", outcome.Pair),
		zap.String("side", string(proposal.Side)),
		zap.String("amount", proposal.Amount.String()),
		zap.String("txid", outcome.TransactionID))
	return outcome
}

func (e *Executor) reject(outcome Outcome, reason string) Outcome {
	outcome.Status = StatusRejected
	outcome.ErrorKind = core.KindValidationFailed
	outcome.Reason = reason
	outcome.ExecutedAmount = decimal.Zero
	e.logger.Warn("proposal rejected",
		zap.String("pair", outcome.Pair),
		zap.String("side", string(outcome.Side)),
		zap.String("reason", reason))
	return outcome
}

func buildOrderRequest(p core.TradeProposal) exchange.OrderRequest {
	req := exchange.OrderRequest{
		Pair:   core.ToExchangeNotation(p.Pair),
		Side:   p.Side,
		Type:   exchange.Market,
		Volume: p.Amount,
	}
	if p.HasPrice() {
		req.Type = exchange.Limit
		req.Price = p.Price
	}
	return req
}

func (o *Outcome) trail(format string, args ...any) {
	o.Trail = append(o.Trail, fmt.Sprintf(format, args...))
}
