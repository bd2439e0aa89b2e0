package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func defaultPrices() PriceTable {
	return PriceTable{
		"XXBT": decimal.RequireFromString("45000"),
		"XETH": decimal.RequireFromString("2500"),
		"XXRP": decimal.RequireFromString("0.6"),
		"XLTC": decimal.RequireFromString("100"),
		"ADA":  decimal.RequireFromString("0.5"),
		"DOT":  decimal.RequireFromString("7"),
	}
}

func TestValidateNonPositiveAmount(t *testing.T) {
	v := NewValidator(nil)
	proposal := TradeProposal{Pair: "BTC/USD", Side: Buy, Amount: decimal.Zero}

	verdict := v.Validate(proposal, AssetBalances{}, defaultPrices())
	if verdict.Valid {
		t.Fatalf("verdict.Valid = true, want false")
	}
	if !errors.Is(verdict.Cause, ErrNonPositiveAmount) {
		t.Fatalf("verdict.Cause = %v, want %v", verdict.Cause, ErrNonPositiveAmount)
	}
	if verdict.HasAdjustment() {
		t.Fatalf("non-positive amount must not be correctable, got adjustment %s", verdict.AdjustedAmount)
	}
}

func TestValidateBelowMinimumOffersFloor(t *testing.T) {
	v := NewValidator(nil)
	proposal := TradeProposal{
		Pair:   "ETH/USD",
		Side:   Buy,
		Amount: decimal.RequireFromString("0.001"),
	}
	balances := AssetBalances{"ZUSD": decimal.RequireFromString("100000")}

	verdict := v.Validate(proposal, balances, defaultPrices())
	if verdict.Valid {
		t.Fatalf("verdict.Valid = true, want false")
	}
	if !errors.Is(verdict.Cause, ErrBelowMinimumSize) {
		t.Fatalf("verdict.Cause = %v, want %v", verdict.Cause, ErrBelowMinimumSize)
	}
	if !verdict.AdjustedAmount.Equal(decimal.RequireFromString("0.01")) {
		t.Fatalf("AdjustedAmount = %s, want the pair minimum 0.01", verdict.AdjustedAmount)
	}
}

func TestValidateBuyInsufficientPortfolio(t *testing.T) {
	// Buy 0.5 ETH at 2500 costs 1250 against a 1000 ZUSD portfolio.
	v := NewValidator(nil)
	proposal := TradeProposal{
		Pair:   "ETH/USD",
		Side:   Buy,
		Amount: decimal.RequireFromString("0.5"),
		Price:  decimal.RequireFromString("2500"),
	}
	balances := AssetBalances{"ZUSD": decimal.RequireFromString("1000.00")}

	verdict := v.Validate(proposal, balances, defaultPrices())
	if verdict.Valid {
		t.Fatalf("verdict.Valid = true, want false")
	}
	if !errors.Is(verdict.Cause, ErrInsufficientPortfolioValue) {
		t.Fatalf("verdict.Cause = %v, want %v", verdict.Cause, ErrInsufficientPortfolioValue)
	}
	if !verdict.RequiredBalance.Equal(decimal.RequireFromString("1250")) {
		t.Fatalf("RequiredBalance = %s, want 1250", verdict.RequiredBalance)
	}
	if !verdict.AvailableBalance.Equal(decimal.RequireFromString("1000")) {
		t.Fatalf("AvailableBalance = %s, want 1000", verdict.AvailableBalance)
	}
	if verdict.HasAdjustment() {
		t.Fatalf("buy-side shortfall must not be correctable, got %s", verdict.AdjustedAmount)
	}
}

func TestValidateBuyUsesOraclePriceWithoutLimit(t *testing.T) {
	v := NewValidator(nil)
	proposal := TradeProposal{
		Pair:   "BTC/USD",
		Side:   Buy,
		Amount: decimal.RequireFromString("0.1"),
	}
	// 0.1 XBT at the oracle price 45000 costs 4500.
	balances := AssetBalances{"ZUSD": decimal.RequireFromString("4000")}

	verdict := v.Validate(proposal, balances, defaultPrices())
	if verdict.Valid {
		t.Fatalf("verdict.Valid = true, want false")
	}
	if !verdict.RequiredBalance.Equal(decimal.RequireFromString("4500")) {
		t.Fatalf("RequiredBalance = %s, want 4500", verdict.RequiredBalance)
	}
}

func TestValidateBuyAdvisoryWhenQuoteShort(t *testing.T) {
	// Portfolio covers the cost but the ZUSD balance alone does not: valid
	// with an advisory reason, never a rejection.
	v := NewValidator(nil)
	proposal := TradeProposal{
		Pair:   "ETH/USD",
		Side:   Buy,
		Amount: decimal.RequireFromString("1"),
		Price:  decimal.RequireFromString("2500"),
	}
	balances := AssetBalances{
		"ZUSD": decimal.RequireFromString("500"),
		"XXBT": decimal.RequireFromString("0.1"), // 4500 at default prices
	}

	verdict := v.Validate(proposal, balances, defaultPrices())
	if !verdict.Valid {
		t.Fatalf("verdict.Valid = false (%s), want true with advisory", verdict.Reason)
	}
	if verdict.Reason == "" {
		t.Fatalf("expected advisory reason on quote-short buy")
	}
	if !verdict.AvailableBalance.Equal(decimal.RequireFromString("500")) {
		t.Fatalf("AvailableBalance = %s, want 500", verdict.AvailableBalance)
	}
}

func TestValidateUnknownAssetsPriceAtOne(t *testing.T) {
	v := NewValidator(nil)
	proposal := TradeProposal{
		Pair:   "ETH/USD",
		Side:   Buy,
		Amount: decimal.RequireFromString("1"),
		Price:  decimal.RequireFromString("900"),
	}
	// An unknown asset contributes its quantity at price 1.
	balances := AssetBalances{"MYSTERY": decimal.RequireFromString("1000")}

	verdict := v.Validate(proposal, balances, defaultPrices())
	if !verdict.Valid {
		t.Fatalf("verdict.Valid = false (%s), want true", verdict.Reason)
	}
}

func TestValidateSellAdjustsWithBuffer(t *testing.T) {
	// Sell 0.05 XBT against 0.02 held: adjusted to 0.02*0.95 = 0.019.
	v := NewValidator(nil)
	proposal := TradeProposal{
		Pair:   "XBTUSD",
		Side:   Sell,
		Amount: decimal.RequireFromString("0.05"),
	}
	balances := AssetBalances{"XXBT": decimal.RequireFromString("0.02")}

	verdict := v.Validate(proposal, balances, defaultPrices())
	if verdict.Valid {
		t.Fatalf("verdict.Valid = true, want false")
	}
	if !errors.Is(verdict.Cause, ErrInsufficientBaseBalance) {
		t.Fatalf("verdict.Cause = %v, want %v", verdict.Cause, ErrInsufficientBaseBalance)
	}
	if !verdict.AdjustedAmount.Equal(decimal.RequireFromString("0.019")) {
		t.Fatalf("AdjustedAmount = %s, want 0.019", verdict.AdjustedAmount)
	}
	if !verdict.RequiredBalance.Equal(decimal.RequireFromString("0.05")) {
		t.Fatalf("RequiredBalance = %s, want 0.05", verdict.RequiredBalance)
	}
	if !verdict.AvailableBalance.Equal(decimal.RequireFromString("0.02")) {
		t.Fatalf("AvailableBalance = %s, want 0.02", verdict.AvailableBalance)
	}
}

func TestValidateSellNoSafeCorrection(t *testing.T) {
	// 0.95x the held balance lands under the pair minimum: no adjustment.
	v := NewValidator(nil)
	proposal := TradeProposal{
		Pair:   "ETH/USD",
		Side:   Sell,
		Amount: decimal.RequireFromString("0.5"),
	}
	balances := AssetBalances{"XETH": decimal.RequireFromString("0.01")}

	verdict := v.Validate(proposal, balances, defaultPrices())
	if verdict.Valid {
		t.Fatalf("verdict.Valid = true, want false")
	}
	if verdict.HasAdjustment() {
		t.Fatalf("expected no safe correction, got %s", verdict.AdjustedAmount)
	}
}

func TestValidateSellWithinBalance(t *testing.T) {
	v := NewValidator(nil)
	proposal := TradeProposal{
		Pair:   "XBTUSD",
		Side:   Sell,
		Amount: decimal.RequireFromString("0.01"),
	}
	balances := AssetBalances{"XXBT": decimal.RequireFromString("0.02")}

	verdict := v.Validate(proposal, balances, defaultPrices())
	if !verdict.Valid {
		t.Fatalf("verdict.Valid = false (%s), want true", verdict.Reason)
	}
	if verdict.HasAdjustment() {
		t.Fatalf("valid verdict must not carry an adjustment")
	}
}

func TestValidateSellAdjustmentShrinksAmount(t *testing.T) {
	v := NewValidator(nil)
	balances := AssetBalances{"XXBT": decimal.RequireFromString("1.5")}
	amounts := []string{"2", "1.6", "10", "1.500001"}
	for _, raw := range amounts {
		proposal := TradeProposal{Pair: "XBTUSD", Side: Sell, Amount: decimal.RequireFromString(raw)}
		verdict := v.Validate(proposal, balances, defaultPrices())
		if verdict.Valid {
			t.Fatalf("amount %s: verdict.Valid = true, want false", raw)
		}
		if !verdict.HasAdjustment() {
			t.Fatalf("amount %s: expected an adjustment", raw)
		}
		if verdict.AdjustedAmount.Cmp(proposal.Amount) >= 0 {
			t.Fatalf("amount %s: adjustment %s does not shrink the ask", raw, verdict.AdjustedAmount)
		}
	}
}

func TestValidatorMinimumOverrides(t *testing.T) {
	v := NewValidator(map[string]decimal.Decimal{
		"BTC/USD": decimal.RequireFromString("0.002"),
	})
	if got := v.MinimumOrderSize("XBTUSD"); !got.Equal(decimal.RequireFromString("0.002")) {
		t.Fatalf("MinimumOrderSize(XBTUSD) = %s, want override 0.002", got)
	}
	if got := v.MinimumOrderSize("SOLUSD"); !got.Equal(defaultMinimumSize) {
		t.Fatalf("MinimumOrderSize(SOLUSD) = %s, want default %s", got, defaultMinimumSize)
	}
}
