package core

import (
	"github.com/shopspring/decimal"
)

type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// TradeProposal is a discretionary order request handed to the core for
// validation and execution. Pair accepts both human notation ("BTC/USD") and
// exchange-native notation ("XBTUSD"). A zero Price means no limit price was
// supplied and the order executes at market.
type TradeProposal struct {
	Pair   string
	Side   Side
	Amount decimal.Decimal
	Price  decimal.Decimal
}

// WithAmount returns a copy of the proposal carrying a replaced amount.
// Proposals are never mutated in place once submitted to the validator.
func (p TradeProposal) WithAmount(amount decimal.Decimal) TradeProposal {
	p.Amount = amount
	return p
}

// HasPrice reports whether a limit price was supplied.
func (p TradeProposal) HasPrice() bool {
	return p.Price.Cmp(decimal.Zero) > 0
}

// AssetBalances maps exchange-native asset codes to held quantities.
type AssetBalances map[string]decimal.Decimal

func (b AssetBalances) Clone() AssetBalances {
	if b == nil {
		return nil
	}
	out := make(AssetBalances, len(b))
	for asset, qty := range b {
		out[asset] = qty
	}
	return out
}

// PriceTable maps exchange-native asset codes to USD unit prices.
type PriceTable map[string]decimal.Decimal

func (t PriceTable) Clone() PriceTable {
	if t == nil {
		return nil
	}
	out := make(PriceTable, len(t))
	for asset, price := range t {
		out[asset] = price
	}
	return out
}

// USD returns the reference price for an asset. Assets without a positive
// entry price at 1 so downstream arithmetic never divides by zero or
// propagates a missing value.
func (t PriceTable) USD(asset string) decimal.Decimal {
	if price, ok := t[asset]; ok && price.Cmp(decimal.Zero) > 0 {
		return price
	}
	return decimal.NewFromInt(1)
}
