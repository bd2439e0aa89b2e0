package core

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrNonPositiveAmount          = errors.New("amount not positive")
	ErrBelowMinimumSize           = errors.New("amount below pair minimum")
	ErrInsufficientPortfolioValue = errors.New("insufficient portfolio value")
	ErrInsufficientBaseBalance    = errors.New("insufficient base balance")
)

// sellRetainRatio keeps a 5% buffer on sell-side corrections so the adjusted
// order cannot leave a dust position or trip balance-precision rejections.
var sellRetainRatio = decimal.RequireFromString("0.95")

var defaultMinimumSize = decimal.RequireFromString("0.0001")

// defaultMinimumSizes is keyed by canonical pair name.
var defaultMinimumSizes = map[string]decimal.Decimal{
	"XXBT/ZUSD": decimal.RequireFromString("0.0001"),
	"XETH/ZUSD": decimal.RequireFromString("0.01"),
	"XXRP/ZUSD": decimal.RequireFromString("10"),
	"XLTC/ZUSD": decimal.RequireFromString("0.1"),
	"ADA/ZUSD":  decimal.RequireFromString("1"),
	"DOT/ZUSD":  decimal.RequireFromString("0.2"),
}

// Verdict is the validator's answer for one proposal against one snapshot of
// balances and prices. A zero AdjustedAmount means no safe correction exists;
// a positive one is an instruction to retry exactly once with that amount.
type Verdict struct {
	Valid            bool
	Cause            error
	Reason           string
	AdjustedAmount   decimal.Decimal
	RequiredBalance  decimal.Decimal
	AvailableBalance decimal.Decimal
}

func (v Verdict) HasAdjustment() bool {
	return v.AdjustedAmount.Cmp(decimal.Zero) > 0
}

// Validator checks trade proposals against balance and price snapshots. It
// holds no live references: each Validate call is judged against exactly the
// snapshot passed in.
type Validator struct {
	minSizes map[string]decimal.Decimal
}

// NewValidator builds a validator with optional per-pair minimum order size
// overrides, keyed by pair in either notation.
func NewValidator(overrides map[string]decimal.Decimal) Validator {
	if len(overrides) == 0 {
		return Validator{}
	}
	sizes := make(map[string]decimal.Decimal, len(overrides))
	for pair, size := range overrides {
		if size.Cmp(decimal.Zero) > 0 {
			sizes[CanonicalPairName(pair)] = size
		}
	}
	return Validator{minSizes: sizes}
}

// MinimumOrderSize returns the minimum order size for a pair. Unknown pairs
// fall back to a permissive default so normalization can stay total.
func (v Validator) MinimumOrderSize(pair string) decimal.Decimal {
	name := CanonicalPairName(pair)
	if size, ok := v.minSizes[name]; ok {
		return size
	}
	if size, ok := defaultMinimumSizes[name]; ok {
		return size
	}
	return defaultMinimumSize
}

// Validate decides whether a proposal is safe to submit. Invalid verdicts
// carry an AdjustedAmount when a single retry at the corrected amount could
// succeed; its absence means do not retry.
func (v Validator) Validate(p TradeProposal, balances AssetBalances, prices PriceTable) Verdict {
	if p.Amount.Cmp(decimal.Zero) <= 0 {
		return Verdict{
			Cause:  ErrNonPositiveAmount,
			Reason: "order amount must be greater than zero",
		}
	}

	minSize := v.MinimumOrderSize(p.Pair)
	if p.Amount.Cmp(minSize) < 0 {
		return Verdict{
			Cause:          ErrBelowMinimumSize,
			Reason:         fmt.Sprintf("amount %s is below the %s minimum of %s", p.Amount, CanonicalPairName(p.Pair), minSize),
			AdjustedAmount: minSize,
		}
	}

	base, quote := ToCanonical(p.Pair)

	if p.Side == Buy {
		unit := p.Price
		if !p.HasPrice() {
			unit = prices.USD(base)
		}
		cost := unit.Mul(p.Amount)
		portfolio := decimal.Zero
		for asset, qty := range balances {
			portfolio = portfolio.Add(qty.Mul(prices.USD(asset)))
		}
		if portfolio.Cmp(cost) < 0 {
			return Verdict{
				Cause:            ErrInsufficientPortfolioValue,
				Reason:           fmt.Sprintf("estimated cost %s exceeds portfolio value %s", cost, portfolio),
				RequiredBalance:  cost,
				AvailableBalance: portfolio,
			}
		}
		quoteHeld := balances[quote]
		if quoteHeld.Cmp(cost) < 0 {
			// Affordable overall but not from the quote balance alone. The
			// trade stays valid; liquidity may need rebalancing out-of-band.
			return Verdict{
				Valid:            true,
				Reason:           fmt.Sprintf("%s balance %s does not cover estimated cost %s; other holdings may need to be converted", quote, quoteHeld, cost),
				RequiredBalance:  cost,
				AvailableBalance: quoteHeld,
			}
		}
		return Verdict{Valid: true}
	}

	held := balances[base]
	if p.Amount.Cmp(held) > 0 {
		verdict := Verdict{
			Cause:            ErrInsufficientBaseBalance,
			Reason:           fmt.Sprintf("sell amount %s exceeds %s balance %s", p.Amount, base, held),
			RequiredBalance:  p.Amount,
			AvailableBalance: held,
		}
		adjusted := held.Mul(sellRetainRatio)
		if adjusted.Cmp(minSize) >= 0 {
			verdict.AdjustedAmount = adjusted
		} else {
			verdict.Reason += "; no safe correction exists"
		}
		return verdict
	}

	return Verdict{Valid: true}
}
