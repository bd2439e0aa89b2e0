package exchange

import (
	"context"

	"github.com/shopspring/decimal"

	"trade-guard/internal/core"
)

type OrderType string

const (
	Limit  OrderType = "limit"
	Market OrderType = "market"
)

// OrderRequest is a fully resolved order ready for submission. Pair is in
// exchange notation; Price is ignored for market orders.
type OrderRequest struct {
	Pair   string
	Side   core.Side
	Type   OrderType
	Volume decimal.Decimal
	Price  decimal.Decimal
}

// OrderAck is the gateway's acknowledgement of an accepted order.
type OrderAck struct {
	TransactionIDs []string
	Description    string
}

func (a OrderAck) TransactionID() string {
	if len(a.TransactionIDs) == 0 {
		return ""
	}
	return a.TransactionIDs[0]
}

// Gateway is the remote order-submission boundary. Implementations report
// business failures as typed errors carrying the gateway's raw message text;
// anything else is a transport failure.
type Gateway interface {
	Name() string
	Balances(ctx context.Context) (core.AssetBalances, error)
	PlaceOrder(ctx context.Context, req OrderRequest) (OrderAck, error)
}
