package gateway

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/caelum0x/hyperliqbot-sub001/internal/domain"
)

// OrderRequest is one order submission.
type OrderRequest struct {
	Account    string
	Instrument string
	Side       domain.Side
	Size       decimal.Decimal
	Price      decimal.Decimal
	ClientID   string // caller-assigned, used to reconcile ambiguous outcomes
	MakerOnly  bool   // add-liquidity-only flag
}

// PlaceResult is the exchange acknowledgement for a placed order.
type PlaceResult struct {
	OrderID string
	Status  domain.LegStatus // RESTING, or FILLED on immediate execution
}

// Order is one open order as reported by the exchange.
type Order struct {
	OrderID    string
	ClientID   string
	Account    string
	Instrument string
	Side       domain.Side
	Price      decimal.Decimal
	Size       decimal.Decimal
}

// Precision is the instrument's size and price decimal places.
type Precision struct {
	SizeDecimals  int32
	PriceDecimals int32
}

// ExchangeGateway is the venue collaborator. Implementations own
// authentication, signing, and transport; callers own what orders should
// exist. Must support concurrent calls from multiple engines.
type ExchangeGateway interface {
	PlaceOrder(ctx context.Context, req OrderRequest) (PlaceResult, error)
	CancelOrder(ctx context.Context, instrument, orderID string) error
	CancelAll(ctx context.Context, instrument string) (int, error)
	GetOpenOrders(ctx context.Context, account string) ([]Order, error)
	GetBalance(ctx context.Context, account string) (available, total decimal.Decimal, err error)
	GetInstrumentPrecision(ctx context.Context, instrument string) (Precision, error)
}
