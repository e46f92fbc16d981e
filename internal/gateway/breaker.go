package gateway

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/caelum0x/hyperliqbot-sub001/internal/infra"
)

// ErrCircuitOpen is returned when the breaker rejects a call.
var ErrCircuitOpen = fmt.Errorf("exchange circuit open")

// BreakerGateway decorates a gateway with a circuit breaker so a flaky
// venue fails fast instead of hanging every engine behind it.
// Query calls bypass the breaker: reconciliation after an ambiguous
// place must still be able to reach the venue.
type BreakerGateway struct {
	inner   ExchangeGateway
	breaker *infra.CircuitBreaker
}

// NewBreakerGateway wraps inner with the given breaker.
func NewBreakerGateway(inner ExchangeGateway, breaker *infra.CircuitBreaker) *BreakerGateway {
	return &BreakerGateway{inner: inner, breaker: breaker}
}

func (g *BreakerGateway) call(fn func() error) error {
	if !g.breaker.Allow() {
		return ErrCircuitOpen
	}
	err := fn()
	if err != nil {
		g.breaker.RecordFailure()
	} else {
		g.breaker.RecordSuccess()
	}
	return err
}

func (g *BreakerGateway) PlaceOrder(ctx context.Context, req OrderRequest) (PlaceResult, error) {
	var res PlaceResult
	err := g.call(func() error {
		var err error
		res, err = g.inner.PlaceOrder(ctx, req)
		return err
	})
	return res, err
}

func (g *BreakerGateway) CancelOrder(ctx context.Context, instrument, orderID string) error {
	return g.call(func() error {
		return g.inner.CancelOrder(ctx, instrument, orderID)
	})
}

func (g *BreakerGateway) CancelAll(ctx context.Context, instrument string) (int, error) {
	var n int
	err := g.call(func() error {
		var err error
		n, err = g.inner.CancelAll(ctx, instrument)
		return err
	})
	return n, err
}

func (g *BreakerGateway) GetOpenOrders(ctx context.Context, account string) ([]Order, error) {
	return g.inner.GetOpenOrders(ctx, account)
}

func (g *BreakerGateway) GetBalance(ctx context.Context, account string) (decimal.Decimal, decimal.Decimal, error) {
	return g.inner.GetBalance(ctx, account)
}

func (g *BreakerGateway) GetInstrumentPrecision(ctx context.Context, instrument string) (Precision, error) {
	return g.inner.GetInstrumentPrecision(ctx, instrument)
}
