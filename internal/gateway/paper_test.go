package gateway

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/caelum0x/hyperliqbot-sub001/internal/domain"
	"github.com/caelum0x/hyperliqbot-sub001/internal/infra"
)

func req(side domain.Side, price string) OrderRequest {
	return OrderRequest{
		Account:    "acct",
		Instrument: "BTC",
		Side:       side,
		Price:      decimal.RequireFromString(price),
		Size:       decimal.RequireFromString("0.01"),
	}
}

func TestPaperGateway_PlaceCancelLifecycle(t *testing.T) {
	ctx := context.Background()
	p := NewPaperGateway(decimal.NewFromInt(1000))

	res, err := p.PlaceOrder(ctx, req(domain.Buy, "64675"))
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if res.Status != domain.LegResting || res.OrderID == "" {
		t.Fatalf("unexpected result: %+v", res)
	}

	open, _ := p.GetOpenOrders(ctx, "acct")
	if len(open) != 1 {
		t.Fatalf("open orders = %d, want 1", len(open))
	}

	if err := p.CancelOrder(ctx, "BTC", res.OrderID); err != nil {
		t.Fatalf("CancelOrder: %v", err)
	}
	if err := p.CancelOrder(ctx, "BTC", res.OrderID); err == nil {
		t.Error("cancelling a cancelled order should error")
	}
}

func TestPaperGateway_CancelAll(t *testing.T) {
	ctx := context.Background()
	p := NewPaperGateway(decimal.NewFromInt(1000))

	p.PlaceOrder(ctx, req(domain.Buy, "64675"))
	p.PlaceOrder(ctx, req(domain.Sell, "65325"))
	other := req(domain.Buy, "100")
	other.Instrument = "ETH"
	p.PlaceOrder(ctx, other)

	n, err := p.CancelAll(ctx, "BTC")
	if err != nil {
		t.Fatalf("CancelAll: %v", err)
	}
	if n != 2 {
		t.Errorf("cancelled = %d, want 2", n)
	}
	if p.OpenOrderCount("ETH") != 1 {
		t.Error("CancelAll must not touch other instruments")
	}
}

func TestPaperGateway_PrecisionDefaults(t *testing.T) {
	ctx := context.Background()
	p := NewPaperGateway(decimal.NewFromInt(1000))
	p.SetPrecision("BTC", Precision{SizeDecimals: 4, PriceDecimals: 1})

	prec, _ := p.GetInstrumentPrecision(ctx, "BTC")
	if prec.SizeDecimals != 4 || prec.PriceDecimals != 1 {
		t.Errorf("precision = %+v", prec)
	}

	prec, _ = p.GetInstrumentPrecision(ctx, "DOGE")
	if prec.SizeDecimals != 8 || prec.PriceDecimals != 2 {
		t.Errorf("default precision = %+v", prec)
	}
}

func TestBreakerGateway_FailsFastWhenOpen(t *testing.T) {
	ctx := context.Background()
	p := NewPaperGateway(decimal.NewFromInt(1000))
	p.FailPlace = func(OrderRequest) error { return fmt.Errorf("venue down") }

	g := NewBreakerGateway(p, infra.NewCircuitBreaker("test", 2, 2, time.Hour))

	for i := 0; i < 2; i++ {
		if _, err := g.PlaceOrder(ctx, req(domain.Buy, "100")); err == nil {
			t.Fatal("expected venue error")
		}
	}

	_, err := g.PlaceOrder(ctx, req(domain.Buy, "100"))
	if err != ErrCircuitOpen {
		t.Errorf("err = %v, want ErrCircuitOpen", err)
	}

	// Queries bypass the breaker for reconciliation.
	if _, qerr := g.GetOpenOrders(ctx, "acct"); qerr != nil {
		t.Errorf("GetOpenOrders through open breaker: %v", qerr)
	}
}
