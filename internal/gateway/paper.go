package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/caelum0x/hyperliqbot-sub001/internal/domain"
)

// PaperGateway simulates an exchange with virtual balances and a resting
// order table. Used for paper mode and engine tests.
type PaperGateway struct {
	mu        sync.Mutex
	available decimal.Decimal
	total     decimal.Decimal
	orders    map[string]Order // by exchange order id
	precision map[string]Precision

	// FailPlace, when set, is consulted before accepting an order.
	// Returning a non-nil error simulates a venue rejection; tests use it
	// to drive placement-failure paths.
	FailPlace func(req OrderRequest) error
}

// NewPaperGateway creates a paper venue with the given quote balance.
func NewPaperGateway(balance decimal.Decimal) *PaperGateway {
	return &PaperGateway{
		available: balance,
		total:     balance,
		orders:    make(map[string]Order),
		precision: make(map[string]Precision),
	}
}

// SetPrecision registers instrument precision. Unknown instruments
// default to 8/2 (size/price decimals).
func (p *PaperGateway) SetPrecision(instrument string, prec Precision) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.precision[instrument] = prec
}

// PlaceOrder accepts the order as resting. Paper mode never crosses the
// book; maker-only semantics hold trivially.
func (p *PaperGateway) PlaceOrder(ctx context.Context, req OrderRequest) (PlaceResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.FailPlace != nil {
		if err := p.FailPlace(req); err != nil {
			return PlaceResult{}, err
		}
	}
	if req.Size.LessThanOrEqual(decimal.Zero) || req.Price.LessThanOrEqual(decimal.Zero) {
		return PlaceResult{}, fmt.Errorf("invalid order: size=%s price=%s", req.Size, req.Price)
	}

	id := uuid.New().String()
	p.orders[id] = Order{
		OrderID:    id,
		ClientID:   req.ClientID,
		Account:    req.Account,
		Instrument: req.Instrument,
		Side:       req.Side,
		Price:      req.Price,
		Size:       req.Size,
	}

	slog.Debug("PAPER: order resting",
		slog.String("id", id),
		slog.String("instrument", req.Instrument),
		slog.String("side", string(req.Side)),
		slog.String("price", req.Price.String()),
		slog.String("size", req.Size.String()))

	return PlaceResult{OrderID: id, Status: domain.LegResting}, nil
}

// CancelOrder removes a resting order.
func (p *PaperGateway) CancelOrder(ctx context.Context, instrument, orderID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.orders[orderID]; !ok {
		return fmt.Errorf("order not found: %s", orderID)
	}
	delete(p.orders, orderID)
	return nil
}

// CancelAll removes every resting order for the instrument.
func (p *PaperGateway) CancelAll(ctx context.Context, instrument string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0
	for id, o := range p.orders {
		if o.Instrument == instrument {
			delete(p.orders, id)
			n++
		}
	}
	return n, nil
}

// GetOpenOrders lists resting orders for the account.
func (p *PaperGateway) GetOpenOrders(ctx context.Context, account string) ([]Order, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Order, 0, len(p.orders))
	for _, o := range p.orders {
		if o.Account == account {
			out = append(out, o)
		}
	}
	return out, nil
}

// GetBalance returns the virtual quote balance.
func (p *PaperGateway) GetBalance(ctx context.Context, account string) (decimal.Decimal, decimal.Decimal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.available, p.total, nil
}

// GetInstrumentPrecision returns the registered precision or the default.
func (p *PaperGateway) GetInstrumentPrecision(ctx context.Context, instrument string) (Precision, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if prec, ok := p.precision[instrument]; ok {
		return prec, nil
	}
	return Precision{SizeDecimals: 8, PriceDecimals: 2}, nil
}

// Fill simulates an execution of a resting order and returns the fill.
// Test helper; real venues report fills over the user-fills channel.
func (p *PaperGateway) Fill(orderID string) (domain.Fill, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	o, ok := p.orders[orderID]
	if !ok {
		return domain.Fill{}, false
	}
	delete(p.orders, orderID)
	return domain.Fill{
		Instrument: o.Instrument,
		OrderID:    o.OrderID,
		Side:       o.Side,
		Price:      o.Price,
		Size:       o.Size,
	}, true
}

// OpenOrderCount reports resting orders for the instrument.
func (p *PaperGateway) OpenOrderCount(instrument string) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0
	for _, o := range p.orders {
		if o.Instrument == instrument {
			n++
		}
	}
	return n
}
