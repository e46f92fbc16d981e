package gateway

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/shopspring/decimal"

	"github.com/caelum0x/hyperliqbot-sub001/internal/infra"
)

// Mode represents the trading execution mode.
type Mode string

const (
	ModePaper Mode = "PAPER"
	ModeReal  Mode = "REAL"
)

// NewGateway returns the gateway for the configured mode, wrapped with
// the exchange circuit breaker. real is the externally supplied live
// gateway (signing and transport live outside this core) and is only
// consulted in REAL mode.
func NewGateway(cfg *infra.Config, real ExchangeGateway) (ExchangeGateway, error) {
	mode := Mode(cfg.Trading.Mode)
	breaker := infra.NewCircuitBreaker("exchange", 5, 2, 0)

	slog.Info("Initializing exchange gateway", "mode", mode)

	switch mode {
	case ModePaper:
		// 100k quote currency virtual balance.
		paper := NewPaperGateway(decimal.NewFromInt(100_000))
		return NewBreakerGateway(paper, breaker), nil

	case ModeReal:
		// Safety latch: live trading must be confirmed explicitly.
		if os.Getenv("CONFIRM_REAL_MONEY") != "true" {
			return nil, fmt.Errorf("real trading requires CONFIRM_REAL_MONEY=true")
		}
		if real == nil {
			return nil, fmt.Errorf("real mode requires an exchange gateway implementation")
		}
		slog.Warn("LIVE trading gateway enabled")
		return NewBreakerGateway(real, breaker), nil

	default:
		return nil, fmt.Errorf("unknown trading mode: %s", mode)
	}
}
