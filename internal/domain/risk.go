package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RiskKind names one configured risk limit.
type RiskKind string

const (
	RiskDailyLoss     RiskKind = "daily-loss"
	RiskPositionSize  RiskKind = "position-size"
	RiskTotalExposure RiskKind = "total-exposure"
	RiskMaxLeverage   RiskKind = "max-leverage"
)

// RiskLimit is a named threshold with breach accounting.
type RiskLimit struct {
	Kind       RiskKind
	Threshold  decimal.Decimal
	Enabled    bool
	Breaches   int
	LastBreach time.Time
}

// Exposure is the account state a proposed order is evaluated against.
type Exposure struct {
	PositionNotional decimal.Decimal // current position for the instrument
	TotalExposure    decimal.Decimal // notional across all instruments
	DailyPnL         decimal.Decimal // realized PnL since day start, negative = loss
	Equity           decimal.Decimal // account equity, leverage denominator
}

// ProposedOrder is the subset of an order relevant to risk checks.
type ProposedOrder struct {
	Instrument string
	Side       Side
	Price      decimal.Decimal
	Size       decimal.Decimal
}

// Notional returns price * size.
func (p ProposedOrder) Notional() decimal.Decimal {
	return p.Price.Mul(p.Size)
}
