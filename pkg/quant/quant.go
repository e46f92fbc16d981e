package quant

import (
	"sync/atomic"

	"github.com/shopspring/decimal"
)

// BpsScale is the number of basis points in 1.0 (100%).
const BpsScale = 10_000

var bpsDenom = decimal.NewFromInt(BpsScale)

// FromBps converts basis points to a decimal fraction.
// E.g., 50 bps -> 0.005.
func FromBps(bps int) decimal.Decimal {
	return decimal.NewFromInt(int64(bps)).Div(bpsDenom)
}

// RoundPriceDown truncates a price to the given number of decimal places.
// Used for buy levels so rounding never moves a bid toward the mid.
func RoundPriceDown(p decimal.Decimal, places int32) decimal.Decimal {
	return p.RoundFloor(places)
}

// RoundPriceUp rounds a price up to the given number of decimal places.
// Used for sell levels so rounding never moves an ask toward the mid.
func RoundPriceUp(p decimal.Decimal, places int32) decimal.Decimal {
	return p.RoundCeil(places)
}

// RoundSizeDown truncates an order size to the instrument's size precision.
// Sizes always round down so a grid can never overspend its budget.
func RoundSizeDown(s decimal.Decimal, places int32) decimal.Decimal {
	return s.RoundFloor(places)
}

// NextSeq generates the next sequence number atomically.
func NextSeq(ptr *uint64) uint64 {
	return atomic.AddUint64(ptr, 1)
}
