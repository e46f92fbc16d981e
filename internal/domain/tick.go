package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceTick is one mid-price update delivered by the market data feed.
// Seq is a per-subscription-key monotonic counter assigned by the feed;
// consumers must discard any tick whose Seq is not greater than the last
// one they processed for that key (duplicate delivery during reconnect
// replay).
type PriceTick struct {
	Instrument string
	Mid        decimal.Decimal
	Ts         time.Time
	Seq        uint64
}

// Fill is one execution report routed from the user-fills channel.
type Fill struct {
	Instrument string
	OrderID    string
	Side       Side
	Price      decimal.Decimal
	Size       decimal.Decimal
	Ts         time.Time
}
