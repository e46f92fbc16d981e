package event

import (
	"time"

	"github.com/shopspring/decimal"
)

// Type defines the type of event.
type Type uint16

const (
	EvGridStarted Type = iota + 1
	EvGridRebalanced
	EvGridStopped
	EvLegFailed
)

// Event is the interface for all journal events.
type Event interface {
	GetSeq() uint64
	GetTs() time.Time
	GetType() Type
}

// BaseEvent contains common fields for all events.
type BaseEvent struct {
	Seq uint64    `json:"seq"`
	Ts  time.Time `json:"ts"`
}

func (e BaseEvent) GetSeq() uint64 { return e.Seq }
func (e BaseEvent) GetTs() time.Time { return e.Ts }

// GridStarted records a successful grid initialization.
type GridStarted struct {
	BaseEvent
	GridID         string          `json:"grid_id"`
	Account        string          `json:"account"`
	Instrument     string          `json:"instrument"`
	Levels         int             `json:"levels"`
	SpacingBps     int             `json:"spacing_bps"`
	ReferencePrice decimal.Decimal `json:"reference_price"`
	OrdersPlaced   int             `json:"orders_placed"`
	OrdersFailed   int             `json:"orders_failed"`
}

func (e GridStarted) GetType() Type { return EvGridStarted }

// GridRebalanced records a completed rebalance cycle.
type GridRebalanced struct {
	BaseEvent
	GridID     string          `json:"grid_id"`
	Instrument string          `json:"instrument"`
	OldPrice   decimal.Decimal `json:"old_price"`
	NewPrice   decimal.Decimal `json:"new_price"`
	Placed     int             `json:"placed"`
	Cancelled  int             `json:"cancelled"`
}

func (e GridRebalanced) GetType() Type { return EvGridRebalanced }

// GridStopped records a grid teardown, whether requested or failed closed.
type GridStopped struct {
	BaseEvent
	GridID     string `json:"grid_id"`
	Instrument string `json:"instrument"`
	Cancelled  int    `json:"cancelled"`
	Reason     string `json:"reason,omitempty"`
}

func (e GridStopped) GetType() Type { return EvGridStopped }

// LegFailed records a single leg placement failure or risk denial.
type LegFailed struct {
	BaseEvent
	GridID     string          `json:"grid_id"`
	Instrument string          `json:"instrument"`
	Side       string          `json:"side"`
	Price      decimal.Decimal `json:"price"`
	Reason     string          `json:"reason"`
}

func (e LegFailed) GetType() Type { return EvLegFailed }
