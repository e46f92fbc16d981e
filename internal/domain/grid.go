package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of an order leg.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// GridStatus is the lifecycle state of a grid.
type GridStatus string

const (
	GridIdle         GridStatus = "IDLE"
	GridInitializing GridStatus = "INITIALIZING"
	GridActive       GridStatus = "ACTIVE"
	GridRebalancing  GridStatus = "REBALANCING"
	GridStopping     GridStatus = "STOPPING"
	GridStopped      GridStatus = "STOPPED"
)

// LegStatus is the lifecycle state of a single grid order.
type LegStatus string

const (
	LegPending   LegStatus = "PENDING"
	LegResting   LegStatus = "RESTING"
	LegFilled    LegStatus = "FILLED"
	LegCancelled LegStatus = "CANCELLED"
	LegFailed    LegStatus = "FAILED"
)

// GridConfig describes a grid ladder. Immutable once the grid is started;
// changing parameters requires stop and restart.
type GridConfig struct {
	Account        string          `yaml:"account"`
	Instrument     string          `yaml:"instrument"`
	Levels         int             `yaml:"levels"`
	SpacingBps     int             `yaml:"spacing_bps"`
	BudgetFraction decimal.Decimal `yaml:"budget_fraction"`
	BudgetCap      decimal.Decimal `yaml:"budget_cap"`
	MakerOnly      bool            `yaml:"maker_only"`
}

const (
	MinLevels     = 2
	MaxLevels     = 20
	MinSpacingBps = 10
	MaxSpacingBps = 500
)

// Validate checks the static bounds of a grid configuration.
func (c GridConfig) Validate() error {
	if c.Account == "" {
		return fmt.Errorf("account is required")
	}
	if c.Instrument == "" {
		return fmt.Errorf("instrument is required")
	}
	if c.Levels < MinLevels || c.Levels > MaxLevels {
		return fmt.Errorf("levels %d out of range [%d, %d]", c.Levels, MinLevels, MaxLevels)
	}
	if c.SpacingBps < MinSpacingBps || c.SpacingBps > MaxSpacingBps {
		return fmt.Errorf("spacing %d bps out of range [%d, %d]", c.SpacingBps, MinSpacingBps, MaxSpacingBps)
	}
	if c.BudgetFraction.LessThanOrEqual(decimal.Zero) || c.BudgetFraction.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("budget fraction %s out of range (0, 1]", c.BudgetFraction)
	}
	if c.BudgetCap.IsNegative() {
		return fmt.Errorf("budget cap must not be negative")
	}
	return nil
}

// Key identifies the grid in the supervisor registry.
func (c GridConfig) Key() string {
	return c.Account + "|" + c.Instrument
}

// OrderLeg is one resting order within a grid.
type OrderLeg struct {
	Side      Side
	Price     decimal.Decimal
	Size      decimal.Decimal
	OrderID   string // exchange order id, empty until acknowledged
	ClientID  string // dedupe-safe id assigned before placement
	Status    LegStatus
	Reason    string // populated for FAILED legs
	Deferrals int    // rate-limit deferral count
}

// IsOpen reports whether the leg still holds (or may hold) a resting order.
func (l *OrderLeg) IsOpen() bool {
	return l.Status == LegPending || l.Status == LegResting
}

// GridCounters accumulates per-grid placement outcomes.
type GridCounters struct {
	Placed    int
	Failed    int
	Filled    int
	Cancelled int
}

// GridState is the full state of one (account, instrument) grid.
// Owned exclusively by the engine's command loop; external readers get
// copies via Snapshot.
type GridState struct {
	ID              string
	Config          GridConfig
	Status          GridStatus
	ReferencePrice  decimal.Decimal
	Legs            []OrderLeg
	CreatedAt       time.Time
	LastRebalanceAt time.Time
	Counters        GridCounters
	StopReason      string
}

// Snapshot returns a deep copy safe for concurrent readers.
func (s *GridState) Snapshot() GridState {
	cp := *s
	cp.Legs = make([]OrderLeg, len(s.Legs))
	copy(cp.Legs, s.Legs)
	return cp
}

// OpenLegs counts legs in PENDING or RESTING state.
func (s *GridState) OpenLegs() int {
	n := 0
	for i := range s.Legs {
		if s.Legs[i].IsOpen() {
			n++
		}
	}
	return n
}

// Summary is the caller-facing result of a grid operation.
type Summary struct {
	GridID        string
	Instrument    string
	OrdersPlaced  int
	OrdersFailed  int
	OrdersFilled  int
	Cancelled     int
	ReferencePrice decimal.Decimal
	RangeLow      decimal.Decimal
	RangeHigh     decimal.Decimal
	Runtime       time.Duration
	Reason        string
	LegErrors     []string
}
