package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func validConfig() GridConfig {
	return GridConfig{
		Account:        "acct-1",
		Instrument:     "BTC",
		Levels:         4,
		SpacingBps:     50,
		BudgetFraction: decimal.RequireFromString("0.3"),
		BudgetCap:      decimal.NewFromInt(2000),
	}
}

func TestGridConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*GridConfig)
		wantErr bool
	}{
		{"valid", func(c *GridConfig) {}, false},
		{"no account", func(c *GridConfig) { c.Account = "" }, true},
		{"no instrument", func(c *GridConfig) { c.Instrument = "" }, true},
		{"levels too low", func(c *GridConfig) { c.Levels = 1 }, true},
		{"levels too high", func(c *GridConfig) { c.Levels = 21 }, true},
		{"levels at max", func(c *GridConfig) { c.Levels = 20 }, false},
		{"spacing too tight", func(c *GridConfig) { c.SpacingBps = 5 }, true},
		{"spacing too wide", func(c *GridConfig) { c.SpacingBps = 501 }, true},
		{"zero budget", func(c *GridConfig) { c.BudgetFraction = decimal.Zero }, true},
		{"budget over 100%", func(c *GridConfig) { c.BudgetFraction = decimal.NewFromInt(2) }, true},
		{"negative cap", func(c *GridConfig) { c.BudgetCap = decimal.NewFromInt(-1) }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestOrderLeg_IsOpen(t *testing.T) {
	tests := []struct {
		status LegStatus
		want   bool
	}{
		{LegPending, true},
		{LegResting, true},
		{LegFilled, false},
		{LegCancelled, false},
		{LegFailed, false},
	}
	for _, tt := range tests {
		l := &OrderLeg{Status: tt.status}
		if got := l.IsOpen(); got != tt.want {
			t.Errorf("IsOpen(%s) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestGridState_Snapshot(t *testing.T) {
	st := &GridState{
		Status: GridActive,
		Legs: []OrderLeg{
			{Side: Buy, Status: LegResting},
			{Side: Sell, Status: LegPending},
		},
	}

	snap := st.Snapshot()
	snap.Legs[0].Status = LegFilled

	if st.Legs[0].Status != LegResting {
		t.Error("mutating a snapshot leaked into the owned state")
	}
	if st.OpenLegs() != 2 {
		t.Errorf("OpenLegs() = %d, want 2", st.OpenLegs())
	}
}
