package risk

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/caelum0x/hyperliqbot-sub001/internal/domain"
	"github.com/caelum0x/hyperliqbot-sub001/internal/infra"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func allLimits() []*domain.RiskLimit {
	return []*domain.RiskLimit{
		{Kind: domain.RiskPositionSize, Threshold: d("50000"), Enabled: true},
		{Kind: domain.RiskDailyLoss, Threshold: d("1000"), Enabled: true},
		{Kind: domain.RiskTotalExposure, Threshold: d("100000"), Enabled: true},
		{Kind: domain.RiskMaxLeverage, Threshold: d("10"), Enabled: true},
	}
}

func TestEvaluate_Allows(t *testing.T) {
	l := NewLimiter(allLimits())

	ok, violations := l.Evaluate(domain.Exposure{
		PositionNotional: d("1000"),
		TotalExposure:    d("1000"),
		DailyPnL:         d("-50"),
		Equity:           d("20000"),
	}, domain.ProposedOrder{Instrument: "BTC", Side: domain.Buy, Price: d("65000"), Size: d("0.01")})

	if !ok {
		t.Fatalf("expected allow, got violations: %v", violations)
	}
}

func TestEvaluate_CollectsAllViolations(t *testing.T) {
	limits := []*domain.RiskLimit{
		{Kind: domain.RiskPositionSize, Threshold: d("100"), Enabled: true},
		{Kind: domain.RiskTotalExposure, Threshold: d("100"), Enabled: true},
	}
	l := NewLimiter(limits)

	// One order breaching both limits must yield both violations.
	ok, violations := l.Evaluate(domain.Exposure{
		PositionNotional: d("50"),
		TotalExposure:    d("50"),
	}, domain.ProposedOrder{Price: d("65000"), Size: d("0.01")})

	if ok {
		t.Fatal("expected denial")
	}
	if len(violations) != 2 {
		t.Fatalf("got %d violations, want 2: %v", len(violations), violations)
	}
	if limits[0].Breaches != 1 || limits[1].Breaches != 1 {
		t.Errorf("breach counters = %d, %d, both want 1", limits[0].Breaches, limits[1].Breaches)
	}
	if limits[0].LastBreach.IsZero() {
		t.Error("LastBreach timestamp not recorded")
	}
}

func TestEvaluate_DailyLoss(t *testing.T) {
	tests := []struct {
		name string
		pnl  string
		ok   bool
	}{
		{"profit", "500", true},
		{"small loss", "-500", true},
		{"at limit", "-1000", true},
		{"over limit", "-1500", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLimiter([]*domain.RiskLimit{
				{Kind: domain.RiskDailyLoss, Threshold: d("1000"), Enabled: true},
			})
			ok, _ := l.Evaluate(domain.Exposure{DailyPnL: d(tt.pnl)}, domain.ProposedOrder{Price: d("1"), Size: d("1")})
			if ok != tt.ok {
				t.Errorf("ok = %v, want %v", ok, tt.ok)
			}
		})
	}
}

func TestEvaluate_Leverage(t *testing.T) {
	l := NewLimiter([]*domain.RiskLimit{
		{Kind: domain.RiskMaxLeverage, Threshold: d("10"), Enabled: true},
	})

	// Exposure 95000 + 10000 order against 10000 equity = 10.5x.
	ok, violations := l.Evaluate(domain.Exposure{
		TotalExposure: d("95000"),
		Equity:        d("10000"),
	}, domain.ProposedOrder{Price: d("10000"), Size: d("1")})

	if ok {
		t.Fatal("expected leverage denial")
	}
	if violations[0].Kind != domain.RiskMaxLeverage {
		t.Errorf("violation kind = %s, want max-leverage", violations[0].Kind)
	}
}

func TestEvaluate_DisabledSkipped(t *testing.T) {
	l := NewLimiter([]*domain.RiskLimit{
		{Kind: domain.RiskPositionSize, Threshold: d("1"), Enabled: false},
	})

	ok, _ := l.Evaluate(domain.Exposure{}, domain.ProposedOrder{Price: d("65000"), Size: d("1")})
	if !ok {
		t.Error("disabled limit must not deny")
	}
}

func TestFromConfig(t *testing.T) {
	tests := []struct {
		name    string
		entries []infra.RiskLimitConfig
		wantErr bool
	}{
		{"valid", []infra.RiskLimitConfig{{Kind: "position-size", Threshold: "50000", Enabled: true}}, false},
		{"unknown kind", []infra.RiskLimitConfig{{Kind: "nope", Threshold: "1"}}, true},
		{"bad threshold", []infra.RiskLimitConfig{{Kind: "daily-loss", Threshold: "abc"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromConfig(tt.entries)
			if (err != nil) != tt.wantErr {
				t.Errorf("FromConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
