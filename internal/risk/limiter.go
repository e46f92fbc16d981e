package risk

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/caelum0x/hyperliqbot-sub001/internal/domain"
	"github.com/caelum0x/hyperliqbot-sub001/internal/infra"
)

// Violation describes one breached limit.
type Violation struct {
	Kind   domain.RiskKind
	Reason string
}

func (v Violation) String() string { return v.Reason }

// Limiter evaluates proposed orders against the configured limits.
// Evaluation itself is a pure function of (limits, exposure, order);
// the only mutation is breach accounting on the limits, guarded by mu.
type Limiter struct {
	mu     sync.Mutex
	limits []*domain.RiskLimit

	now func() time.Time
}

// NewLimiter creates a limiter over the given limits.
func NewLimiter(limits []*domain.RiskLimit) *Limiter {
	return &Limiter{limits: limits, now: time.Now}
}

// FromConfig builds a limiter from config entries. Entries with an
// unknown kind or unparseable threshold are rejected.
func FromConfig(entries []infra.RiskLimitConfig) (*Limiter, error) {
	limits := make([]*domain.RiskLimit, 0, len(entries))
	for _, e := range entries {
		kind := domain.RiskKind(e.Kind)
		switch kind {
		case domain.RiskDailyLoss, domain.RiskPositionSize, domain.RiskTotalExposure, domain.RiskMaxLeverage:
		default:
			return nil, fmt.Errorf("unknown risk limit kind: %s", e.Kind)
		}
		threshold, err := decimal.NewFromString(e.Threshold)
		if err != nil {
			return nil, fmt.Errorf("risk limit %s: bad threshold %q: %w", e.Kind, e.Threshold, err)
		}
		limits = append(limits, &domain.RiskLimit{Kind: kind, Threshold: threshold, Enabled: e.Enabled})
	}
	return NewLimiter(limits), nil
}

// Evaluate checks a proposed order against all enabled limits.
// Every check runs independently and all violations are collected, not
// just the first. Each breach increments the limit's counter even when
// the caller later overrides the denial.
func (l *Limiter) Evaluate(exposure domain.Exposure, proposed domain.ProposedOrder) (bool, []Violation) {
	l.mu.Lock()
	defer l.mu.Unlock()

	notional := proposed.Notional()
	var violations []Violation

	for _, lim := range l.limits {
		if !lim.Enabled {
			continue
		}

		var reason string
		switch lim.Kind {
		case domain.RiskPositionSize:
			projected := exposure.PositionNotional.Add(notional)
			if projected.GreaterThan(lim.Threshold) {
				reason = fmt.Sprintf("position-size: projected notional %s exceeds limit %s", projected, lim.Threshold)
			}
		case domain.RiskDailyLoss:
			// DailyPnL is negative when losing; compare the loss magnitude.
			if exposure.DailyPnL.IsNegative() && exposure.DailyPnL.Neg().GreaterThan(lim.Threshold) {
				reason = fmt.Sprintf("daily-loss: loss %s exceeds limit %s", exposure.DailyPnL.Neg(), lim.Threshold)
			}
		case domain.RiskTotalExposure:
			projected := exposure.TotalExposure.Add(notional)
			if projected.GreaterThan(lim.Threshold) {
				reason = fmt.Sprintf("total-exposure: projected exposure %s exceeds limit %s", projected, lim.Threshold)
			}
		case domain.RiskMaxLeverage:
			if exposure.Equity.IsPositive() {
				leverage := exposure.TotalExposure.Add(notional).Div(exposure.Equity)
				if leverage.GreaterThan(lim.Threshold) {
					reason = fmt.Sprintf("max-leverage: projected leverage %s exceeds limit %s", leverage.Round(4), lim.Threshold)
				}
			}
		}

		if reason != "" {
			lim.Breaches++
			lim.LastBreach = l.now()
			violations = append(violations, Violation{Kind: lim.Kind, Reason: reason})
		}
	}

	return len(violations) == 0, violations
}

// Limits returns the underlying limits (for status reporting).
func (l *Limiter) Limits() []domain.RiskLimit {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.RiskLimit, len(l.limits))
	for i, lim := range l.limits {
		out[i] = *lim
	}
	return out
}
