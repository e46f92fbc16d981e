package engine

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/caelum0x/hyperliqbot-sub001/internal/domain"
	"github.com/caelum0x/hyperliqbot-sub001/internal/gateway"
	"github.com/caelum0x/hyperliqbot-sub001/pkg/quant"
)

var two = decimal.NewFromInt(2)

// gridBudget returns the quote amount committed to the grid:
// available * fraction, capped by the absolute budget cap when set.
func gridBudget(cfg domain.GridConfig, available decimal.Decimal) decimal.Decimal {
	budget := available.Mul(cfg.BudgetFraction)
	if cfg.BudgetCap.IsPositive() && budget.GreaterThan(cfg.BudgetCap) {
		budget = cfg.BudgetCap
	}
	return budget
}

// buildLegs computes the symmetric ladder around mid: levels at
// mid*(1 ± spacing*i) for i = 1..levels, each sized budget/(2*levels)/mid.
// Prices round away from the mid (buys down, sells up) so the grid never
// crosses the spread after rounding; if rounding collapses two adjacent
// levels, the inner one is dropped. Buys come first: placement order.
func buildLegs(cfg domain.GridConfig, mid, budget decimal.Decimal, prec gateway.Precision) []domain.OrderLeg {
	spacing := quant.FromBps(cfg.SpacingBps)
	levels := decimal.NewFromInt(int64(cfg.Levels))

	size := quant.RoundSizeDown(budget.Div(two.Mul(levels)).Div(mid), prec.SizeDecimals)
	if size.LessThanOrEqual(decimal.Zero) {
		return nil
	}

	seen := make(map[string]bool)
	one := decimal.NewFromInt(1)

	// Walk outer-to-inner so a collapsed pair keeps the outer level and
	// drops the inner one, then reverse into inner-first placement order.
	side := func(s domain.Side, priceAt func(i int) decimal.Decimal) []domain.OrderLeg {
		out := make([]domain.OrderLeg, 0, cfg.Levels)
		for i := cfg.Levels; i >= 1; i-- {
			price := priceAt(i)
			k := string(s) + "@" + price.String()
			if price.LessThanOrEqual(decimal.Zero) || seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, domain.OrderLeg{
				Side:     s,
				Price:    price,
				Size:     size,
				ClientID: uuid.New().String(),
				Status:   domain.LegPending,
			})
		}
		for l, r := 0, len(out)-1; l < r; l, r = l+1, r-1 {
			out[l], out[r] = out[r], out[l]
		}
		return out
	}

	buys := side(domain.Buy, func(i int) decimal.Decimal {
		step := spacing.Mul(decimal.NewFromInt(int64(i)))
		return quant.RoundPriceDown(mid.Mul(one.Sub(step)), prec.PriceDecimals)
	})
	sells := side(domain.Sell, func(i int) decimal.Decimal {
		step := spacing.Mul(decimal.NewFromInt(int64(i)))
		return quant.RoundPriceUp(mid.Mul(one.Add(step)), prec.PriceDecimals)
	})

	return append(buys, sells...)
}

// gridRange returns the lowest and highest leg prices.
func gridRange(legs []domain.OrderLeg) (low, high decimal.Decimal) {
	for i := range legs {
		p := legs[i].Price
		if low.IsZero() || p.LessThan(low) {
			low = p
		}
		if p.GreaterThan(high) {
			high = p
		}
	}
	return low, high
}
