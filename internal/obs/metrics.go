// Package obs exposes Prometheus metrics for the grid core.
// Registered in init() and served by the HTTP handler started in
// cmd/app at /metrics.
package obs

import "github.com/prometheus/client_golang/prometheus"

var (
	OrdersPlaced = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grid_orders_placed_total",
			Help: "Grid legs successfully placed",
		},
		[]string{"instrument", "side"},
	)

	OrdersFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grid_orders_failed_total",
			Help: "Grid leg placements that failed",
		},
		[]string{"instrument", "reason"},
	)

	OrdersFilled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grid_orders_filled_total",
			Help: "Grid legs filled by the venue",
		},
		[]string{"instrument", "side"},
	)

	Rebalances = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grid_rebalances_total",
			Help: "Completed grid rebalance cycles",
		},
		[]string{"instrument"},
	)

	ActiveGrids = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "grid_active",
			Help: "Number of active grids",
		},
	)

	RateLimitDenials = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grid_rate_limit_denials_total",
			Help: "Exchange calls denied by the rate limiter",
		},
		[]string{"category"},
	)

	RiskViolations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grid_risk_violations_total",
			Help: "Risk limit violations by limit kind",
		},
		[]string{"kind"},
	)

	StaleTicks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "grid_stale_ticks_total",
			Help: "Price ticks discarded by the stale-sequence guard",
		},
	)

	FeedConnects = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "grid_feed_connects_total",
			Help: "Market data connections established, including reconnects",
		},
	)
)

func init() {
	prometheus.MustRegister(
		OrdersPlaced,
		OrdersFailed,
		OrdersFilled,
		Rebalances,
		ActiveGrids,
		RateLimitDenials,
		RiskViolations,
		StaleTicks,
		FeedConnects,
	)
}
