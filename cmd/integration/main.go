package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/caelum0x/hyperliqbot-sub001/internal/domain"
	"github.com/caelum0x/hyperliqbot-sub001/internal/engine"
	"github.com/caelum0x/hyperliqbot-sub001/internal/feed"
	"github.com/caelum0x/hyperliqbot-sub001/internal/gateway"
	"github.com/caelum0x/hyperliqbot-sub001/internal/infra"
	"github.com/caelum0x/hyperliqbot-sub001/internal/risk"
	"github.com/caelum0x/hyperliqbot-sub001/internal/storage"
)

// Paper-money smoke run: live market data, simulated venue. Starts one
// grid, lets it track the stream for a while, then tears it down and
// prints the summary.
func main() {
	instrument := flag.String("coin", "BTC", "instrument to grid")
	duration := flag.Duration("for", 2*time.Minute, "session length")
	levels := flag.Int("levels", 3, "levels per side")
	spacing := flag.Int("spacing", 50, "level spacing in bps")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)
	slog.Info("🚀 Starting paper grid session...", "instrument", *instrument)

	cfg := infra.DefaultConfig()
	cfg.Trading.Mode = "PAPER"
	cfg.Trading.Account = "paper-smoke"

	gw, err := gateway.NewGateway(cfg, nil)
	if err != nil {
		slog.Error("❌ Gateway setup failed", "err", err)
		os.Exit(1)
	}

	riskLimiter, err := risk.FromConfig(cfg.Risk)
	if err != nil {
		slog.Error("❌ Risk config invalid", "err", err)
		os.Exit(1)
	}
	rateLimiter := infra.NewRateLimiter(
		cfg.RateLimits.Order, cfg.RateLimits.Cancel,
		cfg.RateLimits.Query, cfg.RateLimits.Global,
		time.Duration(cfg.RateLimits.BlockSec)*time.Second,
	)

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	f := feed.New(cfg)
	f.Connect(ctx)
	defer f.Close()

	var evSeq uint64
	sup := engine.NewSupervisor(f, engine.Options{
		RebalanceThreshold: decimal.RequireFromString(cfg.Engine.RebalanceThreshold),
		SuccessFloor:       decimal.RequireFromString(cfg.Engine.SuccessFloor),
		CallTimeout:        time.Duration(cfg.Engine.CallTimeoutSec) * time.Second,
		MaxLegDeferrals:    cfg.Engine.MaxLegDeferrals,
	}, engine.Deps{
		Gateway: gw,
		Rate:    rateLimiter,
		Risk:    riskLimiter,
		Events:  storage.NopSink{},
		EvSeq:   &evSeq,
	}, time.Duration(cfg.Engine.SupervisorIntervalSec)*time.Second)
	go sup.Run(ctx)

	gridCfg := domain.GridConfig{
		Account:        cfg.Trading.Account,
		Instrument:     *instrument,
		Levels:         *levels,
		SpacingBps:     *spacing,
		BudgetFraction: decimal.RequireFromString("0.1"),
		MakerOnly:      true,
	}

	// Give the stream a moment to deliver the first mid.
	var summary domain.Summary
	for {
		summary, err = sup.StartGrid(ctx, gridCfg)
		if err == nil {
			break
		}
		slog.Warn("Start pending", "err", err)
		select {
		case <-ctx.Done():
			slog.Error("❌ No price before deadline")
			os.Exit(1)
		case <-time.After(2 * time.Second):
		}
	}
	slog.Info("✅ Grid placed",
		"grid", summary.GridID,
		"legs", summary.OrdersPlaced,
		"range", summary.RangeLow.String()+" - "+summary.RangeHigh.String())

	<-ctx.Done()

	final, err := sup.StopGrid(gridCfg.Account, gridCfg.Instrument)
	if err != nil {
		slog.Error("❌ Stop failed", "err", err)
		os.Exit(1)
	}
	slog.Info("✨ Session complete",
		"placed", final.OrdersPlaced,
		"filled", final.OrdersFilled,
		"cancelled", final.Cancelled,
		"runtime", final.Runtime.Round(time.Second).String())
}
