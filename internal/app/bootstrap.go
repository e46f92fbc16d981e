package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
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

// Bootstrap orchestrates the application startup sequence.
type Bootstrap struct {
	Config     *infra.Config
	Journal    *storage.Journal
	Feed       *feed.Feed
	Supervisor *engine.Supervisor

	unlock func()
}

// NewBootstrap creates a new Bootstrap instance.
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize loads config, sets up the logger, workspace, journal, rate
// and risk limiters, the exchange gateway and the grid supervisor.
func (b *Bootstrap) Initialize() error {
	slog.Info("🚀 Bootstrapping grid engine...")

	cfg, err := infra.LoadConfig(infra.ResolveConfigPath())
	if err != nil {
		return err
	}
	b.Config = cfg

	slog.SetDefault(infra.NewLogger(cfg))

	// Data isolation per trading mode: _workspace/data/{mode}
	mode := strings.ToLower(cfg.Trading.Mode)
	if mode == "" {
		mode = "paper"
	}
	workDir := infra.GetWorkspaceDir()
	dataDir := filepath.Join(workDir, "data", mode)
	if err := infra.EnsureDir(dataDir); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	// One process per workspace, or two writers share the journal.
	unlock, err := infra.CreateLockFile(workDir)
	if err != nil {
		return err
	}
	b.unlock = unlock

	var sink storage.Sink = storage.NopSink{}
	if cfg.Journal.Enabled {
		dbPath := filepath.Join(dataDir, "events.db")
		journal, err := storage.NewJournal(dbPath)
		if err != nil {
			return err
		}
		b.Journal = journal
		sink = journal
		slog.Info("✅ Journal initialized (WAL-mode)", "path", dbPath, "mode", mode)
	}

	gw, err := gateway.NewGateway(cfg, nil)
	if err != nil {
		return err
	}
	slog.Info("✅ Exchange gateway ready", "mode", cfg.Trading.Mode)

	riskLimiter, err := risk.FromConfig(cfg.Risk)
	if err != nil {
		return fmt.Errorf("risk config: %w", err)
	}

	rateLimiter := infra.NewRateLimiter(
		cfg.RateLimits.Order, cfg.RateLimits.Cancel,
		cfg.RateLimits.Query, cfg.RateLimits.Global,
		time.Duration(cfg.RateLimits.BlockSec)*time.Second,
	)

	b.Feed = feed.New(cfg)

	opts := engine.Options{
		RebalanceThreshold: decimal.RequireFromString(cfg.Engine.RebalanceThreshold),
		SuccessFloor:       decimal.RequireFromString(cfg.Engine.SuccessFloor),
		CallTimeout:        time.Duration(cfg.Engine.CallTimeoutSec) * time.Second,
		MaxLegDeferrals:    cfg.Engine.MaxLegDeferrals,
	}

	// Continue the journal sequence across restarts.
	var evSeq uint64
	if b.Journal != nil {
		if last, err := b.Journal.LastSeq(context.Background()); err == nil {
			evSeq = last
		}
	}
	b.Supervisor = engine.NewSupervisor(b.Feed, opts, engine.Deps{
		Gateway: gw,
		Rate:    rateLimiter,
		Risk:    riskLimiter,
		Events:  sink,
		EvSeq:   &evSeq,
	}, time.Duration(cfg.Engine.SupervisorIntervalSec)*time.Second)

	return nil
}

// StartConfiguredGrids launches every grid declared in the config.
// Individual failures are logged and skipped so one bad entry does not
// take the process down.
func (b *Bootstrap) StartConfiguredGrids(ctx context.Context) {
	for _, entry := range b.Config.Grids {
		cfg, err := gridConfigFromEntry(entry, b.Config.Trading.Account)
		if err != nil {
			slog.Error("❌ Skipping grid, bad config", "instrument", entry.Instrument, "err", err)
			continue
		}

		summary, err := b.startWithRetry(ctx, cfg)
		if err != nil {
			slog.Error("❌ Grid start failed", "instrument", cfg.Instrument, "err", err)
			continue
		}
		slog.Info("✅ Grid running",
			"grid", summary.GridID, "instrument", cfg.Instrument,
			"placed", summary.OrdersPlaced,
			"range_low", summary.RangeLow.String(), "range_high", summary.RangeHigh.String())
	}
}

// startWithRetry waits for the feed to deliver a first tick. The ws
// connect races the boot sequence, so ErrNoPrice right after startup
// just means the stream has not produced a frame yet.
func (b *Bootstrap) startWithRetry(ctx context.Context, cfg domain.GridConfig) (domain.Summary, error) {
	var lastErr error
	for attempt := 0; attempt < 10; attempt++ {
		summary, err := b.Supervisor.StartGrid(ctx, cfg)
		if err == nil || !errors.Is(err, engine.ErrNoPrice) {
			return summary, err
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return domain.Summary{}, ctx.Err()
		case <-time.After(time.Second):
		}
	}
	return domain.Summary{}, lastErr
}

func gridConfigFromEntry(entry infra.GridEntry, defaultAccount string) (domain.GridConfig, error) {
	account := entry.Account
	if account == "" {
		account = defaultAccount
	}
	fraction, err := decimal.NewFromString(entry.BudgetFraction)
	if err != nil {
		return domain.GridConfig{}, fmt.Errorf("budget_fraction %q: %w", entry.BudgetFraction, err)
	}
	budgetCap := decimal.Zero
	if entry.BudgetCap != "" {
		if budgetCap, err = decimal.NewFromString(entry.BudgetCap); err != nil {
			return domain.GridConfig{}, fmt.Errorf("budget_cap %q: %w", entry.BudgetCap, err)
		}
	}
	cfg := domain.GridConfig{
		Account:        account,
		Instrument:     entry.Instrument,
		Levels:         entry.Levels,
		SpacingBps:     entry.SpacingBps,
		BudgetFraction: fraction,
		BudgetCap:      budgetCap,
		MakerOnly:      entry.MakerOnly,
	}
	return cfg, cfg.Validate()
}

// Shutdown releases everything Initialize acquired, in reverse order.
func (b *Bootstrap) Shutdown() {
	if b.Supervisor != nil {
		b.Supervisor.Shutdown()
	}
	if b.Feed != nil {
		b.Feed.Close()
	}
	if b.Journal != nil {
		if err := b.Journal.Close(); err != nil {
			slog.Error("Journal close failed", "err", err)
		}
	}
	if b.unlock != nil {
		b.unlock()
	}
}
