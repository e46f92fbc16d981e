package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/caelum0x/hyperliqbot-sub001/internal/domain"
	"github.com/caelum0x/hyperliqbot-sub001/internal/event"
	"github.com/caelum0x/hyperliqbot-sub001/internal/gateway"
	"github.com/caelum0x/hyperliqbot-sub001/internal/infra"
	"github.com/caelum0x/hyperliqbot-sub001/internal/obs"
	"github.com/caelum0x/hyperliqbot-sub001/internal/risk"
	"github.com/caelum0x/hyperliqbot-sub001/internal/storage"
	"github.com/caelum0x/hyperliqbot-sub001/pkg/quant"
)

var (
	// ErrAlreadyActive is returned when a grid exists for the pair.
	ErrAlreadyActive = errors.New("grid already active for account/instrument")
	// ErrInvalidConfig is returned for out-of-range grid parameters.
	ErrInvalidConfig = errors.New("invalid grid config")
	// ErrNoPrice is returned when no tick is cached for the instrument.
	ErrNoPrice = errors.New("no price available for instrument")
	// ErrInitFloor is returned when initialization places fewer legs than
	// the success floor allows.
	ErrInitFloor = errors.New("grid initialization below success floor")
	// ErrStopped is returned when starting an engine whose grid already ran.
	ErrStopped = errors.New("grid already stopped")
)

// Options are the engine policy knobs.
type Options struct {
	RebalanceThreshold decimal.Decimal // fraction of reference price, default 0.05
	SuccessFloor       decimal.Decimal // min fraction of legs that must place, default 0.5
	CallTimeout        time.Duration   // per exchange call, default 10s
	MaxLegDeferrals    int             // rate-limit retries per leg
}

// Deps are the engine collaborators, shared across all grids of a venue.
type Deps struct {
	Gateway gateway.ExchangeGateway
	Rate    *infra.RateLimiter
	Risk    *risk.Limiter
	Events  storage.Sink
	EvSeq   *uint64 // shared journal sequence counter
}

type command interface{}

type tickCmd struct{ tick domain.PriceTick }

type fillCmd struct{ fill domain.Fill }

type stopCmd struct{ reply chan domain.Summary }

// Engine owns one grid. All GridState mutations happen on the run loop
// goroutine, which serializes initialization, tick-triggered rebalances,
// and stop through the inbox. Status readers get snapshot copies.
type Engine struct {
	opts Options
	deps Deps

	state *domain.GridState // owned by the run loop after start

	inbox chan command
	done  chan struct{}

	lastSeq  atomic.Uint64 // stale-tick guard, touched on the feed path
	dailyPnL decimal.Decimal
	equity   decimal.Decimal // total balance at last query, for leverage checks

	mu          sync.RWMutex
	snapshot    domain.GridState
	lastSummary *domain.Summary
}

// New creates an engine for a validated config. Call Start to build the
// ladder and begin processing.
func New(cfg domain.GridConfig, opts Options, deps Deps) *Engine {
	if opts.RebalanceThreshold.IsZero() {
		opts.RebalanceThreshold = decimal.RequireFromString("0.05")
	}
	if opts.SuccessFloor.IsZero() {
		opts.SuccessFloor = decimal.RequireFromString("0.5")
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 10 * time.Second
	}
	e := &Engine{
		opts: opts,
		deps: deps,
		state: &domain.GridState{
			ID:     uuid.New().String(),
			Config: cfg,
			Status: domain.GridIdle,
		},
		inbox: make(chan command, 64),
		done:  make(chan struct{}),
	}
	e.publishSnapshot()
	return e
}

// ID returns the grid id.
func (e *Engine) ID() string { return e.state.ID }

// Config returns the grid parameters. Immutable after New.
func (e *Engine) Config() domain.GridConfig { return e.state.Config }

// Start builds and places the initial ladder around mid, then launches
// the run loop. Fails closed: below the success floor every placed leg
// is cancelled and the grid ends Stopped with a reason.
func (e *Engine) Start(ctx context.Context, mid decimal.Decimal) (domain.Summary, error) {
	switch e.state.Status {
	case domain.GridIdle:
	case domain.GridStopped:
		return domain.Summary{}, ErrStopped
	default:
		return domain.Summary{}, ErrAlreadyActive
	}

	cfg := e.state.Config
	e.state.Status = domain.GridInitializing
	e.state.CreatedAt = time.Now()
	e.state.ReferencePrice = mid

	available, total, err := e.callBalance(ctx)
	if err != nil {
		e.abortInit(fmt.Sprintf("balance query failed: %v", err))
		return domain.Summary{}, fmt.Errorf("balance query failed: %w", err)
	}
	e.equity = total
	prec, err := e.deps.Gateway.GetInstrumentPrecision(ctx, cfg.Instrument)
	if err != nil {
		e.abortInit(fmt.Sprintf("precision query failed: %v", err))
		return domain.Summary{}, fmt.Errorf("precision query failed: %w", err)
	}

	budget := gridBudget(cfg, available)
	legs := buildLegs(cfg, mid, budget, prec)
	if len(legs) == 0 {
		e.abortInit(fmt.Sprintf("budget %s too small for %s", budget, cfg.Instrument))
		return domain.Summary{}, fmt.Errorf("%w: budget %s too small for %s", ErrInvalidConfig, budget, cfg.Instrument)
	}
	e.state.Legs = legs

	placed, legErrs := e.placeLegs(ctx, true)
	intended := len(e.state.Legs)

	if belowFloor(placed, intended, e.opts.SuccessFloor) {
		slog.Warn("Grid init below success floor, tearing down",
			"grid", e.state.ID, "placed", placed, "intended", intended)
		cancelled := e.cancelOpenLegs(ctx)
		e.state.Status = domain.GridStopped
		e.state.StopReason = fmt.Sprintf("initialization placed %d/%d legs", placed, intended)
		summary := e.buildSummary(cancelled, legErrs)
		e.storeSummary(summary)
		e.publishSnapshot()
		e.emit(ctx, event.GridStopped{
			GridID: e.state.ID, Instrument: cfg.Instrument,
			Cancelled: cancelled, Reason: e.state.StopReason,
		})
		return summary, fmt.Errorf("%w: %d/%d", ErrInitFloor, placed, intended)
	}

	e.state.Status = domain.GridActive
	e.publishSnapshot()

	e.emit(ctx, event.GridStarted{
		GridID: e.state.ID, Account: cfg.Account, Instrument: cfg.Instrument,
		Levels: cfg.Levels, SpacingBps: cfg.SpacingBps,
		ReferencePrice: mid,
		OrdersPlaced:   e.state.Counters.Placed, OrdersFailed: e.state.Counters.Failed,
	})
	obs.ActiveGrids.Inc()

	go e.run()

	summary := e.buildSummary(0, legErrs)
	slog.Info("Grid started",
		"grid", e.state.ID, "instrument", cfg.Instrument,
		"legs", placed, "reference", mid.String())
	return summary, nil
}

// run is the single-writer command loop.
func (e *Engine) run() {
	for {
		select {
		case <-e.done:
			return
		case cmd := <-e.inbox:
			switch c := cmd.(type) {
			case tickCmd:
				e.handleTick(c.tick)
			case fillCmd:
				e.handleFill(c.fill)
			case stopCmd:
				c.reply <- e.handleStop()
				close(e.done)
				return
			}
			// A failed rebalance stops the grid from inside the loop.
			if e.state.Status == domain.GridStopped {
				close(e.done)
				return
			}
		}
	}
}

// OnTick feeds a price update. Safe for concurrent callers; stale ticks
// (sequence not greater than the last observed for this instrument) are
// dropped here, before entering the command queue. Never blocks the
// dispatcher: if the inbox is full the tick is dropped, the next one
// carries fresher state anyway.
func (e *Engine) OnTick(tick domain.PriceTick) {
	for {
		last := e.lastSeq.Load()
		if tick.Seq <= last {
			obs.StaleTicks.Inc()
			return
		}
		if e.lastSeq.CompareAndSwap(last, tick.Seq) {
			break
		}
	}

	select {
	case e.inbox <- tickCmd{tick: tick}:
	default:
	}
}

// OnFill feeds an execution report from the user-fills channel.
func (e *Engine) OnFill(fill domain.Fill) {
	select {
	case e.inbox <- fillCmd{fill: fill}:
	case <-e.done:
	}
}

// Stop cancels every open leg, marks the grid Stopped and returns the
// teardown summary. Idempotent: a second call returns the stored summary
// without issuing another round of cancels.
func (e *Engine) Stop() domain.Summary {
	e.mu.RLock()
	if e.lastSummary != nil {
		s := *e.lastSummary
		e.mu.RUnlock()
		return s
	}
	e.mu.RUnlock()

	reply := make(chan domain.Summary, 1)
	select {
	case e.inbox <- stopCmd{reply: reply}:
		select {
		case s := <-reply:
			return s
		case <-e.done:
			// The loop exited on an earlier command that stopped the
			// grid; the summary was stored on that path.
			return e.storedSummary()
		}
	case <-e.done:
		return e.storedSummary()
	}
}

func (e *Engine) storedSummary() domain.Summary {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.lastSummary != nil {
		return *e.lastSummary
	}
	return domain.Summary{GridID: e.state.ID}
}

// Status returns a read-only snapshot, safe for concurrent callers.
func (e *Engine) Status() domain.GridState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshot.Snapshot()
}

// --- command handlers (run loop only) ---

func (e *Engine) handleTick(tick domain.PriceTick) {
	if e.state.Status != domain.GridActive {
		return
	}
	ref := e.state.ReferencePrice
	if ref.IsZero() {
		return
	}
	drift := tick.Mid.Sub(ref).Abs().Div(ref)
	if drift.LessThanOrEqual(e.opts.RebalanceThreshold) {
		return
	}

	slog.Info("Price drift beyond threshold, rebalancing",
		"grid", e.state.ID, "reference", ref.String(), "mid", tick.Mid.String(),
		"drift", drift.Round(4).String())
	e.rebalance(tick.Mid)
}

// rebalance cancels all legs and rebuilds the ladder around the new mid.
// Runs to completion inside one command cycle, so a queued Stop can never
// observe a half-rebalanced grid.
func (e *Engine) rebalance(mid decimal.Decimal) {
	ctx := context.Background()
	cfg := e.state.Config
	oldRef := e.state.ReferencePrice
	e.state.Status = domain.GridRebalancing
	e.publishSnapshot()

	cancelled := e.cancelOpenLegs(ctx)

	available, total, err := e.callBalance(ctx)
	if err != nil {
		slog.Error("Rebalance aborted: balance query failed", "grid", e.state.ID, "err", err)
		e.stopInternal(ctx, cancelled, fmt.Sprintf("rebalance balance query failed: %v", err))
		return
	}
	e.equity = total
	prec, err := e.deps.Gateway.GetInstrumentPrecision(ctx, cfg.Instrument)
	if err != nil {
		slog.Error("Rebalance aborted: precision query failed", "grid", e.state.ID, "err", err)
		e.stopInternal(ctx, cancelled, fmt.Sprintf("rebalance precision query failed: %v", err))
		return
	}

	e.state.Legs = buildLegs(cfg, mid, gridBudget(cfg, available), prec)
	placed, _ := e.placeLegs(ctx, false)
	intended := len(e.state.Legs)

	if belowFloor(placed, intended, e.opts.SuccessFloor) {
		// A half-built grid is worse than no grid.
		slog.Warn("Rebalance below success floor, stopping grid",
			"grid", e.state.ID, "placed", placed, "intended", intended)
		extra := e.cancelOpenLegs(ctx)
		e.stopInternal(ctx, cancelled+extra, fmt.Sprintf("rebalance placed %d/%d legs", placed, intended))
		return
	}

	e.state.ReferencePrice = mid
	e.state.LastRebalanceAt = time.Now()
	e.state.Status = domain.GridActive
	e.publishSnapshot()

	obs.Rebalances.WithLabelValues(cfg.Instrument).Inc()
	e.emit(ctx, event.GridRebalanced{
		GridID: e.state.ID, Instrument: cfg.Instrument,
		OldPrice: oldRef, NewPrice: mid,
		Placed: placed, Cancelled: cancelled,
	})
}

func (e *Engine) handleFill(fill domain.Fill) {
	for i := range e.state.Legs {
		leg := &e.state.Legs[i]
		if leg.OrderID != "" && leg.OrderID == fill.OrderID && leg.Status == domain.LegResting {
			leg.Status = domain.LegFilled
			e.state.Counters.Filled++
			// Cash view of the fill: sells add, buys spend. Feeds the
			// daily-loss check.
			notional := fill.Price.Mul(fill.Size)
			if fill.Side == domain.Sell {
				e.dailyPnL = e.dailyPnL.Add(notional)
			} else {
				e.dailyPnL = e.dailyPnL.Sub(notional)
			}
			obs.OrdersFilled.WithLabelValues(fill.Instrument, string(fill.Side)).Inc()
			e.publishSnapshot()
			return
		}
	}
	slog.Debug("Fill for unknown order", "order", fill.OrderID, "grid", e.state.ID)
}

func (e *Engine) handleStop() domain.Summary {
	ctx := context.Background()
	e.state.Status = domain.GridStopping
	e.publishSnapshot()

	cancelled := e.cancelOpenLegs(ctx)
	return e.stopInternal(ctx, cancelled, "requested")
}

func (e *Engine) stopInternal(ctx context.Context, cancelled int, reason string) domain.Summary {
	e.state.Status = domain.GridStopped
	e.state.StopReason = reason
	summary := e.buildSummary(cancelled, nil)
	e.storeSummary(summary)
	e.publishSnapshot()

	e.emit(ctx, event.GridStopped{
		GridID: e.state.ID, Instrument: e.state.Config.Instrument,
		Cancelled: cancelled, Reason: reason,
	})
	obs.ActiveGrids.Dec()
	slog.Info("Grid stopped", "grid", e.state.ID, "cancelled", cancelled, "reason", reason)
	return summary
}

// --- placement and cancellation ---

// placeLegs places every PENDING leg serially, buys before sells (the
// leg slice is already ordered). Risk denials fail the leg; rate-limit
// denials wait out retry_after up to MaxLegDeferrals times; ambiguous
// place outcomes are reconciled against open orders before being counted
// as failures. Returns the number of legs that ended up resting and the
// per-leg failure reasons.
func (e *Engine) placeLegs(ctx context.Context, initializing bool) (int, []string) {
	cfg := e.state.Config
	placed := 0
	var legErrs []string
	exposure := decimal.Zero

	for i := range e.state.Legs {
		leg := &e.state.Legs[i]
		if leg.Status != domain.LegPending {
			continue
		}

		ok, violations := e.deps.Risk.Evaluate(domain.Exposure{
			PositionNotional: exposure,
			TotalExposure:    exposure,
			DailyPnL:         e.dailyPnL,
			Equity:           e.equity,
		}, domain.ProposedOrder{
			Instrument: cfg.Instrument, Side: leg.Side,
			Price: leg.Price, Size: leg.Size,
		})
		if !ok {
			reasons := make([]string, len(violations))
			for vi, v := range violations {
				reasons[vi] = v.Reason
				obs.RiskViolations.WithLabelValues(string(v.Kind)).Inc()
			}
			e.failLeg(ctx, leg, "risk: "+strings.Join(reasons, "; "))
			legErrs = append(legErrs, leg.Reason)
			if initializing && i == 0 {
				// A denied first leg means the whole grid is over-sized.
				e.failRemaining(ctx, i+1, "aborted: first leg denied by risk limits")
				return placed, legErrs
			}
			continue
		}

		if !e.acquireWithDeferral(leg) {
			if e.deps.Rate.Blocked() {
				e.failLeg(ctx, leg, "rate limiter blocked")
				legErrs = append(legErrs, leg.Reason)
				e.failRemaining(ctx, i+1, "aborted: rate limiter blocked")
				return placed, legErrs
			}
			e.failLeg(ctx, leg, fmt.Sprintf("rate limited after %d deferrals", leg.Deferrals))
			legErrs = append(legErrs, leg.Reason)
			continue
		}

		res, err := e.callPlace(ctx, gateway.OrderRequest{
			Account: cfg.Account, Instrument: cfg.Instrument,
			Side: leg.Side, Size: leg.Size, Price: leg.Price,
			ClientID: leg.ClientID, MakerOnly: cfg.MakerOnly,
		})
		if err != nil {
			e.failLeg(ctx, leg, fmt.Sprintf("place failed: %v", err))
			legErrs = append(legErrs, leg.Reason)
			continue
		}

		leg.OrderID = res.OrderID
		leg.Status = res.Status
		e.state.Counters.Placed++
		placed++
		exposure = exposure.Add(leg.Price.Mul(leg.Size))
		obs.OrdersPlaced.WithLabelValues(cfg.Instrument, string(leg.Side)).Inc()
	}

	return placed, legErrs
}

// acquireWithDeferral takes an order slot, waiting out retry_after up to
// MaxLegDeferrals times. The wait doubles as the minimum spacing between
// serial exchange calls.
func (e *Engine) acquireWithDeferral(leg *domain.OrderLeg) bool {
	for {
		ok, retryAfter := e.deps.Rate.Acquire(infra.CatOrder)
		if ok {
			return true
		}
		obs.RateLimitDenials.WithLabelValues(string(infra.CatOrder)).Inc()
		if e.deps.Rate.Blocked() || leg.Deferrals >= e.opts.MaxLegDeferrals {
			return false
		}
		leg.Deferrals++
		time.Sleep(retryAfter)
	}
}

// callPlace issues a place with a bounded timeout. A place is never
// blindly retried: a timeout does not imply non-execution, so the
// ambiguous outcome is reconciled against open orders by client id.
func (e *Engine) callPlace(ctx context.Context, req gateway.OrderRequest) (gateway.PlaceResult, error) {
	cctx, cancel := context.WithTimeout(ctx, e.opts.CallTimeout)
	defer cancel()

	res, err := e.deps.Gateway.PlaceOrder(cctx, req)
	if err == nil {
		return res, nil
	}
	if !errors.Is(err, context.DeadlineExceeded) && !errors.Is(cctx.Err(), context.DeadlineExceeded) {
		return gateway.PlaceResult{}, err
	}

	// Ambiguous: the order may or may not have reached the book.
	if order, found := e.reconcile(ctx, req.Account, req.ClientID); found {
		slog.Warn("Place timed out but order is resting", "client_id", req.ClientID)
		return gateway.PlaceResult{OrderID: order.OrderID, Status: domain.LegResting}, nil
	}
	return gateway.PlaceResult{}, fmt.Errorf("place timed out, not found in open orders: %w", err)
}

// reconcile looks the client id up in open orders. Query calls are
// idempotent and get a single retry.
func (e *Engine) reconcile(ctx context.Context, account, clientID string) (gateway.Order, bool) {
	for attempt := 0; attempt < 2; attempt++ {
		if ok, _ := e.deps.Rate.Acquire(infra.CatQuery); !ok {
			obs.RateLimitDenials.WithLabelValues(string(infra.CatQuery)).Inc()
			continue
		}
		qctx, cancel := context.WithTimeout(ctx, e.opts.CallTimeout)
		orders, err := e.deps.Gateway.GetOpenOrders(qctx, account)
		cancel()
		if err != nil {
			continue
		}
		for _, o := range orders {
			if o.ClientID == clientID {
				return o, true
			}
		}
		return gateway.Order{}, false
	}
	return gateway.Order{}, false
}

// cancelOpenLegs cancels every PENDING/RESTING leg, best effort:
// individual cancel failures are logged and counted, never abort the
// teardown. Idempotent cancels get a single retry.
func (e *Engine) cancelOpenLegs(ctx context.Context) int {
	cfg := e.state.Config
	cancelled := 0

	for i := range e.state.Legs {
		leg := &e.state.Legs[i]
		if !leg.IsOpen() || leg.OrderID == "" {
			if leg.Status == domain.LegPending {
				leg.Status = domain.LegCancelled
			}
			continue
		}

		err := fmt.Errorf("cancel rate limited")
		for attempt := 0; attempt < 2; attempt++ {
			if ok, retryAfter := e.deps.Rate.Acquire(infra.CatCancel); !ok {
				obs.RateLimitDenials.WithLabelValues(string(infra.CatCancel)).Inc()
				time.Sleep(retryAfter)
				continue
			}
			cctx, cancel := context.WithTimeout(ctx, e.opts.CallTimeout)
			err = e.deps.Gateway.CancelOrder(cctx, cfg.Instrument, leg.OrderID)
			cancel()
			if err == nil {
				break
			}
		}
		if err != nil {
			slog.Warn("Cancel failed, leaving leg for venue-side expiry",
				"grid", e.state.ID, "order", leg.OrderID, "err", err)
			continue
		}

		leg.Status = domain.LegCancelled
		e.state.Counters.Cancelled++
		cancelled++
	}
	return cancelled
}

func (e *Engine) failLeg(ctx context.Context, leg *domain.OrderLeg, reason string) {
	leg.Status = domain.LegFailed
	leg.Reason = reason
	e.state.Counters.Failed++
	obs.OrdersFailed.WithLabelValues(e.state.Config.Instrument, "rejected").Inc()
	e.emit(ctx, event.LegFailed{
		GridID: e.state.ID, Instrument: e.state.Config.Instrument,
		Side: string(leg.Side), Price: leg.Price, Reason: reason,
	})
}

func (e *Engine) failRemaining(ctx context.Context, from int, reason string) {
	for i := from; i < len(e.state.Legs); i++ {
		if e.state.Legs[i].Status == domain.LegPending {
			e.failLeg(ctx, &e.state.Legs[i], reason)
		}
	}
}

// --- helpers ---

func (e *Engine) callBalance(ctx context.Context) (decimal.Decimal, decimal.Decimal, error) {
	for attempt := 0; attempt < 2; attempt++ {
		if ok, retryAfter := e.deps.Rate.Acquire(infra.CatQuery); !ok {
			obs.RateLimitDenials.WithLabelValues(string(infra.CatQuery)).Inc()
			time.Sleep(retryAfter)
			continue
		}
		qctx, cancel := context.WithTimeout(ctx, e.opts.CallTimeout)
		available, total, err := e.deps.Gateway.GetBalance(qctx, e.state.Config.Account)
		cancel()
		if err == nil {
			return available, total, nil
		}
		if attempt == 1 {
			return decimal.Zero, decimal.Zero, err
		}
	}
	return decimal.Zero, decimal.Zero, fmt.Errorf("balance query rate limited")
}

func belowFloor(placed, intended int, floor decimal.Decimal) bool {
	if intended == 0 {
		return true
	}
	frac := decimal.NewFromInt(int64(placed)).Div(decimal.NewFromInt(int64(intended)))
	return frac.LessThan(floor)
}

func (e *Engine) buildSummary(cancelled int, legErrs []string) domain.Summary {
	low, high := gridRange(e.state.Legs)
	return domain.Summary{
		GridID:         e.state.ID,
		Instrument:     e.state.Config.Instrument,
		OrdersPlaced:   e.state.Counters.Placed,
		OrdersFailed:   e.state.Counters.Failed,
		OrdersFilled:   e.state.Counters.Filled,
		Cancelled:      cancelled,
		ReferencePrice: e.state.ReferencePrice,
		RangeLow:       low,
		RangeHigh:      high,
		Runtime:        time.Since(e.state.CreatedAt),
		Reason:         e.state.StopReason,
		LegErrors:      legErrs,
	}
}

// abortInit marks the grid stopped before the run loop ever launches.
// Storing a summary here keeps a later Stop on the fast path; without
// it Stop would enqueue into an inbox nothing drains.
func (e *Engine) abortInit(reason string) {
	e.state.Status = domain.GridStopped
	e.state.StopReason = reason
	e.storeSummary(e.buildSummary(0, nil))
	e.publishSnapshot()
}

func (e *Engine) storeSummary(s domain.Summary) {
	e.mu.Lock()
	e.lastSummary = &s
	e.mu.Unlock()
}

func (e *Engine) publishSnapshot() {
	snap := e.state.Snapshot()
	e.mu.Lock()
	e.snapshot = snap
	e.mu.Unlock()
}

func (e *Engine) emit(ctx context.Context, ev event.Event) {
	if e.deps.Events == nil {
		return
	}
	full := withBase(ev, quant.NextSeq(e.deps.EvSeq))
	if err := e.deps.Events.Append(ctx, full); err != nil {
		// Audit trail is best effort; the grid must not halt on it.
		slog.Error("Journal append failed", "type", ev.GetType(), "err", err)
	}
}

// withBase stamps seq and timestamp onto a concrete event.
func withBase(ev event.Event, seq uint64) event.Event {
	base := event.BaseEvent{Seq: seq, Ts: time.Now()}
	switch t := ev.(type) {
	case event.GridStarted:
		t.BaseEvent = base
		return t
	case event.GridRebalanced:
		t.BaseEvent = base
		return t
	case event.GridStopped:
		t.BaseEvent = base
		return t
	case event.LegFailed:
		t.BaseEvent = base
		return t
	default:
		return ev
	}
}
