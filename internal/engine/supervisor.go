package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/caelum0x/hyperliqbot-sub001/internal/domain"
	"github.com/caelum0x/hyperliqbot-sub001/internal/feed"
)

// ErrGridNotFound is returned for operations on an unknown grid.
var ErrGridNotFound = errors.New("grid not found")

// PriceSource is the market data surface the supervisor needs. *feed.Feed
// satisfies it; tests use a fake.
type PriceSource interface {
	Subscribe(instrument string, h feed.TickHandler) error
	SubscribeFills(account string, h feed.FillHandler) error
	Unsubscribe(key feed.Key)
	LastTick(instrument string) (domain.PriceTick, bool)
}

// Supervisor owns the grid registry. At most one grid per
// account/instrument pair. It subscribes the feed once per instrument
// and fans ticks out to every engine on that instrument, and runs a
// periodic sweep so grids still rebalance through quiet stretches of
// the stream.
type Supervisor struct {
	opts Options
	deps Deps
	feed PriceSource

	interval time.Duration

	mu      sync.Mutex
	grids   map[string]*Engine // keyed by account|instrument
	tickRef map[string]int     // engines per instrument, drives unsubscribe
	fillRef map[string]int     // engines per account

	stopOnce sync.Once
	done     chan struct{}
}

// NewSupervisor wires the registry over a price source and shared engine
// dependencies. interval is the periodic sweep period.
func NewSupervisor(src PriceSource, opts Options, deps Deps, interval time.Duration) *Supervisor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Supervisor{
		opts:     opts,
		deps:     deps,
		feed:     src,
		interval: interval,
		grids:    make(map[string]*Engine),
		tickRef:  make(map[string]int),
		fillRef:  make(map[string]int),
		done:     make(chan struct{}),
	}
}

// Run drives the periodic sweep until ctx is cancelled or Shutdown is
// called, then stops every remaining grid.
func (s *Supervisor) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Shutdown()
			return
		case <-s.done:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

// sweep pushes the cached tick into every active engine. Engines that
// already saw the sequence drop it at the door.
func (s *Supervisor) sweep() {
	s.mu.Lock()
	engines := make([]*Engine, 0, len(s.grids))
	for _, e := range s.grids {
		engines = append(engines, e)
	}
	s.mu.Unlock()

	for _, e := range engines {
		if tick, ok := s.feed.LastTick(e.Config().Instrument); ok {
			e.OnTick(tick)
		}
	}
}

// StartGrid validates the config, checks pair uniqueness, resolves the
// current mid from the feed cache and launches a new engine. The engine
// is registered only after initialization succeeds, so a failed start
// leaves the pair free.
func (s *Supervisor) StartGrid(ctx context.Context, cfg domain.GridConfig) (domain.Summary, error) {
	if err := cfg.Validate(); err != nil {
		return domain.Summary{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	key := cfg.Key()

	s.mu.Lock()
	if _, exists := s.grids[key]; exists {
		s.mu.Unlock()
		return domain.Summary{}, fmt.Errorf("%w: %s", ErrAlreadyActive, key)
	}
	s.mu.Unlock()

	if err := s.feed.Subscribe(cfg.Instrument, s.tickFanout(cfg.Instrument)); err != nil && !errors.Is(err, feed.ErrDuplicateSubscription) {
		return domain.Summary{}, fmt.Errorf("feed subscribe failed: %w", err)
	}

	tick, ok := s.feed.LastTick(cfg.Instrument)
	if !ok || !tick.Mid.IsPositive() {
		return domain.Summary{}, fmt.Errorf("%w: %s", ErrNoPrice, cfg.Instrument)
	}

	eng := New(cfg, s.opts, s.deps)
	summary, err := eng.Start(ctx, tick.Mid)
	if err != nil {
		return summary, err
	}
	eng.lastSeq.Store(tick.Seq)

	if err := s.feed.SubscribeFills(cfg.Account, s.fillFanout(cfg.Account)); err != nil && !errors.Is(err, feed.ErrDuplicateSubscription) {
		slog.Warn("Fill subscription failed, fills will not be tracked", "account", cfg.Account, "err", err)
	}

	s.mu.Lock()
	if _, exists := s.grids[key]; exists {
		s.mu.Unlock()
		// Lost a concurrent start race; give back what we built.
		eng.Stop()
		return domain.Summary{}, fmt.Errorf("%w: %s", ErrAlreadyActive, key)
	}
	s.grids[key] = eng
	s.tickRef[cfg.Instrument]++
	s.fillRef[cfg.Account]++
	s.mu.Unlock()

	return summary, nil
}

// StopGrid tears the grid down and removes it from the registry. The
// feed subscription is dropped when no other grid uses the instrument.
func (s *Supervisor) StopGrid(account, instrument string) (domain.Summary, error) {
	key := account + "|" + instrument

	s.mu.Lock()
	eng, ok := s.grids[key]
	if !ok {
		s.mu.Unlock()
		return domain.Summary{}, fmt.Errorf("%w: %s", ErrGridNotFound, key)
	}
	delete(s.grids, key)
	s.tickRef[instrument]--
	dropTicks := s.tickRef[instrument] <= 0
	if dropTicks {
		delete(s.tickRef, instrument)
	}
	s.fillRef[account]--
	dropFills := s.fillRef[account] <= 0
	if dropFills {
		delete(s.fillRef, account)
	}
	s.mu.Unlock()

	summary := eng.Stop()

	if dropTicks {
		s.feed.Unsubscribe(feed.Key{Channel: feed.ChannelMids, Instrument: instrument})
	}
	if dropFills {
		s.feed.Unsubscribe(feed.Key{Channel: feed.ChannelFills, Instrument: account})
	}
	return summary, nil
}

// GridStatus returns a snapshot of one grid.
func (s *Supervisor) GridStatus(account, instrument string) (domain.GridState, error) {
	s.mu.Lock()
	eng, ok := s.grids[account+"|"+instrument]
	s.mu.Unlock()
	if !ok {
		return domain.GridState{}, fmt.Errorf("%w: %s|%s", ErrGridNotFound, account, instrument)
	}
	return eng.Status(), nil
}

// Grids returns snapshots of every registered grid.
func (s *Supervisor) Grids() []domain.GridState {
	s.mu.Lock()
	engines := make([]*Engine, 0, len(s.grids))
	for _, e := range s.grids {
		engines = append(engines, e)
	}
	s.mu.Unlock()

	out := make([]domain.GridState, 0, len(engines))
	for _, e := range engines {
		out = append(out, e.Status())
	}
	return out
}

// Shutdown stops every grid. Each teardown runs to completion before the
// next begins so the rate limiter sees a serial cancel stream. Safe to
// call more than once.
func (s *Supervisor) Shutdown() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		engines := make([]*Engine, 0, len(s.grids))
		for key, e := range s.grids {
			engines = append(engines, e)
			delete(s.grids, key)
		}
		s.mu.Unlock()

		for _, e := range engines {
			summary := e.Stop()
			slog.Info("Grid stopped during shutdown",
				"grid", summary.GridID, "instrument", summary.Instrument,
				"cancelled", summary.Cancelled)
		}
		close(s.done)
	})
}

// tickFanout builds the feed handler for one instrument: every engine on
// that instrument receives the tick.
func (s *Supervisor) tickFanout(instrument string) feed.TickHandler {
	return func(tick domain.PriceTick) {
		if !tick.Mid.IsPositive() {
			return
		}
		s.mu.Lock()
		engines := make([]*Engine, 0, 1)
		for _, e := range s.grids {
			if e.Config().Instrument == instrument {
				engines = append(engines, e)
			}
		}
		s.mu.Unlock()
		for _, e := range engines {
			e.OnTick(tick)
		}
	}
}

// fillFanout routes account fills to the engine holding the filled order.
func (s *Supervisor) fillFanout(account string) feed.FillHandler {
	return func(fill domain.Fill) {
		s.mu.Lock()
		eng, ok := s.grids[account+"|"+fill.Instrument]
		s.mu.Unlock()
		if ok {
			eng.OnFill(fill)
		}
	}
}
