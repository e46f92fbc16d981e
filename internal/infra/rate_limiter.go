package infra

import (
	"log/slog"
	"sync"
	"time"
)

// Category identifies one exchange-command class for rate limiting.
type Category string

const (
	CatOrder  Category = "order"
	CatCancel Category = "cancel"
	CatQuery  Category = "query"
	CatGlobal Category = "global"
)

// bucket is one fixed-window counter.
type bucket struct {
	max         int
	window      time.Duration
	windowStart time.Time
	granted     int
	attempts    int // includes denied calls, drives the abuse block
}

func (b *bucket) roll(now time.Time) {
	if b.windowStart.IsZero() || now.Sub(b.windowStart) >= b.window {
		b.windowStart = now
		b.granted = 0
		b.attempts = 0
	}
}

func (b *bucket) retryAfter(now time.Time) time.Duration {
	d := b.windowStart.Add(b.window).Sub(now)
	if d <= 0 {
		d = time.Millisecond
	}
	return d
}

// RateLimiter throttles exchange commands per category with a shared
// global ceiling. Category exhaustion is reported before global
// exhaustion so callers see the most specific reason. Sustained pressure
// past twice the global ceiling inside one window trips a temporary
// block; callers must treat that as fatal for the current operation
// rather than retry blindly.
type RateLimiter struct {
	mu           sync.Mutex
	buckets      map[Category]*bucket
	global       *bucket
	blockFor     time.Duration
	blockedUntil time.Time

	now func() time.Time // injectable for tests
}

// NewRateLimiter creates a limiter from per-category budgets.
func NewRateLimiter(order, cancel, query, global RateBudget, blockFor time.Duration) *RateLimiter {
	mk := func(b RateBudget) *bucket {
		return &bucket{max: b.MaxCalls, window: b.Window()}
	}
	return &RateLimiter{
		buckets: map[Category]*bucket{
			CatOrder:  mk(order),
			CatCancel: mk(cancel),
			CatQuery:  mk(query),
		},
		global:   mk(global),
		blockFor: blockFor,
		now:      time.Now,
	}
}

// Acquire attempts to take one call slot in the given category.
// Returns (true, 0) on success, or (false, retryAfter) when the category
// or global window is exhausted or the caller is temporarily blocked.
func (r *RateLimiter) Acquire(cat Category) (bool, time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()

	if now.Before(r.blockedUntil) {
		return false, r.blockedUntil.Sub(now)
	}

	b, ok := r.buckets[cat]
	if !ok {
		b = r.global
	}

	b.roll(now)
	r.global.roll(now)
	r.global.attempts++

	// Category first: the specific budget is the more actionable signal.
	if b != r.global && b.granted >= b.max {
		return false, b.retryAfter(now)
	}

	if r.global.granted >= r.global.max {
		if r.global.attempts >= 2*r.global.max {
			r.blockedUntil = now.Add(r.blockFor)
			slog.Warn("Rate limiter block triggered",
				slog.Int("attempts", r.global.attempts),
				slog.Duration("block", r.blockFor))
			return false, r.blockFor
		}
		return false, r.global.retryAfter(now)
	}

	b.granted++
	if b != r.global {
		r.global.granted++
	}
	return true, 0
}

// Blocked reports whether the abuse block is currently active.
func (r *RateLimiter) Blocked() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.now().Before(r.blockedUntil)
}
