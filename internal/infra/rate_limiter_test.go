package infra

import (
	"testing"
	"time"
)

func testLimiter(orderMax, globalMax int, block time.Duration) (*RateLimiter, *time.Time) {
	clock := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(
		RateBudget{MaxCalls: orderMax, WindowSec: 1},
		RateBudget{MaxCalls: orderMax, WindowSec: 1},
		RateBudget{MaxCalls: orderMax, WindowSec: 1},
		RateBudget{MaxCalls: globalMax, WindowSec: 1},
		block,
	)
	rl.now = func() time.Time { return clock }
	return rl, &clock
}

func TestRateLimiter_CategoryExhaustion(t *testing.T) {
	rl, _ := testLimiter(3, 100, time.Minute)

	for i := 0; i < 3; i++ {
		if ok, _ := rl.Acquire(CatOrder); !ok {
			t.Fatalf("call %d: expected acquire to succeed", i)
		}
	}

	// N+1th call in a category with limit N yields exactly one denial
	// with a positive retry-after.
	ok, retry := rl.Acquire(CatOrder)
	if ok {
		t.Error("expected denial after category budget exhausted")
	}
	if retry <= 0 {
		t.Errorf("retry_after = %s, want > 0", retry)
	}

	// Other categories are unaffected.
	if ok, _ := rl.Acquire(CatCancel); !ok {
		t.Error("cancel category should still have budget")
	}
}

func TestRateLimiter_WindowRoll(t *testing.T) {
	rl, clock := testLimiter(1, 100, time.Minute)

	if ok, _ := rl.Acquire(CatQuery); !ok {
		t.Fatal("first acquire should succeed")
	}
	if ok, _ := rl.Acquire(CatQuery); ok {
		t.Fatal("second acquire should be denied")
	}

	*clock = clock.Add(1100 * time.Millisecond)

	if ok, _ := rl.Acquire(CatQuery); !ok {
		t.Error("acquire should succeed after the window rolls")
	}
}

func TestRateLimiter_GlobalAfterCategory(t *testing.T) {
	// Global ceiling below the sum of category ceilings.
	rl, _ := testLimiter(4, 4, time.Minute)

	for i := 0; i < 2; i++ {
		if ok, _ := rl.Acquire(CatOrder); !ok {
			t.Fatalf("order %d should succeed", i)
		}
		if ok, _ := rl.Acquire(CatCancel); !ok {
			t.Fatalf("cancel %d should succeed", i)
		}
	}

	// Both categories still have budget; global is now exhausted.
	ok, retry := rl.Acquire(CatOrder)
	if ok {
		t.Error("expected global denial")
	}
	if retry <= 0 {
		t.Errorf("retry_after = %s, want > 0", retry)
	}
}

func TestRateLimiter_AbuseBlock(t *testing.T) {
	rl, _ := testLimiter(100, 2, time.Minute)

	rl.Acquire(CatOrder)
	rl.Acquire(CatOrder)

	// Hammer past 2x the global ceiling within the window.
	var blocked bool
	for i := 0; i < 5; i++ {
		if ok, retry := rl.Acquire(CatOrder); !ok && retry == time.Minute {
			blocked = true
			break
		}
	}
	if !blocked {
		t.Fatal("expected abuse block after sustained global exhaustion")
	}
	if !rl.Blocked() {
		t.Error("Blocked() should report true while block is active")
	}
}
