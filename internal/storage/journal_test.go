package storage

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/caelum0x/hyperliqbot-sub001/internal/event"
)

func testJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := NewJournal(filepath.Join(t.TempDir(), "events.db"))
	if err != nil {
		t.Fatalf("NewJournal: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func TestJournal_AppendAndLoad(t *testing.T) {
	ctx := context.Background()
	j := testJournal(t)

	started := event.GridStarted{
		BaseEvent:      event.BaseEvent{Seq: 1, Ts: time.Now()},
		GridID:         "g-1",
		Instrument:     "BTC",
		Levels:         2,
		SpacingBps:     50,
		ReferencePrice: decimal.NewFromInt(65000),
		OrdersPlaced:   4,
	}
	stopped := event.GridStopped{
		BaseEvent:  event.BaseEvent{Seq: 2, Ts: time.Now()},
		GridID:     "g-1",
		Instrument: "BTC",
		Cancelled:  4,
		Reason:     "requested",
	}

	if err := j.Append(ctx, started); err != nil {
		t.Fatalf("Append started: %v", err)
	}
	if err := j.Append(ctx, stopped); err != nil {
		t.Fatalf("Append stopped: %v", err)
	}

	events, err := j.Load(ctx, 1)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("loaded %d events, want 2", len(events))
	}
	if events[0].Type != event.EvGridStarted || events[1].Type != event.EvGridStopped {
		t.Errorf("types = %d, %d", events[0].Type, events[1].Type)
	}

	var got event.GridStarted
	if err := json.Unmarshal(events[0].Payload, &got); err != nil {
		t.Fatalf("payload unmarshal: %v", err)
	}
	if got.GridID != "g-1" || got.OrdersPlaced != 4 {
		t.Errorf("round-tripped payload = %+v", got)
	}
}

func TestJournal_LastSeq(t *testing.T) {
	ctx := context.Background()
	j := testJournal(t)

	last, err := j.LastSeq(ctx)
	if err != nil {
		t.Fatalf("LastSeq on empty: %v", err)
	}
	if last != 0 {
		t.Errorf("empty journal LastSeq = %d, want 0", last)
	}

	j.Append(ctx, event.LegFailed{
		BaseEvent: event.BaseEvent{Seq: 7, Ts: time.Now()},
		GridID:    "g-1",
		Reason:    "risk denial",
	})

	last, _ = j.LastSeq(ctx)
	if last != 7 {
		t.Errorf("LastSeq = %d, want 7", last)
	}
}

func TestJournal_DuplicateSeqRejected(t *testing.T) {
	ctx := context.Background()
	j := testJournal(t)

	ev := event.GridStopped{BaseEvent: event.BaseEvent{Seq: 1, Ts: time.Now()}, GridID: "g-1"}
	if err := j.Append(ctx, ev); err != nil {
		t.Fatalf("first Append: %v", err)
	}
	if err := j.Append(ctx, ev); err == nil {
		t.Error("duplicate seq should violate the primary key")
	}
}
