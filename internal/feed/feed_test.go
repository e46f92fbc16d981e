package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/caelum0x/hyperliqbot-sub001/internal/domain"
	"github.com/caelum0x/hyperliqbot-sub001/internal/infra"
)

func newTestFeed() (*Feed, *[][]byte) {
	cfg := infra.DefaultConfig()
	f := New(cfg)
	var sent [][]byte
	f.send = func(data []byte) error {
		sent = append(sent, data)
		return nil
	}
	return f, &sent
}

func midsFrame(mids map[string]string) []byte {
	b, _ := json.Marshal(map[string]any{
		"channel": "allMids",
		"data":    map[string]any{"mids": mids},
	})
	return b
}

func TestSubscribe_Duplicate(t *testing.T) {
	f, _ := newTestFeed()

	if err := f.Subscribe("BTC", func(domain.PriceTick) {}); err != nil {
		t.Fatalf("first Subscribe: %v", err)
	}
	if err := f.Subscribe("BTC", func(domain.PriceTick) {}); err != ErrDuplicateSubscription {
		t.Errorf("err = %v, want ErrDuplicateSubscription", err)
	}
}

func TestDispatch_RoutesAndSequences(t *testing.T) {
	f, _ := newTestFeed()
	ctx := context.Background()

	var ticks []domain.PriceTick
	f.Subscribe("BTC", func(tk domain.PriceTick) { ticks = append(ticks, tk) })

	f.OnMessage(ctx, midsFrame(map[string]string{"BTC": "65000", "ETH": "3000"}))
	f.OnMessage(ctx, midsFrame(map[string]string{"BTC": "65100"}))

	if len(ticks) != 2 {
		t.Fatalf("ticks = %d, want 2 (ETH has no subscriber)", len(ticks))
	}
	if ticks[0].Seq != 1 || ticks[1].Seq != 2 {
		t.Errorf("seqs = %d, %d, want 1, 2", ticks[0].Seq, ticks[1].Seq)
	}
	if ticks[1].Mid.String() != "65100" {
		t.Errorf("mid = %s, want 65100", ticks[1].Mid)
	}

	last, ok := f.LastTick("BTC")
	if !ok || last.Seq != 2 {
		t.Errorf("LastTick = %+v, ok=%v", last, ok)
	}
	if _, ok := f.LastTick("ETH"); ok {
		t.Error("unsubscribed instrument must not be cached")
	}
}

func TestDispatch_MalformedFramesDropped(t *testing.T) {
	f, _ := newTestFeed()
	ctx := context.Background()

	f.Subscribe("BTC", func(domain.PriceTick) { t.Fatal("handler must not fire") })

	f.OnMessage(ctx, []byte("not json"))
	f.OnMessage(ctx, []byte(`{"channel":"unknownChannel","data":{}}`))
	f.OnMessage(ctx, midsFrame(map[string]string{"BTC": "not-a-price"}))
}

func TestOnConnect_ReplaysInOrderWithDedupe(t *testing.T) {
	f, sent := newTestFeed()

	f.Subscribe("BTC", func(domain.PriceTick) {})
	f.Subscribe("ETH", func(domain.PriceTick) {})
	f.SubscribeFills("0xabc", func(domain.Fill) {})
	*sent = nil // drop the immediate frames, keep only the replay

	if err := f.OnConnect(context.Background(), nil); err != nil {
		t.Fatalf("OnConnect: %v", err)
	}

	// Both mids keys share the single allMids stream: one allMids frame
	// plus one userFills frame.
	if len(*sent) != 2 {
		t.Fatalf("replay frames = %d, want 2: %s", len(*sent), *sent)
	}
	var first map[string]any
	json.Unmarshal((*sent)[0], &first)
	if first["method"] != "subscribe" {
		t.Errorf("first frame method = %v", first["method"])
	}
}

func TestUnsubscribe_RemovesFromReplay(t *testing.T) {
	f, sent := newTestFeed()

	f.SubscribeFills("0xabc", func(domain.Fill) {})
	f.SubscribeFills("0xdef", func(domain.Fill) {})
	f.Unsubscribe(Key{Channel: ChannelFills, Instrument: "0xabc"})
	*sent = nil

	f.OnConnect(context.Background(), nil)

	if len(*sent) != 1 {
		t.Fatalf("replay frames = %d, want 1", len(*sent))
	}
	if want := "0xdef"; !strings.Contains(string((*sent)[0]), want) {
		t.Errorf("replayed frame %s missing %s", (*sent)[0], want)
	}
}

func TestUnsubscribe_KeepsSharedMidsStream(t *testing.T) {
	f, sent := newTestFeed()

	var ticks []domain.PriceTick
	f.Subscribe("BTC", func(domain.PriceTick) {})
	f.Subscribe("ETH", func(tk domain.PriceTick) { ticks = append(ticks, tk) })
	*sent = nil

	// BTC rides the same allMids stream as ETH, so dropping it must not
	// tear the stream down under the surviving subscriber.
	f.Unsubscribe(Key{Channel: ChannelMids, Instrument: "BTC"})
	if len(*sent) != 0 {
		t.Fatalf("unsubscribe frame sent while ETH still registered: %s", *sent)
	}

	f.OnMessage(context.Background(), midsFrame(map[string]string{"ETH": "3000"}))
	if len(ticks) != 1 {
		t.Fatalf("ETH ticks = %d, want 1 after BTC unsubscribe", len(ticks))
	}

	// Last mids key out sends the wire unsubscribe.
	f.Unsubscribe(Key{Channel: ChannelMids, Instrument: "ETH"})
	if len(*sent) != 1 {
		t.Fatalf("frames = %d, want 1 unsubscribe", len(*sent))
	}
	var frame map[string]any
	json.Unmarshal((*sent)[0], &frame)
	if frame["method"] != "unsubscribe" {
		t.Errorf("method = %v, want unsubscribe", frame["method"])
	}
}

func TestDispatch_Fills(t *testing.T) {
	f, _ := newTestFeed()
	ctx := context.Background()

	var fills []domain.Fill
	f.SubscribeFills("0xabc", func(fl domain.Fill) { fills = append(fills, fl) })

	frame, _ := json.Marshal(map[string]any{
		"channel": "userFills",
		"data": map[string]any{
			"user": "0xabc",
			"fills": []map[string]any{
				{"coin": "BTC", "px": "64675", "sz": "0.0038", "side": "B", "oid": 42, "time": 1700000000000},
				{"coin": "BTC", "px": "65325", "sz": "0.0038", "side": "A", "oid": 43, "time": 1700000001000},
			},
		},
	})
	f.OnMessage(ctx, frame)

	if len(fills) != 2 {
		t.Fatalf("fills = %d, want 2", len(fills))
	}
	if fills[0].Side != domain.Buy || fills[1].Side != domain.Sell {
		t.Errorf("sides = %s, %s", fills[0].Side, fills[1].Side)
	}
	if fills[1].OrderID != "43" {
		t.Errorf("order id = %s, want 43", fills[1].OrderID)
	}
}

func TestReconnect_ReplaysSubscriptionAndSequenceAdvances(t *testing.T) {
	var conns int32
	subFrames := make(chan string, 4)
	release := make(chan struct{})

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		n := atomic.AddInt32(&conns, 1)
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		subFrames <- string(msg)

		price := "65000"
		if n > 1 {
			price = "65100"
		}
		conn.WriteMessage(websocket.TextMessage, midsFrame(map[string]string{"BTC": price}))
		if n == 1 {
			// Drop the transport: the feed must resubscribe on its own.
			return
		}
		<-release
	}))
	defer server.Close()
	defer close(release)

	cfg := infra.DefaultConfig()
	cfg.Feed.WSURL = strings.Replace(server.URL, "http://", "ws://", 1)
	f := New(cfg)

	var mu sync.Mutex
	var ticks []domain.PriceTick
	f.Subscribe("BTC", func(tk domain.PriceTick) {
		mu.Lock()
		ticks = append(ticks, tk)
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.Connect(ctx)
	defer f.Close()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(ticks)
		mu.Unlock()
		if n >= 2 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(ticks) < 2 {
		t.Fatalf("ticks = %d, want one per connection", len(ticks))
	}
	if got := len(subFrames); got != 2 {
		t.Fatalf("subscribe frames = %d, want the subscription replayed after the drop", got)
	}
	for i := 1; i < len(ticks); i++ {
		if ticks[i].Seq <= ticks[i-1].Seq {
			t.Fatalf("seq %d after %d, want strictly increasing across the reconnect",
				ticks[i].Seq, ticks[i-1].Seq)
		}
	}
	if got := ticks[len(ticks)-1].Mid.String(); got != "65100" {
		t.Errorf("last mid = %s, want the post-reconnect price", got)
	}
}
