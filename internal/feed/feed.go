package feed

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/caelum0x/hyperliqbot-sub001/internal/domain"
	"github.com/caelum0x/hyperliqbot-sub001/internal/infra"
	"github.com/caelum0x/hyperliqbot-sub001/internal/obs"
	"github.com/caelum0x/hyperliqbot-sub001/pkg/quant"
)

var (
	// ErrDuplicateSubscription is returned when a key is already registered.
	ErrDuplicateSubscription = errors.New("duplicate subscription key")

	// ErrNotConnected mirrors the transport error for callers that check
	// connection state through a send.
	ErrNotConnected = infra.ErrNotConnected
)

// Channel names for subscription keys.
const (
	ChannelMids  = "mids"
	ChannelFills = "fills"
)

// Key identifies one logical subscription. For ChannelMids, Instrument is
// the coin; for ChannelFills it is the account address.
type Key struct {
	Channel    string
	Instrument string
}

// TickHandler receives price ticks for a mids subscription. Handlers are
// invoked on the dispatch goroutine and must not block; enqueue work
// instead of doing exchange calls inline.
type TickHandler func(domain.PriceTick)

// FillHandler receives execution reports for a fills subscription.
type FillHandler func(domain.Fill)

type subscription struct {
	key    Key
	onTick TickHandler
	onFill FillHandler
	seq    uint64 // per-key monotonic, survives reconnects
}

// Feed maintains one streaming connection to the venue and fans incoming
// frames out to registered subscriptions. On transport drop it reconnects
// with jittered backoff and replays every subscription in registration
// order; handlers see a fresh frame per key with a strictly larger
// sequence number, never a special reconnect signal.
type Feed struct {
	url    string
	worker *infra.WSWorker

	mu    sync.Mutex
	subs  map[Key]*subscription
	order []Key
	last  map[string]domain.PriceTick

	// send is worker.Write by default; swapped in tests.
	send func(data []byte) error
}

// New creates a feed for the given websocket endpoint.
func New(cfg *infra.Config) *Feed {
	f := &Feed{
		url:  cfg.Feed.WSURL,
		subs: make(map[Key]*subscription),
		last: make(map[string]domain.PriceTick),
	}
	f.worker = infra.NewWSWorker(f)
	if cfg.Feed.ReadTimeoutSec > 0 {
		f.worker.ReadTimeout = time.Duration(cfg.Feed.ReadTimeoutSec) * time.Second
	}
	if cfg.Feed.PingIntervalSec > 0 {
		f.worker.PingInterval = time.Duration(cfg.Feed.PingIntervalSec) * time.Second
	}
	f.send = func(data []byte) error {
		return f.worker.Write(websocket.TextMessage, data)
	}
	return f
}

// Connect starts the connection loop. Reconnection and subscription
// replay happen without caller involvement until Close.
func (f *Feed) Connect(ctx context.Context) {
	f.worker.Start(ctx)
}

// Close terminates the connection loop.
func (f *Feed) Close() {
	f.worker.Stop()
}

// Subscribe registers a tick handler for a mids key. If connected, the
// subscribe frame is sent immediately; otherwise it is sent on the next
// (re)connect.
func (f *Feed) Subscribe(instrument string, h TickHandler) error {
	return f.register(Key{Channel: ChannelMids, Instrument: instrument}, &subscription{onTick: h})
}

// SubscribeFills registers a fill handler for an account address.
func (f *Feed) SubscribeFills(account string, h FillHandler) error {
	return f.register(Key{Channel: ChannelFills, Instrument: account}, &subscription{onFill: h})
}

func (f *Feed) register(key Key, sub *subscription) error {
	f.mu.Lock()
	if _, ok := f.subs[key]; ok {
		f.mu.Unlock()
		return ErrDuplicateSubscription
	}
	sub.key = key
	f.subs[key] = sub
	f.order = append(f.order, key)
	f.mu.Unlock()

	// Best effort: if not connected the frame goes out on replay.
	if frame := subscribeFrame(key, "subscribe"); frame != nil {
		if err := f.send(frame); err != nil {
			slog.Debug("Subscribe frame deferred to reconnect", "key", key, "err", err)
		}
	}
	return nil
}

// Unsubscribe removes a registration. No-op if the key is unknown; if
// disconnected the key simply will not be replayed. Mids keys multiplex
// over the venue's single allMids stream, so the wire-level unsubscribe
// goes out only when the last mids key is removed.
func (f *Feed) Unsubscribe(key Key) {
	f.mu.Lock()
	if _, ok := f.subs[key]; !ok {
		f.mu.Unlock()
		return
	}
	delete(f.subs, key)
	for i, k := range f.order {
		if k == key {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	midsRemain := false
	if key.Channel == ChannelMids {
		for k := range f.subs {
			if k.Channel == ChannelMids {
				midsRemain = true
				break
			}
		}
	}
	f.mu.Unlock()

	if midsRemain {
		return
	}
	if frame := subscribeFrame(key, "unsubscribe"); frame != nil {
		if err := f.send(frame); err != nil {
			slog.Debug("Unsubscribe frame skipped (not connected)", "key", key)
		}
	}
}

// LastTick returns the most recent cached tick for an instrument.
func (f *Feed) LastTick(instrument string) (domain.PriceTick, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.last[instrument]
	return t, ok
}

// --- infra.WSHandler ---

func (f *Feed) ID() string     { return "FEED" }
func (f *Feed) GetURL() string { return f.url }

// OnConnect replays every registered subscription in registration order.
// Mids keys share one allMids stream, so that frame is sent only once.
func (f *Feed) OnConnect(ctx context.Context, conn *websocket.Conn) error {
	obs.FeedConnects.Inc()

	f.mu.Lock()
	keys := make([]Key, len(f.order))
	copy(keys, f.order)
	f.mu.Unlock()

	sent := make(map[string]bool)
	for _, key := range keys {
		frame := subscribeFrame(key, "subscribe")
		if frame == nil || sent[string(frame)] {
			continue
		}
		sent[string(frame)] = true
		if err := f.send(frame); err != nil {
			return err
		}
	}
	slog.Info("Feed subscriptions replayed", "count", len(keys))
	return nil
}

func (f *Feed) OnPing(ctx context.Context, conn *websocket.Conn) error {
	return f.send([]byte(`{"method":"ping"}`))
}

// wireFrame is the envelope of every data frame.
type wireFrame struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

type midsData struct {
	Mids map[string]string `json:"mids"`
}

type fillsData struct {
	User  string `json:"user"`
	Fills []struct {
		Coin string      `json:"coin"`
		Px   string      `json:"px"`
		Sz   string      `json:"sz"`
		Side string      `json:"side"`
		Oid  json.Number `json:"oid"`
		Time int64       `json:"time"`
	} `json:"fills"`
}

// OnMessage routes one incoming frame. Unmatched frames are logged and
// dropped; a bad frame never takes down the dispatcher.
func (f *Feed) OnMessage(ctx context.Context, msg []byte) {
	var frame wireFrame
	if err := json.Unmarshal(msg, &frame); err != nil {
		slog.Warn("Feed frame unparseable", "err", err)
		return
	}

	switch frame.Channel {
	case "allMids":
		f.dispatchMids(frame.Data)
	case "userFills":
		f.dispatchFills(frame.Data)
	case "subscriptionResponse", "pong":
		// Control acks, nothing to route.
	default:
		slog.Debug("Feed frame dropped (no matching channel)", "channel", frame.Channel)
	}
}

func (f *Feed) dispatchMids(data json.RawMessage) {
	var mids midsData
	if err := json.Unmarshal(data, &mids); err != nil {
		slog.Warn("allMids payload unparseable", "err", err)
		return
	}
	now := time.Now()

	for coin, px := range mids.Mids {
		f.mu.Lock()
		sub, ok := f.subs[Key{Channel: ChannelMids, Instrument: coin}]
		if !ok {
			f.mu.Unlock()
			continue
		}
		mid, err := decimal.NewFromString(px)
		if err != nil {
			f.mu.Unlock()
			slog.Warn("Feed price unparseable", "coin", coin, "px", px)
			continue
		}
		tick := domain.PriceTick{
			Instrument: coin,
			Mid:        mid,
			Ts:         now,
			Seq:        quant.NextSeq(&sub.seq),
		}
		f.last[coin] = tick
		handler := sub.onTick
		f.mu.Unlock()

		if handler != nil {
			handler(tick)
		}
	}
}

func (f *Feed) dispatchFills(data json.RawMessage) {
	var fills fillsData
	if err := json.Unmarshal(data, &fills); err != nil {
		slog.Warn("userFills payload unparseable", "err", err)
		return
	}

	f.mu.Lock()
	sub, ok := f.subs[Key{Channel: ChannelFills, Instrument: fills.User}]
	var handler FillHandler
	if ok {
		handler = sub.onFill
	}
	f.mu.Unlock()

	if handler == nil {
		slog.Debug("Fills frame dropped (no subscriber)", "user", fills.User)
		return
	}

	for _, raw := range fills.Fills {
		side := domain.Buy
		if raw.Side == "A" || raw.Side == "SELL" {
			side = domain.Sell
		}
		px, perr := decimal.NewFromString(raw.Px)
		sz, serr := decimal.NewFromString(raw.Sz)
		if perr != nil || serr != nil {
			slog.Warn("Fill fields unparseable", "coin", raw.Coin)
			continue
		}
		handler(domain.Fill{
			Instrument: raw.Coin,
			OrderID:    raw.Oid.String(),
			Side:       side,
			Price:      px,
			Size:       sz,
			Ts:         time.UnixMilli(raw.Time),
		})
	}
}

// subscribeFrame builds the control frame for a key. Mids keys map to the
// venue's single allMids stream.
func subscribeFrame(key Key, method string) []byte {
	var sub map[string]string
	switch key.Channel {
	case ChannelMids:
		sub = map[string]string{"type": "allMids"}
	case ChannelFills:
		sub = map[string]string{"type": "userFills", "user": key.Instrument}
	default:
		return nil
	}
	b, _ := json.Marshal(map[string]any{"method": method, "subscription": sub})
	return b
}
