package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/caelum0x/hyperliqbot-sub001/internal/domain"
	"github.com/caelum0x/hyperliqbot-sub001/internal/feed"
	"github.com/caelum0x/hyperliqbot-sub001/internal/infra"
)

// feedtap connects the live market data feed and prints mids for the
// requested instruments. Quick way to eyeball the stream and sequence
// numbers without starting the engine.
func main() {
	instruments := flag.String("coins", "BTC,ETH", "comma-separated instrument list")
	duration := flag.Duration("for", 30*time.Second, "how long to watch")
	flag.Parse()

	cfg := infra.DefaultConfig()

	fmt.Println("=== Grid Feed Tap ===")
	fmt.Printf("URL: %s\n\n", cfg.Feed.WSURL)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *duration)
	defer cancel()

	f := feed.New(cfg)
	for _, coin := range strings.Split(*instruments, ",") {
		coin = strings.TrimSpace(coin)
		if coin == "" {
			continue
		}
		err := f.Subscribe(coin, func(tick domain.PriceTick) {
			fmt.Printf("📊 %-6s seq=%-6d mid=%s\n", tick.Instrument, tick.Seq, tick.Mid.String())
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "subscribe %s: %v\n", coin, err)
			os.Exit(1)
		}
	}

	f.Connect(ctx)
	<-ctx.Done()
	f.Close()
	fmt.Println("\n✅ done")
}
