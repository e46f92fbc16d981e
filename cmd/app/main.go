package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/caelum0x/hyperliqbot-sub001/internal/app"

	_ "net/http/pprof" // For pprof profiling
)

func main() {
	// Metrics + pprof on localhost only.
	go func() {
		http.Handle("/metrics", promhttp.Handler())
		slog.Info("🕵️ Metrics/pprof server started on localhost:6060")
		if err := http.ListenAndServe("localhost:6060", nil); err != nil {
			slog.Error("Metrics server failed", slog.Any("error", err))
		}
	}()

	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bootstrap.Feed.Connect(ctx)
	slog.InfoContext(ctx, "✅ Market data feed connecting", "url", bootstrap.Config.Feed.WSURL)

	go bootstrap.Supervisor.Run(ctx)
	bootstrap.StartConfiguredGrids(ctx)

	slog.InfoContext(ctx, "✨ Grid engine fully operational. Press Ctrl+C to exit.")

	<-ctx.Done()

	slog.InfoContext(ctx, "👋 Shutting down gracefully...")
	bootstrap.Shutdown()
}
