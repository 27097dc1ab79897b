// Command bybit-volume-scanner monitors Bybit trading pairs for volume
// spikes and raises alerts when a symbol's 24h volume exceeds its recent
// average by a configured percentage. It serves a web dashboard for
// monitoring and runtime configuration.
//
// Usage:
//
//	bybit-volume-scanner --config config.yaml
//	bybit-volume-scanner (uses CLI arguments)
//
// Optional environment variables:
//
//	BYBIT_API_KEY, BYBIT_API_SECRET (public market data works without them)
//	DATA_FILE, LISTEN_ADDR
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"bybit-volume-scanner/config"
	"bybit-volume-scanner/internal/alertsink"
	"bybit-volume-scanner/internal/clients"
	"bybit-volume-scanner/internal/scanner"
	"bybit-volume-scanner/internal/services/market"
	"bybit-volume-scanner/internal/storage/alerts"
	"bybit-volume-scanner/internal/storage/volumes"
	"bybit-volume-scanner/internal/web"
)

func main() {
	cfg, err := config.Get()
	if err != nil {
		log.Fatal(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	client := clients.NewBybitClient(os.Getenv("BYBIT_API_KEY"), os.Getenv("BYBIT_API_SECRET"))
	marketData := market.NewBybitMarket(client)
	snapshots := volumes.NewStore(cfg.DataFile)

	alertStore, err := alerts.NewWALStore(cfg.WALDir)
	if err != nil {
		logger.Fatal("failed to open alert store", zap.Error(err))
	}
	defer alertStore.Close()

	scan := scanner.New(scanner.Config{
		Category:         cfg.Category,
		TimeframeHours:   cfg.TimeframeHours,
		Threshold:        cfg.VolumeIncreaseThreshold,
		CheckInterval:    cfg.CheckInterval,
		WindowBuffer:     cfg.WindowBuffer,
		NegligibleVolume: cfg.NegligibleVolume,
	}, marketData, marketData, snapshots, logger)

	server := web.NewServer(cfg.ListenAddr, scan, alertStore, logger)

	scan.AddSink(alertsink.NewConsole())
	scan.AddSink(alertsink.NewWAL(alertStore, logger))
	scan.AddSink(server)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("volume scanner starting",
		zap.String("category", cfg.Category.String()),
		zap.Int("timeframe_hours", cfg.TimeframeHours),
		zap.Float64("threshold_pct", cfg.VolumeIncreaseThreshold),
		zap.Duration("check_interval", cfg.CheckInterval),
		zap.String("data_file", cfg.DataFile),
		zap.String("listen_addr", cfg.ListenAddr),
		zap.Int("tracked_symbols", scan.Status().TrackedSymbols))

	if cfg.Autostart {
		scan.Start(ctx)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Start(ctx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("web server stopped", zap.Error(err))
	}

	// let the in-flight cycle finish before exit
	scan.Stop()
	logger.Info("volume scanner stopped")
}
