package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eneskucukk/ParkingLotApp/internal/config"
	"github.com/eneskucukk/ParkingLotApp/internal/logging"
	"github.com/eneskucukk/ParkingLotApp/internal/parking"
	"github.com/eneskucukk/ParkingLotApp/internal/server"
	"github.com/eneskucukk/ParkingLotApp/internal/store"
	"github.com/eneskucukk/ParkingLotApp/internal/store/postgres"
)

var (
	mode = flag.String("mode", "cli", "Mode to run: cli, server, or both")
	port = flag.String("port", "", "Port for HTTP server (overrides PORT)")
)

// transactionStore is what the entry point needs from a backend.
type transactionStore interface {
	parking.TransactionStore
	parking.TransactionHistory
	io.Closer
}

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *port != "" {
		cfg.Port = *port
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryProvider, err := parking.NewTelemetryProvider(ctx, parking.TelemetryConfig{
		ServiceName:  cfg.ServiceName,
		OTLPEndpoint: cfg.OTLPEndpoint,
		Environment:  cfg.Environment,
	})
	if err != nil {
		log.Fatalf("Failed to initialize telemetry: %v", err)
	}
	defer shutdownTelemetry(telemetryProvider)

	logging.Init(cfg.ServiceName, cfg.Environment)

	txStore, err := openStore(ctx, cfg)
	if err != nil {
		logging.Error(ctx, "failed to open transaction store", "driver", cfg.StoreDriver, "error", err)
		return
	}
	defer func() {
		if err := txStore.Close(); err != nil {
			logging.Error(context.Background(), "failed to close transaction store", "error", err)
		}
	}()

	lot, err := parking.NewInstrumentedParkingLot(parking.NewParkingLot(cfg.Capacity, txStore), telemetryProvider)
	if err != nil {
		logging.Error(ctx, "failed to create parking lot", "error", err)
		return
	}
	logging.Info(ctx, "parking lot ready",
		"capacity", cfg.Capacity,
		"store", cfg.StoreDriver,
		"mode", *mode,
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	switch *mode {
	case "cli":
		runCLI(ctx, cancel, cfg, lot, txStore, telemetryProvider, sigChan)
	case "server":
		runServer(ctx, cancel, cfg, lot, sigChan)
	case "both":
		runBoth(ctx, cancel, cfg, lot, txStore, telemetryProvider, sigChan)
	default:
		logging.Error(ctx, "invalid mode, must be cli, server, or both", "mode", *mode)
	}
}

func openStore(ctx context.Context, cfg *config.Config) (transactionStore, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		return postgres.Open(ctx, cfg.DatabaseURL)
	case config.StoreDriverFile:
		return store.OpenFileStore(cfg.LedgerPath,
			store.WithFsync(cfg.LedgerFsync),
			store.WithMaxTries(cfg.LedgerMaxTries),
			store.WithRetryInterval(cfg.LedgerRetryInterval),
		)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func newShell(cfg *config.Config, lot *parking.InstrumentedParkingLot, history parking.TransactionHistory, telemetryProvider *parking.TelemetryProvider) *parking.Shell {
	return parking.NewShell(lot, telemetryProvider, os.Stdin, os.Stdout,
		parking.WithHistory(history),
		parking.WithCurrency(cfg.Currency),
	)
}

func runCLI(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, lot *parking.InstrumentedParkingLot, history parking.TransactionHistory, telemetryProvider *parking.TelemetryProvider, sigChan chan os.Signal) {
	go func() {
		<-sigChan
		logging.Info(ctx, "shutting down")
		cancel()
	}()

	newShell(cfg, lot, history, telemetryProvider).Run(ctx)
}

func runServer(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, lot *parking.InstrumentedParkingLot, sigChan chan os.Signal) {
	srv := newServer(cfg, lot)

	go func() {
		<-sigChan
		logging.Info(ctx, "received shutdown signal")
		shutdownServer(srv)
		cancel()
	}()

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logging.Error(ctx, "server error", "error", err)
	}
}

func runBoth(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, lot *parking.InstrumentedParkingLot, history parking.TransactionHistory, telemetryProvider *parking.TelemetryProvider, sigChan chan os.Signal) {
	srv := newServer(cfg, lot)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.Start()
	}()

	cliDone := make(chan bool, 1)
	go func() {
		newShell(cfg, lot, history, telemetryProvider).Run(ctx)
		cliDone <- true
	}()

	go func() {
		<-sigChan
		logging.Info(ctx, "received shutdown signal")
		cancel()
	}()

	select {
	case err := <-serverDone:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error(ctx, "server error", "error", err)
		}
	case <-cliDone:
		logging.Info(ctx, "CLI exited")
	case <-ctx.Done():
		logging.Info(ctx, "context cancelled")
	}

	shutdownServer(srv)
}

func newServer(cfg *config.Config, lot *parking.InstrumentedParkingLot) *server.Server {
	return server.NewServer(lot, server.Options{
		Port:        cfg.Port,
		ServiceName: cfg.ServiceName,
		Currency:    cfg.Currency,
	})
}

func shutdownServer(srv *server.Server) {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error(shutdownCtx, "server shutdown error", "error", err)
	}
}

func shutdownTelemetry(telemetryProvider *parking.TelemetryProvider) {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := telemetryProvider.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down telemetry: %v", err)
	}
}
