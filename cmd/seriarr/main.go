package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/seriarr/seriarr/internal/api"
	"github.com/seriarr/seriarr/internal/config"
	"github.com/seriarr/seriarr/internal/controllers"
	"github.com/seriarr/seriarr/internal/models"
	"github.com/seriarr/seriarr/internal/scheduler"
	"github.com/seriarr/seriarr/internal/services/nyaa"
	"github.com/seriarr/seriarr/internal/services/transmission"
	"github.com/seriarr/seriarr/internal/storage"
	"github.com/seriarr/seriarr/internal/utils"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// 2. Setup logger
	logger := utils.NewLogger(cfg.LogLevel)
	logger.Info("Starting seriarr")

	// 3. Open grab history
	db, err := models.NewDatabase(cfg.HistoryFile)
	if err != nil {
		return fmt.Errorf("failed to open grab history: %w", err)
	}
	defer db.Close()

	// 4. Build series from configuration. A broken series is skipped so the
	// others keep working; nothing left to track is fatal.
	var series []*models.Series
	for _, sc := range cfg.Series {
		s, err := models.NewSeries(models.SeriesOptions{
			Name:            sc.Name,
			Directory:       sc.Directory,
			RemoteDirectory: sc.RemoteDirectory,
			Template:        sc.Pattern,
			NumberWidth:     sc.NumberWidth,
			MaxAhead:        sc.MaxAhead,
		})
		if err != nil {
			logger.WithError(err).Error("Skipping series with invalid configuration")
			continue
		}
		series = append(series, s)
	}
	if len(series) == 0 {
		return fmt.Errorf("no valid series configured")
	}
	logger.WithField("count", len(series)).Info("Series configured")

	// 5. Initialize collaborator clients
	nyaaClient, err := nyaa.NewClient(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize nyaa client: %w", err)
	}

	transmissionClient, err := transmission.NewClient(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize transmission client: %w", err)
	}

	ctx := context.Background()
	if err := transmissionClient.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to transmission: %w", err)
	}
	logger.Info("Transmission session established")

	// 6. Initialize the reconcile controller
	reconcileCtrl := controllers.NewReconcileController(
		storage.Local{},
		nyaaClient,
		transmissionClient,
		db,
		cfg.SkipScan,
		logger,
	)

	// 7. One-shot pass unless a schedule is configured
	if cfg.Schedule == "" {
		reconcileCtrl.RunPass(ctx, series, cfg.DryRun)
		logger.Info("seriarr finished")
		return nil
	}

	// 8. Daemon mode: scheduler plus HTTP server
	sched := scheduler.NewScheduler(reconcileCtrl, series, cfg.Schedule, cfg.DryRun, logger)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	server := api.NewServer(cfg, reconcileCtrl, db, logger)

	serverCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	serverErrChan := make(chan error, 1)
	go func() {
		if err := server.Start(serverCtx); err != nil {
			serverErrChan <- err
		}
	}()

	// 9. Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("seriarr is running")

	select {
	case err := <-serverErrChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		logger.WithField("signal", sig).Info("Received shutdown signal")
		cancel()
		if err := server.Shutdown(context.Background()); err != nil {
			logger.WithError(err).Error("Error during server shutdown")
		}
	}

	logger.Info("seriarr stopped")
	return nil
}
