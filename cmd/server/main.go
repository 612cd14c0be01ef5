package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bluetrack/tracking-backend-go/internal/api"
	"github.com/bluetrack/tracking-backend-go/internal/config"
	"github.com/bluetrack/tracking-backend-go/internal/database"
	"github.com/bluetrack/tracking-backend-go/internal/handler"
	"github.com/bluetrack/tracking-backend-go/internal/live"
	"github.com/bluetrack/tracking-backend-go/internal/logging"
	"github.com/bluetrack/tracking-backend-go/internal/repository"
	"github.com/bluetrack/tracking-backend-go/internal/service"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)

	if err := database.Init(database.Config{Path: cfg.DBPath}); err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer database.Close()

	db := database.GetDB()
	if err := database.RunMigrations(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	accountRepo := repository.NewAccountRepository(db)
	deviceRepo := repository.NewDeviceRepository(db)
	positionRepo := repository.NewPositionRepository(db)

	index := live.NewSnapshotIndex(time.Duration(cfg.SnapshotWindowHours) * time.Hour)
	broadcaster := live.NewBroadcaster(index, cfg.SubscriberBuffer, logging.Component(logger, "broadcaster"))

	snapshotService := service.NewSnapshotService(index, positionRepo, deviceRepo, accountRepo, logging.Component(logger, "snapshot"))
	ingestService := service.NewIngestService(deviceRepo, accountRepo, positionRepo, snapshotService, broadcaster, logging.Component(logger, "ingest"))
	positionService := service.NewPositionService(positionRepo)
	deviceService := service.NewDeviceService(deviceRepo, accountRepo, positionRepo)

	if err := snapshotService.Rebuild(); err != nil {
		logger.Fatal().Err(err).Msg("failed to build initial snapshot")
	}

	// Periodic correctness-restoring sweep: reclaims entries that aged
	// out of the window with no new traffic
	sweepDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Duration(cfg.SnapshotRebuildMinutes) * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := snapshotService.Rebuild(); err != nil {
					logger.Error().Err(err).Msg("snapshot rebuild failed")
				}
			case <-sweepDone:
				return
			}
		}
	}()

	router := api.SetupRouter(cfg, logging.Component(logger, "http"), api.Handlers{
		Ingest:   handler.NewIngestHandler(ingestService),
		Live:     handler.NewLiveHandler(broadcaster, snapshotService),
		Position: handler.NewPositionHandler(positionService),
		Device:   handler.NewDeviceHandler(deviceService),
	})

	// No WriteTimeout: the SSE live stream is long-lived
	server := &http.Server{
		Addr:        cfg.Port,
		Handler:     router,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.Port).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	close(sweepDone)
	broadcaster.CloseAll()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("shutdown failed")
		os.Exit(1)
	}

	logger.Info().Msg("shutdown complete")
}
