// wildtrack-server serves the seasonal predictor and park recommender
// over HTTP. When a model store URL is configured it syncs the model
// bundle before loading, so a fresh container starts on the current
// bundle without a baked-in copy.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"wildtrack/internal/cfg"
	"wildtrack/internal/metrics"
	"wildtrack/internal/modelsync"
	"wildtrack/internal/parks"
	"wildtrack/internal/seasonal"
	"wildtrack/internal/server"
	"wildtrack/internal/storage"
)

func main() {
	_ = godotenv.Load()

	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	syncModels(ctx, c)

	m := metrics.New()
	svc := seasonal.NewWithRecorder(c.ModelDir, metrics.NewRecorder(m))
	rec := parks.New(c.ParkModelPath)

	if manifest := svc.Manifest(); manifest != nil {
		m.ModelAge.Set(time.Since(manifest.CreatedAt).Seconds())
	}

	store := initializeStorage(c)
	if store != nil {
		defer store.Close()
	}

	srv := server.New(svc, rec, m, store, prometheus.DefaultGatherer, c.ServerPort)

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server failed")
			cancel()
		}
	}()

	waitForShutdown(ctx, srv)
}

// syncModels pulls the model bundle from the remote store when one is
// configured. Sync failure is not fatal: whatever bundle is already on
// disk keeps serving.
func syncModels(ctx context.Context, c cfg.Settings) {
	if c.ModelBaseURL == "" {
		return
	}
	syncer := modelsync.New(c.ModelBaseURL, c.SyncTimeout)
	if _, err := syncer.Sync(ctx, c.ModelDir); err != nil {
		log.Warn().Err(err).Str("url", c.ModelBaseURL).Msg("model sync failed, using local bundle")
	}
}

// initializeStorage opens the prediction log if DATA_PATH is configured
func initializeStorage(c cfg.Settings) *storage.Store {
	if c.DataPath == "" {
		return nil
	}
	store, err := storage.New(c.DataPath)
	if err != nil {
		log.Warn().Err(err).Msg("storage initialization failed, continuing without persistence")
		return nil
	}
	return store
}

// waitForShutdown blocks until a shutdown signal arrives, then drains
// the HTTP server.
func waitForShutdown(ctx context.Context, srv *server.Server) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Info().Msg("shutdown signal received")
	case <-ctx.Done():
		log.Info().Msg("context canceled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
	log.Info().Msg("server stopped")
}
