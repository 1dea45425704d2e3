// Package server runs the HTTP API with its background maintenance loop.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/api"
	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/bootstrap"
	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/config"
	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/memory"
)

// Run wires the stack, restores the index and serves until ctx is cancelled
// or the process receives SIGINT/SIGTERM. The index snapshot is saved on the
// way out.
func Run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer app.Close()

	if _, err := app.Service.LoadIndex(ctx); err != nil {
		logger.Warn("index unavailable at startup, retrieval will scan linearly", "error", err)
	}

	router := api.NewRouter(app.Service, app.EmbeddingCheck, app.EmbeddingModel, logger)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("memory server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	if cfg.DecayInterval > 0 {
		go RunDecayLoop(ctx, app.Service, cfg.DecayInterval, logger)
	}

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	if cfg.IndexSnapshotPath != "" {
		if _, err := app.Service.SaveIndex(shutdownCtx); err != nil {
			logger.Warn("index snapshot not saved", "error", err)
		}
	}

	logger.Info("server stopped")
	return nil
}

// RunDecayLoop runs a decay cycle every interval until ctx is done.
func RunDecayLoop(ctx context.Context, svc *memory.Service, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report, err := svc.RunDecayCycle(ctx)
			if err != nil {
				logger.Error("scheduled decay failed", "error", err)
				continue
			}
			if report.NoOp {
				logger.Debug("scheduled decay skipped, store is empty")
				continue
			}
			logger.Info("scheduled decay complete",
				"total", report.Stats.Total,
				"updated", report.Stats.Updated,
				"consolidated", report.Stats.Consolidated,
				"forgotten", report.Stats.Forgotten,
				"errors", report.Stats.Errors,
				"duration_ms", report.DurationMs,
			)
		}
	}
}
