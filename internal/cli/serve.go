package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/aristath/portfolio-intake/internal/config"
	"github.com/aristath/portfolio-intake/internal/di"
	"github.com/aristath/portfolio-intake/internal/server"
	"github.com/aristath/portfolio-intake/pkg/logger"
)

// runServe wires the service, serves HTTP until SIGINT/SIGTERM and shuts down gracefully
func runServe(ctx context.Context, cfg *config.Config) error {
	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Msg("Starting portfolio intake service")

	container, jobs, err := di.Wire(cfg, nil, log)
	if err != nil {
		return fmt.Errorf("failed to wire dependencies: %w", err)
	}

	srv := server.New(server.Config{
		Log:       log,
		Config:    cfg,
		Port:      cfg.Port,
		DevMode:   cfg.DevMode,
		Container: container,
	})

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	container.Scheduler.Start()

	// Drop anything left over from a previous run right away
	if err := container.Scheduler.RunNow(jobs.SweepConfirmations); err != nil {
		log.Warn().Err(err).Msg("Initial confirmation sweep failed")
	}

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down server...")
	case runErr = <-serverErr:
		log.Error().Err(runErr).Msg("Server failed")
	}

	container.Scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
	return runErr
}
