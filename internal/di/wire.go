// Package di provides dependency injection wiring and initialization.
package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/portfolio-intake/internal/config"
	"github.com/aristath/portfolio-intake/internal/modules/form"
)

// Wire initializes all dependencies and returns a fully configured container
// This is the main entry point for dependency injection
// Order of operations:
// 1. Initialize services (events, form store, CSV loader, scheduler)
// 2. Register jobs
// backend is optional (nil logs submissions)
func Wire(cfg *config.Config, backend form.Backend, log zerolog.Logger) (*Container, *JobInstances, error) {
	container, err := InitializeServices(cfg, backend, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	jobs, err := RegisterJobs(container, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to register jobs: %w", err)
	}

	log.Info().Msg("Dependency injection wiring completed successfully")

	return container, jobs, nil
}
