// Package di provides dependency injection for scheduler jobs.
package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/portfolio-intake/internal/scheduler"
)

// RegisterJobs registers all jobs with the scheduler
// Returns JobInstances for manual triggering
func RegisterJobs(container *Container, log zerolog.Logger) (*JobInstances, error) {
	if container == nil {
		return nil, fmt.Errorf("container cannot be nil")
	}
	if container.Scheduler == nil {
		return nil, fmt.Errorf("container has no scheduler")
	}

	instances := &JobInstances{}

	sweep := scheduler.NewSweepConfirmationsJob(container.Store)
	sweep.SetLogger(log.With().Str("job", "sweep_confirmations").Logger())
	if err := container.Scheduler.AddJob(container.Config.SweepSchedule, sweep); err != nil {
		return nil, fmt.Errorf("failed to register sweep_confirmations job: %w", err)
	}
	instances.SweepConfirmations = sweep

	log.Info().Int("jobs", len(container.Scheduler.Jobs())).Msg("Jobs registered")

	return instances, nil
}
