/**
 * Package di provides dependency injection type definitions.
 *
 * This package defines the Container type which holds all application dependencies.
 * The Container is the single source of truth for all service instances and is
 * passed to the server for access to services.
 */
package di

import (
	"time"

	"github.com/aristath/portfolio-intake/internal/config"
	"github.com/aristath/portfolio-intake/internal/events"
	"github.com/aristath/portfolio-intake/internal/modules/catalog"
	"github.com/aristath/portfolio-intake/internal/modules/form"
	"github.com/aristath/portfolio-intake/internal/scheduler"
)

// Container holds all application dependencies
type Container struct {
	Config *config.Config

	// Events
	EventBus     *events.Bus
	EventManager *events.Manager

	// Form state
	Backend form.Backend
	Store   *form.Store

	// CSV ingestion
	Loader *catalog.Loader

	// Background jobs
	Scheduler *scheduler.Scheduler

	StartedAt time.Time
}

// JobInstances holds registered jobs for manual triggering
type JobInstances struct {
	SweepConfirmations scheduler.Job
}
