package di

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/portfolio-intake/internal/config"
	"github.com/aristath/portfolio-intake/internal/events"
	"github.com/aristath/portfolio-intake/internal/modules/catalog"
	"github.com/aristath/portfolio-intake/internal/modules/form"
	"github.com/aristath/portfolio-intake/internal/scheduler"
)

// InitializeServices creates the event bus, the form store and the CSV loader.
// backend may be nil, in which case submissions are only logged.
func InitializeServices(cfg *config.Config, backend form.Backend, log zerolog.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	container := &Container{
		Config:    cfg,
		StartedAt: time.Now(),
	}

	container.EventBus = events.NewBus(log)
	container.EventManager = events.NewManager(container.EventBus, log)

	if backend == nil {
		backend = form.NewLogBackend(log)
	}
	container.Backend = backend

	var initial *catalog.Catalog
	if cfg.UseFallbackTickers {
		initial = catalog.FallbackCatalog()
	}
	container.Store = form.NewStore(form.Options{
		Rules: form.Rules{
			MinPortfolioSize:        cfg.MinPortfolioSize,
			EnforceMinPortfolioSize: cfg.EnforceMinPortfolioSize,
			UniqueTickers:           cfg.UniqueTickers,
		},
		ConfirmTTL: cfg.DeleteConfirmTTL,
		Catalog:    initial,
	}, backend, container.EventManager, log)

	// Parsed uploads land in the store; the loader lock is always taken before the store lock
	container.Loader = catalog.NewLoader(cfg.MaxUploadBytes, container.Store.InstallUpload, container.EventManager, log)

	container.Scheduler = scheduler.New(log)

	log.Info().
		Int("min_portfolio_size", cfg.MinPortfolioSize).
		Bool("enforce_min_portfolio_size", cfg.EnforceMinPortfolioSize).
		Bool("unique_tickers", cfg.UniqueTickers).
		Bool("fallback_tickers", cfg.UseFallbackTickers).
		Msg("Services initialized")

	return container, nil
}
