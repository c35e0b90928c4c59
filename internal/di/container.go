// Package di provides dependency injection configuration for the library.
package di

import (
	"github.com/samber/do/v2"

	"github.com/openbookapp/openbook-library/internal/config"
	"github.com/openbookapp/openbook-library/internal/di/providers"
	"github.com/openbookapp/openbook-library/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
// cfg is registered as a value; every other service is built lazily.
func NewContainer(cfg *config.Config) *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.ProvideValue(injector, cfg)
	do.Provide(injector, providers.ProvideLogger)

	// Storage layer
	do.Provide(injector, providers.ProvideWatchHub)
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideBootstrap)

	// Business services
	do.Provide(injector, providers.ProvideLibraryService)
	do.Provide(injector, providers.ProvideStatsService)
	do.Provide(injector, providers.ProvideBackupService)
	do.Provide(injector, providers.ProvideExporter)
	do.Provide(injector, providers.ProvideImporter)

	// Workers
	do.Provide(injector, providers.ProvideBackupScheduler)

	return injector
}

// Bootstrap opens the store and seeds the system lists.
// Workers are not started; invoke them explicitly where they are needed.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*providers.StoreHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.Bootstrap](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*service.LibraryService](injector); err != nil {
		return err
	}
	return nil
}
