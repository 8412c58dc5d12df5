// Package di provides dependency injection configuration for the alignment engine.
package di

import (
	"github.com/samber/do/v2"

	"github.com/munajjam/munajjam/internal/config"
	"github.com/munajjam/munajjam/internal/di/providers"
)

// NewContainer creates and configures the DI container with all providers.
// Services are built lazily, so each command only opens what it invokes.
func NewContainer(cfg *config.Config) *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.ProvideValue(injector, cfg)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideRecitation)

	// Storage layer
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideTranscriptionCache)

	// Reference and search
	do.Provide(injector, providers.ProvideReference)
	do.Provide(injector, providers.ProvideSearchIndex)

	// Alignment
	do.Provide(injector, providers.ProvideAligner)
	do.Provide(injector, providers.ProvideTranscriber)
	do.Provide(injector, providers.ProvideController)

	// Workers
	do.Provide(injector, providers.ProvideEventManager)
	do.Provide(injector, providers.ProvideEventProcessor)
	do.Provide(injector, providers.ProvideFileWatcher)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// StartServer opens the stores and search index and starts the HTTP server.
func StartServer(injector do.Injector) error {
	_, err := do.Invoke[*providers.HTTPServerHandle](injector)
	return err
}

// StartWatcher starts aligning surahs as their segment files land in the inbox.
func StartWatcher(injector do.Injector) error {
	_, err := do.Invoke[*providers.FileWatcherHandle](injector)
	return err
}
