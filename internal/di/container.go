// Package di provides dependency injection configuration for the times bot.
package di

import (
	"github.com/samber/do/v2"

	"github.com/timesapp/times-bot/internal/config"
	"github.com/timesapp/times-bot/internal/di/providers"
	"github.com/timesapp/times-bot/internal/logger"
	"github.com/timesapp/times-bot/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Storage layer
	do.Provide(injector, providers.ProvideStore)

	// Platform layer
	do.Provide(injector, providers.ProvidePlatformClient)

	// Provisioning engine
	do.Provide(injector, providers.ProvideProvisioner)
	do.Provide(injector, providers.ProvideBot)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*providers.PlatformClientHandle](injector)
	_ = do.MustInvoke[*service.Provisioner](injector)
	_ = do.MustInvoke[*providers.BotHandle](injector)
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
