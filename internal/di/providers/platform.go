package providers

import (
	"fmt"

	"github.com/samber/do/v2"

	"github.com/timesapp/times-bot/internal/config"
	"github.com/timesapp/times-bot/internal/logger"
	"github.com/timesapp/times-bot/internal/platform"
	"github.com/timesapp/times-bot/internal/platform/memory"
)

// PlatformClientHandle wraps the platform client with shutdown capability.
type PlatformClientHandle struct {
	platform.Client
}

// Shutdown implements do.Shutdownable.
func (h *PlatformClientHandle) Shutdown() error {
	return h.Close()
}

// ProvidePlatformClient provides the chat platform client selected by config.
func ProvidePlatformClient(i do.Injector) (*PlatformClientHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	switch cfg.Platform.Driver {
	case "memory":
		log.Info("Platform client initialized", "driver", "memory")
		return &PlatformClientHandle{Client: memory.New()}, nil
	default:
		return nil, fmt.Errorf("unknown platform driver: %s", cfg.Platform.Driver)
	}
}
