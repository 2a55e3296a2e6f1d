package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/do/v2"

	"github.com/timesapp/times-bot/internal/bot"
	"github.com/timesapp/times-bot/internal/config"
	"github.com/timesapp/times-bot/internal/logger"
	"github.com/timesapp/times-bot/internal/service"
)

// ProvideProvisioner provides the channel provisioning engine.
func ProvideProvisioner(i do.Injector) (*service.Provisioner, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	clientHandle := do.MustInvoke[*PlatformClientHandle](i)

	return service.NewProvisioner(clientHandle.Client, storeHandle.Store, cfg.Bot, log.Logger), nil
}

// BotHandle wraps the event loop with lifecycle management.
type BotHandle struct {
	*bot.Bot
	cancel context.CancelFunc
	done   chan struct{}
}

// Shutdown implements do.Shutdownable.
func (h *BotHandle) Shutdown() error {
	h.cancel()
	select {
	case <-h.done:
		return nil
	case <-time.After(shutdownTimeout):
		return fmt.Errorf("event loop did not stop within %s", shutdownTimeout)
	}
}

// ProvideBot provides the running event loop.
func ProvideBot(i do.Injector) (*BotHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	clientHandle := do.MustInvoke[*PlatformClientHandle](i)
	provisioner := do.MustInvoke[*service.Provisioner](i)

	b := bot.New(clientHandle.Client, storeHandle.Store, provisioner, cfg.Bot, log.Logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		b.Run(ctx)
	}()

	log.Info("Event loop started")

	return &BotHandle{Bot: b, cancel: cancel, done: done}, nil
}
