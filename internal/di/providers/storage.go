package providers

import (
	"context"
	"fmt"

	"github.com/samber/do/v2"

	"github.com/timesapp/times-bot/internal/config"
	"github.com/timesapp/times-bot/internal/logger"
	"github.com/timesapp/times-bot/internal/store"
)

// StoreHandle wraps the config store with shutdown capability. When the file
// driver runs with config watching enabled it also owns the watcher.
type StoreHandle struct {
	store.Store
	watcher *store.Watcher
	cancel  context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	if h.cancel != nil {
		h.cancel()
	}
	if h.watcher != nil {
		if err := h.watcher.Close(); err != nil {
			return err
		}
	}
	return h.Close()
}

// ProvideStore provides the guild configuration store.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	switch cfg.Storage.Driver {
	case "file":
		fileStore, err := store.NewFile(cfg.Storage.Path, log.Logger)
		if err != nil {
			return nil, err
		}
		log.Info("Config store initialized", "driver", "file", "path", cfg.Storage.Path)

		handle := &StoreHandle{Store: fileStore}
		if cfg.Storage.WatchConfig {
			watcher, err := store.NewWatcher(fileStore, log.Logger)
			if err != nil {
				_ = fileStore.Close()
				return nil, err
			}
			ctx, cancel := context.WithCancel(context.Background())
			go watcher.Start(ctx)
			handle.watcher = watcher
			handle.cancel = cancel
			log.Info("Config file watching enabled", "path", cfg.Storage.Path)
		}
		return handle, nil

	case "badger":
		badgerStore, err := store.NewBadger(cfg.Storage.Path, log.Logger)
		if err != nil {
			return nil, err
		}
		log.Info("Config store initialized", "driver", "badger", "path", cfg.Storage.Path)
		return &StoreHandle{Store: badgerStore}, nil

	default:
		return nil, fmt.Errorf("unknown storage driver: %s", cfg.Storage.Driver)
	}
}
