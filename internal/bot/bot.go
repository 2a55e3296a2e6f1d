// Package bot wires the platform event stream to the provisioning engine:
// membership lifecycle, the reaction trigger, and the admin command surface.
package bot

import (
	"context"
	"log/slog"

	"github.com/timesapp/times-bot/internal/config"
	"github.com/timesapp/times-bot/internal/platform"
	"github.com/timesapp/times-bot/internal/ratelimit"
	"github.com/timesapp/times-bot/internal/service"
	"github.com/timesapp/times-bot/internal/store"
)

// Command surface throttling: a small burst, then one command per second per
// user. Platform calls themselves are never rate limited here.
const (
	commandRPS   = 1.0
	commandBurst = 5
)

// Bot consumes platform events and drives provisioning. Events are handled
// sequentially on a single goroutine; a handler failure is logged and never
// stops the loop.
type Bot struct {
	client      platform.Client
	store       store.Store
	provisioner *service.Provisioner
	cfg         config.BotConfig
	logger      *slog.Logger
	limiter     *ratelimit.KeyedRateLimiter
}

// New creates a bot.
func New(client platform.Client, st store.Store, provisioner *service.Provisioner, cfg config.BotConfig, logger *slog.Logger) *Bot {
	return &Bot{
		client:      client,
		store:       st,
		provisioner: provisioner,
		cfg:         cfg,
		logger:      logger,
		limiter:     ratelimit.New(commandRPS, commandBurst),
	}
}

// Run ensures per-guild admin channels, then drains the event stream until
// the context is cancelled or the client closes the stream.
func (b *Bot) Run(ctx context.Context) {
	b.ensureAdminChannels(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-b.client.Events():
			if !ok {
				return
			}
			b.dispatch(ctx, ev)
		}
	}
}

// dispatch routes one event. Panics are contained here so a malformed event
// cannot take the loop down.
func (b *Bot) dispatch(ctx context.Context, ev platform.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				"guild_id", ev.EventGuildID(), "panic", r)
		}
	}()

	switch e := ev.(type) {
	case *platform.MemberJoinEvent:
		b.handleMemberJoin(ctx, e)
	case *platform.MemberLeaveEvent:
		b.handleMemberLeave(ctx, e)
	case *platform.ReactionAddEvent:
		b.handleReactionAdd(ctx, e)
	case *platform.MessageCreateEvent:
		b.handleMessageCreate(ctx, e)
	default:
		b.logger.Debug("ignoring unknown event type", "guild_id", ev.EventGuildID())
	}
}

// reply posts a message into a channel, logging failures instead of
// propagating them.
func (b *Bot) reply(ctx context.Context, channelID, content string) {
	if _, err := b.client.SendMessage(ctx, channelID, content); err != nil {
		b.logger.Warn("reply failed", "channel_id", channelID, "error", err)
	}
}
