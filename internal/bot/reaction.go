package bot

import (
	"context"
	"fmt"

	"github.com/timesapp/times-bot/internal/platform"
)

// handleReactionAdd provisions a channel when a user reacts with the
// configured trigger emoji on the configured message. Partial payloads are
// resolved through FetchMessage before matching.
func (b *Bot) handleReactionAdd(ctx context.Context, e *platform.ReactionAddEvent) {
	if e.UserBot {
		return
	}

	guildID := e.GuildID
	if e.Partial || guildID == "" {
		msg, err := b.client.FetchMessage(ctx, e.ChannelID, e.MessageID)
		if err != nil {
			b.logger.Warn("could not resolve partial reaction payload",
				"channel_id", e.ChannelID, "message_id", e.MessageID, "error", err)
			return
		}
		guildID = msg.GuildID
	}
	if guildID == "" {
		return
	}

	trigger, ok := b.store.GetTrigger(guildID)
	if !ok {
		return
	}
	if trigger.Emoji != e.Emoji {
		return
	}
	if trigger.MessageID != "" && trigger.MessageID != e.MessageID {
		return
	}
	if trigger.ChannelID != "" && trigger.ChannelID != e.ChannelID {
		return
	}

	member, err := b.client.Member(ctx, guildID, e.UserID)
	if err != nil {
		b.logger.Error("could not resolve reacting member",
			"guild_id", guildID, "user_id", e.UserID, "error", err)
		return
	}
	if member.Bot {
		return
	}

	ch, err := b.provisioner.CreatePersonalChannel(ctx, guildID, member)
	if err != nil {
		b.logger.Error("provisioning via reaction failed",
			"guild_id", guildID, "user_id", e.UserID, "error", err)
		return
	}

	b.reply(ctx, e.ChannelID, fmt.Sprintf("<@%s> your times channel is ready: #%s", e.UserID, ch.Name))

	// Reset the reaction so the trigger stays usable. Losing this is harmless.
	if err := b.client.RemoveReaction(ctx, e.ChannelID, e.MessageID, e.UserID, e.Emoji); err != nil {
		b.logger.Debug("could not remove trigger reaction",
			"guild_id", guildID, "user_id", e.UserID, "error", err)
	}
}
