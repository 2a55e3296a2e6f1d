package bot

import (
	"context"

	"github.com/timesapp/times-bot/internal/platform"
)

// handleMemberJoin provisions the member's personal channel. Bot accounts
// never get one.
func (b *Bot) handleMemberJoin(ctx context.Context, e *platform.MemberJoinEvent) {
	if e.Member == nil || e.Member.Bot {
		return
	}

	ch, err := b.provisioner.CreatePersonalChannel(ctx, e.GuildID, e.Member)
	if err != nil {
		b.logger.Error("provisioning on join failed",
			"guild_id", e.GuildID, "user_id", e.Member.UserID, "error", err)
		return
	}
	b.logger.Info("personal channel ready",
		"guild_id", e.GuildID, "user_id", e.Member.UserID, "channel_id", ch.ID)
}

// handleMemberLeave retires the member's personal channel. Role data is gone
// at this point, so the provisioner scans candidate categories instead of
// resolving one.
func (b *Bot) handleMemberLeave(ctx context.Context, e *platform.MemberLeaveEvent) {
	if e.Member == nil || e.Member.Bot {
		return
	}

	deleted, err := b.provisioner.DeleteAnyPersonalChannel(ctx, e.GuildID, e.Member)
	if err != nil {
		b.logger.Error("channel retirement on leave failed",
			"guild_id", e.GuildID, "user_id", e.Member.UserID, "error", err)
		return
	}
	if deleted {
		b.logger.Info("personal channel retired",
			"guild_id", e.GuildID, "user_id", e.Member.UserID)
	}
}
