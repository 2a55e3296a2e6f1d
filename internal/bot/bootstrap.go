package bot

import (
	"context"

	"github.com/timesapp/times-bot/internal/platform"
)

// ensureAdminChannels makes sure every guild has the configured admin channel.
// The channel is hidden from the default role and opened to roles that carry
// guild-management capability or the trust marker. Failures are logged per
// guild and never stop startup.
func (b *Bot) ensureAdminChannels(ctx context.Context) {
	if b.cfg.AdminChannel == "" {
		return
	}

	guilds, err := b.client.Guilds(ctx)
	if err != nil {
		b.logger.Error("could not enumerate guilds", "error", err)
		return
	}

	for _, guild := range guilds {
		if err := b.ensureAdminChannel(ctx, guild); err != nil {
			b.logger.Error("admin channel bootstrap failed",
				"guild_id", guild.ID, "error", err)
		}
	}
}

func (b *Bot) ensureAdminChannel(ctx context.Context, guild *platform.Guild) error {
	channels, err := b.client.Channels(ctx, guild.ID)
	if err != nil {
		return err
	}
	for _, ch := range channels {
		if ch.Type == platform.ChannelText && ch.Name == b.cfg.AdminChannel {
			return nil
		}
	}

	overwrites := []platform.Overwrite{
		{TargetID: guild.EveryoneRoleID, Deny: platform.PermViewChannel},
	}
	roles, err := b.guildRoles(ctx, guild.ID)
	if err != nil {
		return err
	}
	adminRoles := make([]*platform.Role, 0, len(roles))
	for _, role := range roles {
		if role.Permissions.Has(platform.PermAdministrator) || role.Permissions.Has(platform.PermManageGuild) {
			adminRoles = append(adminRoles, role)
		}
	}
	for _, role := range adminRoles {
		overwrites = append(overwrites, platform.Overwrite{
			TargetID: role.ID,
			Allow:    platform.PermViewChannel | platform.PermSendMessages | platform.PermReadMessageHistory,
		})
	}

	ch, err := b.client.CreateTextChannel(ctx, guild.ID, platform.CreateChannelParams{
		Name:       b.cfg.AdminChannel,
		Overwrites: overwrites,
		Reason:     "admin command channel bootstrap",
	})
	if err != nil {
		return err
	}

	b.logger.Info("admin channel created", "guild_id", guild.ID, "channel_id", ch.ID)
	b.reply(ctx, ch.ID, "This channel controls the times bot.\n\n"+b.helpText())
	return nil
}
