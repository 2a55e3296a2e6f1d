package bot

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/timesapp/times-bot/internal/platform"
	"github.com/timesapp/times-bot/internal/store"
)

// defaultTriggerEmoji is used when set-trigger is issued without an emoji.
const defaultTriggerEmoji = "✅"

var (
	roleMentionRe = regexp.MustCompile(`<@&([A-Za-z0-9_-]+)>`)
	userMentionRe = regexp.MustCompile(`<@!?([A-Za-z0-9_-]+)>`)
)

// handleMessageCreate dispatches admin commands. Non-command traffic and
// messages outside the configured admin channel are ignored without a reply.
func (b *Bot) handleMessageCreate(ctx context.Context, e *platform.MessageCreateEvent) {
	msg := e.Message
	if msg == nil || msg.AuthorBot || msg.GuildID == "" {
		return
	}
	if !strings.HasPrefix(msg.Content, b.cfg.CommandPrefix) {
		return
	}

	if b.cfg.AdminChannel != "" && !b.isAdminChannel(ctx, msg.GuildID, msg.ChannelID) {
		return
	}

	if !b.limiter.Allow(msg.AuthorID) {
		b.logger.Debug("command rate limited",
			"guild_id", msg.GuildID, "user_id", msg.AuthorID)
		return
	}

	member, err := b.client.Member(ctx, msg.GuildID, msg.AuthorID)
	if err != nil {
		b.logger.Error("could not resolve command sender",
			"guild_id", msg.GuildID, "user_id", msg.AuthorID, "error", err)
		return
	}

	roles, err := b.guildRoles(ctx, msg.GuildID)
	if err != nil {
		b.logger.Error("could not enumerate roles for authorization",
			"guild_id", msg.GuildID, "error", err)
		return
	}
	if !b.authorized(member, roles) {
		b.reply(ctx, msg.ChannelID, "You are not allowed to run admin commands.")
		return
	}

	fields := strings.Fields(strings.TrimPrefix(msg.Content, b.cfg.CommandPrefix))
	if len(fields) == 0 {
		return
	}
	verb := strings.ToLower(fields[0])
	args := fields[1:]

	b.logger.Info("admin command",
		"guild_id", msg.GuildID, "user_id", msg.AuthorID, "command", verb)

	var reply string
	switch verb {
	case "add-role":
		reply = b.cmdAddRole(ctx, msg.GuildID, args)
	case "remove-role":
		reply = b.cmdRemoveRole(ctx, msg.GuildID, args)
	case "list-roles":
		reply = b.cmdListRoles(ctx, msg.GuildID, roles)
	case "set-trigger":
		reply = b.cmdSetTrigger(msg.GuildID, msg.ChannelID, args)
	case "clear-trigger":
		reply = b.cmdClearTrigger(msg.GuildID)
	case "make-times":
		reply = b.cmdMakeTimes(ctx, msg.GuildID, msg.Content, member)
	case "recreate-times":
		reply = b.cmdRecreateTimes(ctx, msg.GuildID, msg.Content)
	case "status":
		reply = b.cmdStatus(msg.GuildID)
	default:
		reply = b.helpText()
	}

	if reply != "" {
		b.reply(ctx, msg.ChannelID, reply)
	}
}

// isAdminChannel reports whether channelID names the configured admin channel.
// Lookup failures fail closed.
func (b *Bot) isAdminChannel(ctx context.Context, guildID, channelID string) bool {
	channels, err := b.client.Channels(ctx, guildID)
	if err != nil {
		b.logger.Warn("could not enumerate channels", "guild_id", guildID, "error", err)
		return false
	}
	for _, ch := range channels {
		if ch.ID == channelID {
			return ch.Type == platform.ChannelText && ch.Name == b.cfg.AdminChannel
		}
	}
	return false
}

func (b *Bot) guildRoles(ctx context.Context, guildID string) (map[string]*platform.Role, error) {
	roles, err := b.client.Roles(ctx, guildID)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*platform.Role, len(roles))
	for _, r := range roles {
		byID[r.ID] = r
	}
	return byID, nil
}

// authorized reports whether the member may run admin commands: a role with
// guild-management capability, or a role whose name contains the trust marker.
func (b *Bot) authorized(member *platform.Member, roles map[string]*platform.Role) bool {
	marker := strings.ToLower(b.cfg.TrustMarker)
	for _, roleID := range member.RoleIDs {
		role, ok := roles[roleID]
		if !ok {
			continue
		}
		if role.Permissions.Has(platform.PermAdministrator) || role.Permissions.Has(platform.PermManageGuild) {
			return true
		}
		if marker != "" && strings.Contains(strings.ToLower(role.Name), marker) {
			return true
		}
	}
	return false
}

func (b *Bot) cmdAddRole(ctx context.Context, guildID string, args []string) string {
	if len(args) < 2 {
		return "Usage: " + b.cfg.CommandPrefix + "add-role @role <category name>"
	}
	m := roleMentionRe.FindStringSubmatch(args[0])
	if m == nil {
		return "The first argument must be a role mention."
	}
	roleID := m[1]
	category := strings.Join(args[1:], " ")

	role, err := b.client.Role(ctx, guildID, roleID)
	if err != nil {
		return "That role does not exist in this guild."
	}
	if err := b.store.SetMapping(guildID, roleID, category); err != nil {
		b.logger.Error("mapping persist failed", "guild_id", guildID, "role_id", roleID, "error", err)
		return "Could not save the mapping, try again."
	}
	return fmt.Sprintf("Mapped role **%s** to category **%s**.", role.Name, category)
}

func (b *Bot) cmdRemoveRole(ctx context.Context, guildID string, args []string) string {
	if len(args) < 1 {
		return "Usage: " + b.cfg.CommandPrefix + "remove-role @role"
	}
	m := roleMentionRe.FindStringSubmatch(args[0])
	if m == nil {
		return "The first argument must be a role mention."
	}
	roleID := m[1]

	removed, err := b.store.RemoveMapping(guildID, roleID)
	if err != nil {
		b.logger.Error("mapping removal persist failed", "guild_id", guildID, "role_id", roleID, "error", err)
		return "Could not save the change, try again."
	}
	if !removed {
		return "That role is not mapped."
	}
	name := roleID
	if role, err := b.client.Role(ctx, guildID, roleID); err == nil {
		name = role.Name
	}
	return fmt.Sprintf("Removed the mapping for role **%s**.", name)
}

func (b *Bot) cmdListRoles(ctx context.Context, guildID string, roles map[string]*platform.Role) string {
	mappings := b.store.Mappings(guildID)
	if len(mappings) == 0 {
		return "No role mappings configured. Default category: **" + b.cfg.DefaultCategory + "**."
	}

	type entry struct{ name, category string }
	entries := make([]entry, 0, len(mappings))
	for roleID, category := range mappings {
		name := roleID
		if role, ok := roles[roleID]; ok {
			name = role.Name
		}
		entries = append(entries, entry{name, category})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].name < entries[j].name })

	var sb strings.Builder
	sb.WriteString("Role mappings:\n")
	for _, e := range entries {
		fmt.Fprintf(&sb, "- **%s** → **%s**\n", e.name, e.category)
	}
	fmt.Fprintf(&sb, "Default category: **%s**.", b.cfg.DefaultCategory)
	return sb.String()
}

func (b *Bot) cmdSetTrigger(guildID, channelID string, args []string) string {
	if len(args) < 1 {
		return "Usage: " + b.cfg.CommandPrefix + "set-trigger <message-id> [emoji]"
	}
	emoji := defaultTriggerEmoji
	if len(args) >= 2 {
		emoji = args[1]
	}
	def := store.TriggerDefinition{
		MessageID: args[0],
		ChannelID: channelID,
		Emoji:     emoji,
	}
	if err := b.store.SetTrigger(guildID, def); err != nil {
		b.logger.Error("trigger persist failed", "guild_id", guildID, "error", err)
		return "Could not save the trigger, try again."
	}
	return fmt.Sprintf("Trigger set: react with %s on message `%s` in this channel.", emoji, def.MessageID)
}

func (b *Bot) cmdClearTrigger(guildID string) string {
	if err := b.store.ClearTrigger(guildID); err != nil {
		b.logger.Error("trigger clear persist failed", "guild_id", guildID, "error", err)
		return "Could not save the change, try again."
	}
	return "Reaction trigger cleared."
}

// cmdMakeTimes provisions channels for each mentioned member, or for the
// sender when nothing is mentioned. Members are processed independently.
func (b *Bot) cmdMakeTimes(ctx context.Context, guildID, content string, sender *platform.Member) string {
	userIDs := mentionedUserIDs(content)
	if len(userIDs) == 0 {
		ch, err := b.provisioner.CreatePersonalChannel(ctx, guildID, sender)
		if err != nil {
			b.logger.Error("provisioning via command failed",
				"guild_id", guildID, "user_id", sender.UserID, "error", err)
			return "Could not create your times channel: " + err.Error()
		}
		return fmt.Sprintf("<@%s> your times channel is ready: #%s", sender.UserID, ch.Name)
	}

	var sb strings.Builder
	for _, userID := range userIDs {
		sb.WriteString(b.provisionFor(ctx, guildID, userID, false))
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// cmdRecreateTimes deletes and recreates the channel for each mentioned
// member.
func (b *Bot) cmdRecreateTimes(ctx context.Context, guildID, content string) string {
	userIDs := mentionedUserIDs(content)
	if len(userIDs) == 0 {
		return "Usage: " + b.cfg.CommandPrefix + "recreate-times @member [@member ...]"
	}

	var sb strings.Builder
	for _, userID := range userIDs {
		sb.WriteString(b.provisionFor(ctx, guildID, userID, true))
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// provisionFor produces one result line for a batch command. When recreate is
// set, any existing channel in the member's resolved category is deleted
// first.
func (b *Bot) provisionFor(ctx context.Context, guildID, userID string, recreate bool) string {
	member, err := b.client.Member(ctx, guildID, userID)
	if err != nil {
		b.logger.Warn("could not resolve mentioned member",
			"guild_id", guildID, "user_id", userID, "error", err)
		return fmt.Sprintf("❌ <@%s>: member lookup failed", userID)
	}
	if member.Bot {
		return fmt.Sprintf("❌ <@%s>: bots do not get times channels", userID)
	}

	if recreate {
		category, err := b.provisioner.ResolveCategory(ctx, guildID, member)
		if err != nil {
			return fmt.Sprintf("❌ <@%s>: %v", userID, err)
		}
		if _, err := b.provisioner.DeletePersonalChannel(ctx, guildID, member, category); err != nil {
			return fmt.Sprintf("❌ <@%s>: %v", userID, err)
		}
	}

	ch, err := b.provisioner.CreatePersonalChannel(ctx, guildID, member)
	if err != nil {
		b.logger.Error("provisioning via command failed",
			"guild_id", guildID, "user_id", userID, "error", err)
		return fmt.Sprintf("❌ <@%s>: %v", userID, err)
	}
	return fmt.Sprintf("✅ <@%s> → #%s", userID, ch.Name)
}

func (b *Bot) cmdStatus(guildID string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Default category: **%s**\n", b.cfg.DefaultCategory)
	if trigger, ok := b.store.GetTrigger(guildID); ok {
		fmt.Fprintf(&sb, "Trigger: %s on message `%s`\n", trigger.Emoji, trigger.MessageID)
	} else {
		sb.WriteString("Trigger: not configured\n")
	}
	fmt.Fprintf(&sb, "Role mappings: %d", len(b.store.Mappings(guildID)))
	return sb.String()
}

func (b *Bot) helpText() string {
	p := b.cfg.CommandPrefix
	return "Commands:\n" +
		"- `" + p + "add-role @role <category>` map a role to a category\n" +
		"- `" + p + "remove-role @role` remove a role mapping\n" +
		"- `" + p + "list-roles` show current mappings\n" +
		"- `" + p + "set-trigger <message-id> [emoji]` set the reaction trigger\n" +
		"- `" + p + "clear-trigger` clear the reaction trigger\n" +
		"- `" + p + "make-times [@member ...]` create times channels\n" +
		"- `" + p + "recreate-times @member [@member ...]` recreate times channels\n" +
		"- `" + p + "status` show the current configuration"
}

// mentionedUserIDs extracts user mentions in order of appearance, dropping
// duplicates. Role mentions carry a '&' marker and never match.
func mentionedUserIDs(content string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range userMentionRe.FindAllStringSubmatch(content, -1) {
		id := m[1]
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
