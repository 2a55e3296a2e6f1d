// Package service implements the channel-provisioning engine: category
// resolution from role state and the idempotent find-or-create/delete
// personal-channel lifecycle.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/timesapp/times-bot/internal/config"
	"github.com/timesapp/times-bot/internal/errors"
	"github.com/timesapp/times-bot/internal/platform"
	"github.com/timesapp/times-bot/internal/store"
	"github.com/timesapp/times-bot/internal/util"
)

// cohortScanFrom/To bound the synthetic "NN-<default>" categories probed
// during leave cleanup, covering cohort categories that were auto-detected
// rather than explicitly mapped.
const (
	cohortScanFrom = 20
	cohortScanTo   = 35
)

// Provisioner owns the personal-channel lifecycle. All operations are
// idempotent: creating twice returns the same channel, deleting twice reports
// false the second time.
type Provisioner struct {
	client platform.Client
	store  store.Store
	cfg    config.BotConfig
	logger *slog.Logger

	// group serializes create calls per (guild, member) so concurrent
	// triggers (a reaction and a command at once) collapse into one creation.
	group singleflight.Group
}

// NewProvisioner creates a provisioner.
func NewProvisioner(client platform.Client, st store.Store, cfg config.BotConfig, logger *slog.Logger) *Provisioner {
	return &Provisioner{
		client: client,
		store:  st,
		cfg:    cfg,
		logger: logger,
	}
}

// ChannelName returns the personal channel name for a member, truncated to
// the platform limit.
func (p *Provisioner) ChannelName(member *platform.Member) string {
	name := p.cfg.ChannelPrefix + util.SanitizeChannelName(member.Username)
	if len(name) > platform.MaxChannelNameLength {
		name = name[:platform.MaxChannelNameLength]
	}
	return name
}

// ResolveCategory resolves the target category for a member from live role
// state and the configured mappings.
func (p *Provisioner) ResolveCategory(ctx context.Context, guildID string, member *platform.Member) (string, error) {
	roles, err := p.client.Roles(ctx, guildID)
	if err != nil {
		return "", errors.Wrap(err, errors.CodePlatform, "enumerate roles")
	}

	byID := make(map[string]*platform.Role, len(roles))
	for _, r := range roles {
		byID[r.ID] = r
	}

	return ResolveCategory(member, byID, p.store.Mappings(guildID), p.cfg.DefaultCategory, time.Now()), nil
}

// EnsureCategory returns the category with the exact given name, creating it
// when absent. No case-folding: "Times" and "times" are different categories.
func (p *Provisioner) EnsureCategory(ctx context.Context, guildID, name string) (*platform.Channel, error) {
	channels, err := p.client.Channels(ctx, guildID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodePlatform, "enumerate channels")
	}

	for _, ch := range channels {
		if ch.Type == platform.ChannelCategory && ch.Name == name {
			return ch, nil
		}
	}

	category, err := p.client.CreateCategory(ctx, guildID, name, "category auto-created: "+name)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodePlatform, "create category %q", name)
	}

	p.logger.Info("category created", "guild_id", guildID, "category", name)
	return category, nil
}

// FindPersonalChannel returns the member's personal channel in the given
// category, or nil when absent. Identity is derived, not stored: a text
// channel matches when its name equals the sanitized expected name and its
// parent category name equals categoryName.
func (p *Provisioner) FindPersonalChannel(ctx context.Context, guildID string, member *platform.Member, categoryName string) (*platform.Channel, error) {
	channels, err := p.client.Channels(ctx, guildID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodePlatform, "enumerate channels")
	}

	byID := make(map[string]*platform.Channel, len(channels))
	for _, ch := range channels {
		byID[ch.ID] = ch
	}

	expected := p.ChannelName(member)
	for _, ch := range channels {
		if ch.Type != platform.ChannelText || ch.Name != expected {
			continue
		}
		parent, ok := byID[ch.ParentID]
		if ok && parent.Name == categoryName {
			return ch, nil
		}
	}
	return nil, nil
}

// CreatePersonalChannel resolves the member's category and creates their
// personal channel under it, returning the existing channel unchanged when
// one is already there. Safe to call repeatedly; concurrent calls for the
// same member collapse into one creation.
func (p *Provisioner) CreatePersonalChannel(ctx context.Context, guildID string, member *platform.Member) (*platform.Channel, error) {
	key := guildID + ":" + member.UserID
	ch, err, _ := p.group.Do(key, func() (any, error) {
		return p.createPersonalChannel(ctx, guildID, member)
	})
	if err != nil {
		return nil, err
	}
	return ch.(*platform.Channel), nil
}

func (p *Provisioner) createPersonalChannel(ctx context.Context, guildID string, member *platform.Member) (*platform.Channel, error) {
	categoryName, err := p.ResolveCategory(ctx, guildID, member)
	if err != nil {
		return nil, err
	}

	category, err := p.EnsureCategory(ctx, guildID, categoryName)
	if err != nil {
		return nil, err
	}

	// Idempotency guard: re-evaluated on every call.
	existing, err := p.FindPersonalChannel(ctx, guildID, member, categoryName)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	var overwrites []platform.Overwrite
	if p.cfg.PrivateChannels {
		guild, err := p.client.Guild(ctx, guildID)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodePlatform, "fetch guild")
		}
		overwrites = append(overwrites,
			platform.Overwrite{
				TargetID: guild.EveryoneRoleID,
				Deny:     platform.PermViewChannel,
			},
			platform.Overwrite{
				TargetID: member.UserID,
				Allow:    platform.PermViewChannel | platform.PermSendMessages | platform.PermReadMessageHistory,
			},
		)
		for _, roleID := range p.cfg.ViewerRoleIDs {
			overwrites = append(overwrites, platform.Overwrite{
				TargetID: roleID,
				Allow:    platform.PermViewChannel | platform.PermReadMessageHistory,
			})
		}
	}

	channel, err := p.client.CreateTextChannel(ctx, guildID, platform.CreateChannelParams{
		Name:       p.ChannelName(member),
		ParentID:   category.ID,
		Overwrites: overwrites,
		Reason:     fmt.Sprintf("personal channel (%s): %s", categoryName, member.Username),
	})
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodePlatform, "create channel for %s", member.Username)
	}

	welcome := fmt.Sprintf(
		"Welcome <@%s>! This is your **times** channel (category: **%s**).\nPost updates, notes, and progress freely.",
		member.UserID, categoryName,
	)
	if _, err := p.client.SendMessage(ctx, channel.ID, welcome); err != nil {
		// The channel exists; a lost welcome message is not worth failing over.
		p.logger.Warn("welcome message failed",
			"guild_id", guildID, "channel", channel.Name, "error", err)
	}

	p.logger.Info("personal channel created",
		"guild_id", guildID, "member", member.Username,
		"channel", channel.Name, "category", categoryName)
	return channel, nil
}

// DeletePersonalChannel deletes the member's channel in the given category.
// The bool reports whether a deletion occurred.
func (p *Provisioner) DeletePersonalChannel(ctx context.Context, guildID string, member *platform.Member, categoryName string) (bool, error) {
	ch, err := p.FindPersonalChannel(ctx, guildID, member, categoryName)
	if err != nil {
		return false, err
	}
	if ch == nil {
		return false, nil
	}

	reason := "personal channel removed: " + member.Username
	if err := p.client.DeleteChannel(ctx, ch.ID, reason); err != nil {
		return false, errors.Wrapf(err, errors.CodePlatform, "delete channel %s", ch.Name)
	}

	p.logger.Info("personal channel deleted",
		"guild_id", guildID, "member", member.Username, "channel", ch.Name)
	return true, nil
}

// DeleteAnyPersonalChannel searches every category the guild could have
// placed the member's channel under and deletes the first match. Used on
// member departure, when the role-derived category can no longer be
// recomputed.
func (p *Provisioner) DeleteAnyPersonalChannel(ctx context.Context, guildID string, member *platform.Member) (bool, error) {
	for _, category := range p.candidateCategories(guildID) {
		deleted, err := p.DeletePersonalChannel(ctx, guildID, member, category)
		if err != nil {
			return false, err
		}
		if deleted {
			return true, nil
		}
	}
	return false, nil
}

// candidateCategories returns every category name the guild's configuration
// has ever referenced, plus the default and the synthetic cohort range.
// Order is deterministic: default first, then mapped categories sorted, then
// cohort years ascending.
func (p *Provisioner) candidateCategories(guildID string) []string {
	seen := map[string]bool{p.cfg.DefaultCategory: true}
	out := []string{p.cfg.DefaultCategory}

	mapped := make([]string, 0)
	for _, category := range p.store.Mappings(guildID) {
		if !seen[category] {
			seen[category] = true
			mapped = append(mapped, category)
		}
	}
	sort.Strings(mapped)
	out = append(out, mapped...)

	for year := cohortScanFrom; year <= cohortScanTo; year++ {
		category := fmt.Sprintf("%d-%s", year, p.cfg.DefaultCategory)
		if !seen[category] {
			seen[category] = true
			out = append(out, category)
		}
	}
	return out
}
