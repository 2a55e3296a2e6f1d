package service

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timesapp/times-bot/internal/config"
	"github.com/timesapp/times-bot/internal/platform"
	"github.com/timesapp/times-bot/internal/platform/memory"
	"github.com/timesapp/times-bot/internal/store"
)

func testBotConfig() config.BotConfig {
	return config.BotConfig{
		ChannelPrefix:   "times-",
		DefaultCategory: "times",
		PrivateChannels: true,
		CommandPrefix:   "!",
	}
}

// setupProvisionerTest wires a provisioner against the in-memory platform and
// a file-backed store in a temp dir.
func setupProvisionerTest(t *testing.T) (*Provisioner, *memory.Client, store.Store) {
	t.Helper()

	client := memory.New()
	st, err := store.NewFile(filepath.Join(t.TempDir(), "config.json"), slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	p := NewProvisioner(client, st, testBotConfig(), slog.New(slog.DiscardHandler))
	return p, client, st
}

func findChannel(t *testing.T, client *memory.Client, guildID, name string) *platform.Channel {
	t.Helper()
	channels, err := client.Channels(context.Background(), guildID)
	require.NoError(t, err)
	for _, ch := range channels {
		if ch.Name == name {
			return ch
		}
	}
	return nil
}

func TestEnsureCategory_CreatesOnce(t *testing.T) {
	p, client, _ := setupProvisionerTest(t)
	guild := client.SeedGuild("dev")
	ctx := context.Background()

	first, err := p.EnsureCategory(ctx, guild.ID, "times")
	require.NoError(t, err)

	second, err := p.EnsureCategory(ctx, guild.ID, "times")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
}

func TestEnsureCategory_ExactNameMatch(t *testing.T) {
	p, client, _ := setupProvisionerTest(t)
	guild := client.SeedGuild("dev")
	ctx := context.Background()

	upper, err := p.EnsureCategory(ctx, guild.ID, "Times")
	require.NoError(t, err)

	lower, err := p.EnsureCategory(ctx, guild.ID, "times")
	require.NoError(t, err)

	// No case-folding: these are distinct categories.
	assert.NotEqual(t, upper.ID, lower.ID)
}

func TestCreatePersonalChannel_Idempotent(t *testing.T) {
	p, client, _ := setupProvisionerTest(t)
	guild := client.SeedGuild("dev")
	member := client.SeedMember(guild.ID, "alice")
	ctx := context.Background()

	first, err := p.CreatePersonalChannel(ctx, guild.ID, member)
	require.NoError(t, err)
	assert.Equal(t, "times-alice", first.Name)

	second, err := p.CreatePersonalChannel(ctx, guild.ID, member)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	// Exactly one text channel was created.
	channels, err := client.Channels(ctx, guild.ID)
	require.NoError(t, err)
	texts := 0
	for _, ch := range channels {
		if ch.Type == platform.ChannelText {
			texts++
		}
	}
	assert.Equal(t, 1, texts)
}

func TestCreatePersonalChannel_MappedRoleScenario(t *testing.T) {
	p, client, st := setupProvisionerTest(t)
	guild := client.SeedGuild("dev")
	alpha := client.SeedRole(guild.ID, "alpha", 0)
	member := client.SeedMember(guild.ID, "Alice Smith", alpha.ID)
	ctx := context.Background()

	require.NoError(t, st.SetMapping(guild.ID, alpha.ID, "27-times"))

	ch, err := p.CreatePersonalChannel(ctx, guild.ID, member)
	require.NoError(t, err)
	assert.Equal(t, "times-alice-smith", ch.Name)

	category := findChannel(t, client, guild.ID, "27-times")
	require.NotNil(t, category)
	assert.Equal(t, platform.ChannelCategory, category.Type)
	assert.Equal(t, category.ID, ch.ParentID)
}

func TestCreatePersonalChannel_CohortRoleScenario(t *testing.T) {
	p, client, _ := setupProvisionerTest(t)
	guild := client.SeedGuild("dev")
	cohort := client.SeedRole(guild.ID, "27卒", 0)
	member := client.SeedMember(guild.ID, "bob", cohort.ID)
	ctx := context.Background()

	ch, err := p.CreatePersonalChannel(ctx, guild.ID, member)
	require.NoError(t, err)

	category := findChannel(t, client, guild.ID, "27-times")
	require.NotNil(t, category)
	assert.Equal(t, category.ID, ch.ParentID)
}

func TestCreatePersonalChannel_PostsWelcome(t *testing.T) {
	p, client, _ := setupProvisionerTest(t)
	guild := client.SeedGuild("dev")
	member := client.SeedMember(guild.ID, "alice")
	ctx := context.Background()

	ch, err := p.CreatePersonalChannel(ctx, guild.ID, member)
	require.NoError(t, err)

	messages := client.MessagesIn(ch.ID)
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0], "<@"+member.UserID+">")
	assert.Contains(t, messages[0], "times")
}

func TestCreatePersonalChannel_SameNameDifferentCategoryCoexists(t *testing.T) {
	p, client, st := setupProvisionerTest(t)
	guild := client.SeedGuild("dev")
	alpha := client.SeedRole(guild.ID, "alpha", 0)
	member := client.SeedMember(guild.ID, "alice", alpha.ID)
	ctx := context.Background()

	// First creation lands under the default category.
	first, err := p.CreatePersonalChannel(ctx, guild.ID, member)
	require.NoError(t, err)

	// Remapping the member's role moves the target category; the existing
	// channel in the old category is not found there, so a second one is
	// created. Derived identity, documented limitation.
	require.NoError(t, st.SetMapping(guild.ID, alpha.ID, "27-times"))

	second, err := p.CreatePersonalChannel(ctx, guild.ID, member)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestDeletePersonalChannel(t *testing.T) {
	p, client, _ := setupProvisionerTest(t)
	guild := client.SeedGuild("dev")
	member := client.SeedMember(guild.ID, "alice")
	ctx := context.Background()

	_, err := p.CreatePersonalChannel(ctx, guild.ID, member)
	require.NoError(t, err)

	deleted, err := p.DeletePersonalChannel(ctx, guild.ID, member, "times")
	require.NoError(t, err)
	assert.True(t, deleted)

	// Second delete is a no-op.
	deleted, err = p.DeletePersonalChannel(ctx, guild.ID, member, "times")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestDeleteAnyPersonalChannel_ScansMappedCategories(t *testing.T) {
	p, client, st := setupProvisionerTest(t)
	guild := client.SeedGuild("dev")
	alpha := client.SeedRole(guild.ID, "alpha", 0)
	member := client.SeedMember(guild.ID, "alice", alpha.ID)
	ctx := context.Background()

	require.NoError(t, st.SetMapping(guild.ID, alpha.ID, "veterans"))

	_, err := p.CreatePersonalChannel(ctx, guild.ID, member)
	require.NoError(t, err)

	// Roles are gone by the time leave cleanup runs; only the name survives.
	departed := &platform.Member{UserID: member.UserID, Username: member.Username}

	deleted, err := p.DeleteAnyPersonalChannel(ctx, guild.ID, departed)
	require.NoError(t, err)
	assert.True(t, deleted)

	assert.Nil(t, findChannel(t, client, guild.ID, "times-alice"))
}

func TestDeleteAnyPersonalChannel_ScansSyntheticCohortCategories(t *testing.T) {
	p, client, _ := setupProvisionerTest(t)
	guild := client.SeedGuild("dev")
	cohort := client.SeedRole(guild.ID, "27卒", 0)
	member := client.SeedMember(guild.ID, "bob", cohort.ID)
	ctx := context.Background()

	// Channel lands in auto-detected "27-times", which no mapping references.
	_, err := p.CreatePersonalChannel(ctx, guild.ID, member)
	require.NoError(t, err)

	departed := &platform.Member{UserID: member.UserID, Username: member.Username}
	deleted, err := p.DeleteAnyPersonalChannel(ctx, guild.ID, departed)
	require.NoError(t, err)
	assert.True(t, deleted)
}

func TestDeleteAnyPersonalChannel_NothingToDelete(t *testing.T) {
	p, client, _ := setupProvisionerTest(t)
	guild := client.SeedGuild("dev")
	member := client.SeedMember(guild.ID, "ghost")
	ctx := context.Background()

	deleted, err := p.DeleteAnyPersonalChannel(ctx, guild.ID, member)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestChannelName_Truncation(t *testing.T) {
	p, _, _ := setupProvisionerTest(t)

	member := &platform.Member{
		UserID:   "u1",
		Username: strings.Repeat("a", 200),
	}

	name := p.ChannelName(member)
	assert.Len(t, name, platform.MaxChannelNameLength)
	assert.True(t, strings.HasPrefix(name, "times-"))
}
