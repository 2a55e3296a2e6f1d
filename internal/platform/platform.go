// Package platform defines the abstract chat-platform capability interface the
// provisioning engine is built against. Concrete adapters (the in-process memory
// simulator, or a real gateway client) live in subpackages.
package platform

import "context"

// MaxChannelNameLength is the platform limit channel names are truncated to.
const MaxChannelNameLength = 90

// Permission is a bitset of channel/guild capabilities.
type Permission uint64

// Permission flags.
const (
	PermViewChannel Permission = 1 << iota
	PermSendMessages
	PermReadMessageHistory
	PermManageGuild
	PermAdministrator
)

// Has reports whether p contains all bits of q.
func (p Permission) Has(q Permission) bool {
	return p&q == q
}

// ChannelType distinguishes text channels from category containers.
type ChannelType int

// Channel types.
const (
	ChannelText ChannelType = iota
	ChannelCategory
)

// Guild is a group communication space.
type Guild struct {
	ID   string
	Name string
	// EveryoneRoleID identifies the implicit default role every member holds.
	EveryoneRoleID string
}

// Role is a named, assignable membership attribute.
type Role struct {
	ID          string
	GuildID     string
	Name        string
	Permissions Permission
}

// Member is a guild member. RoleIDs preserves the platform-reported order,
// which category resolution treats as the tie-break order.
type Member struct {
	UserID      string
	GuildID     string
	Username    string
	DisplayName string
	Bot         bool
	RoleIDs     []string
}

// Channel is a text channel or category within a guild.
type Channel struct {
	ID      string
	GuildID string
	Name    string
	Type    ChannelType
	// ParentID is the containing category's channel ID; empty for top-level
	// channels and categories.
	ParentID string
}

// Message is a text message in a channel.
type Message struct {
	ID        string
	GuildID   string
	ChannelID string
	AuthorID  string
	AuthorBot bool
	Content   string
}

// Overwrite grants or denies permissions for a principal (role or member) on a channel.
type Overwrite struct {
	// TargetID is a role ID or a member's user ID.
	TargetID string
	Allow    Permission
	Deny     Permission
}

// CreateChannelParams describes a text channel to create.
type CreateChannelParams struct {
	Name       string
	ParentID   string
	Overwrites []Overwrite
	Reason     string
}

// Client is the platform collaborator consumed by the provisioning engine.
// Implementations own transport, caching, and rate limiting; the engine
// treats every call as potentially failing and never retries.
type Client interface {
	// Guild returns guild metadata.
	Guild(ctx context.Context, guildID string) (*Guild, error)
	// Guilds enumerates the guilds the client is connected to.
	Guilds(ctx context.Context) ([]*Guild, error)
	// Member resolves a member by user ID.
	Member(ctx context.Context, guildID, userID string) (*Member, error)
	// Roles enumerates a guild's roles.
	Roles(ctx context.Context, guildID string) ([]*Role, error)
	// Role resolves a single role.
	Role(ctx context.Context, guildID, roleID string) (*Role, error)
	// Channels enumerates a guild's channels and categories.
	Channels(ctx context.Context, guildID string) ([]*Channel, error)

	// CreateCategory creates a category container.
	CreateCategory(ctx context.Context, guildID, name, reason string) (*Channel, error)
	// CreateTextChannel creates a text channel.
	CreateTextChannel(ctx context.Context, guildID string, params CreateChannelParams) (*Channel, error)
	// DeleteChannel deletes a channel with an audit reason.
	DeleteChannel(ctx context.Context, channelID, reason string) error

	// SendMessage posts a message into a channel.
	SendMessage(ctx context.Context, channelID, content string) (*Message, error)
	// FetchMessage resolves a possibly-uncached message to full data.
	FetchMessage(ctx context.Context, channelID, messageID string) (*Message, error)
	// RemoveReaction removes a specific user's reaction from a message.
	RemoveReaction(ctx context.Context, channelID, messageID, userID, emoji string) error

	// Events returns the inbound event stream. The channel is closed when the
	// client shuts down.
	Events() <-chan Event

	// Close releases the client.
	Close() error
}
