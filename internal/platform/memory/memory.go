// Package memory provides an in-process platform.Client implementation.
// It backs the "memory" platform driver for local development and is the
// collaborator the engine's tests run against. State lives entirely in maps;
// IDs are minted with nanoid so they look like real opaque platform IDs.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/timesapp/times-bot/internal/errors"
	"github.com/timesapp/times-bot/internal/id"
	"github.com/timesapp/times-bot/internal/platform"
)

const eventBuffer = 64

// Client is an in-memory platform.Client.
type Client struct {
	mu sync.RWMutex

	guilds   map[string]*platform.Guild
	roles    map[string]map[string]*platform.Role // guildID -> roleID -> role
	members  map[string]map[string]*platform.Member
	channels map[string]*platform.Channel // channelID -> channel
	// channelOrder preserves creation order per guild so enumeration is stable.
	channelOrder map[string][]string
	messages     map[string]*platform.Message

	// removedReactions records RemoveReaction calls as "messageID/userID/emoji".
	removedReactions []string

	// failures maps an operation name to a one-shot injected error.
	// Guarded by failMu, not mu, so read-locked operations can consume entries.
	failMu   sync.Mutex
	failures map[string]error

	events chan platform.Event
	closed bool
}

// New creates an empty in-memory client.
func New() *Client {
	return &Client{
		guilds:       make(map[string]*platform.Guild),
		roles:        make(map[string]map[string]*platform.Role),
		members:      make(map[string]map[string]*platform.Member),
		channels:     make(map[string]*platform.Channel),
		channelOrder: make(map[string][]string),
		messages:     make(map[string]*platform.Message),
		failures:     make(map[string]error),
		events:       make(chan platform.Event, eventBuffer),
	}
}

// failure consumes a one-shot injected error for op.
func (c *Client) failure(op string) error {
	c.failMu.Lock()
	defer c.failMu.Unlock()
	if err, ok := c.failures[op]; ok {
		delete(c.failures, op)
		return err
	}
	return nil
}

// FailNext injects an error returned by the next call to the named operation
// ("Member", "CreateTextChannel", "SendMessage", ...). Test hook.
func (c *Client) FailNext(op string, err error) {
	c.failMu.Lock()
	defer c.failMu.Unlock()
	c.failures[op] = err
}

// Guild implements platform.Client.
func (c *Client) Guild(_ context.Context, guildID string) (*platform.Guild, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err := c.failure("Guild"); err != nil {
		return nil, err
	}
	g, ok := c.guilds[guildID]
	if !ok {
		return nil, errors.NotFoundf("guild %s not found", guildID)
	}
	cp := *g
	return &cp, nil
}

// Guilds implements platform.Client.
func (c *Client) Guilds(_ context.Context) ([]*platform.Guild, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*platform.Guild, 0, len(c.guilds))
	for _, g := range c.guilds {
		cp := *g
		out = append(out, &cp)
	}
	return out, nil
}

// Member implements platform.Client.
func (c *Client) Member(_ context.Context, guildID, userID string) (*platform.Member, error) {
	if err := c.failure("Member"); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.members[guildID][userID]
	if !ok {
		return nil, errors.NotFoundf("member %s not found in guild %s", userID, guildID)
	}
	cp := *m
	cp.RoleIDs = append([]string(nil), m.RoleIDs...)
	return &cp, nil
}

// Roles implements platform.Client.
func (c *Client) Roles(_ context.Context, guildID string) ([]*platform.Role, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*platform.Role, 0, len(c.roles[guildID]))
	for _, r := range c.roles[guildID] {
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

// Role implements platform.Client.
func (c *Client) Role(_ context.Context, guildID, roleID string) (*platform.Role, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.roles[guildID][roleID]
	if !ok {
		return nil, errors.NotFoundf("role %s not found in guild %s", roleID, guildID)
	}
	cp := *r
	return &cp, nil
}

// Channels implements platform.Client.
func (c *Client) Channels(_ context.Context, guildID string) ([]*platform.Channel, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	order := c.channelOrder[guildID]
	out := make([]*platform.Channel, 0, len(order))
	for _, chID := range order {
		if ch, ok := c.channels[chID]; ok {
			cp := *ch
			out = append(out, &cp)
		}
	}
	return out, nil
}

// CreateCategory implements platform.Client.
func (c *Client) CreateCategory(_ context.Context, guildID, name, _ string) (*platform.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.failure("CreateCategory"); err != nil {
		return nil, err
	}
	if _, ok := c.guilds[guildID]; !ok {
		return nil, errors.NotFoundf("guild %s not found", guildID)
	}

	ch := &platform.Channel{
		ID:      id.MustGenerate("cat"),
		GuildID: guildID,
		Name:    name,
		Type:    platform.ChannelCategory,
	}
	c.channels[ch.ID] = ch
	c.channelOrder[guildID] = append(c.channelOrder[guildID], ch.ID)
	cp := *ch
	return &cp, nil
}

// CreateTextChannel implements platform.Client.
func (c *Client) CreateTextChannel(_ context.Context, guildID string, params platform.CreateChannelParams) (*platform.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.failure("CreateTextChannel"); err != nil {
		return nil, err
	}
	if _, ok := c.guilds[guildID]; !ok {
		return nil, errors.NotFoundf("guild %s not found", guildID)
	}
	if params.ParentID != "" {
		parent, ok := c.channels[params.ParentID]
		if !ok || parent.Type != platform.ChannelCategory {
			return nil, errors.Validationf("parent %s is not a category", params.ParentID)
		}
	}

	ch := &platform.Channel{
		ID:       id.MustGenerate("chan"),
		GuildID:  guildID,
		Name:     params.Name,
		Type:     platform.ChannelText,
		ParentID: params.ParentID,
	}
	c.channels[ch.ID] = ch
	c.channelOrder[guildID] = append(c.channelOrder[guildID], ch.ID)
	cp := *ch
	return &cp, nil
}

// DeleteChannel implements platform.Client.
func (c *Client) DeleteChannel(_ context.Context, channelID, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.failure("DeleteChannel"); err != nil {
		return err
	}
	ch, ok := c.channels[channelID]
	if !ok {
		return errors.NotFoundf("channel %s not found", channelID)
	}
	delete(c.channels, channelID)

	order := c.channelOrder[ch.GuildID]
	for i, chID := range order {
		if chID == channelID {
			c.channelOrder[ch.GuildID] = append(order[:i], order[i+1:]...)
			break
		}
	}
	return nil
}

// SendMessage implements platform.Client.
func (c *Client) SendMessage(_ context.Context, channelID, content string) (*platform.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.failure("SendMessage"); err != nil {
		return nil, err
	}
	ch, ok := c.channels[channelID]
	if !ok {
		return nil, errors.NotFoundf("channel %s not found", channelID)
	}

	msg := &platform.Message{
		ID:        id.MustGenerate("msg"),
		GuildID:   ch.GuildID,
		ChannelID: channelID,
		AuthorBot: true,
		Content:   content,
	}
	c.messages[msg.ID] = msg
	cp := *msg
	return &cp, nil
}

// FetchMessage implements platform.Client.
func (c *Client) FetchMessage(_ context.Context, _, messageID string) (*platform.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.failure("FetchMessage"); err != nil {
		return nil, err
	}
	msg, ok := c.messages[messageID]
	if !ok {
		return nil, errors.NotFoundf("message %s not found", messageID)
	}
	cp := *msg
	return &cp, nil
}

// RemoveReaction implements platform.Client.
func (c *Client) RemoveReaction(_ context.Context, _, messageID, userID, emoji string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.failure("RemoveReaction"); err != nil {
		return err
	}
	c.removedReactions = append(c.removedReactions, fmt.Sprintf("%s/%s/%s", messageID, userID, emoji))
	return nil
}

// Events implements platform.Client.
func (c *Client) Events() <-chan platform.Event {
	return c.events
}

// Close implements platform.Client.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.events)
	}
	return nil
}

// Seeding and inspection helpers. These are not part of platform.Client; they
// exist so tests and the local simulator can arrange state and emit events.

// SeedGuild creates a guild with an implicit @everyone role and returns it.
func (c *Client) SeedGuild(name string) *platform.Guild {
	c.mu.Lock()
	defer c.mu.Unlock()

	g := &platform.Guild{
		ID:   id.MustGenerate("guild"),
		Name: name,
	}
	everyone := &platform.Role{
		ID:      id.MustGenerate("role"),
		GuildID: g.ID,
		Name:    "@everyone",
	}
	g.EveryoneRoleID = everyone.ID

	c.guilds[g.ID] = g
	c.roles[g.ID] = map[string]*platform.Role{everyone.ID: everyone}
	c.members[g.ID] = make(map[string]*platform.Member)
	return g
}

// SeedRole creates a role in a guild.
func (c *Client) SeedRole(guildID, name string, perms platform.Permission) *platform.Role {
	c.mu.Lock()
	defer c.mu.Unlock()

	r := &platform.Role{
		ID:          id.MustGenerate("role"),
		GuildID:     guildID,
		Name:        name,
		Permissions: perms,
	}
	c.roles[guildID][r.ID] = r
	return r
}

// SeedMember creates a member holding the given roles, in order.
func (c *Client) SeedMember(guildID, username string, roleIDs ...string) *platform.Member {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := &platform.Member{
		UserID:   id.MustGenerate("user"),
		GuildID:  guildID,
		Username: username,
		RoleIDs:  roleIDs,
	}
	c.members[guildID][m.UserID] = m
	return m
}

// SeedBot creates a bot member.
func (c *Client) SeedBot(guildID, username string) *platform.Member {
	m := c.SeedMember(guildID, username)
	c.mu.Lock()
	defer c.mu.Unlock()
	m.Bot = true
	return m
}

// SeedMessage records a message authored by the given member.
func (c *Client) SeedMessage(channelID string, author *platform.Member, content string) *platform.Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := c.channels[channelID]
	msg := &platform.Message{
		ID:        id.MustGenerate("msg"),
		GuildID:   ch.GuildID,
		ChannelID: channelID,
		AuthorID:  author.UserID,
		AuthorBot: author.Bot,
		Content:   content,
	}
	c.messages[msg.ID] = msg
	return msg
}

// RemoveMember drops a member from guild state (as the platform does before a
// leave event fires).
func (c *Client) RemoveMember(guildID, userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.members[guildID], userID)
}

// Emit delivers an event to the consumer.
func (c *Client) Emit(ev platform.Event) {
	c.events <- ev
}

// MessagesIn returns the contents of all messages sent to a channel.
// Inspection helper for tests; order is not guaranteed.
func (c *Client) MessagesIn(channelID string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []string
	for _, msg := range c.messages {
		if msg.ChannelID == channelID {
			out = append(out, msg.Content)
		}
	}
	return out
}

// RemovedReactions returns recorded RemoveReaction calls as
// "messageID/userID/emoji" strings.
func (c *Client) RemovedReactions() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.removedReactions...)
}
