// Package store holds the persisted, guild-scoped bot configuration: role to
// category mappings and the reaction-trigger definition. Two backends exist, a
// single JSON document on disk and a Badger database keyed per guild. Both keep
// the running process's state in memory and treat disk persistence as
// best-effort: a failed write is reported through the returned error but the
// in-memory mutation stands.
package store

// TriggerDefinition gates reaction-driven provisioning. Emoji is mandatory;
// MessageID and ChannelID left empty widen the match to any message or channel.
type TriggerDefinition struct {
	MessageID string `json:"messageId,omitempty"`
	ChannelID string `json:"channelId,omitempty"`
	Emoji     string `json:"emoji" validate:"required"`
}

// GuildConfig is the per-guild configuration record.
type GuildConfig struct {
	// RoleMappings maps role ID to category name.
	RoleMappings map[string]string `json:"roleMappings"`
	// Trigger is nil when no reaction trigger is configured.
	Trigger *TriggerDefinition `json:"trigger,omitempty"`
}

// Store is the mutable configuration consulted by every trigger path and
// mutated by admin commands. Guild records are created lazily on first access.
// All mutators persist synchronously before returning; a non-nil error means
// the in-memory state changed but durability is not guaranteed.
type Store interface {
	// GetMapping returns the category mapped to a role, if any.
	GetMapping(guildID, roleID string) (string, bool)
	// SetMapping maps a role to a category. Last write wins.
	SetMapping(guildID, roleID, category string) error
	// RemoveMapping removes a role mapping. The bool reports whether a
	// mapping existed.
	RemoveMapping(guildID, roleID string) (bool, error)
	// Mappings returns a copy of a guild's role mappings.
	Mappings(guildID string) map[string]string
	// GetTrigger returns the guild's trigger definition, if configured.
	GetTrigger(guildID string) (*TriggerDefinition, bool)
	// SetTrigger replaces the guild's trigger definition entirely.
	SetTrigger(guildID string, def TriggerDefinition) error
	// ClearTrigger removes the guild's trigger definition.
	ClearTrigger(guildID string) error
	// GuildCount returns the number of guilds with any configuration.
	GuildCount() int
	// Close releases backend resources.
	Close() error
}

// configSet is the in-memory state shared by both backends. Callers hold the
// backend's lock; none of these methods synchronize.
type configSet struct {
	guilds map[string]*GuildConfig
}

func newConfigSet() configSet {
	return configSet{guilds: make(map[string]*GuildConfig)}
}

// guild returns the record for a guild, creating an empty one lazily.
func (c *configSet) guild(guildID string) *GuildConfig {
	g, ok := c.guilds[guildID]
	if !ok {
		g = &GuildConfig{RoleMappings: make(map[string]string)}
		c.guilds[guildID] = g
	}
	return g
}

func (c *configSet) getMapping(guildID, roleID string) (string, bool) {
	g, ok := c.guilds[guildID]
	if !ok {
		return "", false
	}
	category, ok := g.RoleMappings[roleID]
	return category, ok
}

func (c *configSet) setMapping(guildID, roleID, category string) {
	c.guild(guildID).RoleMappings[roleID] = category
}

func (c *configSet) removeMapping(guildID, roleID string) bool {
	g, ok := c.guilds[guildID]
	if !ok {
		return false
	}
	if _, ok := g.RoleMappings[roleID]; !ok {
		return false
	}
	delete(g.RoleMappings, roleID)
	return true
}

func (c *configSet) mappings(guildID string) map[string]string {
	out := make(map[string]string)
	if g, ok := c.guilds[guildID]; ok {
		for k, v := range g.RoleMappings {
			out[k] = v
		}
	}
	return out
}

func (c *configSet) getTrigger(guildID string) (*TriggerDefinition, bool) {
	g, ok := c.guilds[guildID]
	if !ok || g.Trigger == nil {
		return nil, false
	}
	t := *g.Trigger
	return &t, true
}

func (c *configSet) setTrigger(guildID string, def TriggerDefinition) {
	c.guild(guildID).Trigger = &def
}

func (c *configSet) clearTrigger(guildID string) {
	if g, ok := c.guilds[guildID]; ok {
		g.Trigger = nil
	}
}

// count returns the number of guilds carrying any configuration.
func (c *configSet) count() int {
	n := 0
	for _, g := range c.guilds {
		if !g.empty() {
			n++
		}
	}
	return n
}

// clone returns a deep copy of a guild config.
func (g *GuildConfig) clone() *GuildConfig {
	cp := &GuildConfig{
		RoleMappings: make(map[string]string, len(g.RoleMappings)),
	}
	for k, v := range g.RoleMappings {
		cp.RoleMappings[k] = v
	}
	if g.Trigger != nil {
		t := *g.Trigger
		cp.Trigger = &t
	}
	return cp
}

// empty reports whether the record carries no configuration.
func (g *GuildConfig) empty() bool {
	return len(g.RoleMappings) == 0 && g.Trigger == nil
}
