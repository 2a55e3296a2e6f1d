package platform

// Event is an inbound platform event. The concrete types below are the only
// implementations.
type Event interface {
	EventGuildID() string
}

// MemberJoinEvent is delivered when a member joins a guild.
type MemberJoinEvent struct {
	GuildID string
	Member  *Member
}

// EventGuildID implements Event.
func (e *MemberJoinEvent) EventGuildID() string { return e.GuildID }

// MemberLeaveEvent is delivered when a member leaves a guild. The member's
// roles are already gone by the time this fires; only identity fields are
// reliable.
type MemberLeaveEvent struct {
	GuildID string
	Member  *Member
}

// EventGuildID implements Event.
func (e *MemberLeaveEvent) EventGuildID() string { return e.GuildID }

// ReactionAddEvent is delivered when a user places a reaction on a message.
// Partial indicates the payload came from an uncached message: GuildID and
// AuthorBot may be zero and the handler must fetch the full message before
// matching.
type ReactionAddEvent struct {
	GuildID   string
	ChannelID string
	MessageID string
	UserID    string
	UserBot   bool
	Emoji     string
	Partial   bool
}

// EventGuildID implements Event.
func (e *ReactionAddEvent) EventGuildID() string { return e.GuildID }

// MessageCreateEvent is delivered for every new message.
type MessageCreateEvent struct {
	Message *Message
}

// EventGuildID implements Event.
func (e *MessageCreateEvent) EventGuildID() string { return e.Message.GuildID }
