package dispatch

import (
	"context"
	"time"

	"github.com/whisper/modbot/internal/cooldown"
)

// Grant is a bitmask of capabilities the author of a message holds in the
// guild. The platform adapter fills it from the author's roles.
type Grant uint8

const (
	GrantManageMessages Grant = 1 << iota
	GrantAdministrator
)

// Has reports whether g includes flag. Administrators hold every grant.
func (g Grant) Has(flag Grant) bool {
	if g&GrantAdministrator != 0 {
		return true
	}
	return g&flag == flag
}

// Message is an inbound chat message as seen by the dispatcher.
type Message struct {
	ID            string
	ChannelID     string
	GuildID       string
	AuthorID      string
	AuthorMention string
	AuthorBot     bool
	Content       string
	Grants        Grant
}

// Notification is a short embed posted to a channel.
type Notification struct {
	Title string
	Body  string
	Color int
}

// Platform performs moderation actions on the chat platform.
type Platform interface {
	DeleteMessage(ctx context.Context, msg *Message) error
	SendNotification(ctx context.Context, channelID string, n Notification) error
	MuteUser(ctx context.Context, msg *Message, until time.Time, reason string) error
}

// Scheduler runs f once after d has elapsed.
type Scheduler interface {
	AfterFunc(d time.Duration, f func())
}

// Auditor receives encoded violation events, one per enforcement action.
// messaging.NATSClient satisfies it.
type Auditor interface {
	PublishViolation(policy string, data []byte) error
}

// Router receives every message after moderation, whether or not it was
// acted on.
type Router interface {
	Route(ctx context.Context, msg *Message)
}

// Action is the enforcement applied for a violation.
type Action string

const (
	ActionWarn       Action = "warn"
	ActionMute       Action = "mute"
	ActionQuarantine Action = "quarantine"
)

// Violation describes one enforcement action. It is published to the audit
// sink and never stored.
type Violation struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	GuildID   string          `json:"guild_id"`
	ChannelID string          `json:"channel_id"`
	MessageID string          `json:"message_id"`
	Policy    cooldown.Policy `json:"policy"`
	Action    Action          `json:"action"`
	At        time.Time       `json:"at"`
}

type timerScheduler struct{}

func (timerScheduler) AfterFunc(d time.Duration, f func()) {
	time.AfterFunc(d, f)
}
