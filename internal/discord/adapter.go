// Package discord connects the moderation pipeline to the Discord gateway
// through discordgo. It converts gateway events into dispatch messages and
// implements dispatch.Platform with REST calls.
package discord

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/whisper/modbot/internal/dispatch"
)

// Intents are the gateway intents the bot needs: guild messages, their
// content, and member data for role lookups.
const Intents = discordgo.IntentsGuildMessages | discordgo.IntentMessageContent | discordgo.IntentsGuildMembers

// Handler receives converted inbound messages.
type Handler interface {
	Handle(ctx context.Context, msg *dispatch.Message)
}

// Adapter wraps a discordgo session.
type Adapter struct {
	session *discordgo.Session
}

// New creates an Adapter for the given bot token. The session is not opened.
func New(token string) (*Adapter, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord: new session: %w", err)
	}
	s.Identify.Intents = Intents
	s.StateEnabled = true
	return &Adapter{session: s}, nil
}

// Session returns the underlying discordgo session.
func (a *Adapter) Session() *discordgo.Session {
	return a.session
}

// Listen registers h for every MessageCreate event. ctx is passed to each
// Handle call; events arriving after ctx is done are dropped.
func (a *Adapter) Listen(ctx context.Context, h Handler) {
	a.session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		if ctx.Err() != nil || m.Author == nil {
			return
		}
		h.Handle(ctx, a.convert(m.Message))
	})
	a.session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		log.Printf("[discord] connected as %s#%s guilds=%d", r.User.Username, r.User.Discriminator, len(r.Guilds))
	})
}

// Open connects to the gateway.
func (a *Adapter) Open() error {
	if err := a.session.Open(); err != nil {
		return fmt.Errorf("discord: open gateway: %w", err)
	}
	return nil
}

// Close disconnects from the gateway.
func (a *Adapter) Close() error {
	return a.session.Close()
}

// DeleteMessage implements dispatch.Platform.
func (a *Adapter) DeleteMessage(ctx context.Context, msg *dispatch.Message) error {
	if err := a.session.ChannelMessageDelete(msg.ChannelID, msg.ID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord: delete message %s: %w", msg.ID, err)
	}
	return nil
}

// SendNotification implements dispatch.Platform by posting n as an embed.
func (a *Adapter) SendNotification(ctx context.Context, channelID string, n dispatch.Notification) error {
	embed := &discordgo.MessageEmbed{
		Title:       n.Title,
		Description: n.Body,
		Color:       n.Color,
	}
	if _, err := a.session.ChannelMessageSendEmbed(channelID, embed, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord: send embed to %s: %w", channelID, err)
	}
	return nil
}

// MuteUser implements dispatch.Platform with a member timeout.
func (a *Adapter) MuteUser(ctx context.Context, msg *dispatch.Message, until time.Time, reason string) error {
	err := a.session.GuildMemberTimeout(msg.GuildID, msg.AuthorID, &until,
		discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason))
	if err != nil {
		return fmt.Errorf("discord: timeout user %s: %w", msg.AuthorID, err)
	}
	return nil
}

func (a *Adapter) convert(m *discordgo.Message) *dispatch.Message {
	msg := &dispatch.Message{
		ID:            m.ID,
		ChannelID:     m.ChannelID,
		GuildID:       m.GuildID,
		AuthorID:      m.Author.ID,
		AuthorMention: m.Author.Mention(),
		AuthorBot:     m.Author.Bot,
		Content:       m.Content,
	}
	if m.GuildID != "" && m.Member != nil {
		msg.Grants = a.grants(m.GuildID, m.Member.Roles)
	}
	return msg
}

// grants resolves the author's capabilities from the permissions of their
// roles, using the state cache before the REST API.
func (a *Adapter) grants(guildID string, roleIDs []string) dispatch.Grant {
	roleIDs = withEveryone(guildID, roleIDs)

	var roles []*discordgo.Role
	missing := false
	for _, id := range roleIDs {
		role, err := a.session.State.Role(guildID, id)
		if err != nil {
			missing = true
			break
		}
		roles = append(roles, role)
	}
	if missing {
		all, err := a.session.GuildRoles(guildID)
		if err != nil {
			log.Printf("[discord] roles guild=%s: %v", guildID, err)
			return 0
		}
		roles = selectRoles(all, roleIDs)
	}
	return grantsFromRoles(roles)
}

// withEveryone adds the @everyone role, whose ID is the guild ID. Discord
// leaves it out of a member's role list although every member holds it.
func withEveryone(guildID string, roleIDs []string) []string {
	for _, id := range roleIDs {
		if id == guildID {
			return roleIDs
		}
	}
	out := make([]string, 0, len(roleIDs)+1)
	out = append(out, guildID)
	return append(out, roleIDs...)
}

func selectRoles(all []*discordgo.Role, ids []string) []*discordgo.Role {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []*discordgo.Role
	for _, r := range all {
		if want[r.ID] {
			out = append(out, r)
		}
	}
	return out
}

func grantsFromRoles(roles []*discordgo.Role) dispatch.Grant {
	var g dispatch.Grant
	for _, r := range roles {
		if r.Permissions&discordgo.PermissionAdministrator != 0 {
			g |= dispatch.GrantAdministrator
		}
		if r.Permissions&discordgo.PermissionManageMessages != 0 {
			g |= dispatch.GrantManageMessages
		}
	}
	return g
}
