// Package command routes prefixed chat commands ("!ping", "!pardon @user")
// to registered handlers and posts their replies back to the channel.
package command

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/whisper/modbot/internal/dispatch"
	"github.com/whisper/modbot/internal/ratelimit"
)

// DefaultPrefix starts every command.
const DefaultPrefix = "!"

const (
	colorReply = 0x3498DB
	colorError = 0xFF0000
)

// Request is a parsed command invocation.
type Request struct {
	Message *dispatch.Message
	Name    string
	Args    []string
}

// Handler runs a command and returns the reply text. An empty reply posts
// nothing.
type Handler func(ctx context.Context, req *Request) (string, error)

// Replier posts command replies. dispatch.Platform satisfies it.
type Replier interface {
	SendNotification(ctx context.Context, channelID string, n dispatch.Notification) error
}

// Allower throttles command invocations per user.
type Allower interface {
	Allow(ctx context.Context, identifier string, rule ratelimit.Rule) (bool, error)
}

type entry struct {
	handler   Handler
	privilege dispatch.Grant
}

// Router dispatches commands by name. Register all commands before the
// router starts receiving messages.
type Router struct {
	prefix   string
	replier  Replier
	limiter  Allower
	timeout  time.Duration
	handlers map[string]entry
}

// NewRouter creates a Router for commands starting with prefix. An empty
// prefix falls back to DefaultPrefix.
func NewRouter(prefix string, replier Replier) *Router {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Router{
		prefix:   prefix,
		replier:  replier,
		timeout:  10 * time.Second,
		handlers: make(map[string]entry),
	}
}

// SetLimiter enables per-user throttling with ratelimit.RuleCommand.
func (r *Router) SetLimiter(l Allower) {
	r.limiter = l
}

// Register associates a handler with a command name. If a handler was
// already registered for the name, it is replaced.
func (r *Router) Register(name string, handler Handler) {
	r.handlers[strings.ToLower(name)] = entry{handler: handler}
}

// RegisterPrivileged registers a handler that only authors holding grant
// may run.
func (r *Router) RegisterPrivileged(name string, grant dispatch.Grant, handler Handler) {
	r.handlers[strings.ToLower(name)] = entry{handler: handler, privilege: grant}
}

// Parse splits content into a command name and arguments. It reports false
// when content is not a command.
func (r *Router) Parse(content string) (string, []string, bool) {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, r.prefix) {
		return "", nil, false
	}
	fields := strings.Fields(strings.TrimPrefix(content, r.prefix))
	if len(fields) == 0 {
		return "", nil, false
	}
	return strings.ToLower(fields[0]), fields[1:], true
}

// Route implements dispatch.Router. Messages that are not registered
// commands are ignored.
func (r *Router) Route(ctx context.Context, msg *dispatch.Message) {
	name, args, ok := r.Parse(msg.Content)
	if !ok {
		return
	}
	e, ok := r.handlers[name]
	if !ok {
		return
	}

	if e.privilege != 0 && !msg.Grants.Has(e.privilege) {
		r.reply(ctx, msg.ChannelID, "ليس لديك صلاحية لهذا الأمر.", colorError)
		return
	}

	if r.limiter != nil {
		allowed, _ := r.limiter.Allow(ctx, msg.AuthorID, ratelimit.RuleCommand)
		if !allowed {
			log.Printf("[command] rate limited user=%s command=%s", msg.AuthorID, name)
			return
		}
	}

	cctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	text, err := e.handler(cctx, &Request{Message: msg, Name: name, Args: args})
	if err != nil {
		log.Printf("[command] %s user=%s: %v", name, msg.AuthorID, err)
		r.reply(ctx, msg.ChannelID, "⚠️ "+err.Error(), colorError)
		return
	}
	if text != "" {
		r.reply(ctx, msg.ChannelID, text, colorReply)
	}
}

func (r *Router) reply(ctx context.Context, channelID, text string, color int) {
	if err := r.replier.SendNotification(ctx, channelID, dispatch.Notification{Body: text, Color: color}); err != nil {
		log.Printf("[command] reply channel=%s: %v", channelID, err)
	}
}
