package command

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/whisper/modbot/internal/cooldown"
	"github.com/whisper/modbot/internal/dispatch"
	"github.com/whisper/modbot/internal/moderation"
)

// ErrUsage is returned when a command is called with missing arguments.
var ErrUsage = errors.New("command: missing argument")

// RegisterBuiltins installs the moderator commands:
//
//	ping              replies "pong"
//	warnings <user>   lists the user's active warnings
//	pardon <user>     clears the user's warnings (manage messages)
//	check <text>      explains how text is classified (manage messages)
func RegisterBuiltins(r *Router, tracker *cooldown.Tracker, matcher *moderation.Matcher) {
	r.Register("ping", func(context.Context, *Request) (string, error) {
		return "pong", nil
	})

	r.Register("warnings", func(ctx context.Context, req *Request) (string, error) {
		userID := req.Message.AuthorID
		if len(req.Args) > 0 {
			userID = UserID(req.Args[0])
		}
		var active []string
		for _, p := range cooldown.Policies {
			ok, err := tracker.Active(ctx, cooldown.Key{UserID: userID, Policy: p})
			if err != nil {
				return "", fmt.Errorf("command: warnings: %w", err)
			}
			if ok {
				active = append(active, string(p))
			}
		}
		if len(active) == 0 {
			return fmt.Sprintf("<@%s> ليس لديه تحذيرات.", userID), nil
		}
		return fmt.Sprintf("<@%s> تحذيرات فعالة: %s", userID, strings.Join(active, ", ")), nil
	})

	r.RegisterPrivileged("pardon", dispatch.GrantManageMessages, func(ctx context.Context, req *Request) (string, error) {
		if len(req.Args) == 0 {
			return "", fmt.Errorf("%w: pardon <user>", ErrUsage)
		}
		userID := UserID(req.Args[0])
		if err := tracker.Reset(ctx, userID); err != nil {
			return "", fmt.Errorf("command: pardon: %w", err)
		}
		return fmt.Sprintf("تم مسح تحذيرات <@%s>.", userID), nil
	})

	r.RegisterPrivileged("check", dispatch.GrantManageMessages, func(_ context.Context, req *Request) (string, error) {
		if len(req.Args) == 0 {
			return "", fmt.Errorf("%w: check <text>", ErrUsage)
		}
		text := strings.Join(req.Args, " ")
		res := matcher.Check(text)
		link := moderation.ContainsLink(text)
		if !res.Offensive {
			return fmt.Sprintf("offensive=false reason=%s link=%v", res.Reason, link), nil
		}
		return fmt.Sprintf("offensive=true reason=%s term=%q score=%.2f link=%v", res.Reason, res.Term, res.Score, link), nil
	})
}

// UserID extracts a user ID from a mention ("<@123>", "<@!123>") or returns
// arg unchanged.
func UserID(arg string) string {
	if strings.HasPrefix(arg, "<@") && strings.HasSuffix(arg, ">") {
		return strings.TrimPrefix(strings.TrimSuffix(arg[2:], ">"), "!")
	}
	return arg
}
