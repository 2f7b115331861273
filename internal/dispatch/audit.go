package dispatch

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/whisper/modbot/internal/cooldown"
)

// newViolation builds the audit event for an action taken on msg.
func (d *Dispatcher) newViolation(msg *Message, policy cooldown.Policy, action Action) Violation {
	return Violation{
		ID:        uuid.New().String(),
		UserID:    msg.AuthorID,
		GuildID:   msg.GuildID,
		ChannelID: msg.ChannelID,
		MessageID: msg.ID,
		Policy:    policy,
		Action:    action,
		At:        d.now().UTC(),
	}
}

// publishViolation encodes v and hands it to auditor.
func publishViolation(auditor Auditor, v Violation) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("dispatch: marshal violation %s: %w", v.ID, err)
	}
	if err := auditor.PublishViolation(string(v.Policy), data); err != nil {
		return fmt.Errorf("dispatch: publish violation %s: %w", v.ID, err)
	}
	return nil
}

// audit publishes a violation if an auditor is configured. Failures are
// logged and never affect enforcement.
func (d *Dispatcher) audit(msg *Message, policy cooldown.Policy, action Action) {
	if d.auditor == nil {
		return
	}
	v := d.newViolation(msg, policy, action)
	if err := publishViolation(d.auditor, v); err != nil {
		log.Printf("[dispatch] %v", err)
	}
}
