// Package dispatch runs the moderation pipeline for inbound messages: it
// checks exemption, applies the link and offensive-language policies,
// escalates repeat offenders from a warning to a timeout, and finally hands
// every message to the command router.
package dispatch

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/whisper/modbot/internal/cooldown"
	"github.com/whisper/modbot/internal/metrics"
	"github.com/whisper/modbot/internal/moderation"
)

// Config holds dispatcher settings.
type Config struct {
	QuarantineChannelID string        // links here are deleted after QuarantineDelay, no warning
	MuteDuration        time.Duration // timeout length for a repeat offense
	QuarantineDelay     time.Duration // delay before a quarantined link is deleted
	ActionTimeout       time.Duration // deadline for each platform call
	DedupeSize          int           // message IDs remembered for redelivery checks
	DedupeTTL           time.Duration // how long a message ID is remembered
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		MuteDuration:    1 * time.Hour,
		QuarantineDelay: 5 * time.Second,
		ActionTimeout:   10 * time.Second,
		DedupeSize:      4096,
		DedupeTTL:       10 * time.Minute,
	}
}

// Message results recorded in metrics.MessagesTotal.
const (
	resultClean     = "clean"
	resultViolation = "violation"
	resultExempt    = "exempt"
	resultBot       = "bot"
	resultDuplicate = "duplicate"
)

// Dispatcher applies moderation policies to messages. It is safe for
// concurrent use.
type Dispatcher struct {
	config    Config
	platform  Platform
	matcher   *moderation.Matcher
	tracker   *cooldown.Tracker
	scheduler Scheduler
	auditor   Auditor
	router    Router
	now       func() time.Time

	seenMu sync.Mutex
	seen   *expirable.LRU[string, struct{}]
}

// NewDispatcher creates a Dispatcher. Zero durations in config fall back to
// DefaultConfig values.
func NewDispatcher(config Config, platform Platform, matcher *moderation.Matcher, tracker *cooldown.Tracker) *Dispatcher {
	defaults := DefaultConfig()
	if config.MuteDuration <= 0 {
		config.MuteDuration = defaults.MuteDuration
	}
	if config.QuarantineDelay <= 0 {
		config.QuarantineDelay = defaults.QuarantineDelay
	}
	if config.ActionTimeout <= 0 {
		config.ActionTimeout = defaults.ActionTimeout
	}
	if config.DedupeSize <= 0 {
		config.DedupeSize = defaults.DedupeSize
	}
	if config.DedupeTTL <= 0 {
		config.DedupeTTL = defaults.DedupeTTL
	}

	return &Dispatcher{
		config:    config,
		platform:  platform,
		matcher:   matcher,
		tracker:   tracker,
		scheduler: timerScheduler{},
		now:       time.Now,
		seen:      expirable.NewLRU[string, struct{}](config.DedupeSize, nil, config.DedupeTTL),
	}
}

// SetScheduler replaces the timer used for delayed deletions.
func (d *Dispatcher) SetScheduler(s Scheduler) {
	d.scheduler = s
}

// SetAuditor sets the sink that receives violation events.
func (d *Dispatcher) SetAuditor(a Auditor) {
	d.auditor = a
}

// SetRouter sets the command router that receives every message.
func (d *Dispatcher) SetRouter(r Router) {
	d.router = r
}

// SetClock replaces the time source used for mute deadlines and events.
func (d *Dispatcher) SetClock(now func() time.Time) {
	d.now = now
}

// Handle runs the moderation pipeline for msg. Platform failures are logged
// and never returned.
func (d *Dispatcher) Handle(ctx context.Context, msg *Message) {
	if msg == nil {
		return
	}
	if msg.AuthorBot {
		metrics.MessagesTotal.WithLabelValues(resultBot).Inc()
		return
	}
	if !d.firstDelivery(msg.ID) {
		metrics.MessagesTotal.WithLabelValues(resultDuplicate).Inc()
		return
	}

	start := time.Now()
	result := d.moderate(ctx, msg)
	metrics.EvaluationSeconds.Observe(time.Since(start).Seconds())
	metrics.MessagesTotal.WithLabelValues(result).Inc()

	if d.router != nil {
		d.router.Route(ctx, msg)
	}
}

// firstDelivery records id and reports whether it had not been seen before.
func (d *Dispatcher) firstDelivery(id string) bool {
	if id == "" {
		return true
	}
	d.seenMu.Lock()
	defer d.seenMu.Unlock()
	if d.seen.Contains(id) {
		return false
	}
	d.seen.Add(id, struct{}{})
	return true
}

func (d *Dispatcher) moderate(ctx context.Context, msg *Message) string {
	// Direct messages have no guild to enforce in.
	if msg.GuildID == "" || msg.Grants.Has(GrantManageMessages) {
		return resultExempt
	}

	result := resultClean
	deleted := false

	if moderation.ContainsLink(msg.Content) {
		result = resultViolation
		metrics.ViolationsTotal.WithLabelValues(string(cooldown.PolicyLink)).Inc()
		if d.config.QuarantineChannelID != "" && msg.ChannelID == d.config.QuarantineChannelID {
			d.scheduleDelete(msg)
			d.audit(msg, cooldown.PolicyLink, ActionQuarantine)
		} else {
			deleted = d.deleteMessage(ctx, msg)
			d.enforce(ctx, msg, cooldown.PolicyLink)
		}
	}

	if d.matcher.IsOffensive(msg.Content) {
		result = resultViolation
		metrics.ViolationsTotal.WithLabelValues(string(cooldown.PolicyBadWord)).Inc()
		if !deleted {
			d.deleteMessage(ctx, msg)
		}
		d.enforce(ctx, msg, cooldown.PolicyBadWord)
	}

	return result
}

// enforce records the violation and warns or mutes the author.
func (d *Dispatcher) enforce(ctx context.Context, msg *Message, policy cooldown.Policy) {
	decision, _ := d.tracker.Record(ctx, cooldown.Key{UserID: msg.AuthorID, Policy: policy})
	if decision == cooldown.Mute {
		d.mute(ctx, msg, policy)
		return
	}
	d.warn(ctx, msg, policy)
}

func (d *Dispatcher) warn(ctx context.Context, msg *Message, policy cooldown.Policy) {
	err := d.notify(ctx, msg.ChannelID, warnNotice(policy, msg.AuthorMention))
	metrics.ActionsTotal.WithLabelValues(string(ActionWarn), metrics.Outcome(err)).Inc()
	d.audit(msg, policy, ActionWarn)
}

func (d *Dispatcher) mute(ctx context.Context, msg *Message, policy cooldown.Policy) {
	actx, cancel := context.WithTimeout(ctx, d.config.ActionTimeout)
	defer cancel()

	until := d.now().Add(d.config.MuteDuration)
	err := d.platform.MuteUser(actx, msg, until, muteReason(policy))
	metrics.ActionsTotal.WithLabelValues(string(ActionMute), metrics.Outcome(err)).Inc()
	if err != nil {
		log.Printf("[dispatch] mute user=%s guild=%s policy=%s: %v", msg.AuthorID, msg.GuildID, policy, err)
		d.notify(ctx, msg.ChannelID, muteErrorNotice(err))
		return
	}

	log.Printf("[dispatch] muted user=%s guild=%s policy=%s until=%s",
		msg.AuthorID, msg.GuildID, policy, until.UTC().Format(time.RFC3339))
	d.notify(ctx, msg.ChannelID, muteNotice(policy, msg.AuthorMention))
	d.audit(msg, policy, ActionMute)
}

// deleteMessage deletes msg now and reports whether it succeeded.
func (d *Dispatcher) deleteMessage(ctx context.Context, msg *Message) bool {
	actx, cancel := context.WithTimeout(ctx, d.config.ActionTimeout)
	defer cancel()

	err := d.platform.DeleteMessage(actx, msg)
	metrics.ActionsTotal.WithLabelValues("delete", metrics.Outcome(err)).Inc()
	if err != nil {
		log.Printf("[dispatch] delete message=%s channel=%s: %v", msg.ID, msg.ChannelID, err)
		return false
	}
	return true
}

// scheduleDelete deletes msg after the quarantine delay. The deletion runs
// detached from ctx since the inbound event is finished by then.
func (d *Dispatcher) scheduleDelete(msg *Message) {
	d.scheduler.AfterFunc(d.config.QuarantineDelay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), d.config.ActionTimeout)
		defer cancel()

		err := d.platform.DeleteMessage(ctx, msg)
		metrics.ActionsTotal.WithLabelValues("delayed_delete", metrics.Outcome(err)).Inc()
		if err != nil {
			log.Printf("[dispatch] delayed delete message=%s channel=%s: %v", msg.ID, msg.ChannelID, err)
		}
	})
}

func (d *Dispatcher) notify(ctx context.Context, channelID string, n Notification) error {
	actx, cancel := context.WithTimeout(ctx, d.config.ActionTimeout)
	defer cancel()

	if err := d.platform.SendNotification(actx, channelID, n); err != nil {
		log.Printf("[dispatch] notify channel=%s: %v", channelID, err)
		return err
	}
	return nil
}
