// Package cooldown tracks per-user, per-policy warnings and decides whether a
// violation earns a warning or a mute.
//
// Each (user, policy) pair is a two-state machine:
//
//	Clean  --violation-->                    Warned (record timestamp, warn)
//	Warned --violation after the window-->   Warned (new timestamp, warn)
//	Warned --violation within the window-->  Clean  (clear timestamp, mute)
//
// Stores perform the read-check-write for one key atomically, so two
// simultaneous violations from the same user produce one warning and one
// mute, never two warnings.
package cooldown

import (
	"context"
	"log"
	"time"
)

// DefaultWindow is how long a warning stays active.
const DefaultWindow = 1 * time.Hour

// Policy identifies the rule that was broken.
type Policy string

const (
	PolicyLink    Policy = "link"
	PolicyBadWord Policy = "badword"
)

// Policies lists every policy tracked.
var Policies = []Policy{PolicyLink, PolicyBadWord}

// Key identifies a cooldown record.
type Key struct {
	UserID string
	Policy Policy
}

// Decision is the enforcement action chosen for a violation.
type Decision int

const (
	Warn Decision = iota + 1
	Mute
)

func (d Decision) String() string {
	switch d {
	case Warn:
		return "warn"
	case Mute:
		return "mute"
	default:
		return "unknown"
	}
}

// Store holds cooldown records.
type Store interface {
	// Escalate applies one violation at time now to the record for key and
	// returns the resulting decision. It must be atomic per key.
	Escalate(ctx context.Context, key Key, now time.Time, window time.Duration) (Decision, error)

	// LastWarning returns the timestamp of the active warning for key, if any.
	LastWarning(ctx context.Context, key Key) (time.Time, bool, error)

	// Reset clears the record for key.
	Reset(ctx context.Context, key Key) error
}

// Tracker applies the escalation window on top of a Store.
type Tracker struct {
	store  Store
	window time.Duration
	now    func() time.Time
}

// NewTracker creates a Tracker over store. A non-positive window falls back
// to DefaultWindow.
func NewTracker(store Store, window time.Duration) *Tracker {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Tracker{store: store, window: window, now: time.Now}
}

// SetClock replaces the time source. Intended for tests.
func (t *Tracker) SetClock(now func() time.Time) {
	t.now = now
}

// Window returns the escalation window.
func (t *Tracker) Window() time.Duration {
	return t.window
}

// Record registers a violation for key and returns whether to warn or mute.
//
// Store errors fail open to Warn: a user is never muted on a record the
// tracker could not read. The error is still returned so callers can log it.
func (t *Tracker) Record(ctx context.Context, key Key) (Decision, error) {
	decision, err := t.store.Escalate(ctx, key, t.now(), t.window)
	if err != nil {
		log.Printf("[cooldown] escalate user=%s policy=%s: %v (failing open)", key.UserID, key.Policy, err)
		return Warn, err
	}
	return decision, nil
}

// Active reports whether key currently has a warning inside the window.
func (t *Tracker) Active(ctx context.Context, key Key) (bool, error) {
	last, ok, err := t.store.LastWarning(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	return !t.now().After(last.Add(t.window)), nil
}

// Reset clears every policy record for userID.
func (t *Tracker) Reset(ctx context.Context, userID string) error {
	for _, p := range Policies {
		if err := t.store.Reset(ctx, Key{UserID: userID, Policy: p}); err != nil {
			return err
		}
	}
	return nil
}

// decide is the transition shared by the stores. It returns the decision and
// whether the record should be kept with a fresh timestamp.
func decide(last time.Time, exists bool, now time.Time, window time.Duration) (Decision, bool) {
	if exists && !now.After(last.Add(window)) {
		return Mute, false
	}
	return Warn, true
}
