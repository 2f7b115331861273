// Package config reads the bot configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/whisper/modbot/internal/command"
	"github.com/whisper/modbot/internal/cooldown"
	"github.com/whisper/modbot/internal/dispatch"
	"github.com/whisper/modbot/internal/moderation"
)

// Cooldown store backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// ErrMissingToken is returned when DISCORD_BOT_TOKEN is unset.
var ErrMissingToken = errors.New("config: missing DISCORD_BOT_TOKEN")

// Config is the full process configuration.
type Config struct {
	Token               string
	Dispatch            dispatch.Config
	CooldownWindow      time.Duration
	SimilarityThreshold float64
	LexiconFile         string // empty uses the built-in lexicon
	AllowListFile       string // empty uses the built-in allow-list
	CommandPrefix       string
	CooldownBackend     string // BackendMemory or BackendRedis
	RedisAddr           string
	NATSURL             string // empty disables audit publishing
	AuditLog            bool   // log every violation event received from NATS
	ListenAddr          string
}

// Default returns the configuration used when no variables are set.
func Default() Config {
	return Config{
		Dispatch:            dispatch.DefaultConfig(),
		CooldownWindow:      cooldown.DefaultWindow,
		SimilarityThreshold: moderation.DefaultThreshold,
		CommandPrefix:       command.DefaultPrefix,
		CooldownBackend:     BackendMemory,
		RedisAddr:           "localhost:6379",
		ListenAddr:          ":10000",
	}
}

// FromEnv loads the configuration from the process environment.
func FromEnv() (Config, error) {
	return Load(os.LookupEnv)
}

// Load builds a Config from defaults overridden by lookup.
func Load(lookup func(string) (string, bool)) (Config, error) {
	c := Default()

	get := func(name string) (string, bool) {
		v, ok := lookup(name)
		return v, ok && v != ""
	}
	duration := func(name string, dst *time.Duration) error {
		v, ok := get(name)
		if !ok {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return fmt.Errorf("config: %s: invalid duration %q", name, v)
		}
		*dst = d
		return nil
	}

	v, ok := get("DISCORD_BOT_TOKEN")
	if !ok {
		return c, ErrMissingToken
	}
	c.Token = v

	if v, ok := get("QUARANTINE_CHANNEL_ID"); ok {
		c.Dispatch.QuarantineChannelID = v
	}
	if err := duration("COOLDOWN_WINDOW", &c.CooldownWindow); err != nil {
		return c, err
	}
	if err := duration("MUTE_DURATION", &c.Dispatch.MuteDuration); err != nil {
		return c, err
	}
	if err := duration("QUARANTINE_DELAY", &c.Dispatch.QuarantineDelay); err != nil {
		return c, err
	}
	if v, ok := get("SIMILARITY_THRESHOLD"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 || f > 1 {
			return c, fmt.Errorf("config: SIMILARITY_THRESHOLD: invalid ratio %q", v)
		}
		c.SimilarityThreshold = f
	}
	if v, ok := get("LEXICON_FILE"); ok {
		c.LexiconFile = v
	}
	if v, ok := get("ALLOWLIST_FILE"); ok {
		c.AllowListFile = v
	}
	if v, ok := get("COMMAND_PREFIX"); ok {
		c.CommandPrefix = v
	}
	if v, ok := get("COOLDOWN_BACKEND"); ok {
		if v != BackendMemory && v != BackendRedis {
			return c, fmt.Errorf("config: COOLDOWN_BACKEND: unknown backend %q", v)
		}
		c.CooldownBackend = v
	}
	if v, ok := get("REDIS_ADDR"); ok {
		c.RedisAddr = v
	}
	if v, ok := get("NATS_URL"); ok {
		c.NATSURL = v
	}
	if v, ok := get("AUDIT_LOG"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return c, fmt.Errorf("config: AUDIT_LOG: invalid bool %q", v)
		}
		c.AuditLog = b
	}
	if v, ok := get("LISTEN_ADDR"); ok {
		c.ListenAddr = v
	} else if port, ok := get("PORT"); ok {
		c.ListenAddr = ":" + port
	}

	return c, nil
}
