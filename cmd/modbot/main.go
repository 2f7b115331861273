package main

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/whisper/modbot/internal/command"
	"github.com/whisper/modbot/internal/config"
	"github.com/whisper/modbot/internal/cooldown"
	"github.com/whisper/modbot/internal/discord"
	"github.com/whisper/modbot/internal/dispatch"
	"github.com/whisper/modbot/internal/messaging"
	"github.com/whisper/modbot/internal/moderation"
	"github.com/whisper/modbot/internal/ratelimit"
	"github.com/whisper/modbot/internal/status"
)

func main() {
	log.Println("Starting modbot...")

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("failed to read .env: %v", err)
	}

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// --- Lexicon ---
	terms := moderation.DefaultLexicon()
	if cfg.LexiconFile != "" {
		if terms, err = moderation.LoadTermsFile(cfg.LexiconFile); err != nil {
			log.Fatalf("failed to load lexicon: %v", err)
		}
	}
	allow := moderation.DefaultAllowList()
	if cfg.AllowListFile != "" {
		if allow, err = moderation.LoadTermsFile(cfg.AllowListFile); err != nil {
			log.Fatalf("failed to load allow-list: %v", err)
		}
	}
	matcher := moderation.NewMatcherWithTerms(terms, allow, cfg.SimilarityThreshold)

	statusServer := status.NewServer(cfg.ListenAddr)

	// --- Cooldown store ---
	var (
		store   cooldown.Store
		limiter command.Allower
		rdb     *redis.Client
	)
	switch cfg.CooldownBackend {
	case config.BackendRedis:
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			cancel()
			log.Fatalf("failed to connect to Redis: %v", err)
		}
		cancel()
		store = cooldown.NewRedisStore(rdb)
		limiter = ratelimit.NewLimiter(rdb)
		statusServer.AddCheck("redis", func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
	default:
		mem := cooldown.NewMemoryStore()
		go cooldown.StartSweeper(ctx, mem, cfg.CooldownWindow, cooldown.DefaultSweepInterval)
		store = mem

		memLimiter := ratelimit.NewMemoryLimiter()
		go sweepLimiter(ctx, memLimiter)
		limiter = memLimiter
	}
	tracker := cooldown.NewTracker(store, cfg.CooldownWindow)

	// --- Discord ---
	bot, err := discord.New(cfg.Token)
	if err != nil {
		log.Fatalf("failed to create discord session: %v", err)
	}

	dispatcher := dispatch.NewDispatcher(cfg.Dispatch, bot, matcher, tracker)

	router := command.NewRouter(cfg.CommandPrefix, bot)
	router.SetLimiter(limiter)
	command.RegisterBuiltins(router, tracker, matcher)
	dispatcher.SetRouter(router)

	// --- NATS audit sink (optional) ---
	var natsClient *messaging.NATSClient
	if cfg.NATSURL != "" {
		natsConfig := messaging.DefaultNATSConfig()
		natsConfig.URL = cfg.NATSURL
		natsClient, err = messaging.NewNATSClient(natsConfig)
		if err != nil {
			log.Fatalf("failed to connect to NATS: %v", err)
		}
		dispatcher.SetAuditor(natsClient)

		if cfg.AuditLog {
			if err := natsClient.SubscribeViolations(logViolation); err != nil {
				log.Fatalf("failed to subscribe to violations: %v", err)
			}
			if err := natsClient.Flush(); err != nil {
				log.Fatalf("failed to flush NATS subscription: %v", err)
			}
		}
	}

	bot.Listen(ctx, dispatcher)
	if err := bot.Open(); err != nil {
		log.Fatalf("failed to open discord gateway: %v", err)
	}

	go func() {
		if err := statusServer.Start(); err != nil {
			log.Printf("status server error: %v", err)
		}
	}()

	log.Printf("modbot running")
	log.Printf("  listen_addr:      %s", cfg.ListenAddr)
	log.Printf("  cooldown_backend: %s", cfg.CooldownBackend)
	log.Printf("  cooldown_window:  %s", cfg.CooldownWindow)
	log.Printf("  quarantine:       %q", cfg.Dispatch.QuarantineChannelID)
	log.Printf("  lexicon_terms:    %d", len(matcher.Lexicon()))
	log.Printf("  nats_url:         %q", cfg.NATSURL)
	log.Printf("  audit_log:        %v", cfg.AuditLog)

	// Graceful shutdown.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Printf("received signal %v, shutting down...", sig)

	stop()
	if err := bot.Close(); err != nil {
		log.Printf("discord close error: %v", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := statusServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("status server shutdown error: %v", err)
	}
	if natsClient != nil {
		natsClient.Close()
	}
	if rdb != nil {
		rdb.Close()
	}
}

// logViolation prints one audit line per violation event.
func logViolation(data []byte) {
	var v dispatch.Violation
	if err := json.Unmarshal(data, &v); err != nil {
		log.Printf("[audit] malformed event: %v", err)
		return
	}
	log.Printf("[audit] id=%s policy=%s action=%s user=%s guild=%s channel=%s message=%s",
		v.ID, v.Policy, v.Action, v.UserID, v.GuildID, v.ChannelID, v.MessageID)
}

// sweepLimiter drops idle command rate-limit windows until ctx is done.
func sweepLimiter(ctx context.Context, l *ratelimit.MemoryLimiter) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep(ratelimit.RuleCommand.Window)
		}
	}
}
