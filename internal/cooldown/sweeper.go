package cooldown

import (
	"context"
	"log"
	"time"
)

// DefaultSweepInterval is how often StartSweeper reclaims expired records.
const DefaultSweepInterval = 10 * time.Minute

// StartSweeper periodically drops records older than window from store until
// ctx is cancelled. It blocks; run it in its own goroutine.
func StartSweeper(ctx context.Context, store *MemoryStore, window, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[cooldown] sweeper stopped")
			return
		case now := <-ticker.C:
			if removed := store.Sweep(now, window); removed > 0 {
				log.Printf("[cooldown] sweep: removed %d expired records (%d remain)", removed, store.Len())
			}
		}
	}
}
