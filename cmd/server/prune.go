package main

import (
	"context"
	"time"

	"github.com/cosmos-link/code-agent/internal/session"
	"github.com/cosmos-link/code-agent/internal/task"
	"github.com/rs/zerolog"
)

// pruneSessions drops idle sessions every ttl/2 until ctx is done
func pruneSessions(ctx context.Context, sessions *session.Manager, ttl time.Duration, log zerolog.Logger) {
	pruneEvery(ctx, ttl/2, func() {
		if n := sessions.Prune(); n > 0 {
			log.Debug().Int("removed", n).Int("live", sessions.Len()).Msg("pruned idle sessions")
		}
	})
}

// pruneTasks drops finished tasks older than ttl every ttl/2 until ctx is done
func pruneTasks(ctx context.Context, tasks *task.Manager, ttl time.Duration, log zerolog.Logger) {
	pruneEvery(ctx, ttl/2, func() {
		if n := tasks.Prune(ttl); n > 0 {
			log.Debug().Int("removed", n).Int("live", tasks.Len()).Msg("pruned finished tasks")
		}
	})
}

func pruneEvery(ctx context.Context, interval time.Duration, prune func()) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			prune()
		}
	}
}
