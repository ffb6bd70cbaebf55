package service

import (
	"context"
	"time"

	"chatwoot-unipile-bridge/backend/pkg/logger"
	"chatwoot-unipile-bridge/backend/pkg/metrics"
	"chatwoot-unipile-bridge/backend/relay/dedupe"
)

// Sweeper periodically deletes expired dedupe entries. Correctness never
// depends on it; admission treats expired rows as absent regardless.
type Sweeper struct {
	cache    dedupe.Cache
	interval time.Duration
	log      *logger.Logger
}

func NewSweeper(cache dedupe.Cache, interval time.Duration, log *logger.Logger) *Sweeper {
	return &Sweeper{cache: cache, interval: interval, log: log}
}

// Run blocks until ctx is cancelled, sweeping once per interval.
func (s *Sweeper) Run(ctx context.Context) {
	if s.interval <= 0 {
		return
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := s.cache.Sweep(ctx)
			if err != nil {
				s.log.Warn("Dedupe sweep failed", "error", err)
				continue
			}
			if deleted > 0 {
				metrics.DedupeSweepDeleted.Add(float64(deleted))
				s.log.Info("Dedupe sweep completed", "deleted", deleted)
			}
		}
	}
}
