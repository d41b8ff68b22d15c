package registry

import (
	"context"
	"log/slog"
	"time"
)

// DefaultJanitorInterval is how often the janitor sweeps the registry.
const DefaultJanitorInterval = 2 * time.Minute

// Janitor periodically reclaims stale terminal records and force-fails
// requests stuck too long in a non-terminal state.
type Janitor struct {
	registry *Registry
	interval time.Duration
	logger   *slog.Logger
}

// NewJanitor creates a janitor sweeping the registry at the given interval.
// A non-positive interval falls back to the default.
func NewJanitor(reg *Registry, interval time.Duration, logger *slog.Logger) *Janitor {
	if interval <= 0 {
		interval = DefaultJanitorInterval
	}
	return &Janitor{
		registry: reg,
		interval: interval,
		logger:   logger,
	}
}

// Run sweeps on a fixed interval until ctx is cancelled. A failure inside
// one pass is logged and never kills the loop.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.sweep()
		}
	}
}

// sweep runs one janitor pass under a recover so a bug in the sweep can
// only cost a single pass.
func (j *Janitor) sweep() {
	defer func() {
		if r := recover(); r != nil {
			j.logger.Error("janitor pass panicked", "panic", r)
		}
	}()

	if ids := j.registry.FailTimedOut(); len(ids) > 0 {
		j.logger.Warn("force-failed timed-out requests", "request_ids", ids)
	}
	if removed := j.registry.EvictStale(); removed > 0 {
		j.logger.Info("evicted stale terminal requests", "count", removed)
	}
}
