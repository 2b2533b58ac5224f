package session

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// DefaultSweepInterval is how often a [Janitor] expires sessions.
const DefaultSweepInterval = time.Minute

// Janitor periodically removes expired sessions from a [Store].
type Janitor struct {
	store    Store
	interval time.Duration
	logger   *log.Logger
	now      func() time.Time
}

// NewJanitor creates a Janitor sweeping store every interval.
func NewJanitor(store Store, interval time.Duration, logger *log.Logger) *Janitor {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Janitor{store: store, interval: interval, logger: logger, now: time.Now}
}

// Run sweeps until ctx is done.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.Sweep(ctx)
		}
	}
}

// Sweep expires sessions once and returns how many were removed.
func (j *Janitor) Sweep(ctx context.Context) int {
	n, err := j.store.Expire(ctx, j.now())
	if err != nil {
		j.logger.Error("failed to expire sessions", "err", err)
		return 0
	}
	if n > 0 {
		j.logger.Debug("expired sessions", "count", n)
	}
	return n
}
