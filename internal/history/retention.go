package history

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jusunglee/hanjahangul/internal/db"
	"github.com/jusunglee/hanjahangul/internal/metrics"
)

// Cleaner deletes conversions older than Retention every Interval.
type Cleaner struct {
	log       *slog.Logger
	repo      db.Repository
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
}

func NewCleaner(log *slog.Logger, repo db.Repository, retention, interval time.Duration) *Cleaner {
	return &Cleaner{
		log:       log,
		repo:      repo,
		retention: retention,
		interval:  interval,
		now:       time.Now,
	}
}

// RunOnce performs a single retention pass and returns the rows deleted.
func (c *Cleaner) RunOnce(ctx context.Context) (int64, error) {
	start := time.Now()
	defer func() { metrics.RetentionCycleDuration.Observe(time.Since(start).Seconds()) }()

	cutoff := c.now().Add(-c.retention)
	deleted, err := c.repo.DeleteOldConversions(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting conversions before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	metrics.RetentionDeletedTotal.Add(float64(deleted))
	return deleted, nil
}

// Run loops until ctx is done.
func (c *Cleaner) Run(ctx context.Context) {
	for ctx.Err() == nil {
		cleanupCtx, cancel := context.WithTimeout(ctx, time.Minute)
		deleted, err := c.RunOnce(cleanupCtx)
		cancel()
		if err != nil {
			c.log.ErrorContext(ctx, "retention cycle", "error", err)
		} else {
			c.log.InfoContext(ctx, "retention cycle", "deleted", deleted, "retention", c.retention.String())
		}
		sleepWithContext(ctx, c.interval)
	}
	c.log.InfoContext(ctx, "context done, exiting cleaner")
}

func sleepWithContext(ctx context.Context, dur time.Duration) {
	timer := time.NewTimer(dur)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
