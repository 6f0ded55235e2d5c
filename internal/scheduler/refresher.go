package scheduler

import (
	"context"
	"time"

	"github.com/credlink/tokenvault/log"
)

// BulkRefresher is the slice of the lifecycle engine the scheduler drives.
type BulkRefresher interface {
	RefreshAllTokens(ctx context.Context, skipFailed bool) error
}

// Refresher periodically runs a bulk token refresh pass. Passes run
// sequentially; a pass still in flight when the ticker fires delays the
// next one rather than overlapping it.
type Refresher struct {
	engine     BulkRefresher
	interval   time.Duration
	skipFailed bool
	logger     log.Logger
}

func NewRefresher(engine BulkRefresher, interval time.Duration, skipFailed bool, logger log.Logger) *Refresher {
	return &Refresher{
		engine:     engine,
		interval:   interval,
		skipFailed: skipFailed,
		logger:     logger,
	}
}

// Run executes refresh passes until the context is cancelled. The first
// pass runs immediately. Pass failures are logged, not returned; the
// loop only stops on cancellation.
func (r *Refresher) Run(ctx context.Context) {
	r.logger.Info(ctx, "token refresh scheduler started", map[string]interface{}{
		"interval":    r.interval.String(),
		"skip_failed": r.skipFailed,
	})

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.runPass(ctx)
	for {
		select {
		case <-ticker.C:
			r.runPass(ctx)
		case <-ctx.Done():
			r.logger.Info(ctx, "token refresh scheduler stopped")
			return
		}
	}
}

func (r *Refresher) runPass(ctx context.Context) {
	start := time.Now()
	if err := r.engine.RefreshAllTokens(ctx, r.skipFailed); err != nil {
		r.logger.Error(ctx, "bulk token refresh pass failed", err)
		return
	}
	r.logger.Info(ctx, "bulk token refresh pass completed", map[string]interface{}{
		"duration": time.Since(start).String(),
	})
}
