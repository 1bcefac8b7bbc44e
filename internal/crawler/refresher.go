package crawler

import (
	"context"
	"log/slog"
	"time"
)

// Runner runs one crawl pass over a set of sources. Implemented by Crawler.
type Runner interface {
	Run(ctx context.Context, urls []string, startPage, endPage int) (int, error)
}

// Refresher re-crawls the configured sources on a fixed interval so the
// catalog tracks the live listings.
type Refresher struct {
	runner   Runner
	sources  []string
	interval time.Duration
	logger   *slog.Logger
}

// NewRefresher creates a Refresher. If interval is <= 0, it defaults to 24h.
func NewRefresher(runner Runner, sources []string, interval time.Duration) *Refresher {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &Refresher{
		runner:   runner,
		sources:  sources,
		interval: interval,
		logger:   slog.Default(),
	}
}

// Run crawls once immediately, then on every interval tick until ctx is
// cancelled.
func (r *Refresher) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single crawl pass. Failures are logged, not returned;
// the next tick retries.
func (r *Refresher) RunOnce(ctx context.Context) {
	start := time.Now()
	total, err := r.runner.Run(ctx, r.sources, 1, 0)
	if err != nil {
		r.logger.Error("catalog refresh failed", "error", err, "stored", total)
		return
	}
	r.logger.Info("catalog refreshed", "jobs", total, "elapsed", time.Since(start))
}
