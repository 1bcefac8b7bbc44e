package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/chengzr01/jobscout/internal/storage"
)

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Saver receives parsed listings. Implemented by storage.Store.
type Saver interface {
	SaveJob(j storage.Job) error
}

// Crawler walks public careers sites page by page and inserts parsed
// listings into the catalog.
type Crawler struct {
	saver     Saver
	limiter   *rate.Limiter
	userAgent string
	logger    *slog.Logger
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithRateLimit overrides the default 1 request/second page fetch limit.
func WithRateLimit(l *rate.Limiter) Option {
	return func(c *Crawler) { c.limiter = l }
}

// WithUserAgent overrides the User-Agent header sent with page fetches.
func WithUserAgent(ua string) Option {
	return func(c *Crawler) { c.userAgent = ua }
}

// New creates a Crawler writing into saver.
func New(saver Saver, opts ...Option) *Crawler {
	c := &Crawler{
		saver:     saver,
		limiter:   rate.NewLimiter(rate.Limit(1), 1),
		userAgent: defaultUserAgent,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run dispatches one crawl per URL concurrently and returns the total
// number of listings inserted. Page numbering is inclusive; endPage <= 0
// means "until the site has no next page".
func (c *Crawler) Run(ctx context.Context, urls []string, startPage, endPage int) (int, error) {
	var total atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	for _, url := range urls {
		g.Go(func() error {
			n, err := c.crawlOne(ctx, url, startPage, endPage)
			total.Add(int64(n))
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return int(total.Load()), err
	}
	return int(total.Load()), nil
}

// crawlOne routes a URL to the site-specific walker.
func (c *Crawler) crawlOne(ctx context.Context, url string, startPage, endPage int) (int, error) {
	switch {
	case isGoogleCareers(url):
		return c.crawlGoogleCareers(ctx, url, startPage, endPage)
	default:
		return 0, fmt.Errorf("no crawler registered for %s", url)
	}
}
