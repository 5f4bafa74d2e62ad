package probe

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const defaultCacheTTL = 5 * time.Minute

type cacheEntry struct {
	res      *Result
	probedAt time.Time
}

// Cached wraps a Prober and remembers results per path for a TTL. It is safe
// for concurrent use by the HTTP server and the watcher.
type Cached struct {
	prober Prober
	ttl    time.Duration
	logger *slog.Logger

	mu      sync.RWMutex
	entries map[string]cacheEntry
}

// NewCached creates a caching wrapper around p.
func NewCached(p Prober, logger *slog.Logger) *Cached {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Cached{
		prober:  p,
		ttl:     defaultCacheTTL,
		logger:  logger,
		entries: make(map[string]cacheEntry),
	}
}

// Probe returns a cached result if fresh, otherwise probes again. Errors are
// not cached.
func (c *Cached) Probe(ctx context.Context, path string) (*Result, error) {
	c.mu.RLock()
	e, ok := c.entries[path]
	c.mu.RUnlock()
	if ok && time.Since(e.probedAt) < c.ttl {
		return e.res, nil
	}

	res, err := c.prober.Probe(ctx, path)
	if err != nil {
		c.logger.Warn("probe failed", "path", path, "error", err)
		return nil, err
	}

	c.mu.Lock()
	c.entries[path] = cacheEntry{res: res, probedAt: time.Now()}
	c.mu.Unlock()
	return res, nil
}

// Dimensions returns the pixel size of the first video stream.
func (c *Cached) Dimensions(ctx context.Context, path string) (int, int, error) {
	return dimensions(ctx, c, path)
}

// Invalidate drops every cached result.
func (c *Cached) Invalidate() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}
