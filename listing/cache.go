package listing

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"subgate/config"
	"subgate/remote"
)

// entry is one tenant's memoized listing. files is never mutated after the
// entry is stored; concurrent readers share the slice.
type entry struct {
	at    time.Time
	files []remote.File
}

// Cache memoizes per-tenant directory listings for a short TTL so repeated
// subtitle queries do not hammer the remote. A failed or timed-out
// traversal still stores its (possibly empty) partial result: a broken
// remote is retried no sooner than the TTL.
type Cache struct {
	mu    sync.RWMutex
	items map[string]*entry
	ttl   time.Duration
	log   zerolog.Logger
}

func NewCache(log zerolog.Logger) *Cache {
	c := &Cache{
		items: make(map[string]*entry),
		ttl:   config.ListingTTL,
		log:   log.With().Str("component", "listing").Logger(),
	}
	go c.startCleanup(5 * time.Minute)
	return c
}

// ListFiles returns the tenant's subtitle files, from cache when fresh,
// otherwise via a live traversal bounded by the traversal budget. Whatever
// the traversal collected by the bound is accepted as final and cached.
func (c *Cache) ListFiles(ctx context.Context, key string, src remote.Source) []remote.File {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()
	if ok && time.Since(e.at) < c.ttl {
		return e.files
	}

	started := time.Now()
	files := c.traverse(ctx, key, src, started)

	c.mu.Lock()
	c.items[key] = &entry{at: started, files: files}
	c.mu.Unlock()
	return files
}

func (c *Cache) traverse(ctx context.Context, key string, src remote.Source, started time.Time) []remote.File {
	ctx, cancel := context.WithTimeout(ctx, config.TraversalTimeout)
	defer cancel()

	conn, err := src.Connect(ctx)
	if err != nil {
		c.log.Warn().Err(err).Str("tenant", key).Msg("remote connect failed")
		return []remote.File{}
	}
	defer conn.Close()

	// Force-close when the budget fires so an in-flight listing call
	// aborts instead of holding the traversal past the bound. Close is
	// idempotent, so racing the deferred close is fine.
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	files := remote.Walk(ctx, conn, src.BaseRef(), config.MaxDepth)
	c.log.Debug().Str("tenant", key).Int("files", len(files)).
		Dur("took", time.Since(started)).Msg("traversal done")
	return files
}

func (c *Cache) startCleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		c.cleanup()
	}
}

func (c *Cache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.items {
		if time.Since(e.at) >= c.ttl {
			delete(c.items, key)
		}
	}
}

// Size reports how many tenants currently have a cached listing.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
