// Package cache implements the content-addressed multi-tier cache used to
// skip repeated extraction-oracle calls: a fast in-process L1 map plus an
// optional persistent L2 store. The cache is a performance optimization
// only; a cold cache must produce the same pipeline output as a warm one.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/portfolio-labs/extraction-pipeline/constants"
)

// Config holds cache tuning.
type Config struct {
	TTL          time.Duration
	MaxL1Entries int
	StoreTimeout time.Duration
}

type l1Entry struct {
	value     []byte
	expiresAt time.Time
}

// MultiTier is the two-tier cache. The L1 map is the only structure in the
// pipeline mutated concurrently by chunk workers; all access goes through
// the mutex.
type MultiTier struct {
	cfg    Config
	store  Store
	logger *slog.Logger

	mu sync.Mutex
	l1 map[string]l1Entry

	droppedWrites atomic.Int64

	// now is swapped in tests to control expiry.
	now func() time.Time
}

// New builds a MultiTier cache. store may be nil for L1-only operation.
func New(cfg Config, store Store, logger *slog.Logger) *MultiTier {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = constants.CacheTTL
	}
	if cfg.MaxL1Entries <= 0 {
		cfg.MaxL1Entries = constants.L1MaxEntries
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 3 * time.Second
	}
	return &MultiTier{
		cfg:    cfg,
		store:  store,
		logger: logger,
		l1:     make(map[string]l1Entry),
		now:    time.Now,
	}
}

// Key derives the stable content-addressed cache key.
func Key(namespace, content string) string {
	h := sha256.New()
	h.Write([]byte(namespace))
	h.Write([]byte{0})
	h.Write([]byte(content))
	return hex.EncodeToString(h.Sum(nil))
}

// Get checks L1, then the store. A store hit repopulates L1 with the
// entry's remaining TTL so warm and cold caches converge on the same
// expiry. Store errors degrade to a miss, logged, never surfaced.
func (c *MultiTier) Get(ctx context.Context, namespace, content string) ([]byte, bool) {
	key := Key(namespace, content)
	now := c.now()

	c.mu.Lock()
	if e, ok := c.l1[key]; ok {
		if now.Before(e.expiresAt) {
			c.mu.Unlock()
			return e.value, true
		}
		delete(c.l1, key)
	}
	c.mu.Unlock()

	if c.store == nil {
		return nil, false
	}

	sctx, cancel := context.WithTimeout(ctx, c.cfg.StoreTimeout)
	defer cancel()
	value, expiresAt, err := c.store.Get(sctx, key)
	if err != nil {
		if err != ErrMiss {
			c.logger.Warn("cache.l2.get_failed", "key", key[:12], "error", err)
		}
		return nil, false
	}
	if !now.Before(expiresAt) {
		return nil, false
	}

	// Promotion.
	c.mu.Lock()
	c.l1[key] = l1Entry{value: value, expiresAt: expiresAt}
	c.sweepLocked(now)
	c.mu.Unlock()
	return value, true
}

// Set writes L1 synchronously and the store asynchronously; a failed store
// write is logged and counted, never returned to the caller.
func (c *MultiTier) Set(ctx context.Context, namespace, content string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.cfg.TTL
	}
	key := Key(namespace, content)
	expiresAt := c.now().Add(ttl)

	c.mu.Lock()
	c.l1[key] = l1Entry{value: value, expiresAt: expiresAt}
	c.sweepLocked(c.now())
	c.mu.Unlock()

	if c.store == nil {
		return
	}
	go func() {
		sctx, cancel := context.WithTimeout(context.Background(), c.cfg.StoreTimeout)
		defer cancel()
		if err := c.store.Set(sctx, key, value, expiresAt); err != nil {
			c.droppedWrites.Add(1)
			c.logger.Warn("cache.l2.set_failed",
				"key", key[:12], "dropped_total", c.droppedWrites.Load(), "error", err)
		}
	}()
}

// DroppedWrites reports how many fire-and-forget store writes failed.
func (c *MultiTier) DroppedWrites() int64 {
	return c.droppedWrites.Load()
}

// sweepLocked evicts expired entries once the map exceeds its bound.
// Caller holds c.mu.
func (c *MultiTier) sweepLocked(now time.Time) {
	if len(c.l1) <= c.cfg.MaxL1Entries {
		return
	}
	for k, e := range c.l1 {
		if !now.Before(e.expiresAt) {
			delete(c.l1, k)
		}
	}
}
