// Package cache provides a two-tier cache: a fast in-memory L1 with strict
// LRU eviction and TTL expiry, backed by an optional persistent L2 behind
// the kv.Store boundary.
//
// Reads check L1 first and fall back to L2; an L2 hit is promoted into L1.
// Writes always land in L1 and are written through to L2 unless marked
// volatile. Statistics are updated under the same lock as the operation, so
// observed counters are deterministic.
package cache

import (
	"container/list"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fundexplorer/datakit/kv"
	"github.com/fundexplorer/datakit/logger"
	"github.com/fundexplorer/datakit/routine"
	"go.uber.org/zap"
)

// Entry is the bookkeeping attached to each cached value.
type Entry struct {
	Key          string
	Value        any
	CreatedAt    time.Time
	ExpiresAt    time.Time // zero => no TTL
	SizeEstimate int
	HitCount     int64
}

// expired reports whether the entry is past its TTL at the given instant.
func (e *Entry) expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

// MultiLevel is the two-tier cache. All exported methods are safe for
// concurrent use.
type MultiLevel struct {
	logger logger.Logger
	cfg    *Config
	l2     kv.Store // nil => memory-only

	mu      sync.Mutex
	ll      *list.List // front = most recently used
	index   map[string]*list.Element
	maxSize int
	stats   counters

	cancel    context.CancelFunc
	runner    routine.Runner
	startOnce sync.Once
	stopOnce  sync.Once

	// now is swappable for TTL tests
	now func() time.Time
}

// New creates a multi-level cache. l2 may be nil for a memory-only cache.
func New(log logger.Logger, cfg *Config, l2 kv.Store) (*MultiLevel, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	} else {
		defaults := DefaultConfig()
		if cfg.MaxSize == 0 {
			cfg.MaxSize = defaults.MaxSize
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &MultiLevel{
		logger:  log,
		cfg:     cfg,
		l2:      l2,
		ll:      list.New(),
		index:   make(map[string]*list.Element),
		maxSize: cfg.MaxSize,
		runner:  routine.New(log),
		now:     time.Now,
	}, nil
}

// Start launches the background janitor that sweeps expired entries and
// applies the adaptive sizing policy. It is a no-op when SweepInterval is
// zero. The cache is fully usable without Start; expired entries are then
// evicted lazily on access only.
func (c *MultiLevel) Start() {
	if c.cfg.SweepInterval <= 0 {
		return
	}
	c.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		c.cancel = cancel
		c.runner.GoNamedWithContext(ctx, "cache-janitor", func(ctx context.Context) {
			ticker := time.NewTicker(c.cfg.SweepInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					c.sweep()
				case <-ctx.Done():
					return
				}
			}
		})
	})
}

// Stop halts the janitor. Safe to call multiple times.
func (c *MultiLevel) Stop() {
	c.stopOnce.Do(func() {
		if c.cancel != nil {
			c.cancel()
		}
		c.runner.Wait()
	})
}

// Get retrieves the value stored under key. A fresh L1 hit is returned
// directly; on miss the persistent tier is consulted and a hit there is
// promoted into L1. Expired entries count as misses and are evicted.
// A value in L2 that fails to decode is dropped, counted as corruption and
// reported as a miss; the failure is confined to that entry.
func Get[T any](ctx context.Context, c *MultiLevel, key string, codec Codec[T]) (T, bool, error) {
	var zero T

	c.mu.Lock()
	if el, ok := c.index[key]; ok {
		e := el.Value.(*Entry)
		if e.expired(c.now()) {
			c.removeElementLocked(el)
			c.stats.expirations++
			c.stats.misses++
			c.mu.Unlock()
			return zero, false, nil
		}
		v, ok := e.Value.(T)
		if !ok {
			c.mu.Unlock()
			return zero, false, ErrTypeMismatch(key)
		}
		e.HitCount++
		c.ll.MoveToFront(el)
		c.stats.hits++
		c.mu.Unlock()
		return v, true, nil
	}
	c.mu.Unlock()

	if c.l2 == nil {
		c.miss()
		return zero, false, nil
	}

	raw, err := c.l2.Get(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		c.miss()
		return zero, false, nil
	}
	if err != nil {
		c.miss()
		return zero, false, err
	}

	v, err := codec.Decode(raw)
	if err != nil {
		// corrupted entry: evict and treat as a miss
		c.mu.Lock()
		c.stats.corruptions++
		c.stats.misses++
		c.mu.Unlock()
		if delErr := c.l2.Delete(ctx, key); delErr != nil {
			c.logger.Warn("failed to drop corrupted entry", zap.String("key", key), zap.Error(delErr))
		}
		c.logger.Warn("corrupted cache entry evicted",
			zap.String("key", key),
			zap.Error(ErrCorruptedEntry(key, err)),
		)
		return zero, false, nil
	}

	// cache warming: promote into L1
	c.mu.Lock()
	c.stats.hits++
	c.insertLocked(key, v, len(raw), c.cfg.PromoteTTL)
	c.mu.Unlock()

	return v, true, nil
}

// GetStale is like Get but will also return an expired L1 entry, flagged
// stale, without evicting it. The coordinator uses this for degraded-mode
// fallback when the remote source is unavailable.
func GetStale[T any](ctx context.Context, c *MultiLevel, key string, codec Codec[T]) (value T, stale bool, ok bool, err error) {
	var zero T

	c.mu.Lock()
	if el, found := c.index[key]; found {
		e := el.Value.(*Entry)
		v, castOK := e.Value.(T)
		if !castOK {
			c.mu.Unlock()
			return zero, false, false, ErrTypeMismatch(key)
		}
		isStale := e.expired(c.now())
		if !isStale {
			e.HitCount++
			c.ll.MoveToFront(el)
			c.stats.hits++
		}
		c.mu.Unlock()
		return v, isStale, true, nil
	}
	c.mu.Unlock()

	if c.l2 == nil {
		return zero, false, false, nil
	}

	raw, l2err := c.l2.Get(ctx, key)
	if l2err != nil {
		return zero, false, false, nil
	}
	v, decErr := codec.Decode(raw)
	if decErr != nil {
		return zero, false, false, nil
	}
	return v, false, true, nil
}

// Put stores value under key. It always writes L1 and writes through to L2
// unless the Volatile option is given. A write-through failure is logged
// and does not fail the put.
func Put[T any](ctx context.Context, c *MultiLevel, key string, value T, codec Codec[T], opts ...PutOption) error {
	var po putOptions
	for _, opt := range opts {
		opt(&po)
	}

	encoded, err := codec.Encode(value)
	if err != nil {
		return ErrEncode(key, err)
	}

	c.mu.Lock()
	c.insertLocked(key, value, len(encoded), po.ttl)
	c.mu.Unlock()

	if c.l2 != nil && !po.volatileOnly {
		if err := c.l2.Put(ctx, key, encoded, po.ttl); err != nil {
			c.logger.Warn("persistent tier write failed",
				zap.String("key", key),
				zap.Error(err),
			)
		}
	}
	return nil
}

// Remove deletes key from both tiers.
func (c *MultiLevel) Remove(ctx context.Context, key string) error {
	c.mu.Lock()
	if el, ok := c.index[key]; ok {
		c.removeElementLocked(el)
	}
	c.mu.Unlock()

	if c.l2 != nil {
		return c.l2.Delete(ctx, key)
	}
	return nil
}

// Clear empties the in-memory tier. The persistent tier is left intact; its
// entries age out by TTL or are replaced on the next write.
func (c *MultiLevel) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	c.index = make(map[string]*list.Element)
}

// Resize changes the L1 capacity, evicting least-recently-used entries if
// the cache currently holds more than the new capacity.
func (c *MultiLevel) Resize(maxSize int) {
	if maxSize < 1 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.maxSize = maxSize
	c.evictOverflowLocked()
}

// Stats returns a snapshot of the cache counters.
func (c *MultiLevel) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats.snapshot(c.ll.Len(), c.maxSize)
}

// miss records a miss outside of a held lock.
func (c *MultiLevel) miss() {
	c.mu.Lock()
	c.stats.misses++
	c.mu.Unlock()
}

// insertLocked adds or replaces an entry and evicts past capacity.
// Caller holds c.mu.
func (c *MultiLevel) insertLocked(key string, value any, size int, ttl time.Duration) {
	now := c.now()
	e := &Entry{
		Key:          key,
		Value:        value,
		CreatedAt:    now,
		SizeEstimate: size,
	}
	if ttl > 0 {
		e.ExpiresAt = now.Add(ttl)
	}

	if el, ok := c.index[key]; ok {
		el.Value = e
		c.ll.MoveToFront(el)
		return
	}
	c.index[key] = c.ll.PushFront(e)
	c.evictOverflowLocked()
}

// evictOverflowLocked evicts least-recently-used entries until the cache
// fits its capacity. Caller holds c.mu.
func (c *MultiLevel) evictOverflowLocked() {
	for c.ll.Len() > c.maxSize {
		back := c.ll.Back()
		if back == nil {
			return
		}
		c.removeElementLocked(back)
		c.stats.evictions++
	}
}

// removeElementLocked unlinks an element. Caller holds c.mu.
func (c *MultiLevel) removeElementLocked(el *list.Element) {
	e := el.Value.(*Entry)
	c.ll.Remove(el)
	delete(c.index, e.Key)
}

// sweep drops expired entries and applies the adaptive sizing policy.
func (c *MultiLevel) sweep() {
	c.mu.Lock()
	now := c.now()
	var next *list.Element
	for el := c.ll.Front(); el != nil; el = next {
		next = el.Next()
		if el.Value.(*Entry).expired(now) {
			c.removeElementLocked(el)
			c.stats.expirations++
		}
	}
	snapshot := c.stats.snapshot(c.ll.Len(), c.maxSize)
	c.mu.Unlock()

	if c.cfg.Sizer == nil {
		return
	}
	if target := c.cfg.Sizer(snapshot); target > 0 && target != snapshot.MaxSize {
		c.logger.Debug("adaptive resize",
			zap.Int("from", snapshot.MaxSize),
			zap.Int("to", target),
			zap.Float64("hit_rate", snapshot.HitRate()),
		)
		c.Resize(target)
	}
}

// PutOption customises a single put.
type PutOption func(*putOptions)

type putOptions struct {
	ttl          time.Duration
	volatileOnly bool
}

// WithTTL sets the entry's time-to-live. Zero means no expiry.
func WithTTL(ttl time.Duration) PutOption {
	return func(o *putOptions) { o.ttl = ttl }
}

// Volatile keeps the entry out of the persistent tier.
func Volatile() PutOption {
	return func(o *putOptions) { o.volatileOnly = true }
}
