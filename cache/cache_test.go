package cache

import (
	"context"
	"testing"
	"time"

	"github.com/fundexplorer/datakit/kv/memstore"
	"github.com/fundexplorer/datakit/logger"
)

func newTestLogger(t *testing.T) logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "debug", Encoding: "console"})
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	return log
}

func newTestCache(t *testing.T, cfg *Config, l2 *memstore.Store) *MultiLevel {
	t.Helper()
	var store *memstore.Store
	if l2 != nil {
		store = l2
	}
	var c *MultiLevel
	var err error
	if store != nil {
		c, err = New(newTestLogger(t), cfg, store)
	} else {
		c, err = New(newTestLogger(t), cfg, nil)
	}
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	return c
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr bool
	}{
		{"valid", &Config{MaxSize: 10}, false},
		{"zero size", &Config{MaxSize: 0}, true},
		{"negative sweep", &Config{MaxSize: 10, SweepInterval: -time.Second}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPutGet_RoundTrip(t *testing.T) {
	c := newTestCache(t, nil, nil)
	ctx := context.Background()
	codec := JSONCodec[string]()

	if err := Put(ctx, c, "k", "value", codec); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, ok, err := Get(ctx, c, "k", codec)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !ok || got != "value" {
		t.Errorf("expected hit with %q, got ok=%v value=%q", "value", ok, got)
	}
}

func TestLRUEviction(t *testing.T) {
	// capacity 2: insert A, B, C => A is the least recently used, evicted
	c := newTestCache(t, &Config{MaxSize: 2}, nil)
	ctx := context.Background()
	codec := JSONCodec[string]()

	for _, k := range []string{"A", "B", "C"} {
		if err := Put(ctx, c, k, "v-"+k, codec); err != nil {
			t.Fatalf("Put(%s) failed: %v", k, err)
		}
	}

	if _, ok, _ := Get(ctx, c, "A", codec); ok {
		t.Error("expected A to be evicted")
	}
	for _, k := range []string{"B", "C"} {
		if _, ok, _ := Get(ctx, c, k, codec); !ok {
			t.Errorf("expected %s to survive", k)
		}
	}

	stats := c.Stats()
	if stats.Evictions != 1 {
		t.Errorf("expected 1 eviction, got %d", stats.Evictions)
	}
	if stats.Size > stats.MaxSize {
		t.Errorf("size %d exceeds capacity %d", stats.Size, stats.MaxSize)
	}
}

func TestLRUAccessOrder(t *testing.T) {
	c := newTestCache(t, &Config{MaxSize: 2}, nil)
	ctx := context.Background()
	codec := JSONCodec[string]()

	_ = Put(ctx, c, "A", "a", codec)
	_ = Put(ctx, c, "B", "b", codec)

	// touch A so B becomes least recently used
	if _, ok, _ := Get(ctx, c, "A", codec); !ok {
		t.Fatal("expected A to be present")
	}

	_ = Put(ctx, c, "C", "c", codec)

	if _, ok, _ := Get(ctx, c, "B", codec); ok {
		t.Error("expected B to be evicted after A was touched")
	}
	if _, ok, _ := Get(ctx, c, "A", codec); !ok {
		t.Error("expected A to survive")
	}
}

func TestTTL_ExpiryIsAMiss(t *testing.T) {
	c := newTestCache(t, nil, nil)
	ctx := context.Background()
	codec := JSONCodec[int]()

	now := time.Now()
	c.now = func() time.Time { return now }

	if err := Put(ctx, c, "k", 42, codec, WithTTL(time.Minute)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	// strictly before expiry: always a hit
	got, ok, _ := Get(ctx, c, "k", codec)
	if !ok || got != 42 {
		t.Fatalf("expected fresh hit, got ok=%v value=%v", ok, got)
	}

	// strictly after expiry: never returned
	now = now.Add(2 * time.Minute)
	if _, ok, _ := Get(ctx, c, "k", codec); ok {
		t.Error("expected expired entry to be a miss")
	}

	stats := c.Stats()
	if stats.Expirations != 1 {
		t.Errorf("expected 1 expiration, got %d", stats.Expirations)
	}
}

func TestL2_PromotionOnMiss(t *testing.T) {
	l2 := memstore.New()
	c := newTestCache(t, &Config{MaxSize: 4}, l2)
	ctx := context.Background()
	codec := JSONCodec[string]()

	// seed L2 then drop L1, as if the process restarted
	if err := Put(ctx, c, "k", "persisted", codec); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	c.Clear()

	got, ok, err := Get(ctx, c, "k", codec)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !ok || got != "persisted" {
		t.Fatalf("expected L2 hit, got ok=%v value=%q", ok, got)
	}

	// now the entry must be served from L1 without touching L2
	if err := l2.Close(); err != nil {
		t.Fatalf("closing l2: %v", err)
	}
	got, ok, err = Get(ctx, c, "k", codec)
	if err != nil || !ok || got != "persisted" {
		t.Errorf("expected promoted L1 hit, got %q ok=%v err=%v", got, ok, err)
	}
}

func TestL2_VolatilePutStaysInMemory(t *testing.T) {
	l2 := memstore.New()
	c := newTestCache(t, nil, l2)
	ctx := context.Background()
	codec := JSONCodec[string]()

	if err := Put(ctx, c, "k", "ephemeral", codec, Volatile()); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	c.Clear()

	if _, ok, _ := Get(ctx, c, "k", codec); ok {
		t.Error("volatile entry must not survive an L1 clear via L2")
	}
}

func TestL2_CorruptedEntryIsIsolated(t *testing.T) {
	l2 := memstore.New()
	c := newTestCache(t, nil, l2)
	ctx := context.Background()
	codec := JSONCodec[map[string]int]()

	if err := l2.Put(ctx, "bad", []byte("{not json"), 0); err != nil {
		t.Fatalf("seeding l2: %v", err)
	}

	v, ok, err := Get(ctx, c, "bad", codec)
	if err != nil {
		t.Fatalf("corruption must not propagate, got %v", err)
	}
	if ok || v != nil {
		t.Errorf("expected miss for corrupted entry, got ok=%v v=%v", ok, v)
	}
	if got := c.Stats().Corruptions; got != 1 {
		t.Errorf("expected 1 corruption, got %d", got)
	}

	// the offending entry was dropped from L2
	if _, err := l2.Get(ctx, "bad"); err == nil {
		t.Error("expected corrupted entry to be deleted from l2")
	}
}

func TestGetStale_ReturnsExpiredCopy(t *testing.T) {
	c := newTestCache(t, nil, nil)
	ctx := context.Background()
	codec := JSONCodec[string]()

	now := time.Now()
	c.now = func() time.Time { return now }

	if err := Put(ctx, c, "k", "old", codec, WithTTL(time.Minute)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	now = now.Add(2 * time.Minute)

	v, stale, ok, err := GetStale(ctx, c, "k", codec)
	if err != nil {
		t.Fatalf("GetStale failed: %v", err)
	}
	if !ok || !stale || v != "old" {
		t.Errorf("expected stale copy, got v=%q stale=%v ok=%v", v, stale, ok)
	}

	// fresh entries come back unflagged
	if err := Put(ctx, c, "k2", "new", codec); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	v, stale, ok, _ = GetStale(ctx, c, "k2", codec)
	if !ok || stale || v != "new" {
		t.Errorf("expected fresh copy, got v=%q stale=%v ok=%v", v, stale, ok)
	}
}

func TestStats_Deterministic(t *testing.T) {
	c := newTestCache(t, &Config{MaxSize: 2}, nil)
	ctx := context.Background()
	codec := JSONCodec[string]()

	_ = Put(ctx, c, "a", "1", codec)
	Get(ctx, c, "a", codec)  // hit
	Get(ctx, c, "b", codec)  // miss
	Get(ctx, c, "b", codec)  // miss
	_ = Put(ctx, c, "b", "2", codec)
	_ = Put(ctx, c, "c", "3", codec) // evicts a

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 2 || stats.Evictions != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if rate := stats.HitRate(); rate < 0.33 || rate > 0.34 {
		t.Errorf("unexpected hit rate: %f", rate)
	}
	if stats.Size != 2 {
		t.Errorf("expected size 2, got %d", stats.Size)
	}
}

func TestCapacityBoundHolds(t *testing.T) {
	c := newTestCache(t, &Config{MaxSize: 8}, nil)
	ctx := context.Background()
	codec := JSONCodec[int]()

	for i := 0; i < 100; i++ {
		if err := Put(ctx, c, string(rune('a'+i%26))+string(rune('0'+i%10)), i, codec); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if s := c.Stats(); s.Size > s.MaxSize {
			t.Fatalf("capacity bound violated: size=%d max=%d", s.Size, s.MaxSize)
		}
	}
}

func TestResizeEvictsOverflow(t *testing.T) {
	c := newTestCache(t, &Config{MaxSize: 4}, nil)
	ctx := context.Background()
	codec := JSONCodec[int]()

	for i, k := range []string{"a", "b", "c", "d"} {
		_ = Put(ctx, c, k, i, codec)
	}
	c.Resize(2)

	stats := c.Stats()
	if stats.Size != 2 || stats.MaxSize != 2 {
		t.Errorf("expected size/capacity 2 after resize, got %+v", stats)
	}
	// the two most recently used survive
	for _, k := range []string{"c", "d"} {
		if _, ok, _ := Get(ctx, c, k, codec); !ok {
			t.Errorf("expected %s to survive resize", k)
		}
	}
}

func TestHitRateSizer(t *testing.T) {
	sizer := HitRateSizer(16, 256)

	// poor hit rate at capacity: grow
	if got := sizer(Stats{Hits: 10, Misses: 90, MaxSize: 64}); got <= 64 || got > 256 {
		t.Errorf("expected growth from 64, got %d", got)
	}
	// excellent hit rate: shrink
	if got := sizer(Stats{Hits: 95, Misses: 5, MaxSize: 64}); got >= 64 || got < 16 {
		t.Errorf("expected shrink from 64, got %d", got)
	}
	// not enough traffic: hold
	if got := sizer(Stats{Hits: 3, Misses: 1, MaxSize: 64}); got != 64 {
		t.Errorf("expected unchanged capacity, got %d", got)
	}
}

func TestJanitor_SweepsExpired(t *testing.T) {
	c := newTestCache(t, &Config{MaxSize: 8, SweepInterval: 10 * time.Millisecond}, nil)
	ctx := context.Background()
	codec := JSONCodec[string]()

	if err := Put(ctx, c, "k", "v", codec, WithTTL(5*time.Millisecond)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	c.Start()
	defer c.Stop()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if c.Stats().Size == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Error("janitor did not sweep the expired entry in time")
}
