package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fundexplorer/datakit/cache"
	"github.com/fundexplorer/datakit/consistency"
	"github.com/fundexplorer/datakit/cron"
	"github.com/fundexplorer/datakit/kv"
	"github.com/fundexplorer/datakit/logger"
	"github.com/fundexplorer/datakit/remote"
	"go.uber.org/zap"
)

// PickFunc selects the source a pull or replay should talk to.
type PickFunc func() (remote.Source, error)

// SyncRecord is the per-entity-type sync state.
type SyncRecord struct {
	EntityType   string
	LastSyncedAt time.Time
	Pending      int
	Conflict     bool
}

// queuedOp pairs an offline write with its persisted kv key.
type queuedOp struct {
	key string
	op  remote.WriteOp
}

// Manager runs periodic incremental pulls and replays offline writes.
// Pull failures are logged and retried on the next tick, never surfaced
// to foreground callers.
type Manager struct {
	logger   logger.Logger
	cfg      *Config
	cache    *cache.MultiLevel
	store    kv.Store
	pick     PickFunc
	strategy consistency.Strategy
	sched    cron.Cron

	// flushMu serializes Flush so only one replay walks the queue head
	flushMu sync.Mutex

	mu      sync.Mutex
	pending []queuedOp // replay order, head first
	records map[string]*SyncRecord
	seq     uint64
	closed  atomic.Bool
}

// New creates a sync manager. The kv store holds persisted offline writes
// so they survive a restart.
func New(log logger.Logger, cfg *Config, c *cache.MultiLevel, store kv.Store, pick PickFunc, strategy consistency.Strategy) (*Manager, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	defaults := DefaultConfig()
	if cfg.Interval == 0 {
		cfg.Interval = defaults.Interval
	}
	if cfg.EntryTTL == 0 {
		cfg.EntryTTL = defaults.EntryTTL
	}
	if cfg.QueuePrefix == "" {
		cfg.QueuePrefix = defaults.QueuePrefix
	}
	if cfg.QueueInitCap == 0 {
		cfg.QueueInitCap = defaults.QueueInitCap
	}
	if cfg.KeyFor == nil {
		cfg.KeyFor = func(change remote.Change) string { return change.EntityID }
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	records := make(map[string]*SyncRecord, len(cfg.EntityTypes))
	for _, et := range cfg.EntityTypes {
		records[et] = &SyncRecord{EntityType: et}
	}

	return &Manager{
		logger:   log,
		cfg:      cfg,
		cache:    c,
		store:    store,
		pick:     pick,
		strategy: strategy,
		sched:    cron.New(log),
		pending:  make([]queuedOp, 0, cfg.QueueInitCap),
		records:  records,
	}, nil
}

// Start restores persisted offline writes and schedules the pull chain.
func (m *Manager) Start(ctx context.Context) error {
	if m.closed.Load() {
		return ErrClosed
	}

	if err := m.restore(ctx); err != nil {
		return err
	}

	tasks := make([]cron.Task, 0, len(m.cfg.EntityTypes))
	for _, et := range m.cfg.EntityTypes {
		entityType := et
		tasks = append(tasks, cron.TaskFunc("pull-"+entityType, func(ctx context.Context) error {
			m.pull(ctx, entityType)
			return nil
		}))
	}

	if err := m.sched.AddChain(cron.Chain{
		Name:  "sync",
		Spec:  cron.Every(m.cfg.Interval),
		Tasks: tasks,
	}); err != nil {
		return err
	}

	m.sched.Start()
	m.logger.Info("sync manager started",
		zap.Duration("interval", m.cfg.Interval),
		zap.Strings("entity_types", m.cfg.EntityTypes),
	)
	return nil
}

// Stop halts the pull schedule and waits for a running pull to finish.
func (m *Manager) Stop() {
	if !m.closed.CompareAndSwap(false, true) {
		return
	}
	m.sched.Close()
	m.logger.Info("sync manager stopped")
}

// Pull runs one incremental pull pass immediately, outside the schedule.
func (m *Manager) Pull(ctx context.Context) {
	for _, et := range m.cfg.EntityTypes {
		m.pull(ctx, et)
	}
}

// pull fetches changes for one entity type and writes them through the
// cache. Errors leave LastSyncedAt untouched so the next tick retries the
// same window.
func (m *Manager) pull(ctx context.Context, entityType string) {
	src, err := m.pick()
	if err != nil {
		m.logger.Warn("pull skipped, no source available",
			zap.String("entity_type", entityType),
			zap.Error(err),
		)
		return
	}

	m.mu.Lock()
	since := m.records[entityType].LastSyncedAt
	m.mu.Unlock()

	start := time.Now()
	changes, err := src.ChangedSince(ctx, entityType, since)
	if err != nil {
		m.logger.Warn("pull failed",
			zap.String("entity_type", entityType),
			zap.String("source", src.ID()),
			zap.Error(err),
		)
		return
	}

	codec := cache.JSONCodec[*remote.Payload]()
	for _, change := range changes {
		payload := &remote.Payload{
			Body:      change.Body,
			Version:   change.Version,
			FetchedAt: start,
		}
		if err := cache.Put(ctx, m.cache, m.cfg.KeyFor(change), payload, codec, cache.WithTTL(m.cfg.EntryTTL)); err != nil {
			m.logger.Warn("pull cache write failed",
				zap.String("key", m.cfg.KeyFor(change)),
				zap.Error(err),
			)
		}
	}

	m.mu.Lock()
	m.records[entityType].LastSyncedAt = start
	m.mu.Unlock()

	m.logger.Debug("pull completed",
		zap.String("entity_type", entityType),
		zap.String("source", src.ID()),
		zap.Int("changes", len(changes)),
		zap.Duration("elapsed", time.Since(start)),
	)
}

// Enqueue records an offline write. The op is persisted before it is
// queued so a restart can replay it.
func (m *Manager) Enqueue(ctx context.Context, op remote.WriteOp) error {
	if m.closed.Load() {
		return ErrClosed
	}
	if op.CapturedAt.IsZero() {
		op.CapturedAt = time.Now()
	}

	raw, err := json.Marshal(op)
	if err != nil {
		return ErrPersistOp(op.EntityID, err)
	}

	seq := atomic.AddUint64(&m.seq, 1)
	key := fmt.Sprintf("%s%012d", m.cfg.QueuePrefix, seq)
	if err := m.store.Put(ctx, key, raw, 0); err != nil {
		return ErrPersistOp(key, err)
	}

	m.mu.Lock()
	m.pending = append(m.pending, queuedOp{key: key, op: op})
	if rec, ok := m.records[op.EntityType]; ok {
		rec.Pending++
	}
	m.mu.Unlock()

	m.logger.Debug("offline write queued",
		zap.String("key", key),
		zap.String("entity_type", op.EntityType),
		zap.String("entity_id", op.EntityID),
	)
	return nil
}

// Flush replays queued offline writes in capture order. A transport
// failure leaves the current op at the head of the queue and stops, so a
// later Flush resumes with the oldest op; an unresolvable conflict marks
// the entity's record and leaves the persisted copy in place for
// inspection.
func (m *Manager) Flush(ctx context.Context) error {
	if m.closed.Load() {
		return ErrClosed
	}

	m.flushMu.Lock()
	defer m.flushMu.Unlock()

	for {
		m.mu.Lock()
		if len(m.pending) == 0 {
			m.mu.Unlock()
			return nil
		}
		q := m.pending[0]
		m.mu.Unlock()

		if err := m.replay(ctx, q); err != nil {
			return err
		}

		m.mu.Lock()
		m.pending = m.pending[1:]
		m.mu.Unlock()
	}
}

func (m *Manager) replay(ctx context.Context, q queuedOp) error {
	src, err := m.pick()
	if err != nil {
		return ErrReplay(q.key, err)
	}

	res, err := src.Push(ctx, q.op)
	if err != nil {
		return ErrReplay(q.key, err)
	}

	if res.Conflict {
		done, err := m.resolveAndRepush(ctx, src, q, res.Server)
		if err != nil {
			return err
		}
		if !done {
			// stays persisted for inspection, dropped from the live queue
			return nil
		}
	}

	if err := m.store.Delete(ctx, q.key); err != nil && !errors.Is(err, kv.ErrNotFound) {
		m.logger.Warn("failed to delete replayed offline write",
			zap.String("key", q.key),
			zap.Error(err),
		)
	}
	m.adjustPending(q.op.EntityType, -1)
	return nil
}

// resolveAndRepush resolves a reported write conflict and pushes the
// resolved value. Returns done=false when the op stays persisted because
// the conflict could not be resolved automatically.
func (m *Manager) resolveAndRepush(ctx context.Context, src remote.Source, q queuedOp, server *consistency.Record) (bool, error) {
	if server == nil {
		m.markConflict(q.op.EntityType)
		m.logger.Warn("conflict reported without a server copy",
			zap.String("key", q.key),
			zap.String("entity_id", q.op.EntityID),
		)
		return false, nil
	}

	local := consistency.Record{
		Version: consistency.Version{
			EntityID: q.op.EntityID,
			Token:    q.op.CapturedAt.UnixMilli(),
			SourceID: "local",
		},
	}
	var fields map[string]any
	if err := json.Unmarshal(q.op.Body, &fields); err == nil {
		local.Value = fields
	} else {
		local.Value = q.op.Body
	}

	resolved, err := m.strategy.Resolve(local, *server)
	if err != nil {
		m.markConflict(q.op.EntityType)
		m.logger.Warn("offline write conflict left for inspection",
			zap.String("key", q.key),
			zap.String("entity_id", q.op.EntityID),
			zap.String("strategy", m.strategy.Name()),
			zap.Error(err),
		)
		return false, nil
	}

	if resolved.Winner == consistency.WinnerRemote {
		// the server copy stands, nothing to push
		return true, nil
	}

	body, err := json.Marshal(resolved.Value.Value)
	if err != nil {
		return false, ErrReplay(q.key, err)
	}
	repush := q.op
	repush.Body = body

	res, err := src.Push(ctx, repush)
	if err != nil {
		return false, ErrReplay(q.key, err)
	}
	if res.Conflict {
		m.markConflict(q.op.EntityType)
		m.logger.Warn("offline write still conflicting after resolution",
			zap.String("key", q.key),
			zap.String("entity_id", q.op.EntityID),
		)
		return false, nil
	}
	return true, nil
}

// Records returns a snapshot of per-entity-type sync state.
func (m *Manager) Records() []SyncRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]SyncRecord, 0, len(m.cfg.EntityTypes))
	for _, et := range m.cfg.EntityTypes {
		out = append(out, *m.records[et])
	}
	return out
}

// restore reloads persisted offline writes into the queue in key order.
func (m *Manager) restore(ctx context.Context) error {
	keys, err := m.store.Keys(ctx, m.cfg.QueuePrefix)
	if err != nil {
		return ErrReplay(m.cfg.QueuePrefix, err)
	}

	restored := 0
	var maxSeq uint64
	for _, key := range keys {
		raw, err := m.store.Get(ctx, key)
		if err != nil {
			if errors.Is(err, kv.ErrNotFound) {
				continue
			}
			return ErrReplay(key, err)
		}
		var op remote.WriteOp
		if err := json.Unmarshal(raw, &op); err != nil {
			m.logger.Warn("dropping undecodable persisted offline write",
				zap.String("key", key),
				zap.Error(err),
			)
			_ = m.store.Delete(ctx, key)
			continue
		}
		var seq uint64
		if _, err := fmt.Sscanf(key, m.cfg.QueuePrefix+"%d", &seq); err == nil && seq > maxSeq {
			maxSeq = seq
		}
		m.mu.Lock()
		m.pending = append(m.pending, queuedOp{key: key, op: op})
		if rec, ok := m.records[op.EntityType]; ok {
			rec.Pending++
		}
		m.mu.Unlock()
		restored++
	}

	// continue sequence numbering after the restored ops
	for {
		cur := atomic.LoadUint64(&m.seq)
		if cur >= maxSeq || atomic.CompareAndSwapUint64(&m.seq, cur, maxSeq) {
			break
		}
	}

	if restored > 0 {
		m.logger.Info("restored persisted offline writes", zap.Int("count", restored))
	}
	return nil
}

func (m *Manager) adjustPending(entityType string, delta int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.records[entityType]; ok {
		rec.Pending += delta
	}
}

func (m *Manager) markConflict(entityType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.records[entityType]; ok {
		rec.Conflict = true
	}
}
