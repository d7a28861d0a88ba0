// Package coordinator is the single entry point for fund data access.
// It layers request deduplication, the multi-level cache, health-based
// source routing, conflict resolution and background sync behind one
// fetch call.
package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fundexplorer/datakit/cache"
	"github.com/fundexplorer/datakit/consistency"
	"github.com/fundexplorer/datakit/dedupe"
	"github.com/fundexplorer/datakit/logger"
	"github.com/fundexplorer/datakit/remote"
	"github.com/fundexplorer/datakit/router"
	"github.com/fundexplorer/datakit/syncer"
	"github.com/fundexplorer/datakit/telemetry"
	"go.uber.org/zap"
)

// Request describes one read.
type Request struct {
	EntityType string
	Params     map[string]string
	// Timeout bounds how long the caller waits. Zero uses the default.
	Timeout time.Duration
	// TTL overrides the cache TTL for the fetched record. Zero uses the
	// default.
	TTL time.Duration
}

// Result is one read's outcome.
type Result struct {
	Raw       []byte
	Stale     bool
	FromCache bool
	SourceID  string
	Version   consistency.Version
}

// Deps carries the coordinator's collaborators. Cache, Dedupe, Router and
// at least one Source are required; Syncer and Telemetry are optional.
type Deps struct {
	Cache     *cache.MultiLevel
	Dedupe    *dedupe.Manager
	Router    *router.Router
	Syncer    *syncer.Manager
	Sources   []remote.Source
	Strategy  consistency.Strategy
	Telemetry *telemetry.Pipeline
}

// Coordinator is the facade over the data-access layers.
type Coordinator struct {
	logger   logger.Logger
	cfg      *Config
	cache    *cache.MultiLevel
	dedupe   *dedupe.Manager
	router   *router.Router
	syncer   *syncer.Manager
	sources  map[string]remote.Source
	strategy consistency.Strategy
	pipeline *telemetry.Pipeline

	codec cache.Codec[*remote.Payload]
}

// New creates a coordinator.
func New(log logger.Logger, cfg *Config, deps Deps) (*Coordinator, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	defaults := DefaultConfig()
	if cfg.DefaultTimeout == 0 {
		cfg.DefaultTimeout = defaults.DefaultTimeout
	}
	if cfg.DefaultTTL == 0 {
		cfg.DefaultTTL = defaults.DefaultTTL
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch {
	case deps.Cache == nil:
		return nil, ErrMissingDependency("cache")
	case deps.Dedupe == nil:
		return nil, ErrMissingDependency("dedupe")
	case deps.Router == nil:
		return nil, ErrMissingDependency("router")
	case len(deps.Sources) == 0:
		return nil, ErrNoSources
	}
	if deps.Strategy == nil {
		deps.Strategy = consistency.Timestamp{}
	}

	sources := make(map[string]remote.Source, len(deps.Sources))
	for _, src := range deps.Sources {
		sources[src.ID()] = src
	}

	return &Coordinator{
		logger:   log,
		cfg:      cfg,
		cache:    deps.Cache,
		dedupe:   deps.Dedupe,
		router:   deps.Router,
		syncer:   deps.Syncer,
		sources:  sources,
		strategy: deps.Strategy,
		pipeline: deps.Telemetry,
		codec:    cache.JSONCodec[*remote.Payload](),
	}, nil
}

// Start launches the background pieces: the cache janitor, the telemetry
// flusher and the sync schedule.
func (c *Coordinator) Start(ctx context.Context) error {
	c.cache.Start()
	if c.pipeline != nil {
		c.pipeline.Start()
	}
	if c.syncer != nil {
		if err := c.syncer.Start(ctx); err != nil {
			return err
		}
	}
	c.logger.Info("coordinator started")
	return nil
}

// Close stops background work in reverse start order.
func (c *Coordinator) Close() error {
	if c.syncer != nil {
		c.syncer.Stop()
	}
	c.cache.Stop()
	var err error
	if c.pipeline != nil {
		err = c.pipeline.Close()
	}
	c.logger.Info("coordinator stopped")
	return err
}

// Key builds the deterministic cache and deduplication key for a request.
// Identical params in any order produce the same key.
func Key(entityType string, params map[string]string) string {
	if len(params) == 0 {
		return entityType
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(entityType)
	sep := "?"
	for _, k := range keys {
		fmt.Fprintf(&b, "%s%s=%s", sep, k, params[k])
		sep = "&"
	}
	return b.String()
}

// Fetch reads one record. A fresh cached copy is served directly;
// otherwise concurrent callers for the same key collapse onto one remote
// fetch. When every source fails, a stale cached copy is served with
// Stale set rather than failing the read.
func (c *Coordinator) Fetch(ctx context.Context, req Request) (*Result, error) {
	if req.EntityType == "" {
		return nil, ErrEmptyEntityType
	}
	if req.Timeout == 0 {
		req.Timeout = c.cfg.DefaultTimeout
	}
	if req.TTL == 0 {
		req.TTL = c.cfg.DefaultTTL
	}

	key := Key(req.EntityType, req.Params)

	// fast path, no dedup ticket needed for a fresh hit
	if payload, stale, ok, err := cache.GetStale(ctx, c.cache, key, c.codec); err == nil && ok && !stale {
		c.emit(telemetry.Event{Kind: telemetry.KindCacheHit, EntityType: req.EntityType, Key: key})
		return &Result{Raw: payload.Body, FromCache: true, SourceID: payload.Version.SourceID, Version: payload.Version}, nil
	}

	c.emit(telemetry.Event{Kind: telemetry.KindCacheMiss, EntityType: req.EntityType, Key: key})

	v, err := c.dedupe.GetOrExecute(ctx, key, func(execCtx context.Context) (any, error) {
		return c.load(execCtx, key, req)
	}, req.Timeout)
	if err != nil {
		// a stale copy beats an error for timed-out waiters
		if errors.Is(err, dedupe.ErrWaitTimeout) {
			if res, ok := c.staleResult(ctx, key, req.EntityType); ok {
				return res, nil
			}
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, c.classify(err)
	}
	return v.(*Result), nil
}

// FetchAs reads one record and decodes it into T.
func FetchAs[T any](ctx context.Context, c *Coordinator, req Request) (T, *Result, error) {
	var zero T
	res, err := c.Fetch(ctx, req)
	if err != nil {
		return zero, nil, err
	}
	var v T
	if err := json.Unmarshal(res.Raw, &v); err != nil {
		return zero, res, ErrDecodeResult(req.EntityType, err)
	}
	return v, res, nil
}

// load is the collapsed executor behind the dedup layer. It runs on a
// context detached from any single waiter's cancellation.
func (c *Coordinator) load(ctx context.Context, key string, req Request) (*Result, error) {
	// another collapsed caller may have already filled the cache
	stalePayload, stale, ok, err := cache.GetStale(ctx, c.cache, key, c.codec)
	if err != nil {
		return nil, c.classify(err)
	}
	if ok && !stale {
		return &Result{Raw: stalePayload.Body, FromCache: true, SourceID: stalePayload.Version.SourceID, Version: stalePayload.Version}, nil
	}

	payload, sourceID, err := c.fetchRemote(ctx, req)
	if err != nil {
		if ok {
			c.emit(telemetry.Event{Kind: telemetry.KindStaleServe, EntityType: req.EntityType, Key: key, Err: err.Error()})
			c.logger.Warn("serving stale copy, all sources failed",
				zap.String("key", key),
				zap.Error(err),
			)
			return &Result{Raw: stalePayload.Body, Stale: true, FromCache: true, SourceID: stalePayload.Version.SourceID, Version: stalePayload.Version}, nil
		}
		return nil, c.classify(err)
	}

	// a stale local copy at or ahead of the fetched token has diverged and
	// goes through conflict resolution before the cache is overwritten; a
	// plainly newer remote copy replaces the stale one directly
	if ok && stalePayload.Version.Token >= payload.Version.Token &&
		consistency.Conflicting(stalePayload.Version, payload.Version) {
		resolved, rerr := c.resolve(key, req.EntityType, stalePayload, payload)
		if rerr != nil {
			return nil, rerr
		}
		payload = resolved
	}

	if err := cache.Put(ctx, c.cache, key, payload, c.codec, cache.WithTTL(req.TTL)); err != nil {
		c.logger.Warn("failed to cache fetched record",
			zap.String("key", key),
			zap.Error(err),
		)
	}

	return &Result{Raw: payload.Body, SourceID: sourceID, Version: payload.Version}, nil
}

// fetchRemote tries the routed source and fails over once to the next
// best target when the first attempt fails.
func (c *Coordinator) fetchRemote(ctx context.Context, req Request) (*remote.Payload, string, error) {
	target, err := c.router.Select(req.EntityType)
	if err != nil {
		return nil, "", err
	}

	payload, err := c.fetchFrom(ctx, target.SourceID, req)
	if err == nil {
		return payload, target.SourceID, nil
	}

	next, serr := c.router.Select(req.EntityType)
	if serr != nil || next.SourceID == target.SourceID {
		return nil, "", err
	}

	c.emit(telemetry.Event{
		Kind:       telemetry.KindFailover,
		EntityType: req.EntityType,
		SourceID:   next.SourceID,
		Err:        err.Error(),
	})
	c.logger.Warn("failing over to alternate source",
		zap.String("entity_type", req.EntityType),
		zap.String("failed", target.SourceID),
		zap.String("next", next.SourceID),
		zap.Error(err),
	)

	payload, ferr := c.fetchFrom(ctx, next.SourceID, req)
	if ferr != nil {
		return nil, "", ferr
	}
	return payload, next.SourceID, nil
}

func (c *Coordinator) fetchFrom(ctx context.Context, sourceID string, req Request) (*remote.Payload, error) {
	src, ok := c.sources[sourceID]
	if !ok {
		return nil, ErrMissingDependency("source " + sourceID)
	}

	start := time.Now()
	payload, err := src.Fetch(ctx, req.EntityType, req.Params)
	latency := time.Since(start)
	c.router.Report(sourceID, err == nil, latency)

	ev := telemetry.Event{
		Kind:       telemetry.KindFetch,
		EntityType: req.EntityType,
		SourceID:   sourceID,
		Latency:    latency,
	}
	if err != nil {
		ev.Err = err.Error()
	}
	c.emit(ev)

	return payload, err
}

// resolve runs the configured strategy over a diverged pair of copies.
func (c *Coordinator) resolve(key, entityType string, local, fetched *remote.Payload) (*remote.Payload, error) {
	c.emit(telemetry.Event{Kind: telemetry.KindConflict, EntityType: entityType, Key: key})

	localRec := consistency.Record{Version: local.Version}
	remoteRec := consistency.Record{Version: fetched.Version}

	var localFields, remoteFields map[string]any
	if err := json.Unmarshal(local.Body, &localFields); err == nil {
		localRec.Value = localFields
	}
	if err := json.Unmarshal(fetched.Body, &remoteFields); err == nil {
		remoteRec.Value = remoteFields
	}

	resolved, err := c.strategy.Resolve(localRec, remoteRec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConflict, err)
	}

	switch resolved.Winner {
	case consistency.WinnerLocal:
		return local, nil
	case consistency.WinnerRemote:
		return fetched, nil
	default:
		body, merr := json.Marshal(resolved.Value.Value)
		if merr != nil {
			return nil, fmt.Errorf("%w: %v", ErrConflict, merr)
		}
		return &remote.Payload{
			Body:      body,
			Version:   resolved.Value.Version,
			FetchedAt: fetched.FetchedAt,
		}, nil
	}
}

// Write records an offline write for later replay.
func (c *Coordinator) Write(ctx context.Context, op remote.WriteOp) error {
	if c.syncer == nil {
		return ErrMissingDependency("syncer")
	}
	return c.syncer.Enqueue(ctx, op)
}

// FlushWrites replays queued offline writes.
func (c *Coordinator) FlushWrites(ctx context.Context) error {
	if c.syncer == nil {
		return ErrMissingDependency("syncer")
	}
	return c.syncer.Flush(ctx)
}

// SyncRecords returns the sync manager's per-entity-type state.
func (c *Coordinator) SyncRecords() []syncer.SyncRecord {
	if c.syncer == nil {
		return nil
	}
	return c.syncer.Records()
}

// Invalidate removes one key from both cache tiers.
func (c *Coordinator) Invalidate(ctx context.Context, key string) error {
	c.emit(telemetry.Event{Kind: telemetry.KindEvict, Key: key})
	return c.cache.Remove(ctx, key)
}

// Stats aggregates the layers' counters.
type Stats struct {
	Cache  cache.Stats
	Dedupe dedupe.Stats
	Router []router.Target
	Sync   []syncer.SyncRecord
}

// Stats returns a point-in-time snapshot across the layers.
func (c *Coordinator) Stats() Stats {
	return Stats{
		Cache:  c.cache.Stats(),
		Dedupe: c.dedupe.Stats(),
		Router: c.router.Snapshot(),
		Sync:   c.SyncRecords(),
	}
}

func (c *Coordinator) staleResult(ctx context.Context, key, entityType string) (*Result, bool) {
	payload, _, ok, err := cache.GetStale(ctx, c.cache, key, c.codec)
	if err != nil || !ok {
		return nil, false
	}
	c.emit(telemetry.Event{Kind: telemetry.KindStaleServe, EntityType: entityType, Key: key})
	return &Result{Raw: payload.Body, Stale: true, FromCache: true, SourceID: payload.Version.SourceID, Version: payload.Version}, true
}

// classify maps lower-layer failures onto the coordinator's error
// taxonomy so callers can branch with errors.Is.
func (c *Coordinator) classify(err error) error {
	switch {
	case errors.Is(err, ErrTimeout), errors.Is(err, ErrNetwork),
		errors.Is(err, ErrConflict), errors.Is(err, ErrCacheCorruption):
		return err
	case errors.Is(err, dedupe.ErrWaitTimeout), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	case errors.Is(err, remote.ErrNetwork):
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	case errors.Is(err, consistency.ErrConflict):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	case errors.Is(err, cache.ErrCorruption):
		return fmt.Errorf("%w: %v", ErrCacheCorruption, err)
	default:
		return err
	}
}

func (c *Coordinator) emit(ev telemetry.Event) {
	if c.pipeline != nil {
		c.pipeline.Emit(ev)
	}
}
