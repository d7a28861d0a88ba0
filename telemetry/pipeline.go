package telemetry

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fundexplorer/datakit/logger"
	"github.com/smallnest/chanx"
	"go.uber.org/zap"
)

// Pipeline buffers events and flushes them to the configured sinks in
// batches. Emit never blocks the caller; when the pipeline is closed,
// events are dropped and counted instead.
type Pipeline struct {
	logger logger.Logger
	cfg    *Config
	sinks  []Sink

	events      *chanx.UnboundedChan[Event]
	flushTicker *time.Ticker

	wg      sync.WaitGroup
	closed  atomic.Bool
	dropped atomic.Uint64
}

// NewPipeline creates an event pipeline fanning out to sinks. A pipeline
// with no sinks is valid and discards everything.
func NewPipeline(log logger.Logger, cfg *Config, sinks ...Sink) (*Pipeline, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	defaults := DefaultConfig()
	if cfg.FlushSize == 0 {
		cfg.FlushSize = defaults.FlushSize
	}
	if cfg.FlushInterval == 0 {
		cfg.FlushInterval = defaults.FlushInterval
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = defaults.WriteTimeout
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Pipeline{
		logger:      log,
		cfg:         cfg,
		sinks:       sinks,
		events:      chanx.NewUnboundedChan[Event](context.Background(), cfg.FlushSize),
		flushTicker: time.NewTicker(cfg.FlushInterval),
	}, nil
}

// Start launches the background flusher.
func (p *Pipeline) Start() {
	p.wg.Add(1)
	go p.flushLoop()
}

// Emit queues one event. Never blocks; a closed pipeline drops the event.
func (p *Pipeline) Emit(ev Event) {
	if p.closed.Load() {
		p.dropped.Add(1)
		return
	}
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	p.events.In <- ev
}

// Dropped reports how many events were discarded after Close.
func (p *Pipeline) Dropped() uint64 {
	return p.dropped.Load()
}

// Close drains buffered events into the sinks and closes them.
func (p *Pipeline) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}

	p.flushTicker.Stop()
	close(p.events.In)
	p.wg.Wait()

	var firstErr error
	for _, sink := range p.sinks {
		if err := sink.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (p *Pipeline) flushLoop() {
	defer p.wg.Done()

	buffer := make([]Event, 0, p.cfg.FlushSize)

	for {
		select {
		case ev, ok := <-p.events.Out:
			if !ok {
				// In was closed; everything queued has been drained
				p.flush(buffer)
				return
			}
			buffer = append(buffer, ev)
			if len(buffer) >= p.cfg.FlushSize {
				p.flush(buffer)
				buffer = buffer[:0]
			}

		case <-p.flushTicker.C:
			if len(buffer) > 0 {
				p.flush(buffer)
				buffer = buffer[:0]
			}
		}
	}
}

// flush writes one batch to every sink. Sink failures are logged and
// isolated; one bad sink never blocks the others.
func (p *Pipeline) flush(events []Event) {
	if len(events) == 0 {
		return
	}

	batch := make([]Event, len(events))
	copy(batch, events)

	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.WriteTimeout)
	defer cancel()

	for _, sink := range p.sinks {
		if err := sink.Write(ctx, batch); err != nil {
			p.logger.Warn("telemetry sink write failed",
				zap.Int("events", len(batch)),
				zap.Error(err),
			)
		}
	}
}
