// Package dedupe collapses concurrent identical requests into a single
// execution. While a key is in flight every additional caller subscribes to
// the shared result instead of running the executor again.
//
// A subscriber's timeout bounds only that subscriber's wait. The executor is
// never cancelled by a timed-out subscriber, so late joiners still receive
// the shared result.
package dedupe

import (
	"context"
	"sync"
	"time"

	"github.com/fundexplorer/datakit/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Executor performs the actual work for a key. It runs at most once per
// in-flight key regardless of how many callers subscribe.
type Executor func(ctx context.Context) (any, error)

// Stats is a snapshot of the manager's counters.
type Stats struct {
	// InFlight is the number of keys currently executing
	InFlight int
	// Executed is the total number of executor invocations
	Executed uint64
	// Collapsed is the number of calls that subscribed to an existing flight
	Collapsed uint64
	// Timeouts is the number of subscriber waits that timed out
	Timeouts uint64
}

// ticket tracks one in-flight key. Exactly one ticket exists per key while
// its executor runs; it is removed when the executor settles.
type ticket struct {
	subscribers int
	startedAt   time.Time
}

// Manager deduplicates concurrent executions by key.
type Manager struct {
	logger logger.Logger
	cfg    *Config

	group singleflight.Group

	mu      sync.Mutex
	tickets map[string]*ticket

	executed  uint64
	collapsed uint64
	timeouts  uint64
}

// New creates a deduplication manager.
func New(log logger.Logger, cfg *Config) (*Manager, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Manager{
		logger:  log,
		cfg:     cfg,
		tickets: make(map[string]*ticket),
	}, nil
}

// GetOrExecute returns the shared result for key, invoking exec only if no
// execution for key is already in flight. A timeout of zero falls back to
// the configured default; if that is also zero the wait is bounded only by
// ctx.
//
// On timeout the caller receives an error matching ErrWaitTimeout while the
// executor keeps running for the remaining subscribers.
func (m *Manager) GetOrExecute(ctx context.Context, key string, exec Executor, timeout time.Duration) (any, error) {
	if timeout == 0 {
		timeout = m.cfg.DefaultTimeout
	}

	m.subscribe(key)
	defer m.unsubscribe(key)

	// The executor must survive this caller's cancellation and timeout:
	// other subscribers may still be waiting.
	execCtx := context.WithoutCancel(ctx)

	ch := m.group.DoChan(key, func() (any, error) {
		m.mu.Lock()
		m.executed++
		m.mu.Unlock()

		defer m.settle(key)
		return exec(execCtx)
	})

	var timer *time.Timer
	var deadline <-chan time.Time
	if timeout > 0 {
		timer = time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	select {
	case res := <-ch:
		if res.Shared {
			m.mu.Lock()
			m.collapsed++
			m.mu.Unlock()
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val, nil

	case <-deadline:
		m.mu.Lock()
		m.timeouts++
		m.mu.Unlock()
		m.logger.Debug("subscriber wait timed out",
			zap.String("key", key),
			zap.Duration("timeout", timeout),
		)
		return nil, ErrTimeout(key, timeout)

	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// InFlight reports whether an execution for key is currently running.
func (m *Manager) InFlight(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.tickets[key]
	return ok
}

// Stats returns a snapshot of the manager's counters.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{
		InFlight:  len(m.tickets),
		Executed:  m.executed,
		Collapsed: m.collapsed,
		Timeouts:  m.timeouts,
	}
}

func (m *Manager) subscribe(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[key]
	if !ok {
		t = &ticket{startedAt: time.Now()}
		m.tickets[key] = t
	}
	t.subscribers++
}

func (m *Manager) unsubscribe(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tickets[key]; ok {
		t.subscribers--
	}
}

// settle removes the ticket once the executor finishes, success or error,
// so a subsequent call for the same key starts a fresh execution.
func (m *Manager) settle(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tickets, key)
}
