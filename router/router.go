// Package router selects among candidate data sources using rolling health
// and latency signals, with failover and circuit-breaker style recovery.
//
// Every completed request reports its outcome back to the router: successes
// raise a target's health score and step its state back toward healthy,
// failures lower the score and, past a configured streak, degrade the state.
package router

import (
	"sort"
	"sync"
	"time"

	"github.com/fundexplorer/datakit/logger"
	"go.uber.org/zap"
)

// State is a target's availability classification.
type State string

const (
	StateHealthy   State = "healthy"
	StateDegraded  State = "degraded"
	StateUnhealthy State = "unhealthy"
)

// Target is a snapshot of one candidate data source.
type Target struct {
	SourceID             string
	HealthScore          float64 // 0..1, rolling
	ConsecutiveFailures  int
	ConsecutiveSuccesses int
	State                State
}

// Router ranks data sources and drives their state machines.
type Router struct {
	logger logger.Logger
	cfg    *Config

	mu      sync.Mutex
	targets map[string]*Target
	order   []string // registration order, stable tie-break
}

// New creates a router over the given source IDs. Targets start healthy
// with a full score.
func New(log logger.Logger, cfg *Config, sourceIDs ...string) (*Router, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	} else {
		defaults := DefaultConfig()
		if cfg.FailureThreshold == 0 {
			cfg.FailureThreshold = defaults.FailureThreshold
		}
		if cfg.RecoveryThreshold == 0 {
			cfg.RecoveryThreshold = defaults.RecoveryThreshold
		}
		if cfg.Alpha == 0 {
			cfg.Alpha = defaults.Alpha
		}
		if cfg.LatencyTarget == 0 {
			cfg.LatencyTarget = defaults.LatencyTarget
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(sourceIDs) == 0 {
		return nil, ErrNoSources
	}

	r := &Router{
		logger:  log,
		cfg:     cfg,
		targets: make(map[string]*Target, len(sourceIDs)),
	}
	for _, id := range sourceIDs {
		if _, dup := r.targets[id]; dup {
			return nil, ErrDuplicateSource(id)
		}
		r.targets[id] = &Target{
			SourceID:    id,
			HealthScore: 1.0,
			State:       StateHealthy,
		}
		r.order = append(r.order, id)
	}
	return r, nil
}

// Select returns the best available target: the highest-scoring healthy
// candidate, else the best degraded one. When every candidate is unhealthy
// it returns the least-bad one so the system degrades gracefully instead
// of refusing outright.
func (r *Router) Select(kind string) (Target, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	best := func(state State) (Target, bool) {
		var found bool
		var pick Target
		for _, id := range r.sortedIDsLocked() {
			t := r.targets[id]
			if t.State != state {
				continue
			}
			if !found || t.HealthScore > pick.HealthScore {
				pick = *t
				found = true
			}
		}
		return pick, found
	}

	if t, ok := best(StateHealthy); ok {
		return t, nil
	}
	if t, ok := best(StateDegraded); ok {
		r.logger.Warn("no healthy source, using degraded target",
			zap.String("kind", kind),
			zap.String("source", t.SourceID),
		)
		return t, nil
	}
	if t, ok := best(StateUnhealthy); ok {
		r.logger.Warn("all sources unhealthy, using least-bad target",
			zap.String("kind", kind),
			zap.String("source", t.SourceID),
			zap.Float64("health_score", t.HealthScore),
		)
		return t, nil
	}
	return Target{}, ErrNoSources
}

// Report records the outcome of a completed request against sourceID.
func (r *Router) Report(sourceID string, ok bool, latency time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, known := r.targets[sourceID]
	if !known {
		r.logger.Warn("outcome reported for unknown source", zap.String("source", sourceID))
		return
	}

	if ok {
		t.ConsecutiveFailures = 0
		t.ConsecutiveSuccesses++

		// latency discounts the success sample: a slow success is worth
		// less than a fast one
		sample := 1.0
		if r.cfg.LatencyTarget > 0 && latency > r.cfg.LatencyTarget {
			sample = float64(r.cfg.LatencyTarget) / float64(latency)
		}
		t.HealthScore = r.ewma(t.HealthScore, sample)

		if t.State != StateHealthy && t.ConsecutiveSuccesses >= r.cfg.RecoveryThreshold {
			from := t.State
			t.State = recoverState(t.State)
			t.ConsecutiveSuccesses = 0
			r.logger.Info("source recovering",
				zap.String("source", sourceID),
				zap.String("from", string(from)),
				zap.String("to", string(t.State)),
			)
		}
		return
	}

	t.ConsecutiveSuccesses = 0
	t.ConsecutiveFailures++
	t.HealthScore = r.ewma(t.HealthScore, 0)

	// the streak keeps counting across flips: FailureThreshold consecutive
	// failures land a target at unhealthy, passing through degraded at the
	// halfway mark
	from := t.State
	switch {
	case t.ConsecutiveFailures >= r.cfg.FailureThreshold && t.State != StateUnhealthy:
		t.State = StateUnhealthy
	case t.ConsecutiveFailures >= (r.cfg.FailureThreshold+1)/2 && t.State == StateHealthy:
		t.State = StateDegraded
	}
	if t.State != from {
		r.logger.Warn("source degrading",
			zap.String("source", sourceID),
			zap.String("from", string(from)),
			zap.String("to", string(t.State)),
			zap.Float64("health_score", t.HealthScore),
		)
	}
}

// Snapshot returns the current state of all targets in registration order.
func (r *Router) Snapshot() []Target {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Target, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.targets[id])
	}
	return out
}

func (r *Router) ewma(current, sample float64) float64 {
	return r.cfg.Alpha*sample + (1-r.cfg.Alpha)*current
}

// sortedIDsLocked returns source IDs sorted for deterministic tie-breaks.
// Caller holds r.mu.
func (r *Router) sortedIDsLocked() []string {
	ids := make([]string, len(r.order))
	copy(ids, r.order)
	sort.Strings(ids)
	return ids
}

func recoverState(s State) State {
	switch s {
	case StateUnhealthy:
		return StateDegraded
	default:
		return StateHealthy
	}
}
