package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/fundexplorer/datakit/logger"
)

// Task is one unit of scheduled work. Tasks in a chain run sequentially
// and share the chain's context.
type Task interface {
	Name() string
	Run(ctx context.Context) error
}

// TaskFunc adapts a function to the Task interface.
func TaskFunc(name string, fn func(ctx context.Context) error) Task {
	return &funcTask{name: name, fn: fn}
}

type funcTask struct {
	name string
	fn   func(ctx context.Context) error
}

func (t *funcTask) Name() string                  { return t.name }
func (t *funcTask) Run(ctx context.Context) error { return t.fn(ctx) }

// Chain is a named sequence of tasks bound to a cron spec.
type Chain struct {
	Name  string
	Spec  string
	Tasks []Task
}

// Cron schedules task chains. A failing task aborts the rest of its chain
// for that run; the chain fires again on the next tick.
type Cron interface {
	Start()
	// Close stops the scheduler and waits for running chains to finish.
	Close()
	AddChain(chain Chain) error
}

// New creates a scheduler. Recovery and timing middlewares are always
// applied; extra middlewares run inside them.
func New(log logger.Logger, mws ...Middleware) Cron {
	base := []Middleware{
		recoveryMiddleware(log),
		timingMiddleware(log),
	}
	return newManager(log, append(base, mws...)...)
}

// Every builds an interval spec accepted by AddChain, e.g. Every(15*time.Minute).
func Every(d time.Duration) string {
	return fmt.Sprintf("@every %s", d)
}
