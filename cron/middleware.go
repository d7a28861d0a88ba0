package cron

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/fundexplorer/datakit/logger"
	"go.uber.org/zap"
)

// Middleware wraps a Task with additional behavior.
type Middleware func(Task) Task

// applyMiddlewares nests middlewares so the first listed runs outermost.
func applyMiddlewares(t Task, mws ...Middleware) Task {
	for i := len(mws) - 1; i >= 0; i-- {
		t = mws[i](t)
	}
	return t
}

// recoveryMiddleware converts a task panic into an error so one bad run
// cannot take down the scheduler.
func recoveryMiddleware(log logger.Logger) Middleware {
	return func(next Task) Task {
		return TaskFunc(next.Name(), func(ctx context.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error("task panicked",
						zap.String("task", next.Name()),
						zap.Any("panic", r),
						zap.String("stack", string(debug.Stack())),
					)
					err = ErrTaskPanic(next.Name(), r)
				}
			}()
			return next.Run(ctx)
		})
	}
}

// timingMiddleware logs each run's duration and outcome.
func timingMiddleware(log logger.Logger) Middleware {
	return func(next Task) Task {
		return TaskFunc(next.Name(), func(ctx context.Context) error {
			start := time.Now()
			err := next.Run(ctx)
			if err != nil {
				log.Error("task failed",
					zap.String("task", next.Name()),
					zap.Duration("elapsed", time.Since(start)),
					zap.Error(err),
				)
				return err
			}
			log.Debug("task completed",
				zap.String("task", next.Name()),
				zap.Duration("elapsed", time.Since(start)),
			)
			return nil
		})
	}
}
