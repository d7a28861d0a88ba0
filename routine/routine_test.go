package routine

import (
	"context"
	"sync/atomic"
	"testing"

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

func TestRunner_Go(t *testing.T) {
	runner := New(newTestLogger(t))

	var executed atomic.Bool
	runner.Go(func() {
		executed.Store(true)
	})
	runner.Wait()

	if !executed.Load() {
		t.Error("expected function to be executed")
	}
}

func TestRunner_Go_WithPanic(t *testing.T) {
	runner := New(newTestLogger(t))

	var afterPanic atomic.Bool
	runner.Go(func() {
		panic("test panic")
	})
	runner.Go(func() {
		afterPanic.Store(true)
	})
	runner.Wait()

	if !afterPanic.Load() {
		t.Error("expected runner to survive a panic in another goroutine")
	}
}

func TestRunner_GoNamedWithContext(t *testing.T) {
	runner := New(newTestLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var sawCancel atomic.Bool
	runner.GoNamedWithContext(ctx, "ctx-routine", func(ctx context.Context) {
		<-ctx.Done()
		sawCancel.Store(true)
	})
	runner.Wait()

	if !sawCancel.Load() {
		t.Error("expected goroutine to observe context cancellation")
	}
}

func TestGoNamed_RecoversPanic(t *testing.T) {
	log := newTestLogger(t)

	done := make(chan struct{})
	GoNamed(log, "panic-routine", func() {
		defer close(done)
		panic("named panic")
	})
	<-done
	// reaching here means the panic did not propagate
}
