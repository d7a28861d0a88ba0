package cron_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fundexplorer/datakit/cron"
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

func TestChainRunsTasksInOrder(t *testing.T) {
	c := cron.New(newTestLogger(t))

	var order atomic.Int32
	var firstAt, secondAt int32
	done := make(chan struct{})

	err := c.AddChain(cron.Chain{
		Name: "pull",
		Spec: "* * * * * *",
		Tasks: []cron.Task{
			cron.TaskFunc("first", func(ctx context.Context) error {
				atomic.StoreInt32(&firstAt, order.Add(1))
				return nil
			}),
			cron.TaskFunc("second", func(ctx context.Context) error {
				atomic.StoreInt32(&secondAt, order.Add(1))
				select {
				case done <- struct{}{}:
				default:
				}
				return nil
			}),
		},
	})
	if err != nil {
		t.Fatalf("add chain failed: %v", err)
	}

	c.Start()
	defer c.Close()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("chain did not run")
	}
	if atomic.LoadInt32(&firstAt) >= atomic.LoadInt32(&secondAt) {
		t.Errorf("tasks ran out of order: first=%d second=%d", firstAt, secondAt)
	}
}

func TestChainAbortsOnFailure(t *testing.T) {
	c := cron.New(newTestLogger(t))

	ran := make(chan struct{}, 1)
	var reached atomic.Bool

	err := c.AddChain(cron.Chain{
		Name: "pull",
		Spec: "* * * * * *",
		Tasks: []cron.Task{
			cron.TaskFunc("failing", func(ctx context.Context) error {
				select {
				case ran <- struct{}{}:
				default:
				}
				return errors.New("boom")
			}),
			cron.TaskFunc("unreached", func(ctx context.Context) error {
				reached.Store(true)
				return nil
			}),
		},
	})
	if err != nil {
		t.Fatalf("add chain failed: %v", err)
	}

	c.Start()
	defer c.Close()

	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("chain did not run")
	}
	time.Sleep(50 * time.Millisecond)
	if reached.Load() {
		t.Error("task after a failure should not run")
	}
}

func TestChainRecoversFromPanic(t *testing.T) {
	c := cron.New(newTestLogger(t))

	ran := make(chan struct{}, 1)
	err := c.AddChain(cron.Chain{
		Name: "pull",
		Spec: "* * * * * *",
		Tasks: []cron.Task{
			cron.TaskFunc("panicking", func(ctx context.Context) error {
				select {
				case ran <- struct{}{}:
				default:
				}
				panic("boom")
			}),
		},
	})
	if err != nil {
		t.Fatalf("add chain failed: %v", err)
	}

	c.Start()
	defer c.Close()

	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("chain did not run")
	}
}

func TestAddChainValidation(t *testing.T) {
	c := cron.New(newTestLogger(t))

	if err := c.AddChain(cron.Chain{Name: "empty", Spec: "* * * * * *"}); !errors.Is(err, cron.ErrNoTasks) {
		t.Errorf("expected ErrNoTasks, got %v", err)
	}
	err := c.AddChain(cron.Chain{
		Name:  "bad-spec",
		Spec:  "not a spec",
		Tasks: []cron.Task{cron.TaskFunc("noop", func(ctx context.Context) error { return nil })},
	})
	if err == nil {
		t.Error("expected an error for an invalid spec")
	}
}

func TestEverySpec(t *testing.T) {
	c := cron.New(newTestLogger(t))
	err := c.AddChain(cron.Chain{
		Name:  "interval",
		Spec:  cron.Every(15 * time.Minute),
		Tasks: []cron.Task{cron.TaskFunc("noop", func(ctx context.Context) error { return nil })},
	})
	if err != nil {
		t.Fatalf("interval spec rejected: %v", err)
	}
}
