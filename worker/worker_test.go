package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

func TestRunExecutesAllTasks(t *testing.T) {
	p := New(4)
	var count int32
	tasks := make([]Task, 20)
	for i := range tasks {
		tasks[i] = func(ctx context.Context) error {
			atomic.AddInt32(&count, 1)
			return nil
		}
	}
	if err := p.Run(context.Background(), tasks); err != nil {
		t.Fatal(err)
	}
	if count != 20 {
		t.Fatalf("expected 20 tasks to run, got %d", count)
	}
}

func TestRunPropagatesFirstError(t *testing.T) {
	p := New(2)
	boom := errors.New("boom")
	tasks := []Task{
		func(ctx context.Context) error { return nil },
		func(ctx context.Context) error { return boom },
		func(ctx context.Context) error { return nil },
	}
	err := p.Run(context.Background(), tasks)
	if err == nil {
		t.Fatal("expected an error to propagate")
	}
}

func TestRunRespectsConcurrencyLimit(t *testing.T) {
	p := New(2)
	var concurrent, maxConcurrent int32
	tasks := make([]Task, 10)
	for i := range tasks {
		tasks[i] = func(ctx context.Context) error {
			n := atomic.AddInt32(&concurrent, 1)
			defer atomic.AddInt32(&concurrent, -1)
			for {
				old := atomic.LoadInt32(&maxConcurrent)
				if n <= old || atomic.CompareAndSwapInt32(&maxConcurrent, old, n) {
					break
				}
			}
			return nil
		}
	}
	if err := p.Run(context.Background(), tasks); err != nil {
		t.Fatal(err)
	}
	if maxConcurrent > 2 {
		t.Fatalf("expected at most 2 concurrent tasks, observed %d", maxConcurrent)
	}
}

func TestPoolStopPreventsFurtherRuns(t *testing.T) {
	p := New(1)
	if err := p.Stop(); err != nil {
		t.Fatal(err)
	}
	err := p.Run(context.Background(), []Task{func(ctx context.Context) error { return nil }})
	if err == nil {
		t.Fatal("expected Run to fail after Stop")
	}
}
