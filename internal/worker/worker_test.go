package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPoolRunsSubmittedJobs(t *testing.T) {
	wp := NewWorkerPool(3, 10, time.Second)
	wp.Start()

	var ran atomic.Int32
	for i := 0; i < 10; i++ {
		err := wp.Submit(Job{Name: "count", Run: func(ctx context.Context) error {
			ran.Add(1)
			return nil
		}})
		if err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}

	if err := wp.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if n := ran.Load(); n != 10 {
		t.Errorf("expected 10 jobs to run, got %d", n)
	}
}

func TestPoolReportsErrors(t *testing.T) {
	wp := NewWorkerPool(1, 1, time.Second)
	var (
		mu     sync.Mutex
		failed []string
	)
	wp.OnError = func(job Job, err error) {
		mu.Lock()
		defer mu.Unlock()
		failed = append(failed, job.Name+": "+err.Error())
	}
	wp.Start()

	wp.Submit(Job{Name: "upsert naruto", Run: func(ctx context.Context) error {
		return errors.New("connection reset")
	}})
	wp.Stop(context.Background())

	if len(failed) != 1 || failed[0] != "upsert naruto: connection reset" {
		t.Errorf("unexpected error reports: %v", failed)
	}
}

func TestPoolJobTimeout(t *testing.T) {
	wp := NewWorkerPool(1, 1, 20*time.Millisecond)
	var got error
	wp.OnError = func(job Job, err error) { got = err }
	wp.Start()

	wp.Submit(Job{Name: "slow", Run: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}})
	wp.Stop(context.Background())

	if !errors.Is(got, context.DeadlineExceeded) {
		t.Errorf("expected job deadline, got %v", got)
	}
}

func TestSubmitDoesNotBlock(t *testing.T) {
	wp := NewWorkerPool(1, 1, time.Second)
	// not started: the single queue slot fills up

	noop := Job{Name: "noop", Run: func(ctx context.Context) error { return nil }}
	if err := wp.Submit(noop); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if err := wp.Submit(noop); !errors.Is(err, ErrQueueFull) {
		t.Errorf("expected ErrQueueFull, got %v", err)
	}

	wp.Start()
	wp.Stop(context.Background())
	if err := wp.Submit(noop); !errors.Is(err, ErrStopped) {
		t.Errorf("expected ErrStopped, got %v", err)
	}
}

func TestPoolSurvivesPanics(t *testing.T) {
	wp := NewWorkerPool(1, 2, time.Second)
	wp.Start()

	var ran atomic.Bool
	wp.Submit(Job{Name: "panics", Run: func(ctx context.Context) error { panic("boom") }})
	wp.Submit(Job{Name: "after", Run: func(ctx context.Context) error {
		ran.Store(true)
		return nil
	}})
	wp.Stop(context.Background())

	if !ran.Load() {
		t.Error("worker should keep running after a panicking job")
	}
}

func TestStopHonoursContext(t *testing.T) {
	wp := NewWorkerPool(1, 1, 0)
	wp.Start()
	release := make(chan struct{})
	defer close(release)

	wp.Submit(Job{Name: "stuck", Run: func(ctx context.Context) error {
		<-release
		return nil
	}})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := wp.Stop(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected stop to give up at deadline, got %v", err)
	}
}
