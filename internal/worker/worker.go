// Package worker runs fire-and-forget jobs on a bounded pool of goroutines.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

var (
	// ErrQueueFull is returned by Submit when no queue slot is free.
	ErrQueueFull = errors.New("worker queue is full")
	// ErrStopped is returned by Submit after Stop.
	ErrStopped = errors.New("worker pool is stopped")
)

// Job represents a task to be executed by a worker.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// ErrorHandler receives every failed job. It is the pool's only error channel.
type ErrorHandler func(job Job, err error)

// LogErrors is the default ErrorHandler.
func LogErrors(job Job, err error) {
	slog.Error("Background job failed", "job", job.Name, "error", err)
}

// WorkerPool manages a pool of workers and a queue of jobs.
type WorkerPool struct {
	JobQueue   chan Job
	PoolSize   int
	JobTimeout time.Duration
	OnError    ErrorHandler

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

// NewWorkerPool creates a new worker pool. Start must be called before jobs run.
func NewWorkerPool(poolSize, queueSize int, jobTimeout time.Duration) *WorkerPool {
	return &WorkerPool{
		JobQueue:   make(chan Job, queueSize),
		PoolSize:   poolSize,
		JobTimeout: jobTimeout,
		OnError:    LogErrors,
	}
}

// Start initializes the worker pool and starts the worker goroutines.
func (wp *WorkerPool) Start() {
	for i := 0; i < wp.PoolSize; i++ {
		wp.wg.Add(1)
		go func(workerID int) {
			defer wp.wg.Done()
			slog.Debug("Worker started", "worker", workerID)
			for job := range wp.JobQueue {
				wp.run(workerID, job)
			}
			slog.Debug("Worker stopped", "worker", workerID)
		}(i)
	}
}

func (wp *WorkerPool) run(workerID int, job Job) {
	// Jobs outlive the request that submitted them.
	ctx := context.Background()
	if wp.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, wp.JobTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("Background job panicked", "worker", workerID, "job", job.Name, "panic", r)
		}
	}()

	slog.Debug("Worker processing job", "worker", workerID, "job", job.Name)
	if err := job.Run(ctx); err != nil && wp.OnError != nil {
		wp.OnError(job, err)
	}
}

// Submit enqueues a job without waiting for it to run. It never blocks.
func (wp *WorkerPool) Submit(job Job) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	if wp.stopped {
		return ErrStopped
	}
	select {
	case wp.JobQueue <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop closes the queue and waits for queued and in-flight jobs to finish, or for ctx to end.
func (wp *WorkerPool) Stop(ctx context.Context) error {
	wp.mu.Lock()
	if !wp.stopped {
		wp.stopped = true
		close(wp.JobQueue)
	}
	wp.mu.Unlock()

	slog.Info("Stopping worker pool...")
	done := make(chan struct{})
	go func() {
		wp.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
