package async

import (
	"context"
	"errors"
	"sync"
	"time"

	"log/slog"
)

// ErrQueueClosed is returned by Enqueue after Shutdown.
var ErrQueueClosed = errors.New("queue is shutting down")

type WorkerQueue struct {
	proc    Processor
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*WorkerQueue)

func WithWorkers(n int) Option {
	return func(q *WorkerQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *WorkerQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}
func WithProcessTimeout(d time.Duration) Option {
	return func(q *WorkerQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewWorkerQueue(proc Processor, logger *slog.Logger, opts ...Option) *WorkerQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &WorkerQueue{
		proc:    proc,
		logger:  logger,
		workers: 2,
		timeout: 3 * time.Minute,
		ch:      make(chan Job, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *WorkerQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("worker started", "worker_id", workerID)

				for job := range q.ch {
					ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
					err := q.run(ctx, job)
					cancel()

					if err != nil {
						q.logger.Error("processing failed", "worker_id", workerID, "path", job.Path, "trace_id", job.TraceID, "error", err)
					} else {
						q.logger.Info("processed file successfully", "worker_id", workerID, "path", job.Path, "trace_id", job.TraceID)
					}
				}

				q.logger.Info("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

// run isolates a panicking processor so the worker survives.
func (q *WorkerQueue) run(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("processor panic", "path", job.Path, "panic", r)
			err = errors.New("processor panicked")
		}
	}()
	return q.proc.Process(ctx, job)
}

func (q *WorkerQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "path", job.Path)
		return ErrQueueClosed
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	select {
	case q.ch <- job:
		q.logger.Info("queued file for processing", "path", job.Path, "force", job.Force)
		return nil
	default:
	}
	q.logger.Warn("queue full, applying backpressure", "path", job.Path)
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *WorkerQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}
