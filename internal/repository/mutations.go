package repository

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

var errQueueClosed = errors.New("store is shutting down")

type mutation struct {
	ctx  context.Context
	name string
	fn   func(ctx context.Context) error
	done chan error
}

// mutationQueue runs store writes one at a time on a single worker so
// read-modify-write sequences never interleave.
type mutationQueue struct {
	logger *slog.Logger
	ch     chan mutation
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

func newMutationQueue(logger *slog.Logger, size int) *mutationQueue {
	if size <= 0 {
		size = 64
	}
	q := &mutationQueue{logger: logger, ch: make(chan mutation, size)}
	q.wg.Add(1)
	go q.run()
	return q
}

func (q *mutationQueue) run() {
	defer q.wg.Done()
	for m := range q.ch {
		if err := m.ctx.Err(); err != nil {
			m.done <- err
			continue
		}
		err := m.fn(m.ctx)
		if err != nil {
			q.logger.Debug("store.mutation.failed", "op", m.name, "error", err)
		}
		m.done <- err
	}
}

// do enqueues fn and waits for it to finish or for ctx to end.
func (q *mutationQueue) do(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	m := mutation{ctx: ctx, name: name, fn: fn, done: make(chan error, 1)}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return errQueueClosed
	}
	select {
	case q.ch <- m:
		q.mu.Unlock()
	case <-ctx.Done():
		q.mu.Unlock()
		return ctx.Err()
	}

	select {
	case err := <-m.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// shutdown stops accepting writes and waits for queued ones to drain.
func (q *mutationQueue) shutdown(ctx context.Context) {
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
		q.logger.Warn("store.mutations.shutdown_interrupted")
	case <-done:
		q.logger.Info("store.mutations.drained")
	}
}
