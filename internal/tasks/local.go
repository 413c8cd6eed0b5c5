package tasks

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/event-weather-service/internal/observability"
)

// LocalQueue runs tasks in-process on a fixed pool of worker goroutines fed
// by a bounded channel.
type LocalQueue struct {
	runner  *Runner
	workers int
	tasks   chan Task
	logger  *slog.Logger
	metrics *observability.Metrics

	mu     sync.RWMutex
	closed bool
	group  *errgroup.Group
}

// NewLocalQueue creates a queue with the given worker count and buffer size.
func NewLocalQueue(runner *Runner, workers, buffer int, logger *slog.Logger, metrics *observability.Metrics) *LocalQueue {
	return &LocalQueue{
		runner:  runner,
		workers: workers,
		tasks:   make(chan Task, buffer),
		logger:  logger,
		metrics: metrics,
	}
}

// Start launches the workers. Tasks run with ctx; cancelling it aborts
// in-flight provider and mail calls.
func (q *LocalQueue) Start(ctx context.Context) {
	g := &errgroup.Group{}
	for i := 0; i < q.workers; i++ {
		g.Go(func() error {
			for t := range q.tasks {
				q.runner.Run(ctx, t)
			}
			return nil
		})
	}
	q.group = g
	q.metrics.QueueRunning.Set(1)
	q.logger.Info("local task queue started", "workers", q.workers, "buffer", cap(q.tasks))
}

// Enqueue hands t to the workers without waiting. When the buffer is full the
// task is dropped and ErrQueueFull is returned.
func (q *LocalQueue) Enqueue(ctx context.Context, t Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.tasks <- t:
		q.metrics.TasksEnqueued.WithLabelValues(string(t.Kind)).Inc()
		return nil
	default:
		q.metrics.TasksFailed.WithLabelValues("queue_full").Inc()
		q.logger.Warn("task queue full, dropping task",
			"kind", t.Kind,
			"task_id", t.ID,
			"event_id", t.EventID,
			"buffer", cap(q.tasks),
		)
		return ErrQueueFull
	}
}

// Close stops accepting tasks and waits for queued ones to drain.
func (q *LocalQueue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.tasks)
	q.mu.Unlock()

	q.metrics.QueueRunning.Set(0)
	if q.group == nil {
		return nil
	}
	return q.group.Wait()
}
