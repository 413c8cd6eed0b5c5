package tasks

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/event-weather-service/internal/observability"
)

// Delivery is one serialized task read from a broker.
type Delivery struct {
	Payload   []byte
	Topic     string
	Partition int
	Offset    int64

	// Commit acknowledges the delivery. Nil when the source needs no ack.
	Commit func(ctx context.Context) error
}

// Source yields task deliveries, blocking until one is available.
type Source interface {
	Fetch(ctx context.Context) (Delivery, error)
}

// Consumer pulls tasks from a Source and runs them one at a time.
type Consumer struct {
	source  Source
	runner  *Runner
	logger  *slog.Logger
	metrics *observability.Metrics
	running atomic.Bool
}

// NewConsumer creates a Consumer.
func NewConsumer(source Source, runner *Runner, logger *slog.Logger, metrics *observability.Metrics) *Consumer {
	return &Consumer{source: source, runner: runner, logger: logger, metrics: metrics}
}

// Running reports whether Run is active.
func (c *Consumer) Running() bool {
	return c.running.Load()
}

// Run executes the fetch-run-commit loop until the context is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("task consumer started")
	c.running.Store(true)
	c.metrics.QueueRunning.Set(1)
	defer func() {
		c.running.Store(false)
		c.metrics.QueueRunning.Set(0)
	}()

	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("task consumer stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !c.processOne(ctx, &backoff, maxBackoff) {
			return nil
		}
	}
}

// processOne runs one fetch-run-commit cycle. Returns false if the consumer should stop.
func (c *Consumer) processOne(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	d, err := c.source.Fetch(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		c.logger.Error("fetch task failed", "error", err)
		return c.backoffOrStop(ctx, backoff, maxBackoff)
	}
	*backoff = 200 * time.Millisecond

	t, err := Decode(d.Payload)
	if err != nil {
		c.logger.Warn("undecodable task, skipping message",
			"error", err,
			"topic", d.Topic,
			"partition", d.Partition,
			"offset", d.Offset,
		)
		c.metrics.TasksFailed.WithLabelValues("undecodable").Inc()
		c.commit(ctx, d)
		return true
	}

	c.runner.Run(ctx, t)
	c.commit(ctx, d)
	return true
}

// backoffOrStop checks for context cancellation, sleeps with the current backoff,
// and advances the backoff. Returns false if the consumer should stop.
func (c *Consumer) backoffOrStop(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !sleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = nextBackoff(*backoff, maxBackoff)
	return true
}

// commit acknowledges the delivery if a commit function is available.
func (c *Consumer) commit(ctx context.Context, d Delivery) {
	if d.Commit == nil {
		return
	}
	if err := d.Commit(ctx); err != nil {
		c.logger.Warn("commit offset failed", "error", err,
			"topic", d.Topic, "partition", d.Partition, "offset", d.Offset)
	}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
