package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/event-weather-service/internal/observability"
)

// Handler runs one task and describes the outcome. Handlers report failures
// in the result string; they do not return errors.
type Handler func(ctx context.Context, t Task) string

// Runner dispatches tasks to the handler registered for their kind.
type Runner struct {
	handlers map[Kind]Handler
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewRunner creates a Runner with the given handlers.
func NewRunner(handlers map[Kind]Handler, logger *slog.Logger, metrics *observability.Metrics) *Runner {
	return &Runner{handlers: handlers, logger: logger, metrics: metrics}
}

// Run executes t and returns the handler's result.
func (r *Runner) Run(ctx context.Context, t Task) string {
	h, ok := r.handlers[t.Kind]
	if !ok {
		r.metrics.TasksFailed.WithLabelValues(string(t.Kind)).Inc()
		r.logger.Warn("no handler for task", "kind", t.Kind, "task_id", t.ID)
		return fmt.Sprintf("unknown task kind %q", t.Kind)
	}

	start := time.Now()
	result := h(ctx, t)
	r.metrics.TaskDuration.WithLabelValues(string(t.Kind)).Observe(time.Since(start).Seconds())

	r.logger.Info("task finished",
		"kind", t.Kind,
		"task_id", t.ID,
		"event_id", t.EventID,
		"result", result,
	)
	return result
}
