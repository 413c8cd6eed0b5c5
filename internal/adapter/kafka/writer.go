package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/event-weather-service/internal/config"
	"github.com/couchcryptid/event-weather-service/internal/observability"
	"github.com/couchcryptid/event-weather-service/internal/tasks"
)

// Writer produces task messages to a Kafka topic.
// It implements tasks.Queue.
type Writer struct {
	writer  *kafkago.Writer
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewWriter creates a Kafka producer for the configured task topic.
func NewWriter(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTaskTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger, metrics: metrics}
}

// Enqueue serializes and publishes a task. Tasks are keyed by event id so
// work for one event lands on one partition.
func (w *Writer) Enqueue(ctx context.Context, t tasks.Task) error {
	msg, err := serializeToMessage(t)
	if err != nil {
		w.metrics.TasksFailed.WithLabelValues(string(t.Kind)).Inc()
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		w.metrics.TasksFailed.WithLabelValues(string(t.Kind)).Inc()
		return fmt.Errorf("publish %s task: %w", t.Kind, err)
	}
	w.metrics.TasksEnqueued.WithLabelValues(string(t.Kind)).Inc()
	w.logger.Debug("task published", "kind", t.Kind, "task_id", t.ID, "event_id", t.EventID)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a Task into a Kafka message.
func serializeToMessage(t tasks.Task) (kafkago.Message, error) {
	data, err := tasks.Encode(t)
	if err != nil {
		return kafkago.Message{}, err
	}
	return kafkago.Message{
		Key:   []byte(t.EventID.String()),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "task_kind", Value: []byte(t.Kind)},
			{Key: "enqueued_at", Value: []byte(t.EnqueuedAt.Format(time.RFC3339))},
		},
	}, nil
}
