package kafka

import (
	"context"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/event-weather-service/internal/config"
	"github.com/couchcryptid/event-weather-service/internal/tasks"
)

// Reader consumes task messages from a Kafka topic as a member of a consumer
// group. It implements tasks.Source; offsets are committed explicitly.
type Reader struct {
	reader *kafkago.Reader
	logger *slog.Logger
}

// NewReader creates a Kafka consumer for the configured task topic.
func NewReader(cfg *config.Config, logger *slog.Logger) *Reader {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  cfg.KafkaBrokers,
		GroupID:  cfg.KafkaGroupID,
		Topic:    cfg.KafkaTaskTopic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &Reader{reader: r, logger: logger}
}

// Fetch blocks until the next message arrives.
func (r *Reader) Fetch(ctx context.Context) (tasks.Delivery, error) {
	msg, err := r.reader.FetchMessage(ctx)
	if err != nil {
		return tasks.Delivery{}, err
	}
	d := mapMessageToDelivery(msg)
	d.Commit = func(ctx context.Context) error {
		return r.reader.CommitMessages(ctx, msg)
	}
	return d, nil
}

func (r *Reader) Close() error {
	return r.reader.Close()
}

func mapMessageToDelivery(msg kafkago.Message) tasks.Delivery {
	return tasks.Delivery{
		Payload:   msg.Value,
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
	}
}
