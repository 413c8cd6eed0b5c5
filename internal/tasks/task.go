// Package tasks carries post-commit effects from the event write path to the
// workers that run them. A task is fire-and-forget: the writer never waits for
// or sees its outcome.
package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/event-weather-service/internal/domain"
)

// Kind names what a task does.
type Kind string

const (
	KindAttachForecast   Kind = "attach_forecast"
	KindSendNotification Kind = "send_notification"
)

// ErrQueueClosed is returned by Enqueue after the queue has shut down.
var ErrQueueClosed = errors.New("task queue closed")

// ErrQueueFull is returned by a bounded queue that has no room for a task.
var ErrQueueFull = errors.New("task queue full")

// Task is a unit of asynchronous work for one event.
type Task struct {
	ID         uuid.UUID `json:"id"`
	Kind       Kind      `json:"kind"`
	EventID    uuid.UUID `json:"event_id"`
	Subject    string    `json:"subject,omitempty"`
	Message    string    `json:"message,omitempty"`
	Recipients []string  `json:"recipients,omitempty"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// NewForecastTask asks for a forecast to be fetched and attached to the event.
func NewForecastTask(eventID uuid.UUID) Task {
	return Task{
		ID:         uuid.New(),
		Kind:       KindAttachForecast,
		EventID:    eventID,
		EnqueuedAt: domain.Now(),
	}
}

// NewNotificationTask asks for a rendered message to be mailed to recipients.
func NewNotificationTask(eventID uuid.UUID, msg domain.Message, recipients []string) Task {
	return Task{
		ID:         uuid.New(),
		Kind:       KindSendNotification,
		EventID:    eventID,
		Subject:    msg.Subject,
		Message:    msg.Body,
		Recipients: recipients,
		EnqueuedAt: domain.Now(),
	}
}

// Queue accepts tasks for asynchronous execution.
type Queue interface {
	Enqueue(ctx context.Context, t Task) error
}

// Encode serializes a task for transport.
func Encode(t Task) ([]byte, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("encode task: %w", err)
	}
	return data, nil
}

// Decode parses a serialized task and checks it is runnable.
func Decode(data []byte) (Task, error) {
	var t Task
	if err := json.Unmarshal(data, &t); err != nil {
		return Task{}, fmt.Errorf("decode task: %w", err)
	}
	switch t.Kind {
	case KindAttachForecast, KindSendNotification:
	default:
		return Task{}, fmt.Errorf("decode task: unknown kind %q", t.Kind)
	}
	if t.EventID == uuid.Nil {
		return Task{}, errors.New("decode task: missing event_id")
	}
	return t, nil
}
