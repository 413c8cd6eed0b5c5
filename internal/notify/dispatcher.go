// Package notify delivers publication emails.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/couchcryptid/event-weather-service/internal/domain"
	"github.com/couchcryptid/event-weather-service/internal/observability"
	"github.com/couchcryptid/event-weather-service/internal/tasks"
)

// ResultEventNotFound is reported when the event vanished before delivery.
const ResultEventNotFound = "event not found"

// Mail is one outgoing message.
type Mail struct {
	From    string
	To      []string
	Subject string
	Body    string
}

// Mailer is the mail transport.
type Mailer interface {
	Send(ctx context.Context, m Mail) error
}

// EventReader loads events.
type EventReader interface {
	GetEvent(ctx context.Context, id uuid.UUID) (domain.Event, error)
}

// Dispatcher sends the message rendered at publication time.
type Dispatcher struct {
	events  EventReader
	mailer  Mailer
	from    string
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewDispatcher creates a Dispatcher sending from the given address.
func NewDispatcher(events EventReader, mailer Mailer, from string, logger *slog.Logger, metrics *observability.Metrics) *Dispatcher {
	return &Dispatcher{events: events, mailer: mailer, from: from, logger: logger, metrics: metrics}
}

// Dispatch confirms the event still exists and mails the message. The
// outcome is returned as a result string; it never fails.
func (d *Dispatcher) Dispatch(ctx context.Context, eventID uuid.UUID, subject, message string, recipients []string) string {
	ev, err := d.events.GetEvent(ctx, eventID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			d.logger.Error("load event for notification", "event_id", eventID, "error", err)
		}
		d.metrics.NotificationsOut.WithLabelValues("not_found").Inc()
		return ResultEventNotFound
	}

	err = d.mailer.Send(ctx, Mail{From: d.from, To: recipients, Subject: subject, Body: message})
	if err != nil {
		d.logger.Error("send notification", "event_id", eventID, "recipients", len(recipients), "error", err)
		d.metrics.NotificationsOut.WithLabelValues("error").Inc()
		return fmt.Sprintf("error sending email: %v", err)
	}

	d.metrics.NotificationsOut.WithLabelValues("sent").Inc()
	return "email sent for event " + ev.Title
}

// Handle adapts Dispatch to a tasks.Handler.
func (d *Dispatcher) Handle(ctx context.Context, t tasks.Task) string {
	return d.Dispatch(ctx, t.EventID, t.Subject, t.Message, t.Recipients)
}
