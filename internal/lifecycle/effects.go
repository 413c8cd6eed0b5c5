package lifecycle

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

// WeatherEffect queues a forecast fetch when the write asked for one.
type WeatherEffect struct {
	queue tasks.Queue
}

// NewWeatherEffect creates a WeatherEffect.
func NewWeatherEffect(queue tasks.Queue) *WeatherEffect {
	return &WeatherEffect{queue: queue}
}

func (e *WeatherEffect) Name() string { return "weather" }

func (e *WeatherEffect) Apply(ctx context.Context, c Commit) error {
	if !c.Decision.NeedsWeather {
		return nil
	}
	if err := e.queue.Enqueue(ctx, tasks.NewForecastTask(c.Event.ID)); err != nil {
		return fmt.Errorf("enqueue forecast: %w", err)
	}
	return nil
}

// NotificationSource supplies what a publication message needs.
type NotificationSource interface {
	GetVenue(ctx context.Context, id uuid.UUID) (domain.Venue, error)
	NotificationConfig(ctx context.Context) (domain.NotificationConfig, error)
	ListUserEmails(ctx context.Context) ([]string, error)
}

// NotificationEffect renders the publication message and queues it for
// delivery.
type NotificationEffect struct {
	source  NotificationSource
	queue   tasks.Queue
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewNotificationEffect creates a NotificationEffect.
func NewNotificationEffect(source NotificationSource, queue tasks.Queue, logger *slog.Logger, metrics *observability.Metrics) *NotificationEffect {
	return &NotificationEffect{source: source, queue: queue, logger: logger, metrics: metrics}
}

func (e *NotificationEffect) Name() string { return "notification" }

func (e *NotificationEffect) Apply(ctx context.Context, c Commit) error {
	if !domain.ShouldNotify(c.Event, c.Created, c.Changed) {
		return nil
	}

	cfg, err := e.source.NotificationConfig(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		e.skip(c.Event.ID, "no notification config")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load notification config: %w", err)
	}

	var emails []string
	if cfg.SendToAllUsers {
		if emails, err = e.source.ListUserEmails(ctx); err != nil {
			return fmt.Errorf("list user emails: %w", err)
		}
	}
	recipients := domain.Recipients(cfg, emails)
	if len(recipients) == 0 {
		e.skip(c.Event.ID, "no recipients")
		return nil
	}

	msg := domain.RenderNotification(cfg, c.Event, e.venueName(ctx, c.Event))
	if err := e.queue.Enqueue(ctx, tasks.NewNotificationTask(c.Event.ID, msg, recipients)); err != nil {
		return fmt.Errorf("enqueue notification: %w", err)
	}
	return nil
}

func (e *NotificationEffect) venueName(ctx context.Context, ev domain.Event) string {
	if ev.Venue != nil {
		return ev.Venue.Name
	}
	v, err := e.source.GetVenue(ctx, ev.VenueID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			e.logger.Warn("load venue for notification", "event_id", ev.ID, "venue_id", ev.VenueID, "error", err)
		}
		return ""
	}
	return v.Name
}

func (e *NotificationEffect) skip(eventID uuid.UUID, reason string) {
	e.metrics.NotificationsOut.WithLabelValues("skipped").Inc()
	e.logger.Debug("notification skipped", "event_id", eventID, "reason", reason)
}
