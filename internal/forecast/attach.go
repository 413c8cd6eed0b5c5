package forecast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/couchcryptid/event-weather-service/internal/domain"
)

// Result strings reported by Attacher.
const (
	ResultEventNotFound = "event not found"
	ResultNoLocation    = "no venue or location"
	ResultUnavailable   = "weather forecast not available (too far in future?)"
)

// EventStore is the persistence the attacher reads from and appends to.
type EventStore interface {
	GetEvent(ctx context.Context, id uuid.UUID) (domain.Event, error)
	CreateSnapshot(ctx context.Context, snap domain.WeatherSnapshot) (domain.WeatherSnapshot, error)
}

// WeatherAttacher links a stored snapshot to an event through the lifecycle
// write path.
type WeatherAttacher interface {
	AttachWeather(ctx context.Context, eventID, snapshotID uuid.UUID) error
}

// Attacher fetches the forecast for an event's start and attaches it.
type Attacher struct {
	forecasts *Service
	store     EventStore
	events    WeatherAttacher
	logger    *slog.Logger
}

// NewAttacher creates an Attacher.
func NewAttacher(forecasts *Service, store EventStore, events WeatherAttacher, logger *slog.Logger) *Attacher {
	return &Attacher{forecasts: forecasts, store: store, events: events, logger: logger}
}

// Attach runs one forecast attachment and reports its outcome as a result
// string. Failures are logged, never returned.
func (a *Attacher) Attach(ctx context.Context, eventID uuid.UUID) string {
	ev, err := a.store.GetEvent(ctx, eventID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			a.logger.Error("load event for forecast", "event_id", eventID, "error", err)
		}
		return ResultEventNotFound
	}
	if ev.Venue == nil {
		return ResultNoLocation
	}
	if _, err := domain.ResolveCoordinates(ev.Venue.Location); err != nil {
		a.logger.Warn("venue location unusable", "event_id", eventID, "venue", ev.Venue.Name, "error", err)
		return ResultNoLocation
	}

	snap, err := a.forecasts.At(ctx, *ev.Venue, ev.StartAt)
	if err != nil {
		if errors.Is(err, domain.ErrUnavailable) {
			a.logger.Info("forecast unavailable", "event_id", eventID, "start_at", ev.StartAt, "error", err)
		} else {
			a.logger.Warn("forecast fetch failed", "event_id", eventID, "error", err)
		}
		return ResultUnavailable
	}

	snap, err = a.store.CreateSnapshot(ctx, snap)
	if err != nil {
		a.logger.Error("save forecast snapshot", "event_id", eventID, "error", err)
		return fmt.Sprintf("error saving weather: %v", err)
	}
	if err := a.events.AttachWeather(ctx, eventID, snap.ID); err != nil {
		a.logger.Error("attach forecast to event", "event_id", eventID, "snapshot_id", snap.ID, "error", err)
		return fmt.Sprintf("error saving weather: %v", err)
	}

	a.logger.Info("forecast attached", "event_id", eventID, "snapshot_id", snap.ID)
	return "weather saved for event " + ev.Title
}
