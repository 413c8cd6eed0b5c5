// Package lifecycle is the single write path for events. Every create or
// update is validated, planned before commit, persisted, and then handed to an
// ordered list of effects that queue the asynchronous follow-up work.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/couchcryptid/event-weather-service/internal/domain"
	"github.com/couchcryptid/event-weather-service/internal/observability"
)

// Store persists events. UpdateEvent must run fn and the write in one
// transaction and write only the columns named by the returned FieldSet
// (all columns when it is nil).
type Store interface {
	CreateEvent(ctx context.Context, e domain.Event) (domain.Event, error)
	UpdateEvent(ctx context.Context, id uuid.UUID, fn func(current domain.Event) (domain.Event, domain.FieldSet, error)) (domain.Event, error)
}

// Commit describes a write that has been persisted.
type Commit struct {
	Event    domain.Event
	Created  bool
	Changed  domain.FieldSet
	Decision domain.WriteDecision
}

// Effect reacts to a committed write. Effects queue work; they must not block
// on external I/O.
type Effect interface {
	Name() string
	Apply(ctx context.Context, c Commit) error
}

// Service owns event status changes and their downstream effects.
type Service struct {
	store   Store
	effects []Effect
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewService creates a Service. Effects run in the order given.
func NewService(store Store, logger *slog.Logger, metrics *observability.Metrics, effects ...Effect) *Service {
	return &Service{store: store, effects: effects, logger: logger, metrics: metrics}
}

// OnEventWrite is the pre-commit step. old is nil for a new event.
func (s *Service) OnEventWrite(old *domain.Event, next domain.Event) (domain.Event, domain.WriteDecision) {
	return domain.PlanWrite(old, next)
}

// OnEventCommitted is the post-commit step. Effect failures are logged and
// never returned, so a committed write always stands.
func (s *Service) OnEventCommitted(ctx context.Context, ev domain.Event, created bool, changed domain.FieldSet, decision domain.WriteDecision) {
	if ev.Status == domain.StatusPublished && (created || changed.Has(domain.FieldStatus)) {
		s.metrics.EventsPublished.Inc()
	}
	if decision.ClearedWeather {
		s.metrics.WeatherCleared.Inc()
	}

	c := Commit{Event: ev, Created: created, Changed: changed, Decision: decision}
	for _, e := range s.effects {
		if err := e.Apply(ctx, c); err != nil {
			s.logger.Error("post-commit effect failed",
				"effect", e.Name(),
				"event_id", ev.ID,
				"error", err,
			)
		}
	}
}

// Create validates and stores a new event. An empty status means DRAFT.
func (s *Service) Create(ctx context.Context, ev domain.Event) (domain.Event, error) {
	if ev.Status == "" {
		ev.Status = domain.StatusDraft
	}
	if err := domain.ValidateEvent(ev); err != nil {
		s.metrics.EventWrites.WithLabelValues("create", "invalid").Inc()
		return domain.Event{}, err
	}

	ev, decision := s.OnEventWrite(nil, ev)
	saved, err := s.store.CreateEvent(ctx, ev)
	if err != nil {
		s.metrics.EventWrites.WithLabelValues("create", "error").Inc()
		return domain.Event{}, err
	}
	s.metrics.EventWrites.WithLabelValues("create", "ok").Inc()
	s.logger.Info("event created", "event_id", saved.ID, "status", saved.Status)

	s.OnEventCommitted(ctx, saved, true, nil, decision)
	return saved, nil
}

// Update applies mutate to the stored event inside one transaction. changed
// names the fields mutate touches; nil means unknown and writes every column.
// A known set is narrowed to the fields whose values actually differ, so
// repeating a write is a no-op for the effects.
func (s *Service) Update(ctx context.Context, id uuid.UUID, mutate func(*domain.Event), changed domain.FieldSet) (domain.Event, error) {
	var (
		decision domain.WriteDecision
		written  domain.FieldSet
	)
	saved, err := s.store.UpdateEvent(ctx, id, func(current domain.Event) (domain.Event, domain.FieldSet, error) {
		next := current
		mutate(&next)
		if err := domain.ValidateTransition(current.Status, next.Status); err != nil {
			return domain.Event{}, nil, err
		}
		if err := domain.ValidateEvent(next); err != nil {
			return domain.Event{}, nil, err
		}

		next, decision = s.OnEventWrite(&current, next)
		written = changed
		if written.Known() {
			if decision.ClearedWeather {
				written = written.With(domain.FieldWeather)
			}
			written = written.Intersect(domain.ChangedFields(current, next))
		}
		return next, written, nil
	})
	if err != nil {
		outcome := "error"
		if errors.Is(err, domain.ErrValidation) || errors.Is(err, domain.ErrInvalidTransition) {
			outcome = "invalid"
		}
		s.metrics.EventWrites.WithLabelValues("update", outcome).Inc()
		return domain.Event{}, err
	}
	s.metrics.EventWrites.WithLabelValues("update", "ok").Inc()
	s.logger.Debug("event updated", "event_id", id, "fields", written.Names(), "status", saved.Status)

	s.OnEventCommitted(ctx, saved, false, written, decision)
	return saved, nil
}

// Publish moves an event to PUBLISHED.
func (s *Service) Publish(ctx context.Context, id uuid.UUID) (domain.Event, error) {
	return s.setStatus(ctx, id, domain.StatusPublished)
}

// End moves an event to ENDED.
func (s *Service) End(ctx context.Context, id uuid.UUID) (domain.Event, error) {
	ev, err := s.setStatus(ctx, id, domain.StatusEnded)
	if err == nil {
		s.metrics.EventsEnded.Inc()
	}
	return ev, err
}

// SoftDelete marks an event DELETED and leaves every other field alone.
func (s *Service) SoftDelete(ctx context.Context, id uuid.UUID) (domain.Event, error) {
	return s.setStatus(ctx, id, domain.StatusDeleted)
}

func (s *Service) setStatus(ctx context.Context, id uuid.UUID, to domain.Status) (domain.Event, error) {
	ev, err := s.Update(ctx, id, func(e *domain.Event) { e.Status = to }, domain.Fields(domain.FieldStatus))
	if err != nil {
		return domain.Event{}, fmt.Errorf("set status %s: %w", to, err)
	}
	return ev, nil
}

// AttachWeather links a stored snapshot to the event.
func (s *Service) AttachWeather(ctx context.Context, eventID, snapshotID uuid.UUID) error {
	_, err := s.Update(ctx, eventID, func(e *domain.Event) {
		e.WeatherID = &snapshotID
	}, domain.Fields(domain.FieldWeather))
	return err
}

// AttachPreview records the event's preview image reference.
func (s *Service) AttachPreview(ctx context.Context, eventID uuid.UUID, ref string) error {
	_, err := s.Update(ctx, eventID, func(e *domain.Event) {
		e.PreviewImage = ref
	}, domain.Fields(domain.FieldPreviewImage))
	return err
}
