// Package scheduler runs the periodic sweeps: publishing due events,
// recording current weather for every venue, and ending finished events.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/event-weather-service/internal/domain"
	"github.com/couchcryptid/event-weather-service/internal/observability"
)

// Store is the persistence the sweeps read from and append to.
type Store interface {
	ListDueScheduled(ctx context.Context, now time.Time) ([]domain.Event, error)
	ListFinishedPublished(ctx context.Context, now time.Time) ([]domain.Event, error)
	ListVenues(ctx context.Context) ([]domain.Venue, error)
	CreateSnapshot(ctx context.Context, snap domain.WeatherSnapshot) (domain.WeatherSnapshot, error)
}

// Lifecycle moves events between statuses through the write path, so the
// usual post-commit effects fire.
type Lifecycle interface {
	Publish(ctx context.Context, id uuid.UUID) (domain.Event, error)
	End(ctx context.Context, id uuid.UUID) (domain.Event, error)
}

// CurrentWeather reads the current conditions at a venue.
type CurrentWeather interface {
	Current(ctx context.Context, venue domain.Venue) (domain.WeatherSnapshot, error)
}

// Options controls which sweeps run and how often.
type Options struct {
	PublishInterval      time.Duration
	WeatherSweepInterval time.Duration
	EndSweepEnabled      bool
}

// Scheduler owns the sweeps.
type Scheduler struct {
	store   Store
	events  Lifecycle
	weather CurrentWeather
	opts    Options
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New creates a Scheduler.
func New(store Store, events Lifecycle, weather CurrentWeather, opts Options, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Scheduler {
	return &Scheduler{
		store:   store,
		events:  events,
		weather: weather,
		opts:    opts,
		clock:   clock,
		logger:  logger,
		metrics: metrics,
	}
}

type sweepJob struct {
	name     string
	interval time.Duration
	run      func()
}

// Run registers the sweeps, runs each once immediately, and keeps them on
// their intervals until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	cron, err := gocron.NewScheduler(gocron.WithClock(s.clock))
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}

	jobs := []sweepJob{
		{"publish", s.opts.PublishInterval, func() {
			if _, err := s.RunPublicationSweep(ctx, s.clock.Now()); err != nil {
				s.logger.Error("publication sweep failed", "error", err)
			}
		}},
		{"weather", s.opts.WeatherSweepInterval, func() {
			if _, err := s.RunWeatherSweep(ctx); err != nil {
				s.logger.Error("weather sweep failed", "error", err)
			}
		}},
	}
	if s.opts.EndSweepEnabled {
		jobs = append(jobs, sweepJob{"end", s.opts.PublishInterval, func() {
			if _, err := s.RunEndSweep(ctx, s.clock.Now()); err != nil {
				s.logger.Error("end sweep failed", "error", err)
			}
		}})
	}

	for _, j := range jobs {
		_, err := cron.NewJob(
			gocron.DurationJob(j.interval),
			gocron.NewTask(j.run),
			gocron.WithName(j.name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
			gocron.WithStartAt(gocron.WithStartImmediately()),
		)
		if err != nil {
			return fmt.Errorf("register %s sweep: %w", j.name, err)
		}
		s.logger.Info("sweep scheduled", "sweep", j.name, "interval", j.interval)
	}

	cron.Start()
	<-ctx.Done()
	return cron.Shutdown()
}

// RunPublicationSweep publishes every SCHEDULED event due at now and returns
// how many were published. A failure on one event is logged and does not
// stop the rest.
func (s *Scheduler) RunPublicationSweep(ctx context.Context, now time.Time) (int, error) {
	defer s.observe("publish", time.Now())

	due, err := s.store.ListDueScheduled(ctx, now)
	if err != nil {
		return 0, err
	}
	published := 0
	for _, ev := range due {
		if _, err := s.events.Publish(ctx, ev.ID); err != nil {
			s.logger.Warn("publish scheduled event", "event_id", ev.ID, "error", err)
			continue
		}
		published++
	}
	if published > 0 {
		s.logger.Info("published scheduled events", "count", published)
	} else {
		s.logger.Debug("no events to publish")
	}
	return published, nil
}

// RunWeatherSweep records current conditions for every venue and returns one
// "Updated <name>" or "Failed <name>" line per venue. Per-venue failures are
// reported in the lines; only a failure to list venues is returned as an error.
func (s *Scheduler) RunWeatherSweep(ctx context.Context) ([]string, error) {
	defer s.observe("weather", time.Now())

	venues, err := s.store.ListVenues(ctx)
	if err != nil {
		return nil, fmt.Errorf("list venues for weather sweep: %w", err)
	}
	results := make([]string, 0, len(venues))
	for _, v := range venues {
		if err := s.recordWeather(ctx, v); err != nil {
			s.logger.Warn("venue weather update failed", "venue", v.Name, "error", err)
			results = append(results, "Failed "+v.Name)
			continue
		}
		results = append(results, "Updated "+v.Name)
	}
	s.logger.Info("weather sweep finished", "venues", len(venues))
	return results, nil
}

func (s *Scheduler) recordWeather(ctx context.Context, v domain.Venue) error {
	snap, err := s.weather.Current(ctx, v)
	if err != nil {
		return err
	}
	_, err = s.store.CreateSnapshot(ctx, snap)
	return err
}

// RunEndSweep moves PUBLISHED events whose end time has passed to ENDED.
func (s *Scheduler) RunEndSweep(ctx context.Context, now time.Time) (int, error) {
	defer s.observe("end", time.Now())

	finished, err := s.store.ListFinishedPublished(ctx, now)
	if err != nil {
		return 0, err
	}
	ended := 0
	for _, ev := range finished {
		if _, err := s.events.End(ctx, ev.ID); err != nil {
			s.logger.Warn("end finished event", "event_id", ev.ID, "error", err)
			continue
		}
		ended++
	}
	if ended > 0 {
		s.logger.Info("ended finished events", "count", ended)
	}
	return ended, nil
}

func (s *Scheduler) observe(sweep string, start time.Time) {
	s.metrics.SweepDuration.WithLabelValues(sweep).Observe(time.Since(start).Seconds())
}
