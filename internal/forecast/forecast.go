// Package forecast turns provider responses into weather snapshots for
// venues and events.
package forecast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/event-weather-service/internal/domain"
)

// Service resolves venue coordinates and queries a ForecastProvider.
type Service struct {
	provider domain.ForecastProvider
	logger   *slog.Logger
}

// NewService creates a forecast service.
func NewService(provider domain.ForecastProvider, logger *slog.Logger) *Service {
	return &Service{provider: provider, logger: logger}
}

// Current returns a snapshot of the venue's current conditions.
func (s *Service) Current(ctx context.Context, venue domain.Venue) (domain.WeatherSnapshot, error) {
	p, err := domain.ResolveCoordinates(venue.Location)
	if err != nil {
		return domain.WeatherSnapshot{}, fmt.Errorf("venue %q: %w", venue.Name, err)
	}
	cur, err := s.provider.FetchCurrent(ctx, p.Lat, p.Lon)
	if err != nil {
		return domain.WeatherSnapshot{}, fmt.Errorf("fetch current weather for %q: %w", venue.Name, err)
	}
	return domain.SnapshotFromCurrent(venue.ID, cur), nil
}

// At returns the forecast for the hour containing t at the venue. The slot
// is matched in the venue's local time as reported by the provider. It
// returns domain.ErrUnavailable when the provider has no slot for that hour.
func (s *Service) At(ctx context.Context, venue domain.Venue, t time.Time) (domain.WeatherSnapshot, error) {
	p, err := domain.ResolveCoordinates(venue.Location)
	if err != nil {
		return domain.WeatherSnapshot{}, fmt.Errorf("venue %q: %w", venue.Name, err)
	}

	date := domain.DateKey(t.UTC())
	series, err := s.provider.FetchHourly(ctx, p.Lat, p.Lon, date)
	if errors.Is(err, domain.ErrUnavailable) {
		// West of UTC the local date can be the day before, which may still
		// be inside the provider's horizon when the UTC date is not.
		prev := domain.DateKey(t.UTC().AddDate(0, 0, -1))
		s.logger.Debug("forecast unavailable for UTC date, trying previous day",
			"venue", venue.Name, "utc_date", date, "date", prev)
		date = prev
		series, err = s.provider.FetchHourly(ctx, p.Lat, p.Lon, date)
	}
	if err != nil {
		return domain.WeatherSnapshot{}, err
	}

	local := t.In(series.Zone())
	if localDate := domain.DateKey(local); localDate != date {
		s.logger.Debug("forecast local date differs, refetching",
			"venue", venue.Name, "fetched_date", date, "local_date", localDate)
		series, err = s.provider.FetchHourly(ctx, p.Lat, p.Lon, localDate)
		if err != nil {
			return domain.WeatherSnapshot{}, err
		}
		local = t.In(series.Zone())
	}

	rec, ok := series.Slot(domain.HourKey(local))
	if !ok {
		return domain.WeatherSnapshot{}, fmt.Errorf("%w: no slot for %s", domain.ErrUnavailable, domain.HourKey(local))
	}
	return domain.SnapshotFromForecast(venue.ID, rec), nil
}
