package forecast

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/event-weather-service/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeProvider serves a full day of hourly records for any date, in a fixed
// UTC offset, and records the dates it was asked for.
type fakeProvider struct {
	offset      int
	current     domain.CurrentConditions
	err         error
	dates       []string
	currentHits int
	emptyDates  map[string]bool
	// lastDate is the end of the forecast horizon; later dates are unavailable.
	lastDate string
}

func (f *fakeProvider) FetchCurrent(_ context.Context, _, _ float64) (domain.CurrentConditions, error) {
	f.currentHits++
	return f.current, f.err
}

func (f *fakeProvider) FetchHourly(_ context.Context, _, _ float64, date string) (domain.HourlySeries, error) {
	f.dates = append(f.dates, date)
	if f.err != nil {
		return domain.HourlySeries{}, f.err
	}
	if f.lastDate != "" && date > f.lastDate {
		return domain.HourlySeries{}, fmt.Errorf("%w: out of range", domain.ErrUnavailable)
	}
	series := domain.HourlySeries{UTCOffsetSeconds: f.offset}
	if f.emptyDates[date] {
		return series, nil
	}
	for h := 0; h < 24; h++ {
		series.Records = append(series.Records, domain.HourlyRecord{
			Time:             fmt.Sprintf("%sT%02d:00", date, h),
			TemperatureC:     float64(h),
			HumidityPct:      50,
			PressureHPa:      1013,
			WindSpeedMS:      2,
			WindDirectionDeg: 90,
		})
	}
	return series, nil
}

func testVenue() domain.Venue {
	return domain.Venue{
		ID:       uuid.New(),
		Name:     "Arena",
		Location: domain.Location{WKT: "POINT(92.87 56.01)"},
	}
}

func TestService_At_UTCVenue(t *testing.T) {
	p := &fakeProvider{}
	svc := NewService(p, discardLogger())
	venue := testVenue()

	snap, err := svc.At(context.Background(), venue, time.Date(2026, 5, 1, 20, 30, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, []string{"2026-05-01"}, p.dates)
	assert.Equal(t, 20.0, snap.TemperatureC, "slot for 20:00 local")
	assert.Equal(t, 759.0, snap.PressureMmHg)
	assert.Equal(t, "E", snap.WindDirection)
	assert.Equal(t, venue.ID, snap.VenueID)
}

func TestService_At_MatchesLocalHour(t *testing.T) {
	p := &fakeProvider{offset: 3 * 3600}
	svc := NewService(p, discardLogger())

	snap, err := svc.At(context.Background(), testVenue(), time.Date(2026, 5, 1, 17, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, []string{"2026-05-01"}, p.dates)
	assert.Equal(t, 20.0, snap.TemperatureC, "17:00Z is 20:00 at +03:00")
}

func TestService_At_RefetchesWhenLocalDateDiffers(t *testing.T) {
	p := &fakeProvider{offset: 7 * 3600}
	svc := NewService(p, discardLogger())

	snap, err := svc.At(context.Background(), testVenue(), time.Date(2026, 5, 1, 20, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, []string{"2026-05-01", "2026-05-02"}, p.dates)
	assert.Equal(t, 3.0, snap.TemperatureC, "20:00Z is 03:00 next day at +07:00")
}

func TestService_At_LocalDateInsideHorizon(t *testing.T) {
	p := &fakeProvider{offset: -5 * 3600, lastDate: "2026-11-03"}
	svc := NewService(p, discardLogger())

	// 03:00Z on the 4th is 22:00 on the 3rd at -05:00, the last day served.
	snap, err := svc.At(context.Background(), testVenue(), time.Date(2026, 11, 4, 3, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, []string{"2026-11-04", "2026-11-03"}, p.dates)
	assert.Equal(t, 22.0, snap.TemperatureC)
}

func TestService_At_BeyondHorizonEastOfUTC(t *testing.T) {
	p := &fakeProvider{offset: 3 * 3600, lastDate: "2026-11-03"}
	svc := NewService(p, discardLogger())

	_, err := svc.At(context.Background(), testVenue(), time.Date(2026, 11, 4, 12, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, domain.ErrUnavailable)
	assert.Equal(t, []string{"2026-11-04", "2026-11-03", "2026-11-04"}, p.dates)
}

func TestService_At_NoSlotIsUnavailable(t *testing.T) {
	p := &fakeProvider{emptyDates: map[string]bool{"2026-05-01": true}}
	svc := NewService(p, discardLogger())

	_, err := svc.At(context.Background(), testVenue(), time.Date(2026, 5, 1, 20, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, domain.ErrUnavailable)
}

func TestService_At_ProviderError(t *testing.T) {
	p := &fakeProvider{err: errors.New("boom")}
	svc := NewService(p, discardLogger())

	_, err := svc.At(context.Background(), testVenue(), time.Now())
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrUnavailable))
}

func TestService_At_BadLocation(t *testing.T) {
	p := &fakeProvider{}
	svc := NewService(p, discardLogger())

	_, err := svc.At(context.Background(), domain.Venue{Name: "Nowhere"}, time.Now())
	require.Error(t, err)
	assert.Empty(t, p.dates, "provider must not be called")
}

func TestService_Current(t *testing.T) {
	p := &fakeProvider{current: domain.CurrentConditions{
		TemperatureC: 21, PressureHPa: 1000, WindDirectionDeg: 225,
	}}
	svc := NewService(p, discardLogger())
	venue := testVenue()

	snap, err := svc.Current(context.Background(), venue)
	require.NoError(t, err)
	assert.Equal(t, 21.0, snap.TemperatureC)
	assert.InDelta(t, 750.06, snap.PressureMmHg, 1e-9)
	assert.Equal(t, "SW", snap.WindDirection)
	assert.Equal(t, venue.ID, snap.VenueID)
}

func TestService_Current_Error(t *testing.T) {
	p := &fakeProvider{err: errors.New("timeout")}
	_, err := NewService(p, discardLogger()).Current(context.Background(), testVenue())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Arena")
}
