package store

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
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

func newTestStore(t *testing.T) *Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	s, err := Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", name), discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedVenue(t *testing.T, s *Store, name string) domain.Venue {
	t.Helper()
	v, err := s.CreateVenue(context.Background(), domain.Venue{
		Name:     name,
		Location: domain.Location{Point: &domain.Point{Lat: 55.75, Lon: 37.61}},
	})
	require.NoError(t, err)
	return v
}

func newEvent(venueID uuid.UUID, start time.Time) domain.Event {
	return domain.Event{
		Title:    "Open Air",
		StartAt:  start,
		EndAt:    start.Add(2 * time.Hour),
		Status:   domain.StatusDraft,
		VenueID:  venueID,
		AuthorID: uuid.New(),
	}
}

func TestStore_CreateAndGetEvent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	v := seedVenue(t, s, "Arena")

	start := time.Date(2026, 6, 1, 18, 0, 0, 0, time.UTC)
	created, err := s.CreateEvent(ctx, newEvent(v.ID, start))
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)

	got, err := s.GetEvent(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Open Air", got.Title)
	assert.True(t, start.Equal(got.StartAt))
	assert.Equal(t, domain.StatusDraft, got.Status)
	require.NotNil(t, got.Venue)
	assert.Equal(t, "Arena", got.Venue.Name)
	require.NotNil(t, got.Venue.Location.Point)
	assert.Equal(t, 55.75, got.Venue.Location.Point.Lat)
	assert.Equal(t, "POINT(37.61 55.75)", got.Venue.Location.WKT)
}

func TestStore_GetEvent_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetEvent(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_UpdateEvent_WritesOnlyChangedColumns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	v := seedVenue(t, s, "Arena")
	created, err := s.CreateEvent(ctx, newEvent(v.ID, time.Date(2026, 6, 1, 18, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	updated, err := s.UpdateEvent(ctx, created.ID, func(cur domain.Event) (domain.Event, domain.FieldSet, error) {
		cur.Status = domain.StatusPublished
		cur.Title = "not persisted"
		return cur, domain.Fields(domain.FieldStatus), nil
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPublished, updated.Status)
	assert.Equal(t, "Open Air", updated.Title, "title was not in the changed set")
}

func TestStore_UpdateEvent_UnknownFieldsWritesAll(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	v := seedVenue(t, s, "Arena")
	created, err := s.CreateEvent(ctx, newEvent(v.ID, time.Date(2026, 6, 1, 18, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	weatherID := uuid.New()
	updated, err := s.UpdateEvent(ctx, created.ID, func(cur domain.Event) (domain.Event, domain.FieldSet, error) {
		cur.Title = "Renamed"
		cur.Rating = 7
		cur.WeatherID = &weatherID
		return cur, nil, nil
	})
	require.NoError(t, err)

	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, 7, updated.Rating)
	require.NotNil(t, updated.WeatherID)
	assert.Equal(t, weatherID, *updated.WeatherID)
	assert.True(t, created.CreatedAt.Equal(updated.CreatedAt))
}

func TestStore_UpdateEvent_ClearsWeather(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	v := seedVenue(t, s, "Arena")
	weatherID := uuid.New()
	e := newEvent(v.ID, time.Date(2026, 6, 1, 18, 0, 0, 0, time.UTC))
	e.WeatherID = &weatherID
	created, err := s.CreateEvent(ctx, e)
	require.NoError(t, err)

	updated, err := s.UpdateEvent(ctx, created.ID, func(cur domain.Event) (domain.Event, domain.FieldSet, error) {
		cur.WeatherID = nil
		return cur, domain.Fields(domain.FieldWeather), nil
	})
	require.NoError(t, err)
	assert.Nil(t, updated.WeatherID)
}

func TestStore_UpdateEvent_CallbackErrorRollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	v := seedVenue(t, s, "Arena")
	created, err := s.CreateEvent(ctx, newEvent(v.ID, time.Date(2026, 6, 1, 18, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	_, err = s.UpdateEvent(ctx, created.ID, func(cur domain.Event) (domain.Event, domain.FieldSet, error) {
		return cur, nil, domain.ErrInvalidTransition
	})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = s.UpdateEvent(ctx, uuid.New(), func(cur domain.Event) (domain.Event, domain.FieldSet, error) {
		return cur, nil, nil
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_ListDueScheduled(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	v := seedVenue(t, s, "Arena")
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	mk := func(status domain.Status, publishAt *time.Time) uuid.UUID {
		e := newEvent(v.ID, now.Add(48*time.Hour))
		e.Status = status
		e.PublishAt = publishAt
		created, err := s.CreateEvent(ctx, e)
		require.NoError(t, err)
		return created.ID
	}
	past := now.Add(-time.Minute)
	exact := now
	future := now.Add(time.Minute)

	due1 := mk(domain.StatusScheduled, &past)
	due2 := mk(domain.StatusScheduled, &exact)
	mk(domain.StatusScheduled, &future)
	mk(domain.StatusScheduled, nil)
	mk(domain.StatusDraft, &past)

	due, err := s.ListDueScheduled(ctx, now)
	require.NoError(t, err)

	ids := make([]uuid.UUID, 0, len(due))
	for _, e := range due {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []uuid.UUID{due1, due2}, ids)
}

func TestStore_ListFinishedPublished(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	v := seedVenue(t, s, "Arena")
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	finished := newEvent(v.ID, now.Add(-3*time.Hour))
	finished.Status = domain.StatusPublished
	f, err := s.CreateEvent(ctx, finished)
	require.NoError(t, err)

	running := newEvent(v.ID, now.Add(-time.Hour))
	running.Status = domain.StatusPublished
	_, err = s.CreateEvent(ctx, running)
	require.NoError(t, err)

	got, err := s.ListFinishedPublished(ctx, now)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, f.ID, got[0].ID)
}

func TestStore_Venues(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateVenue(ctx, domain.Venue{Name: "Bad", Location: domain.Location{WKT: "POINT(500 500)"}})
	assert.ErrorIs(t, err, domain.ErrValidation)

	v1, created, err := s.GetOrCreateVenue(ctx, "Club", domain.Location{WKT: "SRID=4326;POINT(92.87 56.01)"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "SRID=4326;POINT(92.87 56.01)", v1.Location.WKT)
	assert.Nil(t, v1.Location.Point)

	v2, created, err := s.GetOrCreateVenue(ctx, "Club", domain.Location{WKT: "POINT(0 0)"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, v1.ID, v2.ID)

	seedVenue(t, s, "Arena")
	venues, err := s.ListVenues(ctx)
	require.NoError(t, err)
	require.Len(t, venues, 2)
	assert.Equal(t, "Arena", venues[0].Name)

	got, err := s.GetVenue(ctx, v1.ID)
	require.NoError(t, err)
	assert.Equal(t, "Club", got.Name)
}

func TestStore_Snapshots(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	v := seedVenue(t, s, "Arena")

	first, err := s.CreateSnapshot(ctx, domain.WeatherSnapshot{
		VenueID: v.ID, TemperatureC: 10, PressureMmHg: 759.81, WindDirection: "N",
		CreatedAt: time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	second, err := s.CreateSnapshot(ctx, domain.WeatherSnapshot{
		VenueID: v.ID, TemperatureC: 12, WindDirection: "SW",
		CreatedAt: time.Date(2026, 6, 1, 11, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	history, err := s.ListSnapshots(ctx, v.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, second.ID, history[0].ID)
	assert.Equal(t, first.ID, history[1].ID)

	got, err := s.GetSnapshot(ctx, first.ID)
	require.NoError(t, err)
	assert.InDelta(t, 759.81, got.PressureMmHg, 1e-9)
}

func TestStore_NotificationConfigSingleton(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.NotificationConfig(ctx)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, s.EnsureNotificationConfig(ctx))
	cfg, err := s.NotificationConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultNotificationConfig(), cfg)

	require.NoError(t, s.SaveNotificationConfig(ctx, domain.NotificationConfig{
		SubjectTemplate: "Hi {title}",
		MessageTemplate: "{description}",
		RecipientsList:  "a@example.com",
		SendToAllUsers:  false,
	}))
	require.NoError(t, s.EnsureNotificationConfig(ctx))

	cfg, err = s.NotificationConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Hi {title}", cfg.SubjectTemplate)
	assert.False(t, cfg.SendToAllUsers)

	var count int64
	require.NoError(t, s.db.Model(&notificationConfigRow{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestStore_ListUserEmails(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, email := range []string{"b@example.com", "", "a@example.com"} {
		_, err := s.CreateUser(ctx, domain.User{Email: email})
		require.NoError(t, err)
	}

	emails, err := s.ListUserEmails(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, emails)
}

func TestStore_CheckReadiness(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.CheckReadiness(context.Background()))
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open("mysql", "dsn", discardLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mysql")
}
