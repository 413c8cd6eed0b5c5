package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/event-weather-service/internal/domain"
	"github.com/couchcryptid/event-weather-service/internal/observability"
	"github.com/couchcryptid/event-weather-service/internal/tasks"
)

type stubEvents map[uuid.UUID]domain.Event

func (s stubEvents) GetEvent(_ context.Context, id uuid.UUID) (domain.Event, error) {
	e, ok := s[id]
	if !ok {
		return domain.Event{}, domain.ErrNotFound
	}
	return e, nil
}

type mockMailer struct {
	sent []Mail
	err  error
}

func (m *mockMailer) Send(_ context.Context, mail Mail) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, mail)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDispatch_Sent(t *testing.T) {
	ev := domain.Event{ID: uuid.New(), Title: "Jazz Night"}
	mailer := &mockMailer{}
	metrics := observability.NewMetricsForTesting()
	d := NewDispatcher(stubEvents{ev.ID: ev}, mailer, "events@example.com", discardLogger(), metrics)

	result := d.Dispatch(context.Background(), ev.ID, "New event: Jazz Night", "body", []string{"a@example.com", "b@example.com"})

	assert.Equal(t, "email sent for event Jazz Night", result)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, Mail{
		From:    "events@example.com",
		To:      []string{"a@example.com", "b@example.com"},
		Subject: "New event: Jazz Night",
		Body:    "body",
	}, mailer.sent[0])
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.NotificationsOut.WithLabelValues("sent")))
}

func TestDispatch_EventNotFound(t *testing.T) {
	mailer := &mockMailer{}
	d := NewDispatcher(stubEvents{}, mailer, "events@example.com", discardLogger(), observability.NewMetricsForTesting())

	result := d.Dispatch(context.Background(), uuid.New(), "s", "b", []string{"a@example.com"})

	assert.Equal(t, "event not found", result)
	assert.Empty(t, mailer.sent)
}

func TestDispatch_TransportError(t *testing.T) {
	ev := domain.Event{ID: uuid.New(), Title: "Jazz Night"}
	mailer := &mockMailer{err: errors.New("connection refused")}
	metrics := observability.NewMetricsForTesting()
	d := NewDispatcher(stubEvents{ev.ID: ev}, mailer, "events@example.com", discardLogger(), metrics)

	result := d.Dispatch(context.Background(), ev.ID, "s", "b", []string{"a@example.com"})

	assert.Equal(t, "error sending email: connection refused", result)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.NotificationsOut.WithLabelValues("error")))
}

func TestHandle_UsesTaskPayload(t *testing.T) {
	ev := domain.Event{ID: uuid.New(), Title: "Gig"}
	mailer := &mockMailer{}
	d := NewDispatcher(stubEvents{ev.ID: ev}, mailer, "events@example.com", discardLogger(), observability.NewMetricsForTesting())

	task := tasks.NewNotificationTask(ev.ID, domain.Message{Subject: "Subj", Body: "Body"}, []string{"x@example.com"})
	result := d.Handle(context.Background(), task)

	assert.Equal(t, "email sent for event Gig", result)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "Subj", mailer.sent[0].Subject)
	assert.Equal(t, []string{"x@example.com"}, mailer.sent[0].To)
}
