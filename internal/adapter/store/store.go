// Package store persists events, venues, weather snapshots and the
// notification config with gorm. SQLite and PostgreSQL are supported.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/couchcryptid/event-weather-service/internal/domain"
)

// Store is the gorm-backed repository for the event service.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

// Open connects to the database, configures the pool and migrates the schema.
func Open(driver, dsn string, logger *slog.Logger) (*Store, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:  gormlogger.Default.LogMode(gormlogger.Warn),
		NowFunc: domain.Now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get DB instance: %w", err)
	}
	if driver == "sqlite" {
		// SQLite serializes writers; a single connection avoids "database is locked".
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(50)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	s := &Store{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	if err := s.db.AutoMigrate(
		&venueRow{},
		&eventRow{},
		&snapshotRow{},
		&notificationConfigRow{},
		&userRow{},
	); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// CheckReadiness pings the database.
func (s *Store) CheckReadiness(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, domain.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", what, err)
}

// --- events ---

// CreateEvent inserts a new event.
func (s *Store) CreateEvent(ctx context.Context, e domain.Event) (domain.Event, error) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	row := toEventRow(e)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return domain.Event{}, fmt.Errorf("create event: %w", err)
	}
	return row.toDomain(), nil
}

// UpdateEvent loads the event and applies fn inside one transaction. fn
// returns the event to persist and the fields it changed; only those columns
// are written, plus updated_at. A nil FieldSet writes every column. fn must
// not call back into the store.
func (s *Store) UpdateEvent(ctx context.Context, id uuid.UUID, fn func(current domain.Event) (domain.Event, domain.FieldSet, error)) (domain.Event, error) {
	var out domain.Event
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row eventRow
		if err := tx.First(&row, "id = ?", id).Error; err != nil {
			return notFound(err, "load event")
		}

		next, changed, err := fn(row.toDomain())
		if err != nil {
			return err
		}
		next.ID = id
		next.CreatedAt = row.CreatedAt
		updated := toEventRow(next)

		q := tx.Model(&eventRow{ID: id})
		if changed.Known() {
			cols := []string{"updated_at"}
			for _, f := range changed.Names() {
				if c, ok := columns[f]; ok {
					cols = append(cols, c)
				}
			}
			q = q.Select(cols)
		} else {
			q = q.Select("*").Omit("id", "created_at")
		}
		if err := q.Updates(&updated).Error; err != nil {
			return fmt.Errorf("update event: %w", err)
		}

		if err := tx.First(&row, "id = ?", id).Error; err != nil {
			return notFound(err, "reload event")
		}
		out = row.toDomain()
		return nil
	})
	return out, err
}

// GetEvent returns the event with its venue populated.
func (s *Store) GetEvent(ctx context.Context, id uuid.UUID) (domain.Event, error) {
	var row eventRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return domain.Event{}, notFound(err, "get event")
	}
	e := row.toDomain()

	var v venueRow
	err := s.db.WithContext(ctx).First(&v, "id = ?", row.VenueID).Error
	switch {
	case err == nil:
		venue := v.toDomain()
		e.Venue = &venue
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return domain.Event{}, fmt.Errorf("get event venue: %w", err)
	}
	return e, nil
}

// ListDueScheduled returns SCHEDULED events whose publish_at is at or before now.
func (s *Store) ListDueScheduled(ctx context.Context, now time.Time) ([]domain.Event, error) {
	var rows []eventRow
	err := s.db.WithContext(ctx).
		Where("status = ? AND publish_at IS NOT NULL AND publish_at <= ?", string(domain.StatusScheduled), now.UTC()).
		Order("publish_at").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list due scheduled events: %w", err)
	}
	return eventsToDomain(rows), nil
}

// ListFinishedPublished returns PUBLISHED events whose end_at is at or before now.
func (s *Store) ListFinishedPublished(ctx context.Context, now time.Time) ([]domain.Event, error) {
	var rows []eventRow
	err := s.db.WithContext(ctx).
		Where("status = ? AND end_at <= ?", string(domain.StatusPublished), now.UTC()).
		Order("end_at").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list finished events: %w", err)
	}
	return eventsToDomain(rows), nil
}

func eventsToDomain(rows []eventRow) []domain.Event {
	out := make([]domain.Event, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out
}

// --- venues ---

// CreateVenue validates and inserts a venue.
func (s *Store) CreateVenue(ctx context.Context, v domain.Venue) (domain.Venue, error) {
	if err := domain.ValidateVenue(v); err != nil {
		return domain.Venue{}, err
	}
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	row := toVenueRow(v)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return domain.Venue{}, fmt.Errorf("create venue: %w", err)
	}
	return row.toDomain(), nil
}

// GetOrCreateVenue returns the venue with the given name, creating it at loc
// when none exists. created reports whether a row was inserted.
func (s *Store) GetOrCreateVenue(ctx context.Context, name string, loc domain.Location) (v domain.Venue, created bool, err error) {
	var row venueRow
	err = s.db.WithContext(ctx).First(&row, "name = ?", name).Error
	if err == nil {
		return row.toDomain(), false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Venue{}, false, fmt.Errorf("get venue: %w", err)
	}
	v, err = s.CreateVenue(ctx, domain.Venue{Name: name, Location: loc})
	if err != nil {
		return domain.Venue{}, false, err
	}
	return v, true, nil
}

// GetVenue returns a venue by id.
func (s *Store) GetVenue(ctx context.Context, id uuid.UUID) (domain.Venue, error) {
	var row venueRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return domain.Venue{}, notFound(err, "get venue")
	}
	return row.toDomain(), nil
}

// ListVenues returns all venues ordered by name.
func (s *Store) ListVenues(ctx context.Context) ([]domain.Venue, error) {
	var rows []venueRow
	if err := s.db.WithContext(ctx).Order("name").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list venues: %w", err)
	}
	out := make([]domain.Venue, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

// --- weather snapshots ---

// CreateSnapshot appends a weather snapshot.
func (s *Store) CreateSnapshot(ctx context.Context, snap domain.WeatherSnapshot) (domain.WeatherSnapshot, error) {
	if snap.ID == uuid.Nil {
		snap.ID = uuid.New()
	}
	row := toSnapshotRow(snap)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return domain.WeatherSnapshot{}, fmt.Errorf("create weather snapshot: %w", err)
	}
	return row.toDomain(), nil
}

// GetSnapshot returns a snapshot by id.
func (s *Store) GetSnapshot(ctx context.Context, id uuid.UUID) (domain.WeatherSnapshot, error) {
	var row snapshotRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return domain.WeatherSnapshot{}, notFound(err, "get weather snapshot")
	}
	return row.toDomain(), nil
}

// ListSnapshots returns a venue's history, newest first.
func (s *Store) ListSnapshots(ctx context.Context, venueID uuid.UUID) ([]domain.WeatherSnapshot, error) {
	var rows []snapshotRow
	err := s.db.WithContext(ctx).
		Where("venue_id = ?", venueID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list weather snapshots: %w", err)
	}
	out := make([]domain.WeatherSnapshot, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

// --- notification config and users ---

// NotificationConfig returns the stored config or domain.ErrNotFound.
func (s *Store) NotificationConfig(ctx context.Context) (domain.NotificationConfig, error) {
	var row notificationConfigRow
	if err := s.db.WithContext(ctx).First(&row, notificationConfigID).Error; err != nil {
		return domain.NotificationConfig{}, notFound(err, "get notification config")
	}
	return domain.NotificationConfig{
		SubjectTemplate: row.SubjectTemplate,
		MessageTemplate: row.MessageTemplate,
		RecipientsList:  row.RecipientsList,
		SendToAllUsers:  row.SendToAllUsers,
	}, nil
}

// SaveNotificationConfig writes the single config row, replacing any previous one.
func (s *Store) SaveNotificationConfig(ctx context.Context, cfg domain.NotificationConfig) error {
	row := notificationConfigRow{
		ID:              notificationConfigID,
		SubjectTemplate: cfg.SubjectTemplate,
		MessageTemplate: cfg.MessageTemplate,
		RecipientsList:  cfg.RecipientsList,
		SendToAllUsers:  cfg.SendToAllUsers,
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, UpdateAll: true}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("save notification config: %w", err)
	}
	return nil
}

// EnsureNotificationConfig stores the default config when none exists.
func (s *Store) EnsureNotificationConfig(ctx context.Context) error {
	_, err := s.NotificationConfig(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		s.logger.Info("seeding default notification config")
		return s.SaveNotificationConfig(ctx, domain.DefaultNotificationConfig())
	}
	return err
}

// CreateUser inserts a user record.
func (s *Store) CreateUser(ctx context.Context, u domain.User) (domain.User, error) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	row := userRow{ID: u.ID, Email: u.Email}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// ListUserEmails returns every non-empty user email.
func (s *Store) ListUserEmails(ctx context.Context) ([]string, error) {
	var emails []string
	err := s.db.WithContext(ctx).
		Model(&userRow{}).
		Where("email <> ''").
		Order("email").
		Pluck("email", &emails).Error
	if err != nil {
		return nil, fmt.Errorf("list user emails: %w", err)
	}
	return emails, nil
}
