package store

import (
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/event-weather-service/internal/domain"
)

type venueRow struct {
	ID        uuid.UUID `gorm:"type:varchar(36);primaryKey"`
	Name      string    `gorm:"size:255;not null;uniqueIndex"`
	Lat       *float64
	Lon       *float64
	WKT       string `gorm:"column:wkt;size:255"`
	CreatedAt time.Time
}

func (venueRow) TableName() string { return "venues" }

type eventRow struct {
	ID           uuid.UUID  `gorm:"type:varchar(36);primaryKey"`
	Title        string     `gorm:"size:255;not null"`
	Description  string     `gorm:"type:text"`
	StartAt      time.Time  `gorm:"not null;index"`
	EndAt        time.Time  `gorm:"not null;index"`
	PublishAt    *time.Time `gorm:"index"`
	Status       string     `gorm:"size:16;not null;index"`
	Rating       int        `gorm:"not null"`
	VenueID      uuid.UUID  `gorm:"type:varchar(36);not null;index"`
	AuthorID     uuid.UUID  `gorm:"type:varchar(36);not null"`
	WeatherID    *uuid.UUID `gorm:"type:varchar(36)"`
	PreviewImage string     `gorm:"size:512"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (eventRow) TableName() string { return "events" }

type snapshotRow struct {
	ID            uuid.UUID `gorm:"type:varchar(36);primaryKey"`
	VenueID       uuid.UUID `gorm:"type:varchar(36);not null;index"`
	TemperatureC  float64   `gorm:"column:temperature_celsius"`
	HumidityPct   float64   `gorm:"column:humidity_percent"`
	PressureMmHg  float64   `gorm:"column:pressure_mmhg"`
	WindSpeedMS   float64   `gorm:"column:wind_speed_ms"`
	WindDirection string    `gorm:"size:2"`
	CreatedAt     time.Time `gorm:"index"`
}

func (snapshotRow) TableName() string { return "weather_snapshots" }

// notificationConfigID is the primary key of the single notification config row.
const notificationConfigID = 1

type notificationConfigRow struct {
	ID              uint   `gorm:"primaryKey;autoIncrement:false"`
	SubjectTemplate string `gorm:"size:255;not null"`
	MessageTemplate string `gorm:"type:text;not null"`
	RecipientsList  string `gorm:"type:text"`
	SendToAllUsers  bool   `gorm:"not null"`
	UpdatedAt       time.Time
}

func (notificationConfigRow) TableName() string { return "notification_config" }

type userRow struct {
	ID    uuid.UUID `gorm:"type:varchar(36);primaryKey"`
	Email string    `gorm:"size:255;index"`
}

func (userRow) TableName() string { return "users" }

// columns maps domain field names to event table columns.
var columns = map[string]string{
	domain.FieldTitle:        "title",
	domain.FieldDescription:  "description",
	domain.FieldStartAt:      "start_at",
	domain.FieldEndAt:        "end_at",
	domain.FieldPublishAt:    "publish_at",
	domain.FieldStatus:       "status",
	domain.FieldRating:       "rating",
	domain.FieldVenue:        "venue_id",
	domain.FieldAuthor:       "author_id",
	domain.FieldWeather:      "weather_id",
	domain.FieldPreviewImage: "preview_image",
}

func toEventRow(e domain.Event) eventRow {
	row := eventRow{
		ID:           e.ID,
		Title:        e.Title,
		Description:  e.Description,
		StartAt:      e.StartAt.UTC(),
		EndAt:        e.EndAt.UTC(),
		Status:       string(e.Status),
		Rating:       e.Rating,
		VenueID:      e.VenueID,
		AuthorID:     e.AuthorID,
		WeatherID:    e.WeatherID,
		PreviewImage: e.PreviewImage,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
	if e.PublishAt != nil {
		p := e.PublishAt.UTC()
		row.PublishAt = &p
	}
	return row
}

func (r eventRow) toDomain() domain.Event {
	e := domain.Event{
		ID:           r.ID,
		Title:        r.Title,
		Description:  r.Description,
		StartAt:      r.StartAt.UTC(),
		EndAt:        r.EndAt.UTC(),
		Status:       domain.Status(r.Status),
		Rating:       r.Rating,
		VenueID:      r.VenueID,
		AuthorID:     r.AuthorID,
		WeatherID:    r.WeatherID,
		PreviewImage: r.PreviewImage,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
	if r.PublishAt != nil {
		p := r.PublishAt.UTC()
		e.PublishAt = &p
	}
	return e
}

func toVenueRow(v domain.Venue) venueRow {
	row := venueRow{ID: v.ID, Name: v.Name, WKT: v.Location.WKT}
	if p := v.Location.Point; p != nil {
		lat, lon := p.Lat, p.Lon
		row.Lat, row.Lon = &lat, &lon
		if row.WKT == "" {
			row.WKT = domain.FormatWKT(*p)
		}
	}
	return row
}

func (r venueRow) toDomain() domain.Venue {
	v := domain.Venue{ID: r.ID, Name: r.Name, Location: domain.Location{WKT: r.WKT}}
	if r.Lat != nil && r.Lon != nil {
		v.Location.Point = &domain.Point{Lat: *r.Lat, Lon: *r.Lon}
	}
	return v
}

func toSnapshotRow(s domain.WeatherSnapshot) snapshotRow {
	return snapshotRow{
		ID:            s.ID,
		VenueID:       s.VenueID,
		TemperatureC:  s.TemperatureC,
		HumidityPct:   s.HumidityPct,
		PressureMmHg:  s.PressureMmHg,
		WindSpeedMS:   s.WindSpeedMS,
		WindDirection: s.WindDirection,
		CreatedAt:     s.CreatedAt,
	}
}

func (r snapshotRow) toDomain() domain.WeatherSnapshot {
	return domain.WeatherSnapshot{
		ID:            r.ID,
		VenueID:       r.VenueID,
		TemperatureC:  r.TemperatureC,
		HumidityPct:   r.HumidityPct,
		PressureMmHg:  r.PressureMmHg,
		WindSpeedMS:   r.WindSpeedMS,
		WindDirection: r.WindDirection,
		CreatedAt:     r.CreatedAt.UTC(),
	}
}
