package domain

import (
	"time"

	"github.com/google/uuid"
)

// Status is the publication state of an event.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusScheduled Status = "SCHEDULED"
	StatusPublished Status = "PUBLISHED"
	StatusEnded     Status = "ENDED"
	StatusDeleted   Status = "DELETED"
)

// rank orders the non-terminal statuses. DELETED is handled separately.
var rank = map[Status]int{
	StatusDraft:     0,
	StatusScheduled: 1,
	StatusPublished: 2,
	StatusEnded:     3,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	if s == StatusDeleted {
		return true
	}
	_, ok := rank[s]
	return ok
}

// Rating bounds.
const (
	MinRating = 0
	MaxRating = 25
)

// Event field names, used to describe which columns a write touched.
const (
	FieldTitle        = "title"
	FieldDescription  = "description"
	FieldStartAt      = "start_at"
	FieldEndAt        = "end_at"
	FieldPublishAt    = "publish_at"
	FieldStatus       = "status"
	FieldRating       = "rating"
	FieldVenue        = "venue"
	FieldAuthor       = "author"
	FieldWeather      = "weather"
	FieldPreviewImage = "preview_image"
)

// Event is a listing tied to a venue.
type Event struct {
	ID           uuid.UUID  `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description,omitempty"`
	StartAt      time.Time  `json:"start_at"`
	EndAt        time.Time  `json:"end_at"`
	PublishAt    *time.Time `json:"publish_at,omitempty"`
	Status       Status     `json:"status"`
	Rating       int        `json:"rating"`
	VenueID      uuid.UUID  `json:"venue_id"`
	AuthorID     uuid.UUID  `json:"author_id"`
	WeatherID    *uuid.UUID `json:"weather_id,omitempty"`
	PreviewImage string     `json:"preview_image,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	// Venue is populated by reads that join the venue; writes ignore it.
	Venue *Venue `json:"venue,omitempty"`
}

// Point is a WGS-84 coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Location is how a venue position is stored: either a structured point or
// a WKT string. Point wins when both are set.
type Location struct {
	Point *Point `json:"point,omitempty"`
	WKT   string `json:"wkt,omitempty"`
}

// Venue is a physical place events happen at.
type Venue struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Location Location  `json:"location"`
}

// WeatherSnapshot is an immutable weather reading for a venue.
type WeatherSnapshot struct {
	ID            uuid.UUID `json:"id"`
	VenueID       uuid.UUID `json:"venue_id"`
	TemperatureC  float64   `json:"temperature_celsius"`
	HumidityPct   float64   `json:"humidity_percent"`
	PressureMmHg  float64   `json:"pressure_mmhg"`
	WindSpeedMS   float64   `json:"wind_speed_ms"`
	WindDirection string    `json:"wind_direction"`
	CreatedAt     time.Time `json:"created_at"`
}

// User is the slice of an account this service needs.
type User struct {
	ID    uuid.UUID
	Email string
}
