package domain

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// HPaPerMmHg converts provider pressure (hPa) into stored pressure (mmHg).
const HPaPerMmHg = 0.75006

// DefaultPressureHPa is assumed when a current-conditions reading omits pressure.
const DefaultPressureHPa = 1013.0

var compassPoints = [8]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

// HPaToMmHg converts hectopascals to millimetres of mercury.
func HPaToMmHg(hpa float64) float64 {
	return hpa * HPaPerMmHg
}

// CompassDirection maps a wind bearing in degrees onto one of eight compass
// points. Half-way bearings round to even; negative bearings wrap.
func CompassDirection(degrees float64) string {
	if math.IsNaN(degrees) || math.IsInf(degrees, 0) {
		return compassPoints[0]
	}
	idx := int(math.Mod(math.RoundToEven(degrees/45), 8))
	if idx < 0 {
		idx += 8
	}
	return compassPoints[idx]
}

// CurrentConditions is a provider's "now" reading for a coordinate.
type CurrentConditions struct {
	TemperatureC     float64
	HumidityPct      float64
	PressureHPa      float64
	WindSpeedMS      float64
	WindDirectionDeg float64
}

// HourlyRecord is one slot of an hourly forecast. Time is the provider's
// local timestamp, e.g. "2026-05-01T20:00".
type HourlyRecord struct {
	Time             string
	TemperatureC     float64
	HumidityPct      float64
	PressureHPa      float64
	WindSpeedMS      float64
	WindDirectionDeg float64
}

// HourlySeries is a day of hourly records in the location's local time.
type HourlySeries struct {
	UTCOffsetSeconds int
	Records          []HourlyRecord
}

// Zone returns the fixed zone the series timestamps are expressed in.
func (s HourlySeries) Zone() *time.Location {
	if s.UTCOffsetSeconds == 0 {
		return time.UTC
	}
	return time.FixedZone("", s.UTCOffsetSeconds)
}

// Slot returns the first record whose timestamp starts with the hour key.
func (s HourlySeries) Slot(hourKey string) (HourlyRecord, bool) {
	for _, r := range s.Records {
		if strings.HasPrefix(r.Time, hourKey) {
			return r, true
		}
	}
	return HourlyRecord{}, false
}

// HourKey formats t as the hourly slot prefix "YYYY-MM-DDTHH:00" in t's zone.
func HourKey(t time.Time) string {
	return t.Format("2006-01-02T15") + ":00"
}

// DateKey formats t as "YYYY-MM-DD" in t's zone.
func DateKey(t time.Time) string {
	return t.Format(time.DateOnly)
}

// ForecastProvider is the external weather source.
type ForecastProvider interface {
	// FetchCurrent returns current conditions at the coordinate.
	FetchCurrent(ctx context.Context, lat, lon float64) (CurrentConditions, error)

	// FetchHourly returns the hourly forecast for a local calendar date.
	// It returns ErrUnavailable when the provider has no data for the date.
	FetchHourly(ctx context.Context, lat, lon float64, date string) (HourlySeries, error)
}

// SnapshotFromCurrent builds a venue history snapshot. Pressure keeps its
// fractional part on this path.
func SnapshotFromCurrent(venueID uuid.UUID, c CurrentConditions) WeatherSnapshot {
	return WeatherSnapshot{
		ID:            uuid.New(),
		VenueID:       venueID,
		TemperatureC:  c.TemperatureC,
		HumidityPct:   c.HumidityPct,
		PressureMmHg:  HPaToMmHg(c.PressureHPa),
		WindSpeedMS:   c.WindSpeedMS,
		WindDirection: CompassDirection(c.WindDirectionDeg),
		CreatedAt:     Now(),
	}
}

// SnapshotFromForecast builds an event forecast snapshot. Pressure is
// truncated to whole mmHg on this path.
func SnapshotFromForecast(venueID uuid.UUID, r HourlyRecord) WeatherSnapshot {
	return WeatherSnapshot{
		ID:            uuid.New(),
		VenueID:       venueID,
		TemperatureC:  r.TemperatureC,
		HumidityPct:   r.HumidityPct,
		PressureMmHg:  math.Trunc(HPaToMmHg(r.PressureHPa)),
		WindSpeedMS:   r.WindSpeedMS,
		WindDirection: CompassDirection(r.WindDirectionDeg),
		CreatedAt:     Now(),
	}
}
