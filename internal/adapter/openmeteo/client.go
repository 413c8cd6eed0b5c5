package openmeteo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/couchcryptid/event-weather-service/internal/domain"
	"github.com/couchcryptid/event-weather-service/internal/observability"
)

const (
	// DefaultBaseURL is the public Open-Meteo forecast endpoint.
	DefaultBaseURL = "https://api.open-meteo.com/v1/forecast"

	currentFields = "temperature_2m,relative_humidity_2m,surface_pressure,wind_speed_10m,wind_direction_10m"
	hourlyFields  = "temperature_2m,relative_humidity_2m,pressure_msl,wind_speed_10m,wind_direction_10m"
)

// Options configures a Client.
type Options struct {
	BaseURL        string
	CurrentTimeout time.Duration
	CurrentRetries int
	HourlyTimeout  time.Duration
}

// Client implements domain.ForecastProvider using the Open-Meteo forecast API.
type Client struct {
	baseURL        string
	currentClient  *http.Client
	hourlyClient   *http.Client
	currentRetries int
	newBackOff     func() backoff.BackOff
	metrics        *observability.Metrics
	logger         *slog.Logger
}

// NewClient creates an Open-Meteo client.
func NewClient(opts Options, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:        opts.BaseURL,
		currentClient:  &http.Client{Timeout: opts.CurrentTimeout},
		hourlyClient:   &http.Client{Timeout: opts.HourlyTimeout},
		currentRetries: opts.CurrentRetries,
		newBackOff:     defaultBackOff,
		metrics:        metrics,
		logger:         logger,
	}
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.Multiplier = 2
	b.MaxElapsedTime = 0
	return b
}

// retryable lists the statuses a current-conditions request is retried on.
var retryable = map[int]bool{
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// statusError is a non-200 provider response.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("open-meteo API error: status %d: %s", e.code, e.body)
}

// FetchCurrent returns current conditions at the coordinate. Server errors are
// retried with exponential backoff; missing fields fall back to neutral defaults.
func (c *Client) FetchCurrent(ctx context.Context, lat, lon float64) (domain.CurrentConditions, error) {
	params := coordParams(lat, lon)
	params.Set("current", currentFields)
	fullURL := c.baseURL + "?" + params.Encode()

	var resp currentResponse
	op := func() error {
		err := c.doRequest(ctx, c.currentClient, fullURL, "current", &resp)
		var se *statusError
		if errors.As(err, &se) && !retryable[se.code] {
			return backoff.Permanent(err)
		}
		if err != nil {
			c.logger.Debug("current conditions request failed", "lat", lat, "lon", lon, "error", err)
		}
		return err
	}
	b := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), uint64(c.currentRetries)), ctx)
	if err := backoff.Retry(op, b); err != nil {
		c.metrics.WeatherFetches.WithLabelValues("current", "error").Inc()
		return domain.CurrentConditions{}, err
	}

	c.metrics.WeatherFetches.WithLabelValues("current", "success").Inc()
	return resp.Current.conditions(), nil
}

// FetchHourly returns the hourly forecast for a local calendar date. The
// provider answers 400 for dates outside its forecast window; that is
// reported as domain.ErrUnavailable.
func (c *Client) FetchHourly(ctx context.Context, lat, lon float64, date string) (domain.HourlySeries, error) {
	params := coordParams(lat, lon)
	params.Set("hourly", hourlyFields)
	params.Set("start_date", date)
	params.Set("end_date", date)
	fullURL := c.baseURL + "?" + params.Encode()

	var resp hourlyResponse
	err := c.doRequest(ctx, c.hourlyClient, fullURL, "hourly", &resp)
	var se *statusError
	switch {
	case errors.As(err, &se) && se.code == http.StatusBadRequest:
		c.metrics.WeatherFetches.WithLabelValues("hourly", "unavailable").Inc()
		return domain.HourlySeries{}, fmt.Errorf("%w: %s", domain.ErrUnavailable, se.body)
	case err != nil:
		c.metrics.WeatherFetches.WithLabelValues("hourly", "error").Inc()
		return domain.HourlySeries{}, err
	}

	series := resp.series()
	if len(series.Records) == 0 {
		c.metrics.WeatherFetches.WithLabelValues("hourly", "unavailable").Inc()
		return series, fmt.Errorf("%w: no hourly data for %s", domain.ErrUnavailable, date)
	}
	c.metrics.WeatherFetches.WithLabelValues("hourly", "success").Inc()
	return series, nil
}

func coordParams(lat, lon float64) url.Values {
	return url.Values{
		"latitude":        {strconv.FormatFloat(lat, 'f', -1, 64)},
		"longitude":       {strconv.FormatFloat(lon, 'f', -1, 64)},
		"timezone":        {"auto"},
		"wind_speed_unit": {"ms"},
	}
}

func (c *Client) doRequest(ctx context.Context, hc *http.Client, fullURL, mode string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := hc.Do(req)
	c.metrics.ForecastDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("%s forecast request: %w", mode, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &statusError{code: resp.StatusCode, body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Open-Meteo API response types.

type currentResponse struct {
	UTCOffsetSeconds int           `json:"utc_offset_seconds"`
	Current          currentValues `json:"current"`
}

type currentValues struct {
	Temperature   *float64 `json:"temperature_2m"`
	Humidity      *float64 `json:"relative_humidity_2m"`
	Pressure      *float64 `json:"surface_pressure"`
	WindSpeed     *float64 `json:"wind_speed_10m"`
	WindDirection *float64 `json:"wind_direction_10m"`
}

func (v currentValues) conditions() domain.CurrentConditions {
	return domain.CurrentConditions{
		TemperatureC:     orDefault(v.Temperature, 0),
		HumidityPct:      orDefault(v.Humidity, 0),
		PressureHPa:      orDefault(v.Pressure, domain.DefaultPressureHPa),
		WindSpeedMS:      orDefault(v.WindSpeed, 0),
		WindDirectionDeg: orDefault(v.WindDirection, 0),
	}
}

func orDefault(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}

type hourlyResponse struct {
	UTCOffsetSeconds int          `json:"utc_offset_seconds"`
	Hourly           hourlyValues `json:"hourly"`
}

// hourlyValues is Open-Meteo's column layout: parallel arrays indexed by hour.
type hourlyValues struct {
	Time          []string   `json:"time"`
	Temperature   []*float64 `json:"temperature_2m"`
	Humidity      []*float64 `json:"relative_humidity_2m"`
	Pressure      []*float64 `json:"pressure_msl"`
	WindSpeed     []*float64 `json:"wind_speed_10m"`
	WindDirection []*float64 `json:"wind_direction_10m"`
}

// series pivots the columns into records. Hours with any missing value are
// dropped so a lookup for them reports the forecast as unavailable.
func (r hourlyResponse) series() domain.HourlySeries {
	h := r.Hourly
	out := domain.HourlySeries{UTCOffsetSeconds: r.UTCOffsetSeconds}
	for i, ts := range h.Time {
		temp, ok1 := at(h.Temperature, i)
		hum, ok2 := at(h.Humidity, i)
		pres, ok3 := at(h.Pressure, i)
		wind, ok4 := at(h.WindSpeed, i)
		dir, ok5 := at(h.WindDirection, i)
		if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 {
			continue
		}
		out.Records = append(out.Records, domain.HourlyRecord{
			Time:             ts,
			TemperatureC:     temp,
			HumidityPct:      hum,
			PressureHPa:      pres,
			WindSpeedMS:      wind,
			WindDirectionDeg: dir,
		})
	}
	return out
}

func at(col []*float64, i int) (float64, bool) {
	if i >= len(col) || col[i] == nil {
		return 0, false
	}
	return *col[i], true
}
