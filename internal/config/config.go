package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Queue backends for post-commit tasks.
const (
	QueueLocal = "local"
	QueueKafka = "kafka"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	DatabaseDriver string
	DatabaseDSN    string

	// Forecast provider configuration.
	ForecastBaseURL        string
	ForecastCurrentTimeout time.Duration
	ForecastCurrentRetries int
	ForecastHourlyTimeout  time.Duration
	ForecastCacheSize      int
	ForecastCacheTTL       time.Duration

	PublishInterval      time.Duration
	WeatherSweepInterval time.Duration
	EndSweepEnabled      bool

	TaskQueue   string
	TaskWorkers int
	TaskBuffer  int

	KafkaBrokers   []string
	KafkaTaskTopic string
	KafkaGroupID   string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	MailFrom     string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	var err error
	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		DatabaseDriver:  envOrDefault("DATABASE_DRIVER", "sqlite"),
		DatabaseDSN:     envOrDefault("DATABASE_DSN", "file:events.db?_foreign_keys=on"),
		ForecastBaseURL: envOrDefault("FORECAST_BASE_URL", "https://api.open-meteo.com/v1/forecast"),
		TaskQueue:       envOrDefault("TASK_QUEUE", QueueLocal),
		KafkaBrokers:    parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTaskTopic:  envOrDefault("KAFKA_TASK_TOPIC", "event-tasks"),
		KafkaGroupID:    envOrDefault("KAFKA_GROUP_ID", "event-weather-service"),
		SMTPHost:        os.Getenv("SMTP_HOST"),
		SMTPUsername:    os.Getenv("SMTP_USERNAME"),
		SMTPPassword:    os.Getenv("SMTP_PASSWORD"),
		MailFrom:        envOrDefault("MAIL_FROM", "events@localhost"),
	}

	if cfg.ShutdownTimeout, err = positiveDuration("SHUTDOWN_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.ForecastCurrentTimeout, err = positiveDuration("FORECAST_CURRENT_TIMEOUT", "20s"); err != nil {
		return nil, err
	}
	if cfg.ForecastHourlyTimeout, err = positiveDuration("FORECAST_HOURLY_TIMEOUT", "5s"); err != nil {
		return nil, err
	}
	if cfg.ForecastCacheTTL, err = positiveDuration("FORECAST_CACHE_TTL", "30m"); err != nil {
		return nil, err
	}
	if cfg.PublishInterval, err = positiveDuration("PUBLISH_INTERVAL", "1m"); err != nil {
		return nil, err
	}
	if cfg.WeatherSweepInterval, err = positiveDuration("WEATHER_SWEEP_INTERVAL", "1h"); err != nil {
		return nil, err
	}
	if cfg.ForecastCurrentRetries, err = intInRange("FORECAST_CURRENT_RETRIES", 3, 0, 10); err != nil {
		return nil, err
	}
	if cfg.ForecastCacheSize, err = intInRange("FORECAST_CACHE_SIZE", 1000, 1, 100000); err != nil {
		return nil, err
	}
	if cfg.TaskWorkers, err = intInRange("TASK_WORKERS", 4, 1, 256); err != nil {
		return nil, err
	}
	if cfg.TaskBuffer, err = intInRange("TASK_BUFFER", 100, 1, 100000); err != nil {
		return nil, err
	}
	if cfg.SMTPPort, err = intInRange("SMTP_PORT", 587, 1, 65535); err != nil {
		return nil, err
	}
	if cfg.EndSweepEnabled, err = parseBool("END_SWEEP_ENABLED", false); err != nil {
		return nil, err
	}

	switch cfg.DatabaseDriver {
	case "sqlite", "postgres":
	default:
		return nil, fmt.Errorf("invalid DATABASE_DRIVER %q: want sqlite or postgres", cfg.DatabaseDriver)
	}
	switch cfg.TaskQueue {
	case QueueLocal:
	case QueueKafka:
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required when TASK_QUEUE is kafka")
		}
		if cfg.KafkaTaskTopic == "" {
			return nil, errors.New("KAFKA_TASK_TOPIC is required when TASK_QUEUE is kafka")
		}
	default:
		return nil, fmt.Errorf("invalid TASK_QUEUE %q: want local or kafka", cfg.TaskQueue)
	}
	if cfg.DatabaseDSN == "" {
		return nil, errors.New("DATABASE_DSN is required")
	}

	return cfg, nil
}

// MailEnabled reports whether an SMTP relay is configured.
func (c *Config) MailEnabled() bool {
	return c.SMTPHost != ""
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func parseBrokers(s string) []string {
	var out []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

func positiveDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func intInRange(key string, fallback, lo, hi int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("invalid %s: must be between %d and %d", key, lo, hi)
	}
	return n, nil
}

func parseBool(key string, fallback bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s", key)
	}
	return b, nil
}
