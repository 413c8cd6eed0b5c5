package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const defaultBroker = "localhost:9092"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.NotEmpty(t, cfg.DatabaseDSN)
	assert.Equal(t, "https://api.open-meteo.com/v1/forecast", cfg.ForecastBaseURL)
	assert.Equal(t, 20*time.Second, cfg.ForecastCurrentTimeout)
	assert.Equal(t, 3, cfg.ForecastCurrentRetries)
	assert.Equal(t, 5*time.Second, cfg.ForecastHourlyTimeout)
	assert.Equal(t, 1000, cfg.ForecastCacheSize)
	assert.Equal(t, 30*time.Minute, cfg.ForecastCacheTTL)
	assert.Equal(t, time.Minute, cfg.PublishInterval)
	assert.Equal(t, time.Hour, cfg.WeatherSweepInterval)
	assert.False(t, cfg.EndSweepEnabled)
	assert.Equal(t, QueueLocal, cfg.TaskQueue)
	assert.Equal(t, 4, cfg.TaskWorkers)
	assert.Equal(t, 100, cfg.TaskBuffer)
	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "event-tasks", cfg.KafkaTaskTopic)
	assert.Equal(t, "event-weather-service", cfg.KafkaGroupID)
	assert.Equal(t, 587, cfg.SMTPPort)
	assert.False(t, cfg.MailEnabled())
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("DATABASE_DSN", "host=db user=events dbname=events")
	t.Setenv("FORECAST_BASE_URL", "http://meteo.local/v1/forecast")
	t.Setenv("FORECAST_CURRENT_RETRIES", "0")
	t.Setenv("FORECAST_CACHE_SIZE", "50")
	t.Setenv("PUBLISH_INTERVAL", "15s")
	t.Setenv("END_SWEEP_ENABLED", "true")
	t.Setenv("TASK_QUEUE", "kafka")
	t.Setenv("TASK_WORKERS", "8")
	t.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092")
	t.Setenv("KAFKA_TASK_TOPIC", "custom-tasks")
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SMTP_PORT", "2525")
	t.Setenv("MAIL_FROM", "noreply@example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "postgres", cfg.DatabaseDriver)
	assert.Equal(t, "host=db user=events dbname=events", cfg.DatabaseDSN)
	assert.Equal(t, "http://meteo.local/v1/forecast", cfg.ForecastBaseURL)
	assert.Equal(t, 0, cfg.ForecastCurrentRetries)
	assert.Equal(t, 50, cfg.ForecastCacheSize)
	assert.Equal(t, 15*time.Second, cfg.PublishInterval)
	assert.True(t, cfg.EndSweepEnabled)
	assert.Equal(t, QueueKafka, cfg.TaskQueue)
	assert.Equal(t, 8, cfg.TaskWorkers)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-tasks", cfg.KafkaTaskTopic)
	assert.Equal(t, 2525, cfg.SMTPPort)
	assert.Equal(t, "noreply@example.com", cfg.MailFrom)
	assert.True(t, cfg.MailEnabled())
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"SHUTDOWN_TIMEOUT", "not-a-duration"},
		{"SHUTDOWN_TIMEOUT", "-1s"},
		{"FORECAST_CURRENT_TIMEOUT", "0s"},
		{"FORECAST_HOURLY_TIMEOUT", "bad"},
		{"FORECAST_CACHE_TTL", "bad"},
		{"PUBLISH_INTERVAL", "bad"},
		{"WEATHER_SWEEP_INTERVAL", "-5m"},
		{"FORECAST_CURRENT_RETRIES", "11"},
		{"FORECAST_CACHE_SIZE", "0"},
		{"TASK_WORKERS", "abc"},
		{"TASK_BUFFER", "0"},
		{"SMTP_PORT", "70000"},
		{"END_SWEEP_ENABLED", "maybe"},
		{"DATABASE_DRIVER", "mysql"},
		{"TASK_QUEUE", "redis"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoad_KafkaQueueRequiresBrokers(t *testing.T) {
	t.Setenv("TASK_QUEUE", "kafka")
	t.Setenv("KAFKA_BROKERS", " , ")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KAFKA_BROKERS")
}

func TestLoad_LocalQueueIgnoresBrokers(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", " , ")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.KafkaBrokers)
}
