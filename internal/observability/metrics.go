package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "eventsvc"

// Metrics holds the Prometheus counters, histograms, and gauges for the event service.
type Metrics struct {
	// Lifecycle metrics.
	EventWrites      *prometheus.CounterVec // labels: op={create,update}, outcome={ok,invalid,error}
	EventsPublished  prometheus.Counter
	EventsEnded      prometheus.Counter
	WeatherCleared   prometheus.Counter
	NotificationsOut *prometheus.CounterVec // labels: outcome={sent,error,not_found,skipped}

	// Task queue metrics.
	TasksEnqueued *prometheus.CounterVec // labels: kind
	TasksFailed   *prometheus.CounterVec // labels: kind
	TaskDuration  *prometheus.HistogramVec
	QueueRunning  prometheus.Gauge

	// Sweep metrics.
	SweepDuration *prometheus.HistogramVec // labels: sweep={publish,weather,end}

	// Forecast metrics.
	WeatherFetches   *prometheus.CounterVec   // labels: mode={current,hourly}, outcome={success,error,unavailable}
	ForecastCache    *prometheus.CounterVec   // labels: result={hit,miss}
	ForecastDuration *prometheus.HistogramVec // labels: mode
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics(true)
	prometheus.MustRegister(
		m.EventWrites,
		m.EventsPublished,
		m.EventsEnded,
		m.WeatherCleared,
		m.NotificationsOut,
		m.TasksEnqueued,
		m.TasksFailed,
		m.TaskDuration,
		m.QueueRunning,
		m.SweepDuration,
		m.WeatherFetches,
		m.ForecastCache,
		m.ForecastDuration,
	)
	return m
}

// NewMetricsForTesting creates Metrics with no registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics(false)
}

func newMetrics(withHelp bool) *Metrics {
	help := func(s string) string {
		if withHelp {
			return s
		}
		return ""
	}
	return &Metrics{
		EventWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_writes_total",
			Help:      help("Event writes through the lifecycle by operation and outcome."),
		}, []string{"op", "outcome"}),
		EventsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      help("Events that entered PUBLISHED."),
		}),
		EventsEnded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_ended_total",
			Help:      help("Events that entered ENDED."),
		}),
		WeatherCleared: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_cleared_total",
			Help:      help("Forecast references dropped because a published event moved."),
		}),
		NotificationsOut: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      help("Publication notifications by outcome."),
		}, []string{"outcome"}),
		TasksEnqueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_enqueued_total",
			Help:      help("Post-commit tasks handed to the queue by kind."),
		}, []string{"kind"}),
		TasksFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_failed_total",
			Help:      help("Tasks that could not be enqueued or decoded by kind."),
		}, []string{"kind"}),
		TaskDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      help("Duration of a single task run by kind."),
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"kind"}),
		QueueRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "task_queue_running",
			Help:      help("1 when the task consumer is active, 0 when shut down."),
		}),
		SweepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_duration_seconds",
			Help:      help("Duration of a periodic sweep."),
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		}, []string{"sweep"}),
		WeatherFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_fetch_total",
			Help:      help("Forecast provider requests by mode and outcome."),
		}, []string{"mode", "outcome"}),
		ForecastCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forecast_cache_total",
			Help:      help("Hourly forecast cache lookups by result."),
		}, []string{"result"}),
		ForecastDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "forecast_api_duration_seconds",
			Help:      help("Forecast provider request duration in seconds."),
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		}, []string{"mode"}),
	}
}
