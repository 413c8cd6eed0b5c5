// Command eventsvc runs the event lifecycle service: the periodic sweeps, the
// background task workers, and the operational HTTP endpoints.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	httpadapter "github.com/couchcryptid/event-weather-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/event-weather-service/internal/adapter/kafka"
	"github.com/couchcryptid/event-weather-service/internal/adapter/mail"
	"github.com/couchcryptid/event-weather-service/internal/adapter/openmeteo"
	"github.com/couchcryptid/event-weather-service/internal/adapter/store"
	"github.com/couchcryptid/event-weather-service/internal/config"
	"github.com/couchcryptid/event-weather-service/internal/forecast"
	"github.com/couchcryptid/event-weather-service/internal/lifecycle"
	"github.com/couchcryptid/event-weather-service/internal/notify"
	"github.com/couchcryptid/event-weather-service/internal/observability"
	"github.com/couchcryptid/event-weather-service/internal/scheduler"
	"github.com/couchcryptid/event-weather-service/internal/tasks"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	if err := run(cfg, logger); err != nil {
		logger.Error("service failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	st, err := store.Open(cfg.DatabaseDriver, cfg.DatabaseDSN, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("store close", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := st.EnsureNotificationConfig(ctx); err != nil {
		return fmt.Errorf("seed notification config: %w", err)
	}

	client := openmeteo.NewClient(openmeteo.Options{
		BaseURL:        cfg.ForecastBaseURL,
		CurrentTimeout: cfg.ForecastCurrentTimeout,
		CurrentRetries: cfg.ForecastCurrentRetries,
		HourlyTimeout:  cfg.ForecastHourlyTimeout,
	}, metrics, logger)
	provider := openmeteo.NewCachedProvider(client, cfg.ForecastCacheSize, cfg.ForecastCacheTTL, clock, metrics)
	forecasts := forecast.NewService(provider, logger)

	var mailer notify.Mailer
	if cfg.MailEnabled() {
		sender, err := mail.NewSender(cfg, logger)
		if err != nil {
			return err
		}
		mailer = sender
		logger.Info("smtp delivery enabled", "host", cfg.SMTPHost, "port", cfg.SMTPPort)
	} else {
		mailer = mail.NewLogSender(logger)
		logger.Info("smtp delivery disabled, notifications are logged")
	}

	// Handlers are registered after the lifecycle service exists; the runner
	// reads the map only once tasks start flowing.
	handlers := map[tasks.Kind]tasks.Handler{}
	runner := tasks.NewRunner(handlers, logger, metrics)

	var (
		queue    tasks.Queue
		local    *tasks.LocalQueue
		writer   *kafkaadapter.Writer
		reader   *kafkaadapter.Reader
		consumer *tasks.Consumer
	)
	switch cfg.TaskQueue {
	case config.QueueKafka:
		writer = kafkaadapter.NewWriter(cfg, logger, metrics)
		reader = kafkaadapter.NewReader(cfg, logger)
		consumer = tasks.NewConsumer(reader, runner, logger, metrics)
		queue = writer
	default:
		local = tasks.NewLocalQueue(runner, cfg.TaskWorkers, cfg.TaskBuffer, logger, metrics)
		queue = local
	}

	events := lifecycle.NewService(st, logger, metrics,
		lifecycle.NewWeatherEffect(queue),
		lifecycle.NewNotificationEffect(st, queue, logger, metrics),
	)
	attacher := forecast.NewAttacher(forecasts, st, events, logger)
	dispatcher := notify.NewDispatcher(st, mailer, cfg.MailFrom, logger, metrics)
	handlers[tasks.KindAttachForecast] = func(ctx context.Context, t tasks.Task) string {
		return attacher.Attach(ctx, t.EventID)
	}
	handlers[tasks.KindSendNotification] = dispatcher.Handle

	sched := scheduler.New(st, events, forecasts, scheduler.Options{
		PublishInterval:      cfg.PublishInterval,
		WeatherSweepInterval: cfg.WeatherSweepInterval,
		EndSweepEnabled:      cfg.EndSweepEnabled,
	}, clock, logger, metrics)

	ready := []httpadapter.ReadinessChecker{st}
	if consumer != nil {
		ready = append(ready, httpadapter.ReadinessFunc(func(context.Context) error {
			if !consumer.Running() {
				return errors.New("task consumer not running")
			}
			return nil
		}))
	}
	srv := httpadapter.NewServer(cfg.HTTPAddr, ready, sched, logger)

	// Workers outlive the signal context so queued tasks can drain on shutdown.
	workCtx, cancelWork := context.WithCancel(context.Background())
	defer cancelWork()
	if local != nil {
		local.Start(workCtx)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error { return sched.Run(gctx) })
	if consumer != nil {
		g.Go(func() error { return consumer.Run(gctx) })
	}

	<-gctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	var result *multierror.Error
	if err := srv.Shutdown(shutdownCtx); err != nil {
		result = multierror.Append(result, fmt.Errorf("http server shutdown: %w", err))
	}
	if err := g.Wait(); err != nil {
		result = multierror.Append(result, err)
	}
	if local != nil {
		drained := make(chan error, 1)
		go func() { drained <- local.Close() }()
		select {
		case err := <-drained:
			if err != nil {
				result = multierror.Append(result, fmt.Errorf("task queue drain: %w", err))
			}
		case <-shutdownCtx.Done():
			cancelWork()
			result = multierror.Append(result, errors.New("task queue drain timed out"))
		}
	}
	if reader != nil {
		if err := reader.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("kafka reader close: %w", err))
		}
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("kafka writer close: %w", err))
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}
