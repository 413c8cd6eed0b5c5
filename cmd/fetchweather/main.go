// Command fetchweather runs one current-conditions sweep over every venue and
// prints the per-venue outcome. It uses the same environment configuration
// as eventsvc.
//
// Usage:
//
//	go run ./cmd/fetchweather [-strict]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/event-weather-service/internal/adapter/openmeteo"
	"github.com/couchcryptid/event-weather-service/internal/adapter/store"
	"github.com/couchcryptid/event-weather-service/internal/config"
	"github.com/couchcryptid/event-weather-service/internal/forecast"
	"github.com/couchcryptid/event-weather-service/internal/observability"
	"github.com/couchcryptid/event-weather-service/internal/scheduler"
)

func main() {
	strict := flag.Bool("strict", false, "exit non-zero when any venue fails")
	flag.Parse()

	if err := run(*strict); err != nil {
		fmt.Fprintln(os.Stderr, "fetchweather:", err)
		os.Exit(1)
	}
}

func run(strict bool) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	st, err := store.Open(cfg.DatabaseDriver, cfg.DatabaseDSN, logger)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck // process exits next

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := openmeteo.NewClient(openmeteo.Options{
		BaseURL:        cfg.ForecastBaseURL,
		CurrentTimeout: cfg.ForecastCurrentTimeout,
		CurrentRetries: cfg.ForecastCurrentRetries,
		HourlyTimeout:  cfg.ForecastHourlyTimeout,
	}, metrics, logger)
	forecasts := forecast.NewService(client, logger)

	// The weather sweep never changes event status, so no lifecycle is needed.
	sweeps := scheduler.New(st, nil, forecasts, scheduler.Options{}, clockwork.NewRealClock(), logger, metrics)
	results, err := sweeps.RunWeatherSweep(ctx)
	if err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		fmt.Println(r)
		if strings.HasPrefix(r, "Failed ") {
			failed++
		}
	}
	fmt.Printf("%d venues, %d failed\n", len(results), failed)

	if strict && failed > 0 {
		return fmt.Errorf("%d venues failed", failed)
	}
	return nil
}
