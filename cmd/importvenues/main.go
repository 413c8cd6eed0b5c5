// Command importvenues loads venues from a CSV file, creating each one that
// does not already exist by name. The header must contain "name" and at least
// one location source: "lat" and "lon", "coordinates" ("lon, lat" or
// "lon; lat"), or "wkt" (POINT(lon lat)).
//
// Usage:
//
//	go run ./cmd/importvenues -csv venues.csv
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/couchcryptid/event-weather-service/internal/adapter/store"
	"github.com/couchcryptid/event-weather-service/internal/config"
	"github.com/couchcryptid/event-weather-service/internal/domain"
	"github.com/couchcryptid/event-weather-service/internal/observability"
)

type venueRow struct {
	line     int
	name     string
	location domain.Location
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	csvPath := flag.String("csv", "", "CSV file with venue rows")
	flag.Parse()
	if *csvPath == "" {
		return errors.New("-csv is required")
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := observability.NewLogger(cfg)

	f, err := os.Open(*csvPath)
	if err != nil {
		return err
	}
	defer f.Close()

	rows, err := parseVenues(f)
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.DatabaseDriver, cfg.DatabaseDSN, logger)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck // process exits next

	ctx := context.Background()
	var created, existing, failed int
	for _, r := range rows {
		_, isNew, err := st.GetOrCreateVenue(ctx, r.name, r.location)
		switch {
		case err != nil:
			failed++
			fmt.Fprintf(os.Stderr, "line %d (%s): %v\n", r.line, r.name, err)
		case isNew:
			created++
		default:
			existing++
		}
	}
	fmt.Printf("%d created, %d existing, %d failed\n", created, existing, failed)
	if failed > 0 {
		return fmt.Errorf("%d rows failed", failed)
	}
	return nil
}

// parseVenues reads CSV rows into venues. Rows with a blank name are skipped.
func parseVenues(r io.Reader) ([]venueRow, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := col["name"]; !ok {
		return nil, errors.New(`header has no "name" column`)
	}
	_, hasLat := col["lat"]
	_, hasLon := col["lon"]
	_, hasPair := col["coordinates"]
	_, hasWKT := col["wkt"]
	if !(hasLat && hasLon) && !hasPair && !hasWKT {
		return nil, errors.New(`header needs "lat" and "lon", "coordinates", or "wkt"`)
	}

	var out []venueRow
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		name := strings.TrimSpace(rec[col["name"]])
		if name == "" {
			continue
		}
		loc, err := rowLocation(rec, col, hasLat && hasLon, hasPair, hasWKT)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, venueRow{line: line, name: name, location: loc})
	}
	return out, nil
}

func rowLocation(rec []string, col map[string]int, hasPoint, hasPair, hasWKT bool) (domain.Location, error) {
	if hasPoint {
		latStr := strings.TrimSpace(rec[col["lat"]])
		lonStr := strings.TrimSpace(rec[col["lon"]])
		if latStr != "" || lonStr != "" {
			lat, err := strconv.ParseFloat(latStr, 64)
			if err != nil {
				return domain.Location{}, fmt.Errorf("lat %q: %w", latStr, err)
			}
			lon, err := strconv.ParseFloat(lonStr, 64)
			if err != nil {
				return domain.Location{}, fmt.Errorf("lon %q: %w", lonStr, err)
			}
			return domain.Location{Point: &domain.Point{Lat: lat, Lon: lon}}, nil
		}
	}
	if hasPair {
		if pair := strings.TrimSpace(rec[col["coordinates"]]); pair != "" {
			p, err := domain.ParseLonLatPair(pair)
			if err != nil {
				return domain.Location{}, err
			}
			return domain.Location{Point: &p}, nil
		}
	}
	if hasWKT {
		if wkt := strings.TrimSpace(rec[col["wkt"]]); wkt != "" {
			return domain.Location{WKT: wkt}, nil
		}
	}
	return domain.Location{}, errors.New("no location")
}
