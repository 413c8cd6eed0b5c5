package domain

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
)

var errNoLocation = errors.New("location is not set")

// ResolveCoordinates returns the (lat, lon) of a venue location, correcting
// a transposed pair when |lat| > 90 and |lon| <= 90.
func ResolveCoordinates(loc Location) (Point, error) {
	var p Point
	switch {
	case loc.Point != nil:
		p = *loc.Point
	case strings.TrimSpace(loc.WKT) != "":
		parsed, err := ParseWKTPoint(loc.WKT)
		if err != nil {
			return Point{}, err
		}
		p = parsed
	default:
		return Point{}, errNoLocation
	}

	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) {
		return Point{}, errors.New("coordinate is not a number")
	}
	if math.Abs(p.Lat) > 90 && math.Abs(p.Lon) <= 90 {
		p.Lat, p.Lon = p.Lon, p.Lat
	}
	if math.Abs(p.Lat) > 90 || math.Abs(p.Lon) > 180 {
		return Point{}, fmt.Errorf("coordinate (%g, %g) out of range", p.Lat, p.Lon)
	}
	return p, nil
}

// ParseWKTPoint parses "POINT(lon lat)", optionally with an EWKT prefix such
// as "SRID=4326;". The WKT axis order is x=lon, y=lat.
func ParseWKTPoint(s string) (Point, error) {
	body := strings.TrimSpace(s)
	if prefix, rest, ok := strings.Cut(body, ";"); ok && strings.HasPrefix(strings.ToUpper(strings.TrimSpace(prefix)), "SRID=") {
		body = strings.TrimSpace(rest)
	}
	body = strings.ToUpper(body)
	if strings.HasSuffix(body, "EMPTY") {
		return Point{}, fmt.Errorf("malformed WKT point %q: empty geometry", s)
	}
	pt, err := wkt.UnmarshalPoint(body)
	if err != nil {
		return Point{}, fmt.Errorf("malformed WKT point %q: %w", s, err)
	}
	return Point{Lat: pt.Lat(), Lon: pt.Lon()}, nil
}

// FormatWKT renders a point as "POINT(lon lat)".
func FormatWKT(p Point) string {
	return wkt.MarshalString(orb.Point{p.Lon, p.Lat})
}

// ParseLonLatPair parses the "lon, lat" cells used by spreadsheet imports.
// A semicolon is accepted as the separator as well.
func ParseLonLatPair(s string) (Point, error) {
	parts := strings.Split(strings.ReplaceAll(s, ";", ","), ",")
	if len(parts) != 2 {
		return Point{}, fmt.Errorf("expected \"lon, lat\", got %q", s)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Point{}, fmt.Errorf("parse longitude: %w", err)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Point{}, fmt.Errorf("parse latitude: %w", err)
	}
	return Point{Lat: lat, Lon: lon}, nil
}
