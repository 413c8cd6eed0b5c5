package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveCoordinates(t *testing.T) {
	t.Run("structured point", func(t *testing.T) {
		p, err := ResolveCoordinates(Location{Point: &Point{Lat: 55.75, Lon: 37.61}})
		require.NoError(t, err)
		assert.Equal(t, Point{Lat: 55.75, Lon: 37.61}, p)
	})

	t.Run("WKT is lon lat", func(t *testing.T) {
		p, err := ResolveCoordinates(Location{WKT: "POINT(37.61 55.75)"})
		require.NoError(t, err)
		assert.Equal(t, 55.75, p.Lat)
		assert.Equal(t, 37.61, p.Lon)
	})

	t.Run("EWKT with SRID prefix", func(t *testing.T) {
		p, err := ResolveCoordinates(Location{WKT: "SRID=4326;POINT (92.87 56.01)"})
		require.NoError(t, err)
		assert.Equal(t, Point{Lat: 56.01, Lon: 92.87}, p)
	})

	t.Run("point wins over WKT", func(t *testing.T) {
		p, err := ResolveCoordinates(Location{Point: &Point{Lat: 1, Lon: 2}, WKT: "POINT(3 4)"})
		require.NoError(t, err)
		assert.Equal(t, Point{Lat: 1, Lon: 2}, p)
	})

	t.Run("transposed pair is swapped", func(t *testing.T) {
		p, err := ResolveCoordinates(Location{Point: &Point{Lat: 120.5, Lon: 30.2}})
		require.NoError(t, err)
		assert.Equal(t, Point{Lat: 30.2, Lon: 120.5}, p)
	})

	t.Run("transposed WKT is swapped", func(t *testing.T) {
		// Written as POINT(lat lon) by mistake: x=55.75 is read as lon, y=137.6 as lat.
		p, err := ResolveCoordinates(Location{WKT: "POINT(55.75 137.6)"})
		require.NoError(t, err)
		assert.Equal(t, Point{Lat: 55.75, Lon: 137.6}, p)
	})

	t.Run("both out of range", func(t *testing.T) {
		_, err := ResolveCoordinates(Location{Point: &Point{Lat: 95, Lon: 200}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "out of range")
	})

	t.Run("longitude out of range", func(t *testing.T) {
		_, err := ResolveCoordinates(Location{Point: &Point{Lat: 10, Lon: 181}})
		require.Error(t, err)
	})

	t.Run("empty location", func(t *testing.T) {
		_, err := ResolveCoordinates(Location{})
		require.Error(t, err)
	})

	t.Run("lowercase WKT", func(t *testing.T) {
		p, err := ResolveCoordinates(Location{WKT: "point(37.61 55.75)"})
		require.NoError(t, err)
		assert.Equal(t, Point{Lat: 55.75, Lon: 37.61}, p)
	})

	t.Run("empty WKT point", func(t *testing.T) {
		_, err := ResolveCoordinates(Location{WKT: "POINT EMPTY"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "malformed WKT")
	})

	t.Run("WKT with garbage coordinates", func(t *testing.T) {
		_, err := ResolveCoordinates(Location{WKT: "POINT(abc 55.75)"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "malformed WKT")
	})

	t.Run("malformed WKT", func(t *testing.T) {
		_, err := ResolveCoordinates(Location{WKT: "LINESTRING(1 2, 3 4)"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "malformed WKT")
	})
}

func TestFormatWKT_RoundTrip(t *testing.T) {
	wkt := FormatWKT(Point{Lat: 55.75, Lon: 37.61})
	assert.Equal(t, "POINT(37.61 55.75)", wkt)

	p, err := ParseWKTPoint(wkt)
	require.NoError(t, err)
	assert.Equal(t, Point{Lat: 55.75, Lon: 37.61}, p)

	p, err = ParseWKTPoint(FormatWKT(Point{Lat: -33.8688, Lon: 151.2093}))
	require.NoError(t, err)
	assert.Equal(t, Point{Lat: -33.8688, Lon: 151.2093}, p)
}

func TestParseLonLatPair(t *testing.T) {
	p, err := ParseLonLatPair("37.61, 55.75")
	require.NoError(t, err)
	assert.Equal(t, Point{Lat: 55.75, Lon: 37.61}, p)

	p, err = ParseLonLatPair("37.61;55.75")
	require.NoError(t, err)
	assert.Equal(t, Point{Lat: 55.75, Lon: 37.61}, p)

	_, err = ParseLonLatPair("37.61")
	require.Error(t, err)

	_, err = ParseLonLatPair("abc, 55.75")
	require.Error(t, err)
}
