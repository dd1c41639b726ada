package astro

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apperrors "github.com/astrowise/astrowise-api/pkg/errors"
)

func TestPlanetPositionsCoverAllBodies(t *testing.T) {
	jd := JulianDay(time.Date(1990, 4, 19, 4, 30, 0, 0, time.UTC))
	planets, err := PlanetPositions(jd)
	require.NoError(t, err)
	require.Len(t, planets, len(Bodies))

	for _, body := range Bodies {
		lon, ok := planets[body]
		require.True(t, ok, "missing body %s", body)
		require.GreaterOrEqual(t, lon, 0.0, "body %s", body)
		require.Less(t, lon, 360.0, "body %s", body)
	}
}

func TestPlanetPositionsDeterministic(t *testing.T) {
	jd := JulianDay(time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC))
	first, err := PlanetPositions(jd)
	require.NoError(t, err)
	second, err := PlanetPositions(jd)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestSunNearSolstice(t *testing.T) {
	// At the June solstice the Sun sits at ecliptic longitude 90.
	jd := JulianDay(time.Date(2000, 6, 21, 1, 48, 0, 0, time.UTC))
	planets, err := PlanetPositions(jd)
	require.NoError(t, err)
	require.InDelta(t, 90.0, planets[Sun], 1.0)
}

func TestNodesAreDistinctButClose(t *testing.T) {
	// The true node librates around the mean node by under two degrees, so
	// RAHU and KETU track each other without ever collapsing into one value
	// for long.
	jd := JulianDay(time.Date(1990, 4, 19, 4, 30, 0, 0, time.UTC))
	planets, err := PlanetPositions(jd)
	require.NoError(t, err)

	diff := math.Abs(planets[Rahu] - planets[Ketu])
	if diff > 180 {
		diff = 360 - diff
	}
	require.Less(t, diff, 3.0)
}

func TestPlanetPositionsOutsideSupportedSpan(t *testing.T) {
	for _, instant := range []time.Time{
		time.Date(1750, 6, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2150, 6, 1, 0, 0, 0, 0, time.UTC),
	} {
		_, err := PlanetPositions(JulianDay(instant))
		require.Error(t, err, "%v", instant)
		require.True(t, apperrors.IsCode(err, apperrors.CodeEphemerisUnavailable), "%v: %v", instant, err)
	}
}
