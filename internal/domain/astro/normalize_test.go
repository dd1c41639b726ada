package astro

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apperrors "github.com/astrowise/astrowise-api/pkg/errors"
)

func TestNormalizeAppliesZoneOffset(t *testing.T) {
	bangkok, err := Normalize("1990-04-19", "11:30:00", "Asia/Bangkok")
	require.NoError(t, err)
	utc, err := Normalize("1990-04-19", "11:30:00", "UTC")
	require.NoError(t, err)

	// Bangkok is UTC+7 year-round, so the same wall clock is 7/24 of a day
	// earlier in Julian time.
	require.InDelta(t, 7.0/24.0, utc.JulianDay-bangkok.JulianDay, 1e-9)
	require.Equal(t, "1990-04-19T04:30:00Z", bangkok.UTC.Format(time.RFC3339))
}

func TestNormalizeAcceptsMinutePrecision(t *testing.T) {
	withSecs, err := Normalize("2025-03-05", "08:15:00", "UTC")
	require.NoError(t, err)
	noSecs, err := Normalize("2025-03-05", "08:15", "UTC")
	require.NoError(t, err)
	require.Equal(t, withSecs.JulianDay, noSecs.JulianDay)
}

func TestNormalizeRejectsBadInput(t *testing.T) {
	cases := []struct {
		name  string
		date  string
		clock string
		zone  string
	}{
		{name: "malformed date", date: "19/04/1990", clock: "11:30:00", zone: "UTC"},
		{name: "malformed time", date: "1990-04-19", clock: "25:00:00", zone: "UTC"},
		{name: "unknown zone", date: "1990-04-19", clock: "11:30:00", zone: "Mars/Olympus"},
		{name: "impossible day", date: "1990-02-31", clock: "11:30:00", zone: "UTC"},
	}
	for _, tc := range cases {
		_, err := Normalize(tc.date, tc.clock, tc.zone)
		if err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
		if !apperrors.IsCode(err, apperrors.CodeInvalidTime) {
			t.Fatalf("%s: expected invalid_time, got %v", tc.name, err)
		}
	}
}

func TestNormalizeRejectsSpringForwardGap(t *testing.T) {
	// 2021-03-14 02:30 never happened in New York; clocks jumped 02:00->03:00.
	_, err := Normalize("2021-03-14", "02:30:00", "America/New_York")
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidTime))
}

func TestJulianDayReferenceEpoch(t *testing.T) {
	// J2000.0: 2000-01-01 12:00 UTC is JD 2451545.0 exactly.
	jd := JulianDay(time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC))
	require.Equal(t, 2451545.0, jd)

	jd = JulianDay(time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC))
	require.Equal(t, 2451544.5, jd)
}

func TestJulianDayRoundTrip(t *testing.T) {
	instants := []time.Time{
		time.Date(1800, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(1971, 11, 17, 6, 45, 30, 0, time.UTC),
		time.Date(2025, 3, 5, 23, 59, 59, 0, time.UTC),
		time.Date(2100, 12, 31, 12, 0, 0, 0, time.UTC),
	}
	for _, want := range instants {
		got := JulianDayToTime(JulianDay(want))
		if d := got.Sub(want); math.Abs(d.Seconds()) > 1 {
			t.Fatalf("%v round-tripped to %v (off by %v)", want, got, d)
		}
	}
}
