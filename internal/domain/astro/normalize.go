package astro

import (
	"fmt"
	"time"

	apperrors "github.com/astrowise/astrowise-api/pkg/errors"
)

const (
	dateLayout       = "2006-01-02"
	timeLayout       = "15:04:05"
	timeLayoutNoSecs = "15:04"
)

// Normalize converts a (date, time, zone) triple into an unambiguous UTC
// instant and its Julian Day. Zone rules are applied for the specific date,
// so historical DST and offset changes are honored.
//
// Gap policy: a wall-clock time that does not exist in the zone (the
// spring-forward hour) is rejected with invalid_time rather than shifted.
func Normalize(date, clock, zone string) (NormalizedInstant, error) {
	d, err := time.Parse(dateLayout, date)
	if err != nil {
		return NormalizedInstant{}, apperrors.Wrap(apperrors.CodeInvalidTime, fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", date), err)
	}
	t, err := time.Parse(timeLayout, clock)
	if err != nil {
		t, err = time.Parse(timeLayoutNoSecs, clock)
		if err != nil {
			return NormalizedInstant{}, apperrors.Wrap(apperrors.CodeInvalidTime, fmt.Sprintf("invalid time %q, expected HH:MM[:SS]", clock), err)
		}
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return NormalizedInstant{}, apperrors.Wrap(apperrors.CodeInvalidTime, fmt.Sprintf("unknown time zone %q", zone), err)
	}

	local := time.Date(d.Year(), d.Month(), d.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc)
	if local.Year() != d.Year() || local.Month() != d.Month() || local.Day() != d.Day() ||
		local.Hour() != t.Hour() || local.Minute() != t.Minute() {
		// time.Date silently normalized the wall clock, so the requested
		// local time does not exist in this zone (DST gap).
		return NormalizedInstant{}, apperrors.Wrap(apperrors.CodeInvalidTime,
			fmt.Sprintf("%s %s does not exist in zone %s", date, clock, zone), nil)
	}

	utc := local.UTC()
	return NormalizedInstant{UTC: utc, JulianDay: JulianDay(utc)}, nil
}

// JulianDay returns the Julian Day for a UTC instant, fractional part
// included. Uses the standard proleptic-Gregorian JDN formula; the fraction
// is carried at full float64 precision, well past the sub-minute sensitivity
// the ephemeris needs.
func JulianDay(t time.Time) float64 {
	u := t.UTC()
	jdn := julianDayNumber(u.Year(), int(u.Month()), u.Day())

	hour := float64(u.Hour())
	minute := float64(u.Minute())
	second := float64(u.Second()) + float64(u.Nanosecond())/1e9

	return float64(jdn) + (hour-12)/24 + minute/1440 + second/86400
}

// julianDayNumber is the JDN at noon UTC of the given Gregorian calendar day.
func julianDayNumber(year, month, day int) int {
	a := (14 - month) / 12
	y := year + 4800 - a
	m := month + 12*a - 3
	return day + (153*m+2)/5 + 365*y + y/4 - y/100 + y/400 - 32045
}

// JulianDayToTime inverts JulianDay to a UTC instant, accurate to the second.
func JulianDayToTime(jd float64) time.Time {
	jdn := int(jd + 0.5)
	frac := jd + 0.5 - float64(jdn)

	year, month, day := gregorianFromJDN(jdn)

	secs := int(frac*86400 + 0.5)
	hour := secs / 3600
	minute := (secs % 3600) / 60
	second := secs % 60
	return time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC)
}

func gregorianFromJDN(jdn int) (year, month, day int) {
	a := jdn + 32044
	b := (4*a + 3) / 146097
	c := a - (146097*b)/4
	d := (4*c + 3) / 1461
	e := c - (1461*d)/4
	m := (5*e + 2) / 153

	day = e - (153*m+2)/5 + 1
	month = m + 3 - 12*(m/10)
	year = 100*b + d - 4800 + m/10
	return year, month, day
}
