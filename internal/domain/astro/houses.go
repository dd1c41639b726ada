package astro

import (
	"fmt"
	"math"

	apperrors "github.com/astrowise/astrowise-api/pkg/errors"
)

// Placidus divides the diurnal and nocturnal semi-arcs by time. The system
// is undefined where the ecliptic can be circumpolar, so latitudes at or
// beyond the polar circle are rejected outright.

const placidusIterations = 20

// PlacidusHouses computes the ascendant, MC and the twelve Placidus cusps
// for a Julian Day and geographic position (longitude east positive).
func PlacidusHouses(jd, lat, lng float64) (Houses, error) {
	obliquity := 23.4392911 - 0.0130042*julianCenturies(jd)

	if math.Abs(lat) >= 90-obliquity {
		return Houses{}, apperrors.Wrap(apperrors.CodeHouseError,
			fmt.Sprintf("placidus houses undefined at latitude %.4f", lat), nil)
	}

	ramc := normalize360(gmst(jd) + lng)

	asc := ascendantLongitude(ramc, lat, obliquity)
	mc := normalize360(deg(math.Atan2(sind(ramc), cosd(ramc)*cosd(obliquity))))

	var h Houses
	h.Ascendant = round4(asc)
	h.MC = round4(mc)

	h.Cusps[0] = h.Ascendant // house 1
	h.Cusps[9] = h.MC        // house 10

	// Intermediate cusps 11, 12, 2, 3 by semi-arc trisection; 4–9 oppose.
	c11, err := placidusCusp(ramc, lat, obliquity, 30, 1.0/3)
	if err != nil {
		return Houses{}, err
	}
	c12, err := placidusCusp(ramc, lat, obliquity, 60, 2.0/3)
	if err != nil {
		return Houses{}, err
	}
	c2, err := placidusCuspBelow(ramc, lat, obliquity, 120, 2.0/3)
	if err != nil {
		return Houses{}, err
	}
	c3, err := placidusCuspBelow(ramc, lat, obliquity, 150, 1.0/3)
	if err != nil {
		return Houses{}, err
	}

	h.Cusps[10] = round4(c11)
	h.Cusps[11] = round4(c12)
	h.Cusps[1] = round4(c2)
	h.Cusps[2] = round4(c3)
	for i := 3; i < 9; i++ {
		h.Cusps[i] = round4(normalize360(h.Cusps[(i+6)%12] + 180))
	}
	return h, nil
}

// ascendantLongitude is the ecliptic degree rising on the eastern horizon.
func ascendantLongitude(ramc, lat, obliquity float64) float64 {
	y := cosd(ramc)
	x := -(sind(ramc)*cosd(obliquity) + tand(lat)*sind(obliquity))
	return normalize360(deg(math.Atan2(y, x)))
}

// placidusCusp solves for a cusp above the horizon: the point whose hour
// angle is the given fraction of its own diurnal semi-arc, measured from the
// meridian. Fixed-point iteration in right ascension.
func placidusCusp(ramc, lat, obliquity, offset, fraction float64) (float64, error) {
	ra := normalize360(ramc + offset)
	for i := 0; i < placidusIterations; i++ {
		lon := raToEcliptic(ra, obliquity)
		decl := deg(math.Asin(sind(obliquity) * sind(lon)))
		x := tand(lat) * tand(decl)
		if x < -1 || x > 1 {
			return 0, apperrors.Wrap(apperrors.CodeHouseError,
				fmt.Sprintf("placidus cusp does not converge at latitude %.4f", lat), nil)
		}
		ad := deg(math.Asin(x)) // ascensional difference
		ra = normalize360(ramc + fraction*(90+ad))
	}
	return raToEcliptic(ra, obliquity), nil
}

// placidusCuspBelow solves a cusp below the horizon using the nocturnal
// semi-arc.
func placidusCuspBelow(ramc, lat, obliquity, offset, fraction float64) (float64, error) {
	ra := normalize360(ramc + offset)
	for i := 0; i < placidusIterations; i++ {
		lon := raToEcliptic(ra, obliquity)
		decl := deg(math.Asin(sind(obliquity) * sind(lon)))
		x := tand(lat) * tand(decl)
		if x < -1 || x > 1 {
			return 0, apperrors.Wrap(apperrors.CodeHouseError,
				fmt.Sprintf("placidus cusp does not converge at latitude %.4f", lat), nil)
		}
		ad := deg(math.Asin(x))
		ra = normalize360(ramc + 180 - fraction*(90-ad))
	}
	return raToEcliptic(ra, obliquity), nil
}

// raToEcliptic converts right ascension of a point on the ecliptic back to
// ecliptic longitude.
func raToEcliptic(ra, obliquity float64) float64 {
	return normalize360(deg(math.Atan2(sind(ra), cosd(ra)*cosd(obliquity))))
}

// gmst is the Greenwich mean sidereal time at the instant, in degrees.
func gmst(jd float64) float64 {
	t := julianCenturies(jd)
	st := 280.46061837 + 360.98564736629*(jd-2451545.0) + 0.000387933*t*t
	return normalize360(st)
}
