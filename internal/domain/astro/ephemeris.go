package astro

import (
	"fmt"
	"math"

	apperrors "github.com/astrowise/astrowise-api/pkg/errors"
)

// The ephemeris evaluates a truncated analytic planetary theory (classical
// low-precision orbital elements plus the dominant perturbation terms) good
// to a few arc minutes inside its validity span. Elements are linear in d,
// the day count from the 2000-01-01 00:00 UT epoch.

// Validity span. Outside it the truncated series drift; reject rather than
// extrapolate.
var (
	minJulianDay = float64(julianDayNumber(1800, 1, 1)) - 0.5
	maxJulianDay = float64(julianDayNumber(2101, 1, 1)) - 0.5
)

const ephemerisEpochJD = 2451543.5 // 2000-01-01 00:00 UT

// PlanetPositions returns the geocentric ecliptic longitude of all nine
// bodies at the given Julian Day, each rounded to 4 decimals. Either every
// body is present or an error is returned; no partial mapping escapes.
func PlanetPositions(jd float64) (map[Body]float64, error) {
	if jd < minJulianDay || jd > maxJulianDay {
		return nil, apperrors.Wrap(apperrors.CodeEphemerisUnavailable,
			fmt.Sprintf("julian day %.4f outside supported span [%.1f, %.1f]", jd, minJulianDay, maxJulianDay), nil)
	}

	d := jd - ephemerisEpochJD

	sunLon, sunDist, err := sunPosition(d)
	if err != nil {
		return nil, err
	}
	moonLon, err := moonLongitude(d)
	if err != nil {
		return nil, err
	}

	out := map[Body]float64{
		Sun:  round4(sunLon),
		Moon: round4(moonLon),
		Rahu: round4(meanNodeLongitude(jd)),
		Ketu: round4(trueNodeLongitude(jd)),
	}

	for body, elems := range planetElements {
		lon, err := geocentricLongitude(body, elems(d), d, sunLon, sunDist)
		if err != nil {
			return nil, err
		}
		out[body] = round4(lon)
	}
	return out, nil
}

// orbitalElements are classical Keplerian elements in degrees/AU.
type orbitalElements struct {
	N float64 // longitude of ascending node
	I float64 // inclination
	W float64 // argument of perihelion
	A float64 // semi-major axis
	E float64 // eccentricity
	M float64 // mean anomaly
}

var planetElements = map[Body]func(d float64) orbitalElements{
	Mercury: func(d float64) orbitalElements {
		return orbitalElements{
			N: 48.3313 + 3.24587e-5*d,
			I: 7.0047 + 5.00e-8*d,
			W: 29.1241 + 1.01444e-5*d,
			A: 0.387098,
			E: 0.205635 + 5.59e-10*d,
			M: 168.6562 + 4.0923344368*d,
		}
	},
	Venus: func(d float64) orbitalElements {
		return orbitalElements{
			N: 76.6799 + 2.46590e-5*d,
			I: 3.3946 + 2.75e-8*d,
			W: 54.8910 + 1.38374e-5*d,
			A: 0.723330,
			E: 0.006773 - 1.302e-9*d,
			M: 48.0052 + 1.6021302244*d,
		}
	},
	Mars: func(d float64) orbitalElements {
		return orbitalElements{
			N: 49.5574 + 2.11081e-5*d,
			I: 1.8497 - 1.78e-8*d,
			W: 286.5016 + 2.92961e-5*d,
			A: 1.523688,
			E: 0.093405 + 2.516e-9*d,
			M: 18.6021 + 0.5240207766*d,
		}
	},
	Jupiter: func(d float64) orbitalElements {
		return orbitalElements{
			N: 100.4542 + 2.76854e-5*d,
			I: 1.3030 - 1.557e-7*d,
			W: 273.8777 + 1.64505e-5*d,
			A: 5.20256,
			E: 0.048498 + 4.469e-9*d,
			M: 19.8950 + 0.0830853001*d,
		}
	},
	Saturn: func(d float64) orbitalElements {
		return orbitalElements{
			N: 113.6634 + 2.38980e-5*d,
			I: 2.4886 - 1.081e-7*d,
			W: 339.3939 + 2.97661e-5*d,
			A: 9.55475,
			E: 0.055546 - 9.499e-9*d,
			M: 316.9670 + 0.0334442282*d,
		}
	},
}

// sunPosition returns the geocentric ecliptic longitude of the Sun and the
// Earth-Sun distance in AU.
func sunPosition(d float64) (lon, dist float64, err error) {
	w := 282.9404 + 4.70935e-5*d
	e := 0.016709 - 1.151e-9*d
	m := normalize360(356.0470 + 0.9856002585*d)

	ecc, err := solveKepler(m, e)
	if err != nil {
		return 0, 0, err
	}

	xv := math.Cos(rad(ecc)) - e
	yv := math.Sqrt(1-e*e) * math.Sin(rad(ecc))
	v := deg(math.Atan2(yv, xv))
	r := math.Sqrt(xv*xv + yv*yv)

	return normalize360(v + w), r, nil
}

// moonLongitude returns the geocentric ecliptic longitude of the Moon with
// the dominant perturbation terms (evection, variation, yearly equation and
// friends) applied.
func moonLongitude(d float64) (float64, error) {
	n := 125.1228 - 0.0529538083*d
	w := 318.0634 + 0.1643573223*d
	e := 0.054900
	m := normalize360(115.3654 + 13.0649929509*d)

	ecc, err := solveKepler(m, e)
	if err != nil {
		return 0, err
	}

	xv := math.Cos(rad(ecc)) - e
	yv := math.Sqrt(1-e*e) * math.Sin(rad(ecc))
	v := deg(math.Atan2(yv, xv))

	lonEcl := normalize360(n + w + v)

	// Fundamental arguments for the perturbation series.
	ms := normalize360(356.0470 + 0.9856002585*d)  // Sun mean anomaly
	ws := 282.9404 + 4.70935e-5*d                  // Sun argument of perihelion
	ls := normalize360(ms + ws)                    // Sun mean longitude
	lm := normalize360(n + w + m)                  // Moon mean longitude
	dd := normalize360(lm - ls)                    // mean elongation
	f := normalize360(lm - n)                      // argument of latitude

	lonEcl += -1.274 * sind(m-2*dd)    // evection
	lonEcl += 0.658 * sind(2*dd)       // variation
	lonEcl += -0.186 * sind(ms)        // yearly equation
	lonEcl += -0.059 * sind(2*m-2*dd)
	lonEcl += -0.057 * sind(m-2*dd+ms)
	lonEcl += 0.053 * sind(m+2*dd)
	lonEcl += 0.046 * sind(2*dd-ms)
	lonEcl += 0.041 * sind(m-ms)
	lonEcl += -0.035 * sind(dd) // parallactic equation
	lonEcl += -0.031 * sind(m+ms)
	lonEcl += -0.015 * sind(2*f-2*dd)
	lonEcl += 0.011 * sind(m-4*dd)

	return normalize360(lonEcl), nil
}

// geocentricLongitude converts a planet's heliocentric position to the
// geocentric ecliptic longitude, applying the Jupiter/Saturn mutual
// perturbations where they matter.
func geocentricLongitude(body Body, el orbitalElements, d, sunLon, sunDist float64) (float64, error) {
	m := normalize360(el.M)
	ecc, err := solveKepler(m, el.E)
	if err != nil {
		return 0, err
	}

	xv := el.A * (math.Cos(rad(ecc)) - el.E)
	yv := el.A * math.Sqrt(1-el.E*el.E) * math.Sin(rad(ecc))
	v := deg(math.Atan2(yv, xv))
	r := math.Sqrt(xv*xv + yv*yv)

	// Heliocentric rectangular ecliptic coordinates.
	vw := rad(v + el.W)
	nr := rad(el.N)
	ir := rad(el.I)
	xh := r * (math.Cos(nr)*math.Cos(vw) - math.Sin(nr)*math.Sin(vw)*math.Cos(ir))
	yh := r * (math.Sin(nr)*math.Cos(vw) + math.Cos(nr)*math.Sin(vw)*math.Cos(ir))

	// Project onto the ecliptic plane; planetary latitudes are small enough
	// that the longitude error stays within the theory's own tolerance.
	lonH := deg(math.Atan2(yh, xh))
	lonH += jupiterSaturnPerturbations(body, d)

	// Shift to geocentric by adding the Sun's rectangular position.
	lonHr := rad(lonH)
	dist := math.Sqrt(xh*xh + yh*yh)
	xg := dist*math.Cos(lonHr) + sunDist*math.Cos(rad(sunLon))
	yg := dist*math.Sin(lonHr) + sunDist*math.Sin(rad(sunLon))

	return normalize360(deg(math.Atan2(yg, xg))), nil
}

func jupiterSaturnPerturbations(body Body, d float64) float64 {
	mj := normalize360(19.8950 + 0.0830853001*d)
	ms := normalize360(316.9670 + 0.0334442282*d)

	switch body {
	case Jupiter:
		return -0.332*sind(2*mj-5*ms-67.6) -
			0.056*sind(2*mj-2*ms+21) +
			0.042*sind(3*mj-5*ms+21) -
			0.036*sind(mj-2*ms) +
			0.022*cosd(mj-ms) +
			0.023*sind(2*mj-3*ms+52) -
			0.016*sind(mj-5*ms-69)
	case Saturn:
		return 0.812*sind(2*mj-5*ms-67.6) -
			0.229*cosd(2*mj-4*ms-2) +
			0.119*sind(mj-2*ms-3) +
			0.046*sind(2*mj-6*ms-69) +
			0.014*sind(mj-3*ms+32)
	default:
		return 0
	}
}

// meanNodeLongitude is the mean ascending node of the lunar orbit (Rahu).
func meanNodeLongitude(jd float64) float64 {
	t := julianCenturies(jd)
	return normalize360(125.0445479 - 1934.1362891*t)
}

// trueNodeLongitude is the osculating ascending node (Ketu's model): the
// mean node plus the periodic libration terms.
func trueNodeLongitude(jd float64) float64 {
	t := julianCenturies(jd)

	dd := 297.8501921 + 445267.1114034*t  // mean elongation of the Moon
	m := 357.5291092 + 35999.0502909*t    // Sun mean anomaly
	mp := 134.9633964 + 477198.8675055*t  // Moon mean anomaly
	f := 93.2720950 + 483202.0175233*t    // Moon argument of latitude

	node := meanNodeLongitude(jd)
	node += -1.4979 * sind(2*(dd-f))
	node += -0.1500 * sind(m)
	node += -0.1226 * sind(2*dd)
	node += 0.1176 * sind(2*f)
	node += -0.0801 * sind(2*(mp-f))
	return normalize360(node)
}

const maxKeplerIterations = 30

// solveKepler finds the eccentric anomaly (degrees) for mean anomaly m
// (degrees) and eccentricity e by Newton iteration.
func solveKepler(m, e float64) (float64, error) {
	mr := rad(m)
	ec := mr + e*math.Sin(mr)*(1+e*math.Cos(mr))
	for i := 0; i < maxKeplerIterations; i++ {
		delta := (ec - e*math.Sin(ec) - mr) / (1 - e*math.Cos(ec))
		ec -= delta
		if math.Abs(delta) < 1e-9 {
			return deg(ec), nil
		}
	}
	return 0, apperrors.Wrap(apperrors.CodeEphemerisError,
		fmt.Sprintf("kepler equation did not converge (M=%.4f e=%.6f)", m, e), nil)
}

func julianCenturies(jd float64) float64 {
	return (jd - 2451545.0) / 36525.0
}

func round4(v float64) float64 {
	return math.Round(normalize360(v)*1e4) / 1e4
}

func normalize360(d float64) float64 {
	d = math.Mod(d, 360)
	if d < 0 {
		d += 360
	}
	return d
}

func rad(d float64) float64 { return d * math.Pi / 180 }

func deg(r float64) float64 { return r * 180 / math.Pi }

func sind(d float64) float64 { return math.Sin(rad(d)) }

func cosd(d float64) float64 { return math.Cos(rad(d)) }

func tand(d float64) float64 { return math.Tan(rad(d)) }
