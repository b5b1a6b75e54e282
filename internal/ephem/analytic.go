package ephem

import (
	"context"
	"fmt"
	"math"
	"time"

	"lonwatch/internal/astro"
)

// Analytic computes longitudes from truncated Astronomical Almanac / Meeus
// series. No I/O, no state; good to roughly 0.01° for the sun and a few
// hundredths of a degree for the moon, which is well inside the default
// 0.01°-tolerance searches once both baseline and candidate come from the
// same model.
type Analytic struct{}

// NewAnalytic constructs the built-in provider.
func NewAnalytic() *Analytic {
	return &Analytic{}
}

// Name implements Provider.
func (a *Analytic) Name() string {
	return "analytic"
}

// Supported span of the truncated series. Outside it the polynomial terms
// drift far past the advertised accuracy.
var (
	analyticMin = time.Date(1000, time.January, 1, 0, 0, 0, 0, time.UTC)
	analyticMax = time.Date(3000, time.January, 1, 0, 0, 0, 0, time.UTC)
)

// EclipticLongitude implements Provider.
func (a *Analytic) EclipticLongitude(ctx context.Context, body Body, t time.Time) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if t.Before(analyticMin) || t.After(analyticMax) {
		return 0, fmt.Errorf("%w: %s", ErrOutOfRange, t.UTC().Format(time.RFC3339))
	}

	T := julianCenturies(t)
	switch body {
	case Sun:
		return sunLongitude(T), nil
	case Moon:
		return moonLongitude(T), nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownBody, body)
	}
}

// sunLongitude returns the apparent solar ecliptic longitude in degrees.
// Mean longitude plus equation of center, corrected for aberration and the
// principal nutation term.
func sunLongitude(T float64) float64 {
	// Mean longitude and mean anomaly (degrees).
	L0 := astro.Normalize(280.46646 + 36000.76983*T + 0.0003032*T*T)
	M := astro.Normalize(357.52911 + 35999.05029*T - 0.0001537*T*T)
	Mrad := degToRad(M)

	// Equation of center (degrees).
	C := (1.914602-0.004817*T-0.000014*T*T)*math.Sin(Mrad) +
		(0.019993-0.000101*T)*math.Sin(2*Mrad) +
		0.000289*math.Sin(3*Mrad)

	// Aberration and nutation in longitude.
	omega := degToRad(125.04 - 1934.136*T)
	lon := L0 + C - 0.00569 - 0.00478*math.Sin(omega)

	return astro.Normalize(lon)
}

// moonLongitude returns the apparent lunar ecliptic longitude in degrees,
// from the mean longitude plus the principal periodic terms of the truncated
// lunar theory (largest sixteen longitude terms).
func moonLongitude(T float64) float64 {
	// Fundamental arguments (degrees).
	Lp := 218.3164477 + 481267.88123421*T - 0.0015786*T*T + T*T*T/538841 - T*T*T*T/65194000
	D := degToRad(astro.Normalize(297.8501921 + 445267.1114034*T - 0.0018819*T*T + T*T*T/545868 - T*T*T*T/113065000))
	M := degToRad(astro.Normalize(357.5291092 + 35999.0502909*T - 0.0001536*T*T + T*T*T/24490000))
	Mp := degToRad(astro.Normalize(134.9633964 + 477198.8675055*T + 0.0087414*T*T + T*T*T/69699 - T*T*T*T/14712000))
	F := degToRad(astro.Normalize(93.2720950 + 483202.0175233*T - 0.0036539*T*T - T*T*T/3526000 + T*T*T*T/863310000))

	sum := 6.288774*math.Sin(Mp) +
		1.274027*math.Sin(2*D-Mp) +
		0.658314*math.Sin(2*D) +
		0.213618*math.Sin(2*Mp) -
		0.185116*math.Sin(M) -
		0.114332*math.Sin(2*F) +
		0.058793*math.Sin(2*D-2*Mp) +
		0.057066*math.Sin(2*D-M-Mp) +
		0.053322*math.Sin(2*D+Mp) +
		0.045758*math.Sin(2*D-M) -
		0.040923*math.Sin(M-Mp) -
		0.034720*math.Sin(D) -
		0.030383*math.Sin(M+Mp) +
		0.015327*math.Sin(2*D-2*F) -
		0.012528*math.Sin(Mp+2*F) +
		0.010980*math.Sin(Mp-2*F)

	// Principal nutation term, same as the solar series.
	omega := degToRad(125.04 - 1934.136*T)
	lon := Lp + sum - 0.00478*math.Sin(omega)

	return astro.Normalize(lon)
}

// julianCenturies returns Julian centuries since J2000.0 for a time.
func julianCenturies(t time.Time) float64 {
	return (julianDate(t) - 2451545.0) / 36525.0
}

// julianDate calculates the Julian Date for a given time.
func julianDate(t time.Time) float64 {
	t = t.UTC()

	y := float64(t.Year())
	m := float64(t.Month())
	d := float64(t.Day())

	h := float64(t.Hour())
	min := float64(t.Minute())
	sec := float64(t.Second())
	ns := float64(t.Nanosecond())

	dayFrac := (h + min/60 + sec/3600 + ns/3600e9) / 24.0

	// Treat January/February as months 13/14 of the previous year.
	if m <= 2 {
		y--
		m += 12
	}

	A := math.Floor(y / 100)
	B := 2 - A + math.Floor(A/4)

	return math.Floor(365.25*(y+4716)) +
		math.Floor(30.6001*(m+1)) +
		d + dayFrac + B - 1524.5
}

func degToRad(deg float64) float64 {
	return deg * math.Pi / 180
}

var _ Provider = (*Analytic)(nil)
