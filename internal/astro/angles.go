// Package astro provides the angle arithmetic shared by the search core:
// normalization to [0,360), signed shortest-arc differences, and the
// degree-minute-second formatting used in reports.
package astro

import (
	"fmt"
	"math"
)

// Normalize maps any angle in degrees onto [0, 360).
func Normalize(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

// ShortestDiff returns the signed shortest arc from b to a in degrees.
// The result is always in (-180, +180]: an exact half-turn reads as +180,
// never -180, so callers get a single deterministic value at the branch cut.
func ShortestDiff(a, b float64) float64 {
	d := Normalize(a - b)
	if d > 180 {
		d -= 360
	}
	return d
}

// FormatDMS renders an angle as a degree-arcminute-arcsecond string,
// e.g. 123°45′06.7″. Negative angles carry a leading minus.
func FormatDMS(deg float64) string {
	sign := ""
	if deg < 0 {
		sign = "-"
		deg = -deg
	}

	d := math.Floor(deg)
	remMin := (deg - d) * 60
	m := math.Floor(remMin)
	s := (remMin - m) * 60

	// Carry rounding so 59.95″ does not print as 60.0″.
	if s >= 59.95 {
		s = 0
		m++
	}
	if m >= 60 {
		m = 0
		d++
	}

	return fmt.Sprintf("%s%3d°%02d′%04.1f″", sign, int(d), int(m), s)
}
