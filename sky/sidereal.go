package sky

import (
	"math"
	"time"
)

const (
	// unixEpochJD is the Julian date of 1970-01-01T00:00:00Z.
	unixEpochJD = 2440587.5
	// j2000 is the Julian date of the J2000.0 epoch.
	j2000 = 2451545.0

	// SiderealRate is sidereal seconds per solar second.
	SiderealRate = 1.00273790935

	degreesPerHour = 15.0
)

// SiderealDay is one rotation of the Earth relative to the stars.
const SiderealDay = 23*time.Hour + 56*time.Minute + 4091*time.Millisecond

// JulianDate returns the Julian date of t.
func JulianDate(t time.Time) float64 {
	return float64(t.UnixNano())/float64(24*time.Hour) + unixEpochJD
}

// GMST returns Greenwich mean sidereal time at t, in degrees [0, 360).
func GMST(t time.Time) float64 {
	d := JulianDate(t) - j2000
	hours := 18.697374558 + 24.06570982441908*d
	return normalizeDegrees(hours * degreesPerHour)
}

// LMST returns local mean sidereal time at t for loc, in degrees [0, 360).
func LMST(loc Location, t time.Time) float64 {
	return normalizeDegrees(GMST(t) + loc.Longitude)
}

// CurrentSiderealTime returns LMST for now truncated to the minute.
func CurrentSiderealTime(loc Location, now time.Time) float64 {
	return LMST(loc, now.UTC().Truncate(time.Minute))
}

// TransitTime returns the instant, at minute resolution, at which right
// ascension ra (degrees) crosses the local meridian nearest to now. The hour
// angle offset is taken in [-12h, 12h) so a target that transited recently
// yields a time in the past.
func TransitTime(ra float64, loc Location, now time.Time) time.Time {
	base := now.UTC().Truncate(time.Minute)
	lst := LMST(loc, base)
	delta := signedDegrees(ra - lst)
	return base.Add(AngleToDuration(delta)).Round(time.Minute)
}

// AngleToDuration converts an hour angle in degrees to elapsed clock time.
func AngleToDuration(degrees float64) time.Duration {
	siderealHours := degrees / degreesPerHour
	return time.Duration(siderealHours / SiderealRate * float64(time.Hour))
}

// HoursToDegrees converts right ascension hours to degrees.
func HoursToDegrees(hours float64) float64 {
	return hours * degreesPerHour
}

// FormatHMS renders an angle in degrees as sexagesimal hours (RA style).
func FormatHMS(degrees float64) (h, m int, s float64) {
	total := normalizeDegrees(degrees) / degreesPerHour * 3600
	h = int(total / 3600)
	m = int(math.Mod(total, 3600) / 60)
	s = math.Mod(total, 60)
	return h, m, s
}

// normalizeDegrees maps an angle to [0, 360).
func normalizeDegrees(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

// signedDegrees maps an angle to [-180, 180).
func signedDegrees(deg float64) float64 {
	return normalizeDegrees(deg+180) - 180
}
