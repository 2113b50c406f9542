package sky

import (
	"math"
	"time"
)

// StandardSunAltitude is the geometric altitude of the sun's center at
// apparent sunrise or sunset (refraction plus solar radius).
const StandardSunAltitude = -0.833

const obliquity = 23.4397

// solarTransit returns the Julian date of solar noon for the solar day that
// contains date, along with the sun's declination then.
func solarTransit(loc Location, date time.Time) (jTransit, declination float64) {
	midnight := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	n := math.Ceil(JulianDate(midnight) - j2000 + 0.0008)
	jStar := n - loc.Longitude/360

	m := normalizeDegrees(357.5291 + 0.98560028*jStar)
	mr := radians(m)
	c := 1.9148*math.Sin(mr) + 0.0200*math.Sin(2*mr) + 0.0003*math.Sin(3*mr)
	lambda := normalizeDegrees(m + c + 180 + 102.9372)
	lr := radians(lambda)

	jTransit = j2000 + jStar + 0.0053*math.Sin(mr) - 0.0069*math.Sin(2*lr)
	declination = degrees(math.Asin(math.Sin(lr) * math.Sin(radians(obliquity))))
	return jTransit, declination
}

// sunEvent returns the rising or setting time of the sun through altitude
// (degrees) on the solar day containing date. ok is false when the sun never
// crosses that altitude (polar day or night).
func sunEvent(loc Location, date time.Time, altitude float64, rising bool) (time.Time, bool) {
	jTransit, dec := solarTransit(loc, date)
	lat := radians(loc.Latitude)
	d := radians(dec)

	cosW := (math.Sin(radians(altitude)) - math.Sin(lat)*math.Sin(d)) / (math.Cos(lat) * math.Cos(d))
	if cosW < -1 || cosW > 1 {
		return time.Time{}, false
	}
	w := degrees(math.Acos(cosW)) / 360
	if rising {
		return julianToTime(jTransit - w), true
	}
	return julianToTime(jTransit + w), true
}

// Sunrise returns the standard sunrise on the solar day containing date.
func Sunrise(loc Location, date time.Time) (time.Time, bool) {
	return sunEvent(loc, date, StandardSunAltitude, true)
}

// Sunset returns the moment the sun sinks to altitude on the solar day
// containing date.
func Sunset(loc Location, date time.Time, altitude float64) (time.Time, bool) {
	return sunEvent(loc, date, altitude, false)
}

// SunriseSunset returns the sunrise and sunset bracketing the night that is
// upcoming or in progress at now: sunrise is the next one after now, sunset
// is the last one before that sunrise. Sunset is taken at sunsetAltitude.
func SunriseSunset(loc Location, now time.Time, sunsetAltitude float64) (sunrise, sunset time.Time, ok bool) {
	now = now.UTC()
	day := now
	sunrise, ok = Sunrise(loc, day)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	if sunrise.Before(now) {
		day = day.AddDate(0, 0, 1)
		if sunrise, ok = Sunrise(loc, day); !ok {
			return time.Time{}, time.Time{}, false
		}
	}

	sunset, ok = Sunset(loc, day, sunsetAltitude)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	if sunset.After(sunrise) {
		if sunset, ok = Sunset(loc, day.AddDate(0, 0, -1), sunsetAltitude); !ok {
			return time.Time{}, time.Time{}, false
		}
	}
	return sunrise.Truncate(time.Second), sunset.Truncate(time.Second), true
}

// NightWindow is the dark-sky window [sunset, sunrise] for the night at now.
func NightWindow(loc Location, now time.Time, sunsetAltitude float64) (Window, bool) {
	sunrise, sunset, ok := SunriseSunset(loc, now, sunsetAltitude)
	if !ok {
		return Window{}, false
	}
	return Window{Start: sunset, End: sunrise}, true
}

func julianToTime(jd float64) time.Time {
	nanos := (jd - unixEpochJD) * float64(24*time.Hour)
	return time.Unix(0, int64(nanos)).UTC()
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
func degrees(rad float64) float64 { return rad * 180 / math.Pi }
