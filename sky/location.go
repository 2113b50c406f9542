// Package sky computes where and when targets can be observed: sidereal
// time, meridian transits, sunrise and sunset, static observability windows
// from the telescope's horizon box, and intersections of time windows.
//
// Everything here is a pure function of its inputs. Callers pass "now"
// explicitly (usually from a Clock) so results are reproducible.
package sky

import (
	"time"

	"github.com/teranos/maestro/am"
)

// Location is an observatory site. Angles are degrees, east longitude positive.
type Location struct {
	Name      string
	Latitude  float64
	Longitude float64
	Elevation float64
}

// LocationFromConfig builds a Location from the [observatory] section.
func LocationFromConfig(c am.ObservatoryConfig) Location {
	return Location{
		Name:      c.Name,
		Latitude:  c.Latitude,
		Longitude: c.Longitude,
		Elevation: c.Elevation,
	}
}

// TMO is the default site.
var TMO = Location{
	Name:      am.DefaultObservatoryName,
	Latitude:  am.DefaultLatitude,
	Longitude: am.DefaultLongitude,
	Elevation: am.DefaultElevation,
}

// Clock returns the current instant. Tests substitute a fixed clock.
type Clock func() time.Time

// SystemClock is the wall clock in UTC.
func SystemClock() time.Time {
	return time.Now().UTC()
}

// FixedClock returns a Clock that always reports t.
func FixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}
