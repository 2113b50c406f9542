package sky

import (
	"time"

	"github.com/teranos/maestro/am"
)

// Observer bundles a site with its horizon box and the sun altitude that
// opens the night.
type Observer struct {
	Location       Location
	Box            *HorizonBox
	SunsetAltitude float64
}

// NewObserver builds an Observer from the [observatory] section.
func NewObserver(c am.ObservatoryConfig) (*Observer, error) {
	box, err := LoadHorizonBox(c.HorizonBox)
	if err != nil {
		return nil, err
	}
	return &Observer{
		Location:       LocationFromConfig(c),
		Box:            box,
		SunsetAltitude: c.SunsetAltitude,
	}, nil
}

// Night returns the dark window for the night at now.
func (o *Observer) Night(now time.Time) (Window, bool) {
	return NightWindow(o.Location, now, o.SunsetAltitude)
}

// TargetWindow is the static window for a target intersected with night.
func (o *Observer) TargetWindow(ra, dec float64, night Window, now time.Time) (Window, bool) {
	return Overlap(o.Box.StaticWindow(ra, dec, o.Location, now), night)
}
