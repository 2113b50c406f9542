package sky

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSunriseSunset_TMO(t *testing.T) {
	// Early afternoon local time at TMO.
	now := time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC)

	sunrise, sunset, ok := SunriseSunset(TMO, now, -10)
	require.True(t, ok)

	assert.True(t, sunrise.After(now), "sunrise %v should follow now", sunrise)
	assert.True(t, sunset.Before(sunrise), "sunset %v should precede sunrise %v", sunset, sunrise)
	assert.True(t, sunrise.Sub(now) < 24*time.Hour)

	night := sunrise.Sub(sunset)
	assert.True(t, night > 9*time.Hour && night < 13*time.Hour, "night length %v", night)

	// Pacific sunrise lands mid-afternoon UTC, the -10 degree sunset a
	// couple of hours after UTC midnight.
	assert.InDelta(t, 14, sunrise.Hour(), 1)
	assert.InDelta(t, 2, sunset.Hour(), 1)
}

func TestSunriseSunset_DuringNight(t *testing.T) {
	// 04:00 UTC is the middle of the TMO night; the bracketing sunset has
	// already happened.
	now := time.Date(2024, 3, 2, 4, 0, 0, 0, time.UTC)
	sunrise, sunset, ok := SunriseSunset(TMO, now, -10)
	require.True(t, ok)
	assert.True(t, sunset.Before(now))
	assert.True(t, sunrise.After(now))
}

func TestSunsetAltitudeDeepensSunset(t *testing.T) {
	day := time.Date(2024, 6, 21, 0, 0, 0, 0, time.UTC)
	standard, ok := Sunset(TMO, day, StandardSunAltitude)
	require.True(t, ok)
	dark, ok := Sunset(TMO, day, -10)
	require.True(t, ok)
	assert.True(t, dark.After(standard))
}

func TestNoSunriseAtPole(t *testing.T) {
	pole := Location{Name: "pole", Latitude: 89.9}
	_, ok := Sunrise(pole, time.Date(2024, 6, 21, 0, 0, 0, 0, time.UTC))
	assert.False(t, ok)
	_, ok = NightWindow(pole, time.Date(2024, 6, 21, 0, 0, 0, 0, time.UTC), -10)
	assert.False(t, ok)
}
