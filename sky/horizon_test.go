package sky

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/maestro/am"
)

func TestParseHorizonBox(t *testing.T) {
	data := []byte(`
// two bands
[
  [0, 30], [-60, 60],
  [-30, 0], [-45, 45], // southern band
]`)
	box, err := ParseHorizonBox(data, 5)
	require.NoError(t, err)
	require.Len(t, box.Bands, 2)
	assert.Equal(t, -30.0, box.Bands[0].DecMin, "bands are sorted by declination")

	min, max, ok := box.HourAngleLimits(10)
	require.True(t, ok)
	assert.Equal(t, -55.0, min)
	assert.Equal(t, 55.0, max)

	_, _, ok = box.HourAngleLimits(-30)
	assert.False(t, ok, "lower bound is exclusive")
	_, max, ok = box.HourAngleLimits(0)
	require.True(t, ok, "upper bound is inclusive")
	assert.Equal(t, 40.0, max)

	_, _, ok = box.HourAngleLimits(45)
	assert.False(t, ok)

	flipped := box.Flipped()
	min, max, _ = flipped.HourAngleLimits(10)
	assert.Equal(t, -55.0, min)
	assert.Equal(t, 55.0, max)
}

func TestParseHorizonBox_Errors(t *testing.T) {
	_, err := ParseHorizonBox([]byte(`[[0, 10]]`), 0)
	assert.Error(t, err)
	_, err = ParseHorizonBox([]byte(`[[10, 0], [-1, 1]]`), 0)
	assert.Error(t, err)
	_, err = ParseHorizonBox([]byte(`not json`), 0)
	assert.Error(t, err)
}

func TestLoadHorizonBox(t *testing.T) {
	box, err := LoadHorizonBox("")
	require.NoError(t, err)
	assert.NotEmpty(t, box.Bands)

	path := filepath.Join(t.TempDir(), "box.json")
	require.NoError(t, os.WriteFile(path, []byte(`[[-90, 90], [-15, 15]]`), 0644))
	box, err = LoadHorizonBox(path)
	require.NoError(t, err)
	require.Len(t, box.Bands, 1)

	_, err = LoadHorizonBox(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestStaticWindow(t *testing.T) {
	box := DefaultHorizonBox()
	now := time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC)
	lst := CurrentSiderealTime(TMO, now)

	t.Run("target on the meridian straddles now", func(t *testing.T) {
		w := box.StaticWindow(lst, 10, TMO, now)
		require.False(t, w.IsZero())
		assert.True(t, w.Contains(now))
		assert.Equal(t, TransitTime(lst, TMO, now), w.Start.Add(w.Duration()/2).Round(time.Minute))
	})

	t.Run("window wholly in the past moves a sidereal day ahead", func(t *testing.T) {
		// Transited ~10h ago, with a +/-5h band: ends before now.
		w := box.StaticWindow(lst-150, 10, TMO, now)
		require.False(t, w.IsZero())
		assert.True(t, w.End.After(now))
		assert.True(t, w.Start.After(now))
	})

	t.Run("unreachable declination has no window", func(t *testing.T) {
		assert.True(t, box.StaticWindow(lst, -80, TMO, now).IsZero())
	})
}

func TestObserver(t *testing.T) {
	cfg := am.Default().Observatory
	obs, err := NewObserver(cfg)
	require.NoError(t, err)
	assert.Equal(t, TMO, obs.Location)

	now := time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC)
	night, ok := obs.Night(now)
	require.True(t, ok)

	// A target transiting mid-night is observable for part of the night.
	mid := night.Start.Add(night.Duration() / 2)
	ra := CurrentSiderealTime(TMO, mid)
	w, ok := obs.TargetWindow(ra, 20, night, now)
	require.True(t, ok)
	assert.True(t, w.Contains(mid))
}
