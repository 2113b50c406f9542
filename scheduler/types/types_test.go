package types

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/maestro/am"
	"github.com/teranos/maestro/candidate"
	"github.com/teranos/maestro/errors"
	"github.com/teranos/maestro/scheduler"
	"github.com/teranos/maestro/sky"
)

var slotStart = time.Date(2026, 10, 15, 4, 0, 0, 0, time.UTC)

// stubSource records the query it was asked.
type stubSource struct {
	minHours float64
	ctype    string
	rows     []candidate.Candidate
	err      error
}

func (s *stubSource) CandidatesForTimeRange(_ context.Context, _, _ time.Time, minHours float64, ctype string) ([]candidate.Candidate, error) {
	s.minHours, s.ctype = minHours, ctype
	return s.rows, s.err
}

func fixedTarget() *candidate.Candidate {
	return &candidate.Candidate{
		ID:            9,
		CandidateName: "2026 TX1",
		CandidateType: UserFixedName,
		RA:            candidate.Float(150),
		Dec:           candidate.Float(20),
		NumExposures:  10,
		ExposureTime:  30,
		Filter:        "CLEAR",
		Guide:         false,
	}
}

func TestUserFixed(t *testing.T) {
	u := NewUserFixed()
	c := fixedTarget()

	assert.Equal(t, UserFixedName, u.Name())
	assert.Equal(t, 5*time.Minute, u.BlockDuration(c))
	assert.Equal(t, time.Second, u.BlockDuration(&candidate.Candidate{}))

	tun := u.Tunables()
	tun.Bin2Fits = true
	u.SetTunables(tun)

	lines := u.GenerateSchedulerLine(scheduler.Slot{Start: slotStart, Duration: 5 * time.Minute}, c.CandidateName, c)
	require.Len(t, lines, 1)
	l := lines[0]
	assert.Equal(t, "2026_TX1_CLEAR_user_fixed", l.Target)
	assert.Equal(t, "2026 TX1: 30s by 10, CLEAR", l.Description)
	assert.Equal(t, slotStart, l.Start)
	assert.True(t, l.Move)
	assert.False(t, l.Guiding)
	assert.True(t, l.Bin2Fits)
	require.NotNil(t, l.CandidateID)
	assert.Equal(t, int64(9), *l.CandidateID)

	row := []float64{1, 0, 1}
	assert.Equal(t, row, u.ScoreRepeatObs(c, row, 1, slotStart))
}

func TestUserFixedSelect(t *testing.T) {
	u := NewUserFixed()
	src := &stubSource{rows: []candidate.Candidate{*fixedTarget(), *fixedTarget()}}
	src.rows[1].ID = 10

	got, err := u.SelectCandidates(context.Background(), slotStart, slotStart.Add(time.Hour), src)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(10), got[1].ID)
	assert.Equal(t, UserFixedName, src.ctype)
	assert.Equal(t, 0.1, src.minHours)

	t.Run("configured threshold raises the floor", func(t *testing.T) {
		tun := scheduler.TunablesFrom(am.TypeConfig{MinHoursVisible: 2})
		u.SetTunables(tun)
		_, err := u.SelectCandidates(context.Background(), slotStart, slotStart.Add(time.Hour), src)
		require.NoError(t, err)
		assert.Equal(t, 2.0, src.minHours)
	})

	t.Run("store error", func(t *testing.T) {
		src.err = errors.MarkTransient(errors.New("database is locked"))
		_, err := u.SelectCandidates(context.Background(), slotStart, slotStart.Add(time.Hour), src)
		assert.True(t, errors.IsTransient(err))
	})
}

func TestAstrophotography(t *testing.T) {
	a := NewAstrophotography()
	c := fixedTarget()
	c.CandidateName = "M31"

	// 3 datasets of 10 x 30 s with two 2 minute gaps.
	assert.Equal(t, 19*time.Minute, a.BlockDuration(c))

	lines := a.GenerateSchedulerLine(scheduler.Slot{Start: slotStart}, "M31", c)
	require.Len(t, lines, 3)
	for i, filter := range []string{"g", "i", "r"} {
		l := lines[i]
		assert.Equal(t, filter, l.Filter)
		assert.Equal(t, "M31_"+filter+"_aphot", l.Target)
		assert.Equal(t, "M31: 30s by 10, "+filter, l.Description)
		assert.Equal(t, slotStart.Add(time.Duration(i)*7*time.Minute), l.Start)
		assert.Equal(t, i == 0, l.Move)
		assert.True(t, l.Guiding)
	}

	src := &stubSource{}
	_, err := a.SelectCandidates(context.Background(), slotStart, slotStart.Add(time.Hour), src)
	require.NoError(t, err)
	assert.Equal(t, 1.0, src.minHours)
	assert.Equal(t, AstrophotographyName, src.ctype)
}

func TestAstrophotographyConfigure(t *testing.T) {
	a := NewAstrophotography()

	require.NoError(t, a.Configure(map[string]interface{}{
		"minutes_between_datasets":   int64(1),
		"individual_dataset_exptime": 60.0,
		"individual_dataset_numexp":  int64(5),
		"unrelated":                  int64(0),
	}))
	assert.Equal(t, DatasetSettings{MinutesBetweenDatasets: 1, ExposureTime: 60, NumExposures: 5}, a.Datasets)
	assert.Equal(t, 17*time.Minute, a.BlockDuration(nil))

	err := a.Configure(map[string]interface{}{"individual_dataset_numexp": "many"})
	assert.True(t, errors.IsInvalidRequestError(err))

	err = a.Configure(map[string]interface{}{"individual_dataset_exptime": 0.0})
	assert.True(t, errors.IsInvalidRequestError(err))
	assert.Equal(t, 60.0, a.Datasets.ExposureTime)
}

func TestTESS(t *testing.T) {
	tess := NewTESS()
	c := fixedTarget()
	c.CandidateName = "TOI 1234.01"
	c.CandidateType = TESSName
	c.Filter = "r"
	c.Guide = true

	assert.Equal(t, TESSName, tess.Name())
	assert.True(t, tess.StoredWindows())
	assert.Equal(t, 5*time.Minute, tess.BlockDuration(c))

	tun := tess.Tunables()
	tun.Bin2Fits = true
	tess.SetTunables(tun)

	lines := tess.GenerateSchedulerLine(scheduler.Slot{Start: slotStart}, c.CandidateName, c)
	require.Len(t, lines, 1)
	assert.Equal(t, "TOI_1234.01_r_TESS", lines[0].Target)
	assert.Equal(t, "TOI 1234.01: 30s by 10, r", lines[0].Description)
	assert.True(t, lines[0].Move)
	assert.True(t, lines[0].Guiding)
	assert.True(t, lines[0].Bin2Fits)

	t.Run("frame count fills the stored window", func(t *testing.T) {
		c := fixedTarget()
		c.NumExposures = -1
		c.ExposureTime = 45
		c.SetWindow(sky.Window{Start: slotStart, End: slotStart.Add(100 * time.Minute)})
		// ceil(6000 s / 45 s) frames
		assert.Equal(t, 134*45*time.Second, tess.BlockDuration(c))
		assert.Equal(t, 134, tess.GenerateSchedulerLine(scheduler.Slot{Start: slotStart}, "TIC 1", c)[0].NumExposures)
	})

	src := &stubSource{}
	_, err := tess.SelectCandidates(context.Background(), slotStart, slotStart.Add(time.Hour), src)
	require.NoError(t, err)
	assert.Equal(t, 0.1, src.minHours)
	assert.Equal(t, TESSName, src.ctype)
}

func TestSnapshotIsolatesReloads(t *testing.T) {
	r := scheduler.NewRegistry("")
	require.NoError(t, Register(r))

	cfg := am.Default()
	cfg.Types = map[string]am.TypeConfig{UserFixedName: {Active: true, NumObs: 2}}
	r.ApplyConfig(cfg)

	snap := r.Snapshot()
	require.Len(t, snap, 3)

	cfg.Types[UserFixedName] = am.TypeConfig{Active: true, NumObs: 5}
	r.ApplyConfig(cfg)
	require.NoError(t, r.ApplyManifest(scheduler.Manifest{
		Name:     "aphot",
		Type:     AstrophotographyName,
		Settings: map[string]interface{}{"individual_dataset_numexp": int64(3)},
	}))

	assert.Equal(t, 2, snap[0].(*UserFixed).Tunables().NumObs)
	assert.Equal(t, 10, snap[1].(*Astrophotography).Datasets.NumExposures)

	live, ok := r.Get(UserFixedName)
	require.True(t, ok)
	assert.Equal(t, 5, live.(*UserFixed).Tunables().NumObs)
	assert.NotSame(t, live, snap[0])
}

func TestRegister(t *testing.T) {
	r := scheduler.NewRegistry("")
	require.NoError(t, Register(r))
	assert.Equal(t, []string{UserFixedName, AstrophotographyName, TESSName}, r.Names())

	meta, ok := r.Metadata(AstrophotographyName)
	require.True(t, ok)
	assert.NotEmpty(t, meta.Description)
	assert.Equal(t, "maestro", meta.Author)

	m := r.Transitions(map[string][]string{UserFixedName: {"2026 TX1"}})
	assert.Equal(t, time.Duration(0), m.Downtime(scheduler.FocusTag, "2026 TX1"))

	assert.Error(t, Register(r))
}
