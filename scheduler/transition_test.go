package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMergeTransitions(t *testing.T) {
	t.Run("last registered wins", func(t *testing.T) {
		first := NewTransitionModel(5 * time.Minute)
		first.Set("A", "B", time.Minute)
		first.Set("A", "C", 2*time.Minute)

		second := NewTransitionModel(7 * time.Minute)
		second.Set("A", "B", 3*time.Minute)

		merged := MergeTransitions(first, second)
		assert.Equal(t, 3*time.Minute, merged.Downtime("A", "B"))
		assert.Equal(t, 2*time.Minute, merged.Downtime("A", "C"))
		assert.Equal(t, 7*time.Minute, merged.Downtime("X", "Y"))
		assert.Equal(t, 2, merged.Len())
	})

	t.Run("default falls back to zero", func(t *testing.T) {
		var m TransitionModel
		m.Set("A", "B", time.Minute)

		merged := MergeTransitions(m)
		assert.False(t, merged.HasDefault)
		assert.Equal(t, time.Duration(0), merged.Downtime("B", "A"))
		assert.Equal(t, time.Minute, merged.Downtime("A", "B"))
	})

	t.Run("no models", func(t *testing.T) {
		merged := MergeTransitions()
		assert.Equal(t, time.Duration(0), merged.Downtime("A", "B"))
		assert.Equal(t, 0, merged.Len())
	})

	t.Run("earlier default survives a model without one", func(t *testing.T) {
		var noDefault TransitionModel
		merged := MergeTransitions(NewTransitionModel(4*time.Minute), noDefault)
		assert.Equal(t, 4*time.Minute, merged.Downtime("A", "B"))
	})
}

func TestObservationTransitions(t *testing.T) {
	m := ObservationTransitions(3*time.Minute, []string{"2026 AB", "M31"})

	assert.Equal(t, 3*time.Minute, m.Downtime("2026 AB", "M31"))
	assert.Equal(t, time.Duration(0), m.Downtime(FocusTag, "M31"))
	assert.Equal(t, time.Duration(0), m.Downtime(UnusedTimeTag, "2026 AB"))
	assert.Equal(t, 3*time.Minute, m.Downtime("M31", FocusTag))

	assert.Equal(t, []TagPair{
		{From: FocusTag, To: "2026 AB"},
		{From: FocusTag, To: "M31"},
		{From: UnusedTimeTag, To: "2026 AB"},
		{From: UnusedTimeTag, To: "M31"},
	}, m.SortedPairs())
}
