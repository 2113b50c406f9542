package sky

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var epoch = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func minutes(start, end int) Window {
	return Window{
		Start: epoch.Add(time.Duration(start) * time.Minute),
		End:   epoch.Add(time.Duration(end) * time.Minute),
	}
}

func TestOverlap(t *testing.T) {
	tests := []struct {
		name   string
		a, b   Window
		want   Window
		wantOK bool
	}{
		{"disjoint", minutes(0, 60), minutes(70, 90), Window{}, false},
		{"touching boundary", minutes(0, 60), minutes(60, 90), Window{}, false},
		{"containment", minutes(0, 60), minutes(20, 40), minutes(20, 40), true},
		{"partial", minutes(0, 60), minutes(30, 90), minutes(30, 60), true},
		{"identical", minutes(10, 20), minutes(10, 20), minutes(10, 20), true},
		{"same start", minutes(0, 60), minutes(0, 30), minutes(0, 30), true},
		{"absent a", Window{}, minutes(0, 60), Window{}, false},
		{"half-absent b", minutes(0, 60), Window{Start: epoch}, Window{}, false},
		{"inverted", minutes(60, 0), minutes(0, 60), Window{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Overlap(tt.a, tt.b)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)

			swapped, swappedOK := Overlap(tt.b, tt.a)
			assert.Equal(t, ok, swappedOK, "overlap must be symmetric")
			assert.Equal(t, got, swapped, "overlap must be symmetric")
		})
	}
}

func TestOverlapSymmetryGrid(t *testing.T) {
	for s1 := 0; s1 < 6; s1++ {
		for e1 := s1 + 1; e1 <= 6; e1++ {
			for s2 := 0; s2 < 6; s2++ {
				for e2 := s2 + 1; e2 <= 6; e2++ {
					a, b := minutes(s1*10, e1*10), minutes(s2*10, e2*10)
					ab, okAB := Overlap(a, b)
					ba, okBA := Overlap(b, a)
					if okAB != okBA || ab != ba {
						t.Fatalf("asymmetric overlap for %v and %v", a, b)
					}
					if okAB && ab.Duration() <= 0 {
						t.Fatalf("overlap of %v and %v has no length", a, b)
					}
				}
			}
		}
	}
}

func TestOverlapTimes(t *testing.T) {
	start, end, ok := OverlapTimes(epoch, epoch.Add(time.Hour), epoch.Add(20*time.Minute), epoch.Add(40*time.Minute))
	assert.True(t, ok)
	assert.Equal(t, epoch.Add(20*time.Minute), start)
	assert.Equal(t, epoch.Add(40*time.Minute), end)

	_, _, ok = OverlapTimes(time.Time{}, epoch, epoch, epoch.Add(time.Hour))
	assert.False(t, ok)
}

func TestWindowHelpers(t *testing.T) {
	w := minutes(0, 60)
	assert.True(t, w.Contains(epoch))
	assert.False(t, w.Contains(epoch.Add(time.Hour)))
	assert.Equal(t, time.Hour, w.Duration())
	assert.Equal(t, minutes(60, 120), w.Shift(time.Hour))
	assert.True(t, Window{}.Shift(time.Hour).IsZero())
	assert.Zero(t, Window{}.Duration())
}
