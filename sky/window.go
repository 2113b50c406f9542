package sky

import "time"

// Window is a UTC interval [Start, End). The zero Window stands for "no
// window": not computable, or an empty intersection.
type Window struct {
	Start time.Time
	End   time.Time
}

// IsZero reports whether the window is absent. A window that does not end
// after it starts is treated as absent.
func (w Window) IsZero() bool {
	return w.Start.IsZero() || w.End.IsZero() || !w.End.After(w.Start)
}

// Duration is the window length, zero when absent.
func (w Window) Duration() time.Duration {
	if w.IsZero() {
		return 0
	}
	return w.End.Sub(w.Start)
}

// Contains reports whether t falls in [Start, End).
func (w Window) Contains(t time.Time) bool {
	return !w.IsZero() && !t.Before(w.Start) && t.Before(w.End)
}

// Shift moves both ends by d.
func (w Window) Shift(d time.Duration) Window {
	if w.IsZero() {
		return w
	}
	return Window{Start: w.Start.Add(d), End: w.End.Add(d)}
}

// Overlap intersects two windows. It is symmetric. ok is false when either
// window is absent, when they are disjoint, and when they only touch at a
// boundary. When one window contains the other the narrower one is returned.
func Overlap(a, b Window) (Window, bool) {
	if a.IsZero() || b.IsZero() {
		return Window{}, false
	}
	early, late := a, b
	if b.Start.Before(a.Start) {
		early, late = b, a
	}
	if !early.End.After(late.Start) {
		return Window{}, false
	}
	end := early.End
	if late.End.Before(end) {
		end = late.End
	}
	return Window{Start: late.Start, End: end}, true
}

// OverlapTimes is Overlap over raw bounds, for callers holding nullable
// columns. Any zero bound yields no overlap.
func OverlapTimes(startA, endA, startB, endB time.Time) (time.Time, time.Time, bool) {
	w, ok := Overlap(Window{Start: startA, End: endA}, Window{Start: startB, End: endB})
	return w.Start, w.End, ok
}
