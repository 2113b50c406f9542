// Package types holds the built-in candidate type configurations.
package types

import (
	"context"
	"time"

	"github.com/teranos/maestro/am"
	"github.com/teranos/maestro/candidate"
	"github.com/teranos/maestro/scheduler"
	"github.com/teranos/maestro/version"
)

var (
	_ scheduler.TypeConfig     = (*UserFixed)(nil)
	_ scheduler.Tunable        = (*UserFixed)(nil)
	_ scheduler.Snapshotter    = (*UserFixed)(nil)
	_ scheduler.TypeConfig     = (*Astrophotography)(nil)
	_ scheduler.Configurable   = (*Astrophotography)(nil)
	_ scheduler.Snapshotter    = (*Astrophotography)(nil)
	_ scheduler.TypeConfig     = (*TESS)(nil)
	_ scheduler.Tunable        = (*TESS)(nil)
	_ scheduler.Snapshotter    = (*TESS)(nil)
	_ scheduler.StoredWindowed = (*TESS)(nil)
)

// Builtins returns a fresh instance of every built-in type, in
// registration order.
func Builtins() []scheduler.TypeConfig {
	return []scheduler.TypeConfig{NewUserFixed(), NewAstrophotography(), NewTESS()}
}

// Register adds the built-in types to r.
func Register(r *scheduler.Registry) error {
	for _, tc := range Builtins() {
		meta := scheduler.Metadata{
			Name:    tc.Name(),
			Author:  "maestro",
			Version: version.Get().Version,
		}
		if d, ok := tc.(interface{ Description() string }); ok {
			meta.Description = d.Description()
		}
		if err := r.Register(tc, meta); err != nil {
			return err
		}
	}
	return nil
}

// base carries what the built-in types share: tunables, selection by type
// tag and the observation transition model.
type base struct {
	name string
	tun  scheduler.Tunables
}

func newBase(name string) base {
	return base{name: name, tun: scheduler.TunablesFrom(am.DefaultTypeConfig())}
}

func (b *base) Name() string { return b.name }

func (b *base) Tunables() scheduler.Tunables { return b.tun }

func (b *base) SetTunables(t scheduler.Tunables) { b.tun = t }

// minHours is the configured visibility threshold, never below floor.
func (b *base) minHours(floor float64) float64 { return maxFloat(b.tun.MinHoursVisible, floor) }

func (b *base) transitions(names []string) scheduler.TransitionModel {
	return scheduler.ObservationTransitions(b.tun.Downtime(), names)
}

func (b *base) selectFrom(ctx context.Context, store scheduler.CandidateSource, start, end time.Time, minHours float64) ([]*candidate.Candidate, error) {
	rows, err := store.CandidatesForTimeRange(ctx, start, end, minHours, b.name)
	if err != nil {
		return nil, err
	}
	out := make([]*candidate.Candidate, len(rows))
	for i := range rows {
		out[i] = &rows[i]
	}
	return out, nil
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
