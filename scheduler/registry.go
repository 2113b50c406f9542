package scheduler

import (
	"sync"

	"github.com/Masterminds/semver/v3"

	"github.com/teranos/maestro/am"
	"github.com/teranos/maestro/errors"
)

// Metadata describes a registered type module.
type Metadata struct {
	Name        string
	Description string
	Author      string
	Version     string

	// MaestroVersion is a semver constraint ("^1.2", ">= 0.4") the running
	// binary must satisfy. Empty means any.
	MaestroVersion string

	Dir string
}

// Configurable is implemented by types that take constants from their
// module manifest's [settings] table.
type Configurable interface {
	Configure(settings map[string]interface{}) error
}

type entry struct {
	cfg    TypeConfig
	meta   Metadata
	active bool
}

// Registry holds the type configurations keyed by type tag. Iteration
// follows registration order, which is also the transition merge order.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	order   []string
	version string
}

// NewRegistry creates an empty registry. maestroVersion is the running
// semver, or "" for untagged builds, which skip constraint checks.
func NewRegistry(maestroVersion string) *Registry {
	return &Registry{
		entries: make(map[string]*entry),
		version: maestroVersion,
	}
}

// Register adds tc under tc.Name(), active. It fails on a duplicate tag or
// an unsatisfied version constraint.
func (r *Registry) Register(tc TypeConfig, meta Metadata) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := tc.Name()
	if name == "" {
		return errors.Wrap(errors.ErrInvalidRequest, "type configuration has no name")
	}
	if _, exists := r.entries[name]; exists {
		return errors.Newf("type already registered: %s", name)
	}
	if meta.Name == "" {
		meta.Name = name
	}
	if err := r.validateVersion(meta); err != nil {
		return errors.Wrapf(err, "version incompatible for %s", name)
	}

	r.entries[name] = &entry{cfg: tc, meta: meta, active: true}
	r.order = append(r.order, name)
	return nil
}

// Get returns the configuration registered for a type tag.
func (r *Registry) Get(name string) (TypeConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	return e.cfg, true
}

// Metadata returns the module metadata for a type tag.
func (r *Registry) Metadata(name string) (Metadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok {
		return Metadata{}, false
	}
	return e.meta, true
}

// Names lists every registered type tag in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// IsActive reports whether a registered type takes part in runs.
func (r *Registry) IsActive(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return ok && e.active
}

// SetActive switches a type on or off.
func (r *Registry) SetActive(name string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[name]
	if !ok {
		return errors.NewNotFoundError("type %s", name)
	}
	e.active = active
	return nil
}

// Active returns the active configurations in registration order.
func (r *Registry) Active() []TypeConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []TypeConfig
	for _, name := range r.order {
		if e := r.entries[name]; e.active {
			out = append(out, e.cfg)
		}
	}
	return out
}

// Snapshot returns the active configurations in registration order, each
// copied under the registry lock when it is a Snapshotter. Config reloads
// applied after the call do not reach the returned values.
func (r *Registry) Snapshot() []TypeConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []TypeConfig
	for _, name := range r.order {
		e := r.entries[name]
		if !e.active {
			continue
		}
		if s, ok := e.cfg.(Snapshotter); ok {
			out = append(out, s.Snapshot())
			continue
		}
		out = append(out, e.cfg)
	}
	return out
}

// ApplyConfig sets activation and tunables from the [types.<Name>] sections.
func (r *Registry) ApplyConfig(cfg *am.Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range r.order {
		e := r.entries[name]
		section := cfg.TypeTunables(name)
		e.active = section.Active
		if t, ok := e.cfg.(Tunable); ok {
			t.SetTunables(TunablesFrom(section))
		}
	}
}

// ApplyManifest overlays a module manifest on its registered type. The
// manifest's constraint is checked and its settings passed to Configurable
// types.
func (r *Registry) ApplyManifest(m Manifest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[m.Type]
	if !ok {
		return errors.WithHint(
			errors.NewNotFoundError("module %s configures unknown type %s", m.Name, m.Type),
			"set type in the manifest to a registered candidate type",
		)
	}
	meta := e.meta
	meta.Name = m.Name
	if m.Description != "" {
		meta.Description = m.Description
	}
	if m.Author != "" {
		meta.Author = m.Author
	}
	if m.Version != "" {
		meta.Version = m.Version
	}
	meta.MaestroVersion = m.MaestroVersion
	meta.Dir = m.Dir
	if err := r.validateVersion(meta); err != nil {
		return errors.Wrapf(err, "version incompatible for module %s", m.Name)
	}

	if c, ok := e.cfg.(Configurable); ok && len(m.Settings) > 0 {
		if err := c.Configure(m.Settings); err != nil {
			return errors.Wrapf(err, "configure %s from %s", m.Type, m.Dir)
		}
	}
	e.meta = meta
	return nil
}

// Transitions merges the transition models of the active types in
// registration order. names maps a type tag to its selected candidates.
func (r *Registry) Transitions(names map[string][]string) TransitionModel {
	return TransitionsOf(r.Active(), names)
}

// TransitionsOf merges the transition models of types in the given order.
func TransitionsOf(types []TypeConfig, names map[string][]string) TransitionModel {
	models := make([]TransitionModel, 0, len(types))
	for _, tc := range types {
		models = append(models, tc.GenerateTransitionDict(names[tc.Name()]))
	}
	return MergeTransitions(models...)
}

func (r *Registry) validateVersion(meta Metadata) error {
	if meta.MaestroVersion == "" || r.version == "" {
		return nil
	}

	running, err := semver.NewVersion(r.version)
	if err != nil {
		return errors.Wrapf(err, "invalid maestro version %s", r.version)
	}
	constraint, err := semver.NewConstraint(meta.MaestroVersion)
	if err != nil {
		return errors.Wrapf(err, "invalid version constraint %s", meta.MaestroVersion)
	}
	if !constraint.Check(running) {
		return errors.Newf("module requires maestro %s, but running %s", meta.MaestroVersion, r.version)
	}
	return nil
}
