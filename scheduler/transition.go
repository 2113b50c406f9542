package scheduler

import (
	"sort"
	"time"
)

// TagPair is an ordered (previous, next) pair of block tags.
type TagPair struct {
	From string
	To   string
}

// TransitionModel maps tag pairs to the minimum idle time between them.
// Default applies to pairs without an entry.
type TransitionModel struct {
	Default    time.Duration
	HasDefault bool
	Pairs      map[TagPair]time.Duration
}

// NewTransitionModel creates a model with the given default.
func NewTransitionModel(def time.Duration) TransitionModel {
	return TransitionModel{Default: def, HasDefault: true, Pairs: make(map[TagPair]time.Duration)}
}

// Set records the downtime between from and to.
func (m *TransitionModel) Set(from, to string, d time.Duration) {
	if m.Pairs == nil {
		m.Pairs = make(map[TagPair]time.Duration)
	}
	m.Pairs[TagPair{From: from, To: to}] = d
}

// Downtime returns the required gap when a block tagged to follows one
// tagged from.
func (m TransitionModel) Downtime(from, to string) time.Duration {
	if d, ok := m.Pairs[TagPair{From: from, To: to}]; ok {
		return d
	}
	if m.HasDefault {
		return m.Default
	}
	return 0
}

// Len is the number of explicit pairs.
func (m TransitionModel) Len() int { return len(m.Pairs) }

// MergeTransitions combines models in registration order. On a key
// collision the later model wins, including for the default; with no
// default anywhere the merged default is zero.
func MergeTransitions(models ...TransitionModel) TransitionModel {
	merged := TransitionModel{Pairs: make(map[TagPair]time.Duration)}
	for _, m := range models {
		if m.HasDefault {
			merged.Default = m.Default
			merged.HasDefault = true
		}
		for k, v := range m.Pairs {
			merged.Pairs[k] = v
		}
	}
	return merged
}

// SortedPairs lists the explicit entries ordered by from then to.
func (m TransitionModel) SortedPairs() []TagPair {
	pairs := make([]TagPair, 0, len(m.Pairs))
	for k := range m.Pairs {
		pairs = append(pairs, k)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].From != pairs[j].From {
			return pairs[i].From < pairs[j].From
		}
		return pairs[i].To < pairs[j].To
	})
	return pairs
}

// ObservationTransitions is the model both built-in types use: default
// downtime after an observation and none after a focus loop or idle time.
func ObservationTransitions(downtime time.Duration, names []string) TransitionModel {
	m := NewTransitionModel(downtime)
	for _, name := range names {
		m.Set(FocusTag, name, 0)
		m.Set(UnusedTimeTag, name, 0)
	}
	return m
}
