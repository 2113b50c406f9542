package scheduler

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/maestro/candidate"
	"github.com/teranos/maestro/logger"
)

// DefaultFocusLength is the duration of an AutoFocus loop.
const DefaultFocusLength = 5 * time.Minute

// Block is one visit of a candidate waiting to be placed.
type Block struct {
	Candidate *candidate.Candidate
	Type      TypeConfig
	Tunables  Tunables
	Tier      int
	Duration  time.Duration
	Scores    []float64

	// Visit is the 1-based repeat number, 0 for single-visit types.
	Visit int
}

// Name is the candidate name the block is scheduled under.
func (b *Block) Name() string { return b.Candidate.CandidateName }

// Label is the name with its repeat suffix.
func (b *Block) Label() string {
	if b.Visit == 0 {
		return b.Name()
	}
	return fmt.Sprintf("%s_%d", b.Name(), b.Visit)
}

// Placement is a block or focus loop fixed in time.
type Placement struct {
	Tag   string
	Start time.Time
	End   time.Time
	Tier  int
	Block *Block // nil for focus loops
}

// IsFocus reports whether p is a focus loop.
func (p Placement) IsFocus() bool { return p.Block == nil }

// Builder places blocks on a grid. Tiers are filled in ascending order; a
// lower tier only uses slots the tiers before it left free.
type Builder struct {
	Grid        Grid
	Transitions TransitionModel
	FocusLength time.Duration

	// LastFocus is when the telescope was last focused before the grid
	// starts. Zero means at grid start.
	LastFocus time.Time

	log *zap.SugaredLogger

	occupied   []int
	placements []Placement
}

// NewBuilder creates a builder for grid with the merged transition model.
func NewBuilder(grid Grid, transitions TransitionModel, log *zap.SugaredLogger) *Builder {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Builder{
		Grid:        grid,
		Transitions: transitions,
		FocusLength: DefaultFocusLength,
		log:         log,
	}
}

// NewBlock prepares the first visit of c under tc.
func NewBlock(c *candidate.Candidate, tc TypeConfig, tun Tunables, tier int, grid Grid) *Block {
	var scores []float64
	if s, ok := tc.(Scorer); ok {
		scores = s.ScoreRow(c, grid)
	} else {
		scores = WindowScores(c.Window(), grid)
	}
	b := &Block{
		Candidate: c,
		Type:      tc,
		Tunables:  tun,
		Tier:      tier,
		Duration:  tc.BlockDuration(c),
		Scores:    scores,
	}
	if tun.NumObs > 1 {
		b.Visit = 1
	}
	return b
}

// Build places every tier and returns the placements in time order. Blocks
// that fit nowhere are left out.
func (b *Builder) Build(tiers map[int][]*Block) []Placement {
	b.occupied = make([]int, b.Grid.Len())
	b.placements = nil

	for _, tier := range sortedTiers(tiers) {
		b.fillTier(tier, append([]*Block(nil), tiers[tier]...))
	}
	return append([]Placement(nil), b.placements...)
}

func sortedTiers(tiers map[int][]*Block) []int {
	keys := make([]int, 0, len(tiers))
	for k := range tiers {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// plan is a tentative placement at the current time.
type plan struct {
	block      *Block
	focusStart time.Time
	focused    bool
	start      time.Time
	end        time.Time
	score      float64
}

func (b *Builder) fillTier(tier int, blocks []*Block) {
	placed := make(map[*Block]bool)
	lastVisit := make(map[string]time.Time)
	visits := make(map[string]int)

	current := b.Grid.Start
	for b.Grid.End.Sub(current) >= b.Grid.Resolution {
		idx := b.Grid.Index(current)
		if idx < len(b.occupied) && b.occupied[idx] != 0 {
			current = current.Add(b.Grid.Resolution)
			continue
		}

		var best *plan
		for _, blk := range blocks {
			if placed[blk] {
				continue
			}
			p, ok := b.try(blk, current, lastVisit)
			if !ok {
				continue
			}
			if best == nil || p.score > best.score {
				best = p
			}
		}
		if best == nil {
			current = current.Add(b.Grid.Resolution)
			continue
		}

		blk := best.block
		if best.focused {
			b.insert(Placement{Tag: FocusTag, Start: best.focusStart, End: best.focusStart.Add(b.focusLength()), Tier: tier})
		}
		b.insert(Placement{Tag: blk.Name(), Start: best.start, End: best.end, Tier: tier, Block: blk})
		for i := idx; i < b.Grid.CeilIndex(best.end); i++ {
			b.occupied[i] = tier
		}
		placed[blk] = true
		current = b.Grid.Time(b.Grid.CeilIndex(best.end))

		name := blk.Name()
		lastVisit[name] = best.start
		visits[name]++
		b.log.Debugw("Placed block",
			logger.FieldCandidateName, blk.Label(),
			"tier", tier,
			"start", best.start.Format(LineTimeFormat),
			"focus", best.focused,
		)

		if n := visits[name]; n < blk.Tunables.NumObs {
			row := append([]float64(nil), blk.Scores...)
			next := *blk
			next.Visit = n + 1
			next.Scores = blk.Type.ScoreRepeatObs(blk.Candidate, row, n, best.end)
			blocks = append(blocks, &next)
		}
	}

	for _, blk := range blocks {
		if !placed[blk] {
			b.log.Debugw("No feasible slot", logger.FieldCandidateName, blk.Label(), "tier", tier)
		}
	}
}

// try works out where blk would go if chosen at current: after the required
// downtime from the previous block and, when the focus budget would run out,
// after a focus loop.
func (b *Builder) try(blk *Block, current time.Time, lastVisit map[string]time.Time) (*plan, bool) {
	name := blk.Name()
	prev, hasPrev := b.before(current)
	running := current
	p := &plan{block: blk}

	if running.Add(blk.Duration).Sub(b.lastFocus(current)) >= blk.Tunables.MaxWithoutFocus() {
		if hasPrev {
			running = later(running, prev.End.Add(b.Transitions.Downtime(prev.Tag, FocusTag)))
		}
		p.focused = true
		p.focusStart = running
		running = running.Add(b.focusLength())
		running = running.Add(b.Transitions.Downtime(FocusTag, name))
	} else if hasPrev {
		running = later(running, prev.End.Add(b.Transitions.Downtime(prev.Tag, name)))
	}

	p.start = running
	p.end = running.Add(blk.Duration)
	if p.end.After(b.Grid.End) {
		return nil, false
	}

	from, to := b.Grid.Index(current), b.Grid.CeilIndex(p.end)
	for i := from; i < to; i++ {
		if b.occupied[i] != 0 {
			return nil, false
		}
	}
	startIdx := b.Grid.Index(p.start)
	if startIdx >= len(blk.Scores) {
		return nil, false
	}
	for i := startIdx; i < to && i < len(blk.Scores); i++ {
		if blk.Scores[i] <= 0 {
			return nil, false
		}
	}

	if next, ok := b.after(current); ok {
		if next.Start.Before(p.end.Add(b.Transitions.Downtime(name, next.Tag))) {
			return nil, false
		}
	}

	if last, ok := lastVisit[name]; ok && blk.Tunables.MinBetween() > 0 {
		if p.start.Sub(last) < blk.Tunables.MinBetween() {
			return nil, false
		}
	}

	p.score = blk.Scores[startIdx]
	return p, true
}

func (b *Builder) focusLength() time.Duration {
	if b.FocusLength <= 0 {
		return DefaultFocusLength
	}
	return b.FocusLength
}

// lastFocus is the start of the latest focus loop before t.
func (b *Builder) lastFocus(t time.Time) time.Time {
	last := b.LastFocus
	if last.IsZero() {
		last = b.Grid.Start
	}
	for _, p := range b.placements {
		if !p.Start.Before(t) {
			break
		}
		if p.IsFocus() && p.Start.After(last) {
			last = p.Start
		}
	}
	return last
}

// before returns the placement ending last at or before t.
func (b *Builder) before(t time.Time) (Placement, bool) {
	for i := len(b.placements) - 1; i >= 0; i-- {
		if !b.placements[i].End.After(t) {
			return b.placements[i], true
		}
	}
	return Placement{}, false
}

// after returns the first placement starting at or after t.
func (b *Builder) after(t time.Time) (Placement, bool) {
	for _, p := range b.placements {
		if !p.Start.Before(t) {
			return p, true
		}
	}
	return Placement{}, false
}

func (b *Builder) insert(p Placement) {
	i := sort.Search(len(b.placements), func(i int) bool {
		return b.placements[i].Start.After(p.Start)
	})
	b.placements = append(b.placements, Placement{})
	copy(b.placements[i+1:], b.placements[i:])
	b.placements[i] = p
}

func later(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}

// Lines renders placements through their types, focus loops as AutoFocus
// lines, sorted by start time.
func Lines(placements []Placement) []ScheduleLine {
	var lines []ScheduleLine
	for _, p := range placements {
		if p.IsFocus() {
			lines = append(lines, AutoFocusLine(p.Start))
			continue
		}
		blk := p.Block
		slot := Slot{Start: p.Start, Duration: p.End.Sub(p.Start), Visit: blk.Visit}
		lines = append(lines, blk.Type.GenerateSchedulerLine(slot, blk.Name(), blk.Candidate)...)
	}
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].Start.Before(lines[j].Start) })
	return lines
}
