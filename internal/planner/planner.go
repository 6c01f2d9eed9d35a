// Package planner computes the daily publication plan: an ordered list of
// (post, time-slot) assignments balancing companies by fairness weight,
// honouring preferred publish times and avoiding back-to-back slots for
// the same company. The computation is pure and fully deterministic, so
// the same inputs always produce the same plan (forecasts never drift
// from committed plans).
package planner

import (
	"sort"
	"strings"
	"time"

	"github.com/rotapost/rotapost/internal/clock"
	"github.com/rotapost/rotapost/internal/models"
)

// Config is the scheduling window and cadence for one day of planning.
// All values are minutes; window bounds are minutes since midnight.
type Config struct {
	WindowStart int
	WindowEnd   int
	MinInterval int
	RotationGap int
}

// Options control how a plan run starts.
type Options struct {
	// StartFromNow clamps the effective window start to NowMinute.
	// Callers set it only when planning the current day.
	StartFromNow bool
	NowMinute    int

	// StartCursor is the rotation cursor to resume from, normally the
	// persisted cursor from the previous run.
	StartCursor int
}

// Assignment is one planned slot.
type Assignment struct {
	Post        models.EligiblePost
	Minute      int // minute of day
	At          time.Time
	CursorAfter int
	Preferred   bool // placed via preferred-time override rather than rotation
}

// Plan is the result of one planning run.
type Plan struct {
	Slots               []Assignment
	TotalPublications   int
	FullRotations       int
	PartialPublications int
	StartCursor         int
	EndCursor           int
	WindowStart         time.Time
	WindowEnd           time.Time
}

// group is one company's posts plus its fairness state during a run.
type group struct {
	companyID int64
	name      string
	weight    int
	posts     []models.EligiblePost // sorted by post id
	prefAt    []int                 // preferred minute per post, -1 when none

	sent    int // historical sent count
	planned int // slots assigned in this run
	rr      int // round-robin index into posts
	lastID  int64
}

// BuildDay computes the plan for a calendar day. day must be midnight in
// the scheduler's time zone; posts are the eligible campaigns for that
// day; sentCounts maps company id to its historical sent count.
func BuildDay(day time.Time, posts []models.EligiblePost, sentCounts map[int64]int, cfg Config, opts Options) *Plan {
	groups := buildGroups(posts, sentCounts)

	start := cfg.WindowStart
	if opts.StartFromNow && opts.NowMinute > start {
		start = opts.NowMinute
	}

	cursor := 0
	if len(groups) > 0 {
		cursor = ((opts.StartCursor % len(groups)) + len(groups)) % len(groups)
	}

	plan := &Plan{
		StartCursor: cursor,
		EndCursor:   cursor,
		WindowStart: day.Add(time.Duration(start) * time.Minute),
		WindowEnd:   day.Add(time.Duration(cfg.WindowEnd) * time.Minute),
	}
	if len(groups) == 0 || cfg.MinInterval <= 0 {
		return plan
	}

	released := make(map[int64]bool)
	minute := start
	var prevCompany int64
	sinceWrap := 0

	for minute <= cfg.WindowEnd {
		avail := available(groups, released, minute)
		if len(avail) == 0 {
			// Everything left is preferred-only and not yet due.
			next, ok := nextDue(groups, released, minute)
			if !ok || next > cfg.WindowEnd {
				break
			}
			minute = next
			continue
		}

		// Never schedule the same company twice in a row unless it is
		// the only one with a candidate.
		eligible := avail
		if prevCompany != 0 {
			others := withoutCompany(avail, prevCompany)
			if len(others) > 0 {
				eligible = others
			}
		}

		g, pi, preferred := pickDuePreferred(eligible, released, minute)
		if !preferred {
			g = pickRotating(groups, eligible, cursor)
			pi = g.pickPost(released, minute)
		}

		post := g.posts[pi]
		wrapped := false
		if preferred {
			released[post.ID] = true
		} else {
			// Advance the round-robin pointer; a wrap back to the first
			// company closes one full rotation.
			cursor = (indexOf(groups, g) + 1) % len(groups)
			if cursor == 0 {
				plan.FullRotations++
				wrapped = true
			}
		}

		g.planned++
		g.rr = (pi + 1) % len(g.posts)
		g.lastID = post.ID
		prevCompany = g.companyID
		sinceWrap++
		if wrapped {
			sinceWrap = 0
		}

		plan.Slots = append(plan.Slots, Assignment{
			Post:        post,
			Minute:      minute,
			At:          day.Add(time.Duration(minute) * time.Minute),
			CursorAfter: cursor,
			Preferred:   preferred,
		})

		minute += cfg.MinInterval
		if wrapped {
			minute += cfg.RotationGap
		}
	}

	plan.TotalPublications = len(plan.Slots)
	plan.PartialPublications = sinceWrap
	plan.EndCursor = cursor
	return plan
}

func buildGroups(posts []models.EligiblePost, sentCounts map[int64]int) []*group {
	byCompany := make(map[int64]*group)
	var groups []*group

	for _, p := range posts {
		g, ok := byCompany[p.CompanyID]
		if !ok {
			weight := 2
			if p.Premium {
				weight = 3
			}
			g = &group{
				companyID: p.CompanyID,
				name:      p.CompanyName,
				weight:    weight,
				sent:      sentCounts[p.CompanyID],
			}
			byCompany[p.CompanyID] = g
			groups = append(groups, g)
		}
		g.posts = append(g.posts, p)
	}

	for _, g := range groups {
		sort.Slice(g.posts, func(i, j int) bool { return g.posts[i].ID < g.posts[j].ID })
		g.prefAt = make([]int, len(g.posts))
		for i, p := range g.posts {
			g.prefAt[i] = preferredMinute(p)
		}
	}

	// Deterministic company order: case-insensitive name, then id.
	sort.Slice(groups, func(i, j int) bool {
		a, b := strings.ToLower(groups[i].name), strings.ToLower(groups[j].name)
		if a != b {
			return a < b
		}
		return groups[i].companyID < groups[j].companyID
	})
	return groups
}

func preferredMinute(p models.EligiblePost) int {
	if p.EffectiveTime == "" {
		return -1
	}
	m, err := clock.ParseHHMM(p.EffectiveTime)
	if err != nil {
		return -1
	}
	return m
}

// postAvailable reports whether post i of g may be placed at the given
// minute. A preferred post is held back until its time is due, then stays
// in free rotation once released.
func (g *group) postAvailable(i int, released map[int64]bool, minute int) bool {
	pref := g.prefAt[i]
	return pref < 0 || released[g.posts[i].ID] || pref <= minute
}

func (g *group) hasAvailable(released map[int64]bool, minute int) bool {
	for i := range g.posts {
		if g.postAvailable(i, released, minute) {
			return true
		}
	}
	return false
}

// pickPost cycles round-robin over the group's own posts, skipping the
// immediately previous one when an alternative exists.
func (g *group) pickPost(released map[int64]bool, minute int) int {
	fallback := -1
	for off := 0; off < len(g.posts); off++ {
		i := (g.rr + off) % len(g.posts)
		if !g.postAvailable(i, released, minute) {
			continue
		}
		if g.posts[i].ID == g.lastID {
			if fallback < 0 {
				fallback = i
			}
			continue
		}
		return i
	}
	return fallback
}

func available(groups []*group, released map[int64]bool, minute int) []*group {
	var out []*group
	for _, g := range groups {
		if g.hasAvailable(released, minute) {
			out = append(out, g)
		}
	}
	return out
}

func withoutCompany(groups []*group, companyID int64) []*group {
	var out []*group
	for _, g := range groups {
		if g.companyID != companyID {
			out = append(out, g)
		}
	}
	return out
}

// nextDue returns the earliest unreleased preferred minute strictly after
// the current one, used to fast-forward an otherwise idle clock.
func nextDue(groups []*group, released map[int64]bool, minute int) (int, bool) {
	best, ok := 0, false
	for _, g := range groups {
		for i, p := range g.posts {
			pref := g.prefAt[i]
			if pref < 0 || released[p.ID] || pref <= minute {
				continue
			}
			if !ok || pref < best {
				best, ok = pref, true
			}
		}
	}
	return best, ok
}

// pickDuePreferred selects a due, unreleased preferred post among the
// eligible groups. When several are due the one with the earliest
// preferred time wins; ties fall back to company name, then post id.
func pickDuePreferred(eligible []*group, released map[int64]bool, minute int) (*group, int, bool) {
	var bestG *group
	bestI := -1
	for _, g := range eligible {
		for i, p := range g.posts {
			pref := g.prefAt[i]
			if pref < 0 || released[p.ID] || pref > minute {
				continue
			}
			if bestG == nil || less(pref, g, p.ID, bestG.prefAt[bestI], bestG, bestG.posts[bestI].ID) {
				bestG, bestI = g, i
			}
		}
	}
	if bestG == nil {
		return nil, -1, false
	}
	return bestG, bestI, true
}

func less(pref int, g *group, postID int64, bestPref int, bestG *group, bestID int64) bool {
	if pref != bestPref {
		return pref < bestPref
	}
	a, b := strings.ToLower(g.name), strings.ToLower(bestG.name)
	if a != b {
		return a < b
	}
	return postID < bestID
}

// pickRotating scores eligible groups by served-per-weight, lowest first.
// Ties prefer the group closest ahead of the rotation cursor, then the
// lexically smaller name, then the smaller company id.
func pickRotating(groups []*group, eligible []*group, cursor int) *group {
	n := len(groups)
	best := eligible[0]
	bestScore := score(best)
	bestDist := cyclicDist(indexOf(groups, best), cursor, n)

	for _, g := range eligible[1:] {
		s := score(g)
		d := cyclicDist(indexOf(groups, g), cursor, n)
		switch {
		case s < bestScore:
		case s == bestScore && d < bestDist:
		case s == bestScore && d == bestDist && strings.ToLower(g.name) < strings.ToLower(best.name):
		case s == bestScore && d == bestDist && strings.ToLower(g.name) == strings.ToLower(best.name) && g.companyID < best.companyID:
		default:
			continue
		}
		best, bestScore, bestDist = g, s, d
	}
	return best
}

func score(g *group) float64 {
	return float64(g.sent+g.planned) / float64(g.weight)
}

func cyclicDist(idx, cursor, n int) int {
	return ((idx-cursor)%n + n) % n
}

func indexOf(groups []*group, g *group) int {
	for i := range groups {
		if groups[i] == g {
			return i
		}
	}
	return -1
}
