package ranking

import (
	"math"

	"feed-ranking-workers/internal/models"
)

type tier int

const (
	tierHigh tier = iota
	tierMedium
	tierLow
	tierCount
)

// DiversityStats reports what the diversifier had to repair.
type DiversityStats struct {
	Swaps            int `json:"swaps"`
	TypeViolations   int `json:"typeViolations"`
	AuthorViolations int `json:"authorViolations"`
	TierFallbacks    int `json:"tierFallbacks"`
}

// Diversifier interleaves score tiers and breaks up long runs of the same
// item type or author. It is greedy and single pass: a violation is repaired
// only when a substitute is available at that position, otherwise the
// original item is emitted.
type Diversifier struct {
	cfg DiversityConfig
}

// NewDiversifier creates a diversifier with the given limits.
func NewDiversifier(cfg DiversityConfig) *Diversifier {
	return &Diversifier{cfg: cfg}
}

// tierArena holds item indices per tier plus a consumed flag per item, so
// substitution never shifts slices.
type tierArena struct {
	buckets  [tierCount][]int
	heads    [tierCount]int
	consumed []bool
}

func (a *tierArena) next(t tier) int {
	b := a.buckets[t]
	for a.heads[t] < len(b) && a.consumed[b[a.heads[t]]] {
		a.heads[t]++
	}
	if a.heads[t] >= len(b) {
		return -1
	}
	return b[a.heads[t]]
}

type runState struct {
	lastType   models.ItemType
	typeRun    int
	lastAuthor string
	authorRun  int
}

func (r *runState) push(item models.ScoredItem) {
	if item.Type == r.lastType {
		r.typeRun++
	} else {
		r.lastType, r.typeRun = item.Type, 1
	}
	switch {
	case item.AuthorID == "":
		r.lastAuthor, r.authorRun = "", 0
	case item.AuthorID == r.lastAuthor:
		r.authorRun++
	default:
		r.lastAuthor, r.authorRun = item.AuthorID, 1
	}
}

// Diversify expects items sorted by descending score and returns a new
// slice; the input is not modified.
func (d *Diversifier) Diversify(items []models.ScoredItem) ([]models.ScoredItem, DiversityStats) {
	var stats DiversityStats
	n := len(items)
	if n == 0 {
		return []models.ScoredItem{}, stats
	}

	arena := &tierArena{consumed: make([]bool, n)}
	for i, it := range items {
		t := d.tierOf(it.Score)
		arena.buckets[t] = append(arena.buckets[t], i)
	}

	highSlots := int(math.Ceil(float64(n) * d.cfg.Tiers.HighShare))
	mediumSlots := int(math.Ceil(float64(n) * d.cfg.Tiers.MediumShare))

	out := make([]models.ScoredItem, 0, n)
	var runs runState
	for pos := 0; pos < n; pos++ {
		preferred := tierLow
		switch {
		case pos < highSlots:
			preferred = tierHigh
		case pos < highSlots+mediumSlots:
			preferred = tierMedium
		}

		idx := arena.next(preferred)
		if idx < 0 {
			stats.TierFallbacks++
			for t := tierHigh; t < tierCount && idx < 0; t++ {
				idx = arena.next(t)
			}
		}
		if idx < 0 {
			break
		}

		typeViolation, authorViolation := d.violates(runs, items[idx])
		if typeViolation {
			stats.TypeViolations++
		}
		if authorViolation {
			stats.AuthorViolations++
		}
		if typeViolation || authorViolation {
			if sub := d.substitute(arena, runs, items, idx); sub >= 0 {
				idx = sub
				stats.Swaps++
			}
		}

		arena.consumed[idx] = true
		out = append(out, items[idx])
		runs.push(items[idx])
	}
	return out, stats
}

func (d *Diversifier) tierOf(score float64) tier {
	switch {
	case score >= d.cfg.Tiers.HighMin:
		return tierHigh
	case score >= d.cfg.Tiers.MediumMin:
		return tierMedium
	default:
		return tierLow
	}
}

func (d *Diversifier) violates(runs runState, item models.ScoredItem) (sameType, sameAuthor bool) {
	sameType = item.Type == runs.lastType && runs.typeRun >= d.cfg.MaxConsecutiveSameType
	sameAuthor = item.AuthorID != "" && item.AuthorID == runs.lastAuthor &&
		runs.authorRun >= d.cfg.MaxConsecutiveSameAuthor
	return sameType, sameAuthor
}

// substitute scans the buckets high to low for the first unconsumed item
// that breaks neither run. The skipped candidate stays in its bucket.
func (d *Diversifier) substitute(arena *tierArena, runs runState, items []models.ScoredItem, skip int) int {
	for t := tierHigh; t < tierCount; t++ {
		bucket := arena.buckets[t]
		for k := arena.heads[t]; k < len(bucket); k++ {
			j := bucket[k]
			if j == skip || arena.consumed[j] {
				continue
			}
			if typeV, authorV := d.violates(runs, items[j]); !typeV && !authorV {
				return j
			}
		}
	}
	return -1
}
