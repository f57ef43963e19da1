package transits

import (
	"sort"

	"AstroTransit/internal/domain/models"
)

// TrackerOption configures a ChangeTracker.
type TrackerOption func(*ChangeTracker)

// WithEndedTracking makes Detect also report pairs that left aspect.
func WithEndedTracking(on bool) TrackerOption {
	return func(t *ChangeTracker) {
		t.trackEnded = on
	}
}

// ChangeTracker remembers each pair's aspect from the previous scanned day.
// One tracker serves one report; Detect must be called in date order.
type ChangeTracker struct {
	state      map[models.PairKey]models.Transit
	trackEnded bool
}

// NewChangeTracker creates an empty tracker.
func NewChangeTracker(opts ...TrackerOption) *ChangeTracker {
	t := &ChangeTracker{state: make(map[models.PairKey]models.Transit)}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Detect compares today's results with the previous day. A pair is a change
// when it was absent yesterday or its aspect name differs. Pairs missing
// today are forgotten, so a later return counts as new; when ended tracking
// is on their last record is returned in ended.
func (t *ChangeTracker) Detect(results []models.Transit) (changes, ended []models.Transit) {
	next := make(map[models.PairKey]models.Transit, len(results))
	for _, tr := range results {
		key := tr.Pair()
		if _, seen := next[key]; seen {
			continue
		}
		prev, ok := t.state[key]
		if !ok || prev.Aspect != tr.Aspect {
			changes = append(changes, tr)
		}
		next[key] = tr
	}
	if t.trackEnded {
		for _, prev := range orderedState(t.state) {
			if _, still := next[prev.Pair()]; !still {
				ended = append(ended, prev)
			}
		}
	}
	t.state = next
	return changes, ended
}

// Active returns the number of pairs currently in aspect.
func (t *ChangeTracker) Active() int { return len(t.state) }

// orderedState lists state entries deterministically by pair.
func orderedState(state map[models.PairKey]models.Transit) []models.Transit {
	out := make([]models.Transit, 0, len(state))
	for _, tr := range state {
		out = append(out, tr)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TransitBody != out[j].TransitBody {
			return out[i].TransitBody < out[j].TransitBody
		}
		return out[i].NatalBody < out[j].NatalBody
	})
	return out
}
