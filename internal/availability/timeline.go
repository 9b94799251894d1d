package availability

import (
	"sort"

	"print-scheduler/internal/models"
)

// Entry is a busy interval owned by one event
type Entry struct {
	models.Interval
	Owner string
}

// Timeline is an ordered set of non-overlapping entries for a single resource.
// Lookups are binary searches over the sorted slice. Not safe for concurrent use.
type Timeline struct {
	entries []Entry
}

func NewTimeline() *Timeline {
	return &Timeline{}
}

func (t *Timeline) Len() int {
	return len(t.entries)
}

// Clone returns an independent copy, used to hand out read snapshots
func (t *Timeline) Clone() *Timeline {
	return &Timeline{entries: append([]Entry(nil), t.entries...)}
}

// firstEndingAfter returns the index of the first entry ending after iv.Start
func (t *Timeline) firstEndingAfter(iv models.Interval) int {
	return sort.Search(len(t.entries), func(i int) bool {
		return t.entries[i].End.After(iv.Start)
	})
}

// Conflict returns the first entry overlapping iv, ignoring entries owned by skip
func (t *Timeline) Conflict(iv models.Interval, skip string) (Entry, bool) {
	for i := t.firstEndingAfter(iv); i < len(t.entries); i++ {
		e := t.entries[i]
		if !e.Start.Before(iv.End) {
			break
		}
		if e.Owner != skip {
			return e, true
		}
	}
	return Entry{}, false
}

// Overlapping returns the entries intersecting iv in chronological order
func (t *Timeline) Overlapping(iv models.Interval) []Entry {
	var out []Entry
	for i := t.firstEndingAfter(iv); i < len(t.entries); i++ {
		if !t.entries[i].Start.Before(iv.End) {
			break
		}
		out = append(out, t.entries[i])
	}
	return out
}

// Insert adds iv for owner. It returns the conflicting entry and false if iv overlaps.
func (t *Timeline) Insert(iv models.Interval, owner string) (Entry, bool) {
	if c, ok := t.Conflict(iv, ""); ok {
		return c, false
	}
	i := t.firstEndingAfter(iv)
	t.entries = append(t.entries, Entry{})
	copy(t.entries[i+1:], t.entries[i:])
	t.entries[i] = Entry{Interval: iv, Owner: owner}
	return Entry{}, true
}

// Remove deletes the entry owned by owner at iv
func (t *Timeline) Remove(iv models.Interval, owner string) bool {
	for i := t.firstEndingAfter(iv); i < len(t.entries); i++ {
		e := t.entries[i]
		if e.Start.After(iv.Start) {
			break
		}
		if e.Owner == owner && e.Start.Equal(iv.Start) && e.End.Equal(iv.End) {
			t.entries = append(t.entries[:i], t.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Intervals returns the busy intervals intersecting within
func (t *Timeline) Intervals(within models.Interval) []models.Interval {
	entries := t.Overlapping(within)
	out := make([]models.Interval, len(entries))
	for i, e := range entries {
		out[i] = e.Interval
	}
	return out
}
