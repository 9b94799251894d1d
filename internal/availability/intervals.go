package availability

import (
	"slices"
	"time"

	"print-scheduler/internal/models"
)

// Merge sorts intervals and coalesces overlapping or touching ones. Invalid intervals are dropped.
func Merge(in []models.Interval) []models.Interval {
	out := make([]models.Interval, 0, len(in))
	for _, iv := range in {
		if iv.Valid() {
			out = append(out, iv)
		}
	}
	slices.SortFunc(out, func(a, b models.Interval) int {
		if c := a.Start.Compare(b.Start); c != 0 {
			return c
		}
		return a.End.Compare(b.End)
	})
	merged := out[:0]
	for _, iv := range out {
		if n := len(merged); n > 0 && !iv.Start.After(merged[n-1].End) {
			if iv.End.After(merged[n-1].End) {
				merged[n-1].End = iv.End
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}

// Subtract removes busy from base. Both inputs must be sorted and non-overlapping.
func Subtract(base, busy []models.Interval) []models.Interval {
	var out []models.Interval
	j := 0
	for _, b := range base {
		cur := b.Start
		for j < len(busy) && !busy[j].End.After(b.Start) {
			j++
		}
		k := j
		for k < len(busy) && busy[k].Start.Before(b.End) {
			if busy[k].Start.After(cur) {
				out = append(out, models.Interval{Start: cur, End: busy[k].Start})
			}
			if busy[k].End.After(cur) {
				cur = busy[k].End
			}
			k++
		}
		if b.End.After(cur) {
			out = append(out, models.Interval{Start: cur, End: b.End})
		}
	}
	return out
}

// Intersect returns the common parts of two sorted, non-overlapping sets
func Intersect(a, b []models.Interval) []models.Interval {
	var out []models.Interval
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if iv, ok := a[i].Intersect(b[j]); ok {
			out = append(out, iv)
		}
		if a[i].End.Before(b[j].End) {
			i++
		} else {
			j++
		}
	}
	return out
}

// Total sums the durations of a set
func Total(in []models.Interval) time.Duration {
	var d time.Duration
	for _, iv := range in {
		d += iv.Duration()
	}
	return d
}

// Covers reports whether the sorted set fully contains iv
func Covers(set []models.Interval, iv models.Interval) bool {
	for _, s := range set {
		if s.Contains(iv) {
			return true
		}
	}
	return false
}

func midnight(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// splitAtMidnight cuts any interval crossing a local midnight into per-day pieces
func splitAtMidnight(in []models.Interval, loc *time.Location) []models.Interval {
	out := make([]models.Interval, 0, len(in))
	for _, iv := range in {
		cur := iv.Start
		for {
			next := midnight(cur, loc).AddDate(0, 0, 1)
			if !next.Before(iv.End) {
				out = append(out, models.Interval{Start: cur, End: iv.End})
				break
			}
			out = append(out, models.Interval{Start: cur, End: next})
			cur = next
		}
	}
	return out
}
