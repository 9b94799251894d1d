// Package availability answers "when is this staff member or machine free" by layering
// working windows, recurring availability, ad-hoc blocks, maintenance and booked events.
package availability

import (
	"time"

	"print-scheduler/internal/calendar"
	"print-scheduler/internal/models"
)

// DefaultHorizon bounds NextFreeSlot so the allocator fails fast
const DefaultHorizon = 90 * 24 * time.Hour

// BookingSource supplies the intervals already booked on a resource.
// Implementations must return a snapshot the caller may keep.
type BookingSource interface {
	Busy(key models.ResourceKey, within models.Interval) []models.Interval
}

type Option func(*Index)

// WithHorizon overrides DefaultHorizon
func WithHorizon(d time.Duration) Option {
	return func(ix *Index) {
		if d > 0 {
			ix.horizon = d
		}
	}
}

// Index resolves free time per resource at query time. The recurring templates and block
// lists it was built from are never mutated.
type Index struct {
	clock    *calendar.Clock
	horizon  time.Duration
	staff    map[string]models.StaffMember
	machines map[string]models.Machine
	bookings BookingSource
}

func NewIndex(clock *calendar.Clock, staff []models.StaffMember, machines []models.Machine, bookings BookingSource, opts ...Option) *Index {
	ix := &Index{
		clock:    clock,
		horizon:  DefaultHorizon,
		staff:    make(map[string]models.StaffMember, len(staff)),
		machines: make(map[string]models.Machine, len(machines)),
		bookings: bookings,
	}
	for _, s := range staff {
		ix.staff[s.ID] = s
	}
	for _, m := range machines {
		ix.machines[m.ID] = m
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

func (ix *Index) Clock() *calendar.Clock { return ix.clock }

func (ix *Index) Horizon() time.Duration { return ix.horizon }

// Known reports whether the resource exists in the catalog snapshot
func (ix *Index) Known(key models.ResourceKey) bool {
	switch key.Kind {
	case models.KindStaff:
		_, ok := ix.staff[key.ID]
		return ok
	case models.KindMachine:
		_, ok := ix.machines[key.ID]
		return ok
	}
	return false
}

// FreeSegments returns the free intervals of the resource inside [from, to), in order
func (ix *Index) FreeSegments(key models.ResourceKey, from, to time.Time) []models.Interval {
	return ix.segments(key, from, to, true)
}

// Permits reports whether iv is allowed for the resource by hours, availability, blocks
// and maintenance alone, ignoring booked events
func (ix *Index) Permits(key models.ResourceKey, iv models.Interval) bool {
	if !iv.Valid() {
		return false
	}
	segs := ix.segments(key, iv.Start, iv.End, false)
	return len(segs) == 1 && segs[0].Start.Equal(iv.Start) && segs[0].End.Equal(iv.End)
}

// IsFree reports whether [from, to) is bookable on the resource right now
func (ix *Index) IsFree(key models.ResourceKey, from, to time.Time) bool {
	if !to.After(from) {
		return false
	}
	segs := ix.segments(key, from, to, true)
	return len(segs) == 1 && segs[0].Start.Equal(from) && segs[0].End.Equal(to)
}

// NextFreeSlot returns the earliest contiguous free interval of the given duration
// starting at or after notBefore, searching no further than the horizon
func (ix *Index) NextFreeSlot(key models.ResourceKey, notBefore time.Time, duration time.Duration) (models.Interval, bool) {
	if duration <= 0 {
		return models.Interval{}, false
	}
	for _, seg := range ix.FreeSegments(key, notBefore, notBefore.Add(ix.horizon)) {
		if seg.Duration() >= duration {
			return models.Interval{Start: seg.Start, End: seg.Start.Add(duration)}, true
		}
	}
	return models.Interval{}, false
}

func (ix *Index) segments(key models.ResourceKey, from, to time.Time, withBookings bool) []models.Interval {
	if !to.After(from) {
		return nil
	}
	base := ix.clock.WorkingWindowsBetween(from, to)
	if len(base) == 0 {
		return nil
	}

	var busy []models.Interval
	var dailyCap time.Duration
	switch key.Kind {
	case models.KindStaff:
		s, ok := ix.staff[key.ID]
		if !ok {
			return nil
		}
		if len(s.Availability) > 0 {
			base = Intersect(base, projectWeekly(s.Availability, from, to, ix.clock.Location()))
		}
		busy = append(busy, s.BlockedTimes...)
	case models.KindMachine:
		m, ok := ix.machines[key.ID]
		if !ok || m.Status != models.MachineOperational {
			return nil
		}
		busy = append(busy, m.MaintenanceSchedule...)
		dailyCap = m.DailyCap()
	default:
		return nil
	}

	if withBookings && ix.bookings != nil {
		busy = append(busy, ix.bookings.Busy(key, models.Interval{Start: from, End: to})...)
	}
	free := Subtract(base, Merge(busy))

	if dailyCap > 0 && withBookings {
		free = ix.clipDaily(key, free, dailyCap)
	}
	return free
}

// clipDaily trims each local day's free time so booked plus offered never exceeds limit
func (ix *Index) clipDaily(key models.ResourceKey, free []models.Interval, limit time.Duration) []models.Interval {
	loc := ix.clock.Location()
	var out []models.Interval
	var day time.Time
	var remaining time.Duration
	for _, seg := range splitAtMidnight(free, loc) {
		if d := midnight(seg.Start, loc); !d.Equal(day) {
			day = d
			booked := Merge(ix.bookings.Busy(key, models.Interval{Start: day, End: day.AddDate(0, 0, 1)}))
			var used time.Duration
			for _, b := range booked {
				if iv, ok := b.Intersect(models.Interval{Start: day, End: day.AddDate(0, 0, 1)}); ok {
					used += iv.Duration()
				}
			}
			remaining = limit - used
		}
		if remaining <= 0 {
			continue
		}
		if seg.Duration() > remaining {
			seg.End = seg.Start.Add(remaining)
		}
		remaining -= seg.Duration()
		if n := len(out); n > 0 && out[n-1].End.Equal(seg.Start) {
			out[n-1].End = seg.End
		} else {
			out = append(out, seg)
		}
	}
	return out
}

// projectWeekly expands recurring windows into concrete intervals covering [from, to)
func projectWeekly(windows []models.WeeklyWindow, from, to time.Time, loc *time.Location) []models.Interval {
	var out []models.Interval
	for day := midnight(from, loc); day.Before(to); day = day.AddDate(0, 0, 1) {
		y, m, d := day.Date()
		for _, w := range windows {
			if w.Weekday != day.Weekday() {
				continue
			}
			start, err := models.ParseClock(w.Start)
			if err != nil {
				continue
			}
			end, err := models.ParseClock(w.End)
			if err != nil || end <= start {
				continue
			}
			out = append(out, models.Interval{
				Start: time.Date(y, m, d, 0, start, 0, 0, loc),
				End:   time.Date(y, m, d, 0, end, 0, 0, loc),
			})
		}
	}
	return Merge(out)
}
