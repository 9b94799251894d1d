// Package calendar resolves business hours and holidays into working windows.
package calendar

import (
	"fmt"
	"time"

	"print-scheduler/internal/models"
)

// DefaultSearchDays bounds NextWorkingInstant so a closed calendar can't spin forever
const DefaultSearchDays = 366

const dateLayout = "2006-01-02"

type dayWindow struct {
	open       bool
	start, end int // minutes after midnight
}

// Clock answers working-time questions in one canonical location
type Clock struct {
	loc      *time.Location
	days     [7]dayWindow
	holidays map[string]string
	search   time.Duration
}

// NewClock validates cfg and builds a clock. A nil loc means time.Local.
func NewClock(cfg models.BusinessHoursConfig, loc *time.Location) (*Clock, error) {
	if loc == nil {
		loc = time.Local
	}
	c := &Clock{
		loc:      loc,
		holidays: make(map[string]string, len(cfg.Holidays)),
		search:   DefaultSearchDays * 24 * time.Hour,
	}
	for wd, h := range cfg.Days {
		if wd < time.Sunday || wd > time.Saturday {
			return nil, fmt.Errorf("invalid weekday %d", wd)
		}
		if !h.IsOpen {
			continue
		}
		start, err := models.ParseClock(h.Start)
		if err != nil {
			return nil, fmt.Errorf("%s start: %w", wd, err)
		}
		end, err := models.ParseClock(h.End)
		if err != nil {
			return nil, fmt.Errorf("%s end: %w", wd, err)
		}
		if end <= start {
			return nil, fmt.Errorf("%s: end %s is not after start %s", wd, h.End, h.Start)
		}
		c.days[wd] = dayWindow{open: true, start: start, end: end}
	}
	for _, hol := range cfg.Holidays {
		d, err := time.ParseInLocation(dateLayout, hol.Date, loc)
		if err != nil {
			return nil, fmt.Errorf("holiday %q: %w", hol.Name, err)
		}
		c.holidays[d.Format(dateLayout)] = hol.Name
	}
	return c, nil
}

// Location returns the canonical business location
func (c *Clock) Location() *time.Location {
	return c.loc
}

// Holiday returns the holiday name covering t's calendar day
func (c *Clock) Holiday(t time.Time) (string, bool) {
	name, ok := c.holidays[t.In(c.loc).Format(dateLayout)]
	return name, ok
}

// BusinessDay returns the working window of t's calendar day, ok=false when closed
func (c *Clock) BusinessDay(t time.Time) (models.Interval, bool) {
	t = t.In(c.loc)
	if _, hol := c.Holiday(t); hol {
		return models.Interval{}, false
	}
	w := c.days[t.Weekday()]
	if !w.open {
		return models.Interval{}, false
	}
	y, m, d := t.Date()
	return models.Interval{
		Start: time.Date(y, m, d, 0, w.start, 0, 0, c.loc),
		End:   time.Date(y, m, d, 0, w.end, 0, 0, c.loc),
	}, true
}

// IsWorkingInstant reports whether t falls inside business hours
func (c *Clock) IsWorkingInstant(t time.Time) bool {
	day, ok := c.BusinessDay(t)
	if !ok {
		return false
	}
	return !t.Before(day.Start) && t.Before(day.End)
}

// NextWorkingInstant returns t itself when working, otherwise the start of the next window.
// ok is false if nothing opens within the search bound.
func (c *Clock) NextWorkingInstant(t time.Time) (time.Time, bool) {
	if c.IsWorkingInstant(t) {
		return t, true
	}
	windows := c.WorkingWindowsBetween(t, t.Add(c.search))
	if len(windows) == 0 {
		return time.Time{}, false
	}
	return windows[0].Start, true
}

// WorkingWindowsBetween returns the ordered working windows clipped to [start, end).
// Back-to-back windows (a day closing at 24:00 followed by one opening at 00:00) are merged.
func (c *Clock) WorkingWindowsBetween(start, end time.Time) []models.Interval {
	if !end.After(start) {
		return nil
	}
	bound := models.Interval{Start: start, End: end}
	s := start.In(c.loc)
	y, m, d := s.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, c.loc)

	var out []models.Interval
	for day.Before(end) {
		if w, ok := c.BusinessDay(day); ok {
			if clipped, ok := w.Intersect(bound); ok {
				if n := len(out); n > 0 && out[n-1].End.Equal(clipped.Start) {
					out[n-1].End = clipped.End
				} else {
					out = append(out, clipped)
				}
			}
		}
		day = day.AddDate(0, 0, 1)
	}
	return out
}
