// Package matcher picks the staff members and machines that may work on a job.
package matcher

import (
	"slices"
	"time"

	"print-scheduler/internal/availability"
	"print-scheduler/internal/calendar"
	"print-scheduler/internal/models"
)

// Workload reports how much time a resource already has booked in a period
type Workload interface {
	BookedHours(key models.ResourceKey, within models.Interval) time.Duration
}

// PeriodFunc returns the balancing period that contains ref
type PeriodFunc func(ref time.Time, loc *time.Location) models.Interval

// ISOWeek is the default balancing period: Monday 00:00 to the next Monday, local time
func ISOWeek(ref time.Time, loc *time.Location) models.Interval {
	ref = ref.In(loc)
	y, m, d := ref.Date()
	offset := (int(ref.Weekday()) + 6) % 7
	start := time.Date(y, m, d-offset, 0, 0, 0, 0, loc)
	return models.Interval{Start: start, End: start.AddDate(0, 0, 7)}
}

type Option func(*Matcher)

// WithPeriod replaces ISOWeek as the load-balancing window
func WithPeriod(p PeriodFunc) Option {
	return func(m *Matcher) {
		if p != nil {
			m.period = p
		}
	}
}

// Matcher filters and ranks candidates. Empty results are normal and not an error.
type Matcher struct {
	clock    *calendar.Clock
	staff    []models.StaffMember
	machines []models.Machine
	load     Workload
	period   PeriodFunc
}

func New(clock *calendar.Clock, staff []models.StaffMember, machines []models.Machine, load Workload, opts ...Option) *Matcher {
	m := &Matcher{
		clock:    clock,
		staff:    staff,
		machines: machines,
		load:     load,
		period:   ISOWeek,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// EligibleStaff returns ids of staff who can perform the job type and are not blocked for the
// whole business day of ref, least loaded first
func (m *Matcher) EligibleStaff(job models.Job, ref time.Time) []string {
	day, open := m.clock.BusinessDay(ref)
	var ids []string
	for _, s := range m.staff {
		if !s.CanPerform(job.JobType) {
			continue
		}
		if open && availability.Covers(availability.Merge(s.BlockedTimes), day) {
			continue
		}
		ids = append(ids, s.ID)
	}
	return m.rank(ids, models.StaffKey, ref)
}

// EligibleMachines returns ids of operational machines whose capabilities cover the job's
// requirements, least loaded first
func (m *Matcher) EligibleMachines(job models.Job, ref time.Time) []string {
	var ids []string
	for _, mc := range m.machines {
		if mc.Status != models.MachineOperational || !mc.Supports(job.RequiredMachines) {
			continue
		}
		ids = append(ids, mc.ID)
	}
	return m.rank(ids, models.MachineKey, ref)
}

// NeedsMachine reports whether the job can only run on a machine
func NeedsMachine(job models.Job) bool {
	return len(job.RequiredMachines) > 0
}

func (m *Matcher) rank(ids []string, key func(string) models.ResourceKey, ref time.Time) []string {
	if len(ids) < 2 || m.load == nil {
		slices.Sort(ids)
		return ids
	}
	period := m.period(ref, m.clock.Location())
	booked := make(map[string]time.Duration, len(ids))
	for _, id := range ids {
		booked[id] = m.load.BookedHours(key(id), period)
	}
	slices.SortFunc(ids, func(a, b string) int {
		if booked[a] != booked[b] {
			if booked[a] < booked[b] {
				return -1
			}
			return 1
		}
		if a < b {
			return -1
		}
		if a > b {
			return 1
		}
		return 0
	})
	return ids
}
