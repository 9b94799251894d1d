// Package allocator turns pending jobs into conflict-free schedule events.
//
// A run orders the jobs, then repeatedly walks the ones still waiting on dependencies until
// no pass makes progress. Each job is placed on the first feasible staff and machine pair,
// split across as many free working segments as it needs, and committed atomically.
package allocator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"sort"
	"time"

	"github.com/google/uuid"

	"print-scheduler/internal/availability"
	"print-scheduler/internal/matcher"
	"print-scheduler/internal/models"
	"print-scheduler/internal/store"
)

// DefaultMinSegment is the shortest fragment worth booking unless it finishes the job
const DefaultMinSegment = 30 * time.Minute

// EventNamespace seeds the name-based UUIDs of auto-scheduled events
var EventNamespace = uuid.MustParse("6f1c2a8e-4b1d-5c7a-9e42-3d0b8f6a1c55")

type Options struct {
	Now        func() time.Time
	MinSegment time.Duration
	Logger     *log.Logger
}

// Placement lists the events committed for one job. Events is empty when existing
// events already cover the estimate.
type Placement struct {
	JobID  string
	Events []models.ScheduleEvent
}

type Result struct {
	Placements []Placement
	// Errors holds one CapacityError per unplaceable job, then at most one DependencyCycleError
	Errors   []error
	Warnings []string
	Aborted  bool
	Passes   int
}

// Err joins every error of the run, nil when all jobs were placed
func (r Result) Err() error {
	return errors.Join(r.Errors...)
}

// Scheduled returns the ids of jobs that reached the scheduled state
func (r Result) Scheduled() []string {
	ids := make([]string, len(r.Placements))
	for i, p := range r.Placements {
		ids[i] = p.JobID
	}
	return ids
}

// Allocator is single-threaded. The caller holds the scheduling gate for the whole Run.
type Allocator struct {
	store   *store.Store
	index   *availability.Index
	matcher *matcher.Matcher
	opts    Options
}

func New(st *store.Store, ix *availability.Index, m *matcher.Matcher, opts Options) *Allocator {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.MinSegment <= 0 {
		opts.MinSegment = DefaultMinSegment
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Allocator{store: st, index: ix, matcher: m, opts: opts}
}

type readiness int

const (
	ready readiness = iota
	waiting
)

// Run places every pending job in jobs, plus in-progress jobs whose events no longer cover
// their estimate. The remaining jobs are only consulted as dependencies.
// Cancelling ctx stops the run between jobs; placements committed so far stay valid.
func (a *Allocator) Run(ctx context.Context, jobs []models.Job) Result {
	var res Result
	all := make(map[string]models.Job, len(jobs))
	var pending []models.Job
	for _, j := range jobs {
		all[j.ID] = j
		if a.open(j) {
			pending = append(pending, j)
		}
	}
	Order(pending)

	now := a.opts.Now()
	failed := map[string]*models.CapacityError{}
	// every productive pass places at least one job
	maxPasses := len(pending)

	for len(pending) > 0 && res.Passes < maxPasses {
		res.Passes++
		progress := false
		var blocked []models.Job
		for _, job := range pending {
			if err := ctx.Err(); err != nil {
				a.opts.Logger.Printf("allocator run aborted after %d placements: %v", len(res.Placements), err)
				res.Aborted = true
				a.finish(&res, failed, nil, all)
				return res
			}
			readyAt, state := a.readyTime(job, all)
			if state == waiting {
				blocked = append(blocked, job)
				continue
			}
			from := now
			if readyAt.After(from) {
				from = readyAt
			}
			placement, warning, err := a.place(job, from)
			if err != nil {
				var capErr *models.CapacityError
				if errors.As(err, &capErr) {
					failed[job.ID] = capErr
				} else {
					res.Errors = append(res.Errors, err)
				}
				a.opts.Logger.Printf("job_id=%s: job left pending: %v", job.ID, err)
				continue
			}
			if warning != "" {
				res.Warnings = append(res.Warnings, warning)
			}
			res.Placements = append(res.Placements, placement)
			progress = true
		}
		pending = blocked
		if !progress {
			break
		}
	}

	a.finish(&res, failed, pending, all)
	return res
}

func (a *Allocator) open(j models.Job) bool {
	switch j.Status {
	case models.StatusPending:
		return true
	case models.StatusInProgress:
		return a.covered(j.ID) < j.Duration()
	}
	return false
}

func (a *Allocator) covered(jobID string) time.Duration {
	var d time.Duration
	for _, e := range a.store.ForJob(jobID) {
		d += e.EndTime.Sub(e.StartTime)
	}
	return d
}

func (a *Allocator) finish(res *Result, failed map[string]*models.CapacityError, blocked []models.Job, all map[string]models.Job) {
	ids := make([]string, 0, len(failed))
	for id := range failed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		res.Errors = append(res.Errors, failed[id])
	}
	if len(blocked) > 0 {
		res.Errors = append(res.Errors, a.dependencyError(blocked, all))
	}
}

// Order sorts jobs for placement: pinned first, then deadline, then priority, then id
func Order(jobs []models.Job) {
	slices.SortStableFunc(jobs, func(x, y models.Job) int {
		if x.Pinned() != y.Pinned() {
			if x.Pinned() {
				return -1
			}
			return 1
		}
		if c := compareDeadline(x.Deadline, y.Deadline); c != 0 {
			return c
		}
		if rx, ry := x.Priority.Rank(), y.Priority.Rank(); rx != ry {
			return ry - rx
		}
		if x.ID < y.ID {
			return -1
		}
		if x.ID > y.ID {
			return 1
		}
		return 0
	})
}

// compareDeadline sorts a missing deadline after every real one
func compareDeadline(x, y time.Time) int {
	switch {
	case x.IsZero() && y.IsZero():
		return 0
	case x.IsZero():
		return 1
	case y.IsZero():
		return -1
	}
	return x.Compare(y)
}

// readyTime returns the instant the job may start. A dependency is satisfied once it has
// committed events (ready at their latest end) or it is completed without any.
func (a *Allocator) readyTime(job models.Job, all map[string]models.Job) (time.Time, readiness) {
	var at time.Time
	for _, dep := range job.Dependencies {
		end, ok := a.dependencyEnd(dep, all)
		if !ok {
			return time.Time{}, waiting
		}
		if end.After(at) {
			at = end
		}
	}
	return at, ready
}

func (a *Allocator) dependencyEnd(dep string, all map[string]models.Job) (time.Time, bool) {
	j, known := all[dep]
	if !known || j.Status == models.StatusCancelled {
		return time.Time{}, false
	}
	events := a.store.ForJob(dep)
	if len(events) == 0 {
		return time.Time{}, j.Status == models.StatusCompleted
	}
	var end time.Time
	for _, e := range events {
		if e.EndTime.After(end) {
			end = e.EndTime
		}
	}
	return end, true
}

// place searches staff x machine candidates and commits the first feasible split
func (a *Allocator) place(job models.Job, from time.Time) (Placement, string, error) {
	existing := a.store.ForJob(job.ID)
	covered := a.covered(job.ID)
	if job.Duration() <= 0 {
		return Placement{}, "", &models.CapacityError{JobID: job.ID, Reason: "estimated hours must be positive"}
	}
	need := job.Duration() - covered
	if need <= 0 {
		a.opts.Logger.Printf("job_id=%s: job already covered by %d existing events", job.ID, len(existing))
		return Placement{JobID: job.ID}, "", nil
	}

	var staff []string
	if job.Pinned() {
		if !a.index.Known(models.StaffKey(job.AssignedTo)) {
			return Placement{}, "", &models.CapacityError{JobID: job.ID, Reason: fmt.Sprintf("pinned staff %s is not in the roster", job.AssignedTo)}
		}
		staff = []string{job.AssignedTo}
	} else {
		staff = a.matcher.EligibleStaff(job, from)
	}
	if len(staff) == 0 {
		return Placement{}, "", &models.CapacityError{JobID: job.ID, Reason: fmt.Sprintf("no staff can perform job type %q", job.JobType)}
	}

	machines := []string{""}
	if matcher.NeedsMachine(job) {
		machines = a.matcher.EligibleMachines(job, from)
		if len(machines) == 0 {
			return Placement{}, "", &models.CapacityError{JobID: job.ID, Reason: fmt.Sprintf("no operational machine supports %v", job.RequiredMachines)}
		}
	}

	to := from.Add(a.index.Horizon())
	for _, staffID := range staff {
		staffFree := a.index.FreeSegments(models.StaffKey(staffID), from, to)
		if len(staffFree) == 0 {
			continue
		}
		for _, machineID := range machines {
			free := staffFree
			if machineID != "" {
				free = availability.Intersect(staffFree, a.index.FreeSegments(models.MachineKey(machineID), from, to))
			}
			windows, ok := a.split(free, need)
			if !ok {
				continue
			}
			events := a.events(job, staffID, machineID, windows, len(existing))
			if err := a.store.InsertAll(events); err != nil {
				// the gate makes this unreachable unless the store was written behind our back
				return Placement{}, "", fmt.Errorf("failed to commit job %s: %w", job.ID, err)
			}
			a.opts.Logger.Printf("job_id=%s: job scheduled, staff_id=%s, machine_id=%s, events=%d, start=%s",
				job.ID, staffID, machineID, len(events), events[0].StartTime.Format(time.RFC3339))
			return Placement{JobID: job.ID, Events: events}, deadlineWarning(job, events), nil
		}
	}
	return Placement{}, "", &models.CapacityError{
		JobID:  job.ID,
		Reason: fmt.Sprintf("no free %s within %s of %s", need, a.index.Horizon(), from.Format(time.RFC3339)),
	}
}

// split takes free segments in order until they add up to need. Fragments shorter than
// MinSegment are skipped unless they finish the job.
func (a *Allocator) split(free []models.Interval, need time.Duration) ([]models.Interval, bool) {
	var out []models.Interval
	remaining := need
	for _, seg := range free {
		d := seg.Duration()
		if d < a.opts.MinSegment && d < remaining {
			continue
		}
		if d > remaining {
			seg.End = seg.Start.Add(remaining)
			d = remaining
		}
		out = append(out, seg)
		remaining -= d
		if remaining == 0 {
			return out, true
		}
	}
	return nil, false
}

func (a *Allocator) events(job models.Job, staffID, machineID string, windows []models.Interval, ordinal int) []models.ScheduleEvent {
	out := make([]models.ScheduleEvent, len(windows))
	for i, w := range windows {
		out[i] = models.ScheduleEvent{
			ID:              EventID(job.ID, ordinal+i, w.Start),
			JobID:           job.ID,
			StaffID:         staffID,
			MachineID:       machineID,
			StartTime:       w.Start,
			EndTime:         w.End,
			Notes:           job.Title,
			IsAutoScheduled: true,
		}
	}
	return out
}

// EventID derives a stable id from the job, the segment ordinal and its start
func EventID(jobID string, ordinal int, start time.Time) string {
	name := fmt.Sprintf("%s|%d|%s", jobID, ordinal, start.UTC().Format(time.RFC3339Nano))
	return uuid.NewSHA1(EventNamespace, []byte(name)).String()
}

func deadlineWarning(job models.Job, events []models.ScheduleEvent) string {
	if job.Deadline.IsZero() || len(events) == 0 {
		return ""
	}
	end := events[len(events)-1].EndTime
	if !end.After(job.Deadline) {
		return ""
	}
	return fmt.Sprintf("job_id=%s: placement ends %s, after deadline %s",
		job.ID, end.Format(time.RFC3339), job.Deadline.Format(time.RFC3339))
}
