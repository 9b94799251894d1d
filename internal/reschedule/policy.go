// Package reschedule decides which committed events an availability change invalidates.
package reschedule

import (
	"fmt"
	"log"
	"sort"
	"time"

	"print-scheduler/internal/availability"
	"print-scheduler/internal/models"
)

// Delta names what changed. Events on untouched resources are not re-checked unless the
// business calendar itself changed.
type Delta struct {
	Staff         []string
	Machines      []string
	BusinessHours bool
}

// All is the delta of a full rescan
func All() Delta {
	return Delta{BusinessHours: true}
}

func (d Delta) Empty() bool {
	return !d.BusinessHours && len(d.Staff) == 0 && len(d.Machines) == 0
}

func (d Delta) touches(e models.ScheduleEvent) bool {
	if d.BusinessHours {
		return true
	}
	for _, id := range d.Staff {
		if e.StaffID == id {
			return true
		}
	}
	for _, id := range d.Machines {
		if e.MachineID == id {
			return true
		}
	}
	return false
}

// Decision is what the service applies: evict, then re-run the allocator for Requeue
type Decision struct {
	Evict    []string
	Requeue  []string
	Warnings []string
}

type Policy struct {
	Logger *log.Logger
}

// Evaluate checks the events touched by delta against the new catalog snapshot held by ix.
// Only the invalid auto events are evicted; their jobs are requeued so the allocator can
// re-place the missing hours. Manual events are never evicted; they produce warnings.
func (p Policy) Evaluate(delta Delta, ix *availability.Index, events []models.ScheduleEvent) Decision {
	logger := p.logger()

	var d Decision
	jobs := map[string]struct{}{}
	for _, e := range events {
		if !delta.touches(e) {
			continue
		}
		reason, ok := violation(ix, e)
		if ok {
			continue
		}
		if !e.IsAutoScheduled {
			d.Warnings = append(d.Warnings, fmt.Sprintf("event_id=%s: manual event for job %s %s", e.ID, e.JobID, reason))
			continue
		}
		logger.Printf("event_id=%s: auto event invalidated, job_id=%s, reason: %s", e.ID, e.JobID, reason)
		d.Evict = append(d.Evict, e.ID)
		jobs[e.JobID] = struct{}{}
	}
	d.finish(jobs)
	return d
}

// Dependencies finds committed jobs that now start before one of their dependencies ends.
// That happens after a dependency was evicted and re-placed later. Auto events of the
// dependent that start before the dependency's latest end are evicted and the job requeued;
// a manual event in the same position only warns. Completed and cancelled jobs are skipped,
// as are cancelled dependencies.
func (p Policy) Dependencies(jobs []models.Job, events []models.ScheduleEvent) Decision {
	logger := p.logger()

	byJob := make(map[string][]models.ScheduleEvent)
	for _, e := range events {
		byJob[e.JobID] = append(byJob[e.JobID], e)
	}
	status := make(map[string]models.JobStatus, len(jobs))
	for _, j := range jobs {
		status[j.ID] = j.Status
	}

	var d Decision
	requeue := map[string]struct{}{}
	for _, j := range jobs {
		if j.Status.Terminal() || len(byJob[j.ID]) == 0 {
			continue
		}
		var readyAt time.Time
		var blocker string
		for _, dep := range j.Dependencies {
			if status[dep] == models.StatusCancelled {
				continue
			}
			for _, e := range byJob[dep] {
				if e.EndTime.After(readyAt) {
					readyAt, blocker = e.EndTime, dep
				}
			}
		}
		if blocker == "" {
			continue
		}
		for _, e := range byJob[j.ID] {
			if !e.StartTime.Before(readyAt) {
				continue
			}
			if !e.IsAutoScheduled {
				d.Warnings = append(d.Warnings, fmt.Sprintf("event_id=%s: manual event for job %s starts before dependency %s ends at %s",
					e.ID, j.ID, blocker, readyAt.Format(time.RFC3339)))
				continue
			}
			logger.Printf("event_id=%s: auto event starts before dependency %s ends, job_id=%s", e.ID, blocker, j.ID)
			d.Evict = append(d.Evict, e.ID)
			requeue[j.ID] = struct{}{}
		}
	}
	d.finish(requeue)
	return d
}

func (d *Decision) finish(jobs map[string]struct{}) {
	for id := range jobs {
		d.Requeue = append(d.Requeue, id)
	}
	sort.Strings(d.Evict)
	sort.Strings(d.Requeue)
}

func (p Policy) logger() *log.Logger {
	if p.Logger == nil {
		return log.Default()
	}
	return p.Logger
}

// violation returns why e no longer fits, ok=true when it still does
func violation(ix *availability.Index, e models.ScheduleEvent) (string, bool) {
	for _, key := range e.Resources() {
		if !ix.Known(key) {
			return fmt.Sprintf("references %s which no longer exists", key), false
		}
		if !ix.Permits(key, e.Interval()) {
			return fmt.Sprintf("is no longer allowed on %s at %s", key, e.Interval()), false
		}
	}
	return "", true
}
