package metrics

import (
	"sync"
)

// Metrics tracks scheduler counters
type Metrics struct {
	mu sync.RWMutex

	runs              int64
	abortedRuns       int64
	scheduledJobs     int64
	unschedulableJobs int64
	blockedJobs       int64
	eventsCreated     int64
	eventsRemoved     int64
	evictions         int64
	rejectedConflicts int64
	warnings          int64
}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	return &Metrics{}
}

// IncrementRuns counts one allocator run, aborted or not
func (m *Metrics) IncrementRuns(aborted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs++
	if aborted {
		m.abortedRuns++
	}
}

// AddScheduledJobs adds jobs that reached the scheduled state
func (m *Metrics) AddScheduledJobs(n int) {
	m.add(&m.scheduledJobs, n)
}

// AddUnschedulableJobs adds jobs that hit a CapacityError
func (m *Metrics) AddUnschedulableJobs(n int) {
	m.add(&m.unschedulableJobs, n)
}

// AddBlockedJobs adds jobs left waiting on dependencies
func (m *Metrics) AddBlockedJobs(n int) {
	m.add(&m.blockedJobs, n)
}

// AddEventsCreated adds committed event inserts
func (m *Metrics) AddEventsCreated(n int) {
	m.add(&m.eventsCreated, n)
}

// AddEventsRemoved adds committed event deletes
func (m *Metrics) AddEventsRemoved(n int) {
	m.add(&m.eventsRemoved, n)
}

// AddEvictions adds auto events displaced by manual placements or availability changes
func (m *Metrics) AddEvictions(n int) {
	m.add(&m.evictions, n)
}

// IncrementRejectedConflicts counts a write refused with ConflictError
func (m *Metrics) IncrementRejectedConflicts() {
	m.add(&m.rejectedConflicts, 1)
}

// AddWarnings adds deadline and manual-event warnings
func (m *Metrics) AddWarnings(n int) {
	m.add(&m.warnings, n)
}

func (m *Metrics) add(counter *int64, n int) {
	if n <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	*counter += int64(n)
}

// GetSnapshot returns a snapshot of all metrics
func (m *Metrics) GetSnapshot() map[string]int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]int64{
		"runs":               m.runs,
		"aborted_runs":       m.abortedRuns,
		"scheduled_jobs":     m.scheduledJobs,
		"unschedulable_jobs": m.unschedulableJobs,
		"blocked_jobs":       m.blockedJobs,
		"events_created":     m.eventsCreated,
		"events_removed":     m.eventsRemoved,
		"evictions":          m.evictions,
		"rejected_conflicts": m.rejectedConflicts,
		"warnings":           m.warnings,
	}
}
