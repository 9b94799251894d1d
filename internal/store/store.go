// Package store holds the authoritative in-memory table of schedule events.
package store

import (
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"print-scheduler/internal/availability"
	"print-scheduler/internal/models"
)

// Store owns every ScheduleEvent. Each write is atomic: readers observe the state before or
// after it, never in between. The per-resource timelines enforce the no-overlap invariant.
type Store struct {
	mu        sync.RWMutex
	events    map[string]models.ScheduleEvent
	byJob     map[string]map[string]struct{}
	timelines map[models.ResourceKey]*availability.Timeline
	outbox    []models.EventChange
	now       func() time.Time
}

// New creates an empty store
func New() *Store {
	return &Store{
		events:    make(map[string]models.ScheduleEvent),
		byJob:     make(map[string]map[string]struct{}),
		timelines: make(map[models.ResourceKey]*availability.Timeline),
		now:       time.Now,
	}
}

// Load replaces the contents with a restored snapshot. No changes are recorded.
func (s *Store) Load(events []models.ScheduleEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = make(map[string]models.ScheduleEvent, len(events))
	s.byJob = make(map[string]map[string]struct{})
	s.timelines = make(map[models.ResourceKey]*availability.Timeline)
	s.outbox = nil
	for _, e := range events {
		if err := s.checkInsert(e, ""); err != nil {
			return fmt.Errorf("failed to restore event %s: %w", e.ID, err)
		}
		s.put(e)
	}
	return nil
}

// Insert commits one event, rejecting overlaps with ConflictError
func (s *Store) Insert(e models.ScheduleEvent) error {
	return s.InsertAll([]models.ScheduleEvent{e})
}

// InsertAll commits all events or none of them
func (s *Store) InsertAll(events []models.ScheduleEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var done []models.ScheduleEvent
	for _, e := range events {
		if err := s.checkInsert(e, ""); err != nil {
			for _, d := range done {
				s.drop(d.ID)
			}
			return err
		}
		s.put(e)
		done = append(done, e)
	}
	for _, e := range done {
		s.record(models.ChangeCreate, e)
	}
	return nil
}

// Remove deletes an event by id
func (s *Store) Remove(id string) (models.ScheduleEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[id]
	if !ok {
		return models.ScheduleEvent{}, models.ErrEventNotFound
	}
	s.drop(id)
	s.record(models.ChangeDelete, e)
	return e, nil
}

// RemoveMany deletes the listed events, skipping unknown ids
func (s *Store) RemoveMany(ids []string) []models.ScheduleEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.ScheduleEvent
	for _, id := range ids {
		e, ok := s.events[id]
		if !ok {
			continue
		}
		s.drop(id)
		s.record(models.ChangeDelete, e)
		out = append(out, e)
	}
	return out
}

// RemoveForJob deletes the job's events. With autoOnly, manual events are kept.
func (s *Store) RemoveForJob(jobID string, autoOnly bool) []models.ScheduleEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeForJob(jobID, autoOnly)
}

// Move relocates an event as one atomic remove+insert
func (s *Store) Move(id string, start, end time.Time) (models.ScheduleEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.events[id]
	if !ok {
		return models.ScheduleEvent{}, models.ErrEventNotFound
	}
	moved := old
	moved.StartTime, moved.EndTime = start, end
	if err := s.checkInsert(moved, id); err != nil {
		return models.ScheduleEvent{}, err
	}
	s.drop(id)
	s.put(moved)
	s.record(models.ChangeUpdate, moved)
	return moved, nil
}

// PlaceManual commits a human placement. An existing event with the same id is replaced.
// Auto-scheduled events in the way are evicted together with every other auto event of
// their job; a clash with another manual event is a ConflictError and changes nothing.
func (s *Store) PlaceManual(e models.ScheduleEvent) ([]models.ScheduleEvent, error) {
	e.IsAutoScheduled = false
	if err := validate(e); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	victims := map[string]struct{}{}
	for _, key := range e.Resources() {
		tl, ok := s.timelines[key]
		if !ok {
			continue
		}
		for _, entry := range tl.Overlapping(e.Interval()) {
			if entry.Owner == e.ID {
				continue
			}
			other := s.events[entry.Owner]
			if !other.IsAutoScheduled {
				return nil, &models.ConflictError{Resource: key, EventID: e.ID, ConflictsWith: other.ID, Interval: e.Interval()}
			}
			victims[other.JobID] = struct{}{}
		}
	}

	jobs := make([]string, 0, len(victims))
	for jobID := range victims {
		jobs = append(jobs, jobID)
	}
	sort.Strings(jobs)

	var evicted []models.ScheduleEvent
	for _, jobID := range jobs {
		for _, ev := range s.removeForJob(jobID, true) {
			if ev.ID != e.ID {
				evicted = append(evicted, ev)
			}
		}
	}

	op := models.ChangeCreate
	if _, exists := s.events[e.ID]; exists {
		op = models.ChangeUpdate
		s.drop(e.ID)
	}
	if err := s.checkInsert(e, ""); err != nil {
		// unreachable once every overlapping event is gone
		return evicted, err
	}
	s.put(e)
	s.record(op, e)
	return evicted, nil
}

// Get returns one event
func (s *Store) Get(id string) (models.ScheduleEvent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[id]
	return e, ok
}

// List returns every event ordered by start time, then id
func (s *Store) List() []models.ScheduleEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.ScheduleEvent, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e)
	}
	sortEvents(out)
	return out
}

// ForJob returns the job's events in chronological order
func (s *Store) ForJob(jobID string) []models.ScheduleEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.ScheduleEvent, 0, len(s.byJob[jobID]))
	for id := range s.byJob[jobID] {
		out = append(out, s.events[id])
	}
	sortEvents(out)
	return out
}

// Busy implements availability.BookingSource with a copy of the booked intervals
func (s *Store) Busy(key models.ResourceKey, within models.Interval) []models.Interval {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tl, ok := s.timelines[key]
	if !ok {
		return nil
	}
	return tl.Intervals(within)
}

// BookedHours sums the booked time of a resource inside within
func (s *Store) BookedHours(key models.ResourceKey, within models.Interval) time.Duration {
	var total time.Duration
	for _, b := range s.Busy(key, within) {
		if iv, ok := b.Intersect(within); ok {
			total += iv.Duration()
		}
	}
	return total
}

// Drain hands over the changes recorded since the last call
func (s *Store) Drain() []models.EventChange {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.outbox
	s.outbox = nil
	return out
}

func validate(e models.ScheduleEvent) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if e.ID == "" || e.JobID == "" {
		return fmt.Errorf("event requires id and job id")
	}
	return nil
}

func (s *Store) checkInsert(e models.ScheduleEvent, skip string) error {
	if err := validate(e); err != nil {
		return err
	}
	if _, exists := s.events[e.ID]; exists && e.ID != skip {
		return fmt.Errorf("event %s: %w", e.ID, models.ErrEventExists)
	}
	for _, key := range e.Resources() {
		tl, ok := s.timelines[key]
		if !ok {
			continue
		}
		if c, clash := tl.Conflict(e.Interval(), skip); clash {
			return &models.ConflictError{Resource: key, EventID: e.ID, ConflictsWith: c.Owner, Interval: e.Interval()}
		}
	}
	return nil
}

// put assumes checkInsert passed
func (s *Store) put(e models.ScheduleEvent) {
	s.events[e.ID] = e
	if s.byJob[e.JobID] == nil {
		s.byJob[e.JobID] = make(map[string]struct{})
	}
	s.byJob[e.JobID][e.ID] = struct{}{}
	for _, key := range e.Resources() {
		tl, ok := s.timelines[key]
		if !ok {
			tl = availability.NewTimeline()
			s.timelines[key] = tl
		}
		tl.Insert(e.Interval(), e.ID)
	}
}

func (s *Store) drop(id string) {
	e, ok := s.events[id]
	if !ok {
		return
	}
	delete(s.events, id)
	if ids := s.byJob[e.JobID]; ids != nil {
		delete(ids, id)
		if len(ids) == 0 {
			delete(s.byJob, e.JobID)
		}
	}
	for _, key := range e.Resources() {
		if tl, ok := s.timelines[key]; ok {
			tl.Remove(e.Interval(), id)
			if tl.Len() == 0 {
				delete(s.timelines, key)
			}
		}
	}
}

func (s *Store) removeForJob(jobID string, autoOnly bool) []models.ScheduleEvent {
	var out []models.ScheduleEvent
	for id := range s.byJob[jobID] {
		e := s.events[id]
		if autoOnly && !e.IsAutoScheduled {
			continue
		}
		out = append(out, e)
	}
	sortEvents(out)
	for _, e := range out {
		s.drop(e.ID)
		s.record(models.ChangeDelete, e)
	}
	return out
}

func (s *Store) record(op models.ChangeOp, e models.ScheduleEvent) {
	s.outbox = append(s.outbox, models.EventChange{Op: op, Event: e, At: s.now()})
}

func sortEvents(events []models.ScheduleEvent) {
	slices.SortFunc(events, func(a, b models.ScheduleEvent) int {
		if c := a.StartTime.Compare(b.StartTime); c != 0 {
			return c
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
}
