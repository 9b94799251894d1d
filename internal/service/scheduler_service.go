package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"print-scheduler/internal/allocator"
	"print-scheduler/internal/availability"
	"print-scheduler/internal/calendar"
	"print-scheduler/internal/matcher"
	"print-scheduler/internal/metrics"
	"print-scheduler/internal/models"
	"print-scheduler/internal/repository"
	"print-scheduler/internal/reschedule"
	"print-scheduler/internal/store"
)

var (
	ErrInvalidJob     = errors.New("invalid job")
	ErrJobExists      = errors.New("job already exists")
	ErrJobTerminal    = errors.New("job is completed or cancelled")
	ErrInvalidRequest = errors.New("invalid request")
)

// Publisher receives committed changes after the gate is released
type Publisher interface {
	Publish(ctx context.Context, changes []models.EventChange) error
}

type Config struct {
	Location   *time.Location
	Horizon    time.Duration
	MinSegment time.Duration
	Now        func() time.Time
	Logger     *log.Logger
}

type Option func(*Service)

func WithRepository(repo repository.EventRepository) Option {
	return func(s *Service) { s.repo = repo }
}

func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithIntakeLimiter(l *IntakeLimiter) Option {
	return func(s *Service) { s.limiter = l }
}

// Report is the outcome of one scheduling operation
type Report struct {
	allocator.Result
	// Evicted lists events the operation removed, including dependents moved to keep dependency order
	Evicted []models.ScheduleEvent
}

// Service serializes every allocator run and manual store write behind one gate and
// forwards committed changes to the repository and the change stream.
type Service struct {
	gate   sync.Mutex
	sinkMu sync.Mutex

	cfg       Config
	catalog   *Catalog
	store     *store.Store
	metrics   *metrics.Metrics
	policy    reschedule.Policy
	repo      repository.EventRepository
	publisher Publisher
	limiter   *IntakeLimiter

	// dirty holds job records changed under the gate, persisted on release
	dirty map[string]models.Job

	queue *triggerQueue
}

// NewService wires the scheduling core around a catalog and a store
func NewService(catalog *Catalog, st *store.Store, m *metrics.Metrics, cfg Config, opts ...Option) *Service {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Horizon <= 0 {
		cfg.Horizon = availability.DefaultHorizon
	}
	if cfg.MinSegment <= 0 {
		cfg.MinSegment = allocator.DefaultMinSegment
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if m == nil {
		m = metrics.NewMetrics()
	}
	s := &Service{
		cfg:     cfg,
		catalog: catalog,
		store:   st,
		metrics: m,
		policy:  reschedule.Policy{Logger: cfg.Logger},
		dirty:   make(map[string]models.Job),
		queue:   newTriggerQueue(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Restore reloads persisted jobs and events. Persisted job states win over the seed catalog.
func (s *Service) Restore(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	s.gate.Lock()
	defer s.gate.Unlock()

	jobs, err := s.repo.ListJobs(ctx)
	if err != nil {
		return fmt.Errorf("failed to restore jobs: %w", err)
	}
	for _, j := range jobs {
		s.catalog.PutJob(j)
	}
	events, err := s.repo.ListEvents(ctx)
	if err != nil {
		return fmt.Errorf("failed to restore events: %w", err)
	}
	if err := s.store.Load(events); err != nil {
		return fmt.Errorf("failed to load events: %w", err)
	}
	s.cfg.Logger.Printf("restored %d jobs and %d events", len(jobs), len(events))
	return nil
}

// ScheduleJob adds a job to the backlog and runs the allocator right away
func (s *Service) ScheduleJob(ctx context.Context, job models.Job) (Report, error) {
	if err := s.admit(&job); err != nil {
		return Report{}, err
	}
	var rep Report
	err := s.locked(ctx, func() error {
		if err := s.addJob(job); err != nil {
			return err
		}
		s.cfg.Logger.Printf("job_id=%s: job submitted, client=%s, type=%s, hours=%.2f", job.ID, job.Client, job.JobType, job.EstimatedHours)
		rep.Result = s.allocate(ctx)
		return nil
	})
	return rep, err
}

// SubmitJob adds a job and leaves placement to the trigger worker
func (s *Service) SubmitJob(ctx context.Context, job models.Job) error {
	if err := s.admit(&job); err != nil {
		return err
	}
	err := s.locked(ctx, func() error {
		return s.addJob(job)
	})
	if err != nil {
		return err
	}
	s.cfg.Logger.Printf("job_id=%s: job queued, client=%s, type=%s", job.ID, job.Client, job.JobType)
	s.Trigger(reschedule.Delta{})
	return nil
}

// Run places every pending job
func (s *Service) Run(ctx context.Context) (Report, error) {
	var rep Report
	err := s.locked(ctx, func() error {
		rep.Result = s.allocate(ctx)
		return nil
	})
	return rep, err
}

// Reschedule evicts the auto events delta invalidates, then re-runs the allocator
func (s *Service) Reschedule(ctx context.Context, delta reschedule.Delta) (Report, error) {
	var rep Report
	err := s.locked(ctx, func() error {
		var err error
		rep, err = s.reschedule(ctx, delta)
		return err
	})
	return rep, err
}

// StartJob marks a job as in progress. Its events stay where they are.
func (s *Service) StartJob(ctx context.Context, id string) error {
	return s.locked(ctx, func() error {
		job, ok := s.catalog.Job(id)
		if !ok {
			return models.ErrJobNotFound
		}
		if job.Status.Terminal() {
			return fmt.Errorf("job %s: %w", id, ErrJobTerminal)
		}
		s.setStatus(id, models.StatusInProgress)
		s.cfg.Logger.Printf("job_id=%s: job started", id)
		return nil
	})
}

// CompleteJob marks a job completed and places the jobs that were waiting for it
func (s *Service) CompleteJob(ctx context.Context, id string) (Report, error) {
	var rep Report
	err := s.locked(ctx, func() error {
		job, ok := s.catalog.Job(id)
		if !ok {
			return models.ErrJobNotFound
		}
		if job.Status == models.StatusCancelled {
			return fmt.Errorf("job %s: %w", id, ErrJobTerminal)
		}
		s.setStatus(id, models.StatusCompleted)
		s.cfg.Logger.Printf("job_id=%s: job completed", id)
		rep.Result = s.allocate(ctx)
		return nil
	})
	return rep, err
}

// CancelJob cancels a job and frees its auto-scheduled events. Manual events are kept.
func (s *Service) CancelJob(ctx context.Context, id string) (Report, error) {
	var rep Report
	err := s.locked(ctx, func() error {
		job, ok := s.catalog.Job(id)
		if !ok {
			return models.ErrJobNotFound
		}
		if job.Status.Terminal() {
			return fmt.Errorf("job %s: %w", id, ErrJobTerminal)
		}
		s.setStatus(id, models.StatusCancelled)
		rep.Evicted = s.store.RemoveForJob(id, true)
		s.cfg.Logger.Printf("job_id=%s: job cancelled, freed_events=%d", id, len(rep.Evicted))
		rep.Result = s.allocate(ctx)
		return nil
	})
	return rep, err
}

// PlaceManual commits a human placement, evicting conflicting auto-scheduled jobs and
// re-queueing them. A missing id gets a random UUID.
func (s *Service) PlaceManual(ctx context.Context, e models.ScheduleEvent) (models.ScheduleEvent, Report, error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	e.IsAutoScheduled = false
	var rep Report
	err := s.locked(ctx, func() error {
		var err error
		rep, err = s.placeManual(ctx, e)
		return err
	})
	return e, rep, err
}

// MoveEvent drags an event to a new interval. The moved event becomes manual.
func (s *Service) MoveEvent(ctx context.Context, id string, start, end time.Time) (models.ScheduleEvent, Report, error) {
	var rep Report
	var moved models.ScheduleEvent
	err := s.locked(ctx, func() error {
		existing, ok := s.store.Get(id)
		if !ok {
			return models.ErrEventNotFound
		}
		moved = existing
		moved.StartTime, moved.EndTime = start, end
		moved.IsAutoScheduled = false
		var err error
		rep, err = s.placeManual(ctx, moved)
		return err
	})
	return moved, rep, err
}

// RemoveEvent deletes an event. A scheduled job left without events goes back to pending
// and is picked up by the next run.
func (s *Service) RemoveEvent(ctx context.Context, id string) error {
	return s.locked(ctx, func() error {
		e, err := s.store.Remove(id)
		if err != nil {
			return err
		}
		if job, ok := s.catalog.Job(e.JobID); ok && job.Status == models.StatusScheduled && len(s.store.ForJob(e.JobID)) == 0 {
			s.setStatus(e.JobID, models.StatusPending)
		}
		s.cfg.Logger.Printf("event_id=%s: event removed, job_id=%s", id, e.JobID)
		return nil
	})
}

// UpdateStaff replaces a roster entry and reschedules what its new availability breaks
func (s *Service) UpdateStaff(ctx context.Context, member models.StaffMember) (Report, error) {
	if member.ID == "" {
		return Report{}, fmt.Errorf("%w: staff id is required", ErrInvalidRequest)
	}
	if err := validateWindows(member.Availability); err != nil {
		return Report{}, err
	}
	var rep Report
	err := s.locked(ctx, func() error {
		s.catalog.PutStaff(member)
		var err error
		rep, err = s.reschedule(ctx, reschedule.Delta{Staff: []string{member.ID}})
		return err
	})
	return rep, err
}

func (s *Service) RemoveStaff(ctx context.Context, id string) (Report, error) {
	var rep Report
	err := s.locked(ctx, func() error {
		if !s.catalog.RemoveStaff(id) {
			return models.ErrStaffNotFound
		}
		var err error
		rep, err = s.reschedule(ctx, reschedule.Delta{Staff: []string{id}})
		return err
	})
	return rep, err
}

// ApplyDefaultHours sets the same weekly windows on every staff member as one catalog
// update followed by a single reschedule pass
func (s *Service) ApplyDefaultHours(ctx context.Context, windows []models.WeeklyWindow) (Report, error) {
	if err := validateWindows(windows); err != nil {
		return Report{}, err
	}
	var rep Report
	err := s.locked(ctx, func() error {
		ids := s.catalog.SetDefaultAvailability(windows)
		s.cfg.Logger.Printf("default hours applied to %d staff members", len(ids))
		var err error
		rep, err = s.reschedule(ctx, reschedule.Delta{Staff: ids})
		return err
	})
	return rep, err
}

func (s *Service) UpdateMachine(ctx context.Context, m models.Machine) (Report, error) {
	if m.ID == "" {
		return Report{}, fmt.Errorf("%w: machine id is required", ErrInvalidRequest)
	}
	if m.Status == "" {
		m.Status = models.MachineOperational
	}
	var rep Report
	err := s.locked(ctx, func() error {
		s.catalog.PutMachine(m)
		var err error
		rep, err = s.reschedule(ctx, reschedule.Delta{Machines: []string{m.ID}})
		return err
	})
	return rep, err
}

// SetMachineStatus takes a machine offline or into maintenance, or brings it back
func (s *Service) SetMachineStatus(ctx context.Context, id string, status models.MachineStatus) (Report, error) {
	switch status {
	case models.MachineOperational, models.MachineMaintenance, models.MachineOffline:
	default:
		return Report{}, fmt.Errorf("%w: unknown machine status %q", ErrInvalidRequest, status)
	}
	var rep Report
	err := s.locked(ctx, func() error {
		m, ok := s.catalog.Machine(id)
		if !ok {
			return models.ErrMachineNotFound
		}
		m.Status = status
		s.catalog.PutMachine(m)
		s.cfg.Logger.Printf("machine_id=%s: status changed to %s", id, status)
		var err error
		rep, err = s.reschedule(ctx, reschedule.Delta{Machines: []string{id}})
		return err
	})
	return rep, err
}

func (s *Service) RemoveMachine(ctx context.Context, id string) (Report, error) {
	var rep Report
	err := s.locked(ctx, func() error {
		if !s.catalog.RemoveMachine(id) {
			return models.ErrMachineNotFound
		}
		var err error
		rep, err = s.reschedule(ctx, reschedule.Delta{Machines: []string{id}})
		return err
	})
	return rep, err
}

// UpdateBusinessHours validates and installs a new calendar, then rechecks every event
func (s *Service) UpdateBusinessHours(ctx context.Context, cfg models.BusinessHoursConfig) (Report, error) {
	if _, err := calendar.NewClock(cfg, s.cfg.Location); err != nil {
		return Report{}, fmt.Errorf("%w: business hours: %v", ErrInvalidRequest, err)
	}
	var rep Report
	err := s.locked(ctx, func() error {
		s.catalog.SetBusinessHours(cfg)
		var err error
		rep, err = s.reschedule(ctx, reschedule.All())
		return err
	})
	return rep, err
}

// NextFreeSlot answers "when could this resource take duration" against the live schedule
func (s *Service) NextFreeSlot(key models.ResourceKey, notBefore time.Time, duration time.Duration) (models.Interval, bool, error) {
	ix, err := s.index(s.catalog.Snapshot())
	if err != nil {
		return models.Interval{}, false, err
	}
	if !ix.Known(key) {
		if key.Kind == models.KindMachine {
			return models.Interval{}, false, models.ErrMachineNotFound
		}
		return models.Interval{}, false, models.ErrStaffNotFound
	}
	slot, ok := ix.NextFreeSlot(key, notBefore, duration)
	return slot, ok, nil
}

func (s *Service) Events() []models.ScheduleEvent {
	return s.store.List()
}

func (s *Service) EventsForJob(jobID string) []models.ScheduleEvent {
	return s.store.ForJob(jobID)
}

func (s *Service) Event(id string) (models.ScheduleEvent, bool) {
	return s.store.Get(id)
}

func (s *Service) Jobs() []models.Job {
	return s.catalog.Snapshot().Jobs
}

func (s *Service) Job(id string) (models.Job, bool) {
	return s.catalog.Job(id)
}

func (s *Service) Metrics() map[string]int64 {
	return s.metrics.GetSnapshot()
}

// locked runs fn under the gate, then forwards what it committed once the gate is released.
// sinkMu keeps batches in commit order.
func (s *Service) locked(ctx context.Context, fn func() error) error {
	s.gate.Lock()
	err := fn()
	changes := s.store.Drain()
	jobs := make([]models.Job, 0, len(s.dirty))
	for _, j := range s.dirty {
		jobs = append(jobs, j)
	}
	s.dirty = make(map[string]models.Job)
	s.sinkMu.Lock()
	s.gate.Unlock()

	defer s.sinkMu.Unlock()
	s.forward(context.WithoutCancel(ctx), changes, jobs)
	return err
}

// forward never fails the operation; the store is authoritative and a sink can catch up
// from the next batch or a restore
func (s *Service) forward(ctx context.Context, changes []models.EventChange, jobs []models.Job) {
	var created, removed int
	for _, c := range changes {
		switch c.Op {
		case models.ChangeCreate:
			created++
		case models.ChangeDelete:
			removed++
		}
	}
	s.metrics.AddEventsCreated(created)
	s.metrics.AddEventsRemoved(removed)

	if s.repo != nil {
		if err := s.repo.ApplyChanges(ctx, changes); err != nil {
			s.cfg.Logger.Printf("error persisting %d changes: %v", len(changes), err)
		}
		for _, j := range jobs {
			if err := s.repo.UpsertJob(ctx, j); err != nil {
				s.cfg.Logger.Printf("job_id=%s: error persisting job: %v", j.ID, err)
			}
		}
	}
	if s.publisher != nil && len(changes) > 0 {
		if err := s.publisher.Publish(ctx, changes); err != nil {
			s.cfg.Logger.Printf("error publishing %d changes: %v", len(changes), err)
		}
	}
}

func (s *Service) admit(job *models.Job) error {
	if err := validateJob(job); err != nil {
		return err
	}
	if s.limiter != nil {
		if err := s.limiter.Allow(job.Client); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) addJob(job models.Job) error {
	if existing, ok := s.catalog.Job(job.ID); ok && existing.Status != models.StatusPending {
		return fmt.Errorf("job %s: %w", job.ID, ErrJobExists)
	}
	s.catalog.PutJob(job)
	s.dirty[job.ID] = job
	return nil
}

func (s *Service) setStatus(id string, status models.JobStatus) {
	if j, ok := s.catalog.SetJobStatus(id, status); ok {
		s.dirty[id] = j
	}
}

// requeue sends scheduled jobs that lost auto events back to pending. An in-progress job keeps
// its status; the allocator re-places its uncovered hours and the caller gets a warning.
func (s *Service) requeue(jobIDs []string) []string {
	var warnings []string
	for _, id := range jobIDs {
		job, ok := s.catalog.Job(id)
		if !ok {
			continue
		}
		switch job.Status {
		case models.StatusScheduled:
			s.setStatus(id, models.StatusPending)
			s.cfg.Logger.Printf("job_id=%s: job re-queued", id)
		case models.StatusInProgress:
			warnings = append(warnings, fmt.Sprintf("job_id=%s: in-progress job lost events, re-placing its remaining hours", id))
			s.cfg.Logger.Printf("job_id=%s: in-progress job lost events", id)
		}
	}
	return warnings
}

func (s *Service) index(snap Snapshot) (*availability.Index, error) {
	clock, err := calendar.NewClock(snap.Hours, s.cfg.Location)
	if err != nil {
		return nil, fmt.Errorf("failed to build calendar: %w", err)
	}
	return availability.NewIndex(clock, snap.Staff, snap.Machines, s.store, availability.WithHorizon(s.cfg.Horizon)), nil
}

// allocate runs the allocator over a fresh snapshot. The gate must be held.
func (s *Service) allocate(ctx context.Context) allocator.Result {
	snap := s.catalog.Snapshot()
	ix, err := s.index(snap)
	if err != nil {
		return allocator.Result{Errors: []error{err}}
	}
	m := matcher.New(ix.Clock(), snap.Staff, snap.Machines, s.store)
	alloc := allocator.New(s.store, ix, m, allocator.Options{
		Now:        s.cfg.Now,
		MinSegment: s.cfg.MinSegment,
		Logger:     s.cfg.Logger,
	})

	res := alloc.Run(ctx, snap.Jobs)
	for _, p := range res.Placements {
		if j, ok := s.catalog.Job(p.JobID); ok && j.Status == models.StatusPending {
			s.setStatus(p.JobID, models.StatusScheduled)
		}
	}

	s.metrics.IncrementRuns(res.Aborted)
	s.metrics.AddScheduledJobs(len(res.Placements))
	s.metrics.AddWarnings(len(res.Warnings))
	for _, err := range res.Errors {
		var capErr *models.CapacityError
		var depErr *models.DependencyCycleError
		switch {
		case errors.As(err, &capErr):
			s.metrics.AddUnschedulableJobs(1)
		case errors.As(err, &depErr):
			s.metrics.AddBlockedJobs(len(depErr.JobIDs))
		}
	}
	s.cfg.Logger.Printf("allocator run finished: placed=%d, errors=%d, warnings=%d, passes=%d, aborted=%t",
		len(res.Placements), len(res.Errors), len(res.Warnings), res.Passes, res.Aborted)
	return res
}

func (s *Service) reschedule(ctx context.Context, delta reschedule.Delta) (Report, error) {
	var rep Report
	var decision reschedule.Decision
	if !delta.Empty() {
		ix, err := s.index(s.catalog.Snapshot())
		if err != nil {
			return rep, err
		}
		decision = s.policy.Evaluate(delta, ix, s.store.List())
		rep.Evicted = s.store.RemoveMany(decision.Evict)
		s.metrics.AddEvictions(len(rep.Evicted))
		decision.Warnings = append(decision.Warnings, s.requeue(decision.Requeue)...)
		s.metrics.AddWarnings(len(decision.Warnings))
	}
	rep.Result = s.allocate(ctx)
	rep.Warnings = append(decision.Warnings, rep.Warnings...)
	s.settle(ctx, &rep)
	return rep, nil
}

// settle restores dependency order after re-placement: a dependency moved later evicts the
// auto events of its dependents that now start too early, and the allocator places them again.
// Each round pushes the violation one level down the dependency graph.
func (s *Service) settle(ctx context.Context, rep *Report) {
	rounds := len(s.catalog.Snapshot().Jobs)
	for i := 0; i <= rounds; i++ {
		d := s.policy.Dependencies(s.catalog.Snapshot().Jobs, s.store.List())
		if len(d.Evict) == 0 {
			rep.Warnings = append(rep.Warnings, d.Warnings...)
			s.metrics.AddWarnings(len(d.Warnings))
			return
		}
		evicted := s.store.RemoveMany(d.Evict)
		rep.Evicted = append(rep.Evicted, evicted...)
		s.metrics.AddEvictions(len(evicted))
		warnings := s.requeue(d.Requeue)
		s.metrics.AddWarnings(len(warnings))
		rep.Warnings = append(rep.Warnings, warnings...)

		res := s.allocate(ctx)
		rep.Placements = append(rep.Placements, res.Placements...)
		rep.Warnings = append(rep.Warnings, res.Warnings...)
		rep.Errors = res.Errors
		rep.Passes += res.Passes
		rep.Aborted = rep.Aborted || res.Aborted
		if res.Aborted {
			return
		}
	}
	s.cfg.Logger.Printf("dependency repair stopped after %d rounds", rounds+1)
}

func (s *Service) placeManual(ctx context.Context, e models.ScheduleEvent) (Report, error) {
	var rep Report
	job, ok := s.catalog.Job(e.JobID)
	if !ok {
		return rep, models.ErrJobNotFound
	}
	if job.Status.Terminal() {
		return rep, fmt.Errorf("job %s: %w", e.JobID, ErrJobTerminal)
	}
	if e.StaffID != "" {
		if _, ok := s.catalog.Staff(e.StaffID); !ok {
			return rep, models.ErrStaffNotFound
		}
	}
	if e.MachineID != "" {
		if _, ok := s.catalog.Machine(e.MachineID); !ok {
			return rep, models.ErrMachineNotFound
		}
	}

	evicted, err := s.store.PlaceManual(e)
	if err != nil {
		var conflict *models.ConflictError
		if errors.As(err, &conflict) {
			s.metrics.IncrementRejectedConflicts()
		}
		return rep, err
	}
	rep.Evicted = evicted
	s.metrics.AddEvictions(len(evicted))

	seen := map[string]bool{}
	var jobs []string
	for _, ev := range evicted {
		if !seen[ev.JobID] {
			seen[ev.JobID] = true
			jobs = append(jobs, ev.JobID)
		}
	}
	warnings := s.requeue(jobs)
	s.metrics.AddWarnings(len(warnings))
	s.cfg.Logger.Printf("event_id=%s: manual placement committed, job_id=%s, evicted=%d", e.ID, e.JobID, len(evicted))

	rep.Result = s.allocate(ctx)
	rep.Warnings = append(warnings, rep.Warnings...)
	s.settle(ctx, &rep)
	return rep, nil
}

func validateJob(j *models.Job) error {
	if j.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidJob)
	}
	if j.JobType == "" {
		return fmt.Errorf("%w: job_type is required", ErrInvalidJob)
	}
	if j.Duration() <= 0 {
		return fmt.Errorf("%w: estimated_hours must be positive", ErrInvalidJob)
	}
	if j.Status == "" {
		j.Status = models.StatusPending
	}
	if !j.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidJob, j.Status)
	}
	switch j.Priority {
	case "":
		j.Priority = models.PriorityMedium
	case models.PriorityLow, models.PriorityMedium, models.PriorityHigh, models.PriorityUrgent:
	default:
		return fmt.Errorf("%w: unknown priority %q", ErrInvalidJob, j.Priority)
	}
	return nil
}

func validateWindows(windows []models.WeeklyWindow) error {
	for _, w := range windows {
		start, err := models.ParseClock(w.Start)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		end, err := models.ParseClock(w.End)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		if end <= start {
			return fmt.Errorf("%w: %s window: end %s is not after start %s", ErrInvalidRequest, w.Weekday, w.End, w.Start)
		}
	}
	return nil
}
