package service

import (
	"context"
	"errors"
	"io"
	"log"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"print-scheduler/internal/metrics"
	"print-scheduler/internal/models"
	"print-scheduler/internal/store"
)

// October 2026: the 12th is a Monday
func at(day, hour, min int) time.Time {
	return time.Date(2026, 10, day, hour, min, 0, 0, time.UTC)
}

type fakeRepository struct {
	mu      sync.Mutex
	changes []models.EventChange
	jobs    map[string]models.Job
	events  []models.ScheduleEvent
	seed    []models.Job
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{jobs: make(map[string]models.Job)}
}

func (r *fakeRepository) ApplyChanges(ctx context.Context, changes []models.EventChange) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, changes...)
	return nil
}

func (r *fakeRepository) ListEvents(ctx context.Context) ([]models.ScheduleEvent, error) {
	return r.events, nil
}

func (r *fakeRepository) UpsertJob(ctx context.Context, job models.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = job
	return nil
}

func (r *fakeRepository) ListJobs(ctx context.Context) ([]models.Job, error) {
	return r.seed, nil
}

func (r *fakeRepository) Close() error { return nil }

type fakePublisher struct {
	mu      sync.Mutex
	batches [][]models.EventChange
	err     error
}

func (p *fakePublisher) Publish(ctx context.Context, changes []models.EventChange) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.batches = append(p.batches, changes)
	return p.err
}

func offsetStaff(ids ...string) []models.StaffMember {
	out := make([]models.StaffMember, len(ids))
	for i, id := range ids {
		out[i] = models.StaffMember{ID: id, Name: "Operator " + id, Skills: []string{"offset"}}
	}
	return out
}

func newTestService(t *testing.T, staff []models.StaffMember, machines []models.Machine, opts ...Option) *Service {
	t.Helper()
	catalog := NewCatalog(models.StandardWeek("08:00", "17:00"), staff, machines, nil)
	return NewService(catalog, store.New(), metrics.NewMetrics(), Config{
		Location: time.UTC,
		Now:      func() time.Time { return at(12, 7, 0) },
		Logger:   log.New(io.Discard, "", 0),
	}, opts...)
}

func offsetJob(id string, hours float64) models.Job {
	return models.Job{
		ID:             id,
		Title:          "Brochure " + id,
		Client:         "acme",
		JobType:        "offset",
		Deadline:       at(16, 17, 0),
		EstimatedHours: hours,
	}
}

func onlyEvent(t *testing.T, svc *Service, jobID string) models.ScheduleEvent {
	t.Helper()
	events := svc.EventsForJob(jobID)
	if len(events) != 1 {
		t.Fatalf("expected 1 event for %s, got %d", jobID, len(events))
	}
	return events[0]
}

func TestScheduleJob_PlacesAndMarksScheduled(t *testing.T) {
	repo := newFakeRepository()
	pub := &fakePublisher{}
	svc := newTestService(t, offsetStaff("s1"), nil, WithRepository(repo), WithPublisher(pub))

	rep, err := svc.ScheduleJob(context.Background(), offsetJob("a", 4))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(rep.Placements) != 1 {
		t.Fatalf("expected 1 placement, got %d", len(rep.Placements))
	}

	e := onlyEvent(t, svc, "a")
	if e.StaffID != "s1" || !e.StartTime.Equal(at(12, 8, 0)) || !e.EndTime.Equal(at(12, 12, 0)) {
		t.Errorf("unexpected event %+v", e)
	}
	job, _ := svc.Job("a")
	if job.Status != models.StatusScheduled || job.Priority != models.PriorityMedium {
		t.Errorf("expected scheduled job with default priority, got %s/%s", job.Status, job.Priority)
	}

	if len(repo.changes) != 1 || repo.changes[0].Op != models.ChangeCreate {
		t.Errorf("expected one persisted create, got %+v", repo.changes)
	}
	if repo.jobs["a"].Status != models.StatusScheduled {
		t.Errorf("expected persisted job status scheduled, got %s", repo.jobs["a"].Status)
	}
	if len(pub.batches) != 1 {
		t.Errorf("expected one published batch, got %d", len(pub.batches))
	}
	if got := svc.Metrics()["events_created"]; got != 1 {
		t.Errorf("expected events_created=1, got %d", got)
	}
}

func TestScheduleJob_Validation(t *testing.T) {
	svc := newTestService(t, offsetStaff("s1"), nil)

	bad := offsetJob("a", 0)
	if _, err := svc.ScheduleJob(context.Background(), bad); !errors.Is(err, ErrInvalidJob) {
		t.Errorf("expected ErrInvalidJob for zero hours, got %v", err)
	}
	bad = offsetJob("", 1)
	if _, err := svc.ScheduleJob(context.Background(), bad); !errors.Is(err, ErrInvalidJob) {
		t.Errorf("expected ErrInvalidJob for missing id, got %v", err)
	}

	if _, err := svc.ScheduleJob(context.Background(), offsetJob("a", 1)); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, err := svc.ScheduleJob(context.Background(), offsetJob("a", 1)); !errors.Is(err, ErrJobExists) {
		t.Errorf("expected ErrJobExists for scheduled duplicate, got %v", err)
	}
}

func TestScheduleJob_IntakeLimit(t *testing.T) {
	svc := newTestService(t, offsetStaff("s1"), nil, WithIntakeLimiter(NewIntakeLimiter(1)))

	if _, err := svc.ScheduleJob(context.Background(), offsetJob("a", 1)); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, err := svc.ScheduleJob(context.Background(), offsetJob("b", 1)); err != ErrRateLimitExceeded {
		t.Errorf("expected rate limit error, got %v", err)
	}
	if _, ok := svc.Job("b"); ok {
		t.Error("expected rejected job not to enter the catalog")
	}
}

func TestUpdateStaff_VacationMovesJobToColleague(t *testing.T) {
	svc := newTestService(t, offsetStaff("s1", "s2"), nil)
	ctx := context.Background()

	if _, err := svc.ScheduleJob(ctx, offsetJob("a", 4)); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if e := onlyEvent(t, svc, "a"); e.StaffID != "s1" {
		t.Fatalf("expected a on s1 first, got %s", e.StaffID)
	}

	away := offsetStaff("s1")[0]
	away.BlockedTimes = []models.Interval{{Start: at(12, 0, 0), End: at(13, 0, 0)}}
	rep, err := svc.UpdateStaff(ctx, away)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(rep.Evicted) != 1 {
		t.Errorf("expected 1 evicted event, got %d", len(rep.Evicted))
	}

	e := onlyEvent(t, svc, "a")
	if e.StaffID != "s2" || !e.StartTime.Equal(at(12, 8, 0)) {
		t.Errorf("expected a moved to s2 at Monday 08:00, got %+v", e)
	}
	if got := svc.Metrics()["evictions"]; got != 1 {
		t.Errorf("expected evictions=1, got %d", got)
	}
}

func TestUpdateStaff_NoColleagueLeavesJobPending(t *testing.T) {
	svc := newTestService(t, offsetStaff("s1"), nil)
	svc.cfg.Horizon = 24 * time.Hour
	ctx := context.Background()

	if _, err := svc.ScheduleJob(ctx, offsetJob("a", 4)); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	away := offsetStaff("s1")[0]
	away.BlockedTimes = []models.Interval{{Start: at(12, 0, 0), End: at(14, 0, 0)}}
	rep, err := svc.UpdateStaff(ctx, away)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	var capErr *models.CapacityError
	if !errors.As(rep.Err(), &capErr) || capErr.JobID != "a" {
		t.Fatalf("expected CapacityError for a, got %v", rep.Err())
	}
	if job, _ := svc.Job("a"); job.Status != models.StatusPending {
		t.Errorf("expected a pending, got %s", job.Status)
	}
	if len(svc.EventsForJob("a")) != 0 {
		t.Error("expected a to have no events")
	}
}

func spans(events []models.ScheduleEvent) []models.Interval {
	out := make([]models.Interval, len(events))
	for i, e := range events {
		out[i] = e.Interval()
	}
	return out
}

// assertDependencyOrder fails when a job starts before one of its dependencies ends
func assertDependencyOrder(t *testing.T, svc *Service) {
	t.Helper()
	for _, j := range svc.Jobs() {
		for _, dep := range j.Dependencies {
			for _, d := range svc.EventsForJob(dep) {
				for _, e := range svc.EventsForJob(j.ID) {
					if e.StartTime.Before(d.EndTime) {
						t.Errorf("%s starts %v before %s ends %v", j.ID, e.StartTime, dep, d.EndTime)
					}
				}
			}
		}
	}
}

func TestUpdateStaff_DependentsFollowMovedDependency(t *testing.T) {
	svc := newTestService(t, offsetStaff("s1"), nil)
	ctx := context.Background()

	b := offsetJob("b", 2)
	b.Dependencies = []string{"a"}
	c := offsetJob("c", 2)
	c.Dependencies = []string{"b"}
	for _, j := range []models.Job{offsetJob("a", 2), b, c} {
		if _, err := svc.ScheduleJob(ctx, j); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	}
	if e := onlyEvent(t, svc, "b"); !e.StartTime.Equal(at(12, 10, 0)) {
		t.Fatalf("expected b at 10:00 before the change, got %v", e.Interval())
	}

	away := offsetStaff("s1")[0]
	away.BlockedTimes = []models.Interval{{Start: at(12, 8, 0), End: at(12, 10, 0)}}
	rep, err := svc.UpdateStaff(ctx, away)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := rep.Err(); err != nil {
		t.Fatalf("expected every job placed, got %v", err)
	}

	assertDependencyOrder(t, svc)
	if e := onlyEvent(t, svc, "a"); !e.StartTime.Equal(at(12, 14, 0)) {
		t.Errorf("expected a moved to 14:00, got %v", e.Interval())
	}
	wantB := []models.Interval{{Start: at(12, 16, 0), End: at(12, 17, 0)}, {Start: at(13, 8, 0), End: at(13, 9, 0)}}
	if got := spans(svc.EventsForJob("b")); !reflect.DeepEqual(got, wantB) {
		t.Errorf("expected b after a %v, got %v", wantB, got)
	}
	if e := onlyEvent(t, svc, "c"); !e.StartTime.Equal(at(13, 9, 0)) {
		t.Errorf("expected c after b at Tuesday 09:00, got %v", e.Interval())
	}
	if len(rep.Evicted) != 3 {
		t.Errorf("expected a, b and c evicted once each, got %d", len(rep.Evicted))
	}
	for _, id := range []string{"a", "b", "c"} {
		if job, _ := svc.Job(id); job.Status != models.StatusScheduled {
			t.Errorf("expected %s scheduled, got %s", id, job.Status)
		}
	}
}

func TestMoveEvent_DependentFollowsMovedDependency(t *testing.T) {
	svc := newTestService(t, offsetStaff("s1"), nil)
	ctx := context.Background()

	b := offsetJob("b", 2)
	b.Dependencies = []string{"a"}
	svc.ScheduleJob(ctx, offsetJob("a", 2))
	svc.ScheduleJob(ctx, b)

	first := onlyEvent(t, svc, "a")
	_, rep, err := svc.MoveEvent(ctx, first.ID, at(12, 13, 0), at(12, 15, 0))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(rep.Evicted) != 1 || rep.Evicted[0].JobID != "b" {
		t.Fatalf("expected b evicted to follow a, got %+v", rep.Evicted)
	}
	if e := onlyEvent(t, svc, "b"); !e.StartTime.Equal(at(12, 15, 0)) || !e.EndTime.Equal(at(12, 17, 0)) {
		t.Errorf("expected b at 15:00-17:00, got %v", e.Interval())
	}
	assertDependencyOrder(t, svc)
}

func TestUpdateStaff_EvictsOnlyInvalidSegment(t *testing.T) {
	svc := newTestService(t, offsetStaff("s1"), nil)
	ctx := context.Background()

	if _, err := svc.ScheduleJob(ctx, offsetJob("big", 12)); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	before := svc.EventsForJob("big")
	want := []models.Interval{{Start: at(12, 8, 0), End: at(12, 17, 0)}, {Start: at(13, 8, 0), End: at(13, 11, 0)}}
	if !reflect.DeepEqual(spans(before), want) {
		t.Fatalf("expected %v before the change, got %v", want, spans(before))
	}

	away := offsetStaff("s1")[0]
	away.BlockedTimes = []models.Interval{{Start: at(13, 8, 0), End: at(13, 11, 0)}}
	rep, err := svc.UpdateStaff(ctx, away)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(rep.Evicted) != 1 || rep.Evicted[0].ID != before[1].ID {
		t.Fatalf("expected only the tuesday segment evicted, got %+v", rep.Evicted)
	}

	after := svc.EventsForJob("big")
	if len(after) != 2 || after[0].ID != before[0].ID {
		t.Fatalf("expected the monday event kept, got %+v", after)
	}
	if got := after[1].Interval(); !got.Start.Equal(at(13, 11, 0)) || !got.End.Equal(at(13, 14, 0)) {
		t.Errorf("expected the missing 3h at 11:00-14:00, got %v", got)
	}
	if job, _ := svc.Job("big"); job.Status != models.StatusScheduled {
		t.Errorf("expected big scheduled, got %s", job.Status)
	}
}

func TestSetMachineStatus_InProgressJobReplaced(t *testing.T) {
	machines := []models.Machine{
		{ID: "m1", Capabilities: []string{"a3"}, Status: models.MachineOperational},
		{ID: "m2", Capabilities: []string{"a3"}, Status: models.MachineOperational},
	}
	svc := newTestService(t, offsetStaff("s1"), machines)
	ctx := context.Background()

	j := offsetJob("a", 2)
	j.RequiredMachines = []string{"a3"}
	svc.ScheduleJob(ctx, j)
	if err := svc.StartJob(ctx, "a"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	first := onlyEvent(t, svc, "a").MachineID

	rep, err := svc.SetMachineStatus(ctx, first, models.MachineOffline)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(rep.Evicted) != 1 {
		t.Fatalf("expected 1 eviction, got %d", len(rep.Evicted))
	}
	e := onlyEvent(t, svc, "a")
	if e.MachineID == first {
		t.Errorf("expected a moved off %s, got %+v", first, e)
	}
	if job, _ := svc.Job("a"); job.Status != models.StatusInProgress {
		t.Errorf("expected a to stay in_progress, got %s", job.Status)
	}
	found := false
	for _, w := range rep.Warnings {
		if strings.Contains(w, "job_id=a") && strings.Contains(w, "in-progress") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a warning about the in-progress job, got %v", rep.Warnings)
	}
}

func TestPlaceManual_EvictsAndRequeues(t *testing.T) {
	svc := newTestService(t, offsetStaff("s1"), nil)
	ctx := context.Background()

	if _, err := svc.ScheduleJob(ctx, offsetJob("a", 4)); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := svc.SubmitJob(ctx, offsetJob("rush", 2)); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	placed, rep, err := svc.PlaceManual(ctx, models.ScheduleEvent{
		JobID: "rush", StaffID: "s1", StartTime: at(12, 8, 0), EndTime: at(12, 10, 0),
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if placed.ID == "" || placed.IsAutoScheduled {
		t.Errorf("expected manual event with generated id, got %+v", placed)
	}
	if len(rep.Evicted) != 1 || rep.Evicted[0].JobID != "a" {
		t.Fatalf("expected a evicted, got %+v", rep.Evicted)
	}

	e := onlyEvent(t, svc, "a")
	if !e.StartTime.Equal(at(12, 10, 0)) || !e.EndTime.Equal(at(12, 14, 0)) {
		t.Errorf("expected a re-placed at 10:00-14:00, got %v", e.Interval())
	}
	if job, _ := svc.Job("rush"); job.Status != models.StatusScheduled {
		t.Errorf("expected rush covered by its manual event, got %s", job.Status)
	}
	if len(svc.EventsForJob("rush")) != 1 {
		t.Error("expected rush to keep only its manual event")
	}
}

func TestPlaceManual_RejectsManualConflict(t *testing.T) {
	svc := newTestService(t, offsetStaff("s1"), nil)
	ctx := context.Background()

	svc.SubmitJob(ctx, offsetJob("x", 2))
	svc.SubmitJob(ctx, offsetJob("y", 2))
	if _, _, err := svc.PlaceManual(ctx, models.ScheduleEvent{
		ID: "m1", JobID: "x", StaffID: "s1", StartTime: at(12, 8, 0), EndTime: at(12, 10, 0),
	}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	_, _, err := svc.PlaceManual(ctx, models.ScheduleEvent{
		ID: "m2", JobID: "y", StaffID: "s1", StartTime: at(12, 9, 0), EndTime: at(12, 11, 0),
	})
	var conflict *models.ConflictError
	if !errors.As(err, &conflict) || conflict.ConflictsWith != "m1" {
		t.Fatalf("expected ConflictError against m1, got %v", err)
	}
	if _, ok := svc.Event("m2"); ok {
		t.Error("expected rejected event not to be stored")
	}
	if got := svc.Metrics()["rejected_conflicts"]; got != 1 {
		t.Errorf("expected rejected_conflicts=1, got %d", got)
	}

	_, _, err = svc.PlaceManual(ctx, models.ScheduleEvent{
		JobID: "ghost", StaffID: "s1", StartTime: at(13, 8, 0), EndTime: at(13, 9, 0),
	})
	if !errors.Is(err, models.ErrJobNotFound) {
		t.Errorf("expected ErrJobNotFound, got %v", err)
	}
}

func TestMoveEvent_BecomesManual(t *testing.T) {
	svc := newTestService(t, offsetStaff("s1"), nil)
	ctx := context.Background()

	svc.ScheduleJob(ctx, offsetJob("a", 2))
	e := onlyEvent(t, svc, "a")

	moved, _, err := svc.MoveEvent(ctx, e.ID, at(13, 9, 0), at(13, 11, 0))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if moved.IsAutoScheduled || moved.ID != e.ID {
		t.Errorf("expected same id as manual event, got %+v", moved)
	}
	got := onlyEvent(t, svc, "a")
	if !got.StartTime.Equal(at(13, 9, 0)) || got.IsAutoScheduled {
		t.Errorf("unexpected stored event %+v", got)
	}

	if _, _, err := svc.MoveEvent(ctx, "missing", at(13, 9, 0), at(13, 10, 0)); !errors.Is(err, models.ErrEventNotFound) {
		t.Errorf("expected ErrEventNotFound, got %v", err)
	}
}

func TestRemoveEvent_ReturnsJobToPending(t *testing.T) {
	svc := newTestService(t, offsetStaff("s1"), nil)
	ctx := context.Background()

	svc.ScheduleJob(ctx, offsetJob("a", 2))
	e := onlyEvent(t, svc, "a")
	if err := svc.RemoveEvent(ctx, e.ID); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if job, _ := svc.Job("a"); job.Status != models.StatusPending {
		t.Errorf("expected a pending, got %s", job.Status)
	}
	if err := svc.RemoveEvent(ctx, e.ID); !errors.Is(err, models.ErrEventNotFound) {
		t.Errorf("expected ErrEventNotFound, got %v", err)
	}
}

func TestCancelJob_FreesEvents(t *testing.T) {
	svc := newTestService(t, offsetStaff("s1"), nil)
	ctx := context.Background()

	svc.ScheduleJob(ctx, offsetJob("a", 4))
	rep, err := svc.CancelJob(ctx, "a")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(rep.Evicted) != 1 || len(svc.EventsForJob("a")) != 0 {
		t.Errorf("expected a's event freed, evicted=%d", len(rep.Evicted))
	}
	if job, _ := svc.Job("a"); job.Status != models.StatusCancelled {
		t.Errorf("expected cancelled, got %s", job.Status)
	}
	if _, err := svc.CancelJob(ctx, "a"); !errors.Is(err, ErrJobTerminal) {
		t.Errorf("expected ErrJobTerminal, got %v", err)
	}
	if _, err := svc.CancelJob(ctx, "nope"); !errors.Is(err, models.ErrJobNotFound) {
		t.Errorf("expected ErrJobNotFound, got %v", err)
	}

	svc.ScheduleJob(ctx, offsetJob("b", 4))
	if e := onlyEvent(t, svc, "b"); !e.StartTime.Equal(at(12, 8, 0)) {
		t.Errorf("expected b to reuse freed time, got %v", e.Interval())
	}
}

func TestCompleteJob_UnblocksDependents(t *testing.T) {
	svc := newTestService(t, offsetStaff("s1"), nil)
	ctx := context.Background()

	proof := offsetJob("proof", 1)
	proof.JobType = "prepress"
	svc.SubmitJob(ctx, proof)

	pressRun := offsetJob("print", 2)
	pressRun.Dependencies = []string{"proof"}
	rep, err := svc.ScheduleJob(ctx, pressRun)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	var depErr *models.DependencyCycleError
	if !errors.As(rep.Err(), &depErr) {
		t.Fatalf("expected print blocked on proof, got %v", rep.Err())
	}

	rep, err = svc.CompleteJob(ctx, "proof")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got := rep.Scheduled(); len(got) != 1 || got[0] != "print" {
		t.Errorf("expected print scheduled, got %v", got)
	}

	if err := svc.StartJob(ctx, "print"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if job, _ := svc.Job("print"); job.Status != models.StatusInProgress {
		t.Errorf("expected in_progress, got %s", job.Status)
	}
	if err := svc.StartJob(ctx, "proof"); !errors.Is(err, ErrJobTerminal) {
		t.Errorf("expected ErrJobTerminal for completed job, got %v", err)
	}
}

func TestApplyDefaultHours_SinglePass(t *testing.T) {
	svc := newTestService(t, offsetStaff("s1"), nil)
	ctx := context.Background()

	svc.ScheduleJob(ctx, offsetJob("a", 4))
	before := svc.Metrics()["runs"]

	var afternoons []models.WeeklyWindow
	for d := time.Monday; d <= time.Friday; d++ {
		afternoons = append(afternoons, models.WeeklyWindow{Weekday: d, Start: "13:00", End: "17:00"})
	}
	rep, err := svc.ApplyDefaultHours(ctx, afternoons)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(rep.Evicted) != 1 {
		t.Errorf("expected 1 eviction, got %d", len(rep.Evicted))
	}
	if got := svc.Metrics()["runs"] - before; got != 1 {
		t.Errorf("expected one allocator run, got %d", got)
	}
	e := onlyEvent(t, svc, "a")
	if !e.StartTime.Equal(at(12, 13, 0)) || !e.EndTime.Equal(at(12, 17, 0)) {
		t.Errorf("expected a at 13:00-17:00, got %v", e.Interval())
	}

	bad := []models.WeeklyWindow{{Weekday: time.Monday, Start: "17:00", End: "09:00"}}
	if _, err := svc.ApplyDefaultHours(ctx, bad); err == nil {
		t.Error("expected error for inverted window")
	}
}

func TestSetMachineStatus_OfflineEvicts(t *testing.T) {
	press := models.Machine{ID: "m1", Capabilities: []string{"a3"}, Status: models.MachineOperational}
	svc := newTestService(t, offsetStaff("s1"), []models.Machine{press})
	ctx := context.Background()

	j := offsetJob("a", 2)
	j.RequiredMachines = []string{"a3"}
	svc.ScheduleJob(ctx, j)
	if e := onlyEvent(t, svc, "a"); e.MachineID != "m1" {
		t.Fatalf("expected a on m1, got %q", e.MachineID)
	}

	rep, err := svc.SetMachineStatus(ctx, "m1", models.MachineOffline)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(rep.Evicted) != 1 {
		t.Errorf("expected 1 eviction, got %d", len(rep.Evicted))
	}
	var capErr *models.CapacityError
	if !errors.As(rep.Err(), &capErr) {
		t.Errorf("expected CapacityError with the only press offline, got %v", rep.Err())
	}
	if job, _ := svc.Job("a"); job.Status != models.StatusPending {
		t.Errorf("expected a pending, got %s", job.Status)
	}

	if _, err := svc.SetMachineStatus(ctx, "m1", "broken"); err == nil {
		t.Error("expected error for unknown status")
	}
	if _, err := svc.SetMachineStatus(ctx, "m9", models.MachineOffline); !errors.Is(err, models.ErrMachineNotFound) {
		t.Errorf("expected ErrMachineNotFound, got %v", err)
	}

	rep, err = svc.SetMachineStatus(ctx, "m1", models.MachineOperational)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got := rep.Scheduled(); len(got) != 1 || got[0] != "a" {
		t.Errorf("expected a placed again, got %v", got)
	}
}

func TestUpdateBusinessHours(t *testing.T) {
	svc := newTestService(t, offsetStaff("s1"), nil)
	ctx := context.Background()

	svc.ScheduleJob(ctx, offsetJob("a", 4))

	bad := models.StandardWeek("08:00", "17:00")
	bad.Days[time.Tuesday] = models.DayHours{Start: "25:00", End: "17:00", IsOpen: true}
	if _, err := svc.UpdateBusinessHours(ctx, bad); err == nil {
		t.Fatal("expected error for invalid clock time")
	}

	late := models.StandardWeek("10:00", "17:00")
	rep, err := svc.UpdateBusinessHours(ctx, late)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(rep.Evicted) != 1 {
		t.Errorf("expected 1 eviction, got %d", len(rep.Evicted))
	}
	if e := onlyEvent(t, svc, "a"); !e.StartTime.Equal(at(12, 10, 0)) {
		t.Errorf("expected a moved to 10:00, got %v", e.Interval())
	}
}

func TestRestore(t *testing.T) {
	repo := newFakeRepository()
	repo.seed = []models.Job{func() models.Job {
		j := offsetJob("a", 2)
		j.Status = models.StatusScheduled
		return j
	}()}
	repo.events = []models.ScheduleEvent{{
		ID: "e1", JobID: "a", StaffID: "s1", StartTime: at(12, 8, 0), EndTime: at(12, 10, 0), IsAutoScheduled: true,
	}}
	svc := newTestService(t, offsetStaff("s1"), nil, WithRepository(repo))
	ctx := context.Background()

	if err := svc.Restore(ctx); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(svc.Events()) != 1 {
		t.Fatalf("expected 1 restored event, got %d", len(svc.Events()))
	}
	rep, err := svc.Run(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(rep.Placements) != 0 {
		t.Errorf("expected nothing to place after restore, got %d", len(rep.Placements))
	}

	svc.ScheduleJob(ctx, offsetJob("b", 1))
	if e := onlyEvent(t, svc, "b"); !e.StartTime.Equal(at(12, 10, 0)) {
		t.Errorf("expected b after the restored event, got %v", e.Interval())
	}
}

func TestNextFreeSlot(t *testing.T) {
	svc := newTestService(t, offsetStaff("s1"), nil)
	ctx := context.Background()

	svc.ScheduleJob(ctx, offsetJob("a", 4))
	slot, ok, err := svc.NextFreeSlot(models.StaffKey("s1"), at(12, 7, 0), 2*time.Hour)
	if err != nil || !ok {
		t.Fatalf("expected a slot, got ok=%v err=%v", ok, err)
	}
	if !slot.Start.Equal(at(12, 12, 0)) {
		t.Errorf("expected slot at 12:00, got %v", slot)
	}
	if _, _, err := svc.NextFreeSlot(models.StaffKey("nobody"), at(12, 7, 0), time.Hour); !errors.Is(err, models.ErrStaffNotFound) {
		t.Errorf("expected ErrStaffNotFound, got %v", err)
	}
}

func TestPublisherErrorDoesNotFailOperation(t *testing.T) {
	pub := &fakePublisher{err: errors.New("redis down")}
	svc := newTestService(t, offsetStaff("s1"), nil, WithPublisher(pub))

	if _, err := svc.ScheduleJob(context.Background(), offsetJob("a", 1)); err != nil {
		t.Fatalf("expected sink error to be swallowed, got %v", err)
	}
	if len(svc.EventsForJob("a")) != 1 {
		t.Error("expected the event to stay committed")
	}
}
