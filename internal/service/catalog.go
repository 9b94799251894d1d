package service

import (
	"slices"
	"sync"

	"print-scheduler/internal/models"
)

// Snapshot is a read-only copy of the catalogs taken at the start of a run
type Snapshot struct {
	Hours    models.BusinessHoursConfig
	Staff    []models.StaffMember
	Machines []models.Machine
	Jobs     []models.Job
}

// Catalog is the in-memory owner of jobs, staff, machines and business hours.
// The scheduling core only ever sees Snapshots of it.
type Catalog struct {
	mu       sync.RWMutex
	hours    models.BusinessHoursConfig
	staff    map[string]models.StaffMember
	machines map[string]models.Machine
	jobs     map[string]models.Job
}

func NewCatalog(hours models.BusinessHoursConfig, staff []models.StaffMember, machines []models.Machine, jobs []models.Job) *Catalog {
	c := &Catalog{
		hours:    hours,
		staff:    make(map[string]models.StaffMember, len(staff)),
		machines: make(map[string]models.Machine, len(machines)),
		jobs:     make(map[string]models.Job, len(jobs)),
	}
	for _, s := range staff {
		c.staff[s.ID] = s
	}
	for _, m := range machines {
		c.machines[m.ID] = m
	}
	for _, j := range jobs {
		c.jobs[j.ID] = j
	}
	return c
}

func (c *Catalog) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := Snapshot{Hours: c.hours}
	for _, s := range c.staff {
		snap.Staff = append(snap.Staff, s)
	}
	for _, m := range c.machines {
		snap.Machines = append(snap.Machines, m)
	}
	for _, j := range c.jobs {
		snap.Jobs = append(snap.Jobs, j)
	}
	slices.SortFunc(snap.Staff, func(a, b models.StaffMember) int { return compareIDs(a.ID, b.ID) })
	slices.SortFunc(snap.Machines, func(a, b models.Machine) int { return compareIDs(a.ID, b.ID) })
	slices.SortFunc(snap.Jobs, func(a, b models.Job) int { return compareIDs(a.ID, b.ID) })
	return snap
}

func (c *Catalog) Job(id string) (models.Job, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	j, ok := c.jobs[id]
	return j, ok
}

func (c *Catalog) Staff(id string) (models.StaffMember, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.staff[id]
	return s, ok
}

func (c *Catalog) Machine(id string) (models.Machine, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.machines[id]
	return m, ok
}

func (c *Catalog) PutJob(j models.Job) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.jobs[j.ID] = j
}

// SetJobStatus updates one job and returns the new record
func (c *Catalog) SetJobStatus(id string, status models.JobStatus) (models.Job, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	j, ok := c.jobs[id]
	if !ok {
		return models.Job{}, false
	}
	j.Status = status
	c.jobs[id] = j
	return j, true
}

func (c *Catalog) PutStaff(s models.StaffMember) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.staff[s.ID] = s
}

func (c *Catalog) RemoveStaff(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.staff[id]
	delete(c.staff, id)
	return ok
}

func (c *Catalog) PutMachine(m models.Machine) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.machines[m.ID] = m
}

func (c *Catalog) RemoveMachine(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.machines[id]
	delete(c.machines, id)
	return ok
}

// SetDefaultAvailability replaces every staff member's weekly windows in one step
// and returns the affected ids
func (c *Catalog) SetDefaultAvailability(windows []models.WeeklyWindow) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := make([]string, 0, len(c.staff))
	for id, s := range c.staff {
		s.Availability = append([]models.WeeklyWindow(nil), windows...)
		c.staff[id] = s
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (c *Catalog) SetBusinessHours(cfg models.BusinessHoursConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hours = cfg
}

func compareIDs(a, b string) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}
