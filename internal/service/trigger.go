package service

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"print-scheduler/internal/reschedule"
)

// triggerQueue folds every trigger raised while the worker is busy into one pending delta
type triggerQueue struct {
	mu      sync.Mutex
	pending reschedule.Delta
	count   int
	wake    chan struct{}
}

func newTriggerQueue() *triggerQueue {
	return &triggerQueue{wake: make(chan struct{}, 1)}
}

func (q *triggerQueue) push(d reschedule.Delta) {
	q.mu.Lock()
	q.pending = merge(q.pending, d)
	q.count++
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *triggerQueue) take() (reschedule.Delta, int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	d, n := q.pending, q.count
	q.pending, q.count = reschedule.Delta{}, 0
	return d, n
}

func merge(a, b reschedule.Delta) reschedule.Delta {
	out := reschedule.Delta{BusinessHours: a.BusinessHours || b.BusinessHours}
	if out.BusinessHours {
		return out
	}
	out.Staff = union(a.Staff, b.Staff)
	out.Machines = union(a.Machines, b.Machines)
	return out
}

func union(a, b []string) []string {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	out := append(append([]string(nil), a...), b...)
	slices.Sort(out)
	return slices.Compact(out)
}

// Trigger asks the worker for a run. An empty delta only places pending jobs.
func (s *Service) Trigger(d reschedule.Delta) {
	s.queue.push(d)
}

// ProcessTriggers is the single worker consuming the trigger queue until ctx ends
func (s *Service) ProcessTriggers(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.queue.wake:
			delta, n := s.queue.take()
			if n == 0 {
				continue
			}
			start := time.Now()
			rep, err := s.Reschedule(ctx, delta)
			if err != nil {
				s.cfg.Logger.Printf("error processing %d triggers: %v", n, err)
				continue
			}
			s.cfg.Logger.Printf("processed %d coalesced triggers in %s: placed=%d, evicted=%d",
				n, time.Since(start).Round(time.Millisecond), len(rep.Placements), len(rep.Evicted))
		}
	}
}

// Triggerer is anything that accepts rescan requests
type Triggerer interface {
	Trigger(d reschedule.Delta)
}

// NewPeriodicRescan returns a cron runner that requests a full rescan on schedule,
// a standard five-field expression or a descriptor such as "@hourly".
func NewPeriodicRescan(schedule string, loc *time.Location, t Triggerer) (*cron.Cron, error) {
	if loc == nil {
		loc = time.Local
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	c := cron.New(cron.WithLocation(loc), cron.WithParser(parser))
	if _, err := c.AddFunc(schedule, func() { t.Trigger(reschedule.All()) }); err != nil {
		return nil, fmt.Errorf("invalid rescan schedule %q: %w", schedule, err)
	}
	return c, nil
}
