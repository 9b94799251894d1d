package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrEventNotFound   = errors.New("schedule event not found")
	ErrEventExists     = errors.New("schedule event already exists")
	ErrJobNotFound     = errors.New("job not found")
	ErrStaffNotFound   = errors.New("staff member not found")
	ErrMachineNotFound = errors.New("machine not found")
)

// ConflictError is returned when a placement would overlap another event on the same resource
type ConflictError struct {
	Resource      ResourceKey
	EventID       string
	ConflictsWith string
	Interval      Interval
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("event %s overlaps event %s on %s at %s", e.EventID, e.ConflictsWith, e.Resource, e.Interval)
}

// CapacityError reports a job that found no feasible placement within the horizon
type CapacityError struct {
	JobID  string
	Reason string
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("job %s could not be scheduled: %s", e.JobID, e.Reason)
}

// DependencyCycleError reports jobs still blocked on their dependencies at the fixed point
type DependencyCycleError struct {
	JobIDs []string
	// Cyclic holds the subset of JobIDs that sit on an actual dependency cycle
	Cyclic []string
	// Unmet maps each blocked job to the dependencies that never got placed
	Unmet map[string][]string
}

func (e *DependencyCycleError) Error() string {
	if len(e.Cyclic) > 0 {
		return fmt.Sprintf("dependency cycle among jobs [%s]; blocked jobs [%s]",
			strings.Join(e.Cyclic, ", "), strings.Join(e.JobIDs, ", "))
	}
	return fmt.Sprintf("unresolved dependencies for jobs [%s]", strings.Join(e.JobIDs, ", "))
}

// InvalidIntervalError is returned for malformed start/end or non-positive durations
type InvalidIntervalError struct {
	EventID string
	Start   time.Time
	End     time.Time
}

func (e *InvalidIntervalError) Error() string {
	if e.EventID != "" {
		return fmt.Sprintf("event %s has invalid interval: end %s is not after start %s",
			e.EventID, e.End.Format(time.RFC3339), e.Start.Format(time.RFC3339))
	}
	return fmt.Sprintf("invalid interval: end %s is not after start %s",
		e.End.Format(time.RFC3339), e.Start.Format(time.RFC3339))
}
