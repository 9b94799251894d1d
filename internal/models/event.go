package models

import "time"

// ScheduleEvent is one contiguous block of work for a job on a staff member and/or machine
type ScheduleEvent struct {
	ID              string    `json:"id"`
	JobID           string    `json:"job_id"`
	StaffID         string    `json:"staff_id,omitempty"`
	MachineID       string    `json:"machine_id,omitempty"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	Notes           string    `json:"notes,omitempty"`
	IsAutoScheduled bool      `json:"is_auto_scheduled"`
}

func (e ScheduleEvent) Interval() Interval {
	return Interval{Start: e.StartTime, End: e.EndTime}
}

// Validate checks the event at the store boundary
func (e ScheduleEvent) Validate() error {
	if !e.EndTime.After(e.StartTime) {
		return &InvalidIntervalError{EventID: e.ID, Start: e.StartTime, End: e.EndTime}
	}
	return nil
}

// Resources returns the resource keys the event occupies
func (e ScheduleEvent) Resources() []ResourceKey {
	keys := make([]ResourceKey, 0, 2)
	if e.StaffID != "" {
		keys = append(keys, StaffKey(e.StaffID))
	}
	if e.MachineID != "" {
		keys = append(keys, MachineKey(e.MachineID))
	}
	return keys
}

// ResourceKind distinguishes staff from machines in shared indexes
type ResourceKind string

const (
	KindStaff   ResourceKind = "staff"
	KindMachine ResourceKind = "machine"
)

// ResourceKey identifies one schedulable resource
type ResourceKey struct {
	Kind ResourceKind `json:"kind"`
	ID   string       `json:"id"`
}

func StaffKey(id string) ResourceKey   { return ResourceKey{Kind: KindStaff, ID: id} }
func MachineKey(id string) ResourceKey { return ResourceKey{Kind: KindMachine, ID: id} }

func (k ResourceKey) String() string {
	return string(k.Kind) + ":" + k.ID
}

// ChangeOp is the kind of mutation recorded in the change feed
type ChangeOp string

const (
	ChangeCreate ChangeOp = "create"
	ChangeUpdate ChangeOp = "update"
	ChangeDelete ChangeOp = "delete"
)

// EventChange is one committed mutation, mirrored by the persistence layer
type EventChange struct {
	Op    ChangeOp      `json:"op"`
	Event ScheduleEvent `json:"event"`
	At    time.Time     `json:"at"`
}
