package models

import "time"

// JobStatus represents the state of a print job
type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusScheduled  JobStatus = "scheduled"
	StatusInProgress JobStatus = "in_progress"
	StatusCompleted  JobStatus = "completed"
	StatusCancelled  JobStatus = "cancelled"
)

// Terminal reports whether the job is excluded from scheduling for good
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Valid reports whether s is a known status
func (s JobStatus) Valid() bool {
	switch s {
	case StatusPending, StatusScheduled, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Priority of a job. Higher rank wins ties on deadline.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Rank orders priorities: urgent > high > medium > low. Unknown values rank lowest.
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 3
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 1
	default:
		return 0
	}
}

// Job represents a print job in the backlog
type Job struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Client           string    `json:"client"`
	Status           JobStatus `json:"status"`
	Priority         Priority  `json:"priority"`
	JobType          string    `json:"job_type"`
	Deadline         time.Time `json:"deadline"`
	EstimatedHours   float64   `json:"estimated_hours"`
	RequiredMachines []string  `json:"required_machines,omitempty"`
	Dependencies     []string  `json:"dependencies,omitempty"`
	AssignedTo       string    `json:"assigned_to,omitempty"`
}

// Duration returns EstimatedHours as a duration truncated to the minute
func (j Job) Duration() time.Duration {
	return (time.Duration(j.EstimatedHours * float64(time.Hour))).Truncate(time.Minute)
}

// Pinned reports whether a human pinned the job to a staff member
func (j Job) Pinned() bool {
	return j.AssignedTo != ""
}
