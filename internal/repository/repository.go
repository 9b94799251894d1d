package repository

import (
	"context"

	"print-scheduler/internal/models"
)

// EventRepository mirrors the schedule store and job states into durable storage
type EventRepository interface {
	ApplyChanges(ctx context.Context, changes []models.EventChange) error
	ListEvents(ctx context.Context) ([]models.ScheduleEvent, error)
	UpsertJob(ctx context.Context, job models.Job) error
	ListJobs(ctx context.Context) ([]models.Job, error)
	Close() error
}
