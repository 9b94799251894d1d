package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"print-scheduler/internal/models"
	"print-scheduler/internal/service"
)

type jobResponse struct {
	models.Job
	Events []models.ScheduleEvent `json:"events"`
}

// CreateJob handles POST /jobs. With ?defer=true the job is queued for the trigger
// worker instead of being placed in the request.
func (h *Handler) CreateJob(w http.ResponseWriter, r *http.Request) {
	var job models.Job
	if !decode(w, r, &job) {
		return
	}

	deferred, _ := strconv.ParseBool(r.URL.Query().Get("defer"))
	if deferred {
		if err := h.svc.SubmitJob(r.Context(), job); err != nil {
			fail(w, err)
			return
		}
		stored, _ := h.svc.Job(job.ID)
		writeJSON(w, http.StatusAccepted, map[string]any{"job": stored})
		return
	}

	rep, err := h.svc.ScheduleJob(r.Context(), job)
	if err != nil {
		fail(w, err)
		return
	}
	stored, _ := h.svc.Job(job.ID)
	writeJSON(w, http.StatusCreated, map[string]any{
		"job":    jobResponse{Job: stored, Events: nonNil(h.svc.EventsForJob(job.ID))},
		"report": newReportResponse(rep),
	})
}

// GetJob handles GET /jobs/{id}
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, ok := h.svc.Job(id)
	if !ok {
		fail(w, models.ErrJobNotFound)
		return
	}
	writeJSON(w, http.StatusOK, jobResponse{Job: job, Events: nonNil(h.svc.EventsForJob(id))})
}

// ListJobs handles GET /jobs?status=
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	var status models.JobStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		status = models.JobStatus(raw)
		if !status.Valid() {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid status: %s", raw))
			return
		}
	}

	jobs := make([]models.Job, 0)
	for _, j := range h.svc.Jobs() {
		if status == "" || j.Status == status {
			jobs = append(jobs, j)
		}
	}
	writeJSON(w, http.StatusOK, jobs)
}

// StartJob handles POST /jobs/{id}/start
func (h *Handler) StartJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.StartJob(r.Context(), id); err != nil {
		fail(w, err)
		return
	}
	job, _ := h.svc.Job(id)
	writeJSON(w, http.StatusOK, map[string]any{"job": job})
}

// CompleteJob handles POST /jobs/{id}/complete
func (h *Handler) CompleteJob(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.CompleteJob)
}

// CancelJob handles POST /jobs/{id}/cancel
func (h *Handler) CancelJob(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.CancelJob)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id string) (service.Report, error)) {
	id := chi.URLParam(r, "id")
	rep, err := op(r.Context(), id)
	if err != nil {
		fail(w, err)
		return
	}
	job, _ := h.svc.Job(id)
	writeJSON(w, http.StatusOK, map[string]any{"job": job, "report": newReportResponse(rep)})
}

// Run handles POST /run
func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	rep, err := h.svc.Run(r.Context())
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newReportResponse(rep))
}

// GetMetrics handles GET /metrics
func (h *Handler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Metrics())
}

func nonNil(events []models.ScheduleEvent) []models.ScheduleEvent {
	if events == nil {
		return []models.ScheduleEvent{}
	}
	return events
}
