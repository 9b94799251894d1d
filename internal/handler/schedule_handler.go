package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"print-scheduler/internal/models"
)

// ListEvents handles GET /events?job_id=
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	var events []models.ScheduleEvent
	if jobID := r.URL.Query().Get("job_id"); jobID != "" {
		events = h.svc.EventsForJob(jobID)
	} else {
		events = h.svc.Events()
	}
	writeJSON(w, http.StatusOK, nonNil(events))
}

// PlaceEvent handles POST /events, a manual placement
func (h *Handler) PlaceEvent(w http.ResponseWriter, r *http.Request) {
	var e models.ScheduleEvent
	if !decode(w, r, &e) {
		return
	}
	if e.JobID == "" {
		writeErr(w, http.StatusBadRequest, errors.New("job_id is required"))
		return
	}
	placed, rep, err := h.svc.PlaceManual(r.Context(), e)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"event": placed, "report": newReportResponse(rep)})
}

type moveRequest struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// MoveEvent handles PUT /events/{id}
func (h *Handler) MoveEvent(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if !decode(w, r, &req) {
		return
	}
	moved, rep, err := h.svc.MoveEvent(r.Context(), chi.URLParam(r, "id"), req.StartTime, req.EndTime)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"event": moved, "report": newReportResponse(rep)})
}

// RemoveEvent handles DELETE /events/{id}
func (h *Handler) RemoveEvent(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RemoveEvent(r.Context(), chi.URLParam(r, "id")); err != nil {
		fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateStaff handles PUT /staff/{id}. The path id wins over the body.
func (h *Handler) UpdateStaff(w http.ResponseWriter, r *http.Request) {
	var member models.StaffMember
	if !decode(w, r, &member) {
		return
	}
	member.ID = chi.URLParam(r, "id")
	rep, err := h.svc.UpdateStaff(r.Context(), member)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newReportResponse(rep))
}

func (h *Handler) RemoveStaff(w http.ResponseWriter, r *http.Request) {
	rep, err := h.svc.RemoveStaff(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newReportResponse(rep))
}

// ApplyDefaultHours handles POST /staff/default-hours with a list of weekly windows
func (h *Handler) ApplyDefaultHours(w http.ResponseWriter, r *http.Request) {
	var windows []models.WeeklyWindow
	if !decode(w, r, &windows) {
		return
	}
	rep, err := h.svc.ApplyDefaultHours(r.Context(), windows)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newReportResponse(rep))
}

func (h *Handler) UpdateMachine(w http.ResponseWriter, r *http.Request) {
	var m models.Machine
	if !decode(w, r, &m) {
		return
	}
	m.ID = chi.URLParam(r, "id")
	rep, err := h.svc.UpdateMachine(r.Context(), m)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newReportResponse(rep))
}

// SetMachineStatus handles PUT /machines/{id}/status with {"status": "offline"}
func (h *Handler) SetMachineStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status models.MachineStatus `json:"status"`
	}
	if !decode(w, r, &req) {
		return
	}
	rep, err := h.svc.SetMachineStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newReportResponse(rep))
}

func (h *Handler) RemoveMachine(w http.ResponseWriter, r *http.Request) {
	rep, err := h.svc.RemoveMachine(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newReportResponse(rep))
}

// UpdateBusinessHours handles PUT /business-hours
func (h *Handler) UpdateBusinessHours(w http.ResponseWriter, r *http.Request) {
	var cfg models.BusinessHoursConfig
	if !decode(w, r, &cfg) {
		return
	}
	rep, err := h.svc.UpdateBusinessHours(r.Context(), cfg)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newReportResponse(rep))
}

// NextFreeSlot handles GET /free-slot?kind=staff&id=s1&duration=2h&not_before=RFC3339
func (h *Handler) NextFreeSlot(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	key := models.ResourceKey{Kind: models.ResourceKind(q.Get("kind")), ID: q.Get("id")}
	if key.Kind != models.KindStaff && key.Kind != models.KindMachine {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid kind: %q", q.Get("kind")))
		return
	}
	if key.ID == "" {
		writeErr(w, http.StatusBadRequest, errors.New("id is required"))
		return
	}
	duration, err := time.ParseDuration(q.Get("duration"))
	if err != nil || duration <= 0 {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid duration: %q", q.Get("duration")))
		return
	}
	notBefore := time.Now()
	if raw := q.Get("not_before"); raw != "" {
		notBefore, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid not_before: %w", err))
			return
		}
	}

	slot, ok, err := h.svc.NextFreeSlot(key, notBefore, duration)
	if err != nil {
		fail(w, err)
		return
	}
	if !ok {
		writeErr(w, http.StatusNotFound, fmt.Errorf("no free %s on %s within the horizon", duration, key))
		return
	}
	writeJSON(w, http.StatusOK, slot)
}
