package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"print-scheduler/internal/allocator"
	"print-scheduler/internal/models"
	"print-scheduler/internal/service"
)

// Handler serves the scheduling API over HTTP
type Handler struct {
	svc *service.Service
}

func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Router mounts every route. requestLog adds chi's access log.
func (h *Handler) Router(requestLog bool) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if requestLog {
		r.Use(middleware.Logger)
	}
	r.Use(cors)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/metrics", h.GetMetrics)
	r.Post("/run", h.Run)

	r.Route("/jobs", func(r chi.Router) {
		r.Post("/", h.CreateJob)
		r.Get("/", h.ListJobs)
		r.Get("/{id}", h.GetJob)
		r.Post("/{id}/start", h.StartJob)
		r.Post("/{id}/complete", h.CompleteJob)
		r.Post("/{id}/cancel", h.CancelJob)
	})

	r.Route("/events", func(r chi.Router) {
		r.Get("/", h.ListEvents)
		r.Post("/", h.PlaceEvent)
		r.Put("/{id}", h.MoveEvent)
		r.Delete("/{id}", h.RemoveEvent)
	})

	r.Post("/staff/default-hours", h.ApplyDefaultHours)
	r.Put("/staff/{id}", h.UpdateStaff)
	r.Delete("/staff/{id}", h.RemoveStaff)

	r.Put("/machines/{id}", h.UpdateMachine)
	r.Put("/machines/{id}/status", h.SetMachineStatus)
	r.Delete("/machines/{id}", h.RemoveMachine)

	r.Put("/business-hours", h.UpdateBusinessHours)
	r.Get("/free-slot", h.NextFreeSlot)

	return r
}

// cors sets headers for all responses
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		// Handle preflight OPTIONS request
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// placementResponse and reportResponse flatten a service.Report for JSON; errors become strings
type placementResponse struct {
	JobID  string                 `json:"job_id"`
	Events []models.ScheduleEvent `json:"events"`
}

type reportResponse struct {
	Scheduled []placementResponse     `json:"scheduled"`
	Evicted   []models.ScheduleEvent `json:"evicted,omitempty"`
	Errors    []string               `json:"errors,omitempty"`
	Warnings  []string               `json:"warnings,omitempty"`
	Passes    int                    `json:"passes"`
	Aborted   bool                   `json:"aborted,omitempty"`
}

func newReportResponse(rep service.Report) reportResponse {
	out := reportResponse{
		Scheduled: make([]placementResponse, 0, len(rep.Placements)),
		Evicted:   rep.Evicted,
		Warnings:  rep.Warnings,
		Passes:    rep.Passes,
		Aborted:   rep.Aborted,
	}
	for _, p := range rep.Placements {
		out.Scheduled = append(out.Scheduled, placement(p))
	}
	for _, err := range rep.Errors {
		out.Errors = append(out.Errors, err.Error())
	}
	return out
}

func placement(p allocator.Placement) placementResponse {
	events := p.Events
	if events == nil {
		events = []models.ScheduleEvent{}
	}
	return placementResponse{JobID: p.JobID, Events: events}
}

// statusFor maps service errors onto HTTP codes
func statusFor(err error) int {
	var conflict *models.ConflictError
	var invalid *models.InvalidIntervalError
	switch {
	case errors.Is(err, service.ErrRateLimitExceeded):
		return http.StatusTooManyRequests
	case errors.As(err, &conflict), errors.Is(err, service.ErrJobExists), errors.Is(err, service.ErrJobTerminal),
		errors.Is(err, models.ErrEventExists):
		return http.StatusConflict
	case errors.As(err, &invalid), errors.Is(err, service.ErrInvalidJob), errors.Is(err, service.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrJobNotFound), errors.Is(err, models.ErrEventNotFound),
		errors.Is(err, models.ErrStaffNotFound), errors.Is(err, models.ErrMachineNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("error encoding response: %v", err)
	}
}

func writeErr(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]any{"error": err.Error()})
}

// fail writes err with the status its kind maps to. Unexpected errors are logged.
func fail(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		log.Printf("error handling request: %v (type: %T)", err, err)
	}
	writeErr(w, code, err)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeErr(w, http.StatusBadRequest, errors.New("invalid request body"))
		return false
	}
	return true
}
