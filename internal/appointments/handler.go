package appointments

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/clinicadelvalle/clinica-platform/internal/patients"
	"github.com/clinicadelvalle/clinica-platform/pkg/logging"
)

// Handler exposes appointment CRUD over HTTP.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates an appointments handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if service == nil {
		panic("appointments: service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// ListResponse is the payload for GET /api/citas.
type ListResponse struct {
	OK    bool           `json:"ok"`
	Total int            `json:"total"`
	Data  []*Appointment `json:"data"`
}

// List handles GET /api/citas.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{
		Status: r.URL.Query().Get("estado"),
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
	}
	if raw := r.URL.Query().Get("paciente_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid paciente_id")
			return
		}
		filter.PatientID = id
	}
	for _, bound := range []struct {
		key string
		dst **time.Time
	}{{"desde", &filter.From}, {"hasta", &filter.To}} {
		if raw := r.URL.Query().Get(bound.key); raw != "" {
			t, err := h.service.ParseDate(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid "+bound.key)
				return
			}
			*bound.dst = &t
		}
	}

	rows, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list appointments", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list appointments")
		return
	}
	if rows == nil {
		rows = []*Appointment{}
	}
	writeJSON(w, http.StatusOK, ListResponse{OK: true, Total: total, Data: rows})
}

// CreateRequest is the body for POST /api/citas. The patient is named
// either by id or by nombre.
type CreateRequest struct {
	PatientName string  `json:"nombre,omitempty"`
	PatientID   int64   `json:"paciente_id,omitempty"`
	Fecha       string  `json:"fecha"`
	Reason      *string `json:"motivo,omitempty"`
}

// Create handles POST /api/citas.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Fecha == "" {
		writeError(w, http.StatusBadRequest, "fecha is required")
		return
	}

	var (
		a   *Appointment
		err error
	)
	switch {
	case req.PatientID > 0:
		var p *patients.Patient
		p, err = h.service.patients.GetByID(r.Context(), req.PatientID)
		if err == nil {
			var date time.Time
			date, err = h.service.ParseDate(req.Fecha)
			if err == nil {
				a, err = h.service.Schedule(r.Context(), p, date, req.Reason)
			}
		}
	case req.PatientName != "":
		a, err = h.service.ScheduleByName(r.Context(), req.PatientName, req.Fecha, req.Reason)
	default:
		writeError(w, http.StatusBadRequest, "paciente_id or nombre is required")
		return
	}
	if err != nil {
		h.writeScheduleError(w, err, "failed to schedule appointment")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "cita": a})
}

// Get handles GET /api/citas/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	a, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "appointment not found")
			return
		}
		h.logger.Error("failed to load appointment", "error", err, "appointment_id", id)
		writeError(w, http.StatusInternalServerError, "failed to load appointment")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "cita": a})
}

// RescheduleRequest is the body for PUT /api/citas/{id}.
type RescheduleRequest struct {
	Fecha string `json:"fecha"`
}

// Reschedule handles PUT /api/citas/{id}.
func (h *Handler) Reschedule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req RescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Fecha == "" {
		writeError(w, http.StatusBadRequest, "fecha is required")
		return
	}
	date, err := h.service.ParseDate(req.Fecha)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid fecha")
		return
	}
	a, err := h.service.RescheduleByID(r.Context(), id, date)
	if err != nil {
		h.writeScheduleError(w, err, "failed to reschedule appointment")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "cita": a})
}

// Cancel handles DELETE /api/citas/{id} (sets estado cancelada).
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	a, err := h.service.CancelByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "appointment not found")
			return
		}
		h.logger.Error("failed to cancel appointment", "error", err, "appointment_id", id)
		writeError(w, http.StatusInternalServerError, "failed to cancel appointment")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "cita": a})
}

func (h *Handler) writeScheduleError(w http.ResponseWriter, err error, fallback string) {
	var conflict *ConflictError
	switch {
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, map[string]any{"ok": false, "code": "CONFLICT", "message": conflict.Detail})
	case errors.Is(err, ErrBadFecha):
		writeError(w, http.StatusBadRequest, "invalid fecha")
	case errors.Is(err, ErrNotFound), errors.Is(err, patients.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, ErrNoUpcoming):
		writeError(w, http.StatusNotFound, "no upcoming appointments")
	default:
		h.logger.Error(fallback, "error", err)
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid appointment id")
		return 0, false
	}
	return id, true
}

func queryInt(r *http.Request, key string, def int) int {
	if raw := r.URL.Query().Get(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return def
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"ok": false, "message": message})
}
