package notes

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/clinicadelvalle/clinica-platform/pkg/logging"
)

// Handler exposes session-note CRUD over HTTP.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates a notes handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if service == nil {
		panic("notes: service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// CreateRequest is the body for POST /api/notas.
type CreateRequest struct {
	PatientID        int64      `json:"paciente_id"`
	Date             *time.Time `json:"fecha,omitempty"`
	CreatedBy        *int64     `json:"creada_por,omitempty"`
	Symptoms         *string    `json:"sintomas,omitempty"`
	Conditions       *string    `json:"padecimientos,omitempty"`
	KeyNotes         *string    `json:"notas_importantes,omitempty"`
	Disorders        *string    `json:"trastornos,omitempty"`
	UnderlyingIssues *string    `json:"afectamientos_subyacentes,omitempty"`
	Diagnosis        *string    `json:"diagnostico,omitempty"`
}

// Create handles POST /api/notas.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PatientID <= 0 {
		writeError(w, http.StatusBadRequest, "paciente_id is required")
		return
	}
	n, err := h.service.Create(r.Context(), &CreateInput{
		PatientID:        req.PatientID,
		Date:             req.Date,
		CreatedBy:        req.CreatedBy,
		Symptoms:         req.Symptoms,
		Conditions:       req.Conditions,
		KeyNotes:         req.KeyNotes,
		Disorders:        req.Disorders,
		UnderlyingIssues: req.UnderlyingIssues,
		Diagnosis:        req.Diagnosis,
	})
	if err != nil {
		h.logger.Error("failed to create note", "error", err, "patient_id", req.PatientID)
		writeError(w, http.StatusInternalServerError, "failed to create note")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "nota": n})
}

// ListResponse is the payload for GET /api/notas.
type ListResponse struct {
	OK    bool    `json:"ok"`
	Total int     `json:"total"`
	Data  []*Note `json:"data"`
}

// List handles GET /api/notas?paciente_id=N.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	patientID, err := strconv.ParseInt(r.URL.Query().Get("paciente_id"), 10, 64)
	if err != nil || patientID <= 0 {
		writeError(w, http.StatusBadRequest, "paciente_id is required")
		return
	}
	status := r.URL.Query().Get("estado")
	if status == "" {
		status = StatusActive
	}
	rows, total, err := h.service.ListByPatient(r.Context(), patientID, ListFilter{
		Status: status,
		Limit:  queryInt(r, "limit", 20),
		Offset: queryInt(r, "offset", 0),
	})
	if err != nil {
		h.logger.Error("failed to list notes", "error", err, "patient_id", patientID)
		writeError(w, http.StatusInternalServerError, "failed to list notes")
		return
	}
	if rows == nil {
		rows = []*Note{}
	}
	writeJSON(w, http.StatusOK, ListResponse{OK: true, Total: total, Data: rows})
}

// Get handles GET /api/notas/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid note id")
		return
	}
	n, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "note not found")
			return
		}
		h.logger.Error("failed to load note", "error", err, "note_id", id)
		writeError(w, http.StatusInternalServerError, "failed to load note")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "nota": n})
}

// Update handles PUT /api/notas/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid note id")
		return
	}
	var in UpdateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	n, err := h.service.Update(r.Context(), id, &in)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "note not found")
			return
		}
		h.logger.Error("failed to update note", "error", err, "note_id", id)
		writeError(w, http.StatusInternalServerError, "failed to update note")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "nota": n})
}

// Deactivate handles DELETE /api/notas/{id} (logical delete).
func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid note id")
		return
	}
	if err := h.service.Deactivate(r.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "note not found")
			return
		}
		h.logger.Error("failed to deactivate note", "error", err, "note_id", id)
		writeError(w, http.StatusInternalServerError, "failed to deactivate note")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
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
