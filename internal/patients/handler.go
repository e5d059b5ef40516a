package patients

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/clinicadelvalle/clinica-platform/internal/notes"
	"github.com/clinicadelvalle/clinica-platform/pkg/logging"
)

// Handler exposes patient CRUD over HTTP.
type Handler struct {
	service *Service
	notes   *notes.Service
	logger  *logging.Logger
}

// NewHandler creates a patients handler. The notes service is used by the
// details endpoint to attach the note history.
func NewHandler(service *Service, notesService *notes.Service, logger *logging.Logger) *Handler {
	if service == nil {
		panic("patients: service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, notes: notesService, logger: logger}
}

// ListResponse is the payload for GET /api/pacientes.
type ListResponse struct {
	OK    bool       `json:"ok"`
	Total int        `json:"total"`
	Data  []*Patient `json:"data"`
}

// List handles GET /api/pacientes.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{
		Query:  r.URL.Query().Get("q"),
		Status: r.URL.Query().Get("estado"),
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
	}
	rows, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list patients", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list patients")
		return
	}
	if rows == nil {
		rows = []*Patient{}
	}
	writeJSON(w, http.StatusOK, ListResponse{OK: true, Total: total, Data: rows})
}

// Create handles POST /api/pacientes.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	out, err := h.service.Create(r.Context(), &in)
	if err != nil {
		if errors.Is(err, ErrInvalidName) || errors.Is(err, ErrInvalidGender) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to create patient", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create patient")
		return
	}
	status := http.StatusCreated
	if out.AlreadyExisted {
		status = http.StatusOK
	}
	writeJSON(w, status, map[string]any{
		"ok":             true,
		"paciente":       out.Patient,
		"alreadyExisted": out.AlreadyExisted,
	})
}

// DetailsResponse is the payload for GET /api/pacientes/{id}.
type DetailsResponse struct {
	OK         bool          `json:"ok"`
	Patient    *Patient      `json:"paciente"`
	Notes      []*notes.Note `json:"notas"`
	NotesTotal int           `json:"notas_total"`
}

// Details handles GET /api/pacientes/{id}: the patient plus paginated notes.
func (h *Handler) Details(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid patient id")
		return
	}
	p, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "patient not found")
			return
		}
		h.logger.Error("failed to load patient", "error", err, "patient_id", id)
		writeError(w, http.StatusInternalServerError, "failed to load patient")
		return
	}

	resp := DetailsResponse{OK: true, Patient: p, Notes: []*notes.Note{}}
	if h.notes != nil {
		rows, total, err := h.notes.ListByPatient(r.Context(), id, notes.ListFilter{
			Status: notes.StatusActive,
			Limit:  queryInt(r, "notas_limit", 20),
			Offset: queryInt(r, "notas_offset", 0),
		})
		if err != nil {
			h.logger.Error("failed to load patient notes", "error", err, "patient_id", id)
			writeError(w, http.StatusInternalServerError, "failed to load patient notes")
			return
		}
		if rows != nil {
			resp.Notes = rows
		}
		resp.NotesTotal = total
	}
	writeJSON(w, http.StatusOK, resp)
}

// Update handles PUT /api/pacientes/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid patient id")
		return
	}
	var in UpdateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p, err := h.service.Update(r.Context(), id, &in)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			writeError(w, http.StatusNotFound, "patient not found")
		case errors.Is(err, ErrInvalidName), errors.Is(err, ErrInvalidGender), errors.Is(err, ErrInvalidProcessState):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("failed to update patient", "error", err, "patient_id", id)
			writeError(w, http.StatusInternalServerError, "failed to update patient")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "paciente": p})
}

// Deactivate handles DELETE /api/pacientes/{id} (logical delete).
func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid patient id")
		return
	}
	p, err := h.service.Deactivate(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "patient not found")
			return
		}
		h.logger.Error("failed to deactivate patient", "error", err, "patient_id", id)
		writeError(w, http.StatusInternalServerError, "failed to deactivate patient")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "paciente": p})
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
