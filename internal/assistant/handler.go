package assistant

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/clinicadelvalle/clinica-platform/pkg/logging"
)

// Handler exposes the chat endpoint.
type Handler struct {
	controller *Controller
	cookieName string
	logger     *logging.Logger
}

// NewHandler creates the chat handler. The session id travels in a cookie;
// a request without one gets a fresh session.
func NewHandler(controller *Controller, cookieName string, logger *logging.Logger) *Handler {
	if controller == nil {
		panic("assistant: controller required")
	}
	if cookieName == "" {
		cookieName = "clinica_session"
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{controller: controller, cookieName: cookieName, logger: logger}
}

// ChatRequest is the body for POST /api/chat.
type ChatRequest struct {
	Message string `json:"message"`
}

// Chat handles POST /api/chat.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	sessionID := h.sessionID(w, r)

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, &TurnResponse{OK: false, Message: "invalid request body"})
		return
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		writeJSON(w, http.StatusBadRequest, &TurnResponse{OK: false, Message: "message is required"})
		return
	}

	resp, err := h.controller.HandleTurn(r.Context(), sessionID, message)
	if err != nil {
		if errors.Is(err, ErrSystemPromptMissing) {
			h.logger.Error("chat misconfigured", "error", err)
			writeJSON(w, http.StatusInternalServerError, &TurnResponse{OK: false, Message: "el asistente no está configurado (system_prompt)"})
			return
		}
		h.logger.Error("chat turn failed", "error", err, "session_id", sessionID)
		writeJSON(w, http.StatusInternalServerError, &TurnResponse{OK: false, Message: "ocurrió un error interno"})
		return
	}

	status := http.StatusOK
	if resp.Code == CodeConflict {
		status = http.StatusConflict
	}
	writeJSON(w, status, resp)
}

func (h *Handler) sessionID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(h.cookieName); err == nil && c.Value != "" {
		return c.Value
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
