package dashboard

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/clinicadelvalle/clinica-platform/pkg/logging"
)

// Handler exposes the dashboard over HTTP.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler constructs the dashboard handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if service == nil {
		panic("dashboard: service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Get handles GET /api/dashboard. desde and hasta are optional local dates
// (2006-01-02); without them the current month is reported.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	var from, to *time.Time
	for _, bound := range []struct {
		key string
		dst **time.Time
	}{{"desde", &from}, {"hasta", &to}} {
		raw := r.URL.Query().Get(bound.key)
		if raw == "" {
			continue
		}
		t, err := time.ParseInLocation("2006-01-02", raw, h.service.loc)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "message": "invalid " + bound.key})
			return
		}
		*bound.dst = &t
	}

	data, err := h.service.Data(r.Context(), from, to)
	if err != nil {
		h.logger.Error("failed to build dashboard", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "message": "failed to build dashboard"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":     true,
		"range":  data.Range,
		"kpis":   data.KPIs,
		"charts": data.Charts,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
