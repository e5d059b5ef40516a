package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/clinicadelvalle/clinica-platform/internal/appointments"
	"github.com/clinicadelvalle/clinica-platform/internal/assistant"
	"github.com/clinicadelvalle/clinica-platform/internal/dashboard"
	httpmiddleware "github.com/clinicadelvalle/clinica-platform/internal/http/middleware"
	"github.com/clinicadelvalle/clinica-platform/internal/notes"
	"github.com/clinicadelvalle/clinica-platform/internal/patients"
	"github.com/clinicadelvalle/clinica-platform/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger              *logging.Logger
	PatientsHandler     *patients.Handler
	AppointmentsHandler *appointments.Handler
	NotesHandler        *notes.Handler
	DashboardHandler    *dashboard.Handler
	ChatHandler         *assistant.Handler
	MetricsHandler      http.Handler
	CORSAllowedOrigins  []string

	// Chat is the only endpoint that triggers completion-provider spend,
	// so it gets its own rate limit.
	ChatRatePerSecond float64
	ChatRateBurst     int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", healthCheck)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/api", func(api chi.Router) {
		if cfg.ChatHandler != nil {
			chat := api
			if cfg.ChatRatePerSecond > 0 {
				chat = api.With(httpmiddleware.RateLimit(cfg.ChatRatePerSecond, cfg.ChatRateBurst))
			}
			chat.Post("/chat", cfg.ChatHandler.Chat)
		}

		if cfg.PatientsHandler != nil {
			api.Route("/pacientes", func(r chi.Router) {
				r.Get("/", cfg.PatientsHandler.List)
				r.Post("/", cfg.PatientsHandler.Create)
				r.Get("/{id}", cfg.PatientsHandler.Details)
				r.Put("/{id}", cfg.PatientsHandler.Update)
				r.Delete("/{id}", cfg.PatientsHandler.Deactivate)
			})
		}

		if cfg.AppointmentsHandler != nil {
			api.Route("/citas", func(r chi.Router) {
				r.Get("/", cfg.AppointmentsHandler.List)
				r.Post("/", cfg.AppointmentsHandler.Create)
				r.Get("/{id}", cfg.AppointmentsHandler.Get)
				r.Put("/{id}", cfg.AppointmentsHandler.Reschedule)
				r.Delete("/{id}", cfg.AppointmentsHandler.Cancel)
			})
		}

		if cfg.NotesHandler != nil {
			api.Route("/notas", func(r chi.Router) {
				r.Get("/", cfg.NotesHandler.List)
				r.Post("/", cfg.NotesHandler.Create)
				r.Get("/{id}", cfg.NotesHandler.Get)
				r.Put("/{id}", cfg.NotesHandler.Update)
				r.Delete("/{id}", cfg.NotesHandler.Deactivate)
			})
		}

		if cfg.DashboardHandler != nil {
			api.Get("/dashboard", cfg.DashboardHandler.Get)
		}
	})

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
