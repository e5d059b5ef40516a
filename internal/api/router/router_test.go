package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicadelvalle/clinica-platform/internal/appointments"
	"github.com/clinicadelvalle/clinica-platform/internal/assistant"
	"github.com/clinicadelvalle/clinica-platform/internal/calendar"
	"github.com/clinicadelvalle/clinica-platform/internal/dashboard"
	"github.com/clinicadelvalle/clinica-platform/internal/notes"
	"github.com/clinicadelvalle/clinica-platform/internal/patients"
	"github.com/clinicadelvalle/clinica-platform/internal/settings"
	"github.com/clinicadelvalle/clinica-platform/pkg/logging"
)

// staticChat answers every completion with the same text, no tool calls.
type staticChat struct {
	content string
}

func (s *staticChat) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: s.content},
		}},
	}, nil
}

type dashboardStub struct{}

func (dashboardStub) CountActivePatients(ctx context.Context) (int, error) { return 2, nil }
func (dashboardStub) CountUpcomingAppointments(ctx context.Context, r dashboard.Range, now time.Time) (int, error) {
	return 1, nil
}
func (dashboardStub) CountCancelledAppointments(ctx context.Context, r dashboard.Range) (int, error) {
	return 0, nil
}
func (dashboardStub) CountNotes(ctx context.Context, r dashboard.Range) (int, error) { return 0, nil }
func (dashboardStub) CountNewPatients(ctx context.Context, r dashboard.Range) (int, error) {
	return 0, nil
}
func (dashboardStub) AppointmentsByDay(ctx context.Context, r dashboard.Range, loc *time.Location) ([]dashboard.DayCount, error) {
	return nil, nil
}
func (dashboardStub) AppointmentsByStatus(ctx context.Context, r dashboard.Range) ([]dashboard.StatusCount, error) {
	return nil, nil
}
func (dashboardStub) PatientsByState(ctx context.Context) ([]dashboard.StateCount, error) {
	return nil, nil
}

func newTestRouter(t *testing.T, chatBurst int) http.Handler {
	t.Helper()

	logger := logging.Default()
	clinicZone := time.FixedZone("clinic", -6*3600)
	store := settings.NewMemoryStore(map[string]string{
		"system_prompt": "Eres la asistente de la clínica.",
	})

	patientsSvc := patients.NewService(patients.NewInMemoryRepository(), logger)
	notesSvc := notes.NewService(notes.NewInMemoryRepository(), logger)
	apptSvc := appointments.NewService(
		appointments.NewInMemoryRepository(), patientsSvc, calendar.NewMemoryBackend(),
		store, clinicZone, false, logger,
	)

	chat := &staticChat{content: "Hola."}
	catalog := assistant.NewCatalog(store, logger)
	advisor := assistant.NewAdvisor(chat, "gpt-4o-mini", patientsSvc, notesSvc, store, logger)
	executor := assistant.NewExecutor(catalog, patientsSvc, apptSvc, notesSvc, advisor, logger)

	mr := miniredis.RunT(t)
	sessions := assistant.NewSessionStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Hour)
	controller := assistant.NewController(chat, "gpt-4o-mini", catalog, executor, sessions, store, nil, clinicZone, logger)

	return New(&Config{
		Logger:              logger,
		PatientsHandler:     patients.NewHandler(patientsSvc, notesSvc, logger),
		AppointmentsHandler: appointments.NewHandler(apptSvc, logger),
		NotesHandler:        notes.NewHandler(notesSvc, logger),
		DashboardHandler:    dashboard.NewHandler(dashboard.NewService(dashboardStub{}, clinicZone, logger), logger),
		ChatHandler:         assistant.NewHandler(controller, "clinica_session", logger),
		ChatRatePerSecond:   0.001,
		ChatRateBurst:       chatBurst,
	})
}

func TestRouterHealthEndpoint(t *testing.T) {
	router := newTestRouter(t, 5)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var resp map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "ok", resp["status"])
}

func TestRouterPatientLifecycle(t *testing.T) {
	router := newTestRouter(t, 5)

	body, err := json.Marshal(map[string]any{"nombre_completo": "María López"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/pacientes/", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/pacientes/1", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/pacientes/99", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRouterAppointmentRoutes(t *testing.T) {
	router := newTestRouter(t, 5)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/citas/", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/citas/42", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRouterDashboardRoute(t *testing.T) {
	router := newTestRouter(t, 5)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var resp struct {
		OK   bool           `json:"ok"`
		KPIs dashboard.KPIs `json:"kpis"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.True(t, resp.OK)
	assert.Equal(t, 2, resp.KPIs.ActivePatients)
}

func TestRouterChatRateLimit(t *testing.T) {
	router := newTestRouter(t, 1)

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewReader([]byte(`{"message":"hola"}`)))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr
	}

	first := send()
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())
	assert.NotEmpty(t, first.Result().Cookies())

	second := send()
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestRouterChatNotRateLimitedForOtherRoutes(t *testing.T) {
	router := newTestRouter(t, 1)

	for i := 0; i < 3; i++ {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
		require.Equal(t, http.StatusOK, rr.Code)
	}
}
