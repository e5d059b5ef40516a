package assistant

import (
	"context"
	"strings"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/clinicadelvalle/clinica-platform/internal/notes"
	"github.com/clinicadelvalle/clinica-platform/internal/patients"
	"github.com/clinicadelvalle/clinica-platform/internal/settings"
	"github.com/clinicadelvalle/clinica-platform/pkg/logging"
)

func strPtr(s string) *string { return &s }

type advisorEnv struct {
	advisor  *Advisor
	chat     *fakeChat
	patients *patients.Service
	notes    *notes.Service
	settings *settings.MemoryStore
	patient  *patients.Patient
}

func newAdvisorEnv(t *testing.T, seed map[string]string) *advisorEnv {
	t.Helper()
	logger := logging.Default()
	store := settings.NewMemoryStore(seed)
	patientsSvc := patients.NewService(patients.NewInMemoryRepository(), logger)
	notesSvc := notes.NewService(notes.NewInMemoryRepository(), logger)
	chat := &fakeChat{}

	out, err := patientsSvc.Create(context.Background(), &patients.CreateInput{
		FullName:      "María López",
		ConsultReason: strPtr("ansiedad generalizada"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	return &advisorEnv{
		advisor:  NewAdvisor(chat, "gpt-4o-mini", patientsSvc, notesSvc, store, logger),
		chat:     chat,
		patients: patientsSvc,
		notes:    notesSvc,
		settings: store,
		patient:  out.Patient,
	}
}

func (e *advisorEnv) addNote(t *testing.T, day int, symptoms string) {
	t.Helper()
	date := time.Date(2025, 4, day, 10, 0, 0, 0, testZone)
	_, err := e.notes.Create(context.Background(), &notes.CreateInput{
		PatientID: e.patient.ID,
		Date:      &date,
		Symptoms:  strPtr(symptoms),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSuggestDiagnosis_RendersHistory(t *testing.T) {
	env := newAdvisorEnv(t, nil)
	env.addNote(t, 3, "insomnio")
	env.addNote(t, 10, "rumiación constante")
	env.chat.responses = []openai.ChatCompletionResponse{textResponse("Hipótesis: ansiedad generalizada.")}

	got, err := env.advisor.SuggestDiagnosis(context.Background(), env.patient)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Hipótesis: ansiedad generalizada." {
		t.Errorf("unexpected suggestion: %q", got)
	}

	req := env.chat.requests[0]
	if req.Temperature != 0.2 {
		t.Errorf("expected temperature 0.2, got %v", req.Temperature)
	}
	if len(req.Tools) != 0 {
		t.Errorf("expected no tools on suggestion calls, got %d", len(req.Tools))
	}
	prompt := req.Messages[0].Content
	for _, want := range []string{"María López", "ansiedad generalizada", "insomnio", "rumiación constante"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
	// Notes read chronologically, oldest first.
	if strings.Index(prompt, "insomnio") > strings.Index(prompt, "rumiación constante") {
		t.Error("expected oldest note first in the rendered history")
	}
}

func TestSuggest_NoNotesPlaceholder(t *testing.T) {
	env := newAdvisorEnv(t, nil)
	env.chat.responses = []openai.ChatCompletionResponse{textResponse("ok")}

	if _, err := env.advisor.SuggestTechniques(context.Background(), env.patient); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.chat.requests[0].Temperature != 0.3 {
		t.Errorf("expected temperature 0.3, got %v", env.chat.requests[0].Temperature)
	}
	if !strings.Contains(env.chat.requests[0].Messages[0].Content, "(sin notas de sesión registradas)") {
		t.Errorf("expected empty-history placeholder, got:\n%s", env.chat.requests[0].Messages[0].Content)
	}
}

func TestSuggest_TemplateOverrideFromSettings(t *testing.T) {
	env := newAdvisorEnv(t, map[string]string{
		"prompt.suggest_diagnosis": "Paciente {{paciente}}. Motivo {{motivo_consulta}}. Historial {{historial}}",
	})
	env.chat.responses = []openai.ChatCompletionResponse{textResponse("ok")}

	if _, err := env.advisor.SuggestDiagnosis(context.Background(), env.patient); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	prompt := env.chat.requests[0].Messages[0].Content
	if !strings.HasPrefix(prompt, "Paciente María López. Motivo ansiedad generalizada.") {
		t.Errorf("expected configured template rendered, got:\n%s", prompt)
	}
}

func TestSuggest_MaxNotesLimit(t *testing.T) {
	env := newAdvisorEnv(t, map[string]string{"analysis.max_notes": "1"})
	env.addNote(t, 3, "insomnio")
	env.addNote(t, 10, "rumiación constante")
	env.chat.responses = []openai.ChatCompletionResponse{textResponse("ok")}

	if _, err := env.advisor.SuggestDiagnosis(context.Background(), env.patient); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	prompt := env.chat.requests[0].Messages[0].Content
	if strings.Contains(prompt, "insomnio") {
		t.Error("expected older note dropped by the limit")
	}
	if !strings.Contains(prompt, "rumiación constante") {
		t.Error("expected the newest note kept")
	}
}
