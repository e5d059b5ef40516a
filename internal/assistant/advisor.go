package assistant

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/clinicadelvalle/clinica-platform/internal/notes"
	"github.com/clinicadelvalle/clinica-platform/internal/patients"
	"github.com/clinicadelvalle/clinica-platform/internal/settings"
	"github.com/clinicadelvalle/clinica-platform/pkg/logging"
)

// chatClient is the slice of the OpenAI client the assistant uses.
type chatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

const (
	defaultMaxAnalysisNotes = 10

	fallbackDiagnosisPrompt = "Eres un asistente clínico. Con base en el historial del paciente {{paciente}} " +
		"(motivo de consulta: {{motivo_consulta}}), propone hipótesis diagnósticas tentativas.\n" +
		"Historial:\n{{historial}}\n" +
		"Responde en español, breve, y aclara que son hipótesis orientativas, no un diagnóstico."

	fallbackTechniquesPrompt = "Eres un asistente clínico. Con base en el historial del paciente {{paciente}} " +
		"(motivo de consulta: {{motivo_consulta}}), sugiere técnicas terapéuticas que podrían ayudar.\n" +
		"Historial:\n{{historial}}\n" +
		"Responde en español, breve, y aclara que la decisión final es del terapeuta."
)

// Advisor runs the suggestion actions: it assembles a patient's clinical
// context and asks the completion provider for tentative ideas, without
// tools.
type Advisor struct {
	client   chatClient
	model    string
	patients *patients.Service
	notes    *notes.Service
	settings settings.Store
	logger   *logging.Logger
}

// NewAdvisor constructs an advisor.
func NewAdvisor(client chatClient, model string, patientsSvc *patients.Service, notesSvc *notes.Service, store settings.Store, logger *logging.Logger) *Advisor {
	if client == nil {
		panic("assistant: chat client cannot be nil")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Advisor{
		client:   client,
		model:    model,
		patients: patientsSvc,
		notes:    notesSvc,
		settings: store,
		logger:   logger,
	}
}

// SuggestDiagnosis proposes tentative diagnostic hypotheses for a patient.
func (a *Advisor) SuggestDiagnosis(ctx context.Context, p *patients.Patient) (string, error) {
	return a.suggest(ctx, p, "prompt.suggest_diagnosis", fallbackDiagnosisPrompt, 0.2)
}

// SuggestTechniques proposes therapeutic techniques for a patient.
func (a *Advisor) SuggestTechniques(ctx context.Context, p *patients.Patient) (string, error) {
	return a.suggest(ctx, p, "prompt.suggest_techniques", fallbackTechniquesPrompt, 0.3)
}

func (a *Advisor) suggest(ctx context.Context, p *patients.Patient, promptKey, fallback string, temperature float32) (string, error) {
	history, err := a.buildPatientContext(ctx, p)
	if err != nil {
		return "", err
	}

	template := fallback
	if v, err := a.settings.Get(ctx, promptKey); err == nil && v != "" {
		template = v
	}

	motivo := "no registrado"
	if p.ConsultReason != nil && *p.ConsultReason != "" {
		motivo = *p.ConsultReason
	}
	prompt := strings.NewReplacer(
		"{{paciente}}", p.FullName,
		"{{motivo_consulta}}", motivo,
		"{{historial}}", history,
	).Replace(template)

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.model,
		Temperature: temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("assistant: suggestion completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("assistant: suggestion completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// buildPatientContext renders the patient's note history, oldest first, as
// plain text for the prompt template.
func (a *Advisor) buildPatientContext(ctx context.Context, p *patients.Patient) (string, error) {
	limit := defaultMaxAnalysisNotes
	if raw, err := a.settings.Get(ctx, "analysis.max_notes"); err == nil {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}
	status := notes.StatusActive
	if raw, err := a.settings.Get(ctx, "analysis.notes_state_default"); err == nil && raw != "" {
		status = raw
	}

	rows, _, err := a.notes.ListByPatient(ctx, p.ID, notes.ListFilter{Status: status, Limit: limit})
	if err != nil {
		return "", fmt.Errorf("assistant: failed to load note history: %w", err)
	}
	if len(rows) == 0 {
		return "(sin notas de sesión registradas)", nil
	}

	// ListByPatient returns newest first; the prompt reads chronologically.
	var b strings.Builder
	for i := len(rows) - 1; i >= 0; i-- {
		n := rows[i]
		b.WriteString("- Sesión del ")
		b.WriteString(n.Date.Format("2006-01-02"))
		for _, field := range []struct {
			label string
			value *string
		}{
			{"síntomas", n.Symptoms},
			{"padecimientos", n.Conditions},
			{"notas", n.KeyNotes},
			{"trastornos", n.Disorders},
			{"afectamientos subyacentes", n.UnderlyingIssues},
			{"diagnóstico", n.Diagnosis},
		} {
			if field.value != nil && *field.value != "" {
				b.WriteString("; ")
				b.WriteString(field.label)
				b.WriteString(": ")
				b.WriteString(*field.value)
			}
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}
