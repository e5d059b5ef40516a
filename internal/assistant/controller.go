package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/clinicadelvalle/clinica-platform/internal/observability/metrics"
	"github.com/clinicadelvalle/clinica-platform/internal/settings"
	"github.com/clinicadelvalle/clinica-platform/pkg/logging"
)

var controllerTracer = otel.Tracer("clinica.internal.assistant")

const (
	// maxModelIterations bounds the tool-call loop within one turn.
	maxModelIterations = 4
	modelTemperature   = 0.2
	systemPromptTTL    = 30 * time.Second

	stepLimitMessage = "step limit exceeded"
)

// Response codes on the chat wire surface.
const (
	CodeConflict     = "CONFLICT"
	CodeMissingField = "MISSING_FIELD"
)

// TurnResponse is the chat endpoint's reply to one user message.
type TurnResponse struct {
	OK      bool     `json:"ok"`
	Code    string   `json:"code,omitempty"`
	Missing []string `json:"missing,omitempty"`
	Message string   `json:"message"`
	Result  any      `json:"result,omitempty"`
}

// Controller runs the turn loop: it decides between resuming a pending
// action and consulting the completion provider, executes requested
// actions, and keeps the session consistent across partial failures.
type Controller struct {
	client   chatClient
	model    string
	catalog  *Catalog
	executor *Executor
	sessions *SessionStore
	settings settings.Store
	metrics  *metrics.AssistantMetrics
	logger   *logging.Logger
	loc      *time.Location
	now      func() time.Time
}

// NewController constructs the turn-loop controller.
func NewController(client chatClient, model string, catalog *Catalog, executor *Executor, sessions *SessionStore, store settings.Store, m *metrics.AssistantMetrics, loc *time.Location, logger *logging.Logger) *Controller {
	if client == nil {
		panic("assistant: chat client cannot be nil")
	}
	if catalog == nil || executor == nil || sessions == nil || store == nil {
		panic("assistant: catalog, executor, sessions and settings required")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Controller{
		client:   client,
		model:    model,
		catalog:  catalog,
		executor: executor,
		sessions: sessions,
		settings: store,
		metrics:  m,
		logger:   logger,
		loc:      loc,
		now:      time.Now,
	}
}

// HandleTurn processes one user message and returns the wire response.
// ErrSystemPromptMissing is the only error the HTTP layer maps to a
// configuration failure; anything else is an internal error.
func (c *Controller) HandleTurn(ctx context.Context, sessionID, message string) (*TurnResponse, error) {
	ctx, span := controllerTracer.Start(ctx, "assistant.handle_turn")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", sessionID))

	sess, err := c.sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.ExpirePending(c.now()) {
		c.logger.Info("pending action expired", "session_id", sessionID)
	}
	sess.AppendHistory("user", message)

	if resp, handled := c.tryResume(ctx, sess, message); handled {
		return resp, c.sessions.Save(ctx, sess)
	}
	return c.runModelLoop(ctx, sess)
}

// tryResume completes a pending action directly when the incoming message
// plausibly answers the first missing field. Only nombre is resumable this
// way; anything else goes back through the provider.
func (c *Controller) tryResume(ctx context.Context, sess *Session, message string) (*TurnResponse, bool) {
	p := sess.Pending
	if p == nil || len(p.Missing) == 0 || p.Missing[0] != "nombre" || !LooksLikeName(message) {
		return nil, false
	}

	merged, err := mergeField(p.Args, "nombre", strings.TrimSpace(message))
	if err != nil {
		c.logger.Warn("failed to resume pending action", "session_id", sess.ID, "error", err)
		sess.ClearPending()
		return nil, false
	}
	action := p.Action
	sess.ClearPending()

	res := c.executor.Execute(ctx, ActionCall{Name: action, Args: merged}, sess)
	if res.Kind == KindConflict {
		// A busy slot keeps the action parked so the user can answer with
		// another time.
		sess.Pending = p
	}
	c.metrics.ObserveToolCall(action, string(res.Kind))
	sess.AppendHistory("assistant", res.Message)

	resp := c.responseFromResult(res)
	c.metrics.ObserveTurn(string(res.Kind))
	return resp, true
}

func (c *Controller) runModelLoop(ctx context.Context, sess *Session) (*TurnResponse, error) {
	prompt, err := c.systemPrompt(ctx)
	if err != nil {
		return nil, err
	}

	msgs := c.buildMessages(prompt, sess)
	tools := c.catalog.Tools(ctx)

	for i := 0; i < maxModelIterations; i++ {
		started := c.now()
		resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       c.model,
			Temperature: modelTemperature,
			Messages:    msgs,
			Tools:       tools,
		})
		c.metrics.ObserveModelLatency("tools", c.now().Sub(started).Seconds())
		if err != nil {
			return nil, fmt.Errorf("assistant: completion failed: %w", err)
		}
		if len(resp.Choices) == 0 {
			return nil, fmt.Errorf("assistant: completion returned no choices")
		}
		choice := resp.Choices[0].Message

		if len(choice.ToolCalls) == 0 {
			return c.finishWithText(ctx, sess, choice.Content)
		}

		msgs = append(msgs, choice)
		for _, tc := range choice.ToolCalls {
			res := c.executor.Execute(ctx, ActionCall{
				Name: tc.Function.Name,
				Args: json.RawMessage(tc.Function.Arguments),
			}, sess)
			c.metrics.ObserveToolCall(tc.Function.Name, string(res.Kind))

			if res.Kind == KindConflict {
				// A collision aborts the whole batch; remaining calls in
				// this response are not executed.
				sess.AppendHistory("assistant", res.Message)
				c.metrics.ObserveTurn(string(KindConflict))
				return &TurnResponse{OK: false, Code: CodeConflict, Message: res.Message}, c.sessions.Save(ctx, sess)
			}

			msgs = append(msgs, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    res.ToolPayload(),
				ToolCallID: tc.ID,
			})
		}
	}

	c.metrics.ObserveTurn("step_limit")
	return &TurnResponse{OK: false, Message: stepLimitMessage}, c.sessions.Save(ctx, sess)
}

func (c *Controller) finishWithText(ctx context.Context, sess *Session, content string) (*TurnResponse, error) {
	sess.AppendHistory("assistant", content)
	if err := c.sessions.Save(ctx, sess); err != nil {
		return nil, err
	}
	if sess.Pending != nil {
		c.metrics.ObserveTurn(string(KindMissingField))
		return &TurnResponse{OK: false, Code: CodeMissingField, Missing: sess.Pending.Missing, Message: content}, nil
	}
	c.metrics.ObserveTurn(string(KindSuccess))
	return &TurnResponse{OK: true, Message: content}, nil
}

func (c *Controller) systemPrompt(ctx context.Context) (string, error) {
	prompt, err := c.settings.GetTTL(ctx, "system_prompt", systemPromptTTL)
	if errors.Is(err, settings.ErrNotFound) {
		return "", ErrSystemPromptMissing
	}
	if err != nil {
		return "", fmt.Errorf("assistant: failed to load system prompt: %w", err)
	}
	return prompt, nil
}

// buildMessages assembles the provider request: the configured system
// prompt plus per-session context hints, followed by the remembered
// history (which already ends with the current user message).
func (c *Controller) buildMessages(prompt string, sess *Session) []openai.ChatCompletionMessage {
	var hints strings.Builder
	hints.WriteString("\n\nHoy es ")
	hints.WriteString(c.now().In(c.loc).Format("2006-01-02 15:04"))
	hints.WriteString(".")
	if sess.ActivePatient != nil {
		hints.WriteString(" El paciente activo de la conversación es ")
		hints.WriteString(sess.ActivePatient.Name)
		hints.WriteString("; si el usuario no menciona otro nombre, se refiere a este paciente.")
	}
	if sess.Pending != nil && len(sess.Pending.Missing) > 0 {
		hints.WriteString(fmt.Sprintf(" Hay una acción %s en espera del campo %s; si el usuario lo proporciona, reintenta la acción con ese dato.",
			sess.Pending.Action, sess.Pending.Missing[0]))
	}

	msgs := make([]openai.ChatCompletionMessage, 0, len(sess.History)+1)
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: prompt + hints.String(),
	})
	for _, m := range sess.History {
		role := openai.ChatMessageRoleUser
		if m.Role == "assistant" {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return msgs
}

func (c *Controller) responseFromResult(res Result) *TurnResponse {
	switch res.Kind {
	case KindSuccess:
		return &TurnResponse{OK: true, Message: res.Message, Result: res.Data}
	case KindConflict:
		return &TurnResponse{OK: false, Code: CodeConflict, Message: res.Message}
	case KindMissingField:
		return &TurnResponse{OK: false, Code: CodeMissingField, Missing: res.Missing, Message: res.Message}
	default:
		return &TurnResponse{OK: false, Message: res.Message}
	}
}
