package assistant

import "encoding/json"

// Kind classifies an action outcome. Conflicts and missing fields are
// ordinary variants rather than errors; the turn loop branches on them
// without parsing message strings.
type Kind string

const (
	KindSuccess      Kind = "success"
	KindMissingField Kind = "missing_field"
	KindConflict     Kind = "conflict"
	KindFailure      Kind = "failure"
)

// Result is the outcome of one executed action.
type Result struct {
	Kind    Kind     `json:"kind"`
	Message string   `json:"message"`
	Missing []string `json:"missing,omitempty"`
	Data    any      `json:"data,omitempty"`
}

// Success reports a completed action, optionally carrying its payload.
func Success(message string, data any) Result {
	return Result{Kind: KindSuccess, Message: message, Data: data}
}

// MissingField reports that the action cannot proceed without the named
// fields, in the order they should be asked for.
func MissingField(message string, fields ...string) Result {
	return Result{Kind: KindMissingField, Message: message, Missing: fields}
}

// Conflict reports a scheduling collision.
func Conflict(message string) Result {
	return Result{Kind: KindConflict, Message: message}
}

// Failure reports a non-retryable action failure.
func Failure(message string) Result {
	return Result{Kind: KindFailure, Message: message}
}

// ToolPayload renders the result as the JSON body of a tool-result message.
func (r Result) ToolPayload() string {
	raw, err := json.Marshal(r)
	if err != nil {
		return `{"kind":"failure","message":"internal serialization error"}`
	}
	return string(raw)
}
