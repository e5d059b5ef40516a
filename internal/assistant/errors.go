package assistant

import "errors"

// ErrSystemPromptMissing is returned when the system_prompt configuration
// row is absent; the chat endpoint cannot operate without it.
var ErrSystemPromptMissing = errors.New("assistant: system_prompt setting missing")

// ErrUnknownAction is returned when the model requests an action the
// catalog does not define.
var ErrUnknownAction = errors.New("assistant: unknown action")
