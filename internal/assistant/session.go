package assistant

import (
	"encoding/json"
	"time"
)

const (
	// historyLimit caps how many chat messages a session remembers.
	historyLimit = 5
	// pendingTTL is how long an incomplete action waits for its missing
	// field before being dropped, checked at the start of each turn.
	pendingTTL = 10 * time.Minute
)

// ChatMessage is one remembered line of conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ActivePatient is the patient the conversation is currently about. It is
// set after any action that resolves a patient and lets later turns omit
// the name.
type ActivePatient struct {
	ID   int64  `json:"id"`
	Name string `json:"nombre"`
}

// PendingAction is an action halted on a missing field, waiting for the
// next user message to supply it.
type PendingAction struct {
	Action  string          `json:"action"`
	Args    json.RawMessage `json:"args"`
	Missing []string        `json:"missing"`
	Since   time.Time       `json:"since"`
}

// Session is the per-conversation state the orchestrator reads and writes
// each turn. There is no cross-request locking; concurrent turns on one
// session are last-write-wins.
type Session struct {
	ID            string         `json:"id"`
	History       []ChatMessage  `json:"history"`
	ActivePatient *ActivePatient `json:"active_patient,omitempty"`
	Pending       *PendingAction `json:"pending,omitempty"`
}

// AppendHistory records a message, evicting the oldest beyond the cap.
func (s *Session) AppendHistory(role, content string) {
	s.History = append(s.History, ChatMessage{Role: role, Content: content})
	if len(s.History) > historyLimit {
		s.History = s.History[len(s.History)-historyLimit:]
	}
}

// ExpirePending drops a pending action older than pendingTTL and reports
// whether it did.
func (s *Session) ExpirePending(now time.Time) bool {
	if s.Pending != nil && now.Sub(s.Pending.Since) > pendingTTL {
		s.Pending = nil
		return true
	}
	return false
}

// SetPending records an incomplete action. Missing keeps the order fields
// should be asked for; resumption always targets the first.
func (s *Session) SetPending(action string, args json.RawMessage, missing []string, now time.Time) {
	s.Pending = &PendingAction{Action: action, Args: args, Missing: missing, Since: now}
}

// ClearPending removes the pending action, if any.
func (s *Session) ClearPending() {
	s.Pending = nil
}

// SetActivePatient updates the conversation's patient context.
func (s *Session) SetActivePatient(id int64, name string) {
	s.ActivePatient = &ActivePatient{ID: id, Name: name}
}
