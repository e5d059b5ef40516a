package appointments

import (
	"errors"
	"fmt"

	"github.com/clinicadelvalle/clinica-platform/internal/calendar"
)

// ErrNotFound is returned when an appointment does not exist.
var ErrNotFound = errors.New("appointment not found")

// ErrNoUpcoming is returned when a patient has no active upcoming
// appointment to act on.
var ErrNoUpcoming = errors.New("no upcoming appointments")

// ConflictError reports that a target slot overlaps an existing calendar
// event. It is decided at the point of failure and carried as a typed value
// so callers can map it to a 409 without inspecting message strings.
type ConflictError struct {
	Detail string
	Event  *calendar.Event
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("appointments: slot conflict: %s", e.Detail)
}

// AmbiguousError reports that a patient has several upcoming appointments
// and the request did not say which one. Callers turn it into a
// missing-field outcome asking for fecha.
type AmbiguousError struct {
	Count int
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("appointments: %d upcoming appointments, fecha required", e.Count)
}
