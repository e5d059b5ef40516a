package appointments

import "time"

// Appointment statuses.
const (
	StatusScheduled = "programada"
	StatusCancelled = "cancelada"
)

// Appointment is one scheduled visit. The calendar event id is set after the
// row is committed; it stays nil when the calendar write failed.
type Appointment struct {
	ID              int64     `json:"id"`
	PatientID       int64     `json:"paciente_id"`
	Date            time.Time `json:"fecha"`
	Reason          *string   `json:"motivo,omitempty"`
	DurationMin     int       `json:"duracion_minutos"`
	Status          string    `json:"estado"`
	CalendarEventID *string   `json:"evento_calendario_id,omitempty"`
	CreatedAt       time.Time `json:"creada_en"`
}

// CreateInput carries a new appointment row.
type CreateInput struct {
	PatientID   int64
	Date        time.Time
	Reason      *string
	DurationMin int
}

// UpdateInput carries a partial row update; nil fields are untouched.
type UpdateInput struct {
	Date            *time.Time
	Reason          *string
	DurationMin     *int
	Status          *string
	CalendarEventID *string
}

// ListFilter narrows List results.
type ListFilter struct {
	PatientID int64
	Status    string
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}
