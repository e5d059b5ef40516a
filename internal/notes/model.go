package notes

import "time"

// Record states used for logical deletion.
const (
	StatusActive   = "activo"
	StatusInactive = "inactivo"
	StatusAll      = "todos"
)

// Note is one clinical session entry for a patient. The six free-text fields
// mirror how the clinic structures session notes; any of them may be empty.
type Note struct {
	ID               int64     `json:"id"`
	PatientID        int64     `json:"paciente_id"`
	Date             time.Time `json:"fecha"`
	CreatedBy        *int64    `json:"creada_por,omitempty"`
	Symptoms         *string   `json:"sintomas,omitempty"`
	Conditions       *string   `json:"padecimientos,omitempty"`
	KeyNotes         *string   `json:"notas_importantes,omitempty"`
	Disorders        *string   `json:"trastornos,omitempty"`
	UnderlyingIssues *string   `json:"afectamientos_subyacentes,omitempty"`
	Diagnosis        *string   `json:"diagnostico,omitempty"`
	Status           string    `json:"estado"`
}

// CreateInput carries a new note. The patient is resolved by the caller;
// Date is optional and defaults to the insertion timestamp.
type CreateInput struct {
	PatientID        int64
	Date             *time.Time
	CreatedBy        *int64
	Symptoms         *string
	Conditions       *string
	KeyNotes         *string
	Disorders        *string
	UnderlyingIssues *string
	Diagnosis        *string
}

// UpdateInput carries a partial note edit; nil fields are untouched.
type UpdateInput struct {
	Date             *time.Time `json:"fecha,omitempty"`
	Symptoms         *string    `json:"sintomas,omitempty"`
	Conditions       *string    `json:"padecimientos,omitempty"`
	KeyNotes         *string    `json:"notas_importantes,omitempty"`
	Disorders        *string    `json:"trastornos,omitempty"`
	UnderlyingIssues *string    `json:"afectamientos_subyacentes,omitempty"`
	Diagnosis        *string    `json:"diagnostico,omitempty"`
}

// ListFilter pages through a patient's notes.
type ListFilter struct {
	Status string
	Limit  int
	Offset int
}
