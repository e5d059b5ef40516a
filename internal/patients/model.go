package patients

import (
	"strings"
	"time"
)

// Process states a patient moves through during treatment.
const (
	ProcessStarted  = "iniciado"
	ProcessPaused   = "en_pausa"
	ProcessFinished = "finalizado"
)

// Record states used for logical deletion.
const (
	StatusActive   = "activo"
	StatusInactive = "inactivo"
)

// Patient is a clinic patient row. Names stay in the clinic's wire language
// because the frontend and the assistant tool schemas use them verbatim.
type Patient struct {
	ID             int64     `json:"id"`
	FullName       string    `json:"nombre_completo"`
	NormalizedName string    `json:"nombre_normalizado"`
	Alias          *string   `json:"alias,omitempty"`
	Phone          *string   `json:"telefono,omitempty"`
	Gender         *string   `json:"genero,omitempty"`
	ConsultReason  *string   `json:"motivo_consulta,omitempty"`
	ProcessState   string    `json:"estado_proceso"`
	Status         string    `json:"estado"`
	CreatedAt      time.Time `json:"creado_en"`
}

// CreateInput is the payload for registering a patient.
type CreateInput struct {
	FullName      string  `json:"nombre_completo"`
	Alias         *string `json:"alias,omitempty"`
	Phone         *string `json:"telefono,omitempty"`
	Gender        *string `json:"genero,omitempty"`
	ConsultReason *string `json:"motivo_consulta,omitempty"`
}

// Validate checks required fields before any repository call.
func (in *CreateInput) Validate() error {
	if len(strings.TrimSpace(in.FullName)) < 3 {
		return ErrInvalidName
	}
	if in.Gender != nil && !validGender(*in.Gender) {
		return ErrInvalidGender
	}
	return nil
}

// UpdateInput carries a partial patient update; nil fields are left untouched.
type UpdateInput struct {
	FullName      *string `json:"nombre_completo,omitempty"`
	Alias         *string `json:"alias,omitempty"`
	Phone         *string `json:"telefono,omitempty"`
	Gender        *string `json:"genero,omitempty"`
	ConsultReason *string `json:"motivo_consulta,omitempty"`
	ProcessState  *string `json:"estado_proceso,omitempty"`
}

// Validate rejects out-of-range enum values.
func (in *UpdateInput) Validate() error {
	if in.FullName != nil && len(strings.TrimSpace(*in.FullName)) < 3 {
		return ErrInvalidName
	}
	if in.Gender != nil && !validGender(*in.Gender) {
		return ErrInvalidGender
	}
	if in.ProcessState != nil {
		switch *in.ProcessState {
		case ProcessStarted, ProcessPaused, ProcessFinished:
		default:
			return ErrInvalidProcessState
		}
	}
	return nil
}

// ListFilter narrows List results.
type ListFilter struct {
	Query  string
	Status string
	Limit  int
	Offset int
}

func validGender(g string) bool {
	switch g {
	case "masculino", "femenino", "otro", "no_especificado":
		return true
	}
	return false
}
