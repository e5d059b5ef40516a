package assistant

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Typed argument structs, one per action. The model emits untyped JSON;
// decoding and the missing-field check happen here, at the executor
// boundary, so the rest of the code only sees validated values.

type actionArgs interface {
	// missingFields returns the required fields still absent, in the
	// order they should be requested.
	missingFields() []string
}

// nombreCarrier is implemented by args that identify a patient by name,
// so the executor can inject the session's active patient.
type nombreCarrier interface {
	getNombre() string
	setNombre(string)
}

// patientRef is implemented by args that reference an existing patient.
// Resolution prefers an explicit id over the name.
type patientRef interface {
	nombreCarrier
	getID() int64
}

type createPatientArgs struct {
	Nombre         string  `json:"nombre"`
	Alias          *string `json:"alias,omitempty"`
	Telefono       *string `json:"telefono,omitempty"`
	Genero         *string `json:"genero,omitempty"`
	MotivoConsulta *string `json:"motivo_consulta,omitempty"`
}

func (a *createPatientArgs) getNombre() string  { return a.Nombre }
func (a *createPatientArgs) setNombre(n string) { a.Nombre = n }
func (a *createPatientArgs) missingFields() []string {
	if strings.TrimSpace(a.Nombre) == "" {
		return []string{"nombre"}
	}
	return nil
}

type scheduleAppointmentArgs struct {
	ID     int64   `json:"id,omitempty"`
	Nombre string  `json:"nombre"`
	Fecha  string  `json:"fecha"`
	Motivo *string `json:"motivo,omitempty"`
}

func (a *scheduleAppointmentArgs) getID() int64       { return a.ID }
func (a *scheduleAppointmentArgs) getNombre() string  { return a.Nombre }
func (a *scheduleAppointmentArgs) setNombre(n string) { a.Nombre = n }
func (a *scheduleAppointmentArgs) missingFields() []string {
	var missing []string
	if a.ID == 0 && strings.TrimSpace(a.Nombre) == "" {
		missing = append(missing, "nombre")
	}
	if strings.TrimSpace(a.Fecha) == "" {
		missing = append(missing, "fecha")
	}
	return missing
}

type rescheduleAppointmentArgs struct {
	ID         int64  `json:"id,omitempty"`
	Nombre     string `json:"nombre"`
	Fecha      string `json:"fecha,omitempty"`
	NuevaFecha string `json:"nueva_fecha"`
}

func (a *rescheduleAppointmentArgs) getID() int64       { return a.ID }
func (a *rescheduleAppointmentArgs) getNombre() string  { return a.Nombre }
func (a *rescheduleAppointmentArgs) setNombre(n string) { a.Nombre = n }
func (a *rescheduleAppointmentArgs) missingFields() []string {
	var missing []string
	if a.ID == 0 && strings.TrimSpace(a.Nombre) == "" {
		missing = append(missing, "nombre")
	}
	if strings.TrimSpace(a.NuevaFecha) == "" {
		missing = append(missing, "nueva_fecha")
	}
	return missing
}

type cancelAppointmentArgs struct {
	ID     int64  `json:"id,omitempty"`
	Nombre string `json:"nombre"`
	Fecha  string `json:"fecha,omitempty"`
}

func (a *cancelAppointmentArgs) getID() int64       { return a.ID }
func (a *cancelAppointmentArgs) getNombre() string  { return a.Nombre }
func (a *cancelAppointmentArgs) setNombre(n string) { a.Nombre = n }
func (a *cancelAppointmentArgs) missingFields() []string {
	if a.ID == 0 && strings.TrimSpace(a.Nombre) == "" {
		return []string{"nombre"}
	}
	return nil
}

type updatePatientArgs struct {
	ID             int64   `json:"id,omitempty"`
	Nombre         string  `json:"nombre"`
	NuevoNombre    *string `json:"nuevo_nombre,omitempty"`
	Alias          *string `json:"alias,omitempty"`
	Telefono       *string `json:"telefono,omitempty"`
	Genero         *string `json:"genero,omitempty"`
	MotivoConsulta *string `json:"motivo_consulta,omitempty"`
	EstadoProceso  *string `json:"estado_proceso,omitempty"`
}

func (a *updatePatientArgs) getID() int64       { return a.ID }
func (a *updatePatientArgs) getNombre() string  { return a.Nombre }
func (a *updatePatientArgs) setNombre(n string) { a.Nombre = n }
func (a *updatePatientArgs) missingFields() []string {
	if a.ID == 0 && strings.TrimSpace(a.Nombre) == "" {
		return []string{"nombre"}
	}
	return nil
}

type deactivatePatientArgs struct {
	ID     int64  `json:"id,omitempty"`
	Nombre string `json:"nombre"`
}

func (a *deactivatePatientArgs) getID() int64       { return a.ID }
func (a *deactivatePatientArgs) getNombre() string  { return a.Nombre }
func (a *deactivatePatientArgs) setNombre(n string) { a.Nombre = n }
func (a *deactivatePatientArgs) missingFields() []string {
	if a.ID == 0 && strings.TrimSpace(a.Nombre) == "" {
		return []string{"nombre"}
	}
	return nil
}

type listPatientsArgs struct {
	Estado   string `json:"estado,omitempty"`
	Busqueda string `json:"busqueda,omitempty"`
}

func (a *listPatientsArgs) missingFields() []string { return nil }

type getPatientDetailsArgs struct {
	ID     int64  `json:"id,omitempty"`
	Nombre string `json:"nombre"`
}

func (a *getPatientDetailsArgs) getID() int64       { return a.ID }
func (a *getPatientDetailsArgs) getNombre() string  { return a.Nombre }
func (a *getPatientDetailsArgs) setNombre(n string) { a.Nombre = n }
func (a *getPatientDetailsArgs) missingFields() []string {
	if a.ID == 0 && strings.TrimSpace(a.Nombre) == "" {
		return []string{"nombre"}
	}
	return nil
}

type createSessionEntryArgs struct {
	ID                       int64   `json:"id,omitempty"`
	Nombre                   string  `json:"nombre"`
	Fecha                    *string `json:"fecha,omitempty"`
	Sintomas                 *string `json:"sintomas,omitempty"`
	Padecimientos            *string `json:"padecimientos,omitempty"`
	NotasImportantes         *string `json:"notas_importantes,omitempty"`
	Trastornos               *string `json:"trastornos,omitempty"`
	AfectamientosSubyacentes *string `json:"afectamientos_subyacentes,omitempty"`
	Diagnostico              *string `json:"diagnostico,omitempty"`
}

func (a *createSessionEntryArgs) getID() int64       { return a.ID }
func (a *createSessionEntryArgs) getNombre() string  { return a.Nombre }
func (a *createSessionEntryArgs) setNombre(n string) { a.Nombre = n }
func (a *createSessionEntryArgs) missingFields() []string {
	if a.ID == 0 && strings.TrimSpace(a.Nombre) == "" {
		return []string{"nombre"}
	}
	return nil
}

type listSessionEntriesArgs struct {
	ID     int64  `json:"id,omitempty"`
	Nombre string `json:"nombre"`
	Estado string `json:"estado,omitempty"`
	Limite int    `json:"limite,omitempty"`
}

func (a *listSessionEntriesArgs) getID() int64       { return a.ID }
func (a *listSessionEntriesArgs) getNombre() string  { return a.Nombre }
func (a *listSessionEntriesArgs) setNombre(n string) { a.Nombre = n }
func (a *listSessionEntriesArgs) missingFields() []string {
	if a.ID == 0 && strings.TrimSpace(a.Nombre) == "" {
		return []string{"nombre"}
	}
	return nil
}

type suggestArgs struct {
	ID     int64  `json:"id,omitempty"`
	Nombre string `json:"nombre"`
}

func (a *suggestArgs) getID() int64       { return a.ID }
func (a *suggestArgs) getNombre() string  { return a.Nombre }
func (a *suggestArgs) setNombre(n string) { a.Nombre = n }
func (a *suggestArgs) missingFields() []string {
	if a.ID == 0 && strings.TrimSpace(a.Nombre) == "" {
		return []string{"nombre"}
	}
	return nil
}

// decodeArgs parses the raw tool-call arguments for an action into its
// typed struct.
func decodeArgs(action string, raw json.RawMessage) (actionArgs, error) {
	var dst actionArgs
	switch action {
	case ActionCreatePatient:
		dst = &createPatientArgs{}
	case ActionScheduleAppointment:
		dst = &scheduleAppointmentArgs{}
	case ActionRescheduleAppointment:
		dst = &rescheduleAppointmentArgs{}
	case ActionCancelAppointment:
		dst = &cancelAppointmentArgs{}
	case ActionUpdatePatient:
		dst = &updatePatientArgs{}
	case ActionDeactivatePatient:
		dst = &deactivatePatientArgs{}
	case ActionListPatients:
		dst = &listPatientsArgs{}
	case ActionGetPatientDetails:
		dst = &getPatientDetailsArgs{}
	case ActionCreateSessionEntry:
		dst = &createSessionEntryArgs{}
	case ActionListSessionEntries:
		dst = &listSessionEntriesArgs{}
	case ActionSuggestDiagnosis, ActionSuggestTechniques:
		dst = &suggestArgs{}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownAction, action)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, dst); err != nil {
			return nil, fmt.Errorf("assistant: invalid arguments for %s: %w", action, err)
		}
	}
	return dst, nil
}

// mergeField sets one field on a raw argument bag, used when a pending
// action resumes with the user's answer.
func mergeField(raw json.RawMessage, field, value string) (json.RawMessage, error) {
	bag := map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &bag); err != nil {
			return nil, fmt.Errorf("assistant: corrupt pending arguments: %w", err)
		}
	}
	bag[field] = value
	merged, err := json.Marshal(bag)
	if err != nil {
		return nil, fmt.Errorf("assistant: failed to merge arguments: %w", err)
	}
	return merged, nil
}
