package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/clinicadelvalle/clinica-platform/internal/appointments"
	"github.com/clinicadelvalle/clinica-platform/internal/notes"
	"github.com/clinicadelvalle/clinica-platform/internal/patients"
	"github.com/clinicadelvalle/clinica-platform/pkg/logging"
)

var executorTracer = otel.Tracer("clinica.internal.assistant.executor")

// ActionCall is one requested action with its raw arguments.
type ActionCall struct {
	Name string
	Args json.RawMessage
}

// Executor validates arguments, resolves the patient, runs domain
// operations and keeps the session's pending-action and active-patient
// state consistent with each outcome.
type Executor struct {
	catalog      *Catalog
	patients     *patients.Service
	appointments *appointments.Service
	notes        *notes.Service
	advisor      *Advisor
	logger       *logging.Logger
	now          func() time.Time
}

// NewExecutor constructs an executor.
func NewExecutor(catalog *Catalog, patientsSvc *patients.Service, appointmentsSvc *appointments.Service, notesSvc *notes.Service, advisor *Advisor, logger *logging.Logger) *Executor {
	if catalog == nil {
		panic("assistant: catalog required")
	}
	if patientsSvc == nil || appointmentsSvc == nil || notesSvc == nil {
		panic("assistant: domain services required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Executor{
		catalog:      catalog,
		patients:     patientsSvc,
		appointments: appointmentsSvc,
		notes:        notesSvc,
		advisor:      advisor,
		logger:       logger,
		now:          time.Now,
	}
}

// Execute runs one action against the session. All failure modes come back
// as Result variants; the session is mutated to match the outcome before
// returning.
func (e *Executor) Execute(ctx context.Context, call ActionCall, sess *Session) Result {
	ctx, span := executorTracer.Start(ctx, "assistant.execute")
	defer span.End()
	span.SetAttributes(attribute.String("action", call.Name))

	if !e.catalog.Has(call.Name) {
		return Failure(fmt.Sprintf("acción desconocida: %s", call.Name))
	}
	args, err := decodeArgs(call.Name, call.Args)
	if err != nil {
		e.logger.Warn("failed to decode action arguments", "action", call.Name, "error", err)
		return Failure("los argumentos de la acción no son válidos")
	}

	if carrier, ok := args.(nombreCarrier); ok {
		if carrier.getNombre() == "" && sess.ActivePatient != nil {
			carrier.setNombre(sess.ActivePatient.Name)
		}
	}

	if missing := args.missingFields(); len(missing) > 0 {
		raw, err := json.Marshal(args)
		if err != nil {
			raw = call.Args
		}
		sess.SetPending(call.Name, raw, missing, e.now())
		return MissingField(fmt.Sprintf("falta el campo %s", missing[0]), missing...)
	}

	res := e.dispatch(ctx, call.Name, args, sess)
	if res.Kind == KindSuccess {
		sess.ClearPending()
	}
	return res
}

func (e *Executor) dispatch(ctx context.Context, action string, args actionArgs, sess *Session) Result {
	switch a := args.(type) {
	case *createPatientArgs:
		return e.createPatient(ctx, a, sess)
	case *scheduleAppointmentArgs:
		return e.scheduleAppointment(ctx, a, sess)
	case *rescheduleAppointmentArgs:
		return e.rescheduleAppointment(ctx, a, sess)
	case *cancelAppointmentArgs:
		return e.cancelAppointment(ctx, a, sess)
	case *updatePatientArgs:
		return e.updatePatient(ctx, a, sess)
	case *deactivatePatientArgs:
		return e.deactivatePatient(ctx, a, sess)
	case *listPatientsArgs:
		return e.listPatients(ctx, a)
	case *getPatientDetailsArgs:
		return e.getPatientDetails(ctx, a, sess)
	case *createSessionEntryArgs:
		return e.createSessionEntry(ctx, a, sess)
	case *listSessionEntriesArgs:
		return e.listSessionEntries(ctx, a, sess)
	case *suggestArgs:
		return e.suggest(ctx, action, a, sess)
	default:
		return Failure(fmt.Sprintf("acción desconocida: %s", action))
	}
}

func (e *Executor) createPatient(ctx context.Context, a *createPatientArgs, sess *Session) Result {
	out, err := e.patients.Create(ctx, &patients.CreateInput{
		FullName:      a.Nombre,
		Alias:         a.Alias,
		Phone:         a.Telefono,
		Gender:        a.Genero,
		ConsultReason: a.MotivoConsulta,
	})
	if err != nil {
		if errors.Is(err, patients.ErrInvalidName) || errors.Is(err, patients.ErrInvalidGender) {
			return Failure("los datos del paciente no son válidos: " + err.Error())
		}
		return e.internalFailure("create_patient", err)
	}
	sess.SetActivePatient(out.Patient.ID, out.Patient.FullName)
	if out.AlreadyExisted {
		return Success(fmt.Sprintf("El paciente %s ya estaba registrado.", out.Patient.FullName),
			map[string]any{"paciente": out.Patient, "alreadyExisted": true})
	}
	return Success(fmt.Sprintf("Paciente %s registrado.", out.Patient.FullName),
		map[string]any{"paciente": out.Patient, "alreadyExisted": false})
}

func (e *Executor) scheduleAppointment(ctx context.Context, a *scheduleAppointmentArgs, sess *Session) Result {
	p, res := e.resolvePatient(ctx, a, sess)
	if p == nil {
		return res
	}
	date, err := e.appointments.ParseDate(a.Fecha)
	if err != nil {
		return Failure(fmt.Sprintf("no entendí la fecha %q", a.Fecha))
	}
	appt, err := e.appointments.Schedule(ctx, p, date, a.Motivo)
	if err != nil {
		var conflict *appointments.ConflictError
		if errors.As(err, &conflict) {
			return Conflict(conflict.Detail)
		}
		return e.internalFailure("schedule_appointment", err)
	}
	loc := e.appointments.Location()
	return Success(fmt.Sprintf("Cita agendada para %s el %s.", p.FullName, appointments.MinutePrefix(appt.Date, loc)),
		map[string]any{"cita": appt})
}

func (e *Executor) rescheduleAppointment(ctx context.Context, a *rescheduleAppointmentArgs, sess *Session) Result {
	p, res := e.resolvePatient(ctx, a, sess)
	if p == nil {
		return res
	}
	appt, err := e.appointments.RescheduleByName(ctx, p.FullName, a.Fecha, a.NuevaFecha)
	if err != nil {
		return e.scheduleActionError(ctx, "reschedule_appointment", a, err, sess)
	}
	loc := e.appointments.Location()
	return Success(fmt.Sprintf("Cita de %s movida al %s.", p.FullName, appointments.MinutePrefix(appt.Date, loc)),
		map[string]any{"cita": appt})
}

func (e *Executor) cancelAppointment(ctx context.Context, a *cancelAppointmentArgs, sess *Session) Result {
	p, res := e.resolvePatient(ctx, a, sess)
	if p == nil {
		return res
	}
	appt, err := e.appointments.CancelByName(ctx, p.FullName, a.Fecha)
	if err != nil {
		return e.scheduleActionError(ctx, "cancel_appointment", a, err, sess)
	}
	loc := e.appointments.Location()
	return Success(fmt.Sprintf("Cita de %s del %s cancelada.", p.FullName, appointments.MinutePrefix(appt.Date, loc)),
		map[string]any{"cita": appt})
}

// scheduleActionError maps reschedule/cancel failures: an ambiguous target
// becomes a missing-field outcome asking for fecha, a busy slot a conflict.
func (e *Executor) scheduleActionError(ctx context.Context, action string, args actionArgs, err error, sess *Session) Result {
	var (
		ambiguous *appointments.AmbiguousError
		conflict  *appointments.ConflictError
	)
	switch {
	case errors.As(err, &ambiguous):
		raw, merr := json.Marshal(args)
		if merr == nil {
			sess.SetPending(action, raw, []string{"fecha"}, e.now())
		}
		return MissingField(fmt.Sprintf("el paciente tiene %d citas próximas, indica la fecha de la cita", ambiguous.Count), "fecha")
	case errors.As(err, &conflict):
		return Conflict(conflict.Detail)
	case errors.Is(err, appointments.ErrNoUpcoming):
		return Failure("el paciente no tiene citas próximas")
	case errors.Is(err, appointments.ErrBadFecha):
		return Failure("no entendí la fecha indicada")
	default:
		return e.internalFailure(action, err)
	}
}

func (e *Executor) updatePatient(ctx context.Context, a *updatePatientArgs, sess *Session) Result {
	p, res := e.resolvePatient(ctx, a, sess)
	if p == nil {
		return res
	}
	updated, err := e.patients.Update(ctx, p.ID, &patients.UpdateInput{
		FullName:      a.NuevoNombre,
		Alias:         a.Alias,
		Phone:         a.Telefono,
		Gender:        a.Genero,
		ConsultReason: a.MotivoConsulta,
		ProcessState:  a.EstadoProceso,
	})
	if err != nil {
		if errors.Is(err, patients.ErrInvalidName) || errors.Is(err, patients.ErrInvalidGender) || errors.Is(err, patients.ErrInvalidProcessState) {
			return Failure("los datos del paciente no son válidos: " + err.Error())
		}
		return e.internalFailure("update_patient", err)
	}
	sess.SetActivePatient(updated.ID, updated.FullName)
	return Success(fmt.Sprintf("Datos de %s actualizados.", updated.FullName), map[string]any{"paciente": updated})
}

func (e *Executor) deactivatePatient(ctx context.Context, a *deactivatePatientArgs, sess *Session) Result {
	p, res := e.resolvePatient(ctx, a, sess)
	if p == nil {
		return res
	}
	updated, err := e.patients.Deactivate(ctx, p.ID)
	if err != nil {
		return e.internalFailure("deactivate_patient", err)
	}
	if sess.ActivePatient != nil && sess.ActivePatient.ID == updated.ID {
		sess.ActivePatient = nil
	}
	return Success(fmt.Sprintf("Paciente %s dado de baja.", updated.FullName), map[string]any{"paciente": updated})
}

func (e *Executor) listPatients(ctx context.Context, a *listPatientsArgs) Result {
	rows, total, err := e.patients.List(ctx, patients.ListFilter{Query: a.Busqueda, Status: a.Estado})
	if err != nil {
		return e.internalFailure("list_patients", err)
	}
	return Success(fmt.Sprintf("Se encontraron %d pacientes.", total),
		map[string]any{"total": total, "pacientes": rows})
}

func (e *Executor) getPatientDetails(ctx context.Context, a *getPatientDetailsArgs, sess *Session) Result {
	p, res := e.resolvePatient(ctx, a, sess)
	if p == nil {
		return res
	}
	rows, total, err := e.notes.ListByPatient(ctx, p.ID, notes.ListFilter{Status: notes.StatusActive, Limit: 20})
	if err != nil {
		return e.internalFailure("get_patient_details", err)
	}
	return Success(fmt.Sprintf("Ficha de %s.", p.FullName),
		map[string]any{"paciente": p, "notas": rows, "notas_total": total})
}

func (e *Executor) createSessionEntry(ctx context.Context, a *createSessionEntryArgs, sess *Session) Result {
	p, res := e.resolvePatient(ctx, a, sess)
	if p == nil {
		return res
	}
	in := &notes.CreateInput{
		PatientID:        p.ID,
		Symptoms:         a.Sintomas,
		Conditions:       a.Padecimientos,
		KeyNotes:         a.NotasImportantes,
		Disorders:        a.Trastornos,
		UnderlyingIssues: a.AfectamientosSubyacentes,
		Diagnosis:        a.Diagnostico,
	}
	if a.Fecha != nil && *a.Fecha != "" {
		date, err := e.appointments.ParseDate(*a.Fecha)
		if err != nil {
			return Failure(fmt.Sprintf("no entendí la fecha %q", *a.Fecha))
		}
		in.Date = &date
	}
	n, err := e.notes.Create(ctx, in)
	if err != nil {
		return e.internalFailure("create_session_entry", err)
	}
	return Success(fmt.Sprintf("Nota de sesión registrada para %s.", p.FullName), map[string]any{"nota": n})
}

func (e *Executor) listSessionEntries(ctx context.Context, a *listSessionEntriesArgs, sess *Session) Result {
	p, res := e.resolvePatient(ctx, a, sess)
	if p == nil {
		return res
	}
	status := a.Estado
	if status == "" {
		status = notes.StatusActive
	}
	rows, total, err := e.notes.ListByPatient(ctx, p.ID, notes.ListFilter{Status: status, Limit: a.Limite})
	if err != nil {
		return e.internalFailure("list_session_entries", err)
	}
	return Success(fmt.Sprintf("%s tiene %d notas de sesión.", p.FullName, total),
		map[string]any{"notas": rows, "total": total})
}

func (e *Executor) suggest(ctx context.Context, action string, a *suggestArgs, sess *Session) Result {
	if e.advisor == nil {
		return Failure("las sugerencias no están disponibles")
	}
	p, res := e.resolvePatient(ctx, a, sess)
	if p == nil {
		return res
	}
	var (
		text string
		err  error
	)
	if action == ActionSuggestDiagnosis {
		text, err = e.advisor.SuggestDiagnosis(ctx, p)
	} else {
		text, err = e.advisor.SuggestTechniques(ctx, p)
	}
	if err != nil {
		return e.internalFailure(action, err)
	}
	return Success(text, nil)
}

// resolvePatient looks up an active patient, preferring an explicit id over
// the name, updating the session context on success. A nil patient means
// the returned Result is final.
func (e *Executor) resolvePatient(ctx context.Context, ref patientRef, sess *Session) (*patients.Patient, Result) {
	var (
		p   *patients.Patient
		err error
	)
	if id := ref.getID(); id != 0 {
		p, err = e.patients.GetByID(ctx, id)
	} else {
		p, err = e.patients.GetByName(ctx, ref.getNombre())
	}
	if err != nil {
		if errors.Is(err, patients.ErrNotFound) {
			if id := ref.getID(); id != 0 {
				return nil, Failure(fmt.Sprintf("no encontré al paciente con id %d", id))
			}
			return nil, Failure(fmt.Sprintf("no encontré al paciente %q", ref.getNombre()))
		}
		return nil, e.internalFailure("resolve_patient", err)
	}
	sess.SetActivePatient(p.ID, p.FullName)
	return p, Result{}
}

func (e *Executor) internalFailure(action string, err error) Result {
	e.logger.Error("action failed", "action", action, "error", err)
	return Failure("ocurrió un error interno al ejecutar la acción")
}
