package appointments

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/clinicadelvalle/clinica-platform/internal/calendar"
	"github.com/clinicadelvalle/clinica-platform/internal/patients"
	"github.com/clinicadelvalle/clinica-platform/internal/settings"
	"github.com/clinicadelvalle/clinica-platform/pkg/logging"
)

var appointmentsTracer = otel.Tracer("clinica.internal.appointments")

// DefaultDurationMin is used when the configuration row is absent.
const DefaultDurationMin = 50

// durationSettingKey holds the clinic-wide appointment length in minutes.
const durationSettingKey = "appointment_default_duration_minutes"

// Service implements scheduling business rules. The database row is the
// source of truth; the calendar event is a secondary effect whose failures
// are logged and swallowed unless surfaceCalendarErrors is set.
type Service struct {
	repo                  Repository
	patients              *patients.Service
	cal                   calendar.Backend
	settings              settings.Store
	logger                *logging.Logger
	loc                   *time.Location
	surfaceCalendarErrors bool
	now                   func() time.Time
}

// NewService constructs an appointments service.
func NewService(repo Repository, patientsSvc *patients.Service, cal calendar.Backend, store settings.Store, loc *time.Location, surfaceCalendarErrors bool, logger *logging.Logger) *Service {
	if repo == nil {
		panic("appointments: repository required")
	}
	if patientsSvc == nil {
		panic("appointments: patients service required")
	}
	if cal == nil {
		panic("appointments: calendar backend required")
	}
	if store == nil {
		panic("appointments: settings store required")
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		repo:                  repo,
		patients:              patientsSvc,
		cal:                   cal,
		settings:              store,
		logger:                logger,
		loc:                   loc,
		surfaceCalendarErrors: surfaceCalendarErrors,
		now:                   time.Now,
	}
}

// Location returns the clinic time zone.
func (s *Service) Location() *time.Location {
	return s.loc
}

// Now returns the current time; tests override the clock.
func (s *Service) Now() time.Time {
	return s.now()
}

func (s *Service) defaultDuration(ctx context.Context) int {
	raw, err := s.settings.Get(ctx, durationSettingKey)
	if err == nil {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			return v
		}
		s.logger.Warn("ignoring invalid appointment duration setting", "value", raw)
	}
	return DefaultDurationMin
}

// ParseDate interprets a fecha string in the clinic zone.
func (s *Service) ParseDate(raw string) (time.Time, error) {
	return ParseFecha(raw, s.loc, s.now())
}

// Schedule books an appointment for an already-resolved patient. The slot
// is checked against the calendar before the row is committed; a busy slot
// comes back as *ConflictError.
func (s *Service) Schedule(ctx context.Context, patient *patients.Patient, date time.Time, reason *string) (*Appointment, error) {
	ctx, span := appointmentsTracer.Start(ctx, "appointments.schedule")
	defer span.End()
	span.SetAttributes(attribute.Int64("patient.id", patient.ID))

	dur := s.defaultDuration(ctx)
	if err := s.checkSlot(ctx, date, dur, ""); err != nil {
		return nil, err
	}

	a, err := s.repo.Insert(ctx, &CreateInput{
		PatientID:   patient.ID,
		Date:        date,
		Reason:      reason,
		DurationMin: dur,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("appointment scheduled", "appointment_id", a.ID, "patient_id", patient.ID, "fecha", MinutePrefix(date, s.loc))

	return s.pushCalendarCreate(ctx, a, patient.FullName)
}

// ScheduleByName resolves the patient by name, parses fecha and books.
func (s *Service) ScheduleByName(ctx context.Context, name, rawFecha string, reason *string) (*Appointment, error) {
	p, err := s.patients.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	date, err := s.ParseDate(rawFecha)
	if err != nil {
		return nil, err
	}
	return s.Schedule(ctx, p, date, reason)
}

// RescheduleByName moves one of the patient's upcoming appointments to a new
// slot. When the patient has several and rawFecha does not single one out,
// the earliest upcoming is moved; with no fecha at all and several
// candidates, *AmbiguousError asks the caller for it.
func (s *Service) RescheduleByName(ctx context.Context, name, rawFecha, rawNewFecha string) (*Appointment, error) {
	p, err := s.patients.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	target, err := s.pickUpcoming(ctx, p.ID, rawFecha)
	if err != nil {
		return nil, err
	}
	newDate, err := s.ParseDate(rawNewFecha)
	if err != nil {
		return nil, err
	}
	return s.reschedule(ctx, target, newDate, p.FullName)
}

// RescheduleByID moves a specific appointment, for the REST surface.
func (s *Service) RescheduleByID(ctx context.Context, id int64, newDate time.Time) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	title := s.eventTitle(ctx, a.PatientID)
	return s.reschedule(ctx, a, newDate, title)
}

// CancelByName cancels one of the patient's upcoming appointments, picked
// the same way RescheduleByName picks its target.
func (s *Service) CancelByName(ctx context.Context, name, rawFecha string) (*Appointment, error) {
	p, err := s.patients.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	target, err := s.pickUpcoming(ctx, p.ID, rawFecha)
	if err != nil {
		return nil, err
	}
	return s.cancel(ctx, target)
}

// CancelByID cancels a specific appointment, for the REST surface.
func (s *Service) CancelByID(ctx context.Context, id int64) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.cancel(ctx, a)
}

// GetByID fetches one appointment.
func (s *Service) GetByID(ctx context.Context, id int64) (*Appointment, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns a filtered page of appointments.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Appointment, int, error) {
	return s.repo.List(ctx, filter)
}

func (s *Service) reschedule(ctx context.Context, a *Appointment, newDate time.Time, title string) (*Appointment, error) {
	ctx, span := appointmentsTracer.Start(ctx, "appointments.reschedule")
	defer span.End()
	span.SetAttributes(attribute.Int64("appointment.id", a.ID))

	exclude := ""
	if a.CalendarEventID != nil {
		exclude = *a.CalendarEventID
	}
	dur := a.DurationMin
	if dur <= 0 {
		dur = s.defaultDuration(ctx)
	}
	if err := s.checkSlot(ctx, newDate, dur, exclude); err != nil {
		return nil, err
	}

	updated, err := s.repo.Update(ctx, a.ID, &UpdateInput{Date: &newDate})
	if err != nil {
		return nil, err
	}
	s.logger.Info("appointment rescheduled", "appointment_id", a.ID, "fecha", MinutePrefix(newDate, s.loc))

	in := calendar.EventInput{Title: "Cita: " + title, Start: newDate, DurationMin: dur}
	if updated.CalendarEventID != nil {
		if err := s.cal.UpdateEvent(ctx, *updated.CalendarEventID, in); err != nil {
			if s.surfaceCalendarErrors {
				return nil, fmt.Errorf("appointments: calendar update failed: %w", err)
			}
			s.logger.Warn("calendar update failed", "appointment_id", updated.ID, "error", err)
		}
		return updated, nil
	}
	return s.pushCalendarCreate(ctx, updated, title)
}

func (s *Service) cancel(ctx context.Context, a *Appointment) (*Appointment, error) {
	ctx, span := appointmentsTracer.Start(ctx, "appointments.cancel")
	defer span.End()
	span.SetAttributes(attribute.Int64("appointment.id", a.ID))

	status := StatusCancelled
	updated, err := s.repo.Update(ctx, a.ID, &UpdateInput{Status: &status})
	if err != nil {
		return nil, err
	}
	s.logger.Info("appointment cancelled", "appointment_id", a.ID)

	if updated.CalendarEventID != nil {
		if err := s.cal.DeleteEvent(ctx, *updated.CalendarEventID); err != nil {
			if s.surfaceCalendarErrors {
				return nil, fmt.Errorf("appointments: calendar delete failed: %w", err)
			}
			s.logger.Warn("calendar delete failed", "appointment_id", updated.ID, "error", err)
		}
	}
	return updated, nil
}

// pickUpcoming selects which of the patient's upcoming appointments a
// reschedule or cancel refers to. A fecha narrows by minute-precision
// timestamp prefix; with no fecha and several candidates the choice is
// ambiguous.
func (s *Service) pickUpcoming(ctx context.Context, patientID int64, rawFecha string) (*Appointment, error) {
	cands, err := s.repo.ListUpcomingByPatient(ctx, patientID, s.now())
	if err != nil {
		return nil, err
	}
	if len(cands) == 0 {
		return nil, ErrNoUpcoming
	}
	if rawFecha == "" {
		if len(cands) > 1 {
			return nil, &AmbiguousError{Count: len(cands)}
		}
		return cands[0], nil
	}
	matches := matchByPrefix(cands, rawFecha, s.loc)
	if len(matches) == 0 {
		if t, err := ParseFecha(rawFecha, s.loc, s.now()); err == nil {
			matches = matchByPrefix(cands, MinutePrefix(t, s.loc), s.loc)
		}
	}
	if len(matches) > 0 {
		return matches[0], nil
	}
	return cands[0], nil
}

func (s *Service) checkSlot(ctx context.Context, date time.Time, durationMin int, excludeEventID string) error {
	ev, err := s.cal.ConflictingEvent(ctx, date, durationMin, excludeEventID)
	if err != nil {
		return fmt.Errorf("appointments: availability check failed: %w", err)
	}
	if ev != nil {
		return &ConflictError{
			Detail: fmt.Sprintf("el horario %s ya está ocupado (%s)", MinutePrefix(date, s.loc), ev.Title),
			Event:  ev,
		}
	}
	return nil
}

func (s *Service) pushCalendarCreate(ctx context.Context, a *Appointment, title string) (*Appointment, error) {
	notes := ""
	if a.Reason != nil {
		notes = *a.Reason
	}
	eventID, err := s.cal.CreateEvent(ctx, calendar.EventInput{
		Title:       "Cita: " + title,
		Start:       a.Date,
		DurationMin: a.DurationMin,
		Notes:       notes,
	})
	if err != nil {
		if s.surfaceCalendarErrors {
			return nil, fmt.Errorf("appointments: calendar create failed: %w", err)
		}
		s.logger.Warn("calendar create failed", "appointment_id", a.ID, "error", err)
		return a, nil
	}
	updated, err := s.repo.Update(ctx, a.ID, &UpdateInput{CalendarEventID: &eventID})
	if err != nil {
		s.logger.Warn("failed to store calendar event id", "appointment_id", a.ID, "error", err)
		return a, nil
	}
	return updated, nil
}

func (s *Service) eventTitle(ctx context.Context, patientID int64) string {
	p, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return "Paciente"
	}
	return p.FullName
}
