package dashboard

import (
	"context"
	"time"
)

// Repository runs the aggregate queries behind the dashboard. All ranged
// methods take a half-open window [from, to).
type Repository interface {
	CountActivePatients(ctx context.Context) (int, error)
	CountUpcomingAppointments(ctx context.Context, r Range, now time.Time) (int, error)
	CountCancelledAppointments(ctx context.Context, r Range) (int, error)
	CountNotes(ctx context.Context, r Range) (int, error)
	CountNewPatients(ctx context.Context, r Range) (int, error)
	AppointmentsByDay(ctx context.Context, r Range, loc *time.Location) ([]DayCount, error)
	AppointmentsByStatus(ctx context.Context, r Range) ([]StatusCount, error)
	PatientsByState(ctx context.Context) ([]StateCount, error)
}
