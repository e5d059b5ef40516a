package dashboard

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/clinicadelvalle/clinica-platform/pkg/logging"
)

var dashboardTracer = otel.Tracer("clinica.internal.dashboard")

// Service assembles the dashboard payload from the aggregate repository.
type Service struct {
	repo   Repository
	loc    *time.Location
	logger *logging.Logger
	now    func() time.Time
}

// NewService constructs a dashboard service. loc is the clinic timezone used
// to resolve the default reporting range and to bucket days.
func NewService(repo Repository, loc *time.Location, logger *logging.Logger) *Service {
	if repo == nil {
		panic("dashboard: repository required")
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{repo: repo, loc: loc, logger: logger, now: time.Now}
}

// resolveRange turns optional from/to dates into a half-open window in
// clinic time. With neither bound it covers the current month; a single
// bound extends one month from (or back from) the given day.
func (s *Service) resolveRange(from, to *time.Time) Range {
	if from == nil && to == nil {
		now := s.now().In(s.loc)
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.loc)
		return Range{From: start, To: start.AddDate(0, 1, 0)}
	}
	r := Range{}
	if from != nil {
		r.From = dayStart(*from, s.loc)
	}
	if to != nil {
		r.To = dayStart(*to, s.loc)
	}
	if from == nil {
		r.From = r.To.AddDate(0, -1, 0)
	}
	if to == nil {
		r.To = r.From.AddDate(0, 1, 0)
	}
	return r
}

func dayStart(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// Data computes the KPIs and chart series for the requested range.
func (s *Service) Data(ctx context.Context, from, to *time.Time) (*Data, error) {
	ctx, span := dashboardTracer.Start(ctx, "dashboard.data")
	defer span.End()

	rng := s.resolveRange(from, to)

	active, err := s.repo.CountActivePatients(ctx)
	if err != nil {
		return nil, err
	}
	upcoming, err := s.repo.CountUpcomingAppointments(ctx, rng, s.now())
	if err != nil {
		return nil, err
	}
	cancelled, err := s.repo.CountCancelledAppointments(ctx, rng)
	if err != nil {
		return nil, err
	}
	noteCount, err := s.repo.CountNotes(ctx, rng)
	if err != nil {
		return nil, err
	}
	newPatients, err := s.repo.CountNewPatients(ctx, rng)
	if err != nil {
		return nil, err
	}
	byDay, err := s.repo.AppointmentsByDay(ctx, rng, s.loc)
	if err != nil {
		return nil, err
	}
	byStatus, err := s.repo.AppointmentsByStatus(ctx, rng)
	if err != nil {
		return nil, err
	}
	byState, err := s.repo.PatientsByState(ctx)
	if err != nil {
		return nil, err
	}

	return &Data{
		Range: RangeInfo{
			From: rng.From.In(s.loc).Format("2006-01-02"),
			To:   rng.To.In(s.loc).Format("2006-01-02"),
			TZ:   s.loc.String(),
		},
		KPIs: KPIs{
			ActivePatients:        active,
			UpcomingAppointments:  upcoming,
			CancelledAppointments: cancelled,
			Notes:                 noteCount,
			NewPatients:           newPatients,
		},
		Charts: Charts{
			AppointmentsByDay:    zeroFillDays(byDay, rng, s.loc),
			AppointmentsByStatus: orEmptyStatus(byStatus),
			PatientsByState:      orEmptyState(byState),
		},
	}, nil
}

// zeroFillDays expands the sparse per-day counts so every day in [From, To)
// appears exactly once, in order.
func zeroFillDays(rows []DayCount, rng Range, loc *time.Location) []DayCount {
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Date] += row.Count
	}

	var out []DayCount
	for d := dayStart(rng.From, loc); d.Before(rng.To); d = d.AddDate(0, 0, 1) {
		key := d.Format("2006-01-02")
		out = append(out, DayCount{Date: key, Count: counts[key]})
	}
	return out
}

func orEmptyStatus(rows []StatusCount) []StatusCount {
	if rows == nil {
		return []StatusCount{}
	}
	return rows
}

func orEmptyState(rows []StateCount) []StateCount {
	if rows == nil {
		return []StateCount{}
	}
	return rows
}
