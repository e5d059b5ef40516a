package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/clinicadelvalle/clinica-platform/pkg/logging"
)

var clinicZone = time.FixedZone("clinic", -6*3600)

// stubRepository returns canned aggregates and records the range it was
// asked for.
type stubRepository struct {
	kpis     KPIs
	byDay    []DayCount
	byStatus []StatusCount
	byState  []StateCount
	seenRng  Range
	seenNow  time.Time
	err      error
}

func (s *stubRepository) CountActivePatients(ctx context.Context) (int, error) {
	return s.kpis.ActivePatients, s.err
}

func (s *stubRepository) CountUpcomingAppointments(ctx context.Context, r Range, now time.Time) (int, error) {
	s.seenRng = r
	s.seenNow = now
	return s.kpis.UpcomingAppointments, s.err
}

func (s *stubRepository) CountCancelledAppointments(ctx context.Context, r Range) (int, error) {
	return s.kpis.CancelledAppointments, s.err
}

func (s *stubRepository) CountNotes(ctx context.Context, r Range) (int, error) {
	return s.kpis.Notes, s.err
}

func (s *stubRepository) CountNewPatients(ctx context.Context, r Range) (int, error) {
	return s.kpis.NewPatients, s.err
}

func (s *stubRepository) AppointmentsByDay(ctx context.Context, r Range, loc *time.Location) ([]DayCount, error) {
	return s.byDay, s.err
}

func (s *stubRepository) AppointmentsByStatus(ctx context.Context, r Range) ([]StatusCount, error) {
	return s.byStatus, s.err
}

func (s *stubRepository) PatientsByState(ctx context.Context) ([]StateCount, error) {
	return s.byState, s.err
}

func newTestService(repo Repository) *Service {
	svc := NewService(repo, clinicZone, logging.Default())
	svc.now = func() time.Time { return time.Date(2025, 5, 14, 9, 0, 0, 0, clinicZone) }
	return svc
}

func TestData_DefaultsToCurrentMonth(t *testing.T) {
	repo := &stubRepository{kpis: KPIs{ActivePatients: 12, UpcomingAppointments: 4}}
	svc := newTestService(repo)

	data, err := svc.Data(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if data.Range.From != "2025-05-01" || data.Range.To != "2025-06-01" {
		t.Errorf("unexpected range: %+v", data.Range)
	}
	wantFrom := time.Date(2025, 5, 1, 0, 0, 0, 0, clinicZone)
	if !repo.seenRng.From.Equal(wantFrom) {
		t.Errorf("expected repo queried from %v, got %v", wantFrom, repo.seenRng.From)
	}
	if !repo.seenRng.To.Equal(wantFrom.AddDate(0, 1, 0)) {
		t.Errorf("unexpected range end %v", repo.seenRng.To)
	}
	if data.KPIs.ActivePatients != 12 || data.KPIs.UpcomingAppointments != 4 {
		t.Errorf("unexpected kpis: %+v", data.KPIs)
	}
}

func TestData_ZeroFillsDays(t *testing.T) {
	repo := &stubRepository{byDay: []DayCount{
		{Date: "2025-05-02", Count: 2},
		{Date: "2025-05-04", Count: 1},
	}}
	svc := newTestService(repo)

	from := time.Date(2025, 5, 1, 0, 0, 0, 0, clinicZone)
	to := time.Date(2025, 5, 6, 0, 0, 0, 0, clinicZone)
	data, err := svc.Data(context.Background(), &from, &to)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	days := data.Charts.AppointmentsByDay
	if len(days) != 5 {
		t.Fatalf("expected 5 days, got %d: %v", len(days), days)
	}
	want := []DayCount{
		{"2025-05-01", 0},
		{"2025-05-02", 2},
		{"2025-05-03", 0},
		{"2025-05-04", 1},
		{"2025-05-05", 0},
	}
	for i, w := range want {
		if days[i] != w {
			t.Errorf("day %d: expected %+v, got %+v", i, w, days[i])
		}
	}
}

func TestData_SingleBoundExtendsOneMonth(t *testing.T) {
	repo := &stubRepository{}
	svc := newTestService(repo)

	from := time.Date(2025, 3, 15, 0, 0, 0, 0, clinicZone)
	data, err := svc.Data(context.Background(), &from, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if data.Range.From != "2025-03-15" || data.Range.To != "2025-04-15" {
		t.Errorf("unexpected range: %+v", data.Range)
	}

	to := time.Date(2025, 3, 15, 0, 0, 0, 0, clinicZone)
	data, err = svc.Data(context.Background(), nil, &to)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if data.Range.From != "2025-02-15" || data.Range.To != "2025-03-15" {
		t.Errorf("unexpected range: %+v", data.Range)
	}
}

func TestData_EmptyChartsAreNotNull(t *testing.T) {
	svc := newTestService(&stubRepository{})

	data, err := svc.Data(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if data.Charts.AppointmentsByStatus == nil || data.Charts.PatientsByState == nil {
		t.Error("expected empty slices, got nil")
	}
}
