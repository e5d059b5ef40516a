package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
)

func newMockRepo(t *testing.T) (pgxmock.PgxPoolIface, *PostgresRepository) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock, NewPostgresRepository(mock)
}

func testRange() Range {
	return Range{
		From: time.Date(2025, 5, 1, 0, 0, 0, 0, clinicZone),
		To:   time.Date(2025, 6, 1, 0, 0, 0, 0, clinicZone),
	}
}

func TestCountActivePatients(t *testing.T) {
	mock, repo := newMockRepo(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM pacientes WHERE estado = 'activo'`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(17))

	total, err := repo.CountActivePatients(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 17 {
		t.Errorf("expected 17, got %d", total)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestCountUpcomingAppointments(t *testing.T) {
	mock, repo := newMockRepo(t)
	rng := testRange()
	now := time.Date(2025, 5, 14, 9, 0, 0, 0, clinicZone)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM citas`).
		WithArgs(now, rng.From, rng.To).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(5))

	total, err := repo.CountUpcomingAppointments(context.Background(), rng, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 5 {
		t.Errorf("expected 5, got %d", total)
	}
}

func TestAppointmentsByDay(t *testing.T) {
	mock, repo := newMockRepo(t)
	rng := testRange()

	mock.ExpectQuery(`FROM citas`).
		WithArgs(-6*3600, rng.From, rng.To).
		WillReturnRows(pgxmock.NewRows([]string{"dia", "count"}).
			AddRow(time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC), 3).
			AddRow(time.Date(2025, 5, 7, 0, 0, 0, 0, time.UTC), 1))

	rows, err := repo.AppointmentsByDay(context.Background(), rng, clinicZone)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Date != "2025-05-02" || rows[0].Count != 3 {
		t.Errorf("unexpected first row: %+v", rows[0])
	}
}

func TestPatientsByState(t *testing.T) {
	mock, repo := newMockRepo(t)

	mock.ExpectQuery(`SELECT estado_proceso, COUNT\(\*\) FROM pacientes`).
		WillReturnRows(pgxmock.NewRows([]string{"estado_proceso", "count"}).
			AddRow("en_proceso", 9).
			AddRow("finalizado", 4))

	rows, err := repo.PatientsByState(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 || rows[0].State != "en_proceso" || rows[0].Count != 9 {
		t.Errorf("unexpected rows: %+v", rows)
	}
}
