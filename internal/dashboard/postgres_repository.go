package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// Querier is the subset of pgxpool.Pool this repository needs; pgxmock
// satisfies it in tests.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresRepository answers the dashboard aggregates from the relational
// database.
type PostgresRepository struct {
	pool Querier
}

// NewPostgresRepository initializes a repo backed by pgx.
func NewPostgresRepository(pool Querier) *PostgresRepository {
	if pool == nil {
		panic("dashboard: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) count(ctx context.Context, query string, args ...any) (int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("dashboard: count failed: %w", err)
	}
	return total, nil
}

// CountActivePatients is global, not scoped to the reporting range.
func (r *PostgresRepository) CountActivePatients(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM pacientes WHERE estado = 'activo'`)
}

func (r *PostgresRepository) CountUpcomingAppointments(ctx context.Context, rng Range, now time.Time) (int, error) {
	return r.count(ctx, `
		SELECT COUNT(*) FROM citas
		WHERE estado = 'programada' AND fecha >= $1 AND fecha >= $2 AND fecha < $3
	`, now, rng.From, rng.To)
}

func (r *PostgresRepository) CountCancelledAppointments(ctx context.Context, rng Range) (int, error) {
	return r.count(ctx, `
		SELECT COUNT(*) FROM citas
		WHERE estado = 'cancelada' AND fecha >= $1 AND fecha < $2
	`, rng.From, rng.To)
}

func (r *PostgresRepository) CountNotes(ctx context.Context, rng Range) (int, error) {
	return r.count(ctx, `
		SELECT COUNT(*) FROM notas_sesion
		WHERE estado = 'activo' AND fecha >= $1 AND fecha < $2
	`, rng.From, rng.To)
}

func (r *PostgresRepository) CountNewPatients(ctx context.Context, rng Range) (int, error) {
	return r.count(ctx, `
		SELECT COUNT(*) FROM pacientes
		WHERE creado_en >= $1 AND creado_en < $2
	`, rng.From, rng.To)
}

// AppointmentsByDay groups scheduled appointments by local calendar day.
// The clinic offset is applied in SQL so grouping does not depend on the
// server session timezone.
func (r *PostgresRepository) AppointmentsByDay(ctx context.Context, rng Range, loc *time.Location) ([]DayCount, error) {
	_, offset := rng.From.In(loc).Zone()
	rows, err := r.pool.Query(ctx, `
		SELECT ((fecha AT TIME ZONE 'UTC') + make_interval(secs => $1))::date AS dia, COUNT(*)
		FROM citas
		WHERE estado = 'programada' AND fecha >= $2 AND fecha < $3
		GROUP BY dia
		ORDER BY dia
	`, offset, rng.From, rng.To)
	if err != nil {
		return nil, fmt.Errorf("dashboard: appointments by day failed: %w", err)
	}
	defer rows.Close()

	var out []DayCount
	for rows.Next() {
		var day time.Time
		var total int
		if err := rows.Scan(&day, &total); err != nil {
			return nil, fmt.Errorf("dashboard: scan failed: %w", err)
		}
		out = append(out, DayCount{Date: day.Format("2006-01-02"), Count: total})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("dashboard: appointments by day failed: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) AppointmentsByStatus(ctx context.Context, rng Range) ([]StatusCount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT estado, COUNT(*) FROM citas
		WHERE fecha >= $1 AND fecha < $2
		GROUP BY estado
		ORDER BY estado
	`, rng.From, rng.To)
	if err != nil {
		return nil, fmt.Errorf("dashboard: appointments by status failed: %w", err)
	}
	defer rows.Close()

	var out []StatusCount
	for rows.Next() {
		var sc StatusCount
		if err := rows.Scan(&sc.Status, &sc.Count); err != nil {
			return nil, fmt.Errorf("dashboard: scan failed: %w", err)
		}
		out = append(out, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("dashboard: appointments by status failed: %w", err)
	}
	return out, nil
}

// PatientsByState groups active patients by their treatment process state.
func (r *PostgresRepository) PatientsByState(ctx context.Context) ([]StateCount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT estado_proceso, COUNT(*) FROM pacientes
		WHERE estado = 'activo'
		GROUP BY estado_proceso
		ORDER BY estado_proceso
	`)
	if err != nil {
		return nil, fmt.Errorf("dashboard: patients by state failed: %w", err)
	}
	defer rows.Close()

	var out []StateCount
	for rows.Next() {
		var sc StateCount
		if err := rows.Scan(&sc.State, &sc.Count); err != nil {
			return nil, fmt.Errorf("dashboard: scan failed: %w", err)
		}
		out = append(out, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("dashboard: patients by state failed: %w", err)
	}
	return out, nil
}
