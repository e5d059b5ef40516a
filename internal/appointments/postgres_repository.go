package appointments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

// Querier is the subset of pgxpool.Pool this repository needs; pgxmock
// satisfies it in tests.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresRepository stores appointments in the relational database.
type PostgresRepository struct {
	pool Querier
}

const appointmentColumns = `id, paciente_id, fecha, motivo, duracion_minutos, estado, evento_calendario_id, creada_en`

// NewPostgresRepository initializes a repo backed by pgx.
func NewPostgresRepository(pool Querier) *PostgresRepository {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

// Insert creates a scheduled appointment row.
func (r *PostgresRepository) Insert(ctx context.Context, in *CreateInput) (*Appointment, error) {
	query := `
		INSERT INTO citas (paciente_id, fecha, motivo, duracion_minutos)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + appointmentColumns
	row := r.pool.QueryRow(ctx, query, in.PatientID, in.Date, in.Reason, in.DurationMin)
	a, err := scanAppointment(row)
	if err != nil {
		return nil, fmt.Errorf("appointments: insert failed: %w", err)
	}
	return a, nil
}

// GetByID fetches one appointment by primary key.
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM citas WHERE id = $1`, id)
	a, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("appointments: select failed: %w", err)
	}
	return a, nil
}

// Update applies the non-nil fields and returns the updated row.
func (r *PostgresRepository) Update(ctx context.Context, id int64, in *UpdateInput) (*Appointment, error) {
	sets := make([]string, 0, 5)
	args := make([]any, 0, 6)
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if in.Date != nil {
		add("fecha", *in.Date)
	}
	if in.Reason != nil {
		add("motivo", in.Reason)
	}
	if in.DurationMin != nil {
		add("duracion_minutos", *in.DurationMin)
	}
	if in.Status != nil {
		add("estado", *in.Status)
	}
	if in.CalendarEventID != nil {
		add("evento_calendario_id", in.CalendarEventID)
	}
	if len(sets) == 0 {
		return r.GetByID(ctx, id)
	}
	args = append(args, id)
	query := fmt.Sprintf(`UPDATE citas SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), appointmentColumns)
	a, err := scanAppointment(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("appointments: update failed: %w", err)
	}
	return a, nil
}

// List returns a filtered page and the total match count.
func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]*Appointment, int, error) {
	where := make([]string, 0, 4)
	args := make([]any, 0, 6)
	cond := func(expr string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(expr, len(args)))
	}
	if filter.PatientID != 0 {
		cond("paciente_id = $%d", filter.PatientID)
	}
	if filter.Status != "" {
		cond("estado = $%d", filter.Status)
	}
	if filter.From != nil {
		cond("fecha >= $%d", *filter.From)
	}
	if filter.To != nil {
		cond("fecha < $%d", *filter.To)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM citas`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("appointments: count failed: %w", err)
	}

	limit, offset := clampPage(filter.Limit, filter.Offset)
	args = append(args, limit, offset)
	query := fmt.Sprintf(`SELECT %s FROM citas%s ORDER BY fecha ASC LIMIT $%d OFFSET $%d`,
		appointmentColumns, clause, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("appointments: list failed: %w", err)
	}
	defer rows.Close()

	out := make([]*Appointment, 0, limit)
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("appointments: scan failed: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("appointments: list failed: %w", err)
	}
	return out, total, nil
}

// ListUpcomingByPatient returns the patient's scheduled appointments at or
// after now, earliest first.
func (r *PostgresRepository) ListUpcomingByPatient(ctx context.Context, patientID int64, now time.Time) ([]*Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM citas
		WHERE paciente_id = $1 AND estado = 'programada' AND fecha >= $2
		ORDER BY fecha ASC`
	rows, err := r.pool.Query(ctx, query, patientID, now)
	if err != nil {
		return nil, fmt.Errorf("appointments: upcoming query failed: %w", err)
	}
	defer rows.Close()

	var out []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("appointments: scan failed: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: upcoming query failed: %w", err)
	}
	return out, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.Date,
		&a.Reason,
		&a.DurationMin,
		&a.Status,
		&a.CalendarEventID,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
