package notes

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

// PostgresRepository stores session notes in the relational database.
type PostgresRepository struct {
	pool Querier
}

const noteColumns = `id, paciente_id, fecha, creada_por, sintomas, padecimientos, notas_importantes, trastornos, afectamientos_subyacentes, diagnostico, estado`

// NewPostgresRepository initializes a repo backed by pgx.
func NewPostgresRepository(pool Querier) *PostgresRepository {
	if pool == nil {
		panic("notes: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

// Insert creates a note row. A nil Date defers to the column default.
func (r *PostgresRepository) Insert(ctx context.Context, in *CreateInput) (*Note, error) {
	date := time.Now().UTC()
	if in.Date != nil {
		date = *in.Date
	}
	query := `
		INSERT INTO notas_sesion
			(paciente_id, fecha, creada_por, sintomas, padecimientos, notas_importantes, trastornos, afectamientos_subyacentes, diagnostico)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + noteColumns
	row := r.pool.QueryRow(ctx, query,
		in.PatientID,
		date,
		in.CreatedBy,
		in.Symptoms,
		in.Conditions,
		in.KeyNotes,
		in.Disorders,
		in.UnderlyingIssues,
		in.Diagnosis,
	)
	n, err := scanNote(row)
	if err != nil {
		return nil, fmt.Errorf("notes: insert failed: %w", err)
	}
	return n, nil
}

// GetByID fetches one note.
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*Note, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+noteColumns+` FROM notas_sesion WHERE id = $1`, id)
	n, err := scanNote(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("notes: select failed: %w", err)
	}
	return n, nil
}

// Update applies the non-nil fields of in.
func (r *PostgresRepository) Update(ctx context.Context, id int64, in *UpdateInput) (*Note, error) {
	sets := make([]string, 0, 7)
	args := make([]any, 0, 8)
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if in.Date != nil {
		add("fecha", *in.Date)
	}
	if in.Symptoms != nil {
		add("sintomas", *in.Symptoms)
	}
	if in.Conditions != nil {
		add("padecimientos", *in.Conditions)
	}
	if in.KeyNotes != nil {
		add("notas_importantes", *in.KeyNotes)
	}
	if in.Disorders != nil {
		add("trastornos", *in.Disorders)
	}
	if in.UnderlyingIssues != nil {
		add("afectamientos_subyacentes", *in.UnderlyingIssues)
	}
	if in.Diagnosis != nil {
		add("diagnostico", *in.Diagnosis)
	}
	if len(sets) == 0 {
		return r.GetByID(ctx, id)
	}
	args = append(args, id)
	query := fmt.Sprintf(
		`UPDATE notas_sesion SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), noteColumns,
	)
	row := r.pool.QueryRow(ctx, query, args...)
	n, err := scanNote(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("notes: update failed: %w", err)
	}
	return n, nil
}

// SoftDelete flips the note to inactive.
func (r *PostgresRepository) SoftDelete(ctx context.Context, id int64) error {
	var affected int64
	query := `
		WITH updated AS (
			UPDATE notas_sesion SET estado = 'inactivo' WHERE id = $1 RETURNING 1
		)
		SELECT COUNT(*) FROM updated`
	if err := r.pool.QueryRow(ctx, query, id).Scan(&affected); err != nil {
		return fmt.Errorf("notes: soft delete failed: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByPatient returns a page of the patient's notes plus the total count.
func (r *PostgresRepository) ListByPatient(ctx context.Context, patientID int64, filter ListFilter) ([]*Note, int, error) {
	where, args := noteStatusClause(patientID, filter.Status)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM notas_sesion WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("notes: count failed: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	args = append(args, limit, offset)
	query := fmt.Sprintf(
		`SELECT %s FROM notas_sesion WHERE %s ORDER BY fecha DESC LIMIT $%d OFFSET $%d`,
		noteColumns, where, len(args)-1, len(args),
	)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("notes: list failed: %w", err)
	}
	defer rows.Close()

	var out []*Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("notes: scan failed: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("notes: iterate failed: %w", err)
	}
	return out, total, nil
}

func noteStatusClause(patientID int64, status string) (string, []any) {
	switch status {
	case StatusAll:
		return `paciente_id = $1 AND estado IN ('activo', 'inactivo')`, []any{patientID}
	case StatusInactive:
		return `paciente_id = $1 AND estado = 'inactivo'`, []any{patientID}
	default:
		return `paciente_id = $1 AND estado = 'activo'`, []any{patientID}
	}
}

func scanNote(row pgx.Row) (*Note, error) {
	var n Note
	if err := row.Scan(
		&n.ID,
		&n.PatientID,
		&n.Date,
		&n.CreatedBy,
		&n.Symptoms,
		&n.Conditions,
		&n.KeyNotes,
		&n.Disorders,
		&n.UnderlyingIssues,
		&n.Diagnosis,
		&n.Status,
	); err != nil {
		return nil, err
	}
	return &n, nil
}
