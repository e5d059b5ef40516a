package patients

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// Querier is the subset of pgxpool.Pool this repository needs; pgxmock
// satisfies it in tests.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresRepository stores patients in the relational database.
type PostgresRepository struct {
	pool Querier
}

const patientColumns = `id, nombre_completo, nombre_normalizado, alias, telefono, genero, motivo_consulta, estado_proceso, estado, creado_en`

// NewPostgresRepository initializes a repo backed by pgx.
func NewPostgresRepository(pool Querier) *PostgresRepository {
	if pool == nil {
		panic("patients: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

// Insert creates a new active patient row.
func (r *PostgresRepository) Insert(ctx context.Context, in *CreateInput, normalizedName string) (*Patient, error) {
	query := `
		INSERT INTO pacientes (nombre_completo, nombre_normalizado, alias, telefono, genero, motivo_consulta)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + patientColumns
	row := r.pool.QueryRow(ctx, query,
		in.FullName,
		normalizedName,
		in.Alias,
		in.Phone,
		in.Gender,
		in.ConsultReason,
	)
	p, err := scanPatient(row)
	if err != nil {
		return nil, fmt.Errorf("patients: insert failed: %w", err)
	}
	return p, nil
}

// GetByID fetches one patient by primary key.
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+patientColumns+` FROM pacientes WHERE id = $1`, id)
	p, err := scanPatient(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("patients: select failed: %w", err)
	}
	return p, nil
}

// FindByNormalizedName fetches the active patient with the given folded name.
func (r *PostgresRepository) FindByNormalizedName(ctx context.Context, normalizedName string) (*Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM pacientes WHERE nombre_normalizado = $1 AND estado = 'activo' LIMIT 1`
	row := r.pool.QueryRow(ctx, query, normalizedName)
	p, err := scanPatient(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("patients: select by name failed: %w", err)
	}
	return p, nil
}

// Update applies the non-nil fields of in and returns the fresh row.
func (r *PostgresRepository) Update(ctx context.Context, id int64, in *UpdateInput, normalizedName *string) (*Patient, error) {
	sets := make([]string, 0, 7)
	args := make([]any, 0, 8)
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if in.FullName != nil {
		add("nombre_completo", *in.FullName)
	}
	if normalizedName != nil {
		add("nombre_normalizado", *normalizedName)
	}
	if in.Alias != nil {
		add("alias", *in.Alias)
	}
	if in.Phone != nil {
		add("telefono", *in.Phone)
	}
	if in.Gender != nil {
		add("genero", *in.Gender)
	}
	if in.ConsultReason != nil {
		add("motivo_consulta", *in.ConsultReason)
	}
	if in.ProcessState != nil {
		add("estado_proceso", *in.ProcessState)
	}
	if len(sets) == 0 {
		return r.GetByID(ctx, id)
	}
	args = append(args, id)
	query := fmt.Sprintf(
		`UPDATE pacientes SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), patientColumns,
	)
	row := r.pool.QueryRow(ctx, query, args...)
	p, err := scanPatient(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("patients: update failed: %w", err)
	}
	return p, nil
}

// SoftDelete flips the patient to inactive.
func (r *PostgresRepository) SoftDelete(ctx context.Context, id int64) (*Patient, error) {
	query := `UPDATE pacientes SET estado = 'inactivo' WHERE id = $1 RETURNING ` + patientColumns
	row := r.pool.QueryRow(ctx, query, id)
	p, err := scanPatient(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("patients: soft delete failed: %w", err)
	}
	return p, nil
}

// List returns a filtered page plus the total match count.
func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]*Patient, int, error) {
	status := filter.Status
	if status == "" {
		status = StatusActive
	}
	limit, offset := clampPage(filter.Limit, filter.Offset)

	where := `estado = $1`
	args := []any{status}
	if q := Normalize(filter.Query); q != "" {
		args = append(args, "%"+q+"%")
		where += fmt.Sprintf(" AND nombre_normalizado LIKE $%d", len(args))
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM pacientes WHERE ` + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("patients: count failed: %w", err)
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf(
		`SELECT %s FROM pacientes WHERE %s ORDER BY id LIMIT $%d OFFSET $%d`,
		patientColumns, where, len(args)-1, len(args),
	)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("patients: list failed: %w", err)
	}
	defer rows.Close()

	var out []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("patients: scan failed: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("patients: iterate failed: %w", err)
	}
	return out, total, nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	if err := row.Scan(
		&p.ID,
		&p.FullName,
		&p.NormalizedName,
		&p.Alias,
		&p.Phone,
		&p.Gender,
		&p.ConsultReason,
		&p.ProcessState,
		&p.Status,
		&p.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}
