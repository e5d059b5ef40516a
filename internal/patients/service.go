package patients

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"

	"github.com/clinicadelvalle/clinica-platform/pkg/logging"
)

var patientsTracer = otel.Tracer("clinica.internal.patients")

// Service implements patient business rules on top of a Repository.
type Service struct {
	repo   Repository
	logger *logging.Logger
}

// NewService constructs a patients service.
func NewService(repo Repository, logger *logging.Logger) *Service {
	if repo == nil {
		panic("patients: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// CreateOutcome reports whether Create reused an existing active patient.
type CreateOutcome struct {
	Patient        *Patient
	AlreadyExisted bool
}

// Create registers a patient. If an active patient already has the same
// normalized name, that patient is returned with AlreadyExisted set instead
// of an error, so the conversation can continue against the existing record.
func (s *Service) Create(ctx context.Context, in *CreateInput) (*CreateOutcome, error) {
	ctx, span := patientsTracer.Start(ctx, "patients.create")
	defer span.End()

	if err := in.Validate(); err != nil {
		return nil, err
	}
	nn := Normalize(in.FullName)

	existing, err := s.repo.FindByNormalizedName(ctx, nn)
	if err == nil {
		return &CreateOutcome{Patient: existing, AlreadyExisted: true}, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	p, err := s.repo.Insert(ctx, in, nn)
	if err != nil {
		return nil, err
	}
	s.logger.Info("patient created", "patient_id", p.ID)
	return &CreateOutcome{Patient: p}, nil
}

// GetByName resolves an active patient by case- and accent-insensitive name.
func (s *Service) GetByName(ctx context.Context, name string) (*Patient, error) {
	return s.repo.FindByNormalizedName(ctx, Normalize(name))
}

// GetByID fetches a patient by primary key.
func (s *Service) GetByID(ctx context.Context, id int64) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

// Update applies a partial update, recomputing the normalized name when the
// full name changes.
func (s *Service) Update(ctx context.Context, id int64, in *UpdateInput) (*Patient, error) {
	ctx, span := patientsTracer.Start(ctx, "patients.update")
	defer span.End()

	if err := in.Validate(); err != nil {
		return nil, err
	}
	var nn *string
	if in.FullName != nil {
		folded := Normalize(*in.FullName)
		nn = &folded
	}
	return s.repo.Update(ctx, id, in, nn)
}

// Deactivate performs the logical delete.
func (s *Service) Deactivate(ctx context.Context, id int64) (*Patient, error) {
	ctx, span := patientsTracer.Start(ctx, "patients.deactivate")
	defer span.End()

	p, err := s.repo.SoftDelete(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info("patient deactivated", "patient_id", id)
	return p, nil
}

// List returns a filtered page of patients and the total match count.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Patient, int, error) {
	if filter.Status != StatusInactive {
		filter.Status = StatusActive
	}
	return s.repo.List(ctx, filter)
}
