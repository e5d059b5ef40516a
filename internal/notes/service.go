package notes

import (
	"context"

	"go.opentelemetry.io/otel"

	"github.com/clinicadelvalle/clinica-platform/pkg/logging"
)

var notesTracer = otel.Tracer("clinica.internal.notes")

// Service implements session-note business rules.
type Service struct {
	repo   Repository
	logger *logging.Logger
}

// NewService constructs a notes service.
func NewService(repo Repository, logger *logging.Logger) *Service {
	if repo == nil {
		panic("notes: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// Create inserts a session note for an already-resolved patient.
func (s *Service) Create(ctx context.Context, in *CreateInput) (*Note, error) {
	ctx, span := notesTracer.Start(ctx, "notes.create")
	defer span.End()

	n, err := s.repo.Insert(ctx, in)
	if err != nil {
		return nil, err
	}
	s.logger.Info("session note created", "note_id", n.ID, "patient_id", n.PatientID)
	return n, nil
}

// GetByID fetches one note.
func (s *Service) GetByID(ctx context.Context, id int64) (*Note, error) {
	return s.repo.GetByID(ctx, id)
}

// Update applies a partial edit.
func (s *Service) Update(ctx context.Context, id int64, in *UpdateInput) (*Note, error) {
	return s.repo.Update(ctx, id, in)
}

// Deactivate performs the logical delete.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	ctx, span := notesTracer.Start(ctx, "notes.deactivate")
	defer span.End()
	return s.repo.SoftDelete(ctx, id)
}

// ListByPatient pages through one patient's notes.
func (s *Service) ListByPatient(ctx context.Context, patientID int64, filter ListFilter) ([]*Note, int, error) {
	return s.repo.ListByPatient(ctx, patientID, filter)
}
