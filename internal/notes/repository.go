package notes

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrNotFound is returned when a note does not exist.
var ErrNotFound = errors.New("note not found")

// Repository defines session-note persistence.
type Repository interface {
	Insert(ctx context.Context, in *CreateInput) (*Note, error)
	GetByID(ctx context.Context, id int64) (*Note, error)
	Update(ctx context.Context, id int64, in *UpdateInput) (*Note, error)
	SoftDelete(ctx context.Context, id int64) error
	ListByPatient(ctx context.Context, patientID int64, filter ListFilter) ([]*Note, int, error)
}

// InMemoryRepository keeps notes in a map, for tests and local development.
type InMemoryRepository struct {
	mu     sync.RWMutex
	nextID int64
	rows   map[int64]*Note
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{rows: make(map[int64]*Note)}
}

// Insert adds a note row.
func (r *InMemoryRepository) Insert(ctx context.Context, in *CreateInput) (*Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	date := time.Now().UTC()
	if in.Date != nil {
		date = *in.Date
	}
	r.nextID++
	n := &Note{
		ID:               r.nextID,
		PatientID:        in.PatientID,
		Date:             date,
		CreatedBy:        in.CreatedBy,
		Symptoms:         in.Symptoms,
		Conditions:       in.Conditions,
		KeyNotes:         in.KeyNotes,
		Disorders:        in.Disorders,
		UnderlyingIssues: in.UnderlyingIssues,
		Diagnosis:        in.Diagnosis,
		Status:           StatusActive,
	}
	r.rows[n.ID] = n
	return cloneNote(n), nil
}

// GetByID returns one note.
func (r *InMemoryRepository) GetByID(ctx context.Context, id int64) (*Note, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneNote(n), nil
}

// Update applies non-nil fields.
func (r *InMemoryRepository) Update(ctx context.Context, id int64, in *UpdateInput) (*Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	if in.Date != nil {
		n.Date = *in.Date
	}
	if in.Symptoms != nil {
		n.Symptoms = in.Symptoms
	}
	if in.Conditions != nil {
		n.Conditions = in.Conditions
	}
	if in.KeyNotes != nil {
		n.KeyNotes = in.KeyNotes
	}
	if in.Disorders != nil {
		n.Disorders = in.Disorders
	}
	if in.UnderlyingIssues != nil {
		n.UnderlyingIssues = in.UnderlyingIssues
	}
	if in.Diagnosis != nil {
		n.Diagnosis = in.Diagnosis
	}
	return cloneNote(n), nil
}

// SoftDelete flips the note to inactive.
func (r *InMemoryRepository) SoftDelete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.rows[id]
	if !ok {
		return ErrNotFound
	}
	n.Status = StatusInactive
	return nil
}

// ListByPatient returns the patient's notes, most recent first.
func (r *InMemoryRepository) ListByPatient(ctx context.Context, patientID int64, filter ListFilter) ([]*Note, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	status := filter.Status
	if status == "" {
		status = StatusActive
	}

	var matched []*Note
	for _, n := range r.rows {
		if n.PatientID != patientID {
			continue
		}
		if status != StatusAll && n.Status != status {
			continue
		}
		matched = append(matched, cloneNote(n))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Date.After(matched[j].Date) })

	total := len(matched)
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(matched) {
		return nil, total, nil
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, total, nil
}

func cloneNote(n *Note) *Note {
	cp := *n
	return &cp
}
