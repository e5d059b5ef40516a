package patients

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// Repository defines patient persistence.
type Repository interface {
	Insert(ctx context.Context, in *CreateInput, normalizedName string) (*Patient, error)
	GetByID(ctx context.Context, id int64) (*Patient, error)
	FindByNormalizedName(ctx context.Context, normalizedName string) (*Patient, error)
	Update(ctx context.Context, id int64, in *UpdateInput, normalizedName *string) (*Patient, error)
	SoftDelete(ctx context.Context, id int64) (*Patient, error)
	List(ctx context.Context, filter ListFilter) ([]*Patient, int, error)
}

// InMemoryRepository keeps patients in a map, for tests and local development.
type InMemoryRepository struct {
	mu     sync.RWMutex
	nextID int64
	rows   map[int64]*Patient
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{rows: make(map[int64]*Patient)}
}

// Insert adds a patient row.
func (r *InMemoryRepository) Insert(ctx context.Context, in *CreateInput, normalizedName string) (*Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	p := &Patient{
		ID:             r.nextID,
		FullName:       in.FullName,
		NormalizedName: normalizedName,
		Alias:          in.Alias,
		Phone:          in.Phone,
		Gender:         in.Gender,
		ConsultReason:  in.ConsultReason,
		ProcessState:   ProcessStarted,
		Status:         StatusActive,
		CreatedAt:      time.Now().UTC(),
	}
	r.rows[p.ID] = p
	return clonePatient(p), nil
}

// GetByID returns a patient regardless of status.
func (r *InMemoryRepository) GetByID(ctx context.Context, id int64) (*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clonePatient(p), nil
}

// FindByNormalizedName looks up an active patient by folded name.
func (r *InMemoryRepository) FindByNormalizedName(ctx context.Context, normalizedName string) (*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.rows {
		if p.NormalizedName == normalizedName && p.Status == StatusActive {
			return clonePatient(p), nil
		}
	}
	return nil, ErrNotFound
}

// Update applies non-nil fields.
func (r *InMemoryRepository) Update(ctx context.Context, id int64, in *UpdateInput, normalizedName *string) (*Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	if in.FullName != nil {
		p.FullName = *in.FullName
	}
	if normalizedName != nil {
		p.NormalizedName = *normalizedName
	}
	if in.Alias != nil {
		p.Alias = in.Alias
	}
	if in.Phone != nil {
		p.Phone = in.Phone
	}
	if in.Gender != nil {
		p.Gender = in.Gender
	}
	if in.ConsultReason != nil {
		p.ConsultReason = in.ConsultReason
	}
	if in.ProcessState != nil {
		p.ProcessState = *in.ProcessState
	}
	return clonePatient(p), nil
}

// SoftDelete switches the patient to the inactive state.
func (r *InMemoryRepository) SoftDelete(ctx context.Context, id int64) (*Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	p.Status = StatusInactive
	return clonePatient(p), nil
}

// List filters by status and normalized-name substring.
func (r *InMemoryRepository) List(ctx context.Context, filter ListFilter) ([]*Patient, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	status := filter.Status
	if status == "" {
		status = StatusActive
	}
	q := Normalize(filter.Query)

	var matched []*Patient
	for _, p := range r.rows {
		if p.Status != status {
			continue
		}
		if q != "" && !strings.Contains(p.NormalizedName, q) {
			continue
		}
		matched = append(matched, clonePatient(p))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	total := len(matched)
	limit, offset := clampPage(filter.Limit, filter.Offset)
	if offset >= len(matched) {
		return nil, total, nil
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, total, nil
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func clonePatient(p *Patient) *Patient {
	cp := *p
	return &cp
}
